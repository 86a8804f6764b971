// Package store persists the flat booking-record list in sqlite.
package store

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eetulauri/dash-gantt/internal/schedule"
)

// DB wraps sql.DB for the schedule host.
type DB struct {
	*sql.DB
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Raw booking records, one row per appointment slot. The extra
		// column holds upstream passthrough fields as JSON.
		`CREATE TABLE IF NOT EXISTS booking_records (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            date TEXT NOT NULL,
            datetime TEXT NOT NULL,
            professional_name TEXT NOT NULL,
            duration_minutes INTEGER NOT NULL,
            booked_flag INTEGER NOT NULL DEFAULT 1,
            booking_probability REAL,
            extra TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE INDEX IF NOT EXISTS idx_booking_records_date ON booking_records(date)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_booking_records_key
            ON booking_records(datetime, professional_name)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// ListByDate returns all records whose datetime falls on the given date,
// ordered by professional then time.
func (db *DB) ListByDate(ctx context.Context, date string) ([]schedule.Record, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT datetime, professional_name, duration_minutes, booked_flag, booking_probability, extra
        FROM booking_records
        WHERE date = ?
        ORDER BY professional_name, datetime`, date)
	if err != nil {
		return nil, fmt.Errorf("list records for %s: %w", date, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListAll returns every stored record, all dates included.
func (db *DB) ListAll(ctx context.Context) ([]schedule.Record, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT datetime, professional_name, duration_minutes, booked_flag, booking_probability, extra
        FROM booking_records
        ORDER BY date, professional_name, datetime`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ReplaceDate swaps out one day's records in a single transaction. Records
// in the input that belong to other dates are ignored, so the full list from
// a change notification can be passed as-is.
func (db *DB) ReplaceDate(ctx context.Context, date string, records []schedule.Record) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM booking_records WHERE date = ?`, date); err != nil {
		return fmt.Errorf("clear %s: %w", date, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO booking_records (date, datetime, professional_name, duration_minutes, booked_flag, booking_probability, extra)
        VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		rec := &records[i]
		if rec.Date() != date {
			continue
		}
		extra, probability, err := encodeRecord(rec)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, date, rec.Datetime, rec.ProfessionalName,
			rec.DurationMinutes, rec.BookedFlag, probability, extra); err != nil {
			return fmt.Errorf("insert record %s: %w", rec.Key(), err)
		}
	}
	return tx.Commit()
}

// UpsertAll inserts or updates every record in the list, keyed by
// datetime+professional. Used by the CSV import and the probability update.
func (db *DB) UpsertAll(ctx context.Context, records []schedule.Record) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO booking_records (date, datetime, professional_name, duration_minutes, booked_flag, booking_probability, extra)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(datetime, professional_name) DO UPDATE SET
            duration_minutes = excluded.duration_minutes,
            booked_flag = excluded.booked_flag,
            booking_probability = excluded.booking_probability,
            extra = excluded.extra,
            updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		rec := &records[i]
		extra, probability, err := encodeRecord(rec)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, rec.Date(), rec.Datetime, rec.ProfessionalName,
			rec.DurationMinutes, rec.BookedFlag, probability, extra); err != nil {
			return fmt.Errorf("upsert record %s: %w", rec.Key(), err)
		}
	}
	return tx.Commit()
}

// Dates returns the distinct dates with stored records, ascending.
func (db *DB) Dates(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT date FROM booking_records ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("list dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// ImportCSV loads records from the upstream CSV export. Expected header:
// datetime, professionalName, durationMinutes, bookedFlag, optionally
// bookingProbability; any further columns land in the record's extra map.
func (db *DB) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"datetime", "professionalName", "durationMinutes", "bookedFlag"} {
		if _, ok := col[required]; !ok {
			return 0, fmt.Errorf("csv missing column %q", required)
		}
	}

	var records []schedule.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read csv row: %w", err)
		}

		rec, err := recordFromRow(header, col, row)
		if err != nil {
			return 0, err
		}
		records = append(records, rec)
	}

	if err := db.UpsertAll(ctx, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

func recordFromRow(header []string, col map[string]int, row []string) (schedule.Record, error) {
	var rec schedule.Record
	rec.Datetime = row[col["datetime"]]
	rec.ProfessionalName = row[col["professionalName"]]

	duration, err := strconv.Atoi(strings.TrimSpace(row[col["durationMinutes"]]))
	if err != nil {
		return rec, fmt.Errorf("row %q: bad duration: %w", rec.Datetime, err)
	}
	rec.DurationMinutes = duration

	booked, err := strconv.Atoi(strings.TrimSpace(row[col["bookedFlag"]]))
	if err != nil {
		return rec, fmt.Errorf("row %q: bad booked flag: %w", rec.Datetime, err)
	}
	rec.BookedFlag = booked

	if i, ok := col["bookingProbability"]; ok && strings.TrimSpace(row[i]) != "" {
		p, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
		if err != nil {
			return rec, fmt.Errorf("row %q: bad probability: %w", rec.Datetime, err)
		}
		rec.BookingProbability = &p
	}

	known := map[string]bool{
		"datetime": true, "professionalName": true, "durationMinutes": true,
		"bookedFlag": true, "bookingProbability": true,
	}
	for i, name := range header {
		name = strings.TrimSpace(name)
		if known[name] || i >= len(row) || strings.TrimSpace(row[i]) == "" {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]any)
		}
		rec.Extra[name] = row[i]
	}
	return rec, nil
}

func encodeRecord(rec *schedule.Record) (extra sql.NullString, probability sql.NullFloat64, err error) {
	if len(rec.Extra) > 0 {
		data, merr := json.Marshal(rec.Extra)
		if merr != nil {
			return extra, probability, fmt.Errorf("marshal extra for %s: %w", rec.Key(), merr)
		}
		extra = sql.NullString{String: string(data), Valid: true}
	}
	if rec.BookingProbability != nil {
		probability = sql.NullFloat64{Float64: *rec.BookingProbability, Valid: true}
	}
	return extra, probability, nil
}

func scanRecords(rows *sql.Rows) ([]schedule.Record, error) {
	var records []schedule.Record
	for rows.Next() {
		var rec schedule.Record
		var probability sql.NullFloat64
		var extra sql.NullString
		if err := rows.Scan(&rec.Datetime, &rec.ProfessionalName, &rec.DurationMinutes,
			&rec.BookedFlag, &probability, &extra); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if probability.Valid {
			p := probability.Float64
			rec.BookingProbability = &p
		}
		if extra.Valid && extra.String != "" {
			if err := json.Unmarshal([]byte(extra.String), &rec.Extra); err != nil {
				return nil, fmt.Errorf("decode extra for %s: %w", rec.Key(), err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
