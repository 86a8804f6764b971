package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eetulauri/dash-gantt/internal/schedule"
	"github.com/eetulauri/dash-gantt/internal/store"
)

const testDate = "2024-01-15"

func newTestServer(t *testing.T, redisClient *redis.Client) (*Server, *store.DB) {
	t.Helper()
	db, err := store.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(Options{
		DB:              db,
		Redis:           redisClient,
		Logger:          zerolog.Nop(),
		CacheTTL:        time.Minute,
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
	})
	return s, db
}

func seed(t *testing.T, db *store.DB) {
	t.Helper()
	records := []schedule.Record{
		{Datetime: testDate + " 09:00", ProfessionalName: "Dr. A", DurationMinutes: 20, BookedFlag: 1,
			Extra: map[string]any{"location": "Helsinki"}},
		{Datetime: testDate + " 10:00", ProfessionalName: "Dr. A", DurationMinutes: 30, BookedFlag: 0},
		{Datetime: testDate + " 09:30", ProfessionalName: "Dr. B", DurationMinutes: 15, BookedFlag: 1},
	}
	require.NoError(t, db.UpsertAll(context.Background(), records))
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGetSchedule(t *testing.T) {
	s, db := newTestServer(t, nil)
	seed(t, db)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/schedule?date="+testDate, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view schedule.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Len(t, view.Professionals, 2)
	assert.Len(t, view.Timeslots, 3)
	assert.Equal(t, "09:20", view.Timeslots[0].End)
}

func TestGetScheduleBadDate(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/schedule?date=15.01.2024", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScheduleCachedAndBustedOnMutation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s, db := newTestServer(t, client)
	seed(t, db)

	handler := s.Handler()
	doJSON(t, handler, http.MethodGet, "/api/v1/schedule?date="+testDate, nil)
	require.True(t, mr.Exists("schedule:"+testDate), "view should be cached after first read")

	// Creating a slot must bust the cached view.
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/slots", CreateSlotRequest{
		Date: testDate, ProfessionalID: 1, Start: "11:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.False(t, mr.Exists("schedule:"+testDate), "cache should be invalidated after mutation")

	// Next read sees the new slot.
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/schedule?date="+testDate, nil)
	var view schedule.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Len(t, view.Timeslots, 4)
}

func TestCreateSlotDefaultLength(t *testing.T) {
	s, db := newTestServer(t, nil)
	seed(t, db)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/slots", CreateSlotRequest{
		Date: testDate, ProfessionalID: 1, Start: "11:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var view schedule.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	found := false
	for _, slot := range view.Timeslots {
		if slot.Start == "11:00" {
			found = true
			assert.Equal(t, "11:20", slot.End)
		}
	}
	assert.True(t, found, "created slot missing from response")

	records, err := db.ListByDate(context.Background(), testDate)
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestCreateSlotUnknownProfessional(t *testing.T) {
	s, db := newTestServer(t, nil)
	seed(t, db)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/slots", CreateSlotRequest{
		Date: testDate, ProfessionalID: 42, Start: "11:00",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMoveSlotPersists(t *testing.T) {
	s, db := newTestServer(t, nil)
	seed(t, db)

	// Slot 1 is the 09:00 Dr. A record.
	rec := doJSON(t, s.Handler(), http.MethodPatch, "/api/v1/slots/1", UpdateSlotRequest{
		Date: testDate, Start: "14:00", End: "14:20",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	records, err := db.ListByDate(context.Background(), testDate)
	require.NoError(t, err)
	var moved *schedule.Record
	for i := range records {
		if records[i].Datetime == testDate+" 14:00" {
			moved = &records[i]
		}
	}
	require.NotNil(t, moved, "moved record not persisted")
	assert.Equal(t, "Helsinki", moved.Extra["location"], "passthrough fields lost on move")
}

func TestMoveBookedSlotRejected(t *testing.T) {
	s, db := newTestServer(t, nil)
	seed(t, db)

	// Slot 2 is the booked 10:00 record.
	rec := doJSON(t, s.Handler(), http.MethodPatch, "/api/v1/slots/2", UpdateSlotRequest{
		Date: testDate, Start: "14:00", End: "14:30",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestResizeSlot(t *testing.T) {
	s, db := newTestServer(t, nil)
	seed(t, db)

	rec := doJSON(t, s.Handler(), http.MethodPatch, "/api/v1/slots/1", UpdateSlotRequest{
		Date: testDate, Start: "09:00", End: "09:45", Action: "resize",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	records, err := db.ListByDate(context.Background(), testDate)
	require.NoError(t, err)
	for _, r := range records {
		if r.Datetime == testDate+" 09:00" {
			assert.Equal(t, 45, r.DurationMinutes)
			return
		}
	}
	t.Fatal("resized record not found")
}

func TestDeleteSlot(t *testing.T) {
	s, db := newTestServer(t, nil)
	seed(t, db)

	rec := doJSON(t, s.Handler(), http.MethodDelete, "/api/v1/slots/1?date="+testDate, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	records, err := db.ListByDate(context.Background(), testDate)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestDeleteBookedSlotRejected(t *testing.T) {
	s, db := newTestServer(t, nil)
	seed(t, db)

	rec := doJSON(t, s.Handler(), http.MethodDelete, "/api/v1/slots/2?date="+testDate, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPutRecordsReplacesDay(t *testing.T) {
	s, db := newTestServer(t, nil)
	seed(t, db)

	body := map[string]any{
		"date": testDate,
		"records": []schedule.Record{
			{Datetime: testDate + " 08:00", ProfessionalName: "Dr. Z", DurationMinutes: 20, BookedFlag: 1},
		},
	}
	rec := doJSON(t, s.Handler(), http.MethodPut, "/api/v1/records", body)
	require.Equal(t, http.StatusOK, rec.Code)

	records, err := db.ListByDate(context.Background(), testDate)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Dr. Z", records[0].ProfessionalName)
}

func TestGetRecords(t *testing.T) {
	s, db := newTestServer(t, nil)
	seed(t, db)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/records?date="+testDate, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Records []schedule.Record `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Records, 3)
}

func TestProbabilitiesScoredAndPersisted(t *testing.T) {
	s, db := newTestServer(t, nil)
	seed(t, db)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/probabilities?date="+testDate, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	records, err := db.ListByDate(context.Background(), testDate)
	require.NoError(t, err)
	for _, r := range records {
		require.NotNil(t, r.BookingProbability, "record %s not scored", r.Datetime)
		assert.GreaterOrEqual(t, *r.BookingProbability, 0.0)
		assert.LessOrEqual(t, *r.BookingProbability, 1.0)
	}
}

func TestImportCSVEndpoint(t *testing.T) {
	s, db := newTestServer(t, nil)

	csvBody := strings.Join([]string{
		"datetime,professionalName,durationMinutes,bookedFlag",
		testDate + " 09:00,Dr. A,20,1",
	}, "\n")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/import", strings.NewReader(csvBody))
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	records, err := db.ListByDate(context.Background(), testDate)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestExportReturnsWorkbook(t *testing.T) {
	s, db := newTestServer(t, nil)
	seed(t, db)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/export?date="+testDate, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotZero(t, rec.Body.Len())
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t, nil)
	handler := s.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	db, err := store.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(Options{DB: db, Logger: zerolog.Nop(), RateLimitPerSec: 1, RateLimitBurst: 2})
	handler := s.Handler()

	codes := make(map[int]int)
	for i := 0; i < 5; i++ {
		rec := doJSON(t, handler, http.MethodGet, "/healthz", nil)
		codes[rec.Code]++
	}
	assert.Positive(t, codes[http.StatusTooManyRequests], "expected some requests limited")
	assert.Positive(t, codes[http.StatusOK], "expected burst to pass")
}
