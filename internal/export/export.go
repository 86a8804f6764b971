// Package export renders one day's schedule as an xlsx sheet.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/eetulauri/dash-gantt/internal/schedule"
	"github.com/eetulauri/dash-gantt/internal/timeutil"
)

// DaySheet writes the transformed view for one date into a single-sheet
// xlsx workbook: one row per timeslot, grouped by professional.
func DaySheet(w io.Writer, date string, view schedule.View) error {
	file := excelize.NewFile()
	defer file.Close()

	sheet := date
	// Truncate sheet name to 31 chars (Excel limit)
	if len(sheet) > 31 {
		sheet = sheet[:31]
	}
	file.SetSheetName("Sheet1", sheet)

	columns := []string{"Professional", "Start", "End", "Duration (min)", "Status", "Booking probability"}
	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}

	style, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, 1)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = file.SetCellStyle(sheet, startCell, endCell, style)
	}

	nameByID := make(map[int]string, len(view.Professionals))
	for _, p := range view.Professionals {
		nameByID[p.ID] = p.Name
	}

	row := 2
	for _, slot := range view.Timeslots {
		status := "available"
		if slot.IsBooked {
			status = "booked"
		}
		duration := slot.DurationMinutes
		if d, err := timeutil.DurationMinutes(slot.Start, slot.End); err == nil {
			duration = d
		}

		values := []interface{}{
			nameByID[slot.ProfessionalID],
			slot.Start,
			slot.End,
			duration,
			status,
			slot.BookingProbability,
		}
		for i, val := range values {
			cell, err := excelize.CoordinatesToCellName(i+1, row)
			if err != nil {
				return err
			}
			if err := file.SetCellValue(sheet, cell, val); err != nil {
				return err
			}
		}
		row++
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
