package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/eetulauri/dash-gantt/internal/schedule"
)

func TestDaySheet(t *testing.T) {
	view := schedule.View{
		Professionals: []schedule.Professional{{ID: 1, Name: "Dr. A"}, {ID: 2, Name: "Dr. B"}},
		Timeslots: []schedule.Timeslot{
			{ID: 1, ProfessionalID: 1, Start: "09:00", End: "09:20", Date: "2024-01-15", BookingProbability: 0.8},
			{ID: 2, ProfessionalID: 2, Start: "10:00", End: "10:30", Date: "2024-01-15", IsBooked: true},
		},
	}

	var buf bytes.Buffer
	if err := DaySheet(&buf, "2024-01-15", view); err != nil {
		t.Fatalf("DaySheet: %v", err)
	}

	file, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer file.Close()

	rows, err := file.GetRows("2024-01-15")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Professional" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "Dr. A" || rows[1][1] != "09:00" {
		t.Errorf("unexpected first row %v", rows[1])
	}
	if rows[2][4] != "booked" {
		t.Errorf("expected booked status, got %v", rows[2])
	}
}

func TestDaySheetEmptyView(t *testing.T) {
	var buf bytes.Buffer
	if err := DaySheet(&buf, "2024-01-15", schedule.View{}); err != nil {
		t.Fatalf("DaySheet: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected a non-empty workbook")
	}
}
