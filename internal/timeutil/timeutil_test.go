package timeutil

import (
	"fmt"
	"testing"
)

func TestToDecimal(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		wantErr  bool
	}{
		{"00:00", 0, false},
		{"09:30", 9.5, false},
		{"09:20", 9 + 20.0/60, false},
		{"23:59", 23 + 59.0/60, false},
		{"garbage", 0, true},
		{"12", 0, true},
		{"aa:bb", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ToDecimal(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("ToDecimal(%q): expected %v, got %v", tt.input, tt.expected, got)
			}
		})
	}
}

func TestFromDecimal(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{0, "00:00"},
		{9.5, "09:30"},
		{25.0, "01:00"},
		{-1.0, "00:00"},
		{23 + 59.9/60, "00:00"}, // minutes round to 60 and roll over
		{6.25, "06:15"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := FromDecimal(tt.input); got != tt.expected {
				t.Errorf("FromDecimal(%v): expected %q, got %q", tt.input, tt.expected, got)
			}
		})
	}
}

func TestDecimalRoundTrip(t *testing.T) {
	// Every valid HH:MM must survive ToDecimal -> FromDecimal unchanged.
	for hour := 0; hour < 24; hour++ {
		for minute := 0; minute < 60; minute++ {
			s := fmt.Sprintf("%02d:%02d", hour, minute)
			d, err := ToDecimal(s)
			if err != nil {
				t.Fatalf("ToDecimal(%q): %v", s, err)
			}
			if got := FromDecimal(d); got != s {
				t.Fatalf("round trip %q: got %q", s, got)
			}
		}
	}
}

func TestIsValid(t *testing.T) {
	valid := []string{"00:00", "09:05", "23:59", "12:30"}
	invalid := []string{"", "24:00", "12:60", "9:00", "12:5", "ab:cd", "12-30", "112:30"}

	for _, s := range valid {
		if !IsValid(s) {
			t.Errorf("IsValid(%q): expected true", s)
		}
	}
	for _, s := range invalid {
		if IsValid(s) {
			t.Errorf("IsValid(%q): expected false", s)
		}
	}
}

func TestDurationMinutes(t *testing.T) {
	tests := []struct {
		start, end string
		expected   int
	}{
		{"09:00", "09:20", 20},
		{"09:00", "10:30", 90},
		{"23:30", "00:30", 60}, // crossing midnight
		{"12:00", "12:00", 0},
	}

	for _, tt := range tests {
		t.Run(tt.start+"-"+tt.end, func(t *testing.T) {
			got, err := DurationMinutes(tt.start, tt.end)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}

	if _, err := DurationMinutes("bad", "09:00"); err == nil {
		t.Error("expected error for malformed start")
	}
}

func TestAddMinutes(t *testing.T) {
	tests := []struct {
		start    string
		mins     int
		expected string
	}{
		{"09:00", 20, "09:20"},
		{"09:50", 20, "10:10"},
		{"23:50", 20, "00:10"}, // wraps past midnight
		{"00:10", -20, "23:50"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			got, err := AddMinutes(tt.start, tt.mins)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("AddMinutes(%q, %d): expected %q, got %q", tt.start, tt.mins, tt.expected, got)
			}
		})
	}
}

func TestSnap(t *testing.T) {
	tests := []struct {
		hour, minute, cellDur int
		expected              string
	}{
		{9, 12, 5, "09:10"},
		{9, 13, 5, "09:15"},
		{9, 58, 5, "10:00"}, // snaps to :60, rolls over
		{9, 0, 5, "09:00"},
		{-1, 0, 5, "00:00"},
		{30, 0, 5, "23:00"},
		{9, 14, 20, "09:20"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := Snap(tt.hour, tt.minute, tt.cellDur); got != tt.expected {
				t.Errorf("Snap(%d, %d, %d): expected %q, got %q",
					tt.hour, tt.minute, tt.cellDur, tt.expected, got)
			}
		})
	}
}
