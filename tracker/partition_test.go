package tracker

import (
	"errors"
	"testing"
	"time"
)

func TestParsePartition_RejectsMalformedKeys(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"", "2024-13-01", "2024-05-6", "05-06-2024", "yesterday"} {
		_, err := ParsePartition(key, time.UTC)
		if err == nil {
			t.Fatalf("ParsePartition(%q) succeeded, want error", key)
		}
		var ipk *InvalidPartitionKeyError
		if !errors.As(err, &ipk) {
			t.Fatalf("ParsePartition(%q) error %T, want *InvalidPartitionKeyError", key, err)
		}
		if ipk.Key != key {
			t.Fatalf("error key=%q, want %q", ipk.Key, key)
		}
	}
}

func TestWindow_Is24HourHalfOpen(t *testing.T) {
	t.Parallel()

	p, err := ParsePartition("2024-05-06", time.UTC)
	if err != nil {
		t.Fatalf("ParsePartition: %v", err)
	}
	start, end := p.Window()
	if !start.Equal(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start=%v", start)
	}
	if got := end.Sub(start); got != 24*time.Hour {
		t.Fatalf("window width=%v, want 24h", got)
	}
}

func TestWeekWindow_MondayAlignedSevenDays(t *testing.T) {
	t.Parallel()

	// 2024-05-06 is itself a Monday; every day of that week maps to the same window.
	for _, key := range []string{"2024-05-06", "2024-05-08", "2024-05-12"} {
		p, err := ParsePartition(key, time.UTC)
		if err != nil {
			t.Fatalf("ParsePartition(%q): %v", key, err)
		}
		start, end := p.WeekWindow()
		if start.Weekday() != time.Monday {
			t.Fatalf("week start for %s is %v, want Monday", key, start.Weekday())
		}
		if !start.Equal(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("week start for %s = %v", key, start)
		}
		if got := end.Sub(start); got != 7*24*time.Hour {
			t.Fatalf("week width for %s = %v, want 168h", key, got)
		}
		if p.Date.Before(start) || !p.Date.Before(end) {
			t.Fatalf("partition date %v outside week window [%v, %v)", p.Date, start, end)
		}
	}
}

func TestWeekStartKey(t *testing.T) {
	t.Parallel()

	p, err := ParsePartition("2024-05-12", time.UTC) // Sunday
	if err != nil {
		t.Fatalf("ParsePartition: %v", err)
	}
	if got := p.WeekStartKey(); got != "2024-05-06" {
		t.Fatalf("WeekStartKey=%q, want 2024-05-06", got)
	}
}
