package tracker

import (
	"fmt"
	"time"
)

// PartitionKeyLayout is the calendar-date form of a partition key.
const PartitionKeyLayout = "2006-01-02"

// InvalidPartitionKeyError reports a partition key that does not parse as a calendar date.
type InvalidPartitionKeyError struct {
	Key string
	Err error
}

func (e *InvalidPartitionKeyError) Error() string {
	return fmt.Sprintf("invalid partition key %q: %v", e.Key, e.Err)
}

func (e *InvalidPartitionKeyError) Unwrap() error { return e.Err }

// Partition is one calendar day's data scope: the unit of re-execution for every stage.
type Partition struct {
	Key  string
	Date time.Time // midnight of Key in the partition's location
}

// ParsePartition validates a YYYY-MM-DD key against the given location. A nil location
// defaults to time.Local, matching how the store's created_local column is rendered.
func ParsePartition(key string, loc *time.Location) (Partition, error) {
	if loc == nil {
		loc = time.Local
	}
	d, err := time.ParseInLocation(PartitionKeyLayout, key, loc)
	if err != nil {
		return Partition{}, &InvalidPartitionKeyError{Key: key, Err: err}
	}
	return Partition{Key: key, Date: d}, nil
}

// Window returns the half-open 24-hour window [midnight, next midnight) for the partition.
func (p Partition) Window() (time.Time, time.Time) {
	return p.Date, p.Date.AddDate(0, 0, 1)
}

// WeekWindow returns the Monday-aligned half-open week window [weekStart, weekStart+7d)
// covering the partition date.
func (p Partition) WeekWindow() (time.Time, time.Time) {
	offset := (int(p.Date.Weekday()) + 6) % 7
	start := p.Date.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}

// WeekStartKey returns the partition key of the Monday that opens the partition's week.
func (p Partition) WeekStartKey() string {
	start, _ := p.WeekWindow()
	return start.Format(PartitionKeyLayout)
}
