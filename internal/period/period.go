// Package period computes reporting windows: calendar days, Monday-aligned
// ISO weeks and calendar months, in a given location.
package period

import (
	"fmt"
	"time"

	"github.com/dimaum1001/sistema-restaurante/internal/apperr"
)

type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

const DateLayout = "2006-01-02"

func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(s); g {
	case Daily, Weekly, Monthly:
		return g, nil
	}
	return "", apperr.Validation("granularity must be one of daily, weekly, monthly (got %q)", s)
}

// Window is the half-open interval [Start, End).
type Window struct {
	Label string
	Start time.Time
	End   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// LastDay is the inclusive end date of the window.
func (w Window) LastDay() time.Time {
	return addDays(w.End, -1)
}

// Day truncates t to midnight in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func addDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, t.Location())
}

// BucketStart returns the start of the bucket containing t.
func BucketStart(t time.Time, g Granularity) time.Time {
	day := Day(t)
	switch g {
	case Weekly:
		offset := (int(day.Weekday()) + 6) % 7
		return addDays(day, -offset)
	case Monthly:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	default:
		return day
	}
}

// Next returns the start of the bucket following the one starting at start.
func Next(start time.Time, g Granularity) time.Time {
	switch g {
	case Weekly:
		return addDays(start, 7)
	case Monthly:
		return time.Date(start.Year(), start.Month()+1, 1, 0, 0, 0, 0, start.Location())
	default:
		return addDays(start, 1)
	}
}

// Label names a bucket by its start: 2024-01-15, 2024-W03 or 2024-01.
func Label(start time.Time, g Granularity) string {
	switch g {
	case Weekly:
		y, w := start.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	case Monthly:
		return start.Format("2006-01")
	default:
		return start.Format(DateLayout)
	}
}

// WindowFor returns the full bucket containing t.
func WindowFor(t time.Time, g Granularity) Window {
	start := BucketStart(t, g)
	return Window{Label: Label(start, g), Start: start, End: Next(start, g)}
}

// Windows partitions the days firstDay..lastDay (inclusive) into buckets.
// Every bucket touching the range is returned, clipped to it, so the
// windows are contiguous and cover the range exactly once.
func Windows(firstDay, lastDay time.Time, g Granularity) []Window {
	from := Day(firstDay)
	to := addDays(Day(lastDay), 1)
	if !from.Before(to) {
		return nil
	}

	var out []Window
	for start := BucketStart(from, g); start.Before(to); start = Next(start, g) {
		w := Window{Label: Label(start, g), Start: start, End: Next(start, g)}
		if w.Start.Before(from) {
			w.Start = from
		}
		if w.End.After(to) {
			w.End = to
		}
		out = append(out, w)
	}
	return out
}
