// Package interval holds the date-range arithmetic shared by the availability
// components. Ranges are half-open: a stay occupies [Start, End), so a checkout
// day may be the next guest's checkin day.
package interval

import (
	"errors"
	"fmt"
	"lodgr/pkg/model"
	"time"
)

const DateLayout = "2006-01-02"

var (
	ErrInvalidDate  = errors.New("date must be in YYYY-MM-DD format")
	ErrInvalidRange = errors.New("end date must be after start date")
)

// Overlaps reports whether a and b share at least one night.
func Overlaps(a, b model.DateRange) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// IsExpired reports whether the hold's TTL has lapsed at now.
func IsExpired(hold model.Hold, now time.Time) bool {
	return !now.Before(hold.ExpiresAt)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t.UTC(), nil
}

func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// NewRange builds a range and enforces End > Start.
func NewRange(start, end time.Time) (model.DateRange, error) {
	start, end = truncateToDay(start), truncateToDay(end)
	if !end.After(start) {
		return model.DateRange{}, ErrInvalidRange
	}
	return model.DateRange{Start: start, End: end}, nil
}

// ParseRange parses both ends of a YYYY-MM-DD range.
func ParseRange(start, end string) (model.DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return model.DateRange{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return model.DateRange{}, err
	}
	return NewRange(s, e)
}

// Nights counts the nights a half-open range covers.
func Nights(r model.DateRange) int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
