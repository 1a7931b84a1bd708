// Package calendar holds the month and week-block arithmetic used by the
// planning engine. Every date produced here is a UTC midnight instant.
package calendar

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidMonthKey is returned when a month key is not in YYYY_MM form.
var ErrInvalidMonthKey = errors.New("invalid month key")

var monthKeyPattern = regexp.MustCompile(`^\d{4}_\d{2}$`)

// MonthKey identifies a calendar month as "YYYY_MM".
type MonthKey string

// FormatMonthKey builds the canonical key for a year and month (1-12).
func FormatMonthKey(year, month int) MonthKey {
	return MonthKey(fmt.Sprintf("%04d_%02d", year, month))
}

// MonthKeyOf returns the key of the UTC month containing t.
func MonthKeyOf(t time.Time) MonthKey {
	t = t.UTC()
	return FormatMonthKey(t.Year(), int(t.Month()))
}

// ParseMonthKey splits a key into year and month.
func ParseMonthKey(key string) (int, int, error) {
	if !monthKeyPattern.MatchString(key) {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthKey, key)
	}

	year, _ := strconv.Atoi(key[:4])
	month, _ := strconv.Atoi(key[5:])
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("%w: %q has month %d", ErrInvalidMonthKey, key, month)
	}

	return year, month, nil
}

// Parse is ParseMonthKey on a typed key.
func (k MonthKey) Parse() (int, int, error) {
	return ParseMonthKey(string(k))
}

// Valid reports whether the key is well formed.
func (k MonthKey) Valid() bool {
	_, _, err := k.Parse()
	return err == nil
}

// FirstDay returns midnight UTC of the first day of the month.
func (k MonthKey) FirstDay() (time.Time, error) {
	year, month, err := k.Parse()
	if err != nil {
		return time.Time{}, err
	}
	return Date(year, month, 1), nil
}

// Date returns a UTC midnight date. Day and month overflow normalize the way
// time.Date does.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// StartOfDay truncates t to midnight of its UTC day.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return Date(t.Year(), int(t.Month()), t.Day())
}

// DaysInMonth returns the number of days in the month. Day 0 of the next month
// is the last day of this one.
func DaysInMonth(year, month int) int {
	return Date(year, month+1, 0).Day()
}

// Range is a closed date interval.
type Range struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

// DateRange spans from the first day of the first month to the last second of
// the last month. An empty list yields today (UTC midnight) for both ends.
func DateRange(keys []MonthKey, now time.Time) (Range, error) {
	if len(keys) == 0 {
		today := StartOfDay(now)
		return Range{Min: today, Max: today}, nil
	}

	firstYear, firstMonth, err := keys[0].Parse()
	if err != nil {
		return Range{}, err
	}
	lastYear, lastMonth, err := keys[len(keys)-1].Parse()
	if err != nil {
		return Range{}, err
	}

	last := DaysInMonth(lastYear, lastMonth)
	return Range{
		Min: Date(firstYear, firstMonth, 1),
		Max: time.Date(lastYear, time.Month(lastMonth), last, 23, 59, 59, 0, time.UTC),
	}, nil
}

// IndexOf returns the position of key in keys, or -1.
func IndexOf(keys []MonthKey, key MonthKey) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}

// ValidateKeys fails on the first malformed key.
func ValidateKeys(keys []MonthKey) error {
	for _, k := range keys {
		if _, _, err := k.Parse(); err != nil {
			return err
		}
	}
	return nil
}
