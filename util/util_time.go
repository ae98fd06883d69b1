package util

import (
	"time"

	"github.com/jinzhu/now"
)

// Datetime related utility functions.
const (
	DATETIME_FORMAT_YYYYMMDD_HYPHEN string = "2006-01-02"
	DATETIME_FORMAT_YYYYMMDD        string = "20060102"
	DATETIME_FORMAT_DB              string = "2006-01-02 15:04:05"
)

var dateFormats = []string{DATETIME_FORMAT_YYYYMMDD_HYPHEN, DATETIME_FORMAT_YYYYMMDD, DATETIME_FORMAT_DB}

// ParseDate parses a calendar date in UTC and truncates it to the beginning of the day.
func ParseDate(value string) (time.Time, error) {
	var err error
	for _, format := range dateFormats {
		var t time.Time
		if t, err = time.ParseInLocation(format, value, time.UTC); err == nil {
			return BeginningOfDay(t), nil
		}
	}
	return time.Time{}, err
}

func BeginningOfDay(t time.Time) time.Time {
	return now.New(t).BeginningOfDay()
}

// FormatDate returns the date in YYYY-MM-DD format.
func FormatDate(t time.Time) string {
	return t.Format(DATETIME_FORMAT_YYYYMMDD_HYPHEN)
}

// DatesBetween returns every calendar day after start up to and including end.
func DatesBetween(start, end time.Time) []time.Time {
	dates := make([]time.Time, 0)
	from := BeginningOfDay(start)
	to := BeginningOfDay(end)
	for d := from.AddDate(0, 0, 1); !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}
