package domain

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// dateKeys are the date-bearing columns checked in order.
var dateKeys = []string{
	"measurement_date", "date", "sampling_date", "sample_date", "date_of_sampling",
	"date_of_monitoring", "monitoring_date", "observation_date", "collection_date",
	"sampling_date_time", "timestamp", "year",
}

// yearRe finds a plausible four-digit year, e.g. in
// "Water Quality of Rivers (2019) - CPCB".
var yearRe = regexp.MustCompile(`(?:^|\D)((?:19|20)\d{2})(?:\D|$)`)

// resolveDate returns the first parseable candidate date in f, then the
// first year mentioned in title, then today.
func resolveDate(f fieldSet, title string) (time.Time, dateSource) {
	for _, k := range dateKeys {
		v, ok := f[k]
		if !ok {
			continue
		}
		if d, ok := parseDateValue(v); ok {
			return d, dateFromRecord
		}
	}
	if d, ok := yearFromTitle(title); ok {
		return d, dateFromTitle
	}
	return dateOnly(Now()), dateFromClock
}

type dateSource int

const (
	dateFromRecord dateSource = iota
	dateFromTitle
	dateFromClock
)

// parseDateValue parses a date value day-first. Bare years become January 1.
func parseDateValue(v any) (time.Time, bool) {
	switch t := v.(type) {
	case float64:
		return yearDate(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return yearDate(f)
	case string:
		s := strings.TrimSpace(t)
		if s == "" || isNullSentinel(s) {
			return time.Time{}, false
		}
		if len(s) == 4 {
			if y, err := strconv.Atoi(s); err == nil {
				return yearDate(float64(y))
			}
		}
		parsed, err := dateparse.ParseIn(s, time.UTC, dateparse.PreferMonthFirst(false))
		if err != nil {
			return time.Time{}, false
		}
		return dateOnly(parsed), true
	}
	return time.Time{}, false
}

func yearDate(y float64) (time.Time, bool) {
	if y != math.Trunc(y) || y < 1900 || y > 2099 {
		return time.Time{}, false
	}
	return time.Date(int(y), time.January, 1, 0, 0, 0, 0, time.UTC), true
}

// yearFromTitle extracts the first year mentioned in a dataset title.
func yearFromTitle(title string) (time.Time, bool) {
	m := yearRe.FindStringSubmatch(title)
	if m == nil {
		return time.Time{}, false
	}
	y, _ := strconv.Atoi(m[1])
	return yearDate(float64(y))
}

// dateOnly truncates t to midnight UTC on its calendar date.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
