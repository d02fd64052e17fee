package statistic

import (
	"strings"
	"time"
)

// Granularity is the time resolution of a bucket.
type Granularity string

const (
	GranularityQuarterHour Granularity = "QUARTER_HOUR"
	GranularityHour        Granularity = "HOUR"
	GranularityDay         Granularity = "DAY"
	GranularityMonth       Granularity = "MONTH"
	GranularityYear        Granularity = "YEAR"
)

// IsValid checks if the granularity is one of the supported values.
func (g Granularity) IsValid() bool {
	switch g {
	case GranularityQuarterHour, GranularityHour, GranularityDay, GranularityMonth, GranularityYear:
		return true
	default:
		return false
	}
}

// ParseGranularity resolves query names such as "hour" or "15min".
func ParseGranularity(value string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "15min", "quarter_hour":
		return GranularityQuarterHour, nil
	case "hour", "":
		return GranularityHour, nil
	case "day":
		return GranularityDay, nil
	case "month":
		return GranularityMonth, nil
	case "year":
		return GranularityYear, nil
	default:
		return "", ErrInvalidGranularity
	}
}

// TimeKey is the label of a bucket period, in wall-clock fields.
type TimeKey string

// NewTimeKey builds a TimeKey for the given granularity and period start.
func NewTimeKey(granularity Granularity, periodStart time.Time) (TimeKey, error) {
	if !granularity.IsValid() {
		return "", ErrInvalidGranularity
	}
	if periodStart.IsZero() {
		return "", ErrInvalidPeriodStart
	}

	layout, err := timeKeyLayout(granularity)
	if err != nil {
		return "", err
	}
	return TimeKey(periodStart.Format(layout)), nil
}

// String returns the raw label.
func (k TimeKey) String() string { return string(k) }

// Truncate drops the fields below the granularity, keeping t's own location.
func Truncate(t time.Time, granularity Granularity) (time.Time, error) {
	if t.IsZero() {
		return time.Time{}, ErrInvalidPeriodStart
	}
	loc := t.Location()
	switch granularity {
	case GranularityQuarterHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute()/15*15, 0, 0, loc), nil
	case GranularityHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, loc), nil
	case GranularityDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
	case GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc), nil
	case GranularityYear:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, loc), nil
	default:
		return time.Time{}, ErrInvalidGranularity
	}
}

func timeKeyLayout(granularity Granularity) (string, error) {
	switch granularity {
	case GranularityQuarterHour:
		return "20060102T1504", nil
	case GranularityHour:
		return "20060102T15", nil
	case GranularityDay:
		return "20060102", nil
	case GranularityMonth:
		return "200601", nil
	case GranularityYear:
		return "2006", nil
	default:
		return "", ErrInvalidGranularity
	}
}
