package reconcile

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind classifies a field name.
type Kind int

const (
	KindUnknown   Kind = iota
	KindSize           // #filesize, bytes
	KindDateTime       // DATE-OBS, DATE: full date and time
	KindTimeOfDay      // TIME-OBS: time only, date comes from the key
	KindIgnored        // recognized, never contributes
)

const (
	dateTimeLayout = "2006-01-02T15:04:05"
	dateTimeWidth  = len(dateTimeLayout)
	timeOfDayWidth = len("15:04:05")
	bytesPerMB     = 1e6
)

var kinds = map[string]Kind{
	"#filesize": KindSize,
	"DATE-OBS":  KindDateTime,
	"DATE":      KindDateTime,
	"TIME-OBS":  KindTimeOfDay,
	"ODATEOBS":  KindIgnored,
	"MJD-OBS":   KindIgnored,
}

// KindOf returns the kind for a field name.
func KindOf(name string) Kind {
	if k, ok := kinds[name]; ok {
		return k
	}
	return KindUnknown
}

func (k Kind) String() string {
	switch k {
	case KindSize:
		return "size"
	case KindDateTime:
		return "datetime"
	case KindTimeOfDay:
		return "time-of-day"
	case KindIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// parseSize reads the first token of value as a byte count and returns megabytes.
func parseSize(value string) (float64, error) {
	tokens := strings.Fields(value)
	if len(tokens) == 0 {
		return 0, fmt.Errorf("%w: empty value", ErrMalformedSize)
	}
	n, err := strconv.ParseInt(tokens[0], 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedSize, tokens[0])
	}
	return float64(n) / bytesPerMB, nil
}

// unquote trims whitespace and drops every single quote.
func unquote(value string) string {
	return strings.ReplaceAll(strings.TrimSpace(value), "'", "")
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// parseDateTime parses a DATE-OBS or DATE value such as '2014-01-01T10:00:00.5'.
func parseDateTime(value string) (time.Time, error) {
	return time.Parse(dateTimeLayout, truncate(unquote(value), dateTimeWidth))
}

// parseTimeOfDay combines a TIME-OBS value with the YYYYMMDD segment of key.
func parseTimeOfDay(key string, segment int, value string) (time.Time, error) {
	segments := strings.Split(key, "/")
	if segment < 0 || segment >= len(segments) {
		return time.Time{}, fmt.Errorf("key has no date segment %d", segment)
	}
	day := segments[segment]
	if len(day) != 8 {
		return time.Time{}, fmt.Errorf("date segment %q is not YYYYMMDD", day)
	}
	s := fmt.Sprintf("%s-%s-%sT%s", day[0:4], day[4:6], day[6:8], truncate(unquote(value), timeOfDayWidth))
	return time.Parse(dateTimeLayout, s)
}
