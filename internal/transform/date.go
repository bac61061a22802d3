package transform

import (
	"time"

	"github.com/roach88/entsync/internal/ir"
)

// Date layouts tried in order. Fractional seconds are accepted by the
// primary layouts as well, so the fallbacks only matter for inputs the
// primary layouts reject outright.
var (
	primaryDateLayouts = []string{
		"2006-01-02T15:04:05Z0700",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02T15:04:05GMT-07:00",
	}
	fallbackDateLayouts = []string{
		"2006-01-02T15:04:05.000Z0700",
		"2006-01-02T15:04:05.000Z07:00",
	}
)

// StringToISO8601Date parses ISO 8601 timestamps that carry a zone offset.
// Results are expressed in the process-local zone.
type StringToISO8601Date struct{}

// Transform implements Transformer.
func (StringToISO8601Date) Transform(v ir.IRValue) (ir.IRValue, bool) {
	s, ok := v.(ir.IRString)
	if !ok {
		return nil, false
	}
	t, ok := ParseDate(string(s))
	if !ok {
		return nil, false
	}
	return ir.IRTime(t), true
}

// ParseDate parses s with the primary layouts, then the fallback layouts.
func ParseDate(s string) (time.Time, bool) {
	for _, layouts := range [][]string{primaryDateLayouts, fallbackDateLayouts} {
		for _, layout := range layouts {
			if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return t.In(time.Local), true
			}
		}
	}
	return time.Time{}, false
}

// SameSecond reports whether a and b fall in the same whole second.
func SameSecond(a, b time.Time) bool {
	return a.Unix() == b.Unix()
}
