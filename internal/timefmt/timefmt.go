// Package timefmt formats times of day in the user's clock convention.
package timefmt

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Clock selects a 12-hour or 24-hour time-of-day layout.
type Clock int

const (
	// Clock12 renders "3:04 PM".
	Clock12 Clock = iota
	// Clock24 renders "15:04".
	Clock24
)

const (
	layout12 = "3:04 PM"
	layout24 = "15:04"
)

// Regions where a 12-hour clock is the everyday convention.
var twelveHourRegions = map[string]struct{}{
	"US": {}, "CA": {}, "AU": {}, "NZ": {}, "IN": {}, "PH": {},
	"PK": {}, "BD": {}, "EG": {}, "SA": {}, "MY": {},
}

// ParseClock accepts "12h", "24h", or "auto". Auto inspects the locale
// environment.
func ParseClock(s string) (Clock, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "12h", "12":
		return Clock12, nil
	case "24h", "24":
		return Clock24, nil
	case "", "auto":
		return FromLocale(localeFromEnv()), nil
	default:
		return Clock12, fmt.Errorf("unknown clock %q (want 12h, 24h or auto)", s)
	}
}

// FromLocale picks a clock for a POSIX locale name such as "de_DE.UTF-8".
func FromLocale(locale string) Clock {
	name := normalizeLocale(locale)
	if name == "" {
		return Clock12
	}
	tag, err := language.Parse(name)
	if err != nil {
		return Clock12
	}
	region, _ := tag.Region()
	if _, ok := twelveHourRegions[region.String()]; ok {
		return Clock12
	}
	return Clock24
}

// Format renders the time of day of t.
func (c Clock) Format(t time.Time) string {
	if c == Clock24 {
		return t.Format(layout24)
	}
	return t.Format(layout12)
}

// String implements fmt.Stringer.
func (c Clock) String() string {
	if c == Clock24 {
		return "24h"
	}
	return "12h"
}

// FormatHours renders an amount of hours, e.g. "1 hour" or "7.75 hours".
func FormatHours(h float64) string {
	s := strconv.FormatFloat(h, 'f', -1, 64)
	if h == 1 {
		return s + " hour"
	}
	return s + " hours"
}

func localeFromEnv() string {
	for _, key := range []string{"LC_ALL", "LC_TIME", "LANG"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func normalizeLocale(locale string) string {
	name := strings.TrimSpace(locale)
	if i := strings.IndexAny(name, ".@"); i >= 0 {
		name = name[:i]
	}
	if name == "C" || name == "POSIX" {
		return ""
	}
	return strings.ReplaceAll(name, "_", "-")
}
