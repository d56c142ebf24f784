// Package model defines shared data structures.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Input ranges and defaults.
const (
	MinSleepAmount     = 1.0
	MaxSleepAmount     = 12.0
	SleepStep          = 0.25
	DefaultSleepAmount = 8.0

	MinCoffeeAmount     = 1
	MaxCoffeeAmount     = 20
	DefaultCoffeeAmount = MinCoffeeAmount
)

const minutesPerDay = 24 * 60

// DefaultWakeTime is the wake-up time shown before the user changes it.
var DefaultWakeTime = WakeTime{Hour: 7, Minute: 0}

// WakeTime is a time of day with minute precision.
type WakeTime struct {
	Hour   int
	Minute int
}

// WakeTimeOf returns the time of day of t in its own location.
func WakeTimeOf(t time.Time) WakeTime {
	return WakeTime{Hour: t.Hour(), Minute: t.Minute()}
}

// ParseWakeTime parses an "HH:MM" string.
func ParseWakeTime(s string) (WakeTime, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return WakeTime{}, fmt.Errorf("invalid wake time %q (want HH:MM)", s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return WakeTime{}, fmt.Errorf("invalid wake hour %q: %w", hh, err)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return WakeTime{}, fmt.Errorf("invalid wake minute %q: %w", mm, err)
	}
	w := WakeTime{Hour: hour, Minute: minute}
	if !w.Valid() {
		return WakeTime{}, fmt.Errorf("wake time %q out of range", s)
	}
	return w, nil
}

// Valid reports whether w is a time of day.
func (w WakeTime) Valid() bool {
	return w.Hour >= 0 && w.Hour < 24 && w.Minute >= 0 && w.Minute < 60
}

// Seconds returns the number of seconds since midnight.
func (w WakeTime) Seconds() int {
	return w.Hour*3600 + w.Minute*60
}

// Add shifts w by the given minutes, wrapping around midnight.
func (w WakeTime) Add(minutes int) WakeTime {
	total := (w.Hour*60 + w.Minute + minutes) % minutesPerDay
	if total < 0 {
		total += minutesPerDay
	}
	return WakeTime{Hour: total / 60, Minute: total % 60}
}

// On anchors w to the calendar day of day, in day's location.
func (w WakeTime) On(day time.Time) time.Time {
	y, mo, d := day.Date()
	return time.Date(y, mo, d, w.Hour, w.Minute, 0, 0, day.Location())
}

// String returns w as "HH:MM".
func (w WakeTime) String() string {
	return fmt.Sprintf("%02d:%02d", w.Hour, w.Minute)
}

// Inputs holds the three values the user controls.
type Inputs struct {
	WakeUp       WakeTime
	SleepAmount  float64
	CoffeeAmount int
}

// DefaultInputs returns the initial screen values.
func DefaultInputs() Inputs {
	return Inputs{
		WakeUp:       DefaultWakeTime,
		SleepAmount:  DefaultSleepAmount,
		CoffeeAmount: DefaultCoffeeAmount,
	}
}

// Config defines resolved runtime settings.
type Config struct {
	Defaults Inputs
	Clock    string
	ModelRef string
	Verbose  bool
}

// PredictionRequest is the input vector accepted by a sleep model.
type PredictionRequest struct {
	Wake           float64
	EstimatedSleep float64
	Coffee         float64
}

// BedtimeResult is the outcome of a bedtime estimate. When OK is false, Text
// holds the user-facing failure message and Bedtime is zero.
type BedtimeResult struct {
	Text    string
	Bedtime time.Time
	OK      bool
}

// String implements fmt.Stringer.
func (r BedtimeResult) String() string {
	return r.Text
}

// ModelRecord is a model artifact stored in the registry.
type ModelRecord struct {
	Name       string
	Version    string
	Artifact   []byte
	ImportedAt time.Time
	Active     bool
}
