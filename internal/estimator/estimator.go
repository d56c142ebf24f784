// Package estimator computes a bedtime from a wake-up time, a desired amount
// of sleep and a daily coffee count.
package estimator

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/verte-zerg/betterrest/internal/model"
	"github.com/verte-zerg/betterrest/internal/sleepmodel"
	"github.com/verte-zerg/betterrest/internal/timefmt"
)

// FailureMessage is shown whenever the model cannot be loaded or evaluated.
const FailureMessage = "Sorry there was a problem calculating your bedtime."

// LoadFunc returns the model to evaluate. It is called on every estimate and
// must be safe to repeat.
type LoadFunc func() (sleepmodel.Predictor, error)

// Estimator turns inputs into a bedtime using a sleep model.
type Estimator struct {
	load   LoadFunc
	clock  timefmt.Clock
	logger *slog.Logger
}

// New returns an Estimator. A nil logger discards failure causes.
func New(load LoadFunc, clock timefmt.Clock, logger *slog.Logger) *Estimator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Estimator{load: load, clock: clock, logger: logger}
}

// WakeSeconds returns the seconds since midnight of wakeUp's time of day.
func WakeSeconds(wakeUp time.Time) float64 {
	return float64(model.WakeTimeOf(wakeUp).Seconds())
}

// Request builds the model input vector.
func Request(wakeUp time.Time, sleepAmount float64, coffeeAmount int) model.PredictionRequest {
	return model.PredictionRequest{
		Wake:           WakeSeconds(wakeUp),
		EstimatedSleep: sleepAmount,
		Coffee:         float64(coffeeAmount),
	}
}

// Estimate returns the bedtime for the given inputs, or FailureMessage. It
// never panics and performs no range checks on its inputs.
func (e *Estimator) Estimate(wakeUp time.Time, sleepAmount float64, coffeeAmount int) model.BedtimeResult {
	actualSleep, err := e.Predict(Request(wakeUp, sleepAmount, coffeeAmount))
	if err != nil {
		e.logger.Debug("bedtime estimate failed",
			"wake", model.WakeTimeOf(wakeUp).String(),
			"sleep", sleepAmount,
			"coffee", coffeeAmount,
			"error", err)
		return failure()
	}
	bedtime := wakeUp.Add(-secondsToDuration(actualSleep))
	return model.BedtimeResult{
		Text:    e.clock.Format(bedtime),
		Bedtime: bedtime,
		OK:      true,
	}
}

// Predict loads the model and returns the required sleep in seconds.
func (e *Estimator) Predict(req model.PredictionRequest) (seconds float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			seconds = 0
			err = fmt.Errorf("model panicked: %v", r)
		}
	}()
	if e.load == nil {
		return 0, fmt.Errorf("no model loader configured")
	}
	m, err := e.load()
	if err != nil {
		return 0, fmt.Errorf("failed to load model: %w", err)
	}
	if m == nil {
		return 0, fmt.Errorf("model loader returned no model")
	}
	seconds, err = m.Predict(req)
	if err != nil {
		return 0, fmt.Errorf("failed to evaluate model: %w", err)
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || math.Abs(seconds) > maxSleepSeconds {
		return 0, fmt.Errorf("model returned unusable sleep duration %v", seconds)
	}
	return seconds, nil
}

// Clock returns the clock used to format bedtimes.
func (e *Estimator) Clock() timefmt.Clock {
	return e.clock
}

// Roughly 31 years; keeps the subtraction well inside time.Duration.
const maxSleepSeconds = 1e9

func secondsToDuration(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

func failure() model.BedtimeResult {
	return model.BedtimeResult{Text: FailureMessage}
}
