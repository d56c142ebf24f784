package estimator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/verte-zerg/betterrest/internal/model"
	"github.com/verte-zerg/betterrest/internal/sleepmodel"
	"github.com/verte-zerg/betterrest/internal/timefmt"
)

type fixedPredictor struct {
	seconds float64
	err     error
	last    model.PredictionRequest
	calls   int
}

func (f *fixedPredictor) Predict(req model.PredictionRequest) (float64, error) {
	f.calls++
	f.last = req
	return f.seconds, f.err
}

type panicPredictor struct{}

func (panicPredictor) Predict(model.PredictionRequest) (float64, error) {
	panic("boom")
}

func loadOf(p sleepmodel.Predictor) LoadFunc {
	return func() (sleepmodel.Predictor, error) { return p, nil }
}

func wakeAt(hour, minute int) time.Time {
	return time.Date(2024, time.June, 15, hour, minute, 0, 0, time.UTC)
}

func TestEstimateSubtractsPredictedSleep(t *testing.T) {
	p := &fixedPredictor{seconds: 28800}
	est := New(loadOf(p), timefmt.Clock24, nil)

	res := est.Estimate(wakeAt(7, 0), 8, 2)
	if !res.OK {
		t.Fatalf("expected success, got %q", res.Text)
	}
	if res.Text != "23:00" {
		t.Fatalf("expected 23:00, got %q", res.Text)
	}
	want := time.Date(2024, time.June, 14, 23, 0, 0, 0, time.UTC)
	if !res.Bedtime.Equal(want) {
		t.Fatalf("expected bedtime on previous day %v, got %v", want, res.Bedtime)
	}
	if p.last != (model.PredictionRequest{Wake: 25200, EstimatedSleep: 8, Coffee: 2}) {
		t.Fatalf("unexpected model request: %+v", p.last)
	}
}

func TestEstimateFormatsWithClock(t *testing.T) {
	p := &fixedPredictor{seconds: 30600}
	est := New(loadOf(p), timefmt.Clock12, nil)
	res := est.Estimate(wakeAt(7, 0), 8.5, 1)
	if res.Text != "10:30 PM" {
		t.Fatalf("expected 10:30 PM, got %q", res.Text)
	}
}

func TestWakeSeconds(t *testing.T) {
	if got := WakeSeconds(wakeAt(7, 0)); got != 25200 {
		t.Fatalf("expected 25200, got %v", got)
	}
	if got := WakeSeconds(wakeAt(23, 30)); got != 84600 {
		t.Fatalf("expected 84600, got %v", got)
	}
}

func TestEstimateFailures(t *testing.T) {
	cases := map[string]LoadFunc{
		"load error": func() (sleepmodel.Predictor, error) { return nil, errors.New("missing artifact") },
		"eval error": loadOf(&fixedPredictor{err: errors.New("bad input")}),
		"nan output": loadOf(&fixedPredictor{seconds: math.NaN()}),
		"inf output": loadOf(&fixedPredictor{seconds: math.Inf(-1)}),
		"panic":      loadOf(panicPredictor{}),
		"nil model":  func() (sleepmodel.Predictor, error) { return nil, nil },
		"no loader":  nil,
	}
	for name, load := range cases {
		est := New(load, timefmt.Clock24, nil)
		for _, wake := range []time.Time{wakeAt(7, 0), wakeAt(0, 0), wakeAt(23, 59)} {
			res := est.Estimate(wake, 8, 3)
			if res.OK {
				t.Fatalf("%s: expected failure", name)
			}
			if res.Text != "Sorry there was a problem calculating your bedtime." {
				t.Fatalf("%s: unexpected failure text %q", name, res.Text)
			}
			if !res.Bedtime.IsZero() {
				t.Fatalf("%s: expected no partial bedtime", name)
			}
		}
	}
}

func TestEstimateIsDeterministic(t *testing.T) {
	loader := sleepmodel.NewLoader(nil)
	est := New(loader.Bind(t.Context(), sleepmodel.BuiltinName), timefmt.Clock24, nil)
	first := est.Estimate(wakeAt(6, 15), 7.75, 4)
	for i := 0; i < 5; i++ {
		if got := est.Estimate(wakeAt(6, 15), 7.75, 4); got != first {
			t.Fatalf("expected identical results, got %+v and %+v", first, got)
		}
	}
}

func TestEstimateBuiltinBoundaries(t *testing.T) {
	loader := sleepmodel.NewLoader(nil)
	est := New(loader.Bind(t.Context(), ""), timefmt.Clock24, nil)
	for _, sleep := range []float64{model.MinSleepAmount, model.MaxSleepAmount} {
		for _, coffee := range []int{model.MinCoffeeAmount, model.MaxCoffeeAmount} {
			res := est.Estimate(wakeAt(7, 0), sleep, coffee)
			if !res.OK {
				t.Fatalf("sleep=%v coffee=%d: unexpected failure", sleep, coffee)
			}
			if _, err := time.Parse("15:04", res.Text); err != nil {
				t.Fatalf("sleep=%v coffee=%d: malformed time %q", sleep, coffee, res.Text)
			}
		}
	}
}

func TestEstimateLoadsOnEveryCall(t *testing.T) {
	loads := 0
	p := &fixedPredictor{seconds: 3600}
	est := New(func() (sleepmodel.Predictor, error) {
		loads++
		return p, nil
	}, timefmt.Clock24, nil)
	est.Estimate(wakeAt(7, 0), 8, 1)
	est.Estimate(wakeAt(7, 0), 8, 1)
	if loads != 2 || p.calls != 2 {
		t.Fatalf("expected two loads and evaluations, got %d and %d", loads, p.calls)
	}
}
