package report

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/betterrest/internal/estimator"
	"github.com/verte-zerg/betterrest/internal/model"
	"github.com/verte-zerg/betterrest/internal/sleepmodel"
	"github.com/verte-zerg/betterrest/internal/timefmt"
)

type hoursPredictor struct{}

// Sleep need equals the requested hours plus ten minutes per cup.
func (hoursPredictor) Predict(req model.PredictionRequest) (float64, error) {
	return req.EstimatedSleep*3600 + req.Coffee*600, nil
}

func newEstimator(p sleepmodel.Predictor) *estimator.Estimator {
	return estimator.New(func() (sleepmodel.Predictor, error) { return p, nil }, timefmt.Clock24, nil)
}

func TestSleepAmounts(t *testing.T) {
	amounts := SleepAmounts(1)
	if len(amounts) != 12 || amounts[0] != 1 || amounts[11] != 12 {
		t.Fatalf("unexpected hourly amounts: %v", amounts)
	}
	fine := SleepAmounts(0)
	if len(fine) != 45 || fine[1] != 1.25 || fine[len(fine)-1] != 12 {
		t.Fatalf("unexpected quarter-hour amounts: %d values", len(fine))
	}
	for _, step := range []float64{11, 50, math.Inf(1)} {
		wide := SleepAmounts(step)
		if len(wide) != 2 || wide[0] != 1 || wide[1] != 12 {
			t.Fatalf("step %v: expected range endpoints, got %v", step, wide)
		}
	}
	if nan := SleepAmounts(math.NaN()); len(nan) != 45 {
		t.Fatalf("expected NaN step to fall back to quarter hours, got %d values", len(nan))
	}
}

func TestSweepRendersTable(t *testing.T) {
	est := newEstimator(hoursPredictor{})
	wake := time.Date(2024, time.June, 15, 7, 0, 0, 0, time.UTC)
	rows := Sweep(est, wake, 0, []float64{1, 8.5})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Result.Text != "06:00" || rows[1].Result.Text != "22:30" {
		t.Fatalf("unexpected bedtimes: %q, %q", rows[0].Result.Text, rows[1].Result.Text)
	}
	var buf bytes.Buffer
	if err := RenderSweep(&buf, rows); err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "Sleep     Bedtime\n1 hour    06:00\n8.5 hours 22:30\n"
	if buf.String() != want {
		t.Fatalf("unexpected table:\n%s", buf.String())
	}
}

type failingPredictor struct{}

func (failingPredictor) Predict(model.PredictionRequest) (float64, error) {
	return 0, errors.New("broken")
}

func TestSweepKeepsFailureMessage(t *testing.T) {
	est := newEstimator(failingPredictor{})
	rows := Sweep(est, time.Now(), 1, []float64{8})
	if rows[0].Result.OK || rows[0].Result.Text != estimator.FailureMessage {
		t.Fatalf("expected failure row, got %+v", rows[0].Result)
	}
	if _, err := CoffeeCurve(est, time.Now(), 8); err == nil {
		t.Fatalf("expected coffee curve error")
	}
}

func TestCoffeeCurve(t *testing.T) {
	est := newEstimator(hoursPredictor{})
	hours, err := CoffeeCurve(est, time.Now(), 8)
	if err != nil {
		t.Fatalf("coffee curve: %v", err)
	}
	if len(hours) != 20 {
		t.Fatalf("expected 20 values, got %d", len(hours))
	}
	if hours[0] >= hours[19] {
		t.Fatalf("expected sleep need to grow with coffee: %v", hours)
	}
	var buf bytes.Buffer
	if err := RenderCoffeeCurve(&buf, hours); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "[ ") || !strings.Contains(buf.String(), "@]") {
		t.Fatalf("unexpected sparkline: %q", buf.String())
	}
}

func TestSparklineFlat(t *testing.T) {
	if got := Sparkline([]float64{2, 2, 2}); got != "+++" {
		t.Fatalf("unexpected flat sparkline %q", got)
	}
	if Sparkline(nil) != "" {
		t.Fatalf("expected empty sparkline")
	}
}
