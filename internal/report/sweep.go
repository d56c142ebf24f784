package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/betterrest/internal/estimator"
	"github.com/verte-zerg/betterrest/internal/model"
	"github.com/verte-zerg/betterrest/internal/timefmt"
)

const sparkChars = " .:-=+*#%@"

// SweepRow is one line of a sleep amount sweep.
type SweepRow struct {
	SleepAmount float64
	Result      model.BedtimeResult
}

// SleepAmounts returns the sleep amounts from the minimum to the maximum in
// the given step. Steps below the input granularity are raised to it and
// steps wider than the whole range are narrowed to it.
func SleepAmounts(step float64) []float64 {
	span := model.MaxSleepAmount - model.MinSleepAmount
	switch {
	case step < model.SleepStep || math.IsNaN(step):
		step = model.SleepStep
	case step > span:
		step = span
	}
	var out []float64
	for i := 0; ; i++ {
		v := model.MinSleepAmount + float64(i)*step
		if v > model.MaxSleepAmount+1e-9 {
			break
		}
		out = append(out, v)
	}
	return out
}

// Sweep estimates a bedtime for each sleep amount.
func Sweep(est *estimator.Estimator, wakeUp time.Time, coffeeAmount int, amounts []float64) []SweepRow {
	rows := make([]SweepRow, 0, len(amounts))
	for _, amount := range amounts {
		rows = append(rows, SweepRow{
			SleepAmount: amount,
			Result:      est.Estimate(wakeUp, amount, coffeeAmount),
		})
	}
	return rows
}

// RenderSweep prints rows as an aligned table.
func RenderSweep(w io.Writer, rows []SweepRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "Nothing to estimate.")
		return err
	}
	tableRows := make([][]string, 0, len(rows))
	for _, row := range rows {
		tableRows = append(tableRows, []string{timefmt.FormatHours(row.SleepAmount), row.Result.Text})
	}
	for _, line := range formatTable([]string{"Sleep", "Bedtime"}, tableRows, nil) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// CoffeeCurve returns the predicted hours of sleep need for every coffee
// amount in range, holding wake time and sleep amount fixed.
func CoffeeCurve(est *estimator.Estimator, wakeUp time.Time, sleepAmount float64) ([]float64, error) {
	out := make([]float64, 0, model.MaxCoffeeAmount-model.MinCoffeeAmount+1)
	for cups := model.MinCoffeeAmount; cups <= model.MaxCoffeeAmount; cups++ {
		seconds, err := est.Predict(estimator.Request(wakeUp, sleepAmount, cups))
		if err != nil {
			return nil, err
		}
		out = append(out, seconds/3600)
	}
	return out, nil
}

// RenderCoffeeCurve prints the coffee curve as a labeled sparkline.
func RenderCoffeeCurve(w io.Writer, hours []float64) error {
	if len(hours) == 0 {
		return nil
	}
	_, err := fmt.Fprintf(w, "Sleep need by cups (%d-%d): [%s] %.2fh-%.2fh\n",
		model.MinCoffeeAmount, model.MaxCoffeeAmount,
		Sparkline(hours), hours[0], hours[len(hours)-1])
	return err
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}
