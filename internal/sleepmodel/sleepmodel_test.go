package sleepmodel

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/betterrest/internal/model"
)

const sampleArtifact = `name = "flat"
version = "1"

[regression]
intercept = 100.0
wake = 0.0
estimated-sleep = 3600.0
coffee = 60.0
`

func TestBuiltinPredictsAcrossRange(t *testing.T) {
	m, err := Builtin()
	if err != nil {
		t.Fatalf("builtin: %v", err)
	}
	if m.Name != BuiltinName {
		t.Fatalf("unexpected builtin name %q", m.Name)
	}
	for _, sleep := range []float64{model.MinSleepAmount, model.DefaultSleepAmount, model.MaxSleepAmount} {
		for _, coffee := range []int{model.MinCoffeeAmount, model.MaxCoffeeAmount} {
			got, err := m.Predict(model.PredictionRequest{Wake: 25200, EstimatedSleep: sleep, Coffee: float64(coffee)})
			if err != nil {
				t.Fatalf("predict sleep=%v coffee=%d: %v", sleep, coffee, err)
			}
			if got <= 0 {
				t.Fatalf("expected positive sleep need, got %v", got)
			}
		}
	}
}

func TestParseComputesLinearPrediction(t *testing.T) {
	m, err := Parse([]byte(sampleArtifact))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, err := m.Predict(model.PredictionRequest{Wake: 25200, EstimatedSleep: 8, Coffee: 2})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if want := 100.0 + 8*3600 + 2*60; got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestParseRejectsInvalidArtifacts(t *testing.T) {
	cases := map[string]string{
		"not toml":      "name = ",
		"no name":       "[regression]\nintercept = 1.0\nwake = 1.0\nestimated-sleep = 1.0\ncoffee = 1.0\n",
		"no regression": "name = \"x\"\n",
		"missing coef":  "name = \"x\"\n[regression]\nintercept = 1.0\nwake = 1.0\ncoffee = 1.0\n",
		"nan coef":      "name = \"x\"\n[regression]\nintercept = nan\nwake = 1.0\nestimated-sleep = 1.0\ncoffee = 1.0\n",
		"unknown key":   sampleArtifact + "bias = 2.0\n",
	}
	for name, src := range cases {
		if _, err := Parse([]byte(src)); err == nil {
			t.Fatalf("%s: expected parse error", name)
		}
	}
}

func TestPredictRejectsNonFiniteInput(t *testing.T) {
	m, err := Parse([]byte(sampleArtifact))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = m.Predict(model.PredictionRequest{Wake: math.NaN(), EstimatedSleep: 8, Coffee: 1})
	if !errors.Is(err, ErrNotFinite) {
		t.Fatalf("expected ErrNotFinite, got %v", err)
	}
	_, err = m.Predict(model.PredictionRequest{Wake: 0, EstimatedSleep: math.Inf(1), Coffee: 1})
	if !errors.Is(err, ErrNotFinite) {
		t.Fatalf("expected ErrNotFinite, got %v", err)
	}
}

type fakeRegistry struct {
	artifacts map[string][]byte
	reads     int
}

func (f *fakeRegistry) ReadArtifact(_ context.Context, name string) ([]byte, error) {
	f.reads++
	data, ok := f.artifacts[name]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func TestLoaderResolvesAndCaches(t *testing.T) {
	ctx := context.Background()
	reg := &fakeRegistry{artifacts: map[string][]byte{"flat": []byte(sampleArtifact)}}
	loader := NewLoader(reg)

	first, err := loader.Load(ctx, "flat")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	second, err := loader.Load(ctx, " flat ")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if first != second {
		t.Fatalf("expected cached model to be reused")
	}
	if reg.reads != 1 {
		t.Fatalf("expected one registry read, got %d", reg.reads)
	}

	if _, err := loader.Load(ctx, "missing"); err == nil {
		t.Fatalf("expected error for missing model")
	}
	if _, err := loader.Load(ctx, "missing"); err == nil {
		t.Fatalf("expected failed load not to be cached")
	}
	if reg.reads != 3 {
		t.Fatalf("expected failed loads to hit the registry each time, got %d reads", reg.reads)
	}
}

func TestLoaderBuiltinAndFile(t *testing.T) {
	ctx := context.Background()
	loader := NewLoader(nil)

	m, err := loader.Load(ctx, "")
	if err != nil {
		t.Fatalf("load builtin: %v", err)
	}
	if m.Name != BuiltinName {
		t.Fatalf("expected builtin model, got %q", m.Name)
	}

	path := filepath.Join(t.TempDir(), "flat.toml")
	if err := os.WriteFile(path, []byte(sampleArtifact), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	m, err = loader.Load(ctx, "file:"+path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if m.Name != "flat" {
		t.Fatalf("expected flat model, got %q", m.Name)
	}

	_, err = loader.Load(ctx, "file:"+filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read model") {
		t.Fatalf("expected read error, got %v", err)
	}
	if _, err := loader.Load(ctx, "somename"); err == nil {
		t.Fatalf("expected error without registry")
	}
}

func TestLoaderArtifact(t *testing.T) {
	ctx := context.Background()
	reg := &fakeRegistry{artifacts: map[string][]byte{"flat": []byte(sampleArtifact)}}
	loader := NewLoader(reg)

	data, err := loader.Artifact(ctx, "builtin")
	if err != nil {
		t.Fatalf("builtin artifact: %v", err)
	}
	if !strings.Contains(string(data), `name = "builtin"`) {
		t.Fatalf("unexpected builtin artifact:\n%s", data)
	}
	data[0] = 'X'
	if again := BuiltinArtifact(); again[0] == 'X' {
		t.Fatalf("expected artifact copy, embedded source was modified")
	}

	data, err = loader.Artifact(ctx, "flat")
	if err != nil || string(data) != sampleArtifact {
		t.Fatalf("expected registry artifact, got %q (%v)", data, err)
	}
	if _, err := loader.Artifact(ctx, "file:"); err == nil {
		t.Fatalf("expected error for empty file reference")
	}
}
