// Package sleepmodel evaluates pre-trained sleep need regressions.
package sleepmodel

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/betterrest/internal/model"
)

// BuiltinName is the reference of the embedded model.
const BuiltinName = "builtin"

//go:embed builtin.toml
var builtinArtifact []byte

// ErrNotFinite is returned when a model input or output is NaN or infinite.
var ErrNotFinite = errors.New("value is not finite")

// Predictor maps a prediction request to a required sleep duration in
// seconds.
type Predictor interface {
	Predict(req model.PredictionRequest) (float64, error)
}

// Regression is a linear sleep need model.
type Regression struct {
	Name        string
	Version     string
	Description string

	Intercept      float64
	Wake           float64
	EstimatedSleep float64
	Coffee         float64
}

type artifactFile struct {
	Name        string        `toml:"name"`
	Version     string        `toml:"version"`
	Description string        `toml:"description"`
	Regression  *coefficients `toml:"regression"`
}

type coefficients struct {
	Intercept      *float64 `toml:"intercept"`
	Wake           *float64 `toml:"wake"`
	EstimatedSleep *float64 `toml:"estimated-sleep"`
	Coffee         *float64 `toml:"coffee"`
}

// Parse decodes and validates a TOML model artifact.
func Parse(data []byte) (*Regression, error) {
	var file artifactFile
	md, err := toml.Decode(string(data), &file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown model keys: %s", strings.Join(keys, ", "))
	}
	if strings.TrimSpace(file.Name) == "" {
		return nil, fmt.Errorf("model name is empty")
	}
	if file.Regression == nil {
		return nil, fmt.Errorf("model %q has no [regression] table", file.Name)
	}
	c := file.Regression
	fields := []struct {
		key string
		val *float64
	}{
		{"intercept", c.Intercept},
		{"wake", c.Wake},
		{"estimated-sleep", c.EstimatedSleep},
		{"coffee", c.Coffee},
	}
	for _, f := range fields {
		if f.val == nil {
			return nil, fmt.Errorf("model %q is missing regression.%s", file.Name, f.key)
		}
		if !finite(*f.val) {
			return nil, fmt.Errorf("model %q regression.%s: %w", file.Name, f.key, ErrNotFinite)
		}
	}
	return &Regression{
		Name:           file.Name,
		Version:        file.Version,
		Description:    file.Description,
		Intercept:      *c.Intercept,
		Wake:           *c.Wake,
		EstimatedSleep: *c.EstimatedSleep,
		Coffee:         *c.Coffee,
	}, nil
}

// Builtin returns the embedded model.
func Builtin() (*Regression, error) {
	return Parse(builtinArtifact)
}

// BuiltinArtifact returns a copy of the embedded artifact source.
func BuiltinArtifact() []byte {
	return append([]byte(nil), builtinArtifact...)
}

// Predict implements Predictor.
func (r *Regression) Predict(req model.PredictionRequest) (float64, error) {
	if !finite(req.Wake) || !finite(req.EstimatedSleep) || !finite(req.Coffee) {
		return 0, fmt.Errorf("invalid input %+v: %w", req, ErrNotFinite)
	}
	out := r.Intercept +
		r.Wake*req.Wake +
		r.EstimatedSleep*req.EstimatedSleep +
		r.Coffee*req.Coffee
	if !finite(out) {
		return 0, fmt.Errorf("model %q output: %w", r.Name, ErrNotFinite)
	}
	return out, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
