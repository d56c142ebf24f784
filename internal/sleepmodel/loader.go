package sleepmodel

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/maypok86/otter/v2"
)

const filePrefix = "file:"

// ArtifactReader fetches a stored model artifact by name.
type ArtifactReader interface {
	ReadArtifact(ctx context.Context, name string) ([]byte, error)
}

// Loader resolves model references and caches loaded models by reference.
// A reference is "builtin" (or empty), "file:<path>", or a registry name.
type Loader struct {
	registry ArtifactReader
	cache    *otter.Cache[string, *Regression]
}

// NewLoader returns a Loader. registry may be nil, in which case only
// builtin and file references resolve.
func NewLoader(registry ArtifactReader) *Loader {
	return &Loader{
		registry: registry,
		cache: otter.Must(&otter.Options[string, *Regression]{
			MaximumSize:     64,
			InitialCapacity: 4,
		}),
	}
}

// Load returns the model for ref. Failed loads are not cached.
func (l *Loader) Load(ctx context.Context, ref string) (*Regression, error) {
	key := NormalizeRef(ref)
	if m, ok := l.cache.GetIfPresent(key); ok {
		return m, nil
	}
	m, err := l.load(ctx, key)
	if err != nil {
		return nil, err
	}
	l.cache.Set(key, m)
	return m, nil
}

func (l *Loader) load(ctx context.Context, key string) (*Regression, error) {
	data, err := l.Artifact(ctx, key)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Artifact returns the raw TOML source that ref resolves to. It bypasses the
// cache and does not validate the artifact.
func (l *Loader) Artifact(ctx context.Context, ref string) ([]byte, error) {
	key := NormalizeRef(ref)
	switch {
	case key == BuiltinName:
		return BuiltinArtifact(), nil
	case strings.HasPrefix(key, filePrefix):
		path := strings.TrimPrefix(key, filePrefix)
		if path == "" {
			return nil, fmt.Errorf("model file path is empty")
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read model file: %w", err)
		}
		return data, nil
	default:
		if l.registry == nil {
			return nil, fmt.Errorf("no model registry to resolve %q", key)
		}
		data, err := l.registry.ReadArtifact(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read model %q: %w", key, err)
		}
		return data, nil
	}
}

// NormalizeRef trims ref and maps the empty reference to the builtin model.
func NormalizeRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return BuiltinName
	}
	return ref
}

// Bind returns a function that loads ref on every call.
func (l *Loader) Bind(ctx context.Context, ref string) func() (Predictor, error) {
	return func() (Predictor, error) {
		m, err := l.Load(ctx, ref)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}
