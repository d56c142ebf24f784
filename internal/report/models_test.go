package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/verte-zerg/betterrest/internal/model"
)

func TestRenderModelsMarksActive(t *testing.T) {
	var buf bytes.Buffer
	records := []model.ModelRecord{
		{Name: "builtin", Version: "2022.05"},
		{Name: "tuned", Version: "", Active: true},
	}
	if err := RenderModels(&buf, records); err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), buf.String())
	}
	if lines[1] != "  builtin 2022.05 -" {
		t.Fatalf("unexpected builtin row: %q", lines[1])
	}
	if lines[2] != "* tuned   -       -" {
		t.Fatalf("unexpected active row: %q", lines[2])
	}
}

func TestRenderModelsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderModels(&buf, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.String() != "No models found.\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
