package report

import (
	"fmt"
	"io"
	"time"

	"github.com/verte-zerg/betterrest/internal/model"
)

// RenderModels prints registry entries, marking the active one with "*".
func RenderModels(w io.Writer, records []model.ModelRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No models found.")
		return err
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		marker := ""
		if rec.Active {
			marker = "*"
		}
		imported := "-"
		if !rec.ImportedAt.IsZero() {
			imported = rec.ImportedAt.Local().Format(time.DateTime)
		}
		version := rec.Version
		if version == "" {
			version = "-"
		}
		rows = append(rows, []string{marker, rec.Name, version, imported})
	}
	for _, line := range formatTable([]string{"", "Name", "Version", "Imported"}, rows, nil) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
