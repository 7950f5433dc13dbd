package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/gridiag/internal/diagnostic"
)

type ExportData struct {
	Network  string              `json:"network"`
	Checks   []string            `json:"checks"`
	Findings diagnostic.Findings `json:"findings"`
	Errors   map[string]string   `json:"errors,omitempty"`
}

func exportData(run Run) ExportData {
	meta := newMetadata(run)
	findings := run.Findings
	if findings == nil {
		findings = diagnostic.Findings{}
	}
	return ExportData{
		Network:  run.Network,
		Checks:   run.Checks,
		Findings: findings,
		Errors:   meta.Errors,
	}
}

// ExportJSON writes a run as one JSON document.
func ExportJSON(w io.Writer, run Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(exportData(run))
}

func ExportJSONFile(path string, run Run) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ExportJSON(f, run)
}
