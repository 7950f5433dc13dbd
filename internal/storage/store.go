package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/gridiag/internal/diagnostic"
	"github.com/san-kum/gridiag/internal/powerflow"
)

const (
	metadataFile = "metadata.json"
	findingsFile = "findings.json"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string            `json:"id"`
	Network   string            `json:"network"`
	Source    string            `json:"source,omitempty"`
	Preset    string            `json:"preset,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    []string          `json:"checks"`
	Warnings  []string          `json:"warnings"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// Run is what a diagnostic run leaves behind.
type Run struct {
	Network  string
	Source   string
	Preset   string
	Checks   []string
	Findings diagnostic.Findings
	Errors   diagnostic.Errors
}

func newMetadata(run Run) RunMetadata {
	meta := RunMetadata{
		ID:        uuid.NewString(),
		Network:   run.Network,
		Source:    run.Source,
		Preset:    run.Preset,
		Timestamp: time.Now(),
		Checks:    run.Checks,
		Warnings:  make([]string, 0, len(run.Findings)),
	}
	for name := range run.Findings {
		meta.Warnings = append(meta.Warnings, name)
	}
	slices.Sort(meta.Warnings)
	if len(run.Errors) > 0 {
		meta.Errors = make(map[string]string, len(run.Errors))
		for name, err := range run.Errors {
			meta.Errors[name] = err.Error()
		}
	}
	return meta
}

// Save writes the metadata and findings of a run and returns its id.
func (s *Store) Save(run Run) (string, error) {
	meta := newMetadata(run)
	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	findings := run.Findings
	if findings == nil {
		findings = diagnostic.Findings{}
	}
	if err := writeJSON(filepath.Join(runDir, findingsFile), findings); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// SaveResults writes one CSV file per result table into the run directory.
func (s *Store) SaveResults(runID string, res *powerflow.Results) error {
	runDir := filepath.Join(s.baseDir, runID)
	if _, err := os.Stat(runDir); err != nil {
		return err
	}
	for _, name := range powerflow.ResultTables {
		table, ok := res.Tables[name]
		if !ok || len(table.Rows) == 0 {
			continue
		}
		if err := writeTable(filepath.Join(runDir, name+".csv"), table); err != nil {
			return fmt.Errorf("storage: %s: %w", name, err)
		}
	}
	return nil
}

func writeTable(path string, table *powerflow.ResultTable) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(append([]string{"id"}, table.Columns...)); err != nil {
		return err
	}
	for _, id := range table.IDs() {
		row := []string{strconv.Itoa(id)}
		for _, v := range table.Rows[id] {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the stored runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	slices.SortFunc(runs, func(a, b RunMetadata) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadFindings returns the stored findings undecoded, keyed by check name.
func (s *Store) LoadFindings(runID string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, findingsFile))
	if err != nil {
		return nil, err
	}

	var findings map[string]json.RawMessage
	if err := json.Unmarshal(data, &findings); err != nil {
		return nil, err
	}
	return findings, nil
}

// LoadResults reads a result table written by SaveResults.
func (s *Store) LoadResults(runID, table string) (*powerflow.ResultTable, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, table+".csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("storage: %s: empty file", table)
	}

	out := powerflow.NewResultTable(records[0][1:]...)
	for _, record := range records[1:] {
		id, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("storage: %s: bad id %q", table, record[0])
		}
		values := make([]float64, 0, len(record)-1)
		for _, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("storage: %s row %d: %w", table, id, err)
			}
			values = append(values, v)
		}
		out.Set(id, values...)
	}
	return out, nil
}
