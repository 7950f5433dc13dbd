package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/san-kum/gridiag/internal/diagnostic"
	"github.com/san-kum/gridiag/internal/powerflow"
)

func sampleRun() Run {
	return Run{
		Network: "feeder",
		Source:  "feeder.yaml",
		Preset:  "default",
		Checks:  []string{diagnostic.CheckOverload, diagnostic.CheckCrossValidation, diagnostic.CheckParallelSwitches},
		Findings: diagnostic.Findings{
			diagnostic.CheckOverload:         diagnostic.OverloadResult{Load: true},
			diagnostic.CheckParallelSwitches: [][]int{{1, 2}},
		},
		Errors: diagnostic.Errors{
			diagnostic.CheckCrossValidation: errors.New("did not converge"),
		},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(sampleRun())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Fatal("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Network != "feeder" {
		t.Errorf("expected network 'feeder', got '%s'", meta.Network)
	}
	if len(meta.Warnings) != 2 || meta.Warnings[0] != diagnostic.CheckOverload {
		t.Errorf("unexpected warnings %v", meta.Warnings)
	}
	if meta.Errors[diagnostic.CheckCrossValidation] != "did not converge" {
		t.Errorf("unexpected errors %v", meta.Errors)
	}

	findings, err := st.LoadFindings(runID)
	if err != nil {
		t.Fatalf("load findings failed: %v", err)
	}
	var overload diagnostic.OverloadResult
	if err := json.Unmarshal(findings[diagnostic.CheckOverload], &overload); err != nil {
		t.Fatal(err)
	}
	if !overload.Load || overload.Generation {
		t.Errorf("unexpected overload finding %+v", overload)
	}
}

func TestStoreResults(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(Run{Network: "feeder"})
	if err != nil {
		t.Fatal(err)
	}

	res := powerflow.NewResults()
	res.Table(powerflow.ResBus).Set(0, 1, 0, -0.5, -0.1)
	res.Table(powerflow.ResBus).Set(3, 0.97, -1.5, 0.5, 0.1)
	if err := st.SaveResults(runID, res); err != nil {
		t.Fatalf("save results: %v", err)
	}

	bus, err := st.LoadResults(runID, powerflow.ResBus)
	if err != nil {
		t.Fatalf("load results: %v", err)
	}
	if v, ok := bus.Value("vm_pu", 3); !ok || v != 0.97 {
		t.Errorf("expected vm_pu 0.97 at bus 3, got %v (%v)", v, ok)
	}
	if _, err := st.LoadResults(runID, powerflow.ResLine); err == nil {
		t.Error("empty tables should not be written")
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}

	for i := 0; i < 3; i++ {
		if _, err := st.Save(sampleRun()); err != nil {
			t.Fatal(err)
		}
	}
	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	for i := 1; i < len(runs); i++ {
		if runs[i].Timestamp.After(runs[i-1].Timestamp) {
			t.Error("runs should be listed newest first")
		}
	}
}

func TestListMissingDir(t *testing.T) {
	runs, err := New("/nonexistent/gridiag/runs").List()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected empty list, got %d", len(runs))
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSON(&buf, sampleRun()); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var data struct {
		Network  string                     `json:"network"`
		Findings map[string]json.RawMessage `json:"findings"`
		Errors   map[string]string          `json:"errors"`
	}
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("export is not JSON: %v", err)
	}
	if data.Network != "feeder" || len(data.Findings) != 2 || len(data.Errors) != 1 {
		t.Errorf("unexpected export %+v", data)
	}
	if !strings.Contains(string(data.Findings[diagnostic.CheckParallelSwitches]), "1") {
		t.Errorf("parallel switches not exported: %s", data.Findings[diagnostic.CheckParallelSwitches])
	}
}
