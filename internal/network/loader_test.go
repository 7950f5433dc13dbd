package network

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const feederDoc = `
name: feeder
sn_mva: 10
std_types:
  line:
    NAYY 4x50 SE: {r_ohm_per_km: 0.642, x_ohm_per_km: 0.083}
bus:
  - {id: 3, vn_kv: 20}
  - {id: 5, vn_kv: 0.4, in_service: false}
  - {vn_kv: 0.4}
line:
  - {id: 0, from_bus: 5, to_bus: 6, length_km: 0.1, r_ohm_per_km: 0.642, x_ohm_per_km: 0.083, std_type: NAYY 4x50 SE}
switch:
  - {bus: 5, element: 0, et: l}
load:
  - {bus: 6, p_mw: 0.1, q_mvar: 0.05}
`

func TestDecodeDefaults(t *testing.T) {
	n, err := Decode(strings.NewReader(feederDoc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if n.Name != "feeder" || n.SnMva != 10 {
		t.Errorf("unexpected header: name=%q sn_mva=%f", n.Name, n.SnMva)
	}
	if n.Buses.Len() != 3 {
		t.Fatalf("expected 3 buses, got %d", n.Buses.Len())
	}
	if b, ok := n.Buses.Get(6); !ok || !b.InService {
		t.Errorf("expected appended bus 6 in service, got %+v (found=%v)", b, ok)
	}
	if b, _ := n.Buses.Get(5); b.InService {
		t.Error("bus 5 should stay out of service")
	}

	l, _ := n.Lines.Get(0)
	if l.Df != 1 || l.Parallel != 1 || !l.InService {
		t.Errorf("line defaults not applied: %+v", l)
	}
	sw, _ := n.Switches.Get(0)
	if !sw.Closed || sw.ET != SwitchLine {
		t.Errorf("switch defaults not applied: %+v", sw)
	}
	ld, _ := n.Loads.Get(0)
	if ld.Scaling != 1 {
		t.Errorf("expected load scaling 1, got %f", ld.Scaling)
	}

	params := n.StdTypes[TableLine]["NAYY 4x50 SE"]
	if params["r_ohm_per_km"] != 0.642 {
		t.Errorf("std type not decoded: %v", params)
	}
}

func TestDecodeDuplicateID(t *testing.T) {
	doc := "bus:\n  - {id: 1, vn_kv: 20}\n  - {id: 1, vn_kv: 20}\n"
	_, err := Decode(strings.NewReader(doc))
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
}

func TestDecodeRejectsWrongType(t *testing.T) {
	doc := "bus:\n  - {id: 0, vn_kv: high}\n"
	if _, err := Decode(strings.NewReader(doc)); err == nil {
		t.Error("expected an error for a non-numeric vn_kv")
	}
}

func TestDecodeEmpty(t *testing.T) {
	n, err := Decode(strings.NewReader(""))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n.BaseMva() != DefaultSnMva {
		t.Errorf("expected default base, got %f", n.BaseMva())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	n, err := Decode(strings.NewReader(feederDoc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	path := filepath.Join(t.TempDir(), "feeder.yaml")
	if err := Save(path, n); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if got, want := loaded.Buses.IDs(), n.Buses.IDs(); len(got) != len(want) {
		t.Fatalf("expected bus ids %v, got %v", want, got)
	}
	b, _ := loaded.Buses.Get(5)
	if b.InService || b.VnKv != 0.4 {
		t.Errorf("bus 5 changed across save/load: %+v", b)
	}
	l, _ := loaded.Lines.Get(0)
	if l.StdType != "NAYY 4x50 SE" || l.LengthKm != 0.1 {
		t.Errorf("line changed across save/load: %+v", l)
	}
}

func TestEncodeOmitsEmptyTables(t *testing.T) {
	n := New("tiny")
	n.Buses.Append(Bus{VnKv: 20, InService: true})

	data, err := Encode(n)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if bytes.Contains(data, []byte("line:")) {
		t.Errorf("empty line table should be omitted:\n%s", data)
	}
	if !bytes.Contains(data, []byte("vn_kv: 20")) {
		t.Errorf("bus row missing:\n%s", data)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}
