package network

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// document is the on-disk layout of a network:
//
//	name: feeder-7
//	sn_mva: 1
//	std_types:
//	  line:
//	    NAYY 4x50 SE: {r_ohm_per_km: 0.642, x_ohm_per_km: 0.083}
//	bus:
//	  - {id: 0, vn_kv: 20}
//	line:
//	  - {id: 0, from_bus: 0, to_bus: 1, length_km: 1.2, ...}
//
// Rows without an id get the next free one. Omitted in_service and closed
// flags default to true; omitted scaling, df and parallel default to 1.
type document struct {
	Name      string      `yaml:"name"`
	SnMva     float64     `yaml:"sn_mva"`
	StdTypes  StdTypes    `yaml:"std_types,omitempty"`
	Bus       []yaml.Node `yaml:"bus,omitempty"`
	Line      []yaml.Node `yaml:"line,omitempty"`
	Trafo     []yaml.Node `yaml:"trafo,omitempty"`
	Trafo3w   []yaml.Node `yaml:"trafo3w,omitempty"`
	Impedance []yaml.Node `yaml:"impedance,omitempty"`
	Switch    []yaml.Node `yaml:"switch,omitempty"`
	Load      []yaml.Node `yaml:"load,omitempty"`
	Sgen      []yaml.Node `yaml:"sgen,omitempty"`
	Gen       []yaml.Node `yaml:"gen,omitempty"`
	ExtGrid   []yaml.Node `yaml:"ext_grid,omitempty"`
	Ward      []yaml.Node `yaml:"ward,omitempty"`
	XWard     []yaml.Node `yaml:"xward,omitempty"`
	VSC       []yaml.Node `yaml:"vsc,omitempty"`
	LineDC    []yaml.Node `yaml:"line_dc,omitempty"`
}

type record[T any] struct {
	ID  int `yaml:"id"`
	Row T   `yaml:",inline"`
}

func LoadFile(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

func Decode(r io.Reader) (*Network, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("network: decode: %w", err)
	}

	n := New(doc.Name)
	if doc.SnMva > 0 {
		n.SnMva = doc.SnMva
	}
	n.StdTypes = doc.StdTypes

	steps := []error{
		decodeRows(doc.Bus, &n.Buses, Bus{InService: true}),
		decodeRows(doc.Line, &n.Lines, Line{Df: 1, Parallel: 1, InService: true}),
		decodeRows(doc.Trafo, &n.Trafos, Trafo{InService: true}),
		decodeRows(doc.Trafo3w, &n.Trafos3w, Trafo3w{InService: true}),
		decodeRows(doc.Impedance, &n.Impedances, Impedance{InService: true}),
		decodeRows(doc.Switch, &n.Switches, Switch{ET: SwitchBus, Closed: true}),
		decodeRows(doc.Load, &n.Loads, Load{Scaling: 1, InService: true}),
		decodeRows(doc.Sgen, &n.Sgens, Sgen{Scaling: 1, InService: true}),
		decodeRows(doc.Gen, &n.Gens, Gen{VmPu: 1, Scaling: 1, InService: true}),
		decodeRows(doc.ExtGrid, &n.ExtGrids, ExtGrid{VmPu: 1, InService: true}),
		decodeRows(doc.Ward, &n.Wards, Ward{InService: true}),
		decodeRows(doc.XWard, &n.XWards, XWard{VmPu: 1, InService: true}),
		decodeRows(doc.VSC, &n.VSCs, VSC{InService: true}),
		decodeRows(doc.LineDC, &n.LinesDC, LineDC{InService: true}),
	}
	for i, err := range steps {
		if err != nil {
			return nil, fmt.Errorf("network: table %s: %w", AllTables[i], err)
		}
	}
	return n, nil
}

func decodeRows[T any](nodes []yaml.Node, t *Table[T], defaults T) error {
	for i := range nodes {
		var key struct {
			ID *int `yaml:"id"`
		}
		if err := nodes[i].Decode(&key); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		row := defaults
		if err := nodes[i].Decode(&row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if key.ID == nil {
			t.Append(row)
			continue
		}
		if err := t.Insert(*key.ID, row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

func Save(path string, n *Network) error {
	data, err := Encode(n)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func Encode(n *Network) ([]byte, error) {
	out := map[string]any{
		"name":   n.Name,
		"sn_mva": n.BaseMva(),
	}
	if len(n.StdTypes) > 0 {
		out["std_types"] = n.StdTypes
	}
	put := func(name TableName, rows []any) {
		if len(rows) > 0 {
			out[string(name)] = rows
		}
	}
	put(TableBus, encodeRows(&n.Buses))
	put(TableLine, encodeRows(&n.Lines))
	put(TableTrafo, encodeRows(&n.Trafos))
	put(TableTrafo3w, encodeRows(&n.Trafos3w))
	put(TableImpedance, encodeRows(&n.Impedances))
	put(TableSwitch, encodeRows(&n.Switches))
	put(TableLoad, encodeRows(&n.Loads))
	put(TableSgen, encodeRows(&n.Sgens))
	put(TableGen, encodeRows(&n.Gens))
	put(TableExtGrid, encodeRows(&n.ExtGrids))
	put(TableWard, encodeRows(&n.Wards))
	put(TableXWard, encodeRows(&n.XWards))
	put(TableVSC, encodeRows(&n.VSCs))
	put(TableLineDC, encodeRows(&n.LinesDC))

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("network: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeRows[T any](t *Table[T]) []any {
	rows := make([]any, 0, t.Len())
	t.Each(func(id int, row T) {
		rows = append(rows, record[T]{ID: id, Row: row})
	})
	return rows
}
