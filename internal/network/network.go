package network

import (
	"fmt"
	"maps"
)

// TableName identifies one of the element tables of a Network.
type TableName string

const (
	TableBus       TableName = "bus"
	TableLine      TableName = "line"
	TableTrafo     TableName = "trafo"
	TableTrafo3w   TableName = "trafo3w"
	TableImpedance TableName = "impedance"
	TableSwitch    TableName = "switch"
	TableLoad      TableName = "load"
	TableSgen      TableName = "sgen"
	TableGen       TableName = "gen"
	TableExtGrid   TableName = "ext_grid"
	TableWard      TableName = "ward"
	TableXWard     TableName = "xward"
	TableVSC       TableName = "vsc"
	TableLineDC    TableName = "line_dc"
)

// AllTables lists every table in the order they appear in a network document.
var AllTables = []TableName{
	TableBus, TableLine, TableTrafo, TableTrafo3w, TableImpedance, TableSwitch,
	TableLoad, TableSgen, TableGen, TableExtGrid, TableWard, TableXWard,
	TableVSC, TableLineDC,
}

// DefaultSnMva is the system base power used when a network does not set one.
const DefaultSnMva = 1.0

// StdTypes maps table -> std type name -> parameter -> value.
type StdTypes map[TableName]map[string]map[string]any

// Network is an in-memory grid model. Tables are mutable in place.
type Network struct {
	Name     string
	SnMva    float64
	StdTypes StdTypes

	Buses      Table[Bus]
	Lines      Table[Line]
	Trafos     Table[Trafo]
	Trafos3w   Table[Trafo3w]
	Impedances Table[Impedance]
	Switches   Table[Switch]
	Loads      Table[Load]
	Sgens      Table[Sgen]
	Gens       Table[Gen]
	ExtGrids   Table[ExtGrid]
	Wards      Table[Ward]
	XWards     Table[XWard]
	VSCs       Table[VSC]
	LinesDC    Table[LineDC]
}

func New(name string) *Network {
	return &Network{Name: name, SnMva: DefaultSnMva}
}

// Lookup returns the untyped view of the named table.
func (n *Network) Lookup(name TableName) (Rows, error) {
	switch name {
	case TableBus:
		return &n.Buses, nil
	case TableLine:
		return &n.Lines, nil
	case TableTrafo:
		return &n.Trafos, nil
	case TableTrafo3w:
		return &n.Trafos3w, nil
	case TableImpedance:
		return &n.Impedances, nil
	case TableSwitch:
		return &n.Switches, nil
	case TableLoad:
		return &n.Loads, nil
	case TableSgen:
		return &n.Sgens, nil
	case TableGen:
		return &n.Gens, nil
	case TableExtGrid:
		return &n.ExtGrids, nil
	case TableWard:
		return &n.Wards, nil
	case TableXWard:
		return &n.XWards, nil
	case TableVSC:
		return &n.VSCs, nil
	case TableLineDC:
		return &n.LinesDC, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
}

// Clone returns a deep copy of the network.
func (n *Network) Clone() *Network {
	c := &Network{Name: n.Name, SnMva: n.SnMva, StdTypes: n.StdTypes.Clone()}
	for _, t := range AllTables {
		// AllTables only holds known names.
		_ = copyTable(c, n, t)
	}
	return c
}

// BaseMva returns SnMva, falling back to DefaultSnMva when unset.
func (n *Network) BaseMva() float64 {
	if n.SnMva <= 0 {
		return DefaultSnMva
	}
	return n.SnMva
}

// Clone returns a deep copy of the catalog.
func (s StdTypes) Clone() StdTypes {
	if s == nil {
		return nil
	}
	c := make(StdTypes, len(s))
	for table, types := range s {
		ct := make(map[string]map[string]any, len(types))
		for name, params := range types {
			ct[name] = maps.Clone(params)
		}
		c[table] = ct
	}
	return c
}

// copyTable replaces dst's table with a deep copy of src's.
func copyTable(dst, src *Network, name TableName) error {
	switch name {
	case TableBus:
		dst.Buses = src.Buses.Clone()
	case TableLine:
		dst.Lines = src.Lines.Clone()
	case TableTrafo:
		dst.Trafos = src.Trafos.Clone()
	case TableTrafo3w:
		dst.Trafos3w = src.Trafos3w.Clone()
	case TableImpedance:
		dst.Impedances = src.Impedances.Clone()
	case TableSwitch:
		dst.Switches = src.Switches.Clone()
	case TableLoad:
		dst.Loads = src.Loads.Clone()
	case TableSgen:
		dst.Sgens = src.Sgens.Clone()
	case TableGen:
		dst.Gens = src.Gens.Clone()
	case TableExtGrid:
		dst.ExtGrids = src.ExtGrids.Clone()
	case TableWard:
		dst.Wards = src.Wards.Clone()
	case TableXWard:
		dst.XWards = src.XWards.Clone()
	case TableVSC:
		dst.VSCs = src.VSCs.Clone()
	case TableLineDC:
		dst.LinesDC = src.LinesDC.Clone()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	return nil
}
