package diagnostic

import (
	"cmp"
	"maps"
	"math"
	"slices"

	"github.com/san-kum/gridiag/internal/network"
	"github.com/san-kum/gridiag/internal/topology"
)

// MissingBus is a row that references a bus id the bus table does not hold.
type MissingBus struct {
	ID     int    `json:"id" yaml:"id"`
	Column string `json:"column" yaml:"column"`
	Bus    int    `json:"bus" yaml:"bus"`
}

// MissingBusIndices lists every bus reference that points nowhere. The
// element column of a switch addressing a line or transformer holds an
// element id, not a bus, and is not checked.
func MissingBusIndices(net *network.Network) map[string][]MissingBus {
	out := make(map[string][]MissingBus)
	add := func(table network.TableName, id int, column string, bus int) {
		if !net.Buses.Has(bus) {
			out[string(table)] = append(out[string(table)], MissingBus{ID: id, Column: column, Bus: bus})
		}
	}

	net.ExtGrids.Each(func(id int, e network.ExtGrid) { add(network.TableExtGrid, id, "bus", e.Bus) })
	net.Loads.Each(func(id int, l network.Load) { add(network.TableLoad, id, "bus", l.Bus) })
	net.Gens.Each(func(id int, g network.Gen) { add(network.TableGen, id, "bus", g.Bus) })
	net.Sgens.Each(func(id int, s network.Sgen) { add(network.TableSgen, id, "bus", s.Bus) })
	net.Trafos.Each(func(id int, t network.Trafo) {
		add(network.TableTrafo, id, "lv_bus", t.LVBus)
		add(network.TableTrafo, id, "hv_bus", t.HVBus)
	})
	net.Trafos3w.Each(func(id int, t network.Trafo3w) {
		add(network.TableTrafo3w, id, "lv_bus", t.LVBus)
		add(network.TableTrafo3w, id, "mv_bus", t.MVBus)
		add(network.TableTrafo3w, id, "hv_bus", t.HVBus)
	})
	net.Switches.Each(func(id int, s network.Switch) {
		add(network.TableSwitch, id, "bus", s.Bus)
		switch s.ET {
		case network.SwitchLine, network.SwitchTrafo, network.SwitchTrafo3w:
		default:
			add(network.TableSwitch, id, "element", s.Element)
		}
	})
	net.Lines.Each(func(id int, l network.Line) {
		add(network.TableLine, id, "from_bus", l.FromBus)
		add(network.TableLine, id, "to_bus", l.ToBus)
	})
	return out
}

// DisconnectedResult holds the unsupplied islands and the transformers cut
// off by open switches on all sides.
type DisconnectedResult struct {
	Islands  []topology.Island  `json:"islands,omitempty" yaml:"islands,omitempty"`
	Isolated *topology.Isolated `json:"isolated,omitempty" yaml:"isolated,omitempty"`
}

// DisconnectedElements returns nil when every in-service section reaches a
// reference source and no transformer is isolated.
func DisconnectedElements(net *network.Network) *DisconnectedResult {
	res := &DisconnectedResult{Islands: topology.Islands(net)}
	if iso := topology.IsolatedTransformers(net); !iso.Empty() {
		res.Isolated = &iso
	}
	if len(res.Islands) == 0 && res.Isolated == nil {
		return nil
	}
	return res
}

type VoltageLevelResult struct {
	Lines    []int `json:"lines,omitempty" yaml:"lines,omitempty"`
	Switches []int `json:"switches,omitempty" yaml:"switches,omitempty"`
}

// DifferentVoltageLevels finds lines and closed bus-bus switches joining buses of
// different nominal voltage. Rows with a missing bus are left to
// MissingBusIndices.
func DifferentVoltageLevels(net *network.Network) *VoltageLevelResult {
	differ := func(a, b int) bool {
		ba, okA := net.Buses.Get(a)
		bb, okB := net.Buses.Get(b)
		return okA && okB && ba.VnKv != bb.VnKv
	}

	var res VoltageLevelResult
	net.Lines.Each(func(id int, l network.Line) {
		if differ(l.FromBus, l.ToBus) {
			res.Lines = append(res.Lines, id)
		}
	})
	net.Switches.Each(func(id int, s network.Switch) {
		if s.ET == network.SwitchBus && s.Closed && differ(s.Bus, s.Element) {
			res.Switches = append(res.Switches, id)
		}
	})
	if res.Lines == nil && res.Switches == nil {
		return nil
	}
	return &res
}

type NominalVoltageResult struct {
	Trafo   map[string][]int `json:"trafo,omitempty" yaml:"trafo,omitempty"`
	Trafo3w map[string][]int `json:"trafo3w,omitempty" yaml:"trafo3w,omitempty"`
}

// NominalVoltageMismatch compares the rated voltage of every transformer
// side with the nominal voltage of the bus it is connected to. When every
// side deviates but the sorted voltages match pairwise, the connectors are
// reported as swapped instead.
func NominalVoltageMismatch(net *network.Network, tol float64) *NominalVoltageResult {
	vn := func(bus int) (float64, bool) {
		b, ok := net.Buses.Get(bus)
		return b.VnKv, ok
	}
	deviates := func(side, bus float64) bool {
		return math.Abs(1-side/bus) > tol
	}

	trafo := make(map[string][]int)
	net.Trafos.Each(func(id int, t network.Trafo) {
		hv, okH := vn(t.HVBus)
		lv, okL := vn(t.LVBus)
		if !okH || !okL {
			return
		}
		hvBad, lvBad := deviates(t.VnHvKv, hv), deviates(t.VnLvKv, lv)
		if hvBad && lvBad && swapped([]float64{t.VnHvKv, t.VnLvKv}, []float64{hv, lv}, tol) {
			trafo["hv_lv_swapped"] = append(trafo["hv_lv_swapped"], id)
			return
		}
		if hvBad {
			trafo["hv_bus"] = append(trafo["hv_bus"], id)
		}
		if lvBad {
			trafo["lv_bus"] = append(trafo["lv_bus"], id)
		}
	})

	trafo3w := make(map[string][]int)
	net.Trafos3w.Each(func(id int, t network.Trafo3w) {
		hv, okH := vn(t.HVBus)
		mv, okM := vn(t.MVBus)
		lv, okL := vn(t.LVBus)
		if !okH || !okM || !okL {
			return
		}
		hvBad, mvBad, lvBad := deviates(t.VnHvKv, hv), deviates(t.VnMvKv, mv), deviates(t.VnLvKv, lv)
		if hvBad && mvBad && lvBad &&
			swapped([]float64{t.VnHvKv, t.VnMvKv, t.VnLvKv}, []float64{hv, mv, lv}, tol) {
			trafo3w["connectors_swapped_3w"] = append(trafo3w["connectors_swapped_3w"], id)
			return
		}
		if hvBad {
			trafo3w["hv_bus"] = append(trafo3w["hv_bus"], id)
		}
		if mvBad {
			trafo3w["mv_bus"] = append(trafo3w["mv_bus"], id)
		}
		if lvBad {
			trafo3w["lv_bus"] = append(trafo3w["lv_bus"], id)
		}
	})

	if len(trafo) == 0 && len(trafo3w) == 0 {
		return nil
	}
	res := &NominalVoltageResult{}
	if len(trafo) > 0 {
		res.Trafo = trafo
	}
	if len(trafo3w) > 0 {
		res.Trafo3w = trafo3w
	}
	return res
}

func swapped(sides, buses []float64, tol float64) bool {
	slices.Sort(sides)
	slices.Sort(buses)
	for i := range sides {
		if !(math.Abs(sides[i]-buses[i])/buses[i] < tol) {
			return false
		}
	}
	return true
}

// NoExtGrid reports whether the network has no in-service reference source.
func NoExtGrid(net *network.Network) bool {
	return len(topology.ReferenceBuses(net)) == 0
}

// MultipleVoltageControllers finds buses with more than one external grid
// and buses holding both an external grid and a generator.
func MultipleVoltageControllers(net *network.Network) map[string][]int {
	extGrids := make(map[int]int)
	net.ExtGrids.Each(func(_ int, e network.ExtGrid) { extGrids[e.Bus]++ })
	gens := make(map[int]bool)
	net.Gens.Each(func(_ int, g network.Gen) { gens[g.Bus] = true })

	var multiple, mixed []int
	for bus, count := range extGrids {
		if count > 1 {
			multiple = append(multiple, bus)
		}
		if gens[bus] {
			mixed = append(mixed, bus)
		}
	}

	out := make(map[string][]int)
	if len(multiple) > 0 {
		slices.Sort(multiple)
		out["buses_with_mult_ext_grids"] = multiple
	}
	if len(mixed) > 0 {
		slices.Sort(mixed)
		out["buses_with_gens_and_ext_grids"] = mixed
	}
	return out
}

// WrongReferenceSystem flags injections entered in the wrong sign
// convention: loads consume and generators produce positive power.
func WrongReferenceSystem(net *network.Network) map[string][]int {
	out := make(map[string][]int)
	net.Loads.Each(func(id int, l network.Load) {
		if l.PMw < 0 {
			out["loads"] = append(out["loads"], id)
		}
	})
	net.Gens.Each(func(id int, g network.Gen) {
		if g.PMw < 0 {
			out["gens"] = append(out["gens"], id)
		}
	})
	net.Sgens.Each(func(id int, s network.Sgen) {
		if s.PMw < 0 {
			out["sgens"] = append(out["sgens"], id)
		}
	})
	return out
}

type switchKey struct {
	bus, element int
	et           string
}

// ParallelSwitches groups switches that share bus, element and element
// type. Groups are ordered by that key and hold sorted ids.
func ParallelSwitches(net *network.Network) [][]int {
	groups := make(map[switchKey][]int)
	net.Switches.Each(func(id int, s network.Switch) {
		k := switchKey{s.Bus, s.Element, s.ET}
		groups[k] = append(groups[k], id)
	})

	keys := slices.SortedFunc(maps.Keys(groups), func(a, b switchKey) int {
		return cmp.Or(cmp.Compare(a.bus, b.bus), cmp.Compare(a.element, b.element), cmp.Compare(a.et, b.et))
	})
	var out [][]int
	for _, k := range keys {
		if ids := groups[k]; len(ids) > 1 {
			slices.Sort(ids)
			out = append(out, ids)
		}
	}
	return out
}
