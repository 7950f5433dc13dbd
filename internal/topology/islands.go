package topology

import (
	"fmt"
	"maps"
	"slices"

	"github.com/san-kum/gridiag/internal/network"
)

// Island lists the in-service elements of a section that has no reference
// source. Empty categories are omitted when encoded.
type Island struct {
	Buses    []int `json:"buses,omitempty" yaml:"buses,omitempty"`
	Switches []int `json:"switches,omitempty" yaml:"switches,omitempty"`
	Lines    []int `json:"lines,omitempty" yaml:"lines,omitempty"`
	Trafos   []int `json:"trafos,omitempty" yaml:"trafos,omitempty"`
	Trafos3w []int `json:"trafos3w,omitempty" yaml:"trafos3w,omitempty"`
	Loads    []int `json:"loads,omitempty" yaml:"loads,omitempty"`
	Gens     []int `json:"gens,omitempty" yaml:"gens,omitempty"`
	Sgens    []int `json:"sgens,omitempty" yaml:"sgens,omitempty"`
}

func (i Island) Empty() bool {
	return len(i.Buses)+len(i.Switches)+len(i.Lines)+len(i.Trafos)+
		len(i.Trafos3w)+len(i.Loads)+len(i.Gens)+len(i.Sgens) == 0
}

// Isolated lists in-service transformers whose terminals are all switched
// open.
type Isolated struct {
	Trafos   []int `json:"isolated_trafos,omitempty" yaml:"isolated_trafos,omitempty"`
	Trafos3w []int `json:"isolated_trafos3w,omitempty" yaml:"isolated_trafos3w,omitempty"`
}

func (i Isolated) Empty() bool {
	return len(i.Trafos) == 0 && len(i.Trafos3w) == 0
}

// ReferenceBuses returns the buses holding an in-service ext grid or an
// in-service slack gen.
func ReferenceBuses(net *network.Network) map[int]bool {
	refs := make(map[int]bool)
	net.ExtGrids.Each(func(_ int, eg network.ExtGrid) {
		if eg.InService {
			refs[eg.Bus] = true
		}
	})
	net.Gens.Each(func(_ int, g network.Gen) {
		if g.InService && g.Slack {
			refs[g.Bus] = true
		}
	})
	return refs
}

// Islands returns one record per connected section that contains no
// reference source and at least one in-service bus, in component order.
func Islands(net *network.Network) []Island {
	refs := ReferenceBuses(net)
	var islands []Island

	for _, comp := range Build(net).Components() {
		if slices.ContainsFunc(comp, func(bus int) bool { return refs[bus] }) {
			continue
		}
		section := make(map[int]bool, len(comp))
		for _, bus := range comp {
			section[bus] = true
		}

		var island Island
		for _, bus := range comp {
			if b, _ := net.Buses.Get(bus); b.InService {
				island.Buses = append(island.Buses, bus)
			}
		}
		if len(island.Buses) == 0 {
			continue
		}
		live := make(map[int]bool, len(island.Buses))
		for _, bus := range island.Buses {
			live[bus] = true
		}

		net.Switches.Each(func(id int, s network.Switch) {
			if live[s.Bus] {
				island.Switches = append(island.Switches, id)
			}
		})
		island.Lines = connected(net, network.TableLine, live)
		island.Trafos = connected(net, network.TableTrafo, live)
		island.Trafos3w = connected(net, network.TableTrafo3w, live)
		net.Loads.Each(func(id int, l network.Load) {
			if l.InService && section[l.Bus] {
				island.Loads = append(island.Loads, id)
			}
		})
		net.Gens.Each(func(id int, g network.Gen) {
			if g.InService && section[g.Bus] {
				island.Gens = append(island.Gens, id)
			}
		})
		net.Sgens.Each(func(id int, s network.Sgen) {
			if s.InService && section[s.Bus] {
				island.Sgens = append(island.Sgens, id)
			}
		})
		for _, ids := range [][]int{island.Switches, island.Loads, island.Gens, island.Sgens} {
			slices.Sort(ids)
		}

		if !island.Empty() {
			islands = append(islands, island)
		}
	}
	return islands
}

// IsolatedTransformers finds in-service trafos addressed by more than one
// open switch and trafo3ws addressed by more than two.
func IsolatedTransformers(net *network.Network) Isolated {
	counts := map[string]map[int]int{
		network.SwitchTrafo:   {},
		network.SwitchTrafo3w: {},
	}
	net.Switches.Each(func(_ int, s network.Switch) {
		if c, ok := counts[s.ET]; ok && !s.Closed {
			c[s.Element]++
		}
	})

	var iso Isolated
	for _, id := range slices.Sorted(maps.Keys(counts[network.SwitchTrafo])) {
		t, ok := net.Trafos.Get(id)
		if ok && t.InService && counts[network.SwitchTrafo][id] > 1 {
			iso.Trafos = append(iso.Trafos, id)
		}
	}
	for _, id := range slices.Sorted(maps.Keys(counts[network.SwitchTrafo3w])) {
		t, ok := net.Trafos3w.Get(id)
		if ok && t.InService && counts[network.SwitchTrafo3w][id] > 2 {
			iso.Trafos3w = append(iso.Trafos3w, id)
		}
	}
	return iso
}

// ConnectedElements returns the in-service lines, trafos or trafo3ws with
// a terminal at one of buses. An element switched open at one of those
// buses does not count as connected there.
func ConnectedElements(net *network.Network, table network.TableName, buses []int) ([]int, error) {
	switch table {
	case network.TableLine, network.TableTrafo, network.TableTrafo3w:
	default:
		return nil, fmt.Errorf("%w: %q has no bus terminals", network.ErrUnknownTable, table)
	}
	set := make(map[int]bool, len(buses))
	for _, b := range buses {
		set[b] = true
	}
	return connected(net, table, set), nil
}

func connected(net *network.Network, table network.TableName, buses map[int]bool) []int {
	// open[et][element] holds the buses at which the element is switched open.
	open := make(map[string]map[int]map[int]bool)
	net.Switches.Each(func(_ int, s network.Switch) {
		if s.Closed || s.ET == network.SwitchBus {
			return
		}
		if open[s.ET] == nil {
			open[s.ET] = make(map[int]map[int]bool)
		}
		if open[s.ET][s.Element] == nil {
			open[s.ET][s.Element] = make(map[int]bool)
		}
		open[s.ET][s.Element][s.Bus] = true
	})
	attached := func(et string, id int, terminals ...int) bool {
		for _, bus := range terminals {
			if buses[bus] && !open[et][id][bus] {
				return true
			}
		}
		return false
	}

	var ids []int
	switch table {
	case network.TableLine:
		net.Lines.Each(func(id int, l network.Line) {
			if l.InService && attached(network.SwitchLine, id, l.FromBus, l.ToBus) {
				ids = append(ids, id)
			}
		})
	case network.TableTrafo:
		net.Trafos.Each(func(id int, t network.Trafo) {
			if t.InService && attached(network.SwitchTrafo, id, t.HVBus, t.LVBus) {
				ids = append(ids, id)
			}
		})
	case network.TableTrafo3w:
		net.Trafos3w.Each(func(id int, t network.Trafo3w) {
			if t.InService && attached(network.SwitchTrafo3w, id, t.HVBus, t.MVBus, t.LVBus) {
				ids = append(ids, id)
			}
		})
	}
	slices.Sort(ids)
	return ids
}
