package topology

import (
	"slices"

	"github.com/san-kum/gridiag/internal/network"
)

// Graph is the undirected bus connectivity graph of a network. Every bus is
// a node; edges come from in-service branches and closed bus-bus switches
// between in-service buses.
type Graph struct {
	nodes []int
	adj   map[int][]int
}

// Build derives the graph from the current state of net. Lines and
// transformers addressed by an open switch do not contribute edges.
func Build(net *network.Network) *Graph {
	g := &Graph{nodes: net.Buses.IDs(), adj: make(map[int][]int)}
	slices.Sort(g.nodes)

	live := func(bus int) bool {
		b, ok := net.Buses.Get(bus)
		return ok && b.InService
	}
	connect := func(a, b int) {
		if a == b || !live(a) || !live(b) {
			return
		}
		g.adj[a] = append(g.adj[a], b)
		g.adj[b] = append(g.adj[b], a)
	}
	open := openSwitches(net)

	net.Lines.Each(func(id int, l network.Line) {
		if l.InService && !open[network.SwitchLine][id] {
			connect(l.FromBus, l.ToBus)
		}
	})
	net.Trafos.Each(func(id int, t network.Trafo) {
		if t.InService && !open[network.SwitchTrafo][id] {
			connect(t.HVBus, t.LVBus)
		}
	})
	net.Trafos3w.Each(func(id int, t network.Trafo3w) {
		if t.InService && !open[network.SwitchTrafo3w][id] {
			connect(t.HVBus, t.MVBus)
			connect(t.HVBus, t.LVBus)
			connect(t.MVBus, t.LVBus)
		}
	})
	net.Impedances.Each(func(_ int, imp network.Impedance) {
		if imp.InService {
			connect(imp.FromBus, imp.ToBus)
		}
	})
	net.Switches.Each(func(_ int, s network.Switch) {
		if s.ET == network.SwitchBus && s.Closed {
			connect(s.Bus, s.Element)
		}
	})
	return g
}

// openSwitches indexes the elements addressed by open element switches
// by switch type.
func openSwitches(net *network.Network) map[string]map[int]bool {
	open := make(map[string]map[int]bool)
	net.Switches.Each(func(_ int, s network.Switch) {
		if s.Closed || s.ET == network.SwitchBus {
			return
		}
		if open[s.ET] == nil {
			open[s.ET] = make(map[int]bool)
		}
		open[s.ET][s.Element] = true
	})
	return open
}

// Nodes returns the bus ids in ascending order.
func (g *Graph) Nodes() []int {
	return slices.Clone(g.nodes)
}

func (g *Graph) Neighbors(bus int) []int {
	return slices.Clone(g.adj[bus])
}

// Components partitions the buses into connected components. Components
// are ordered by their smallest bus id and their members sorted.
func (g *Graph) Components() [][]int {
	seen := make(map[int]bool, len(g.nodes))
	var comps [][]int
	for _, start := range g.nodes {
		if seen[start] {
			continue
		}
		seen[start] = true
		queue := []int{start}
		for qi := 0; qi < len(queue); qi++ {
			for _, next := range g.adj[queue[qi]] {
				if !seen[next] {
					seen[next] = true
					queue = append(queue, next)
				}
			}
		}
		slices.Sort(queue)
		comps = append(comps, queue)
	}
	return comps
}
