package powerflow

import (
	"math"
	"math/cmplx"
	"slices"

	"github.com/san-kum/gridiag/internal/network"
)

const frequencyHz = 50.0

type nodeKind int

const (
	nodePQ nodeKind = iota
	nodePV
	nodeSlack
)

type entry struct {
	j int
	y complex128
}

// twoPort is a branch between nodes f and t in per unit:
//
//	[If]   [yff yft] [Vf]
//	[It] = [ytf ytt] [Vt]
type twoPort struct {
	f, t               int
	yff, yft, ytf, ytt complex128
}

func (b twoPort) currents(v []complex128) (complex128, complex128) {
	return b.yff*v[b.f] + b.yft*v[b.t], b.ytf*v[b.f] + b.ytt*v[b.t]
}

// powers returns the complex power flowing into the branch at each end.
func (b twoPort) powers(v []complex128) (complex128, complex128) {
	i, j := b.currents(v)
	return v[b.f] * cmplx.Conj(i), v[b.t] * cmplx.Conj(j)
}

type lineBranch struct {
	port   twoPort
	vnKv   float64
	maxIKa float64
}

type trafoBranch struct {
	port  twoPort
	snMva float64
}

type trafo3wBranch struct {
	legs  [3]*twoPort
	snMva [3]float64
}

type xwardBranch struct {
	port     twoPort
	internal int
}

// model is the per-unit admittance model of one network. Buses joined by
// closed bus-bus switches share a node; trafo3w star points and xward
// internal sources get nodes of their own.
type model struct {
	sn   float64
	node map[int]int

	kind   []nodeKind
	diag   []complex128
	off    [][]entry
	sLoad  []complex128
	sGen   []complex128
	vm     []float64
	va     []float64
	active []bool
	slacks []int
	pvGens []int

	offAcc []map[int]complex128
	open   map[string]map[int]bool

	lines      map[int]lineBranch
	trafos     map[int]trafoBranch
	trafos3w   map[int]trafo3wBranch
	impedances map[int]twoPort
	xwards     map[int]xwardBranch
}

func (m *model) addNode() int {
	m.kind = append(m.kind, nodePQ)
	m.diag = append(m.diag, 0)
	m.offAcc = append(m.offAcc, map[int]complex128{})
	m.sLoad = append(m.sLoad, 0)
	m.sGen = append(m.sGen, 0)
	m.vm = append(m.vm, 1)
	m.va = append(m.va, 0)
	m.slacks = append(m.slacks, 0)
	m.pvGens = append(m.pvGens, 0)
	return len(m.kind) - 1
}

func (m *model) addBranch(b twoPort) {
	if b.f == b.t {
		m.diag[b.f] += b.yff + b.yft + b.ytf + b.ytt
		return
	}
	m.diag[b.f] += b.yff
	m.diag[b.t] += b.ytt
	m.offAcc[b.f][b.t] += b.yft
	m.offAcc[b.t][b.f] += b.ytf
}

func (m *model) setSlack(n int, vm, vaDegree float64) {
	m.kind[n] = nodeSlack
	m.vm[n] = vm
	m.va[n] = vaDegree * math.Pi / 180
	m.slacks[n]++
}

// terminal resolves the node of an element's bus. ok is false when the bus
// exists but is out of service.
func (m *model) terminal(net *network.Network, table network.TableName, id, bus int) (int, bool, error) {
	if !net.Buses.Has(bus) {
		return 0, false, structural(table, id, ErrInvalidReference)
	}
	n, ok := m.node[bus]
	return n, ok, nil
}

func busKv(net *network.Network, bus int) float64 {
	b, _ := net.Buses.Get(bus)
	return b.VnKv
}

func build(net *network.Network) (*model, error) {
	m := &model{
		sn:         net.BaseMva(),
		node:       make(map[int]int),
		lines:      make(map[int]lineBranch),
		trafos:     make(map[int]trafoBranch),
		trafos3w:   make(map[int]trafo3wBranch),
		impedances: make(map[int]twoPort),
		xwards:     make(map[int]xwardBranch),
	}

	uf := newUnionFind()
	net.Buses.Each(func(id int, b network.Bus) {
		if b.InService {
			uf.add(id)
		}
	})
	m.open = map[string]map[int]bool{}
	net.Switches.Each(func(_ int, s network.Switch) {
		switch {
		case s.ET == network.SwitchBus:
			if s.Closed && uf.has(s.Bus) && uf.has(s.Element) {
				uf.union(s.Bus, s.Element)
			}
		case !s.Closed:
			if m.open[s.ET] == nil {
				m.open[s.ET] = map[int]bool{}
			}
			m.open[s.ET][s.Element] = true
		}
	})
	for _, id := range net.Buses.IDs() {
		if !uf.has(id) {
			continue
		}
		root := uf.find(id)
		n, ok := m.node[root]
		if !ok {
			n = m.addNode()
			m.node[root] = n
		}
		m.node[id] = n
	}

	steps := []func(*network.Network) error{
		m.addLines, m.addTrafos, m.addTrafos3w, m.addImpedances,
		m.addSources, m.addInjections,
	}
	for _, step := range steps {
		if err := step(net); err != nil {
			return nil, err
		}
	}
	m.finish()
	if !slices.Contains(m.kind, nodeSlack) {
		return nil, structural("", 0, ErrNoReference)
	}
	for i, a := range m.active {
		if a && m.kind[i] != nodeSlack && m.diag[i] == 0 {
			return nil, structural("", 0, ErrSingular)
		}
	}
	return m, nil
}

func (m *model) addLines(net *network.Network) error {
	for _, id := range net.Lines.IDs() {
		l, _ := net.Lines.Get(id)
		if !l.InService || m.open[network.SwitchLine][id] {
			continue
		}
		f, okf, err := m.terminal(net, network.TableLine, id, l.FromBus)
		if err != nil {
			return err
		}
		t, okt, err := m.terminal(net, network.TableLine, id, l.ToBus)
		if err != nil {
			return err
		}
		if !okf || !okt {
			continue
		}
		vn := busKv(net, l.FromBus)
		par := float64(max(l.Parallel, 1))
		zbase := vn * vn / m.sn
		z := complex(l.ROhm(), l.XOhm()) / complex(par*zbase, 0)
		if z == 0 || vn <= 0 {
			return structural(network.TableLine, id, ErrSingular)
		}
		ys := 1 / z
		ysh := complex(0, math.Pi*frequencyHz*l.CNfPerKm*1e-9*l.LengthKm*par*zbase)
		port := twoPort{f: f, t: t, yff: ys + ysh, yft: -ys, ytf: -ys, ytt: ys + ysh}
		m.addBranch(port)
		m.lines[id] = lineBranch{port: port, vnKv: vn, maxIKa: l.MaxIKa * l.Df * par}
	}
	return nil
}

// seriesAdmittance converts short-circuit voltages given on the rated
// power snMva to a per-unit series admittance on the system base.
func (m *model) seriesAdmittance(vkPercent, vkrPercent, snMva float64) (complex128, bool) {
	if snMva <= 0 || vkPercent <= 0 {
		return 0, false
	}
	z := vkPercent / 100 * m.sn / snMva
	r := vkrPercent / 100 * m.sn / snMva
	x := math.Sqrt(max(z*z-r*r, 0))
	return 1 / complex(r, x), true
}

func (m *model) magnetizing(pfeKw, i0Percent, snMva float64) complex128 {
	g := pfeKw / 1000 / m.sn
	y := i0Percent / 100 * snMva / m.sn
	return complex(g, -math.Sqrt(max(y*y-g*g, 0)))
}

func (m *model) addTrafos(net *network.Network) error {
	for _, id := range net.Trafos.IDs() {
		tr, _ := net.Trafos.Get(id)
		if !tr.InService || m.open[network.SwitchTrafo][id] {
			continue
		}
		hv, okh, err := m.terminal(net, network.TableTrafo, id, tr.HVBus)
		if err != nil {
			return err
		}
		lv, okl, err := m.terminal(net, network.TableTrafo, id, tr.LVBus)
		if err != nil {
			return err
		}
		if !okh || !okl {
			continue
		}
		ys, ok := m.seriesAdmittance(tr.VkPercent, tr.VkrPercent, tr.SnMva)
		vhv, vlv := busKv(net, tr.HVBus), busKv(net, tr.LVBus)
		if !ok || vhv <= 0 || vlv <= 0 || tr.VnHvKv <= 0 || tr.VnLvKv <= 0 {
			return structural(network.TableTrafo, id, ErrSingular)
		}
		ratio := (tr.VnHvKv / vhv) / (tr.VnLvKv / vlv)
		n := cmplx.Rect(ratio, tr.ShiftDegree*math.Pi/180)
		ym := m.magnetizing(tr.PfeKw, tr.I0Percent, tr.SnMva)
		port := twoPort{
			f: hv, t: lv,
			yff: (ys + ym) / complex(ratio*ratio, 0),
			yft: -ys / cmplx.Conj(n),
			ytf: -ys / n,
			ytt: ys,
		}
		m.addBranch(port)
		m.trafos[id] = trafoBranch{port: port, snMva: tr.SnMva}
	}
	return nil
}

func (m *model) addTrafos3w(net *network.Network) error {
	for _, id := range net.Trafos3w.IDs() {
		tr, _ := net.Trafos3w.Get(id)
		if !tr.InService || m.open[network.SwitchTrafo3w][id] {
			continue
		}
		buses := [3]int{tr.HVBus, tr.MVBus, tr.LVBus}
		vn := [3]float64{tr.VnHvKv, tr.VnMvKv, tr.VnLvKv}
		sn := [3]float64{tr.SnHvMva, tr.SnMvMva, tr.SnLvMva}
		vk := [3]float64{tr.VkHvPercent, tr.VkMvPercent, tr.VkLvPercent}
		vkr := [3]float64{tr.VkrHvPercent, tr.VkrMvPercent, tr.VkrLvPercent}

		var nodes [3]int
		var ok [3]bool
		for i, bus := range buses {
			n, in, err := m.terminal(net, network.TableTrafo3w, id, bus)
			if err != nil {
				return err
			}
			nodes[i], ok[i] = n, in
		}
		hvRef := tr.VnHvKv / busKv(net, tr.HVBus)
		if math.IsInf(hvRef, 0) || math.IsNaN(hvRef) || hvRef == 0 {
			return structural(network.TableTrafo3w, id, ErrSingular)
		}

		star := m.addNode()
		m.diag[star] += m.magnetizing(tr.PfeKw, tr.I0Percent, sn[0])
		branch := trafo3wBranch{snMva: sn}
		for i := range buses {
			ys, valid := m.seriesAdmittance(vk[i], vkr[i], sn[i])
			kv := busKv(net, buses[i])
			if !valid || kv <= 0 {
				return structural(network.TableTrafo3w, id, ErrSingular)
			}
			if !ok[i] {
				continue
			}
			tau := complex((vn[i]/kv)/hvRef, 0)
			leg := twoPort{f: nodes[i], t: star, yff: ys / (tau * tau), yft: -ys / tau, ytf: -ys / tau, ytt: ys}
			m.addBranch(leg)
			branch.legs[i] = &leg
		}
		m.trafos3w[id] = branch
	}
	return nil
}

func (m *model) addImpedances(net *network.Network) error {
	for _, id := range net.Impedances.IDs() {
		imp, _ := net.Impedances.Get(id)
		if !imp.InService {
			continue
		}
		f, okf, err := m.terminal(net, network.TableImpedance, id, imp.FromBus)
		if err != nil {
			return err
		}
		t, okt, err := m.terminal(net, network.TableImpedance, id, imp.ToBus)
		if err != nil {
			return err
		}
		if !okf || !okt {
			continue
		}
		if imp.SnMva <= 0 {
			return structural(network.TableImpedance, id, ErrSingular)
		}
		k := complex(m.sn/imp.SnMva, 0)
		zft := complex(imp.RftPu, imp.XftPu) * k
		ztf := complex(imp.RtfPu, imp.XtfPu) * k
		if zft == 0 || ztf == 0 {
			return structural(network.TableImpedance, id, ErrSingular)
		}
		port := twoPort{f: f, t: t, yff: 1 / zft, yft: -1 / zft, ytf: -1 / ztf, ytt: 1 / ztf}
		m.addBranch(port)
		m.impedances[id] = port
	}
	return nil
}

// addSources marks slack nodes first so that a gen sharing a bus with an
// ext grid does not turn the node into a PV node.
func (m *model) addSources(net *network.Network) error {
	for _, id := range net.ExtGrids.IDs() {
		eg, _ := net.ExtGrids.Get(id)
		if !eg.InService {
			continue
		}
		n, ok, err := m.terminal(net, network.TableExtGrid, id, eg.Bus)
		if err != nil {
			return err
		}
		if ok {
			m.setSlack(n, eg.VmPu, eg.VaDegree)
		}
	}
	for _, id := range net.Gens.IDs() {
		g, _ := net.Gens.Get(id)
		if !g.InService || !g.Slack {
			continue
		}
		n, ok, err := m.terminal(net, network.TableGen, id, g.Bus)
		if err != nil {
			return err
		}
		if ok {
			m.setSlack(n, g.VmPu, 0)
		}
	}
	for _, id := range net.Gens.IDs() {
		g, _ := net.Gens.Get(id)
		if !g.InService || g.Slack {
			continue
		}
		n, ok, err := m.terminal(net, network.TableGen, id, g.Bus)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		m.sGen[n] += complex(g.PMw*g.Scaling/m.sn, 0)
		if m.kind[n] != nodeSlack {
			m.kind[n] = nodePV
			m.vm[n] = g.VmPu
			m.pvGens[n]++
		}
	}
	return nil
}

func (m *model) addInjections(net *network.Network) error {
	for _, id := range net.Loads.IDs() {
		l, _ := net.Loads.Get(id)
		if !l.InService {
			continue
		}
		n, ok, err := m.terminal(net, network.TableLoad, id, l.Bus)
		if err != nil {
			return err
		}
		if ok {
			m.sLoad[n] += complex(l.PMw*l.Scaling, l.QMvar*l.Scaling) / complex(m.sn, 0)
		}
	}
	for _, id := range net.Sgens.IDs() {
		s, _ := net.Sgens.Get(id)
		if !s.InService {
			continue
		}
		n, ok, err := m.terminal(net, network.TableSgen, id, s.Bus)
		if err != nil {
			return err
		}
		if ok {
			m.sGen[n] += complex(s.PMw*s.Scaling, s.QMvar*s.Scaling) / complex(m.sn, 0)
		}
	}
	for _, id := range net.Wards.IDs() {
		w, _ := net.Wards.Get(id)
		if !w.InService {
			continue
		}
		n, ok, err := m.terminal(net, network.TableWard, id, w.Bus)
		if err != nil {
			return err
		}
		if ok {
			m.addWard(n, w.PsMw, w.QsMvar, w.PzMw, w.QzMvar)
		}
	}
	for _, id := range net.XWards.IDs() {
		xw, _ := net.XWards.Get(id)
		if !xw.InService {
			continue
		}
		n, ok, err := m.terminal(net, network.TableXWard, id, xw.Bus)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		m.addWard(n, xw.PsMw, xw.QsMvar, xw.PzMw, xw.QzMvar)

		vn := busKv(net, xw.Bus)
		z := complex(xw.ROhm, xw.XOhm) / complex(vn*vn/m.sn, 0)
		if z == 0 || vn <= 0 {
			return structural(network.TableXWard, id, ErrSingular)
		}
		internal := m.addNode()
		m.kind[internal] = nodePV
		m.vm[internal] = xw.VmPu
		ys := 1 / z
		port := twoPort{f: n, t: internal, yff: ys, yft: -ys, ytf: -ys, ytt: ys}
		m.addBranch(port)
		m.xwards[id] = xwardBranch{port: port, internal: internal}
	}
	return nil
}

// addWard adds the constant power part as load and the constant impedance
// part as a shunt consuming pz + jqz at 1 pu.
func (m *model) addWard(n int, ps, qs, pz, qz float64) {
	m.sLoad[n] += complex(ps, qs) / complex(m.sn, 0)
	m.diag[n] += complex(pz, -qz) / complex(m.sn, 0)
}

// finish freezes the off-diagonal entries in ascending column order and
// marks the nodes reachable from a slack.
func (m *model) finish() {
	m.off = make([][]entry, len(m.offAcc))
	for i, acc := range m.offAcc {
		for j, y := range acc {
			if y != 0 {
				m.off[i] = append(m.off[i], entry{j: j, y: y})
			}
		}
		slices.SortFunc(m.off[i], func(a, b entry) int { return a.j - b.j })
	}
	m.offAcc = nil

	m.active = make([]bool, len(m.kind))
	var queue []int
	for i, k := range m.kind {
		if k == nodeSlack {
			m.active[i] = true
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		for _, e := range m.off[i] {
			if !m.active[e.j] {
				m.active[e.j] = true
				queue = append(queue, e.j)
			}
		}
	}
}

type unionFind struct {
	parent map[int]int
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[int]int)}
}

func (u *unionFind) add(x int) { u.parent[x] = x }

func (u *unionFind) has(x int) bool {
	_, ok := u.parent[x]
	return ok
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}
