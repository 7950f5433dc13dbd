package powerflow

import (
	"math"
	"math/cmplx"

	"github.com/san-kum/gridiag/internal/network"
)

// results converts the node voltages into element result tables in MW,
// Mvar and kA. Bus p_mw and q_mvar are the net consumption at the bus.
func (m *model) results(net *network.Network, v []complex128) *Results {
	res := NewResults()
	for _, name := range ResultTables {
		res.Table(name)
	}
	sn := complex(m.sn, 0)
	nan := math.NaN()

	voltage := func(bus int) (complex128, bool) {
		n, ok := m.node[bus]
		if !ok || !m.active[n] {
			return 0, false
		}
		return v[n], true
	}
	consumption := make(map[int]complex128)
	consume := func(bus int, s complex128) { consumption[bus] += s }

	// source is the power the slack or PV elements of a node must inject.
	source := make([]complex128, len(v))
	for i := range v {
		if !m.active[i] {
			continue
		}
		sum := m.diag[i] * v[i]
		for _, e := range m.off[i] {
			sum += e.y * v[e.j]
		}
		source[i] = (v[i]*cmplx.Conj(sum) + m.sLoad[i] - m.sGen[i]) * sn
	}

	loads := res.Table(ResLoad)
	net.Loads.Each(func(id int, l network.Load) {
		if _, ok := voltage(l.Bus); !ok || !l.InService {
			loads.Set(id, nan, nan)
			return
		}
		s := complex(l.PMw*l.Scaling, l.QMvar*l.Scaling)
		consume(l.Bus, s)
		loads.Set(id, real(s), imag(s))
	})

	sgens := res.Table(ResSgen)
	net.Sgens.Each(func(id int, g network.Sgen) {
		if _, ok := voltage(g.Bus); !ok || !g.InService {
			sgens.Set(id, nan, nan)
			return
		}
		s := complex(g.PMw*g.Scaling, g.QMvar*g.Scaling)
		consume(g.Bus, -s)
		sgens.Set(id, real(s), imag(s))
	})

	extGrids := res.Table(ResExtGrid)
	net.ExtGrids.Each(func(id int, eg network.ExtGrid) {
		if _, ok := voltage(eg.Bus); !ok || !eg.InService {
			extGrids.Set(id, nan, nan)
			return
		}
		n := m.node[eg.Bus]
		s := source[n] / complex(float64(m.slacks[n]), 0)
		consume(eg.Bus, -s)
		extGrids.Set(id, real(s), imag(s))
	})

	gens := res.Table(ResGen)
	net.Gens.Each(func(id int, g network.Gen) {
		u, ok := voltage(g.Bus)
		if !ok || !g.InService {
			gens.Set(id, nan, nan, nan, nan)
			return
		}
		n := m.node[g.Bus]
		var s complex128
		switch {
		case g.Slack:
			s = source[n] / complex(float64(m.slacks[n]), 0)
		case m.kind[n] == nodePV:
			s = complex(g.PMw*g.Scaling, imag(source[n])/float64(m.pvGens[n]))
		default:
			s = complex(g.PMw*g.Scaling, 0)
		}
		consume(g.Bus, -s)
		gens.Set(id, real(s), imag(s), cmplx.Abs(u), degrees(u))
	})

	wards := res.Table(ResWard)
	net.Wards.Each(func(id int, w network.Ward) {
		u, ok := voltage(w.Bus)
		if !ok || !w.InService {
			wards.Set(id, nan, nan, nan)
			return
		}
		vm := cmplx.Abs(u)
		s := complex(w.PsMw+w.PzMw*vm*vm, w.QsMvar+w.QzMvar*vm*vm)
		consume(w.Bus, s)
		wards.Set(id, real(s), imag(s), vm)
	})

	xwards := res.Table(ResXWard)
	net.XWards.Each(func(id int, xw network.XWard) {
		u, ok := voltage(xw.Bus)
		b, modeled := m.xwards[id]
		if !ok || !modeled {
			xwards.Set(id, nan, nan, nan)
			return
		}
		vm := cmplx.Abs(u)
		internal, _ := b.port.powers(v)
		s := complex(xw.PsMw+xw.PzMw*vm*vm, xw.QsMvar+xw.QzMvar*vm*vm) + internal*sn
		consume(xw.Bus, s)
		xwards.Set(id, real(s), imag(s), cmplx.Abs(v[b.internal]))
	})

	lines := res.Table(ResLine)
	net.Lines.Each(func(id int, l network.Line) {
		b, ok := m.lines[id]
		if !ok || !m.active[b.port.f] {
			lines.Set(id, nan, nan, nan, nan, nan, nan, nan, nan, nan)
			return
		}
		sf, st := b.port.powers(v)
		sf, st = sf*sn, st*sn
		i, j := b.port.currents(v)
		base := m.sn / (math.Sqrt(3) * b.vnKv)
		iFrom, iTo := cmplx.Abs(i)*base, cmplx.Abs(j)*base
		loading := 0.0
		if b.maxIKa > 0 {
			loading = max(iFrom, iTo) / b.maxIKa * 100
		}
		loss := sf + st
		lines.Set(id, real(sf), imag(sf), real(st), imag(st), real(loss), imag(loss), iFrom, iTo, loading)
	})

	trafos := res.Table(ResTrafo)
	net.Trafos.Each(func(id int, _ network.Trafo) {
		b, ok := m.trafos[id]
		if !ok || !m.active[b.port.f] {
			trafos.Set(id, nan, nan, nan, nan, nan, nan, nan)
			return
		}
		sh, sl := b.port.powers(v)
		sh, sl = sh*sn, sl*sn
		loss := sh + sl
		loading := max(cmplx.Abs(sh), cmplx.Abs(sl)) / b.snMva * 100
		trafos.Set(id, real(sh), imag(sh), real(sl), imag(sl), real(loss), imag(loss), loading)
	})

	trafos3w := res.Table(ResTrafo3w)
	net.Trafos3w.Each(func(id int, _ network.Trafo3w) {
		b, ok := m.trafos3w[id]
		row := []float64{nan, nan, nan, nan, nan, nan, nan, nan, nan}
		if !ok {
			trafos3w.Set(id, row...)
			return
		}
		var loss complex128
		loading := 0.0
		energized := false
		for k, leg := range b.legs {
			if leg == nil || !m.active[leg.f] {
				continue
			}
			energized = true
			s, _ := leg.powers(v)
			s *= sn
			row[2*k], row[2*k+1] = real(s), imag(s)
			loss += s
			loading = max(loading, cmplx.Abs(s)/b.snMva[k]*100)
		}
		if energized {
			row[6], row[7], row[8] = real(loss), imag(loss), loading
		}
		trafos3w.Set(id, row...)
	})

	impedances := res.Table(ResImpedance)
	net.Impedances.Each(func(id int, _ network.Impedance) {
		p, ok := m.impedances[id]
		if !ok || !m.active[p.f] {
			impedances.Set(id, nan, nan, nan, nan, nan, nan)
			return
		}
		sf, st := p.powers(v)
		sf, st = sf*sn, st*sn
		loss := sf + st
		impedances.Set(id, real(sf), imag(sf), real(st), imag(st), real(loss), imag(loss))
	})

	buses := res.Table(ResBus)
	net.Buses.Each(func(id int, _ network.Bus) {
		u, ok := voltage(id)
		if !ok {
			buses.Set(id, nan, nan, nan, nan)
			return
		}
		s := consumption[id]
		buses.Set(id, cmplx.Abs(u), degrees(u), real(s), imag(s))
	})

	return res
}

func degrees(u complex128) float64 {
	return cmplx.Phase(u) * 180 / math.Pi
}
