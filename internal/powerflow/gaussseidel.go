package powerflow

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/san-kum/gridiag/internal/network"
)

const (
	DefaultMaxIterations = 1000
	DefaultTolerance     = 1e-8
	DefaultAcceleration  = 1.4
)

// GaussSeidel is a node-by-node AC power-flow solver. In accelerated mode
// every voltage update is over-relaxed by Acceleration, which changes the
// iteration path but not the fixed point.
type GaussSeidel struct {
	MaxIterations int
	Tolerance     float64
	Acceleration  float64
}

func NewGaussSeidel(maxIterations int, tolerance, acceleration float64) *GaussSeidel {
	return &GaussSeidel{
		MaxIterations: maxIterations,
		Tolerance:     tolerance,
		Acceleration:  acceleration,
	}
}

func (g *GaussSeidel) Solve(ctx context.Context, net *network.Network, opts Options) (*Results, error) {
	m, err := build(net)
	if err != nil {
		return nil, err
	}
	v, iterations, err := g.iterate(ctx, m, opts)
	if err != nil {
		return nil, err
	}
	res := m.results(net, v)
	res.Iterations = iterations
	return res, nil
}

func (g *GaussSeidel) settings(opts Options) (int, float64, complex128) {
	maxIter, tol, alpha := g.MaxIterations, g.Tolerance, 1.0
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	if tol <= 0 {
		tol = DefaultTolerance
	}
	if opts.Accelerated {
		alpha = g.Acceleration
		if alpha <= 0 {
			alpha = DefaultAcceleration
		}
	}
	return maxIter, tol, complex(alpha, 0)
}

func (g *GaussSeidel) iterate(ctx context.Context, m *model, opts Options) ([]complex128, int, error) {
	maxIter, tol, alpha := g.settings(opts)
	v := m.initialVoltages()

	for it := 1; it <= maxIter; it++ {
		if err := ctx.Err(); err != nil {
			return nil, it, err
		}

		var delta float64
		for i := range v {
			if !m.active[i] || m.kind[i] == nodeSlack {
				continue
			}
			var sum complex128
			for _, e := range m.off[i] {
				sum += e.y * v[e.j]
			}
			s := m.sGen[i] - m.sLoad[i]
			if m.kind[i] == nodePV {
				q := -imag(cmplx.Conj(v[i]) * (m.diag[i]*v[i] + sum))
				s = complex(real(s), q)
			}
			next := (cmplx.Conj(s)/cmplx.Conj(v[i]) - sum) / m.diag[i]
			next = v[i] + alpha*(next-v[i])
			if m.kind[i] == nodePV {
				next = cmplx.Rect(m.vm[i], cmplx.Phase(next))
			}
			delta = max(delta, cmplx.Abs(next-v[i]))
			v[i] = next
		}

		if math.IsNaN(delta) || math.IsInf(delta, 0) {
			return nil, it, fmt.Errorf("%w: diverged at iteration %d", ErrNotConverged, it)
		}
		if m.mismatch(v) < tol {
			return v, it, nil
		}
	}
	return nil, maxIter, fmt.Errorf("%w: %d iterations", ErrNotConverged, maxIter)
}

// mismatch is the largest nodal power mismatch in per unit. PV nodes only
// count their active power. Both modes stop on it, so they end at the same
// operating point within tol.
func (m *model) mismatch(v []complex128) float64 {
	var worst float64
	for i := range v {
		if !m.active[i] || m.kind[i] == nodeSlack {
			continue
		}
		current := m.diag[i] * v[i]
		for _, e := range m.off[i] {
			current += e.y * v[e.j]
		}
		d := v[i]*cmplx.Conj(current) - (m.sGen[i] - m.sLoad[i])
		worst = max(worst, math.Abs(real(d)))
		if m.kind[i] == nodePQ {
			worst = max(worst, math.Abs(imag(d)))
		}
	}
	if math.IsNaN(worst) {
		return math.Inf(1)
	}
	return worst
}

// initialVoltages is a flat start at the angle of the first slack.
func (m *model) initialVoltages() []complex128 {
	ref := 0.0
	for i, k := range m.kind {
		if k == nodeSlack && m.active[i] {
			ref = m.va[i]
			break
		}
	}
	v := make([]complex128, len(m.kind))
	for i := range v {
		switch {
		case !m.active[i]:
			v[i] = cmplx.NaN()
		case m.kind[i] == nodeSlack:
			v[i] = cmplx.Rect(m.vm[i], m.va[i])
		case m.kind[i] == nodePV:
			v[i] = cmplx.Rect(m.vm[i], ref)
		default:
			v[i] = cmplx.Rect(1, ref)
		}
	}
	return v
}
