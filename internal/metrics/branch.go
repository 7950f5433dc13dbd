package metrics

import (
	"github.com/san-kum/gridiag/internal/powerflow"
)

var branchTables = []string{powerflow.ResLine, powerflow.ResTrafo, powerflow.ResTrafo3w, powerflow.ResImpedance}

// Losses sums the active power losses of all branches.
type Losses struct {
	name  string
	total float64
}

func NewLosses() *Losses {
	return &Losses{name: "losses_mw"}
}

func (l *Losses) Name() string { return l.name }

func (l *Losses) Observe(res *powerflow.Results) {
	for _, table := range branchTables {
		each(res, table, "pl_mw", func(v float64) { l.total += v })
	}
}

func (l *Losses) Value() float64 { return l.total }

func (l *Losses) Reset() { l.total = 0 }

// MaxLoading is the highest loading of any line or transformer in percent.
type MaxLoading struct {
	name string
	max  float64
}

func NewMaxLoading() *MaxLoading {
	return &MaxLoading{name: "max_loading_percent"}
}

func (m *MaxLoading) Name() string { return m.name }

func (m *MaxLoading) Observe(res *powerflow.Results) {
	for _, table := range branchTables {
		each(res, table, "loading_percent", func(v float64) {
			if v > m.max {
				m.max = v
			}
		})
	}
}

func (m *MaxLoading) Value() float64 { return m.max }

func (m *MaxLoading) Reset() { m.max = 0 }
