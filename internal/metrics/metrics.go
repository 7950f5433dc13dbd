package metrics

import (
	"math"

	"github.com/san-kum/gridiag/internal/powerflow"
)

// Metric condenses power-flow results into one number. Observe may be
// called with the results of several solves; Value then covers all of them.
type Metric interface {
	Name() string
	Observe(res *powerflow.Results)
	Value() float64
	Reset()
}

// Standard returns the metrics printed after a solve.
func Standard() []Metric {
	return []Metric{NewMinVoltage(), NewMaxVoltage(), NewLosses(), NewMaxLoading()}
}

// Evaluate feeds res to every metric and returns their values by name.
func Evaluate(res *powerflow.Results, ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
		m.Observe(res)
		out[m.Name()] = m.Value()
	}
	return out
}

// each calls fn for every non-NaN value of column in table.
func each(res *powerflow.Results, table, column string, fn func(v float64)) {
	if res == nil {
		return
	}
	t, ok := res.Tables[table]
	if !ok {
		return
	}
	for _, id := range t.IDs() {
		v, ok := t.Value(column, id)
		if !ok || math.IsNaN(v) {
			continue
		}
		fn(v)
	}
}
