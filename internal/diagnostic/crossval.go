package diagnostic

import (
	"context"
	"math"

	"github.com/san-kum/gridiag/internal/network"
	"github.com/san-kum/gridiag/internal/powerflow"
)

// CrossValidation solves the network in accelerated and in plain mode and
// reports every result cell where the two differ by more than Tolerance.
// Solver errors are not handled here.
type CrossValidation struct {
	Solver    powerflow.Solver
	Tolerance float64
}

func (c *CrossValidation) Name() string { return CheckCrossValidation }

func (c *CrossValidation) Run(ctx context.Context, net *network.Network) (any, error) {
	if c.Solver == nil {
		return nil, ErrNoSolver
	}
	fast, err := c.Solver.Solve(ctx, net, powerflow.Options{Accelerated: true})
	if err != nil {
		return nil, err
	}
	plain, err := c.Solver.Solve(ctx, net, powerflow.Options{Accelerated: false})
	if err != nil {
		return nil, err
	}
	return CompareResults(fast, plain, c.Tolerance), nil
}

// CompareResults returns |a-b| for every cell present in both result sets
// whose absolute difference exceeds tol, keyed by table, column and row.
// Cells that are NaN on either side never count as a difference.
func CompareResults(a, b *powerflow.Results, tol float64) map[string]map[string]map[int]float64 {
	out := make(map[string]map[string]map[int]float64)
	if a == nil || b == nil {
		return out
	}
	for _, name := range powerflow.ResultTables {
		ta, okA := a.Tables[name]
		tb, okB := b.Tables[name]
		if !okA || !okB {
			continue
		}
		for _, col := range ta.Columns {
			for _, id := range ta.IDs() {
				va, _ := ta.Value(col, id)
				vb, ok := tb.Value(col, id)
				if !ok {
					continue
				}
				diff := math.Abs(va - vb)
				if !(diff > tol) {
					continue
				}
				if out[name] == nil {
					out[name] = make(map[string]map[int]float64)
				}
				if out[name][col] == nil {
					out[name][col] = make(map[int]float64)
				}
				out[name][col][id] = diff
			}
		}
	}
	return out
}
