package powerflow

import (
	"context"
	"maps"
	"slices"

	"github.com/san-kum/gridiag/internal/network"
)

// Solver runs an AC power flow on a network. A nil error means the solve
// converged. Non-convergence is reported as ErrNotConverged, a broken
// network as *StructuralError. Solve must not modify the network.
type Solver interface {
	Solve(ctx context.Context, net *network.Network, opts Options) (*Results, error)
}

// Options selects between execution modes of the same solver. Both modes
// converge to the same operating point within the solver tolerance.
type Options struct {
	Accelerated bool
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(ctx context.Context, net *network.Network, opts Options) (*Results, error)

func (f SolverFunc) Solve(ctx context.Context, net *network.Network, opts Options) (*Results, error) {
	return f(ctx, net, opts)
}

// Result table names, in report order.
const (
	ResBus       = "res_bus"
	ResLine      = "res_line"
	ResTrafo     = "res_trafo"
	ResTrafo3w   = "res_trafo3w"
	ResImpedance = "res_impedance"
	ResLoad      = "res_load"
	ResSgen      = "res_sgen"
	ResGen       = "res_gen"
	ResExtGrid   = "res_ext_grid"
	ResWard      = "res_ward"
	ResXWard     = "res_xward"
)

var ResultTables = []string{
	ResBus, ResLine, ResTrafo, ResTrafo3w, ResImpedance,
	ResLoad, ResSgen, ResGen, ResExtGrid, ResWard, ResXWard,
}

var resultColumns = map[string][]string{
	ResBus:       {"vm_pu", "va_degree", "p_mw", "q_mvar"},
	ResLine:      {"p_from_mw", "q_from_mvar", "p_to_mw", "q_to_mvar", "pl_mw", "ql_mvar", "i_from_ka", "i_to_ka", "loading_percent"},
	ResTrafo:     {"p_hv_mw", "q_hv_mvar", "p_lv_mw", "q_lv_mvar", "pl_mw", "ql_mvar", "loading_percent"},
	ResTrafo3w:   {"p_hv_mw", "q_hv_mvar", "p_mv_mw", "q_mv_mvar", "p_lv_mw", "q_lv_mvar", "pl_mw", "ql_mvar", "loading_percent"},
	ResImpedance: {"p_from_mw", "q_from_mvar", "p_to_mw", "q_to_mvar", "pl_mw", "ql_mvar"},
	ResLoad:      {"p_mw", "q_mvar"},
	ResSgen:      {"p_mw", "q_mvar"},
	ResGen:       {"p_mw", "q_mvar", "vm_pu", "va_degree"},
	ResExtGrid:   {"p_mw", "q_mvar"},
	ResWard:      {"p_mw", "q_mvar", "vm_pu"},
	ResXWard:     {"p_mw", "q_mvar", "vm_pu"},
}

// Columns returns the column names of a result table.
func Columns(table string) []string {
	return slices.Clone(resultColumns[table])
}

// ResultTable holds one value per column for each element id. Elements
// that are out of service or disconnected from every slack carry NaN.
type ResultTable struct {
	Columns []string
	Rows    map[int][]float64
}

func NewResultTable(columns ...string) *ResultTable {
	return &ResultTable{Columns: columns, Rows: make(map[int][]float64)}
}

// Set stores the values of one row, in column order.
func (t *ResultTable) Set(id int, values ...float64) {
	row := make([]float64, len(t.Columns))
	copy(row, values)
	t.Rows[id] = row
}

// Value returns the value of a cell.
func (t *ResultTable) Value(column string, id int) (float64, bool) {
	i := slices.Index(t.Columns, column)
	row, ok := t.Rows[id]
	if i < 0 || !ok {
		return 0, false
	}
	return row[i], true
}

// IDs returns the row ids in ascending order.
func (t *ResultTable) IDs() []int {
	return slices.Sorted(maps.Keys(t.Rows))
}

// Results are the result tables of one solve, keyed by result table name.
type Results struct {
	Iterations int
	Tables     map[string]*ResultTable
}

func NewResults() *Results {
	return &Results{Tables: make(map[string]*ResultTable)}
}

// Table returns the named table, creating it with its standard columns
// when absent.
func (r *Results) Table(name string) *ResultTable {
	if t, ok := r.Tables[name]; ok {
		return t
	}
	t := NewResultTable(Columns(name)...)
	r.Tables[name] = t
	return t
}
