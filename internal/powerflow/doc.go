// Package powerflow defines the solver boundary used by the diagnostics and
// a reference Gauss-Seidel AC power-flow solver.
//
// Every [Solver] returns one of three outcomes:
//
//   - converged: a nil error and the result tables
//   - [ErrNotConverged]: the iteration limit was reached or the iteration
//     diverged; a modified network may still converge
//   - [*StructuralError]: the network cannot be solved as given (no slack,
//     singular branch, dangling bus reference)
//
// [Options.Accelerated] selects between two execution modes that converge
// to the same operating point along different iteration paths, so comparing
// them measures numerical sensitivity.
//
// # Model
//
// The reference solver works in per unit on the network base power. Buses
// joined by closed bus-bus switches are merged into one node, branches
// addressed by an open switch are left out, and nodes that cannot reach an
// ext grid or slack gen are reported with NaN results.
package powerflow
