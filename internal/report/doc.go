// Package report renders diagnostic runs and power-flow results for the
// terminal.
//
// A detailed report lists every check with the lines explaining its
// finding, a compact one only the check names and how many lines each
// finding has. Passed checks can be dropped with WarningsOnly. Colors are
// applied only when the output is a terminal.
package report
