package report

import (
	"fmt"
	"io"
	"math"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/gridiag/internal/powerflow"
)

// VoltageProfile plots the bus voltage magnitudes of a solved network in
// bus id order. Unsupplied buses are left out.
func VoltageProfile(w io.Writer, res *powerflow.Results, width, height int) error {
	bus, ok := res.Tables[powerflow.ResBus]
	if !ok {
		return fmt.Errorf("report: no %s table", powerflow.ResBus)
	}
	var vm []float64
	for _, id := range bus.IDs() {
		if v, ok := bus.Value("vm_pu", id); ok && !math.IsNaN(v) {
			vm = append(vm, v)
		}
	}
	if len(vm) == 0 {
		return fmt.Errorf("report: no supplied bus to plot")
	}

	graph := asciigraph.Plot(vm,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.Caption("bus voltage [p.u.]"),
		asciigraph.Precision(4),
	)
	_, err := fmt.Fprintln(w, graph)
	return err
}
