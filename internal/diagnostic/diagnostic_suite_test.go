package diagnostic

import (
	"context"
	"io"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/gridiag/internal/network"
	"github.com/san-kum/gridiag/internal/powerflow"
)

func TestDiagnostic(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Diagnostic Suite")
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// feeder builds ext grid - line - load on a 20 kV level.
func feeder(loadMw float64) *network.Network {
	n := network.New("feeder")
	n.Buses.Append(network.Bus{VnKv: 20, InService: true})
	n.Buses.Append(network.Bus{VnKv: 20, InService: true})
	n.ExtGrids.Append(network.ExtGrid{Bus: 0, VmPu: 1, InService: true})
	n.Lines.Append(network.Line{
		FromBus: 0, ToBus: 1, LengthKm: 1,
		ROhmPerKm: 0.642, XOhmPerKm: 0.083, CNfPerKm: 210, MaxIKa: 0.142,
		Df: 1, Parallel: 1, InService: true,
	})
	n.Loads.Append(network.Load{Bus: 1, PMw: loadMw, QMvar: loadMw / 4, Scaling: 1, InService: true})
	return n
}

func addLine(n *network.Network, from, to int) int {
	return n.Lines.Append(network.Line{
		FromBus: from, ToBus: to, LengthKm: 1,
		ROhmPerKm: 0.1, XOhmPerKm: 0.1, MaxIKa: 0.4,
		Df: 1, Parallel: 1, InService: true,
	})
}

// threeSections builds two supplied sections and one unsupplied section
// made of buses 4-6, lines 2-3 and load 0.
func threeSections() *network.Network {
	n := network.New("sections")
	for i := 0; i < 7; i++ {
		n.Buses.Append(network.Bus{VnKv: 20, InService: true})
	}
	n.ExtGrids.Append(network.ExtGrid{Bus: 0, VmPu: 1, InService: true})
	addLine(n, 0, 1)
	addLine(n, 2, 3)
	n.Gens.Append(network.Gen{Bus: 3, VmPu: 1, Slack: true, Scaling: 1, InService: true})
	addLine(n, 4, 5)
	addLine(n, 5, 6)
	n.Loads.Append(network.Load{Bus: 6, PMw: 0.1, Scaling: 1, InService: true})
	n.CreateSwitch(1, 4, network.SwitchBus, false)
	return n
}

func gaussSeidel() powerflow.Solver {
	return powerflow.NewGaussSeidel(0, 0, 0)
}

func failingSolver() powerflow.Solver {
	return powerflow.SolverFunc(func(context.Context, *network.Network, powerflow.Options) (*powerflow.Results, error) {
		return nil, powerflow.ErrNotConverged
	})
}

func panickingSolver() powerflow.Solver {
	return powerflow.SolverFunc(func(context.Context, *network.Network, powerflow.Options) (*powerflow.Results, error) {
		panic("solver exploded")
	})
}

// loadLimitSolver converges only while the scaled load stays below limit
// times the nominal load.
func loadLimitSolver(nominal, limit float64) powerflow.Solver {
	return powerflow.SolverFunc(func(_ context.Context, net *network.Network, _ powerflow.Options) (*powerflow.Results, error) {
		var p float64
		net.Loads.Each(func(_ int, l network.Load) {
			if l.InService {
				p += l.PMw * l.Scaling
			}
		})
		if p >= limit*nominal {
			return nil, powerflow.ErrNotConverged
		}
		return powerflow.NewResults(), nil
	})
}
