package diagnostic

import (
	"context"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/gridiag/internal/config"
	"github.com/san-kum/gridiag/internal/network"
	"github.com/san-kum/gridiag/internal/powerflow"
)

// Check names, also the keys of Findings and Errors.
const (
	CheckMissingBusIndices    = "missing_bus_indices"
	CheckDisconnectedElements = "disconnected_elements"
	CheckVoltageLevels        = "different_voltage_levels_connected"
	CheckImpedance            = "implausible_impedance_values"
	CheckNominalVoltages      = "nominal_voltages_dont_match"
	CheckInvalidValues        = "invalid_values"
	CheckOverload             = "overload"
	CheckSwitches             = "wrong_switch_configuration"
	CheckVoltageControllers   = "multiple_voltage_controlling_elements_per_bus"
	CheckNoExtGrid            = "no_ext_grid"
	CheckReferenceSystem      = "wrong_reference_system"
	CheckStdTypes             = "deviation_from_std_type"
	CheckCrossValidation      = "numba_comparison"
	CheckParallelSwitches     = "parallel_switches"
)

// Check is one diagnostic unit. Run returns a nil or empty payload when it
// found nothing. Checks that modify the network restore it before
// returning.
type Check interface {
	Name() string
	Run(ctx context.Context, net *network.Network) (any, error)
}

// Deps are handed to every check factory. A check copies the configuration
// fields it reads when it is built.
type Deps struct {
	Solver powerflow.Solver
	Config *config.Config
	Log    logrus.FieldLogger
}

type factory func(Deps) Check

type staticCheck struct {
	name string
	fn   func(*network.Network) any
}

func (c staticCheck) Name() string { return c.name }

func (c staticCheck) Run(_ context.Context, net *network.Network) (any, error) {
	return c.fn(net), nil
}

func static(name string, fn func(*network.Network) any) factory {
	return func(Deps) Check { return staticCheck{name: name, fn: fn} }
}

type registration struct {
	name  string
	build factory
}

var registry = []registration{
	{CheckMissingBusIndices, static(CheckMissingBusIndices, func(n *network.Network) any {
		return MissingBusIndices(n)
	})},
	{CheckDisconnectedElements, static(CheckDisconnectedElements, func(n *network.Network) any {
		return DisconnectedElements(n)
	})},
	{CheckVoltageLevels, static(CheckVoltageLevels, func(n *network.Network) any {
		return DifferentVoltageLevels(n)
	})},
	{CheckImpedance, func(d Deps) Check {
		return &ImpedanceCheck{
			probe:      probe{solver: d.Solver, log: d.Log},
			Window:     WindowFromConfig(d.Config),
			Substitute: d.Config.Substitute,
		}
	}},
	{CheckNominalVoltages, func(d Deps) Check {
		tol := d.Config.NomVoltageTolerance
		return staticCheck{name: CheckNominalVoltages, fn: func(n *network.Network) any {
			return NominalVoltageMismatch(n, tol)
		}}
	}},
	{CheckInvalidValues, static(CheckInvalidValues, func(n *network.Network) any {
		return InvalidValues(n)
	})},
	{CheckOverload, func(d Deps) Check {
		return &OverloadCheck{
			probe:         probe{solver: d.Solver, log: d.Log},
			ScalingFactor: d.Config.OverloadScalingFactor,
		}
	}},
	{CheckSwitches, func(d Deps) Check {
		return &SwitchCheck{probe: probe{solver: d.Solver, log: d.Log}}
	}},
	{CheckVoltageControllers, static(CheckVoltageControllers, func(n *network.Network) any {
		return MultipleVoltageControllers(n)
	})},
	{CheckNoExtGrid, static(CheckNoExtGrid, func(n *network.Network) any {
		if NoExtGrid(n) {
			return true
		}
		return nil
	})},
	{CheckReferenceSystem, static(CheckReferenceSystem, func(n *network.Network) any {
		return WrongReferenceSystem(n)
	})},
	{CheckStdTypes, static(CheckStdTypes, func(n *network.Network) any {
		return StdTypeDeviations(n)
	})},
	{CheckCrossValidation, func(d Deps) Check {
		return &CrossValidation{Solver: d.Solver, Tolerance: d.Config.NumbaTolerance}
	}},
	{CheckParallelSwitches, static(CheckParallelSwitches, func(n *network.Network) any {
		return ParallelSwitches(n)
	})},
}

// Catalog returns every registered check name in run order.
func Catalog() []string {
	names := make([]string, len(registry))
	for i, entry := range registry {
		names[i] = entry.name
	}
	return names
}

func lookup(name string) (factory, error) {
	i := slices.IndexFunc(registry, func(r registration) bool { return r.name == name })
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCheck, name)
	}
	return registry[i].build, nil
}
