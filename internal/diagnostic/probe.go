package diagnostic

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/gridiag/internal/network"
	"github.com/san-kum/gridiag/internal/powerflow"
)

// probe holds what the perturb and re-solve checks share.
type probe struct {
	solver powerflow.Solver
	log    logrus.FieldLogger
}

func (p probe) logger() logrus.FieldLogger {
	if p.log == nil {
		return logrus.StandardLogger()
	}
	return p.log
}

func (p probe) solve(ctx context.Context, net *network.Network) error {
	if p.solver == nil {
		return ErrNoSolver
	}
	_, err := p.solver.Solve(ctx, net, powerflow.Options{})
	return err
}

// failing solves the unmodified network and reports whether it fails to
// converge. A structural error is logged and reported as not failing, so
// the probe stops without a finding; other errors are returned.
func (p probe) failing(ctx context.Context, net *network.Network, what string) (bool, error) {
	err := p.solve(ctx, net)
	var structural *powerflow.StructuralError
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, powerflow.ErrNotConverged):
		return true, nil
	case errors.As(err, &structural):
		p.logger().WithError(err).Errorf("%s check failed", what)
		return false, nil
	}
	return false, err
}

// converges re-solves a perturbed network. A structural error means the
// perturbation did not help.
func (p probe) converges(ctx context.Context, net *network.Network) (bool, error) {
	err := p.solve(ctx, net)
	var structural *powerflow.StructuralError
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, powerflow.ErrNotConverged):
		return false, nil
	case errors.As(err, &structural):
		p.logger().WithError(err).Debug("perturbed network is structurally unsolvable")
		return false, nil
	}
	return false, err
}
