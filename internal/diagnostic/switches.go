package diagnostic

import (
	"context"

	"github.com/san-kum/gridiag/internal/network"
)

// SwitchCheck tests whether a non-converging network converges with every
// switch closed. The payload is that outcome as a bool.
type SwitchCheck struct {
	probe
}

func (c *SwitchCheck) Name() string { return CheckSwitches }

func (c *SwitchCheck) Run(ctx context.Context, net *network.Network) (any, error) {
	snap, err := net.Snapshot(network.TableSwitch)
	if err != nil {
		return nil, err
	}
	defer snap.Restore()

	failing, err := c.failing(ctx, net, "switch")
	if err != nil || !failing {
		return nil, err
	}

	net.Switches.UpdateAll(func(_ int, s *network.Switch) { s.Closed = true })
	ok, err := c.converges(ctx, net)
	if err != nil {
		return nil, err
	}
	return ok, nil
}
