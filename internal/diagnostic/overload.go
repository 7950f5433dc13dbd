package diagnostic

import (
	"context"

	"github.com/san-kum/gridiag/internal/network"
)

// OverloadResult tells which scaling made a failing network converge. The
// check reports no result at all when no scaling helped.
type OverloadResult struct {
	Load       bool `json:"load" yaml:"load"`
	Generation bool `json:"generation" yaml:"generation"`
}

// OverloadCheck tests whether a non-converging network is simply
// overloaded, by scaling loads, then generation, then both down to
// ScalingFactor.
type OverloadCheck struct {
	probe
	ScalingFactor float64
}

var overloadTables = []network.TableName{network.TableLoad, network.TableGen, network.TableSgen}

func (c *OverloadCheck) Name() string { return CheckOverload }

func (c *OverloadCheck) Run(ctx context.Context, net *network.Network) (any, error) {
	snap, err := net.Snapshot(overloadTables...)
	if err != nil {
		return nil, err
	}
	defer snap.Restore()

	failing, err := c.failing(ctx, net, "overload")
	if err != nil || !failing {
		return nil, err
	}

	var res OverloadResult
	c.scaleLoads(net)
	ok, err := c.converges(ctx, net)
	if err != nil {
		return nil, err
	}
	if ok {
		res.Load = true
		return res, nil
	}

	snap.Restore(network.TableLoad)
	c.scaleGeneration(net)
	if ok, err = c.converges(ctx, net); err != nil {
		return nil, err
	}
	if ok {
		res.Generation = true
		return res, nil
	}

	snap.Restore(network.TableGen, network.TableSgen)
	c.scaleLoads(net)
	c.scaleGeneration(net)
	if ok, err = c.converges(ctx, net); err != nil {
		return nil, err
	}
	if ok {
		res.Load, res.Generation = true, true
		return res, nil
	}
	c.logger().Debug("overload check did not help")
	return nil, nil
}

func (c *OverloadCheck) scaleLoads(net *network.Network) {
	net.Loads.UpdateAll(func(_ int, l *network.Load) { l.Scaling = c.ScalingFactor })
}

func (c *OverloadCheck) scaleGeneration(net *network.Network) {
	net.Gens.UpdateAll(func(_ int, g *network.Gen) { g.Scaling = c.ScalingFactor })
	net.Sgens.UpdateAll(func(_ int, s *network.Sgen) { s.Scaling = c.ScalingFactor })
}
