package diagnostic

import (
	"context"
	"errors"
	"maps"
	"math"
	"slices"

	"github.com/san-kum/gridiag/internal/config"
	"github.com/san-kum/gridiag/internal/network"
	"github.com/san-kum/gridiag/internal/powerflow"
)

// ImpedanceWindow bounds plausible series impedances in ohm. A value is
// implausible below a minimum or at or above a maximum.
type ImpedanceWindow struct {
	MinR float64
	MinX float64
	MaxR float64
	MaxX float64
}

func WindowFromConfig(cfg *config.Config) ImpedanceWindow {
	return ImpedanceWindow{
		MinR: cfg.MinROhm,
		MinX: cfg.MinXOhm,
		MaxR: cfg.MaxROhm,
		MaxX: cfg.MaxXOhm,
	}
}

func (w ImpedanceWindow) badR(r float64) bool { return r >= w.MaxR || r < w.MinR }
func (w ImpedanceWindow) badX(x float64) bool { return x >= w.MaxX || x < w.MinX }

// ImplausibleImpedances lists in-service elements whose series impedance
// lies outside the window, keyed by table name.
func ImplausibleImpedances(net *network.Network, w ImpedanceWindow) map[string][]int {
	out := make(map[string][]int)
	flag := func(table network.TableName, id int) {
		out[string(table)] = append(out[string(table)], id)
	}

	net.Lines.Each(func(id int, l network.Line) {
		if l.InService && (w.badR(l.ROhm()) || w.badX(l.XOhm())) {
			flag(network.TableLine, id)
		}
	})
	net.XWards.Each(func(id int, xw network.XWard) {
		if xw.InService && (w.badR(math.Abs(xw.ROhm)) || w.badX(math.Abs(xw.XOhm))) {
			flag(network.TableXWard, id)
		}
	})
	net.Impedances.Each(func(id int, imp network.Impedance) {
		if !imp.InService {
			return
		}
		from, okF := net.Buses.Get(imp.FromBus)
		to, okT := net.Buses.Get(imp.ToBus)
		if !okF || !okT {
			return
		}
		zf := from.VnKv * from.VnKv / imp.SnMva
		zt := to.VnKv * to.VnKv / imp.SnMva
		bad := func(v, lo, hi, zbase float64) bool {
			v = math.Abs(v)
			return v >= hi/zbase || v < lo/zbase
		}
		if bad(imp.RftPu, w.MinR, w.MaxR, zf) || bad(imp.XftPu, w.MinX, w.MaxX, zf) ||
			bad(imp.RtfPu, w.MinR, w.MaxR, zt) || bad(imp.XtfPu, w.MinX, w.MaxX, zt) {
			flag(network.TableImpedance, id)
		}
	})
	// Short-circuit reactance referred to the high side against the upper
	// bound and to the low side against the lower bound.
	leg := func(vkPercent, vnHigh, vnLow, sn float64) bool {
		return vkPercent/100*vnHigh*vnHigh/sn >= w.MaxX || vkPercent/100*vnLow*vnLow/sn < w.MinX
	}
	net.Trafos.Each(func(id int, t network.Trafo) {
		if t.InService && leg(t.VkPercent, t.VnHvKv, t.VnLvKv, t.SnMva) {
			flag(network.TableTrafo, id)
		}
	})
	net.Trafos3w.Each(func(id int, t network.Trafo3w) {
		if t.InService && (leg(t.VkHvPercent, t.VnHvKv, t.VnMvKv, t.SnHvMva) ||
			leg(t.VkMvPercent, t.VnMvKv, t.VnLvKv, t.SnMvMva) ||
			leg(t.VkLvPercent, t.VnHvKv, t.VnLvKv, t.SnLvMva)) {
			flag(network.TableTrafo3w, id)
		}
	})
	net.VSCs.Each(func(id int, v network.VSC) {
		if v.InService && (v.ROhm < w.MinR || v.XOhm < w.MinX || v.RDcOhm < w.MinR) {
			flag(network.TableVSC, id)
		}
	})
	net.LinesDC.Each(func(id int, l network.LineDC) {
		if l.InService && l.ROhm() < w.MinR {
			flag(network.TableLineDC, id)
		}
	})
	return out
}

// ImpedanceResult holds the flagged elements and, when the probe ran,
// whether the network converges with them bridged or replaced.
type ImpedanceResult struct {
	Elements                 map[string][]int `json:"elements" yaml:"elements"`
	ConvergesWithReplacement *bool            `json:"loadflow_converges_with_switch_replacement,omitempty" yaml:"loadflow_converges_with_switch_replacement,omitempty"`
}

// ImpedanceCheck flags implausible impedances and, if a flagged line,
// impedance or xward could explain a failing power flow, tests whether the
// network converges once they are replaced.
type ImpedanceCheck struct {
	probe
	Window     ImpedanceWindow
	Substitute config.SubstituteConfig
}

var impedanceTables = []network.TableName{
	network.TableSwitch, network.TableLine, network.TableImpedance,
	network.TableVSC, network.TableLineDC, network.TableWard,
	network.TableXWard, network.TableTrafo, network.TableTrafo3w,
}

func (c *ImpedanceCheck) Name() string { return CheckImpedance }

func (c *ImpedanceCheck) Run(ctx context.Context, net *network.Network) (any, error) {
	elements := ImplausibleImpedances(net, c.Window)
	if len(elements) == 0 {
		return nil, nil
	}
	res := &ImpedanceResult{Elements: elements}

	_, line := elements[string(network.TableLine)]
	_, imp := elements[string(network.TableImpedance)]
	_, xward := elements[string(network.TableXWard)]
	if !line && !imp && !xward {
		return res, nil
	}

	snap, err := net.Snapshot(impedanceTables...)
	if err != nil {
		return nil, err
	}
	defer snap.Restore()

	err = c.solve(ctx, net)
	var structural *powerflow.StructuralError
	switch {
	case err == nil:
		return res, nil
	case errors.Is(err, powerflow.ErrNotConverged), errors.Is(err, powerflow.ErrSingular):
	case errors.As(err, &structural):
		c.logger().WithError(err).Error("impedance values check failed")
		return res, nil
	default:
		return nil, err
	}

	if err := c.replace(net, elements); err != nil {
		return nil, err
	}
	ok, err := c.converges(ctx, net)
	if err != nil {
		return nil, err
	}
	res.ConvergesWithReplacement = &ok
	return res, nil
}

// replace takes every flagged element out of service and bridges it: xwards
// become wards, transformers become small impedances, lines and impedances
// become closed bus-bus switches. Converter and DC line parameters are
// raised to a floor instead.
func (c *ImpedanceCheck) replace(net *network.Network, elements map[string][]int) error {
	sub := c.Substitute
	for _, table := range slices.Sorted(maps.Keys(elements)) {
		ids := elements[table]
		switch network.TableName(table) {
		case network.TableVSC:
			net.VSCs.UpdateAll(func(_ int, v *network.VSC) {
				v.XOhm = math.Max(v.XOhm, sub.MinDCOhm)
				v.RDcOhm = math.Max(v.RDcOhm, sub.MinDCOhm)
			})
			setOutOfService(&net.VSCs, ids, func(v *network.VSC) { v.InService = false })
		case network.TableLineDC:
			net.LinesDC.UpdateAll(func(_ int, l *network.LineDC) {
				l.LengthKm = math.Max(l.LengthKm, sub.MinDCLengthKm)
				l.ROhmPerKm = math.Max(l.ROhmPerKm, sub.MinDCOhm)
			})
			setOutOfService(&net.LinesDC, ids, func(l *network.LineDC) { l.InService = false })
		case network.TableXWard:
			if _, err := net.ReplaceXWardByWard(ids); err != nil {
				return err
			}
		case network.TableTrafo:
			for _, id := range ids {
				t, _ := net.Trafos.Get(id)
				t.InService = false
				_ = net.Trafos.Set(id, t)
				net.CreateImpedance(t.HVBus, t.LVBus, 0, sub.TrafoXPu, sub.TrafoSnMva)
			}
		case network.TableTrafo3w:
			for _, id := range ids {
				t, _ := net.Trafos3w.Get(id)
				t.InService = false
				_ = net.Trafos3w.Set(id, t)
				net.CreateImpedance(t.HVBus, t.MVBus, 0, sub.TrafoXPu, sub.TrafoSnMva)
				net.CreateImpedance(t.MVBus, t.LVBus, 0, sub.TrafoXPu, sub.TrafoSnMva)
				net.CreateImpedance(t.HVBus, t.LVBus, 0, sub.TrafoXPu, sub.TrafoSnMva)
			}
		case network.TableLine:
			for _, id := range ids {
				l, _ := net.Lines.Get(id)
				l.InService = false
				_ = net.Lines.Set(id, l)
				net.CreateSwitch(l.FromBus, l.ToBus, network.SwitchBus, true)
			}
		case network.TableImpedance:
			for _, id := range ids {
				imp, _ := net.Impedances.Get(id)
				imp.InService = false
				_ = net.Impedances.Set(id, imp)
				net.CreateSwitch(imp.FromBus, imp.ToBus, network.SwitchBus, true)
			}
		}
	}
	return nil
}

func setOutOfService[T any](t *network.Table[T], ids []int, fn func(*T)) {
	for _, id := range ids {
		_ = t.Update(id, fn)
	}
}
