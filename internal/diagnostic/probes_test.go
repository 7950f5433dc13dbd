package diagnostic

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gridiag/internal/config"
	"github.com/san-kum/gridiag/internal/network"
	"github.com/san-kum/gridiag/internal/powerflow"
)

var _ = Describe("Recovery probes", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("OverloadCheck", func() {
		var net *network.Network

		BeforeEach(func() {
			net = feeder(10)
			net.Loads.Append(network.Load{Bus: 1, PMw: 10, Scaling: 0.8, InService: true})
			net.Sgens.Append(network.Sgen{Bus: 1, PMw: 2, Scaling: 0.5, InService: true})
			net.Gens.Append(network.Gen{Bus: 0, PMw: 3, VmPu: 1, Scaling: 0.9, InService: true})
		})

		It("finds a load overload and restores the exact scaling", func() {
			before := net.Clone()
			check := &OverloadCheck{
				probe:         probe{solver: loadLimitSolver(20, 0.01), log: quietLogger()},
				ScalingFactor: config.DefaultOverloadScalingFactor,
			}

			res, err := check.Run(ctx, net)
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(Equal(OverloadResult{Load: true}))
			Expect(net).To(Equal(before))
		})

		It("reports a generation overload when loads do not matter", func() {
			solver := powerflow.SolverFunc(func(_ context.Context, n *network.Network, _ powerflow.Options) (*powerflow.Results, error) {
				var p float64
				n.Sgens.Each(func(_ int, s network.Sgen) { p += s.PMw * s.Scaling })
				n.Gens.Each(func(_ int, g network.Gen) { p += g.PMw * g.Scaling })
				if p > 0.1 {
					return nil, powerflow.ErrNotConverged
				}
				return powerflow.NewResults(), nil
			})
			check := &OverloadCheck{probe: probe{solver: solver, log: quietLogger()}, ScalingFactor: 0.001}

			res, err := check.Run(ctx, net)
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(Equal(OverloadResult{Generation: true}))
		})

		It("reports both when only scaling everything helps", func() {
			solver := powerflow.SolverFunc(func(_ context.Context, n *network.Network, _ powerflow.Options) (*powerflow.Results, error) {
				l, _ := n.Loads.Get(0)
				g, _ := n.Gens.Get(0)
				if l.Scaling > 0.01 || g.Scaling > 0.01 {
					return nil, powerflow.ErrNotConverged
				}
				return powerflow.NewResults(), nil
			})
			check := &OverloadCheck{probe: probe{solver: solver, log: quietLogger()}, ScalingFactor: 0.001}

			res, err := check.Run(ctx, net)
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(Equal(OverloadResult{Load: true, Generation: true}))
		})

		It("reports nothing when no scaling helps", func() {
			before := net.Clone()
			check := &OverloadCheck{probe: probe{solver: failingSolver(), log: quietLogger()}, ScalingFactor: 0.001}

			res, err := check.Run(ctx, net)
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(BeNil())
			Expect(net).To(Equal(before))
		})

		It("reports nothing when the network converges", func() {
			check := &OverloadCheck{probe: probe{solver: loadLimitSolver(20, 10), log: quietLogger()}, ScalingFactor: 0.001}
			res, err := check.Run(ctx, net)
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(BeNil())
		})

		It("stops on a structural error", func() {
			solver := powerflow.SolverFunc(func(context.Context, *network.Network, powerflow.Options) (*powerflow.Results, error) {
				return nil, &powerflow.StructuralError{Wrapped: powerflow.ErrNoReference}
			})
			check := &OverloadCheck{probe: probe{solver: solver, log: quietLogger()}, ScalingFactor: 0.001}

			res, err := check.Run(ctx, net)
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(BeNil())
		})

		It("restores the network when the solver fails mid-ladder", func() {
			before := net.Clone()
			calls := 0
			solver := powerflow.SolverFunc(func(context.Context, *network.Network, powerflow.Options) (*powerflow.Results, error) {
				calls++
				if calls == 1 {
					return nil, powerflow.ErrNotConverged
				}
				return nil, context.Canceled
			})
			check := &OverloadCheck{probe: probe{solver: solver, log: quietLogger()}, ScalingFactor: 0.001}

			_, err := check.Run(ctx, net)
			Expect(err).To(MatchError(context.Canceled))
			Expect(net).To(Equal(before))
		})
	})

	Describe("SwitchCheck", func() {
		It("finds an open switch that breaks convergence", func() {
			net := threeSections()
			before := net.Clone()
			solver := powerflow.SolverFunc(func(_ context.Context, n *network.Network, _ powerflow.Options) (*powerflow.Results, error) {
				open := false
				n.Switches.Each(func(_ int, s network.Switch) { open = open || !s.Closed })
				if open {
					return nil, powerflow.ErrNotConverged
				}
				return powerflow.NewResults(), nil
			})

			res, err := (&SwitchCheck{probe{solver: solver, log: quietLogger()}}).Run(ctx, net)
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(Equal(true))
			Expect(net).To(Equal(before))
		})

		It("reports nothing when the network converges", func() {
			res, err := (&SwitchCheck{probe{solver: gaussSeidel(), log: quietLogger()}}).Run(ctx, feeder(1))
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(BeNil())
		})
	})

	Describe("ImplausibleImpedances", func() {
		w := WindowFromConfig(config.DefaultConfig())

		lineWithR := func(r float64) *network.Network {
			n := feeder(1)
			_ = n.Lines.Update(0, func(l *network.Line) {
				l.LengthKm = 1
				l.ROhmPerKm = r
				l.XOhmPerKm = 1
			})
			return n
		}

		DescribeTable("line resistance around the bounds",
			func(r float64, flagged bool) {
				got := ImplausibleImpedances(lineWithR(r), w)
				if flagged {
					Expect(got).To(Equal(map[string][]int{"line": {0}}))
				} else {
					Expect(got).To(BeEmpty())
				}
			},
			Entry("exactly at the minimum", config.DefaultMinROhm, false),
			Entry("one ulp below the minimum", math.Nextafter(config.DefaultMinROhm, 0), true),
			Entry("just below the maximum", math.Nextafter(config.DefaultMaxROhm, 0), false),
			Entry("exactly at the maximum", config.DefaultMaxROhm, true),
		)

		It("checks every element kind", func() {
			n := feeder(1)
			n.Buses.Append(network.Bus{VnKv: 0.4, InService: true})
			n.XWards.Append(network.XWard{Bus: 1, ROhm: -0.5, XOhm: 0, InService: true})
			n.XWards.Append(network.XWard{Bus: 1, ROhm: 0, XOhm: 0, InService: false})
			n.Impedances.Append(network.Impedance{FromBus: 0, ToBus: 1, RftPu: 1e-9, XftPu: 0.1, RtfPu: 0.1, XtfPu: 0.1, SnMva: 1, InService: true})
			n.Trafos.Append(network.Trafo{HVBus: 1, LVBus: 2, SnMva: 0.001, VnHvKv: 20, VnLvKv: 0.4, VkPercent: 6, InService: true})
			n.Trafos3w.Append(network.Trafo3w{HVBus: 0, MVBus: 1, LVBus: 2, SnHvMva: 1, SnMvMva: 1, SnLvMva: 1, VnHvKv: 20, VnMvKv: 20, VnLvKv: 0.4,
				VkHvPercent: 1e-6, VkMvPercent: 6, VkLvPercent: 6, InService: true})
			n.VSCs.Append(network.VSC{Bus: 1, ROhm: 1, XOhm: 1, RDcOhm: 0, InService: true})
			n.LinesDC.Append(network.LineDC{LengthKm: 0, ROhmPerKm: 1, InService: true})

			Expect(ImplausibleImpedances(n, w)).To(Equal(map[string][]int{
				"xward":     {0},
				"impedance": {0},
				"trafo":     {0},
				"trafo3w":   {0},
				"vsc":       {0},
				"line_dc":   {0},
			}))
		})
	})

	Describe("ImpedanceCheck", func() {
		newCheck := func(solver powerflow.Solver) *ImpedanceCheck {
			cfg := config.DefaultConfig()
			return &ImpedanceCheck{
				probe:      probe{solver: solver, log: quietLogger()},
				Window:     WindowFromConfig(cfg),
				Substitute: cfg.Substitute,
			}
		}

		// shortLineSolver fails while any in-service line has no resistance.
		shortLineSolver := powerflow.SolverFunc(func(_ context.Context, n *network.Network, _ powerflow.Options) (*powerflow.Results, error) {
			short := false
			n.Lines.Each(func(_ int, l network.Line) { short = short || (l.InService && l.ROhm() == 0) })
			if short {
				return nil, &powerflow.StructuralError{Table: network.TableLine, Wrapped: powerflow.ErrSingular}
			}
			return powerflow.NewResults(), nil
		})

		It("bridges flagged lines and restores the network", func() {
			net := feeder(1)
			net.Buses.Append(network.Bus{VnKv: 20, InService: true})
			short := net.Lines.Append(network.Line{FromBus: 1, ToBus: 2, LengthKm: 1, Df: 1, Parallel: 1, InService: true})
			net.Trafos.Append(network.Trafo{HVBus: 0, LVBus: 2, SnMva: 1e-6, VnHvKv: 20, VnLvKv: 20, VkPercent: 6, InService: true})
			before := net.Clone()

			res, err := newCheck(shortLineSolver).Run(ctx, net)
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(BeAssignableToTypeOf(&ImpedanceResult{}))

			ir := res.(*ImpedanceResult)
			Expect(ir.Elements).To(Equal(map[string][]int{"line": {short}, "trafo": {0}}))
			Expect(ir.ConvergesWithReplacement).NotTo(BeNil())
			Expect(*ir.ConvergesWithReplacement).To(BeTrue())
			Expect(net).To(Equal(before))
		})

		It("does not probe when only transformers are flagged", func() {
			net := feeder(1)
			net.Trafos.Append(network.Trafo{HVBus: 0, LVBus: 1, SnMva: 1e-6, VnHvKv: 20, VnLvKv: 20, VkPercent: 6, InService: true})

			res, err := newCheck(failingSolver()).Run(ctx, net)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.(*ImpedanceResult).ConvergesWithReplacement).To(BeNil())
		})

		It("records a replacement that does not help", func() {
			net := feeder(1)
			_ = net.Lines.Update(0, func(l *network.Line) { l.XOhmPerKm = 0 })

			res, err := newCheck(failingSolver()).Run(ctx, net)
			Expect(err).NotTo(HaveOccurred())
			Expect(*res.(*ImpedanceResult).ConvergesWithReplacement).To(BeFalse())
		})

		It("returns nil for plausible values", func() {
			res, err := newCheck(failingSolver()).Run(ctx, feeder(1))
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(BeNil())
		})
	})

	Describe("CrossValidation", func() {
		stub := func(delta float64) powerflow.Solver {
			return powerflow.SolverFunc(func(_ context.Context, _ *network.Network, opts powerflow.Options) (*powerflow.Results, error) {
				res := powerflow.NewResults()
				vm := 1.0
				if opts.Accelerated {
					vm += delta
				}
				res.Table(powerflow.ResBus).Set(0, vm, 0, 1, 0.25)
				res.Table(powerflow.ResBus).Set(1, 0.99, -1, math.NaN(), 0)
				res.Table(powerflow.ResLine).Set(0, 1, 0.25, -1, -0.25)
				return res, nil
			})
		}

		It("is empty below the tolerance", func() {
			res, err := (&CrossValidation{Solver: stub(5e-6), Tolerance: 1e-5}).Run(ctx, feeder(1))
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(BeEmpty())
		})

		It("reports exactly the deviating cell", func() {
			res, err := (&CrossValidation{Solver: stub(1e-3), Tolerance: 1e-5}).Run(ctx, feeder(1))
			Expect(err).NotTo(HaveOccurred())

			diffs := res.(map[string]map[string]map[int]float64)
			Expect(diffs).To(HaveLen(1))
			Expect(diffs[powerflow.ResBus]).To(HaveLen(1))
			Expect(diffs[powerflow.ResBus]["vm_pu"]).To(HaveLen(1))
			Expect(diffs[powerflow.ResBus]["vm_pu"][0]).To(BeNumerically("~", 1e-3, 1e-12))
		})

		It("passes solver errors through", func() {
			_, err := (&CrossValidation{Solver: failingSolver(), Tolerance: 1e-5}).Run(ctx, feeder(1))
			Expect(errors.Is(err, powerflow.ErrNotConverged)).To(BeTrue())
		})

		It("agrees with itself on the reference solver", func() {
			res, err := (&CrossValidation{Solver: gaussSeidel(), Tolerance: 1e-5}).Run(ctx, feeder(1))
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(BeEmpty())
		})
	})
})
