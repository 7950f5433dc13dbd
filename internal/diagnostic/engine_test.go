package diagnostic

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gridiag/internal/config"
	"github.com/san-kum/gridiag/internal/network"
	"github.com/san-kum/gridiag/internal/powerflow"
)

var _ = Describe("Engine", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	newEngine := func(solver powerflow.Solver, opts ...Option) *Engine {
		return New(solver, config.DefaultConfig(), append([]Option{WithLogger(quietLogger())}, opts...)...)
	}

	It("reports nothing for a healthy feeder", func() {
		findings, errs, err := newEngine(gaussSeidel()).Run(ctx, feeder(1))
		Expect(err).NotTo(HaveOccurred())
		Expect(errs).To(BeEmpty())
		Expect(findings).To(BeEmpty())
	})

	It("diagnoses an overloaded feeder", func() {
		findings, errs, err := newEngine(gaussSeidel()).Run(ctx, feeder(1000))
		Expect(err).NotTo(HaveOccurred())

		Expect(findings).To(HaveKeyWithValue(CheckOverload, OverloadResult{Load: true}))
		Expect(findings).To(HaveKeyWithValue(CheckSwitches, false))
		Expect(errs).To(HaveKey(CheckCrossValidation))
		Expect(errors.Is(errs[CheckCrossValidation], powerflow.ErrNotConverged)).To(BeTrue())
	})

	It("is idempotent", func() {
		net := threeSections()
		net.Loads.Append(network.Load{Bus: 42, PMw: -1, Scaling: 1, InService: true})
		eng := newEngine(gaussSeidel())

		first, firstErrs, err := eng.Run(ctx, net)
		Expect(err).NotTo(HaveOccurred())
		second, secondErrs, err := eng.Run(ctx, net)
		Expect(err).NotTo(HaveOccurred())

		Expect(second).To(Equal(first))
		Expect(secondErrs).To(HaveLen(len(firstErrs)))
		for name := range firstErrs {
			Expect(secondErrs).To(HaveKey(name))
		}
	})

	DescribeTable("leaves the network unchanged",
		func(solver func() powerflow.Solver) {
			net := threeSections()
			net.Lines.Append(network.Line{FromBus: 0, ToBus: 1, LengthKm: 1, Df: 1, Parallel: 1, InService: true})
			net.XWards.Append(network.XWard{Bus: 1, ROhm: 0, XOhm: 5, VmPu: 1, InService: true})
			net.CreateSwitch(0, 0, network.SwitchLine, false)
			before := net.Clone()

			_, _, err := newEngine(solver()).Run(ctx, net)
			Expect(err).NotTo(HaveOccurred())
			Expect(net).To(Equal(before))
		},
		Entry("with a converging solver", gaussSeidel),
		Entry("with a solver that never converges", failingSolver),
		Entry("with a solver that panics", panickingSolver),
	)

	It("records a panicking check as an error and carries on", func() {
		findings, errs, err := newEngine(panickingSolver()).Run(ctx, threeSections())
		Expect(err).NotTo(HaveOccurred())

		for _, name := range []string{CheckOverload, CheckSwitches, CheckCrossValidation} {
			Expect(errs).To(HaveKey(name))
			Expect(errors.Is(errs[name], ErrPanic)).To(BeTrue())
			var ce *CheckError
			Expect(errors.As(errs[name], &ce)).To(BeTrue())
			Expect(ce.Check).To(Equal(name))
		}
		Expect(findings).To(HaveKey(CheckDisconnectedElements))
	})

	It("runs only the requested checks, in order", func() {
		eng := newEngine(failingSolver(), WithCatalog([]string{CheckNoExtGrid, CheckSwitches}))
		findings, errs, err := eng.Run(ctx, network.New("empty"))
		Expect(err).NotTo(HaveOccurred())
		Expect(errs).To(BeEmpty())
		Expect(findings).To(Equal(Findings{CheckNoExtGrid: true, CheckSwitches: false}))
	})

	It("takes the catalog from the config", func() {
		cfg := config.DefaultConfig()
		cfg.Checks = []string{CheckReferenceSystem}
		net := feeder(1)
		_ = net.Loads.Update(0, func(l *network.Load) { l.PMw = -1 })

		findings, _, err := New(nil, cfg, WithLogger(quietLogger())).Run(ctx, net)
		Expect(err).NotTo(HaveOccurred())
		Expect(findings).To(Equal(Findings{CheckReferenceSystem: map[string][]int{"loads": {0}}}))
	})

	It("rejects invalid input", func() {
		_, _, err := newEngine(gaussSeidel()).Run(ctx, nil)
		Expect(err).To(MatchError(ErrNilNetwork))

		_, _, err = newEngine(gaussSeidel(), WithCatalog([]string{"bogus"})).Run(ctx, feeder(1))
		Expect(err).To(MatchError(ErrUnknownCheck))

		cfg := config.DefaultConfig()
		cfg.MinROhm = -1
		_, _, err = New(gaussSeidel(), cfg).Run(ctx, feeder(1))
		Expect(err).To(MatchError(config.ErrInvalid))
	})

	It("fails solver checks without a solver", func() {
		_, errs, err := New(nil, nil, WithLogger(quietLogger()), WithCatalog([]string{CheckOverload})).Run(ctx, feeder(1))
		Expect(err).NotTo(HaveOccurred())
		Expect(errs[CheckOverload]).To(MatchError(ErrNoSolver))
	})

	It("lists the catalog in run order", func() {
		names := Catalog()
		Expect(names).To(HaveLen(14))
		Expect(names[0]).To(Equal(CheckMissingBusIndices))
		Expect(names[len(names)-1]).To(Equal(CheckParallelSwitches))
	})
})
