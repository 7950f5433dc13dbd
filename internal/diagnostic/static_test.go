package diagnostic

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gridiag/internal/network"
	"github.com/san-kum/gridiag/internal/topology"
)

var _ = Describe("Static checks", func() {
	Describe("DisconnectedElements", func() {
		It("reports the one unsupplied section", func() {
			res := DisconnectedElements(threeSections())
			Expect(res).NotTo(BeNil())
			Expect(res.Islands).To(Equal([]topology.Island{{
				Buses: []int{4, 5, 6},
				Lines: []int{2, 3},
				Loads: []int{0},
			}}))
			Expect(res.Isolated).To(BeNil())
		})

		It("returns nil when everything is supplied", func() {
			Expect(DisconnectedElements(feeder(1))).To(BeNil())
		})

		It("reports transformers isolated by open switches", func() {
			n := feeder(1)
			n.Buses.Append(network.Bus{VnKv: 0.4, InService: true})
			t := n.Trafos.Append(network.Trafo{HVBus: 1, LVBus: 2, SnMva: 0.4, VnHvKv: 20, VnLvKv: 0.4, VkPercent: 6, InService: true})
			n.CreateSwitch(1, t, network.SwitchTrafo, false)
			n.CreateSwitch(2, t, network.SwitchTrafo, false)

			res := DisconnectedElements(n)
			Expect(res).NotTo(BeNil())
			Expect(res.Isolated).To(Equal(&topology.Isolated{Trafos: []int{t}}))
		})
	})

	Describe("MissingBusIndices", func() {
		It("exempts switch elements that address branches", func() {
			n := feeder(1)
			n.CreateSwitch(0, 99, network.SwitchLine, true)
			n.CreateSwitch(0, 99, network.SwitchTrafo3w, true)
			bad := n.CreateSwitch(0, 99, network.SwitchBus, true)
			load := n.Loads.Append(network.Load{Bus: 42, Scaling: 1, InService: true})

			Expect(MissingBusIndices(n)).To(Equal(map[string][]MissingBus{
				"switch": {{ID: bad, Column: "element", Bus: 99}},
				"load":   {{ID: load, Column: "bus", Bus: 42}},
			}))
		})

		It("is empty for a consistent network", func() {
			Expect(MissingBusIndices(threeSections())).To(BeEmpty())
		})
	})

	Describe("DifferentVoltageLevels", func() {
		It("flags lines and bus switches across voltage levels", func() {
			n := feeder(1)
			n.Buses.Append(network.Bus{VnKv: 110, InService: true})
			line := addLine(n, 1, 2)
			sw := n.CreateSwitch(0, 2, network.SwitchBus, true)
			n.CreateSwitch(0, 0, network.SwitchLine, true)

			Expect(DifferentVoltageLevels(n)).To(Equal(&VoltageLevelResult{Lines: []int{line}, Switches: []int{sw}}))
			Expect(DifferentVoltageLevels(feeder(1))).To(BeNil())
		})

		It("ignores open bus switches across voltage levels", func() {
			n := feeder(1)
			n.Buses.Append(network.Bus{VnKv: 110, InService: true})
			n.CreateSwitch(0, 2, network.SwitchBus, false)

			Expect(DifferentVoltageLevels(n)).To(BeNil())
		})
	})

	Describe("NominalVoltageMismatch", func() {
		var n *network.Network

		BeforeEach(func() {
			n = network.New("trafos")
			n.Buses.Append(network.Bus{VnKv: 110, InService: true})
			n.Buses.Append(network.Bus{VnKv: 20, InService: true})
			n.Buses.Append(network.Bus{VnKv: 10, InService: true})
		})

		It("flags each deviating side", func() {
			n.Trafos.Append(network.Trafo{HVBus: 0, LVBus: 1, VnHvKv: 110, VnLvKv: 20, SnMva: 40, InService: true})
			n.Trafos.Append(network.Trafo{HVBus: 0, LVBus: 1, VnHvKv: 60, VnLvKv: 20, SnMva: 40, InService: true})
			n.Trafos.Append(network.Trafo{HVBus: 0, LVBus: 1, VnHvKv: 110, VnLvKv: 10, SnMva: 40, InService: true})

			Expect(NominalVoltageMismatch(n, 0.3)).To(Equal(&NominalVoltageResult{
				Trafo: map[string][]int{"hv_bus": {1}, "lv_bus": {2}},
			}))
		})

		It("recognises swapped connectors", func() {
			n.Trafos.Append(network.Trafo{HVBus: 1, LVBus: 0, VnHvKv: 110, VnLvKv: 20, SnMva: 40, InService: true})
			n.Trafos3w.Append(network.Trafo3w{HVBus: 2, MVBus: 0, LVBus: 1, VnHvKv: 110, VnMvKv: 20, VnLvKv: 10, InService: true})

			Expect(NominalVoltageMismatch(n, 0.3)).To(Equal(&NominalVoltageResult{
				Trafo:   map[string][]int{"hv_lv_swapped": {0}},
				Trafo3w: map[string][]int{"connectors_swapped_3w": {0}},
			}))
		})

		It("returns nil when every side matches", func() {
			n.Trafos3w.Append(network.Trafo3w{HVBus: 0, MVBus: 1, LVBus: 2, VnHvKv: 110, VnMvKv: 21, VnLvKv: 10.5, InService: true})
			Expect(NominalVoltageMismatch(n, 0.3)).To(BeNil())
		})
	})

	Describe("InvalidValues", func() {
		It("reports each broken restriction", func() {
			n := feeder(1)
			_ = n.Buses.Update(1, func(b *network.Bus) { b.VnKv = math.NaN() })
			_ = n.Lines.Update(0, func(l *network.Line) { l.Df = 1.5 })
			_ = n.Loads.Update(0, func(l *network.Load) { l.Scaling = -1 })
			n.Switches.Append(network.Switch{Bus: 0, Element: -1, ET: "x", Closed: true})

			Expect(InvalidValues(n)).To(Equal(map[string][]InvalidValue{
				"bus":  {{ID: 1, Column: "vn_kv", Value: "NaN", Restriction: RestrictGreaterZero}},
				"line": {{ID: 0, Column: "df", Value: 1.5, Restriction: RestrictUnitInterval}},
				"load": {{ID: 0, Column: "scaling", Value: -1.0, Restriction: RestrictGreaterEqualZero}},
				"switch": {
					{ID: 0, Column: "element", Value: -1, Restriction: RestrictPositiveInteger},
					{ID: 0, Column: "et", Value: "x", Restriction: RestrictSwitchType},
				},
			}))
		})

		It("accepts a valid network", func() {
			Expect(InvalidValues(feeder(1))).To(BeEmpty())
		})

		It("checks transformer limits", func() {
			n := feeder(1)
			n.Trafos.Append(network.Trafo{HVBus: 0, LVBus: 1, SnMva: 1, VnHvKv: 20, VnLvKv: 20, VkPercent: 16, VkrPercent: 1, InService: true})
			Expect(InvalidValues(n)).To(Equal(map[string][]InvalidValue{
				"trafo": {{ID: 0, Column: "vk_percent", Value: 16.0, Restriction: RestrictLess15}},
			}))
		})
	})

	Describe("reference sources", func() {
		It("flags a network without ext grid or slack gen", func() {
			n := feeder(1)
			Expect(NoExtGrid(n)).To(BeFalse())

			_ = n.ExtGrids.Update(0, func(e *network.ExtGrid) { e.InService = false })
			Expect(NoExtGrid(n)).To(BeTrue())

			n.Gens.Append(network.Gen{Bus: 0, VmPu: 1, Slack: true, Scaling: 1, InService: true})
			Expect(NoExtGrid(n)).To(BeFalse())
		})

		It("finds buses with several voltage controllers", func() {
			n := feeder(1)
			n.ExtGrids.Append(network.ExtGrid{Bus: 0, VmPu: 1, InService: true})
			n.ExtGrids.Append(network.ExtGrid{Bus: 1, VmPu: 1, InService: true})
			n.Gens.Append(network.Gen{Bus: 1, VmPu: 1, Scaling: 1, InService: true})

			Expect(MultipleVoltageControllers(n)).To(Equal(map[string][]int{
				"buses_with_mult_ext_grids":     {0},
				"buses_with_gens_and_ext_grids": {1},
			}))
		})
	})

	It("finds injections with the wrong sign", func() {
		n := feeder(1)
		n.Loads.Append(network.Load{Bus: 1, PMw: -2, Scaling: 1, InService: true})
		n.Sgens.Append(network.Sgen{Bus: 1, PMw: -1, Scaling: 1, InService: true})
		n.Gens.Append(network.Gen{Bus: 1, PMw: 1, Scaling: 1, InService: true})

		Expect(WrongReferenceSystem(n)).To(Equal(map[string][]int{"loads": {1}, "sgens": {0}}))
	})

	Describe("StdTypeDeviations", func() {
		var n *network.Network

		BeforeEach(func() {
			n = feeder(1)
			n.StdTypes = network.StdTypes{
				network.TableLine: {
					"NA2XS2Y": {"r_ohm_per_km": 0.642, "x_ohm_per_km": 0.083, "c_nf_per_km": 210, "max_i_ka": 0.142},
				},
			}
		})

		It("accepts values within the relative tolerance", func() {
			_ = n.Lines.Update(0, func(l *network.Line) {
				l.StdType = "NA2XS2Y"
				l.ROhmPerKm = 0.642 * (1 + 1e-7)
			})
			Expect(StdTypeDeviations(n)).To(BeEmpty())
		})

		It("reports the last deviating parameter in name order", func() {
			_ = n.Lines.Update(0, func(l *network.Line) {
				l.StdType = "NA2XS2Y"
				l.MaxIKa = 0.2
				l.XOhmPerKm = 0.1
			})
			Expect(StdTypeDeviations(n)).To(Equal(map[string]map[int]StdTypeDeviation{
				"line": {0: {Param: "x_ohm_per_km", Value: 0.1, StdTypeValue: 0.083, InLibrary: true}},
			}))
		})

		It("reports types missing from the library", func() {
			_ = n.Lines.Update(0, func(l *network.Line) { l.StdType = "unknown" })
			Expect(StdTypeDeviations(n)).To(Equal(map[string]map[int]StdTypeDeviation{
				"line": {0: {InLibrary: false}},
			}))
		})
	})

	It("groups parallel switches", func() {
		n := feeder(1)
		n.CreateSwitch(1, 0, network.SwitchLine, true)
		a := n.CreateSwitch(0, 0, network.SwitchLine, true)
		b := n.CreateSwitch(0, 0, network.SwitchLine, false)
		n.CreateSwitch(0, 0, network.SwitchTrafo, true)
		c := n.CreateSwitch(0, 0, network.SwitchLine, true)

		Expect(ParallelSwitches(n)).To(Equal([][]int{{a, b, c}}))
		Expect(ParallelSwitches(feeder(1))).To(BeEmpty())
	})
})
