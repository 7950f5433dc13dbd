package metrics

import (
	"math"

	"github.com/san-kum/gridiag/internal/powerflow"
)

type MinVoltage struct {
	name string
	min  float64
}

func NewMinVoltage() *MinVoltage {
	return &MinVoltage{name: "min_vm_pu", min: math.NaN()}
}

func (m *MinVoltage) Name() string { return m.name }

func (m *MinVoltage) Observe(res *powerflow.Results) {
	each(res, powerflow.ResBus, "vm_pu", func(v float64) {
		if math.IsNaN(m.min) || v < m.min {
			m.min = v
		}
	})
}

// Value is NaN until a supplied bus has been observed.
func (m *MinVoltage) Value() float64 { return m.min }

func (m *MinVoltage) Reset() { m.min = math.NaN() }

type MaxVoltage struct {
	name string
	max  float64
}

func NewMaxVoltage() *MaxVoltage {
	return &MaxVoltage{name: "max_vm_pu", max: math.NaN()}
}

func (m *MaxVoltage) Name() string { return m.name }

func (m *MaxVoltage) Observe(res *powerflow.Results) {
	each(res, powerflow.ResBus, "vm_pu", func(v float64) {
		if math.IsNaN(m.max) || v > m.max {
			m.max = v
		}
	})
}

func (m *MaxVoltage) Value() float64 { return m.max }

func (m *MaxVoltage) Reset() { m.max = math.NaN() }
