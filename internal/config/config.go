package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultOverloadScalingFactor = 0.001
	DefaultMinROhm               = 0.001
	DefaultMinXOhm               = 0.001
	DefaultMaxROhm               = 100.0
	DefaultMaxXOhm               = 100.0
	DefaultNomVoltageTolerance   = 0.3
	DefaultNumbaTolerance        = 1e-5

	DefaultMinDCOhm       = 0.5
	DefaultMinDCLengthKm  = 0.5
	DefaultTrafoXPu       = 0.01
	DefaultTrafoSnMva     = 100.0
	DefaultMaxIterations  = 1000
	DefaultTolerancePu    = 1e-8
	DefaultAcceleration   = 1.4
	DefaultReportStyle    = StyleDetailed
	DefaultWarningsOnly   = false
	DefaultPresetName     = "default"
	maxAccelerationFactor = 2.0
)

// Report styles.
const (
	StyleDetailed = "detailed"
	StyleCompact  = "compact"
	StyleNone     = "none"
)

// ErrInvalid indicates a configuration value outside its valid range.
var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	OverloadScalingFactor float64 `yaml:"overload_scaling_factor"`
	MinROhm               float64 `yaml:"min_r_ohm"`
	MinXOhm               float64 `yaml:"min_x_ohm"`
	MaxROhm               float64 `yaml:"max_r_ohm"`
	MaxXOhm               float64 `yaml:"max_x_ohm"`
	NomVoltageTolerance   float64 `yaml:"nom_voltage_tolerance"`
	NumbaTolerance        float64 `yaml:"numba_tolerance"`

	// Checks restricts a run to the named checks. Empty runs all of them.
	Checks []string `yaml:"checks,omitempty"`

	Substitute SubstituteConfig `yaml:"substitute"`
	Solver     SolverConfig     `yaml:"solver"`
	Report     ReportConfig     `yaml:"report"`
}

// SubstituteConfig holds the replacement values the implausible impedance
// probe uses while testing whether the network converges without the
// flagged elements.
type SubstituteConfig struct {
	MinDCOhm      float64 `yaml:"min_dc_ohm"`
	MinDCLengthKm float64 `yaml:"min_dc_length_km"`
	TrafoXPu      float64 `yaml:"trafo_x_pu"`
	TrafoSnMva    float64 `yaml:"trafo_sn_mva"`
}

type SolverConfig struct {
	MaxIterations int     `yaml:"max_iterations"`
	TolerancePu   float64 `yaml:"tolerance_pu"`
	Acceleration  float64 `yaml:"acceleration"`
}

type ReportConfig struct {
	Style        string `yaml:"style"`
	WarningsOnly bool   `yaml:"warnings_only"`
}

func DefaultConfig() *Config {
	return &Config{
		OverloadScalingFactor: DefaultOverloadScalingFactor,
		MinROhm:               DefaultMinROhm,
		MinXOhm:               DefaultMinXOhm,
		MaxROhm:               DefaultMaxROhm,
		MaxXOhm:               DefaultMaxXOhm,
		NomVoltageTolerance:   DefaultNomVoltageTolerance,
		NumbaTolerance:        DefaultNumbaTolerance,
		Substitute: SubstituteConfig{
			MinDCOhm:      DefaultMinDCOhm,
			MinDCLengthKm: DefaultMinDCLengthKm,
			TrafoXPu:      DefaultTrafoXPu,
			TrafoSnMva:    DefaultTrafoSnMva,
		},
		Solver: SolverConfig{
			MaxIterations: DefaultMaxIterations,
			TolerancePu:   DefaultTolerancePu,
			Acceleration:  DefaultAcceleration,
		},
		Report: ReportConfig{
			Style:        DefaultReportStyle,
			WarningsOnly: DefaultWarningsOnly,
		},
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	return LoadOver(DefaultConfig(), path)
}

// LoadOver reads a YAML file over a copy of base. Keys missing from the
// file keep the value from base.
func LoadOver(base *Config, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Clone() *Config {
	cp := *c
	if c.Checks != nil {
		cp.Checks = append([]string(nil), c.Checks...)
	}
	return &cp
}

// Validate reports the first value outside its valid range.
func (c *Config) Validate() error {
	positive := []struct {
		name  string
		value float64
	}{
		{"overload_scaling_factor", c.OverloadScalingFactor},
		{"min_r_ohm", c.MinROhm},
		{"min_x_ohm", c.MinXOhm},
		{"max_r_ohm", c.MaxROhm},
		{"max_x_ohm", c.MaxXOhm},
		{"nom_voltage_tolerance", c.NomVoltageTolerance},
		{"numba_tolerance", c.NumbaTolerance},
		{"substitute.min_dc_ohm", c.Substitute.MinDCOhm},
		{"substitute.min_dc_length_km", c.Substitute.MinDCLengthKm},
		{"substitute.trafo_x_pu", c.Substitute.TrafoXPu},
		{"substitute.trafo_sn_mva", c.Substitute.TrafoSnMva},
		{"solver.tolerance_pu", c.Solver.TolerancePu},
		{"solver.acceleration", c.Solver.Acceleration},
	}
	for _, p := range positive {
		if !(p.value > 0) {
			return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalid, p.name, p.value)
		}
	}

	if c.OverloadScalingFactor > 1 {
		return fmt.Errorf("%w: overload_scaling_factor must not exceed 1, got %g", ErrInvalid, c.OverloadScalingFactor)
	}
	if c.MinROhm >= c.MaxROhm {
		return fmt.Errorf("%w: min_r_ohm %g must be below max_r_ohm %g", ErrInvalid, c.MinROhm, c.MaxROhm)
	}
	if c.MinXOhm >= c.MaxXOhm {
		return fmt.Errorf("%w: min_x_ohm %g must be below max_x_ohm %g", ErrInvalid, c.MinXOhm, c.MaxXOhm)
	}
	if c.Solver.MaxIterations <= 0 {
		return fmt.Errorf("%w: solver.max_iterations must be positive, got %d", ErrInvalid, c.Solver.MaxIterations)
	}
	if c.Solver.Acceleration >= maxAccelerationFactor {
		return fmt.Errorf("%w: solver.acceleration must be below %g, got %g", ErrInvalid, maxAccelerationFactor, c.Solver.Acceleration)
	}

	switch c.Report.Style {
	case StyleDetailed, StyleCompact, StyleNone:
	default:
		return fmt.Errorf("%w: report.style %q", ErrInvalid, c.Report.Style)
	}
	return nil
}
