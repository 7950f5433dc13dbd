package config

import (
	"maps"
	"slices"
)

// Presets are named starting points for common network classes.
var Presets = map[string]func() *Config{
	"default": DefaultConfig,

	// strict tightens every window, for models that already solve and
	// should stay clean.
	"strict": func() *Config {
		cfg := DefaultConfig()
		cfg.MinROhm, cfg.MinXOhm = 0.01, 0.01
		cfg.MaxROhm, cfg.MaxXOhm = 50, 50
		cfg.NomVoltageTolerance = 0.1
		cfg.NumbaTolerance = 1e-7
		cfg.Report.WarningsOnly = true
		return cfg
	},

	// transmission allows the long, high-impedance branches of HV grids.
	"transmission": func() *Config {
		cfg := DefaultConfig()
		cfg.MaxROhm, cfg.MaxXOhm = 500, 1000
		cfg.NomVoltageTolerance = 0.2
		cfg.Substitute.TrafoSnMva = 1000
		cfg.Solver.MaxIterations = 5000
		return cfg
	},
}

func GetPreset(name string) *Config {
	preset, ok := Presets[name]
	if !ok {
		return nil
	}
	return preset()
}

// ListPresets returns the preset names in sorted order.
func ListPresets() []string {
	return slices.Sorted(maps.Keys(Presets))
}
