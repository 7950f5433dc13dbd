package report

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/san-kum/gridiag/internal/diagnostic"
	"github.com/san-kum/gridiag/internal/topology"
)

// describe turns a finding into report lines. Unknown payloads fall back to
// their default formatting.
func describe(name string, payload any) []string {
	switch p := payload.(type) {
	case map[string][]diagnostic.MissingBus:
		var lines []string
		for _, table := range sortedKeys(p) {
			for _, m := range p[table] {
				lines = append(lines, fmt.Sprintf("%s %d: %s references missing bus %d", table, m.ID, m.Column, m.Bus))
			}
		}
		return lines

	case *diagnostic.DisconnectedResult:
		var lines []string
		for i, island := range p.Islands {
			lines = append(lines, fmt.Sprintf("unsupplied section %d: %s", i+1, islandSummary(island)))
		}
		if p.Isolated != nil {
			if len(p.Isolated.Trafos) > 0 {
				lines = append(lines, fmt.Sprintf("isolated trafos: %v", p.Isolated.Trafos))
			}
			if len(p.Isolated.Trafos3w) > 0 {
				lines = append(lines, fmt.Sprintf("isolated trafo3w: %v", p.Isolated.Trafos3w))
			}
		}
		return lines

	case *diagnostic.VoltageLevelResult:
		var lines []string
		if len(p.Lines) > 0 {
			lines = append(lines, fmt.Sprintf("lines connecting different voltage levels: %v", p.Lines))
		}
		if len(p.Switches) > 0 {
			lines = append(lines, fmt.Sprintf("switches connecting different voltage levels: %v", p.Switches))
		}
		return lines

	case *diagnostic.ImpedanceResult:
		var lines []string
		for _, table := range sortedKeys(p.Elements) {
			lines = append(lines, fmt.Sprintf("%s with implausible impedance: %v", table, p.Elements[table]))
		}
		if p.ConvergesWithReplacement != nil {
			verdict := "does not converge"
			if *p.ConvergesWithReplacement {
				verdict = "converges"
			}
			lines = append(lines, "power flow "+verdict+" with the flagged elements replaced")
		}
		return lines

	case *diagnostic.NominalVoltageResult:
		var lines []string
		for _, key := range sortedKeys(p.Trafo) {
			lines = append(lines, fmt.Sprintf("trafo %s: %v", key, p.Trafo[key]))
		}
		for _, key := range sortedKeys(p.Trafo3w) {
			lines = append(lines, fmt.Sprintf("trafo3w %s: %v", key, p.Trafo3w[key]))
		}
		return lines

	case map[string][]diagnostic.InvalidValue:
		var lines []string
		for _, table := range sortedKeys(p) {
			for _, v := range p[table] {
				lines = append(lines, fmt.Sprintf("%s %d: %s = %v violates %s", table, v.ID, v.Column, v.Value, v.Restriction))
			}
		}
		return lines

	case diagnostic.OverloadResult:
		switch {
		case p.Load && p.Generation:
			return []string{"power flow converges only with load and generation scaled down"}
		case p.Load:
			return []string{"power flow converges with load scaled down: overload at the load side"}
		case p.Generation:
			return []string{"power flow converges with generation scaled down: overload at the generation side"}
		}
		return []string{"power flow does not converge, scaling load and generation did not help"}

	case bool:
		if name == diagnostic.CheckNoExtGrid {
			return []string{"no in-service external grid or slack generator"}
		}
		if p {
			return []string{"power flow converges with every switch closed"}
		}
		return []string{"power flow does not converge, closing every switch did not help"}

	case map[string][]int:
		var lines []string
		for _, key := range sortedKeys(p) {
			lines = append(lines, fmt.Sprintf("%s: %v", strings.ReplaceAll(key, "_", " "), p[key]))
		}
		return lines

	case map[string]map[int]diagnostic.StdTypeDeviation:
		var lines []string
		for _, table := range sortedKeys(p) {
			for _, id := range slices.Sorted(maps.Keys(p[table])) {
				d := p[table][id]
				if !d.InLibrary {
					lines = append(lines, fmt.Sprintf("%s %d: std type not in library", table, id))
					continue
				}
				lines = append(lines, fmt.Sprintf("%s %d: %s = %v, std type has %v", table, id, d.Param, d.Value, d.StdTypeValue))
			}
		}
		return lines

	case map[string]map[string]map[int]float64:
		var lines []string
		for _, table := range sortedKeys(p) {
			for _, col := range sortedKeys(p[table]) {
				for _, id := range slices.Sorted(maps.Keys(p[table][col])) {
					lines = append(lines, fmt.Sprintf("%s.%s row %d deviates by %.3g", table, col, id, p[table][col][id]))
				}
			}
		}
		return lines

	case [][]int:
		lines := make([]string, len(p))
		for i, group := range p {
			lines[i] = fmt.Sprintf("parallel switches: %v", group)
		}
		return lines
	}
	return []string{fmt.Sprintf("%v", payload)}
}

func islandSummary(i topology.Island) string {
	parts := []string{fmt.Sprintf("buses %v", i.Buses)}
	add := func(label string, ids []int) {
		if len(ids) > 0 {
			parts = append(parts, fmt.Sprintf("%s %v", label, ids))
		}
	}
	add("switches", i.Switches)
	add("lines", i.Lines)
	add("trafos", i.Trafos)
	add("trafo3w", i.Trafos3w)
	add("loads", i.Loads)
	add("gens", i.Gens)
	add("sgens", i.Sgens)
	return strings.Join(parts, ", ")
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
