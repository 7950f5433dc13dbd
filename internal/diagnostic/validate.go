package diagnostic

import (
	"math"
	"slices"
	"strconv"

	"github.com/san-kum/gridiag/internal/network"
)

// Input restrictions a column must satisfy for a power flow to start.
const (
	RestrictGreaterZero      = ">0"
	RestrictGreaterEqualZero = ">=0"
	RestrictLess15           = "<15"
	RestrictBoolean          = "boolean"
	RestrictPositiveInteger  = "positive_integer"
	RestrictNumber           = "number"
	RestrictUnitInterval     = "0<x<=1"
	RestrictSwitchType       = "switch_type"
)

// InvalidValue is a column value that breaks its restriction. NaN and
// infinite values are carried as strings so the payload stays encodable.
type InvalidValue struct {
	ID          int    `json:"id" yaml:"id"`
	Column      string `json:"column" yaml:"column"`
	Value       any    `json:"value" yaml:"value"`
	Restriction string `json:"restriction" yaml:"restriction"`
}

type contract struct {
	column      string
	restriction string
}

var contracts = []struct {
	table network.TableName
	rules []contract
}{
	{network.TableBus, []contract{
		{"vn_kv", RestrictGreaterZero}, {"in_service", RestrictBoolean},
	}},
	{network.TableLine, []contract{
		{"from_bus", RestrictPositiveInteger}, {"to_bus", RestrictPositiveInteger},
		{"length_km", RestrictGreaterZero}, {"r_ohm_per_km", RestrictGreaterEqualZero},
		{"x_ohm_per_km", RestrictGreaterEqualZero}, {"c_nf_per_km", RestrictGreaterEqualZero},
		{"max_i_ka", RestrictGreaterZero}, {"df", RestrictUnitInterval},
		{"in_service", RestrictBoolean},
	}},
	{network.TableTrafo, []contract{
		{"hv_bus", RestrictPositiveInteger}, {"lv_bus", RestrictPositiveInteger},
		{"sn_mva", RestrictGreaterZero}, {"vn_hv_kv", RestrictGreaterZero},
		{"vn_lv_kv", RestrictGreaterZero}, {"vkr_percent", RestrictGreaterEqualZero},
		{"vk_percent", RestrictGreaterZero}, {"vkr_percent", RestrictLess15},
		{"vk_percent", RestrictLess15}, {"pfe_kw", RestrictGreaterEqualZero},
		{"i0_percent", RestrictGreaterEqualZero}, {"in_service", RestrictBoolean},
	}},
	{network.TableTrafo3w, []contract{
		{"hv_bus", RestrictPositiveInteger}, {"mv_bus", RestrictPositiveInteger},
		{"lv_bus", RestrictPositiveInteger},
		{"sn_hv_mva", RestrictGreaterZero}, {"sn_mv_mva", RestrictGreaterZero},
		{"sn_lv_mva", RestrictGreaterZero},
		{"vn_hv_kv", RestrictGreaterZero}, {"vn_mv_kv", RestrictGreaterZero},
		{"vn_lv_kv", RestrictGreaterZero},
		{"vkr_hv_percent", RestrictGreaterEqualZero}, {"vkr_mv_percent", RestrictGreaterEqualZero},
		{"vkr_lv_percent", RestrictGreaterEqualZero},
		{"vk_hv_percent", RestrictGreaterZero}, {"vk_mv_percent", RestrictGreaterZero},
		{"vk_lv_percent", RestrictGreaterZero},
		{"vkr_hv_percent", RestrictLess15}, {"vkr_mv_percent", RestrictLess15},
		{"vkr_lv_percent", RestrictLess15},
		{"vk_hv_percent", RestrictLess15}, {"vk_mv_percent", RestrictLess15},
		{"vk_lv_percent", RestrictLess15},
		{"pfe_kw", RestrictGreaterEqualZero}, {"i0_percent", RestrictGreaterEqualZero},
		{"in_service", RestrictBoolean},
	}},
	{network.TableLoad, []contract{
		{"bus", RestrictPositiveInteger}, {"p_mw", RestrictNumber}, {"q_mvar", RestrictNumber},
		{"scaling", RestrictGreaterEqualZero}, {"in_service", RestrictBoolean},
	}},
	{network.TableSgen, []contract{
		{"bus", RestrictPositiveInteger}, {"p_mw", RestrictNumber}, {"q_mvar", RestrictNumber},
		{"scaling", RestrictGreaterEqualZero}, {"in_service", RestrictBoolean},
	}},
	{network.TableGen, []contract{
		{"bus", RestrictPositiveInteger}, {"p_mw", RestrictNumber},
		{"scaling", RestrictGreaterEqualZero}, {"in_service", RestrictBoolean},
	}},
	{network.TableExtGrid, []contract{
		{"bus", RestrictPositiveInteger}, {"vm_pu", RestrictGreaterZero},
		{"va_degree", RestrictNumber},
	}},
	{network.TableSwitch, []contract{
		{"bus", RestrictPositiveInteger}, {"element", RestrictPositiveInteger},
		{"et", RestrictSwitchType}, {"closed", RestrictBoolean},
	}},
}

var switchTypes = []string{network.SwitchBus, network.SwitchLine, network.SwitchTrafo, network.SwitchTrafo3w}

// InvalidValues checks the columns a power flow needs against their input
// restrictions. Violations are listed per table, rule by rule in row order.
func InvalidValues(net *network.Network) map[string][]InvalidValue {
	out := make(map[string][]InvalidValue)
	for _, c := range contracts {
		rows, err := net.Lookup(c.table)
		if err != nil || rows.Len() == 0 {
			continue
		}
		ids := rows.IDs()
		for _, rule := range c.rules {
			for _, id := range ids {
				row, _ := rows.Row(id)
				value, err := network.Column(row, rule.column)
				if err != nil || valid(value, rule.restriction) {
					continue
				}
				out[string(c.table)] = append(out[string(c.table)], InvalidValue{
					ID:          id,
					Column:      rule.column,
					Value:       encodable(value),
					Restriction: rule.restriction,
				})
			}
		}
	}
	return out
}

func valid(value any, restriction string) bool {
	switch restriction {
	case RestrictBoolean:
		switch v := value.(type) {
		case bool:
			return true
		case int:
			return v == 0 || v == 1
		case float64:
			return v == 0 || v == 1
		}
		return false
	case RestrictSwitchType:
		s, ok := value.(string)
		return ok && slices.Contains(switchTypes, s)
	}

	x, ok := number(value)
	if !ok {
		return false
	}
	switch restriction {
	case RestrictNumber:
		return true
	case RestrictGreaterZero:
		return x > 0
	case RestrictGreaterEqualZero:
		return x >= 0
	case RestrictLess15:
		return x < 15
	case RestrictPositiveInteger:
		return x >= 0 && math.Mod(x, 1) == 0
	case RestrictUnitInterval:
		return 0 < x && x <= 1
	}
	return false
}

// number accepts ints and non-NaN floats. Booleans are not numbers here.
func number(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case float64:
		return v, !math.IsNaN(v)
	}
	return 0, false
}

func encodable(value any) any {
	if f, ok := value.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return value
}
