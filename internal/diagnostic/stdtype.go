package diagnostic

import (
	"maps"
	"math"
	"reflect"
	"slices"

	"github.com/san-kum/gridiag/internal/network"
)

const (
	stdTypeRtol = 1e-5
	stdTypeAtol = 1e-8
)

// StdTypeDeviation describes an element that does not match the standard
// type it names. When the type is not in the catalog only InLibrary is set.
type StdTypeDeviation struct {
	Param        string `json:"param,omitempty" yaml:"param,omitempty"`
	Value        any    `json:"e_value,omitempty" yaml:"e_value,omitempty"`
	StdTypeValue any    `json:"std_type_value,omitempty" yaml:"std_type_value,omitempty"`
	InLibrary    bool   `json:"std_type_in_lib" yaml:"std_type_in_lib"`
}

// StdTypeDeviations compares every element that names a standard type with
// the catalog entry. Parameters are compared in name order and the last
// mismatch is reported. tap_pos is an operating point, not a type
// parameter, and is skipped.
func StdTypeDeviations(net *network.Network) map[string]map[int]StdTypeDeviation {
	out := make(map[string]map[int]StdTypeDeviation)
	record := func(table network.TableName, id int, d StdTypeDeviation) {
		if out[string(table)] == nil {
			out[string(table)] = make(map[int]StdTypeDeviation)
		}
		out[string(table)][id] = d
	}

	for _, table := range slices.Sorted(maps.Keys(net.StdTypes)) {
		rows, err := net.Lookup(table)
		if err != nil {
			continue
		}
		catalog := net.StdTypes[table]
		for _, id := range rows.IDs() {
			row, _ := rows.Row(id)
			v, err := network.Column(row, "std_type")
			if err != nil {
				break
			}
			name, _ := v.(string)
			params, ok := catalog[name]
			if !ok {
				if name != "" {
					record(table, id, StdTypeDeviation{InLibrary: false})
				}
				continue
			}
			for _, param := range slices.Sorted(maps.Keys(params)) {
				if param == "tap_pos" || !network.HasColumn(row, param) {
					continue
				}
				value, _ := network.Column(row, param)
				if !matches(value, params[param]) {
					record(table, id, StdTypeDeviation{
						Param:        param,
						Value:        encodable(value),
						StdTypeValue: encodable(params[param]),
						InLibrary:    true,
					})
				}
			}
		}
	}
	return out
}

// matches compares numbers with a relative and absolute tolerance, treating
// two NaNs as equal, and everything else by value.
func matches(value, want any) bool {
	a, okA := asFloat(value)
	b, okB := asFloat(want)
	if okA && okB {
		if math.IsNaN(a) || math.IsNaN(b) {
			return math.IsNaN(a) && math.IsNaN(b)
		}
		if a == b {
			return true
		}
		return math.Abs(a-b) <= stdTypeAtol+stdTypeRtol*math.Abs(b)
	}
	return reflect.DeepEqual(value, want)
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}
