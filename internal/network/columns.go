package network

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

var columnIndex sync.Map // reflect.Type -> map[string]int

// Column returns the value of the named column of a row, where the column
// name is the field's yaml key (e.g. "vn_kv"). row must be one of the row
// types of this package, passed by value.
func Column(row any, name string) (any, error) {
	v := reflect.ValueOf(row)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %q on %T", ErrUnknownColumn, name, row)
	}
	idx, ok := columnsOf(v.Type())[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q on %T", ErrUnknownColumn, name, row)
	}
	return v.Field(idx).Interface(), nil
}

// HasColumn reports whether rows of the given table carry the column.
func HasColumn(row any, name string) bool {
	t := reflect.TypeOf(row)
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	_, ok := columnsOf(t)[name]
	return ok
}

func columnsOf(t reflect.Type) map[string]int {
	if cached, ok := columnIndex.Load(t); ok {
		return cached.(map[string]int)
	}
	cols := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("yaml")
		key, _, _ := strings.Cut(tag, ",")
		if key == "" || key == "-" {
			continue
		}
		cols[key] = i
	}
	columnIndex.Store(t, cols)
	return cols
}
