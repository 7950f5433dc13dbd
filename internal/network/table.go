package network

import (
	"fmt"
	"maps"
	"slices"
)

// Table is an ordered collection of rows keyed by a stable integer id.
// Ids are unique within a table but need not be contiguous. Iteration
// follows insertion order.
type Table[T any] struct {
	ids  []int
	rows map[int]T
}

func (t *Table[T]) Insert(id int, row T) error {
	if _, ok := t.rows[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}
	if t.rows == nil {
		t.rows = make(map[int]T)
	}
	t.ids = append(t.ids, id)
	t.rows[id] = row
	return nil
}

// Append inserts row under NextID and returns the id it was given.
func (t *Table[T]) Append(row T) int {
	id := t.NextID()
	// NextID is never taken, so Insert cannot fail here.
	_ = t.Insert(id, row)
	return id
}

func (t *Table[T]) Get(id int) (T, bool) {
	row, ok := t.rows[id]
	return row, ok
}

func (t *Table[T]) Has(id int) bool {
	_, ok := t.rows[id]
	return ok
}

func (t *Table[T]) Set(id int, row T) error {
	if _, ok := t.rows[id]; !ok {
		return fmt.Errorf("%w: %d", ErrMissingID, id)
	}
	t.rows[id] = row
	return nil
}

// Update applies fn to the row stored under id.
func (t *Table[T]) Update(id int, fn func(*T)) error {
	row, ok := t.rows[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrMissingID, id)
	}
	fn(&row)
	t.rows[id] = row
	return nil
}

// UpdateAll applies fn to every row in insertion order.
func (t *Table[T]) UpdateAll(fn func(id int, row *T)) {
	for _, id := range t.ids {
		row := t.rows[id]
		fn(id, &row)
		t.rows[id] = row
	}
}

func (t *Table[T]) Each(fn func(id int, row T)) {
	for _, id := range t.ids {
		fn(id, t.rows[id])
	}
}

// IDs returns a copy of the ids in insertion order.
func (t *Table[T]) IDs() []int {
	return slices.Clone(t.ids)
}

func (t *Table[T]) Len() int {
	return len(t.ids)
}

// NextID returns one past the largest id in the table, or 0 when empty.
func (t *Table[T]) NextID() int {
	if len(t.ids) == 0 {
		return 0
	}
	return slices.Max(t.ids) + 1
}

// Row returns the row under id as an untyped value, for column lookups.
func (t *Table[T]) Row(id int) (any, bool) {
	row, ok := t.rows[id]
	if !ok {
		return nil, false
	}
	return row, true
}

// Clone returns a deep copy. Row types hold only scalar fields, so copying
// the map values is enough.
func (t *Table[T]) Clone() Table[T] {
	return Table[T]{
		ids:  slices.Clone(t.ids),
		rows: maps.Clone(t.rows),
	}
}

// Rows is the untyped view of a Table used by column-driven checks.
type Rows interface {
	IDs() []int
	Len() int
	Row(id int) (any, bool)
}
