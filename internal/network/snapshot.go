package network

import "slices"

// Snapshot holds value copies of a set of tables so they can be put back
// after a transient modification. Restore may be called any number of times.
type Snapshot struct {
	net    *Network
	saved  *Network
	tables []TableName
}

// Snapshot captures the named tables. Unknown names are rejected.
func (n *Network) Snapshot(tables ...TableName) (*Snapshot, error) {
	saved := &Network{}
	for _, t := range tables {
		if err := copyTable(saved, n, t); err != nil {
			return nil, err
		}
	}
	return &Snapshot{net: n, saved: saved, tables: slices.Clone(tables)}, nil
}

// Restore puts back the named tables, or every captured table when called
// without arguments. Names that were not captured are ignored.
func (s *Snapshot) Restore(tables ...TableName) {
	if len(tables) == 0 {
		tables = s.tables
	}
	for _, t := range tables {
		if !slices.Contains(s.tables, t) {
			continue
		}
		_ = copyTable(s.net, s.saved, t)
	}
}

// Tables returns the captured table names.
func (s *Snapshot) Tables() []TableName {
	return slices.Clone(s.tables)
}
