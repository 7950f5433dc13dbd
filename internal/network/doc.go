// Package network provides the in-memory grid model consumed by the
// diagnostic engine and the power-flow solver.
//
// A [Network] is a set of typed tables:
//
//   - [Bus]: network nodes at a nominal voltage
//   - [Line], [Trafo], [Trafo3w], [Impedance]: branches between buses
//   - [Load], [Sgen], [Gen], [ExtGrid], [Ward], [XWard]: injectors
//   - [Switch]: bus-bus or bus-element switches
//   - [VSC], [LineDC]: converter links and DC lines
//
// Each [Table] is keyed by a stable integer id that is unique within the
// table. Rows are plain values, so [Table.Clone] and [Network.Clone] are
// deep copies.
//
// # Snapshots
//
// Code that modifies the model transiently captures the tables it touches
// and restores them on every exit path:
//
//	snap, err := net.Snapshot(network.TableLoad, network.TableGen)
//	if err != nil {
//	    return err
//	}
//	defer snap.Restore()
package network
