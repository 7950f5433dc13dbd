// Package diagnostic finds out why a power flow fails to converge or
// returns implausible results.
//
// An [Engine] runs a catalog of checks in a fixed order. Each check either
// reports a finding, reports nothing, or fails; a failing check never stops
// the others:
//
//	eng := diagnostic.New(solver, cfg, diagnostic.WithLogger(log))
//	findings, errs, err := eng.Run(ctx, net)
//
// Static checks only read the network. Recovery probes ([OverloadCheck],
// [SwitchCheck], [ImpedanceCheck]) perturb it, re-solve and restore every
// table they touched before returning.
package diagnostic
