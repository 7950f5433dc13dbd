// Package topology analyses bus connectivity independently of any solver:
// connected components, unsupplied islands and fully isolated
// transformers.
package topology
