package diagnostic

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/gridiag/internal/config"
	"github.com/san-kum/gridiag/internal/network"
	"github.com/san-kum/gridiag/internal/powerflow"
)

// Findings maps check names to the violation each check found.
type Findings map[string]any

// Errors maps check names to the error that kept the check from finishing.
type Errors map[string]error

// Engine runs a catalog of checks against a network. It is not safe for
// concurrent use on the same network.
type Engine struct {
	solver  powerflow.Solver
	cfg     *config.Config
	log     *logrus.Logger
	catalog []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger checks write to. The default is the logrus
// standard logger.
func WithLogger(log *logrus.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithCatalog restricts a run to the named checks, in the given order.
func WithCatalog(names []string) Option {
	return func(e *Engine) { e.catalog = append([]string(nil), names...) }
}

// New builds an engine. A nil cfg means config.DefaultConfig. A catalog set
// with WithCatalog takes precedence over cfg.Checks.
func New(solver powerflow.Solver, cfg *config.Config, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	e := &Engine{
		solver:  solver,
		cfg:     cfg,
		log:     logrus.StandardLogger(),
		catalog: cfg.Checks,
	}
	for _, opt := range opts {
		opt(e)
	}
	if len(e.catalog) == 0 {
		e.catalog = Catalog()
	}
	return e
}

// Run executes every check of the catalog in order. A check that fails or
// panics is recorded in Errors and the run continues. Run itself fails
// only on invalid input: a nil network, an invalid configuration or an
// unknown check name.
func (e *Engine) Run(ctx context.Context, net *network.Network) (Findings, Errors, error) {
	if net == nil {
		return nil, nil, ErrNilNetwork
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, nil, err
	}
	checks, err := e.build()
	if err != nil {
		return nil, nil, err
	}

	findings := make(Findings)
	errs := make(Errors)
	for _, c := range checks {
		log := e.log.WithField("check", c.Name())
		start := time.Now()

		payload, err := run(ctx, c, net)
		switch {
		case err != nil:
			log.WithError(err).Warn("check failed")
			errs[c.Name()] = err
		case !empty(payload):
			findings[c.Name()] = payload
		}
		log.WithField("elapsed", time.Since(start)).Debug("check finished")
	}
	return findings, errs, nil
}

func (e *Engine) build() ([]Check, error) {
	checks := make([]Check, 0, len(e.catalog))
	for _, name := range e.catalog {
		build, err := lookup(name)
		if err != nil {
			return nil, err
		}
		checks = append(checks, build(Deps{
			Solver: e.solver,
			Config: e.cfg,
			Log:    e.log.WithField("check", name),
		}))
	}
	return checks, nil
}

func run(ctx context.Context, c Check, net *network.Network) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload = nil
			err = &CheckError{Check: c.Name(), Err: fmt.Errorf("%w: %v", ErrPanic, r)}
		}
	}()
	payload, err = c.Run(ctx, net)
	if err != nil {
		return nil, &CheckError{Check: c.Name(), Err: err}
	}
	return payload, nil
}

// empty reports whether a payload carries nothing: nil, a nil pointer, or
// an empty map or slice. A false bool is a result, not an absence.
func empty(payload any) bool {
	if payload == nil {
		return true
	}
	v := reflect.ValueOf(payload)
	switch v.Kind() {
	case reflect.Map, reflect.Slice:
		return v.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	}
	return false
}
