package compose

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/soypat/shapekey/mirror"
	"gonum.org/v1/gonum/spatial/r3"
)

// State is the live blend state of a shape.
type State struct {
	Value float64
	Mute  bool
	// Mask is the vertex group scaling the shape, empty for none.
	Mask string
}

// Store is the mesh storage the engine composes on.
type Store interface {
	// TargetNames returns the shapes of a mesh, basis excluded.
	TargetNames(mesh string) ([]string, error)
	Basis(mesh string) ([]r3.Vec, error)
	TargetState(mesh, name string) (State, error)
	SetTargetWeight(mesh, name string, value float64) error
	SetTargetMute(mesh, name string, mute bool) error
	SetTargetMask(mesh, name, group string) error
	// EvaluateMix returns the absolute coordinates of the mesh under the
	// current shape weights, mutes and masks.
	EvaluateMix(mesh string) ([]r3.Vec, error)
	WriteTarget(mesh, name string, points []r3.Vec) error
}

// Report summarizes a composition.
type Report struct {
	// Applied lists the shapes written, in evaluation order.
	Applied []string
	// Excluded lists rules skipped because their shape does not exist
	// or none of their sources do.
	Excluded []string
	// Cyclic lists rules skipped because of a dependency cycle.
	Cyclic []string
}

// Engine composes shapes from rules.
type Engine struct {
	Store    Store
	Logger   *slog.Logger
	Ordering Ordering
	// MirrorTolerance is the pairing tolerance for Mirror rules.
	// Zero uses mirror.DefaultTolerance.
	MirrorTolerance float64
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// Compose evaluates the rules of scope on mesh and writes the resulting shapes.
// Shape weights, mutes and masks are restored before returning, also on error.
// Sources naming missing shapes are skipped.
func (e *Engine) Compose(mesh string, rules []Rule, scope Scope, active string) (rep Report, err error) {
	start := time.Now()
	log := e.logger().With(slog.String("mesh", mesh), slog.String("scope", scope.String()))
	names, err := e.Store.TargetNames(mesh)
	if err != nil {
		return rep, err
	}
	runnable, excluded := e.prepare(log, Select(rules, scope, active), names)
	rep.Excluded = excluded
	ordered, cyclic := Order(runnable, e.Ordering)
	rep.Cyclic = cyclic
	if len(cyclic) > 0 {
		log.Warn("rule dependency cycle", slog.Any("rules", cyclic))
	}
	if len(ordered) == 0 {
		return rep, nil
	}

	basis, err := e.Store.Basis(mesh)
	if err != nil {
		return rep, err
	}
	var pairing *mirror.Pairing
	for i := range ordered {
		if ordered[i].Type == Mirror {
			tol := e.MirrorTolerance
			if tol == 0 {
				tol = mirror.DefaultTolerance
			}
			p := mirror.Resolve(basis, mirror.PosX, tol)
			pairing = &p
			break
		}
	}

	restore, err := e.isolate(mesh, names)
	if err != nil {
		return rep, err
	}
	defer func() {
		if rerr := restore(); rerr != nil {
			err = errors.Join(err, fmt.Errorf("compose: restoring shape state: %w", rerr))
		}
	}()

	for i := range ordered {
		r := &ordered[i]
		if err = e.evaluate(mesh, r, basis, pairing); err != nil {
			return rep, fmt.Errorf("compose: rule %q: %w", r.Name, err)
		}
		rep.Applied = append(rep.Applied, r.Name)
	}
	log.Info("composed shapes", slog.Int("applied", len(rep.Applied)),
		slog.Int("excluded", len(rep.Excluded)), slog.Duration("elapsed", time.Since(start)))
	return rep, nil
}

// prepare drops rules whose shape does not exist and sources naming missing
// shapes or the rule itself. Rules left without sources are excluded.
func (e *Engine) prepare(log *slog.Logger, rules []Rule, names []string) (runnable []Rule, excluded []string) {
	exists := make(map[string]bool, len(names))
	for _, n := range names {
		exists[n] = true
	}
	for _, r := range rules {
		if !exists[r.Name] {
			excluded = append(excluded, r.Name)
			continue
		}
		var sources []Source
		for _, s := range r.Sources {
			if s.Name == r.Name || !exists[s.Name] {
				log.Debug("skipping rule source", slog.String("rule", r.Name), slog.String("source", s.Name))
				continue
			}
			sources = append(sources, s)
		}
		if len(sources) == 0 {
			excluded = append(excluded, r.Name)
			continue
		}
		r.Sources = sources
		runnable = append(runnable, r)
	}
	return runnable, excluded
}

// isolate zeroes and mutes every shape after recording its state.
// The returned function restores the recorded states.
func (e *Engine) isolate(mesh string, names []string) (restore func() error, err error) {
	saved := make([]State, len(names))
	for i, n := range names {
		saved[i], err = e.Store.TargetState(mesh, n)
		if err != nil {
			return nil, err
		}
	}
	restore = func() error {
		var errs []error
		for i, n := range names {
			s := saved[i]
			errs = append(errs,
				e.Store.SetTargetWeight(mesh, n, s.Value),
				e.Store.SetTargetMute(mesh, n, s.Mute),
				e.Store.SetTargetMask(mesh, n, s.Mask),
			)
		}
		return errors.Join(errs...)
	}
	for _, n := range names {
		if err = e.setState(mesh, n, State{Mute: true}); err != nil {
			return nil, errors.Join(err, restore())
		}
	}
	return restore, nil
}

func (e *Engine) setState(mesh, name string, s State) error {
	if err := e.Store.SetTargetWeight(mesh, name, s.Value); err != nil {
		return err
	}
	if err := e.Store.SetTargetMute(mesh, name, s.Mute); err != nil {
		return err
	}
	return e.Store.SetTargetMask(mesh, name, s.Mask)
}

// evaluate mixes the sources of r into the store, transforms the mix and writes
// the result to r's shape. Sources are muted again before returning.
func (e *Engine) evaluate(mesh string, r *Rule, basis []r3.Vec, pairing *mirror.Pairing) (err error) {
	defer func() {
		for _, s := range r.Sources {
			err = errors.Join(err, e.setState(mesh, s.Name, State{Mute: true}))
		}
	}()
	for _, s := range r.Sources {
		if err = e.setState(mesh, s.Name, State{Value: s.Value, Mask: s.Mask}); err != nil {
			return err
		}
	}
	mix, err := e.Store.EvaluateMix(mesh)
	if err != nil {
		return err
	}
	result, err := Transform(r.Type, basis, mix, pairing)
	if err != nil {
		return err
	}
	return e.Store.WriteTarget(mesh, r.Name, result)
}
