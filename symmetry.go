package shapekey

import (
	"fmt"
	"log/slog"

	"github.com/soypat/shapekey/compose"
	"github.com/soypat/shapekey/mirror"
	"gonum.org/v1/gonum/spatial/r3"
)

// MirrorReport summarizes the pairing used by a mirror operation.
type MirrorReport struct {
	Paired     int
	Seam       int
	Asymmetric int
}

func newMirrorReport(p *mirror.Pairing) MirrorReport {
	return MirrorReport{Paired: p.Paired(), Seam: len(p.Seam), Asymmetric: len(p.Asymmetric)}
}

// MirrorActive replaces the active shape of mesh with its reflection across axis.
func MirrorActive(store MeshStore, mesh string, axis mirror.Axis, cfg Config) (MirrorReport, error) {
	name, err := activeShape(store, mesh)
	if err != nil {
		return MirrorReport{}, err
	}
	return mirrorTarget(store, mesh, name, axis, cfg, (*mirror.Pairing).MirrorShape)
}

// Symmetrize makes shape name of mesh symmetric by copying the deformation of
// the half axis points to onto the opposite half.
func Symmetrize(store MeshStore, mesh, name string, axis mirror.Axis, cfg Config) (MirrorReport, error) {
	return mirrorTarget(store, mesh, name, axis, cfg, (*mirror.Pairing).Symmetrize)
}

func mirrorTarget(store MeshStore, mesh, name string, axis mirror.Axis, cfg Config,
	op func(p *mirror.Pairing, basis, shape []r3.Vec) ([]r3.Vec, error)) (MirrorReport, error) {
	basis, shape, err := basisAndShape(store, mesh, name)
	if err != nil {
		return MirrorReport{}, err
	}
	p := mirror.Resolve(basis, axis, cfg.mirrorTolerance())
	out, err := op(&p, basis, shape)
	if err != nil {
		return MirrorReport{}, err
	}
	if err := store.WriteTarget(mesh, name, out); err != nil {
		return MirrorReport{}, err
	}
	rep := newMirrorReport(&p)
	cfg.logger().Info("mirrored shape", slog.String("mesh", mesh), slog.String("shape", name),
		slog.String("axis", axis.String()), slog.Int("paired", rep.Paired), slog.Int("asymmetric", rep.Asymmetric))
	return rep, nil
}

// DuplicateMirror creates the opposite side counterpart of shape name, i.e.
// "Smile_R" from "Smile_L", holding its reflection across X. If setupRule is
// set a Mirror rule deriving the new shape from name is added to rules, which
// may be nil otherwise. It returns the name of the new shape.
func DuplicateMirror(store MeshStore, rules RuleStore, mesh, name string, setupRule bool, cfg Config) (string, error) {
	mirrored, ok := mirror.Name(name)
	if !ok || mirrored == name {
		return "", configErr("shape %q has no side marker", name)
	}
	names, err := store.TargetNames(mesh)
	if err != nil {
		return "", err
	}
	for _, n := range names {
		if n == mirrored {
			return "", configErr("shape %q already exists", mirrored)
		}
	}
	if setupRule && rules == nil {
		return "", configErr("rule setup requires a rule store")
	}
	basis, shape, err := basisAndShape(store, mesh, name)
	if err != nil {
		return "", err
	}
	p := mirror.Resolve(basis, mirror.PosX, cfg.mirrorTolerance())
	out, err := p.MirrorShape(basis, shape)
	if err != nil {
		return "", err
	}
	created, err := store.CreateTarget(mesh, mirrored, out)
	if err != nil {
		return "", err
	}
	if setupRule {
		rule := compose.Rule{
			Name:    created,
			Enabled: true,
			Type:    compose.Mirror,
			Sources: []compose.Source{{Name: name, Value: 1}},
		}
		if err := putRule(rules, mesh, rule); err != nil {
			return created, err
		}
	}
	return created, nil
}

func activeShape(store MeshStore, mesh string) (string, error) {
	name, err := store.ActiveTarget(mesh)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	basis, err := isBasis(store, mesh, name)
	if err != nil {
		return "", err
	}
	if basis {
		return "", configErr("active shape of %q is the basis", mesh)
	}
	return name, nil
}

func basisAndShape(store MeshStore, mesh, name string) (basis, shape []r3.Vec, err error) {
	basis, err = store.Basis(mesh)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	shape, err = store.Target(mesh, name)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return basis, shape, nil
}
