package shapekey

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/soypat/shapekey/correspond"
	"github.com/soypat/shapekey/transfer"
	"gonum.org/v1/gonum/spatial/r3"
)

// Method selects what is transferred.
type Method int

const (
	// MethodKey transfers shapes of the source mesh as shapes of the same name.
	MethodKey Method = iota
	// MethodMesh transfers the current mix of the source mesh as one shape
	// named after the source mesh.
	MethodMesh
)

// TransferMode selects how vertices are matched.
type TransferMode int

const (
	// Standard matches vertices by index and requires equal vertex counts.
	Standard TransferMode = iota
	// Smart matches vertices with the configured correspondence mapper.
	Smart
)

// Selection selects the source shapes of a MethodKey transfer.
type Selection int

const (
	SelectActive Selection = iota
	SelectAll
	// SelectNamed transfers the shapes listed in TransferOptions.Names.
	SelectNamed
)

// TransferOptions configures Transfer.
type TransferOptions struct {
	Method  Method
	Mode    TransferMode
	Targets Selection
	Names   []string
}

// TransferReport summarizes a transfer.
type TransferReport struct {
	Direct       int
	Interpolated int
	Unmapped     int
	// Transferred lists the shapes created on the target mesh.
	Transferred []string
	Errors      []*TargetError
}

// Transfer copies shapes of mesh src onto mesh dst as new shapes.
//
// Configuration and topology errors are returned before anything is written.
// A shape that fails to transfer is recorded in the report and the remaining
// shapes are still transferred.
func Transfer(store MeshStore, src, dst string, opts TransferOptions, cfg Config) (rep TransferReport, err error) {
	start := time.Now()
	log := cfg.logger().With(slog.String("source", src), slog.String("target", dst))
	srcBasis, err := store.Basis(src)
	if err != nil {
		return rep, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	dstBasis, err := store.Basis(dst)
	if err != nil {
		return rep, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	names, err := sourceShapes(store, src, opts)
	if err != nil {
		return rep, err
	}
	method := opts.Method
	if method == MethodKey && len(names) == 0 {
		if opts.Targets != SelectActive {
			return rep, configErr("no shapes selected on %q", src)
		}
		method = MethodMesh
	}

	mapCfg := cfg.Mapper
	if method == MethodMesh {
		// Merged meshes are matched on normalized positions.
		mapCfg.ScaleNormalize = true
	}
	if opts.Mode == Standard {
		if len(srcBasis) != len(dstBasis) {
			return rep, fmt.Errorf("%w: %q has %d vertices, %q has %d", ErrTopologyMismatch, src, len(srcBasis), dst, len(dstBasis))
		}
		mapCfg.Mode = correspond.ModeIndex
	}
	c, err := mapMeshes(store, src, dst, srcBasis, dstBasis, mapCfg)
	if err != nil {
		return rep, err
	}
	rep.Direct = c.DirectCount()
	rep.Interpolated = len(c.Interp)
	rep.Unmapped = len(c.Unmapped)
	log.Debug("correspondence built", slog.String("mode", mapCfg.Mode.String()),
		slog.Int("direct", rep.Direct), slog.Int("interpolated", rep.Interpolated), slog.Int("unmapped", rep.Unmapped))

	apply := transfer.Options{Mode: transfer.ModeDelta}
	if opts.Mode == Smart && mapCfg.ScaleNormalize {
		apply.Normalize = true
		apply.Scale = transfer.ScaleFactors(srcBasis, dstBasis)
	} else if opts.Mode == Smart && transfer.SuggestNormalize(srcBasis, dstBasis) {
		log.Info("mesh scales differ, consider scale normalization")
	}
	if method == MethodMesh {
		apply.Mode = transfer.ModeAbsolute
		mix, err := store.EvaluateMix(src)
		if err != nil {
			return rep, err
		}
		rep.transferOne(store, log, c, dst, src, dstBasis, srcBasis, mix, apply)
	} else {
		for _, name := range names {
			shape, err := store.Target(src, name)
			if err != nil {
				rep.fail(log, name, err)
				continue
			}
			rep.transferOne(store, log, c, dst, name, dstBasis, srcBasis, shape, apply)
		}
	}
	log.Info("transferred shapes", slog.Int("shapes", len(rep.Transferred)),
		slog.Int("failed", len(rep.Errors)), slog.Duration("elapsed", time.Since(start)))
	return rep, nil
}

func (rep *TransferReport) transferOne(store MeshStore, log *slog.Logger, c *correspond.Correspondence, dst, name string, dstBasis, srcBasis, shape []r3.Vec, opts transfer.Options) {
	points, err := transfer.Apply(c, dstBasis, srcBasis, shape, opts)
	if err != nil {
		rep.fail(log, name, err)
		return
	}
	created, err := store.CreateTarget(dst, name, points)
	if err != nil {
		rep.fail(log, name, err)
		return
	}
	rep.Transferred = append(rep.Transferred, created)
}

func (rep *TransferReport) fail(log *slog.Logger, name string, err error) {
	log.Warn("shape transfer failed", slog.String("shape", name), slog.Any("error", err))
	rep.Errors = append(rep.Errors, &TargetError{Target: name, Err: err})
}

func sourceShapes(store MeshStore, src string, opts TransferOptions) ([]string, error) {
	if opts.Method == MethodMesh {
		return nil, nil
	}
	switch opts.Targets {
	case SelectActive:
		active, err := store.ActiveTarget(src)
		if err != nil {
			return nil, err
		}
		basis, err := isBasis(store, src, active)
		if err != nil || basis {
			return nil, err
		}
		return []string{active}, nil
	case SelectAll:
		return store.TargetNames(src)
	case SelectNamed:
		all, err := store.TargetNames(src)
		if err != nil {
			return nil, err
		}
		exists := make(map[string]bool, len(all))
		for _, n := range all {
			exists[n] = true
		}
		var names []string
		for _, n := range opts.Names {
			if exists[n] {
				names = append(names, n)
			}
		}
		return names, nil
	}
	return nil, configErr("invalid shape selection %d", int(opts.Targets))
}

// mapMeshes builds the correspondence from dst vertices to src vertices.
func mapMeshes(store MeshStore, src, dst string, srcBasis, dstBasis []r3.Vec, cfg correspond.Config) (*correspond.Correspondence, error) {
	m, err := correspond.NewMapper(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	srcMesh := correspond.Mesh{Points: srcBasis}
	dstMesh := correspond.Mesh{Points: dstBasis}
	if cfg.Mode == correspond.ModeUV {
		if srcMesh.UV, err = store.UVPerVertex(src); err != nil {
			return nil, err
		}
		if dstMesh.UV, err = store.UVPerVertex(dst); err != nil {
			return nil, err
		}
		if srcMesh.UV == nil || dstMesh.UV == nil {
			return nil, configErr("UV mapping requires a UV layer on %q and %q", src, dst)
		}
		if srcMesh.Faces, err = store.Faces(src); err != nil {
			return nil, err
		}
	}
	c, err := m.Map(srcMesh, dstMesh)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return c, nil
}
