package correspond

import (
	"fmt"

	"github.com/soypat/shapekey/internal/d2"
	"github.com/soypat/shapekey/spatial"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	// uvBoxMargin grows triangle bounds before the containment test.
	uvBoxMargin = 0.001
	// baryTol accepts points marginally outside a triangle edge.
	baryTol = 1e-9
)

// AverageLoopUVs computes a UV coordinate per vertex by averaging the UVs of
// all face corners (loops) referencing it. Vertices on UV seams get the mean of
// their islands' coordinates. Vertices with no loops get the zero UV.
func AverageLoopUVs(vertexCount int, loopVerts []int, loopUVs []r2.Vec) ([]r2.Vec, error) {
	if len(loopVerts) != len(loopUVs) {
		return nil, fmt.Errorf("correspond: %d loop vertices but %d loop UVs", len(loopVerts), len(loopUVs))
	}
	sum := make([]r2.Vec, vertexCount)
	count := make([]int, vertexCount)
	for i, v := range loopVerts {
		if v < 0 || v >= vertexCount {
			return nil, fmt.Errorf("correspond: loop %d references vertex %d out of range", i, v)
		}
		sum[v] = r2.Add(sum[v], loopUVs[i])
		count[v]++
	}
	for v, n := range count {
		if n > 1 {
			sum[v] = r2.Scale(1/float64(n), sum[v])
		}
	}
	return sum, nil
}

type uvTriangle struct {
	tri    d2.Triangle
	verts  [3]int
	bounds d2.Box
}

// fanTriangulate splits each face into a triangle fan around its first vertex.
func fanTriangulate(faces [][]int, uv []r2.Vec) ([]uvTriangle, error) {
	var tris []uvTriangle
	for fi, f := range faces {
		if len(f) < 3 {
			continue
		}
		for _, v := range f {
			if v < 0 || v >= len(uv) {
				return nil, fmt.Errorf("correspond: face %d references vertex %d out of range", fi, v)
			}
		}
		for i := 1; i < len(f)-1; i++ {
			t := uvTriangle{
				tri:   d2.Triangle{uv[f[0]], uv[f[i]], uv[f[i+1]]},
				verts: [3]int{f[0], f[i], f[i+1]},
			}
			t.bounds = t.tri.Bounds().Grow(uvBoxMargin)
			tris = append(tris, t)
		}
	}
	return tris, nil
}

// ByUV maps target vertices to source vertices using per vertex UV coordinates.
// A target UV within cfg.UVThreshold of a source UV is a direct match. Otherwise
// the enclosing source UV triangle is searched among the cfg.TriangleCandidates
// triangles with nearest centroids and its corners are blended with barycentric
// weights. If no triangle encloses the UV the cfg.UVNeighbors nearest source UVs
// are blended by inverse squared distance.
func ByUV(src, dst Mesh, cfg Config) (*Correspondence, error) {
	if src.UV == nil || dst.UV == nil {
		return nil, ErrNoUV
	}
	if len(src.UV) != len(src.Points) || len(dst.UV) != len(dst.Points) {
		return nil, ErrUVLength
	}
	tris, err := fanTriangulate(src.Faces, src.UV)
	if err != nil {
		return nil, err
	}
	centroids := make([]r2.Vec, len(tris))
	for i := range tris {
		centroids[i] = tris[i].tri.Centroid()
	}
	uvIdx := spatial.NewUV(src.UV)
	triIdx := spatial.NewUV(centroids)

	c := newCorrespondence(len(dst.UV))
	for t, uv := range dst.UV {
		s, dist, ok := uvIdx.NearestUV(uv)
		if ok && dist <= cfg.UVThreshold {
			c.Direct[t] = s
			continue
		}
		if sources, weights, found := enclosingTriangle(tris, triIdx, uv, cfg.TriangleCandidates); found {
			c.addInterp(t, sources, weights)
			continue
		}
		neighbors := uvIdx.KNearestUV(uv, cfg.UVNeighbors)
		if len(neighbors) == 0 {
			c.Unmapped = append(c.Unmapped, t)
			continue
		}
		sources := make([]int, len(neighbors))
		weights := make([]float64, len(neighbors))
		for i, n := range neighbors {
			sources[i] = n.Index
			weights[i] = 1 / (n.Dist*n.Dist + 1e-6)
		}
		c.addInterp(t, sources, weights)
	}
	return c, nil
}

func enclosingTriangle(tris []uvTriangle, idx *spatial.Index, uv r2.Vec, candidates int) (sources []int, weights []float64, ok bool) {
	for _, cand := range idx.KNearestUV(uv, candidates) {
		t := &tris[cand.Index]
		if !t.bounds.Contains(uv) {
			continue
		}
		w, inside := t.tri.Contains(uv, baryTol)
		if !inside {
			continue
		}
		for i := range w {
			if w[i] < 0 {
				w[i] = 0
			}
		}
		return []int{t.verts[0], t.verts[1], t.verts[2]}, []float64{w[0], w[1], w[2]}, true
	}
	return nil, nil, false
}
