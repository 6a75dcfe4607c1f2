package gmd

import (
	"fmt"
	"sort"
)

// Triangle is one triangle occurrence from an index buffer: the buffer it
// came from and its three original indices in winding order.
type Triangle struct {
	Buffer  int
	Indices [3]uint16
}

// FusedTriangle is a triangle's identity after fusion: its three fused ids
// sorted ascending, so winding and corner order do not matter.
type FusedTriangle [3]int

func fusedKey(t Triangle, f *Fusion) FusedTriangle {
	lookup := f.Lookup[t.Buffer]
	k := FusedTriangle{
		lookup[t.Indices[0]],
		lookup[t.Indices[1]],
		lookup[t.Indices[2]],
	}
	if k[0] > k[1] {
		k[0], k[1] = k[1], k[0]
	}
	if k[1] > k[2] {
		k[1], k[2] = k[2], k[1]
	}
	if k[0] > k[1] {
		k[0], k[1] = k[1], k[0]
	}
	return k
}

// DetectFullyFusedTriangles maps every triangle through the fusion index and
// reports the groups of triangles that fusion would merge. A key maps to two
// or more triangles when distinct original triangles collapse onto the same
// fused triple. A single-triangle entry survives only when all three of its
// corners sit in multi-member fused groups; such a triangle is entirely made
// of fused vertices and matters to the decider even without a collision.
func DetectFullyFusedTriangles(indices []IndexBuffer, f *Fusion) map[FusedTriangle][]Triangle {
	found := make(map[FusedTriangle][]Triangle)
	for bi, idx := range indices {
		for t := 0; t+2 < len(idx); t += 3 {
			tri := Triangle{Buffer: bi, Indices: [3]uint16{idx[t], idx[t+1], idx[t+2]}}
			key := fusedKey(tri, f)
			found[key] = append(found[key], tri)
		}
	}
	for key, tris := range found {
		if len(tris) >= 2 {
			continue
		}
		allFused := true
		for _, gi := range key {
			if len(f.Groups[gi]) < 2 {
				allFused = false
				break
			}
		}
		if !allFused {
			delete(found, key)
		}
	}
	return found
}

// hasCollisions reports whether any fused triple is shared by two or more
// original triangles.
func hasCollisions(fullyFused map[FusedTriangle][]Triangle) bool {
	for _, tris := range fullyFused {
		if len(tris) >= 2 {
			return true
		}
	}
	return false
}

// UnfuseConstraints is a symmetric must-not-fuse relation between original
// vertices.
type UnfuseConstraints map[VertexRef]map[VertexRef]bool

// Add records the constraint in both directions.
func (c UnfuseConstraints) Add(a, b VertexRef) {
	if c[a] == nil {
		c[a] = make(map[VertexRef]bool)
	}
	if c[b] == nil {
		c[b] = make(map[VertexRef]bool)
	}
	c[a][b] = true
	c[b][a] = true
}

// Forbids reports whether a and b must end up in different groups.
func (c UnfuseConstraints) Forbids(a, b VertexRef) bool {
	return c[a][b]
}

// cornersByFusedID returns a triangle's corner refs ordered by their fused
// id, so corners of two colliding triangles line up group by group. Ties
// from degenerate triangles break on the ref itself to stay deterministic.
func cornersByFusedID(t Triangle, f *Fusion) [3]VertexRef {
	corners := [3]VertexRef{
		{Buffer: t.Buffer, Index: int(t.Indices[0])},
		{Buffer: t.Buffer, Index: int(t.Indices[1])},
		{Buffer: t.Buffer, Index: int(t.Indices[2])},
	}
	sort.Slice(corners[:], func(i, j int) bool {
		gi, gj := f.FusedID(corners[i]), f.FusedID(corners[j])
		if gi != gj {
			return gi < gj
		}
		return refLess(corners[i], corners[j])
	})
	return corners
}

// DecideOnUnfusions inspects each collision group pairwise and decides which
// vertices must be torn apart so the colliding triangles stay distinct.
//
// For a pair of triangles the corners are aligned by fused id. An aligned
// corner pair with different refs becomes a constraint when both corners are
// fully fused vertices, meaning every triangle they participate in appears
// in the detector output. Those are the interior seam vertices; breaking
// them apart restores the layering that fusion collapsed. If no aligned pair
// qualifies and the triangles are not literal duplicates, the first aligned
// pair with differing refs is constrained instead, which guarantees each
// round of unfusion makes progress.
func DecideOnUnfusions(indices []IndexBuffer, f *Fusion, fullyFused map[FusedTriangle][]Triangle) UnfuseConstraints {
	vertTris := make(map[VertexRef][]Triangle)
	for bi, idx := range indices {
		for t := 0; t+2 < len(idx); t += 3 {
			tri := Triangle{Buffer: bi, Indices: [3]uint16{idx[t], idx[t+1], idx[t+2]}}
			for _, i := range tri.Indices {
				r := VertexRef{Buffer: bi, Index: int(i)}
				vertTris[r] = append(vertTris[r], tri)
			}
		}
	}
	inFused := make(map[Triangle]bool)
	for _, tris := range fullyFused {
		for _, t := range tris {
			inFused[t] = true
		}
	}

	fullyFusedVert := make(map[VertexRef]bool)
	isFullyFused := func(r VertexRef) bool {
		v, ok := fullyFusedVert[r]
		if ok {
			return v
		}
		v = true
		for _, t := range vertTris[r] {
			if !inFused[t] {
				v = false
				break
			}
		}
		fullyFusedVert[r] = v
		return v
	}

	constraints := make(UnfuseConstraints)
	for _, tris := range fullyFused {
		for i := 0; i < len(tris); i++ {
			for j := i + 1; j < len(tris); j++ {
				a := cornersByFusedID(tris[i], f)
				b := cornersByFusedID(tris[j], f)
				added := false
				identical := true
				for k := 0; k < 3; k++ {
					if a[k] == b[k] {
						continue
					}
					identical = false
					if isFullyFused(a[k]) && isFullyFused(b[k]) {
						constraints.Add(a[k], b[k])
						added = true
					}
				}
				if added || identical {
					continue
				}
				for k := 0; k < 3; k++ {
					if a[k] != b[k] {
						constraints.Add(a[k], b[k])
						break
					}
				}
			}
		}
	}
	return constraints
}

// SolveUnfusion refines a group partition so it satisfies the constraints.
// Each old group is recolored greedily: members are scanned in order, each
// starting a new subgroup only when it conflicts with every existing one.
// The refined groups are renumbered by lowest member, same as a fresh fuse.
func SolveUnfusion(buffers []*VertexBuffer, oldGroups []FusedGroup, constraints UnfuseConstraints) *Fusion {
	var groups []FusedGroup
	for _, g := range oldGroups {
		groups = append(groups, splitGroup(g, constraints)...)
	}
	sort.Slice(groups, func(i, j int) bool {
		return refLess(groups[i][0], groups[j][0])
	})
	f := buildFusion(groups, buffers)
	for a, bs := range constraints {
		for b := range bs {
			if f.FusedID(a) == f.FusedID(b) {
				panic(fmt.Sprintf("gmd: unfusion left constrained vertices (%d,%d) and (%d,%d) in one group",
					a.Buffer, a.Index, b.Buffer, b.Index))
			}
		}
	}
	return f
}

func splitGroup(g FusedGroup, constraints UnfuseConstraints) []FusedGroup {
	assigned := make([]bool, len(g))
	var out []FusedGroup
	for first := 0; first < len(g); first++ {
		if assigned[first] {
			continue
		}
		sub := FusedGroup{g[first]}
		assigned[first] = true
		for next := first + 1; next < len(g); next++ {
			if assigned[next] {
				continue
			}
			ok := true
			for _, m := range sub {
				if constraints.Forbids(m, g[next]) {
					ok = false
					break
				}
			}
			if ok {
				sub = append(sub, g[next])
				assigned[next] = true
			}
		}
		out = append(out, sub)
	}
	return out
}

// VertexFusion runs the full pipeline: fuse everything that looks identical,
// then repeatedly detect triangles that fusion collapsed together and refine
// the partition until no two original triangles share a fused triple. The
// loop stops early if a round yields no constraints, which only happens when
// the remaining collisions are literal duplicate triangles that no split can
// separate.
func VertexFusion(indices []IndexBuffer, buffers []*VertexBuffer) *Fusion {
	f := FuseAdjacentVertices(buffers)
	for {
		fullyFused := DetectFullyFusedTriangles(indices, f)
		if !hasCollisions(fullyFused) {
			return f
		}
		constraints := DecideOnUnfusions(indices, f, fullyFused)
		if len(constraints) == 0 {
			return f
		}
		f = SolveUnfusion(buffers, f.Groups, constraints)
	}
}
