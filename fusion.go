package gmd

import (
	"fmt"
	"math"

	"github.com/flywave/go3d/vec3"
)

// PositionEpsilon is the per-component distance under which two vertices
// with identical attributes are considered the same point.
const PositionEpsilon float32 = 1e-6

// fuseCellSize is the edge length of the spatial binning grid. It is larger
// than PositionEpsilon, so two fusable vertices are never more than one cell
// apart on any axis and the 27-cell neighborhood scan finds every candidate.
const fuseCellSize = 1e-5

// FusedGroup lists the member vertices of one fused vertex, ascending by
// (buffer, index). The first member acts as the group representative.
type FusedGroup []VertexRef

// Fusion is the complete bidirectional fusion index over a set of vertex
// buffers. Groups are ordered by their lowest member, Lookup maps every
// original vertex to its group id, and IsFused is false exactly for each
// group's representative.
type Fusion struct {
	Groups  []FusedGroup
	Lookup  [][]int
	IsFused [][]bool
}

// FusedID returns the group id of an original vertex.
func (f *Fusion) FusedID(r VertexRef) int {
	return f.Lookup[r.Buffer][r.Index]
}

// VertexCount returns the number of original vertices covered by the index.
func (f *Fusion) VertexCount() int {
	n := 0
	for _, l := range f.Lookup {
		n += len(l)
	}
	return n
}

// FusedCount returns how many original vertices are dropped by fusion.
func (f *Fusion) FusedCount() int {
	return f.VertexCount() - len(f.Groups)
}

type disjointSet struct {
	parent []int
	rank   []int
}

func newDisjointSet(n int) *disjointSet {
	d := &disjointSet{parent: make([]int, n), rank: make([]int, n)}
	for i := range d.parent {
		d.parent[i] = i
	}
	return d
}

func (d *disjointSet) find(i int) int {
	for d.parent[i] != i {
		d.parent[i] = d.parent[d.parent[i]]
		i = d.parent[i]
	}
	return i
}

func (d *disjointSet) union(a, b int) {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return
	}
	if d.rank[ra] < d.rank[rb] {
		ra, rb = rb, ra
	}
	d.parent[rb] = ra
	if d.rank[ra] == d.rank[rb] {
		d.rank[ra]++
	}
}

// fuseCell keys the binning grid: the serialized attributes plus the
// quantized position. Vertices with different attributes land in different
// cells and are never compared. Cell coordinates are int64 so every float32
// position quantizes without overflow.
type fuseCell struct {
	attrs   string
	x, y, z int64
}

func cellOf(attrs string, p *vec3.T) fuseCell {
	return fuseCell{
		attrs: attrs,
		x:     int64(math.Floor(float64(p[0]) / fuseCellSize)),
		y:     int64(math.Floor(float64(p[1]) / fuseCellSize)),
		z:     int64(math.Floor(float64(p[2]) / fuseCellSize)),
	}
}

func withinEpsilon(a, b *vec3.T) bool {
	for i := 0; i < 3; i++ {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		if d > PositionEpsilon {
			return false
		}
	}
	return true
}

// FuseAdjacentVertices partitions the vertices of all buffers into fused
// groups. Two vertices share a group when connected by a chain of pairs
// whose attributes match exactly and whose positions differ by at most
// PositionEpsilon per component. Fusion freely crosses buffer boundaries.
func FuseAdjacentVertices(buffers []*VertexBuffer) *Fusion {
	total := 0
	for _, vb := range buffers {
		total += vb.Len()
	}

	refs := make([]VertexRef, 0, total)
	positions := make([]*vec3.T, 0, total)
	ds := newDisjointSet(total)
	cells := make(map[fuseCell][]int)

	flat := 0
	for bi, vb := range buffers {
		for vi := 0; vi < vb.Len(); vi++ {
			p := &vb.Positions[vi]
			attrs := vb.attrKey(vi)
			home := cellOf(attrs, p)
			for dx := int64(-1); dx <= 1; dx++ {
				for dy := int64(-1); dy <= 1; dy++ {
					for dz := int64(-1); dz <= 1; dz++ {
						cell := fuseCell{attrs: home.attrs, x: home.x + dx, y: home.y + dy, z: home.z + dz}
						for _, cand := range cells[cell] {
							if withinEpsilon(p, positions[cand]) {
								ds.union(flat, cand)
							}
						}
					}
				}
			}
			cells[home] = append(cells[home], flat)
			refs = append(refs, VertexRef{Buffer: bi, Index: vi})
			positions = append(positions, p)
			flat++
		}
	}

	groups := make([]FusedGroup, 0, total)
	groupOf := make(map[int]int)
	for i := 0; i < total; i++ {
		root := ds.find(i)
		gi, ok := groupOf[root]
		if !ok {
			gi = len(groups)
			groupOf[root] = gi
			groups = append(groups, nil)
		}
		groups[gi] = append(groups[gi], refs[i])
	}

	return buildFusion(groups, buffers)
}

// buildFusion derives the Lookup and IsFused tables from a group partition.
// Every vertex of every buffer must appear in exactly one group; a violation
// means the engine itself is broken and panics.
func buildFusion(groups []FusedGroup, buffers []*VertexBuffer) *Fusion {
	f := &Fusion{
		Groups:  groups,
		Lookup:  make([][]int, len(buffers)),
		IsFused: make([][]bool, len(buffers)),
	}
	for bi, vb := range buffers {
		f.Lookup[bi] = make([]int, vb.Len())
		f.IsFused[bi] = make([]bool, vb.Len())
		for i := range f.Lookup[bi] {
			f.Lookup[bi][i] = -1
		}
	}
	for gi, g := range groups {
		for mi, r := range g {
			if f.Lookup[r.Buffer][r.Index] != -1 {
				panic(fmt.Sprintf("gmd: vertex (%d,%d) assigned to two fused groups", r.Buffer, r.Index))
			}
			f.Lookup[r.Buffer][r.Index] = gi
			f.IsFused[r.Buffer][r.Index] = mi > 0
		}
	}
	for bi := range f.Lookup {
		for vi, gi := range f.Lookup[bi] {
			if gi == -1 {
				panic(fmt.Sprintf("gmd: vertex (%d,%d) missing from fusion partition", bi, vi))
			}
		}
	}
	return f
}
