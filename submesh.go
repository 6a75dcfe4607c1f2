package gmd

// MaxSubmeshVertices is the hard vertex cap of a single submesh, dictated
// by 16-bit indices with 0xFFFF reserved as the strip restart marker.
const MaxSubmeshVertices = 65535

// submeshBuilder accumulates triangles expressed in fused ids, assigning
// each fused vertex a local index the first time a triangle touches it.
type submeshBuilder struct {
	maxVertices  int
	fusedToLocal map[int]int
	order        []int
	tris         []uint16
}

func newSubmeshBuilder(maxVertices int) *submeshBuilder {
	return &submeshBuilder{
		maxVertices:  maxVertices,
		fusedToLocal: make(map[int]int),
	}
}

// addTriangle tries to add one triangle of fused ids, keeping winding.
// It reports false when the new vertices would push the builder past its
// cap; the caller then flushes and retries on a fresh builder.
func (b *submeshBuilder) addTriangle(tri [3]int) bool {
	needed := 0
	for i, fid := range tri {
		if _, ok := b.fusedToLocal[fid]; ok {
			continue
		}
		dup := false
		for j := 0; j < i; j++ {
			if tri[j] == fid {
				dup = true
				break
			}
		}
		if !dup {
			needed++
		}
	}
	if len(b.order)+needed > b.maxVertices {
		return false
	}
	for _, fid := range tri {
		local, ok := b.fusedToLocal[fid]
		if !ok {
			local = len(b.order)
			b.fusedToLocal[fid] = local
			b.order = append(b.order, fid)
		}
		b.tris = append(b.tris, uint16(local))
	}
	return true
}

func (b *submeshBuilder) empty() bool {
	return len(b.tris) == 0
}

// build copies each referenced fused group's representative vertex into a
// fresh buffer and returns the finished submesh. All source buffers feeding
// one material must share a channel layout.
func (b *submeshBuilder) build(f *Fusion, buffers []*VertexBuffer, materialID int32) *Submesh {
	rep0 := f.Groups[b.order[0]][0]
	vb := buffers[rep0.Buffer].EmptyLike()
	for _, fid := range b.order {
		rep := f.Groups[fid][0]
		vb.AppendFrom(buffers[rep.Buffer], rep.Index)
	}
	return &Submesh{
		MaterialID: materialID,
		Vertices:   vb,
		Indices:    IndexBuffer(b.tris),
	}
}

// BuildSubmeshes re-emits every triangle against the fused vertex set,
// grouped by material and chunked so no submesh exceeds maxVertices
// vertices. Fused groups spanning several source buffers are emitted once
// per chunk that references them, through their representative vertex.
// A maxVertices of zero or above the hard cap means the hard cap.
func BuildSubmeshes(buffers []*VertexBuffer, indices []IndexBuffer, materials []int32, f *Fusion, maxVertices int) []*Submesh {
	if maxVertices <= 0 || maxVertices > MaxSubmeshVertices {
		maxVertices = MaxSubmeshVertices
	}
	if maxVertices < 3 {
		maxVertices = 3
	}

	var matOrder []int32
	seen := make(map[int32]bool)
	for _, m := range materials {
		if !seen[m] {
			seen[m] = true
			matOrder = append(matOrder, m)
		}
	}

	var out []*Submesh
	for _, mat := range matOrder {
		b := newSubmeshBuilder(maxVertices)
		for bi, idx := range indices {
			if materials[bi] != mat {
				continue
			}
			lookup := f.Lookup[bi]
			for t := 0; t+2 < len(idx); t += 3 {
				tri := [3]int{
					lookup[idx[t]],
					lookup[idx[t+1]],
					lookup[idx[t+2]],
				}
				if b.addTriangle(tri) {
					continue
				}
				out = append(out, b.build(f, buffers, mat))
				b = newSubmeshBuilder(maxVertices)
				b.addTriangle(tri)
			}
		}
		if !b.empty() {
			out = append(out, b.build(f, buffers, mat))
		}
	}
	return out
}

// BuildTriangleStrips converts a triangle list into its two strip forms:
// one joined by degenerate triangles and one using the 0xFFFF restart
// marker. Both preserve triangle order and winding of the input list.
func BuildTriangleStrips(indices IndexBuffer) (strip IndexBuffer, stripReset IndexBuffer) {
	for t := 0; t+2 < len(indices); t += 3 {
		i0, i1, i2 := indices[t], indices[t+1], indices[t+2]

		switch {
		case len(strip) == 0:
			strip = append(strip, i0, i1, i2)
		case strip[len(strip)-2] == i0 && strip[len(strip)-1] == i1:
			strip = append(strip, i2)
		default:
			strip = append(strip, strip[len(strip)-1], i0, i0, i1, i2)
		}

		switch {
		case len(stripReset) == 0:
			stripReset = append(stripReset, i0, i1, i2)
		case stripReset[len(stripReset)-2] == i0 && stripReset[len(stripReset)-1] == i1:
			stripReset = append(stripReset, i2)
		default:
			stripReset = append(stripReset, STRIP_RESET_INDEX, i0, i1, i2)
		}
	}
	return strip, stripReset
}
