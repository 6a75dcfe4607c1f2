package gmd

import (
	"reflect"
	"testing"
)

func TestBuildSubmeshesDedupe(t *testing.T) {
	// Two triangles sharing an edge that exists twice in the buffer.
	vb := testBuffer(
		[3]float32{0, 0, 0},
		[3]float32{1, 0, 0},
		[3]float32{0, 1, 0},
		[3]float32{1, 0, 0},
		[3]float32{0, 1, 0},
		[3]float32{1, 1, 0},
	)
	indices := []IndexBuffer{{0, 1, 2, 3, 4, 5}}
	buffers := []*VertexBuffer{vb}
	f := VertexFusion(indices, buffers)

	out := BuildSubmeshes(buffers, indices, []int32{0}, f, 0)
	if len(out) != 1 {
		t.Fatalf("got %d submeshes, want 1", len(out))
	}
	sm := out[0]
	if sm.Vertices.Len() != 4 {
		t.Errorf("vertices = %d, want 4", sm.Vertices.Len())
	}
	if !reflect.DeepEqual(sm.Indices, IndexBuffer{0, 1, 2, 1, 2, 3}) {
		t.Errorf("indices = %v, want [0 1 2 1 2 3]", sm.Indices)
	}
	if sm.Vertices.Positions[3] != vb.Positions[5] {
		t.Errorf("vertex 3 = %v, want %v", sm.Vertices.Positions[3], vb.Positions[5])
	}
}

func TestBuildSubmeshesChunking(t *testing.T) {
	vb := testBuffer(
		[3]float32{0, 0, 0},
		[3]float32{1, 0, 0},
		[3]float32{0, 1, 0},
		[3]float32{5, 0, 0},
		[3]float32{6, 0, 0},
		[3]float32{5, 1, 0},
	)
	indices := []IndexBuffer{{0, 1, 2, 3, 4, 5}}
	buffers := []*VertexBuffer{vb}
	f := VertexFusion(indices, buffers)

	out := BuildSubmeshes(buffers, indices, []int32{0}, f, 4)
	if len(out) != 2 {
		t.Fatalf("got %d submeshes, want 2", len(out))
	}
	for i, sm := range out {
		if sm.Vertices.Len() != 3 || sm.TriangleCount() != 1 {
			t.Errorf("submesh %d: %d vertices %d triangles, want 3 and 1", i, sm.Vertices.Len(), sm.TriangleCount())
		}
		if !reflect.DeepEqual(sm.Indices, IndexBuffer{0, 1, 2}) {
			t.Errorf("submesh %d indices = %v", i, sm.Indices)
		}
	}
}

func TestBuildSubmeshesMaterials(t *testing.T) {
	a := testBuffer([3]float32{0, 0, 0}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0})
	b := testBuffer([3]float32{5, 0, 0}, [3]float32{6, 0, 0}, [3]float32{5, 1, 0})
	indices := []IndexBuffer{{0, 1, 2}, {0, 1, 2}}
	buffers := []*VertexBuffer{a, b}
	f := VertexFusion(indices, buffers)

	out := BuildSubmeshes(buffers, indices, []int32{7, 2}, f, 0)
	if len(out) != 2 {
		t.Fatalf("got %d submeshes, want 2", len(out))
	}
	if out[0].MaterialID != 7 || out[1].MaterialID != 2 {
		t.Errorf("material order = [%d %d], want [7 2]", out[0].MaterialID, out[1].MaterialID)
	}
}

func TestBuildSubmeshesKeepsChannels(t *testing.T) {
	vb := withNormals(testBuffer(
		[3]float32{0, 0, 0},
		[3]float32{1, 0, 0},
		[3]float32{0, 1, 0},
	),
		[3]float32{0, 0, 1},
		[3]float32{0, 0, 1},
		[3]float32{0, 0, 1},
	)
	indices := []IndexBuffer{{0, 1, 2}}
	buffers := []*VertexBuffer{vb}
	f := VertexFusion(indices, buffers)

	out := BuildSubmeshes(buffers, indices, []int32{0}, f, 0)
	if len(out) != 1 {
		t.Fatalf("got %d submeshes, want 1", len(out))
	}
	nl := out[0].Vertices.Channel(VERTEX_CHANNEL_NORMAL)
	if nl == nil {
		t.Fatal("normal channel missing")
	}
	if len(nl.Data) != 9 {
		t.Errorf("normal data len = %d, want 9", len(nl.Data))
	}
}

func TestBuildTriangleStrips(t *testing.T) {
	indices := IndexBuffer{
		0, 1, 2,
		1, 2, 3,
		5, 6, 7,
	}
	strip, stripReset := BuildTriangleStrips(indices)

	wantStrip := IndexBuffer{0, 1, 2, 3, 3, 5, 5, 6, 7}
	if !reflect.DeepEqual(strip, wantStrip) {
		t.Errorf("strip = %v, want %v", strip, wantStrip)
	}
	wantReset := IndexBuffer{0, 1, 2, 3, STRIP_RESET_INDEX, 5, 6, 7}
	if !reflect.DeepEqual(stripReset, wantReset) {
		t.Errorf("stripReset = %v, want %v", stripReset, wantReset)
	}
}

func TestBuildTriangleStripsEmpty(t *testing.T) {
	strip, stripReset := BuildTriangleStrips(nil)
	if len(strip) != 0 || len(stripReset) != 0 {
		t.Errorf("strips from empty list = %v %v", strip, stripReset)
	}
}

func TestMeshNodeDedupe(t *testing.T) {
	// Two submeshes of the same material meeting at a duplicated edge.
	a := &Submesh{
		MaterialID: 0,
		Vertices: testBuffer(
			[3]float32{0, 0, 0},
			[3]float32{1, 0, 0},
			[3]float32{0, 1, 0},
		),
		Indices: IndexBuffer{0, 1, 2},
	}
	b := &Submesh{
		MaterialID: 0,
		Vertices: testBuffer(
			[3]float32{1, 0, 0},
			[3]float32{0, 1, 0},
			[3]float32{1, 1, 0},
		),
		Indices: IndexBuffer{0, 2, 1},
	}
	node := &MeshNode{Name: "quad", Submeshes: []*Submesh{a, b}}

	node.Dedupe(0, NopReporter())

	if len(node.Submeshes) != 1 {
		t.Fatalf("got %d submeshes, want 1", len(node.Submeshes))
	}
	if got := node.VertexCount(); got != 4 {
		t.Errorf("vertices = %d, want 4", got)
	}
	if got := node.TriangleCount(); got != 2 {
		t.Errorf("triangles = %d, want 2", got)
	}
}
