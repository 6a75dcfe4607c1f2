package gmd

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"testing"

	"github.com/qmuntal/gltf"
)

func TestBuildGltfDoc(t *testing.T) {
	m := testModel()
	doc := CreateDoc()
	if err := BuildGltf(doc, m); err != nil {
		t.Fatalf("BuildGltf: %v", err)
	}

	if len(doc.Meshes) != 1 {
		t.Fatalf("meshes = %d, want 1", len(doc.Meshes))
	}
	if len(doc.Meshes[0].Primitives) != 1 {
		t.Fatalf("primitives = %d, want 1", len(doc.Meshes[0].Primitives))
	}
	ps := doc.Meshes[0].Primitives[0]
	if ps.Mode != gltf.PrimitiveTriangles {
		t.Errorf("mode = %v, want triangles", ps.Mode)
	}
	if _, ok := ps.Attributes["POSITION"]; !ok {
		t.Error("POSITION attribute missing")
	}
	if _, ok := ps.Attributes["NORMAL"]; !ok {
		t.Error("NORMAL attribute missing")
	}
	if _, ok := ps.Attributes["TEXCOORD_0"]; !ok {
		t.Error("TEXCOORD_0 attribute missing")
	}
	if ps.Indices == nil {
		t.Fatal("indices accessor missing")
	}
	idxAcc := doc.Accessors[int(*ps.Indices)]
	if idxAcc.ComponentType != gltf.ComponentUshort {
		t.Errorf("index component = %v, want ushort", idxAcc.ComponentType)
	}
	if idxAcc.Count != 3 {
		t.Errorf("index count = %d, want 3", idxAcc.Count)
	}

	posAcc := doc.Accessors[int(ps.Attributes["POSITION"])]
	if !reflect.DeepEqual(posAcc.Min, []float32{0, 0, 0}) {
		t.Errorf("position min = %v, want [0 0 0]", posAcc.Min)
	}
	if !reflect.DeepEqual(posAcc.Max, []float32{1, 1, 0}) {
		t.Errorf("position max = %v, want [1 1 0]", posAcc.Max)
	}

	if len(doc.Materials) != 1 {
		t.Fatalf("materials = %d, want 1", len(doc.Materials))
	}
	gm := doc.Materials[0]
	if !gm.DoubleSided {
		t.Error("double sided lost")
	}
	if gm.AlphaMode != gltf.AlphaBlend {
		t.Errorf("alpha mode = %v, want blend", gm.AlphaMode)
	}

	if int(doc.Buffers[0].ByteLength) != len(doc.Buffers[0].Data) {
		t.Errorf("buffer length %d does not match data %d", doc.Buffers[0].ByteLength, len(doc.Buffers[0].Data))
	}
	if doc.Buffers[0].ByteLength%4 != 0 {
		t.Errorf("buffer not 4-byte aligned: %d", doc.Buffers[0].ByteLength)
	}
}

func TestGltfDocRoundTrip(t *testing.T) {
	m := testModel()
	m.Nodes[0].Mat = nil
	doc, err := ModelToGltf(m)
	if err != nil {
		t.Fatalf("ModelToGltf: %v", err)
	}

	conv := &GltfToModel{Rep: NopReporter()}
	got, err := conv.ConvertDoc(doc)
	if err != nil {
		t.Fatalf("ConvertDoc: %v", err)
	}

	if got.NodeCount() != 1 {
		t.Fatalf("nodes = %d, want 1", got.NodeCount())
	}
	sm := got.Nodes[0].Submeshes[0]
	src := m.Nodes[0].Submeshes[0]
	if !reflect.DeepEqual(sm.Indices, src.Indices) {
		t.Errorf("indices = %v, want %v", sm.Indices, src.Indices)
	}
	if !reflect.DeepEqual(sm.Vertices.Positions, src.Vertices.Positions) {
		t.Errorf("positions = %v, want %v", sm.Vertices.Positions, src.Vertices.Positions)
	}
	nl := sm.Vertices.Channel(VERTEX_CHANNEL_NORMAL)
	if nl == nil || !reflect.DeepEqual(nl.Data, src.Vertices.Channel(VERTEX_CHANNEL_NORMAL).Data) {
		t.Errorf("normal channel mismatch: %+v", nl)
	}
	uv := sm.Vertices.Channel(VERTEX_CHANNEL_UV_0)
	if uv == nil || !reflect.DeepEqual(uv.Data, src.Vertices.Channel(VERTEX_CHANNEL_UV_0).Data) {
		t.Errorf("uv channel mismatch: %+v", uv)
	}
	if got.MaterialCount() != 1 {
		t.Fatalf("materials = %d, want 1", got.MaterialCount())
	}
	if got.Materials[0].Color != m.Materials[0].Color {
		t.Errorf("color = %v, want %v", got.Materials[0].Color, m.Materials[0].Color)
	}
	if !got.Materials[0].DoubleSided {
		t.Error("double sided lost")
	}
}

// interleavedVertexDoc builds a document whose positions and normals share
// one buffer view with a 24-byte stride.
func interleavedVertexDoc() *gltf.Document {
	doc := CreateDoc()
	var data bytes.Buffer
	verts := [][6]float32{
		{0, 0, 0, 0, 0, 1},
		{1, 0, 0, 0, 0, 1},
		{0, 1, 0, 0, 0, 1},
	}
	for _, v := range verts {
		binary.Write(&data, binary.LittleEndian, v)
	}
	binary.Write(&data, binary.LittleEndian, []uint16{0, 1, 2})
	doc.Buffers[0].Data = data.Bytes()
	doc.Buffers[0].ByteLength = uint32(len(doc.Buffers[0].Data))

	doc.BufferViews = append(doc.BufferViews,
		&gltf.BufferView{Buffer: 0, ByteLength: 72, ByteStride: 24},
		&gltf.BufferView{Buffer: 0, ByteOffset: 72, ByteLength: 6},
	)
	vertView, idxView := uint32(0), uint32(1)
	doc.Accessors = append(doc.Accessors,
		&gltf.Accessor{BufferView: &vertView, ComponentType: gltf.ComponentFloat, Type: gltf.AccessorVec3, Count: 3},
		&gltf.Accessor{BufferView: &vertView, ByteOffset: 12, ComponentType: gltf.ComponentFloat, Type: gltf.AccessorVec3, Count: 3},
		&gltf.Accessor{BufferView: &idxView, ComponentType: gltf.ComponentUshort, Type: gltf.AccessorScalar, Count: 3},
	)
	indices := uint32(2)
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Primitives: []*gltf.Primitive{{
			Attributes: gltf.Attribute{"POSITION": 0, "NORMAL": 1},
			Indices:    &indices,
			Mode:       gltf.PrimitiveTriangles,
		}},
	})
	meshIdx := uint32(0)
	doc.Nodes = append(doc.Nodes, &gltf.Node{Mesh: &meshIdx})
	return doc
}

func TestGltfImportInterleavedAccessor(t *testing.T) {
	doc := interleavedVertexDoc()

	// A straight decode of the strided view would yield wrong positions, so
	// the primitive is reported and dropped instead.
	conv := &GltfToModel{Rep: NopReporter()}
	got, err := conv.ConvertDoc(doc)
	if err != nil {
		t.Fatalf("ConvertDoc: %v", err)
	}
	if len(got.Nodes) != 1 {
		t.Fatalf("nodes = %d, want 1", len(got.Nodes))
	}
	if len(got.Nodes[0].Submeshes) != 0 {
		t.Fatalf("submeshes = %d, want primitive skipped", len(got.Nodes[0].Submeshes))
	}

	strict := &GltfToModel{Rep: NewReporter(nil, true)}
	if _, err := strict.ConvertDoc(doc); err == nil {
		t.Fatal("strict conversion accepted an interleaved position accessor")
	}
}

func TestGltfImportNonFloatChannel(t *testing.T) {
	m := testModel()
	m.Nodes[0].Mat = nil
	doc, err := ModelToGltf(m)
	if err != nil {
		t.Fatalf("ModelToGltf: %v", err)
	}
	ps := doc.Meshes[0].Primitives[0]
	doc.Accessors[int(ps.Attributes["NORMAL"])].ComponentType = gltf.ComponentUbyte

	conv := &GltfToModel{Rep: NopReporter()}
	got, err := conv.ConvertDoc(doc)
	if err != nil {
		t.Fatalf("ConvertDoc: %v", err)
	}
	sm := got.Nodes[0].Submeshes[0]
	if sm.Vertices.Channel(VERTEX_CHANNEL_NORMAL) != nil {
		t.Error("non-float normal channel was not dropped")
	}
	if len(sm.Vertices.Positions) != 3 {
		t.Errorf("positions = %d, want 3", len(sm.Vertices.Positions))
	}

	strict := &GltfToModel{Rep: NewReporter(nil, true)}
	if _, err := strict.ConvertDoc(doc); err == nil {
		t.Fatal("strict conversion accepted a non-float normal accessor")
	}
}

func TestGetGltfBinaryPadding(t *testing.T) {
	m := testModel()
	doc, err := ModelToGltf(m)
	if err != nil {
		t.Fatalf("ModelToGltf: %v", err)
	}
	bt, err := GetGltfBinary(doc, 8)
	if err != nil {
		t.Fatalf("GetGltfBinary: %v", err)
	}
	if len(bt)%8 != 0 {
		t.Errorf("binary length %d not padded to 8", len(bt))
	}
	if string(bt[:4]) != "glTF" {
		t.Errorf("magic = %q, want glTF", bt[:4])
	}
}
