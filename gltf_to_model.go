package gmd

import (
	"bytes"
	"encoding/binary"

	dmat "github.com/flywave/go3d/float64/mat4"
	"github.com/flywave/go3d/float64/vec4"

	"github.com/flywave/go3d/vec3"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"
)

var emptyMatrix = [16]float32{}

// GltfToModel converts a glTF or GLB asset into a Model: one mesh node per
// referencing scene node, one submesh per primitive. Unsupported accessors
// are reported as recoverable and skipped.
type GltfToModel struct {
	Rep *Reporter
}

func (g *GltfToModel) reporter() *Reporter {
	if g.Rep == nil {
		return NopReporter()
	}
	return g.Rep
}

func (g *GltfToModel) Convert(path string) (*Model, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, err
	}
	return g.ConvertDoc(doc)
}

func (g *GltfToModel) ConvertDoc(doc *gltf.Document) (*Model, error) {
	m := NewModel()
	mtlMap := make(map[uint32]int32)
	for _, nd := range doc.Nodes {
		if nd.Mesh == nil {
			continue
		}
		node, err := g.transMesh(doc, m, doc.Meshes[int(*nd.Mesh)], mtlMap)
		if err != nil {
			return nil, err
		}
		if nd.Matrix != emptyMatrix {
			node.Mat = toMat(nd.Matrix)
		}
		m.Nodes = append(m.Nodes, node)
	}
	return m, nil
}

func (g *GltfToModel) transMesh(doc *gltf.Document, m *Model, mh *gltf.Mesh, mtlMap map[uint32]int32) (*MeshNode, error) {
	node := &MeshNode{Name: mh.Name}
	for _, ps := range mh.Primitives {
		if ps.Mode != gltf.PrimitiveTriangles {
			if err := g.reporter().Recoverable("skipping non-triangle primitive",
				zap.String("mesh", mh.Name), zap.Int("mode", int(ps.Mode))); err != nil {
				return nil, err
			}
			continue
		}
		sm, err := g.transPrimitive(doc, m, ps, mtlMap)
		if err != nil {
			return nil, err
		}
		if sm != nil {
			node.Submeshes = append(node.Submeshes, sm)
		}
	}
	return node, nil
}

func (g *GltfToModel) transPrimitive(doc *gltf.Document, m *Model, ps *gltf.Primitive, mtlMap map[uint32]int32) (*Submesh, error) {
	sm := &Submesh{Vertices: NewVertexBuffer()}

	if ps.Material != nil {
		sm.MaterialID = g.transMaterial(doc, m, *ps.Material, mtlMap)
	}

	posIdx, ok := ps.Attributes["POSITION"]
	if !ok || ps.Indices == nil {
		if err := g.reporter().Recoverable("skipping primitive without positions or indices"); err != nil {
			return nil, err
		}
		return nil, nil
	}

	acc := doc.Accessors[int(posIdx)]
	if acc.ComponentType != gltf.ComponentFloat || acc.Type != gltf.AccessorVec3 || !accessorPacked(doc, acc, 12) {
		if err := g.reporter().Recoverable("skipping primitive with unsupported position accessor layout",
			zap.Int("componentType", int(acc.ComponentType)), zap.Int("accessorType", int(acc.Type))); err != nil {
			return nil, err
		}
		return nil, nil
	}
	bf := bytes.NewBuffer(accessorData(doc, acc))
	for i := 0; i < int(acc.Count); i++ {
		v := vec3.T{}
		binary.Read(bf, binary.LittleEndian, &v)
		sm.Vertices.Positions = append(sm.Vertices.Positions, v)
	}

	if idx, ok := ps.Attributes["NORMAL"]; ok {
		if err := g.readChannel(doc, sm.Vertices, idx, VERTEX_CHANNEL_NORMAL, 3); err != nil {
			return nil, err
		}
	}
	if idx, ok := ps.Attributes["TEXCOORD_0"]; ok {
		if err := g.readChannel(doc, sm.Vertices, idx, VERTEX_CHANNEL_UV_0, 2); err != nil {
			return nil, err
		}
	}
	if idx, ok := ps.Attributes["TEXCOORD_1"]; ok {
		if err := g.readChannel(doc, sm.Vertices, idx, VERTEX_CHANNEL_UV_1, 2); err != nil {
			return nil, err
		}
	}

	acc = doc.Accessors[int(*ps.Indices)]
	if !accessorPacked(doc, acc, indexSize(acc.ComponentType)) {
		if err := g.reporter().Recoverable("skipping primitive with strided index accessor",
			zap.Int("componentType", int(acc.ComponentType))); err != nil {
			return nil, err
		}
		return nil, nil
	}
	bf = bytes.NewBuffer(accessorData(doc, acc))
	switch acc.ComponentType {
	case gltf.ComponentUshort:
		for i := 0; i < int(acc.Count); i++ {
			var v uint16
			binary.Read(bf, binary.LittleEndian, &v)
			sm.Indices = append(sm.Indices, v)
		}
	case gltf.ComponentUint:
		for i := 0; i < int(acc.Count); i++ {
			var v uint32
			binary.Read(bf, binary.LittleEndian, &v)
			if v > uint32(MaxSubmeshVertices) {
				if err := g.reporter().Recoverable("index exceeds 16-bit range",
					zap.Uint32("index", v)); err != nil {
					return nil, err
				}
				v = 0
			}
			sm.Indices = append(sm.Indices, uint16(v))
		}
	default:
		if err := g.reporter().Recoverable("unsupported index component type",
			zap.Int("componentType", int(acc.ComponentType))); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return sm, nil
}

func (g *GltfToModel) readChannel(doc *gltf.Document, vb *VertexBuffer, accIdx uint32, semantic, width int) error {
	acc := doc.Accessors[int(accIdx)]
	want := gltf.AccessorVec3
	if width == 2 {
		want = gltf.AccessorVec2
	}
	if acc.ComponentType != gltf.ComponentFloat || acc.Type != want || !accessorPacked(doc, acc, uint32(4*width)) {
		return g.reporter().Recoverable("skipping attribute with unsupported accessor layout",
			zap.Int("semantic", semantic), zap.Int("componentType", int(acc.ComponentType)),
			zap.Int("accessorType", int(acc.Type)))
	}
	c := vb.AddChannel(semantic, width)
	c.Data = make([]float32, int(acc.Count)*width)
	bf := bytes.NewBuffer(accessorData(doc, acc))
	binary.Read(bf, binary.LittleEndian, c.Data)
	return nil
}

func (g *GltfToModel) transMaterial(doc *gltf.Document, m *Model, id uint32, mtlMap map[uint32]int32) int32 {
	if mid, ok := mtlMap[id]; ok {
		return mid
	}
	mt := doc.Materials[int(id)]
	mtl := &Material{DoubleSided: mt.DoubleSided}
	if mt.PBRMetallicRoughness != nil {
		if mt.PBRMetallicRoughness.BaseColorFactor != nil {
			cl := mt.PBRMetallicRoughness.BaseColorFactor
			mtl.Color[0] = byte(cl[0] * 255)
			mtl.Color[1] = byte(cl[1] * 255)
			mtl.Color[2] = byte(cl[2] * 255)
			mtl.Transparency = 1 - cl[3]
		}
		if mt.PBRMetallicRoughness.MetallicFactor != nil {
			mtl.Metallic = *mt.PBRMetallicRoughness.MetallicFactor
		}
		if mt.PBRMetallicRoughness.RoughnessFactor != nil {
			mtl.Roughness = *mt.PBRMetallicRoughness.RoughnessFactor
		}
	}
	mid := int32(len(m.Materials))
	m.Materials = append(m.Materials, mtl)
	mtlMap[id] = mid
	return mid
}

// accessorPacked reports whether an accessor's buffer view holds tightly
// packed elements of the given byte size. Interleaved views cannot be read
// with a straight binary decode.
func accessorPacked(doc *gltf.Document, acc *gltf.Accessor, elemSize uint32) bool {
	if acc.BufferView == nil {
		return false
	}
	view := doc.BufferViews[int(*acc.BufferView)]
	return view.ByteStride == 0 || view.ByteStride == elemSize
}

func indexSize(ct gltf.ComponentType) uint32 {
	if ct == gltf.ComponentUint {
		return 4
	}
	return 2
}

// accessorData returns the raw bytes a tightly packed accessor covers.
func accessorData(doc *gltf.Document, acc *gltf.Accessor) []byte {
	if acc.BufferView == nil {
		return nil
	}
	view := doc.BufferViews[int(*acc.BufferView)]
	buffer := doc.Buffers[int(view.Buffer)]
	start := int(view.ByteOffset) + int(acc.ByteOffset)
	end := int(view.ByteOffset) + int(view.ByteLength)
	if start > len(buffer.Data) {
		return nil
	}
	if end > len(buffer.Data) {
		end = len(buffer.Data)
	}
	return buffer.Data[start:end]
}

func toMat(mat [16]float32) *dmat.T {
	m := &dmat.T{}
	m[0] = vec4.T{float64(mat[0]), float64(mat[1]), float64(mat[2]), float64(mat[3])}
	m[1] = vec4.T{float64(mat[4]), float64(mat[5]), float64(mat[6]), float64(mat[7])}
	m[2] = vec4.T{float64(mat[8]), float64(mat[9]), float64(mat[10]), float64(mat[11])}
	m[3] = vec4.T{float64(mat[12]), float64(mat[13]), float64(mat[14]), float64(mat[15])}
	return m
}
