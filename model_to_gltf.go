package gmd

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/qmuntal/gltf"
)

const GLTF_VERSION = "2.0"

func ModelToGltf(m *Model) (*gltf.Document, error) {
	doc := CreateDoc()
	if e := BuildGltf(doc, m); e != nil {
		return nil, e
	}
	return doc, nil
}

func CreateDoc() *gltf.Document {
	doc := &gltf.Document{}
	doc.Asset.Version = GLTF_VERSION
	srcIndex := uint32(0)
	doc.Scene = &srcIndex
	doc.Scenes = append(doc.Scenes, &gltf.Scene{})
	doc.Buffers = append(doc.Buffers, &gltf.Buffer{})
	return doc
}

type calcSizeWriter struct {
	writer io.Writer
	Size   int
}

func (w *calcSizeWriter) Write(p []byte) (n int, err error) {
	si := len(p)
	w.writer.Write(p)
	w.Size += int(si)
	return si, nil
}

func (w *calcSizeWriter) Bytes() []byte {
	return w.writer.(*bytes.Buffer).Bytes()
}

func newSizeWriter() calcSizeWriter {
	wt := bytes.NewBuffer([]byte{})
	return calcSizeWriter{Size: int(0), writer: wt}
}

func calcPadding(offset, paddingUnit int) int {
	padding := offset % paddingUnit
	if padding != 0 {
		padding = paddingUnit - padding
	}
	return padding
}

func GetGltfBinary(doc *gltf.Document, paddingUnit int) ([]byte, error) {
	w := newSizeWriter()
	enc := gltf.NewEncoder(w.writer)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	padding := calcPadding(w.Size, paddingUnit)
	if padding == 0 {
		return w.Bytes(), nil
	}
	pad := make([]byte, padding)
	for i := range pad {
		pad[i] = 0x20
	}
	w.Write(pad)
	return w.Bytes(), nil
}

// BuildGltf appends one model to the document, one glTF mesh per node and
// one primitive per submesh. Each submesh gets its own index, position and
// optional UV and normal views so chunked submeshes stay addressable.
func BuildGltf(doc *gltf.Document, m *Model) error {
	mtlBase := uint32(len(doc.Materials))
	for _, nd := range m.Nodes {
		mesh := &gltf.Mesh{Name: nd.Name}

		nde := &gltf.Node{Name: nd.Name}
		meshId := uint32(len(doc.Meshes))
		nde.Mesh = &meshId
		if nd.Mat != nil {
			ay := *nd.Mat.Array()
			nde.Matrix = [16]float32{
				float32(ay[0]), float32(ay[1]), float32(ay[2]), float32(ay[3]),
				float32(ay[4]), float32(ay[5]), float32(ay[6]), float32(ay[7]),
				float32(ay[8]), float32(ay[9]), float32(ay[10]), float32(ay[11]),
				float32(ay[12]), float32(ay[13]), float32(ay[14]), float32(ay[15]),
			}
		}
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)))
		doc.Nodes = append(doc.Nodes, nde)

		for _, sm := range nd.Submeshes {
			ps := buildPrimitive(doc, sm, mtlBase)
			mesh.Primitives = append(mesh.Primitives, ps)
		}
		doc.Meshes = append(doc.Meshes, mesh)
	}
	return fillMaterials(doc, m.Materials)
}

func buildPrimitive(doc *gltf.Document, sm *Submesh, mtlBase uint32) *gltf.Primitive {
	buffer := doc.Buffers[0]
	startLen := buffer.ByteLength
	var bt []byte
	buf := bytes.NewBuffer(bt)

	indexView := &gltf.BufferView{Buffer: 0, ByteOffset: startLen}
	binary.Write(buf, binary.LittleEndian, []uint16(sm.Indices))
	indexView.ByteLength = uint32(buf.Len())
	// Keep following float views 4-byte aligned.
	if pad := calcPadding(buf.Len(), 4); pad > 0 {
		buf.Write(make([]byte, pad))
	}
	bvIndex := uint32(len(doc.BufferViews))
	doc.BufferViews = append(doc.BufferViews, indexView)

	posView := &gltf.BufferView{Buffer: 0, ByteOffset: startLen + uint32(buf.Len())}
	binary.Write(buf, binary.LittleEndian, sm.Vertices.Positions)
	posView.ByteLength = startLen + uint32(buf.Len()) - posView.ByteOffset
	bvPos := uint32(len(doc.BufferViews))
	doc.BufferViews = append(doc.BufferViews, posView)

	uv := sm.Vertices.Channel(VERTEX_CHANNEL_UV_0)
	bvTexc := uint32(len(doc.BufferViews))
	if uv != nil {
		texcood := &gltf.BufferView{Buffer: 0, ByteOffset: startLen + uint32(buf.Len())}
		binary.Write(buf, binary.LittleEndian, uv.Data)
		texcood.ByteLength = startLen + uint32(buf.Len()) - texcood.ByteOffset
		doc.BufferViews = append(doc.BufferViews, texcood)
	}

	nl := sm.Vertices.Channel(VERTEX_CHANNEL_NORMAL)
	bvNl := uint32(len(doc.BufferViews))
	if nl != nil {
		normalView := &gltf.BufferView{Buffer: 0, ByteOffset: startLen + uint32(buf.Len())}
		binary.Write(buf, binary.LittleEndian, nl.Data)
		normalView.ByteLength = startLen + uint32(buf.Len()) - normalView.ByteOffset
		doc.BufferViews = append(doc.BufferViews, normalView)
	}

	buffer.ByteLength += uint32(buf.Len())
	buffer.Data = append(buffer.Data, buf.Bytes()...)

	ps := &gltf.Primitive{Mode: gltf.PrimitiveTriangles, Attributes: make(gltf.Attribute)}

	indexacc := &gltf.Accessor{}
	indexacc.ComponentType = gltf.ComponentUshort
	indexacc.Count = uint32(len(sm.Indices))
	indexacc.BufferView = &bvIndex
	accIndex := uint32(len(doc.Accessors))
	ps.Indices = &accIndex
	doc.Accessors = append(doc.Accessors, indexacc)

	posacc := &gltf.Accessor{}
	posacc.ComponentType = gltf.ComponentFloat
	posacc.Type = gltf.AccessorVec3
	posacc.Count = uint32(sm.Vertices.Len())
	posacc.BufferView = &bvPos
	min, max := positionBounds(sm.Vertices)
	posacc.Min = min
	posacc.Max = max
	ps.Attributes["POSITION"] = uint32(len(doc.Accessors))
	doc.Accessors = append(doc.Accessors, posacc)

	if uv != nil {
		texacc := &gltf.Accessor{}
		texacc.ComponentType = gltf.ComponentFloat
		texacc.Type = gltf.AccessorVec2
		texacc.Count = uint32(sm.Vertices.Len())
		texacc.BufferView = &bvTexc
		ps.Attributes["TEXCOORD_0"] = uint32(len(doc.Accessors))
		doc.Accessors = append(doc.Accessors, texacc)
	}

	if nl != nil {
		nlacc := &gltf.Accessor{}
		nlacc.ComponentType = gltf.ComponentFloat
		nlacc.Type = gltf.AccessorVec3
		nlacc.Count = uint32(sm.Vertices.Len())
		nlacc.BufferView = &bvNl
		ps.Attributes["NORMAL"] = uint32(len(doc.Accessors))
		doc.Accessors = append(doc.Accessors, nlacc)
	}

	mtlId := mtlBase + uint32(sm.MaterialID)
	ps.Material = &mtlId
	return ps
}

func positionBounds(vb *VertexBuffer) ([]float32, []float32) {
	if vb.Len() == 0 {
		return nil, nil
	}
	min := []float32{vb.Positions[0][0], vb.Positions[0][1], vb.Positions[0][2]}
	max := []float32{min[0], min[1], min[2]}
	for i := 1; i < vb.Len(); i++ {
		for c := 0; c < 3; c++ {
			if vb.Positions[i][c] < min[c] {
				min[c] = vb.Positions[i][c]
			}
			if vb.Positions[i][c] > max[c] {
				max[c] = vb.Positions[i][c]
			}
		}
	}
	return min, max
}

func fillMaterials(doc *gltf.Document, mts []*Material) error {
	for i := range mts {
		mtl := mts[i]
		gm := &gltf.Material{DoubleSided: mtl.DoubleSided}
		if mtl.Opaque() {
			gm.AlphaMode = gltf.AlphaOpaque
		} else {
			gm.AlphaMode = gltf.AlphaBlend
		}
		cl := &[4]float32{
			float32(mtl.Color[0]) / 255,
			float32(mtl.Color[1]) / 255,
			float32(mtl.Color[2]) / 255,
			1 - float32(mtl.Transparency),
		}
		mc := float32(mtl.Metallic)
		rs := float32(mtl.Roughness)
		gm.PBRMetallicRoughness = &gltf.PBRMetallicRoughness{
			BaseColorFactor: cl,
			MetallicFactor:  &mc,
			RoughnessFactor: &rs,
		}
		doc.Materials = append(doc.Materials, gm)
	}
	return nil
}
