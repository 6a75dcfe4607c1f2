package gmd

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	dmat "github.com/flywave/go3d/float64/mat4"

	"github.com/flywave/go3d/vec3"
)

func toByteOrder(order binary.ByteOrder, v interface{}) []byte {
	var buf []byte
	b := bytes.NewBuffer(buf)
	e := binary.Write(b, order, v)
	if e != nil {
		return nil
	}
	return b.Bytes()
}

func writeByte(wt io.Writer, order binary.ByteOrder, v interface{}) {
	buf := toByteOrder(order, v)
	if buf != nil {
		wt.Write(buf)
	}
}

func readByte(rd io.Reader, order binary.ByteOrder, v interface{}) error {
	return binary.Read(rd, order, v)
}

func writeString(wt io.Writer, order binary.ByteOrder, s string) {
	writeByte(wt, order, uint32(len(s)))
	wt.Write([]byte(s))
}

func readString(rd io.Reader, order binary.ByteOrder) string {
	var size uint32
	if readByte(rd, order, &size) != nil {
		return ""
	}
	buf := make([]byte, size)
	io.ReadFull(rd, buf)
	return string(buf)
}

func MaterialMarshal(wt io.Writer, order binary.ByteOrder, mtl *Material) {
	writeByte(wt, order, mtl.Color[:])
	writeByte(wt, order, &mtl.Transparency)
	writeByte(wt, order, &mtl.Metallic)
	writeByte(wt, order, &mtl.Roughness)
	if mtl.DoubleSided {
		writeByte(wt, order, uint8(1))
	} else {
		writeByte(wt, order, uint8(0))
	}
}

func MaterialUnMarshal(rd io.Reader, order binary.ByteOrder) *Material {
	mtl := &Material{}
	readByte(rd, order, mtl.Color[:])
	readByte(rd, order, &mtl.Transparency)
	readByte(rd, order, &mtl.Metallic)
	readByte(rd, order, &mtl.Roughness)
	var ds uint8
	readByte(rd, order, &ds)
	mtl.DoubleSided = ds == 1
	return mtl
}

func VertexBufferMarshal(wt io.Writer, order binary.ByteOrder, vb *VertexBuffer) {
	writeByte(wt, order, uint32(len(vb.Positions)))
	for i := range vb.Positions {
		writeByte(wt, order, vb.Positions[i][:])
	}
	writeByte(wt, order, uint32(len(vb.Channels)))
	for i := range vb.Channels {
		c := &vb.Channels[i]
		writeByte(wt, order, uint32(c.Semantic))
		writeByte(wt, order, uint32(c.Width))
		writeByte(wt, order, c.Data)
	}
}

func VertexBufferUnMarshal(rd io.Reader, order binary.ByteOrder) *VertexBuffer {
	vb := &VertexBuffer{}
	var vertSize uint32
	readByte(rd, order, &vertSize)
	vb.Positions = make([]vec3.T, vertSize)
	for i := range vb.Positions {
		readByte(rd, order, vb.Positions[i][:])
	}
	var chanSize uint32
	readByte(rd, order, &chanSize)
	for i := uint32(0); i < chanSize; i++ {
		var semantic, width uint32
		readByte(rd, order, &semantic)
		readByte(rd, order, &width)
		c := vb.AddChannel(int(semantic), int(width))
		c.Data = make([]float32, vertSize*width)
		readByte(rd, order, c.Data)
	}
	return vb
}

func IndexBufferMarshal(wt io.Writer, order binary.ByteOrder, idx IndexBuffer) {
	writeByte(wt, order, uint32(len(idx)))
	writeByte(wt, order, []uint16(idx))
}

func IndexBufferUnMarshal(rd io.Reader, order binary.ByteOrder) IndexBuffer {
	var size uint32
	readByte(rd, order, &size)
	idx := make(IndexBuffer, size)
	readByte(rd, order, []uint16(idx))
	return idx
}

func SubmeshMarshal(wt io.Writer, order binary.ByteOrder, sm *Submesh) {
	writeByte(wt, order, sm.MaterialID)
	VertexBufferMarshal(wt, order, sm.Vertices)
	IndexBufferMarshal(wt, order, sm.Indices)
}

func SubmeshUnMarshal(rd io.Reader, order binary.ByteOrder) *Submesh {
	sm := &Submesh{}
	readByte(rd, order, &sm.MaterialID)
	sm.Vertices = VertexBufferUnMarshal(rd, order)
	sm.Indices = IndexBufferUnMarshal(rd, order)
	return sm
}

func MeshNodeMarshal(wt io.Writer, order binary.ByteOrder, nd *MeshNode) {
	writeString(wt, order, nd.Name)
	if nd.Mat != nil {
		writeByte(wt, order, uint16(1))
		writeByte(wt, order, nd.Mat)
	} else {
		writeByte(wt, order, uint16(0))
	}
	writeByte(wt, order, uint32(len(nd.Submeshes)))
	for _, sm := range nd.Submeshes {
		SubmeshMarshal(wt, order, sm)
	}
}

func MeshNodeUnMarshal(rd io.Reader, order binary.ByteOrder) *MeshNode {
	nd := &MeshNode{}
	nd.Name = readString(rd, order)
	var hasMat uint16
	readByte(rd, order, &hasMat)
	if hasMat == 1 {
		nd.Mat = &dmat.T{}
		readByte(rd, order, nd.Mat)
	}
	var size uint32
	readByte(rd, order, &size)
	for i := uint32(0); i < size; i++ {
		nd.Submeshes = append(nd.Submeshes, SubmeshUnMarshal(rd, order))
	}
	return nd
}

func byteOrderOf(m *Model) binary.ByteOrder {
	if m.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// ModelMarshal writes the container: the four byte signature, one byte of
// endianness (0 little, 1 big) and then every section in the byte order
// that flag names.
func ModelMarshal(wt io.Writer, m *Model) {
	order := byteOrderOf(m)
	wt.Write([]byte(MODEL_SIGNATURE))
	if m.BigEndian {
		writeByte(wt, order, uint8(1))
	} else {
		writeByte(wt, order, uint8(0))
	}
	writeByte(wt, order, m.Version)
	writeByte(wt, order, uint32(len(m.Materials)))
	for _, mtl := range m.Materials {
		MaterialMarshal(wt, order, mtl)
	}
	writeByte(wt, order, uint32(len(m.Nodes)))
	for _, nd := range m.Nodes {
		MeshNodeMarshal(wt, order, nd)
	}
}

func ModelUnMarshal(rd io.Reader) (*Model, error) {
	sig := make([]byte, 4)
	if _, err := io.ReadFull(rd, sig); err != nil {
		return nil, err
	}
	if string(sig) != MODEL_SIGNATURE {
		return nil, fmt.Errorf("gmd: bad signature %q", string(sig))
	}
	var endian uint8
	if err := readByte(rd, binary.LittleEndian, &endian); err != nil {
		return nil, err
	}
	m := &Model{BigEndian: endian == 1}
	order := byteOrderOf(m)
	if err := readByte(rd, order, &m.Version); err != nil {
		return nil, err
	}
	if m.Version != V1 {
		return nil, fmt.Errorf("gmd: unsupported version %d", m.Version)
	}
	var mtlSize uint32
	readByte(rd, order, &mtlSize)
	for i := uint32(0); i < mtlSize; i++ {
		m.Materials = append(m.Materials, MaterialUnMarshal(rd, order))
	}
	var ndSize uint32
	readByte(rd, order, &ndSize)
	for i := uint32(0); i < ndSize; i++ {
		m.Nodes = append(m.Nodes, MeshNodeUnMarshal(rd, order))
	}
	return m, nil
}

func ModelReadFrom(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ModelUnMarshal(f)
}

func ModelWriteTo(path string, m *Model) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	ModelMarshal(f, m)
	return nil
}
