package gmd

import (
	"encoding/binary"
	"math"

	"github.com/flywave/go3d/vec3"
)

// VertexRef identifies a single vertex record: which buffer it lives in and
// its index inside that buffer.
type VertexRef struct {
	Buffer int
	Index  int
}

func refLess(a, b VertexRef) bool {
	if a.Buffer != b.Buffer {
		return a.Buffer < b.Buffer
	}
	return a.Index < b.Index
}

// IndexBuffer is a triangle list. Every three consecutive entries index the
// paired vertex buffer and form one triangle in winding order.
type IndexBuffer []uint16

// VertexChannel holds one interleavable attribute stream as flat float32
// components, Width components per vertex.
type VertexChannel struct {
	Semantic int       `json:"semantic"`
	Width    int       `json:"width"`
	Data     []float32 `json:"data"`
}

// Slice returns the components of vertex i.
func (c *VertexChannel) Slice(i int) []float32 {
	return c.Data[i*c.Width : (i+1)*c.Width]
}

// VertexBuffer stores vertex records in struct-of-arrays form: positions
// plus zero or more attribute channels of equal vertex count.
type VertexBuffer struct {
	Positions []vec3.T        `json:"positions"`
	Channels  []VertexChannel `json:"channels"`
}

func NewVertexBuffer() *VertexBuffer {
	return &VertexBuffer{}
}

func (vb *VertexBuffer) Len() int {
	return len(vb.Positions)
}

// AddChannel appends an empty channel with the given semantic and width and
// returns it for filling.
func (vb *VertexBuffer) AddChannel(semantic, width int) *VertexChannel {
	vb.Channels = append(vb.Channels, VertexChannel{Semantic: semantic, Width: width})
	return &vb.Channels[len(vb.Channels)-1]
}

// Channel returns the channel with the given semantic, or nil.
func (vb *VertexBuffer) Channel(semantic int) *VertexChannel {
	for i := range vb.Channels {
		if vb.Channels[i].Semantic == semantic {
			return &vb.Channels[i]
		}
	}
	return nil
}

// EmptyLike returns a zero-length buffer with the same channel layout.
func (vb *VertexBuffer) EmptyLike() *VertexBuffer {
	out := &VertexBuffer{}
	for _, c := range vb.Channels {
		out.Channels = append(out.Channels, VertexChannel{Semantic: c.Semantic, Width: c.Width})
	}
	return out
}

// AppendFrom copies vertex i of src onto the end of vb. The two buffers must
// share a channel layout.
func (vb *VertexBuffer) AppendFrom(src *VertexBuffer, i int) {
	vb.Positions = append(vb.Positions, src.Positions[i])
	for ci := range vb.Channels {
		vb.Channels[ci].Data = append(vb.Channels[ci].Data, src.Channels[ci].Slice(i)...)
	}
}

// LayoutMatches reports whether two buffers carry the same channel layout
// in the same order.
func (vb *VertexBuffer) LayoutMatches(o *VertexBuffer) bool {
	if len(vb.Channels) != len(o.Channels) {
		return false
	}
	for i := range vb.Channels {
		if vb.Channels[i].Semantic != o.Channels[i].Semantic || vb.Channels[i].Width != o.Channels[i].Width {
			return false
		}
	}
	return true
}

// attrKey serializes every non-position attribute of vertex i, layout
// included, into a comparable string. Two vertices fuse only if their keys
// are bitwise identical, so buffers with different layouts never fuse.
func (vb *VertexBuffer) attrKey(i int) string {
	n := 0
	for _, c := range vb.Channels {
		n += 8 + 4*c.Width
	}
	buf := make([]byte, 0, n)
	var scratch [4]byte
	for _, c := range vb.Channels {
		binary.LittleEndian.PutUint32(scratch[:], uint32(c.Semantic))
		buf = append(buf, scratch[:]...)
		binary.LittleEndian.PutUint32(scratch[:], uint32(c.Width))
		buf = append(buf, scratch[:]...)
		for _, v := range c.Slice(i) {
			binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(v))
			buf = append(buf, scratch[:]...)
		}
	}
	return string(buf)
}
