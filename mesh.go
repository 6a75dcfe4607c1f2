package gmd

import (
	"math"

	dmat "github.com/flywave/go3d/float64/mat4"
	dvec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/flywave/go3d/vec3"

	"go.uber.org/zap"
)

// Submesh is one drawable chunk: a vertex buffer, a triangle list into it
// and the material it is rendered with. Index width caps a submesh at
// 65536 vertices.
type Submesh struct {
	MaterialID int32         `json:"materialId"`
	Vertices   *VertexBuffer `json:"vertices"`
	Indices    IndexBuffer   `json:"indices"`
}

func (s *Submesh) TriangleCount() int {
	return len(s.Indices) / 3
}

type MeshNode struct {
	Name      string     `json:"name,omitempty"`
	Mat       *dmat.T    `json:"mat,omitempty"`
	Submeshes []*Submesh `json:"submeshes,omitempty"`
}

func (n *MeshNode) VertexCount() int {
	c := 0
	for _, s := range n.Submeshes {
		c += s.Vertices.Len()
	}
	return c
}

func (n *MeshNode) TriangleCount() int {
	c := 0
	for _, s := range n.Submeshes {
		c += s.TriangleCount()
	}
	return c
}

// fusionInputs flattens the node's submeshes into the parallel buffer slices
// the fusion engine consumes. Buffer i corresponds to submesh i.
func (n *MeshNode) fusionInputs() (indices []IndexBuffer, buffers []*VertexBuffer, materials []int32) {
	for _, s := range n.Submeshes {
		indices = append(indices, s.Indices)
		buffers = append(buffers, s.Vertices)
		materials = append(materials, s.MaterialID)
	}
	return indices, buffers, materials
}

// Fuse runs the full fusion pipeline over all of the node's submeshes and
// returns the collision-free fusion index. Vertices fuse across submesh
// boundaries, so seams split over several submeshes close up.
func (n *MeshNode) Fuse() *Fusion {
	indices, buffers, _ := n.fusionInputs()
	return VertexFusion(indices, buffers)
}

// Dedupe rebuilds the node's submeshes with fused vertices emitted once.
// Triangles keep their material and winding; submeshes are re-chunked so no
// chunk exceeds maxVertices vertices.
func (n *MeshNode) Dedupe(maxVertices int, rep *Reporter) {
	if len(n.Submeshes) == 0 {
		return
	}
	indices, buffers, materials := n.fusionInputs()
	f := VertexFusion(indices, buffers)
	before := f.VertexCount()
	n.Submeshes = BuildSubmeshes(buffers, indices, materials, f, maxVertices)
	rep.Debug("deduplicated mesh node",
		zap.String("node", n.Name),
		zap.Int("vertices", before),
		zap.Int("fused", f.FusedCount()),
		zap.Int("submeshes", len(n.Submeshes)))
}

func (n *MeshNode) GetBoundbox() *[6]float64 {
	minX := math.MaxFloat64
	minY := math.MaxFloat64
	minZ := math.MaxFloat64
	maxX := -math.MaxFloat64
	maxY := -math.MaxFloat64
	maxZ := -math.MaxFloat64
	for _, s := range n.Submeshes {
		for i := range s.Vertices.Positions {
			minX = math.Min(minX, float64(s.Vertices.Positions[i][0]))
			minY = math.Min(minY, float64(s.Vertices.Positions[i][1]))
			minZ = math.Min(minZ, float64(s.Vertices.Positions[i][2]))

			maxX = math.Max(maxX, float64(s.Vertices.Positions[i][0]))
			maxY = math.Max(maxY, float64(s.Vertices.Positions[i][1]))
			maxZ = math.Max(maxZ, float64(s.Vertices.Positions[i][2]))
		}
	}
	return &[6]float64{minX, minY, minZ, maxX, maxY, maxZ}
}

// ReComputeNormal rebuilds the normal channel of each submesh from area
// weighted face normals.
func (n *MeshNode) ReComputeNormal() {
	for _, s := range n.Submeshes {
		normals := make([]vec3.T, s.Vertices.Len())
		for t := 0; t+2 < len(s.Indices); t += 3 {
			pt1 := s.Vertices.Positions[s.Indices[t]]
			pt2 := s.Vertices.Positions[s.Indices[t+1]]
			pt3 := s.Vertices.Positions[s.Indices[t+2]]

			sub1 := vec3.Sub(&pt3, &pt2)
			sub2 := vec3.Sub(&pt1, &pt2)

			cro := vec3.Cross(&sub1, &sub2)
			l := cro.Length()
			if l == 0 {
				continue
			}
			weightedNormal := cro.Scale(1 / l)

			normals[s.Indices[t]].Add(weightedNormal)
			normals[s.Indices[t+1]].Add(weightedNormal)
			normals[s.Indices[t+2]].Add(weightedNormal)
		}
		for i := range normals {
			normals[i].Normalize()
		}

		ch := s.Vertices.Channel(VERTEX_CHANNEL_NORMAL)
		if ch == nil {
			ch = s.Vertices.AddChannel(VERTEX_CHANNEL_NORMAL, 3)
		}
		ch.Data = ch.Data[:0]
		for i := range normals {
			ch.Data = append(ch.Data, normals[i][0], normals[i][1], normals[i][2])
		}
	}
}

type Model struct {
	Version   uint32      `json:"version"`
	BigEndian bool        `json:"bigEndian,omitempty"`
	Materials []*Material `json:"materials,omitempty"`
	Nodes     []*MeshNode `json:"nodes,omitempty"`
}

func NewModel() *Model {
	return &Model{Version: V1}
}

func (m *Model) NodeCount() int {
	return len(m.Nodes)
}

func (m *Model) MaterialCount() int {
	return len(m.Materials)
}

func (m *Model) ComputeBBox() dvec3.Box {
	if len(m.Nodes) == 0 {
		return dvec3.Box{}
	}

	bbox := dvec3.MinBox
	for _, nd := range m.Nodes {
		bx := nd.GetBoundbox()
		min := dvec3.T{bx[0], bx[1], bx[2]}
		max := dvec3.T{bx[3], bx[4], bx[5]}
		bbx := dvec3.Box{Min: min, Max: max}
		bbox.Join(&bbx)
	}
	return bbox
}
