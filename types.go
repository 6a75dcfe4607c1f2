package gmd

const MODEL_SIGNATURE string = "gmdc"
const GMDEXT string = ".gmdc"
const V1 uint32 = 1

// Vertex channel semantics. Positions live outside the channel list; every
// other per-vertex attribute is a channel tagged with one of these.
const (
	VERTEX_CHANNEL_NORMAL      = 0
	VERTEX_CHANNEL_TANGENT     = 1
	VERTEX_CHANNEL_COLOR_0     = 2
	VERTEX_CHANNEL_COLOR_1     = 3
	VERTEX_CHANNEL_UV_0        = 4
	VERTEX_CHANNEL_UV_1        = 5
	VERTEX_CHANNEL_UV_2        = 6
	VERTEX_CHANNEL_UV_3        = 7
	VERTEX_CHANNEL_BONE_INDEX  = 8
	VERTEX_CHANNEL_BONE_WEIGHT = 9
)

// Triangle topologies produced by the submesh builder.
const (
	TOPOLOGY_TRIANGLE_LIST        = 0
	TOPOLOGY_TRIANGLE_STRIP       = 1
	TOPOLOGY_TRIANGLE_STRIP_RESET = 2
)

// Restart marker used by TOPOLOGY_TRIANGLE_STRIP_RESET index buffers.
const STRIP_RESET_INDEX uint16 = 0xFFFF
