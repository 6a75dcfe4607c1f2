package gmd

// Material carries the minimum surface description the converter round
// trips: a base color plus the scalar PBR factors glTF understands.
type Material struct {
	Color        [3]byte `json:"color"`
	Transparency float32 `json:"transparency"`
	Metallic     float32 `json:"metallic"`
	Roughness    float32 `json:"roughness"`
	DoubleSided  bool    `json:"doubleSided"`
}

func (m *Material) GetColor() [3]byte {
	return m.Color
}

// Opaque reports whether the material has no transparency at all.
func (m *Material) Opaque() bool {
	return m.Transparency <= 0
}
