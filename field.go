package lic

import (
	"encoding/binary"
	"math"
)

// VectorField is a 2D vector field sampled on a regular grid.
//
// Data is row-major with Components values per texel. The engine does not
// retain the field past the Execute call that uploads it.
type VectorField struct {
	Width, Height int
	Components    int
	Data          []float32
}

// NoiseField is an RGB noise texture, 3 values per texel, row-major.
// Only the first channel drives the convolution.
type NoiseField struct {
	Width, Height int
	Data          []float32
}

// slotsPerTexel is the device vector layout: every texel occupies four
// floats regardless of the source component count.
const slotsPerTexel = 4

func (f *VectorField) validate() error {
	if f == nil {
		return configError("vector field not set")
	}
	if f.Width <= 0 || f.Height <= 0 {
		return configError("vector field size %dx%d", f.Width, f.Height)
	}
	if f.Components < 2 {
		return configError("vector field needs at least 2 components, has %d", f.Components)
	}
	if len(f.Data) < f.Width*f.Height*f.Components {
		return configError("vector field data has %d values, want %d", len(f.Data), f.Width*f.Height*f.Components)
	}
	return nil
}

func (n *NoiseField) validate() error {
	if n == nil {
		return configError("noise field not set")
	}
	if n.Width <= 0 || n.Height <= 0 {
		return configError("noise field size %dx%d", n.Width, n.Height)
	}
	if len(n.Data) < n.Width*n.Height*3 {
		return configError("noise field data has %d values, want %d", len(n.Data), n.Width*n.Height*3)
	}
	return nil
}

// slots returns the device slots the source components are stored in.
// Two-component fields follow the luminance-alpha convention and land in
// slots 0 and 3.
func (f *VectorField) slots() []int {
	switch {
	case f.Components == 2:
		return []int{0, 3}
	case f.Components == 3:
		return []int{0, 1, 2}
	default:
		return []int{0, 1, 2, 3}
	}
}

// pack encodes the field in the 4-slot device layout.
func (f *VectorField) pack() []byte {
	slots := f.slots()
	texels := f.Width * f.Height
	out := make([]byte, texels*slotsPerTexel*4)
	for t := 0; t < texels; t++ {
		src := f.Data[t*f.Components:]
		for c, slot := range slots {
			binary.LittleEndian.PutUint32(out[(t*slotsPerTexel+slot)*4:], math.Float32bits(src[c]))
		}
	}
	return out
}

func (n *NoiseField) pack() []byte {
	return floatBytes(n.Data[:n.Width*n.Height*3])
}

func floatBytes(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func bytesFloats(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
