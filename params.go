package lic

import "encoding/binary"

// Uniform block sizes. Both are multiples of 16 bytes.
const (
	licParamsSize    = 112
	filterParamsSize = 32
)

// Step types of the integration kernel.
const (
	stepCenterA uint32 = 0
	stepRegular uint32 = 1
	stepCenterB uint32 = 2
)

// licParams is the LICParams uniform block of lic.wgsl. Field order and
// types must match the WGSL struct.
type licParams struct {
	Width, Height           uint32
	FieldWidth, FieldHeight uint32
	NoiseWidth, NoiseHeight uint32
	StepType                uint32
	MaskType                uint32
	StepSign                float32
	StepSize                float32
	Weight                  float32
	MaskThreshold           float32
	OriginX, OriginY        float32
	InvMagnification        float32
	NormalizeVectors        uint32
	TransformX, TransformY  float32
	NoiseScaleX             float32
	NoiseScaleY             float32
	NoiseOriginX            float32
	NoiseOriginY            float32
	NoiseSpanX, NoiseSpanY  float32
	NoiseClamp              uint32
	VectorShift             float32
	VectorScale             float32
	_                       uint32
}

func (p *licParams) encode() ([]byte, error) {
	return binary.Append(make([]byte, 0, licParamsSize), binary.LittleEndian, p)
}

// filterParams is the FilterParams uniform block shared by the filter.wgsl
// entry points. Axis is only read by blur.
type filterParams struct {
	Width, Height uint32
	MinValue      float32
	MaxMinDiff    float32
	Axis          uint32
	_             [3]uint32
}

func (p *filterParams) encode() ([]byte, error) {
	return binary.Append(make([]byte, 0, filterParamsSize), binary.LittleEndian, p)
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
