// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package reference is a scalar CPU port of the LIC compute kernels.
//
// Each exported kernel mirrors one WGSL entry point invocation for a single
// pixel: [Step] mirrors lic_step in lic.wgsl, while [HighPass], [Blur] and
// [Contrast] mirror the entry points of filter.wgsl. [Convolve] computes the
// same image directly, walking each streamline in a plain loop with no
// ping-pong buffers, and [Finish] applies the post-convolution stages, so
// the dispatch sequence driven by the engine can be checked against them.
//
// All arithmetic is float32 to stay close to what the device computes.
package reference

import (
	"github.com/chewxy/math32"
)

// Step types written by the host into Params.StepType.
const (
	StepCenterA uint32 = 0 // center revisit, first direction
	StepRegular uint32 = 1
	StepCenterB uint32 = 2 // center revisit, second direction
)

// MaskValue is the sentinel emitted for masked (zero-vector) pixels.
const MaskValue float32 = -1

// Params mirrors the LICParams uniform block of lic.wgsl.
type Params struct {
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
	Normalize               uint32
	TransformX, TransformY  float32
	NoiseScaleX             float32
	NoiseScaleY             float32
	NoiseOriginX            float32
	NoiseOriginY            float32
	NoiseSpanX, NoiseSpanY  float32
	NoiseClamp              uint32
	VectorShift             float32
	VectorScale             float32
	CompA, CompB            uint32
}

// FilterParams mirrors the FilterParams uniform block of filter.wgsl.
type FilterParams struct {
	Width, Height uint32
	Min           float32
	MaxMinDiff    float32
	Axis          uint32
}

// Vectors is a vector field in the 4-slot-per-texel device layout.
type Vectors struct {
	Width, Height int
	Data          []float32 // 4 values per texel
}

// Image is a 3-channel float image (noise, accumulators, position trackers).
type Image struct {
	Width, Height int
	Data          []float32 // 3 values per pixel
}

// Vec2 is a point or vector in normalized field coordinates.
type Vec2 struct{ X, Y float32 }

// Seed returns the normalized field position of output pixel (i, j).
func Seed(p *Params, i, j int) Vec2 {
	return Vec2{
		X: (p.OriginX + (float32(i)+0.5)*p.InvMagnification) / float32(p.FieldWidth),
		Y: (p.OriginY + (float32(j)+0.5)*p.InvMagnification) / float32(p.FieldHeight),
	}
}

// RawVector samples the field bilinearly at pos (clamp to edge), selects the
// active components and applies the shift/scale decode.
func RawVector(p *Params, v *Vectors, pos Vec2) Vec2 {
	fx := pos.X*float32(v.Width) - 0.5
	fy := pos.Y*float32(v.Height) - 0.5
	x0f := math32.Floor(fx)
	y0f := math32.Floor(fy)
	tx := fx - x0f
	ty := fy - y0f
	x0 := clampInt(int(x0f), 0, v.Width-1)
	y0 := clampInt(int(y0f), 0, v.Height-1)
	x1 := clampInt(int(x0f)+1, 0, v.Width-1)
	y1 := clampInt(int(y0f)+1, 0, v.Height-1)

	var out [4]float32
	for c := 0; c < 4; c++ {
		a := v.Data[(y0*v.Width+x0)*4+c]
		b := v.Data[(y0*v.Width+x1)*4+c]
		d := v.Data[(y1*v.Width+x0)*4+c]
		e := v.Data[(y1*v.Width+x1)*4+c]
		top := a + (b-a)*tx
		bot := d + (e-d)*tx
		out[c] = top + (bot-top)*ty
	}
	return Vec2{
		X: out[p.CompA]*p.VectorScale + p.VectorShift,
		Y: out[p.CompB]*p.VectorScale + p.VectorShift,
	}
}

// Vector returns the integration direction at pos: the raw vector, scaled
// into normalized space and normalized when requested.
func Vector(p *Params, v *Vectors, pos Vec2) Vec2 {
	r := RawVector(p, v, pos)
	r.X *= p.TransformX
	r.Y *= p.TransformY
	if p.Normalize != 0 {
		l := math32.Sqrt(r.X*r.X + r.Y*r.Y)
		if l > 0 {
			r.X /= l
			r.Y /= l
		} else {
			r = Vec2{}
		}
	}
	return r
}

// Masked reports whether the raw vector at pos is short enough to be
// treated as transparent.
func Masked(p *Params, v *Vectors, pos Vec2) bool {
	r := RawVector(p, v, pos)
	return math32.Sqrt(r.X*r.X+r.Y*r.Y) <= p.MaskThreshold
}

// Advect moves pos one midpoint (RK2) step of StepSign*StepSize.
func Advect(p *Params, v *Vectors, pos Vec2) Vec2 {
	h := p.StepSign * p.StepSize
	v0 := Vector(p, v, pos)
	mid := Vec2{X: pos.X + 0.5*h*v0.X, Y: pos.Y + 0.5*h*v0.Y}
	v1 := Vector(p, v, mid)
	return Vec2{X: pos.X + h*v1.X, Y: pos.Y + h*v1.Y}
}

// Noise samples the first channel of the noise image at pos with nearest
// filtering, tiling (or clamping) according to the noise uniforms.
func Noise(p *Params, n *Image, pos Vec2) float32 {
	tx := (pos.X - p.NoiseOriginX) / p.NoiseSpanX * p.NoiseScaleX
	ty := (pos.Y - p.NoiseOriginY) / p.NoiseSpanY * p.NoiseScaleY
	if p.NoiseClamp == 0 {
		tx -= math32.Floor(tx)
		ty -= math32.Floor(ty)
	}
	x := clampInt(int(math32.Floor(tx*float32(n.Width))), 0, n.Width-1)
	y := clampInt(int(math32.Floor(ty*float32(n.Height))), 0, n.Height-1)
	return n.Data[(y*n.Width+x)*3]
}

// Step runs one lic_step invocation for output pixel (i, j), reading the
// read pair and writing the write pair.
func Step(p *Params, v *Vectors, n *Image, readAcc, readPos, writeAcc, writePos []float32, i, j int) {
	if i >= int(p.Width) || j >= int(p.Height) {
		return
	}
	idx := (j*int(p.Width) + i) * 3
	acc := readAcc[idx]
	seed := Seed(p, i, j)

	var pos Vec2
	if p.StepType == StepRegular {
		pos = Advect(p, v, Vec2{X: readPos[idx], Y: readPos[idx+1]})
		acc += p.Weight * Noise(p, n, pos)
	} else {
		pos = seed
		acc += 0.5 * p.Weight * Noise(p, n, pos)
	}

	if p.MaskType == 1 && Masked(p, v, seed) {
		acc = MaskValue
	}

	writeAcc[idx] = acc
	writeAcc[idx+1] = acc
	writeAcc[idx+2] = acc
	writePos[idx] = pos.X
	writePos[idx+1] = pos.Y
	writePos[idx+2] = 0
}

// HighPass runs one high_pass invocation for pixel (i, j): a 5-point
// Laplacian sharpening of the (range-normalized) source.
func HighPass(p *FilterParams, src, dst []float32, i, j int) {
	w, h := int(p.Width), int(p.Height)
	if i >= w || j >= h {
		return
	}
	at := func(x, y int) float32 {
		x = clampInt(x, 0, w-1)
		y = clampInt(y, 0, h-1)
		return (src[(y*w+x)*3] - p.Min) / p.MaxMinDiff
	}
	c := at(i, j)
	out := 5*c - at(i-1, j) - at(i+1, j) - at(i, j-1) - at(i, j+1)
	out = math32.Min(math32.Max(out, 0), 1)
	idx := (j*w + i) * 3
	dst[idx] = out
	dst[idx+1] = out
	dst[idx+2] = out
}

// Blur computes blur output pixel (i, j): a 1-2-1 filter of src along
// p.Axis (0 for x, 1 for y) with clamp-to-edge addressing. Masked pixels
// are copied and masked neighbours are left out of the weighted mean.
func Blur(p *FilterParams, src, dst []float32, i, j int) {
	w, h := int(p.Width), int(p.Height)
	if i >= w || j >= h {
		return
	}
	at := func(x, y int) float32 {
		return src[(clampInt(y, 0, h-1)*w+clampInt(x, 0, w-1))*3]
	}
	dx, dy := 1, 0
	if p.Axis == 1 {
		dx, dy = 0, 1
	}
	out := at(i, j)
	if out >= 0 {
		sum, weight := 0.5*out, float32(0.5)
		for _, n := range [2]float32{at(i-dx, j-dy), at(i+dx, j+dy)} {
			if n >= 0 {
				sum += 0.25 * n
				weight += 0.25
			}
		}
		out = sum / weight
	}
	idx := (j*w + i) * 3
	dst[idx], dst[idx+1], dst[idx+2] = out, out, out
}

// Contrast computes contrast output pixel (i, j): (v - Min) / MaxMinDiff
// clamped to [0, 1]. Masked pixels are copied.
func Contrast(p *FilterParams, src, dst []float32, i, j int) {
	w, h := int(p.Width), int(p.Height)
	if i >= w || j >= h {
		return
	}
	idx := (j*w + i) * 3
	out := src[idx]
	if out >= 0 {
		out = math32.Min(math32.Max((out-p.Min)/p.MaxMinDiff, 0), 1)
	}
	dst[idx], dst[idx+1], dst[idx+2] = out, out, out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
