// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package softgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/lic/internal/reference"
)

// Uniform block sizes in bytes, padded to 16.
const (
	LICParamsSize    = 112
	FilterParamsSize = 32
)

// workgroupSize is the @workgroup_size of every kernel.
const workgroupSize = 8

// LIC kernel bindings.
const (
	bindParams   = 0
	bindVectors  = 1
	bindNoise    = 2
	bindReadAcc  = 3
	bindReadPos  = 4
	bindWriteAcc = 5
	bindWritePos = 6
)

// Filter kernel bindings.
const (
	bindFilterSrc = 1
	bindFilterDst = 2
)

func licKernels() map[string]Kernel {
	return map[string]Kernel{
		"lic_step":  licStep,
		"high_pass": filterKernel(reference.HighPass),
		"blur":      filterKernel(reference.Blur),
		"contrast":  filterKernel(reference.Contrast),
	}
}

type wordReader struct {
	b []byte
	i int
}

func (r *wordReader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.b[r.i:])
	r.i += 4
	return v
}

func (r *wordReader) f32() float32 { return math.Float32frombits(r.u32()) }

// DecodeLICParams decodes the lic_step uniform block. CompA and CompB are
// not part of the block and are left zero.
func DecodeLICParams(b []byte) (reference.Params, error) {
	if len(b) < LICParamsSize {
		return reference.Params{}, fmt.Errorf("softgpu: lic params: %d bytes, want %d", len(b), LICParamsSize)
	}
	r := &wordReader{b: b}
	var p reference.Params
	p.Width = r.u32()
	p.Height = r.u32()
	p.FieldWidth = r.u32()
	p.FieldHeight = r.u32()
	p.NoiseWidth = r.u32()
	p.NoiseHeight = r.u32()
	p.StepType = r.u32()
	p.MaskType = r.u32()
	p.StepSign = r.f32()
	p.StepSize = r.f32()
	p.Weight = r.f32()
	p.MaskThreshold = r.f32()
	p.OriginX = r.f32()
	p.OriginY = r.f32()
	p.InvMagnification = r.f32()
	p.Normalize = r.u32()
	p.TransformX = r.f32()
	p.TransformY = r.f32()
	p.NoiseScaleX = r.f32()
	p.NoiseScaleY = r.f32()
	p.NoiseOriginX = r.f32()
	p.NoiseOriginY = r.f32()
	p.NoiseSpanX = r.f32()
	p.NoiseSpanY = r.f32()
	p.NoiseClamp = r.u32()
	p.VectorShift = r.f32()
	p.VectorScale = r.f32()
	return p, nil
}

// DecodeFilterParams decodes the uniform block of the image filter kernels.
func DecodeFilterParams(b []byte) (reference.FilterParams, error) {
	if len(b) < FilterParamsSize {
		return reference.FilterParams{}, fmt.Errorf("softgpu: filter params: %d bytes, want %d", len(b), FilterParamsSize)
	}
	r := &wordReader{b: b}
	return reference.FilterParams{
		Width:      r.u32(),
		Height:     r.u32(),
		Min:        r.f32(),
		MaxMinDiff: r.f32(),
		Axis:       r.u32(),
	}, nil
}

func licStep(inv *Invocation) error {
	raw, err := inv.Bytes(bindParams)
	if err != nil {
		return err
	}
	p, err := DecodeLICParams(raw)
	if err != nil {
		return err
	}
	p.CompA, p.CompB = components(inv.Source)

	vec, err := inv.Floats(bindVectors)
	if err != nil {
		return err
	}
	noise, err := inv.Floats(bindNoise)
	if err != nil {
		return err
	}
	readAcc, err := inv.Floats(bindReadAcc)
	if err != nil {
		return err
	}
	readPos, err := inv.Floats(bindReadPos)
	if err != nil {
		return err
	}
	writeAcc, err := inv.Writable(bindWriteAcc)
	if err != nil {
		return err
	}
	writePos, err := inv.Writable(bindWritePos)
	if err != nil {
		return err
	}

	need := int(p.Width) * int(p.Height) * 3
	if len(readAcc) < need || len(readPos) < need || len(writeAcc) < need || len(writePos) < need {
		return fmt.Errorf("softgpu: image buffers smaller than %dx%d", p.Width, p.Height)
	}
	if len(vec) < int(p.FieldWidth)*int(p.FieldHeight)*4 {
		return fmt.Errorf("softgpu: vector buffer smaller than %dx%d", p.FieldWidth, p.FieldHeight)
	}
	if len(noise) < int(p.NoiseWidth)*int(p.NoiseHeight)*3 {
		return fmt.Errorf("softgpu: noise buffer smaller than %dx%d", p.NoiseWidth, p.NoiseHeight)
	}

	v := &reference.Vectors{Width: int(p.FieldWidth), Height: int(p.FieldHeight), Data: vec}
	n := &reference.Image{Width: int(p.NoiseWidth), Height: int(p.NoiseHeight), Data: noise}
	w, h := inv.Groups[0]*workgroupSize, inv.Groups[1]*workgroupSize
	for j := uint32(0); j < h; j++ {
		for i := uint32(0); i < w; i++ {
			reference.Step(&p, v, n, readAcc, readPos, writeAcc, writePos, int(i), int(j))
		}
	}
	return nil
}

// filterKernel runs a per-pixel image filter over every invocation.
func filterKernel(f func(p *reference.FilterParams, src, dst []float32, i, j int)) Kernel {
	return func(inv *Invocation) error {
		raw, err := inv.Bytes(bindParams)
		if err != nil {
			return err
		}
		p, err := DecodeFilterParams(raw)
		if err != nil {
			return err
		}
		src, err := inv.Floats(bindFilterSrc)
		if err != nil {
			return err
		}
		dst, err := inv.Writable(bindFilterDst)
		if err != nil {
			return err
		}
		need := int(p.Width) * int(p.Height) * 3
		if len(src) < need || len(dst) < need {
			return fmt.Errorf("softgpu: filter buffers smaller than %dx%d", p.Width, p.Height)
		}
		w, h := inv.Groups[0]*workgroupSize, inv.Groups[1]*workgroupSize
		for j := uint32(0); j < h; j++ {
			for i := uint32(0); i < w; i++ {
				f(&p, src, dst, int(i), int(j))
			}
		}
		return nil
	}
}
