// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package reference

// Weight returns the per-sample box filter weight for n steps per direction.
func Weight(steps int) float32 {
	return 1 / float32(2*steps+1)
}

// Convolve computes a complete LIC image directly.
//
// base supplies the geometry, vector decode and noise mapping of the first
// pass; its StepType, MaskType, StepSign and Weight fields are ignored.
// With enhanced set, the first pass is sharpened by [HighPass] (after
// min/max normalization when contrast is set) and convolved again with
// steps/2 steps, the filtered image standing in for the noise.
//
// The result holds 3 values per output pixel.
func Convolve(base Params, v *Vectors, n *Image, steps int, enhanced, contrast bool) []float32 {
	if !enhanced {
		return convolvePass(base, v, n, steps, true)
	}

	first := convolvePass(base, v, n, steps, false)

	fp := FilterParams{Width: base.Width, Height: base.Height, Min: 0, MaxMinDiff: 1}
	if contrast {
		if lo, hi, ok := Range(first, false); ok {
			fp.Min = lo
			fp.MaxMinDiff = hi - lo
		}
	}

	filtered := make([]float32, len(first))
	for j := 0; j < int(base.Height); j++ {
		for i := 0; i < int(base.Width); i++ {
			HighPass(&fp, first, filtered, i, j)
		}
	}

	second := base
	second.NoiseWidth = base.Width
	second.NoiseHeight = base.Height
	second.NoiseScaleX, second.NoiseScaleY = 1, 1
	second.NoiseOriginX = base.OriginX / float32(base.FieldWidth)
	second.NoiseOriginY = base.OriginY / float32(base.FieldHeight)
	second.NoiseSpanX = float32(base.Width) * base.InvMagnification / float32(base.FieldWidth)
	second.NoiseSpanY = float32(base.Height) * base.InvMagnification / float32(base.FieldHeight)
	second.NoiseClamp = 1

	img := &Image{Width: int(base.Width), Height: int(base.Height), Data: filtered}
	return convolvePass(second, v, img, steps/2, true)
}

// Range returns the value range of the first channel of img, leaving out
// masked (negative) pixels when skipMasked is set. ok is false for an
// empty or flat range or one outside [0, 1], in which case [0, 1] is
// returned.
func Range(img []float32, skipMasked bool) (lo, hi float32, ok bool) {
	first := true
	for k := 0; k < len(img); k += 3 {
		v := img[k]
		if skipMasked && v < 0 {
			continue
		}
		if first {
			lo, hi, first = v, v, false
			continue
		}
		lo, hi = min(lo, v), max(hi, v)
	}
	if first || !(hi > lo) || hi > 1 || lo < 0 {
		return 0, 1, false
	}
	return lo, hi, true
}

// Finish applies the post-convolution stages to a width×height image:
// antiAlias iterations of an x then y [Blur], followed, when contrast is
// set, by a [Contrast] stretch of the unmasked range narrowed by the low
// and high factors.
func Finish(width, height int, img []float32, antiAlias int, contrast bool, low, high float32) []float32 {
	cur := append([]float32(nil), img...)
	next := make([]float32, len(img))
	run := func(fp *FilterParams, f func(*FilterParams, []float32, []float32, int, int)) {
		for j := 0; j < height; j++ {
			for i := 0; i < width; i++ {
				f(fp, cur, next, i, j)
			}
		}
		cur, next = next, cur
	}

	fp := FilterParams{Width: uint32(width), Height: uint32(height), Min: 0, MaxMinDiff: 1}
	for range antiAlias {
		for _, axis := range [2]uint32{0, 1} {
			fp.Axis = axis
			run(&fp, Blur)
		}
	}
	if contrast {
		lo, hi, _ := Range(cur, true)
		d := hi - lo
		lo += d * low
		hi -= d * high
		fp.Axis = 0
		fp.Min, fp.MaxMinDiff = lo, hi-lo
		run(&fp, Contrast)
	}
	return cur
}

func convolvePass(p Params, v *Vectors, n *Image, steps int, mask bool) []float32 {
	w := Weight(steps)
	out := make([]float32, int(p.Width)*int(p.Height)*3)
	for j := 0; j < int(p.Height); j++ {
		for i := 0; i < int(p.Width); i++ {
			seed := Seed(&p, i, j)
			var acc float32
			for _, sign := range [2]float32{-1, 1} {
				q := p
				q.StepSign = sign
				pos := seed
				acc += 0.5 * w * Noise(&q, n, pos)
				for k := 1; k <= steps; k++ {
					pos = Advect(&q, v, pos)
					acc += w * Noise(&q, n, pos)
				}
			}
			if mask {
				if Masked(&p, v, seed) {
					acc = MaskValue
				}
			}
			idx := (j*int(p.Width) + i) * 3
			out[idx], out[idx+1], out[idx+2] = acc, acc, acc
		}
	}
	return out
}
