// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package reference

import (
	"math"
	"testing"
)

func uniformField(w, h int, x, y float32) *Vectors {
	v := &Vectors{Width: w, Height: h, Data: make([]float32, w*h*4)}
	for i := 0; i < w*h; i++ {
		v.Data[i*4] = x
		v.Data[i*4+1] = y
	}
	return v
}

func rampNoise(w, h int) *Image {
	n := &Image{Width: w, Height: h, Data: make([]float32, w*h*3)}
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			val := float32((i*7+j*13)%w) / float32(w)
			k := (j*w + i) * 3
			n.Data[k], n.Data[k+1], n.Data[k+2] = val, val, val
		}
	}
	return n
}

func baseParams(w, h int) Params {
	return Params{
		Width: uint32(w), Height: uint32(h),
		FieldWidth: uint32(w), FieldHeight: uint32(h),
		NoiseWidth: uint32(w), NoiseHeight: uint32(h),
		StepSize:         0.02,
		InvMagnification: 1,
		Normalize:        1,
		TransformX:       1 / float32(w),
		TransformY:       1 / float32(h),
		NoiseScaleX:      1,
		NoiseScaleY:      1,
		NoiseSpanX:       1,
		NoiseSpanY:       1,
		VectorScale:      1,
		CompA:            0,
		CompB:            1,
	}
}

func TestWeight(t *testing.T) {
	for _, n := range []int{1, 5, 20} {
		w := Weight(n)
		sum := 2*0.5*w + float32(2*n)*w
		if math.Abs(float64(sum-1)) > 1e-5 {
			t.Errorf("Weight(%d): samples sum to %v, want 1", n, sum)
		}
	}
}

func TestConvolveConstantNoise(t *testing.T) {
	const size = 16
	p := baseParams(size, size)
	n := &Image{Width: size, Height: size, Data: make([]float32, size*size*3)}
	for i := range n.Data {
		n.Data[i] = 0.5
	}
	out := Convolve(p, uniformField(size, size, 1, 0), n, 5, false, false)
	for k, got := range out {
		if math.Abs(float64(got-0.5)) > 1e-5 {
			t.Fatalf("out[%d] = %v, want 0.5", k, got)
		}
	}
}

func TestConvolveHorizontalField(t *testing.T) {
	const (
		size  = 64
		steps = 5
	)
	p := baseParams(size, size)
	v := uniformField(size, size, 1, 0)
	n := rampNoise(size, size)
	out := Convolve(p, v, n, steps, false, false)

	w := Weight(steps)
	for _, px := range [][2]int{{0, 0}, {10, 3}, {31, 31}, {63, 40}} {
		i, j := px[0], px[1]
		seed := Seed(&p, i, j)
		var want float32
		for _, sign := range []float32{-1, 1} {
			q := p
			q.StepSign = sign
			want += 0.5 * w * Noise(&q, n, seed)
			for k := 1; k <= steps; k++ {
				pos := Vec2{X: seed.X + sign*float32(k)*p.StepSize, Y: seed.Y}
				want += w * Noise(&q, n, pos)
			}
		}
		got := out[(j*size+i)*3]
		if math.Abs(float64(got-want)) > 1e-4 {
			t.Errorf("pixel (%d,%d) = %v, want %v", i, j, got, want)
		}
	}
}

func TestConvolveMasksZeroVectors(t *testing.T) {
	p := baseParams(8, 8)
	out := Convolve(p, uniformField(8, 8, 0, 0), rampNoise(8, 8), 3, false, false)
	for k, got := range out {
		if got != MaskValue {
			t.Fatalf("out[%d] = %v, want mask value", k, got)
		}
	}
}

func TestStepMatchesConvolve(t *testing.T) {
	const (
		size  = 12
		steps = 4
	)
	p := baseParams(size, size)
	v := uniformField(size, size, 0.6, 0.8)
	n := rampNoise(size, size)
	want := Convolve(p, v, n, steps, false, false)

	bufs := [2][2][]float32{}
	for k := range bufs {
		bufs[k][0] = make([]float32, size*size*3)
		bufs[k][1] = make([]float32, size*size*3)
	}
	dispatch := 0
	for d, sign := range []float32{-1, 1} {
		for s := 0; s <= steps; s++ {
			q := p
			q.StepSign = sign
			q.Weight = Weight(steps)
			switch {
			case s > 0:
				q.StepType = StepRegular
			case d == 0:
				q.StepType = StepCenterA
			default:
				q.StepType = StepCenterB
			}
			if d == 1 && s == steps {
				q.MaskType = 1
			}
			r, w := bufs[dispatch%2], bufs[(dispatch+1)%2]
			for j := 0; j < size; j++ {
				for i := 0; i < size; i++ {
					Step(&q, v, n, r[0], r[1], w[0], w[1], i, j)
				}
			}
			dispatch++
		}
	}
	got := bufs[dispatch%2][0]
	for k := range want {
		if math.Abs(float64(got[k]-want[k])) > 1e-5 {
			t.Fatalf("value %d = %v, want %v", k, got[k], want[k])
		}
	}
}

func TestHighPassConstant(t *testing.T) {
	const w, h = 4, 3
	src := make([]float32, w*h*3)
	for i := range src {
		src[i] = 0.25
	}
	dst := make([]float32, len(src))
	fp := FilterParams{Width: w, Height: h, Min: 0, MaxMinDiff: 1}
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			HighPass(&fp, src, dst, i, j)
		}
	}
	for k, got := range dst {
		if math.Abs(float64(got-0.25)) > 1e-6 {
			t.Fatalf("dst[%d] = %v, want 0.25", k, got)
		}
	}
}

func TestHighPassClamps(t *testing.T) {
	const w, h = 3, 3
	src := make([]float32, w*h*3)
	src[(1*w+1)*3] = 1
	dst := make([]float32, len(src))
	fp := FilterParams{Width: w, Height: h, Min: 0, MaxMinDiff: 1}
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			HighPass(&fp, src, dst, i, j)
		}
	}
	if dst[(1*w+1)*3] != 1 {
		t.Errorf("center = %v, want 1 (clamped)", dst[(1*w+1)*3])
	}
	if dst[(0*w+1)*3] != 0 {
		t.Errorf("neighbour = %v, want 0 (clamped)", dst[(0*w+1)*3])
	}
}

func TestNoiseTiles(t *testing.T) {
	p := baseParams(4, 4)
	p.NoiseScaleX, p.NoiseScaleY = 2, 2
	n := rampNoise(4, 4)
	a := Noise(&p, n, Vec2{X: 0.1, Y: 0.1})
	b := Noise(&p, n, Vec2{X: 0.6, Y: 0.6})
	if a != b {
		t.Errorf("tiled samples differ: %v vs %v", a, b)
	}
}

func TestEnhancedConstantField(t *testing.T) {
	const size = 8
	p := baseParams(size, size)
	n := &Image{Width: size, Height: size, Data: make([]float32, size*size*3)}
	for i := range n.Data {
		n.Data[i] = 0.5
	}
	// Constant input stays constant through the filter and both passes.
	out := Convolve(p, uniformField(size, size, 1, 0), n, 1, true, true)
	for k, got := range out {
		if math.Abs(float64(got-0.5)) > 1e-5 {
			t.Fatalf("out[%d] = %v, want 0.5", k, got)
		}
	}
}

func rowImage(vals ...float32) []float32 {
	out := make([]float32, 0, len(vals)*3)
	for _, v := range vals {
		out = append(out, v, v, v)
	}
	return out
}

func TestBlurRow(t *testing.T) {
	src := rowImage(0, 1, 0, -1, 0.4)
	dst := make([]float32, len(src))
	p := FilterParams{Width: 5, Height: 1, Axis: 0}
	for i := 0; i < 5; i++ {
		Blur(&p, src, dst, i, 0)
	}
	// Edges clamp to themselves and masked neighbours are left out of the
	// mean, so pixels 2 and 4 divide by 0.75.
	want := []float32{0.25, 0.5, 0.25 / 0.75, -1, (0.5*0.4 + 0.25*0.4) / 0.75}
	for i, w := range want {
		if math.Abs(float64(dst[i*3]-w)) > 1e-6 {
			t.Errorf("pixel %d = %v, want %v", i, dst[i*3], w)
		}
	}
}

func TestBlurAxis(t *testing.T) {
	// A 1x3 column blurred along x is unchanged; along y it is smoothed.
	src := rowImage(0, 1, 0)
	dst := make([]float32, len(src))
	px := FilterParams{Width: 1, Height: 3, Axis: 0}
	Blur(&px, src, dst, 0, 1)
	if dst[3] != 1 {
		t.Errorf("x blur of a column = %v, want 1", dst[3])
	}
	py := FilterParams{Width: 1, Height: 3, Axis: 1}
	Blur(&py, src, dst, 0, 1)
	if dst[3] != 0.5 {
		t.Errorf("y blur = %v, want 0.5", dst[3])
	}
}

func TestContrastStretchesAndKeepsMask(t *testing.T) {
	src := rowImage(0.2, 0.5, 0.8, -1)
	dst := make([]float32, len(src))
	p := FilterParams{Width: 4, Height: 1, Min: 0.3, MaxMinDiff: 0.4}
	for i := 0; i < 4; i++ {
		Contrast(&p, src, dst, i, 0)
	}
	want := []float32{0, 0.5, 1, -1}
	for i, w := range want {
		if math.Abs(float64(dst[i*3]-w)) > 1e-6 {
			t.Errorf("pixel %d = %v, want %v", i, dst[i*3], w)
		}
	}
}

func TestRange(t *testing.T) {
	tests := []struct {
		name       string
		img        []float32
		skipMasked bool
		lo, hi     float32
		ok         bool
	}{
		{"plain", rowImage(0.25, 0.5, 0.75), false, 0.25, 0.75, true},
		{"masked skipped", rowImage(-1, 0.25, 0.5, -1), true, 0.25, 0.5, true},
		{"masked counted", rowImage(-1, 0.25, 0.5), false, 0, 1, false},
		{"flat", rowImage(0.5, 0.5), false, 0, 1, false},
		{"all masked", rowImage(-1, -1), true, 0, 1, false},
		{"above one", rowImage(0.5, 1.5), false, 0, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi, ok := Range(tt.img, tt.skipMasked)
			if lo != tt.lo || hi != tt.hi || ok != tt.ok {
				t.Errorf("Range() = %v, %v, %v, want %v, %v, %v", lo, hi, ok, tt.lo, tt.hi, tt.ok)
			}
		})
	}
}

func TestFinishContrastFactors(t *testing.T) {
	img := rowImage(0.2, 0.4, 0.6, -1, 0.7)
	out := Finish(5, 1, img, 0, true, 0.1, 0.2)
	// Range [0.2, 0.7] narrows to [0.25, 0.6].
	want := []float32{0, (0.4 - 0.25) / 0.35, 1, -1, 1}
	for i, w := range want {
		if math.Abs(float64(out[i*3]-w)) > 1e-6 {
			t.Errorf("pixel %d = %v, want %v", i, out[i*3], w)
		}
	}
	if img[0] != 0.2 {
		t.Error("Finish modified its input")
	}
}

func TestFinishIdentity(t *testing.T) {
	img := rowImage(0.2, 0.4)
	out := Finish(2, 1, img, 0, false, 0, 0)
	for i := range img {
		if out[i] != img[i] {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], img[i])
		}
	}
}
