package main

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"github.com/gogpu/lic"
)

// syntheticField builds a 2-component field centered in a w×h grid.
func syntheticField(kind string, w, h int) (*lic.VectorField, error) {
	if w < 2 || h < 2 {
		return nil, fmt.Errorf("field size %dx%d too small", w, h)
	}
	var f func(x, y float64) (float64, float64)
	switch kind {
	case "vortex":
		f = func(x, y float64) (float64, float64) { return -y, x }
	case "saddle":
		f = func(x, y float64) (float64, float64) { return x, -y }
	case "source":
		f = func(x, y float64) (float64, float64) { return x, y }
	default:
		return nil, fmt.Errorf("unknown field %q", kind)
	}

	field := &lic.VectorField{Width: w, Height: h, Components: 2, Data: make([]float32, w*h*2)}
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			x := 2*float64(i)/float64(w-1) - 1
			y := 2*float64(j)/float64(h-1) - 1
			vx, vy := f(x, y)
			field.Data[(j*w+i)*2] = float32(vx)
			field.Data[(j*w+i)*2+1] = float32(vy)
		}
	}
	return field, nil
}

// magnitudeImage colors the field by vector magnitude, blue to red, and
// scales it to the output size.
func magnitudeImage(field *lic.VectorField, w, h int) *image.NRGBA {
	src := image.NewNRGBA(image.Rect(0, 0, field.Width, field.Height))
	var peak float64
	for i := 0; i < field.Width*field.Height; i++ {
		peak = math.Max(peak, magnitude(field, i))
	}
	for j := 0; j < field.Height; j++ {
		for i := 0; i < field.Width; i++ {
			t := 0.0
			if peak > 0 {
				t = magnitude(field, j*field.Width+i) / peak
			}
			src.SetNRGBA(i, j, color.NRGBA{
				R: uint8(255 * t),
				G: uint8(96 * (1 - math.Abs(2*t-1))),
				B: uint8(255 * (1 - t)),
				A: 255,
			})
		}
	}
	if w == field.Width && h == field.Height {
		return src
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

func magnitude(field *lic.VectorField, texel int) float64 {
	v := field.Data[texel*field.Components:]
	return math.Hypot(float64(v[0]), float64(v[1]))
}
