// Package composite blends LIC results over previously rendered images.
//
// The engine produces gray values, 3 per pixel, with (-1, -1, -1) marking
// pixels whose vector fell at or below the mask threshold. [Blend] scales
// such a [Layer] onto a region of a [Canvas] and mixes it with what is
// already there.
package composite

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/gogpu/lic"
)

// ErrLayer is returned for layers whose data does not match their size.
var ErrLayer = errors.New("composite: invalid layer")

// Mode selects how LIC values are combined with the background.
type Mode uint8

const (
	// ModeBlend interpolates between background and LIC gray by
	// LICIntensity.
	ModeBlend Mode = iota

	// ModeMultiply scales the background by the LIC value plus MapBias.
	ModeMultiply
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeBlend:
		return "blend"
	case ModeMultiply:
		return "multiply"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

// UnmarshalText parses "blend" or "multiply".
func (m *Mode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "blend":
		*m = ModeBlend
	case "multiply":
		*m = ModeMultiply
	default:
		return fmt.Errorf("composite: unknown mode %q", text)
	}
	return nil
}

// MarshalText returns the mode name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Options control the blend.
type Options struct {
	Mode Mode `yaml:"mode"`

	// LICIntensity is the weight of the LIC value in ModeBlend.
	LICIntensity float32 `yaml:"lic_intensity"`

	// MapBias is added to the LIC value in ModeMultiply.
	MapBias float32 `yaml:"map_bias"`

	// MaskColor is mixed into masked pixels at MaskIntensity. Zero
	// intensity leaves masked pixels untouched.
	MaskColor     [3]float32 `yaml:"mask_color,flow"`
	MaskIntensity float32    `yaml:"mask_intensity"`
}

// DefaultOptions returns blend mode at 0.8 intensity with a gray mask color
// that is not applied.
func DefaultOptions() Options {
	return Options{
		Mode:         ModeBlend,
		LICIntensity: 0.8,
		MaskColor:    [3]float32{0.5, 0.5, 0.5},
	}
}

// Layer is an engine result in host memory.
type Layer struct {
	Width, Height int

	// Values holds 3 floats per pixel, row-major. Only the first channel
	// is used; negative values mark masked pixels.
	Values []float32
}

// NewLayer wraps the values read back from an engine result.
func NewLayer(img lic.Image, values []float32) (Layer, error) {
	l := Layer{Width: img.Width, Height: img.Height, Values: values}
	return l, l.validate()
}

func (l Layer) validate() error {
	if l.Width <= 0 || l.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrLayer, l.Width, l.Height)
	}
	if len(l.Values) < l.Width*l.Height*3 {
		return fmt.Errorf("%w: %d values for %dx%d pixels", ErrLayer, len(l.Values), l.Width, l.Height)
	}
	return nil
}

// planes splits the layer into an 8-bit gray image and a coverage mask.
func (l Layer) planes() (*image.Gray, *image.Alpha) {
	r := image.Rect(0, 0, l.Width, l.Height)
	gray, mask := image.NewGray(r), image.NewAlpha(r)
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			v := l.Values[(y*l.Width+x)*3]
			if v < 0 {
				continue
			}
			gray.Pix[y*gray.Stride+x] = unit8(v)
			mask.Pix[y*mask.Stride+x] = 0xff
		}
	}
	return gray, mask
}

// Blend mixes layer into the region at of c. The layer is scaled to the
// region bilinearly; the mask is scaled without filtering so that masked
// edges stay sharp. The canvas viewport is restored on return.
func Blend(c *Canvas, at image.Rectangle, layer Layer, opts Options) error {
	if err := layer.validate(); err != nil {
		return err
	}
	defer c.Save().Restore()
	c.SetViewport(at)
	vp := c.Viewport()
	if vp.Empty() {
		return nil
	}

	gray, mask := layer.planes()
	dst := image.Rect(0, 0, at.Dx(), at.Dy())
	scaledGray, scaledMask := image.NewGray(dst), image.NewAlpha(dst)
	draw.BiLinear.Scale(scaledGray, dst, gray, gray.Bounds(), draw.Src, nil)
	draw.NearestNeighbor.Scale(scaledMask, dst, mask, mask.Bounds(), draw.Src, nil)

	for y := vp.Min.Y; y < vp.Max.Y; y++ {
		for x := vp.Min.X; x < vp.Max.X; x++ {
			lx, ly := x-at.Min.X, y-at.Min.Y
			bg := c.img.NRGBAAt(x, y)
			if scaledMask.AlphaAt(lx, ly).A == 0 {
				if opts.MaskIntensity > 0 {
					c.img.SetNRGBA(x, y, mixColor(bg, opts.MaskColor, opts.MaskIntensity))
				}
				continue
			}
			v := float32(scaledGray.GrayAt(lx, ly).Y) / 0xff
			c.img.SetNRGBA(x, y, shade(bg, v, opts))
		}
	}
	lic.Logger().Debug("composite: blended", "rect", at, "mode", opts.Mode)
	return nil
}

func shade(bg color.NRGBA, v float32, opts Options) color.NRGBA {
	switch opts.Mode {
	case ModeMultiply:
		f := clamp01(v + opts.MapBias)
		return color.NRGBA{
			R: unit8(float32(bg.R) / 0xff * f),
			G: unit8(float32(bg.G) / 0xff * f),
			B: unit8(float32(bg.B) / 0xff * f),
			A: bg.A,
		}
	default:
		return mixColor(bg, [3]float32{v, v, v}, opts.LICIntensity)
	}
}

// mixColor interpolates from bg towards c by t, keeping the alpha of bg.
func mixColor(bg color.NRGBA, c [3]float32, t float32) color.NRGBA {
	t = clamp01(t)
	mix := func(b uint8, v float32) uint8 {
		return unit8(float32(b)/0xff*(1-t) + clamp01(v)*t)
	}
	return color.NRGBA{R: mix(bg.R, c[0]), G: mix(bg.G, c[1]), B: mix(bg.B, c[2]), A: bg.A}
}

func unit8(v float32) uint8 {
	return uint8(clamp01(v)*0xff + 0.5)
}

func clamp01(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
