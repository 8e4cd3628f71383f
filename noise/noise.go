// Package noise generates the noise textures convolved by the LIC engine.
//
// A texture is a square grid of cells, each GrainSize texels wide. Every
// cell draws one value from the selected distribution, which is then
// quantized to Levels gray levels in [MinValue, MaxValue]. With an impulse
// probability below 1 only a random subset of cells is drawn and the rest
// take the Background value, producing sparse noise.
package noise

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/gogpu/lic"
)

// ErrInvalidParams is returned for parameters that cannot produce a texture.
var ErrInvalidParams = errors.New("noise: invalid parameters")

// Type selects the distribution cell values are drawn from.
type Type uint8

const (
	// Uniform draws cell values uniformly from [0, 1).
	Uniform Type = iota

	// Gaussian sums many uniform draws per cell and rescales the result
	// to [0, 1].
	Gaussian

	// Simplex samples fractal simplex noise at the cell centers. Size and
	// grain are rounded down to powers of two.
	Simplex
)

var typeNames = [...]string{Uniform: "uniform", Gaussian: "gaussian", Simplex: "simplex"}

// String returns the lower-case name of the type.
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

// UnmarshalText parses a type name, case-insensitively.
func (t *Type) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for i, n := range typeNames {
		if n == name {
			*t = Type(i)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown noise type %q", ErrInvalidParams, text)
}

// MarshalText returns the type name.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Params describes a noise texture.
type Params struct {
	Type Type `yaml:"type"`

	// Size is the side length of the texture in texels.
	Size int `yaml:"size"`

	// GrainSize is the side length of a cell in texels.
	GrainSize int `yaml:"grain_size"`

	// MinValue and MaxValue bound the quantized values, both in [0, 1].
	MinValue float32 `yaml:"min_value"`
	MaxValue float32 `yaml:"max_value"`

	// Levels is the number of distinct gray levels.
	Levels int `yaml:"levels"`

	// ImpulseProbability is the chance that a cell is drawn at all.
	ImpulseProbability float32 `yaml:"impulse_probability"`

	// Background is the value of cells that were not drawn.
	Background float32 `yaml:"background"`

	Seed uint64 `yaml:"seed"`
}

// DefaultParams returns a 200×200 gaussian texture with single-texel grain.
func DefaultParams() Params {
	return Params{
		Type:               Gaussian,
		Size:               200,
		GrainSize:          1,
		MinValue:           0,
		MaxValue:           0.8,
		Levels:             256,
		ImpulseProbability: 1,
		Background:         0,
		Seed:               1,
	}
}

// clamped limits the value range, probability and background to [0, 1].
func (p Params) clamped() Params {
	p.MinValue = clamp01(p.MinValue)
	p.MaxValue = clamp01(p.MaxValue)
	p.ImpulseProbability = clamp01(p.ImpulseProbability)
	p.Background = clamp01(p.Background)
	return p
}

// Validate reports whether p can produce a texture. Out-of-range values,
// probabilities and backgrounds are clamped first and are not errors.
func (p Params) Validate() error {
	p = p.clamped()
	switch {
	case p.Type > Simplex:
		return fmt.Errorf("%w: unknown noise type %d", ErrInvalidParams, p.Type)
	case p.Size <= 0:
		return fmt.Errorf("%w: size must be positive, got %d", ErrInvalidParams, p.Size)
	case p.GrainSize <= 0:
		return fmt.Errorf("%w: grain size must be positive, got %d", ErrInvalidParams, p.GrainSize)
	case p.GrainSize > p.Size:
		return fmt.Errorf("%w: grain size %d exceeds size %d", ErrInvalidParams, p.GrainSize, p.Size)
	case p.MinValue >= p.MaxValue:
		return fmt.Errorf("%w: min value %v must be below max value %v", ErrInvalidParams, p.MinValue, p.MaxValue)
	case p.Levels < 1:
		return fmt.Errorf("%w: levels must be positive, got %d", ErrInvalidParams, p.Levels)
	case p.Levels == 1 && p.ImpulseProbability == 1:
		return fmt.Errorf("%w: a single level without impulses gives a constant texture", ErrInvalidParams)
	}
	return nil
}

// Dimensions returns the texture side and grain size Generate uses for p.
// The side is rounded up to a whole number of cells.
func (p Params) Dimensions() (size, grain int) {
	size, grain = p.Size, p.GrainSize
	if p.Type == Simplex {
		size, grain = floorPow2(size), floorPow2(grain)
	}
	if size < grain {
		size = grain
	}
	if size%grain != 0 {
		size = grain * (size/grain + 1)
	}
	return size, grain
}

// Generate builds the texture described by p. All three channels of a texel
// hold the same value. The result is deterministic for a given p.
func Generate(p Params) (*lic.NoiseField, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p = p.clamped()
	size, grain := p.Dimensions()
	cells := size / grain

	g := newGenerator(p, cells)
	var values []float32
	switch p.Type {
	case Uniform:
		values = g.uniform()
	case Gaussian:
		values = g.gaussian()
	default:
		values = g.simplex()
	}

	out := &lic.NoiseField{Width: size, Height: size, Data: make([]float32, size*size*3)}
	for y := 0; y < size; y++ {
		row := values[(y/grain)*cells:]
		for x := 0; x < size; x++ {
			v := row[x/grain]
			i := (y*size + x) * 3
			out.Data[i], out.Data[i+1], out.Data[i+2] = v, v, v
		}
	}
	lic.Logger().Debug("noise: generated", "type", p.Type, "size", size, "grain", grain)
	return out, nil
}

// gaussianDraws is the number of uniform samples summed per gaussian cell.
const gaussianDraws = 2048

type generator struct {
	p     Params
	cells int

	// prob decides which cells are drawn, val draws their values.
	prob *rand.Rand
	val  *rand.Rand
}

func newGenerator(p Params, cells int) *generator {
	return &generator{
		p:     p,
		cells: cells,
		prob:  rand.New(rand.NewPCG(p.Seed, 0x9e3779b97f4a7c15)),
		val:   rand.New(rand.NewPCG(p.Seed, 0x2545f4914f6cdd1d)),
	}
}

// impulse reports whether the next cell is drawn.
func (g *generator) impulse() bool {
	return g.p.ImpulseProbability == 1 || g.prob.Float32() > 1-g.p.ImpulseProbability
}

func (g *generator) uniform() []float32 {
	out := make([]float32, g.cells*g.cells)
	for i := range out {
		if g.impulse() {
			out[i] = g.quantize(g.val.Float32())
		} else {
			out[i] = g.p.Background
		}
	}
	return out
}

func (g *generator) gaussian() []float32 {
	// A sum of uniform draws has mean N/2 and variance N/12.
	dist := distuv.Normal{
		Mu:    gaussianDraws / 2.0,
		Sigma: math.Sqrt(gaussianDraws / 12.0),
		Src:   g.val,
	}
	raw := make([]float64, g.cells*g.cells)
	drawn := make([]bool, len(raw))
	for i := range raw {
		if g.impulse() {
			raw[i] = dist.Rand()
			drawn[i] = true
		}
	}
	return g.normalize(raw, drawn)
}

// simplexOctaves is the number of noise octaves summed per cell.
const simplexOctaves = 4

func (g *generator) simplex() []float32 {
	n := opensimplex.NewNormalized(int64(g.p.Seed))
	base := 4.0 / float64(g.cells)
	raw := make([]float64, g.cells*g.cells)
	drawn := make([]bool, len(raw))
	for y := 0; y < g.cells; y++ {
		for x := 0; x < g.cells; x++ {
			i := y*g.cells + x
			if !g.impulse() {
				continue
			}
			freq, amp := base, 1.0
			for o := 0; o < simplexOctaves; o++ {
				raw[i] += amp * n.Eval2(float64(x)*freq, float64(y)*freq)
				freq *= 2
				amp /= 2
			}
			drawn[i] = true
		}
	}
	return g.normalize(raw, drawn)
}

// normalize rescales the drawn values to [0, 1] over their own range and
// quantizes them. Cells that were not drawn take the background.
func (g *generator) normalize(raw []float64, drawn []bool) []float32 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, v := range raw {
		if drawn[i] {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	span := hi - lo
	out := make([]float32, len(raw))
	for i, v := range raw {
		if !drawn[i] {
			out[i] = g.p.Background
			continue
		}
		t := 0.0
		if span > 0 {
			t = (v - lo) / span
		}
		out[i] = g.quantize(float32(t))
	}
	return out
}

// quantize maps v in [0, 1] onto Levels values spanning [MinValue, MaxValue].
func (g *generator) quantize(v float32) float32 {
	if g.p.Levels == 1 {
		return g.p.MaxValue
	}
	maxLevel := g.p.Levels - 1
	l := int(v * float32(g.p.Levels))
	if l > maxLevel {
		l = maxLevel
	}
	return g.p.MinValue + float32(l)/float32(maxLevel)*(g.p.MaxValue-g.p.MinValue)
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

func floorPow2(n int) int {
	if n < 1 {
		return n
	}
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}
