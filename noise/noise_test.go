package noise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultParamsAreValid(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
		ok     bool
	}{
		{"unknown type", func(p *Params) { p.Type = 9 }, false},
		{"zero size", func(p *Params) { p.Size = 0 }, false},
		{"zero grain", func(p *Params) { p.GrainSize = 0 }, false},
		{"grain above size", func(p *Params) { p.Size, p.GrainSize = 4, 8 }, false},
		{"min equals max", func(p *Params) { p.MinValue, p.MaxValue = 0.5, 0.5 }, false},
		{"min above max after clamping", func(p *Params) { p.MinValue, p.MaxValue = 2, 3 }, false},
		{"no levels", func(p *Params) { p.Levels = 0 }, false},
		{"single level without impulses", func(p *Params) { p.Levels = 1 }, false},
		{"single level sparse", func(p *Params) { p.Levels, p.ImpulseProbability = 1, 0.5 }, true},
		{"probability clamped", func(p *Params) { p.ImpulseProbability = 7 }, true},
		{"negative min clamped", func(p *Params) { p.MinValue = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidParams)
			}
		})
	}
}

func TestDimensions(t *testing.T) {
	tests := []struct {
		typ               Type
		size, grain       int
		wantSize, wantGrn int
	}{
		{Uniform, 200, 1, 200, 1},
		{Uniform, 10, 3, 12, 3},
		{Uniform, 9, 3, 9, 3},
		{Gaussian, 2, 4, 4, 4},
		{Simplex, 200, 3, 128, 2},
		{Simplex, 100, 16, 64, 16},
	}
	for _, tt := range tests {
		p := Params{Type: tt.typ, Size: tt.size, GrainSize: tt.grain}
		size, grain := p.Dimensions()
		assert.Equal(t, tt.wantSize, size, "%v %d/%d size", tt.typ, tt.size, tt.grain)
		assert.Equal(t, tt.wantGrn, grain, "%v %d/%d grain", tt.typ, tt.size, tt.grain)
	}
}

func TestGenerateRange(t *testing.T) {
	for _, typ := range []Type{Uniform, Gaussian, Simplex} {
		t.Run(typ.String(), func(t *testing.T) {
			p := DefaultParams()
			p.Type = typ
			p.Size = 64
			p.MinValue, p.MaxValue = 0.2, 0.7
			n, err := Generate(p)
			require.NoError(t, err)
			require.Equal(t, 64, n.Width)
			require.Equal(t, 64, n.Height)
			require.Len(t, n.Data, 64*64*3)

			lo, hi := float32(1), float32(0)
			for i := 0; i < len(n.Data); i += 3 {
				v := n.Data[i]
				assert.Equal(t, v, n.Data[i+1])
				assert.Equal(t, v, n.Data[i+2])
				lo, hi = min(lo, v), max(hi, v)
			}
			assert.GreaterOrEqual(t, lo, float32(0.2))
			assert.LessOrEqual(t, hi, float32(0.7)+1e-6)
			assert.Less(t, lo, hi, "texture is constant")
		})
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	p := DefaultParams()
	p.Size = 32
	a, err := Generate(p)
	require.NoError(t, err)
	b, err := Generate(p)
	require.NoError(t, err)
	assert.Equal(t, a.Data, b.Data)

	p.Seed = 2
	c, err := Generate(p)
	require.NoError(t, err)
	assert.NotEqual(t, a.Data, c.Data)
}

func TestGenerateGrainBlocks(t *testing.T) {
	p := DefaultParams()
	p.Type = Uniform
	p.Size, p.GrainSize = 16, 4
	n, err := Generate(p)
	require.NoError(t, err)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			corner := n.Data[((y/4*4)*16+x/4*4)*3]
			assert.Equal(t, corner, n.Data[(y*16+x)*3], "texel %d,%d", x, y)
		}
	}
}

func TestGenerateNoImpulsesIsBackground(t *testing.T) {
	p := DefaultParams()
	p.Size = 16
	p.ImpulseProbability = 0
	p.Background = 0.3
	n, err := Generate(p)
	require.NoError(t, err)
	for _, v := range n.Data {
		require.Equal(t, float32(0.3), v)
	}
}

func TestGenerateSparse(t *testing.T) {
	p := DefaultParams()
	p.Type = Uniform
	p.Size = 64
	p.ImpulseProbability = 0.1
	p.Background = 1
	p.MaxValue = 0.5
	n, err := Generate(p)
	require.NoError(t, err)
	var bg int
	for i := 0; i < len(n.Data); i += 3 {
		if n.Data[i] == 1 {
			bg++
		}
	}
	total := 64 * 64
	assert.Greater(t, bg, total*8/10, "too few background cells")
	assert.Less(t, bg, total, "no cell was drawn")
}

func TestGenerateLevels(t *testing.T) {
	p := DefaultParams()
	p.Type = Uniform
	p.Size = 64
	p.Levels = 4
	p.MinValue, p.MaxValue = 0, 0.9
	n, err := Generate(p)
	require.NoError(t, err)
	seen := map[float32]bool{}
	for i := 0; i < len(n.Data); i += 3 {
		seen[n.Data[i]] = true
	}
	assert.Len(t, seen, 4)
	for _, want := range []float32{0, 0.3, 0.6, 0.9} {
		found := false
		for v := range seen {
			if v > want-1e-6 && v < want+1e-6 {
				found = true
			}
		}
		assert.True(t, found, "level %v missing", want)
	}
}

func TestGenerateSingleLevelSparse(t *testing.T) {
	p := DefaultParams()
	p.Size = 32
	p.Levels = 1
	p.ImpulseProbability = 0.5
	p.MaxValue = 0.6
	n, err := Generate(p)
	require.NoError(t, err)
	for _, v := range n.Data {
		require.True(t, v == 0 || v == float32(0.6), "value %v", v)
	}
}

func TestGenerateInvalid(t *testing.T) {
	p := DefaultParams()
	p.Size = -1
	n, err := Generate(p)
	assert.Nil(t, n)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestTypeText(t *testing.T) {
	var typ Type
	require.NoError(t, typ.UnmarshalText([]byte("Simplex")))
	assert.Equal(t, Simplex, typ)
	assert.ErrorIs(t, typ.UnmarshalText([]byte("perlin")), ErrInvalidParams)
	assert.Equal(t, "Type(7)", Type(7).String())

	var p Params
	require.NoError(t, yaml.Unmarshal([]byte("type: uniform\nsize: 8\n"), &p))
	assert.Equal(t, Uniform, p.Type)
	assert.Equal(t, 8, p.Size)

	out, err := yaml.Marshal(Params{Type: Gaussian})
	require.NoError(t, err)
	assert.Contains(t, string(out), "type: gaussian")
}
