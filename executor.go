package lic

import (
	"fmt"

	"github.com/gogpu/lic/gpucore"
)

// binding is a buffer bound to one slot of a bind group.
type binding struct {
	id   gpucore.BufferID
	size int
}

// passInput describes one convolution pass.
type passInput struct {
	steps int

	// noise is the texture sampled by the pass: the noise field for the
	// first pass, the filter buffer for the enhanced second pass.
	noise          binding
	noiseW, noiseH int
	noiseScale     [2]float32
	noiseOrigin    [2]float32
	noiseSpan      [2]float32
	noiseClamp     bool

	// mask enables masking on the final dispatch of the pass.
	mask bool
}

// executor records the dispatch sequence of convolution passes and image
// filters.
//
// Dispatches are strictly sequential: each one is submitted and waited for
// before the next is recorded. The read pair of an integration dispatch is
// the running integration dispatch count mod 2, so reads and writes
// alternate on every dispatch, across direction boundaries included.
type executor struct {
	adapter gpucore.GPUAdapter
	rctx    *renderContext
	stats   *Stats

	dispatches int
}

func newExecutor(adapter gpucore.GPUAdapter, rctx *renderContext, stats *Stats) *executor {
	return &executor{adapter: adapter, rctx: rctx, stats: stats}
}

// reset restarts the dispatch count for a new run.
func (x *executor) reset() { x.dispatches = 0 }

// readIndex returns the pair the next dispatch reads from.
func (x *executor) readIndex() int { return x.dispatches % 2 }

// stepType returns the step type of step s of direction d.
func stepType(d, s int) uint32 {
	switch {
	case s > 0:
		return stepRegular
	case d == 0:
		return stepCenterA
	default:
		return stepCenterB
	}
}

// run executes one convolution pass and returns the pair holding its result.
func (x *executor) run(prog *program, set *bufferSet, uniform, vectors binding, base licParams, in passInput) (pair, error) {
	restore := x.rctx.bind(prog.pipeline, viewport{Width: set.width, Height: set.height})
	defer restore()

	img := imageBytes(set.width, set.height)
	groups, err := x.pingPongGroups(prog, set, uniform, vectors, in.noise)
	if err != nil {
		return pair{}, err
	}
	defer x.destroyGroups(groups[:])

	zeros := make([]byte, img)
	first := set.pairs[x.readIndex()]
	x.adapter.WriteBuffer(first.acc, 0, zeros)
	x.adapter.WriteBuffer(first.pos, 0, zeros)

	p := base
	p.Weight = 1 / float32(2*in.steps+1)
	p.NoiseWidth, p.NoiseHeight = uint32(in.noiseW), uint32(in.noiseH)
	p.NoiseScaleX, p.NoiseScaleY = in.noiseScale[0], in.noiseScale[1]
	p.NoiseOriginX, p.NoiseOriginY = in.noiseOrigin[0], in.noiseOrigin[1]
	p.NoiseSpanX, p.NoiseSpanY = in.noiseSpan[0], in.noiseSpan[1]
	p.NoiseClamp = boolU32(in.noiseClamp)

	for d, sign := range [2]float32{-1, 1} {
		for s := 0; s <= in.steps; s++ {
			p.StepSign = sign
			p.StepType = stepType(d, s)
			p.MaskType = boolU32(in.mask && d == 1 && s == in.steps)
			data, err := p.encode()
			if err != nil {
				return pair{}, fmt.Errorf("lic: encode params: %w", err)
			}
			if err := x.dispatch(groups[x.readIndex()], uniform.id, data); err != nil {
				return pair{}, err
			}
			x.dispatches++
		}
	}
	Logger().Debug("lic: pass complete", "steps", in.steps, "dispatches", 2*(in.steps+1))
	return set.pairs[x.readIndex()], nil
}

// filter runs one image filter dispatch of prog from src into dst.
func (x *executor) filter(prog *program, set *bufferSet, uniform binding, src, dst gpucore.BufferID, fp filterParams) error {
	restore := x.rctx.bind(prog.pipeline, viewport{Width: set.width, Height: set.height})
	defer restore()

	img := imageBytes(set.width, set.height)
	group, err := x.adapter.CreateBindGroup(prog.layout, []gpucore.BindGroupEntry{
		{Binding: 0, Buffer: uniform.id, Size: uint64(uniform.size)},
		{Binding: 1, Buffer: src, Size: uint64(img)},
		{Binding: 2, Buffer: dst, Size: uint64(img)},
	})
	if err != nil {
		return fmt.Errorf("%w: %s bind group: %w", ErrResource, prog.name, err)
	}
	defer x.adapter.DestroyBindGroup(group)

	data, err := fp.encode()
	if err != nil {
		return fmt.Errorf("lic: encode filter params: %w", err)
	}
	return x.dispatch(group, uniform.id, data)
}

// pingPongGroups creates the two bind groups of a pass: index i reads pair
// i and writes pair 1-i.
func (x *executor) pingPongGroups(prog *program, set *bufferSet, uniform, vectors, noise binding) ([2]gpucore.BindGroupID, error) {
	var groups [2]gpucore.BindGroupID
	img := uint64(imageBytes(set.width, set.height))
	for i := range groups {
		r, w := set.pairs[i], set.pairs[1-i]
		g, err := x.adapter.CreateBindGroup(prog.layout, []gpucore.BindGroupEntry{
			{Binding: 0, Buffer: uniform.id, Size: uint64(uniform.size)},
			{Binding: 1, Buffer: vectors.id, Size: uint64(vectors.size)},
			{Binding: 2, Buffer: noise.id, Size: uint64(noise.size)},
			{Binding: 3, Buffer: r.acc, Size: img},
			{Binding: 4, Buffer: r.pos, Size: img},
			{Binding: 5, Buffer: w.acc, Size: img},
			{Binding: 6, Buffer: w.pos, Size: img},
		})
		if err != nil {
			x.destroyGroups(groups[:i])
			return groups, fmt.Errorf("%w: bind group: %w", ErrResource, err)
		}
		groups[i] = g
	}
	return groups, nil
}

func (x *executor) destroyGroups(groups []gpucore.BindGroupID) {
	for _, g := range groups {
		if g != gpucore.InvalidID {
			x.adapter.DestroyBindGroup(g)
		}
	}
}

// dispatch uploads the uniform block and runs one full-viewport dispatch of
// the bound pipeline, waiting for it to complete.
func (x *executor) dispatch(group gpucore.BindGroupID, uniform gpucore.BufferID, data []byte) error {
	x.adapter.WriteBuffer(uniform, 0, data)

	pass := x.adapter.BeginComputePass()
	pass.SetPipeline(x.rctx.pipeline)
	pass.SetBindGroup(0, group)
	gx, gy := x.rctx.groups()
	pass.Dispatch(gx, gy, 1)
	pass.End()

	if err := x.adapter.Submit(); err != nil {
		return fmt.Errorf("lic: submit: %w", err)
	}
	if err := x.adapter.WaitIdle(); err != nil {
		return fmt.Errorf("lic: wait: %w", err)
	}
	x.stats.Dispatches++
	return nil
}
