package lic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gogpu/lic/gpucore"
)

const tracerName = "github.com/gogpu/lic"

// Image is the result of a successful Execute: a device buffer of
// Width×Height pixels, 3 float32 values each, covering Extent.
// Masked pixels hold (-1, -1, -1).
//
// The buffer belongs to the engine and stays valid until the next Execute
// or Release.
type Image struct {
	Buffer        gpucore.BufferID
	Extent        Extent
	Width, Height int
}

// Engine runs LIC on a GPU adapter.
//
// All methods are safe for concurrent use; calls are serialized. The
// engine owns its device resources until Release.
type Engine struct {
	mu sync.Mutex

	adapter gpucore.GPUAdapter
	tracer  trace.Tracer
	cfg     Config

	vectors *VectorField
	noise   *NoiseField

	stats    Stats
	rctx     renderContext
	res      *resourceManager
	programs *programBuilder
	exec     *executor

	result *Image
}

// NewEngine creates an engine for adapter. No device resources are created
// until the first Execute.
func NewEngine(adapter gpucore.GPUAdapter, opts ...EngineOption) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	e := &Engine{
		adapter: adapter,
		tracer:  o.tracerProvider.Tracer(tracerName),
		cfg:     o.config,
	}
	e.res = newResourceManager(adapter, &e.stats)
	e.programs = newProgramBuilder(adapter, o.compiler, &e.stats)
	e.exec = newExecutor(adapter, &e.rctx, &e.stats)
	return e
}

// Config returns the current parameters.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// SetConfig replaces the parameters. They are validated by Execute.
// A change of ComponentIds rebuilds the integration program on next use.
func (e *Engine) SetConfig(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
}

// SetVectorField sets the field convolved by the next Execute.
func (e *Engine) SetVectorField(f *VectorField) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors = f
}

// SetNoiseField sets the noise texture convolved by the next Execute.
func (e *Engine) SetNoiseField(n *NoiseField) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.noise = n
}

// RebuildPrograms discards built and failed programs so that the next
// Execute builds them again.
func (e *Engine) RebuildPrograms() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.programs.Rebuild()
}

// ProgramStates returns the build state of the integration and high-pass
// filter programs.
func (e *Engine) ProgramStates() (integration, filter ProgramState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.programs.integration.state, e.programs.filter.state
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Result returns the image computed by the last successful Execute.
func (e *Engine) Result() (Image, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.result == nil {
		return Image{}, false
	}
	return *e.result, true
}

// ReadResult copies the result image to host memory, 3 values per pixel.
func (e *Engine) ReadResult() ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.result == nil {
		return nil, ErrNoResult
	}
	raw, err := e.adapter.ReadBuffer(e.result.Buffer, 0, uint64(imageBytes(e.result.Width, e.result.Height)))
	if err != nil {
		return nil, fmt.Errorf("lic: read result: %w", err)
	}
	return bytesFloats(raw), nil
}

// Release destroys every device resource of the engine. It is idempotent.
// The engine can be used again afterwards; resources are recreated lazily.
func (e *Engine) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.releaseAll()
}

func (e *Engine) releaseAll() {
	e.res.Release()
	e.programs.Release()
	e.result = nil
}

// Execute computes the LIC image of extent.
//
// The previous result is discarded first, so Result reports nothing after
// any failure. Inputs are validated before any device work: invalid
// parameters or a missing field return ErrConfiguration and an unsupported
// adapter returns ErrCapability, both without creating resources. Any later
// failure releases every device resource of the engine before returning.
//
// ctx is checked once before the pipeline starts; a running pipeline is
// not interrupted.
func (e *Engine) Execute(ctx context.Context, extent Extent) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.result = nil
	if err := ctx.Err(); err != nil {
		return err
	}
	e.stats.Executions++
	start := time.Now()

	cfg := e.cfg
	ctx, span := e.tracer.Start(ctx, "lic.Execute", trace.WithAttributes(
		attribute.Int("lic.extent.width", extent.Width()),
		attribute.Int("lic.extent.height", extent.Height()),
		attribute.Int("lic.steps", cfg.NumberOfSteps),
		attribute.Bool("lic.enhanced", cfg.EnhancedLIC),
		attribute.Bool("lic.contrast", cfg.EnhanceContrast),
		attribute.Int("lic.anti_alias", cfg.AntiAlias),
	))
	defer func() {
		if err != nil {
			e.stats.Failures++
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := e.validate(&cfg, extent); err != nil {
		return err
	}
	if e.adapter == nil {
		return fmt.Errorf("%w: no adapter", ErrCapability)
	}
	if reason := unsupportedReason(e.adapter); reason != "" {
		Logger().Warn("lic: adapter not supported", "adapter", e.adapter.Info().Name, "reason", reason)
		return fmt.Errorf("%w: %s", ErrCapability, reason)
	}

	failed := true
	defer func() {
		if failed {
			e.releaseAll()
		}
	}()

	e.exec.reset()
	if err := e.run(ctx, &cfg, extent); err != nil {
		return err
	}
	failed = false
	e.stats.LastDuration = time.Since(start)
	return nil
}

func (e *Engine) validate(cfg *Config, extent Extent) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := e.vectors.validate(); err != nil {
		return err
	}
	if err := e.noise.validate(); err != nil {
		return err
	}
	if !extent.Valid() {
		return configError("empty extent %+v", extent)
	}
	if extent.X0 < 0 || extent.Y0 < 0 || extent.X1 >= e.vectors.Width || extent.Y1 >= e.vectors.Height {
		return configError("extent %+v outside %dx%d field", extent, e.vectors.Width, e.vectors.Height)
	}
	if e.vectors.Components == 3 {
		for i, id := range cfg.ComponentIds {
			if id >= 3 {
				return configError("component id %d is %d but the field has 3 components", i, id)
			}
		}
	}
	return nil
}

// activeComponents returns the device slots integrated by the kernel.
func (e *Engine) activeComponents(cfg *Config) (a, b int) {
	if e.vectors.Components == 2 {
		return 0, 3
	}
	return cfg.ComponentIds[0], cfg.ComponentIds[1]
}

func (e *Engine) run(ctx context.Context, cfg *Config, extent Extent) error {
	compA, compB := e.activeComponents(cfg)
	integration, err := e.programs.Integration(compA, compB)
	if err != nil {
		return err
	}

	w, h := extent.outputSize(cfg.Magnification)
	set, err := e.res.EnsureBuffers(w, h)
	if err != nil {
		return err
	}

	vf, nf := e.vectors, e.noise
	vecBytes := vf.pack()
	vecBuf, err := e.res.ensureInput(inputVectors, len(vecBytes))
	if err != nil {
		return err
	}
	e.adapter.WriteBuffer(vecBuf, 0, vecBytes)

	noiseBytes := nf.pack()
	noiseBuf, err := e.res.ensureInput(inputNoise, len(noiseBytes))
	if err != nil {
		return err
	}
	e.adapter.WriteBuffer(noiseBuf, 0, noiseBytes)

	uniformBuf, err := e.res.ensureInput(inputLICParams, licParamsSize)
	if err != nil {
		return err
	}
	uniform := binding{id: uniformBuf, size: licParamsSize}
	vectors := binding{id: vecBuf, size: len(vecBytes)}

	mag := float32(cfg.Magnification)
	fw, fh := float32(vf.Width), float32(vf.Height)
	base := licParams{
		Width:            uint32(w),
		Height:           uint32(h),
		FieldWidth:       uint32(vf.Width),
		FieldHeight:      uint32(vf.Height),
		StepSize:         cfg.StepSize,
		MaskThreshold:    cfg.MaskThreshold,
		OriginX:          float32(extent.X0),
		OriginY:          float32(extent.Y0),
		InvMagnification: 1 / mag,
		NormalizeVectors: boolU32(cfg.NormalizeVectors),
		TransformX:       1,
		TransformY:       1,
		VectorShift:      cfg.VectorShift,
		VectorScale:      cfg.VectorScale,
	}
	if cfg.TransformVectors {
		base.TransformX = 1 / (fw * cfg.GridSpacings[0])
		base.TransformY = 1 / (fh * cfg.GridSpacings[1])
	}

	first := passInput{
		steps:       cfg.NumberOfSteps,
		noise:       binding{id: noiseBuf, size: len(noiseBytes)},
		noiseW:      nf.Width,
		noiseH:      nf.Height,
		noiseScale:  [2]float32{mag * fw / float32(nf.Width), mag * fh / float32(nf.Height)},
		noiseOrigin: [2]float32{0, 0},
		noiseSpan:   [2]float32{1, 1},
		mask:        !cfg.EnhancedLIC,
	}
	Logger().Debug("lic: execute", "output", fmt.Sprintf("%dx%d", w, h),
		"steps", cfg.NumberOfSteps, "enhanced", cfg.EnhancedLIC, "components", [2]int{compA, compB})

	result, err := e.pass(ctx, 1, integration, set, uniform, vectors, base, first)
	if err != nil {
		return err
	}

	if cfg.EnhancedLIC {
		if err := e.enhance(set, result.acc, cfg.EnhanceContrast); err != nil {
			return err
		}
		img := imageBytes(w, h)
		second := passInput{
			steps:       cfg.NumberOfSteps / 2,
			noise:       binding{id: set.filter, size: img},
			noiseW:      w,
			noiseH:      h,
			noiseScale:  [2]float32{1, 1},
			noiseOrigin: [2]float32{float32(extent.X0) / fw, float32(extent.Y0) / fh},
			noiseSpan:   [2]float32{float32(w) * base.InvMagnification / fw, float32(h) * base.InvMagnification / fh},
			noiseClamp:  true,
			mask:        true,
		}
		if result, err = e.pass(ctx, 2, integration, set, uniform, vectors, base, second); err != nil {
			return err
		}
	}

	out, err := e.finish(set, result.acc, cfg)
	if err != nil {
		return err
	}
	e.result = &Image{Buffer: out, Extent: extent, Width: w, Height: h}
	return nil
}

func (e *Engine) pass(ctx context.Context, n int, prog *program, set *bufferSet, uniform, vectors binding, base licParams, in passInput) (pair, error) {
	_, span := e.tracer.Start(ctx, "lic.pass", trace.WithAttributes(
		attribute.Int("lic.pass", n),
		attribute.Int("lic.steps", in.steps),
	))
	defer span.End()

	result, err := e.exec.run(prog, set, uniform, vectors, base, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}
