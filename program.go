package lic

import (
	"fmt"

	"github.com/gogpu/lic/gpucore"
)

// ProgramState is the build state of a compute program.
type ProgramState uint8

const (
	NotBuilt ProgramState = iota
	CompileFailed
	LinkFailed
	Ready
)

// String returns the state name.
func (s ProgramState) String() string {
	switch s {
	case NotBuilt:
		return "not built"
	case CompileFailed:
		return "compile failed"
	case LinkFailed:
		return "link failed"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Program names.
const (
	programIntegration = "integration"
	programFilter      = "filter"
	programBlur        = "blur"
	programContrast    = "contrast"
)

var integrationBindings = []gpucore.BindGroupLayoutEntry{
	{Binding: 0, Type: gpucore.BindingTypeUniformBuffer, MinBindingSize: licParamsSize},
	{Binding: 1, Type: gpucore.BindingTypeReadOnlyStorageBuffer},
	{Binding: 2, Type: gpucore.BindingTypeReadOnlyStorageBuffer},
	{Binding: 3, Type: gpucore.BindingTypeReadOnlyStorageBuffer},
	{Binding: 4, Type: gpucore.BindingTypeReadOnlyStorageBuffer},
	{Binding: 5, Type: gpucore.BindingTypeStorageBuffer},
	{Binding: 6, Type: gpucore.BindingTypeStorageBuffer},
}

var filterBindings = []gpucore.BindGroupLayoutEntry{
	{Binding: 0, Type: gpucore.BindingTypeUniformBuffer, MinBindingSize: filterParamsSize},
	{Binding: 1, Type: gpucore.BindingTypeReadOnlyStorageBuffer},
	{Binding: 2, Type: gpucore.BindingTypeStorageBuffer},
}

// program is one compute pipeline and the objects it was linked from.
type program struct {
	name     string
	entry    string
	bindings []gpucore.BindGroupLayoutEntry

	key   string
	state ProgramState
	err   error

	module   gpucore.ShaderModuleID
	layout   gpucore.BindGroupLayoutID
	pipeLay  gpucore.PipelineLayoutID
	pipeline gpucore.ComputePipelineID
}

// programBuilder builds and caches the integration program and the three
// image filter programs.
//
// A program is rebuilt when its key (the generated source identity)
// changes. A failed program keeps failing with the same error until its
// key changes or rebuild is called.
type programBuilder struct {
	adapter  gpucore.GPUAdapter
	compiler Compiler
	stats    *Stats

	integration program
	filter      program
	blur        program
	contrast    program
}

func newProgramBuilder(adapter gpucore.GPUAdapter, compiler Compiler, stats *Stats) *programBuilder {
	return &programBuilder{
		adapter:  adapter,
		compiler: compiler,
		stats:    stats,
		integration: program{
			name: programIntegration, entry: entryLIC, bindings: integrationBindings,
		},
		filter: program{
			name: programFilter, entry: entryFilter, bindings: filterBindings,
		},
		blur: program{
			name: programBlur, entry: entryBlur, bindings: filterBindings,
		},
		contrast: program{
			name: programContrast, entry: entryContrast, bindings: filterBindings,
		},
	}
}

func (b *programBuilder) all() []*program {
	return []*program{&b.integration, &b.filter, &b.blur, &b.contrast}
}

// Integration returns the Ready integration program for components a, b.
func (b *programBuilder) Integration(compA, compB int) (*program, error) {
	key := fmt.Sprintf("%s/%s", swizzles[clampComponent(compA)], swizzles[clampComponent(compB)])
	err := b.ensure(&b.integration, key, func() string { return integrationSource(compA, compB) })
	if err != nil {
		return nil, err
	}
	return &b.integration, nil
}

// Filter returns the Ready high-pass program.
func (b *programBuilder) Filter() (*program, error) {
	return b.image(&b.filter)
}

// Blur returns the Ready anti-aliasing program.
func (b *programBuilder) Blur() (*program, error) {
	return b.image(&b.blur)
}

// Contrast returns the Ready final contrast program.
func (b *programBuilder) Contrast() (*program, error) {
	return b.image(&b.contrast)
}

func (b *programBuilder) image(p *program) (*program, error) {
	if err := b.ensure(p, p.name, filterSource); err != nil {
		return nil, err
	}
	return p, nil
}

func (b *programBuilder) ensure(p *program, key string, source func() string) error {
	if p.key == key {
		switch p.state {
		case Ready:
			return nil
		case CompileFailed, LinkFailed:
			return p.err
		}
	}
	b.destroy(p)
	p.key = key

	log := Logger().With("program", p.name)
	words, err := b.compiler.Compile(source())
	if err != nil {
		b.fail(p, StageCompile, err)
		log.Warn("lic: program compile failed", "err", err)
		return p.err
	}
	if err := b.link(p, words); err != nil {
		b.fail(p, StageLink, err)
		log.Warn("lic: program link failed", "err", err)
		return p.err
	}
	p.state = Ready
	p.err = nil
	b.stats.ProgramBuilds++
	log.Debug("lic: program built", "key", key, "words", len(words))
	return nil
}

func (b *programBuilder) fail(p *program, stage BuildStage, err error) {
	b.destroy(p)
	p.err = &BuildError{Program: p.name, Stage: stage, Err: err}
	if stage == StageCompile {
		p.state = CompileFailed
	} else {
		p.state = LinkFailed
	}
	b.stats.BuildFailures++
}

func (b *programBuilder) link(p *program, words []uint32) error {
	var err error
	if p.module, err = b.adapter.CreateShaderModule(words, "lic_"+p.name); err != nil {
		return fmt.Errorf("shader module: %w", err)
	}
	if p.layout, err = b.adapter.CreateBindGroupLayout(&gpucore.BindGroupLayoutDesc{
		Label:   "lic_" + p.name + "_bind_layout",
		Entries: p.bindings,
	}); err != nil {
		return fmt.Errorf("bind group layout: %w", err)
	}
	if p.pipeLay, err = b.adapter.CreatePipelineLayout([]gpucore.BindGroupLayoutID{p.layout}); err != nil {
		return fmt.Errorf("pipeline layout: %w", err)
	}
	if p.pipeline, err = b.adapter.CreateComputePipeline(&gpucore.ComputePipelineDesc{
		Label:        "lic_" + p.name,
		Layout:       p.pipeLay,
		ShaderModule: p.module,
		EntryPoint:   p.entry,
	}); err != nil {
		return fmt.Errorf("compute pipeline: %w", err)
	}
	return nil
}

// destroy releases the device objects of p in reverse creation order.
// Build state is left alone.
func (b *programBuilder) destroy(p *program) {
	if p.pipeline != gpucore.InvalidID {
		b.adapter.DestroyComputePipeline(p.pipeline)
		p.pipeline = gpucore.InvalidID
	}
	if p.pipeLay != gpucore.InvalidID {
		b.adapter.DestroyPipelineLayout(p.pipeLay)
		p.pipeLay = gpucore.InvalidID
	}
	if p.layout != gpucore.InvalidID {
		b.adapter.DestroyBindGroupLayout(p.layout)
		p.layout = gpucore.InvalidID
	}
	if p.module != gpucore.InvalidID {
		b.adapter.DestroyShaderModule(p.module)
		p.module = gpucore.InvalidID
	}
}

// Release destroys every device object. Ready programs return to NotBuilt;
// failed programs keep their state and error.
func (b *programBuilder) Release() {
	for _, p := range b.all() {
		b.destroy(p)
		if p.state == Ready {
			p.state = NotBuilt
			p.key = ""
		}
	}
}

// Rebuild forgets every build result so the next use builds from scratch.
func (b *programBuilder) Rebuild() {
	for _, p := range b.all() {
		b.destroy(p)
		p.state = NotBuilt
		p.key = ""
		p.err = nil
	}
}
