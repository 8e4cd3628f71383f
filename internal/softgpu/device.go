// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package softgpu is an in-process implementation of gpucore.GPUAdapter.
//
// Buffers live in host memory and compute pipelines run Go kernels that are
// registered per shader entry point. Shader "compilation" packs the WGSL
// source into the module words (see [Compile]) so that pipeline creation can
// resolve entry points and the generated component selector the same way a
// driver would link them.
//
// The device counts every resource it creates and destroys and logs every
// dispatch, which is what the engine tests assert against. It also supports
// failure injection for the resource and build error paths.
//
// softgpu is test infrastructure only; it is not a rendering fallback.
package softgpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/lic/gpucore"
)

// Errors returned by the software device.
var (
	// ErrInjected is returned by operations configured to fail.
	ErrInjected = errors.New("softgpu: injected failure")

	// ErrUnknownResource is returned when an ID does not name a live resource.
	ErrUnknownResource = errors.New("softgpu: unknown resource")

	// ErrEntryPointNotFound is returned when a pipeline names an entry
	// point the module does not define.
	ErrEntryPointNotFound = errors.New("softgpu: entry point not found")
)

// Config configures a Device.
type Config struct {
	// Info is returned by Device.Info.
	Info gpucore.AdapterInfo

	// Capabilities is returned by Device.Capabilities.
	Capabilities gpucore.AdapterCapabilities

	// FailBufferAt makes the n-th CreateBuffer call (1-based) fail.
	// Zero disables injection.
	FailBufferAt int

	// FailShaderModule makes every CreateShaderModule call fail.
	FailShaderModule bool

	// FailPipeline makes every CreateComputePipeline call fail.
	FailPipeline bool
}

// DefaultCapabilities returns the capabilities of a fully featured device.
func DefaultCapabilities() gpucore.AdapterCapabilities {
	return gpucore.AdapterCapabilities{
		SupportsCompute:                  true,
		SupportsFloat32Storage:           true,
		SupportsShaderCompilation:        true,
		MaxStorageBuffersPerStage:        8,
		MaxComputeWorkgroupsPerDimension: 65535,
		MaxBufferSize:                    256 << 20,
		MaxStorageBufferBindingSize:      128 << 20,
	}
}

// Counters reports how many resources of each kind were created and destroyed.
type Counters struct {
	BuffersCreated         int
	BuffersDestroyed       int
	ShaderModulesCreated   int
	ShaderModulesDestroyed int
	PipelinesCreated       int
	PipelinesDestroyed     int
	BindGroupsCreated      int
	BindGroupsDestroyed    int
	LayoutsCreated         int
	LayoutsDestroyed       int
	Submits                int
}

// Creations returns the total number of resource creation calls.
func (c Counters) Creations() int {
	return c.BuffersCreated + c.ShaderModulesCreated + c.PipelinesCreated +
		c.BindGroupsCreated + c.LayoutsCreated
}

// DispatchRecord captures one dispatch as the device executed it.
type DispatchRecord struct {
	// EntryPoint is the entry point of the bound pipeline.
	EntryPoint string

	// Uniform is a copy of the uniform buffer bound at binding 0.
	Uniform []byte

	// Buffers maps binding index to the bound buffer.
	Buffers map[uint32]gpucore.BufferID

	// Groups is the workgroup count per dimension.
	Groups [3]uint32
}

type buffer struct {
	data  []byte
	usage gpucore.BufferUsage
}

type module struct {
	source string
}

type pipeline struct {
	entry  string
	module *module
	kernel Kernel
}

type bindGroup struct {
	entries []gpucore.BindGroupEntry
}

// Device is a software GPUAdapter. The zero value is not usable; call New.
type Device struct {
	mu  sync.Mutex
	cfg Config

	nextID     uint64
	buffers    map[gpucore.BufferID]*buffer
	modules    map[gpucore.ShaderModuleID]*module
	pipelines  map[gpucore.ComputePipelineID]*pipeline
	bindGroups map[gpucore.BindGroupID]*bindGroup
	layouts    map[uint64]struct{}
	kernels    map[string]Kernel

	pending    []command
	counters   Counters
	dispatches []DispatchRecord
}

var _ gpucore.GPUAdapter = (*Device)(nil)

// New creates a software device. Kernels for the LIC entry points are
// registered by default; see RegisterKernel to add more.
func New(cfg Config) *Device {
	d := &Device{
		cfg:        cfg,
		buffers:    make(map[gpucore.BufferID]*buffer),
		modules:    make(map[gpucore.ShaderModuleID]*module),
		pipelines:  make(map[gpucore.ComputePipelineID]*pipeline),
		bindGroups: make(map[gpucore.BindGroupID]*bindGroup),
		layouts:    make(map[uint64]struct{}),
		kernels:    make(map[string]Kernel),
	}
	for name, k := range licKernels() {
		d.kernels[name] = k
	}
	return d
}

// NewDefault creates a fully featured software device.
func NewDefault() *Device {
	return New(Config{
		Info: gpucore.AdapterInfo{
			Name:       "softgpu",
			Vendor:     "gogpu",
			DeviceType: gpucore.DeviceTypeCPU,
			Backend:    "software",
		},
		Capabilities: DefaultCapabilities(),
	})
}

// RegisterKernel installs k for pipelines created with the given entry point.
// A nil k removes the entry point, so pipelines for it fail to link.
func (d *Device) RegisterKernel(entryPoint string, k Kernel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if k == nil {
		delete(d.kernels, entryPoint)
		return
	}
	d.kernels[entryPoint] = k
}

// Counters returns a snapshot of the resource counters.
func (d *Device) Counters() Counters {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counters
}

// Dispatches returns the dispatches executed so far.
func (d *Device) Dispatches() []DispatchRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DispatchRecord, len(d.dispatches))
	copy(out, d.dispatches)
	return out
}

// ResetLog clears the dispatch log.
func (d *Device) ResetLog() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dispatches = nil
}

// LiveBuffers returns the number of buffers not yet destroyed.
func (d *Device) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffers)
}

// LiveResources returns the number of live resources of any kind.
func (d *Device) LiveResources() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffers) + len(d.modules) + len(d.pipelines) + len(d.bindGroups) + len(d.layouts)
}

// BufferSize returns the size of a live buffer in bytes.
func (d *Device) BufferSize(id gpucore.BufferID) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return 0, false
	}
	return len(b.data), true
}

func (d *Device) id() uint64 {
	d.nextID++
	return d.nextID
}

// Info implements gpucore.GPUAdapter.
func (d *Device) Info() gpucore.AdapterInfo { return d.cfg.Info }

// Capabilities implements gpucore.GPUAdapter.
func (d *Device) Capabilities() gpucore.AdapterCapabilities { return d.cfg.Capabilities }

// CreateShaderModule implements gpucore.GPUAdapter.
func (d *Device) CreateShaderModule(spirv []uint32, label string) (gpucore.ShaderModuleID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cfg.FailShaderModule {
		return gpucore.InvalidID, fmt.Errorf("create shader module %q: %w", label, ErrInjected)
	}
	src, err := unpackSource(spirv)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("create shader module %q: %w", label, err)
	}
	id := gpucore.ShaderModuleID(d.id())
	d.modules[id] = &module{source: src}
	d.counters.ShaderModulesCreated++
	return id, nil
}

// DestroyShaderModule implements gpucore.GPUAdapter.
func (d *Device) DestroyShaderModule(id gpucore.ShaderModuleID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.modules[id]; ok {
		delete(d.modules, id)
		d.counters.ShaderModulesDestroyed++
	}
}

// CreateBuffer implements gpucore.GPUAdapter.
func (d *Device) CreateBuffer(size int, usage gpucore.BufferUsage) (gpucore.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counters.BuffersCreated++
	if d.cfg.FailBufferAt > 0 && d.counters.BuffersCreated == d.cfg.FailBufferAt {
		return gpucore.InvalidID, fmt.Errorf("create buffer (%d bytes): %w", size, ErrInjected)
	}
	if size <= 0 {
		return gpucore.InvalidID, fmt.Errorf("softgpu: invalid buffer size %d", size)
	}
	if max := d.cfg.Capabilities.MaxBufferSize; max > 0 && uint64(size) > max {
		return gpucore.InvalidID, fmt.Errorf("softgpu: buffer size %d exceeds limit %d", size, max)
	}
	id := gpucore.BufferID(d.id())
	d.buffers[id] = &buffer{data: make([]byte, size), usage: usage}
	return id, nil
}

// DestroyBuffer implements gpucore.GPUAdapter.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.buffers[id]; ok {
		delete(d.buffers, id)
		d.counters.BuffersDestroyed++
	}
}

// WriteBuffer implements gpucore.GPUAdapter. Writes are staged and applied
// in submission order, like queue writes on a real device.
func (d *Device) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	d.pending = append(d.pending, command{write: &writeCmd{id: id, offset: offset, data: cp}})
}

// ReadBuffer implements gpucore.GPUAdapter.
func (d *Device) ReadBuffer(id gpucore.BufferID, offset, size uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.flushLocked(); err != nil {
		return nil, err
	}
	b, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("read buffer %d: %w", id, ErrUnknownResource)
	}
	if offset+size > uint64(len(b.data)) {
		return nil, fmt.Errorf("softgpu: read [%d, %d) out of range (%d bytes)", offset, offset+size, len(b.data))
	}
	out := make([]byte, size)
	copy(out, b.data[offset:offset+size])
	return out, nil
}

// CreateBindGroupLayout implements gpucore.GPUAdapter.
func (d *Device) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDesc) (gpucore.BindGroupLayoutID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	storage := 0
	for _, e := range desc.Entries {
		if e.Type != gpucore.BindingTypeUniformBuffer {
			storage++
		}
	}
	if max := d.cfg.Capabilities.MaxStorageBuffersPerStage; max > 0 && uint32(storage) > max {
		return gpucore.InvalidID, fmt.Errorf("softgpu: layout %q uses %d storage buffers, limit %d", desc.Label, storage, max)
	}
	id := d.id()
	d.layouts[id] = struct{}{}
	d.counters.LayoutsCreated++
	return gpucore.BindGroupLayoutID(id), nil
}

// DestroyBindGroupLayout implements gpucore.GPUAdapter.
func (d *Device) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	d.destroyLayout(uint64(id))
}

// CreatePipelineLayout implements gpucore.GPUAdapter.
func (d *Device) CreatePipelineLayout(layouts []gpucore.BindGroupLayoutID) (gpucore.PipelineLayoutID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, l := range layouts {
		if _, ok := d.layouts[uint64(l)]; !ok {
			return gpucore.InvalidID, fmt.Errorf("pipeline layout: bind group layout %d: %w", l, ErrUnknownResource)
		}
	}
	id := d.id()
	d.layouts[id] = struct{}{}
	d.counters.LayoutsCreated++
	return gpucore.PipelineLayoutID(id), nil
}

// DestroyPipelineLayout implements gpucore.GPUAdapter.
func (d *Device) DestroyPipelineLayout(id gpucore.PipelineLayoutID) {
	d.destroyLayout(uint64(id))
}

func (d *Device) destroyLayout(id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.layouts[id]; ok {
		delete(d.layouts, id)
		d.counters.LayoutsDestroyed++
	}
}

// CreateComputePipeline implements gpucore.GPUAdapter.
func (d *Device) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cfg.FailPipeline {
		return gpucore.InvalidID, fmt.Errorf("create compute pipeline %q: %w", desc.Label, ErrInjected)
	}
	m, ok := d.modules[desc.ShaderModule]
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("create compute pipeline %q: module %d: %w", desc.Label, desc.ShaderModule, ErrUnknownResource)
	}
	if !definesEntryPoint(m.source, desc.EntryPoint) {
		return gpucore.InvalidID, fmt.Errorf("create compute pipeline %q: %q: %w", desc.Label, desc.EntryPoint, ErrEntryPointNotFound)
	}
	k, ok := d.kernels[desc.EntryPoint]
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("create compute pipeline %q: no kernel for %q: %w", desc.Label, desc.EntryPoint, ErrEntryPointNotFound)
	}
	id := gpucore.ComputePipelineID(d.id())
	d.pipelines[id] = &pipeline{entry: desc.EntryPoint, module: m, kernel: k}
	d.counters.PipelinesCreated++
	return id, nil
}

// DestroyComputePipeline implements gpucore.GPUAdapter.
func (d *Device) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pipelines[id]; ok {
		delete(d.pipelines, id)
		d.counters.PipelinesDestroyed++
	}
}

// CreateBindGroup implements gpucore.GPUAdapter.
func (d *Device) CreateBindGroup(layout gpucore.BindGroupLayoutID, entries []gpucore.BindGroupEntry) (gpucore.BindGroupID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.layouts[uint64(layout)]; !ok {
		return gpucore.InvalidID, fmt.Errorf("bind group: layout %d: %w", layout, ErrUnknownResource)
	}
	for _, e := range entries {
		if _, ok := d.buffers[e.Buffer]; !ok {
			return gpucore.InvalidID, fmt.Errorf("bind group: binding %d buffer %d: %w", e.Binding, e.Buffer, ErrUnknownResource)
		}
	}
	cp := make([]gpucore.BindGroupEntry, len(entries))
	copy(cp, entries)
	id := gpucore.BindGroupID(d.id())
	d.bindGroups[id] = &bindGroup{entries: cp}
	d.counters.BindGroupsCreated++
	return id, nil
}

// DestroyBindGroup implements gpucore.GPUAdapter.
func (d *Device) DestroyBindGroup(id gpucore.BindGroupID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.bindGroups[id]; ok {
		delete(d.bindGroups, id)
		d.counters.BindGroupsDestroyed++
	}
}

// BeginComputePass implements gpucore.GPUAdapter.
func (d *Device) BeginComputePass() gpucore.ComputePassEncoder {
	return &computePass{device: d}
}

// Submit implements gpucore.GPUAdapter. Recorded work executes synchronously.
func (d *Device) Submit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counters.Submits++
	return d.flushLocked()
}

// WaitIdle implements gpucore.GPUAdapter.
func (d *Device) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushLocked()
}
