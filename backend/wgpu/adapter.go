//go:build !nogpu

package wgpu

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/lic"
	"github.com/gogpu/lic/gpucore"
)

// ErrClosed is returned by operations on a closed adapter.
var ErrClosed = errors.New("wgpu: adapter closed")

// defaultTimeout bounds every fence wait.
const defaultTimeout = 5 * time.Second

type bufferEntry struct {
	buf  hal.Buffer
	size uint64
}

// Adapter implements gpucore.GPUAdapter with the gogpu/wgpu HAL.
//
// Adapter is safe for concurrent use; resource maps are guarded by a mutex
// and command recording is serialized.
type Adapter struct {
	mu sync.RWMutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	external bool

	info    gpucore.AdapterInfo
	caps    gpucore.AdapterCapabilities
	timeout time.Duration

	nextID atomic.Uint64

	buffers          map[gpucore.BufferID]bufferEntry
	shaderModules    map[gpucore.ShaderModuleID]hal.ShaderModule
	computePipelines map[gpucore.ComputePipelineID]hal.ComputePipeline
	bindGroupLayouts map[gpucore.BindGroupLayoutID]hal.BindGroupLayout
	pipelineLayouts  map[gpucore.PipelineLayoutID]hal.PipelineLayout
	bindGroups       map[gpucore.BindGroupID]hal.BindGroup

	// encoder records compute passes until the next Submit. encodeErr
	// holds a recording failure for Submit to report.
	encoder   hal.CommandEncoder
	encodeErr error
}

var _ gpucore.GPUAdapter = (*Adapter)(nil)

// NewAdapter wraps an open HAL device and queue. limits describes the
// device; nil means gputypes.DefaultLimits. The device is not owned: Close
// releases the adapter's resources but leaves the device alive.
func NewAdapter(device hal.Device, queue hal.Queue, info gpucore.AdapterInfo, limits *gputypes.Limits) *Adapter {
	lim := gputypes.DefaultLimits()
	if limits != nil {
		lim = *limits
	}
	a := &Adapter{
		device:           device,
		queue:            queue,
		external:         true,
		info:             info,
		caps:             capabilitiesFromLimits(lim),
		timeout:          defaultTimeout,
		buffers:          make(map[gpucore.BufferID]bufferEntry),
		shaderModules:    make(map[gpucore.ShaderModuleID]hal.ShaderModule),
		computePipelines: make(map[gpucore.ComputePipelineID]hal.ComputePipeline),
		bindGroupLayouts: make(map[gpucore.BindGroupLayoutID]hal.BindGroupLayout),
		pipelineLayouts:  make(map[gpucore.PipelineLayoutID]hal.PipelineLayout),
		bindGroups:       make(map[gpucore.BindGroupID]hal.BindGroup),
	}
	// IDs start at 1; 0 is gpucore.InvalidID.
	a.nextID.Store(1)
	return a
}

func (a *Adapter) newID() uint64 {
	return a.nextID.Add(1) - 1
}

// Info implements gpucore.GPUAdapter.
func (a *Adapter) Info() gpucore.AdapterInfo { return a.info }

// Capabilities implements gpucore.GPUAdapter.
func (a *Adapter) Capabilities() gpucore.AdapterCapabilities { return a.caps }

// CreateShaderModule implements gpucore.GPUAdapter.
func (a *Adapter) CreateShaderModule(spirv []uint32, label string) (gpucore.ShaderModuleID, error) {
	if len(spirv) == 0 {
		return gpucore.InvalidID, fmt.Errorf("wgpu: shader module %q: empty SPIR-V", label)
	}
	if a.device == nil {
		return gpucore.InvalidID, ErrClosed
	}
	module, err := a.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: shader module %q: %w", label, err)
	}
	id := gpucore.ShaderModuleID(a.newID())
	a.mu.Lock()
	a.shaderModules[id] = module
	a.mu.Unlock()
	return id, nil
}

// DestroyShaderModule implements gpucore.GPUAdapter.
func (a *Adapter) DestroyShaderModule(id gpucore.ShaderModuleID) {
	a.mu.Lock()
	module, ok := a.shaderModules[id]
	delete(a.shaderModules, id)
	a.mu.Unlock()
	if ok {
		a.device.DestroyShaderModule(module)
	}
}

// CreateBuffer implements gpucore.GPUAdapter.
func (a *Adapter) CreateBuffer(size int, usage gpucore.BufferUsage) (gpucore.BufferID, error) {
	if size <= 0 {
		return gpucore.InvalidID, fmt.Errorf("wgpu: buffer size must be positive, got %d", size)
	}
	if a.device == nil {
		return gpucore.InvalidID, ErrClosed
	}
	buf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "lic_buffer",
		Size:  uint64(size),
		Usage: convertBufferUsage(usage),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create buffer (%d bytes): %w", size, err)
	}
	id := gpucore.BufferID(a.newID())
	a.mu.Lock()
	a.buffers[id] = bufferEntry{buf: buf, size: uint64(size)}
	a.mu.Unlock()
	return id, nil
}

// DestroyBuffer implements gpucore.GPUAdapter.
func (a *Adapter) DestroyBuffer(id gpucore.BufferID) {
	a.mu.Lock()
	e, ok := a.buffers[id]
	delete(a.buffers, id)
	a.mu.Unlock()
	if ok {
		a.device.DestroyBuffer(e.buf)
	}
}

// WriteBuffer implements gpucore.GPUAdapter. Writes to unknown buffers are
// dropped.
func (a *Adapter) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) {
	a.mu.RLock()
	e, ok := a.buffers[id]
	a.mu.RUnlock()
	if ok && len(data) > 0 {
		a.queue.WriteBuffer(e.buf, offset, data)
	}
}

// ReadBuffer implements gpucore.GPUAdapter. Pending passes are submitted
// first; the copy goes through a mappable staging buffer.
func (a *Adapter) ReadBuffer(id gpucore.BufferID, offset, size uint64) ([]byte, error) {
	if err := a.Submit(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	e, ok := a.buffers[id]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("wgpu: buffer %d not found", id)
	}
	if offset+size > e.size {
		return nil, fmt.Errorf("wgpu: read [%d, %d) out of range (%d bytes)", offset, offset+size, e.size)
	}

	staging, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "lic_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer a.device.DestroyBuffer(staging)

	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "lic_readback"})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("lic_readback"); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(e.buf, staging, []hal.BufferCopy{
		{SrcOffset: offset, DstOffset: 0, Size: size},
	})
	cmd, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer a.device.FreeCommandBuffer(cmd)
	if err := a.submitAndWait(cmd); err != nil {
		return nil, err
	}

	out := make([]byte, size)
	if err := a.queue.ReadBuffer(staging, 0, out); err != nil {
		return nil, fmt.Errorf("wgpu: readback: %w", err)
	}
	return out, nil
}

// CreateBindGroupLayout implements gpucore.GPUAdapter.
func (a *Adapter) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDesc) (gpucore.BindGroupLayoutID, error) {
	if desc == nil {
		return gpucore.InvalidID, errors.New("wgpu: nil bind group layout descriptor")
	}
	if a.device == nil {
		return gpucore.InvalidID, ErrClosed
	}
	entries := make([]gputypes.BindGroupLayoutEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entries[i] = convertLayoutEntry(e)
	}
	layout, err := a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: entries,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: bind group layout %q: %w", desc.Label, err)
	}
	id := gpucore.BindGroupLayoutID(a.newID())
	a.mu.Lock()
	a.bindGroupLayouts[id] = layout
	a.mu.Unlock()
	return id, nil
}

// DestroyBindGroupLayout implements gpucore.GPUAdapter.
func (a *Adapter) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	a.mu.Lock()
	layout, ok := a.bindGroupLayouts[id]
	delete(a.bindGroupLayouts, id)
	a.mu.Unlock()
	if ok {
		a.device.DestroyBindGroupLayout(layout)
	}
}

// CreatePipelineLayout implements gpucore.GPUAdapter.
func (a *Adapter) CreatePipelineLayout(layouts []gpucore.BindGroupLayoutID) (gpucore.PipelineLayoutID, error) {
	a.mu.RLock()
	halLayouts := make([]hal.BindGroupLayout, len(layouts))
	for i, id := range layouts {
		layout, ok := a.bindGroupLayouts[id]
		if !ok {
			a.mu.RUnlock()
			return gpucore.InvalidID, fmt.Errorf("wgpu: bind group layout %d not found", id)
		}
		halLayouts[i] = layout
	}
	a.mu.RUnlock()

	layout, err := a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "lic_pipeline_layout",
		BindGroupLayouts: halLayouts,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: pipeline layout: %w", err)
	}
	id := gpucore.PipelineLayoutID(a.newID())
	a.mu.Lock()
	a.pipelineLayouts[id] = layout
	a.mu.Unlock()
	return id, nil
}

// DestroyPipelineLayout implements gpucore.GPUAdapter.
func (a *Adapter) DestroyPipelineLayout(id gpucore.PipelineLayoutID) {
	a.mu.Lock()
	layout, ok := a.pipelineLayouts[id]
	delete(a.pipelineLayouts, id)
	a.mu.Unlock()
	if ok {
		a.device.DestroyPipelineLayout(layout)
	}
}

// CreateComputePipeline implements gpucore.GPUAdapter.
func (a *Adapter) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	if desc == nil {
		return gpucore.InvalidID, errors.New("wgpu: nil compute pipeline descriptor")
	}
	a.mu.RLock()
	layout, layoutOK := a.pipelineLayouts[desc.Layout]
	module, moduleOK := a.shaderModules[desc.ShaderModule]
	a.mu.RUnlock()
	if !layoutOK {
		return gpucore.InvalidID, fmt.Errorf("wgpu: pipeline layout %d not found", desc.Layout)
	}
	if !moduleOK {
		return gpucore.InvalidID, fmt.Errorf("wgpu: shader module %d not found", desc.ShaderModule)
	}

	pipeline, err := a.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   desc.Label,
		Layout:  layout,
		Compute: hal.ComputeState{Module: module, EntryPoint: desc.EntryPoint},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: compute pipeline %q: %w", desc.Label, err)
	}
	id := gpucore.ComputePipelineID(a.newID())
	a.mu.Lock()
	a.computePipelines[id] = pipeline
	a.mu.Unlock()
	return id, nil
}

// DestroyComputePipeline implements gpucore.GPUAdapter.
func (a *Adapter) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	a.mu.Lock()
	pipeline, ok := a.computePipelines[id]
	delete(a.computePipelines, id)
	a.mu.Unlock()
	if ok {
		a.device.DestroyComputePipeline(pipeline)
	}
}

// CreateBindGroup implements gpucore.GPUAdapter.
func (a *Adapter) CreateBindGroup(layout gpucore.BindGroupLayoutID, entries []gpucore.BindGroupEntry) (gpucore.BindGroupID, error) {
	a.mu.RLock()
	halLayout, ok := a.bindGroupLayouts[layout]
	if !ok {
		a.mu.RUnlock()
		return gpucore.InvalidID, fmt.Errorf("wgpu: bind group layout %d not found", layout)
	}
	halEntries := make([]gputypes.BindGroupEntry, len(entries))
	for i, e := range entries {
		buf, ok := a.buffers[e.Buffer]
		if !ok {
			a.mu.RUnlock()
			return gpucore.InvalidID, fmt.Errorf("wgpu: binding %d: buffer %d not found", e.Binding, e.Buffer)
		}
		size := e.Size
		if size == 0 {
			size = buf.size - e.Offset
		}
		halEntries[i] = gputypes.BindGroupEntry{
			Binding:  e.Binding,
			Resource: gputypes.BufferBinding{Buffer: buf.buf.NativeHandle(), Offset: e.Offset, Size: size},
		}
	}
	a.mu.RUnlock()

	group, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "lic_bind_group",
		Layout:  halLayout,
		Entries: halEntries,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: bind group: %w", err)
	}
	id := gpucore.BindGroupID(a.newID())
	a.mu.Lock()
	a.bindGroups[id] = group
	a.mu.Unlock()
	return id, nil
}

// DestroyBindGroup implements gpucore.GPUAdapter.
func (a *Adapter) DestroyBindGroup(id gpucore.BindGroupID) {
	a.mu.Lock()
	group, ok := a.bindGroups[id]
	delete(a.bindGroups, id)
	a.mu.Unlock()
	if ok {
		a.device.DestroyBindGroup(group)
	}
}

// BeginComputePass implements gpucore.GPUAdapter. Passes are recorded into
// a shared encoder and executed by the next Submit. If no encoder can be
// created the returned pass records nothing and Submit reports the error.
func (a *Adapter) BeginComputePass() gpucore.ComputePassEncoder {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.encoder == nil {
		if a.device == nil {
			a.encodeErr = ErrClosed
			return &computePass{adapter: a}
		}
		encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "lic_compute"})
		if err != nil {
			lic.Logger().Warn("wgpu: create command encoder", "err", err)
			a.encodeErr = fmt.Errorf("wgpu: create command encoder: %w", err)
			return &computePass{adapter: a}
		}
		if err := encoder.BeginEncoding("lic_compute"); err != nil {
			lic.Logger().Warn("wgpu: begin encoding", "err", err)
			a.encodeErr = fmt.Errorf("wgpu: begin encoding: %w", err)
			return &computePass{adapter: a}
		}
		a.encoder = encoder
	}
	return &computePass{
		adapter: a,
		pass:    a.encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "lic_pass"}),
	}
}

// Submit implements gpucore.GPUAdapter. It executes every recorded pass and
// waits for the GPU to finish them.
func (a *Adapter) Submit() error {
	a.mu.Lock()
	encoder, encodeErr := a.encoder, a.encodeErr
	a.encoder, a.encodeErr = nil, nil
	a.mu.Unlock()
	if encodeErr != nil {
		return encodeErr
	}
	if encoder == nil {
		return nil
	}
	cmd, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer a.device.FreeCommandBuffer(cmd)
	return a.submitAndWait(cmd)
}

// WaitIdle implements gpucore.GPUAdapter.
func (a *Adapter) WaitIdle() error {
	if err := a.Submit(); err != nil {
		return err
	}
	if a.device == nil {
		return nil
	}
	return a.submitAndWait()
}

func (a *Adapter) submitAndWait(cmds ...hal.CommandBuffer) error {
	fence, err := a.device.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer a.device.DestroyFence(fence)
	if err := a.queue.Submit(cmds, fence, 1); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	ok, err := a.device.Wait(fence, 1, a.timeout)
	if err != nil {
		return fmt.Errorf("wgpu: wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("wgpu: GPU did not finish within %v", a.timeout)
	}
	return nil
}

// LiveResources returns the number of resources not yet destroyed.
func (a *Adapter) LiveResources() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.buffers) + len(a.shaderModules) + len(a.computePipelines) +
		len(a.bindGroupLayouts) + len(a.pipelineLayouts) + len(a.bindGroups)
}

// computePass implements gpucore.ComputePassEncoder.
type computePass struct {
	adapter *Adapter
	pass    hal.ComputePassEncoder
}

func (p *computePass) SetPipeline(pipeline gpucore.ComputePipelineID) {
	if p.pass == nil {
		return
	}
	p.adapter.mu.RLock()
	hp, ok := p.adapter.computePipelines[pipeline]
	p.adapter.mu.RUnlock()
	if ok {
		p.pass.SetPipeline(hp)
	}
}

func (p *computePass) SetBindGroup(index uint32, group gpucore.BindGroupID) {
	if p.pass == nil {
		return
	}
	p.adapter.mu.RLock()
	g, ok := p.adapter.bindGroups[group]
	p.adapter.mu.RUnlock()
	if ok {
		p.pass.SetBindGroup(index, g, nil)
	}
}

func (p *computePass) Dispatch(x, y, z uint32) {
	if p.pass == nil {
		return
	}
	p.pass.Dispatch(x, y, z)
}

func (p *computePass) End() {
	if p.pass == nil {
		return
	}
	p.pass.End()
}
