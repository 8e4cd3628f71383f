//go:build !nogpu

package wgpu

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Register the Vulkan backend.
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/lic"
	"github.com/gogpu/lic/gpucore"
)

// ErrNoAdapter is returned by Open when no GPU is found.
var ErrNoAdapter = errors.New("wgpu: no GPU adapter found")

// Options configures Open.
type Options struct {
	// Backends are tried in order. Empty means Vulkan.
	Backends []gputypes.Backend

	// PreferIntegrated selects an integrated GPU over a discrete one when
	// both are present.
	PreferIntegrated bool

	// Timeout bounds every wait for the GPU. Zero means 5 seconds.
	Timeout time.Duration
}

// Open creates an instance, selects a hardware adapter and opens a device
// owned by the returned Adapter.
func Open(opts Options) (*Adapter, error) {
	backends := opts.Backends
	if len(backends) == 0 {
		backends = []gputypes.Backend{gputypes.BackendVulkan}
	}

	var errs []error
	for _, b := range backends {
		a, err := openBackend(b, opts)
		if err == nil {
			return a, nil
		}
		errs = append(errs, fmt.Errorf("%v: %w", b, err))
	}
	return nil, errors.Join(errs...)
}

func openBackend(b gputypes.Backend, opts Options) (*Adapter, error) {
	backend, ok := hal.GetBackend(b)
	if !ok {
		return nil, errors.New("backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	selected := selectAdapter(adapters, opts.PreferIntegrated)
	if selected == nil {
		instance.Destroy()
		return nil, ErrNoAdapter
	}

	limits := gputypes.DefaultLimits()
	opened, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}

	info := gpucore.AdapterInfo{
		Name:       selected.Info.Name,
		DeviceType: convertDeviceType(selected.Info.DeviceType),
		Backend:    fmt.Sprint(b),
	}
	a := NewAdapter(opened.Device, opened.Queue, info, &limits)
	a.instance = instance
	a.external = false
	if opts.Timeout > 0 {
		a.timeout = opts.Timeout
	}
	lic.Logger().Info("wgpu: adapter opened", "name", info.Name, "type", info.DeviceType, "backend", info.Backend)
	return a, nil
}

// selectAdapter picks a hardware GPU, discrete first unless preferIntegrated
// is set, falling back to the first adapter.
func selectAdapter(adapters []hal.ExposedAdapter, preferIntegrated bool) *hal.ExposedAdapter {
	if len(adapters) == 0 {
		return nil
	}
	order := []gputypes.DeviceType{gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU}
	if preferIntegrated {
		order[0], order[1] = order[1], order[0]
	}
	for _, want := range order {
		for i := range adapters {
			if adapters[i].Info.DeviceType == want {
				return &adapters[i]
			}
		}
	}
	return &adapters[0]
}

// halProvider is implemented by device providers that expose their HAL
// device and queue.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// FromProvider creates an Adapter on the device of a host application.
// The provider must also expose HalDevice and HalQueue. The device stays
// owned by the provider.
func FromProvider(provider gpucontext.DeviceProvider) (*Adapter, error) {
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, errors.New("wgpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, errors.New("wgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, errors.New("wgpu: provider HalQueue is not hal.Queue")
	}
	a := NewAdapter(device, queue, gpucore.AdapterInfo{Name: "shared device", Backend: "provider"}, nil)
	lic.Logger().Info("wgpu: using shared device")
	return a, nil
}

// Close destroys every resource created through the adapter and, for
// adapters from Open, the device and instance. It is idempotent.
func (a *Adapter) Close() {
	if err := a.Submit(); err != nil {
		lic.Logger().Warn("wgpu: submit on close", "err", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.device == nil {
		return
	}
	for id, g := range a.bindGroups {
		a.device.DestroyBindGroup(g)
		delete(a.bindGroups, id)
	}
	for id, p := range a.computePipelines {
		a.device.DestroyComputePipeline(p)
		delete(a.computePipelines, id)
	}
	for id, l := range a.pipelineLayouts {
		a.device.DestroyPipelineLayout(l)
		delete(a.pipelineLayouts, id)
	}
	for id, l := range a.bindGroupLayouts {
		a.device.DestroyBindGroupLayout(l)
		delete(a.bindGroupLayouts, id)
	}
	for id, m := range a.shaderModules {
		a.device.DestroyShaderModule(m)
		delete(a.shaderModules, id)
	}
	for id, b := range a.buffers {
		a.device.DestroyBuffer(b.buf)
		delete(a.buffers, id)
	}

	if !a.external {
		a.device.Destroy()
		if a.instance != nil {
			a.instance.Destroy()
		}
	}
	a.device = nil
	a.queue = nil
	a.instance = nil
}
