// Package wgpu runs the LIC engine on real GPUs through gogpu/wgpu.
//
// [Adapter] implements gpucore.GPUAdapter on top of the wgpu HAL: every
// gpucore resource ID maps to a HAL object, compute passes are recorded into
// one command encoder per submission and buffer readback goes through a
// mappable staging buffer.
//
// An adapter either owns its device ([Open]) or borrows one from a host
// application ([FromProvider]), for example a gogpu window that already
// renders with wgpu. A borrowed device is never destroyed by [Adapter.Close].
//
// Shader modules are created from SPIR-V words. Use lic.NagaCompiler to
// translate the engine's WGSL programs:
//
//	adapter, err := wgpu.Open(wgpu.Options{})
//	if err != nil {
//	    return err
//	}
//	defer adapter.Close()
//	eng := lic.NewEngine(adapter)
//
// Build with the nogpu tag to exclude this backend.
package wgpu
