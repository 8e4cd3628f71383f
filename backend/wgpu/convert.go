package wgpu

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/lic/gpucore"
)

// convertBufferUsage converts gpucore.BufferUsage to gputypes.BufferUsage.
func convertBufferUsage(usage gpucore.BufferUsage) gputypes.BufferUsage {
	var result gputypes.BufferUsage
	if usage&gpucore.BufferUsageMapRead != 0 {
		result |= gputypes.BufferUsageMapRead
	}
	if usage&gpucore.BufferUsageMapWrite != 0 {
		result |= gputypes.BufferUsageMapWrite
	}
	if usage&gpucore.BufferUsageCopySrc != 0 {
		result |= gputypes.BufferUsageCopySrc
	}
	if usage&gpucore.BufferUsageCopyDst != 0 {
		result |= gputypes.BufferUsageCopyDst
	}
	if usage&gpucore.BufferUsageUniform != 0 {
		result |= gputypes.BufferUsageUniform
	}
	if usage&gpucore.BufferUsageStorage != 0 {
		result |= gputypes.BufferUsageStorage
	}
	return result
}

// convertLayoutEntry converts a gpucore layout entry to a compute-visible
// gputypes entry.
func convertLayoutEntry(entry gpucore.BindGroupLayoutEntry) gputypes.BindGroupLayoutEntry {
	result := gputypes.BindGroupLayoutEntry{
		Binding:    entry.Binding,
		Visibility: gputypes.ShaderStageCompute,
	}
	var typ gputypes.BufferBindingType
	switch entry.Type {
	case gpucore.BindingTypeUniformBuffer:
		typ = gputypes.BufferBindingTypeUniform
	case gpucore.BindingTypeReadOnlyStorageBuffer:
		typ = gputypes.BufferBindingTypeReadOnlyStorage
	default:
		typ = gputypes.BufferBindingTypeStorage
	}
	result.Buffer = &gputypes.BufferBindingLayout{Type: typ, MinBindingSize: entry.MinBindingSize}
	return result
}

// convertDeviceType maps the HAL device class.
func convertDeviceType(t gputypes.DeviceType) gpucore.DeviceType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucore.DeviceTypeDiscreteGPU
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucore.DeviceTypeIntegratedGPU
	case gputypes.DeviceTypeVirtualGPU:
		return gpucore.DeviceTypeVirtualGPU
	case gputypes.DeviceTypeCPU:
		return gpucore.DeviceTypeCPU
	default:
		return gpucore.DeviceTypeOther
	}
}

// minWorkgroupSize is the smallest per-dimension workgroup size the LIC
// kernels are compiled with.
const minWorkgroupSize = 8

// capabilitiesFromLimits derives adapter capabilities from device limits.
//
// WGSL modules on wgpu always support compute, float32 storage and runtime
// shader modules once compute dispatch is possible at all. Devices whose
// limits fall below the WebGPU defaults are reported as downlevel.
func capabilitiesFromLimits(l gputypes.Limits) gpucore.AdapterCapabilities {
	def := gputypes.DefaultLimits()
	compute := l.MaxComputeWorkgroupsPerDimension > 0 &&
		l.MaxComputeWorkgroupSizeX >= minWorkgroupSize &&
		l.MaxComputeWorkgroupSizeY >= minWorkgroupSize
	return gpucore.AdapterCapabilities{
		SupportsCompute:           compute,
		SupportsFloat32Storage:    compute,
		SupportsShaderCompilation: compute,
		Downlevel: l.MaxStorageBuffersPerShaderStage < def.MaxStorageBuffersPerShaderStage ||
			l.MaxComputeWorkgroupSizeX < def.MaxComputeWorkgroupSizeX,
		MaxStorageBuffersPerStage:        uint32(l.MaxStorageBuffersPerShaderStage),
		MaxComputeWorkgroupsPerDimension: uint32(l.MaxComputeWorkgroupsPerDimension),
		MaxBufferSize:                    uint64(l.MaxBufferSize),
		MaxStorageBufferBindingSize:      uint64(l.MaxStorageBufferBindingSize),
	}
}
