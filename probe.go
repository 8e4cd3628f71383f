package lic

import (
	"strings"

	"github.com/gogpu/lic/gpucore"
)

// minStorageBuffers is the number of storage buffers bound to the
// integration kernel: vectors, noise, the read pair and the write pair.
const minStorageBuffers = 6

// unsupportedDevices lists device generations whose drivers produce
// incorrect results for the integration kernel.
var unsupportedDevices = []string{
	"intel(r) hd graphics 2000",
	"intel(r) hd graphics 3000",
	"intel(r) hd graphics 4000",
	"intel hd graphics 2000",
	"intel hd graphics 3000",
	"intel hd graphics 4000",
}

// IsSupported reports whether adapter can run the engine.
//
// It requires compute shaders, at least six storage buffers per stage,
// float32 storage writes and runtime shader modules, and rejects
// downlevel devices and known-bad GPU generations. IsSupported has no side
// effects; a nil adapter is not supported.
func IsSupported(adapter gpucore.GPUAdapter) bool {
	if adapter == nil {
		return false
	}
	return unsupportedReason(adapter) == ""
}

func unsupportedReason(adapter gpucore.GPUAdapter) string {
	caps := adapter.Capabilities()
	switch {
	case !caps.SupportsCompute:
		return "no compute shaders"
	case caps.MaxStorageBuffersPerStage < minStorageBuffers:
		return "too few storage buffers per stage"
	case !caps.SupportsFloat32Storage:
		return "no float32 storage writes"
	case !caps.SupportsShaderCompilation:
		return "no runtime shader modules"
	case caps.Downlevel:
		return "downlevel device"
	}
	name := strings.ToLower(adapter.Info().Name)
	for _, bad := range unsupportedDevices {
		if strings.Contains(name, bad) {
			return "unsupported device generation"
		}
	}
	return ""
}
