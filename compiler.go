package lic

import (
	"fmt"

	"github.com/gogpu/naga"
)

// Compiler turns WGSL source into SPIR-V words for
// gpucore.GPUAdapter.CreateShaderModule.
type Compiler interface {
	Compile(wgsl string) ([]uint32, error)
}

// NagaCompiler compiles WGSL with gogpu/naga. It is the default compiler.
type NagaCompiler struct{}

// Compile implements Compiler.
func (NagaCompiler) Compile(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("naga: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("naga: SPIR-V length %d is not a multiple of 4", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
