// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package softgpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// spirvMagic opens every module produced by Compile.
const spirvMagic uint32 = 0x07230203

// ErrCompile is returned by Compile for malformed sources.
var ErrCompile = errors.New("softgpu: compile failed")

// Compiler packs WGSL sources into module words for the software device.
// It satisfies the engine's shader compiler interface.
type Compiler struct {
	// Fail makes every compilation fail.
	Fail bool

	// Calls counts compilations.
	Calls int
}

// Compile checks the source for gross syntax errors and packs it into
// module words understood by Device.CreateShaderModule.
func (c *Compiler) Compile(source string) ([]uint32, error) {
	c.Calls++
	if c.Fail {
		return nil, fmt.Errorf("%w: injected", ErrCompile)
	}
	return Compile(source)
}

// Compile packs source into module words after a structural check: the
// source must be non-empty, braces and parentheses must balance, and the
// component selector tokens must have been substituted.
func Compile(source string) ([]uint32, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("%w: empty source", ErrCompile)
	}
	if strings.Count(source, "{") != strings.Count(source, "}") {
		return nil, fmt.Errorf("%w: unbalanced braces", ErrCompile)
	}
	if strings.Count(source, "(") != strings.Count(source, ")") {
		return nil, fmt.Errorf("%w: unbalanced parentheses", ErrCompile)
	}
	if strings.Contains(source, "$") {
		return nil, fmt.Errorf("%w: unresolved template token", ErrCompile)
	}

	raw := []byte(source)
	for len(raw)%4 != 0 {
		raw = append(raw, 0)
	}
	words := make([]uint32, 2+len(raw)/4)
	words[0] = spirvMagic
	words[1] = uint32(len(source))
	for i := 0; i < len(raw)/4; i++ {
		words[2+i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return words, nil
}

func unpackSource(words []uint32) (string, error) {
	if len(words) < 2 || words[0] != spirvMagic {
		return "", errors.New("softgpu: not a module produced by Compile")
	}
	n := int(words[1])
	if n > (len(words)-2)*4 {
		return "", errors.New("softgpu: truncated module")
	}
	raw := make([]byte, (len(words)-2)*4)
	for i, w := range words[2:] {
		binary.LittleEndian.PutUint32(raw[i*4:], w)
	}
	return string(raw[:n]), nil
}

func definesEntryPoint(source, entry string) bool {
	if entry == "" {
		return false
	}
	re := regexp.MustCompile(`@compute[^\n]*\n?\s*fn\s+` + regexp.QuoteMeta(entry) + `\s*\(`)
	return re.MatchString(source)
}

var selectorRE = regexp.MustCompile(`vec2<f32>\(\s*v\.([xyzw])\s*,\s*v\.([xyzw])\s*\)`)

// components recovers the component indices chosen by the generated
// selector function. Sources without a selector read (0, 1).
func components(source string) (a, b uint32) {
	m := selectorRE.FindStringSubmatch(source)
	if m == nil {
		return 0, 1
	}
	return swizzleIndex(m[1]), swizzleIndex(m[2])
}

func swizzleIndex(s string) uint32 {
	return uint32(strings.Index("xyzw", s))
}
