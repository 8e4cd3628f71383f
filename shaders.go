package lic

import (
	_ "embed"
	"strings"
)

// Shader modules. The integration program is selector + util + lic. The
// high-pass, blur and contrast programs are util + filter, each linked at
// its own entry point.

//go:embed shaders/selector.wgsl
var shaderSelector string

//go:embed shaders/util.wgsl
var shaderUtil string

//go:embed shaders/lic.wgsl
var shaderLIC string

//go:embed shaders/filter.wgsl
var shaderFilter string

// Entry points.
const (
	entryLIC      = "lic_step"
	entryFilter   = "high_pass"
	entryBlur     = "blur"
	entryContrast = "contrast"
)

// workgroupSize matches @workgroup_size in lic.wgsl and filter.wgsl.
const workgroupSize = 8

// Template tokens replaced by SelectComponents.
const (
	tokenCompA = "$COMP_A"
	tokenCompB = "$COMP_B"
)

var swizzles = [4]string{"x", "y", "z", "w"}

// SelectComponents returns template with the component tokens replaced by
// the swizzles of components a and b. Indices outside [0, 3] are clamped.
// It does not depend on any build state.
func SelectComponents(template string, a, b int) string {
	return strings.NewReplacer(
		tokenCompA, swizzles[clampComponent(a)],
		tokenCompB, swizzles[clampComponent(b)],
	).Replace(template)
}

func clampComponent(c int) int {
	return min(max(c, 0), 3)
}

func integrationSource(a, b int) string {
	return SelectComponents(shaderSelector, a, b) + "\n" + shaderUtil + "\n" + shaderLIC
}

func filterSource() string {
	return shaderUtil + "\n" + shaderFilter
}
