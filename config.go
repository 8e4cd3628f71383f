package lic

import "math"

// Config holds the integration parameters of an Engine.
//
// The YAML tags are used by the config package to load a Config from file.
type Config struct {
	// NumberOfSteps is the number of integration steps per direction.
	NumberOfSteps int `yaml:"number_of_steps"`

	// StepSize is the integration step length in normalized field units.
	StepSize float32 `yaml:"step_size"`

	// EnhancedLIC enables the high-pass filter and second convolution pass.
	EnhancedLIC bool `yaml:"enhanced_lic"`

	// EnhanceContrast stretches the final image so that the range
	// [min + Low*(max-min), max - High*(max-min)] of its unmasked pixels
	// maps to [0, 1]. With EnhancedLIC the first-pass result is also
	// stretched to [0, 1] before high-pass filtering.
	EnhanceContrast bool `yaml:"enhance_contrast"`

	// LowContrastEnhancementFactor and HighContrastEnhancementFactor are
	// the fractions of the intensity range clipped at each end by the
	// final contrast stage.
	LowContrastEnhancementFactor  float32 `yaml:"low_contrast_enhancement_factor"`
	HighContrastEnhancementFactor float32 `yaml:"high_contrast_enhancement_factor"`

	// AntiAlias is the number of horizontal plus vertical 1-2-1 blur
	// iterations applied to the final image. Zero disables them.
	AntiAlias int `yaml:"anti_alias"`

	// Magnification scales the output resolution relative to the extent.
	Magnification int `yaml:"magnification"`

	// VectorShift and VectorScale decode stored vector components:
	// v = stored*VectorScale + VectorShift.
	VectorShift float32 `yaml:"vector_shift"`
	VectorScale float32 `yaml:"vector_scale"`

	// GridSpacings is the physical size of one field texel per axis.
	GridSpacings [2]float32 `yaml:"grid_spacings,flow"`

	// TransformVectors scales vectors from physical units into normalized
	// field space using the grid spacings and field dimensions.
	TransformVectors bool `yaml:"transform_vectors"`

	// NormalizeVectors makes every integration step advance exactly
	// StepSize regardless of vector magnitude.
	NormalizeVectors bool `yaml:"normalize_vectors"`

	// MaskThreshold is the vector magnitude at or below which a pixel is
	// written as transparent.
	MaskThreshold float32 `yaml:"mask_threshold"`

	// ComponentIds selects the two vector components used for
	// integration. Ignored for two-component fields.
	ComponentIds [2]int `yaml:"component_ids,flow"`
}

// DefaultConfig returns the default parameters.
func DefaultConfig() Config {
	return Config{
		NumberOfSteps:    1,
		StepSize:         0.01,
		EnhancedLIC:      true,
		Magnification:    1,
		VectorScale:      1,
		GridSpacings:     [2]float32{1, 1},
		TransformVectors: true,
		NormalizeVectors: true,
		ComponentIds:     [2]int{0, 1},
	}
}

// Validate checks the parameters that do not depend on the vector field.
func (c *Config) Validate() error {
	if c.NumberOfSteps <= 0 {
		return configError("number of steps must be positive, got %d", c.NumberOfSteps)
	}
	if !(c.StepSize > 0) || math.IsInf(float64(c.StepSize), 0) {
		return configError("step size must be positive, got %v", c.StepSize)
	}
	if c.Magnification < 1 {
		return configError("magnification must be at least 1, got %d", c.Magnification)
	}
	for i, s := range c.GridSpacings {
		if !(s > 0) {
			return configError("grid spacing %d must be positive, got %v", i, s)
		}
	}
	for i, id := range c.ComponentIds {
		if id < 0 || id > 3 {
			return configError("component id %d out of range [0, 3]: %d", i, id)
		}
	}
	low, high := c.LowContrastEnhancementFactor, c.HighContrastEnhancementFactor
	if !(low >= 0 && low < 1) || !(high >= 0 && high < 1) || !(low+high < 1) {
		return configError("contrast enhancement factors %v, %v must lie in [0, 1) and sum below 1", low, high)
	}
	if c.AntiAlias < 0 {
		return configError("anti-alias iterations must not be negative, got %d", c.AntiAlias)
	}
	if c.MaskThreshold < 0 {
		return configError("mask threshold must not be negative, got %v", c.MaskThreshold)
	}
	return nil
}
