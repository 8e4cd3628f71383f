package lic

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/gogpu/lic/gpucore"
)

// contrastRange returns the value range of the first channel of a 3-channel
// image. With skipMasked set, masked pixels (negative values) are left out.
// ok is false when stretching would not be meaningful: no samples, a flat
// image, or values outside [0, 1].
func contrastRange(img []float32, skipMasked bool) (lo, hi float32, ok bool) {
	vals := make([]float64, 0, len(img)/3)
	for k := 0; k+2 < len(img); k += 3 {
		if skipMasked && img[k] < 0 {
			continue
		}
		vals = append(vals, float64(img[k]))
	}
	if len(vals) == 0 {
		return 0, 1, false
	}
	l, h := floats.Min(vals), floats.Max(vals)
	if !(h > l) || h > 1 || l < 0 {
		return 0, 1, false
	}
	return float32(l), float32(h), true
}

// stretchRange narrows [lo, hi] by the low and high enhancement factors,
// each a fraction of the range, and returns the new minimum and span.
func stretchRange(lo, hi, low, high float32) (minValue, span float32) {
	d := hi - lo
	lo += d * low
	hi -= d * high
	return lo, hi - lo
}

func (e *Engine) readImage(set *bufferSet, buf gpucore.BufferID) ([]float32, error) {
	raw, err := e.adapter.ReadBuffer(buf, 0, uint64(imageBytes(set.width, set.height)))
	if err != nil {
		return nil, err
	}
	return bytesFloats(raw), nil
}

func (e *Engine) filterUniform() (binding, error) {
	id, err := e.res.ensureInput(inputFilterParams, filterParamsSize)
	if err != nil {
		return binding{}, err
	}
	return binding{id: id, size: filterParamsSize}, nil
}

// enhance sharpens the first-pass result held in src into the filter
// buffer. With contrast enabled the result is read back and stretched to
// [0, 1] by the filter.
func (e *Engine) enhance(set *bufferSet, src gpucore.BufferID, contrast bool) error {
	prog, err := e.programs.Filter()
	if err != nil {
		return err
	}
	uniform, err := e.filterUniform()
	if err != nil {
		return err
	}

	fp := filterParams{Width: uint32(set.width), Height: uint32(set.height), MinValue: 0, MaxMinDiff: 1}
	if contrast {
		img, err := e.readImage(set, src)
		if err != nil {
			return fmt.Errorf("lic: read first pass: %w", err)
		}
		if lo, hi, ok := contrastRange(img, false); ok {
			fp.MinValue, fp.MaxMinDiff = lo, hi-lo
			Logger().Debug("lic: contrast stretch", "min", lo, "max", hi)
		}
	}
	return e.exec.filter(prog, set, uniform, src, set.filter, fp)
}

// finish runs the anti-aliasing and final contrast stages on the result in
// src and returns the buffer holding the final image. The stages alternate
// between src and the filter buffer, which is free once the last
// convolution pass has run.
func (e *Engine) finish(set *bufferSet, src gpucore.BufferID, cfg *Config) (gpucore.BufferID, error) {
	if cfg.AntiAlias == 0 && !cfg.EnhanceContrast {
		return src, nil
	}
	uniform, err := e.filterUniform()
	if err != nil {
		return gpucore.InvalidID, err
	}
	cur, spare := src, set.filter
	fp := filterParams{Width: uint32(set.width), Height: uint32(set.height), MinValue: 0, MaxMinDiff: 1}

	if cfg.AntiAlias > 0 {
		prog, err := e.programs.Blur()
		if err != nil {
			return gpucore.InvalidID, err
		}
		for range cfg.AntiAlias {
			for _, axis := range [2]uint32{0, 1} {
				fp.Axis = axis
				if err := e.exec.filter(prog, set, uniform, cur, spare, fp); err != nil {
					return gpucore.InvalidID, err
				}
				cur, spare = spare, cur
			}
		}
		fp.Axis = 0
		Logger().Debug("lic: anti-aliased", "iterations", cfg.AntiAlias)
	}

	if cfg.EnhanceContrast {
		prog, err := e.programs.Contrast()
		if err != nil {
			return gpucore.InvalidID, err
		}
		img, err := e.readImage(set, cur)
		if err != nil {
			return gpucore.InvalidID, fmt.Errorf("lic: read result: %w", err)
		}
		lo, hi, ok := contrastRange(img, true)
		if !ok {
			Logger().Warn("lic: degenerate intensity range, final contrast uses [0, 1]")
		}
		fp.MinValue, fp.MaxMinDiff = stretchRange(lo, hi, cfg.LowContrastEnhancementFactor, cfg.HighContrastEnhancementFactor)
		Logger().Debug("lic: final contrast", "min", fp.MinValue, "span", fp.MaxMinDiff)
		if err := e.exec.filter(prog, set, uniform, cur, spare, fp); err != nil {
			return gpucore.InvalidID, err
		}
		cur = spare
	}
	return cur, nil
}
