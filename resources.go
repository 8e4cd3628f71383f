package lic

import (
	"fmt"

	"github.com/gogpu/lic/gpucore"
)

// imageBufferUsage is the usage of every image buffer: bound as storage,
// written by the host when zeroing and read back for results.
const imageBufferUsage = gpucore.BufferUsageStorage | gpucore.BufferUsageCopyDst | gpucore.BufferUsageCopySrc

// pair is an accumulator buffer and its position tracker. Both always have
// the same dimensions and are bound together.
type pair struct {
	acc gpucore.BufferID
	pos gpucore.BufferID
}

// bufferSet is the five image buffers of one output size.
type bufferSet struct {
	width, height int
	pairs         [2]pair
	filter        gpucore.BufferID
}

func (s *bufferSet) ids() []*gpucore.BufferID {
	return []*gpucore.BufferID{&s.pairs[0].acc, &s.pairs[0].pos, &s.pairs[1].acc, &s.pairs[1].pos, &s.filter}
}

// imageBytes is the size of one 3-channel float image buffer.
func imageBytes(w, h int) int { return w * h * 3 * 4 }

type inputKind int

const (
	inputVectors inputKind = iota
	inputNoise
	inputLICParams
	inputFilterParams
	numInputs
)

var inputUsage = [numInputs]gpucore.BufferUsage{
	inputVectors:      gpucore.BufferUsageStorage | gpucore.BufferUsageCopyDst,
	inputNoise:        gpucore.BufferUsageStorage | gpucore.BufferUsageCopyDst,
	inputLICParams:    gpucore.BufferUsageUniform | gpucore.BufferUsageCopyDst,
	inputFilterParams: gpucore.BufferUsageUniform | gpucore.BufferUsageCopyDst,
}

type sizedBuffer struct {
	id   gpucore.BufferID
	size int
}

// resourceManager owns every device buffer of an engine.
//
// The five image buffers are allocated together, kept while the output
// size is unchanged and reallocated together when it changes. Input
// buffers (vectors, noise, uniforms) are reallocated when their byte size
// changes. Nothing is destroyed except by Release or a size change.
type resourceManager struct {
	adapter gpucore.GPUAdapter
	stats   *Stats

	set    *bufferSet
	inputs [numInputs]sizedBuffer
}

func newResourceManager(adapter gpucore.GPUAdapter, stats *Stats) *resourceManager {
	return &resourceManager{adapter: adapter, stats: stats}
}

// EnsureBuffers returns the image buffers for a w×h output, allocating
// them on first use or after a size change. On failure the buffers created
// so far stay tracked so that Release destroys them.
func (m *resourceManager) EnsureBuffers(w, h int) (*bufferSet, error) {
	if m.set != nil && m.set.width == w && m.set.height == h {
		return m.set, nil
	}
	if m.set != nil {
		Logger().Info("lic: output size changed, reallocating image buffers",
			"old", fmt.Sprintf("%dx%d", m.set.width, m.set.height),
			"new", fmt.Sprintf("%dx%d", w, h))
		m.releaseImages()
	}

	m.set = &bufferSet{width: w, height: h}
	size := imageBytes(w, h)
	for _, id := range m.set.ids() {
		buf, err := m.create(size, imageBufferUsage)
		if err != nil {
			return nil, fmt.Errorf("%w: image buffer %dx%d: %w", ErrResource, w, h, err)
		}
		*id = buf
	}
	Logger().Debug("lic: image buffers allocated", "width", w, "height", h, "bytes", 5*size)
	return m.set, nil
}

// ensureInput returns the input buffer of the given kind, reallocating it
// when size differs from the current allocation.
func (m *resourceManager) ensureInput(kind inputKind, size int) (gpucore.BufferID, error) {
	in := &m.inputs[kind]
	if in.id != gpucore.InvalidID && in.size == size {
		return in.id, nil
	}
	if in.id != gpucore.InvalidID {
		m.destroy(in.id, in.size)
		*in = sizedBuffer{}
	}
	id, err := m.create(size, inputUsage[kind])
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("%w: input buffer (%d bytes): %w", ErrResource, size, err)
	}
	*in = sizedBuffer{id: id, size: size}
	return id, nil
}

// Release destroys every buffer. It is idempotent and safe after a
// partially failed allocation.
func (m *resourceManager) Release() {
	m.releaseImages()
	for k := range m.inputs {
		if m.inputs[k].id != gpucore.InvalidID {
			m.destroy(m.inputs[k].id, m.inputs[k].size)
		}
		m.inputs[k] = sizedBuffer{}
	}
}

func (m *resourceManager) releaseImages() {
	if m.set == nil {
		return
	}
	size := imageBytes(m.set.width, m.set.height)
	for _, id := range m.set.ids() {
		if *id != gpucore.InvalidID {
			m.destroy(*id, size)
			*id = gpucore.InvalidID
		}
	}
	m.set = nil
}

func (m *resourceManager) create(size int, usage gpucore.BufferUsage) (gpucore.BufferID, error) {
	id, err := m.adapter.CreateBuffer(size, usage)
	if err != nil {
		return gpucore.InvalidID, err
	}
	m.stats.BuffersAllocated++
	m.stats.BytesAllocated += uint64(size)
	return id, nil
}

func (m *resourceManager) destroy(id gpucore.BufferID, size int) {
	m.adapter.DestroyBuffer(id)
	m.stats.BuffersReleased++
	m.stats.BytesAllocated -= uint64(size)
}
