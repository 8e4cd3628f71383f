// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package softgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/lic/gpucore"
)

type writeCmd struct {
	id     gpucore.BufferID
	offset uint64
	data   []byte
}

type dispatchCmd struct {
	pipeline gpucore.ComputePipelineID
	group    gpucore.BindGroupID
	groups   [3]uint32
}

// command is one queued operation; exactly one field is set.
type command struct {
	write    *writeCmd
	dispatch *dispatchCmd
}

// computePass records dispatches into the device queue on End.
type computePass struct {
	device   *Device
	pipeline gpucore.ComputePipelineID
	group    gpucore.BindGroupID
	recorded []dispatchCmd
	ended    bool
}

func (p *computePass) SetPipeline(pipeline gpucore.ComputePipelineID) { p.pipeline = pipeline }

func (p *computePass) SetBindGroup(index uint32, group gpucore.BindGroupID) {
	if index == 0 {
		p.group = group
	}
}

func (p *computePass) Dispatch(x, y, z uint32) {
	if p.ended {
		return
	}
	p.recorded = append(p.recorded, dispatchCmd{
		pipeline: p.pipeline,
		group:    p.group,
		groups:   [3]uint32{x, y, z},
	})
}

func (p *computePass) End() {
	if p.ended {
		return
	}
	p.ended = true
	p.device.mu.Lock()
	defer p.device.mu.Unlock()
	for i := range p.recorded {
		p.device.pending = append(p.device.pending, command{dispatch: &p.recorded[i]})
	}
}

// flushLocked applies queued writes and dispatches in order.
func (d *Device) flushLocked() error {
	queue := d.pending
	d.pending = nil
	for _, c := range queue {
		switch {
		case c.write != nil:
			b, ok := d.buffers[c.write.id]
			if !ok {
				return fmt.Errorf("write buffer %d: %w", c.write.id, ErrUnknownResource)
			}
			if c.write.offset+uint64(len(c.write.data)) > uint64(len(b.data)) {
				return fmt.Errorf("softgpu: write of %d bytes at %d overflows buffer %d", len(c.write.data), c.write.offset, c.write.id)
			}
			copy(b.data[c.write.offset:], c.write.data)
		case c.dispatch != nil:
			if err := d.runLocked(c.dispatch); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Device) runLocked(c *dispatchCmd) error {
	p, ok := d.pipelines[c.pipeline]
	if !ok {
		return fmt.Errorf("dispatch: pipeline %d: %w", c.pipeline, ErrUnknownResource)
	}
	g, ok := d.bindGroups[c.group]
	if !ok {
		return fmt.Errorf("dispatch: bind group %d: %w", c.group, ErrUnknownResource)
	}

	inv := &Invocation{
		Source: p.module.source,
		Groups: c.groups,
		device: d,
		bound:  make(map[uint32]gpucore.BindGroupEntry, len(g.entries)),
		dirty:  make(map[uint32][]float32),
	}
	rec := DispatchRecord{
		EntryPoint: p.entry,
		Buffers:    make(map[uint32]gpucore.BufferID, len(g.entries)),
		Groups:     c.groups,
	}
	for _, e := range g.entries {
		inv.bound[e.Binding] = e
		rec.Buffers[e.Binding] = e.Buffer
	}
	if u, err := inv.Bytes(0); err == nil {
		rec.Uniform = append([]byte(nil), u...)
	}
	d.dispatches = append(d.dispatches, rec)

	if err := p.kernel(inv); err != nil {
		return fmt.Errorf("dispatch %s: %w", p.entry, err)
	}
	for binding, vals := range inv.dirty {
		e := inv.bound[binding]
		b := d.buffers[e.Buffer]
		off := int(e.Offset)
		for i, v := range vals {
			binary.LittleEndian.PutUint32(b.data[off+i*4:], math.Float32bits(v))
		}
	}
	return nil
}

// Kernel executes one dispatch of a compute entry point.
type Kernel func(inv *Invocation) error

// Invocation gives a kernel access to the resources bound for a dispatch.
type Invocation struct {
	// Source is the WGSL source of the pipeline's module.
	Source string

	// Groups is the dispatched workgroup count.
	Groups [3]uint32

	device *Device
	bound  map[uint32]gpucore.BindGroupEntry
	dirty  map[uint32][]float32
}

// Bytes returns the bound byte range of a binding.
func (inv *Invocation) Bytes(binding uint32) ([]byte, error) {
	e, ok := inv.bound[binding]
	if !ok {
		return nil, fmt.Errorf("binding %d: %w", binding, ErrUnknownResource)
	}
	b, ok := inv.device.buffers[e.Buffer]
	if !ok {
		return nil, fmt.Errorf("binding %d buffer %d: %w", binding, e.Buffer, ErrUnknownResource)
	}
	end := uint64(len(b.data))
	if e.Size > 0 {
		end = e.Offset + e.Size
	}
	if end > uint64(len(b.data)) || e.Offset > end {
		return nil, fmt.Errorf("softgpu: binding %d range out of bounds", binding)
	}
	return b.data[e.Offset:end], nil
}

// Floats decodes a storage binding as little-endian float32 values.
func (inv *Invocation) Floats(binding uint32) ([]float32, error) {
	if v, ok := inv.dirty[binding]; ok {
		return v, nil
	}
	raw, err := inv.Bytes(binding)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}

// Writable returns a float view of a storage binding whose contents are
// stored back into the buffer when the kernel returns.
func (inv *Invocation) Writable(binding uint32) ([]float32, error) {
	v, err := inv.Floats(binding)
	if err != nil {
		return nil, err
	}
	inv.dirty[binding] = v
	return v, nil
}
