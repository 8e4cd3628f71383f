package lic

import "github.com/gogpu/lic/gpucore"

// viewport is the dispatch grid of the current pass, in pixels.
type viewport struct {
	Width, Height int
}

// renderContext tracks the pipeline and viewport the executor is
// dispatching with. Every bind returns a restore function that puts back
// the previous state; callers defer it so that the state is restored on
// every exit path, including errors.
type renderContext struct {
	pipeline gpucore.ComputePipelineID
	viewport viewport
	depth    int
}

// bind makes pipeline and vp current and returns the restore function.
func (c *renderContext) bind(pipeline gpucore.ComputePipelineID, vp viewport) (restore func()) {
	prevPipeline, prevViewport := c.pipeline, c.viewport
	c.pipeline, c.viewport = pipeline, vp
	c.depth++
	return func() {
		c.pipeline, c.viewport = prevPipeline, prevViewport
		c.depth--
	}
}

// idle reports whether no binding is active.
func (c *renderContext) idle() bool {
	return c.depth == 0 && c.pipeline == gpucore.InvalidID && c.viewport == (viewport{})
}

// groups returns the workgroup counts covering the current viewport.
func (c *renderContext) groups() (x, y uint32) {
	return gpucore.WorkgroupCount(uint32(c.viewport.Width), workgroupSize),
		gpucore.WorkgroupCount(uint32(c.viewport.Height), workgroupSize)
}
