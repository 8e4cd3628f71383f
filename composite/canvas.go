package composite

import "image"

// Canvas is a background image with a viewport limiting where blends land.
type Canvas struct {
	img      *image.NRGBA
	viewport image.Rectangle
}

// NewCanvas wraps img. The viewport starts as the full image.
func NewCanvas(img *image.NRGBA) *Canvas {
	return &Canvas{img: img, viewport: img.Bounds()}
}

// Image returns the underlying image.
func (c *Canvas) Image() *image.NRGBA { return c.img }

// Viewport returns the current viewport.
func (c *Canvas) Viewport() image.Rectangle { return c.viewport }

// SetViewport sets the viewport, clipped to the image bounds.
func (c *Canvas) SetViewport(r image.Rectangle) {
	c.viewport = r.Intersect(c.img.Bounds())
}

// State is a saved canvas viewport.
type State struct {
	c        *Canvas
	viewport image.Rectangle
}

// Save captures the current viewport.
func (c *Canvas) Save() State {
	return State{c: c, viewport: c.viewport}
}

// Restore puts the saved viewport back.
func (s State) Restore() {
	s.c.viewport = s.viewport
}
