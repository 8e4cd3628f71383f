// Package lic computes Line Integral Convolution images on the GPU.
//
// # Overview
//
// LIC visualizes a 2D vector field by smearing a noise texture along the
// field's streamlines. For every output pixel the engine traces the
// streamline through the pixel in both directions and averages the noise
// values found along it with a box filter. The result is a dense gray-scale
// image in which texture is correlated along the flow.
//
// All work runs in compute shaders. Streamlines are integrated one step per
// dispatch: each dispatch reads the accumulated value and current position
// of every pixel from one buffer pair and writes the advanced state into the
// other ("ping-pong" double buffering).
//
// # Quick Start
//
//	adapter, err := wgpu.Open(wgpu.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer adapter.Close()
//
//	eng := lic.NewEngine(adapter) // WGSL is compiled with NagaCompiler
//	defer eng.Release()
//
//	eng.SetVectorField(field)
//	eng.SetNoiseField(noiseTex)
//	if err := eng.Execute(ctx, lic.Extent{X0: 0, X1: 255, Y0: 0, Y1: 255}); err != nil {
//	    log.Fatal(err)
//	}
//	pixels, err := eng.ReadResult()
//
// # Enhanced LIC
//
// With [Config.EnhancedLIC] set, the first convolution is sharpened by a
// high-pass filter and convolved a second time with half the steps. This
// produces crisper streaks at the cost of one extra pass.
//
// # Masking
//
// Pixels whose seed vector is no longer than [Config.MaskThreshold] are
// written as (-1, -1, -1). Compositors treat negative values as transparent.
//
// # Resources
//
// The engine owns five image buffers (two ping-pong pairs and a filter
// buffer) and two compute programs. They are created on first use, reused
// while the output size is unchanged and destroyed by [Engine.Release].
package lic
