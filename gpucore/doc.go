// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gpucore provides the compute-device abstraction used by the LIC engine.
//
// This package defines the [GPUAdapter] interface, which abstracts over
// different compute backends so the same multi-pass convolution pipeline can
// run against:
//   - gogpu/wgpu (Pure Go WebGPU via HAL), see backend/wgpu
//   - an in-process software device used by the package tests
//
// # Architecture
//
// The engine is written once against [GPUAdapter]; thin adapters translate
// between the interface and a concrete backend API.
//
//	               +-----------------+
//	               |      lic        |
//	               |    (Engine)     |
//	               +--------+--------+
//	                        |
//	               +--------v--------+
//	               |    gpucore      |
//	               |  (GPUAdapter)   |
//	               +--------+--------+
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	|  wgpu adapter   |          | software device |
//	|  (hal.Device)   |          |  (tests only)   |
//	+-----------------+          +-----------------+
//
// # Resource Management
//
// GPU resources are managed via opaque IDs ([BufferID], [ComputePipelineID],
// etc.). The [GPUAdapter] interface provides creation and destruction methods
// for each resource type. Adapters are responsible for tracking the mapping
// between IDs and actual GPU resources. Nothing is reclaimed implicitly: every
// Create* call must be paired with the matching Destroy* call.
//
// # Execution Model
//
// Work is recorded with [GPUAdapter.BeginComputePass], submitted with
// [GPUAdapter.Submit] and waited on with [GPUAdapter.WaitIdle]. The LIC
// engine submits and waits after every dispatch, so each dispatch observes
// the complete output of the previous one.
package gpucore
