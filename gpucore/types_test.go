// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpucore

import "testing"

func TestWorkgroupCount(t *testing.T) {
	tests := []struct {
		n, size, want uint32
	}{
		{0, 8, 0},
		{1, 8, 1},
		{8, 8, 1},
		{9, 8, 2},
		{64, 8, 8},
		{65, 16, 5},
		{10, 0, 0},
	}
	for _, tt := range tests {
		if got := WorkgroupCount(tt.n, tt.size); got != tt.want {
			t.Errorf("WorkgroupCount(%d, %d) = %d, want %d", tt.n, tt.size, got, tt.want)
		}
	}
}

func TestBindingTypeString(t *testing.T) {
	tests := []struct {
		typ  BindingType
		want string
	}{
		{BindingTypeUniformBuffer, "uniform"},
		{BindingTypeStorageBuffer, "storage"},
		{BindingTypeReadOnlyStorageBuffer, "read-only-storage"},
		{BindingType(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("BindingType(%d).String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestDeviceTypeString(t *testing.T) {
	if got := DeviceTypeDiscreteGPU.String(); got != "discrete" {
		t.Errorf("DeviceTypeDiscreteGPU.String() = %q", got)
	}
	if got := DeviceType(42).String(); got != "other" {
		t.Errorf("DeviceType(42).String() = %q, want other", got)
	}
}
