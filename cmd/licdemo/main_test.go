package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/tiff"

	"github.com/gogpu/lic"
	"github.com/gogpu/lic/internal/softgpu"
)

func TestSyntheticField(t *testing.T) {
	f, err := syntheticField("vortex", 5, 3)
	if err != nil {
		t.Fatal(err)
	}
	if f.Components != 2 || len(f.Data) != 5*3*2 {
		t.Fatalf("field %dx%d, %d comps, %d values", f.Width, f.Height, f.Components, len(f.Data))
	}
	// Center texel of the vortex is at rest.
	if c := f.Data[(1*5+2)*2:]; c[0] != 0 || c[1] != 0 {
		t.Errorf("center = (%v, %v)", c[0], c[1])
	}
	if _, err := syntheticField("spiral", 5, 5); err == nil {
		t.Error("unknown field accepted")
	}
	if _, err := syntheticField("vortex", 1, 5); err == nil {
		t.Error("degenerate field accepted")
	}
}

func TestSummarize(t *testing.T) {
	mean, std, masked := summarize([]float32{
		0.2, 0.2, 0.2,
		-1, -1, -1,
		0.4, 0.4, 0.4,
	})
	if masked != 1 {
		t.Errorf("masked = %d, want 1", masked)
	}
	if mean < 0.299 || mean > 0.301 {
		t.Errorf("mean = %v, want 0.3", mean)
	}
	if std <= 0 {
		t.Errorf("std = %v", std)
	}
	if m, s, n := summarize([]float32{-1, -1, -1}); m != 0 || s != 0 || n != 1 {
		t.Errorf("all masked: %v %v %d", m, s, n)
	}
}

func TestMagnitudeImageScales(t *testing.T) {
	f, _ := syntheticField("source", 8, 8)
	if b := magnitudeImage(f, 8, 8).Bounds(); b.Dx() != 8 || b.Dy() != 8 {
		t.Errorf("bounds = %v", b)
	}
	if b := magnitudeImage(f, 16, 24).Bounds(); b.Dx() != 16 || b.Dy() != 24 {
		t.Errorf("scaled bounds = %v", b)
	}
}

func TestRunSoftware(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "lic.yaml")
	cfg := []byte("lic:\n  number_of_steps: 3\n  magnification: 2\nnoise:\n  size: 16\n")
	if err := os.WriteFile(cfgPath, cfg, 0o600); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out.tiff")
	err := run(context.Background(), options{
		configPath: cfgPath,
		field:      "saddle",
		width:      12,
		height:     10,
		output:     out,
	}, softgpu.NewDefault(), lic.WithCompiler(&softgpu.Compiler{}))
	if err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := tiff.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 24 || b.Dy() != 20 {
		t.Errorf("output bounds = %v, want 24x20", b)
	}
}

func TestRunSeveralFields(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "lic.yaml")
	if err := os.WriteFile(cfgPath, []byte("lic:\n  number_of_steps: 2\nnoise:\n  size: 8\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	err := run(context.Background(), options{
		configPath: cfgPath,
		field:      "vortex,source",
		width:      8,
		height:     8,
		output:     filepath.Join(dir, "lic.tiff"),
	}, softgpu.NewDefault(), lic.WithCompiler(&softgpu.Compiler{}))
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"lic-vortex.tiff", "lic-source.tiff"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestRenderSummaryUsesPackageLogger(t *testing.T) {
	orig := lic.Logger()
	t.Cleanup(func() { lic.SetLogger(orig) })
	var buf bytes.Buffer
	lic.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "lic.yaml")
	if err := os.WriteFile(cfgPath, []byte("lic:\n  number_of_steps: 2\nnoise:\n  size: 8\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	err := run(context.Background(), options{
		configPath: cfgPath,
		field:      "vortex",
		width:      8,
		height:     8,
		output:     filepath.Join(dir, "lic.tiff"),
	}, softgpu.NewDefault(), lic.WithCompiler(&softgpu.Compiler{}))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "licdemo: rendered") || !strings.Contains(buf.String(), "field=vortex") {
		t.Errorf("render summary not logged through lic.Logger:\n%s", buf.String())
	}
}
