// Command licdemo renders a line integral convolution of a synthetic vector
// field and writes it as a TIFF image.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/gogpu/lic"
	"github.com/gogpu/lic/backend/wgpu"
	"github.com/gogpu/lic/composite"
	"github.com/gogpu/lic/config"
	"github.com/gogpu/lic/gpucore"
	"github.com/gogpu/lic/noise"
)

type options struct {
	configPath string
	field      string
	width      int
	height     int
	integrated bool
	output     string
	verbose    bool
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "YAML settings file (defaults are embedded)")
	flag.StringVar(&o.field, "field", "vortex", "comma-separated synthetic fields: vortex, saddle, source")
	flag.IntVar(&o.width, "width", 256, "field width")
	flag.IntVar(&o.height, "height", 256, "field height")
	flag.BoolVar(&o.integrated, "integrated", false, "prefer an integrated GPU")
	flag.StringVar(&o.output, "output", "lic.tiff", "output file")
	flag.BoolVar(&o.verbose, "v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	lic.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	adapter, err := wgpu.Open(wgpu.Options{PreferIntegrated: o.integrated})
	if err != nil {
		log.Fatalf("licdemo: %v", err)
	}
	err = run(context.Background(), o, adapter)
	adapter.Close()
	if err != nil {
		log.Fatalf("licdemo: %v", err)
	}
}

func run(ctx context.Context, o options, adapter gpucore.GPUAdapter, engineOpts ...lic.EngineOption) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	kinds := strings.Split(o.field, ",")

	if !lic.IsSupported(adapter) {
		return fmt.Errorf("device %q cannot run LIC", adapter.Info().Name)
	}

	eng := lic.NewEngine(adapter, append(engineOpts, lic.WithConfig(cfg.LIC))...)
	defer eng.Release()
	textures := noise.NewCache(2)

	for _, kind := range kinds {
		out := o.output
		if len(kinds) > 1 {
			ext := filepath.Ext(out)
			out = strings.TrimSuffix(out, ext) + "-" + kind + ext
		}
		if err := render(ctx, eng, textures, cfg, kind, o.width, o.height, out); err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
	}
	return nil
}

// render convolves one synthetic field and writes the composited image.
func render(ctx context.Context, eng *lic.Engine, textures *noise.Cache, cfg *config.Config, kind string, w, h int, out string) error {
	field, err := syntheticField(kind, w, h)
	if err != nil {
		return err
	}
	tex, err := textures.Get(cfg.Noise)
	if err != nil {
		return err
	}
	eng.SetVectorField(field)
	eng.SetNoiseField(tex)

	extent := lic.Extent{X1: field.Width - 1, Y1: field.Height - 1}
	if err := eng.Execute(ctx, extent); err != nil {
		return err
	}
	res, _ := eng.Result()
	values, err := eng.ReadResult()
	if err != nil {
		return err
	}
	layer, err := composite.NewLayer(res, values)
	if err != nil {
		return err
	}

	canvas := composite.NewCanvas(magnitudeImage(field, res.Width, res.Height))
	if err := composite.Blend(canvas, canvas.Image().Bounds(), layer, cfg.Composite); err != nil {
		return err
	}
	if err := writeTIFF(out, canvas.Image()); err != nil {
		return err
	}

	mean, std, masked := summarize(values)
	s := eng.Stats()
	lic.Logger().Info("licdemo: rendered",
		"field", kind,
		"output", out,
		"size", image.Pt(res.Width, res.Height),
		"mean", mean,
		"stddev", std,
		"masked", masked,
		"dispatches", s.Dispatches,
		"elapsed", s.LastDuration)
	return nil
}

// summarize returns the mean and standard deviation of the unmasked values.
func summarize(values []float32) (mean, std float64, masked int) {
	xs := make([]float64, 0, len(values)/3)
	for i := 0; i < len(values); i += 3 {
		if values[i] < 0 {
			masked++
			continue
		}
		xs = append(xs, float64(values[i]))
	}
	if len(xs) == 0 {
		return 0, 0, masked
	}
	mean, std = stat.MeanStdDev(xs, nil)
	return mean, std, masked
}
