package lic

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// EngineOption configures an Engine during creation.
//
// Example:
//
//	eng := lic.NewEngine(adapter,
//	    lic.WithConfig(cfg),
//	    lic.WithTracerProvider(tp),
//	)
type EngineOption func(*engineOptions)

// engineOptions holds optional configuration for Engine creation.
type engineOptions struct {
	compiler       Compiler
	config         Config
	tracerProvider trace.TracerProvider
}

// defaultOptions returns the default engine options.
func defaultOptions() engineOptions {
	return engineOptions{
		compiler:       NagaCompiler{},
		config:         DefaultConfig(),
		tracerProvider: otel.GetTracerProvider(),
	}
}

// WithCompiler sets the WGSL compiler used to build the compute programs.
// The default is NagaCompiler.
func WithCompiler(c Compiler) EngineOption {
	return func(o *engineOptions) {
		if c != nil {
			o.compiler = c
		}
	}
}

// WithConfig sets the initial integration parameters. The default is
// DefaultConfig().
func WithConfig(cfg Config) EngineOption {
	return func(o *engineOptions) {
		o.config = cfg
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider used for
// Execute spans. The default is the global provider.
func WithTracerProvider(tp trace.TracerProvider) EngineOption {
	return func(o *engineOptions) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}
