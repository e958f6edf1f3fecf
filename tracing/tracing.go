// Package tracing wires up the opentracing.Tracer used by chash's bulk
// operations (component H) and the chashbench command, following the
// plain opentracing span API the teacher already imports in
// storage/netstore.go, backed by a Jaeger tracer for anything beyond a
// single process (spec.md §11 domain stack: request-scoped tracing was
// part of the pack's stack but had no home in the distilled spec until
// bulk operations needed span-carrying contexts).
package tracing

import (
	"context"
	"io"

	"github.com/opentracing/opentracing-go"
	jaeger "github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"

	"github.com/holisticode/chashmap/log"
)

// Config selects how spans leave the process. An empty AgentHostPort
// disables remote reporting and traces are sampled and discarded locally,
// which is the right default for tests and for chashbench runs that don't
// have a collector handy.
type Config struct {
	ServiceName   string
	AgentHostPort string
	SamplerType   string
	SamplerParam  float64
}

// DefaultConfig always-samples against a no-op reporter, useful for local
// development and tests that just want spans to exist without standing up
// a collector.
func DefaultConfig(service string) Config {
	return Config{
		ServiceName:  service,
		SamplerType:  "const",
		SamplerParam: 1,
	}
}

// Init builds a Jaeger-backed opentracing.Tracer and installs it as the
// global tracer, returning a closer the caller must close on shutdown to
// flush any buffered spans.
func Init(cfg Config) (io.Closer, error) {
	jcfg := jaegercfg.Configuration{
		ServiceName: cfg.ServiceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  cfg.SamplerType,
			Param: cfg.SamplerParam,
		},
		Reporter: &jaegercfg.ReporterConfig{
			LocalAgentHostPort: cfg.AgentHostPort,
			LogSpans:           cfg.AgentHostPort != "",
		},
	}

	opts := []jaegercfg.Option{jaegercfg.Logger(jaegerLoggerAdapter{})}
	if cfg.AgentHostPort == "" {
		opts = append(opts, jaegercfg.Reporter(jaeger.NewNullReporter()))
	}
	tracer, closer, err := jcfg.NewTracer(opts...)
	if err != nil {
		return nil, err
	}
	opentracing.SetGlobalTracer(tracer)
	return closer, nil
}

// StartSpan is a thin convenience wrapper so callers outside the chash
// package don't need to import opentracing directly just to annotate a
// bulk operation's surrounding context.
func StartSpan(ctx context.Context, name string) (opentracing.Span, context.Context) {
	return opentracing.StartSpanFromContext(ctx, name)
}

// jaegerLoggerAdapter routes jaeger-client-go's internal diagnostic
// logging through the package logger instead of stderr, matching how the
// teacher routes every other third-party component's logs through
// github.com/holisticode/chashmap/log.
type jaegerLoggerAdapter struct{}

func (jaegerLoggerAdapter) Error(msg string) {
	log.Error(msg)
}

func (jaegerLoggerAdapter) Infof(msg string, args ...interface{}) {
	log.Info(msg, "args", args)
}
