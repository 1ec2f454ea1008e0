package tracing

import (
	"context"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/uber/jaeger-client-go"
	"github.com/uber/jaeger-client-go/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// InitTracer initializes the Jaeger tracer and installs it globally. When
// tracing is disabled the global no-op tracer is kept.
func InitTracer(enabled bool, serviceName, jaegerEndpoint string) (io.Closer, error) {
	if !enabled {
		return nopCloser{}, nil
	}

	cfg := &config.Configuration{
		ServiceName: serviceName,
		Sampler: &config.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 1,
		},
		Reporter: &config.ReporterConfig{
			CollectorEndpoint: jaegerEndpoint,
		},
	}

	tracer, closer, err := cfg.NewTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	opentracing.SetGlobalTracer(tracer)
	return closer, nil
}

// Middleware starts a server span per request, continuing any trace carried
// in the request headers. Handlers reach the span through the request context.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tracer := opentracing.GlobalTracer()

		var opts []opentracing.StartSpanOption
		carrier := opentracing.HTTPHeadersCarrier(c.Request.Header)
		if parent, err := tracer.Extract(opentracing.HTTPHeaders, carrier); err == nil {
			opts = append(opts, ext.RPCServerOption(parent))
		}

		span := tracer.StartSpan(c.Request.Method+" "+routeName(c), opts...)
		defer span.Finish()

		ext.HTTPMethod.Set(span, c.Request.Method)
		ext.HTTPUrl.Set(span, c.Request.URL.Path)

		c.Request = c.Request.WithContext(opentracing.ContextWithSpan(c.Request.Context(), span))
		c.Next()

		status := c.Writer.Status()
		ext.HTTPStatusCode.Set(span, uint16(status))
		if status >= 500 {
			ext.Error.Set(span, true)
		}
	}
}

func routeName(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}

// StartSpan starts a child span of whatever span ctx carries
func StartSpan(ctx context.Context, operationName string) (opentracing.Span, context.Context) {
	return opentracing.StartSpanFromContext(ctx, operationName)
}

// FinishSpan finishes a span
func FinishSpan(span opentracing.Span) {
	if span != nil {
		span.Finish()
	}
}

// LogError marks the span as failed and records err
func LogError(span opentracing.Span, err error) {
	if span != nil && err != nil {
		ext.Error.Set(span, true)
		span.LogKV("error", err.Error())
	}
}

// SetTag sets a tag on the span
func SetTag(span opentracing.Span, key string, value interface{}) {
	if span != nil {
		span.SetTag(key, value)
	}
}
