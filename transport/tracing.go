package transport

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Tracing defaults. Header attribute values longer than the configured limit
// are truncated with a trailing ellipsis so spans stay bounded.
const (
	// DefaultSpanName is the span name used when none is configured.
	DefaultSpanName = "okhttp-call >>"

	// DefaultHeaderValueLimit is the default maximum recorded length of a
	// header attribute value, ellipsis included.
	DefaultHeaderValueLimit = 96

	// MinHeaderValueLimit is the smallest accepted header value limit.
	MinHeaderValueLimit = 8

	ellipsis = "..."
)

// TracingConfig configures the tracing transport.
type TracingConfig struct {
	// SpanName overrides the per-request span name. Blank means DefaultSpanName.
	SpanName string

	// HeaderValueLimit caps recorded header attribute values. Zero means
	// DefaultHeaderValueLimit; values below MinHeaderValueLimit are rejected.
	HeaderValueLimit int

	// Tracer creates the per-request spans. Nil uses the globally
	// registered tracer provider.
	Tracer trace.Tracer

	// Propagator injects trace context into outgoing request headers. Nil
	// uses the globally registered propagator.
	Propagator propagation.TextMapPropagator
}

// TracingTransport wraps each outgoing request in a client span: it records
// method, URL and request headers as attributes, injects propagation headers
// into a cloned request, records the response status or the downstream
// failure, and always ends the span exactly once.
type TracingTransport struct {
	spanName         string
	headerValueLimit int
	tracer           trace.Tracer
	propagator       propagation.TextMapPropagator
	next             http.RoundTripper
}

// NewTracingTransport creates a tracing transport over next. A nil next
// defaults to http.DefaultTransport.
func NewTracingTransport(cfg TracingConfig, next http.RoundTripper) (*TracingTransport, error) {
	limit := cfg.HeaderValueLimit
	if limit == 0 {
		limit = DefaultHeaderValueLimit
	}
	if limit < MinHeaderValueLimit {
		return nil, ErrHeaderLimitTooSmall
	}

	spanName := cfg.SpanName
	if strings.TrimSpace(spanName) == "" {
		spanName = DefaultSpanName
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("avhttpc/transport")
	}

	propagator := cfg.Propagator
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}

	if next == nil {
		next = http.DefaultTransport
	}

	return &TracingTransport{
		spanName:         spanName,
		headerValueLimit: limit,
		tracer:           tracer,
		propagator:       propagator,
		next:             next,
	}, nil
}

// Tracing returns a tracing middleware. The configuration is validated once;
// the returned middleware cannot fail.
func Tracing(cfg TracingConfig) (Middleware, error) {
	if _, err := NewTracingTransport(cfg, nil); err != nil {
		return nil, err
	}
	return func(next http.RoundTripper) http.RoundTripper {
		t, _ := NewTracingTransport(cfg, next)
		return t
	}, nil
}

// RoundTrip implements http.RoundTripper.
func (t *TracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, span := t.tracer.Start(req.Context(), t.spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
		),
	)
	defer span.End()

	for name, values := range req.Header {
		for _, value := range values {
			span.SetAttributes(attribute.String(
				"http.request.header."+name,
				abbreviate(value, t.headerValueLimit),
			))
		}
	}

	// The span becomes the active context for the duration of the call so
	// the propagator picks it up and downstream instrumentation parents off it.
	clone := req.Clone(ctx)

	carrier := &headerCarrier{header: clone.Header}
	t.propagator.Inject(ctx, carrier)
	if carrier.err != nil {
		span.RecordError(carrier.err)
		span.SetStatus(codes.Error, carrier.err.Error())
		return nil, carrier.err
	}

	resp, err := t.next.RoundTrip(clone)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	return resp, nil
}

// abbreviate truncates raw to at most max characters, marking truncation
// with a trailing ellipsis. The result is exactly max characters long when
// truncation occurs. Truncation counts runes, never splitting a multi-byte
// character.
func abbreviate(raw string, max int) string {
	if utf8.RuneCountInString(raw) <= max {
		return raw
	}
	runes := []rune(raw)
	return string(runes[:max-len(ellipsis)]) + ellipsis
}

// headerCarrier adapts http.Header to propagation.TextMapCarrier and rejects
// injection under a blank key.
type headerCarrier struct {
	header http.Header
	err    error
}

// Get implements propagation.TextMapCarrier.
func (c *headerCarrier) Get(key string) string {
	return c.header.Get(key)
}

// Set implements propagation.TextMapCarrier.
func (c *headerCarrier) Set(key, value string) {
	if strings.TrimSpace(key) == "" {
		c.err = ErrBlankHeaderKey
		return
	}
	c.header.Set(key, value)
}

// Keys implements propagation.TextMapCarrier.
func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.header))
	for key := range c.header {
		keys = append(keys, key)
	}
	return keys
}
