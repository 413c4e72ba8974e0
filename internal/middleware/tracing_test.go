package middleware

import (
	"net/http/httptest"
	"testing"

	"vexillum/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := observability.Tracer
	observability.Tracer = tp.Tracer("test")
	t.Cleanup(func() { observability.Tracer = previous })
	return recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]string {
	out := make(map[attribute.Key]string)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value.Emit()
	}
	return out
}

func TestTracingMiddleware_NamesSpansByRoute(t *testing.T) {
	recorder := recordSpans(t)

	app := fiber.New()
	app.Use(TracingMiddleware())
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	app.Get("/api/designs/:publicID", ok)
	app.Post("/api/admin/posts/:id/convert", ok)
	app.Get("/api/users/:id/designs", ok)

	cases := []struct {
		method, path, name string
		key                attribute.Key
		value              string
	}{
		{"GET", "/api/designs/abc-123", "GET /api/designs/:publicID", "vexillum.design.public_id", "abc-123"},
		{"POST", "/api/admin/posts/7/convert", "POST /api/admin/posts/:id/convert", "vexillum.post.id", "7"},
		{"GET", "/api/users/42/designs", "GET /api/users/:id/designs", "vexillum.user.id", "42"},
	}
	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest(tc.method, tc.path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
	}

	spans := recorder.Ended()
	require.Len(t, spans, len(cases))
	for i, tc := range cases {
		attrs := spanAttrs(spans[i])
		assert.Equal(t, tc.name, spans[i].Name())
		assert.Equal(t, tc.value, attrs[tc.key])
		assert.Equal(t, "200", attrs["http.status_code"])
	}
}

func TestResourceKind(t *testing.T) {
	assert.Equal(t, "comment", resourceKind("/api/comments/:id"))
	assert.Equal(t, "user", resourceKind("/api/admin/users/:id/toggle-admin"))
	assert.Equal(t, "", resourceKind("/api/designs/:publicID"))
	assert.Equal(t, "", resourceKind("/:id"))
}
