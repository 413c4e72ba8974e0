package middleware

import (
	"fmt"
	"strings"

	"vexillum/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware opens a server span per request. The span is named
// after the matched route once the handler chain has run, and carries the
// design public id or numeric content id the route addressed.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(c.GetReqHeaders()))

		ctx, span := observability.Tracer.Start(ctx, c.Method()+" "+utils.CopyString(c.Path()),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.path", utils.CopyString(c.Path())),
				attribute.String("http.ip", c.IP()),
			),
		)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		c.Locals("traceID", traceID)
		c.Set("X-Trace-ID", traceID)
		if requestID := c.Locals("requestid"); requestID != nil {
			span.SetAttributes(attribute.String("request.id", fmt.Sprintf("%v", requestID)))
		}

		c.SetUserContext(ctx)

		err := c.Next()

		if route := c.Route(); route != nil && route.Path != "/" {
			span.SetName(c.Method() + " " + route.Path)
			span.SetAttributes(attribute.String("http.route", route.Path))
			span.SetAttributes(contentAttributes(c, route)...)
		}
		span.SetAttributes(attribute.Int("http.status_code", c.Response().StatusCode()))
		if err != nil {
			span.RecordError(err)
		}
		if userID := c.Locals("userID"); userID != nil {
			span.SetAttributes(attribute.String("user.id", fmt.Sprintf("%v", userID)))
		}

		return err
	}
}

// contentAttributes names the content a route addressed: designs by public
// id, everything else by numeric id keyed on the segment before ":id".
func contentAttributes(c *fiber.Ctx, route *fiber.Route) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for _, name := range route.Params {
		value := c.Params(name)
		if value == "" {
			continue
		}
		switch name {
		case "publicID":
			attrs = append(attrs, attribute.String("vexillum.design.public_id", utils.CopyString(value)))
		case "id":
			if kind := resourceKind(route.Path); kind != "" {
				attrs = append(attrs, attribute.String("vexillum."+kind+".id", utils.CopyString(value)))
			}
		}
	}
	return attrs
}

// resourceKind maps "/api/admin/posts/:id/convert" to "post".
func resourceKind(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		if seg == ":id" && i > 0 {
			return strings.TrimSuffix(segments[i-1], "s")
		}
	}
	return ""
}
