package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/totegamma/peerreview/internal/domain"
)

var (
	tracer = otel.Tracer("requester")
	log    = log15.New("module", "http")
)

// Identify trusts the requester id set by the upstream auth gateway and
// stores it, with the trace id, on the request context.
func Identify(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Requester.Middleware.Identify")
		defer span.End()

		requester := strings.TrimSpace(c.Request().Header.Get(domain.RequesterIdHeader))
		if requester != "" {
			ctx = context.WithValue(ctx, domain.RequesterIdCtxKey, requester)
			span.SetAttributes(attribute.String("RequesterId", requester))
		}

		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			traceID := sc.TraceID().String()
			ctx = context.WithValue(ctx, domain.RequestTraceCtxKey, traceID)
			c.Response().Header().Set("trace-id", traceID)
		}

		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// AccessLog writes one log15 line per request.
func AccessLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		req := c.Request()
		traceID, _ := req.Context().Value(domain.RequestTraceCtxKey).(string)
		log.Info("request",
			"method", req.Method,
			"path", c.Path(),
			"status", c.Response().Status,
			"latency", time.Since(start),
			"requester", Requester(req.Context()),
			"trace", traceID,
		)
		return nil
	}
}

// Requester returns the id stored by Identify, or "".
func Requester(ctx context.Context) string {
	requester, _ := ctx.Value(domain.RequesterIdCtxKey).(string)
	return requester
}
