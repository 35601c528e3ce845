package middleware

import (
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/templatehub/internal/metrics"
)

// RequestIDHeader carries the request id to and from clients.
const RequestIDHeader = "X-Request-ID"

// RequestLogger assigns every request an id (reusing a client supplied
// one), logs one structured line when it completes and records HTTP
// metrics.  user_id is read after the handler returns, so route level
// JWTAuth is reflected in the log line.
func RequestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            rid := c.Request().Header.Get(RequestIDHeader)
            if rid == "" {
                rid = uuid.NewString()
            }
            c.Set("request_id", rid)
            c.Response().Header().Set(RequestIDHeader, rid)

            err := next(c)
            if err != nil {
                // let Echo write the error response so the status is final
                c.Error(err)
            }

            status := c.Response().Status
            route := c.Path()
            if route == "" {
                route = "unmatched"
            }
            latency := time.Since(start)
            metrics.RecordRequest(c.Request().Method, route, status, latency)

            entry := log.WithFields(logrus.Fields{
                "request_id": rid,
                "method":     c.Request().Method,
                "route":      route,
                "path":       c.Request().URL.Path,
                "status":     status,
                "latency_ms": latency.Milliseconds(),
                "ip":         c.RealIP(),
                "user_id":    currentUserID(c),
            })
            if err != nil {
                entry = entry.WithError(err)
            }
            switch {
            case status >= 500:
                entry.Error("request failed")
            case status >= 400:
                entry.Warn("request rejected")
            default:
                entry.Info("request served")
            }
            return nil
        }
    }
}
