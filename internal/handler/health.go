package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Health reports liveness: it answers as long as the process serves HTTP.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// ReadyHandler reports whether the backing stores answer.  Redis is
// optional; a nil client is reported as "disabled".
type ReadyHandler struct {
	DB    *sql.DB
	Redis *redis.Client
}

func NewReadyHandler(db *sql.DB, rdb *redis.Client) *ReadyHandler {
	if db == nil {
		panic("nil database passed to NewReadyHandler")
	}
	return &ReadyHandler{DB: db, Redis: rdb}
}

func (h *ReadyHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := echo.Map{"database": "ok", "redis": "disabled"}
	if err := h.DB.PingContext(ctx); err != nil {
		status = http.StatusServiceUnavailable
		checks["database"] = err.Error()
	}
	if h.Redis != nil {
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			status = http.StatusServiceUnavailable
			checks["redis"] = err.Error()
		} else {
			checks["redis"] = "ok"
		}
	}
	return c.JSON(status, checks)
}
