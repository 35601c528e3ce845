package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/templatehub/internal/handler"
	"github.com/iliyamo/templatehub/internal/middleware"
	"github.com/iliyamo/templatehub/internal/model"
)

// RegisterAdmin registers moderation and analytics endpoints.  Every route
// requires a valid JWT and the admin role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, an *handler.AnalyticsHandler, l limits) {
	g := e.Group(
		"/v1/admin",
		l.auth,
		middleware.RequireRole(model.RoleAdmin),
	)
	g.GET("/users", a.ListUsers)
	g.PATCH("/users/:id/role", a.UpdateUserRole)
	g.GET("/templates", a.ListTemplates)
	g.PATCH("/templates/:id/status", a.UpdateTemplateStatus)
	g.DELETE("/templates/:id", a.DeleteTemplate)
	g.GET("/analytics/overview", an.Overview)
}
