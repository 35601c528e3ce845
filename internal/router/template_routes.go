package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/templatehub/internal/model"
	"github.com/iliyamo/templatehub/internal/middleware"
)

// RegisterTemplates registers template browsing and submission together
// with the evaluations, comments and analytics hanging off a template.
// Reads are public; GET /v1/templates/:id also accepts a token so that
// submitters can see their own pending work.
func RegisterTemplates(e *echo.Echo, h Handlers, l limits) {
	t := h.Templates
	pub := e.Group("/v1")
	pub.GET("/templates", t.ListTemplates, l.cache)
	pub.GET("/templates/live", t.LiveTemplates)
	pub.GET("/templates/:id", t.GetTemplate, l.optional)
	pub.GET("/templates/:id/evaluations", h.Evaluations.ListEvaluations)
	pub.GET("/templates/:id/evaluations/summary", h.Evaluations.EvaluationSummary, l.cache)
	pub.GET("/templates/:id/comments", h.Comments.ListComments)
	pub.GET("/templates/:id/analytics", h.Analytics.TemplateAnalytics, l.cache)
	pub.GET("/leaderboard", h.Analytics.Leaderboard, l.cache)
	pub.GET("/users/:id/reputation", h.Analytics.Reputation)

	g := e.Group("/v1", l.auth)
	g.POST("/templates", t.CreateTemplate)
	g.PATCH("/templates/:id", t.UpdateTemplate)
	g.GET("/my/templates", t.MyTemplates)
	g.POST("/templates/:id/comments", h.Comments.CreateComment)
	g.DELETE("/comments/:id", h.Comments.DeleteComment)
	g.PUT("/templates/:id/evaluation", h.Evaluations.UpsertEvaluation,
		middleware.RequireRole(model.RoleEvaluator, model.RoleAdmin))
}
