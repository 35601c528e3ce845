package router

import (
	"github.com/labstack/echo/v4"
)

// RegisterMember registers endpoints scoped to the signed-in user:
// profile, notifications, academy progress, saved prompts and the realtime
// socket.  Public profiles are the only anonymous route here.
func RegisterMember(e *echo.Echo, h Handlers, l limits) {
	e.GET("/v1/profiles/:id", h.Profiles.GetProfile)

	g := e.Group("/v1", l.auth)
	g.PATCH("/me/profile", h.Profiles.UpdateMyProfile)
	g.GET("/me/email-preferences", h.Notifications.GetEmailPreferences)
	g.PUT("/me/email-preferences", h.Notifications.UpdateEmailPreferences)

	g.GET("/notifications", h.Notifications.ListNotifications)
	g.POST("/notifications/read-all", h.Notifications.MarkAllRead)
	g.POST("/notifications/:id/read", h.Notifications.MarkRead)

	g.PUT("/academy/progress", h.Academy.SyncProgress)
	g.GET("/academy/progress", h.Academy.ListProgress)
	g.GET("/academy/certificates", h.Academy.ListCertificates)
	g.GET("/academy/badges", h.Academy.ListBadges)

	g.GET("/prompts", h.Prompts.ListPrompts)
	g.POST("/prompts", h.Prompts.CreatePrompt)
	g.PATCH("/prompts/:id", h.Prompts.UpdatePrompt)
	g.POST("/prompts/:id/favorite", h.Prompts.ToggleFavorite)
	g.DELETE("/prompts/:id", h.Prompts.DeletePrompt)

	// browsers pass the token as ?access_token= on the upgrade request
	g.GET("/realtime", h.Realtime.Connect)
	g.GET("/realtime/presence", h.Realtime.Presence)
}
