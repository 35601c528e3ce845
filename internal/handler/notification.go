package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/templatehub/internal/repository"
)

type NotificationHandler struct {
	Notifications *repository.NotificationRepo
}

func NewNotificationHandler(n *repository.NotificationRepo) *NotificationHandler {
	if n == nil {
		panic("nil repository passed to NewNotificationHandler")
	}
	return &NotificationHandler{Notifications: n}
}

// ListNotifications handles GET /v1/notifications?unread=true&limit=50.
func (h *NotificationHandler) ListNotifications(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	unread := c.QueryParam("unread") == "true" || c.QueryParam("unread") == "1"
	items, err := h.Notifications.ListByUser(c.Request().Context(), uid, unread, queryInt(c, "limit", 50))
	if err != nil {
		return serverError("could not list notifications", err)
	}
	return c.JSON(http.StatusOK, items)
}

// MarkRead handles POST /v1/notifications/:id/read.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.Notifications.MarkRead(c.Request().Context(), uid, id); err != nil {
		if errors.Is(err, repository.ErrNotificationAbsent) {
			return notFound(c, "notification not found")
		}
		return serverError("could not update notification", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkAllRead handles POST /v1/notifications/read-all.
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	n, err := h.Notifications.MarkAllRead(c.Request().Context(), uid)
	if err != nil {
		return serverError("could not update notifications", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}

// GetEmailPreferences handles GET /v1/me/email-preferences.
func (h *NotificationHandler) GetEmailPreferences(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	p, err := h.Notifications.GetPreferences(c.Request().Context(), uid)
	if err != nil {
		return serverError("could not load preferences", err)
	}
	return c.JSON(http.StatusOK, p)
}

type preferencesReq struct {
	Welcome        *bool `json:"welcome"`
	CommentReplies *bool `json:"comment_replies"`
	Certifications *bool `json:"certifications"`
	WeeklyDigest   *bool `json:"weekly_digest"`
}

// UpdateEmailPreferences handles PUT /v1/me/email-preferences.  Omitted
// switches keep their stored value.
func (h *NotificationHandler) UpdateEmailPreferences(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req preferencesReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx := c.Request().Context()
	p, err := h.Notifications.GetPreferences(ctx, uid)
	if err != nil {
		return serverError("could not load preferences", err)
	}
	if req.Welcome != nil {
		p.Welcome = *req.Welcome
	}
	if req.CommentReplies != nil {
		p.CommentReplies = *req.CommentReplies
	}
	if req.Certifications != nil {
		p.Certifications = *req.Certifications
	}
	if req.WeeklyDigest != nil {
		p.WeeklyDigest = *req.WeeklyDigest
	}
	p.UserID = uid
	if err := h.Notifications.SavePreferences(ctx, p); err != nil {
		return serverError("could not save preferences", err)
	}
	return c.JSON(http.StatusOK, p)
}
