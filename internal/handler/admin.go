package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/templatehub/internal/email"
	"github.com/iliyamo/templatehub/internal/model"
	"github.com/iliyamo/templatehub/internal/realtime"
	"github.com/iliyamo/templatehub/internal/repository"
)

// AdminHandler serves the admin panel.  Routes are gated by
// RequireRole(admin).
type AdminHandler struct {
	Users     *repository.UserRepo
	Templates *repository.TemplateRepo
	Events    Emitter
	Notify    Notifier
}

func NewAdminHandler(u *repository.UserRepo, t *repository.TemplateRepo, events Emitter, n Notifier) *AdminHandler {
	if u == nil || t == nil || events == nil || n == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Users: u, Templates: t, Events: events, Notify: n}
}

// ListUsers handles GET /v1/admin/users?page=&page_size=.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	page := max(queryInt(c, "page", 1), 1)
	size := min(max(queryInt(c, "page_size", 50), 1), 200)
	users, err := h.Users.List(c.Request().Context(), size, (page-1)*size)
	if err != nil {
		return serverError("could not list users", err)
	}
	return c.JSON(http.StatusOK, users)
}

type roleReq struct {
	Role string `json:"role" validate:"required,oneof=user evaluator admin"`
}

// UpdateUserRole handles PATCH /v1/admin/users/:id/role.  Admins cannot
// change their own role, so the panel always keeps at least one admin.
func (h *AdminHandler) UpdateUserRole(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req roleReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	if id == uid {
		return c.JSON(http.StatusConflict, echo.Map{"error": "you cannot change your own role"})
	}
	if err := h.Users.UpdateRole(c.Request().Context(), id, req.Role); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return notFound(c, "user not found")
		}
		return serverError("could not update role", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "role": req.Role})
}

// ListTemplates handles GET /v1/admin/templates?status=pending.
func (h *AdminHandler) ListTemplates(c echo.Context) error {
	status := c.QueryParam("status")
	if status == "" {
		status = model.TemplateStatusPending
	}
	if !model.ValidTemplateStatus(status) {
		return badRequest(c, "status must be one of: pending approved rejected")
	}
	items, total, err := h.Templates.List(c.Request().Context(), model.TemplateFilter{
		Status:   status,
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 50),
	})
	if err != nil {
		return serverError("could not list templates", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "total": total})
}

type statusReq struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected"`
}

// UpdateTemplateStatus handles PATCH /v1/admin/templates/:id/status.
// Approval tells the submitter their template has been generated.
func (h *AdminHandler) UpdateTemplateStatus(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req statusReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	err := h.Templates.UpdateStatus(ctx, id, req.Status)
	unchanged := errors.Is(err, repository.ErrNoChange)
	if err != nil && !unchanged {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			return notFound(c, "template not found")
		}
		return serverError("could not update status", err)
	}
	t, err := h.Templates.GetByID(ctx, id)
	if err != nil {
		return serverError("could not load template", err)
	}
	if unchanged {
		return c.JSON(http.StatusOK, t)
	}
	h.Events.Emit(realtime.TopicTemplates, realtime.Update, t.ID, t)

	h.Notify.Notify(ctx, t.SubmitterID, model.NotificationTemplate,
		fmt.Sprintf("Template %s", t.Status),
		fmt.Sprintf("Your template %q is now %s.", t.Title, t.Status))
	if t.Status == model.TemplateStatusApproved {
		h.Notify.Email(ctx, t.SubmitterID, email.KindGenerationComplete, func(name string) any {
			return email.GenerationCompleteData{Name: name, TemplateID: t.ID, TemplateTitle: t.Title}
		})
	}
	return c.JSON(http.StatusOK, t)
}

// DeleteTemplate handles DELETE /v1/admin/templates/:id.
func (h *AdminHandler) DeleteTemplate(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.Templates.Delete(c.Request().Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrTemplateNotFound):
			return notFound(c, "template not found")
		case errors.Is(err, repository.ErrTemplateHasSales):
			return c.JSON(http.StatusConflict, echo.Map{"error": "template has purchases and cannot be deleted; reject it instead"})
		}
		return serverError("could not delete template", err)
	}
	h.Events.Emit(realtime.TopicTemplates, realtime.Delete, id, nil)
	return c.NoContent(http.StatusNoContent)
}
