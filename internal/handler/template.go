package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/templatehub/internal/model"
	"github.com/iliyamo/templatehub/internal/realtime"
	"github.com/iliyamo/templatehub/internal/repository"
)

// galleryLimit bounds the number of approved templates held in memory.
const galleryLimit = 100

// TemplateHandler serves template submission and browsing.  Gallery is the
// approved list kept current by realtime change events.
type TemplateHandler struct {
	Templates *repository.TemplateRepo
	Events    Emitter
	Gallery   *realtime.LiveList[model.Template]
	Log       logrus.FieldLogger
}

func NewTemplateHandler(t *repository.TemplateRepo, events Emitter, log logrus.FieldLogger) *TemplateHandler {
	if t == nil || events == nil {
		panic("nil dependency passed to NewTemplateHandler")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TemplateHandler{
		Templates: t,
		Events:    events,
		Gallery: newGallery(),
		Log:     log,
	}
}

func newGallery() *realtime.LiveList[model.Template] {
	g := realtime.NewLiveList(func(t model.Template) bool {
		return t.Status == model.TemplateStatusApproved
	})
	g.Limit = galleryLimit
	return g
}

type templateReq struct {
	Title         string   `json:"title" validate:"required,min=3,max=200"`
	Description   string   `json:"description" validate:"required,max=5000"`
	Category      string   `json:"category" validate:"required,max=50"`
	Difficulty    string   `json:"difficulty" validate:"required,oneof=beginner intermediate advanced"`
	Tags          []string `json:"tags" validate:"max=20,dive,max=40"`
	PreviewURL    string   `json:"preview_url" validate:"omitempty,url,max=500"`
	DemoURL       string   `json:"demo_url" validate:"omitempty,url,max=500"`
	RepositoryURL string   `json:"repository_url" validate:"omitempty,url,max=500"`
}

type templatePatch struct {
	Title         *string  `json:"title" validate:"omitempty,min=3,max=200"`
	Description   *string  `json:"description" validate:"omitempty,max=5000"`
	Category      *string  `json:"category" validate:"omitempty,min=1,max=50"`
	Difficulty    *string  `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	Tags          []string `json:"tags" validate:"omitempty,max=20,dive,max=40"`
	PreviewURL    *string  `json:"preview_url" validate:"omitempty,max=500"`
	DemoURL       *string  `json:"demo_url" validate:"omitempty,max=500"`
	RepositoryURL *string  `json:"repository_url" validate:"omitempty,max=500"`
}

// LoadGallery seeds the live gallery with the newest approved templates,
// oldest first, so that later inserts append and the cap drops the oldest.
func (h *TemplateHandler) LoadGallery(ctx context.Context) error {
	items, _, err := h.Templates.List(ctx, model.TemplateFilter{Status: model.TemplateStatusApproved, PageSize: galleryLimit})
	if err != nil {
		return err
	}
	rows := make([]model.Template, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		rows = append(rows, *items[i])
	}
	h.Gallery.Reset(rows)
	return nil
}

// ApplyEvent is the realtime listener feeding the gallery.
func (h *TemplateHandler) ApplyEvent(e realtime.Event) {
	if err := h.Gallery.Apply(e); err != nil {
		h.Log.WithError(err).WithField("event_id", e.ID).Warn("apply template event")
	}
}

// CreateTemplate handles POST /v1/templates.  New templates wait for review.
func (h *TemplateHandler) CreateTemplate(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req templateReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	t := &model.Template{
		SubmitterID:   uid,
		Title:         strings.TrimSpace(req.Title),
		Description:   strings.TrimSpace(req.Description),
		Category:      strings.ToLower(strings.TrimSpace(req.Category)),
		Difficulty:    req.Difficulty,
		Tags:          cleanList(req.Tags),
		PreviewURL:    optional(req.PreviewURL),
		DemoURL:       optional(req.DemoURL),
		RepositoryURL: optional(req.RepositoryURL),
	}
	if err := h.Templates.Create(c.Request().Context(), t); err != nil {
		return serverError("could not create template", err)
	}
	h.Events.Emit(realtime.TopicTemplates, realtime.Insert, t.ID, t)
	return c.JSON(http.StatusCreated, t)
}

// ListTemplates handles GET /v1/templates: approved templates with filters.
func (h *TemplateHandler) ListTemplates(c echo.Context) error {
	f := model.TemplateFilter{
		Category:   strings.ToLower(strings.TrimSpace(c.QueryParam("category"))),
		Difficulty: strings.TrimSpace(c.QueryParam("difficulty")),
		Tag:        strings.TrimSpace(c.QueryParam("tag")),
		Search:     strings.TrimSpace(c.QueryParam("search")),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "page_size", 20),
	}
	items, total, err := h.Templates.List(c.Request().Context(), f)
	if err != nil {
		return serverError("could not list templates", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     items,
		"total":     total,
		"page":      max(f.Page, 1),
		"page_size": min(max(f.PageSize, 1), 100),
	})
}

// LiveTemplates handles GET /v1/templates/live.
func (h *TemplateHandler) LiveTemplates(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Gallery.Snapshot())
}

// GetTemplate handles GET /v1/templates/:id.  Templates under review or
// rejected are only visible to their submitter and to admins.
func (h *TemplateHandler) GetTemplate(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	t, err := h.Templates.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			return notFound(c, "template not found")
		}
		return serverError("could not load template", err)
	}
	if t.Status != model.TemplateStatusApproved && !isAdmin(c) {
		if uid, err := getUserID(c); err != nil || uid != t.SubmitterID {
			return notFound(c, "template not found")
		}
	}
	return c.JSON(http.StatusOK, t)
}

// UpdateTemplate handles PATCH /v1/templates/:id for the submitter.  Any
// edit sends the template back to review.
func (h *TemplateHandler) UpdateTemplate(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var body templatePatch
	if err := bindValid(c, &body); err != nil {
		return err
	}
	ctx := c.Request().Context()
	const denied = "Template not found or you don't have permission"
	t, err := h.Templates.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			return notFound(c, denied)
		}
		return serverError("could not load template", err)
	}
	if t.SubmitterID != uid {
		return notFound(c, denied)
	}
	applyTemplatePatch(t, body)

	err = h.Templates.UpdateByIDAndOwner(ctx, t, uid)
	switch {
	case err == nil, errors.Is(err, repository.ErrNoChange):
	case errors.Is(err, sql.ErrNoRows):
		return notFound(c, denied)
	default:
		return serverError("could not update template", err)
	}
	updated, err := h.Templates.GetByID(ctx, id)
	if err != nil {
		return serverError("could not load template", err)
	}
	h.Events.Emit(realtime.TopicTemplates, realtime.Update, updated.ID, updated)
	return c.JSON(http.StatusOK, updated)
}

func applyTemplatePatch(t *model.Template, p templatePatch) {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Category != nil {
		t.Category = strings.ToLower(strings.TrimSpace(*p.Category))
	}
	if p.Difficulty != nil {
		t.Difficulty = *p.Difficulty
	}
	if p.Tags != nil {
		t.Tags = cleanList(p.Tags)
	}
	if p.PreviewURL != nil {
		t.PreviewURL = optional(*p.PreviewURL)
	}
	if p.DemoURL != nil {
		t.DemoURL = optional(*p.DemoURL)
	}
	if p.RepositoryURL != nil {
		t.RepositoryURL = optional(*p.RepositoryURL)
	}
}

// MyTemplates handles GET /v1/my/templates.
func (h *TemplateHandler) MyTemplates(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	items, err := h.Templates.ListBySubmitter(c.Request().Context(), uid)
	if err != nil {
		return serverError("could not list templates", err)
	}
	return c.JSON(http.StatusOK, items)
}
