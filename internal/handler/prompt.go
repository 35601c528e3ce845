package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/templatehub/internal/model"
	"github.com/iliyamo/templatehub/internal/repository"
)

// PromptHandler serves the prompt toolkit.  Prompts are private to their
// owner.
type PromptHandler struct {
	Prompts *repository.PromptRepo
}

func NewPromptHandler(p *repository.PromptRepo) *PromptHandler {
	if p == nil {
		panic("nil repository passed to NewPromptHandler")
	}
	return &PromptHandler{Prompts: p}
}

type promptReq struct {
	Name         string   `json:"name" validate:"required,max=120"`
	Model        string   `json:"model" validate:"required,max=80"`
	SystemPrompt string   `json:"system_prompt" validate:"max=20000"`
	UserPrompt   string   `json:"user_prompt" validate:"required,max=20000"`
	Temperature  *float64 `json:"temperature" validate:"omitempty,gte=0,lte=2"`
	MaxTokens    uint32   `json:"max_tokens" validate:"omitempty,min=1,max=200000"`
	Rating       *uint8   `json:"rating" validate:"omitempty,min=1,max=5"`
}

type promptPatch struct {
	Name         *string  `json:"name" validate:"omitempty,min=1,max=120"`
	Model        *string  `json:"model" validate:"omitempty,min=1,max=80"`
	SystemPrompt *string  `json:"system_prompt" validate:"omitempty,max=20000"`
	UserPrompt   *string  `json:"user_prompt" validate:"omitempty,min=1,max=20000"`
	Temperature  *float64 `json:"temperature" validate:"omitempty,gte=0,lte=2"`
	MaxTokens    *uint32  `json:"max_tokens" validate:"omitempty,min=1,max=200000"`
	Rating       *uint8   `json:"rating" validate:"omitempty,min=1,max=5"`
}

// ListPrompts handles GET /v1/prompts, favorites first.
func (h *PromptHandler) ListPrompts(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	items, err := h.Prompts.List(c.Request().Context(), uid)
	if err != nil {
		return serverError("could not list prompts", err)
	}
	return c.JSON(http.StatusOK, items)
}

// CreatePrompt handles POST /v1/prompts.
func (h *PromptHandler) CreatePrompt(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req promptReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	p := &model.PromptConfig{
		UserID:       uid,
		Name:         strings.TrimSpace(req.Name),
		Model:        strings.TrimSpace(req.Model),
		SystemPrompt: req.SystemPrompt,
		UserPrompt:   req.UserPrompt,
		Temperature:  0.7,
		MaxTokens:    1024,
		Rating:       req.Rating,
	}
	if req.Temperature != nil {
		p.Temperature = *req.Temperature
	}
	if req.MaxTokens > 0 {
		p.MaxTokens = req.MaxTokens
	}
	if err := h.Prompts.Create(c.Request().Context(), p); err != nil {
		return serverError("could not save prompt", err)
	}
	return c.JSON(http.StatusCreated, p)
}

// UpdatePrompt handles PATCH /v1/prompts/:id.
func (h *PromptHandler) UpdatePrompt(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var body promptPatch
	if err := bindValid(c, &body); err != nil {
		return err
	}
	ctx := c.Request().Context()
	p, err := h.Prompts.Get(ctx, uid, id)
	if err != nil {
		if errors.Is(err, repository.ErrPromptNotFound) {
			return notFound(c, "prompt not found")
		}
		return serverError("could not load prompt", err)
	}
	if body.Name != nil {
		p.Name = strings.TrimSpace(*body.Name)
	}
	if body.Model != nil {
		p.Model = strings.TrimSpace(*body.Model)
	}
	if body.SystemPrompt != nil {
		p.SystemPrompt = *body.SystemPrompt
	}
	if body.UserPrompt != nil {
		p.UserPrompt = *body.UserPrompt
	}
	if body.Temperature != nil {
		p.Temperature = *body.Temperature
	}
	if body.MaxTokens != nil {
		p.MaxTokens = *body.MaxTokens
	}
	if body.Rating != nil {
		p.Rating = body.Rating
	}
	if err := h.Prompts.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrPromptNotFound) {
			return notFound(c, "prompt not found")
		}
		return serverError("could not update prompt", err)
	}
	return c.JSON(http.StatusOK, p)
}

// ToggleFavorite handles POST /v1/prompts/:id/favorite.
func (h *PromptHandler) ToggleFavorite(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	fav, err := h.Prompts.ToggleFavorite(c.Request().Context(), uid, id)
	if err != nil {
		if errors.Is(err, repository.ErrPromptNotFound) {
			return notFound(c, "prompt not found")
		}
		return serverError("could not update prompt", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "is_favorite": fav})
}

// DeletePrompt handles DELETE /v1/prompts/:id.
func (h *PromptHandler) DeletePrompt(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.Prompts.Delete(c.Request().Context(), uid, id); err != nil {
		if errors.Is(err, repository.ErrPromptNotFound) {
			return notFound(c, "prompt not found")
		}
		return serverError("could not delete prompt", err)
	}
	return c.NoContent(http.StatusNoContent)
}
