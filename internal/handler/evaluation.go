package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/templatehub/internal/model"
	"github.com/iliyamo/templatehub/internal/realtime"
	"github.com/iliyamo/templatehub/internal/repository"
)

type EvaluationHandler struct {
	Templates   *repository.TemplateRepo
	Evaluations *repository.EvaluationRepo
	Events      Emitter
}

func NewEvaluationHandler(t *repository.TemplateRepo, e *repository.EvaluationRepo, events Emitter) *EvaluationHandler {
	if t == nil || e == nil || events == nil {
		panic("nil dependency passed to NewEvaluationHandler")
	}
	return &EvaluationHandler{Templates: t, Evaluations: e, Events: events}
}

// Scores are pointers so that a missing score is told apart from a zero.
type evaluationReq struct {
	CodeQuality   *uint8  `json:"code_quality" validate:"required,max=10"`
	Design        *uint8  `json:"design" validate:"required,max=10"`
	Functionality *uint8  `json:"functionality" validate:"required,max=10"`
	Documentation *uint8  `json:"documentation" validate:"required,max=10"`
	Performance   *uint8  `json:"performance" validate:"required,max=10"`
	Overall       *uint8  `json:"overall" validate:"required,max=10"`
	Feedback      *string `json:"feedback" validate:"omitempty,max=5000"`
}

// UpsertEvaluation handles PUT /v1/templates/:id/evaluation.  The caller's
// previous evaluation of the template, if any, is replaced.
func (h *EvaluationHandler) UpsertEvaluation(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	templateID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req evaluationReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := h.Templates.GetByID(ctx, templateID); err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			return notFound(c, "template not found")
		}
		return serverError("could not load template", err)
	}
	ev := &model.Evaluation{
		TemplateID:    templateID,
		EvaluatorID:   uid,
		CodeQuality:   *req.CodeQuality,
		Design:        *req.Design,
		Functionality: *req.Functionality,
		Documentation: *req.Documentation,
		Performance:   *req.Performance,
		Overall:       *req.Overall,
	}
	if req.Feedback != nil {
		ev.Feedback = optional(strings.TrimSpace(*req.Feedback))
	}
	created, err := h.Evaluations.Upsert(ctx, ev)
	if err != nil {
		return serverError("could not save evaluation", err)
	}
	status, typ := http.StatusOK, realtime.Update
	if created {
		status, typ = http.StatusCreated, realtime.Insert
	}
	h.Events.Emit(realtime.TopicEvaluations, typ, ev.ID, ev)
	return c.JSON(status, ev)
}

// ListEvaluations handles GET /v1/templates/:id/evaluations.
func (h *EvaluationHandler) ListEvaluations(c echo.Context) error {
	templateID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	items, err := h.Evaluations.ListByTemplate(c.Request().Context(), templateID)
	if err != nil {
		return serverError("could not list evaluations", err)
	}
	return c.JSON(http.StatusOK, items)
}

// EvaluationSummary handles GET /v1/templates/:id/evaluations/summary.
func (h *EvaluationHandler) EvaluationSummary(c echo.Context) error {
	templateID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	s, err := h.Evaluations.Summary(c.Request().Context(), templateID)
	if err != nil {
		return serverError("could not summarise evaluations", err)
	}
	return c.JSON(http.StatusOK, s)
}
