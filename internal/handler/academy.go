package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/templatehub/internal/email"
	"github.com/iliyamo/templatehub/internal/model"
	"github.com/iliyamo/templatehub/internal/repository"
)

// maxSyncBatch bounds how many tutorial records one sync may carry.
const maxSyncBatch = 100

// AcademyHandler syncs tutorial progress cached in browsers with the
// authoritative server copy.
type AcademyHandler struct {
	Academy *repository.AcademyRepo
	Notify  Notifier
	now     func() time.Time
}

func NewAcademyHandler(a *repository.AcademyRepo, n Notifier) *AcademyHandler {
	if a == nil || n == nil {
		panic("nil dependency passed to NewAcademyHandler")
	}
	return &AcademyHandler{Academy: a, Notify: n, now: time.Now}
}

type progressRecord struct {
	TutorialID     string     `json:"tutorial_id" validate:"required,max=100"`
	CompletedSteps uint32     `json:"completed_steps" validate:"max=1000"`
	TotalSteps     uint32     `json:"total_steps" validate:"max=1000"`
	CompletedAt    *time.Time `json:"completed_at"`
}

type syncReq struct {
	Progress []progressRecord `json:"progress" validate:"required,max=100,dive"`
}

// SyncProgress handles PUT /v1/academy/progress.  The response carries the
// merged state of every submitted tutorial and any certificate the sync
// earned.
func (h *AcademyHandler) SyncProgress(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req syncReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	batch, err := dedupeProgress(req.Progress)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx := c.Request().Context()
	merged, issued, err := h.Academy.Sync(ctx, uid, batch, h.now().UTC())
	if err != nil {
		return serverError("could not sync progress", err)
	}
	for _, cert := range issued {
		h.Notify.Notify(ctx, uid, model.NotificationCertificate,
			"Certificate earned",
			fmt.Sprintf("You completed %s. Certificate %s.", cert.TutorialID, cert.Code))
		h.Notify.Email(ctx, uid, email.KindCertification, func(name string) any {
			return email.CertificationData{Name: name, TutorialID: cert.TutorialID, CertificateCode: cert.Code}
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"progress": merged, "certificates": issued})
}

// dedupeProgress folds repeated tutorial ids into one record, keeping the
// furthest progress, so a batch locks each row once.
func dedupeProgress(in []progressRecord) ([]model.TutorialProgress, error) {
	if len(in) > maxSyncBatch {
		return nil, fmt.Errorf("at most %d records per sync", maxSyncBatch)
	}
	out := make([]model.TutorialProgress, 0, len(in))
	index := map[string]int{}
	for _, r := range in {
		id := strings.TrimSpace(r.TutorialID)
		if id == "" {
			return nil, fmt.Errorf("tutorial_id is required")
		}
		p := model.TutorialProgress{TutorialID: id, CompletedSteps: r.CompletedSteps, TotalSteps: r.TotalSteps, CompletedAt: r.CompletedAt}
		i, seen := index[id]
		if !seen {
			index[id] = len(out)
			out = append(out, p)
			continue
		}
		prev := &out[i]
		prev.CompletedSteps = max(prev.CompletedSteps, p.CompletedSteps)
		prev.TotalSteps = max(prev.TotalSteps, p.TotalSteps)
		if p.CompletedAt != nil && (prev.CompletedAt == nil || p.CompletedAt.Before(*prev.CompletedAt)) {
			prev.CompletedAt = p.CompletedAt
		}
	}
	return out, nil
}

// ListProgress handles GET /v1/academy/progress.
func (h *AcademyHandler) ListProgress(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	items, err := h.Academy.ListProgress(c.Request().Context(), uid)
	if err != nil {
		return serverError("could not load progress", err)
	}
	return c.JSON(http.StatusOK, items)
}

// ListCertificates handles GET /v1/academy/certificates.
func (h *AcademyHandler) ListCertificates(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	items, err := h.Academy.ListCertificates(c.Request().Context(), uid)
	if err != nil {
		return serverError("could not load certificates", err)
	}
	return c.JSON(http.StatusOK, items)
}

// ListBadges handles GET /v1/academy/badges.
func (h *AcademyHandler) ListBadges(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	items, err := h.Academy.ListBadges(c.Request().Context(), uid)
	if err != nil {
		return serverError("could not load badges", err)
	}
	return c.JSON(http.StatusOK, items)
}
