package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/templatehub/internal/repository"
)

type ProfileHandler struct {
	Profiles *repository.ProfileRepo
}

func NewProfileHandler(p *repository.ProfileRepo) *ProfileHandler {
	if p == nil {
		panic("nil repository passed to NewProfileHandler")
	}
	return &ProfileHandler{Profiles: p}
}

// profilePatch holds the editable profile fields.  Absent fields keep their
// current value; an empty string clears an optional field and an empty
// interests array clears the interests.
type profilePatch struct {
	DisplayName         *string   `json:"display_name" validate:"omitempty,min=1,max=100"`
	Bio                 *string   `json:"bio" validate:"omitempty,max=1000"`
	AvatarURL           *string   `json:"avatar_url" validate:"omitempty,max=500"`
	OnboardingCompleted *bool     `json:"onboarding_completed"`
	ExperienceLevel     *string   `json:"experience_level"`
	Interests           []string  `json:"interests" validate:"omitempty,max=20,dive,max=40"`
}

var experienceLevels = map[string]bool{"beginner": true, "intermediate": true, "advanced": true}

// GetProfile handles GET /v1/profiles/:id.
func (h *ProfileHandler) GetProfile(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	p, err := h.Profiles.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return notFound(c, "profile not found")
		}
		return serverError("load profile failed", err)
	}
	return c.JSON(http.StatusOK, p)
}

// UpdateMyProfile handles PATCH /v1/me/profile.
func (h *ProfileHandler) UpdateMyProfile(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body profilePatch
	if err := bindValid(c, &body); err != nil {
		return err
	}
	ctx := c.Request().Context()
	p, err := h.Profiles.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return notFound(c, "profile not found")
		}
		return serverError("load profile failed", err)
	}
	if body.DisplayName != nil {
		name := strings.TrimSpace(*body.DisplayName)
		if name == "" {
			return badRequest(c, "display_name cannot be empty")
		}
		p.DisplayName = name
	}
	if body.Bio != nil {
		p.Bio = optional(*body.Bio)
	}
	if body.AvatarURL != nil {
		p.AvatarURL = optional(*body.AvatarURL)
	}
	if body.ExperienceLevel != nil {
		level := optional(strings.ToLower(*body.ExperienceLevel))
		if level != nil && !experienceLevels[*level] {
			return badRequest(c, "experience_level must be one of: beginner intermediate advanced")
		}
		p.ExperienceLevel = level
	}
	if body.OnboardingCompleted != nil {
		p.OnboardingCompleted = *body.OnboardingCompleted
	}
	if body.Interests != nil {
		p.Interests = cleanList(body.Interests)
	}
	if err := h.Profiles.Update(ctx, p); err != nil {
		return serverError("update profile failed", err)
	}
	return c.JSON(http.StatusOK, p)
}

// optional trims s and maps the empty string to nil.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// cleanList lowercases, trims and de-duplicates items, dropping empties and
// commas (lists are stored comma separated).
func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		it = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(it, ",", " ")))
		if it == "" {
			continue
		}
		if _, dup := seen[it]; dup {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
