package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/templatehub/internal/comments"
	"github.com/iliyamo/templatehub/internal/email"
	"github.com/iliyamo/templatehub/internal/model"
	"github.com/iliyamo/templatehub/internal/repository"
)

const excerptRunes = 140

type CommentHandler struct {
	Templates *repository.TemplateRepo
	Comments  *repository.CommentRepo
	Notify    Notifier
	Log       logrus.FieldLogger
}

func NewCommentHandler(t *repository.TemplateRepo, cr *repository.CommentRepo, n Notifier, log logrus.FieldLogger) *CommentHandler {
	if t == nil || cr == nil || n == nil {
		panic("nil dependency passed to NewCommentHandler")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CommentHandler{Templates: t, Comments: cr, Notify: n, Log: log}
}

type commentReq struct {
	Content  string  `json:"content" validate:"required,max=5000"`
	ParentID *uint64 `json:"parent_id" validate:"omitempty,gt=0"`
}

// ListComments handles GET /v1/templates/:id/comments and returns the
// threaded tree.
func (h *CommentHandler) ListComments(c echo.Context) error {
	templateID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	flat, err := h.Comments.ListByTemplate(c.Request().Context(), templateID)
	if err != nil {
		return serverError("could not list comments", err)
	}
	roots := comments.BuildThread(flat)
	return c.JSON(http.StatusOK, echo.Map{"count": comments.Count(roots), "comments": roots})
}

// CreateComment handles POST /v1/templates/:id/comments.  Replying to
// someone else's comment notifies its author.
func (h *CommentHandler) CreateComment(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	templateID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req commentReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return badRequest(c, "content is required")
	}
	ctx := c.Request().Context()
	t, err := h.Templates.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			return notFound(c, "template not found")
		}
		return serverError("could not load template", err)
	}

	cm := &model.Comment{TemplateID: templateID, AuthorID: uid, ParentID: req.ParentID, Content: content}
	if err := h.Comments.Create(ctx, cm); err != nil {
		if errors.Is(err, repository.ErrCommentNotFound) {
			return badRequest(c, "parent comment not found on this template")
		}
		return serverError("could not create comment", err)
	}

	// the reply is stored; a failed parent lookup only skips the notification
	if cm.ParentID != nil {
		parent, err := h.Comments.GetByID(ctx, *cm.ParentID)
		switch {
		case err != nil:
			h.Log.WithError(err).WithFields(logrus.Fields{"comment_id": cm.ID, "parent_id": *cm.ParentID}).
				Warn("load parent comment for reply notification")
		case parent.AuthorID != uid:
			h.notifyReply(c, t, parent, cm)
		}
	}
	return c.JSON(http.StatusCreated, cm)
}

func (h *CommentHandler) notifyReply(c echo.Context, t *model.Template, parent, reply *model.Comment) {
	ctx := c.Request().Context()
	replier := reply.AuthorName
	if replier == "" {
		replier = "Someone"
	}
	excerpt := truncate(reply.Content, excerptRunes)
	h.Notify.Notify(ctx, parent.AuthorID, model.NotificationCommentReply,
		fmt.Sprintf("%s replied to your comment", replier),
		fmt.Sprintf("On %q: %s", t.Title, excerpt))
	h.Notify.Email(ctx, parent.AuthorID, email.KindCommentReply, func(name string) any {
		return email.CommentReplyData{
			Name:          name,
			ReplierName:   replier,
			TemplateID:    t.ID,
			TemplateTitle: t.Title,
			Excerpt:       excerpt,
		}
	})
}

// DeleteComment handles DELETE /v1/comments/:id for the author or an admin.
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx := c.Request().Context()
	cm, err := h.Comments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCommentNotFound) {
			return notFound(c, "comment not found")
		}
		return serverError("could not load comment", err)
	}
	if cm.AuthorID != uid && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you can only delete your own comments"})
	}
	if err := h.Comments.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCommentNotFound) {
			return notFound(c, "comment not found")
		}
		return serverError("could not delete comment", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n])) + "…"
}
