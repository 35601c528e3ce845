package handler

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/templatehub/internal/email"
	"github.com/iliyamo/templatehub/internal/model"
	"github.com/iliyamo/templatehub/internal/repository"
)

var commentCols = []string{"id", "template_id", "author_id", "display_name", "parent_id", "content", "created_at", "updated_at"}

var templateCols = []string{"id", "submitter_id", "title", "description", "category", "difficulty", "tags",
	"status", "preview_url", "demo_url", "repository_url", "created_at", "updated_at"}

func templateRow(id, submitter uint64, title, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(templateCols).
		AddRow(id, submitter, title, "desc", "landing", "beginner", "react,tailwind", status, nil, nil, nil, now, now)
}

func newCommentTest(t *testing.T) (*CommentHandler, sqlmock.Sqlmock, *fakeNotifier) {
	t.Helper()
	db, mock := newMock(t)
	n := &fakeNotifier{}
	return NewCommentHandler(repository.NewTemplateRepo(db), repository.NewCommentRepo(db), n, nil), mock, n
}

func TestListCommentsReturnsThread(t *testing.T) {
	h, mock, _ := newCommentTest(t)
	e := newTestEcho()
	e.GET("/templates/:id/comments", h.ListComments)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`WHERE c.template_id = \? ORDER BY c.created_at, c.id`).
		WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows(commentCols).
			AddRow(1, 10, 4, "Ada", nil, "first", base, base).
			AddRow(2, 10, 7, "Grace", 1, "reply", base.Add(time.Minute), base.Add(time.Minute)).
			AddRow(3, 10, 4, "Ada", nil, "second", base.Add(2*time.Minute), base.Add(2*time.Minute)).
			AddRow(4, 10, 4, "Ada", 2, "nested", base.Add(3*time.Minute), base.Add(3*time.Minute)))

	rec := doJSON(e, http.MethodGet, "/templates/10/comments", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.EqualValues(t, 4, body["count"])

	roots := body["comments"].([]any)
	require.Len(t, roots, 2)
	first := roots[0].(map[string]any)
	assert.EqualValues(t, 1, first["id"])
	replies := first["replies"].([]any)
	require.Len(t, replies, 1)
	nested := replies[0].(map[string]any)["replies"].([]any)
	require.Len(t, nested, 1)
	assert.EqualValues(t, 4, nested[0].(map[string]any)["id"])
	assert.Empty(t, roots[1].(map[string]any)["replies"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplyNotifiesParentAuthor(t *testing.T) {
	h, mock, n := newCommentTest(t)
	e := newTestEcho()
	e.POST("/templates/:id/comments", h.CreateComment, as(7, model.RoleUser))

	now := time.Now()
	mock.ExpectQuery(`FROM templates t WHERE t.id = \?`).
		WithArgs(uint64(10)).
		WillReturnRows(templateRow(10, 4, "Landing page", model.TemplateStatusApproved))
	mock.ExpectQuery(`SELECT template_id FROM comments WHERE id = \?`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"template_id"}).AddRow(10))
	mock.ExpectExec(`INSERT INTO comments`).
		WithArgs(uint64(10), uint64(7), uint64(3), "Nice work").
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectQuery(`WHERE c.id = \?`).
		WithArgs(uint64(21)).
		WillReturnRows(sqlmock.NewRows(commentCols).AddRow(21, 10, 7, "Grace", 3, "Nice work", now, now))
	mock.ExpectQuery(`WHERE c.id = \?`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(commentCols).AddRow(3, 10, 4, "Ada", nil, "Thoughts?", now, now))

	rec := doJSON(e, http.MethodPost, "/templates/10/comments", `{"content":"  Nice work ","parent_id":3}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, n.notifications, 1)
	assert.Equal(t, uint64(4), n.notifications[0].UserID)
	assert.Equal(t, model.NotificationCommentReply, n.notifications[0].Kind)
	assert.Equal(t, "Grace replied to your comment", n.notifications[0].Title)

	require.Len(t, n.emails, 1)
	assert.Equal(t, email.KindCommentReply, n.emails[0].Kind)
	assert.Equal(t, email.CommentReplyData{
		Name: "Ada", ReplierName: "Grace", TemplateID: 10, TemplateTitle: "Landing page", Excerpt: "Nice work",
	}, n.emails[0].Data)
}

func TestReplyToOwnCommentIsSilent(t *testing.T) {
	h, mock, n := newCommentTest(t)
	e := newTestEcho()
	e.POST("/templates/:id/comments", h.CreateComment, as(4, model.RoleUser))

	now := time.Now()
	mock.ExpectQuery(`FROM templates t WHERE t.id = \?`).
		WithArgs(uint64(10)).
		WillReturnRows(templateRow(10, 4, "Landing page", model.TemplateStatusApproved))
	mock.ExpectQuery(`SELECT template_id FROM comments WHERE id = \?`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"template_id"}).AddRow(10))
	mock.ExpectExec(`INSERT INTO comments`).
		WillReturnResult(sqlmock.NewResult(22, 1))
	mock.ExpectQuery(`WHERE c.id = \?`).
		WithArgs(uint64(22)).
		WillReturnRows(sqlmock.NewRows(commentCols).AddRow(22, 10, 4, "Ada", 3, "Update", now, now))
	mock.ExpectQuery(`WHERE c.id = \?`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(commentCols).AddRow(3, 10, 4, "Ada", nil, "Thoughts?", now, now))

	rec := doJSON(e, http.MethodPost, "/templates/10/comments", `{"content":"Update","parent_id":3}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Empty(t, n.notifications)
	assert.Empty(t, n.emails)
}

func TestReplySurvivesParentLookupFailure(t *testing.T) {
	h, mock, n := newCommentTest(t)
	log, hook := test.NewNullLogger()
	h.Log = log
	e := newTestEcho()
	e.POST("/templates/:id/comments", h.CreateComment, as(7, model.RoleUser))

	now := time.Now()
	mock.ExpectQuery(`FROM templates t WHERE t.id = \?`).
		WithArgs(uint64(10)).
		WillReturnRows(templateRow(10, 4, "Landing page", model.TemplateStatusApproved))
	mock.ExpectQuery(`SELECT template_id FROM comments WHERE id = \?`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"template_id"}).AddRow(10))
	mock.ExpectExec(`INSERT INTO comments`).
		WillReturnResult(sqlmock.NewResult(23, 1))
	mock.ExpectQuery(`WHERE c.id = \?`).
		WithArgs(uint64(23)).
		WillReturnRows(sqlmock.NewRows(commentCols).AddRow(23, 10, 7, "Grace", 3, "Agreed", now, now))
	mock.ExpectQuery(`WHERE c.id = \?`).
		WithArgs(uint64(3)).
		WillReturnError(errors.New("connection reset"))

	rec := doJSON(e, http.MethodPost, "/templates/10/comments", `{"content":"Agreed","parent_id":3}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.EqualValues(t, 23, decode(t, rec)["id"])
	assert.Empty(t, n.notifications)
	assert.Empty(t, n.emails)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplyToCommentOfAnotherTemplate(t *testing.T) {
	h, mock, _ := newCommentTest(t)
	e := newTestEcho()
	e.POST("/templates/:id/comments", h.CreateComment, as(7, model.RoleUser))

	mock.ExpectQuery(`FROM templates t WHERE t.id = \?`).
		WithArgs(uint64(10)).
		WillReturnRows(templateRow(10, 4, "Landing page", model.TemplateStatusApproved))
	mock.ExpectQuery(`SELECT template_id FROM comments WHERE id = \?`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"template_id"}).AddRow(11))

	rec := doJSON(e, http.MethodPost, "/templates/10/comments", `{"content":"hi","parent_id":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCommentRequiresAuthorOrAdmin(t *testing.T) {
	h, mock, _ := newCommentTest(t)
	e := newTestEcho()
	e.DELETE("/user/comments/:id", h.DeleteComment, as(7, model.RoleUser))
	e.DELETE("/admin/comments/:id", h.DeleteComment, as(1, model.RoleAdmin))

	now := time.Now()
	mock.ExpectQuery(`WHERE c.id = \?`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(commentCols).AddRow(3, 10, 4, "Ada", nil, "mine", now, now))
	rec := doJSON(e, http.MethodDelete, "/user/comments/3", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	mock.ExpectQuery(`WHERE c.id = \?`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(commentCols).AddRow(3, 10, 4, "Ada", nil, "mine", now, now))
	mock.ExpectExec(`DELETE FROM comments WHERE id = \?`).
		WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	rec = doJSON(e, http.MethodDelete, "/admin/comments/3", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	long := strings.Repeat("é", 12)
	got := truncate(long, 10)
	assert.Equal(t, strings.Repeat("é", 10)+"…", got)
}
