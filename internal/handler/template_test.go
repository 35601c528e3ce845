package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/templatehub/internal/email"
	"github.com/iliyamo/templatehub/internal/model"
	"github.com/iliyamo/templatehub/internal/realtime"
	"github.com/iliyamo/templatehub/internal/repository"
)

func TestUpdateTemplateOfAnotherUser(t *testing.T) {
	db, mock := newMock(t)
	log, _ := test.NewNullLogger()
	h := NewTemplateHandler(repository.NewTemplateRepo(db), &fakeEmitter{}, log)
	e := newTestEcho()
	e.PATCH("/templates/:id", h.UpdateTemplate, as(7, model.RoleUser))

	mock.ExpectQuery(`FROM templates t WHERE t.id = \?`).
		WithArgs(uint64(10)).
		WillReturnRows(templateRow(10, 4, "Landing page", model.TemplateStatusApproved))

	rec := doJSON(e, http.MethodPatch, "/templates/10", `{"title":"Mine now"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Template not found or you don't have permission", decode(t, rec)["error"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHiddenTemplateVisibleToSubmitterOnly(t *testing.T) {
	db, mock := newMock(t)
	h := NewTemplateHandler(repository.NewTemplateRepo(db), &fakeEmitter{}, nil)
	e := newTestEcho()
	e.GET("/anon/templates/:id", h.GetTemplate)
	e.GET("/owner/templates/:id", h.GetTemplate, as(4, model.RoleUser))

	mock.ExpectQuery(`FROM templates t WHERE t.id = \?`).
		WillReturnRows(templateRow(10, 4, "Draft", model.TemplateStatusPending))
	assert.Equal(t, http.StatusNotFound, doJSON(e, http.MethodGet, "/anon/templates/10", "").Code)

	mock.ExpectQuery(`FROM templates t WHERE t.id = \?`).
		WillReturnRows(templateRow(10, 4, "Draft", model.TemplateStatusPending))
	assert.Equal(t, http.StatusOK, doJSON(e, http.MethodGet, "/owner/templates/10", "").Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTemplateEmitsInsert(t *testing.T) {
	db, mock := newMock(t)
	events := &fakeEmitter{}
	h := NewTemplateHandler(repository.NewTemplateRepo(db), events, nil)
	e := newTestEcho()
	e.POST("/templates", h.CreateTemplate, as(4, model.RoleUser))

	mock.ExpectExec(`INSERT INTO templates`).
		WithArgs(uint64(4), "Landing page", "A page", "landing", "beginner", "react,tailwind",
			model.TemplateStatusPending, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectQuery(`FROM templates t WHERE t.id = \?`).
		WithArgs(uint64(10)).
		WillReturnRows(templateRow(10, 4, "Landing page", model.TemplateStatusPending))

	rec := doJSON(e, http.MethodPost, "/templates",
		`{"title":"Landing page","description":"A page","category":"Landing","difficulty":"beginner","tags":["React","tailwind"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
	require.Len(t, events.events, 1)
	assert.Equal(t, realtime.TopicTemplates, events.events[0].Topic)
	assert.Equal(t, realtime.Insert, events.events[0].Type)
	assert.Equal(t, uint64(10), events.events[0].ID)
}

func TestGalleryFollowsTemplateEvents(t *testing.T) {
	db, _ := newMock(t)
	h := NewTemplateHandler(repository.NewTemplateRepo(db), &fakeEmitter{}, nil)
	now := time.Now()
	h.Gallery.Reset([]model.Template{
		{ID: 1, Title: "One", Status: model.TemplateStatusApproved, CreatedAt: now},
		{ID: 2, Title: "Two", Status: model.TemplateStatusApproved, CreatedAt: now},
	})

	upd, err := realtime.NewEvent(realtime.TopicTemplates, realtime.Update, 2,
		model.Template{ID: 2, Title: "Two (v2)", Status: model.TemplateStatusApproved})
	require.NoError(t, err)
	h.ApplyEvent(upd)
	pending, err := realtime.NewEvent(realtime.TopicTemplates, realtime.Update, 1,
		model.Template{ID: 1, Title: "One", Status: model.TemplateStatusPending})
	require.NoError(t, err)
	h.ApplyEvent(pending)

	e := newTestEcho()
	e.GET("/templates/live", h.LiveTemplates)
	rec := doJSON(e, http.MethodGet, "/templates/live", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Two (v2)")
	assert.NotContains(t, rec.Body.String(), `"title":"One"`)
}

func TestApproveTemplateSendsGenerationComplete(t *testing.T) {
	db, mock := newMock(t)
	events, n := &fakeEmitter{}, &fakeNotifier{}
	h := NewAdminHandler(repository.NewUserRepo(db), repository.NewTemplateRepo(db), events, n)
	e := newTestEcho()
	e.PATCH("/admin/templates/:id/status", h.UpdateTemplateStatus, as(1, model.RoleAdmin))

	mock.ExpectExec(`UPDATE templates SET status = \? WHERE id = \?`).
		WithArgs(model.TemplateStatusApproved, uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM templates t WHERE t.id = \?`).
		WithArgs(uint64(10)).
		WillReturnRows(templateRow(10, 4, "Landing page", model.TemplateStatusApproved))

	rec := doJSON(e, http.MethodPatch, "/admin/templates/10/status", `{"status":"approved"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, events.events, 1)
	assert.Equal(t, realtime.Update, events.events[0].Type)
	require.Len(t, n.notifications, 1)
	assert.Equal(t, uint64(4), n.notifications[0].UserID)
	require.Len(t, n.emails, 1)
	assert.Equal(t, email.KindGenerationComplete, n.emails[0].Kind)
	assert.Equal(t, email.GenerationCompleteData{Name: "Ada", TemplateID: 10, TemplateTitle: "Landing page"}, n.emails[0].Data)
}

func TestRejectStatusValue(t *testing.T) {
	db, _ := newMock(t)
	h := NewAdminHandler(repository.NewUserRepo(db), repository.NewTemplateRepo(db), &fakeEmitter{}, &fakeNotifier{})
	e := newTestEcho()
	e.PATCH("/admin/templates/:id/status", h.UpdateTemplateStatus, as(1, model.RoleAdmin))

	rec := doJSON(e, http.MethodPatch, "/admin/templates/10/status", `{"status":"published"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGalleryIsCapped(t *testing.T) {
	db, _ := newMock(t)
	h := NewTemplateHandler(repository.NewTemplateRepo(db), &fakeEmitter{}, nil)
	for i := 1; i <= galleryLimit+5; i++ {
		e, err := realtime.NewEvent(realtime.TopicTemplates, realtime.Insert, uint64(i),
			model.Template{ID: uint64(i), Status: model.TemplateStatusApproved})
		require.NoError(t, err)
		h.ApplyEvent(e)
	}
	snap := h.Gallery.Snapshot()
	require.Len(t, snap, galleryLimit)
	assert.Equal(t, uint64(6), snap[0].ID)
	assert.Equal(t, uint64(galleryLimit+5), snap[len(snap)-1].ID)
}

func TestDeleteSoldTemplateConflicts(t *testing.T) {
	db, mock := newMock(t)
	events := &fakeEmitter{}
	h := NewAdminHandler(repository.NewUserRepo(db), repository.NewTemplateRepo(db), events, &fakeNotifier{})
	e := newTestEcho()
	e.DELETE("/admin/templates/:id", h.DeleteTemplate, as(1, model.RoleAdmin))

	mock.ExpectExec(`DELETE FROM templates WHERE id = \?`).
		WithArgs(uint64(10)).
		WillReturnError(&mysql.MySQLError{Number: 1451, Message: "a foreign key constraint fails (fk_purchases_listing)"})

	rec := doJSON(e, http.MethodDelete, "/admin/templates/10", "")
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Contains(t, decode(t, rec)["error"], "has purchases")
	assert.Empty(t, events.events)
	require.NoError(t, mock.ExpectationsWereMet())
}
