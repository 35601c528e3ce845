package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/templatehub/internal/model"
)

func TestCommentCreateRejectsParentOfOtherTemplate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	parent := uint64(40)
	mock.ExpectQuery(`SELECT template_id FROM comments WHERE id = \?`).
		WithArgs(parent).
		WillReturnRows(sqlmock.NewRows([]string{"template_id"}).AddRow(99))

	err = NewCommentRepo(db).Create(context.Background(), &model.Comment{
		TemplateID: 11, AuthorID: 3, ParentID: &parent, Content: "nice",
	})
	assert.ErrorIs(t, err, ErrCommentNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentDeleteMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM comments WHERE id = \?`).
		WithArgs(uint64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, NewCommentRepo(db).Delete(context.Background(), 8), ErrCommentNotFound)
}
