package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/templatehub/internal/model"
)

var evaluationCols = []string{
	"id", "template_id", "evaluator_id", "code_quality", "design", "functionality",
	"documentation", "performance", "overall", "feedback", "created_at", "updated_at",
}

func TestEvaluationUpsertReportsInsertAndUpdate(t *testing.T) {
	cases := []struct {
		name     string
		affected int64
		created  bool
	}{
		{"insert", 1, true},
		{"update", 2, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			now := time.Now()
			mock.ExpectExec(`INSERT INTO evaluations .* ON DUPLICATE KEY UPDATE`).
				WillReturnResult(sqlmock.NewResult(1, tc.affected))
			mock.ExpectQuery(`FROM evaluations WHERE template_id = \? AND evaluator_id = \?`).
				WithArgs(uint64(11), uint64(4)).
				WillReturnRows(sqlmock.NewRows(evaluationCols).
					AddRow(1, 11, 4, 8, 7, 9, 6, 8, 8, nil, now, now))

			e := &model.Evaluation{TemplateID: 11, EvaluatorID: 4, CodeQuality: 8, Design: 7,
				Functionality: 9, Documentation: 6, Performance: 8, Overall: 8}
			created, err := NewEvaluationRepo(db).Upsert(context.Background(), e)
			require.NoError(t, err)
			assert.Equal(t, tc.created, created)
			assert.Equal(t, uint64(1), e.ID)
			assert.Nil(t, e.Feedback)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEvaluationSummaryEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"n", "a", "b", "c", "d", "e", "f"}).
			AddRow(0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0))

	s, err := NewEvaluationRepo(db).Summary(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Count)
	assert.Equal(t, uint64(5), s.TemplateID)
}
