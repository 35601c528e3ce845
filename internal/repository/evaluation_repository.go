package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/templatehub/internal/model"
)

// EvaluationRepo stores evaluator scorecards.  The UNIQUE key on
// (template_id, evaluator_id) makes Upsert the only write path.
type EvaluationRepo struct {
	db *sql.DB
}

func NewEvaluationRepo(db *sql.DB) *EvaluationRepo { return &EvaluationRepo{db: db} }

const evaluationColumns = `id, template_id, evaluator_id, code_quality, design, functionality,
	documentation, performance, overall, feedback, created_at, updated_at`

func scanEvaluation(s scanner) (*model.Evaluation, error) {
	var (
		e        model.Evaluation
		feedback sql.NullString
	)
	if err := s.Scan(&e.ID, &e.TemplateID, &e.EvaluatorID, &e.CodeQuality, &e.Design, &e.Functionality,
		&e.Documentation, &e.Performance, &e.Overall, &feedback, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Feedback = stringPtr(feedback.Valid, feedback.String)
	return &e, nil
}

// Upsert inserts the evaluator's scorecard or replaces the existing one in
// a single statement.  created reports whether a new row was inserted.
func (r *EvaluationRepo) Upsert(ctx context.Context, e *model.Evaluation) (created bool, err error) {
	const q = `INSERT INTO evaluations
	           (template_id, evaluator_id, code_quality, design, functionality, documentation, performance, overall, feedback)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE
	             code_quality = VALUES(code_quality), design = VALUES(design),
	             functionality = VALUES(functionality), documentation = VALUES(documentation),
	             performance = VALUES(performance), overall = VALUES(overall), feedback = VALUES(feedback)`
	res, err := r.db.ExecContext(ctx, q,
		e.TemplateID, e.EvaluatorID, e.CodeQuality, e.Design, e.Functionality,
		e.Documentation, e.Performance, e.Overall, nullString(e.Feedback))
	if err != nil {
		return false, err
	}
	// MySQL reports 1 affected row for an insert and 2 for an update.
	n, _ := res.RowsAffected()
	created = n == 1

	stored, err := scanEvaluation(r.db.QueryRowContext(ctx,
		"SELECT "+evaluationColumns+" FROM evaluations WHERE template_id = ? AND evaluator_id = ?",
		e.TemplateID, e.EvaluatorID))
	if err != nil {
		return false, err
	}
	*e = *stored
	return created, nil
}

// ListByTemplate returns a template's evaluations, oldest first.
func (r *EvaluationRepo) ListByTemplate(ctx context.Context, templateID uint64) ([]*model.Evaluation, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+evaluationColumns+" FROM evaluations WHERE template_id = ? ORDER BY created_at, id",
		templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*model.Evaluation, 0)
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Summary averages every sub-score.  A template without evaluations yields
// a zero summary with Count 0.
func (r *EvaluationRepo) Summary(ctx context.Context, templateID uint64) (*model.EvaluationSummary, error) {
	const q = `SELECT COUNT(*),
	                  COALESCE(AVG(code_quality), 0), COALESCE(AVG(design), 0), COALESCE(AVG(functionality), 0),
	                  COALESCE(AVG(documentation), 0), COALESCE(AVG(performance), 0), COALESCE(AVG(overall), 0)
	           FROM evaluations WHERE template_id = ?`
	s := model.EvaluationSummary{TemplateID: templateID}
	err := r.db.QueryRowContext(ctx, q, templateID).Scan(&s.Count,
		&s.CodeQuality, &s.Design, &s.Functionality, &s.Documentation, &s.Performance, &s.Overall)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
