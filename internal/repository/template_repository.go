// Package repository contains data access logic separated from HTTP handlers.
// This file holds template persistence: submission, owner edits, admin
// status transitions and filtered listings.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/templatehub/internal/model"
)

// TemplateRepo encapsulates all database queries related to templates.
type TemplateRepo struct {
	db *sql.DB
}

func NewTemplateRepo(db *sql.DB) *TemplateRepo { return &TemplateRepo{db: db} }

const templateColumns = `t.id, t.submitter_id, t.title, t.description, t.category, t.difficulty, t.tags,
	t.status, t.preview_url, t.demo_url, t.repository_url, t.created_at, t.updated_at`

func scanTemplate(s scanner) (*model.Template, error) {
	var (
		t                     model.Template
		tags                  string
		preview, demo, repoURL sql.NullString
	)
	if err := s.Scan(&t.ID, &t.SubmitterID, &t.Title, &t.Description, &t.Category, &t.Difficulty, &tags,
		&t.Status, &preview, &demo, &repoURL, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Tags = splitList(tags)
	t.PreviewURL = stringPtr(preview.Valid, preview.String)
	t.DemoURL = stringPtr(demo.Valid, demo.String)
	t.RepositoryURL = stringPtr(repoURL.Valid, repoURL.String)
	return &t, nil
}

// Create inserts a new template in pending status and reloads it so that
// the caller receives the generated id and timestamps.
func (r *TemplateRepo) Create(ctx context.Context, t *model.Template) error {
	const q = `INSERT INTO templates
	           (submitter_id, title, description, category, difficulty, tags, status, preview_url, demo_url, repository_url)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		t.SubmitterID, t.Title, t.Description, t.Category, t.Difficulty, joinList(t.Tags),
		model.TemplateStatusPending, nullString(t.PreviewURL), nullString(t.DemoURL), nullString(t.RepositoryURL))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*t = *created
	return nil
}

// GetByID fetches a template regardless of status or owner.
func (r *TemplateRepo) GetByID(ctx context.Context, id uint64) (*model.Template, error) {
	t, err := scanTemplate(r.db.QueryRowContext(ctx,
		"SELECT "+templateColumns+" FROM templates t WHERE t.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return t, nil
}

// List returns templates matching the filter together with the total
// number of matches for pagination.  An empty Status means approved.
func (r *TemplateRepo) List(ctx context.Context, f model.TemplateFilter) ([]*model.Template, int64, error) {
	where := []string{"t.status = ?"}
	status := f.Status
	if status == "" {
		status = model.TemplateStatusApproved
	}
	args := []any{status}
	if f.Category != "" {
		where = append(where, "t.category = ?")
		args = append(args, f.Category)
	}
	if f.Difficulty != "" {
		where = append(where, "t.difficulty = ?")
		args = append(args, f.Difficulty)
	}
	if f.Tag != "" {
		where = append(where, "FIND_IN_SET(?, t.tags) > 0")
		args = append(args, strings.ToLower(f.Tag))
	}
	if f.Search != "" {
		where = append(where, "(LOWER(t.title) LIKE ? OR LOWER(t.description) LIKE ?)")
		like := "%" + strings.ToLower(f.Search) + "%"
		args = append(args, like, like)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM templates t WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, size := normalizePage(f.Page, f.PageSize)
	dataArgs := append(append([]any{}, args...), size, (page-1)*size)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+templateColumns+" FROM templates t WHERE "+cond+" ORDER BY t.created_at DESC, t.id DESC LIMIT ? OFFSET ?",
		dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectTemplates(rows)
	return items, total, err
}

// ListBySubmitter returns every template a user submitted, any status.
func (r *TemplateRepo) ListBySubmitter(ctx context.Context, userID uint64) ([]*model.Template, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+templateColumns+" FROM templates t WHERE t.submitter_id = ? ORDER BY t.created_at DESC, t.id DESC",
		userID)
	if err != nil {
		return nil, err
	}
	return collectTemplates(rows)
}

// ListApprovedSince returns up to limit approved templates created at or
// after since, best evaluated first.  Used by the weekly digest.
func (r *TemplateRepo) ListApprovedSince(ctx context.Context, since time.Time, limit int) ([]*model.Template, error) {
	const q = `SELECT ` + templateColumns + `
	           FROM templates t
	           LEFT JOIN evaluations e ON e.template_id = t.id
	           WHERE t.status = 'approved' AND t.created_at >= ?
	           GROUP BY t.id
	           ORDER BY COALESCE(AVG(e.overall), 0) DESC, t.created_at DESC
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, since, limit)
	if err != nil {
		return nil, err
	}
	return collectTemplates(rows)
}

// UpdateByIDAndOwner writes the editable fields of a template owned by
// ownerID.  Owner edits send an approved or rejected template back to
// review.  sql.ErrNoRows means the template does not exist or belongs to
// someone else.
func (r *TemplateRepo) UpdateByIDAndOwner(ctx context.Context, t *model.Template, ownerID uint64) error {
	const q = `UPDATE templates
	           SET title = ?, description = ?, category = ?, difficulty = ?, tags = ?,
	               preview_url = ?, demo_url = ?, repository_url = ?, status = 'pending'
	           WHERE id = ? AND submitter_id = ?`
	res, err := r.db.ExecContext(ctx, q,
		t.Title, t.Description, t.Category, t.Difficulty, joinList(t.Tags),
		nullString(t.PreviewURL), nullString(t.DemoURL), nullString(t.RepositoryURL),
		t.ID, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var one int
	if err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM templates WHERE id = ? AND submitter_id = ? LIMIT 1", t.ID, ownerID).Scan(&one); err != nil {
		return err
	}
	return ErrNoChange
}

// UpdateStatus performs an admin status transition.
func (r *TemplateRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE templates SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrNoChange
}

// Delete hard-deletes a template.  Only the admin panel calls it.  Purchase
// records are kept, so a template that has sold returns ErrTemplateHasSales.
func (r *TemplateRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM templates WHERE id = ?", id)
	if err != nil {
		if isReferenced(err) {
			return ErrTemplateHasSales
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func collectTemplates(rows *sql.Rows) ([]*model.Template, error) {
	defer rows.Close()
	out := make([]*model.Template, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// normalizePage clamps page/size to sane values (page >= 1, 1 <= size <= 100).
func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
