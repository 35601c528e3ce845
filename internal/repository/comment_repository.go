package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/templatehub/internal/model"
)

type CommentRepo struct {
	db *sql.DB
}

func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{db: db} }

const commentColumns = `c.id, c.template_id, c.author_id, COALESCE(p.display_name, ''), c.parent_id,
	c.content, c.created_at, c.updated_at`

const commentFrom = ` FROM comments c LEFT JOIN profiles p ON p.user_id = c.author_id`

func scanComment(s scanner) (*model.Comment, error) {
	var (
		c      model.Comment
		parent sql.NullInt64
	)
	if err := s.Scan(&c.ID, &c.TemplateID, &c.AuthorID, &c.AuthorName, &parent,
		&c.Content, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if parent.Valid {
		id := uint64(parent.Int64)
		c.ParentID = &id
	}
	c.Replies = []*model.Comment{}
	return &c, nil
}

// Create inserts a comment.  A parent must belong to the same template,
// otherwise ErrCommentNotFound is returned.
func (r *CommentRepo) Create(ctx context.Context, c *model.Comment) error {
	var parent any
	if c.ParentID != nil {
		var tpl uint64
		err := r.db.QueryRowContext(ctx, "SELECT template_id FROM comments WHERE id = ?", *c.ParentID).Scan(&tpl)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && tpl != c.TemplateID) {
			return ErrCommentNotFound
		}
		if err != nil {
			return err
		}
		parent = *c.ParentID
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO comments (template_id, author_id, parent_id, content) VALUES (?, ?, ?, ?)",
		c.TemplateID, c.AuthorID, parent, c.Content)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*c = *stored
	return nil
}

func (r *CommentRepo) GetByID(ctx context.Context, id uint64) (*model.Comment, error) {
	c, err := scanComment(r.db.QueryRowContext(ctx, "SELECT "+commentColumns+commentFrom+" WHERE c.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return c, nil
}

// ListByTemplate returns a template's comments flat, in creation order.
func (r *CommentRepo) ListByTemplate(ctx context.Context, templateID uint64) ([]*model.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+commentColumns+commentFrom+" WHERE c.template_id = ? ORDER BY c.created_at, c.id",
		templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*model.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes a comment and, through the foreign key, its replies.
func (r *CommentRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM comments WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCommentNotFound
	}
	return nil
}
