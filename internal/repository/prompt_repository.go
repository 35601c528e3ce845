package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/templatehub/internal/model"
)

// PromptRepo stores saved prompt configurations.  Every method is scoped to
// the owning user; another user's prompt is reported as not found.
type PromptRepo struct {
	db *sql.DB
}

func NewPromptRepo(db *sql.DB) *PromptRepo { return &PromptRepo{db: db} }

const promptColumns = `id, user_id, name, model, system_prompt, user_prompt, temperature, max_tokens,
	is_favorite, rating, created_at, updated_at`

func scanPrompt(s scanner) (*model.PromptConfig, error) {
	var (
		p      model.PromptConfig
		rating sql.NullInt16
	)
	if err := s.Scan(&p.ID, &p.UserID, &p.Name, &p.Model, &p.SystemPrompt, &p.UserPrompt, &p.Temperature,
		&p.MaxTokens, &p.IsFavorite, &rating, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if rating.Valid {
		v := uint8(rating.Int16)
		p.Rating = &v
	}
	return &p, nil
}

func (r *PromptRepo) Create(ctx context.Context, p *model.PromptConfig) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO prompt_configs (user_id, name, model, system_prompt, user_prompt, temperature, max_tokens, rating)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.Name, p.Model, p.SystemPrompt, p.UserPrompt, p.Temperature, p.MaxTokens, ratingValue(p.Rating))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.Get(ctx, p.UserID, uint64(id))
	if err != nil {
		return err
	}
	*p = *stored
	return nil
}

func (r *PromptRepo) Get(ctx context.Context, userID, id uint64) (*model.PromptConfig, error) {
	p, err := scanPrompt(r.db.QueryRowContext(ctx,
		"SELECT "+promptColumns+" FROM prompt_configs WHERE id = ? AND user_id = ?", id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPromptNotFound
		}
		return nil, err
	}
	return p, nil
}

// List returns favorites first, then the most recently updated.
func (r *PromptRepo) List(ctx context.Context, userID uint64) ([]*model.PromptConfig, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+promptColumns+" FROM prompt_configs WHERE user_id = ? ORDER BY is_favorite DESC, updated_at DESC, id DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*model.PromptConfig, 0)
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update writes every editable field of p.
func (r *PromptRepo) Update(ctx context.Context, p *model.PromptConfig) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE prompt_configs SET name = ?, model = ?, system_prompt = ?, user_prompt = ?, temperature = ?,
		   max_tokens = ?, rating = ? WHERE id = ? AND user_id = ?`,
		p.Name, p.Model, p.SystemPrompt, p.UserPrompt, p.Temperature, p.MaxTokens, ratingValue(p.Rating), p.ID, p.UserID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.Get(ctx, p.UserID, p.ID); err != nil {
			return err
		}
	}
	return nil
}

// ToggleFavorite flips is_favorite and returns the new value.
func (r *PromptRepo) ToggleFavorite(ctx context.Context, userID, id uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE prompt_configs SET is_favorite = NOT is_favorite WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, ErrPromptNotFound
	}
	var fav bool
	err = r.db.QueryRowContext(ctx, "SELECT is_favorite FROM prompt_configs WHERE id = ?", id).Scan(&fav)
	return fav, err
}

func (r *PromptRepo) Delete(ctx context.Context, userID, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM prompt_configs WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPromptNotFound
	}
	return nil
}

func ratingValue(p *uint8) any {
	if p == nil {
		return nil
	}
	return *p
}
