package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/templatehub/internal/model"
)

// ProfileRepo reads and updates the public profile of a user.
type ProfileRepo struct{ db *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{db: db} }

// Get loads a profile joined with the user's role.
func (r *ProfileRepo) Get(ctx context.Context, userID uint64) (*model.Profile, error) {
	const q = `SELECT p.user_id, p.display_name, p.bio, p.avatar_url, p.onboarding_completed,
	                  p.experience_level, p.interests, u.role, p.created_at, p.updated_at
	           FROM profiles p JOIN users u ON u.id = p.user_id
	           WHERE p.user_id = ?`
	var (
		p                    model.Profile
		bio, avatar, level   sql.NullString
		interests            sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, userID).Scan(
		&p.UserID, &p.DisplayName, &bio, &avatar, &p.OnboardingCompleted,
		&level, &interests, &p.Role, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	p.Bio = stringPtr(bio.Valid, bio.String)
	p.AvatarURL = stringPtr(avatar.Valid, avatar.String)
	p.ExperienceLevel = stringPtr(level.Valid, level.String)
	p.Interests = splitList(interests.String)
	return &p, nil
}

// Update writes every editable profile field.  Callers load the profile,
// apply the patch and pass the full result.
func (r *ProfileRepo) Update(ctx context.Context, p *model.Profile) error {
	const q = `UPDATE profiles
	           SET display_name = ?, bio = ?, avatar_url = ?, onboarding_completed = ?,
	               experience_level = ?, interests = ?
	           WHERE user_id = ?`
	res, err := r.db.ExecContext(ctx, q,
		p.DisplayName, nullString(p.Bio), nullString(p.AvatarURL), p.OnboardingCompleted,
		nullString(p.ExperienceLevel), joinList(p.Interests), p.UserID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.Get(ctx, p.UserID); err != nil {
			return err
		}
	}
	return nil
}
