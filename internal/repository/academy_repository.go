package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/templatehub/internal/academy"
	"github.com/iliyamo/templatehub/internal/model"
)

// AcademyRepo stores the authoritative tutorial progress and the
// certificates and badges earned from it.
type AcademyRepo struct {
	db *sql.DB
}

func NewAcademyRepo(db *sql.DB) *AcademyRepo { return &AcademyRepo{db: db} }

// Sync merges each client record into the stored progress and returns the
// merged state along with any certificates issued by this call.  Each
// record is locked with SELECT ... FOR UPDATE so concurrent syncs of the
// same tutorial serialise.
func (r *AcademyRepo) Sync(ctx context.Context, userID uint64, batch []model.TutorialProgress, now time.Time) ([]model.TutorialProgress, []*model.Certificate, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	merged := make([]model.TutorialProgress, 0, len(batch))
	issued := make([]*model.Certificate, 0)
	for _, in := range batch {
		stored, err := lockProgressTx(ctx, tx, userID, in.TutorialID)
		if err != nil {
			return nil, nil, err
		}
		p := academy.Merge(stored, in, now)
		const up = `INSERT INTO tutorial_progress (user_id, tutorial_id, completed_steps, total_steps, completed_at, updated_at)
		            VALUES (?, ?, ?, ?, ?, ?)
		            ON DUPLICATE KEY UPDATE completed_steps = VALUES(completed_steps), total_steps = VALUES(total_steps),
		              completed_at = VALUES(completed_at), updated_at = VALUES(updated_at)`
		if _, err := tx.ExecContext(ctx, up, userID, p.TutorialID, p.CompletedSteps, p.TotalSteps, p.CompletedAt, p.UpdatedAt); err != nil {
			return nil, nil, err
		}
		merged = append(merged, p)

		if !p.Completed() {
			continue
		}
		cert, err := issueCertificateTx(ctx, tx, userID, p.TutorialID, now)
		if err != nil {
			return nil, nil, err
		}
		if cert != nil {
			issued = append(issued, cert)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	committed = true
	return merged, issued, nil
}

func lockProgressTx(ctx context.Context, tx *sql.Tx, userID uint64, tutorialID string) (*model.TutorialProgress, error) {
	var (
		p           = model.TutorialProgress{TutorialID: tutorialID}
		completedAt sql.NullTime
	)
	err := tx.QueryRowContext(ctx,
		`SELECT completed_steps, total_steps, completed_at, updated_at FROM tutorial_progress
		 WHERE user_id = ? AND tutorial_id = ? FOR UPDATE`, userID, tutorialID).
		Scan(&p.CompletedSteps, &p.TotalSteps, &completedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}
	return &p, nil
}

// issueCertificateTx returns nil when the user already holds the
// certificate for tutorialID.
func issueCertificateTx(ctx context.Context, tx *sql.Tx, userID uint64, tutorialID string, now time.Time) (*model.Certificate, error) {
	var exists bool
	if err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM certificates WHERE user_id = ? AND tutorial_id = ?)",
		userID, tutorialID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, nil
	}
	code, err := academy.NewCertificateCode()
	if err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO certificates (user_id, tutorial_id, certificate_code, issued_at) VALUES (?, ?, ?, ?)",
		userID, tutorialID, code, now.UTC())
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT IGNORE INTO badges (user_id, badge, awarded_at) VALUES (?, ?, ?)",
		userID, academy.BadgeFor(tutorialID), now.UTC()); err != nil {
		return nil, err
	}
	return &model.Certificate{ID: uint64(id), UserID: userID, TutorialID: tutorialID, Code: code, IssuedAt: now.UTC()}, nil
}

func (r *AcademyRepo) ListProgress(ctx context.Context, userID uint64) ([]model.TutorialProgress, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tutorial_id, completed_steps, total_steps, completed_at, updated_at
		 FROM tutorial_progress WHERE user_id = ? ORDER BY tutorial_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.TutorialProgress, 0)
	for rows.Next() {
		var (
			p           model.TutorialProgress
			completedAt sql.NullTime
		)
		if err := rows.Scan(&p.TutorialID, &p.CompletedSteps, &p.TotalSteps, &completedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			p.CompletedAt = &completedAt.Time
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *AcademyRepo) ListCertificates(ctx context.Context, userID uint64) ([]model.Certificate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, tutorial_id, certificate_code, issued_at
		 FROM certificates WHERE user_id = ? ORDER BY issued_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Certificate, 0)
	for rows.Next() {
		var c model.Certificate
		if err := rows.Scan(&c.ID, &c.UserID, &c.TutorialID, &c.Code, &c.IssuedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *AcademyRepo) ListBadges(ctx context.Context, userID uint64) ([]model.Badge, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT badge, awarded_at FROM badges WHERE user_id = ? ORDER BY awarded_at, badge", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Badge, 0)
	for rows.Next() {
		var b model.Badge
		if err := rows.Scan(&b.Badge, &b.AwardedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
