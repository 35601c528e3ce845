package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/templatehub/internal/model"
)

// NotificationRepo stores in-app notifications and the email preferences
// that gate transactional mail.
type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Recipient is the addressing information of a user who receives email.
type Recipient struct {
	UserID      uint64
	Email       string
	DisplayName string
}

// Create inserts n and fills in its id and creation time.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO notifications (user_id, kind, title, body) VALUES (?, ?, ?, ?)",
		n.UserID, n.Kind, n.Title, n.Body)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return r.db.QueryRowContext(ctx, "SELECT created_at FROM notifications WHERE id = ?", n.ID).Scan(&n.CreatedAt)
}

// ListByUser returns the newest notifications first.  unreadOnly narrows the
// result to unread ones.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64, unreadOnly bool, limit int) ([]*model.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := "SELECT id, user_id, kind, title, body, is_read, created_at FROM notifications WHERE user_id = ?"
	if unreadOnly {
		q += " AND is_read = 0"
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ?"
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

// MarkRead marks one of the user's notifications as read.  Marking an
// already read notification succeeds.
func (r *NotificationRepo) MarkRead(ctx context.Context, userID, id uint64) error {
	var exists bool
	if err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM notifications WHERE id = ? AND user_id = ?)", id, userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotificationAbsent
	}
	_, err := r.db.ExecContext(ctx, "UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?", id, userID)
	return err
}

// MarkAllRead returns the number of notifications that changed state.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetPreferences falls back to the defaults when no row exists.
func (r *NotificationRepo) GetPreferences(ctx context.Context, userID uint64) (model.EmailPreferences, error) {
	p := model.EmailPreferences{UserID: userID}
	err := r.db.QueryRowContext(ctx,
		"SELECT welcome, comment_replies, certifications, weekly_digest FROM email_preferences WHERE user_id = ?",
		userID).Scan(&p.Welcome, &p.CommentReplies, &p.Certifications, &p.WeeklyDigest)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultEmailPreferences(userID), nil
	}
	return p, err
}

func (r *NotificationRepo) SavePreferences(ctx context.Context, p model.EmailPreferences) error {
	const q = `INSERT INTO email_preferences (user_id, welcome, comment_replies, certifications, weekly_digest)
	           VALUES (?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE welcome = VALUES(welcome), comment_replies = VALUES(comment_replies),
	             certifications = VALUES(certifications), weekly_digest = VALUES(weekly_digest)`
	_, err := r.db.ExecContext(ctx, q, p.UserID, p.Welcome, p.CommentReplies, p.Certifications, p.WeeklyDigest)
	return err
}

// Recipient loads the email address and display name of an active user.
func (r *NotificationRepo) Recipient(ctx context.Context, userID uint64) (*Recipient, error) {
	var rc Recipient
	err := r.db.QueryRowContext(ctx,
		`SELECT u.id, u.email, COALESCE(p.display_name, '')
		 FROM users u LEFT JOIN profiles p ON p.user_id = u.id
		 WHERE u.id = ? AND u.is_active = 1`, userID).Scan(&rc.UserID, &rc.Email, &rc.DisplayName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &rc, nil
}

// ListDigestRecipients returns active users who opted into the weekly
// digest.  Users without a preferences row are opted in by default.
func (r *NotificationRepo) ListDigestRecipients(ctx context.Context) ([]Recipient, error) {
	const q = `SELECT u.id, u.email, COALESCE(p.display_name, '')
	           FROM users u
	           LEFT JOIN profiles p ON p.user_id = u.id
	           LEFT JOIN email_preferences ep ON ep.user_id = u.id
	           WHERE u.is_active = 1 AND COALESCE(ep.weekly_digest, 1) = 1
	           ORDER BY u.id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Recipient
	for rows.Next() {
		var rc Recipient
		if err := rows.Scan(&rc.UserID, &rc.Email, &rc.DisplayName); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}
