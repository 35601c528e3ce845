package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/templatehub/internal/model"
)

// AnalyticsRepo reads the aggregate tables.  Rows are written by jobs
// outside this service, so every method here is read-only.
type AnalyticsRepo struct {
	db *sql.DB
}

func NewAnalyticsRepo(db *sql.DB) *AnalyticsRepo { return &AnalyticsRepo{db: db} }

// RecentMetrics returns up to days daily snapshots, newest first.
func (r *AnalyticsRepo) RecentMetrics(ctx context.Context, days int) ([]model.PlatformMetrics, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	const q = `SELECT metric_date, total_users, active_users, total_templates, total_evaluations, total_revenue_cents
	           FROM platform_metrics ORDER BY metric_date DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.PlatformMetrics, 0)
	for rows.Next() {
		var m model.PlatformMetrics
		if err := rows.Scan(&m.MetricDate, &m.TotalUsers, &m.ActiveUsers, &m.TotalTemplates,
			&m.TotalEvaluations, &m.TotalRevenueCents); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// FunnelsSince returns funnel steps whose period is on or after since.
func (r *AnalyticsRepo) FunnelsSince(ctx context.Context, since time.Time) ([]model.FunnelStep, error) {
	const q = `SELECT funnel_name, step_name, step_order, users_count, period
	           FROM conversion_funnels WHERE period >= ? ORDER BY period DESC, funnel_name, step_order`
	rows, err := r.db.QueryContext(ctx, q, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.FunnelStep, 0)
	for rows.Next() {
		var f model.FunnelStep
		if err := rows.Scan(&f.Funnel, &f.Step, &f.Order, &f.UsersCount, &f.Period); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// TemplateAnalytics returns zero counters for a template without a row.
func (r *AnalyticsRepo) TemplateAnalytics(ctx context.Context, templateID uint64) (*model.TemplateAnalytics, error) {
	a := model.TemplateAnalytics{TemplateID: templateID}
	err := r.db.QueryRowContext(ctx,
		"SELECT views, downloads, favorites, avg_rating, updated_at FROM template_analytics WHERE template_id = ?",
		templateID).Scan(&a.Views, &a.Downloads, &a.Favorites, &a.AvgRating, &a.UpdatedAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return &a, nil
}

// Leaderboard returns the top limit entries by rank.
func (r *AnalyticsRepo) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT user_id, display_name, points, rank_pos FROM leaderboard ORDER BY rank_pos, points DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.DisplayName, &e.Points, &e.Rank); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Reputation returns a newcomer record for users the aggregator has not
// processed yet.
func (r *AnalyticsRepo) Reputation(ctx context.Context, userID uint64) (*model.UserReputation, error) {
	rep := model.UserReputation{UserID: userID, Level: "newcomer"}
	err := r.db.QueryRowContext(ctx,
		`SELECT points, level, templates_approved, evaluations_given, updated_at
		 FROM user_reputation WHERE user_id = ?`, userID).
		Scan(&rep.Points, &rep.Level, &rep.TemplatesApproved, &rep.EvaluationsGiven, &rep.UpdatedAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return &rep, nil
}
