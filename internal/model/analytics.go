package model

import "time"

// The aggregates below are populated by jobs outside this service; the API
// only reads them.

type PlatformMetrics struct {
    MetricDate        time.Time `json:"metric_date"`
    TotalUsers        uint32    `json:"total_users"`
    ActiveUsers       uint32    `json:"active_users"`
    TotalTemplates    uint32    `json:"total_templates"`
    TotalEvaluations  uint32    `json:"total_evaluations"`
    TotalRevenueCents uint64    `json:"total_revenue_cents"`
}

type TemplateAnalytics struct {
    TemplateID uint64    `json:"template_id"`
    Views      uint32    `json:"views"`
    Downloads  uint32    `json:"downloads"`
    Favorites  uint32    `json:"favorites"`
    AvgRating  float64   `json:"avg_rating"`
    UpdatedAt  time.Time `json:"updated_at"`
}

type UserReputation struct {
    UserID            uint64    `json:"user_id"`
    Points            int       `json:"points"`
    Level             string    `json:"level"`
    TemplatesApproved uint32    `json:"templates_approved"`
    EvaluationsGiven  uint32    `json:"evaluations_given"`
    UpdatedAt         time.Time `json:"updated_at"`
}

type LeaderboardEntry struct {
    UserID      uint64 `json:"user_id"`
    DisplayName string `json:"display_name"`
    Points      int    `json:"points"`
    Rank        uint32 `json:"rank"`
}

type FunnelStep struct {
    Funnel     string    `json:"funnel"`
    Step       string    `json:"step"`
    Order      uint32    `json:"order"`
    UsersCount uint32    `json:"users_count"`
    Period     time.Time `json:"period"`
}
