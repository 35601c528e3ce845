package handler

import (
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/templatehub/internal/model"
	"github.com/iliyamo/templatehub/internal/repository"
)

type AnalyticsHandler struct {
	Analytics *repository.AnalyticsRepo
	now       func() time.Time
}

func NewAnalyticsHandler(a *repository.AnalyticsRepo) *AnalyticsHandler {
	if a == nil {
		panic("nil repository passed to NewAnalyticsHandler")
	}
	return &AnalyticsHandler{Analytics: a, now: time.Now}
}

// FunnelSummary condenses one funnel's most recent period.
type FunnelSummary struct {
	Funnel     string             `json:"funnel"`
	Period     time.Time          `json:"period"`
	Steps      []model.FunnelStep `json:"steps"`
	Conversion float64            `json:"conversion"` // last step / first step, 0..1
}

// Overview is the admin dashboard payload.
type Overview struct {
	Latest          *model.PlatformMetrics  `json:"latest"`
	Days            int                     `json:"days"`
	RevenueCents    uint64                  `json:"revenue_cents"`
	AvgActiveUsers  float64                 `json:"avg_active_users"`
	NewTemplates    int64                   `json:"new_templates"`
	NewEvaluations  int64                   `json:"new_evaluations"`
	Funnels         []FunnelSummary         `json:"funnels"`
	Metrics         []model.PlatformMetrics `json:"metrics"`
}

// buildOverview aggregates daily snapshots (newest first) and funnel steps.
// Revenue is summed per day; template and evaluation growth is the
// difference between the newest and oldest snapshot.
func buildOverview(metrics []model.PlatformMetrics, steps []model.FunnelStep) Overview {
	o := Overview{Days: len(metrics), Metrics: metrics, Funnels: []FunnelSummary{}}
	if len(metrics) > 0 {
		latest := metrics[0]
		oldest := metrics[len(metrics)-1]
		o.Latest = &latest
		var active uint64
		for _, m := range metrics {
			o.RevenueCents += m.TotalRevenueCents
			active += uint64(m.ActiveUsers)
		}
		o.AvgActiveUsers = float64(active) / float64(len(metrics))
		o.NewTemplates = int64(latest.TotalTemplates) - int64(oldest.TotalTemplates)
		o.NewEvaluations = int64(latest.TotalEvaluations) - int64(oldest.TotalEvaluations)
	}

	newest := map[string]time.Time{}
	for _, s := range steps {
		if s.Period.After(newest[s.Funnel]) {
			newest[s.Funnel] = s.Period
		}
	}
	byFunnel := map[string]*FunnelSummary{}
	for _, s := range steps {
		if !s.Period.Equal(newest[s.Funnel]) {
			continue
		}
		fs, ok := byFunnel[s.Funnel]
		if !ok {
			fs = &FunnelSummary{Funnel: s.Funnel, Period: s.Period}
			byFunnel[s.Funnel] = fs
		}
		fs.Steps = append(fs.Steps, s)
	}
	for _, fs := range byFunnel {
		sort.Slice(fs.Steps, func(i, j int) bool { return fs.Steps[i].Order < fs.Steps[j].Order })
		first, last := fs.Steps[0].UsersCount, fs.Steps[len(fs.Steps)-1].UsersCount
		if first > 0 {
			fs.Conversion = float64(last) / float64(first)
		}
		o.Funnels = append(o.Funnels, *fs)
	}
	sort.Slice(o.Funnels, func(i, j int) bool { return o.Funnels[i].Funnel < o.Funnels[j].Funnel })
	return o
}

// Overview handles GET /v1/admin/analytics/overview?days=30.
func (h *AnalyticsHandler) Overview(c echo.Context) error {
	days := queryInt(c, "days", 30)
	if days < 1 || days > 365 {
		days = 30
	}
	ctx := c.Request().Context()
	metrics, err := h.Analytics.RecentMetrics(ctx, days)
	if err != nil {
		return serverError("could not load metrics", err)
	}
	steps, err := h.Analytics.FunnelsSince(ctx, h.now().UTC().AddDate(0, 0, -days))
	if err != nil {
		return serverError("could not load funnels", err)
	}
	return c.JSON(http.StatusOK, buildOverview(metrics, steps))
}

// TemplateAnalytics handles GET /v1/templates/:id/analytics.
func (h *AnalyticsHandler) TemplateAnalytics(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	a, err := h.Analytics.TemplateAnalytics(c.Request().Context(), id)
	if err != nil {
		return serverError("could not load analytics", err)
	}
	return c.JSON(http.StatusOK, a)
}

// Leaderboard handles GET /v1/leaderboard?limit=10.
func (h *AnalyticsHandler) Leaderboard(c echo.Context) error {
	items, err := h.Analytics.Leaderboard(c.Request().Context(), queryInt(c, "limit", 10))
	if err != nil {
		return serverError("could not load leaderboard", err)
	}
	return c.JSON(http.StatusOK, items)
}

// Reputation handles GET /v1/users/:id/reputation.
func (h *AnalyticsHandler) Reputation(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	rep, err := h.Analytics.Reputation(c.Request().Context(), id)
	if err != nil {
		return serverError("could not load reputation", err)
	}
	return c.JSON(http.StatusOK, rep)
}
