package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/templatehub/internal/model"
)

func TestBuildOverview(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }
	metrics := []model.PlatformMetrics{
		{MetricDate: day(3), TotalUsers: 120, ActiveUsers: 40, TotalTemplates: 30, TotalEvaluations: 50, TotalRevenueCents: 5000},
		{MetricDate: day(2), TotalUsers: 110, ActiveUsers: 30, TotalTemplates: 27, TotalEvaluations: 45, TotalRevenueCents: 2500},
		{MetricDate: day(1), TotalUsers: 100, ActiveUsers: 20, TotalTemplates: 25, TotalEvaluations: 40, TotalRevenueCents: 1000},
	}
	steps := []model.FunnelStep{
		{Funnel: "signup", Step: "visit", Order: 1, UsersCount: 200, Period: day(3)},
		{Funnel: "signup", Step: "register", Order: 2, UsersCount: 50, Period: day(3)},
		{Funnel: "signup", Step: "visit", Order: 1, UsersCount: 999, Period: day(1)},
		{Funnel: "purchase", Step: "paid", Order: 2, UsersCount: 3, Period: day(2)},
		{Funnel: "purchase", Step: "view", Order: 1, UsersCount: 12, Period: day(2)},
	}

	o := buildOverview(metrics, steps)
	require.NotNil(t, o.Latest)
	assert.Equal(t, day(3), o.Latest.MetricDate)
	assert.Equal(t, 3, o.Days)
	assert.Equal(t, uint64(8500), o.RevenueCents)
	assert.InDelta(t, 30.0, o.AvgActiveUsers, 1e-9)
	assert.Equal(t, int64(5), o.NewTemplates)
	assert.Equal(t, int64(10), o.NewEvaluations)

	require.Len(t, o.Funnels, 2)
	assert.Equal(t, "purchase", o.Funnels[0].Funnel)
	assert.Equal(t, "view", o.Funnels[0].Steps[0].Step)
	assert.InDelta(t, 0.25, o.Funnels[0].Conversion, 1e-9)
	assert.Equal(t, "signup", o.Funnels[1].Funnel)
	assert.Len(t, o.Funnels[1].Steps, 2, "older periods are ignored")
	assert.InDelta(t, 0.25, o.Funnels[1].Conversion, 1e-9)
}

func TestBuildOverviewEmpty(t *testing.T) {
	o := buildOverview(nil, nil)
	assert.Nil(t, o.Latest)
	assert.Zero(t, o.RevenueCents)
	assert.Empty(t, o.Funnels)
}
