package ratelimit

import (
	"testing"
	"time"

	"ecoguardian/backend/models"
	"ecoguardian/backend/verdict"

	"github.com/stretchr/testify/assert"
)

func reportsAt(ts ...time.Time) []models.Report {
	out := make([]models.Report, 0, len(ts))
	for _, t := range ts {
		out = append(out, models.Report{UserID: "u1", Timestamp: t})
	}
	return out
}

func TestCheckDailyCap(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	l := NewLimiter(3, 3*time.Minute, loc)
	now := time.Date(2026, 10, 15, 18, 0, 0, 0, loc)

	testCases := []struct {
		name    string
		history []models.Report
		want    verdict.Kind
	}{
		{"No history", nil, ""},
		{"Two today", reportsAt(now.Add(-2*time.Hour), now.Add(-time.Hour)), ""},
		{"Three today", reportsAt(now.Add(-3*time.Hour), now.Add(-2*time.Hour), now.Add(-time.Hour)), verdict.RateLimited},
		{"Three with one yesterday", reportsAt(now.Add(-19*time.Hour), now.Add(-2*time.Hour), now.Add(-time.Hour)), ""},
		{"Midnight belongs to today", reportsAt(time.Date(2026, 10, 15, 0, 0, 0, 0, loc), now.Add(-2*time.Hour), now.Add(-time.Hour)), verdict.RateLimited},
		{"Day boundary uses limiter location", reportsAt(
			time.Date(2026, 10, 14, 19, 0, 0, 0, time.UTC), // 00:30 local on the 15th
			now.Add(-2*time.Hour), now.Add(-time.Hour)), verdict.RateLimited},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, verdict.KindOf(l.CheckDailyCap(tc.history, now)))
		})
	}
}

func TestCheckCooldown(t *testing.T) {
	l := NewLimiter(3, 3*time.Minute, time.UTC)
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	assert.NoError(t, l.CheckCooldown(nil, now))
	assert.NoError(t, l.CheckCooldown(reportsAt(now.Add(-3*time.Minute)), now))
	assert.NoError(t, l.CheckCooldown(reportsAt(now.Add(-time.Hour)), now))

	err := l.CheckCooldown(reportsAt(now.Add(-time.Hour), now.Add(-2*time.Minute)), now)
	assert.Equal(t, verdict.CooldownActive, verdict.KindOf(err))
	assert.Equal(t, ReasonCooldown, verdict.From(err).Reason)

	err = l.CheckCooldown(reportsAt(now.Add(-time.Second)), now)
	assert.Equal(t, verdict.CooldownActive, verdict.KindOf(err))
}

func TestCheckAppliesDailyCapFirst(t *testing.T) {
	l := NewLimiter(3, 3*time.Minute, time.UTC)
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	history := reportsAt(now.Add(-2*time.Hour), now.Add(-time.Hour), now.Add(-time.Minute))

	assert.Equal(t, verdict.RateLimited, verdict.KindOf(l.Check(history, now)))
	assert.Equal(t, verdict.CooldownActive, verdict.KindOf(l.Check(history[2:], now)))
	assert.NoError(t, l.Check(history[:2], now))
}

func TestDefaultsAndWindow(t *testing.T) {
	l := NewLimiter(0, 0, nil)
	assert.Equal(t, DefaultDailyLimit, l.dailyLimit)
	assert.Equal(t, DefaultCooldown, l.cooldown)
	assert.Equal(t, time.Local, l.loc)

	utc := NewLimiter(3, 3*time.Minute, time.UTC)
	now := time.Date(2026, 10, 15, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, now.Add(-3*time.Minute), utc.Window(now))
	later := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), utc.Window(later))
}
