package ratelimit

import (
	"time"

	"ecoguardian/backend/models"
	"ecoguardian/backend/verdict"
)

const (
	DefaultDailyLimit = 3
	DefaultCooldown   = 3 * time.Minute

	ReasonDailyLimit = "Daily limit reached."
	ReasonCooldown   = "Spam Prevention: Wait 3 mins."
)

// Limiter enforces the per-user daily cap and the inter-submission cooldown
// over a user's accepted report history.
type Limiter struct {
	dailyLimit int
	cooldown   time.Duration
	loc        *time.Location
}

// NewLimiter creates a limiter. Calendar days are computed in loc; a nil loc
// means server-local time.
func NewLimiter(dailyLimit int, cooldown time.Duration, loc *time.Location) *Limiter {
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if loc == nil {
		loc = time.Local
	}
	return &Limiter{dailyLimit: dailyLimit, cooldown: cooldown, loc: loc}
}

// Window returns how far back history must reach for Check to be exact.
func (l *Limiter) Window(now time.Time) time.Time {
	since := l.dayStart(now)
	if c := now.Add(-l.cooldown); c.Before(since) {
		since = c
	}
	return since
}

// Check applies the daily cap, then the cooldown.
func (l *Limiter) Check(history []models.Report, now time.Time) error {
	if err := l.CheckDailyCap(history, now); err != nil {
		return err
	}
	return l.CheckCooldown(history, now)
}

// CheckDailyCap rejects when the user already has the daily limit of reports
// dated on now's calendar day.
func (l *Limiter) CheckDailyCap(history []models.Report, now time.Time) error {
	start := l.dayStart(now)
	end := start.AddDate(0, 0, 1)
	count := 0
	for _, r := range history {
		if !r.Timestamp.Before(start) && r.Timestamp.Before(end) {
			count++
		}
	}
	if count >= l.dailyLimit {
		return verdict.New(verdict.RateLimited, ReasonDailyLimit)
	}
	return nil
}

// CheckCooldown rejects when any report is newer than now minus the cooldown.
func (l *Limiter) CheckCooldown(history []models.Report, now time.Time) error {
	cutoff := now.Add(-l.cooldown)
	for _, r := range history {
		if r.Timestamp.After(cutoff) {
			return verdict.New(verdict.CooldownActive, ReasonCooldown)
		}
	}
	return nil
}

func (l *Limiter) dayStart(now time.Time) time.Time {
	local := now.In(l.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, l.loc)
}
