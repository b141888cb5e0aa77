package domain

import "time"

// DefaultRollCooldown is the minimum wait between accepted rolls from the
// same participant.
const DefaultRollCooldown = 3 * time.Second

// Gate enforces the per-participant roll cooldown. A rejected attempt
// leaves the participant's clock untouched so hammering the gate never
// extends the wait.
type Gate struct {
	cooldown time.Duration
	now      func() time.Time
}

// NewGateWithClock creates a gate with an injected clock. A nil clock
// means wall time; non-positive cooldowns fall back to
// DefaultRollCooldown.
func NewGateWithClock(cooldown time.Duration, now func() time.Time) Gate {
	if cooldown <= 0 {
		cooldown = DefaultRollCooldown
	}
	if now == nil {
		now = time.Now
	}
	return Gate{cooldown: cooldown, now: now}
}

// Allow reports whether the participant may roll now, updating their
// LastRollAt on success.
func (g Gate) Allow(p *Participant) bool {
	if p == nil {
		return false
	}
	now := g.now()
	if !p.LastRollAt.IsZero() && now.Sub(p.LastRollAt) < g.cooldown {
		return false
	}
	p.LastRollAt = now
	return true
}
