package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/holysmokas/translation-server/internal/domain"
)

// Kind is the resource a guard check consumes.
type Kind string

const (
	KindTranslation Kind = "translation"
	KindVideo       Kind = "video"
)

// Identity is who a quota check is charged to: a registered user id
// or a guest session id, plus the tier it resolves to.
type Identity struct {
	ID   string
	Tier domain.Tier
}

// Verdict is the outcome of a quota check.
type Verdict struct {
	Allowed         bool      `json:"allowed"`
	Remaining       int       `json:"remaining"`
	Limit           int       `json:"limit"`
	Message         string    `json:"message"`
	UpgradeRequired bool      `json:"upgrade_required"`
	AuthRequired    bool      `json:"auth_required,omitempty"`
	ResetAt         time.Time `json:"reset_at,omitzero"`
}

type usageEntry struct {
	tier         domain.Tier
	translations int
	videoMinutes float64
	windowStart  time.Time
	firstSeen    time.Time
}

// Guard throttles translation and video usage per identity. Pure
// state machine over counters, no I/O; the clock is injected so tests
// can move time.
type Guard struct {
	mu    sync.Mutex
	now   func() time.Time
	usage map[string]*usageEntry
}

func NewGuard() *Guard {
	return &Guard{now: time.Now, usage: make(map[string]*usageEntry)}
}

// NewGuardWithClock builds a guard on an injected clock.
func NewGuardWithClock(now func() time.Time) *Guard {
	return &Guard{now: now, usage: make(map[string]*usageEntry)}
}

// entry fetches or creates the identity's counters and resets them
// when the tier's window has elapsed. Caller holds the lock.
func (g *Guard) entry(id Identity) *usageEntry {
	e, ok := g.usage[id.ID]
	if !ok {
		e = &usageEntry{tier: id.Tier, windowStart: g.now(), firstSeen: g.now()}
		g.usage[id.ID] = e
	}
	e.tier = id.Tier
	limits := id.Tier.Limits()
	if g.now().Sub(e.windowStart) > limits.Window {
		e.translations = 0
		e.videoMinutes = 0
		e.windowStart = g.now()
	}
	return e
}

// CheckAndConsume evaluates one request against the identity's quota.
// Translation checks consume one unit when allowed; video checks only
// gate access, minutes are recorded separately.
func (g *Guard) CheckAndConsume(id Identity, kind Kind) Verdict {
	g.mu.Lock()
	defer g.mu.Unlock()

	limits := id.Tier.Limits()
	if kind == KindVideo && !limits.VideoEnabled {
		return Verdict{
			Allowed:      false,
			Message:      "Video chat requires an account. Sign up free!",
			AuthRequired: true,
		}
	}

	e := g.entry(id)
	resetAt := e.windowStart.Add(limits.Window)

	switch kind {
	case KindVideo:
		if id.Tier == domain.TierPaid {
			return Verdict{Allowed: true, Remaining: limits.VideoMinutes, Limit: limits.VideoMinutes, Message: "Unlimited video (Pro plan)"}
		}
		if int(e.videoMinutes) >= limits.VideoMinutes {
			return Verdict{
				Allowed:         false,
				Limit:           limits.VideoMinutes,
				Message:         fmt.Sprintf("Daily video limit reached (%d minutes). Upgrade to Pro!", limits.VideoMinutes),
				UpgradeRequired: true,
				ResetAt:         resetAt,
			}
		}
		return Verdict{Allowed: true, Remaining: limits.VideoMinutes - int(e.videoMinutes), Limit: limits.VideoMinutes, Message: "OK"}

	default:
		if id.Tier == domain.TierPaid {
			return Verdict{Allowed: true, Remaining: limits.Translations, Limit: limits.Translations, Message: "Unlimited (Pro plan)"}
		}
		if e.translations >= limits.Translations {
			msg := fmt.Sprintf("Daily limit reached (%d translations). Upgrade to Pro for unlimited!", limits.Translations)
			if id.Tier == domain.TierGuest {
				msg = fmt.Sprintf("Guest limit reached (%d messages). Sign up for unlimited translations!", limits.Translations)
			}
			log.Debug().Str("module", "app.guard").Str("identity", id.ID).Str("tier", string(id.Tier)).Msg("quota denied")
			return Verdict{
				Allowed:         false,
				Limit:           limits.Translations,
				Message:         msg,
				UpgradeRequired: true,
				ResetAt:         resetAt,
			}
		}
		e.translations++
		remaining := limits.Translations - e.translations
		msg := "OK"
		if (id.Tier == domain.TierGuest && remaining <= 2) || (id.Tier == domain.TierFree && remaining <= 10) {
			msg = fmt.Sprintf("%d translations remaining", remaining)
		}
		return Verdict{Allowed: true, Remaining: remaining, Limit: limits.Translations, Message: msg}
	}
}

// RecordVideoMinutes charges consumed video time to the identity.
func (g *Guard) RecordVideoMinutes(id Identity, minutes float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entry(id).videoMinutes += minutes
}

// UsageStats is the per-identity view exposed on the usage endpoint.
type UsageStats struct {
	Tier         domain.Tier `json:"tier"`
	Translations struct {
		Used      int `json:"used"`
		Limit     int `json:"limit"`
		Remaining int `json:"remaining"`
	} `json:"translations"`
	Video struct {
		UsedMinutes      float64 `json:"used_minutes"`
		LimitMinutes     int     `json:"limit_minutes"`
		RemainingMinutes float64 `json:"remaining_minutes"`
	} `json:"video"`
	NextReset time.Time `json:"next_reset"`
}

func (g *Guard) Usage(id Identity) UsageStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	e := g.entry(id)
	limits := id.Tier.Limits()
	var s UsageStats
	s.Tier = id.Tier
	s.Translations.Used = e.translations
	s.Translations.Limit = limits.Translations
	s.Translations.Remaining = max(0, limits.Translations-e.translations)
	s.Video.UsedMinutes = e.videoMinutes
	s.Video.LimitMinutes = limits.VideoMinutes
	s.Video.RemainingMinutes = max(0, float64(limits.VideoMinutes)-e.videoMinutes)
	s.NextReset = e.windowStart.Add(limits.Window)
	return s
}

// Cleanup drops guest entries past maxAge. Registered identities keep
// their counters until the window reset handles them.
func (g *Guard) Cleanup(maxAge time.Duration) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	removed := 0
	for key, e := range g.usage {
		if e.tier == domain.TierGuest && now.Sub(e.firstSeen) > maxAge {
			delete(g.usage, key)
			removed++
		}
	}
	if removed > 0 {
		log.Info().Str("module", "app.guard").Int("removed", removed).Msg("expired guest sessions cleaned up")
	}
	return removed
}

// GlobalStats aggregates usage across all identities.
type GlobalStats struct {
	ActiveGuests      int     `json:"active_guests"`
	RegisteredUsers   int     `json:"registered_users"`
	TotalTranslations int     `json:"total_translations_today"`
	TotalVideoMinutes float64 `json:"total_video_minutes_today"`
}

func (g *Guard) GlobalStats() GlobalStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	var s GlobalStats
	for _, e := range g.usage {
		if e.tier == domain.TierGuest {
			s.ActiveGuests++
		} else {
			s.RegisteredUsers++
		}
		s.TotalTranslations += e.translations
		s.TotalVideoMinutes += e.videoMinutes
	}
	return s
}
