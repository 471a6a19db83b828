package domain

import "time"

// Tier is a usage class determining rate limits.
type Tier string

const (
	TierGuest Tier = "guest"
	TierFree  Tier = "free"
	TierPaid  Tier = "paid"
)

// unlimited stands in for "no practical limit" on the paid tier.
const unlimited = 999999

// TierLimits holds the quota shape for one tier.
type TierLimits struct {
	Translations    int
	VideoMinutes    int
	MaxParticipants int
	Window          time.Duration
	VideoEnabled    bool
}

var tierLimits = map[Tier]TierLimits{
	TierGuest: {
		Translations:    5,
		VideoMinutes:    0,
		MaxParticipants: 2,
		Window:          30 * time.Minute,
		VideoEnabled:    false,
	},
	TierFree: {
		Translations:    50,
		VideoMinutes:    10,
		MaxParticipants: 2,
		Window:          24 * time.Hour,
		VideoEnabled:    true,
	},
	TierPaid: {
		Translations:    unlimited,
		VideoMinutes:    unlimited,
		MaxParticipants: 10,
		Window:          24 * time.Hour,
		VideoEnabled:    true,
	},
}

// Limits returns the quota shape for t. Unknown tiers get the free
// limits rather than failing.
func (t Tier) Limits() TierLimits {
	if l, ok := tierLimits[t]; ok {
		return l
	}
	return tierLimits[TierFree]
}

func (t Tier) Valid() bool {
	_, ok := tierLimits[t]
	return ok
}
