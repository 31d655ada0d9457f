package challenge

import "time"

// Cadence distinguishes daily from weekly challenges. The cadence fixes the
// XP reward paid on completion.
type Cadence string

const (
	CadenceDaily  Cadence = "daily"
	CadenceWeekly Cadence = "weekly"
)

// Challenge is an activity users can complete once for an XP reward.
type Challenge struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Cadence     Cadence   `json:"cadence"`
	XPReward    int       `json:"xp_reward"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Completion records a user finishing a challenge. One completion per user
// per challenge.
type Completion struct {
	ID          string    `json:"id"`
	ChallengeID string    `json:"challenge_id"`
	UserID      string    `json:"user_id"`
	XPAwarded   int       `json:"xp_awarded"`
	CompletedAt time.Time `json:"completed_at"`
}
