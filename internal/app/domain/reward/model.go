package reward

import "time"

// Reward is an entry in the redemption catalog priced in points.
type Reward struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CostPoints  int       `json:"cost_points"`
	Partner     string    `json:"partner,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Redemption records a user spending points on a reward. Immutable.
type Redemption struct {
	ID          string    `json:"id"`
	RewardID    string    `json:"reward_id"`
	UserID      string    `json:"user_id"`
	PointsSpent int       `json:"points_spent"`
	RedeemedAt  time.Time `json:"redeemed_at"`
}
