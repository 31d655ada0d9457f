package progression

import "time"

// State is the per-user progression aggregate. TotalXP is monotonically
// non-decreasing except through the explicit point redemption debit; level,
// points, stage and progress are always derived, never stored.
type State struct {
	UserID           string    `json:"user_id"`
	TotalXP          int       `json:"total_xp"`
	CheckInStreak    int       `json:"check_in_streak"`
	ActivePVPSession bool      `json:"active_pvp_session"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Level derives the current level.
func (s State) Level() int { return LevelFromXP(s.TotalXP) }

// Points derives the spendable point balance.
func (s State) Points() int { return PointsFromXP(s.TotalXP) }

// Stage derives the current pet stage.
func (s State) Stage() Stage { return StageForLevel(s.Level()) }

// Progress derives the progress-to-next-level state.
func (s State) Progress() Progress { return ProgressToNextLevel(s.TotalXP) }

// Transaction is an immutable spending record. PointsAwarded is backfilled
// once, immediately after creation, when the award settles; every other
// field is fixed at creation time.
type Transaction struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	MerchantName  string    `json:"merchant_name"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Category      string    `json:"category"`
	Timestamp     time.Time `json:"timestamp"`
	XPAwarded     int       `json:"xp_awarded"`
	PointsAwarded int       `json:"points_awarded"`
	IsPartner     bool      `json:"is_partner"`
	Multiplier    int       `json:"multiplier"`
}

// CheckIn is an immutable location check-in record.
type CheckIn struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
	XPAwarded int       `json:"xp_awarded"`
}

// Snapshot is the read-only view served to display surfaces. Everything in
// it is recomputed from State and the record sequences on each read.
type Snapshot struct {
	UserID        string   `json:"user_id"`
	TotalXP       int      `json:"total_xp"`
	Level         int      `json:"level"`
	Points        int      `json:"points"`
	Stage         Stage    `json:"stage"`
	StageNumber   int      `json:"stage_number"`
	Progress      Progress `json:"progress"`
	TotalSpent    float64  `json:"total_spent"`
	CheckInCount  int      `json:"check_in_count"`
	CheckInStreak int      `json:"check_in_streak"`
}
