// Package progression holds the XP, level, point and pet-stage model. All
// derivations are pure functions of the cumulative XP counter; nothing in
// this package touches storage or I/O.
package progression

// XP economy constants. TotalXP is the sole source of truth; levels and
// points are always derived from it at these fixed ratios.
const (
	// XPPerLevel is the XP cost of each level.
	XPPerLevel = 1000
	// XPPerPoint converts XP into spendable points (100 XP = 1 point).
	XPPerPoint = 100
)

// Fixed XP rewards.
const (
	CheckInRegularXP   = 50
	CheckInSponsoredXP = 100
	ChallengeDailyXP   = 100
	ChallengeWeeklyXP  = 500
	PVPWinXP           = 200
)

// LevelFromXP derives the level from cumulative XP. Levels start at 1 and
// have no upper bound.
func LevelFromXP(xp int) int {
	level := xp/XPPerLevel + 1
	if level < 1 {
		return 1
	}
	return level
}

// PointsFromXP derives the spendable point balance from cumulative XP.
func PointsFromXP(xp int) int {
	return xp / XPPerPoint
}

// XPFromSpending converts a monetary amount into XP. The amount is
// truncated to a whole unit before the multiplier is applied, so spending
// below one currency unit earns nothing.
func XPFromSpending(amount float64, multiplier int) int {
	return int(amount) * multiplier
}

// Progress describes how far into the current level a user is.
type Progress struct {
	CurrentLevelXP int     `json:"current_level_xp"`
	NextLevelXP    int     `json:"next_level_xp"`
	Percentage     float64 `json:"percentage"`
}

// ProgressToNextLevel computes the progress bar state for a cumulative XP
// value. Percentage is clamped to [0,1]; under the current constants the
// upper clamp never fires, but it guards future constant changes.
func ProgressToNextLevel(totalXP int) Progress {
	level := LevelFromXP(totalXP)
	floor := (level - 1) * XPPerLevel
	into := totalXP - floor

	pct := float64(into) / float64(XPPerLevel)
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}

	return Progress{
		CurrentLevelXP: into,
		NextLevelXP:    XPPerLevel,
		Percentage:     pct,
	}
}
