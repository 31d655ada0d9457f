package progression

// Stage is one of the five ordered pet lifecycle tiers. The ordering
// matters: stages only ever advance while XP grows.
type Stage string

const (
	StageEgg       Stage = "egg"
	StageHatchling Stage = "hatchling"
	StageJuvenile  Stage = "juvenile"
	StageAdult     Stage = "adult"
	StageLegendary Stage = "legendary"
)

// StageForLevel classifies a level into its stage. Total over all positive
// levels; levels below 1 are treated as level 1.
func StageForLevel(level int) Stage {
	switch {
	case level <= 5:
		return StageEgg
	case level <= 15:
		return StageHatchling
	case level <= 30:
		return StageJuvenile
	case level <= 50:
		return StageAdult
	default:
		return StageLegendary
	}
}

// StageForXP is a convenience composition of LevelFromXP and StageForLevel.
func StageForXP(xp int) Stage {
	return StageForLevel(LevelFromXP(xp))
}

// Number returns the 1-based ordinal of the stage.
func (s Stage) Number() int {
	switch s {
	case StageEgg:
		return 1
	case StageHatchling:
		return 2
	case StageJuvenile:
		return 3
	case StageAdult:
		return 4
	case StageLegendary:
		return 5
	default:
		return 0
	}
}

// EvolutionBonusPoints is the one-time point payout granted when a user
// evolves into the stage. The initial stage pays nothing.
func EvolutionBonusPoints(s Stage) int {
	switch s {
	case StageHatchling:
		return 50
	case StageJuvenile:
		return 100
	case StageAdult:
		return 200
	case StageLegendary:
		return 500
	default:
		return 0
	}
}

// LevelRange returns the human-readable level range for display surfaces.
func LevelRange(s Stage) string {
	switch s {
	case StageEgg:
		return "1-5"
	case StageHatchling:
		return "6-15"
	case StageJuvenile:
		return "16-30"
	case StageAdult:
		return "31-50"
	case StageLegendary:
		return "51+"
	default:
		return ""
	}
}

// Emoji is the display glyph for the stage. Presentation metadata only.
func (s Stage) Emoji() string {
	switch s {
	case StageEgg:
		return "🥚"
	case StageHatchling:
		return "🐣"
	case StageJuvenile, StageAdult:
		return "🦅"
	case StageLegendary:
		return "👑"
	default:
		return ""
	}
}

// GradientColors is the display gradient pair for the stage. Presentation
// metadata only.
func (s Stage) GradientColors() [2]string {
	switch s {
	case StageEgg:
		return [2]string{"#7BFCF3", "#276FCE"}
	case StageHatchling:
		return [2]string{"#FFF9C4", "#FFF59D"}
	case StageJuvenile:
		return [2]string{"#B2DFDB", "#80CBC4"}
	case StageAdult:
		return [2]string{"#C5CAE9", "#9FA8DA"}
	case StageLegendary:
		return [2]string{"#FFCCBC", "#FFAB91"}
	default:
		return [2]string{}
	}
}
