// Package challenges manages the daily and weekly challenge board.
// Completing a challenge is a one-shot per user and settles its XP reward
// through the ledger.
package challenges

import (
	"context"
	"strings"

	"github.com/saayr-labs/progression-layer/internal/app/domain/challenge"
	domainprogression "github.com/saayr-labs/progression-layer/internal/app/domain/progression"
	"github.com/saayr-labs/progression-layer/internal/app/services/progression"
	"github.com/saayr-labs/progression-layer/internal/app/storage"
	apperrors "github.com/saayr-labs/progression-layer/internal/errors"
	"github.com/saayr-labs/progression-layer/pkg/logger"
)

// Service manages challenges and their completions.
type Service struct {
	store  storage.ChallengeStore
	ledger *progression.Service
	log    *logger.Logger
}

// New constructs a challenge service.
func New(store storage.ChallengeStore, ledger *progression.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("challenges")
	}
	return &Service{
		store:  store,
		ledger: ledger,
		log:    log,
	}
}

// defaultReward maps a cadence to its standard XP reward.
func defaultReward(cadence challenge.Cadence) int {
	if cadence == challenge.CadenceWeekly {
		return domainprogression.ChallengeWeeklyXP
	}
	return domainprogression.ChallengeDailyXP
}

// Create publishes a new challenge. A zero XP reward takes the cadence
// default.
func (s *Service) Create(ctx context.Context, title, description string, cadence challenge.Cadence) (challenge.Challenge, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return challenge.Challenge{}, apperrors.InvalidArgument("title is required")
	}
	if cadence != challenge.CadenceDaily && cadence != challenge.CadenceWeekly {
		return challenge.Challenge{}, apperrors.InvalidArgument("cadence must be daily or weekly, got %q", cadence)
	}

	ch := challenge.Challenge{
		Title:       title,
		Description: strings.TrimSpace(description),
		Cadence:     cadence,
		XPReward:    defaultReward(cadence),
		Active:      true,
	}
	ch, err := s.store.CreateChallenge(ctx, ch)
	if err != nil {
		return challenge.Challenge{}, err
	}

	s.log.WithField("challenge_id", ch.ID).
		WithField("cadence", string(cadence)).
		Info("challenge published")
	return ch, nil
}

// ListActive returns the challenges currently open for completion.
func (s *Service) ListActive(ctx context.Context) ([]challenge.Challenge, error) {
	return s.store.ListChallenges(ctx, true)
}

// Get returns one challenge by ID.
func (s *Service) Get(ctx context.Context, id string) (challenge.Challenge, error) {
	return s.store.GetChallenge(ctx, id)
}

// Complete marks the challenge done for the user and settles its reward.
// A repeat completion is a conflict; an inactive challenge cannot be
// completed.
func (s *Service) Complete(ctx context.Context, challengeID, userID string) (challenge.Completion, error) {
	if userID == "" {
		return challenge.Completion{}, apperrors.InvalidArgument("user id is required")
	}

	ch, err := s.store.GetChallenge(ctx, challengeID)
	if err != nil {
		return challenge.Completion{}, err
	}
	if !ch.Active {
		return challenge.Completion{}, apperrors.Conflict("challenge %s is no longer active", challengeID)
	}

	// The award must be able to settle before the one-shot record is
	// written; a completion persisted for a user with no ledger state would
	// block every retry while paying nothing.
	if _, err := s.ledger.State(ctx, userID); err != nil {
		return challenge.Completion{}, err
	}

	completion, err := s.store.InsertCompletion(ctx, challenge.Completion{
		ChallengeID: challengeID,
		UserID:      userID,
		XPAwarded:   ch.XPReward,
	})
	if err != nil {
		return challenge.Completion{}, err
	}

	if _, err := s.ledger.AwardXP(ctx, userID, ch.XPReward, "challenge"); err != nil {
		return challenge.Completion{}, err
	}

	s.log.WithField("challenge_id", challengeID).
		WithField("user_id", userID).
		WithField("xp", ch.XPReward).
		Info("challenge completed")
	return completion, nil
}

// Completions returns the user's completion history, most recent first.
func (s *Service) Completions(ctx context.Context, userID string) ([]challenge.Completion, error) {
	return s.store.ListCompletions(ctx, userID)
}

// Rotate retires every active challenge of the cadence and publishes the
// replacement. The rotator calls this on schedule; it is also exposed for
// manual rotation.
func (s *Service) Rotate(ctx context.Context, cadence challenge.Cadence, title, description string) (challenge.Challenge, error) {
	active, err := s.store.ListChallenges(ctx, true)
	if err != nil {
		return challenge.Challenge{}, err
	}
	for _, ch := range active {
		if ch.Cadence != cadence {
			continue
		}
		ch.Active = false
		if _, err := s.store.UpdateChallenge(ctx, ch); err != nil {
			return challenge.Challenge{}, err
		}
	}

	return s.Create(ctx, title, description, cadence)
}
