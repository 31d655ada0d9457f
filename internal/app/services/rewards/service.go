// Package rewards manages the redemption catalog. Redeeming a reward debits
// points through the ledger and appends an immutable redemption record.
package rewards

import (
	"context"
	"strings"

	"github.com/saayr-labs/progression-layer/internal/app/domain/reward"
	"github.com/saayr-labs/progression-layer/internal/app/services/progression"
	"github.com/saayr-labs/progression-layer/internal/app/storage"
	apperrors "github.com/saayr-labs/progression-layer/internal/errors"
	"github.com/saayr-labs/progression-layer/pkg/logger"
)

// Service manages the reward catalog and redemptions.
type Service struct {
	store  storage.RewardStore
	ledger *progression.Service
	log    *logger.Logger
}

// New constructs a reward service.
func New(store storage.RewardStore, ledger *progression.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("rewards")
	}
	return &Service{
		store:  store,
		ledger: ledger,
		log:    log,
	}
}

// Create adds a reward to the catalog.
func (s *Service) Create(ctx context.Context, name, description, partner string, costPoints int) (reward.Reward, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return reward.Reward{}, apperrors.InvalidArgument("name is required")
	}
	if costPoints <= 0 {
		return reward.Reward{}, apperrors.InvalidArgument("cost_points must be positive, got %d", costPoints)
	}

	return s.store.CreateReward(ctx, reward.Reward{
		Name:        name,
		Description: strings.TrimSpace(description),
		Partner:     strings.TrimSpace(partner),
		CostPoints:  costPoints,
		Active:      true,
	})
}

// ListActive returns the rewards currently redeemable.
func (s *Service) ListActive(ctx context.Context) ([]reward.Reward, error) {
	return s.store.ListRewards(ctx, true)
}

// Get returns one reward by ID.
func (s *Service) Get(ctx context.Context, id string) (reward.Reward, error) {
	return s.store.GetReward(ctx, id)
}

// Redeem debits the reward's cost from the user's points and records the
// redemption. An unaffordable redemption is refused by the ledger before
// any record is written.
func (s *Service) Redeem(ctx context.Context, rewardID, userID string) (reward.Redemption, error) {
	if userID == "" {
		return reward.Redemption{}, apperrors.InvalidArgument("user id is required")
	}

	rw, err := s.store.GetReward(ctx, rewardID)
	if err != nil {
		return reward.Redemption{}, err
	}
	if !rw.Active {
		return reward.Redemption{}, apperrors.Conflict("reward %s is not available", rewardID)
	}

	if _, err := s.ledger.RedeemPoints(ctx, userID, rw.CostPoints, "reward:"+rw.Name); err != nil {
		return reward.Redemption{}, err
	}

	redemption, err := s.store.InsertRedemption(ctx, reward.Redemption{
		RewardID:    rewardID,
		UserID:      userID,
		PointsSpent: rw.CostPoints,
	})
	if err != nil {
		// Re-credit the debit so a failed record write does not eat points.
		if _, refundErr := s.ledger.RefundPoints(ctx, userID, rw.CostPoints, "reward:"+rw.Name); refundErr != nil {
			s.log.WithError(refundErr).
				WithField("user_id", userID).
				WithField("reward_id", rewardID).
				Error("refund after failed redemption record")
		}
		return reward.Redemption{}, err
	}

	s.log.WithField("reward_id", rewardID).
		WithField("user_id", userID).
		WithField("points", rw.CostPoints).
		Info("reward redeemed")
	return redemption, nil
}

// Redemptions returns the user's redemption history, most recent first.
func (s *Service) Redemptions(ctx context.Context, userID string) ([]reward.Redemption, error) {
	return s.store.ListRedemptions(ctx, userID)
}
