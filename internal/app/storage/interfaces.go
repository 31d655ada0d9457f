package storage

import (
	"context"

	"github.com/saayr-labs/progression-layer/internal/app/domain/account"
	"github.com/saayr-labs/progression-layer/internal/app/domain/challenge"
	"github.com/saayr-labs/progression-layer/internal/app/domain/progression"
	"github.com/saayr-labs/progression-layer/internal/app/domain/reward"
)

// AccountStore persists user accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, acct account.Account) (account.Account, error)
	UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error)
	GetAccount(ctx context.Context, id string) (account.Account, error)
	GetAccountByPhone(ctx context.Context, phone string) (account.Account, error)
	ListAccounts(ctx context.Context) ([]account.Account, error)
	DeleteAccount(ctx context.Context, id string) error
}

// LedgerStore persists progression state and the transaction and check-in
// sequences. Record listings are most-recent-first; inserts go to the head.
type LedgerStore interface {
	CreateState(ctx context.Context, st progression.State) (progression.State, error)
	GetState(ctx context.Context, userID string) (progression.State, error)
	UpdateState(ctx context.Context, st progression.State) (progression.State, error)
	DeleteState(ctx context.Context, userID string) error

	InsertTransaction(ctx context.Context, tx progression.Transaction) (progression.Transaction, error)
	UpdateTransaction(ctx context.Context, tx progression.Transaction) (progression.Transaction, error)
	ListTransactions(ctx context.Context, userID string) ([]progression.Transaction, error)

	InsertCheckIn(ctx context.Context, ci progression.CheckIn) (progression.CheckIn, error)
	ListCheckIns(ctx context.Context, userID string) ([]progression.CheckIn, error)
}

// ChallengeStore persists challenges and per-user completions.
type ChallengeStore interface {
	CreateChallenge(ctx context.Context, ch challenge.Challenge) (challenge.Challenge, error)
	UpdateChallenge(ctx context.Context, ch challenge.Challenge) (challenge.Challenge, error)
	GetChallenge(ctx context.Context, id string) (challenge.Challenge, error)
	ListChallenges(ctx context.Context, activeOnly bool) ([]challenge.Challenge, error)

	InsertCompletion(ctx context.Context, c challenge.Completion) (challenge.Completion, error)
	GetCompletion(ctx context.Context, challengeID, userID string) (challenge.Completion, error)
	ListCompletions(ctx context.Context, userID string) ([]challenge.Completion, error)
}

// RewardStore persists the reward catalog and redemption history.
type RewardStore interface {
	CreateReward(ctx context.Context, rw reward.Reward) (reward.Reward, error)
	UpdateReward(ctx context.Context, rw reward.Reward) (reward.Reward, error)
	GetReward(ctx context.Context, id string) (reward.Reward, error)
	ListRewards(ctx context.Context, activeOnly bool) ([]reward.Reward, error)

	InsertRedemption(ctx context.Context, rd reward.Redemption) (reward.Redemption, error)
	ListRedemptions(ctx context.Context, userID string) ([]reward.Redemption, error)
}
