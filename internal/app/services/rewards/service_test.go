package rewards

import (
	"context"
	"errors"
	"testing"

	domainprogression "github.com/saayr-labs/progression-layer/internal/app/domain/progression"
	"github.com/saayr-labs/progression-layer/internal/app/domain/reward"
	"github.com/saayr-labs/progression-layer/internal/app/services/progression"
	"github.com/saayr-labs/progression-layer/internal/app/storage/memory"
	apperrors "github.com/saayr-labs/progression-layer/internal/errors"
)

func newService(t *testing.T, initialXP int) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	if _, err := store.CreateState(context.Background(), domainprogression.State{UserID: "u1", TotalXP: initialXP}); err != nil {
		t.Fatalf("seed state: %v", err)
	}
	ledger := progression.New(store, nil, nil)
	return New(store, ledger, nil), store
}

func TestRedeemDebitsPoints(t *testing.T) {
	svc, store := newService(t, 1000)
	ctx := context.Background()

	rw, err := svc.Create(ctx, "Free coffee", "One free coffee.", "Cafe Luna", 4)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	redemption, err := svc.Redeem(ctx, rw.ID, "u1")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if redemption.PointsSpent != 4 {
		t.Fatalf("expected 4 points spent, got %d", redemption.PointsSpent)
	}

	st, _ := store.GetState(ctx, "u1")
	if st.TotalXP != 600 {
		t.Fatalf("expected 600 XP after debit, got %d", st.TotalXP)
	}

	history, err := svc.Redemptions(ctx, "u1")
	if err != nil {
		t.Fatalf("redemptions: %v", err)
	}
	if len(history) != 1 || history[0].RewardID != rw.ID {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestRedeemInsufficientPoints(t *testing.T) {
	svc, store := newService(t, 300)
	ctx := context.Background()

	rw, err := svc.Create(ctx, "Big prize", "", "", 10)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	_, err = svc.Redeem(ctx, rw.ID, "u1")
	if apperrors.KindOf(err) != apperrors.KindStateCorruption {
		t.Fatalf("expected ledger refusal, got %v", err)
	}

	// No record and no debit on refusal.
	st, _ := store.GetState(ctx, "u1")
	if st.TotalXP != 300 {
		t.Fatalf("expected untouched XP, got %d", st.TotalXP)
	}
	history, _ := svc.Redemptions(ctx, "u1")
	if len(history) != 0 {
		t.Fatalf("expected no redemption record, got %+v", history)
	}
}

// redemptionFailStore makes every InsertRedemption fail so the refund path
// can be exercised.
type redemptionFailStore struct {
	*memory.Store
}

func (s *redemptionFailStore) InsertRedemption(ctx context.Context, rd reward.Redemption) (reward.Redemption, error) {
	return reward.Redemption{}, errors.New("disk full")
}

func TestRedeemRefundsOnFailedRecord(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	if _, err := store.CreateState(ctx, domainprogression.State{UserID: "u1", TotalXP: 1000}); err != nil {
		t.Fatalf("seed state: %v", err)
	}
	ledger := progression.New(store, nil, nil)
	svc := New(&redemptionFailStore{Store: store}, ledger, nil)

	rw, err := svc.Create(ctx, "Free coffee", "", "Cafe Luna", 4)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	if _, err := svc.Redeem(ctx, rw.ID, "u1"); err == nil {
		t.Fatal("expected redemption failure")
	}

	// The debit must have been re-credited.
	st, err := store.GetState(ctx, "u1")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if st.TotalXP != 1000 {
		t.Fatalf("expected refunded 1000 XP, got %d", st.TotalXP)
	}
	history, _ := store.ListRedemptions(ctx, "u1")
	if len(history) != 0 {
		t.Fatalf("expected no redemption record, got %+v", history)
	}
}

func TestRedeemInactiveReward(t *testing.T) {
	svc, store := newService(t, 1000)
	ctx := context.Background()

	rw, err := svc.Create(ctx, "Retired", "", "", 1)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	rw.Active = false
	if _, err := store.UpdateReward(ctx, rw); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if _, err := svc.Redeem(ctx, rw.ID, "u1"); apperrors.KindOf(err) != apperrors.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newService(t, 0)
	ctx := context.Background()

	if _, err := svc.Create(ctx, " ", "", "", 5); apperrors.KindOf(err) != apperrors.KindInvalidArgument {
		t.Fatalf("expected invalid argument for empty name, got %v", err)
	}
	if _, err := svc.Create(ctx, "Free", "", "", 0); apperrors.KindOf(err) != apperrors.KindInvalidArgument {
		t.Fatalf("expected invalid argument for zero cost, got %v", err)
	}
}
