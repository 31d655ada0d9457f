package memory

import (
	"context"
	"testing"

	"github.com/saayr-labs/progression-layer/internal/app/domain/account"
	"github.com/saayr-labs/progression-layer/internal/app/domain/challenge"
	"github.com/saayr-labs/progression-layer/internal/app/domain/progression"
	"github.com/saayr-labs/progression-layer/internal/app/domain/reward"
	apperrors "github.com/saayr-labs/progression-layer/internal/errors"
)

func TestAccountLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.CreateAccount(ctx, account.Account{
		FullName:    "Ada Byron",
		Email:       "ada@example.com",
		PhoneNumber: "+15550001111",
		PetName:     "Pixel",
		PetType:     "dragon",
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated account ID")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps set on create")
	}

	got, err := store.GetAccount(ctx, created.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if got.FullName != "Ada Byron" {
		t.Fatalf("unexpected full name %q", got.FullName)
	}

	byPhone, err := store.GetAccountByPhone(ctx, "+15550001111")
	if err != nil {
		t.Fatalf("get by phone: %v", err)
	}
	if byPhone.ID != created.ID {
		t.Fatalf("phone lookup returned %s, want %s", byPhone.ID, created.ID)
	}

	got.PetName = "Vector"
	updated, err := store.UpdateAccount(ctx, got)
	if err != nil {
		t.Fatalf("update account: %v", err)
	}
	if updated.PetName != "Vector" {
		t.Fatalf("update not applied, pet name %q", updated.PetName)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatal("update must preserve CreatedAt")
	}

	if err := store.DeleteAccount(ctx, created.ID); err != nil {
		t.Fatalf("delete account: %v", err)
	}
	if _, err := store.GetAccount(ctx, created.ID); apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if _, err := store.GetAccountByPhone(ctx, "+15550001111"); apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Fatalf("expected phone index cleared after delete, got %v", err)
	}
}

func TestCreateAccountDuplicatePhone(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.CreateAccount(ctx, account.Account{FullName: "First", PhoneNumber: "+15550002222"}); err != nil {
		t.Fatalf("create first account: %v", err)
	}
	_, err := store.CreateAccount(ctx, account.Account{FullName: "Second", PhoneNumber: "+15550002222"})
	if apperrors.KindOf(err) != apperrors.KindConflict {
		t.Fatalf("expected conflict for duplicate phone, got %v", err)
	}
}

func TestStateLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.CreateState(ctx, progression.State{UserID: "u1", TotalXP: 500})
	if err != nil {
		t.Fatalf("create state: %v", err)
	}
	if created.TotalXP != 500 {
		t.Fatalf("unexpected total XP %d", created.TotalXP)
	}

	if _, err := store.CreateState(ctx, progression.State{UserID: "u1"}); apperrors.KindOf(err) != apperrors.KindConflict {
		t.Fatalf("expected conflict on duplicate state, got %v", err)
	}
	if _, err := store.CreateState(ctx, progression.State{}); apperrors.KindOf(err) != apperrors.KindInvalidArgument {
		t.Fatalf("expected invalid argument for empty user ID, got %v", err)
	}

	created.TotalXP = 1500
	updated, err := store.UpdateState(ctx, created)
	if err != nil {
		t.Fatalf("update state: %v", err)
	}
	if updated.TotalXP != 1500 || updated.Level() != 2 {
		t.Fatalf("unexpected state after update: xp=%d level=%d", updated.TotalXP, updated.Level())
	}

	if err := store.DeleteState(ctx, "u1"); err != nil {
		t.Fatalf("delete state: %v", err)
	}
	if _, err := store.GetState(ctx, "u1"); apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestTransactionsMostRecentFirst(t *testing.T) {
	store := New()
	ctx := context.Background()

	first, err := store.InsertTransaction(ctx, progression.Transaction{UserID: "u1", MerchantName: "Cafe", Amount: 12.50})
	if err != nil {
		t.Fatalf("insert first: %v", err)
	}
	second, err := store.InsertTransaction(ctx, progression.Transaction{UserID: "u1", MerchantName: "Books", Amount: 30})
	if err != nil {
		t.Fatalf("insert second: %v", err)
	}

	list, err := store.ListTransactions(ctx, "u1")
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("expected most-recent-first order, got %s then %s", list[0].ID, list[1].ID)
	}
}

func TestUpdateTransactionPreservesPosition(t *testing.T) {
	store := New()
	ctx := context.Background()

	older, _ := store.InsertTransaction(ctx, progression.Transaction{UserID: "u1", MerchantName: "Cafe"})
	newer, _ := store.InsertTransaction(ctx, progression.Transaction{UserID: "u1", MerchantName: "Books"})

	older.PointsAwarded = 7
	if _, err := store.UpdateTransaction(ctx, older); err != nil {
		t.Fatalf("update transaction: %v", err)
	}

	list, _ := store.ListTransactions(ctx, "u1")
	if list[0].ID != newer.ID {
		t.Fatal("update must not move a transaction to the head")
	}
	if list[1].PointsAwarded != 7 {
		t.Fatalf("expected backfilled points 7, got %d", list[1].PointsAwarded)
	}

	missing := progression.Transaction{ID: "nope", UserID: "u1"}
	if _, err := store.UpdateTransaction(ctx, missing); apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Fatalf("expected not found for unknown transaction, got %v", err)
	}
}

func TestCheckInsMostRecentFirst(t *testing.T) {
	store := New()
	ctx := context.Background()

	first, _ := store.InsertCheckIn(ctx, progression.CheckIn{UserID: "u1", Location: "Downtown", XPAwarded: 50})
	second, _ := store.InsertCheckIn(ctx, progression.CheckIn{UserID: "u1", Location: "Airport", XPAwarded: 100})

	list, err := store.ListCheckIns(ctx, "u1")
	if err != nil {
		t.Fatalf("list check-ins: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("expected most-recent-first order, got %+v", list)
	}
}

func TestChallengeCompletionOnce(t *testing.T) {
	store := New()
	ctx := context.Background()

	ch, err := store.CreateChallenge(ctx, challenge.Challenge{Title: "Daily spender", Cadence: challenge.CadenceDaily, XPReward: 100, Active: true})
	if err != nil {
		t.Fatalf("create challenge: %v", err)
	}

	if _, err := store.InsertCompletion(ctx, challenge.Completion{ChallengeID: ch.ID, UserID: "u1", XPAwarded: 100}); err != nil {
		t.Fatalf("insert completion: %v", err)
	}
	_, err = store.InsertCompletion(ctx, challenge.Completion{ChallengeID: ch.ID, UserID: "u1", XPAwarded: 100})
	if apperrors.KindOf(err) != apperrors.KindConflict {
		t.Fatalf("expected conflict on second completion, got %v", err)
	}

	got, err := store.GetCompletion(ctx, ch.ID, "u1")
	if err != nil {
		t.Fatalf("get completion: %v", err)
	}
	if got.XPAwarded != 100 {
		t.Fatalf("unexpected completion XP %d", got.XPAwarded)
	}
}

func TestListChallengesActiveOnly(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.CreateChallenge(ctx, challenge.Challenge{Title: "Live", Cadence: challenge.CadenceWeekly, Active: true}); err != nil {
		t.Fatalf("create active: %v", err)
	}
	if _, err := store.CreateChallenge(ctx, challenge.Challenge{Title: "Retired", Cadence: challenge.CadenceWeekly, Active: false}); err != nil {
		t.Fatalf("create inactive: %v", err)
	}

	all, _ := store.ListChallenges(ctx, false)
	if len(all) != 2 {
		t.Fatalf("expected 2 challenges, got %d", len(all))
	}
	active, _ := store.ListChallenges(ctx, true)
	if len(active) != 1 || active[0].Title != "Live" {
		t.Fatalf("expected only the active challenge, got %+v", active)
	}
}

func TestRewardLifecycleAndRedemptions(t *testing.T) {
	store := New()
	ctx := context.Background()

	rw, err := store.CreateReward(ctx, reward.Reward{Name: "Free coffee", CostPoints: 50, Active: true})
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	rw.CostPoints = 60
	if _, err := store.UpdateReward(ctx, rw); err != nil {
		t.Fatalf("update reward: %v", err)
	}
	got, err := store.GetReward(ctx, rw.ID)
	if err != nil {
		t.Fatalf("get reward: %v", err)
	}
	if got.CostPoints != 60 {
		t.Fatalf("unexpected cost %d", got.CostPoints)
	}

	first, _ := store.InsertRedemption(ctx, reward.Redemption{RewardID: rw.ID, UserID: "u1", PointsSpent: 60})
	second, _ := store.InsertRedemption(ctx, reward.Redemption{RewardID: rw.ID, UserID: "u1", PointsSpent: 60})

	list, err := store.ListRedemptions(ctx, "u1")
	if err != nil {
		t.Fatalf("list redemptions: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("expected most-recent-first redemptions, got %+v", list)
	}
}
