package challenges

import (
	"context"
	"testing"
	"time"

	"github.com/saayr-labs/progression-layer/internal/app/domain/challenge"
	domainprogression "github.com/saayr-labs/progression-layer/internal/app/domain/progression"
	"github.com/saayr-labs/progression-layer/internal/app/services/progression"
	"github.com/saayr-labs/progression-layer/internal/app/storage/memory"
	apperrors "github.com/saayr-labs/progression-layer/internal/errors"
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	if _, err := store.CreateState(context.Background(), domainprogression.State{UserID: "u1"}); err != nil {
		t.Fatalf("seed state: %v", err)
	}
	ledger := progression.New(store, nil, nil)
	return New(store, ledger, nil), store
}

func TestCreateDefaultsRewardByCadence(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	daily, err := svc.Create(ctx, "Coffee run", "", challenge.CadenceDaily)
	if err != nil {
		t.Fatalf("create daily: %v", err)
	}
	if daily.XPReward != domainprogression.ChallengeDailyXP {
		t.Fatalf("expected daily reward %d, got %d", domainprogression.ChallengeDailyXP, daily.XPReward)
	}

	weekly, err := svc.Create(ctx, "Streak keeper", "", challenge.CadenceWeekly)
	if err != nil {
		t.Fatalf("create weekly: %v", err)
	}
	if weekly.XPReward != domainprogression.ChallengeWeeklyXP {
		t.Fatalf("expected weekly reward %d, got %d", domainprogression.ChallengeWeeklyXP, weekly.XPReward)
	}

	if _, err := svc.Create(ctx, "Bad", "", challenge.Cadence("hourly")); apperrors.KindOf(err) != apperrors.KindInvalidArgument {
		t.Fatalf("expected invalid cadence rejection, got %v", err)
	}
}

func TestCompleteAwardsXPOnce(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	ch, err := svc.Create(ctx, "Coffee run", "", challenge.CadenceDaily)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	completion, err := svc.Complete(ctx, ch.ID, "u1")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completion.XPAwarded != domainprogression.ChallengeDailyXP {
		t.Fatalf("unexpected completion XP %d", completion.XPAwarded)
	}

	st, _ := store.GetState(ctx, "u1")
	if st.TotalXP != domainprogression.ChallengeDailyXP {
		t.Fatalf("expected %d XP settled, got %d", domainprogression.ChallengeDailyXP, st.TotalXP)
	}

	if _, err := svc.Complete(ctx, ch.ID, "u1"); apperrors.KindOf(err) != apperrors.KindConflict {
		t.Fatalf("expected conflict on repeat completion, got %v", err)
	}
	st, _ = store.GetState(ctx, "u1")
	if st.TotalXP != domainprogression.ChallengeDailyXP {
		t.Fatalf("repeat completion must not double-pay, got %d", st.TotalXP)
	}
}

func TestCompleteUnknownUserLeavesNoRecord(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	ch, err := svc.Create(ctx, "Coffee run", "", challenge.CadenceDaily)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Complete(ctx, ch.ID, "ghost"); apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Fatalf("expected not found for user without state, got %v", err)
	}
	completions, err := svc.Completions(ctx, "ghost")
	if err != nil {
		t.Fatalf("list completions: %v", err)
	}
	if len(completions) != 0 {
		t.Fatalf("failed completion must not persist a record, got %d", len(completions))
	}

	// Once the state exists the completion must go through and pay.
	if _, err := store.CreateState(ctx, domainprogression.State{UserID: "ghost"}); err != nil {
		t.Fatalf("create state: %v", err)
	}
	if _, err := svc.Complete(ctx, ch.ID, "ghost"); err != nil {
		t.Fatalf("retry complete: %v", err)
	}
	st, _ := store.GetState(ctx, "ghost")
	if st.TotalXP != domainprogression.ChallengeDailyXP {
		t.Fatalf("expected %d XP settled on retry, got %d", domainprogression.ChallengeDailyXP, st.TotalXP)
	}
}

func TestCompleteInactiveChallenge(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	ch, err := svc.Create(ctx, "Old news", "", challenge.CadenceDaily)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ch.Active = false
	if _, err := store.UpdateChallenge(ctx, ch); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if _, err := svc.Complete(ctx, ch.ID, "u1"); apperrors.KindOf(err) != apperrors.KindConflict {
		t.Fatalf("expected conflict for inactive challenge, got %v", err)
	}
}

func TestRotateRetiresSameCadenceOnly(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "Old daily", "", challenge.CadenceDaily); err != nil {
		t.Fatalf("create daily: %v", err)
	}
	weekly, err := svc.Create(ctx, "Weekly stays", "", challenge.CadenceWeekly)
	if err != nil {
		t.Fatalf("create weekly: %v", err)
	}

	fresh, err := svc.Rotate(ctx, challenge.CadenceDaily, "New daily", "")
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}

	active, err := svc.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active challenges, got %d", len(active))
	}
	ids := map[string]bool{}
	for _, ch := range active {
		ids[ch.ID] = true
	}
	if !ids[fresh.ID] || !ids[weekly.ID] {
		t.Fatalf("expected fresh daily and untouched weekly, got %v", ids)
	}
}

func TestRotationTemplateDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	titleA, _ := rotationTemplate(challenge.CadenceDaily, now)
	titleB, _ := rotationTemplate(challenge.CadenceDaily, now)
	if titleA != titleB {
		t.Fatalf("expected deterministic template, got %q and %q", titleA, titleB)
	}

	weeklyTitle, _ := rotationTemplate(challenge.CadenceWeekly, now)
	if weeklyTitle == "" {
		t.Fatal("expected weekly template")
	}
}
