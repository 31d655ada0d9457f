package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/saayr-labs/progression-layer/internal/app/domain/account"
	"github.com/saayr-labs/progression-layer/internal/app/domain/challenge"
	"github.com/saayr-labs/progression-layer/internal/app/domain/progression"
	"github.com/saayr-labs/progression-layer/internal/app/domain/reward"
	apperrors "github.com/saayr-labs/progression-layer/internal/errors"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	return New(db), mock, func() { db.Close() }
}

func TestGetAccountNotFound(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery("SELECT (.+) FROM app_accounts").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetAccount(context.Background(), "missing")
	if apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateAccountDuplicatePhoneConflict(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO app_accounts").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "app_accounts_phone_idx"})

	_, err := store.CreateAccount(context.Background(), account.Account{PhoneNumber: "+15550001111"})
	if apperrors.KindOf(err) != apperrors.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetState(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"user_id", "total_xp", "check_in_streak", "active_pvp_session", "created_at", "updated_at"}).
		AddRow("u1", 5010, 3, false, now, now)
	mock.ExpectQuery("SELECT (.+) FROM app_progression_states").
		WithArgs("u1").
		WillReturnRows(rows)

	st, err := store.GetState(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if st.TotalXP != 5010 || st.Level() != 6 {
		t.Fatalf("unexpected state: xp=%d level=%d", st.TotalXP, st.Level())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateStateMissing(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectExec("UPDATE app_progression_states").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.UpdateState(context.Background(), progression.State{UserID: "ghost", TotalXP: 100})
	if apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListTransactions(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_id", "merchant_name", "amount", "currency", "category", "occurred_at", "xp_awarded", "points_awarded", "is_partner", "multiplier"}).
		AddRow("t2", "u1", "Books", 30.0, "USD", "retail", now, 30, 0, false, 1).
		AddRow("t1", "u1", "Cafe", 45.5, "USD", "dining", now, 90, 0, true, 2)
	mock.ExpectQuery("SELECT (.+) FROM app_transactions").
		WithArgs("u1").
		WillReturnRows(rows)

	list, err := store.ListTransactions(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(list) != 2 || list[0].ID != "t2" || list[1].XPAwarded != 90 {
		t.Fatalf("unexpected transactions: %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertCompletionDuplicateConflict(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO app_challenge_completions").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "app_challenge_completions_challenge_id_user_id_key"})

	_, err := store.InsertCompletion(context.Background(), challenge.Completion{ChallengeID: "c1", UserID: "u1"})
	if apperrors.KindOf(err) != apperrors.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	store := New(db)
	ctx := context.Background()

	acct, err := store.CreateAccount(ctx, account.Account{FullName: "Integration", PhoneNumber: "+15559998888"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	defer store.DeleteAccount(ctx, acct.ID)

	st, err := store.CreateState(ctx, progression.State{UserID: acct.ID})
	if err != nil {
		t.Fatalf("create state: %v", err)
	}
	defer store.DeleteState(ctx, acct.ID)

	st.TotalXP = 150
	if _, err := store.UpdateState(ctx, st); err != nil {
		t.Fatalf("update state: %v", err)
	}

	if _, err := store.InsertCheckIn(ctx, progression.CheckIn{UserID: acct.ID, Location: "HQ", XPAwarded: 50}); err != nil {
		t.Fatalf("insert check-in: %v", err)
	}

	rw, err := store.CreateReward(ctx, reward.Reward{Name: "Integration reward", CostPoints: 1, Active: true})
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	if _, err := store.InsertRedemption(ctx, reward.Redemption{RewardID: rw.ID, UserID: acct.ID, PointsSpent: 1}); err != nil {
		t.Fatalf("insert redemption: %v", err)
	}
}
