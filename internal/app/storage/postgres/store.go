// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/saayr-labs/progression-layer/internal/app/domain/account"
	"github.com/saayr-labs/progression-layer/internal/app/domain/challenge"
	"github.com/saayr-labs/progression-layer/internal/app/domain/progression"
	"github.com/saayr-labs/progression-layer/internal/app/domain/reward"
	"github.com/saayr-labs/progression-layer/internal/app/storage"
	apperrors "github.com/saayr-labs/progression-layer/internal/errors"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)
var _ storage.ChallengeStore = (*Store)(nil)
var _ storage.RewardStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// uniqueViolation is the class 23 code pq reports for unique constraints.
const uniqueViolation = "23505"

func translate(err error, notFoundFormat string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(notFoundFormat, args...)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return apperrors.Conflict("duplicate record: %s", pqErr.Constraint)
	}
	return err
}

// --- AccountStore -----------------------------------------------------------

func (s *Store) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	acct.PhoneNumber = strings.TrimSpace(acct.PhoneNumber)
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_accounts (id, full_name, email, phone_number, pet_name, pet_type, pin_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, acct.ID, acct.FullName, acct.Email, acct.PhoneNumber, acct.PetName, acct.PetType, acct.PINHash, acct.CreatedAt, acct.UpdatedAt)
	if err != nil {
		return account.Account{}, translate(err, "account %s not found", acct.ID)
	}
	return acct, nil
}

func (s *Store) UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	existing, err := s.GetAccount(ctx, acct.ID)
	if err != nil {
		return account.Account{}, err
	}

	acct.PhoneNumber = strings.TrimSpace(acct.PhoneNumber)
	acct.CreatedAt = existing.CreatedAt
	acct.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE app_accounts
		SET full_name = $2, email = $3, phone_number = $4, pet_name = $5, pet_type = $6, pin_hash = $7, updated_at = $8
		WHERE id = $1
	`, acct.ID, acct.FullName, acct.Email, acct.PhoneNumber, acct.PetName, acct.PetType, acct.PINHash, acct.UpdatedAt)
	if err != nil {
		return account.Account{}, translate(err, "account %s not found", acct.ID)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return account.Account{}, apperrors.NotFound("account %s not found", acct.ID)
	}
	return acct, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (account.Account, error) {
	return s.scanAccount(s.db.QueryRowContext(ctx, `
		SELECT id, full_name, email, phone_number, pet_name, pet_type, pin_hash, created_at, updated_at
		FROM app_accounts
		WHERE id = $1
	`, id), "account %s not found", id)
}

func (s *Store) GetAccountByPhone(ctx context.Context, phone string) (account.Account, error) {
	phone = strings.TrimSpace(phone)
	return s.scanAccount(s.db.QueryRowContext(ctx, `
		SELECT id, full_name, email, phone_number, pet_name, pet_type, pin_hash, created_at, updated_at
		FROM app_accounts
		WHERE lower(phone_number) = lower($1)
	`, phone), "account for phone %s not found", phone)
}

func (s *Store) scanAccount(row *sql.Row, notFoundFormat string, args ...interface{}) (account.Account, error) {
	var acct account.Account
	err := row.Scan(&acct.ID, &acct.FullName, &acct.Email, &acct.PhoneNumber, &acct.PetName, &acct.PetType, &acct.PINHash, &acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		return account.Account{}, translate(err, notFoundFormat, args...)
	}
	return acct, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]account.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, full_name, email, phone_number, pet_name, pet_type, pin_hash, created_at, updated_at
		FROM app_accounts
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []account.Account
	for rows.Next() {
		var acct account.Account
		if err := rows.Scan(&acct.ID, &acct.FullName, &acct.Email, &acct.PhoneNumber, &acct.PetName, &acct.PetType, &acct.PINHash, &acct.CreatedAt, &acct.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, acct)
	}
	return result, rows.Err()
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM app_accounts WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.NotFound("account %s not found", id)
	}
	return nil
}

// --- LedgerStore ------------------------------------------------------------

func (s *Store) CreateState(ctx context.Context, st progression.State) (progression.State, error) {
	if st.UserID == "" {
		return progression.State{}, apperrors.InvalidArgument("user id is required")
	}
	now := time.Now().UTC()
	st.CreatedAt = now
	st.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_progression_states (user_id, total_xp, check_in_streak, active_pvp_session, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, st.UserID, st.TotalXP, st.CheckInStreak, st.ActivePVPSession, st.CreatedAt, st.UpdatedAt)
	if err != nil {
		return progression.State{}, translate(err, "progression state for user %s not found", st.UserID)
	}
	return st, nil
}

func (s *Store) GetState(ctx context.Context, userID string) (progression.State, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, total_xp, check_in_streak, active_pvp_session, created_at, updated_at
		FROM app_progression_states
		WHERE user_id = $1
	`, userID)

	var st progression.State
	if err := row.Scan(&st.UserID, &st.TotalXP, &st.CheckInStreak, &st.ActivePVPSession, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return progression.State{}, translate(err, "progression state for user %s not found", userID)
	}
	return st, nil
}

func (s *Store) UpdateState(ctx context.Context, st progression.State) (progression.State, error) {
	st.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE app_progression_states
		SET total_xp = $2, check_in_streak = $3, active_pvp_session = $4, updated_at = $5
		WHERE user_id = $1
	`, st.UserID, st.TotalXP, st.CheckInStreak, st.ActivePVPSession, st.UpdatedAt)
	if err != nil {
		return progression.State{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return progression.State{}, apperrors.NotFound("progression state for user %s not found", st.UserID)
	}
	return st, nil
}

func (s *Store) DeleteState(ctx context.Context, userID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM app_progression_states WHERE user_id = $1
	`, userID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.NotFound("progression state for user %s not found", userID)
	}
	return nil
}

func (s *Store) InsertTransaction(ctx context.Context, tx progression.Transaction) (progression.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_transactions (id, user_id, merchant_name, amount, currency, category, occurred_at, xp_awarded, points_awarded, is_partner, multiplier)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, tx.ID, tx.UserID, tx.MerchantName, tx.Amount, tx.Currency, tx.Category, tx.Timestamp, tx.XPAwarded, tx.PointsAwarded, tx.IsPartner, tx.Multiplier)
	if err != nil {
		return progression.Transaction{}, translate(err, "transaction %s not found", tx.ID)
	}
	return tx, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx progression.Transaction) (progression.Transaction, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE app_transactions
		SET merchant_name = $2, amount = $3, currency = $4, category = $5, xp_awarded = $6, points_awarded = $7, is_partner = $8, multiplier = $9
		WHERE id = $1
	`, tx.ID, tx.MerchantName, tx.Amount, tx.Currency, tx.Category, tx.XPAwarded, tx.PointsAwarded, tx.IsPartner, tx.Multiplier)
	if err != nil {
		return progression.Transaction{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return progression.Transaction{}, apperrors.NotFound("transaction %s not found", tx.ID)
	}
	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string) ([]progression.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, merchant_name, amount, currency, category, occurred_at, xp_awarded, points_awarded, is_partner, multiplier
		FROM app_transactions
		WHERE user_id = $1
		ORDER BY seq DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []progression.Transaction
	for rows.Next() {
		var tx progression.Transaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.MerchantName, &tx.Amount, &tx.Currency, &tx.Category, &tx.Timestamp, &tx.XPAwarded, &tx.PointsAwarded, &tx.IsPartner, &tx.Multiplier); err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}

func (s *Store) InsertCheckIn(ctx context.Context, ci progression.CheckIn) (progression.CheckIn, error) {
	if ci.ID == "" {
		ci.ID = uuid.NewString()
	}
	if ci.Timestamp.IsZero() {
		ci.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_check_ins (id, user_id, location, occurred_at, xp_awarded)
		VALUES ($1, $2, $3, $4, $5)
	`, ci.ID, ci.UserID, ci.Location, ci.Timestamp, ci.XPAwarded)
	if err != nil {
		return progression.CheckIn{}, translate(err, "check-in %s not found", ci.ID)
	}
	return ci, nil
}

func (s *Store) ListCheckIns(ctx context.Context, userID string) ([]progression.CheckIn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, location, occurred_at, xp_awarded
		FROM app_check_ins
		WHERE user_id = $1
		ORDER BY seq DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []progression.CheckIn
	for rows.Next() {
		var ci progression.CheckIn
		if err := rows.Scan(&ci.ID, &ci.UserID, &ci.Location, &ci.Timestamp, &ci.XPAwarded); err != nil {
			return nil, err
		}
		result = append(result, ci)
	}
	return result, rows.Err()
}

// --- ChallengeStore ---------------------------------------------------------

func (s *Store) CreateChallenge(ctx context.Context, ch challenge.Challenge) (challenge.Challenge, error) {
	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ch.CreatedAt = now
	ch.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_challenges (id, title, description, cadence, xp_reward, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, ch.ID, ch.Title, ch.Description, string(ch.Cadence), ch.XPReward, ch.Active, ch.CreatedAt, ch.UpdatedAt)
	if err != nil {
		return challenge.Challenge{}, translate(err, "challenge %s not found", ch.ID)
	}
	return ch, nil
}

func (s *Store) UpdateChallenge(ctx context.Context, ch challenge.Challenge) (challenge.Challenge, error) {
	existing, err := s.GetChallenge(ctx, ch.ID)
	if err != nil {
		return challenge.Challenge{}, err
	}

	ch.CreatedAt = existing.CreatedAt
	ch.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE app_challenges
		SET title = $2, description = $3, cadence = $4, xp_reward = $5, active = $6, updated_at = $7
		WHERE id = $1
	`, ch.ID, ch.Title, ch.Description, string(ch.Cadence), ch.XPReward, ch.Active, ch.UpdatedAt)
	if err != nil {
		return challenge.Challenge{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return challenge.Challenge{}, apperrors.NotFound("challenge %s not found", ch.ID)
	}
	return ch, nil
}

func (s *Store) GetChallenge(ctx context.Context, id string) (challenge.Challenge, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, cadence, xp_reward, active, created_at, updated_at
		FROM app_challenges
		WHERE id = $1
	`, id)

	var (
		ch      challenge.Challenge
		cadence string
	)
	if err := row.Scan(&ch.ID, &ch.Title, &ch.Description, &cadence, &ch.XPReward, &ch.Active, &ch.CreatedAt, &ch.UpdatedAt); err != nil {
		return challenge.Challenge{}, translate(err, "challenge %s not found", id)
	}
	ch.Cadence = challenge.Cadence(cadence)
	return ch, nil
}

func (s *Store) ListChallenges(ctx context.Context, activeOnly bool) ([]challenge.Challenge, error) {
	query := `
		SELECT id, title, description, cadence, xp_reward, active, created_at, updated_at
		FROM app_challenges
		ORDER BY created_at
	`
	if activeOnly {
		query = `
			SELECT id, title, description, cadence, xp_reward, active, created_at, updated_at
			FROM app_challenges
			WHERE active
			ORDER BY created_at
		`
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []challenge.Challenge
	for rows.Next() {
		var (
			ch      challenge.Challenge
			cadence string
		)
		if err := rows.Scan(&ch.ID, &ch.Title, &ch.Description, &cadence, &ch.XPReward, &ch.Active, &ch.CreatedAt, &ch.UpdatedAt); err != nil {
			return nil, err
		}
		ch.Cadence = challenge.Cadence(cadence)
		result = append(result, ch)
	}
	return result, rows.Err()
}

func (s *Store) InsertCompletion(ctx context.Context, c challenge.Completion) (challenge.Completion, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CompletedAt.IsZero() {
		c.CompletedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_challenge_completions (id, challenge_id, user_id, xp_awarded, completed_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.ChallengeID, c.UserID, c.XPAwarded, c.CompletedAt)
	if err != nil {
		return challenge.Completion{}, translate(err, "completion %s not found", c.ID)
	}
	return c, nil
}

func (s *Store) GetCompletion(ctx context.Context, challengeID, userID string) (challenge.Completion, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, challenge_id, user_id, xp_awarded, completed_at
		FROM app_challenge_completions
		WHERE challenge_id = $1 AND user_id = $2
	`, challengeID, userID)

	var c challenge.Completion
	if err := row.Scan(&c.ID, &c.ChallengeID, &c.UserID, &c.XPAwarded, &c.CompletedAt); err != nil {
		return challenge.Completion{}, translate(err, "completion of challenge %s by user %s not found", challengeID, userID)
	}
	return c, nil
}

func (s *Store) ListCompletions(ctx context.Context, userID string) ([]challenge.Completion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, challenge_id, user_id, xp_awarded, completed_at
		FROM app_challenge_completions
		WHERE user_id = $1
		ORDER BY completed_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []challenge.Completion
	for rows.Next() {
		var c challenge.Completion
		if err := rows.Scan(&c.ID, &c.ChallengeID, &c.UserID, &c.XPAwarded, &c.CompletedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// --- RewardStore ------------------------------------------------------------

func (s *Store) CreateReward(ctx context.Context, rw reward.Reward) (reward.Reward, error) {
	if rw.ID == "" {
		rw.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rw.CreatedAt = now
	rw.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_rewards (id, name, description, cost_points, partner, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rw.ID, rw.Name, rw.Description, rw.CostPoints, rw.Partner, rw.Active, rw.CreatedAt, rw.UpdatedAt)
	if err != nil {
		return reward.Reward{}, translate(err, "reward %s not found", rw.ID)
	}
	return rw, nil
}

func (s *Store) UpdateReward(ctx context.Context, rw reward.Reward) (reward.Reward, error) {
	existing, err := s.GetReward(ctx, rw.ID)
	if err != nil {
		return reward.Reward{}, err
	}

	rw.CreatedAt = existing.CreatedAt
	rw.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE app_rewards
		SET name = $2, description = $3, cost_points = $4, partner = $5, active = $6, updated_at = $7
		WHERE id = $1
	`, rw.ID, rw.Name, rw.Description, rw.CostPoints, rw.Partner, rw.Active, rw.UpdatedAt)
	if err != nil {
		return reward.Reward{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return reward.Reward{}, apperrors.NotFound("reward %s not found", rw.ID)
	}
	return rw, nil
}

func (s *Store) GetReward(ctx context.Context, id string) (reward.Reward, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, cost_points, partner, active, created_at, updated_at
		FROM app_rewards
		WHERE id = $1
	`, id)

	var rw reward.Reward
	if err := row.Scan(&rw.ID, &rw.Name, &rw.Description, &rw.CostPoints, &rw.Partner, &rw.Active, &rw.CreatedAt, &rw.UpdatedAt); err != nil {
		return reward.Reward{}, translate(err, "reward %s not found", id)
	}
	return rw, nil
}

func (s *Store) ListRewards(ctx context.Context, activeOnly bool) ([]reward.Reward, error) {
	query := `
		SELECT id, name, description, cost_points, partner, active, created_at, updated_at
		FROM app_rewards
		ORDER BY created_at
	`
	if activeOnly {
		query = `
			SELECT id, name, description, cost_points, partner, active, created_at, updated_at
			FROM app_rewards
			WHERE active
			ORDER BY created_at
		`
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []reward.Reward
	for rows.Next() {
		var rw reward.Reward
		if err := rows.Scan(&rw.ID, &rw.Name, &rw.Description, &rw.CostPoints, &rw.Partner, &rw.Active, &rw.CreatedAt, &rw.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, rw)
	}
	return result, rows.Err()
}

func (s *Store) InsertRedemption(ctx context.Context, rd reward.Redemption) (reward.Redemption, error) {
	if rd.ID == "" {
		rd.ID = uuid.NewString()
	}
	if rd.RedeemedAt.IsZero() {
		rd.RedeemedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_redemptions (id, reward_id, user_id, points_spent, redeemed_at)
		VALUES ($1, $2, $3, $4, $5)
	`, rd.ID, rd.RewardID, rd.UserID, rd.PointsSpent, rd.RedeemedAt)
	if err != nil {
		return reward.Redemption{}, translate(err, "redemption %s not found", rd.ID)
	}
	return rd, nil
}

func (s *Store) ListRedemptions(ctx context.Context, userID string) ([]reward.Redemption, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, reward_id, user_id, points_spent, redeemed_at
		FROM app_redemptions
		WHERE user_id = $1
		ORDER BY seq DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []reward.Redemption
	for rows.Next() {
		var rd reward.Redemption
		if err := rows.Scan(&rd.ID, &rd.RewardID, &rd.UserID, &rd.PointsSpent, &rd.RedeemedAt); err != nil {
			return nil, err
		}
		result = append(result, rd)
	}
	return result, rows.Err()
}
