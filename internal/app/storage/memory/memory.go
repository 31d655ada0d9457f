// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/saayr-labs/progression-layer/internal/app/domain/account"
	"github.com/saayr-labs/progression-layer/internal/app/domain/challenge"
	"github.com/saayr-labs/progression-layer/internal/app/domain/progression"
	"github.com/saayr-labs/progression-layer/internal/app/domain/reward"
	"github.com/saayr-labs/progression-layer/internal/app/storage"
	apperrors "github.com/saayr-labs/progression-layer/internal/errors"
)

// Store implements every storage interface with mutex-guarded maps.
type Store struct {
	mu              sync.RWMutex
	nextID          int64
	accounts        map[string]account.Account
	accountsByPhone map[string]string
	states          map[string]progression.State
	transactions    map[string][]progression.Transaction
	checkIns        map[string][]progression.CheckIn
	challenges      map[string]challenge.Challenge
	completions     map[string][]challenge.Completion
	rewards         map[string]reward.Reward
	redemptions     map[string][]reward.Redemption
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)
var _ storage.ChallengeStore = (*Store)(nil)
var _ storage.RewardStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:          1,
		accounts:        make(map[string]account.Account),
		accountsByPhone: make(map[string]string),
		states:          make(map[string]progression.State),
		transactions:    make(map[string][]progression.Transaction),
		checkIns:        make(map[string][]progression.CheckIn),
		challenges:      make(map[string]challenge.Challenge),
		completions:     make(map[string][]challenge.Completion),
		rewards:         make(map[string]reward.Reward),
		redemptions:     make(map[string][]reward.Redemption),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// AccountStore implementation -------------------------------------------------

func (s *Store) CreateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acct.ID == "" {
		acct.ID = s.nextIDLocked()
	} else if _, exists := s.accounts[acct.ID]; exists {
		return account.Account{}, apperrors.Conflict("account %s already exists", acct.ID)
	}

	acct.PhoneNumber = strings.TrimSpace(acct.PhoneNumber)
	phoneKey := strings.ToLower(acct.PhoneNumber)
	if phoneKey != "" {
		if existing, exists := s.accountsByPhone[phoneKey]; exists {
			return account.Account{}, apperrors.Conflict("phone %s already registered to account %s", acct.PhoneNumber, existing)
		}
	}

	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	s.accounts[acct.ID] = acct
	if phoneKey != "" {
		s.accountsByPhone[phoneKey] = acct.ID
	}
	return acct, nil
}

func (s *Store) UpdateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.accounts[acct.ID]
	if !ok {
		return account.Account{}, apperrors.NotFound("account %s not found", acct.ID)
	}

	acct.PhoneNumber = strings.TrimSpace(acct.PhoneNumber)
	oldKey := strings.ToLower(strings.TrimSpace(original.PhoneNumber))
	newKey := strings.ToLower(acct.PhoneNumber)
	if newKey != "" {
		if existing, exists := s.accountsByPhone[newKey]; exists && existing != acct.ID {
			return account.Account{}, apperrors.Conflict("phone %s already registered to account %s", acct.PhoneNumber, existing)
		}
	}

	acct.CreatedAt = original.CreatedAt
	acct.UpdatedAt = time.Now().UTC()

	s.accounts[acct.ID] = acct
	if oldKey != "" && oldKey != newKey {
		delete(s.accountsByPhone, oldKey)
	}
	if newKey != "" {
		s.accountsByPhone[newKey] = acct.ID
	}
	return acct, nil
}

func (s *Store) GetAccount(_ context.Context, id string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok {
		return account.Account{}, apperrors.NotFound("account %s not found", id)
	}
	return acct, nil
}

func (s *Store) GetAccountByPhone(_ context.Context, phone string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.accountsByPhone[strings.ToLower(strings.TrimSpace(phone))]; ok {
		return s.accounts[id], nil
	}
	return account.Account{}, apperrors.NotFound("account for phone %s not found", phone)
}

func (s *Store) ListAccounts(_ context.Context) ([]account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]account.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		result = append(result, acct)
	}
	return result, nil
}

func (s *Store) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]
	if !ok {
		return apperrors.NotFound("account %s not found", id)
	}
	delete(s.accounts, id)
	if key := strings.ToLower(strings.TrimSpace(acct.PhoneNumber)); key != "" {
		delete(s.accountsByPhone, key)
	}
	return nil
}

// LedgerStore implementation --------------------------------------------------

func (s *Store) CreateState(_ context.Context, st progression.State) (progression.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.UserID == "" {
		return progression.State{}, apperrors.InvalidArgument("user id is required")
	}
	if _, exists := s.states[st.UserID]; exists {
		return progression.State{}, apperrors.Conflict("progression state for user %s already exists", st.UserID)
	}

	now := time.Now().UTC()
	st.CreatedAt = now
	st.UpdatedAt = now

	s.states[st.UserID] = st
	return st, nil
}

func (s *Store) GetState(_ context.Context, userID string) (progression.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[userID]
	if !ok {
		return progression.State{}, apperrors.NotFound("progression state for user %s not found", userID)
	}
	return st, nil
}

func (s *Store) UpdateState(_ context.Context, st progression.State) (progression.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.states[st.UserID]
	if !ok {
		return progression.State{}, apperrors.NotFound("progression state for user %s not found", st.UserID)
	}

	st.CreatedAt = original.CreatedAt
	st.UpdatedAt = time.Now().UTC()

	s.states[st.UserID] = st
	return st, nil
}

func (s *Store) DeleteState(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.states[userID]; !ok {
		return apperrors.NotFound("progression state for user %s not found", userID)
	}
	delete(s.states, userID)
	delete(s.transactions, userID)
	delete(s.checkIns, userID)
	return nil
}

func (s *Store) InsertTransaction(_ context.Context, tx progression.Transaction) (progression.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = s.nextIDLocked()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}

	// Most-recent-first: new records go to the head.
	s.transactions[tx.UserID] = append([]progression.Transaction{tx}, s.transactions[tx.UserID]...)
	return tx, nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx progression.Transaction) (progression.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.transactions[tx.UserID]
	for i := range entries {
		if entries[i].ID == tx.ID {
			entries[i] = tx
			s.transactions[tx.UserID] = entries
			return tx, nil
		}
	}
	return progression.Transaction{}, apperrors.NotFound("transaction %s not found", tx.ID)
}

func (s *Store) ListTransactions(_ context.Context, userID string) ([]progression.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]progression.Transaction(nil), s.transactions[userID]...), nil
}

func (s *Store) InsertCheckIn(_ context.Context, ci progression.CheckIn) (progression.CheckIn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ci.ID == "" {
		ci.ID = s.nextIDLocked()
	}
	if ci.Timestamp.IsZero() {
		ci.Timestamp = time.Now().UTC()
	}

	s.checkIns[ci.UserID] = append([]progression.CheckIn{ci}, s.checkIns[ci.UserID]...)
	return ci, nil
}

func (s *Store) ListCheckIns(_ context.Context, userID string) ([]progression.CheckIn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]progression.CheckIn(nil), s.checkIns[userID]...), nil
}

// ChallengeStore implementation -----------------------------------------------

func (s *Store) CreateChallenge(_ context.Context, ch challenge.Challenge) (challenge.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch.ID == "" {
		ch.ID = s.nextIDLocked()
	} else if _, exists := s.challenges[ch.ID]; exists {
		return challenge.Challenge{}, apperrors.Conflict("challenge %s already exists", ch.ID)
	}

	now := time.Now().UTC()
	ch.CreatedAt = now
	ch.UpdatedAt = now

	s.challenges[ch.ID] = ch
	return ch, nil
}

func (s *Store) UpdateChallenge(_ context.Context, ch challenge.Challenge) (challenge.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.challenges[ch.ID]
	if !ok {
		return challenge.Challenge{}, apperrors.NotFound("challenge %s not found", ch.ID)
	}

	ch.CreatedAt = original.CreatedAt
	ch.UpdatedAt = time.Now().UTC()

	s.challenges[ch.ID] = ch
	return ch, nil
}

func (s *Store) GetChallenge(_ context.Context, id string) (challenge.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.challenges[id]
	if !ok {
		return challenge.Challenge{}, apperrors.NotFound("challenge %s not found", id)
	}
	return ch, nil
}

func (s *Store) ListChallenges(_ context.Context, activeOnly bool) ([]challenge.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]challenge.Challenge, 0)
	for _, ch := range s.challenges {
		if !activeOnly || ch.Active {
			result = append(result, ch)
		}
	}
	return result, nil
}

func (s *Store) InsertCompletion(_ context.Context, c challenge.Completion) (challenge.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = s.nextIDLocked()
	}
	if c.CompletedAt.IsZero() {
		c.CompletedAt = time.Now().UTC()
	}

	for _, existing := range s.completions[c.UserID] {
		if existing.ChallengeID == c.ChallengeID {
			return challenge.Completion{}, apperrors.Conflict("challenge %s already completed by user %s", c.ChallengeID, c.UserID)
		}
	}

	s.completions[c.UserID] = append([]challenge.Completion{c}, s.completions[c.UserID]...)
	return c, nil
}

func (s *Store) GetCompletion(_ context.Context, challengeID, userID string) (challenge.Completion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.completions[userID] {
		if c.ChallengeID == challengeID {
			return c, nil
		}
	}
	return challenge.Completion{}, apperrors.NotFound("completion of challenge %s by user %s not found", challengeID, userID)
}

func (s *Store) ListCompletions(_ context.Context, userID string) ([]challenge.Completion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]challenge.Completion(nil), s.completions[userID]...), nil
}

// RewardStore implementation --------------------------------------------------

func (s *Store) CreateReward(_ context.Context, rw reward.Reward) (reward.Reward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rw.ID == "" {
		rw.ID = s.nextIDLocked()
	} else if _, exists := s.rewards[rw.ID]; exists {
		return reward.Reward{}, apperrors.Conflict("reward %s already exists", rw.ID)
	}

	now := time.Now().UTC()
	rw.CreatedAt = now
	rw.UpdatedAt = now

	s.rewards[rw.ID] = rw
	return rw, nil
}

func (s *Store) UpdateReward(_ context.Context, rw reward.Reward) (reward.Reward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.rewards[rw.ID]
	if !ok {
		return reward.Reward{}, apperrors.NotFound("reward %s not found", rw.ID)
	}

	rw.CreatedAt = original.CreatedAt
	rw.UpdatedAt = time.Now().UTC()

	s.rewards[rw.ID] = rw
	return rw, nil
}

func (s *Store) GetReward(_ context.Context, id string) (reward.Reward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rw, ok := s.rewards[id]
	if !ok {
		return reward.Reward{}, apperrors.NotFound("reward %s not found", id)
	}
	return rw, nil
}

func (s *Store) ListRewards(_ context.Context, activeOnly bool) ([]reward.Reward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]reward.Reward, 0)
	for _, rw := range s.rewards {
		if !activeOnly || rw.Active {
			result = append(result, rw)
		}
	}
	return result, nil
}

func (s *Store) InsertRedemption(_ context.Context, rd reward.Redemption) (reward.Redemption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rd.ID == "" {
		rd.ID = s.nextIDLocked()
	}
	if rd.RedeemedAt.IsZero() {
		rd.RedeemedAt = time.Now().UTC()
	}

	s.redemptions[rd.UserID] = append([]reward.Redemption{rd}, s.redemptions[rd.UserID]...)
	return rd, nil
}

func (s *Store) ListRedemptions(_ context.Context, userID string) ([]reward.Redemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]reward.Redemption(nil), s.redemptions[userID]...), nil
}
