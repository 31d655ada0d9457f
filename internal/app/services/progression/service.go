// Package progression implements the XP ledger: awards, the sanctioned
// point debit, and the immutable transaction and check-in records.
package progression

import (
	"context"
	"strings"
	"sync"

	"github.com/saayr-labs/progression-layer/internal/app/domain/progression"
	"github.com/saayr-labs/progression-layer/internal/app/events"
	"github.com/saayr-labs/progression-layer/internal/app/metrics"
	"github.com/saayr-labs/progression-layer/internal/app/storage"
	apperrors "github.com/saayr-labs/progression-layer/internal/errors"
	"github.com/saayr-labs/progression-layer/pkg/logger"
)

// Service owns per-user mutual exclusion over the progression state. Every
// read-modify-write sequence for a user runs under that user's lock so
// concurrent awards cannot lose updates or double-pay evolution bonuses.
type Service struct {
	store storage.LedgerStore
	hub   *events.Hub
	log   *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New constructs a ledger service. The hub may be nil when no event
// streaming is wanted.
func New(store storage.LedgerStore, hub *events.Hub, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("progression")
	}
	return &Service{
		store: store,
		hub:   hub,
		log:   log,
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

// AwardResult describes one settled XP credit.
type AwardResult struct {
	State       progression.State `json:"state"`
	BaseXP      int               `json:"base_xp"`
	BonusXP     int               `json:"bonus_xp"`
	LevelBefore int               `json:"level_before"`
	LevelAfter  int               `json:"level_after"`
	StageBefore progression.Stage `json:"stage_before"`
	StageAfter  progression.Stage `json:"stage_after"`
	LeveledUp   bool              `json:"leveled_up"`
	Evolved     bool              `json:"evolved"`
}

// AwardXP credits amount XP to the user. If the credit crosses a stage
// boundary, the new stage's evolution bonus is converted to XP and paid on
// top, once. The bonus itself is not re-evaluated for further transitions.
func (s *Service) AwardXP(ctx context.Context, userID string, amount int, reason string) (AwardResult, error) {
	if userID == "" {
		return AwardResult{}, apperrors.InvalidArgument("user id is required")
	}
	if amount < 0 {
		return AwardResult{}, apperrors.InvalidArgument("award amount must not be negative, got %d", amount)
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	return s.awardLocked(ctx, userID, amount, reason)
}

// awardLocked runs the award sequence. Callers must hold the user's lock.
func (s *Service) awardLocked(ctx context.Context, userID string, amount int, reason string) (AwardResult, error) {
	st, err := s.store.GetState(ctx, userID)
	if err != nil {
		return AwardResult{}, err
	}

	result := AwardResult{
		BaseXP:      amount,
		LevelBefore: st.Level(),
		StageBefore: st.Stage(),
	}

	st.TotalXP += amount
	stageAfter := st.Stage()
	if stageAfter != result.StageBefore {
		result.Evolved = true
		result.BonusXP = progression.EvolutionBonusPoints(stageAfter) * progression.XPPerPoint
		st.TotalXP += result.BonusXP
	}

	st, err = s.store.UpdateState(ctx, st)
	if err != nil {
		return AwardResult{}, err
	}

	result.State = st
	result.LevelAfter = st.Level()
	// Stage is frozen at the boundary crossed by the base credit; the bonus
	// may push the level (and even the stage raw arithmetic) further, but
	// only one bonus is ever paid per award.
	result.StageAfter = stageAfter
	result.LeveledUp = result.LevelAfter > result.LevelBefore

	metrics.RecordXPAwarded(reason, amount+result.BonusXP)
	s.publish(events.Event{
		Type:   events.TypeXPAwarded,
		UserID: userID,
		Data: map[string]interface{}{
			"amount": amount,
			"bonus":  result.BonusXP,
			"reason": reason,
		},
	})
	if result.LeveledUp {
		s.publish(events.Event{
			Type:   events.TypeLevelUp,
			UserID: userID,
			Data: map[string]interface{}{
				"level": result.LevelAfter,
			},
		})
	}
	if result.Evolved {
		metrics.RecordEvolution(string(stageAfter))
		s.publish(events.Event{
			Type:   events.TypeEvolution,
			UserID: userID,
			Data: map[string]interface{}{
				"stage":        string(stageAfter),
				"bonus_points": progression.EvolutionBonusPoints(stageAfter),
			},
		})
	}

	s.log.WithField("user_id", userID).
		WithField("reason", reason).
		WithField("amount", amount).
		WithField("bonus", result.BonusXP).
		WithField("total_xp", st.TotalXP).
		Debug("xp awarded")

	return result, nil
}

// RedeemPoints is the only sanctioned decrease of the ledger. The debit is
// refused outright, never clamped, when it would drive total XP negative.
func (s *Service) RedeemPoints(ctx context.Context, userID string, points int, reason string) (progression.State, error) {
	if userID == "" {
		return progression.State{}, apperrors.InvalidArgument("user id is required")
	}
	if points <= 0 {
		return progression.State{}, apperrors.InvalidArgument("points to redeem must be positive, got %d", points)
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	st, err := s.store.GetState(ctx, userID)
	if err != nil {
		return progression.State{}, err
	}

	debit := points * progression.XPPerPoint
	if st.TotalXP-debit < 0 {
		metrics.RecordRedemption("rejected")
		return progression.State{}, apperrors.StateCorruption(
			"redeeming %d points needs %d XP but user %s has %d", points, debit, userID, st.TotalXP)
	}

	st.TotalXP -= debit
	st, err = s.store.UpdateState(ctx, st)
	if err != nil {
		return progression.State{}, err
	}

	metrics.RecordRedemption("ok")
	s.publish(events.Event{
		Type:   events.TypePointsRedeemed,
		UserID: userID,
		Data: map[string]interface{}{
			"points": points,
			"reason": reason,
		},
	})

	s.log.WithField("user_id", userID).
		WithField("points", points).
		WithField("reason", reason).
		WithField("total_xp", st.TotalXP).
		Info("points redeemed")

	return st, nil
}

// RefundPoints restores a previously settled debit. The credit is raw: no
// evolution evaluation runs, since the XP being returned was already held
// once and any boundary it re-crosses was already paid for.
func (s *Service) RefundPoints(ctx context.Context, userID string, points int, reason string) (progression.State, error) {
	if userID == "" {
		return progression.State{}, apperrors.InvalidArgument("user id is required")
	}
	if points <= 0 {
		return progression.State{}, apperrors.InvalidArgument("points to refund must be positive, got %d", points)
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	st, err := s.store.GetState(ctx, userID)
	if err != nil {
		return progression.State{}, err
	}

	st.TotalXP += points * progression.XPPerPoint
	st, err = s.store.UpdateState(ctx, st)
	if err != nil {
		return progression.State{}, err
	}

	s.log.WithField("user_id", userID).
		WithField("points", points).
		WithField("reason", reason).
		WithField("total_xp", st.TotalXP).
		Info("points refunded")
	return st, nil
}

// RecordTransaction appends an immutable spending record and settles its XP
// award. PointsAwarded is backfilled after the award so it reflects the
// realized point delta, evolution bonus included.
func (s *Service) RecordTransaction(ctx context.Context, userID, merchant, currency, category string, amount float64, isPartner bool, multiplier int) (progression.Transaction, error) {
	merchant = strings.TrimSpace(merchant)
	if userID == "" {
		return progression.Transaction{}, apperrors.InvalidArgument("user id is required")
	}
	if merchant == "" {
		return progression.Transaction{}, apperrors.InvalidArgument("merchant name is required")
	}
	if amount < 0 {
		return progression.Transaction{}, apperrors.InvalidArgument("transaction amount must not be negative, got %.2f", amount)
	}
	if multiplier < 0 {
		return progression.Transaction{}, apperrors.InvalidArgument("multiplier must not be negative, got %d", multiplier)
	}
	if multiplier == 0 {
		multiplier = 1
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	st, err := s.store.GetState(ctx, userID)
	if err != nil {
		return progression.Transaction{}, err
	}
	pointsBefore := st.Points()

	xp := progression.XPFromSpending(amount, multiplier)
	tx := progression.Transaction{
		UserID:       userID,
		MerchantName: merchant,
		Amount:       amount,
		Currency:     currency,
		Category:     category,
		XPAwarded:    xp,
		IsPartner:    isPartner,
		Multiplier:   multiplier,
	}
	tx, err = s.store.InsertTransaction(ctx, tx)
	if err != nil {
		return progression.Transaction{}, err
	}

	result, err := s.awardLocked(ctx, userID, xp, "transaction")
	if err != nil {
		return progression.Transaction{}, err
	}

	if delta := result.State.Points() - pointsBefore; delta > 0 {
		tx.PointsAwarded = delta
		tx, err = s.store.UpdateTransaction(ctx, tx)
		if err != nil {
			return progression.Transaction{}, err
		}
	}

	metrics.RecordTransaction()
	return tx, nil
}

// RecordCheckIn appends an immutable check-in record, bumps the streak and
// settles the check-in XP. The streak increments on every check-in; there is
// no calendar-day gating.
func (s *Service) RecordCheckIn(ctx context.Context, userID, location string, sponsored bool) (progression.CheckIn, error) {
	location = strings.TrimSpace(location)
	if userID == "" {
		return progression.CheckIn{}, apperrors.InvalidArgument("user id is required")
	}
	if location == "" {
		return progression.CheckIn{}, apperrors.InvalidArgument("location is required")
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	st, err := s.store.GetState(ctx, userID)
	if err != nil {
		return progression.CheckIn{}, err
	}

	xp := progression.CheckInRegularXP
	if sponsored {
		xp = progression.CheckInSponsoredXP
	}

	ci := progression.CheckIn{
		UserID:    userID,
		Location:  location,
		XPAwarded: xp,
	}
	ci, err = s.store.InsertCheckIn(ctx, ci)
	if err != nil {
		return progression.CheckIn{}, err
	}

	st.CheckInStreak++
	if _, err := s.store.UpdateState(ctx, st); err != nil {
		return progression.CheckIn{}, err
	}

	if _, err := s.awardLocked(ctx, userID, xp, "check-in"); err != nil {
		return progression.CheckIn{}, err
	}

	metrics.RecordCheckIn()
	s.publish(events.Event{
		Type:   events.TypeCheckIn,
		UserID: userID,
		Data: map[string]interface{}{
			"location": location,
			"xp":       xp,
		},
	})
	return ci, nil
}

// StartPVPSession flags the user as in a battle. There is no validation of
// an opponent or of concurrent sessions.
func (s *Service) StartPVPSession(ctx context.Context, userID string) (progression.State, error) {
	if userID == "" {
		return progression.State{}, apperrors.InvalidArgument("user id is required")
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	st, err := s.store.GetState(ctx, userID)
	if err != nil {
		return progression.State{}, err
	}
	st.ActivePVPSession = true
	return s.store.UpdateState(ctx, st)
}

// CompletePVPSession clears the battle flag and, on a win, settles the
// fixed win reward.
func (s *Service) CompletePVPSession(ctx context.Context, userID string, won bool) (progression.State, error) {
	if userID == "" {
		return progression.State{}, apperrors.InvalidArgument("user id is required")
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	st, err := s.store.GetState(ctx, userID)
	if err != nil {
		return progression.State{}, err
	}
	st.ActivePVPSession = false
	st, err = s.store.UpdateState(ctx, st)
	if err != nil {
		return progression.State{}, err
	}

	if won {
		result, err := s.awardLocked(ctx, userID, progression.PVPWinXP, "pvp-win")
		if err != nil {
			return progression.State{}, err
		}
		st = result.State
	}
	return st, nil
}

// Snapshot assembles the read-only view. Level, points, stage and progress
// are recomputed from total XP on every call; spend and check-in totals come
// from the record sequences.
func (s *Service) Snapshot(ctx context.Context, userID string) (progression.Snapshot, error) {
	st, err := s.store.GetState(ctx, userID)
	if err != nil {
		return progression.Snapshot{}, err
	}

	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return progression.Snapshot{}, err
	}
	var totalSpent float64
	for _, tx := range txs {
		totalSpent += tx.Amount
	}

	cis, err := s.store.ListCheckIns(ctx, userID)
	if err != nil {
		return progression.Snapshot{}, err
	}

	stage := st.Stage()
	return progression.Snapshot{
		UserID:        st.UserID,
		TotalXP:       st.TotalXP,
		Level:         st.Level(),
		Points:        st.Points(),
		Stage:         stage,
		StageNumber:   stage.Number(),
		Progress:      st.Progress(),
		TotalSpent:    totalSpent,
		CheckInCount:  len(cis),
		CheckInStreak: st.CheckInStreak,
	}, nil
}

// ListTransactions returns the user's spending records, most recent first.
func (s *Service) ListTransactions(ctx context.Context, userID string) ([]progression.Transaction, error) {
	return s.store.ListTransactions(ctx, userID)
}

// ListCheckIns returns the user's check-in records, most recent first.
func (s *Service) ListCheckIns(ctx context.Context, userID string) ([]progression.CheckIn, error) {
	return s.store.ListCheckIns(ctx, userID)
}

// State returns the raw persisted state.
func (s *Service) State(ctx context.Context, userID string) (progression.State, error) {
	return s.store.GetState(ctx, userID)
}

func (s *Service) publish(ev events.Event) {
	if s.hub != nil {
		s.hub.Publish(ev)
	}
}
