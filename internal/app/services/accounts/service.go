// Package accounts manages user profiles. Creating an account also seeds
// the user's progression state at zero XP.
package accounts

import (
	"context"
	"strings"

	"github.com/saayr-labs/progression-layer/internal/app/domain/account"
	"github.com/saayr-labs/progression-layer/internal/app/domain/progression"
	"github.com/saayr-labs/progression-layer/internal/app/storage"
	apperrors "github.com/saayr-labs/progression-layer/internal/errors"
	"github.com/saayr-labs/progression-layer/pkg/logger"
)

// Service manages account records.
type Service struct {
	store  storage.AccountStore
	ledger storage.LedgerStore
	log    *logger.Logger
}

// New constructs an account service.
func New(store storage.AccountStore, ledger storage.LedgerStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	return &Service{
		store:  store,
		ledger: ledger,
		log:    log,
	}
}

// CreateInput carries the profile fields for registration.
type CreateInput struct {
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	PetName     string `json:"pet_name"`
	PetType     string `json:"pet_type"`
}

// Create registers a new account and seeds its progression state.
func (s *Service) Create(ctx context.Context, in CreateInput) (account.Account, error) {
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.FullName = strings.TrimSpace(in.FullName)
	if in.PhoneNumber == "" {
		return account.Account{}, apperrors.InvalidArgument("phone_number is required")
	}
	if in.FullName == "" {
		return account.Account{}, apperrors.InvalidArgument("full_name is required")
	}

	acct, err := s.store.CreateAccount(ctx, account.Account{
		FullName:    in.FullName,
		Email:       strings.TrimSpace(in.Email),
		PhoneNumber: in.PhoneNumber,
		PetName:     strings.TrimSpace(in.PetName),
		PetType:     strings.TrimSpace(in.PetType),
	})
	if err != nil {
		return account.Account{}, err
	}

	if _, err := s.ledger.CreateState(ctx, progression.State{UserID: acct.ID}); err != nil {
		// Roll the profile back so registration stays all-or-nothing.
		_ = s.store.DeleteAccount(ctx, acct.ID)
		return account.Account{}, err
	}

	s.log.WithField("account_id", acct.ID).Info("account created")
	return acct, nil
}

// Get returns one account by ID.
func (s *Service) Get(ctx context.Context, id string) (account.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// GetByPhone returns one account by its login phone number.
func (s *Service) GetByPhone(ctx context.Context, phone string) (account.Account, error) {
	return s.store.GetAccountByPhone(ctx, phone)
}

// UpdateInput carries the mutable profile fields. Empty fields are left
// unchanged.
type UpdateInput struct {
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	PetName     string `json:"pet_name"`
	PetType     string `json:"pet_type"`
}

// Update applies a partial profile update.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (account.Account, error) {
	acct, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return account.Account{}, err
	}

	if v := strings.TrimSpace(in.FullName); v != "" {
		acct.FullName = v
	}
	if v := strings.TrimSpace(in.Email); v != "" {
		acct.Email = v
	}
	if v := strings.TrimSpace(in.PhoneNumber); v != "" {
		acct.PhoneNumber = v
	}
	if v := strings.TrimSpace(in.PetName); v != "" {
		acct.PetName = v
	}
	if v := strings.TrimSpace(in.PetType); v != "" {
		acct.PetType = v
	}

	return s.store.UpdateAccount(ctx, acct)
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]account.Account, error) {
	return s.store.ListAccounts(ctx)
}

// Delete removes the account and its progression state.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteAccount(ctx, id); err != nil {
		return err
	}
	if err := s.ledger.DeleteState(ctx, id); err != nil && apperrors.KindOf(err) != apperrors.KindNotFound {
		return err
	}
	s.log.WithField("account_id", id).Info("account deleted")
	return nil
}
