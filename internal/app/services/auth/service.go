// Package auth implements phone-based login: a one-time code flow for first
// contact and a PIN flow for returning users. Both mint HMAC-signed JWTs.
package auth

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/saayr-labs/progression-layer/internal/app/storage"
	apperrors "github.com/saayr-labs/progression-layer/internal/errors"
	"github.com/saayr-labs/progression-layer/internal/middleware"
	"github.com/saayr-labs/progression-layer/pkg/logger"
)

// Config carries the token parameters.
type Config struct {
	JWTSecret []byte
	TokenTTL  time.Duration
	OTPTTL    time.Duration
}

// Service implements both login flows.
type Service struct {
	accounts storage.AccountStore
	otps     OTPStore
	cfg      Config
	log      *logger.Logger
}

// New constructs an auth service. A nil otps falls back to the in-memory
// store.
func New(accounts storage.AccountStore, otps OTPStore, cfg Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	if otps == nil {
		otps = NewMemoryOTPStore()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 5 * time.Minute
	}
	return &Service{
		accounts: accounts,
		otps:     otps,
		cfg:      cfg,
		log:      log,
	}
}

// RequestOTP issues a fresh one-time code for the phone number. The account
// must already exist. The code is returned to the caller; delivery (SMS) is
// out of scope.
func (s *Service) RequestOTP(ctx context.Context, phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", apperrors.InvalidArgument("phone number is required")
	}

	if _, err := s.accounts.GetAccountByPhone(ctx, phone); err != nil {
		return "", err
	}

	code, err := generateCode()
	if err != nil {
		return "", apperrors.Internal(err, "generate code")
	}
	if err := s.otps.Put(ctx, phone, code, s.cfg.OTPTTL); err != nil {
		return "", err
	}

	s.log.WithField("phone", phone).Info("otp issued")
	return code, nil
}

// VerifyOTP consumes the pending code and mints a bearer token. A wrong
// code burns the pending one; the user must request a new code.
func (s *Service) VerifyOTP(ctx context.Context, phone, code string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || code == "" {
		return "", apperrors.InvalidArgument("phone number and code are required")
	}

	acct, err := s.accounts.GetAccountByPhone(ctx, phone)
	if err != nil {
		return "", err
	}

	stored, err := s.otps.Consume(ctx, phone)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return "", apperrors.Unauthorized("no valid code pending for %s", phone)
		}
		return "", err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return "", apperrors.Unauthorized("code mismatch")
	}

	return s.mintToken(acct.ID, phone, "otp")
}

// SetPIN stores a bcrypt hash of the PIN on the account.
func (s *Service) SetPIN(ctx context.Context, userID, pin string) error {
	if len(pin) < 4 {
		return apperrors.InvalidArgument("pin must be at least 4 digits")
	}

	acct, err := s.accounts.GetAccount(ctx, userID)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Internal(err, "hash pin")
	}

	acct.PINHash = hash
	if _, err := s.accounts.UpdateAccount(ctx, acct); err != nil {
		return err
	}

	s.log.WithField("account_id", userID).Info("pin set")
	return nil
}

// LoginPIN verifies the PIN and mints a bearer token.
func (s *Service) LoginPIN(ctx context.Context, phone, pin string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || pin == "" {
		return "", apperrors.InvalidArgument("phone number and pin are required")
	}

	acct, err := s.accounts.GetAccountByPhone(ctx, phone)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return "", apperrors.Unauthorized("invalid credentials")
		}
		return "", err
	}
	if len(acct.PINHash) == 0 {
		return "", apperrors.Unauthorized("no pin set for this account")
	}
	if err := bcrypt.CompareHashAndPassword(acct.PINHash, []byte(pin)); err != nil {
		return "", apperrors.Unauthorized("invalid credentials")
	}

	return s.mintToken(acct.ID, phone, "pin")
}

func (s *Service) mintToken(userID, phone, method string) (string, error) {
	now := time.Now()
	claims := middleware.Claims{
		UserID:      userID,
		PhoneNumber: phone,
		AuthMethod:  method,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.cfg.JWTSecret)
	if err != nil {
		return "", apperrors.Internal(err, "sign token")
	}
	return signed, nil
}
