package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	apperrors "github.com/saayr-labs/progression-layer/internal/errors"
)

// OTPStore holds pending one-time codes keyed by phone number.
type OTPStore interface {
	Put(ctx context.Context, phone, code string, ttl time.Duration) error
	// Consume returns the stored code and deletes it. A missing or expired
	// code is a NotFound error.
	Consume(ctx context.Context, phone string) (string, error)
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// memoryOTPStore is the fallback when no Redis address is configured.
type memoryOTPStore struct {
	mu    sync.Mutex
	codes map[string]otpEntry
}

type otpEntry struct {
	code    string
	expires time.Time
}

// NewMemoryOTPStore creates an in-process OTP store.
func NewMemoryOTPStore() OTPStore {
	return &memoryOTPStore{codes: make(map[string]otpEntry)}
}

func (s *memoryOTPStore) Put(_ context.Context, phone, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[phone] = otpEntry{code: code, expires: time.Now().Add(ttl)}
	return nil
}

func (s *memoryOTPStore) Consume(_ context.Context, phone string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.codes[phone]
	if !ok {
		return "", apperrors.NotFound("no pending code for %s", phone)
	}
	delete(s.codes, phone)
	if time.Now().After(entry.expires) {
		return "", apperrors.NotFound("code for %s expired", phone)
	}
	return entry.code, nil
}

// redisOTPStore keeps codes in Redis so login survives process restarts and
// works across replicas.
type redisOTPStore struct {
	client *redis.Client
}

// NewRedisOTPStore creates an OTP store backed by the given Redis client.
func NewRedisOTPStore(client *redis.Client) OTPStore {
	return &redisOTPStore{client: client}
}

func otpKey(phone string) string { return "otp:" + phone }

func (s *redisOTPStore) Put(ctx context.Context, phone, code string, ttl time.Duration) error {
	return s.client.Set(ctx, otpKey(phone), code, ttl).Err()
}

func (s *redisOTPStore) Consume(ctx context.Context, phone string) (string, error) {
	code, err := s.client.GetDel(ctx, otpKey(phone)).Result()
	if err == redis.Nil {
		return "", apperrors.NotFound("no pending code for %s", phone)
	}
	if err != nil {
		return "", err
	}
	return code, nil
}
