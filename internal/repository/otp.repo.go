package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"jobnest-auth/internal/domain"
	"jobnest-auth/pkg/cache"
	xerrors "jobnest-auth/pkg/xerrors"
)

// OTPRepo stores pending registrations in redis. Entries live under
// "<role>:otp:<email>" and expire with the TTL. An expired, consumed or
// never-created entry looks exactly the same to the caller. Failed-attempt
// counters live in a parallel namespace.
type OTPRepo struct {
	cache *cache.Cache
}

func NewOTPRepo(c *cache.Cache) *OTPRepo {
	return &OTPRepo{cache: c}
}

func otpNamespace(role domain.Role) string {
	return fmt.Sprintf("%s:otp", role)
}

func attemptNamespace(role domain.Role) string {
	return fmt.Sprintf("%s:otp_attempts", role)
}

func (r *OTPRepo) Put(ctx context.Context, role domain.Role, email string, pending *domain.PendingRegistration, ttl time.Duration) error {
	payload, err := json.Marshal(pending)
	if err != nil {
		return err
	}
	return r.cache.Set(ctx, otpNamespace(role), email, payload, ttl)
}

func (r *OTPRepo) Get(ctx context.Context, role domain.Role, email string) (*domain.PendingRegistration, error) {
	val, err := r.cache.Get(ctx, otpNamespace(role), email)
	if errors.Is(err, redis.Nil) {
		return nil, xerrors.ErrExpiredOTP
	}
	if err != nil {
		return nil, err
	}

	var pending domain.PendingRegistration
	if err := json.Unmarshal([]byte(val), &pending); err != nil {
		return nil, err
	}
	return &pending, nil
}

func (r *OTPRepo) Delete(ctx context.Context, role domain.Role, email string) error {
	if err := r.cache.Delete(ctx, otpNamespace(role), email); err != nil {
		return err
	}
	return r.cache.Delete(ctx, attemptNamespace(role), email)
}

func (r *OTPRepo) RecordFailure(ctx context.Context, role domain.Role, email string, window time.Duration) (int64, error) {
	return r.cache.IncrWindow(ctx, attemptNamespace(role), email, window)
}
