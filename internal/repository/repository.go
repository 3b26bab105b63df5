// Package repository provides persistence for principals, plans, jobs and
// applications (Postgres via pgx) and for pending registrations (redis).
// In-memory implementations of the same interfaces back the test suites.
package repository

import (
	"context"
	"time"

	"jobnest-auth/internal/domain"
)

// PrincipalRepository persists one principal kind. The refresh-token and
// quota mutations are conditioned writes, never blind overwrites, so they
// stay correct under concurrent requests.
type PrincipalRepository interface {
	Create(ctx context.Context, p *domain.Principal) error
	GetByID(ctx context.Context, id string) (*domain.Principal, error)
	GetByEmail(ctx context.Context, email string) (*domain.Principal, error)
	GetByRefreshToken(ctx context.Context, token string) (*domain.Principal, error)

	// SetRefreshToken overwrites the stored token unconditionally. Login is
	// the legitimate rotation point, so an overwrite there is correct.
	SetRefreshToken(ctx context.Context, id, token string) error
	// RotateRefreshToken replaces the stored token only if it still equals
	// oldToken. A concurrent refresh that lost the race gets ErrInvalidToken.
	RotateRefreshToken(ctx context.Context, id, oldToken, newToken string) error
	ClearRefreshToken(ctx context.Context, id string) error

	SetBlocked(ctx context.Context, id string, blocked bool) error
	UpdateProfile(ctx context.Context, id, name, pictureURL, resumeURL string) error
	List(ctx context.Context) ([]*domain.Principal, error)
}

type PlanRepository interface {
	GetByName(ctx context.Context, role domain.Role, name string) (*domain.Plan, error)
	List(ctx context.Context, role domain.Role) ([]*domain.Plan, error)
	Create(ctx context.Context, p *domain.Plan) error
	Update(ctx context.Context, p *domain.Plan) error
}

// JobRepository owns jobs. CreateWithQuota inserts the job and decrements
// the employer's counter in one transaction; if the conditional decrement
// affects zero rows the whole action fails with ErrQuotaExceeded.
type JobRepository interface {
	CreateWithQuota(ctx context.Context, j *domain.Job) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	ListByEmployer(ctx context.Context, employerID string) ([]*domain.Job, error)
}

// ApplicationRepository owns applications, with the same transactional
// quota semantics on the applicant side.
type ApplicationRepository interface {
	CreateWithQuota(ctx context.Context, a *domain.Application) error
	ListByJob(ctx context.Context, jobID string) ([]*domain.Application, error)
}

// OTPRepository is the time-boxed store of pending registrations, keyed by
// email within the role's namespace. Entries self-expire; Get on an expired
// or never-created entry returns ErrExpiredOTP.
type OTPRepository interface {
	Put(ctx context.Context, role domain.Role, email string, pending *domain.PendingRegistration, ttl time.Duration) error
	Get(ctx context.Context, role domain.Role, email string) (*domain.PendingRegistration, error)
	Delete(ctx context.Context, role domain.Role, email string) error
	// RecordFailure bumps the per-email failed-attempt counter and returns
	// the new count. The counter expires with the window.
	RecordFailure(ctx context.Context, role domain.Role, email string, window time.Duration) (int64, error)
}
