package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"jobnest-auth/internal/domain"
	xerrors "jobnest-auth/pkg/xerrors"
)

// In-memory implementations of the repository interfaces. They keep the
// same error semantics as the Postgres/redis implementations (conditional
// refresh-token rotation, atomic quota decrement, TTL expiry) and back the
// test suites.

type MemoryPrincipalRepo struct {
	mu   sync.Mutex
	spec domain.RoleSpec
	rows map[string]*domain.Principal
}

func NewMemoryPrincipalRepo(spec domain.RoleSpec) *MemoryPrincipalRepo {
	return &MemoryPrincipalRepo{spec: spec, rows: make(map[string]*domain.Principal)}
}

func clonePrincipal(p *domain.Principal) *domain.Principal {
	cp := *p
	if p.Quota != nil {
		q := *p.Quota
		cp.Quota = &q
	}
	return &cp
}

func (r *MemoryPrincipalRepo) Create(ctx context.Context, p *domain.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Email = strings.ToLower(p.Email)
	for _, row := range r.rows {
		if row.Email == p.Email {
			return xerrors.ErrAccountExists
		}
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.rows[p.ID] = clonePrincipal(p)
	return nil
}

func (r *MemoryPrincipalRepo) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, xerrors.ErrAccountNotFound
	}
	return clonePrincipal(row), nil
}

func (r *MemoryPrincipalRepo) GetByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(email)
	for _, row := range r.rows {
		if row.Email == email {
			return clonePrincipal(row), nil
		}
	}
	return nil, xerrors.ErrAccountNotFound
}

func (r *MemoryPrincipalRepo) GetByRefreshToken(ctx context.Context, token string) (*domain.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token == "" {
		return nil, xerrors.ErrAccountNotFound
	}
	for _, row := range r.rows {
		if row.RefreshToken == token {
			return clonePrincipal(row), nil
		}
	}
	return nil, xerrors.ErrAccountNotFound
}

func (r *MemoryPrincipalRepo) SetRefreshToken(ctx context.Context, id, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return xerrors.ErrAccountNotFound
	}
	row.RefreshToken = token
	row.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryPrincipalRepo) RotateRefreshToken(ctx context.Context, id, oldToken, newToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.RefreshToken != oldToken {
		return xerrors.ErrInvalidToken
	}
	row.RefreshToken = newToken
	row.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryPrincipalRepo) ClearRefreshToken(ctx context.Context, id string) error {
	return r.SetRefreshToken(ctx, id, "")
}

func (r *MemoryPrincipalRepo) SetBlocked(ctx context.Context, id string, blocked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return xerrors.ErrAccountNotFound
	}
	row.IsBlocked = blocked
	row.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryPrincipalRepo) UpdateProfile(ctx context.Context, id, name, pictureURL, resumeURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return xerrors.ErrAccountNotFound
	}
	if name != "" {
		row.Name = name
	}
	if pictureURL != "" {
		row.PictureURL = pictureURL
	}
	if resumeURL != "" {
		row.ResumeURL = resumeURL
	}
	row.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryPrincipalRepo) List(ctx context.Context) ([]*domain.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Principal, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, clonePrincipal(row))
	}
	return out, nil
}

// consumeQuota is the in-memory analogue of the conditional decrement the
// Postgres job/application repos perform transactionally.
func (r *MemoryPrincipalRepo) consumeQuota(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return xerrors.ErrQuotaExceeded
	}
	if row.Quota == nil || row.Quota.Unlimited {
		return nil
	}
	if row.Quota.Remaining <= 0 {
		return xerrors.ErrQuotaExceeded
	}
	row.Quota.Remaining--
	row.UpdatedAt = time.Now()
	return nil
}

type MemoryPlanRepo struct {
	mu    sync.Mutex
	plans map[string]*domain.Plan // key role:name
}

func NewMemoryPlanRepo() *MemoryPlanRepo {
	return &MemoryPlanRepo{plans: make(map[string]*domain.Plan)}
}

func planKey(role domain.Role, name string) string {
	return string(role) + ":" + name
}

func (r *MemoryPlanRepo) GetByName(ctx context.Context, role domain.Role, name string) (*domain.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[planKey(role, name)]
	if !ok {
		return nil, xerrors.ErrPlanNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryPlanRepo) List(ctx context.Context, role domain.Role) ([]*domain.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Plan
	for _, p := range r.plans {
		if p.Role == role {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryPlanRepo) Create(ctx context.Context, p *domain.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := planKey(p.Role, p.Name)
	if _, ok := r.plans[key]; ok {
		return xerrors.ErrInvalidRequest
	}
	cp := *p
	r.plans[key] = &cp
	return nil
}

func (r *MemoryPlanRepo) Update(ctx context.Context, p *domain.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := planKey(p.Role, p.Name)
	if _, ok := r.plans[key]; !ok {
		return xerrors.ErrPlanNotFound
	}
	cp := *p
	r.plans[key] = &cp
	return nil
}

type MemoryJobRepo struct {
	mu        sync.Mutex
	jobs      map[string]*domain.Job
	employers *MemoryPrincipalRepo
}

func NewMemoryJobRepo(employers *MemoryPrincipalRepo) *MemoryJobRepo {
	return &MemoryJobRepo{jobs: make(map[string]*domain.Job), employers: employers}
}

func (r *MemoryJobRepo) CreateWithQuota(ctx context.Context, j *domain.Job) error {
	if err := r.employers.consumeQuota(j.EmployerID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	j.CreatedAt = time.Now()
	cp := *j
	r.jobs[j.ID] = &cp
	return nil
}

func (r *MemoryJobRepo) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (r *MemoryJobRepo) ListByEmployer(ctx context.Context, employerID string) ([]*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Job
	for _, j := range r.jobs {
		if j.EmployerID == employerID {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

type MemoryApplicationRepo struct {
	mu         sync.Mutex
	apps       map[string]*domain.Application
	applicants *MemoryPrincipalRepo
}

func NewMemoryApplicationRepo(applicants *MemoryPrincipalRepo) *MemoryApplicationRepo {
	return &MemoryApplicationRepo{apps: make(map[string]*domain.Application), applicants: applicants}
}

func (r *MemoryApplicationRepo) CreateWithQuota(ctx context.Context, a *domain.Application) error {
	// One critical section for check, charge and insert, matching the
	// Postgres transaction: two concurrent identical applications must not
	// both pass the duplicate check.
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.apps {
		if row.ApplicantID == a.ApplicantID && row.JobID == a.JobID {
			return xerrors.ErrDuplicateApplication
		}
	}

	if err := r.applicants.consumeQuota(a.ApplicantID); err != nil {
		return err
	}

	a.CreatedAt = time.Now()
	cp := *a
	r.apps[a.ID] = &cp
	return nil
}

func (r *MemoryApplicationRepo) ListByJob(ctx context.Context, jobID string) ([]*domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Application
	for _, a := range r.apps {
		if a.JobID == jobID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memoryOTPEntry struct {
	pending   domain.PendingRegistration
	expiresAt time.Time
}

type MemoryOTPRepo struct {
	mu       sync.Mutex
	entries  map[string]memoryOTPEntry
	failures map[string]int64
}

func NewMemoryOTPRepo() *MemoryOTPRepo {
	return &MemoryOTPRepo{
		entries:  make(map[string]memoryOTPEntry),
		failures: make(map[string]int64),
	}
}

func otpKey(role domain.Role, email string) string {
	return string(role) + ":otp:" + email
}

func (r *MemoryOTPRepo) Put(ctx context.Context, role domain.Role, email string, pending *domain.PendingRegistration, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[otpKey(role, email)] = memoryOTPEntry{
		pending:   *pending,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (r *MemoryOTPRepo) Get(ctx context.Context, role domain.Role, email string) (*domain.PendingRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[otpKey(role, email)]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(r.entries, otpKey(role, email))
		return nil, xerrors.ErrExpiredOTP
	}
	pending := entry.pending
	return &pending, nil
}

func (r *MemoryOTPRepo) Delete(ctx context.Context, role domain.Role, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, otpKey(role, email))
	delete(r.failures, otpKey(role, email))
	return nil
}

func (r *MemoryOTPRepo) RecordFailure(ctx context.Context, role domain.Role, email string, window time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[otpKey(role, email)]++
	return r.failures[otpKey(role, email)], nil
}
