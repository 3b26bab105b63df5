package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobnest-auth/internal/domain"
	xerrors "jobnest-auth/pkg/xerrors"
)

// PrincipalRepo is the Postgres implementation of PrincipalRepository,
// parameterized by a RoleSpec so the same code serves all three principal
// tables. Table and column names come from the compiled-in specs, never from
// request input.
type PrincipalRepo struct {
	db   *pgxpool.Pool
	spec domain.RoleSpec
}

func NewPrincipalRepo(db *pgxpool.Pool, spec domain.RoleSpec) *PrincipalRepo {
	return &PrincipalRepo{db: db, spec: spec}
}

const principalBaseColumns = `id, email, password_hash, google_id, is_google_user, name,
	picture_url, resume_url, is_verified, is_blocked, refresh_token, created_at, updated_at`

func (r *PrincipalRepo) columns() string {
	if !r.spec.HasPlan() {
		return principalBaseColumns
	}
	return principalBaseColumns + ", plan_name, " + r.spec.QuotaColumn
}

func (r *PrincipalRepo) scan(row pgx.Row) (*domain.Principal, error) {
	var (
		p            domain.Principal
		passwordHash *string
		googleID     *string
		pictureURL   *string
		resumeURL    *string
		refreshToken *string
		planName     *string
		quota        *int64
	)

	dest := []any{
		&p.ID, &p.Email, &passwordHash, &googleID, &p.IsGoogleUser, &p.Name,
		&pictureURL, &resumeURL, &p.IsVerified, &p.IsBlocked, &refreshToken,
		&p.CreatedAt, &p.UpdatedAt,
	}
	if r.spec.HasPlan() {
		dest = append(dest, &planName, &quota)
	}

	err := row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	p.Role = r.spec.Role
	if passwordHash != nil {
		p.PasswordHash = *passwordHash
	}
	if googleID != nil {
		p.GoogleID = *googleID
	}
	if pictureURL != nil {
		p.PictureURL = *pictureURL
	}
	if resumeURL != nil {
		p.ResumeURL = *resumeURL
	}
	if refreshToken != nil {
		p.RefreshToken = *refreshToken
	}
	if r.spec.HasPlan() {
		if planName != nil {
			p.PlanName = *planName
		}
		if quota == nil {
			p.Quota = &domain.Quota{Unlimited: true}
		} else {
			p.Quota = &domain.Quota{Remaining: *quota}
		}
	}
	return &p, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *PrincipalRepo) Create(ctx context.Context, p *domain.Principal) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	cols := []string{
		"id", "email", "password_hash", "google_id", "is_google_user", "name",
		"picture_url", "resume_url", "is_verified", "is_blocked", "refresh_token",
		"created_at", "updated_at",
	}
	args := []any{
		p.ID, strings.ToLower(p.Email), nullable(p.PasswordHash), nullable(p.GoogleID),
		p.IsGoogleUser, p.Name, nullable(p.PictureURL), nullable(p.ResumeURL),
		p.IsVerified, p.IsBlocked, nullable(p.RefreshToken), p.CreatedAt, p.UpdatedAt,
	}
	if r.spec.HasPlan() {
		var quota *int64
		if p.Quota != nil && !p.Quota.Unlimited {
			quota = &p.Quota.Remaining
		}
		cols = append(cols, "plan_name", r.spec.QuotaColumn)
		args = append(args, nullable(p.PlanName), quota)
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	_, err := r.db.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s)`,
		r.spec.Table, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	), args...)
	if xerrors.IsUniqueViolation(err) {
		return xerrors.ErrAccountExists
	}
	return err
}

func (r *PrincipalRepo) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	return r.scan(r.db.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE id = $1`, r.columns(), r.spec.Table,
	), id))
}

func (r *PrincipalRepo) GetByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	return r.scan(r.db.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE email = lower($1)`, r.columns(), r.spec.Table,
	), email))
}

func (r *PrincipalRepo) GetByRefreshToken(ctx context.Context, token string) (*domain.Principal, error) {
	return r.scan(r.db.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE refresh_token = $1`, r.columns(), r.spec.Table,
	), token))
}

func (r *PrincipalRepo) SetRefreshToken(ctx context.Context, id, token string) error {
	tag, err := r.db.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET refresh_token = $2, updated_at = NOW() WHERE id = $1`, r.spec.Table,
	), id, nullable(token))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrAccountNotFound
	}
	return nil
}

func (r *PrincipalRepo) RotateRefreshToken(ctx context.Context, id, oldToken, newToken string) error {
	tag, err := r.db.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET refresh_token = $3, updated_at = NOW()
		 WHERE id = $1 AND refresh_token = $2`, r.spec.Table,
	), id, oldToken, newToken)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// The stored token changed between lookup and rotation: a concurrent
		// refresh won, this one loses explicitly.
		return xerrors.ErrInvalidToken
	}
	return nil
}

func (r *PrincipalRepo) ClearRefreshToken(ctx context.Context, id string) error {
	return r.SetRefreshToken(ctx, id, "")
}

func (r *PrincipalRepo) SetBlocked(ctx context.Context, id string, blocked bool) error {
	tag, err := r.db.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET is_blocked = $2, updated_at = NOW() WHERE id = $1`, r.spec.Table,
	), id, blocked)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrAccountNotFound
	}
	return nil
}

func (r *PrincipalRepo) UpdateProfile(ctx context.Context, id, name, pictureURL, resumeURL string) error {
	tag, err := r.db.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET
			name = COALESCE(NULLIF($2, ''), name),
			picture_url = COALESCE(NULLIF($3, ''), picture_url),
			resume_url = COALESCE(NULLIF($4, ''), resume_url),
			updated_at = NOW()
		 WHERE id = $1`, r.spec.Table,
	), id, name, pictureURL, resumeURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrAccountNotFound
	}
	return nil
}

func (r *PrincipalRepo) List(ctx context.Context) ([]*domain.Principal, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM %s ORDER BY created_at DESC`, r.columns(), r.spec.Table,
	))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Principal
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
