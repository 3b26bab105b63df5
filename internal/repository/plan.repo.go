package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobnest-auth/internal/domain"
	xerrors "jobnest-auth/pkg/xerrors"
)

type PlanRepo struct {
	db *pgxpool.Pool
}

func NewPlanRepo(db *pgxpool.Pool) *PlanRepo {
	return &PlanRepo{db: db}
}

const planColumns = `role, name, description, price_cents, quota_limit,
	highlight, premium_support, duration_days, created_at, updated_at`

func scanPlan(row pgx.Row) (*domain.Plan, error) {
	var p domain.Plan
	err := row.Scan(
		&p.Role, &p.Name, &p.Description, &p.PriceCents, &p.QuotaLimit,
		&p.Highlight, &p.PremiumSupport, &p.DurationDays, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PlanRepo) GetByName(ctx context.Context, role domain.Role, name string) (*domain.Plan, error) {
	return scanPlan(r.db.QueryRow(ctx,
		`SELECT `+planColumns+` FROM plans WHERE role = $1 AND name = $2`,
		role, name))
}

func (r *PlanRepo) List(ctx context.Context, role domain.Role) ([]*domain.Plan, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+planColumns+` FROM plans WHERE role = $1 ORDER BY price_cents`,
		role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PlanRepo) Create(ctx context.Context, p *domain.Plan) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := r.db.Exec(ctx, `
		INSERT INTO plans (role, name, description, price_cents, quota_limit,
			highlight, premium_support, duration_days, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, p.Role, p.Name, p.Description, p.PriceCents, p.QuotaLimit,
		p.Highlight, p.PremiumSupport, p.DurationDays, p.CreatedAt, p.UpdatedAt)
	if xerrors.IsUniqueViolation(err) {
		return xerrors.ErrInvalidRequest
	}
	return err
}

func (r *PlanRepo) Update(ctx context.Context, p *domain.Plan) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE plans SET description = $3, price_cents = $4, quota_limit = $5,
			highlight = $6, premium_support = $7, duration_days = $8, updated_at = NOW()
		WHERE role = $1 AND name = $2
	`, p.Role, p.Name, p.Description, p.PriceCents, p.QuotaLimit,
		p.Highlight, p.PremiumSupport, p.DurationDays)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrPlanNotFound
	}
	return nil
}
