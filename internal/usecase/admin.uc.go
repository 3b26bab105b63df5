package usecase

import (
	"context"
	"log/slog"
	"strings"

	"jobnest-auth/internal/domain"
	"jobnest-auth/internal/repository"
	xerrors "jobnest-auth/pkg/xerrors"
)

// AdminUsecase covers the moderation surface: listing principals of either
// marketplace role, toggling blocks and maintaining the plan catalogue.
type AdminUsecase struct {
	applicants repository.PrincipalRepository
	employers  repository.PrincipalRepository
	plans      repository.PlanRepository
	log        *slog.Logger
}

func NewAdminUsecase(applicants, employers repository.PrincipalRepository, plans repository.PlanRepository, log *slog.Logger) *AdminUsecase {
	return &AdminUsecase{applicants: applicants, employers: employers, plans: plans, log: log}
}

func (uc *AdminUsecase) repoFor(role domain.Role) (repository.PrincipalRepository, error) {
	switch role {
	case domain.RoleApplicant:
		return uc.applicants, nil
	case domain.RoleEmployer:
		return uc.employers, nil
	default:
		return nil, xerrors.ErrInvalidRequest
	}
}

func (uc *AdminUsecase) ListPrincipals(ctx context.Context, role domain.Role) ([]*domain.Principal, error) {
	repo, err := uc.repoFor(role)
	if err != nil {
		return nil, err
	}
	list, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Principal, 0, len(list))
	for _, p := range list {
		out = append(out, sanitize(p))
	}
	return out, nil
}

// SetBlocked flips the block flag. Blocking does not revoke outstanding
// access tokens; the auth middleware checks the live flag on every request,
// which is what actually locks a blocked account out.
func (uc *AdminUsecase) SetBlocked(ctx context.Context, role domain.Role, id string, blocked bool) error {
	repo, err := uc.repoFor(role)
	if err != nil {
		return err
	}
	if err := repo.SetBlocked(ctx, id, blocked); err != nil {
		return err
	}
	uc.log.Info("block flag updated", "role", string(role), "id", id, "blocked", blocked)
	return nil
}

func (uc *AdminUsecase) ListPlans(ctx context.Context, role domain.Role) ([]*domain.Plan, error) {
	if _, err := uc.repoFor(role); err != nil {
		return nil, err
	}
	return uc.plans.List(ctx, role)
}

func (uc *AdminUsecase) CreatePlan(ctx context.Context, p *domain.Plan) (*domain.Plan, error) {
	if err := validatePlan(p); err != nil {
		return nil, err
	}
	if err := uc.plans.Create(ctx, p); err != nil {
		return nil, err
	}
	uc.log.Info("plan created", "role", string(p.Role), "plan", p.Name)
	return p, nil
}

// UpdatePlan changes the catalogue entry only. Principals already on the
// plan keep their current counters; new signups see the new limit.
func (uc *AdminUsecase) UpdatePlan(ctx context.Context, p *domain.Plan) (*domain.Plan, error) {
	if err := validatePlan(p); err != nil {
		return nil, err
	}
	if err := uc.plans.Update(ctx, p); err != nil {
		return nil, err
	}
	uc.log.Info("plan updated", "role", string(p.Role), "plan", p.Name)
	return p, nil
}

func validatePlan(p *domain.Plan) error {
	if strings.TrimSpace(p.Name) == "" {
		return xerrors.ErrInvalidRequest
	}
	if p.Role != domain.RoleApplicant && p.Role != domain.RoleEmployer {
		return xerrors.ErrInvalidRequest
	}
	if p.QuotaLimit != nil && *p.QuotaLimit < 0 {
		return xerrors.ErrInvalidRequest
	}
	if p.PriceCents < 0 || p.DurationDays < 0 {
		return xerrors.ErrInvalidRequest
	}
	return nil
}
