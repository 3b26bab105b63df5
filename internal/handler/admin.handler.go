package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"jobnest-auth/internal/domain"
	"jobnest-auth/internal/usecase"
	"jobnest-auth/pkg/response"
	xerrors "jobnest-auth/pkg/xerrors"
)

type AdminHandler struct {
	uc *usecase.AdminUsecase
}

func NewAdminHandler(uc *usecase.AdminUsecase) *AdminHandler {
	return &AdminHandler{uc: uc}
}

func roleParam(r *http.Request) (domain.Role, error) {
	switch chi.URLParam(r, "role") {
	case "applicant", "applicants":
		return domain.RoleApplicant, nil
	case "employer", "employers":
		return domain.RoleEmployer, nil
	default:
		return "", xerrors.ErrInvalidRequest
	}
}

func (h *AdminHandler) ListPrincipals(w http.ResponseWriter, r *http.Request) {
	role, err := roleParam(r)
	if err != nil {
		response.FromError(w, err)
		return
	}
	list, err := h.uc.ListPrincipals(r.Context(), role)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{"users": list})
}

func (h *AdminHandler) SetBlocked(w http.ResponseWriter, r *http.Request) {
	role, err := roleParam(r)
	if err != nil {
		response.FromError(w, err)
		return
	}
	var req SetBlockedRequest
	if err := decode(r, &req); err != nil {
		response.FromError(w, err)
		return
	}
	if err := h.uc.SetBlocked(r.Context(), role, chi.URLParam(r, "id"), req.Blocked); err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"id":      chi.URLParam(r, "id"),
		"blocked": req.Blocked,
	})
}

func (h *AdminHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	role, err := roleParam(r)
	if err != nil {
		response.FromError(w, err)
		return
	}
	var req PlanRequest
	if err := decode(r, &req); err != nil {
		response.FromError(w, err)
		return
	}
	plan, err := h.uc.CreatePlan(r.Context(), planFromRequest(role, &req))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, map[string]interface{}{"plan": plan})
}

func (h *AdminHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	role, err := roleParam(r)
	if err != nil {
		response.FromError(w, err)
		return
	}
	var req PlanRequest
	if err := decode(r, &req); err != nil {
		response.FromError(w, err)
		return
	}
	p := planFromRequest(role, &req)
	p.Name = chi.URLParam(r, "name")
	plan, err := h.uc.UpdatePlan(r.Context(), p)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{"plan": plan})
}

func planFromRequest(role domain.Role, req *PlanRequest) *domain.Plan {
	return &domain.Plan{
		Role:           role,
		Name:           req.Name,
		Description:    req.Description,
		PriceCents:     req.PriceCents,
		QuotaLimit:     req.QuotaLimit,
		Highlight:      req.Highlight,
		PremiumSupport: req.PremiumSupport,
		DurationDays:   req.DurationDays,
	}
}
