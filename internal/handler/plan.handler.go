package handler

import (
	"net/http"

	"jobnest-auth/internal/usecase"
	"jobnest-auth/pkg/response"
)

// PlanHandler serves the public plan catalogue, read-only and unauthenticated
// so pricing pages can render it. Mutations go through AdminHandler.
type PlanHandler struct {
	uc *usecase.AdminUsecase
}

func NewPlanHandler(uc *usecase.AdminUsecase) *PlanHandler {
	return &PlanHandler{uc: uc}
}

func (h *PlanHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	role, err := roleParam(r)
	if err != nil {
		response.FromError(w, err)
		return
	}
	plans, err := h.uc.ListPlans(r.Context(), role)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{"plans": plans})
}
