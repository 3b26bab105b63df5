package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"jobnest-auth/internal/domain"
	"jobnest-auth/internal/usecase"
	"jobnest-auth/pkg/middleware"
	"jobnest-auth/pkg/response"
	xerrors "jobnest-auth/pkg/xerrors"
)

type JobHandler struct {
	uc *usecase.JobUsecase
}

func NewJobHandler(uc *usecase.JobUsecase) *JobHandler {
	return &JobHandler{uc: uc}
}

// PostJob is mounted behind the employer auth and quota middleware; by the
// time it runs the caller is a verified, unblocked employer with quota
// remaining (pending the transactional re-check).
func (h *JobHandler) PostJob(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.FromError(w, xerrors.ErrUnauthorized)
		return
	}
	var req PostJobRequest
	if err := decode(r, &req); err != nil {
		response.FromError(w, err)
		return
	}
	job, err := h.uc.PostJob(r.Context(), p.ID, &domain.Job{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		SalaryMin:   req.SalaryMin,
		SalaryMax:   req.SalaryMax,
	})
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, map[string]interface{}{"job": job})
}

func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.uc.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{"job": job})
}

func (h *JobHandler) ListMyJobs(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.FromError(w, xerrors.ErrUnauthorized)
		return
	}
	jobs, err := h.uc.ListEmployerJobs(r.Context(), p.ID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}

func (h *JobHandler) ListJobApplications(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.FromError(w, xerrors.ErrUnauthorized)
		return
	}
	apps, err := h.uc.ListJobApplications(r.Context(), p.ID, chi.URLParam(r, "jobID"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{"applications": apps})
}

func (h *JobHandler) Apply(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.FromError(w, xerrors.ErrUnauthorized)
		return
	}
	app, err := h.uc.Apply(r.Context(), p.ID, chi.URLParam(r, "jobID"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, map[string]interface{}{"application": app})
}
