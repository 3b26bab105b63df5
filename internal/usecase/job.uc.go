package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"jobnest-auth/internal/domain"
	"jobnest-auth/internal/repository"
	xerrors "jobnest-auth/pkg/xerrors"
)

// JobUsecase covers the quota-consuming marketplace actions: an employer
// posting a job and an applicant applying to one. Quota enforcement lives in
// the repository transaction; this layer only validates shape and wires ids.
type JobUsecase struct {
	jobs         repository.JobRepository
	applications repository.ApplicationRepository
	log          *slog.Logger
}

func NewJobUsecase(jobs repository.JobRepository, applications repository.ApplicationRepository, log *slog.Logger) *JobUsecase {
	return &JobUsecase{jobs: jobs, applications: applications, log: log}
}

// PostJob consumes one unit of the employer's posting quota and creates the
// job. The decrement and the insert commit together or not at all.
func (uc *JobUsecase) PostJob(ctx context.Context, employerID string, j *domain.Job) (*domain.Job, error) {
	if strings.TrimSpace(j.Title) == "" || strings.TrimSpace(j.Description) == "" {
		return nil, xerrors.ErrInvalidRequest
	}
	if j.SalaryMin < 0 || (j.SalaryMax != 0 && j.SalaryMax < j.SalaryMin) {
		return nil, xerrors.ErrInvalidRequest
	}

	j.ID = uuid.NewString()
	j.EmployerID = employerID
	if err := uc.jobs.CreateWithQuota(ctx, j); err != nil {
		return nil, err
	}

	uc.log.Info("job posted", "job", j.ID, "employer", employerID)
	return j, nil
}

// Apply consumes one unit of the applicant's application quota. A second
// application by the same applicant to the same job fails with
// ErrDuplicateApplication and consumes nothing.
func (uc *JobUsecase) Apply(ctx context.Context, applicantID, jobID string) (*domain.Application, error) {
	job, err := uc.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	a := &domain.Application{
		ID:          uuid.NewString(),
		ApplicantID: applicantID,
		JobID:       job.ID,
		EmployerID:  job.EmployerID,
		Status:      domain.ApplicationPending,
	}
	if err := uc.applications.CreateWithQuota(ctx, a); err != nil {
		return nil, err
	}

	uc.log.Info("application submitted", "application", a.ID, "job", job.ID, "applicant", applicantID)
	return a, nil
}

func (uc *JobUsecase) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	return uc.jobs.GetByID(ctx, id)
}

func (uc *JobUsecase) ListEmployerJobs(ctx context.Context, employerID string) ([]*domain.Job, error) {
	return uc.jobs.ListByEmployer(ctx, employerID)
}

// ListJobApplications returns the applications for one of the employer's own
// jobs. Asking about someone else's job is a forbidden, not a not-found.
func (uc *JobUsecase) ListJobApplications(ctx context.Context, employerID, jobID string) ([]*domain.Application, error) {
	job, err := uc.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.EmployerID != employerID {
		return nil, xerrors.ErrForbidden
	}
	return uc.applications.ListByJob(ctx, jobID)
}
