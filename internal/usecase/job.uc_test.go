package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobnest-auth/internal/domain"
	"jobnest-auth/internal/repository"
	xerrors "jobnest-auth/pkg/xerrors"
)

type jobFixture struct {
	uc         *JobUsecase
	employers  *repository.MemoryPrincipalRepo
	applicants *repository.MemoryPrincipalRepo
}

func newJobFixture(t *testing.T) *jobFixture {
	t.Helper()
	employers := repository.NewMemoryPrincipalRepo(domain.EmployerSpec)
	applicants := repository.NewMemoryPrincipalRepo(domain.ApplicantSpec)
	jobs := repository.NewMemoryJobRepo(employers)
	apps := repository.NewMemoryApplicationRepo(applicants)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &jobFixture{
		uc:         NewJobUsecase(jobs, apps, log),
		employers:  employers,
		applicants: applicants,
	}
}

func (f *jobFixture) seedEmployer(t *testing.T, quota *domain.Quota) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, f.employers.Create(context.Background(), &domain.Principal{
		ID: id, Email: id + "@acme.test", Role: domain.RoleEmployer,
		IsVerified: true, PlanName: "basic", Quota: quota,
	}))
	return id
}

func (f *jobFixture) seedApplicant(t *testing.T, quota *domain.Quota) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, f.applicants.Create(context.Background(), &domain.Principal{
		ID: id, Email: id + "@user.test", Role: domain.RoleApplicant,
		IsVerified: true, PlanName: "basic", Quota: quota,
	}))
	return id
}

func newJob() *domain.Job {
	return &domain.Job{Title: "Go Engineer", Description: "Build services", Location: "Remote"}
}

func TestPostJobConsumesQuotaToExhaustion(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()
	employer := f.seedEmployer(t, &domain.Quota{Remaining: 5})

	for i := 0; i < 5; i++ {
		_, err := f.uc.PostJob(ctx, employer, newJob())
		require.NoError(t, err)
	}

	_, err := f.uc.PostJob(ctx, employer, newJob())
	assert.ErrorIs(t, err, xerrors.ErrQuotaExceeded)

	p, err := f.employers.GetByID(ctx, employer)
	require.NoError(t, err)
	assert.EqualValues(t, 0, p.Quota.Remaining)

	jobs, err := f.uc.ListEmployerJobs(ctx, employer)
	require.NoError(t, err)
	assert.Len(t, jobs, 5)
}

func TestPostJobUnlimitedQuotaNeverExhausts(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()
	employer := f.seedEmployer(t, &domain.Quota{Unlimited: true})

	for i := 0; i < 20; i++ {
		_, err := f.uc.PostJob(ctx, employer, newJob())
		require.NoError(t, err)
	}

	p, err := f.employers.GetByID(ctx, employer)
	require.NoError(t, err)
	assert.True(t, p.Quota.Unlimited)
}

func TestPostJobValidatesInput(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()
	employer := f.seedEmployer(t, &domain.Quota{Remaining: 5})

	_, err := f.uc.PostJob(ctx, employer, &domain.Job{Title: "", Description: "x"})
	assert.ErrorIs(t, err, xerrors.ErrInvalidRequest)

	_, err = f.uc.PostJob(ctx, employer, &domain.Job{
		Title: "T", Description: "D", SalaryMin: 100, SalaryMax: 50,
	})
	assert.ErrorIs(t, err, xerrors.ErrInvalidRequest)

	// Neither failed attempt consumed quota.
	p, err := f.employers.GetByID(ctx, employer)
	require.NoError(t, err)
	assert.EqualValues(t, 5, p.Quota.Remaining)
}

func TestApplyConsumesQuotaAndRejectsDuplicates(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()
	employer := f.seedEmployer(t, &domain.Quota{Unlimited: true})
	applicant := f.seedApplicant(t, &domain.Quota{Remaining: 2})

	job, err := f.uc.PostJob(ctx, employer, newJob())
	require.NoError(t, err)

	app, err := f.uc.Apply(ctx, applicant, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationPending, app.Status)
	assert.Equal(t, employer, app.EmployerID)

	_, err = f.uc.Apply(ctx, applicant, job.ID)
	assert.ErrorIs(t, err, xerrors.ErrDuplicateApplication)

	// The duplicate did not burn quota: one application, one unit spent.
	p, err := f.applicants.GetByID(ctx, applicant)
	require.NoError(t, err)
	assert.EqualValues(t, 1, p.Quota.Remaining)
}

func TestConcurrentDuplicateApplicationsChargedOnce(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()
	employer := f.seedEmployer(t, &domain.Quota{Unlimited: true})
	applicant := f.seedApplicant(t, &domain.Quota{Remaining: 2})

	job, err := f.uc.PostJob(ctx, employer, newJob())
	require.NoError(t, err)

	// Two simultaneous submissions of the same application. The duplicate
	// check and the quota charge share one critical section, so only one
	// may land and only one unit of quota may be spent.
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.uc.Apply(ctx, applicant, job.ID)
		}(i)
	}
	wg.Wait()

	landed := 0
	for _, err := range errs {
		if err == nil {
			landed++
		} else {
			assert.ErrorIs(t, err, xerrors.ErrDuplicateApplication)
		}
	}
	assert.Equal(t, 1, landed)

	p, err := f.applicants.GetByID(ctx, applicant)
	require.NoError(t, err)
	assert.EqualValues(t, 1, p.Quota.Remaining)

	apps, err := f.uc.ListJobApplications(ctx, employer, job.ID)
	require.NoError(t, err)
	assert.Len(t, apps, 1)
}

func TestApplyQuotaExceeded(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()
	employer := f.seedEmployer(t, &domain.Quota{Unlimited: true})
	applicant := f.seedApplicant(t, &domain.Quota{Remaining: 1})

	job1, err := f.uc.PostJob(ctx, employer, newJob())
	require.NoError(t, err)
	job2, err := f.uc.PostJob(ctx, employer, newJob())
	require.NoError(t, err)

	_, err = f.uc.Apply(ctx, applicant, job1.ID)
	require.NoError(t, err)

	_, err = f.uc.Apply(ctx, applicant, job2.ID)
	assert.ErrorIs(t, err, xerrors.ErrQuotaExceeded)
}

func TestApplyToUnknownJob(t *testing.T) {
	f := newJobFixture(t)
	applicant := f.seedApplicant(t, &domain.Quota{Remaining: 5})

	_, err := f.uc.Apply(context.Background(), applicant, "no-such-job")
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestListJobApplicationsOwnership(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()
	owner := f.seedEmployer(t, &domain.Quota{Unlimited: true})
	other := f.seedEmployer(t, &domain.Quota{Unlimited: true})
	applicant := f.seedApplicant(t, &domain.Quota{Remaining: 5})

	job, err := f.uc.PostJob(ctx, owner, newJob())
	require.NoError(t, err)
	_, err = f.uc.Apply(ctx, applicant, job.ID)
	require.NoError(t, err)

	apps, err := f.uc.ListJobApplications(ctx, owner, job.ID)
	require.NoError(t, err)
	assert.Len(t, apps, 1)

	_, err = f.uc.ListJobApplications(ctx, other, job.ID)
	assert.ErrorIs(t, err, xerrors.ErrForbidden)
}
