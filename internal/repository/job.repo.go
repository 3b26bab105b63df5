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

type JobRepo struct {
	db *pgxpool.Pool
}

func NewJobRepo(db *pgxpool.Pool) *JobRepo {
	return &JobRepo{db: db}
}

const jobColumns = `id, employer_id, title, description, location, salary_min, salary_max, created_at`

func scanJob(row pgx.Row) (*domain.Job, error) {
	var j domain.Job
	err := row.Scan(&j.ID, &j.EmployerID, &j.Title, &j.Description,
		&j.Location, &j.SalaryMin, &j.SalaryMax, &j.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// CreateWithQuota inserts the job and decrements the employer's remaining
// job-post counter in one transaction. The decrement is conditional: an
// unlimited (NULL) counter always passes, an exhausted one matches no rows
// and the whole transaction rolls back with ErrQuotaExceeded. Check, act and
// charge are therefore atomic and an employer can never overshoot the limit
// under concurrent posts.
func (r *JobRepo) CreateWithQuota(ctx context.Context, j *domain.Job) error {
	j.CreatedAt = time.Now()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE employers SET jobs_left = jobs_left - 1, updated_at = NOW()
		WHERE id = $1 AND (jobs_left IS NULL OR jobs_left > 0)
	`, j.EmployerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrQuotaExceeded
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO jobs (id, employer_id, title, description, location, salary_min, salary_max, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, j.ID, j.EmployerID, j.Title, j.Description, j.Location, j.SalaryMin, j.SalaryMax, j.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *JobRepo) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	return scanJob(r.db.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
}

func (r *JobRepo) ListByEmployer(ctx context.Context, employerID string) ([]*domain.Job, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE employer_id = $1 ORDER BY created_at DESC`,
		employerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

type ApplicationRepo struct {
	db *pgxpool.Pool
}

func NewApplicationRepo(db *pgxpool.Pool) *ApplicationRepo {
	return &ApplicationRepo{db: db}
}

// CreateWithQuota mirrors JobRepo.CreateWithQuota on the applicant side,
// with the additional duplicate-application guard enforced by the unique
// (applicant_id, job_id) constraint.
func (r *ApplicationRepo) CreateWithQuota(ctx context.Context, a *domain.Application) error {
	a.CreatedAt = time.Now()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE applicants SET applications_left = applications_left - 1, updated_at = NOW()
		WHERE id = $1 AND (applications_left IS NULL OR applications_left > 0)
	`, a.ApplicantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrQuotaExceeded
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO applications (id, applicant_id, job_id, employer_id, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, a.ID, a.ApplicantID, a.JobID, a.EmployerID, a.Status, a.CreatedAt)
	if xerrors.IsUniqueViolation(err) {
		return xerrors.ErrDuplicateApplication
	}
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *ApplicationRepo) ListByJob(ctx context.Context, jobID string) ([]*domain.Application, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, applicant_id, job_id, employer_id, status, created_at
		FROM applications WHERE job_id = $1 ORDER BY created_at DESC
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Application
	for rows.Next() {
		var a domain.Application
		if err := rows.Scan(&a.ID, &a.ApplicantID, &a.JobID, &a.EmployerID, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
