package domain

import "time"

type Job struct {
	ID          string    `json:"id"`
	EmployerID  string    `json:"employerId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	SalaryMin   int64     `json:"salaryMin"`
	SalaryMax   int64     `json:"salaryMax"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

// Application joins an applicant to a job. At most one application per
// applicant per job.
type Application struct {
	ID          string            `json:"id"`
	ApplicantID string            `json:"applicantId"`
	JobID       string            `json:"jobId"`
	EmployerID  string            `json:"employerId"`
	Status      ApplicationStatus `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
}
