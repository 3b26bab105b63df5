package domain

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleApplicant Role = "applicant"
	RoleEmployer  Role = "employer"
	RoleAdmin     Role = "admin"
)

// RoleSpec describes everything role-specific the auth stack needs: where
// the principals live, which column carries the consumption counter and
// which plan seeds it. One generic usecase/middleware/repository is
// instantiated once per spec instead of triplicating the logic.
type RoleSpec struct {
	Role        Role
	Table       string
	QuotaColumn string // empty when the role has no consumption counter
	DefaultPlan string
}

// HasPlan reports whether principals of this role carry a plan and a
// consumption counter. Admins do not.
func (s RoleSpec) HasPlan() bool { return s.QuotaColumn != "" }

var (
	ApplicantSpec = RoleSpec{Role: RoleApplicant, Table: "applicants", QuotaColumn: "applications_left", DefaultPlan: "basic"}
	EmployerSpec  = RoleSpec{Role: RoleEmployer, Table: "employers", QuotaColumn: "jobs_left", DefaultPlan: "basic"}
	AdminSpec     = RoleSpec{Role: RoleAdmin, Table: "admins"}
)

// Quota is a remaining-uses counter. Unlimited quotas serialize as the
// string "unlimited", bounded ones as a plain number.
type Quota struct {
	Unlimited bool
	Remaining int64
}

func (q Quota) MarshalJSON() ([]byte, error) {
	if q.Unlimited {
		return json.Marshal("unlimited")
	}
	return json.Marshal(q.Remaining)
}

func (q *Quota) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s == "unlimited" {
			*q = Quota{Unlimited: true}
			return nil
		}
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*q = Quota{Remaining: n}
	return nil
}

// Principal is an account of one specific role. The refresh token field
// holds the single currently-valid refresh token; rotating it invalidates
// the previous one. The quota counter is seeded from the plan at account
// creation and decremented independently thereafter.
type Principal struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	GoogleID     string    `json:"-"`
	IsGoogleUser bool      `json:"isGoogleUser"`
	Name         string    `json:"name"`
	PictureURL   string    `json:"pictureUrl,omitempty"`
	ResumeURL    string    `json:"resumeUrl,omitempty"`
	Role         Role      `json:"role"`
	IsVerified   bool      `json:"isVerified"`
	IsBlocked    bool      `json:"isBlocked"`
	RefreshToken string    `json:"-"`
	PlanName     string    `json:"plan,omitempty"`
	Quota        *Quota    `json:"quotaLeft,omitempty"` // nil for admins
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PendingRegistration is the ephemeral signup payload held in the OTP cache
// until the email address is proven reachable. It is never persisted; the
// account does not exist until the OTP is confirmed.
type PendingRegistration struct {
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	Name         string `json:"name"`
	OTP          string `json:"otp"`
}
