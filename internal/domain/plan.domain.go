package domain

import "time"

// Plan is read-mostly reference data. QuotaLimit nil means unlimited. The
// plan itself is never decremented; it only seeds the principal's counter at
// account-creation time.
type Plan struct {
	Role           Role      `json:"role"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	PriceCents     int64     `json:"priceCents"`
	QuotaLimit     *int64    `json:"quotaLimit"` // nil = unlimited
	Highlight      bool      `json:"highlight"`
	PremiumSupport bool      `json:"premiumSupport"`
	DurationDays   int       `json:"durationDays"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// SeedQuota derives the initial consumption counter for a new principal.
func (p *Plan) SeedQuota() *Quota {
	if p.QuotaLimit == nil {
		return &Quota{Unlimited: true}
	}
	return &Quota{Remaining: *p.QuotaLimit}
}
