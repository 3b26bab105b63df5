package handler

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type GoogleTokenRequest struct {
	IDToken string `json:"idToken"`
}

type UpdateProfileRequest struct {
	Name       string `json:"name"`
	PictureURL string `json:"pictureUrl"`
	ResumeURL  string `json:"resumeUrl"`
}

type PostJobRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	SalaryMin   int64  `json:"salaryMin"`
	SalaryMax   int64  `json:"salaryMax"`
}

type PlanRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	PriceCents     int64  `json:"priceCents"`
	QuotaLimit     *int64 `json:"quotaLimit"` // null means unlimited
	Highlight      bool   `json:"highlight"`
	PremiumSupport bool   `json:"premiumSupport"`
	DurationDays   int    `json:"durationDays"`
}

type SetBlockedRequest struct {
	Blocked bool `json:"blocked"`
}
