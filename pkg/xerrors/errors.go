// Package xerrors holds the sentinel errors shared by repositories, usecases
// and handlers, plus the single error-to-HTTP translation used at the API
// boundary.
package xerrors

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

// Generic
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalServer = errors.New("internal server error")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
)

// Registration / Login
var (
	ErrAccountExists      = errors.New("account with this email already exists")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountBlocked     = errors.New("account is blocked, please contact support")
	ErrAccountNotVerified = errors.New("email is not verified, please verify before logging in")
	ErrWeakPassword       = errors.New("password must be at least 8 characters long")
	ErrInvalidEmailFormat = errors.New("invalid email format")
)

// OTP
var (
	ErrInvalidOTP = errors.New("invalid otp")
	ErrExpiredOTP = errors.New("otp expired or invalid")
	ErrOTPBlocked = errors.New("too many invalid otp attempts, please sign up again")
)

// Federated login
var (
	ErrNotRegistered         = errors.New("account not registered, please sign up first")
	ErrInvalidFederatedLogin = errors.New("invalid google login attempt")
	ErrGoogleIDRequired      = errors.New("google id is required")
)

// Tokens
var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrExpiredToken = errors.New("token expired")
)

// Plans / quota
var (
	ErrPlanNotFound         = errors.New("plan not found")
	ErrQuotaExceeded        = errors.New("plan limit reached, please upgrade your plan")
	ErrDuplicateApplication = errors.New("you have already applied to this job")
)

const pgUniqueViolation = "23505"

// ParsePGErrorCode returns the raw Postgres error code, or "unknown" for
// non-Postgres errors.
func ParsePGErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return "unknown"
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation.
func IsUniqueViolation(err error) bool {
	return ParsePGErrorCode(err) == pgUniqueViolation
}

// HTTPStatus maps a sentinel error to the status code the API responds with.
// Anything unrecognized is treated as an internal error.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrInvalidOTP),
		errors.Is(err, ErrExpiredOTP),
		errors.Is(err, ErrOTPBlocked),
		errors.Is(err, ErrWeakPassword),
		errors.Is(err, ErrInvalidEmailFormat),
		errors.Is(err, ErrGoogleIDRequired):
		return http.StatusBadRequest
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidFederatedLogin),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrExpiredToken),
		errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAccountBlocked),
		errors.Is(err, ErrAccountNotVerified),
		errors.Is(err, ErrQuotaExceeded),
		errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrNotRegistered),
		errors.Is(err, ErrPlanNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAccountExists),
		errors.Is(err, ErrDuplicateApplication):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
