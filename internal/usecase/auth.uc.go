// Package usecase holds the business logic: the OTP-gated registration
// pipeline, password and federated login, refresh-token rotation, and the
// quota-consuming job actions. One AuthUsecase instance exists per principal
// kind, all sharing this code via domain.RoleSpec.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"jobnest-auth/internal/domain"
	"jobnest-auth/internal/repository"
	"jobnest-auth/internal/service/email"
	oauth2svc "jobnest-auth/internal/service/oauth2"
	"jobnest-auth/pkg/jwtutil"
	xerrors "jobnest-auth/pkg/xerrors"
)

const (
	otpTTL         = 10 * time.Minute
	maxOTPAttempts = 5
	bcryptCost     = 10
)

// Credentials is what a successful login/refresh hands back: the principal
// with secrets stripped plus a fresh token pair.
type Credentials struct {
	Principal    *domain.Principal
	AccessToken  string
	RefreshToken string
}

type AuthUsecase struct {
	spec       domain.RoleSpec
	principals repository.PrincipalRepository
	plans      repository.PlanRepository
	otps       repository.OTPRepository
	mailer     email.Mailer
	codec      *jwtutil.Codec
	log        *slog.Logger
}

func NewAuthUsecase(
	spec domain.RoleSpec,
	principals repository.PrincipalRepository,
	plans repository.PlanRepository,
	otps repository.OTPRepository,
	mailer email.Mailer,
	codec *jwtutil.Codec,
	log *slog.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		spec:       spec,
		principals: principals,
		plans:      plans,
		otps:       otps,
		mailer:     mailer,
		codec:      codec,
		log:        log.With("role", string(spec.Role)),
	}
}

func (uc *AuthUsecase) Spec() domain.RoleSpec { return uc.spec }

// Register starts the OTP-gated registration pipeline. No account exists
// until VerifyOTP succeeds; until then the candidate lives only in the OTP
// cache. A mail-relay failure aborts the registration and removes the
// pending entry, so the user is never left with an unfinishable signup.
func (uc *AuthUsecase) Register(ctx context.Context, emailAddr, password, name string) error {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	if !validEmail(emailAddr) {
		return xerrors.ErrInvalidEmailFormat
	}
	if len(password) < 8 {
		return xerrors.ErrWeakPassword
	}
	if strings.TrimSpace(name) == "" {
		return xerrors.ErrInvalidRequest
	}

	_, err := uc.principals.GetByEmail(ctx, emailAddr)
	if err == nil {
		return xerrors.ErrAccountExists
	}
	if !errors.Is(err, xerrors.ErrAccountNotFound) {
		return fmt.Errorf("looking up account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	otp := randomCode(6)
	pending := &domain.PendingRegistration{
		Email:        emailAddr,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(name),
		OTP:          otp,
	}
	if err := uc.otps.Put(ctx, uc.spec.Role, emailAddr, pending, otpTTL); err != nil {
		return fmt.Errorf("storing pending registration: %w", err)
	}

	subject, body := email.OTPMessage(otp, otpTTL)
	if err := uc.mailer.Send(ctx, emailAddr, subject, body); err != nil {
		_ = uc.otps.Delete(ctx, uc.spec.Role, emailAddr)
		uc.log.Error("otp mail delivery failed", "email", emailAddr, "err", err)
		return fmt.Errorf("sending otp: %w", err)
	}

	uc.log.Info("registration pending otp", "email", emailAddr)
	return nil
}

// VerifyOTP consumes the pending entry and creates the account. The entry
// is single-use: after a successful match it is deleted and a second verify
// behaves as if it never existed. Wrong codes are counted; after
// maxOTPAttempts the entry is invalidated outright.
func (uc *AuthUsecase) VerifyOTP(ctx context.Context, emailAddr, code string) (*domain.Principal, error) {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))

	pending, err := uc.otps.Get(ctx, uc.spec.Role, emailAddr)
	if err != nil {
		return nil, err
	}

	if pending.OTP != code {
		attempts, cntErr := uc.otps.RecordFailure(ctx, uc.spec.Role, emailAddr, otpTTL)
		if cntErr == nil && attempts >= maxOTPAttempts {
			_ = uc.otps.Delete(ctx, uc.spec.Role, emailAddr)
			uc.log.Warn("otp entry invalidated after repeated failures", "email", emailAddr)
			return nil, xerrors.ErrOTPBlocked
		}
		return nil, xerrors.ErrInvalidOTP
	}

	p := &domain.Principal{
		ID:           uuid.NewString(),
		Email:        pending.Email,
		PasswordHash: pending.PasswordHash,
		Name:         pending.Name,
		Role:         uc.spec.Role,
		IsVerified:   true,
	}
	if err := uc.seedPlan(ctx, p); err != nil {
		return nil, err
	}

	if err := uc.principals.Create(ctx, p); err != nil {
		return nil, err
	}
	_ = uc.otps.Delete(ctx, uc.spec.Role, emailAddr)

	uc.log.Info("account created", "id", p.ID, "email", p.Email)
	return sanitize(p), nil
}

// seedPlan copies the default plan's limit onto the new principal. The
// counter drifts from the plan afterwards; it is a consumption counter, not
// a cache of the plan.
func (uc *AuthUsecase) seedPlan(ctx context.Context, p *domain.Principal) error {
	if !uc.spec.HasPlan() {
		return nil
	}
	plan, err := uc.plans.GetByName(ctx, uc.spec.Role, uc.spec.DefaultPlan)
	if err != nil {
		return fmt.Errorf("seeding plan %q: %w", uc.spec.DefaultPlan, err)
	}
	p.PlanName = plan.Name
	p.Quota = plan.SeedQuota()
	return nil
}

// Login authenticates by password and rotates the refresh token. Login is
// the legitimate rotation point, so the stored token is simply overwritten.
func (uc *AuthUsecase) Login(ctx context.Context, emailAddr, password string) (*Credentials, error) {
	p, err := uc.principals.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(emailAddr)))
	if err != nil {
		return nil, err
	}
	if p.PasswordHash == "" {
		// Pure-federated account; password login is not available.
		return nil, xerrors.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return nil, xerrors.ErrInvalidCredentials
	}
	if p.IsBlocked {
		return nil, xerrors.ErrAccountBlocked
	}
	if !p.IsVerified {
		return nil, xerrors.ErrAccountNotVerified
	}
	return uc.issueTokens(ctx, p)
}

// RegisterWithGoogle creates an account from already-verified Google claims.
// The address is proven reachable by Google, so the account is verified
// immediately and skips the OTP pipeline.
func (uc *AuthUsecase) RegisterWithGoogle(ctx context.Context, gu *oauth2svc.GoogleUser) (*Credentials, error) {
	if gu.Sub == "" {
		return nil, xerrors.ErrGoogleIDRequired
	}
	emailAddr := strings.ToLower(gu.Email)

	_, err := uc.principals.GetByEmail(ctx, emailAddr)
	if err == nil {
		return nil, xerrors.ErrAccountExists
	}
	if !errors.Is(err, xerrors.ErrAccountNotFound) {
		return nil, fmt.Errorf("looking up account: %w", err)
	}

	p := &domain.Principal{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		GoogleID:     gu.Sub,
		IsGoogleUser: true,
		Name:         gu.Name,
		PictureURL:   gu.Picture,
		Role:         uc.spec.Role,
		IsVerified:   true,
	}
	if err := uc.seedPlan(ctx, p); err != nil {
		return nil, err
	}
	if err := uc.principals.Create(ctx, p); err != nil {
		return nil, err
	}

	uc.log.Info("google account created", "id", p.ID, "email", p.Email)
	return uc.issueTokens(ctx, p)
}

// LoginWithGoogle authenticates an existing Google-linked account. A
// password account with the same email cannot be entered through this flow:
// the stored federated subject id must match.
func (uc *AuthUsecase) LoginWithGoogle(ctx context.Context, gu *oauth2svc.GoogleUser) (*Credentials, error) {
	p, err := uc.principals.GetByEmail(ctx, strings.ToLower(gu.Email))
	if errors.Is(err, xerrors.ErrAccountNotFound) {
		return nil, xerrors.ErrNotRegistered
	}
	if err != nil {
		return nil, err
	}
	if !p.IsGoogleUser || p.GoogleID != gu.Sub {
		return nil, xerrors.ErrInvalidFederatedLogin
	}
	if p.IsBlocked {
		return nil, xerrors.ErrAccountBlocked
	}
	return uc.issueTokens(ctx, p)
}

// Refresh exchanges a refresh token for a new pair. The principal is found
// by the stored token value first: a forged token, or one already superseded
// by a later rotation, matches nothing and fails before any cryptography.
// The rotation itself is a compare-and-swap, so of two concurrent refreshes
// carrying the same token exactly one wins.
func (uc *AuthUsecase) Refresh(ctx context.Context, refreshToken string) (*Credentials, error) {
	p, err := uc.principals.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, xerrors.ErrInvalidToken
	}

	if _, err := uc.codec.VerifyRefresh(refreshToken, p.ID, p.Email); err != nil {
		return nil, xerrors.ErrInvalidToken
	}

	access, err := uc.codec.IssueAccess(p.ID, p.Email, string(p.Role))
	if err != nil {
		return nil, fmt.Errorf("minting access token: %w", err)
	}
	newRefresh, err := uc.codec.IssueRefresh(p.ID, p.Email)
	if err != nil {
		return nil, fmt.Errorf("minting refresh token: %w", err)
	}

	if err := uc.principals.RotateRefreshToken(ctx, p.ID, refreshToken, newRefresh); err != nil {
		return nil, err
	}

	return &Credentials{
		Principal:    sanitize(p),
		AccessToken:  access,
		RefreshToken: newRefresh,
	}, nil
}

// Logout clears the stored refresh token. Outstanding access tokens stay
// valid until their natural expiry.
func (uc *AuthUsecase) Logout(ctx context.Context, id string) error {
	return uc.principals.ClearRefreshToken(ctx, id)
}

// GetPrincipal loads the live record, for the auth middleware.
func (uc *AuthUsecase) GetPrincipal(ctx context.Context, id string) (*domain.Principal, error) {
	return uc.principals.GetByID(ctx, id)
}

// UpdateProfile applies the mutable profile fields. Picture and resume URLs
// must point at the configured blob host; the core persists the URL string
// only.
func (uc *AuthUsecase) UpdateProfile(ctx context.Context, id, name, pictureURL, resumeURL, blobOrigin string) (*domain.Principal, error) {
	for _, u := range []string{pictureURL, resumeURL} {
		if u != "" && !strings.HasPrefix(u, blobOrigin) {
			return nil, xerrors.ErrInvalidRequest
		}
	}
	if err := uc.principals.UpdateProfile(ctx, id, strings.TrimSpace(name), pictureURL, resumeURL); err != nil {
		return nil, err
	}
	p, err := uc.principals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitize(p), nil
}

func (uc *AuthUsecase) issueTokens(ctx context.Context, p *domain.Principal) (*Credentials, error) {
	access, err := uc.codec.IssueAccess(p.ID, p.Email, string(p.Role))
	if err != nil {
		return nil, fmt.Errorf("minting access token: %w", err)
	}
	refresh, err := uc.codec.IssueRefresh(p.ID, p.Email)
	if err != nil {
		return nil, fmt.Errorf("minting refresh token: %w", err)
	}
	if err := uc.principals.SetRefreshToken(ctx, p.ID, refresh); err != nil {
		return nil, err
	}
	return &Credentials{
		Principal:    sanitize(p),
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// sanitize strips secrets before a principal leaves the usecase layer.
func sanitize(p *domain.Principal) *domain.Principal {
	cp := *p
	cp.PasswordHash = ""
	cp.RefreshToken = ""
	return &cp
}
