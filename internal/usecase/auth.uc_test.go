package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobnest-auth/internal/domain"
	"jobnest-auth/internal/repository"
	"jobnest-auth/internal/service/email"
	oauth2svc "jobnest-auth/internal/service/oauth2"
	"jobnest-auth/pkg/jwtutil"
	xerrors "jobnest-auth/pkg/xerrors"
)

type authFixture struct {
	uc         *AuthUsecase
	principals *repository.MemoryPrincipalRepo
	otps       *repository.MemoryOTPRepo
	mailer     *email.CaptureMailer
}

func int64Ptr(n int64) *int64 { return &n }

func newAuthFixture(t *testing.T, spec domain.RoleSpec) *authFixture {
	t.Helper()

	principals := repository.NewMemoryPrincipalRepo(spec)
	plans := repository.NewMemoryPlanRepo()
	otps := repository.NewMemoryOTPRepo()
	mailer := email.NewCaptureMailer()
	codec := jwtutil.NewCodec("access-secret", "refresh-secret", time.Hour, 7*24*time.Hour)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, plans.Create(context.Background(), &domain.Plan{
		Role: domain.RoleEmployer, Name: "basic", QuotaLimit: int64Ptr(5),
	}))
	require.NoError(t, plans.Create(context.Background(), &domain.Plan{
		Role: domain.RoleApplicant, Name: "basic", QuotaLimit: int64Ptr(10),
	}))

	return &authFixture{
		uc:         NewAuthUsecase(spec, principals, plans, otps, mailer, codec, log),
		principals: principals,
		otps:       otps,
		mailer:     mailer,
	}
}

var otpPattern = regexp.MustCompile(`\b(\d{6})\b`)

// otpFromMail pulls the code out of the last captured mail, the same way a
// real user reads it out of their inbox.
func (f *authFixture) otpFromMail(t *testing.T) string {
	t.Helper()
	msg, ok := f.mailer.Last()
	require.True(t, ok, "no mail was sent")
	m := otpPattern.FindStringSubmatch(msg.Body)
	require.NotNil(t, m, "mail body contains no code: %s", msg.Body)
	return m[1]
}

func (f *authFixture) register(t *testing.T, emailAddr string) string {
	t.Helper()
	require.NoError(t, f.uc.Register(context.Background(), emailAddr, "password123", "Test User"))
	return f.otpFromMail(t)
}

func TestRegisterAndVerifyCreatesAccount(t *testing.T) {
	f := newAuthFixture(t, domain.EmployerSpec)
	ctx := context.Background()

	otp := f.register(t, "hire@acme.test")

	p, err := f.uc.VerifyOTP(ctx, "hire@acme.test", otp)
	require.NoError(t, err)
	assert.Equal(t, "hire@acme.test", p.Email)
	assert.True(t, p.IsVerified)
	assert.Equal(t, "basic", p.PlanName)
	require.NotNil(t, p.Quota)
	assert.False(t, p.Quota.Unlimited)
	assert.EqualValues(t, 5, p.Quota.Remaining)
	assert.Empty(t, p.PasswordHash)
}

func TestNoAccountExistsBeforeVerification(t *testing.T) {
	f := newAuthFixture(t, domain.ApplicantSpec)
	ctx := context.Background()

	f.register(t, "new@user.test")

	// Login before OTP confirmation must behave as if the user never
	// signed up at all.
	_, err := f.uc.Login(ctx, "new@user.test", "password123")
	assert.ErrorIs(t, err, xerrors.ErrAccountNotFound)
}

func TestVerifyOTPIsSingleUse(t *testing.T) {
	f := newAuthFixture(t, domain.ApplicantSpec)
	ctx := context.Background()

	otp := f.register(t, "once@user.test")

	_, err := f.uc.VerifyOTP(ctx, "once@user.test", otp)
	require.NoError(t, err)

	_, err = f.uc.VerifyOTP(ctx, "once@user.test", otp)
	assert.ErrorIs(t, err, xerrors.ErrExpiredOTP)
}

func TestWrongOTPBoundedAttempts(t *testing.T) {
	f := newAuthFixture(t, domain.ApplicantSpec)
	ctx := context.Background()

	otp := f.register(t, "guess@user.test")

	for i := 0; i < maxOTPAttempts-1; i++ {
		_, err := f.uc.VerifyOTP(ctx, "guess@user.test", "000000")
		assert.ErrorIs(t, err, xerrors.ErrInvalidOTP)
	}

	_, err := f.uc.VerifyOTP(ctx, "guess@user.test", "000000")
	assert.ErrorIs(t, err, xerrors.ErrOTPBlocked)

	// Even the right code is dead after the entry was invalidated.
	_, err = f.uc.VerifyOTP(ctx, "guess@user.test", otp)
	assert.ErrorIs(t, err, xerrors.ErrExpiredOTP)
}

func TestOTPPastTTLBehavesAsNeverCreated(t *testing.T) {
	f := newAuthFixture(t, domain.ApplicantSpec)
	ctx := context.Background()

	otp := f.register(t, "late@user.test")

	// Age the pending entry past its lifetime. Even the correct code must
	// then be indistinguishable from a signup that never happened.
	pending, err := f.otps.Get(ctx, domain.RoleApplicant, "late@user.test")
	require.NoError(t, err)
	require.NoError(t, f.otps.Put(ctx, domain.RoleApplicant, "late@user.test", pending, -time.Second))

	_, err = f.uc.VerifyOTP(ctx, "late@user.test", otp)
	assert.ErrorIs(t, err, xerrors.ErrExpiredOTP)

	_, err = f.uc.Login(ctx, "late@user.test", "password123")
	assert.ErrorIs(t, err, xerrors.ErrAccountNotFound)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	f := newAuthFixture(t, domain.ApplicantSpec)
	ctx := context.Background()

	err := f.uc.Register(ctx, "not-an-email", "password123", "User")
	assert.ErrorIs(t, err, xerrors.ErrInvalidEmailFormat)

	err = f.uc.Register(ctx, "ok@user.test", "short", "User")
	assert.ErrorIs(t, err, xerrors.ErrWeakPassword)
}

func TestRegisterConflictsWithExistingAccount(t *testing.T) {
	f := newAuthFixture(t, domain.ApplicantSpec)
	ctx := context.Background()

	otp := f.register(t, "taken@user.test")
	_, err := f.uc.VerifyOTP(ctx, "taken@user.test", otp)
	require.NoError(t, err)

	err = f.uc.Register(ctx, "taken@user.test", "password123", "User")
	assert.ErrorIs(t, err, xerrors.ErrAccountExists)
}

func TestRegisterMailFailureAbortsSignup(t *testing.T) {
	f := newAuthFixture(t, domain.ApplicantSpec)
	ctx := context.Background()

	f.mailer.Fail = errors.New("relay down")
	err := f.uc.Register(ctx, "lost@user.test", "password123", "User")
	require.Error(t, err)

	// The pending entry must not survive, or the user would be stuck
	// waiting for a code that never arrives.
	_, err = f.otps.Get(ctx, domain.RoleApplicant, "lost@user.test")
	assert.ErrorIs(t, err, xerrors.ErrExpiredOTP)
}

func registerAndVerify(t *testing.T, f *authFixture, emailAddr string) *domain.Principal {
	t.Helper()
	otp := f.register(t, emailAddr)
	p, err := f.uc.VerifyOTP(context.Background(), emailAddr, otp)
	require.NoError(t, err)
	return p
}

func TestLoginErrorOrdering(t *testing.T) {
	f := newAuthFixture(t, domain.EmployerSpec)
	ctx := context.Background()

	p := registerAndVerify(t, f, "order@acme.test")

	_, err := f.uc.Login(ctx, "missing@acme.test", "password123")
	assert.ErrorIs(t, err, xerrors.ErrAccountNotFound)

	_, err = f.uc.Login(ctx, "order@acme.test", "wrongpassword")
	assert.ErrorIs(t, err, xerrors.ErrInvalidCredentials)

	require.NoError(t, f.principals.SetBlocked(ctx, p.ID, true))

	// Wrong password on a blocked account still reports bad credentials,
	// not the block: credentials are checked first.
	_, err = f.uc.Login(ctx, "order@acme.test", "wrongpassword")
	assert.ErrorIs(t, err, xerrors.ErrInvalidCredentials)

	_, err = f.uc.Login(ctx, "order@acme.test", "password123")
	assert.ErrorIs(t, err, xerrors.ErrAccountBlocked)
}

func TestLoginIssuesTokenPair(t *testing.T) {
	f := newAuthFixture(t, domain.EmployerSpec)
	ctx := context.Background()

	p := registerAndVerify(t, f, "login@acme.test")

	creds, err := f.uc.Login(ctx, "login@acme.test", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, creds.AccessToken)
	assert.NotEmpty(t, creds.RefreshToken)
	assert.Equal(t, p.ID, creds.Principal.ID)
	assert.Empty(t, creds.Principal.PasswordHash)

	stored, err := f.principals.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, creds.RefreshToken, stored.RefreshToken)
}

func TestRefreshRotatesAndInvalidatesOldToken(t *testing.T) {
	f := newAuthFixture(t, domain.ApplicantSpec)
	ctx := context.Background()

	registerAndVerify(t, f, "rotate@user.test")
	creds, err := f.uc.Login(ctx, "rotate@user.test", "password123")
	require.NoError(t, err)

	next, err := f.uc.Refresh(ctx, creds.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, creds.RefreshToken, next.RefreshToken)

	// The superseded token matches no stored row anymore.
	_, err = f.uc.Refresh(ctx, creds.RefreshToken)
	assert.ErrorIs(t, err, xerrors.ErrInvalidToken)

	_, err = f.uc.Refresh(ctx, next.RefreshToken)
	assert.NoError(t, err)
}

func TestConcurrentRefreshHasOneWinner(t *testing.T) {
	f := newAuthFixture(t, domain.ApplicantSpec)
	ctx := context.Background()

	registerAndVerify(t, f, "race@user.test")
	creds, err := f.uc.Login(ctx, "race@user.test", "password123")
	require.NoError(t, err)

	// Two callers present the same refresh token at once. Rotation is a
	// compare-and-swap on the stored token, so exactly one may win.
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.uc.Refresh(ctx, creds.RefreshToken)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, xerrors.ErrInvalidToken)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestRefreshRejectsGarbage(t *testing.T) {
	f := newAuthFixture(t, domain.ApplicantSpec)

	_, err := f.uc.Refresh(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, xerrors.ErrInvalidToken)
}

func TestLogoutInvalidatesRefreshToken(t *testing.T) {
	f := newAuthFixture(t, domain.ApplicantSpec)
	ctx := context.Background()

	p := registerAndVerify(t, f, "bye@user.test")
	creds, err := f.uc.Login(ctx, "bye@user.test", "password123")
	require.NoError(t, err)

	require.NoError(t, f.uc.Logout(ctx, p.ID))

	_, err = f.uc.Refresh(ctx, creds.RefreshToken)
	assert.ErrorIs(t, err, xerrors.ErrInvalidToken)
}

func TestGoogleSignupSkipsOTP(t *testing.T) {
	f := newAuthFixture(t, domain.ApplicantSpec)
	ctx := context.Background()

	creds, err := f.uc.RegisterWithGoogle(ctx, &oauth2svc.GoogleUser{
		Sub: "google-123", Email: "g@user.test", Name: "G User",
	})
	require.NoError(t, err)
	assert.True(t, creds.Principal.IsVerified)
	assert.True(t, creds.Principal.IsGoogleUser)
	require.NotNil(t, creds.Principal.Quota)
	assert.EqualValues(t, 10, creds.Principal.Quota.Remaining)
	assert.Empty(t, f.mailer.Messages())
}

func TestGoogleLoginCannotHijackPasswordAccount(t *testing.T) {
	f := newAuthFixture(t, domain.ApplicantSpec)
	ctx := context.Background()

	registerAndVerify(t, f, "victim@user.test")

	// Claims carrying the victim's email but a federated identity the
	// account never linked must not get in.
	_, err := f.uc.LoginWithGoogle(ctx, &oauth2svc.GoogleUser{
		Sub: "attacker-sub", Email: "victim@user.test",
	})
	assert.ErrorIs(t, err, xerrors.ErrInvalidFederatedLogin)
}

func TestGoogleLoginUnknownAccount(t *testing.T) {
	f := newAuthFixture(t, domain.ApplicantSpec)

	_, err := f.uc.LoginWithGoogle(context.Background(), &oauth2svc.GoogleUser{
		Sub: "google-999", Email: "nobody@user.test",
	})
	assert.ErrorIs(t, err, xerrors.ErrNotRegistered)
}

func TestGoogleAccountHasNoPasswordLogin(t *testing.T) {
	f := newAuthFixture(t, domain.ApplicantSpec)
	ctx := context.Background()

	_, err := f.uc.RegisterWithGoogle(ctx, &oauth2svc.GoogleUser{
		Sub: "google-123", Email: "gonly@user.test",
	})
	require.NoError(t, err)

	_, err = f.uc.Login(ctx, "gonly@user.test", "anything-at-all")
	assert.ErrorIs(t, err, xerrors.ErrInvalidCredentials)
}

func TestUpdateProfileEnforcesBlobOrigin(t *testing.T) {
	f := newAuthFixture(t, domain.ApplicantSpec)
	ctx := context.Background()
	const origin = "https://res.cloudinary.com/"

	p := registerAndVerify(t, f, "pic@user.test")

	_, err := f.uc.UpdateProfile(ctx, p.ID, "", "https://evil.test/x.png", "", origin)
	assert.ErrorIs(t, err, xerrors.ErrInvalidRequest)

	updated, err := f.uc.UpdateProfile(ctx, p.ID, "New Name", origin+"demo/pic.png", "", origin)
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, origin+"demo/pic.png", updated.PictureURL)
}
