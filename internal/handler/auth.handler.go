// Package handler is the HTTP edge: request decoding, cookie handling and
// the success/error envelope. Business rules live one layer down in usecase.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"jobnest-auth/internal/usecase"
	"jobnest-auth/pkg/middleware"
	"jobnest-auth/pkg/response"
	xerrors "jobnest-auth/pkg/xerrors"

	oauth2svc "jobnest-auth/internal/service/oauth2"
)

const (
	refreshCookieName = "refreshToken"
	refreshCookieAge  = 7 * 24 * time.Hour
)

// IDTokenVerifier validates a federated ID token and returns its claims.
// In production this is oauth2svc.VerifyGoogleToken; tests substitute a stub
// so no Google round trip is needed.
type IDTokenVerifier func(ctx context.Context, token, clientID string) (*oauth2svc.GoogleUser, error)

// AuthHandler serves one principal kind's auth surface. The same handler
// type is mounted under /applicant, /employer and /admin, each wrapping its
// own role-specialized usecase.
type AuthHandler struct {
	uc             *usecase.AuthUsecase
	verifyIDToken  IDTokenVerifier
	googleClientID string
	blobOrigin     string
	secureCookie   bool
}

func NewAuthHandler(uc *usecase.AuthUsecase, verifier IDTokenVerifier, googleClientID, blobOrigin string, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		uc:             uc,
		verifyIDToken:  verifier,
		googleClientID: googleClientID,
		blobOrigin:     blobOrigin,
		secureCookie:   secureCookie,
	}
}

func decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return xerrors.ErrInvalidRequest
	}
	return nil
}

// setRefreshCookie stores the refresh token as an HttpOnly cookie so browser
// scripts never see it. The access token travels in the response body only.
func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(refreshCookieAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) writeCredentials(w http.ResponseWriter, status int, creds *usecase.Credentials) {
	h.setRefreshCookie(w, creds.RefreshToken)
	response.JSON(w, status, map[string]interface{}{
		"user":        creds.Principal,
		"accessToken": creds.AccessToken,
		"role":        creds.Principal.Role,
	})
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decode(r, &req); err != nil {
		response.FromError(w, err)
		return
	}
	if err := h.uc.Register(r.Context(), req.Email, req.Password, req.Name); err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, http.StatusAccepted, map[string]string{
		"message": "verification code sent",
		"email":   req.Email,
	})
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if err := decode(r, &req); err != nil {
		response.FromError(w, err)
		return
	}
	p, err := h.uc.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, map[string]interface{}{"user": p})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(r, &req); err != nil {
		response.FromError(w, err)
		return
	}
	creds, err := h.uc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		response.FromError(w, err)
		return
	}
	h.writeCredentials(w, http.StatusOK, creds)
}

func (h *AuthHandler) GoogleSignup(w http.ResponseWriter, r *http.Request) {
	gu, err := h.googleUser(r)
	if err != nil {
		response.FromError(w, err)
		return
	}
	creds, err := h.uc.RegisterWithGoogle(r.Context(), gu)
	if err != nil {
		response.FromError(w, err)
		return
	}
	h.writeCredentials(w, http.StatusCreated, creds)
}

func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	gu, err := h.googleUser(r)
	if err != nil {
		response.FromError(w, err)
		return
	}
	creds, err := h.uc.LoginWithGoogle(r.Context(), gu)
	if err != nil {
		response.FromError(w, err)
		return
	}
	h.writeCredentials(w, http.StatusOK, creds)
}

func (h *AuthHandler) googleUser(r *http.Request) (*oauth2svc.GoogleUser, error) {
	var req GoogleTokenRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	if req.IDToken == "" {
		return nil, xerrors.ErrInvalidRequest
	}
	gu, err := h.verifyIDToken(r.Context(), req.IDToken, h.googleClientID)
	if err != nil {
		return nil, xerrors.ErrInvalidFederatedLogin
	}
	return gu, nil
}

// Refresh exchanges the cookie-borne refresh token for a new pair. Any
// failure clears the cookie: a token that fails here is either forged or
// already superseded, and keeping it would only make the client retry a
// dead credential.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		h.clearRefreshCookie(w)
		response.FromError(w, xerrors.ErrInvalidToken)
		return
	}
	creds, err := h.uc.Refresh(r.Context(), cookie.Value)
	if err != nil {
		h.clearRefreshCookie(w)
		response.FromError(w, err)
		return
	}
	h.writeCredentials(w, http.StatusOK, creds)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.FromError(w, xerrors.ErrUnauthorized)
		return
	}
	if err := h.uc.Logout(r.Context(), p.ID); err != nil {
		response.FromError(w, err)
		return
	}
	h.clearRefreshCookie(w)
	response.JSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.FromError(w, xerrors.ErrUnauthorized)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{"user": p})
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.FromError(w, xerrors.ErrUnauthorized)
		return
	}
	var req UpdateProfileRequest
	if err := decode(r, &req); err != nil {
		response.FromError(w, err)
		return
	}
	updated, err := h.uc.UpdateProfile(r.Context(), p.ID, req.Name, req.PictureURL, req.ResumeURL, h.blobOrigin)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{"user": updated})
}
