// Package oauth2svc verifies Google ID tokens against the provider. The
// verification is a network round trip to Google; the auth usecases only
// ever consume the already-validated claims returned from here.
package oauth2svc

import (
	"context"

	"google.golang.org/api/idtoken"
)

type GoogleUser struct {
	Sub     string // Google unique user ID
	Email   string
	Name    string
	Picture string
}

func VerifyGoogleToken(ctx context.Context, token, clientID string) (*GoogleUser, error) {
	payload, err := idtoken.Validate(ctx, token, clientID)
	if err != nil {
		return nil, err
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)
	sub, _ := payload.Claims["sub"].(string)

	return &GoogleUser{
		Sub:     sub,
		Email:   email,
		Name:    name,
		Picture: picture,
	}, nil
}
