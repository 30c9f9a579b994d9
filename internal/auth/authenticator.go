package auth

import (
	"errors"
	"strings"
)

var (
	ErrMissingToken  = errors.New("missing authorization header")
	ErrMalformedAuth = errors.New("invalid authorization header format")
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrNotConfigured = errors.New("authentication not configured")
)

// Identity is the caller a bearer token resolved to.
type Identity struct {
	UserID string
	Email  string
	Name   string
	// Source is "oidc" or "legacy".
	Source string
}

// Authenticator resolves bearer tokens. OIDC tokens are tried first when a
// verifier is present; HMAC tokens signed with secret are accepted after that.
type Authenticator struct {
	verifier TokenVerifier
	secret   string
}

func NewAuthenticator(verifier TokenVerifier, secret string) *Authenticator {
	return &Authenticator{verifier: verifier, secret: secret}
}

// Configured reports whether any token could ever be accepted.
func (a *Authenticator) Configured() bool {
	return a.verifier != nil || a.secret != ""
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMalformedAuth
	}
	return strings.TrimSpace(token), nil
}

// Authenticate resolves an Authorization header value to an Identity.
func (a *Authenticator) Authenticate(header string) (*Identity, error) {
	token, err := BearerToken(header)
	if err != nil {
		return nil, err
	}
	return a.Resolve(token)
}

// Resolve validates a raw token.
func (a *Authenticator) Resolve(token string) (*Identity, error) {
	if !a.Configured() {
		return nil, ErrNotConfigured
	}

	if a.verifier != nil {
		if claims, err := a.verifier.Validate(token); err == nil {
			name := claims.Name
			if name == "" {
				name = claims.PreferredUsername
			}
			return &Identity{UserID: claims.UserID, Email: claims.Email, Name: name, Source: "oidc"}, nil
		}
	}

	if a.secret != "" {
		if claims, err := ValidateLegacyToken(token, a.secret); err == nil {
			return &Identity{UserID: claims.UserID, Email: claims.Email, Source: "legacy"}, nil
		}
	}

	return nil, ErrInvalidToken
}
