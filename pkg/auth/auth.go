// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package auth verifies bearer tokens against the identity provider and
// exposes the verified user through the request context.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/marketplace/pkg/api"
)

// Error is the class of authentication errors.
var Error = errs.Class("auth error")

// Config holds the identity provider settings.
type Config struct {
	URL      string `help:"base URL of the authorization server" default:""`
	Realm    string `help:"authorization realm appended to the issuer URL" default:""`
	ClientID string `help:"OIDC client id tokens must be issued to" default:""`
}

// IssuerURL composes the OIDC issuer from the server URL and realm.
func (c Config) IssuerURL() string {
	issuer := strings.TrimRight(c.URL, "/")
	if c.Realm != "" {
		issuer += "/realms/" + c.Realm
	}
	return issuer
}

// User is the verified identity injected into the request context.
type User struct {
	ID              string
	Username        string
	Email           string
	AuthorizedParty string
	Roles           []string
}

// Verifier checks a raw bearer token and returns the user it identifies.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (User, error)
}

// OpenIDVerifier verifies tokens against the issuer's JWKS, caching the
// signing keys between requests.
type OpenIDVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOpenIDVerifier runs OIDC discovery against the configured issuer.
func NewOpenIDVerifier(ctx context.Context, config Config) (*OpenIDVerifier, error) {
	provider, err := oidc.NewProvider(ctx, config.IssuerURL())
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return &OpenIDVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: config.ClientID}),
	}, nil
}

// Verify checks the token signature, expiry and audience, then extracts the
// marketplace claims.
func (v *OpenIDVerifier) Verify(ctx context.Context, rawToken string) (User, error) {
	token, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return User{}, Error.Wrap(err)
	}

	var claims Claims
	if err := token.Claims(&claims); err != nil {
		return User{}, Error.Wrap(err)
	}

	return User{
		ID:              claims.Subject,
		Username:        claims.PreferredUsername,
		Email:           claims.Email,
		AuthorizedParty: claims.AuthorizedParty,
		Roles:           claims.RealmAccess.Roles,
	}, nil
}

type contextKey int

const userKey contextKey = iota

// WithUser returns a context carrying the user.
func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// FromContext returns the verified user stored in the context.
func FromContext(ctx context.Context) (User, error) {
	user, ok := ctx.Value(userKey).(User)
	if !ok {
		return User{}, Error.New("no user in context")
	}
	return user, nil
}

// HasRole reports whether the context user carries a realm role.
func HasRole(ctx context.Context, role string) bool {
	user, err := FromContext(ctx)
	if err != nil {
		return false
	}
	for _, r := range user.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Middleware rejects requests without a valid bearer token and stores the
// verified user in the request context.
func Middleware(log *zap.Logger, verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				api.ServeError(log, w, r, api.NewError(api.KindUnauthorized, "Missing Authorization header", nil))
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				api.ServeError(log, w, r, api.NewError(api.KindUnauthorized, "Invalid Authorization header format", nil))
				return
			}

			user, err := verifier.Verify(r.Context(), parts[1])
			if err != nil {
				log.Warn("token verification failed", zap.Error(err))
				api.ServeError(log, w, r, api.NewError(api.KindUnauthorized, "Invalid or expired token", err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
