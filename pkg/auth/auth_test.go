// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/errs"
	"go.uber.org/zap/zaptest"

	"storj.io/marketplace/pkg/auth"
)

type fakeVerifier struct {
	user User
	err  error
}

type User = auth.User

func (f fakeVerifier) Verify(ctx context.Context, rawToken string) (auth.User, error) {
	if f.err != nil {
		return auth.User{}, f.err
	}
	return f.user, nil
}

func TestMiddleware_InjectsUser(t *testing.T) {
	log := zaptest.NewLogger(t)
	verifier := fakeVerifier{user: auth.User{
		ID:              "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11",
		Username:        "maker",
		Email:           "maker@example.com",
		AuthorizedParty: "frontend",
		Roles:           []string{"seller"},
	}}

	var got auth.User
	handler := auth.Middleware(log, verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := auth.FromContext(r.Context())
		require.NoError(t, err)
		got = user
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/listings", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11", got.ID)
	assert.Equal(t, "frontend", got.AuthorizedParty)
	assert.True(t, auth.HasRole(auth.WithUser(context.Background(), got), "seller"))
	assert.False(t, auth.HasRole(auth.WithUser(context.Background(), got), "admin"))
}

func TestMiddleware_RejectsMissingAndMalformedHeader(t *testing.T) {
	log := zaptest.NewLogger(t)
	handler := auth.Middleware(log, fakeVerifier{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	for _, header := range []string{"", "Token abc", "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/listings", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)

		var envelope map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.Equal(t, "UNAUTHORIZED", envelope["error_code"])
	}
}

func TestMiddleware_RejectsInvalidToken(t *testing.T) {
	log := zaptest.NewLogger(t)
	handler := auth.Middleware(log, fakeVerifier{err: errs.New("token expired")})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run")
		}))

	req := httptest.NewRequest(http.MethodGet, "/listings", nil)
	req.Header.Set("Authorization", "Bearer expired")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIssuerURL(t *testing.T) {
	config := auth.Config{URL: "https://id.example.com/", Realm: "marketplace"}
	assert.Equal(t, "https://id.example.com/realms/marketplace", config.IssuerURL())

	config = auth.Config{URL: "https://id.example.com/realms/marketplace"}
	assert.Equal(t, "https://id.example.com/realms/marketplace", config.IssuerURL())
}
