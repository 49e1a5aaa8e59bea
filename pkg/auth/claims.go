// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the subset of the identity token this service reads. The
// subject is the stable user id; azp identifies the client the token was
// issued to.
type Claims struct {
	jwt.RegisteredClaims

	Email             string `json:"email"`
	EmailVerified     bool   `json:"email_verified"`
	PreferredUsername string `json:"preferred_username"`
	AuthorizedParty   string `json:"azp"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}
