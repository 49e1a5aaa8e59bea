// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package listingdb

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ParseUUID converts a canonical UUID string into the pgtype form used by
// the database layer.
func ParseUUID(s string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, Error.Wrap(err)
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

// UUIDString renders a pgtype UUID in canonical dashed form. Invalid
// (null) UUIDs render as the empty string.
func UUIDString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}
