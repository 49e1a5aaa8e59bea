// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package indexer

import (
	"github.com/jackc/pgx/v5/pgtype"

	"storj.io/marketplace/pkg/listingdb"
)

// Null-safe conversions: nullable columns become present-or-absent document
// fields rather than zero values.

func int4Ptr(i pgtype.Int4) *int64 {
	if !i.Valid {
		return nil
	}
	val := int64(i.Int32)
	return &val
}

func int8Ptr(i pgtype.Int8) *int64 {
	if !i.Valid {
		return nil
	}
	return &i.Int64
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func uuidPtr(id pgtype.UUID) *string {
	if !id.Valid {
		return nil
	}
	s := listingdb.UUIDString(id)
	return &s
}

func unixPtr(t pgtype.Timestamptz) *int64 {
	if !t.Valid {
		return nil
	}
	unix := t.Time.Unix()
	return &unix
}
