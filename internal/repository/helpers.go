package repository

import (
	"database/sql"
	"errors"
)

// HandleNotFound turns sql.ErrNoRows into a nil result without error. Lookup
// misses are normal here: an unknown token or session is a business outcome
// the caller classifies, not a store failure.
//
// Usage:
//
//	var token model.AccessToken
//	err := r.db.GetContext(ctx, &token, query, args...)
//	return HandleNotFound(&token, err)
func HandleNotFound[T any](result *T, err error) (*T, error) {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, err
	default:
		return result, nil
	}
}
