package repository

import (
	"database/sql"
	"errors"
)

// HandleNotFound turns sql.ErrNoRows into a nil result so Find* lookups can
// report an absent row without an error:
//
//	var user model.DirectoryUser
//	err := r.db.GetContext(ctx, &user, query, id)
//	return HandleNotFound(&user, err)
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
