package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/auth247/pin-server-go/internal/model"
)

// UserRepository resolves user identities from the directory.
type UserRepository interface {
	// FindByID returns nil, nil when the user does not exist or is disabled.
	FindByID(ctx context.Context, id string) (*model.DirectoryUser, error)
}

type userRepo struct {
	db sqlxDB
}

// sqlxDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sqlxDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*model.DirectoryUser, error) {
	var user model.DirectoryUser
	err := r.db.GetContext(ctx, &user, `
		SELECT id, email, display_name, disabled_at FROM users
		WHERE id = $1 AND disabled_at IS NULL
	`, id)
	return HandleNotFound(&user, err)
}
