// README: User store backed by PostgreSQL.
package user

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ridewave/internal/types"
)

// Directory resolves a user by id.
type Directory interface {
	Lookup(ctx context.Context, id types.ID) (User, error)
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Lookup(ctx context.Context, id types.ID) (User, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, phone, role, COALESCE(push_token, '')
		FROM users
		WHERE id = $1`, string(id),
	)
	var u User
	err := row.Scan(&u.ID, &u.Phone, &u.Role, &u.PushToken)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}
