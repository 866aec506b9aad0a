// README: Ride store backed by PostgreSQL.
package ride

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ridewave/internal/types"
)

// Repository is the ride record store as used by the service and the
// dispatch engine.
type Repository interface {
	Create(ctx context.Context, r *Ride) error
	Get(ctx context.Context, id types.ID) (*Ride, error)
	Delete(ctx context.Context, id types.ID) error
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, r *Ride) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO rides (
			id, customer_id, captain_id, vehicle, status,
			pickup_address, pickup_lat, pickup_lng,
			drop_address, drop_lat, drop_lng,
			distance_km, fare_amount, fare_currency, otp, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11,
			$12, $13, $14, $15, $16
		)`,
		string(r.ID),
		string(r.CustomerID),
		toStringPtr(r.CaptainID),
		string(r.Vehicle),
		string(r.Status),
		r.Pickup.Address, r.Pickup.Lat, r.Pickup.Lng,
		r.Drop.Address, r.Drop.Lat, r.Drop.Lng,
		r.DistanceKm,
		r.Fare.Amount,
		r.Fare.Currency,
		r.OTP,
		r.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Ride, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, customer_id, captain_id, vehicle, status,
		       pickup_address, pickup_lat, pickup_lng,
		       drop_address, drop_lat, drop_lng,
		       distance_km, fare_amount, fare_currency, otp, created_at
		FROM rides
		WHERE id = $1`, string(id),
	)

	var r Ride
	var captainID *string
	err := row.Scan(
		&r.ID, &r.CustomerID, &captainID, &r.Vehicle, &r.Status,
		&r.Pickup.Address, &r.Pickup.Lat, &r.Pickup.Lng,
		&r.Drop.Address, &r.Drop.Lat, &r.Drop.Lng,
		&r.DistanceKm, &r.Fare.Amount, &r.Fare.Currency, &r.OTP, &r.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if captainID != nil {
		c := types.ID(*captainID)
		r.CaptainID = &c
	}
	return &r, nil
}

func (s *Store) Delete(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM rides WHERE id = $1`, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
