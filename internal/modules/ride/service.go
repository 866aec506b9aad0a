// README: Ride service creates priced rides and reads them back.
package ride

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ridewave/internal/modules/geo"
	"ridewave/internal/modules/pricing"
	"ridewave/internal/types"
)

// DistanceEstimator returns the trip distance in kilometres.
type DistanceEstimator interface {
	DistanceKm(ctx context.Context, from, to types.Point) (float64, error)
}

// StraightLine estimates trip distance with the haversine formula.
type StraightLine struct{}

func (StraightLine) DistanceKm(_ context.Context, from, to types.Point) (float64, error) {
	return geo.DistanceKm(from, to)
}

type Service struct {
	store    Repository
	distance DistanceEstimator
	currency string
	log      zerolog.Logger
}

func NewService(store Repository, distance DistanceEstimator, currency string, log zerolog.Logger) *Service {
	if distance == nil {
		distance = StraightLine{}
	}
	return &Service{
		store:    store,
		distance: distance,
		currency: currency,
		log:      log.With().Str("component", "ride").Logger(),
	}
}

type CreateCommand struct {
	CustomerID types.ID
	Pickup     Place
	Drop       Place
	Vehicle    pricing.Tier
}

type QuoteResult struct {
	DistanceKm float64       `json:"distance"`
	Fares      pricing.Quote `json:"fares"`
	Currency   string        `json:"currency"`
}

// Quote prices a trip for every tier. A failing road-distance lookup falls
// back to the straight-line distance.
func (s *Service) Quote(ctx context.Context, from, to types.Point) (QuoteResult, error) {
	if err := geo.Validate(from); err != nil {
		return QuoteResult{}, err
	}
	if err := geo.Validate(to); err != nil {
		return QuoteResult{}, err
	}
	d, err := s.distance.DistanceKm(ctx, from, to)
	if err != nil {
		s.log.Warn().Err(err).Msg("distance_estimate_fail")
		if d, err = geo.DistanceKm(from, to); err != nil {
			return QuoteResult{}, err
		}
	}
	fares, err := pricing.QuoteFare(d)
	if err != nil {
		return QuoteResult{}, err
	}
	return QuoteResult{DistanceKm: d, Fares: fares, Currency: s.currency}, nil
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Ride, error) {
	if cmd.CustomerID == "" || !pricing.ValidTier(cmd.Vehicle) {
		return nil, ErrBadRequest
	}
	q, err := s.Quote(ctx, cmd.Pickup.Point, cmd.Drop.Point)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	fare, _ := q.Fares.Money(cmd.Vehicle, s.currency)

	r := &Ride{
		ID:         types.ID(uuid.NewString()),
		CustomerID: cmd.CustomerID,
		Pickup:     cmd.Pickup,
		Drop:       cmd.Drop,
		Vehicle:    cmd.Vehicle,
		DistanceKm: q.DistanceKm,
		Fare:       fare,
		Status:     StatusSearching,
		OTP:        NewOTP(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	s.log.Info().Str("ride_id", string(r.ID)).Str("customer_id", string(r.CustomerID)).Msg("ride_created")
	return r, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Ride, error) {
	if id == "" {
		return nil, ErrBadRequest
	}
	r, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get ride %s: %w", id, err)
	}
	return r, nil
}

func (s *Service) Delete(ctx context.Context, id types.ID) error {
	return s.store.Delete(ctx, id)
}
