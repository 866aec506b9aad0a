package ride

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridewave/internal/modules/pricing"
	"ridewave/internal/types"
)

type memRepo struct {
	mu    sync.Mutex
	rides map[types.ID]*Ride
}

func newMemRepo() *memRepo { return &memRepo{rides: make(map[types.ID]*Ride)} }

func (m *memRepo) Create(_ context.Context, r *Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.rides[r.ID] = &cp
	return nil
}

func (m *memRepo) Get(_ context.Context, id types.ID) (*Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) Delete(_ context.Context, id types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[id]; !ok {
		return ErrNotFound
	}
	delete(m.rides, id)
	return nil
}

type fixedDistance struct {
	km  float64
	err error
}

func (f fixedDistance) DistanceKm(context.Context, types.Point, types.Point) (float64, error) {
	return f.km, f.err
}

func TestCreate_PricesAndStores(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, fixedDistance{km: 2}, "USD", zerolog.Nop())

	r, err := svc.Create(context.Background(), CreateCommand{
		CustomerID: "cust1",
		Pickup:     Place{Address: "A", Point: types.Point{Lat: 0, Lng: 0}},
		Drop:       Place{Address: "B", Point: types.Point{Lat: 0, Lng: 0.02}},
		Vehicle:    pricing.TierAuto,
	})
	require.NoError(t, err)

	assert.Equal(t, types.Money{Amount: 500, Currency: "USD"}, r.Fare)
	assert.Equal(t, StatusSearching, r.Status)
	assert.Len(t, r.OTP, 4)
	assert.Nil(t, r.CaptainID)

	stored, err := svc.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, stored.ID)
}

func TestCreate_RejectsUnknownTier(t *testing.T) {
	svc := NewService(newMemRepo(), nil, "USD", zerolog.Nop())
	_, err := svc.Create(context.Background(), CreateCommand{
		CustomerID: "cust1",
		Vehicle:    pricing.Tier("hovercraft"),
	})
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestQuote_FallsBackToStraightLine(t *testing.T) {
	svc := NewService(newMemRepo(), fixedDistance{err: errors.New("maps down")}, "USD", zerolog.Nop())

	q, err := svc.Quote(context.Background(), types.Point{Lat: 0, Lng: 0}, types.Point{Lat: 0, Lng: 0.05})
	require.NoError(t, err)
	assert.InDelta(t, 5.56, q.DistanceKm, 0.01)
	assert.Equal(t, "USD", q.Currency)
	assert.Len(t, q.Fares, 4)
}

func TestGet_NotFound(t *testing.T) {
	svc := NewService(newMemRepo(), nil, "USD", zerolog.Nop())
	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(context.Background(), "")
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestNewOTP(t *testing.T) {
	for i := 0; i < 100; i++ {
		otp := NewOTP()
		require.Len(t, otp, 4)
		assert.GreaterOrEqual(t, otp, "1000")
		assert.LessOrEqual(t, otp, "9999")
	}
}
