// README: Dispatch loop: one cancellable task per ride that offers it to nearby captains.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ridewave/internal/gateway"
	"ridewave/internal/metrics"
	"ridewave/internal/modules/geo"
	"ridewave/internal/modules/notify"
	"ridewave/internal/modules/presence"
	"ridewave/internal/modules/ride"
	"ridewave/internal/types"
)

const pushTimeout = 10 * time.Second

// canceledTTL is how long a canceled ride id keeps blocking new searches
// whose ride lookup was already in flight.
const canceledTTL = time.Minute

type Service struct {
	cfg      Config
	rides    RideStore
	hub      *gateway.Hub
	captains *presence.Registry
	push     notify.Sender
	metrics  *metrics.Metrics
	log      zerolog.Logger

	mu       sync.Mutex
	states   map[types.ID]*rideState
	canceled map[types.ID]struct{}

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

func NewService(cfg Config, rides RideStore, hub *gateway.Hub, captains *presence.Registry, push notify.Sender, m *metrics.Metrics, log zerolog.Logger) *Service {
	def := DefaultConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.PickupRadiusKm <= 0 {
		cfg.PickupRadiusKm = def.PickupRadiusKm
	}
	if cfg.OfferHold < 0 {
		cfg.OfferHold = 0
	}
	base, stop := context.WithCancel(context.Background())
	return &Service{
		cfg:      cfg,
		rides:    rides,
		hub:      hub,
		captains: captains,
		push:     push,
		metrics:  m,
		log:      log.With().Str("component", "dispatch").Logger(),
		states:   make(map[types.ID]*rideState),
		canceled: make(map[types.ID]struct{}),
		base:     base,
		stop:     stop,
	}
}

// Search starts the dispatch loop for rideID on behalf of customer. The
// first tick fires one interval after the call.
func (s *Service) Search(ctx context.Context, customer *gateway.Conn, rideID types.ID) error {
	if rideID == "" {
		return errSearchIDRequired
	}
	r, err := s.rides.Get(ctx, rideID)
	if err != nil {
		return fmt.Errorf("dispatch search %s: %w", rideID, err)
	}
	if err := geo.Validate(r.Pickup.Point); err != nil {
		return fmt.Errorf("dispatch search %s pickup: %w", rideID, err)
	}
	if r.CustomerID != customer.Identity().UserID {
		return fmt.Errorf("dispatch search %s: %w", rideID, ErrNotRideOwner)
	}
	if s.base.Err() != nil {
		return fmt.Errorf("dispatch search %s: %w", rideID, context.Canceled)
	}

	s.mu.Lock()
	if _, gone := s.canceled[rideID]; gone {
		s.mu.Unlock()
		return fmt.Errorf("dispatch search %s: %w", rideID, ride.ErrNotFound)
	}
	st, ok := s.states[rideID]
	if !ok {
		st = newRideState(rideID)
		s.states[rideID] = st
	}
	st.mu.Lock()
	if st.loop != nil {
		st.mu.Unlock()
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSearchActive, rideID)
	}
	if st.hold != nil {
		st.hold.Stop()
		st.hold = nil
	}
	loopCtx, cancel := context.WithCancel(s.base)
	sr := &search{cancel: cancel}
	st.loop = sr
	st.customer = customer.Handle()
	st.customerID = customer.Identity().UserID
	st.mu.Unlock()
	s.mu.Unlock()

	s.metrics.SearchStarted()
	s.log.Info().Str("ride_id", string(rideID)).Str("customer_id", string(st.customerID)).Msg("dispatch_search_started")

	s.wg.Add(1)
	go s.run(loopCtx, st, sr, r, customer)
	return nil
}

func (s *Service) run(ctx context.Context, st *rideState, sr *search, r *ride.Ride, customer *gateway.Conn) {
	defer s.wg.Done()
	defer func() {
		st.mu.Lock()
		outcome := sr.outcome
		st.mu.Unlock()
		s.metrics.SearchFinished(outcome)
	}()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for tick := 1; ; tick++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		eligible := s.Eligible(r.Pickup.Point)
		if !s.tick(ctx, st, r, customer, eligible) {
			return
		}
		s.log.Debug().Str("ride_id", string(r.ID)).Int("tick", tick).Int("eligible", len(eligible)).Msg("dispatch_tick")

		if tick >= s.cfg.MaxRetries {
			s.ceiling(st, sr, r, customer, eligible)
			return
		}
	}
}

// tick applies one round of eligible captains. It reports false once the
// ride has been resolved elsewhere.
func (s *Service) tick(ctx context.Context, st *rideState, r *ride.Ride, customer *gateway.Conn, eligible []Candidate) bool {
	st.mu.Lock()
	if st.closed || ctx.Err() != nil {
		st.mu.Unlock()
		return false
	}
	var tokens []string
	if len(eligible) > 0 && !st.notified {
		st.notified = true
		for _, c := range eligible {
			if c.PushToken != "" {
				tokens = append(tokens, c.PushToken)
			}
		}
	}
	// offers are sent under st.mu; Cancel detaches exactly this set
	sent := 0
	for _, c := range eligible {
		if _, seen := st.offered[c.Handle]; seen {
			continue
		}
		st.offered[c.Handle] = struct{}{}
		if s.hub.SendTo(c.Handle, EventRideOffer, r) {
			sent++
			s.log.Info().Str("ride_id", string(r.ID)).Str("captain_id", string(c.ID)).Float64("distance_m", c.Distance).Msg("dispatch_offer_sent")
		}
	}
	st.mu.Unlock()

	if len(tokens) > 0 {
		s.sendPush(r.ID, tokens)
	}
	s.metrics.OffersSent(sent)

	customer.Emit(EventNearbyCaptains, eligible)
	return true
}

// ceiling ends a search that ran out of retries.
func (s *Service) ceiling(st *rideState, sr *search, r *ride.Ride, customer *gateway.Conn, eligible []Candidate) {
	if len(eligible) == 0 {
		if !s.release(st, metrics.OutcomeExhausted) {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := s.rides.Delete(ctx, r.ID); err != nil && !errors.Is(err, ride.ErrNotFound) {
			s.log.Error().Err(err).Str("ride_id", string(r.ID)).Msg("dispatch_ride_delete_failed")
		}
		customer.EmitError(ExhaustedMessage)
		s.log.Info().Err(ErrNoCaptains).Str("ride_id", string(r.ID)).Msg("dispatch_exhausted")
		return
	}

	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return
	}
	sr.outcome = metrics.OutcomeExpired
	st.loop = nil
	if s.cfg.OfferHold > 0 {
		st.hold = time.AfterFunc(s.cfg.OfferHold, func() { s.expire(st) })
	}
	st.mu.Unlock()
	s.log.Info().Str("ride_id", string(r.ID)).Int("offered", len(eligible)).Dur("hold", s.cfg.OfferHold).Msg("dispatch_offers_held")
	if s.cfg.OfferHold == 0 {
		s.expire(st)
	}
}

// expire purges a held ride whose offers went unanswered.
func (s *Service) expire(st *rideState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.states[st.id] != st {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.loop != nil || st.closed {
		return
	}
	delete(s.states, st.id)
	st.closed = true
	st.offered = nil
	st.notified = false
	st.hold = nil
	s.log.Debug().Str("ride_id", string(st.id)).Msg("dispatch_offers_expired")
}

// release removes st from the service and halts its loop. It reports
// false when st was already released.
func (s *Service) release(st *rideState, outcome string) bool {
	s.mu.Lock()
	if s.states[st.id] != st {
		s.mu.Unlock()
		return false
	}
	delete(s.states, st.id)
	s.mu.Unlock()
	s.closeState(st, outcome)
	return true
}

// detach removes the state for id and returns the handles that were offered
// the ride. The id stays blocked for canceledTTL so a search that looked the
// ride up before the cancel cannot restart it.
func (s *Service) detach(id types.ID, outcome string) ([]gateway.Handle, bool) {
	s.mu.Lock()
	st, ok := s.states[id]
	if ok {
		delete(s.states, id)
	}
	s.canceled[id] = struct{}{}
	s.mu.Unlock()
	time.AfterFunc(canceledTTL, func() { s.forget(id) })
	if !ok {
		return nil, false
	}
	return s.closeState(st, outcome), true
}

func (s *Service) forget(id types.ID) {
	s.mu.Lock()
	delete(s.canceled, id)
	s.mu.Unlock()
}

func (s *Service) closeState(st *rideState, outcome string) []gateway.Handle {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return nil
	}
	st.closed = true
	handles := make([]gateway.Handle, 0, len(st.offered))
	for h := range st.offered {
		handles = append(handles, h)
	}
	st.offered = nil
	st.notified = false
	if st.hold != nil {
		st.hold.Stop()
		st.hold = nil
	}
	if st.loop != nil {
		st.loop.outcome = outcome
		st.loop.cancel()
		st.loop = nil
	}
	return handles
}

// Accept halts the caller's search for rideID, or every search the caller
// owns when rideID is empty.
func (s *Service) Accept(c *gateway.Conn, rideID types.ID) int {
	owner := c.Identity().UserID
	s.mu.Lock()
	var ids []types.ID
	if rideID != "" {
		ids = append(ids, rideID)
	} else {
		for id, st := range s.states {
			st.mu.Lock()
			if st.customer == c.Handle() && st.loop != nil {
				ids = append(ids, id)
			}
			st.mu.Unlock()
		}
	}
	targets := make([]*rideState, 0, len(ids))
	for _, id := range ids {
		st, ok := s.states[id]
		if !ok {
			continue
		}
		st.mu.Lock()
		mine := st.customerID == owner
		st.mu.Unlock()
		if mine {
			targets = append(targets, st)
		}
	}
	s.mu.Unlock()

	halted := 0
	for _, st := range targets {
		if s.release(st, metrics.OutcomeAccepted) {
			halted++
			s.log.Info().Str("ride_id", string(st.id)).Msg("dispatch_accepted")
		}
	}
	return halted
}

// Eligible lists on-duty captains within the pickup radius, nearest first
// with ties broken by captain id.
func (s *Service) Eligible(pickup types.Point) []Candidate {
	limit := s.cfg.PickupRadiusKm * 1000
	out := make([]Candidate, 0)
	for _, c := range s.captains.All() {
		km, err := geo.DistanceKm(pickup, c.Location)
		if err != nil {
			continue
		}
		m := km * 1000
		if m > limit {
			continue
		}
		out = append(out, Candidate{
			ID:        c.ID,
			Coords:    c.Location,
			PushToken: c.PushToken,
			Distance:  m,
			Handle:    c.Handle,
		})
	}
	geo.SortByDistance(out,
		func(c Candidate) float64 { return c.Distance },
		func(c Candidate) string { return string(c.ID) })
	return out
}

func (s *Service) sendPush(rideID types.ID, tokens []string) {
	s.metrics.PushBurst()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		report, err := s.push.Send(ctx, notify.Message{Title: pushTitle, Body: pushBody, Tokens: tokens})
		if err != nil {
			s.log.Warn().Err(err).Str("ride_id", string(rideID)).Msg("dispatch_push_failed")
			return
		}
		s.log.Info().
			Str("ride_id", string(rideID)).
			Int("success", report.SuccessCount).
			Int("failure", report.FailureCount).
			Msg("dispatch_push_sent")
	}()
}

// Shutdown halts every loop and waits for loops and pending pushes.
func (s *Service) Shutdown(ctx context.Context) error {
	s.stop()
	s.mu.Lock()
	for id, st := range s.states {
		st.mu.Lock()
		if st.hold != nil {
			st.hold.Stop()
			st.hold = nil
		}
		st.mu.Unlock()
		delete(s.states, id)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
