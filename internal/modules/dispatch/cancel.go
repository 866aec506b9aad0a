// README: Cancellation fan-out to the ride topic, offered captains and the issuer.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"ridewave/internal/gateway"
	"ridewave/internal/metrics"
	"ridewave/internal/modules/ride"
	"ridewave/internal/types"
)

// Cancel resolves rideID as canceled by issuer. Every reachable party gets
// the cancellation once, then the ride record is deleted.
func (s *Service) Cancel(ctx context.Context, issuer *gateway.Conn, rideID types.ID) error {
	if rideID == "" {
		return errCancelIDRequired
	}
	r, err := s.rides.Get(ctx, rideID)
	if err != nil {
		return fmt.Errorf("dispatch cancel %s: %w", rideID, err)
	}

	payload := Canceled{RideID: r.ID, Message: CancelMessage(issuer.Identity().Role)}
	delivered := make(map[gateway.Handle]struct{})

	for _, h := range s.hub.Publish(RideTopic(r.ID), EventRideCanceled, payload) {
		delivered[h] = struct{}{}
	}

	offered, _ := s.detach(r.ID, metrics.OutcomeCanceled)
	for _, h := range offered {
		if _, ok := delivered[h]; ok {
			continue
		}
		if s.hub.SendTo(h, EventRideCanceled, payload) {
			delivered[h] = struct{}{}
		}
	}

	if _, ok := delivered[issuer.Handle()]; !ok {
		issuer.Emit(EventRideCanceled, payload)
	}

	// deletion outlives the issuer connection
	delCtx := context.WithoutCancel(ctx)
	if err := s.rides.Delete(delCtx, r.ID); err != nil && !errors.Is(err, ride.ErrNotFound) {
		s.log.Error().Err(err).Str("ride_id", string(r.ID)).Msg("dispatch_ride_delete_failed")
	}

	s.log.Info().
		Str("ride_id", string(r.ID)).
		Str("user_id", string(issuer.Identity().UserID)).
		Str("role", string(issuer.Identity().Role)).
		Int("notified", len(delivered)).
		Msg("dispatch_ride_canceled")
	return nil
}
