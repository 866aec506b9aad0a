// README: Binds inbound gateway events to presence, zone and dispatch operations.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"ridewave/internal/gateway"
	"ridewave/internal/metrics"
	"ridewave/internal/modules/geo"
	"ridewave/internal/modules/presence"
	"ridewave/internal/modules/ride"
	"ridewave/internal/modules/user"
	"ridewave/internal/modules/zone"
	"ridewave/internal/types"
)

type Events struct {
	hub      *gateway.Hub
	captains *presence.Registry
	zones    *zone.Service
	rides    RideStore
	dispatch *Service
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

func NewEvents(hub *gateway.Hub, captains *presence.Registry, zones *zone.Service, rides RideStore, dispatch *Service, m *metrics.Metrics, log zerolog.Logger) *Events {
	return &Events{
		hub:      hub,
		captains: captains,
		zones:    zones,
		rides:    rides,
		dispatch: dispatch,
		metrics:  m,
		log:      log.With().Str("component", "events").Logger(),
	}
}

func (e *Events) Register(m *gateway.Mux) {
	m.Handle(EventGoOnDuty, e.goOnDuty, user.RoleCaptain)
	m.Handle(EventGoOffDuty, e.goOffDuty, user.RoleCaptain)
	m.Handle(EventUpdateLocation, e.updateLocation, user.RoleCaptain)

	m.Handle(EventSubscribeToZone, e.subscribeToZone, user.RoleCustomer)
	m.Handle(EventSearchCaptain, e.searchCaptain, user.RoleCustomer)
	m.Handle(EventRideAccepted, e.rideAccepted, user.RoleCustomer)

	m.Handle(EventCancelRide, e.cancelRide)
	m.Handle(EventSubscribeToCaptainLocation, e.subscribeToCaptainLocation)
	m.Handle(EventSubscribeRide, e.subscribeRide)

	m.OnClose(e.disconnected)
}

func (e *Events) goOnDuty(_ context.Context, c *gateway.Conn, data json.RawMessage) error {
	loc, err := decodePoint(data)
	if err != nil {
		return err
	}
	id := c.Identity()
	e.captains.SetOnDuty(presence.Captain{
		ID:        id.UserID,
		Handle:    c.Handle(),
		Location:  loc,
		PushToken: id.PushToken,
	})
	e.hub.Join(c, TopicOnDuty)
	e.presenceChanged()
	e.log.Info().Str("captain_id", string(id.UserID)).Msg("captain_on_duty")
	return nil
}

func (e *Events) goOffDuty(_ context.Context, c *gateway.Conn, _ json.RawMessage) error {
	id := c.Identity().UserID
	e.captains.SetOffDuty(id)
	e.hub.Leave(c, TopicOnDuty)
	e.presenceChanged()
	e.log.Info().Str("captain_id", string(id)).Msg("captain_off_duty")
	return nil
}

func (e *Events) updateLocation(_ context.Context, c *gateway.Conn, data json.RawMessage) error {
	loc, err := decodePoint(data)
	if err != nil {
		return err
	}
	id := c.Identity().UserID
	if !e.captains.UpdateLocation(id, loc) {
		return nil
	}
	e.zones.Refresh()
	e.hub.Publish(CaptainTopic(id), EventCaptainLocationUpdate, LocationUpdate{CaptainID: id, Coords: loc})
	return nil
}

func (e *Events) subscribeToZone(_ context.Context, c *gateway.Conn, data json.RawMessage) error {
	loc, err := decodePoint(data)
	if err != nil {
		return err
	}
	return e.zones.Subscribe(c, loc)
}

func (e *Events) searchCaptain(ctx context.Context, c *gateway.Conn, data json.RawMessage) error {
	id, err := decodeID(data)
	if err != nil {
		return err
	}
	if err := e.dispatch.Search(ctx, c, id); err != nil {
		return e.describe(err, "Error searching for captain")
	}
	return nil
}

func (e *Events) rideAccepted(_ context.Context, c *gateway.Conn, data json.RawMessage) error {
	id, err := decodeID(data)
	if err != nil {
		return err
	}
	e.dispatch.Accept(c, id)
	return nil
}

func (e *Events) cancelRide(ctx context.Context, c *gateway.Conn, data json.RawMessage) error {
	id, err := decodeID(data)
	if err != nil {
		return err
	}
	if err := e.dispatch.Cancel(ctx, c, id); err != nil {
		return e.describe(err, "Error canceling ride")
	}
	return nil
}

func (e *Events) subscribeToCaptainLocation(_ context.Context, c *gateway.Conn, data json.RawMessage) error {
	id, err := decodeID(data)
	if err != nil {
		return err
	}
	captain, ok := e.captains.Get(id)
	if !ok {
		return nil
	}
	e.hub.Join(c, CaptainTopic(id))
	c.Emit(EventCaptainLocationUpdate, LocationUpdate{CaptainID: id, Coords: captain.Location})
	return nil
}

func (e *Events) subscribeRide(ctx context.Context, c *gateway.Conn, data json.RawMessage) error {
	id, err := decodeID(data)
	if err != nil {
		return err
	}
	if id == "" {
		return errSearchIDRequired
	}
	e.hub.Join(c, RideTopic(id))
	r, err := e.rides.Get(ctx, id)
	if err != nil {
		return e.describe(err, "Failed to receive data")
	}
	c.Emit(EventRideData, r)
	return nil
}

func (e *Events) disconnected(_ context.Context, c *gateway.Conn) {
	id := c.Identity()
	if id.Role != user.RoleCaptain {
		return
	}
	if e.captains.RemoveConnection(id.UserID, c.Handle()) {
		e.presenceChanged()
		e.log.Info().Str("captain_id", string(id.UserID)).Msg("captain_disconnected")
	}
}

func (e *Events) presenceChanged() {
	e.metrics.SetCaptainsOnDuty(e.captains.Len())
	e.zones.Refresh()
}

// describe turns a domain error into the message sent to the client.
func (e *Events) describe(err error, fallback string) error {
	var ee *eventError
	switch {
	case errors.As(err, &ee):
		return err
	case errors.Is(err, ride.ErrNotFound):
		return &eventError{msg: "Ride not found", err: err}
	case errors.Is(err, ErrSearchActive):
		return &eventError{msg: "A captain search is already running for this ride.", err: err}
	case errors.Is(err, ErrNotRideOwner):
		return &eventError{msg: "You can only search captains for your own ride.", err: err}
	case errors.Is(err, geo.ErrInvalidCoordinate):
		return &eventError{msg: "Invalid pickup location.", err: err}
	default:
		e.log.Error().Err(err).Msg("dispatch_event_failed")
		return &eventError{msg: fallback, err: err}
	}
}

func decodePoint(data json.RawMessage) (types.Point, error) {
	var p types.Point
	if err := json.Unmarshal(data, &p); err != nil {
		return types.Point{}, &eventError{msg: "Invalid coordinates.", err: fmt.Errorf("%w: %v", ErrInvalidPayload, err)}
	}
	if err := geo.Validate(p); err != nil {
		return types.Point{}, &eventError{msg: "Invalid coordinates.", err: err}
	}
	return p, nil
}

// decodeID accepts a JSON string. Missing or null data decodes to "".
func decodeID(data json.RawMessage) (types.ID, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	var id string
	if err := json.Unmarshal(trimmed, &id); err != nil {
		return "", &eventError{msg: "Invalid ride id.", err: fmt.Errorf("%w: %v", ErrInvalidPayload, err)}
	}
	return types.ID(id), nil
}
