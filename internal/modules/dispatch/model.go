// README: Dispatch model: search config, candidates, per-ride state and errors.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ridewave/internal/gateway"
	"ridewave/internal/modules/ride"
	"ridewave/internal/modules/user"
	"ridewave/internal/types"
)

// Outbound events.
const (
	EventNearbyCaptains        = "nearbyCaptains"
	EventRideOffer             = "rideOffer"
	EventRideCanceled          = "rideCanceled"
	EventRideData              = "rideData"
	EventCaptainLocationUpdate = "captainLocationUpdate"
)

// Inbound events.
const (
	EventGoOnDuty                   = "goOnDuty"
	EventGoOffDuty                  = "goOffDuty"
	EventUpdateLocation             = "updateLocation"
	EventSubscribeToZone            = "subscribeToZone"
	EventSearchCaptain              = "searchCaptain"
	EventRideAccepted               = "rideAccepted"
	EventCancelRide                 = "cancelRide"
	EventSubscribeToCaptainLocation = "subscribeToCaptainLocation"
	EventSubscribeRide              = "subscribeRide"
)

const (
	TopicOnDuty = "onDuty"

	ExhaustedMessage = "No captains found for your ride within 5 minutes."

	pushTitle = "Ride request"
	pushBody  = "Someone needs a ride, maybe it's for you"
)

var (
	ErrInvalidPayload = errors.New("invalid payload")
	ErrSearchActive   = errors.New("search already active for ride")
	ErrNoCaptains     = errors.New("no captains found")
	ErrNotRideOwner   = errors.New("ride belongs to another customer")
)

// eventError carries the text shown to the client while keeping the cause.
type eventError struct {
	msg string
	err error
}

func (e *eventError) Error() string { return e.msg }
func (e *eventError) Unwrap() error { return e.err }

var (
	errSearchIDRequired = &eventError{msg: "Ride ID is required.", err: ErrInvalidPayload}
	errCancelIDRequired = &eventError{msg: "Ride ID is required for cancellation.", err: ErrInvalidPayload}
)

func RideTopic(id types.ID) string    { return fmt.Sprintf("ride_%s", id) }
func CaptainTopic(id types.ID) string { return fmt.Sprintf("captain_%s", id) }

// CancelMessage is the text every party receives when issuer cancels.
func CancelMessage(issuer user.Role) string {
	if issuer == user.RoleCustomer {
		return "The ride was canceled by the customer."
	}
	return "The ride was canceled by the captain."
}

type Config struct {
	TickInterval   time.Duration
	MaxRetries     int
	PickupRadiusKm float64
	// OfferHold keeps offers alive after the retry ceiling when captains
	// were found but nobody accepted. Zero purges at once.
	OfferHold time.Duration
}

func DefaultConfig() Config {
	return Config{
		TickInterval:   10 * time.Second,
		MaxRetries:     20,
		PickupRadiusKm: 6,
		OfferHold:      2 * time.Minute,
	}
}

// Candidate is one eligible captain as sent to the customer each tick.
// Distance is in meters from the pickup point.
type Candidate struct {
	ID        types.ID       `json:"id"`
	Coords    types.Point    `json:"coords"`
	PushToken string         `json:"firebasePushToken,omitempty"`
	Distance  float64        `json:"distance"`
	Handle    gateway.Handle `json:"-"`
}

// Canceled is the rideCanceled payload.
type Canceled struct {
	RideID  types.ID `json:"rideId"`
	Message string   `json:"message"`
}

// LocationUpdate is the captainLocationUpdate payload.
type LocationUpdate struct {
	CaptainID types.ID    `json:"captainId"`
	Coords    types.Point `json:"coords"`
}

// RideStore is the slice of the ride service dispatch depends on.
type RideStore interface {
	Get(ctx context.Context, id types.ID) (*ride.Ride, error)
	Delete(ctx context.Context, id types.ID) error
}

// rideState tracks one ride from its first search until its terminal
// resolution. Lock order: Service.mu before rideState.mu, never the reverse.
type rideState struct {
	mu sync.Mutex

	id         types.ID
	customerID types.ID
	customer   gateway.Handle

	offered  map[gateway.Handle]struct{}
	notified bool

	// loop is non-nil while a search task runs for this ride.
	loop   *search
	closed bool
	hold   *time.Timer
}

// search is one run of the dispatch loop. outcome is guarded by the
// owning rideState's mutex.
type search struct {
	cancel  context.CancelFunc
	outcome string
}

func newRideState(id types.ID) *rideState {
	return &rideState{id: id, offered: make(map[gateway.Handle]struct{})}
}
