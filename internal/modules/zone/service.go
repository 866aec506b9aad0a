// README: Customer zone views: captains within the zone radius of a stored location.
package zone

import (
	"github.com/rs/zerolog"

	"ridewave/internal/gateway"
	"ridewave/internal/modules/geo"
	"ridewave/internal/modules/presence"
	"ridewave/internal/modules/user"
	"ridewave/internal/types"
)

// EventNearbyCaptains carries the nearby list to a customer.
const EventNearbyCaptains = "nearbyCaptains"

// DefaultRadiusKm is the zone view radius.
const DefaultRadiusKm = 60.0

// Nearby is one entry of a zone view.
type Nearby struct {
	ID        types.ID    `json:"id"`
	Coords    types.Point `json:"coords"`
	PushToken string      `json:"firebasePushToken,omitempty"`
}

type Service struct {
	hub      *gateway.Hub
	captains *presence.Registry
	radiusM  float64
	log      zerolog.Logger
}

func NewService(hub *gateway.Hub, captains *presence.Registry, radiusKm float64, log zerolog.Logger) *Service {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	return &Service{
		hub:      hub,
		captains: captains,
		radiusM:  radiusKm * 1000,
		log:      log.With().Str("component", "zone").Logger(),
	}
}

// Subscribe stores loc on c and sends the current view once.
func (s *Service) Subscribe(c *gateway.Conn, loc types.Point) error {
	if err := geo.Validate(loc); err != nil {
		return err
	}
	c.SetLocation(loc)
	c.Emit(EventNearbyCaptains, s.Nearby(loc))
	return nil
}

// Nearby lists on-duty captains within the zone radius of loc.
func (s *Service) Nearby(loc types.Point) []Nearby {
	out := make([]Nearby, 0)
	for _, c := range s.captains.All() {
		if !geo.WithinRadius(loc, c.Location, s.radiusM) {
			continue
		}
		out = append(out, Nearby{ID: c.ID, Coords: c.Location, PushToken: c.PushToken})
	}
	return out
}

// Refresh resends the view to every customer connection with a stored location.
func (s *Service) Refresh() {
	sent := 0
	for _, c := range s.hub.Connections() {
		if c.Identity().Role != user.RoleCustomer {
			continue
		}
		loc, ok := c.Location()
		if !ok {
			continue
		}
		if c.Emit(EventNearbyCaptains, s.Nearby(loc)) {
			sent++
		}
	}
	s.log.Debug().Int("customers", sent).Msg("zone_refreshed")
}
