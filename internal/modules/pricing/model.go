// README: Fare tier rates for each vehicle type.
package pricing

import "errors"

type Tier string

const (
	TierBike       Tier = "bike"
	TierAuto       Tier = "auto"
	TierCabEconomy Tier = "cabEconomy"
	TierCabPremium Tier = "cabPremium"
)

// Rate is expressed in whole currency units.
type Rate struct {
	Tier        Tier
	BaseFare    int64
	PerKm       int64
	MinimumFare int64
}

// Quote maps each tier to its fare for one distance.
type Quote map[Tier]int64

var ErrInvalidDistance = errors.New("invalid distance")

// roundingUnit is the currency step fares are floored to.
const roundingUnit = 10

// maxDistanceKm bounds a quotable trip; longer inputs are rejected.
const maxDistanceKm = 100_000

var defaultRates = []Rate{
	{Tier: TierBike, BaseFare: 100, PerKm: 150, MinimumFare: 200},
	{Tier: TierAuto, BaseFare: 200, PerKm: 150, MinimumFare: 300},
	{Tier: TierCabEconomy, BaseFare: 200, PerKm: 250, MinimumFare: 400},
	{Tier: TierCabPremium, BaseFare: 200, PerKm: 300, MinimumFare: 500},
}

// Rates returns a copy of the fixed tier table.
func Rates() []Rate {
	out := make([]Rate, len(defaultRates))
	copy(out, defaultRates)
	return out
}

// ValidTier reports whether t names a known tier.
func ValidTier(t Tier) bool {
	for _, r := range defaultRates {
		if r.Tier == t {
			return true
		}
	}
	return false
}
