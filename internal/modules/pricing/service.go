// README: Pricing computes tiered fare quotes from a trip distance.
package pricing

import (
	"math"

	"ridewave/internal/types"
)

// Estimate returns the fare for a single rate. The fare is the larger of the
// metered amount and the tier minimum, floored to roundingUnit.
func Estimate(r Rate, distanceKm float64) (int64, error) {
	if math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) || distanceKm < 0 || distanceKm > maxDistanceKm {
		return 0, ErrInvalidDistance
	}
	metered := float64(r.BaseFare) + distanceKm*float64(r.PerKm)
	fare := math.Max(metered, float64(r.MinimumFare))
	return int64(math.Floor(fare/roundingUnit)) * roundingUnit, nil
}

// QuoteFare prices distanceKm for every tier.
func QuoteFare(distanceKm float64) (Quote, error) {
	q := make(Quote, len(defaultRates))
	for _, r := range defaultRates {
		fare, err := Estimate(r, distanceKm)
		if err != nil {
			return nil, err
		}
		q[r.Tier] = fare
	}
	return q, nil
}

// Money converts a tier fare into a types.Money value.
func (q Quote) Money(t Tier, currency string) (types.Money, bool) {
	v, ok := q[t]
	if !ok {
		return types.Money{}, false
	}
	return types.Money{Amount: v, Currency: currency}, true
}
