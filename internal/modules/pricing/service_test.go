package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteFare(t *testing.T) {
	tests := []struct {
		name       string
		distanceKm float64
		want       Quote
	}{
		{
			name:       "zero distance returns minimum fares",
			distanceKm: 0,
			want: Quote{
				TierBike:       200,
				TierAuto:       300,
				TierCabEconomy: 400,
				TierCabPremium: 500,
			},
		},
		{
			// bike: 100 + 2*150 = 400; auto: 200 + 300 = 500
			// cabEconomy: 200 + 500 = 700; cabPremium: 200 + 600 = 800
			name:       "2km above every minimum",
			distanceKm: 2,
			want: Quote{
				TierBike:       400,
				TierAuto:       500,
				TierCabEconomy: 700,
				TierCabPremium: 800,
			},
		},
		{
			// bike: 100 + 1.37*150 = 305.5 -> 300
			// cabPremium: 200 + 1.37*300 = 611 -> 610
			name:       "floors to the nearest 10",
			distanceKm: 1.37,
			want: Quote{
				TierBike:       300,
				TierAuto:       400,
				TierCabEconomy: 540,
				TierCabPremium: 610,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QuoteFare(tt.distanceKm)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuoteFare_Monotonic(t *testing.T) {
	prev, err := QuoteFare(0)
	require.NoError(t, err)
	for d := 0.1; d <= 50; d += 0.1 {
		cur, err := QuoteFare(d)
		require.NoError(t, err)
		for tier, fare := range cur {
			assert.GreaterOrEqual(t, fare, prev[tier], "tier %s at %.1fkm", tier, d)
		}
		prev = cur
	}
}

func TestQuoteFare_RejectsInvalidDistance(t *testing.T) {
	for _, d := range []float64{-1, math.NaN(), math.Inf(1), maxDistanceKm + 1, 1e18} {
		_, err := QuoteFare(d)
		assert.ErrorIs(t, err, ErrInvalidDistance)
	}
}

func TestQuoteFare_AcceptsUpperBound(t *testing.T) {
	q, err := QuoteFare(maxDistanceKm)
	require.NoError(t, err)
	// cabPremium: 200 + 100000*300
	assert.Equal(t, int64(30_000_200), q[TierCabPremium])
}

func TestQuoteMoney(t *testing.T) {
	q, err := QuoteFare(0)
	require.NoError(t, err)

	m, ok := q.Money(TierAuto, "USD")
	require.True(t, ok)
	assert.Equal(t, int64(300), m.Amount)
	assert.Equal(t, "USD", m.Currency)

	_, ok = q.Money(Tier("rocket"), "USD")
	assert.False(t, ok)
}
