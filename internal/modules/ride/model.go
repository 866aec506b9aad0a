// README: Ride aggregate as stored by the ride record store.
package ride

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"ridewave/internal/modules/pricing"
	"ridewave/internal/types"
)

type Status string

const (
	StatusSearching Status = "searching_for_captain"
	StatusAccepted  Status = "accepted"
	StatusArrived   Status = "arrived"
	StatusCompleted Status = "completed"
)

// Place is a coordinate with the address the customer picked.
type Place struct {
	Address string `json:"address"`
	types.Point
}

type Ride struct {
	ID         types.ID     `json:"id"`
	CustomerID types.ID     `json:"customer"`
	CaptainID  *types.ID    `json:"captain"`
	Pickup     Place        `json:"pickup"`
	Drop       Place        `json:"drop"`
	Vehicle    pricing.Tier `json:"vehicle"`
	DistanceKm float64      `json:"distance"`
	Fare       types.Money  `json:"fare"`
	Status     Status       `json:"status"`
	OTP        string       `json:"otp"`
	CreatedAt  time.Time    `json:"createdAt"`
}

var (
	ErrNotFound   = errors.New("ride not found")
	ErrBadRequest = errors.New("bad request")
)

// NewOTP returns a 4-digit pickup code.
func NewOTP() string {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "1000"
	}
	return fmt.Sprintf("%04d", 1000+n.Int64())
}
