// README: Ride handlers for quote/create/get.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridewave/internal/http/middleware"
	"ridewave/internal/modules/pricing"
	"ridewave/internal/modules/ride"
	"ridewave/internal/types"
)

// RideService is what the ride handlers need from ride.Service.
type RideService interface {
	Quote(ctx context.Context, from, to types.Point) (ride.QuoteResult, error)
	Create(ctx context.Context, cmd ride.CreateCommand) (*ride.Ride, error)
	Get(ctx context.Context, id types.ID) (*ride.Ride, error)
}

type RideHandler struct {
	rides RideService
}

func NewRideHandler(svc RideService) *RideHandler {
	return &RideHandler{rides: svc}
}

type quoteReq struct {
	Pickup *types.Point `json:"pickup"`
	Drop   *types.Point `json:"drop"`
}

func (h *RideHandler) Quote(c *gin.Context) {
	var req quoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Pickup == nil || req.Drop == nil {
		writeError(c, http.StatusBadRequest, "pickup and drop are required")
		return
	}
	q, err := h.rides.Quote(c.Request.Context(), *req.Pickup, *req.Drop)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, q)
}

type createRideReq struct {
	Vehicle string      `json:"vehicle"`
	Pickup  *ride.Place `json:"pickup"`
	Drop    *ride.Place `json:"drop"`
}

func (h *RideHandler) Create(c *gin.Context) {
	var req createRideReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Pickup == nil || req.Drop == nil || req.Vehicle == "" {
		writeError(c, http.StatusBadRequest, "missing fields")
		return
	}
	if !pricing.ValidTier(pricing.Tier(req.Vehicle)) {
		writeError(c, http.StatusBadRequest, "unknown vehicle")
		return
	}
	r, err := h.rides.Create(c.Request.Context(), ride.CreateCommand{
		CustomerID: middleware.CallerUID(c),
		Pickup:     *req.Pickup,
		Drop:       *req.Drop,
		Vehicle:    pricing.Tier(req.Vehicle),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"ride": r})
}

func (h *RideHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid ride id")
		return
	}
	r, err := h.rides.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"ride": r})
}
