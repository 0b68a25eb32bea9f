package handlers

import (
	"errors"
	"net/http"
	"strconv"

	pgrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/postgres"
	ratesvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/rate"
	ticketsvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/tickets"
	"github.com/dasilvacsv/jadRifas-sub000/internal/transport/http/dto"
	httperrors "github.com/dasilvacsv/jadRifas-sub000/internal/transport/http/errors"
)

type ReservationHandler struct {
	tickets *ticketsvc.Service
	limiter *ratesvc.Limiter
}

func NewReservationHandler(tickets *ticketsvc.Service, limiter *ratesvc.Limiter) *ReservationHandler {
	return &ReservationHandler{tickets: tickets, limiter: limiter}
}

// Reserve grants time-boxed holds on a raffle's pool. Throttled per
// caller IP; chi's RealIP middleware has already resolved RemoteAddr.
func (h *ReservationHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	if h.tickets == nil {
		writeInternal(w, "TICKET_SERVICE_UNAVAILABLE", "ticket service is unavailable")
		return
	}
	raffleID, ok := urlUUID(r, "raffleID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid raffle id")
		return
	}

	if h.limiter != nil {
		retryAfter, allowed, err := h.limiter.AllowReserve(r.Context(), clientIP(r))
		if err != nil {
			writeInternal(w, "INTERNAL_ERROR", "reservation throttle failed")
			return
		}
		if !allowed {
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
				Code:          "RATE_LIMITED",
				Message:       "too many reservation attempts",
				RetryAfterSec: retryAfter,
			})
			return
		}
	}

	var req dto.ReserveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	reservation, err := h.tickets.Reserve(r.Context(), raffleID, req.Quantity)
	if err != nil {
		handleReservationError(w, err)
		return
	}

	holdIDs := make([]string, 0, len(reservation.HoldIDs))
	for _, id := range reservation.HoldIDs {
		holdIDs = append(holdIDs, id.String())
	}

	httperrors.Write(w, http.StatusOK, dto.ReserveResponse{
		HoldIDs:       holdIDs,
		ReservedUntil: reservation.ReservedUntil,
	})
}

func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if h.tickets == nil {
		writeInternal(w, "TICKET_SERVICE_UNAVAILABLE", "ticket service is unavailable")
		return
	}
	raffleID, ok := urlUUID(r, "raffleID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid raffle id")
		return
	}

	counts, err := h.tickets.Counts(r.Context(), raffleID)
	if err != nil {
		handleReservationError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.AvailabilityResponse{
		Available: counts.Available,
		Reserved:  counts.Reserved,
		Sold:      counts.Sold,
	})
}

func handleReservationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ticketsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid reservation request")
	case errors.Is(err, ticketsvc.ErrRaffleNotActive):
		writeConflict(w, "RAFFLE_NOT_ACTIVE", "raffle is not open for reservations")
	case errors.Is(err, ticketsvc.ErrInsufficientAvailability):
		writeConflict(w, "INSUFFICIENT_AVAILABILITY", "not enough tickets available")
	case errors.Is(err, pgrepo.ErrRaffleNotFound):
		writeNotFound(w, "RAFFLE_NOT_FOUND", "raffle not found")
	default:
		writeInternal(w, "INTERNAL_ERROR", "reservation failed")
	}
}

func clientIP(r *http.Request) string {
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
