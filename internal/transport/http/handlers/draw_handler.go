package handlers

import (
	"errors"
	"net/http"

	pgrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/postgres"
	drawsvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/draws"
	"github.com/dasilvacsv/jadRifas-sub000/internal/transport/http/dto"
	httperrors "github.com/dasilvacsv/jadRifas-sub000/internal/transport/http/errors"
)

type DrawHandler struct {
	draws *drawsvc.Service
}

func NewDrawHandler(draws *drawsvc.Service) *DrawHandler {
	return &DrawHandler{draws: draws}
}

func (h *DrawHandler) Draw(w http.ResponseWriter, r *http.Request) {
	if h.draws == nil {
		writeInternal(w, "DRAW_SERVICE_UNAVAILABLE", "draw service is unavailable")
		return
	}
	raffleID, ok := urlUUID(r, "raffleID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid raffle id")
		return
	}

	result, err := h.draws.Draw(r.Context(), raffleID)
	if err != nil {
		handleDrawError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, drawResponse(result))
}

// Lottery resolves a raffle against an externally published 4-digit
// number instead of an internal random pick.
func (h *DrawHandler) Lottery(w http.ResponseWriter, r *http.Request) {
	if h.draws == nil {
		writeInternal(w, "DRAW_SERVICE_UNAVAILABLE", "draw service is unavailable")
		return
	}
	raffleID, ok := urlUUID(r, "raffleID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid raffle id")
		return
	}

	var req dto.LotteryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	result, err := h.draws.ApplyLotteryNumber(r.Context(), raffleID, req.Number, req.NewLimitDate)
	if err != nil {
		handleDrawError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, drawResponse(result))
}

func drawResponse(result drawsvc.Result) dto.DrawResponse {
	resp := dto.DrawResponse{
		Raffle:    raffleResponse(result.Raffle),
		Postponed: result.Postponed,
	}
	if result.Winner != nil {
		tickets := ticketResponses([]pgrepo.TicketRecord{*result.Winner})
		resp.WinnerTicket = &tickets[0]
	}
	return resp
}

func handleDrawError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, drawsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid draw request")
	case errors.Is(err, drawsvc.ErrNotFinished):
		writeConflict(w, "RAFFLE_NOT_FINISHED", "raffle must be finished before drawing")
	case errors.Is(err, drawsvc.ErrAlreadyDrawn):
		writeConflict(w, "ALREADY_DRAWN", "raffle winner was already drawn")
	case errors.Is(err, drawsvc.ErrNoSoldTickets):
		writeConflict(w, "NO_SOLD_TICKETS", "raffle has no sold tickets")
	case errors.Is(err, pgrepo.ErrRaffleNotFound):
		writeNotFound(w, "RAFFLE_NOT_FOUND", "raffle not found")
	default:
		writeInternal(w, "INTERNAL_ERROR", "draw failed")
	}
}
