package handlers

import (
	"errors"
	"net/http"

	pgrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/postgres"
	mediasvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/media"
	rafflesvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/raffles"
	"github.com/dasilvacsv/jadRifas-sub000/internal/transport/http/dto"
	httperrors "github.com/dasilvacsv/jadRifas-sub000/internal/transport/http/errors"
)

type RaffleHandler struct {
	raffles *rafflesvc.Service
	media   *mediasvc.Service
}

func NewRaffleHandler(raffles *rafflesvc.Service, media *mediasvc.Service) *RaffleHandler {
	return &RaffleHandler{raffles: raffles, media: media}
}

// List is the public storefront listing: active and finished raffles
// only, drafts stay invisible until published.
func (h *RaffleHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.raffles == nil {
		writeInternal(w, "RAFFLE_SERVICE_UNAVAILABLE", "raffle service is unavailable")
		return
	}

	status := r.URL.Query().Get("status")
	records, err := h.raffles.List(r.Context(), status)
	if err != nil {
		handleRaffleError(w, err)
		return
	}

	items := make([]dto.RaffleResponse, 0, len(records))
	for _, rec := range records {
		if rec.Status == "draft" {
			continue
		}
		items = append(items, h.withImages(r, rec))
	}

	httperrors.Write(w, http.StatusOK, dto.RaffleListResponse{Items: items})
}

func (h *RaffleHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.raffles == nil {
		writeInternal(w, "RAFFLE_SERVICE_UNAVAILABLE", "raffle service is unavailable")
		return
	}
	raffleID, ok := urlUUID(r, "raffleID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid raffle id")
		return
	}

	rec, err := h.raffles.Get(r.Context(), raffleID)
	if err != nil {
		handleRaffleError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, h.withImages(r, rec))
}

func (h *RaffleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.raffles == nil {
		writeInternal(w, "RAFFLE_SERVICE_UNAVAILABLE", "raffle service is unavailable")
		return
	}

	var req dto.RaffleCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	rec, err := h.raffles.Create(r.Context(), rafflesvc.CreateInput{
		Name:           req.Name,
		Description:    req.Description,
		PriceCents:     req.PriceCents,
		Currency:       req.Currency,
		MinimumTickets: req.MinimumTickets,
		LimitDate:      req.LimitDate,
	})
	if err != nil {
		handleRaffleError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, raffleResponse(rec))
}

func (h *RaffleHandler) Transition(w http.ResponseWriter, r *http.Request) {
	if h.raffles == nil {
		writeInternal(w, "RAFFLE_SERVICE_UNAVAILABLE", "raffle service is unavailable")
		return
	}
	raffleID, ok := urlUUID(r, "raffleID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid raffle id")
		return
	}

	var req dto.RaffleTransitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	rec, err := h.raffles.Transition(r.Context(), raffleID, req.Status)
	if err != nil {
		handleRaffleError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, raffleResponse(rec))
}

func (h *RaffleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.raffles == nil {
		writeInternal(w, "RAFFLE_SERVICE_UNAVAILABLE", "raffle service is unavailable")
		return
	}
	raffleID, ok := urlUUID(r, "raffleID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid raffle id")
		return
	}

	if err := h.raffles.Delete(r.Context(), raffleID); err != nil {
		handleRaffleError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *RaffleHandler) withImages(r *http.Request, rec pgrepo.RaffleRecord) dto.RaffleResponse {
	resp := raffleResponse(rec)
	if h.media == nil {
		return resp
	}
	images, err := h.media.ListRaffleImages(r.Context(), rec.ID)
	if err != nil {
		return resp
	}
	resp.Images = imageResponses(images)
	return resp
}

func handleRaffleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rafflesvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid raffle payload")
	case errors.Is(err, rafflesvc.ErrBadStatus):
		writeBadRequest(w, "VALIDATION_ERROR", "unknown raffle status")
	case errors.Is(err, pgrepo.ErrRaffleNotFound):
		writeNotFound(w, "RAFFLE_NOT_FOUND", "raffle not found")
	case errors.Is(err, pgrepo.ErrStatusTransition):
		writeConflict(w, "ILLEGAL_TRANSITION", "raffle cannot move to the requested status")
	default:
		writeInternal(w, "INTERNAL_ERROR", "raffle operation failed")
	}
}
