package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pgrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/postgres"
	"github.com/dasilvacsv/jadRifas-sub000/internal/transport/http/dto"
	httperrors "github.com/dasilvacsv/jadRifas-sub000/internal/transport/http/errors"
)

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func urlUUID(r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeNotFound(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusNotFound, httperrors.APIError{Code: code, Message: message})
}

func writeConflict(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusConflict, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}

func raffleResponse(rec pgrepo.RaffleRecord) dto.RaffleResponse {
	return dto.RaffleResponse{
		ID:             rec.ID.String(),
		Name:           rec.Name,
		Description:    rec.Description,
		PriceCents:     rec.PriceCents,
		Currency:       rec.Currency,
		MinimumTickets: rec.MinimumTickets,
		Status:         rec.Status,
		LimitDate:      rec.LimitDate,
		WinnerNumber:   rec.WinnerNumber,
		CreatedAt:      rec.CreatedAt,
	}
}

func purchaseResponse(rec pgrepo.PurchaseRecord) dto.PurchaseResponse {
	return dto.PurchaseResponse{
		ID:            rec.ID.String(),
		RaffleID:      rec.RaffleID.String(),
		BuyerName:     rec.BuyerName,
		BuyerEmail:    rec.BuyerEmail,
		BuyerPhone:    rec.BuyerPhone,
		TicketCount:   rec.TicketCount,
		AmountCents:   rec.AmountCents,
		Currency:      rec.Currency,
		PaymentMethod: rec.PaymentMethod,
		ReferralCode:  rec.ReferralCode,
		Status:        rec.Status,
		CreatedAt:     rec.CreatedAt,
	}
}

func ticketResponses(records []pgrepo.TicketRecord) []dto.TicketResponse {
	items := make([]dto.TicketResponse, 0, len(records))
	for _, rec := range records {
		number := ""
		if rec.TicketNumber != nil {
			number = *rec.TicketNumber
		}
		items = append(items, dto.TicketResponse{
			ID:           rec.ID.String(),
			TicketNumber: number,
			Status:       rec.Status,
		})
	}
	return items
}

func imageResponses(records []pgrepo.RaffleImageRecord) []dto.ImageResponse {
	items := make([]dto.ImageResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, dto.ImageResponse{
			ID:       rec.ID.String(),
			URL:      rec.URL,
			Position: rec.Position,
		})
	}
	return items
}
