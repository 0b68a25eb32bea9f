package handlers

import (
	"net/http"

	ratessvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/rates"
	"github.com/dasilvacsv/jadRifas-sub000/internal/transport/http/dto"
	httperrors "github.com/dasilvacsv/jadRifas-sub000/internal/transport/http/errors"
)

type RatesHandler struct {
	rates *ratessvc.Service
}

func NewRatesHandler(rates *ratessvc.Service) *RatesHandler {
	return &RatesHandler{rates: rates}
}

func (h *RatesHandler) Display(w http.ResponseWriter, r *http.Request) {
	if h.rates == nil {
		writeInternal(w, "RATES_SERVICE_UNAVAILABLE", "rates service is unavailable")
		return
	}

	rate, err := h.rates.DisplayRate(r.Context())
	if err != nil {
		httperrors.Write(w, http.StatusServiceUnavailable, httperrors.APIError{
			Code:    "RATE_UNAVAILABLE",
			Message: "exchange rate is temporarily unavailable",
		})
		return
	}

	httperrors.Write(w, http.StatusOK, dto.DisplayRateResponse{Rate: rate})
}
