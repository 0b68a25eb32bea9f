package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	pgrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/postgres"
	referralsvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/referrals"
	"github.com/dasilvacsv/jadRifas-sub000/internal/transport/http/dto"
	httperrors "github.com/dasilvacsv/jadRifas-sub000/internal/transport/http/errors"
)

type ReferralHandler struct {
	referrals *referralsvc.Service
}

func NewReferralHandler(referrals *referralsvc.Service) *ReferralHandler {
	return &ReferralHandler{referrals: referrals}
}

func (h *ReferralHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.referrals == nil {
		writeInternal(w, "REFERRAL_SERVICE_UNAVAILABLE", "referral service is unavailable")
		return
	}

	var req dto.ReferralCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	rec, err := h.referrals.Create(r.Context(), req.Code, req.Name)
	if err != nil {
		handleReferralError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.ReferralResponse{Code: rec.Code, Name: rec.Name})
}

func (h *ReferralHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.referrals == nil {
		writeInternal(w, "REFERRAL_SERVICE_UNAVAILABLE", "referral service is unavailable")
		return
	}

	records, err := h.referrals.List(r.Context())
	if err != nil {
		handleReferralError(w, err)
		return
	}

	items := make([]dto.ReferralResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, dto.ReferralResponse{Code: rec.Code, Name: rec.Name})
	}

	httperrors.Write(w, http.StatusOK, dto.ReferralListResponse{Items: items})
}

func (h *ReferralHandler) Commissions(w http.ResponseWriter, r *http.Request) {
	if h.referrals == nil {
		writeInternal(w, "REFERRAL_SERVICE_UNAVAILABLE", "referral service is unavailable")
		return
	}

	commissions, err := h.referrals.Commissions(r.Context())
	if err != nil {
		handleReferralError(w, err)
		return
	}

	items := make([]dto.ReferralCommissionResponse, 0, len(commissions))
	for _, c := range commissions {
		items = append(items, dto.ReferralCommissionResponse{
			Code:               c.Code,
			Name:               c.Name,
			ConfirmedPurchases: c.ConfirmedPurchases,
			AmountCents:        c.AmountCents,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.ReferralCommissionListResponse{Items: items})
}

func (h *ReferralHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.referrals == nil {
		writeInternal(w, "REFERRAL_SERVICE_UNAVAILABLE", "referral service is unavailable")
		return
	}

	if err := h.referrals.Delete(r.Context(), chi.URLParam(r, "code")); err != nil {
		handleReferralError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func handleReferralError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, referralsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid referral payload")
	case errors.Is(err, referralsvc.ErrCodeTaken):
		writeConflict(w, "REFERRAL_CODE_TAKEN", "referral code already exists")
	case errors.Is(err, pgrepo.ErrReferralNotFound):
		writeNotFound(w, "REFERRAL_NOT_FOUND", "referral not found")
	default:
		writeInternal(w, "INTERNAL_ERROR", "referral operation failed")
	}
}
