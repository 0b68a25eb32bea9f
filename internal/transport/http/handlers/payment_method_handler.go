package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	pgrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/postgres"
	"github.com/dasilvacsv/jadRifas-sub000/internal/transport/http/dto"
	httperrors "github.com/dasilvacsv/jadRifas-sub000/internal/transport/http/errors"
)

type PaymentMethodStore interface {
	Create(ctx context.Context, rec pgrepo.PaymentMethodRecord) (pgrepo.PaymentMethodRecord, error)
	List(ctx context.Context, onlyActive bool) ([]pgrepo.PaymentMethodRecord, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type PaymentMethodHandler struct {
	methods PaymentMethodStore
}

func NewPaymentMethodHandler(methods PaymentMethodStore) *PaymentMethodHandler {
	return &PaymentMethodHandler{methods: methods}
}

// PublicList feeds the checkout page: active methods only.
func (h *PaymentMethodHandler) PublicList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *PaymentMethodHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

func (h *PaymentMethodHandler) list(w http.ResponseWriter, r *http.Request, onlyActive bool) {
	if h.methods == nil {
		writeInternal(w, "PAYMENT_METHODS_UNAVAILABLE", "payment method store is unavailable")
		return
	}

	records, err := h.methods.List(r.Context(), onlyActive)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to list payment methods")
		return
	}

	items := make([]dto.PaymentMethodResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, paymentMethodResponse(rec))
	}

	httperrors.Write(w, http.StatusOK, dto.PaymentMethodListResponse{Items: items})
}

func (h *PaymentMethodHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.methods == nil {
		writeInternal(w, "PAYMENT_METHODS_UNAVAILABLE", "payment method store is unavailable")
		return
	}

	var req dto.PaymentMethodCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "payment method name is required")
		return
	}

	rec, err := h.methods.Create(r.Context(), pgrepo.PaymentMethodRecord{
		Name:           req.Name,
		AccountHolder:  req.AccountHolder,
		AccountDetails: req.AccountDetails,
		Active:         true,
	})
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to create payment method")
		return
	}

	httperrors.Write(w, http.StatusCreated, paymentMethodResponse(rec))
}

func (h *PaymentMethodHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	if h.methods == nil {
		writeInternal(w, "PAYMENT_METHODS_UNAVAILABLE", "payment method store is unavailable")
		return
	}
	methodID, ok := urlUUID(r, "methodID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid payment method id")
		return
	}

	var req dto.PaymentMethodActiveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	if err := h.methods.SetActive(r.Context(), methodID, req.Active); err != nil {
		if errors.Is(err, pgrepo.ErrPaymentMethodNotFound) {
			writeNotFound(w, "PAYMENT_METHOD_NOT_FOUND", "payment method not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to update payment method")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *PaymentMethodHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.methods == nil {
		writeInternal(w, "PAYMENT_METHODS_UNAVAILABLE", "payment method store is unavailable")
		return
	}
	methodID, ok := urlUUID(r, "methodID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid payment method id")
		return
	}

	if err := h.methods.Delete(r.Context(), methodID); err != nil {
		if errors.Is(err, pgrepo.ErrPaymentMethodNotFound) {
			writeNotFound(w, "PAYMENT_METHOD_NOT_FOUND", "payment method not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to delete payment method")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func paymentMethodResponse(rec pgrepo.PaymentMethodRecord) dto.PaymentMethodResponse {
	return dto.PaymentMethodResponse{
		ID:             rec.ID.String(),
		Name:           rec.Name,
		AccountHolder:  rec.AccountHolder,
		AccountDetails: rec.AccountDetails,
		Active:         rec.Active,
	}
}
