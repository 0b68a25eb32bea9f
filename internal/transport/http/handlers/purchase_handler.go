package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	mediasvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/media"
	purchasesvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/purchases"
	ticketsvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/tickets"
	"github.com/dasilvacsv/jadRifas-sub000/internal/transport/http/dto"
	httperrors "github.com/dasilvacsv/jadRifas-sub000/internal/transport/http/errors"
)

const maxScreenshotUploadSize = 10 << 20 // 10 MiB

type PurchaseHandler struct {
	purchases *purchasesvc.Service
	media     *mediasvc.Service
}

func NewPurchaseHandler(purchases *purchasesvc.Service, media *mediasvc.Service) *PurchaseHandler {
	return &PurchaseHandler{purchases: purchases, media: media}
}

// Submit takes the buyer's payment report as a multipart form: hold
// ids, buyer contact fields and the payment screenshot file.
func (h *PurchaseHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.purchases == nil {
		writeInternal(w, "PURCHASE_SERVICE_UNAVAILABLE", "purchase service is unavailable")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxScreenshotUploadSize)
	if err := r.ParseMultipartForm(maxScreenshotUploadSize); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid multipart form")
		return
	}

	raffleID, err := uuid.Parse(r.FormValue("raffle_id"))
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid raffle id")
		return
	}

	holdIDs, err := parseHoldIDs(r.FormValue("hold_ids"))
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid hold ids")
		return
	}

	file, header, err := r.FormFile("screenshot")
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "payment screenshot is required")
		return
	}
	defer file.Close()

	if header == nil || header.Size <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "payment screenshot is empty")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	rec, err := h.purchases.Submit(r.Context(), purchasesvc.SubmitInput{
		RaffleID:         raffleID,
		HoldIDs:          holdIDs,
		BuyerName:        r.FormValue("buyer_name"),
		BuyerEmail:       r.FormValue("buyer_email"),
		BuyerPhone:       r.FormValue("buyer_phone"),
		PaymentMethod:    r.FormValue("payment_method"),
		PaymentReference: r.FormValue("payment_reference"),
		ReferralCode:     r.FormValue("referral_code"),
		Screenshot:       file,
		ScreenshotSize:   header.Size,
		ScreenshotName:   header.Filename,
		ContentType:      contentType,
	})
	if err != nil {
		handlePurchaseError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, purchaseResponse(rec))
}

func (h *PurchaseHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.purchases == nil {
		writeInternal(w, "PURCHASE_SERVICE_UNAVAILABLE", "purchase service is unavailable")
		return
	}

	status := r.URL.Query().Get("status")
	if status == "" {
		status = "pending"
	}

	var raffleID *uuid.UUID
	if raw := r.URL.Query().Get("raffle_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid raffle id filter")
			return
		}
		raffleID = &id
	}

	records, err := h.purchases.List(r.Context(), status, raffleID)
	if err != nil {
		handlePurchaseError(w, err)
		return
	}

	items := make([]dto.PurchaseResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, purchaseResponse(rec))
	}

	httperrors.Write(w, http.StatusOK, dto.PurchaseListResponse{Items: items})
}

// Get returns the purchase with its tickets and a short-lived signed
// screenshot URL for the review screen.
func (h *PurchaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.purchases == nil {
		writeInternal(w, "PURCHASE_SERVICE_UNAVAILABLE", "purchase service is unavailable")
		return
	}
	purchaseID, ok := urlUUID(r, "purchaseID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid purchase id")
		return
	}

	result, err := h.purchases.Get(r.Context(), purchaseID)
	if err != nil {
		handlePurchaseError(w, err)
		return
	}

	resp := dto.PurchaseDetailResponse{
		Purchase: purchaseResponse(result.Purchase),
		Tickets:  ticketResponses(result.Tickets),
	}
	if h.media != nil && result.Purchase.ScreenshotKey != "" {
		if signed, err := h.media.PresignScreenshot(r.Context(), result.Purchase.ScreenshotKey); err == nil {
			resp.ScreenshotURL = signed
		}
	}

	httperrors.Write(w, http.StatusOK, resp)
}

func (h *PurchaseHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if h.purchases == nil {
		writeInternal(w, "PURCHASE_SERVICE_UNAVAILABLE", "purchase service is unavailable")
		return
	}
	purchaseID, ok := urlUUID(r, "purchaseID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid purchase id")
		return
	}

	result, err := h.purchases.Confirm(r.Context(), purchaseID)
	if err != nil {
		handlePurchaseError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PurchaseDetailResponse{
		Purchase: purchaseResponse(result.Purchase),
		Tickets:  ticketResponses(result.Tickets),
	})
}

func (h *PurchaseHandler) Reject(w http.ResponseWriter, r *http.Request) {
	if h.purchases == nil {
		writeInternal(w, "PURCHASE_SERVICE_UNAVAILABLE", "purchase service is unavailable")
		return
	}
	purchaseID, ok := urlUUID(r, "purchaseID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid purchase id")
		return
	}

	rec, err := h.purchases.Reject(r.Context(), purchaseID)
	if err != nil {
		handlePurchaseError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, purchaseResponse(rec))
}

func parseHoldIDs(raw string) ([]uuid.UUID, error) {
	parts := strings.Split(raw, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("no hold ids")
	}
	return ids, nil
}

func handlePurchaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, purchasesvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid purchase payload")
	case errors.Is(err, purchasesvc.ErrUnknownReferral):
		writeBadRequest(w, "UNKNOWN_REFERRAL", "referral code does not exist")
	case errors.Is(err, purchasesvc.ErrRaffleNotActive):
		writeConflict(w, "RAFFLE_NOT_ACTIVE", "raffle is not open for purchases")
	case errors.Is(err, purchasesvc.ErrHoldsNotLive):
		writeConflict(w, "RESERVATION_EXPIRED", "reservation expired or was already claimed")
	case errors.Is(err, purchasesvc.ErrAlreadyProcessed):
		writeConflict(w, "ALREADY_PROCESSED", "purchase was already confirmed or rejected")
	case errors.Is(err, purchasesvc.ErrPurchaseNotFound):
		writeNotFound(w, "PURCHASE_NOT_FOUND", "purchase not found")
	case errors.Is(err, purchasesvc.ErrStorageUpload):
		httperrors.Write(w, http.StatusBadGateway, httperrors.APIError{
			Code:    "STORAGE_UPLOAD_FAILED",
			Message: "payment screenshot upload failed",
		})
	case errors.Is(err, ticketsvc.ErrInsufficientAvailability):
		writeConflict(w, "INSUFFICIENT_AVAILABILITY", "pool capacity was reclaimed by other buyers")
	case errors.Is(err, ticketsvc.ErrNumberSpaceExhausted):
		writeInternal(w, "NUMBER_SPACE_EXHAUSTED", "ticket numbering failed")
	default:
		writeInternal(w, "INTERNAL_ERROR", "purchase operation failed")
	}
}
