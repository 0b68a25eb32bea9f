package handlers

import (
	"errors"
	"fmt"
	"net/http"

	pgrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/postgres"
	mediasvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/media"
	"github.com/dasilvacsv/jadRifas-sub000/internal/transport/http/dto"
	httperrors "github.com/dasilvacsv/jadRifas-sub000/internal/transport/http/errors"
)

const maxImageUploadSize = 20 << 20 // 20 MiB

type MediaHandler struct {
	service *mediasvc.Service
}

func NewMediaHandler(service *mediasvc.Service) *MediaHandler {
	return &MediaHandler{service: service}
}

func (h *MediaHandler) ImageUpload(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}
	raffleID, ok := urlUUID(r, "raffleID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid raffle id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageUploadSize)
	if err := r.ParseMultipartForm(maxImageUploadSize); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "file is required")
		return
	}
	defer file.Close()

	if header == nil || header.Size <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "file is empty")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	image, err := h.service.AddRaffleImage(r.Context(), raffleID, header.Filename, file, header.Size, contentType)
	if err != nil {
		handleMediaError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.ImageResponse{
		ID:       image.ID.String(),
		URL:      image.URL,
		Position: image.Position,
	})
}

func (h *MediaHandler) ImageDelete(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}
	imageID, ok := urlUUID(r, "imageID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid image id")
		return
	}

	if err := h.service.DeleteRaffleImage(r.Context(), imageID); err != nil {
		handleMediaError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func handleMediaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mediasvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid media request")
	case errors.Is(err, mediasvc.ErrImageLimitReached):
		writeConflict(w, "IMAGE_LIMIT_REACHED", fmt.Sprintf("maximum %d images per raffle", mediasvc.MaxRaffleImages()))
	case errors.Is(err, pgrepo.ErrRaffleImageNotFound):
		writeNotFound(w, "IMAGE_NOT_FOUND", "raffle image not found")
	default:
		writeInternal(w, "INTERNAL_ERROR", "media operation failed")
	}
}
