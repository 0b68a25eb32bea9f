package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	pgrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/postgres"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrImageLimitReached = errors.New("raffle image limit reached")
)

const (
	signedURLTTL    = 5 * time.Minute
	maxRaffleImages = 6
)

type ImageStore interface {
	Create(ctx context.Context, raffleID uuid.UUID, objectKey, url string) (pgrepo.RaffleImageRecord, error)
	ListByRaffle(ctx context.Context, raffleID uuid.UUID) ([]pgrepo.RaffleImageRecord, error)
	FindByID(ctx context.Context, imageID uuid.UUID) (pgrepo.RaffleImageRecord, error)
	Delete(ctx context.Context, imageID uuid.UUID) error
}

type ObjectStorage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// Service stores raffle gallery images and payment screenshots. Images
// get a row in postgres plus the object; screenshots are object-only,
// the purchase row carries their key.
type Service struct {
	images  ImageStore
	storage ObjectStorage
}

func NewService(images ImageStore, storage ObjectStorage) *Service {
	return &Service{images: images, storage: storage}
}

func (s *Service) UploadScreenshot(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("object storage is not configured")
	}
	return s.storage.Put(ctx, key, body, size, contentType)
}

// PresignScreenshot returns a short-lived URL for the review screen.
func (s *Service) PresignScreenshot(ctx context.Context, key string) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("object storage is not configured")
	}
	return s.storage.PresignGet(ctx, key, signedURLTTL)
}

func (s *Service) Delete(ctx context.Context, key string) error {
	if s.storage == nil {
		return fmt.Errorf("object storage is not configured")
	}
	return s.storage.Delete(ctx, key)
}

func (s *Service) AddRaffleImage(ctx context.Context, raffleID uuid.UUID, fileName string, body io.Reader, size int64, contentType string) (pgrepo.RaffleImageRecord, error) {
	if s.images == nil || s.storage == nil {
		return pgrepo.RaffleImageRecord{}, fmt.Errorf("media service dependencies are not configured")
	}
	if raffleID == uuid.Nil || body == nil || size <= 0 {
		return pgrepo.RaffleImageRecord{}, ErrValidation
	}

	existing, err := s.images.ListByRaffle(ctx, raffleID)
	if err != nil {
		return pgrepo.RaffleImageRecord{}, err
	}
	if len(existing) >= maxRaffleImages {
		return pgrepo.RaffleImageRecord{}, ErrImageLimitReached
	}

	key := imageKey(raffleID, fileName)
	url, err := s.storage.Put(ctx, key, body, size, contentType)
	if err != nil {
		return pgrepo.RaffleImageRecord{}, err
	}

	rec, err := s.images.Create(ctx, raffleID, key, url)
	if err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			err = fmt.Errorf("%w (object cleanup also failed: %v)", err, delErr)
		}
		return pgrepo.RaffleImageRecord{}, err
	}

	return rec, nil
}

func (s *Service) ListRaffleImages(ctx context.Context, raffleID uuid.UUID) ([]pgrepo.RaffleImageRecord, error) {
	if s.images == nil {
		return nil, fmt.Errorf("media service dependencies are not configured")
	}
	if raffleID == uuid.Nil {
		return nil, ErrValidation
	}
	return s.images.ListByRaffle(ctx, raffleID)
}

// DeleteRaffleImage removes the row first, then the object. An orphan
// object is recoverable by the retention sweep; an orphan row is not.
func (s *Service) DeleteRaffleImage(ctx context.Context, imageID uuid.UUID) error {
	if s.images == nil || s.storage == nil {
		return fmt.Errorf("media service dependencies are not configured")
	}
	if imageID == uuid.Nil {
		return ErrValidation
	}

	rec, err := s.images.FindByID(ctx, imageID)
	if err != nil {
		return err
	}
	if err := s.images.Delete(ctx, imageID); err != nil {
		return err
	}
	return s.storage.Delete(ctx, rec.ObjectKey)
}

func MaxRaffleImages() int {
	return maxRaffleImages
}

func imageKey(raffleID uuid.UUID, fileName string) string {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName)))
	if ext == "" {
		ext = ".jpg"
	}
	stamp := time.Now().UTC().Format("20060102T150405")
	return fmt.Sprintf("raffles/%s/images/%s_%s%s", raffleID, stamp, uuid.NewString()[:8], ext)
}
