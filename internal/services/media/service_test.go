package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	pgrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/postgres"
)

type mediaStub struct {
	rows    map[uuid.UUID]pgrepo.RaffleImageRecord
	objects map[string][]byte

	createErr error
}

func newMediaStub() *mediaStub {
	return &mediaStub{
		rows:    make(map[uuid.UUID]pgrepo.RaffleImageRecord),
		objects: make(map[string][]byte),
	}
}

func (s *mediaStub) Create(_ context.Context, raffleID uuid.UUID, objectKey, url string) (pgrepo.RaffleImageRecord, error) {
	if s.createErr != nil {
		return pgrepo.RaffleImageRecord{}, s.createErr
	}
	rec := pgrepo.RaffleImageRecord{
		ID:        uuid.New(),
		RaffleID:  raffleID,
		ObjectKey: objectKey,
		URL:       url,
		Position:  len(s.rows),
	}
	s.rows[rec.ID] = rec
	return rec, nil
}

func (s *mediaStub) ListByRaffle(_ context.Context, raffleID uuid.UUID) ([]pgrepo.RaffleImageRecord, error) {
	var out []pgrepo.RaffleImageRecord
	for _, rec := range s.rows {
		if rec.RaffleID == raffleID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *mediaStub) FindByID(_ context.Context, imageID uuid.UUID) (pgrepo.RaffleImageRecord, error) {
	rec, ok := s.rows[imageID]
	if !ok {
		return pgrepo.RaffleImageRecord{}, pgrepo.ErrRaffleImageNotFound
	}
	return rec, nil
}

func (s *mediaStub) Delete(_ context.Context, imageID uuid.UUID) error {
	if _, ok := s.rows[imageID]; !ok {
		return pgrepo.ErrRaffleImageNotFound
	}
	delete(s.rows, imageID)
	return nil
}

func (s *mediaStub) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.objects[key] = data
	return "https://cdn.test/" + key, nil
}

func (s *mediaStub) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	if _, ok := s.objects[key]; !ok {
		return "", errors.New("no such object")
	}
	return "https://cdn.test/signed/" + key, nil
}

func (s *mediaStub) DeleteObject(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

type objectStorageAdapter struct{ *mediaStub }

func (a objectStorageAdapter) Delete(ctx context.Context, key string) error {
	return a.DeleteObject(ctx, key)
}

func newTestService() (*Service, *mediaStub) {
	stub := newMediaStub()
	return NewService(stub, objectStorageAdapter{stub}), stub
}

func TestAddRaffleImageStoresRowAndObject(t *testing.T) {
	svc, stub := newTestService()
	raffleID := uuid.New()

	rec, err := svc.AddRaffleImage(context.Background(), raffleID, "moto.JPEG", bytes.NewReader([]byte("img")), 3, "image/jpeg")
	if err != nil {
		t.Fatalf("AddRaffleImage: %v", err)
	}
	if !strings.HasPrefix(rec.ObjectKey, "raffles/"+raffleID.String()+"/images/") {
		t.Fatalf("object key %q missing raffle prefix", rec.ObjectKey)
	}
	if !strings.HasSuffix(rec.ObjectKey, ".jpeg") {
		t.Fatalf("object key %q should keep lowercased extension", rec.ObjectKey)
	}
	if _, ok := stub.objects[rec.ObjectKey]; !ok {
		t.Fatalf("object not uploaded")
	}
	if rec.URL == "" {
		t.Fatalf("record missing public URL")
	}
}

func TestAddRaffleImageEnforcesLimit(t *testing.T) {
	svc, _ := newTestService()
	raffleID := uuid.New()

	for i := 0; i < MaxRaffleImages(); i++ {
		if _, err := svc.AddRaffleImage(context.Background(), raffleID, "a.png", bytes.NewReader([]byte("x")), 1, "image/png"); err != nil {
			t.Fatalf("image %d: %v", i, err)
		}
	}
	_, err := svc.AddRaffleImage(context.Background(), raffleID, "a.png", bytes.NewReader([]byte("x")), 1, "image/png")
	if !errors.Is(err, ErrImageLimitReached) {
		t.Fatalf("err = %v, want ErrImageLimitReached", err)
	}
}

func TestAddRaffleImageCleansUpOnRowFailure(t *testing.T) {
	svc, stub := newTestService()
	stub.createErr = errors.New("pg down")

	_, err := svc.AddRaffleImage(context.Background(), uuid.New(), "a.png", bytes.NewReader([]byte("x")), 1, "image/png")
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(stub.objects) != 0 {
		t.Fatalf("orphan object left after row insert failure")
	}
}

func TestDeleteRaffleImageRemovesBoth(t *testing.T) {
	svc, stub := newTestService()
	raffleID := uuid.New()

	rec, err := svc.AddRaffleImage(context.Background(), raffleID, "a.png", bytes.NewReader([]byte("x")), 1, "image/png")
	if err != nil {
		t.Fatalf("AddRaffleImage: %v", err)
	}

	if err := svc.DeleteRaffleImage(context.Background(), rec.ID); err != nil {
		t.Fatalf("DeleteRaffleImage: %v", err)
	}
	if len(stub.rows) != 0 || len(stub.objects) != 0 {
		t.Fatalf("row or object survived delete")
	}
}

func TestUploadScreenshotRoundTrip(t *testing.T) {
	svc, stub := newTestService()

	url, err := svc.UploadScreenshot(context.Background(), "screenshots/x/y.png", bytes.NewReader([]byte("png")), 3, "image/png")
	if err != nil {
		t.Fatalf("UploadScreenshot: %v", err)
	}
	if url == "" {
		t.Fatalf("empty URL")
	}

	signed, err := svc.PresignScreenshot(context.Background(), "screenshots/x/y.png")
	if err != nil {
		t.Fatalf("PresignScreenshot: %v", err)
	}
	if !strings.Contains(signed, "signed") {
		t.Fatalf("presigned URL %q not signed", signed)
	}

	if err := svc.Delete(context.Background(), "screenshots/x/y.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(stub.objects) != 0 {
		t.Fatalf("object survived delete")
	}
}
