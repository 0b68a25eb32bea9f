package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pgrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/postgres"
)

type methodStub struct {
	records map[uuid.UUID]*pgrepo.PaymentMethodRecord
}

func (s *methodStub) Create(_ context.Context, rec pgrepo.PaymentMethodRecord) (pgrepo.PaymentMethodRecord, error) {
	rec.ID = uuid.New()
	s.records[rec.ID] = &rec
	return rec, nil
}

func (s *methodStub) List(_ context.Context, onlyActive bool) ([]pgrepo.PaymentMethodRecord, error) {
	var out []pgrepo.PaymentMethodRecord
	for _, rec := range s.records {
		if onlyActive && !rec.Active {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (s *methodStub) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	rec, ok := s.records[id]
	if !ok {
		return pgrepo.ErrPaymentMethodNotFound
	}
	rec.Active = active
	return nil
}

func (s *methodStub) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.records[id]; !ok {
		return pgrepo.ErrPaymentMethodNotFound
	}
	delete(s.records, id)
	return nil
}

func TestPaymentMethodPublicListHidesInactive(t *testing.T) {
	stub := &methodStub{records: make(map[uuid.UUID]*pgrepo.PaymentMethodRecord)}
	h := NewPaymentMethodHandler(stub)

	active, _ := stub.Create(context.Background(), pgrepo.PaymentMethodRecord{Name: "pago-movil", Active: true})
	if _, err := stub.Create(context.Background(), pgrepo.PaymentMethodRecord{Name: "zelle", Active: false}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/payment-methods", nil)
	rr := httptest.NewRecorder()
	h.PublicList(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}

	var resp struct {
		Items []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != active.ID.String() {
		t.Fatalf("public list should only show the active method: %+v", resp.Items)
	}
}

func TestPaymentMethodCreateValidation(t *testing.T) {
	stub := &methodStub{records: make(map[uuid.UUID]*pgrepo.PaymentMethodRecord)}
	h := NewPaymentMethodHandler(stub)

	body, _ := json.Marshal(map[string]string{"name": "   "})
	req := httptest.NewRequest(http.MethodPost, "/admin/payment-methods", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestPaymentMethodSetActiveUnknownID(t *testing.T) {
	stub := &methodStub{records: make(map[uuid.UUID]*pgrepo.PaymentMethodRecord)}
	h := NewPaymentMethodHandler(stub)

	body, _ := json.Marshal(map[string]bool{"active": false})
	req := httptest.NewRequest(http.MethodPatch, "/admin/payment-methods/"+uuid.NewString(), bytes.NewReader(body))

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("methodID", uuid.NewString())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rr := httptest.NewRecorder()
	h.SetActive(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNotFound)
	}
}
