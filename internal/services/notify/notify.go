package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	pgrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/postgres"
)

const sendTimeout = 5 * time.Second

// Event is what leaves the system boundary: enough for an admin to act
// on without another round trip, nothing buyer-sensitive beyond what
// the admin already sees.
type Event struct {
	Kind        string    `json:"kind"`
	PurchaseID  string    `json:"purchase_id"`
	RaffleID    string    `json:"raffle_id"`
	Status      string    `json:"status"`
	BuyerName   string    `json:"buyer_name"`
	TicketCount int       `json:"ticket_count"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type Sender interface {
	Send(ctx context.Context, event Event) error
}

// Dispatcher fans purchase events out to senders. Delivery is
// fire-and-forget: failures are logged and swallowed, they never reach
// the caller or roll anything back.
type Dispatcher struct {
	senders []Sender
	log     *zap.Logger
	now     func() time.Time
}

func NewDispatcher(log *zap.Logger, senders ...Sender) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{senders: senders, log: log, now: time.Now}
}

func (d *Dispatcher) PurchaseSubmitted(ctx context.Context, purchase pgrepo.PurchaseRecord) {
	d.dispatch(ctx, "purchase.submitted", purchase)
}

func (d *Dispatcher) PurchaseReviewed(ctx context.Context, purchase pgrepo.PurchaseRecord) {
	d.dispatch(ctx, "purchase.reviewed", purchase)
}

func (d *Dispatcher) dispatch(ctx context.Context, kind string, purchase pgrepo.PurchaseRecord) {
	if len(d.senders) == 0 {
		return
	}

	event := Event{
		Kind:        kind,
		PurchaseID:  purchase.ID.String(),
		RaffleID:    purchase.RaffleID.String(),
		Status:      purchase.Status,
		BuyerName:   purchase.BuyerName,
		TicketCount: purchase.TicketCount,
		AmountCents: purchase.AmountCents,
		Currency:    purchase.Currency,
		OccurredAt:  d.now().UTC(),
	}

	// Detached from the request context so an aborted request doesn't
	// cancel delivery mid-flight.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	for _, sender := range d.senders {
		if err := sender.Send(sendCtx, event); err != nil {
			d.log.Warn("notification delivery failed",
				zap.String("kind", kind),
				zap.String("purchase_id", event.PurchaseID),
				zap.Error(err))
		}
	}
}

// WebhookSender POSTs events as JSON to a configured URL.
type WebhookSender struct {
	client *http.Client
	url    string
}

func NewWebhookSender(client *http.Client, url string) *WebhookSender {
	if client == nil {
		client = &http.Client{Timeout: sendTimeout}
	}
	return &WebhookSender{client: client, url: url}
}

func (s *WebhookSender) Send(ctx context.Context, event Event) error {
	if s.url == "" {
		return fmt.Errorf("webhook url is not configured")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}
