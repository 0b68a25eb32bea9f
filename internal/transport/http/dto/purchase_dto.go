package dto

import "time"

type PurchaseResponse struct {
	ID            string    `json:"id"`
	RaffleID      string    `json:"raffle_id"`
	BuyerName     string    `json:"buyer_name"`
	BuyerEmail    string    `json:"buyer_email"`
	BuyerPhone    string    `json:"buyer_phone"`
	TicketCount   int       `json:"ticket_count"`
	AmountCents   int64     `json:"amount_cents"`
	Currency      string    `json:"currency"`
	PaymentMethod string    `json:"payment_method"`
	ReferralCode  *string   `json:"referral_code,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

type PurchaseListResponse struct {
	Items []PurchaseResponse `json:"items"`
}

type PurchaseDetailResponse struct {
	Purchase      PurchaseResponse `json:"purchase"`
	Tickets       []TicketResponse `json:"tickets"`
	ScreenshotURL string           `json:"screenshot_url,omitempty"`
}

type TicketResponse struct {
	ID           string `json:"id"`
	TicketNumber string `json:"ticket_number"`
	Status       string `json:"status"`
}
