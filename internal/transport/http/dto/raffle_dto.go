package dto

import "time"

type RaffleResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	PriceCents     int64           `json:"price_cents"`
	Currency       string          `json:"currency"`
	MinimumTickets int             `json:"minimum_tickets"`
	Status         string          `json:"status"`
	LimitDate      time.Time       `json:"limit_date"`
	WinnerNumber   *string         `json:"winner_number,omitempty"`
	Images         []ImageResponse `json:"images,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type RaffleListResponse struct {
	Items []RaffleResponse `json:"items"`
}

type RaffleCreateRequest struct {
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	PriceCents     int64     `json:"price_cents"`
	Currency       string    `json:"currency"`
	MinimumTickets int       `json:"minimum_tickets"`
	LimitDate      time.Time `json:"limit_date"`
}

type RaffleTransitionRequest struct {
	Status string `json:"status"`
}

type AvailabilityResponse struct {
	Available int `json:"available"`
	Reserved  int `json:"reserved"`
	Sold      int `json:"sold"`
}

type LotteryRequest struct {
	Number       string    `json:"number"`
	NewLimitDate time.Time `json:"new_limit_date,omitempty"`
}

type DrawResponse struct {
	Raffle       RaffleResponse  `json:"raffle"`
	WinnerTicket *TicketResponse `json:"winner_ticket,omitempty"`
	Postponed    bool            `json:"postponed"`
}
