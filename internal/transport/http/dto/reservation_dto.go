package dto

import "time"

type ReserveRequest struct {
	Quantity int `json:"quantity"`
}

type ReserveResponse struct {
	HoldIDs       []string  `json:"hold_ids"`
	ReservedUntil time.Time `json:"reserved_until"`
}
