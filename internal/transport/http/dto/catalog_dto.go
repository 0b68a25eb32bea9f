package dto

type PaymentMethodResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	AccountHolder  string `json:"account_holder,omitempty"`
	AccountDetails string `json:"account_details,omitempty"`
	Active         bool   `json:"active"`
}

type PaymentMethodListResponse struct {
	Items []PaymentMethodResponse `json:"items"`
}

type PaymentMethodCreateRequest struct {
	Name           string `json:"name"`
	AccountHolder  string `json:"account_holder"`
	AccountDetails string `json:"account_details"`
}

type PaymentMethodActiveRequest struct {
	Active bool `json:"active"`
}

type ReferralResponse struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type ReferralListResponse struct {
	Items []ReferralResponse `json:"items"`
}

type ReferralCreateRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type ReferralCommissionResponse struct {
	Code               string `json:"code"`
	Name               string `json:"name"`
	ConfirmedPurchases int    `json:"confirmed_purchases"`
	AmountCents        int64  `json:"amount_cents"`
}

type ReferralCommissionListResponse struct {
	Items []ReferralCommissionResponse `json:"items"`
}

type ImageResponse struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Position int    `json:"position"`
}

type ImageListResponse struct {
	Items []ImageResponse `json:"items"`
}

type DisplayRateResponse struct {
	Rate float64 `json:"rate"`
}
