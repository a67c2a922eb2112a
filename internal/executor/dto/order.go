package dto

// OrderRequest is one order handed to the execution venue.
type OrderRequest struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

// OrderResult is the venue's fill confirmation.
type OrderResult struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
	OrderRef string  `json:"order_ref"`
}
