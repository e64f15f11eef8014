package okx

import "fmt"

// OrderSide is the OKX order side.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// OrderRequest is a market order submission. Size is in contracts.
type OrderRequest struct {
	Instrument string
	Side       OrderSide
	Size       int
	MarginMode string // cross or isolated
	ClientID   string
}

// Order is the exchange's acknowledgement of a submitted order.
type Order struct {
	OrderID  string `json:"ordId"`
	ClientID string `json:"clOrdId"`
	SCode    string `json:"sCode"`
	SMsg     string `json:"sMsg"`
}

// APIError is a non-zero code in the OKX response envelope.
type APIError struct {
	Code string
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("okx: code %s: %s", e.Code, e.Msg)
}

// Balance is one currency's account equity.
type Balance struct {
	Currency string
	Equity   float64
	Avail    float64
}
