package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateScale is the number of decimal places stored for exchange rates.
const RateScale int32 = 8

// ExchangeRate converts one unit of From into Rate units of To.
type ExchangeRate struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	UpdatedAt time.Time       `json:"updated_at"`
}
