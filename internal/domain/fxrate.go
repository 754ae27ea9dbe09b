package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrRateUnavailable indicates that no exchange rate could be obtained for a
// currency pair, including oracle timeouts.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

// FxRate is one dated exchange rate quote for a currency pair.
type FxRate struct {
	ID            int64           `json:"id"`
	BaseCurrency  string          `json:"base_currency"`
	QuoteCurrency string          `json:"quote_currency"`
	Rate          decimal.Decimal `json:"rate"`
	RateDate      time.Time       `json:"rate_date"`
	Source        string          `json:"source"`
}
