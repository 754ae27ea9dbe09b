// Package currencypkg provides common currency related functionality for apps.
package currencypkg

import (
	"github.com/go-playground/validator/v10"
)

// Constants for all supported currencies.
const (
	USD = "USD"
	EUR = "EUR"
	GBP = "GBP"
	KZT = "KZT"
	RUB = "RUB"
)

// SupportedCurrencies holds all the supported currencies.
var SupportedCurrencies = []string{
	USD,
	EUR,
	GBP,
	KZT,
	RUB,
}

// IsSupportedCurrency returns true if the currency is supported.
func IsSupportedCurrency(currency string) bool {
	for _, c := range SupportedCurrencies {
		if c == currency {
			return true
		}
	}

	return false
}

// ValidCurrency validates a request currency field.
var ValidCurrency validator.Func = func(fieldLevel validator.FieldLevel) bool {
	if currency, ok := fieldLevel.Field().Interface().(string); ok {
		return IsSupportedCurrency(currency)
	}

	return false
}
