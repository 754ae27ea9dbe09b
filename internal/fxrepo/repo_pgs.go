// Package fxrepo manages repository layer of exchange rates.
package fxrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-petr/fx-bank/internal/domain"
	"github.com/go-petr/fx-bank/pkg/dbpkg"
	"github.com/go-petr/fx-bank/pkg/errorspkg"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RepoPGS facilitates exchange rate repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns fx RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const createQuery = `
INSERT INTO
    fx_rates (base_currency, quote_currency, rate, rate_date, source)
VALUES
    ($1, $2, $3, $4, $5)
RETURNING id, base_currency, quote_currency, rate, rate_date, source
`

// Create stores one dated rate quote.
func (r *RepoPGS) Create(ctx context.Context, base, quote string, rate decimal.Decimal,
	rateDate time.Time, source string) (domain.FxRate, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery, base, quote, rate, rateDate, source)

	var fr domain.FxRate

	err := row.Scan(&fr.ID, &fr.BaseCurrency, &fr.QuoteCurrency, &fr.Rate, &fr.RateDate, &fr.Source)
	if err != nil {
		l.Error().Err(err).Send()
		return fr, errorspkg.ErrInternal
	}

	return fr, nil
}

const getLatestQuery = `
SELECT
	id, base_currency, quote_currency, rate, rate_date, source
FROM fx_rates
WHERE base_currency = $1 AND quote_currency = $2
ORDER BY rate_date DESC
LIMIT 1
`

// GetLatest returns the most recent stored rate for the pair. A lookup cut
// short by its context deadline means no rate could be obtained in time, not
// an infrastructure fault, so it surfaces as domain.ErrRateUnavailable.
func (r *RepoPGS) GetLatest(ctx context.Context, base, quote string) (domain.FxRate, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getLatestQuery, base, quote)

	var fr domain.FxRate

	err := row.Scan(&fr.ID, &fr.BaseCurrency, &fr.QuoteCurrency, &fr.Rate, &fr.RateDate, &fr.Source)
	if err != nil {
		if err == sql.ErrNoRows {
			return fr, domain.ErrRateUnavailable
		}

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			l.Warn().Err(err).Str("base", base).Str("quote", quote).Msg("rate lookup timed out")
			return fr, domain.ErrRateUnavailable
		}

		l.Error().Err(err).Send()

		return fr, errorspkg.ErrInternal
	}

	return fr, nil
}

const listCurrenciesQuery = `
SELECT base_currency AS currency FROM fx_rates
UNION
SELECT quote_currency FROM fx_rates
ORDER BY currency
`

// ListCurrencies returns every currency seen on either side of a stored rate.
func (r *RepoPGS) ListCurrencies(ctx context.Context) ([]string, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listCurrenciesQuery)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	currencies := []string{}

	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		currencies = append(currencies, c)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return currencies, nil
}
