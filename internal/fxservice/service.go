// Package fxservice manages business logic layer of exchange rates.
package fxservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-petr/fx-bank/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repo provides data access layer interface needed by fx service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package fxservice
type Repo interface {
	Create(ctx context.Context, base, quote string, rate decimal.Decimal, rateDate time.Time, source string) (domain.FxRate, error)
	GetLatest(ctx context.Context, base, quote string) (domain.FxRate, error)
	ListCurrencies(ctx context.Context) ([]string, error)
}

// Cache provides the short-TTL rate cache interface. Get returns "" on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

const rateSource = "frankfurter.app"

// Service facilitates exchange rate lookups, conversion and refresh.
type Service struct {
	repo     Repo
	cache    Cache
	cacheTTL time.Duration
	apiURL   string
	client   *http.Client
}

// New returns fx Service.
func New(repo Repo, cache Cache, apiURL string, cacheTTL time.Duration) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		apiURL:   apiURL,
		client:   &http.Client{},
	}
}

// GetRate returns the conversion rate from base to quote.
//
// Identical currencies short-circuit to 1 without any lookup. Otherwise the
// cache is consulted first, then the latest stored direct rate, then the
// inverted reverse rate. domain.ErrRateUnavailable is returned when none exist.
func (s *Service) GetRate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	l := zerolog.Ctx(ctx)

	if base == quote {
		return decimal.NewFromInt(1), nil
	}

	cacheKey := fmt.Sprintf("fx_rate:%s:%s", base, quote)

	if cached, err := s.cache.Get(ctx, cacheKey); err != nil {
		// Cache trouble degrades to a repo lookup.
		l.Warn().Err(err).Str("key", cacheKey).Msg("rate cache unavailable")
	} else if cached != "" {
		rate, err := decimal.NewFromString(cached)
		if err == nil {
			return rate, nil
		}

		l.Warn().Err(err).Str("key", cacheKey).Msg("malformed cached rate")
	}

	fr, err := s.repo.GetLatest(ctx, base, quote)
	if err == nil {
		s.cacheRate(ctx, cacheKey, fr.Rate)
		return fr.Rate, nil
	}

	if err != domain.ErrRateUnavailable {
		return decimal.Zero, err
	}

	reverse, err := s.repo.GetLatest(ctx, quote, base)
	if err != nil {
		return decimal.Zero, err
	}

	if reverse.Rate.IsZero() {
		return decimal.Zero, domain.ErrRateUnavailable
	}

	inverted := decimal.NewFromInt(1).Div(reverse.Rate)
	s.cacheRate(ctx, cacheKey, inverted)

	return inverted, nil
}

// Convert converts amount from one currency to another, returning the
// converted amount rounded to the minor-unit scale and the rate used.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, decimal.Decimal, error) {
	if from == to {
		return amount, decimal.NewFromInt(1), nil
	}

	rate, err := s.GetRate(ctx, from, to)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return amount.Mul(rate).Round(2), rate, nil
}

// Currencies returns every currency with at least one stored rate.
func (s *Service) Currencies(ctx context.Context) ([]string, error) {
	return s.repo.ListCurrencies(ctx)
}

type latestRatesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// UpdateRates fetches the latest quotes for the base currency from the rate
// API and stores one dated row per quote currency. It returns the number of
// stored rows.
func (s *Service) UpdateRates(ctx context.Context, base string) (int, error) {
	l := zerolog.Ctx(ctx)

	url := fmt.Sprintf("%s/v1/latest?base=%s", s.apiURL, base)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	res, err := s.client.Do(req)
	if err != nil {
		l.Error().Err(err).Str("url", url).Msg("rate api request failed")
		return 0, domain.ErrRateUnavailable
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		l.Error().Int("status", res.StatusCode).Str("url", url).Msg("rate api request failed")
		return 0, domain.ErrRateUnavailable
	}

	var payload latestRatesResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		l.Error().Err(err).Send()
		return 0, domain.ErrRateUnavailable
	}

	rateDate := time.Now().UTC()
	count := 0

	for quote, rate := range payload.Rates {
		if quote == base {
			continue
		}

		if _, err := s.repo.Create(ctx, base, quote, decimal.NewFromFloat(rate), rateDate, rateSource); err != nil {
			return count, err
		}

		count++
	}

	return count, nil
}

func (s *Service) cacheRate(ctx context.Context, key string, rate decimal.Decimal) {
	l := zerolog.Ctx(ctx)

	if err := s.cache.Set(ctx, key, rate.String(), s.cacheTTL); err != nil {
		l.Warn().Err(err).Str("key", key).Msg("rate cache set failed")
	}
}
