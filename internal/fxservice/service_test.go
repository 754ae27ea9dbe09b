package fxservice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/fx-bank/internal/domain"
	"github.com/go-petr/fx-bank/pkg/currencypkg"
	"github.com/go-petr/fx-bank/pkg/errorspkg"
)

const testCacheTTL = 15 * time.Minute

func TestGetRate(t *testing.T) {
	testCases := []struct {
		name          string
		base          string
		quote         string
		buildStubs    func(repo *MockRepo, cache *MockCache)
		checkResponse func(rate decimal.Decimal, err error)
	}{
		{
			name:  "Identity pair short-circuits",
			base:  currencypkg.USD,
			quote: currencypkg.USD,
			buildStubs: func(repo *MockRepo, cache *MockCache) {
				repo.EXPECT().GetLatest(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
				cache.EXPECT().Get(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(rate decimal.Decimal, err error) {
				require.NoError(t, err)
				require.True(t, rate.Equal(decimal.NewFromInt(1)))
			},
		},
		{
			name:  "Cache hit",
			base:  currencypkg.USD,
			quote: currencypkg.EUR,
			buildStubs: func(repo *MockRepo, cache *MockCache) {
				cache.EXPECT().Get(gomock.Any(), gomock.Eq("fx_rate:USD:EUR")).
					Times(1).
					Return("0.92", nil)
				repo.EXPECT().GetLatest(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(rate decimal.Decimal, err error) {
				require.NoError(t, err)
				require.True(t, rate.Equal(decimal.RequireFromString("0.92")))
			},
		},
		{
			name:  "Direct rate on cache miss",
			base:  currencypkg.USD,
			quote: currencypkg.EUR,
			buildStubs: func(repo *MockRepo, cache *MockCache) {
				cache.EXPECT().Get(gomock.Any(), gomock.Eq("fx_rate:USD:EUR")).
					Times(1).
					Return("", nil)
				repo.EXPECT().GetLatest(gomock.Any(), gomock.Eq(currencypkg.USD), gomock.Eq(currencypkg.EUR)).
					Times(1).
					Return(domain.FxRate{
						BaseCurrency:  currencypkg.USD,
						QuoteCurrency: currencypkg.EUR,
						Rate:          decimal.RequireFromString("0.92"),
					}, nil)
				cache.EXPECT().Set(gomock.Any(), gomock.Eq("fx_rate:USD:EUR"), gomock.Eq("0.92"), gomock.Eq(testCacheTTL)).
					Times(1).
					Return(nil)
			},
			checkResponse: func(rate decimal.Decimal, err error) {
				require.NoError(t, err)
				require.True(t, rate.Equal(decimal.RequireFromString("0.92")))
			},
		},
		{
			name:  "Cache trouble degrades to repo lookup",
			base:  currencypkg.USD,
			quote: currencypkg.EUR,
			buildStubs: func(repo *MockRepo, cache *MockCache) {
				cache.EXPECT().Get(gomock.Any(), gomock.Any()).
					Times(1).
					Return("", errorspkg.ErrInternal)
				repo.EXPECT().GetLatest(gomock.Any(), gomock.Eq(currencypkg.USD), gomock.Eq(currencypkg.EUR)).
					Times(1).
					Return(domain.FxRate{Rate: decimal.RequireFromString("0.92")}, nil)
				cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(nil)
			},
			checkResponse: func(rate decimal.Decimal, err error) {
				require.NoError(t, err)
				require.True(t, rate.Equal(decimal.RequireFromString("0.92")))
			},
		},
		{
			name:  "Inverted reverse rate",
			base:  currencypkg.EUR,
			quote: currencypkg.USD,
			buildStubs: func(repo *MockRepo, cache *MockCache) {
				cache.EXPECT().Get(gomock.Any(), gomock.Eq("fx_rate:EUR:USD")).
					Times(1).
					Return("", nil)
				repo.EXPECT().GetLatest(gomock.Any(), gomock.Eq(currencypkg.EUR), gomock.Eq(currencypkg.USD)).
					Times(1).
					Return(domain.FxRate{}, domain.ErrRateUnavailable)
				repo.EXPECT().GetLatest(gomock.Any(), gomock.Eq(currencypkg.USD), gomock.Eq(currencypkg.EUR)).
					Times(1).
					Return(domain.FxRate{Rate: decimal.RequireFromString("0.8")}, nil)
				cache.EXPECT().Set(gomock.Any(), gomock.Eq("fx_rate:EUR:USD"), gomock.Eq("1.25"), gomock.Eq(testCacheTTL)).
					Times(1).
					Return(nil)
			},
			checkResponse: func(rate decimal.Decimal, err error) {
				require.NoError(t, err)
				require.True(t, rate.Equal(decimal.RequireFromString("1.25")))
			},
		},
		{
			name:  "No rate on either side",
			base:  currencypkg.GBP,
			quote: currencypkg.KZT,
			buildStubs: func(repo *MockRepo, cache *MockCache) {
				cache.EXPECT().Get(gomock.Any(), gomock.Any()).
					Times(1).
					Return("", nil)
				repo.EXPECT().GetLatest(gomock.Any(), gomock.Eq(currencypkg.GBP), gomock.Eq(currencypkg.KZT)).
					Times(1).
					Return(domain.FxRate{}, domain.ErrRateUnavailable)
				repo.EXPECT().GetLatest(gomock.Any(), gomock.Eq(currencypkg.KZT), gomock.Eq(currencypkg.GBP)).
					Times(1).
					Return(domain.FxRate{}, domain.ErrRateUnavailable)
			},
			checkResponse: func(rate decimal.Decimal, err error) {
				require.EqualError(t, err, domain.ErrRateUnavailable.Error())
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := NewMockRepo(ctrl)
			cache := NewMockCache(ctrl)
			tc.buildStubs(repo, cache)

			service := New(repo, cache, "", testCacheTTL)

			tc.checkResponse(service.GetRate(context.Background(), tc.base, tc.quote))
		})
	}
}

func TestConvert(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := NewMockRepo(ctrl)
	cache := NewMockCache(ctrl)

	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return("0.92", nil)

	service := New(repo, cache, "", testCacheTTL)

	converted, rate, err := service.Convert(context.Background(),
		decimal.RequireFromString("100"), currencypkg.USD, currencypkg.EUR)
	require.NoError(t, err)
	require.True(t, converted.Equal(decimal.RequireFromString("92")))
	require.True(t, rate.Equal(decimal.RequireFromString("0.92")))
}

// Converting an amount to another currency and back through the inverted
// reverse rate lands within one minor-unit step of the original, since each
// leg rounds to scale 2 at most once.
func TestConvertRoundTrip(t *testing.T) {
	testCases := []struct {
		name   string
		amount string
		rate   string
	}{
		{name: "EvenRate", amount: "100", rate: "0.92"},
		{name: "SmallAmount", amount: "0.03", rate: "0.92"},
		{name: "LongRate", amount: "33.33", rate: "1.0867"},
		{name: "StrongRate", amount: "250", rate: "147.06"},
		{name: "OddAmount", amount: "19.99", rate: "1.1326"},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := NewMockRepo(ctrl)
			cache := NewMockCache(ctrl)

			rate := decimal.RequireFromString(tc.rate)

			// Both directions resolve from the one stored USD->EUR quote:
			// forward directly, backward via the inverted reverse lookup.
			cache.EXPECT().Get(gomock.Any(), gomock.Any()).Times(2).Return("", nil)
			cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(2).Return(nil)
			repo.EXPECT().GetLatest(gomock.Any(), currencypkg.USD, currencypkg.EUR).
				Times(2).
				Return(domain.FxRate{Rate: rate}, nil)
			repo.EXPECT().GetLatest(gomock.Any(), currencypkg.EUR, currencypkg.USD).
				Times(1).
				Return(domain.FxRate{}, domain.ErrRateUnavailable)

			service := New(repo, cache, "", testCacheTTL)

			amount := decimal.RequireFromString(tc.amount)

			converted, _, err := service.Convert(context.Background(), amount, currencypkg.USD, currencypkg.EUR)
			require.NoError(t, err)

			back, _, err := service.Convert(context.Background(), converted, currencypkg.EUR, currencypkg.USD)
			require.NoError(t, err)

			step := decimal.RequireFromString("0.01")
			require.True(t, back.Sub(amount).Abs().LessThanOrEqual(step),
				"round trip drifted: %s -> %s -> %s", amount, converted, back)
		})
	}
}

func TestUpdateRates(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/latest", r.URL.Path)
			require.Equal(t, currencypkg.USD, r.URL.Query().Get("base"))

			w.Header().Set("Content-Type", "application/json")
			_, err := w.Write([]byte(`{"base":"USD","rates":{"EUR":0.92,"USD":1}}`))
			require.NoError(t, err)
		}))
		defer server.Close()

		repo := NewMockRepo(ctrl)
		repo.EXPECT().Create(gomock.Any(), gomock.Eq(currencypkg.USD), gomock.Eq(currencypkg.EUR),
			gomock.Any(), gomock.Any(), gomock.Eq("frankfurter.app")).
			Times(1).
			Return(domain.FxRate{}, nil)

		service := New(repo, NewMockCache(ctrl), server.URL, testCacheTTL)

		count, err := service.UpdateRates(context.Background(), currencypkg.USD)
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})

	t.Run("API error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		service := New(NewMockRepo(ctrl), NewMockCache(ctrl), server.URL, testCacheTTL)

		_, err := service.UpdateRates(context.Background(), currencypkg.USD)
		require.EqualError(t, err, domain.ErrRateUnavailable.Error())
	})
}
