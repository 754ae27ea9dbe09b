package fxdelivery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/fx-bank/internal/domain"
	"github.com/go-petr/fx-bank/pkg/currencypkg"
	"github.com/go-petr/fx-bank/pkg/errorspkg"
)

func newTestServer(t *testing.T, fxService *MockService) *gin.Engine {
	t.Helper()

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		err := v.RegisterValidation("currency", currencypkg.ValidCurrency)
		require.NoError(t, err)
	}

	handler := NewHandler(fxService)

	server := gin.Default()
	server.GET("/rates/:base/:quote", handler.GetRate)
	server.GET("/currencies", handler.ListCurrencies)
	server.POST("/rates/refresh", handler.Refresh)

	return server
}

func TestGetRateAPI(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fxService := NewMockService(ctrl)
	server := newTestServer(t, fxService)

	testCases := []struct {
		name          string
		base          string
		quote         string
		buildStubs    func(fxService *MockService)
		checkResponse func(recorder *httptest.ResponseRecorder)
	}{
		{
			name:  "UnsupportedCurrency",
			base:  "XAU",
			quote: currencypkg.EUR,
			buildStubs: func(fxService *MockService) {
				fxService.EXPECT().GetRate(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
			},
		},
		{
			name:  "RateUnavailable",
			base:  currencypkg.USD,
			quote: currencypkg.EUR,
			buildStubs: func(fxService *MockService) {
				fxService.EXPECT().
					GetRate(gomock.Any(), gomock.Eq(currencypkg.USD), gomock.Eq(currencypkg.EUR)).
					Times(1).
					Return(decimal.Zero, domain.ErrRateUnavailable)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusNotFound, recorder.Code)
			},
		},
		{
			name:  "OK",
			base:  currencypkg.USD,
			quote: currencypkg.EUR,
			buildStubs: func(fxService *MockService) {
				fxService.EXPECT().
					GetRate(gomock.Any(), gomock.Eq(currencypkg.USD), gomock.Eq(currencypkg.EUR)).
					Times(1).
					Return(decimal.RequireFromString("0.92"), nil)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			tc.buildStubs(fxService)

			recorder := httptest.NewRecorder()

			req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("/rates/%s/%s", tc.base, tc.quote), nil)
			require.NoError(t, err)

			server.ServeHTTP(recorder, req)
			tc.checkResponse(recorder)
		})
	}
}

func TestListCurrenciesAPI(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fxService := NewMockService(ctrl)
	server := newTestServer(t, fxService)

	fxService.EXPECT().
		Currencies(gomock.Any()).
		Times(1).
		Return([]string{currencypkg.EUR, currencypkg.USD}, nil)

	recorder := httptest.NewRecorder()

	req, err := http.NewRequest(http.MethodGet, "/currencies", nil)
	require.NoError(t, err)

	server.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestRefreshAPI(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fxService := NewMockService(ctrl)
	server := newTestServer(t, fxService)

	testCases := []struct {
		name          string
		requestBody   gin.H
		buildStubs    func(fxService *MockService)
		checkResponse func(recorder *httptest.ResponseRecorder)
	}{
		{
			name:        "APIDown",
			requestBody: gin.H{"base": currencypkg.USD},
			buildStubs: func(fxService *MockService) {
				fxService.EXPECT().
					UpdateRates(gomock.Any(), gomock.Eq(currencypkg.USD)).
					Times(1).
					Return(0, domain.ErrRateUnavailable)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
			},
		},
		{
			name:        "InternalError",
			requestBody: gin.H{"base": currencypkg.USD},
			buildStubs: func(fxService *MockService) {
				fxService.EXPECT().
					UpdateRates(gomock.Any(), gomock.Eq(currencypkg.USD)).
					Times(1).
					Return(0, errorspkg.ErrInternal)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusInternalServerError, recorder.Code)
			},
		},
		{
			name:        "OK",
			requestBody: gin.H{"base": currencypkg.USD},
			buildStubs: func(fxService *MockService) {
				fxService.EXPECT().
					UpdateRates(gomock.Any(), gomock.Eq(currencypkg.USD)).
					Times(1).
					Return(4, nil)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			tc.buildStubs(fxService)

			recorder := httptest.NewRecorder()

			body, err := json.Marshal(tc.requestBody)
			require.NoError(t, err)

			req, err := http.NewRequest(http.MethodPost, "/rates/refresh", bytes.NewReader(body))
			require.NoError(t, err)

			server.ServeHTTP(recorder, req)
			tc.checkResponse(recorder)
		})
	}
}
