// Package fxdelivery manages delivery layer of exchange rates.
package fxdelivery

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/fx-bank/internal/domain"
	"github.com/go-petr/fx-bank/pkg/errorspkg"
	"github.com/go-petr/fx-bank/pkg/web"
)

// Service provides service layer interface needed by fx delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package fxdelivery
type Service interface {
	GetRate(ctx context.Context, base, quote string) (decimal.Decimal, error)
	Currencies(ctx context.Context) ([]string, error)
	UpdateRates(ctx context.Context, base string) (int, error)
}

// Handler facilitates fx delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns fx handler.
func NewHandler(fs Service) *Handler {
	return &Handler{service: fs}
}

type rateRequest struct {
	Base  string `uri:"base" binding:"required,currency"`
	Quote string `uri:"quote" binding:"required,currency"`
}

type rateData struct {
	Base  string          `json:"base"`
	Quote string          `json:"quote"`
	Rate  decimal.Decimal `json:"rate"`
}

// GetRate handles http request to get the current rate for a pair.
func (h *Handler) GetRate(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req rateRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Error(domain.ErrCurrencyNotSupported))

		return
	}

	rate, err := h.service.GetRate(ctx, req.Base, req.Quote)
	if err != nil {
		if err == domain.ErrRateUnavailable {
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: rateData{Base: req.Base, Quote: req.Quote, Rate: rate}})
}

// ListCurrencies handles http request to list currencies with stored rates.
func (h *Handler) ListCurrencies(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	currencies, err := h.service.Currencies(ctx)
	if err != nil {
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: currencies})
}

type refreshRequest struct {
	Base string `json:"base" binding:"required,currency"`
}

// Refresh handles http request to refresh stored rates from the rate API.
func (h *Handler) Refresh(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req refreshRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Error(domain.ErrCurrencyNotSupported))

		return
	}

	count, err := h.service.UpdateRates(ctx, req.Base)
	if err != nil {
		if err == domain.ErrRateUnavailable {
			gctx.JSON(http.StatusServiceUnavailable, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: gin.H{"updated": count}})
}
