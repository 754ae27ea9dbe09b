// Package accountdelivery manages delivery layer of accounts.
package accountdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/fx-bank/internal/domain"
	"github.com/go-petr/fx-bank/internal/middleware"
	"github.com/go-petr/fx-bank/pkg/errorspkg"
	"github.com/go-petr/fx-bank/pkg/tokenpkg"
	"github.com/go-petr/fx-bank/pkg/web"
)

// Service provides service layer interface needed by account delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package accountdelivery
type Service interface {
	Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error)
	Get(ctx context.Context, id int32) (domain.Account, error)
	List(ctx context.Context, owner string, limit, offset int32) ([]domain.Account, error)
	ListEntries(ctx context.Context, owner string, accountID, limit, offset int32) ([]domain.LedgerEntry, error)
}

// Handler facilitates account delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns account handler.
func NewHandler(as Service) *Handler {
	return &Handler{service: as}
}

type data struct {
	Account domain.Account `json:"account"`
}

type response struct {
	Data data `json:"data,omitempty"`
}

type createRequest struct {
	Currency             string `json:"currency" binding:"required,currency"`
	FixedCommission      string `json:"fixed_commission"`
	PercentageCommission string `json:"percentage_commission"`
}

// Create handles http request to open an account.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, validationError(err))

		return
	}

	authPayload := gctx.MustGet(middleware.AuthorizationPayloadKey).(*tokenpkg.Payload)

	arg := domain.CreateAccountParams{
		Owner:    authPayload.Username,
		Currency: req.Currency,
	}

	var err error
	if arg.FixedCommission, err = parseOverride(req.FixedCommission); err != nil {
		gctx.JSON(http.StatusBadRequest, web.Error(domain.ErrInvalidAmount))
		return
	}

	if arg.PercentageCommission, err = parseOverride(req.PercentageCommission); err != nil {
		gctx.JSON(http.StatusBadRequest, web.Error(domain.ErrInvalidAmount))
		return
	}

	createdAccount, err := h.service.Create(ctx, arg)
	if err != nil {
		switch err {
		case domain.ErrCurrencyNotSupported:
			gctx.JSON(http.StatusBadRequest, web.Error(err))
			return
		case domain.ErrCurrencyAlreadyExists:
			gctx.JSON(http.StatusConflict, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{createdAccount}})
}

type getRequest struct {
	ID int32 `uri:"id" binding:"required,min=1"`
}

// Get handles http request to get an account.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req getRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, validationError(err))

		return
	}

	account, err := h.service.Get(ctx, req.ID)
	if err != nil {
		if err == domain.ErrAccountNotFound {
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	authPayload := gctx.MustGet(middleware.AuthorizationPayloadKey).(*tokenpkg.Payload)
	if account.Owner != authPayload.Username {
		gctx.JSON(http.StatusUnauthorized, web.Error(domain.ErrInvalidOwner))
		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{account}})
}

type listRequest struct {
	PageID   int32 `form:"page_id" binding:"required,min=1"`
	PageSize int32 `form:"page_size" binding:"required,min=1,max=100"`
}

type listData struct {
	Accounts []domain.Account `json:"accounts"`
}

type listResponse struct {
	Data listData `json:"data,omitempty"`
}

// List handles http request to list the user's accounts.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req listRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, validationError(err))

		return
	}

	authPayload := gctx.MustGet(middleware.AuthorizationPayloadKey).(*tokenpkg.Payload)

	accounts, err := h.service.List(ctx, authPayload.Username, req.PageSize, (req.PageID-1)*req.PageSize)
	if err != nil {
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
		return
	}

	gctx.JSON(http.StatusOK, listResponse{Data: listData{accounts}})
}

type entriesData struct {
	Entries []domain.LedgerEntry `json:"entries"`
}

type entriesResponse struct {
	Data entriesData `json:"data,omitempty"`
}

// ListEntries handles http request to list the account's ledger entries as a
// statement, newest first.
func (h *Handler) ListEntries(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var uriReq getRequest
	if err := gctx.ShouldBindUri(&uriReq); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, validationError(err))

		return
	}

	var req listRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, validationError(err))

		return
	}

	authPayload := gctx.MustGet(middleware.AuthorizationPayloadKey).(*tokenpkg.Payload)

	entries, err := h.service.ListEntries(ctx, authPayload.Username,
		uriReq.ID, req.PageSize, (req.PageID-1)*req.PageSize)
	if err != nil {
		switch err {
		case domain.ErrAccountNotFound:
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		case domain.ErrInvalidOwner:
			gctx.JSON(http.StatusUnauthorized, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, entriesResponse{Data: entriesData{entries}})
}

func parseOverride(raw string) (decimal.NullDecimal, error) {
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}

	value, err := decimal.NewFromString(raw)
	if err != nil || value.IsNegative() {
		return decimal.NullDecimal{}, domain.ErrInvalidAmount
	}

	return decimal.NullDecimal{Decimal: value, Valid: true}, nil
}

func validationError(err error) web.JSONError {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		field := ve[0]
		return web.ErrorMsg(field.Field() + web.GetErrorMsg(field))
	}

	return web.Error(err)
}
