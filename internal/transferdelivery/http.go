// Package transferdelivery manages delivery layer of transfers.
package transferdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/go-petr/fx-bank/internal/domain"
	"github.com/go-petr/fx-bank/internal/middleware"
	"github.com/go-petr/fx-bank/pkg/errorspkg"
	"github.com/go-petr/fx-bank/pkg/tokenpkg"
	"github.com/go-petr/fx-bank/pkg/web"
)

// IdempotencyKeyHeader carries the client idempotency key of a transfer request.
const IdempotencyKeyHeader = "X-Idempotency-Key"

// Service provides service layer interface needed by transfer delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package transferdelivery
type Service interface {
	Admit(ctx context.Context, owner string, arg domain.CreateTransferParams) (domain.Transfer, error)
	Get(ctx context.Context, owner string, id int64) (domain.Transfer, error)
	List(ctx context.Context, arg domain.ListTransfersParams) ([]domain.Transfer, error)
}

// Handler facilitates transfer delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns transfer handler.
func NewHandler(ts Service) *Handler {
	return &Handler{service: ts}
}

type createRequest struct {
	FromAccountID int32  `json:"from_account_id" binding:"required,min=1"`
	ToAccountID   int32  `json:"to_account_id" binding:"required,min=1"`
	FromAmount    string `json:"from_amount"`
	ToAmount      string `json:"to_amount"`
	Description   string `json:"description"`
}

type data struct {
	Transfer domain.Transfer `json:"transfer"`
}

type response struct {
	Data data `json:"data,omitempty"`
}

// Create handles http request to admit a transfer between two accounts.
//
// The transfer is returned in created status; execution happens
// asynchronously and its outcome is visible through Get.
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

	arg := domain.CreateTransferParams{
		FromAccountID:  req.FromAccountID,
		ToAccountID:    req.ToAccountID,
		FromAmount:     req.FromAmount,
		ToAmount:       req.ToAmount,
		IdempotencyKey: gctx.GetHeader(IdempotencyKeyHeader),
		Description:    req.Description,
	}

	transfer, err := h.service.Admit(ctx, authPayload.Username, arg)
	if err != nil {
		l.Info().Err(err).Send()

		switch err {
		case domain.ErrInvalidOwner:
			gctx.JSON(http.StatusUnauthorized, web.Error(err))
			return
		case domain.ErrAccountNotFound:
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		case domain.ErrKeyConflict:
			gctx.JSON(http.StatusConflict, web.Error(err))
			return
		case domain.ErrRateUnavailable:
			gctx.JSON(http.StatusServiceUnavailable, web.Error(err))
			return
		case
			domain.ErrInvalidAmount,
			domain.ErrNegativeAmount,
			domain.ErrAmbiguousAmount,
			domain.ErrInsufficientBalance:
			gctx.JSON(http.StatusBadRequest, web.Error(err))

			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{transfer}})
}

type getRequest struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

// Get handles http request to get a transfer.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req getRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, validationError(err))

		return
	}

	authPayload := gctx.MustGet(middleware.AuthorizationPayloadKey).(*tokenpkg.Payload)

	transfer, err := h.service.Get(ctx, authPayload.Username, req.ID)
	if err != nil {
		if err == domain.ErrTransferNotFound {
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{transfer}})
}

type listRequest struct {
	PageID   int32 `form:"page_id" binding:"required,min=1"`
	PageSize int32 `form:"page_size" binding:"required,min=1,max=100"`
}

type listData struct {
	Transfers []domain.Transfer `json:"transfers"`
}

type listResponse struct {
	Data listData `json:"data,omitempty"`
}

// List handles http request to list the user's transfers.
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

	arg := domain.ListTransfersParams{
		Owner:  authPayload.Username,
		Limit:  req.PageSize,
		Offset: (req.PageID - 1) * req.PageSize,
	}

	transfers, err := h.service.List(ctx, arg)
	if err != nil {
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
		return
	}

	gctx.JSON(http.StatusOK, listResponse{Data: listData{transfers}})
}

func validationError(err error) web.JSONError {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		field := ve[0]
		return web.ErrorMsg(field.Field() + web.GetErrorMsg(field))
	}

	return web.Error(err)
}
