// Package transferservice manages business logic layer of transfers.
package transferservice

import (
	"context"
	"errors"
	"time"

	"github.com/go-petr/fx-bank/internal/domain"
	"github.com/go-petr/fx-bank/pkg/errorspkg"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repo provides data access layer interface needed by transfer service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package transferservice
type Repo interface {
	Admit(ctx context.Context, t domain.Transfer) (domain.Transfer, error)
	Get(ctx context.Context, id int64) (domain.Transfer, error)
	List(ctx context.Context, arg domain.ListTransfersParams) ([]domain.Transfer, error)
	MarkProcessing(ctx context.Context, id int64) (domain.Transfer, bool, error)
	MarkFailed(ctx context.Context, id int64, message string) (domain.Transfer, error)
	Execute(ctx context.Context, t domain.Transfer) (domain.TransferTxResult, error)
}

// KeyRepo provides idempotency record lookups.
type KeyRepo interface {
	Get(ctx context.Context, key string) (domain.IdempotencyRecord, bool, error)
}

// AccountService provides account access needed by transfer service layer.
type AccountService interface {
	Get(ctx context.Context, id int32) (domain.Account, error)
}

// RateService is the rate oracle consumed as a black box.
type RateService interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, decimal.Decimal, error)
}

// TaskQueue publishes durable execution messages.
type TaskQueue interface {
	Publish(ctx context.Context, queue string, body any) error
}

// Auditor records audit trail actions, fire-and-forget.
type Auditor interface {
	Record(ctx context.Context, action, entityType string, entityID int64, actor string, oldValues, newValues any)
}

// ExecuteMessage is the queue message scheduling one transfer execution.
type ExecuteMessage struct {
	TransferID int64 `json:"transfer_id"`
}

// Config holds transfer service settings.
type Config struct {
	Queue                       string
	RateTimeout                 time.Duration
	DefaultFixedCommission      decimal.Decimal
	DefaultPercentageCommission decimal.Decimal
}

// Service facilitates transfer admission and execution logic.
type Service struct {
	repo     Repo
	keys     KeyRepo
	accounts AccountService
	rates    RateService
	queue    TaskQueue
	audit    Auditor
	config   Config
}

// New returns transfer Service.
func New(repo Repo, keys KeyRepo, accounts AccountService, rates RateService,
	queue TaskQueue, audit Auditor, config Config) *Service {
	return &Service{
		repo:     repo,
		keys:     keys,
		accounts: accounts,
		rates:    rates,
		queue:    queue,
		audit:    audit,
		config:   config,
	}
}

// Commission computes fixed + percentage x amount rounded to the minor-unit
// scale. Percentage is a fraction in [0, 1].
func Commission(amount, fixed, percentage decimal.Decimal) decimal.Decimal {
	return fixed.Add(amount.Mul(percentage)).Round(2)
}

// Admit validates and quotes the transfer request, persists it in created
// status and schedules its asynchronous execution.
//
// A request bearing an already recorded idempotency key is a pure read: the
// previously created transfer is returned and nothing else happens.
func (s *Service) Admit(ctx context.Context, owner string, arg domain.CreateTransferParams) (domain.Transfer, error) {
	l := zerolog.Ctx(ctx)

	if arg.IdempotencyKey != "" {
		existing, found, err := s.recordedTransfer(ctx, owner, arg.IdempotencyKey)
		if err != nil {
			return domain.Transfer{}, err
		}

		if found {
			return existing, nil
		}
	}

	fromAmount, toAmount, err := parseAmounts(arg.FromAmount, arg.ToAmount)
	if err != nil {
		l.Info().Err(err).Send()
		return domain.Transfer{}, err
	}

	fromAccount, err := s.accounts.Get(ctx, arg.FromAccountID)
	if err != nil {
		l.Info().Err(err).Send()
		return domain.Transfer{}, err
	}

	if fromAccount.Owner != owner {
		return domain.Transfer{}, domain.ErrInvalidOwner
	}

	toAccount, err := s.accounts.Get(ctx, arg.ToAccountID)
	if err != nil {
		l.Info().Err(err).Send()
		return domain.Transfer{}, err
	}

	fromAmount, toAmount, rate, err := s.quote(ctx, fromAmount, toAmount, fromAccount.Currency, toAccount.Currency)
	if err != nil {
		l.Info().Err(err).Send()
		return domain.Transfer{}, err
	}

	commission := Commission(fromAmount, s.fixedFor(fromAccount), s.percentageFor(fromAccount))

	totalDebit := fromAmount.Add(commission)
	if fromAccount.Balance.LessThan(totalDebit) {
		return domain.Transfer{}, domain.ErrInsufficientBalance
	}

	transfer := domain.Transfer{
		FromAccountID:    fromAccount.ID,
		ToAccountID:      toAccount.ID,
		FromCurrency:     fromAccount.Currency,
		ToCurrency:       toAccount.Currency,
		FromAmount:       fromAmount,
		ToAmount:         toAmount,
		ExchangeRate:     rate,
		CommissionAmount: commission,
		Status:           domain.StatusCreated,
		Owner:            owner,
		IdempotencyKey:   arg.IdempotencyKey,
		Description:      arg.Description,
	}

	created, err := s.repo.Admit(ctx, transfer)
	if err != nil {
		if err == domain.ErrKeyConflict && arg.IdempotencyKey != "" {
			// Lost the insert race; the winner's transfer is the answer.
			existing, found, rerr := s.recordedTransfer(ctx, owner, arg.IdempotencyKey)
			if rerr != nil {
				return domain.Transfer{}, rerr
			}

			if found {
				return existing, nil
			}
		}

		l.Error().Err(err).Send()

		return domain.Transfer{}, err
	}

	if err := s.schedule(ctx, created); err != nil {
		return domain.Transfer{}, err
	}

	s.audit.Record(ctx, "transfer_created", "transfer", created.ID, owner, nil, created)

	return created, nil
}

// Execute applies one scheduled transfer. It is safe under at-least-once
// delivery: only a transfer still in created status proceeds; any other
// status makes the call a no-op.
func (s *Service) Execute(ctx context.Context, transferID int64) error {
	l := zerolog.Ctx(ctx)

	transfer, advanced, err := s.repo.MarkProcessing(ctx, transferID)
	if err != nil {
		if err == domain.ErrTransferNotFound {
			// Messages are published only after the transfer row is
			// committed, so this is a dropped anomaly, not a retry case.
			l.Error().Int64("transfer_id", transferID).Msg("execution message for unknown transfer")
			return nil
		}

		return err
	}

	if !advanced {
		l.Info().Int64("transfer_id", transferID).Str("status", string(transfer.Status)).
			Msg("transfer not in created status, skipping redelivery")

		return nil
	}

	result, err := s.repo.Execute(ctx, transfer)
	if err != nil {
		failed, ferr := s.repo.MarkFailed(ctx, transfer.ID, err.Error())
		if ferr != nil {
			l.Error().Err(ferr).Int64("transfer_id", transfer.ID).Msg("cannot mark transfer failed")
			return ferr
		}

		l.Info().Err(err).Int64("transfer_id", transfer.ID).Msg("transfer failed")
		s.audit.Record(ctx, "transfer_failed", "transfer", transfer.ID, "", transfer, failed)

		return nil
	}

	s.audit.Record(ctx, "transfer_completed", "transfer", transfer.ID, "", transfer, result.Transfer)

	return nil
}

// Get returns the user's transfer with the given id.
func (s *Service) Get(ctx context.Context, owner string, id int64) (domain.Transfer, error) {
	transfer, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Transfer{}, err
	}

	if transfer.Owner != owner {
		return domain.Transfer{}, domain.ErrTransferNotFound
	}

	return transfer, nil
}

// List returns the user's transfers, newest first.
func (s *Service) List(ctx context.Context, arg domain.ListTransfersParams) ([]domain.Transfer, error) {
	return s.repo.List(ctx, arg)
}

func (s *Service) recordedTransfer(ctx context.Context, owner, key string) (domain.Transfer, bool, error) {
	record, found, err := s.keys.Get(ctx, key)
	if err != nil {
		return domain.Transfer{}, false, err
	}

	if !found {
		return domain.Transfer{}, false, nil
	}

	if record.Owner != owner {
		return domain.Transfer{}, false, domain.ErrKeyConflict
	}

	transfer, err := s.repo.Get(ctx, record.TransferID)
	if err != nil {
		return domain.Transfer{}, false, err
	}

	return transfer, true, nil
}

// quote fills in the derived amount and the exchange rate. When the client
// specified the destination amount, the source amount comes from converting
// destination to source and the stored rate is the reciprocal of that same
// quote, keeping both directions on one market rate.
func (s *Service) quote(ctx context.Context, fromAmount, toAmount decimal.Decimal,
	fromCurrency, toCurrency string) (decimal.Decimal, decimal.Decimal, decimal.Decimal, error) {
	rctx, cancel := context.WithTimeout(ctx, s.config.RateTimeout)
	defer cancel()

	if !fromAmount.IsZero() {
		toAmount, rate, err := s.rates.Convert(rctx, fromAmount, fromCurrency, toCurrency)
		if err != nil {
			return decimal.Zero, decimal.Zero, decimal.Zero, mapRateErr(err)
		}

		return fromAmount, toAmount, rate, nil
	}

	fromAmount, inverse, err := s.rates.Convert(rctx, toAmount, toCurrency, fromCurrency)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, mapRateErr(err)
	}

	if inverse.IsZero() {
		return decimal.Zero, decimal.Zero, decimal.Zero, domain.ErrRateUnavailable
	}

	rate := decimal.NewFromInt(1).Div(inverse)

	return fromAmount, toAmount, rate, nil
}

func (s *Service) schedule(ctx context.Context, transfer domain.Transfer) error {
	l := zerolog.Ctx(ctx)

	err := s.queue.Publish(ctx, s.config.Queue, ExecuteMessage{TransferID: transfer.ID})
	if err == nil {
		return nil
	}

	l.Error().Err(err).Int64("transfer_id", transfer.ID).Msg("cannot schedule transfer execution")

	// A created transfer with no execution message would be stranded;
	// fail it so the state machine and the audit trail stay honest.
	failed, ferr := s.repo.MarkFailed(ctx, transfer.ID, "execution scheduling failed")
	if ferr != nil {
		l.Error().Err(ferr).Int64("transfer_id", transfer.ID).Send()
		return ferr
	}

	s.audit.Record(ctx, "transfer_failed", "transfer", transfer.ID, transfer.Owner, transfer, failed)

	return errorspkg.ErrInternal
}

func (s *Service) fixedFor(account domain.Account) decimal.Decimal {
	if account.FixedCommission.Valid {
		return account.FixedCommission.Decimal
	}

	return s.config.DefaultFixedCommission
}

func (s *Service) percentageFor(account domain.Account) decimal.Decimal {
	if account.PercentageCommission.Valid {
		return account.PercentageCommission.Decimal
	}

	return s.config.DefaultPercentageCommission
}

func parseAmounts(fromRaw, toRaw string) (decimal.Decimal, decimal.Decimal, error) {
	if (fromRaw == "") == (toRaw == "") {
		return decimal.Zero, decimal.Zero, domain.ErrAmbiguousAmount
	}

	parse := func(raw string) (decimal.Decimal, error) {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, domain.ErrInvalidAmount
		}

		if amount.LessThanOrEqual(decimal.Zero) {
			return decimal.Zero, domain.ErrNegativeAmount
		}

		return amount.Round(2), nil
	}

	if fromRaw != "" {
		fromAmount, err := parse(fromRaw)
		return fromAmount, decimal.Zero, err
	}

	toAmount, err := parse(toRaw)

	return decimal.Zero, toAmount, err
}

func mapRateErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrRateUnavailable
	}

	return err
}
