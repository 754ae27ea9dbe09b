// Package accountservice manages business logic layer of accounts.
package accountservice

import (
	"context"

	"github.com/go-petr/fx-bank/internal/domain"
	"github.com/go-petr/fx-bank/pkg/currencypkg"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repo provides data access layer interface needed by account service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package accountservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error)
	Get(ctx context.Context, id int32) (domain.Account, error)
	List(ctx context.Context, owner string, limit, offset int32) ([]domain.Account, error)
}

// LedgerRepo provides the ledger listing needed for account statements.
type LedgerRepo interface {
	ListByAccount(ctx context.Context, accountID int32, limit, offset int32) ([]domain.LedgerEntry, error)
}

// Service facilitates account service layer logic.
type Service struct {
	repo   Repo
	ledger LedgerRepo
}

// New returns account Service.
func New(repo Repo, ledger LedgerRepo) *Service {
	return &Service{repo: repo, ledger: ledger}
}

// Create opens a zero-balance account for the owner in the given currency.
// The currency is immutable afterwards and at most one account may exist per
// (owner, currency) pair.
func (s *Service) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	if !currencypkg.IsSupportedCurrency(arg.Currency) {
		return domain.Account{}, domain.ErrCurrencyNotSupported
	}

	arg.Balance = decimal.Zero.Round(2)

	account, err := s.repo.Create(ctx, arg)
	if err != nil {
		l.Info().Err(err).Send()
		return domain.Account{}, err
	}

	return account, nil
}

// Get returns the account with the given id.
func (s *Service) Get(ctx context.Context, id int32) (domain.Account, error) {
	return s.repo.Get(ctx, id)
}

// List returns the specified number of accounts for the given user.
func (s *Service) List(ctx context.Context, owner string, limit, offset int32) ([]domain.Account, error) {
	return s.repo.List(ctx, owner, limit, offset)
}

// ListEntries returns the account's ledger entries, newest first. The account
// must belong to the requesting user.
func (s *Service) ListEntries(ctx context.Context, owner string, accountID, limit, offset int32) ([]domain.LedgerEntry, error) {
	account, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if account.Owner != owner {
		return nil, domain.ErrInvalidOwner
	}

	return s.ledger.ListByAccount(ctx, accountID, limit, offset)
}
