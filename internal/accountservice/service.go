// Package accountservice manages business logic layer of accounts.
package accountservice

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jameelag1995/banking-backend/internal/domain"
	"github.com/jameelag1995/banking-backend/pkg/errorspkg"
	"github.com/jameelag1995/banking-backend/pkg/passpkg"
)

// maxFilterAmount is the default upper bound of a filter range.
var maxFilterAmount = decimal.NewFromInt(math.MaxInt64)

// Repo provides data access layer interface needed by account service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package accountservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error)
	Get(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	ListByStatus(ctx context.Context, active bool) ([]domain.Account, error)
	ListByBalanceField(ctx context.Context, field domain.BalanceField, min, max decimal.Decimal) ([]domain.Account, error)
	AddToBalanceField(ctx context.Context, id string, field domain.BalanceField, amount decimal.Decimal) (domain.Account, error)
	SetActive(ctx context.Context, id string, active bool) (domain.Account, error)
	Delete(ctx context.Context, id string) error
	Withdraw(ctx context.Context, id string, amount decimal.Decimal) (domain.Account, error)
	Transfer(ctx context.Context, arg domain.TransferParams) (domain.TransferResult, error)
}

// EventPublisher publishes completed funds movements to the events stream.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.TransactionEvent) error
}

// Service facilitates account service layer logic.
type Service struct {
	repo          Repo
	events        EventPublisher
	minimumAmount decimal.Decimal
}

// New returns account service struct to manage account bussines logic.
// The events publisher may be nil, in which case no events are emitted.
func New(ar Repo, events EventPublisher, minimumAmount decimal.Decimal) *Service {
	return &Service{
		repo:          ar,
		events:        events,
		minimumAmount: minimumAmount,
	}
}

// CreateParams is the delivery-level input to create an account.
type CreateParams struct {
	ExternalID string
	FirstName  string
	LastName   string
	Email      string
	Password   string
	IsAdmin    bool
	Cash       decimal.Decimal
	Credit     decimal.Decimal
}

// Create validates, hashes the password and persists a new account.
// The email is lowercase-normalized before storage.
func (s *Service) Create(ctx context.Context, arg CreateParams) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	if arg.Cash.IsNegative() || arg.Credit.IsNegative() {
		return domain.Account{}, domain.ErrInvalidAmount
	}

	hashedPassword, err := passpkg.Hash(arg.Password)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.Account{}, errorspkg.ErrInternal
	}

	account, err := s.repo.Create(ctx, domain.CreateAccountParams{
		ExternalID:     arg.ExternalID,
		FirstName:      arg.FirstName,
		LastName:       arg.LastName,
		Email:          strings.ToLower(arg.Email),
		HashedPassword: hashedPassword,
		IsAdmin:        arg.IsAdmin,
		Cash:           arg.Cash,
		Credit:         arg.Credit,
	})
	if err != nil {
		return domain.Account{}, err
	}

	return account, nil
}

// Get returns the account with the given id.
func (s *Service) Get(ctx context.Context, id string) (domain.Account, error) {
	return s.repo.Get(ctx, id)
}

// GetByEmail returns the account that holds the given email.
func (s *Service) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	return s.repo.GetByEmail(ctx, strings.ToLower(email))
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]domain.Account, error) {
	return s.repo.List(ctx)
}

// ListByStatus returns accounts filtered by activation state.
func (s *Service) ListByStatus(ctx context.Context, active bool) ([]domain.Account, error) {
	return s.repo.ListByStatus(ctx, active)
}

// Deposit adds amount to the cash of an active account. The activity check
// and the increment are a single conditional update against the store.
func (s *Service) Deposit(ctx context.Context, id string, amount decimal.Decimal) (domain.Account, error) {
	if err := s.validAmount(amount); err != nil {
		return domain.Account{}, err
	}

	account, err := s.repo.AddToBalanceField(ctx, id, domain.FieldCash, amount)
	if err != nil {
		return domain.Account{}, err
	}

	s.publish(ctx, domain.TransactionEvent{
		Type:      domain.TransactionDeposit,
		AccountID: account.ID,
		Amount:    amount,
	})

	return account, nil
}

// UpdateCredit adds amount to the credit of an active account. Credit has
// no upper bound and no credit-limit model.
func (s *Service) UpdateCredit(ctx context.Context, id string, amount decimal.Decimal) (domain.Account, error) {
	if err := s.validAmount(amount); err != nil {
		return domain.Account{}, err
	}

	account, err := s.repo.AddToBalanceField(ctx, id, domain.FieldCredit, amount)
	if err != nil {
		return domain.Account{}, err
	}

	s.publish(ctx, domain.TransactionEvent{
		Type:      domain.TransactionCreditUpdate,
		AccountID: account.ID,
		Amount:    amount,
	})

	return account, nil
}

// Withdraw removes amount from an active account, consuming cash first and
// any shortfall from credit. The account is left unmodified when cash plus
// credit cannot cover the amount.
func (s *Service) Withdraw(ctx context.Context, id string, amount decimal.Decimal) (domain.Account, error) {
	if err := s.validAmount(amount); err != nil {
		return domain.Account{}, err
	}

	account, err := s.repo.Withdraw(ctx, id, amount)
	if err != nil {
		return domain.Account{}, err
	}

	s.publish(ctx, domain.TransactionEvent{
		Type:      domain.TransactionWithdrawal,
		AccountID: account.ID,
		Amount:    amount,
	})

	return account, nil
}

// Transfer moves amount between two active accounts. The sender is debited
// with the cash-then-credit policy; the receiver's credit grows by the full
// requested amount, so total funds are conserved.
func (s *Service) Transfer(ctx context.Context, arg domain.TransferParams) (domain.TransferResult, error) {
	if err := s.validAmount(arg.Amount); err != nil {
		return domain.TransferResult{}, err
	}

	if arg.SenderID == arg.ReceiverID {
		return domain.TransferResult{}, domain.ErrSameAccount
	}

	result, err := s.repo.Transfer(ctx, arg)
	if err != nil {
		return domain.TransferResult{}, err
	}

	s.publish(ctx, domain.TransactionEvent{
		Type:           domain.TransactionTransfer,
		AccountID:      result.Sender.ID,
		CounterpartyID: result.Receiver.ID,
		Amount:         arg.Amount,
	})

	return result, nil
}

// Activate sets the account active. Repeated calls have no further effect.
func (s *Service) Activate(ctx context.Context, id string) (domain.Account, error) {
	return s.repo.SetActive(ctx, id, true)
}

// Deactivate sets the account inactive. Repeated calls have no further effect.
func (s *Service) Deactivate(ctx context.Context, id string) (domain.Account, error) {
	return s.repo.SetActive(ctx, id, false)
}

// Delete permanently removes the account.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Filter returns the active accounts whose balance component named by
// filterType lies in [min, max]. A missing or non-numeric min falls back to
// the minimum-amount threshold, a missing or non-numeric max to the
// maximum filter bound.
func (s *Service) Filter(ctx context.Context, filterType, min, max string) ([]domain.Account, error) {
	field, err := domain.ParseBalanceField(filterType)
	if err != nil {
		return nil, err
	}

	minAmount, err := decimal.NewFromString(min)
	if err != nil {
		minAmount = s.minimumAmount
	}

	maxAmount, err := decimal.NewFromString(max)
	if err != nil {
		maxAmount = maxFilterAmount
	}

	return s.repo.ListByBalanceField(ctx, field, minAmount, maxAmount)
}

func (s *Service) validAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(s.minimumAmount) {
		return domain.ErrInvalidAmount
	}

	return nil
}

func (s *Service) publish(ctx context.Context, event domain.TransactionEvent) {
	if s.events == nil {
		return
	}

	event.OccurredAt = time.Now().UTC()

	if err := s.events.Publish(ctx, event); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("publish transaction event")
	}
}
