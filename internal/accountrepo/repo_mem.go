package accountrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jameelag1995/banking-backend/internal/domain"
)

// RepoMem is an in-memory implementation of the account repository. It backs
// tests and the DB_DRIVER=memory mode of the server.
//
// All writes take the store mutex, which serializes the read-modify-write
// operations (Withdraw, Transfer) the same way row locks do on Postgres.
type RepoMem struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
}

// NewRepoMem returns an empty in-memory account repository.
func NewRepoMem() *RepoMem {
	return &RepoMem{
		accounts: make(map[string]domain.Account),
	}
}

// Create creates the account and then returns it.
func (r *RepoMem) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.accounts {
		if a.ExternalID == arg.ExternalID {
			return domain.Account{}, domain.ErrExternalIDAlreadyExists
		}

		if a.Email == arg.Email {
			return domain.Account{}, domain.ErrEmailAlreadyExists
		}
	}

	if arg.Cash.IsNegative() || arg.Credit.IsNegative() {
		return domain.Account{}, domain.ErrInvalidAmount
	}

	a := domain.Account{
		ID:             uuid.NewString(),
		ExternalID:     arg.ExternalID,
		FirstName:      arg.FirstName,
		LastName:       arg.LastName,
		Email:          arg.Email,
		HashedPassword: arg.HashedPassword,
		IsAdmin:        arg.IsAdmin,
		Cash:           arg.Cash,
		Credit:         arg.Credit,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}

	r.accounts[a.ID] = a

	return a, nil
}

// Get returns the account with the given id.
func (r *RepoMem) Get(ctx context.Context, id string) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return a, nil
}

// GetByEmail returns the account that holds the given email.
func (r *RepoMem) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts {
		if a.Email == email {
			return a, nil
		}
	}

	return domain.Account{}, domain.ErrEmailNotFound
}

// List returns all accounts ordered by creation time.
func (r *RepoMem) List(ctx context.Context) ([]domain.Account, error) {
	return r.listWhere(func(domain.Account) bool { return true }), nil
}

// ListByStatus returns all accounts with the given activation state.
func (r *RepoMem) ListByStatus(ctx context.Context, active bool) ([]domain.Account, error) {
	return r.listWhere(func(a domain.Account) bool { return a.IsActive == active }), nil
}

// ListByBalanceField returns the active accounts whose chosen balance
// component lies in [min, max].
func (r *RepoMem) ListByBalanceField(ctx context.Context, field domain.BalanceField, min, max decimal.Decimal) ([]domain.Account, error) {
	value := func(a domain.Account) decimal.Decimal {
		switch field {
		case domain.FieldCash:
			return a.Cash
		case domain.FieldCredit:
			return a.Credit
		}

		return a.Balance()
	}

	if _, err := domain.ParseBalanceField(string(field)); err != nil {
		return nil, err
	}

	return r.listWhere(func(a domain.Account) bool {
		v := value(a)
		return a.IsActive && v.GreaterThanOrEqual(min) && v.LessThanOrEqual(max)
	}), nil
}

func (r *RepoMem) listWhere(keep func(domain.Account) bool) []domain.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := []domain.Account{}

	for _, a := range r.accounts {
		if keep(a) {
			items = append(items, a)
		}
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})

	return items
}

// AddToBalanceField atomically increments the cash or credit of an active
// account. The check-and-add runs under the store lock, matching the
// conditional-update guarantee of the Postgres store.
func (r *RepoMem) AddToBalanceField(ctx context.Context, id string, field domain.BalanceField, amount decimal.Decimal) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok || !a.IsActive {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	switch field {
	case domain.FieldCash:
		if a.Cash.Add(amount).IsNegative() {
			return domain.Account{}, domain.ErrInsufficientFunds
		}
		a.Cash = a.Cash.Add(amount)
	case domain.FieldCredit:
		if a.Credit.Add(amount).IsNegative() {
			return domain.Account{}, domain.ErrInsufficientFunds
		}
		a.Credit = a.Credit.Add(amount)
	default:
		return domain.Account{}, domain.ErrFilterNotSupported
	}

	r.accounts[id] = a

	return a, nil
}

// SetActive sets the activation flag unconditionally.
func (r *RepoMem) SetActive(ctx context.Context, id string, active bool) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	a.IsActive = active
	r.accounts[id] = a

	return a, nil
}

// Delete permanently removes the account with the given id.
func (r *RepoMem) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[id]; !ok {
		return domain.ErrAccountNotFound
	}

	delete(r.accounts, id)

	return nil
}

// Withdraw debits an active account with the cash-then-credit policy.
func (r *RepoMem) Withdraw(ctx context.Context, id string, amount decimal.Decimal) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok || !a.IsActive {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	a, err := a.Debit(amount)
	if err != nil {
		return domain.Account{}, err
	}

	r.accounts[id] = a

	return a, nil
}

// Transfer debits the sender and credits the full requested amount to the
// receiver's credit. Both writes happen under one lock acquisition, so the
// transfer applies as a unit.
func (r *RepoMem) Transfer(ctx context.Context, arg domain.TransferParams) (domain.TransferResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result domain.TransferResult

	sender, ok := r.accounts[arg.SenderID]
	if !ok || !sender.IsActive {
		return result, domain.ErrSenderNotFound
	}

	receiver, ok := r.accounts[arg.ReceiverID]
	if !ok || !receiver.IsActive {
		return result, domain.ErrReceiverNotFound
	}

	sender, err := sender.Debit(arg.Amount)
	if err != nil {
		return result, err
	}

	receiver.Credit = receiver.Credit.Add(arg.Amount)

	r.accounts[sender.ID] = sender
	r.accounts[receiver.ID] = receiver

	result.Sender = sender
	result.Receiver = receiver

	return result, nil
}
