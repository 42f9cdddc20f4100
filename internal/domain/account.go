// Package domain provides defenitions of all entities.
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrAccountNotFound indicates that no matching active account is found.
	ErrAccountNotFound = errors.New("no such account")
	// ErrSenderNotFound indicates that the transfer sender is not found or inactive.
	ErrSenderNotFound = errors.New("no such account for sender")
	// ErrReceiverNotFound indicates that the transfer receiver is not found or inactive.
	ErrReceiverNotFound = errors.New("no such account for receiver")
	// ErrEmailNotFound indicates that no account holds the given email.
	ErrEmailNotFound = errors.New("email doesn't exist")
	// ErrExternalIDAlreadyExists indicates that the external id is already taken.
	ErrExternalIDAlreadyExists = errors.New("external id already exists")
	// ErrEmailAlreadyExists indicates that the email is already taken.
	ErrEmailAlreadyExists = errors.New("email already exists")
	// ErrInsufficientFunds indicates that cash plus credit does not cover the debit.
	ErrInsufficientFunds = errors.New("not enough cash or credit")
	// ErrInvalidAmount indicates a non-positive or malformed amount.
	ErrInvalidAmount = errors.New("amount must be a positive number")
	// ErrSameAccount indicates a transfer where sender and receiver coincide.
	ErrSameAccount = errors.New("sender and receiver must be different accounts")
	// ErrFilterNotSupported indicates an unknown filter type.
	ErrFilterNotSupported = errors.New("no such filter")
)

// Account holds the ledger state of a single user.
//
// A balance consists of two components: cash is consumed first on any debit,
// credit covers the shortfall and is the sole recipient of incoming transfers.
type Account struct {
	ID             string          `json:"id"`
	ExternalID     string          `json:"externalId"`
	FirstName      string          `json:"firstName"`
	LastName       string          `json:"lastName"`
	Email          string          `json:"email"`
	HashedPassword string          `json:"-"`
	IsAdmin        bool            `json:"isAdmin"`
	Cash           decimal.Decimal `json:"cash"`
	Credit         decimal.Decimal `json:"credit"`
	IsActive       bool            `json:"isActive"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Balance returns the derived cash plus credit sum.
func (a Account) Balance() decimal.Decimal {
	return a.Cash.Add(a.Credit)
}

// Debit removes amount from the account, consuming cash first and any
// shortfall from credit. It returns ErrInsufficientFunds without modifying
// the account when cash plus credit cannot cover the amount.
func (a Account) Debit(amount decimal.Decimal) (Account, error) {
	if amount.GreaterThan(a.Balance()) {
		return a, ErrInsufficientFunds
	}

	if amount.LessThanOrEqual(a.Cash) {
		a.Cash = a.Cash.Sub(amount)
		return a, nil
	}

	a.Credit = a.Credit.Sub(amount.Sub(a.Cash))
	a.Cash = decimal.Zero

	return a, nil
}

// CreateAccountParams is the input data to create an account.
type CreateAccountParams struct {
	ExternalID     string          `json:"externalId"`
	FirstName      string          `json:"firstName"`
	LastName       string          `json:"lastName"`
	Email          string          `json:"email"`
	HashedPassword string          `json:"hashedPassword"`
	IsAdmin        bool            `json:"isAdmin"`
	Cash           decimal.Decimal `json:"cash"`
	Credit         decimal.Decimal `json:"credit"`
}

// TransferParams is the input data for the transfer transaction.
type TransferParams struct {
	SenderID   string          `json:"senderId"`
	ReceiverID string          `json:"receiverId"`
	Amount     decimal.Decimal `json:"amount"`
}

// TransferResult is the result of the transfer transaction.
type TransferResult struct {
	Sender   Account `json:"sender"`
	Receiver Account `json:"receiver"`
}

// BalanceField selects which balance component an operation addresses.
type BalanceField string

// Supported balance fields. FieldBalance is derived and valid for
// filtering only.
const (
	FieldCash    BalanceField = "cash"
	FieldCredit  BalanceField = "credit"
	FieldBalance BalanceField = "balance"
)

// ParseBalanceField validates a filter type coming from the API.
func ParseBalanceField(s string) (BalanceField, error) {
	switch BalanceField(s) {
	case FieldCash, FieldCredit, FieldBalance:
		return BalanceField(s), nil
	}

	return "", ErrFilterNotSupported
}
