// Package accountrepo manages repository layer of accounts.
package accountrepo

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jameelag1995/banking-backend/internal/domain"
	"github.com/jameelag1995/banking-backend/pkg/dbpkg"
	"github.com/jameelag1995/banking-backend/pkg/errorspkg"
)

// RepoPGS facilitates account repository layer logic.
type RepoPGS struct {
	db   dbpkg.SQLInterface
	conn *sql.DB
}

// NewTxRepoPGS returns account RepoPGS bound to an existing transaction.
func NewTxRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

// NewRepoPGS returns account RepoPGS with a connection to start transactions.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{
		db:   db,
		conn: db,
	}
}

const accountColumns = `id, external_id, first_name, last_name, email, hashed_password, is_admin, cash, credit, is_active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner, a *domain.Account) error {
	return row.Scan(
		&a.ID,
		&a.ExternalID,
		&a.FirstName,
		&a.LastName,
		&a.Email,
		&a.HashedPassword,
		&a.IsAdmin,
		&a.Cash,
		&a.Credit,
		&a.IsActive,
		&a.CreatedAt,
	)
}

const createQuery = `
INSERT INTO accounts (
    external_id, first_name, last_name, email, hashed_password, is_admin, cash, credit
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8
) RETURNING ` + accountColumns

// Create creates the account and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		arg.ExternalID,
		arg.FirstName,
		arg.LastName,
		arg.Email,
		arg.HashedPassword,
		arg.IsAdmin,
		arg.Cash,
		arg.Credit,
	)

	var a domain.Account

	if err := scanAccount(row, &a); err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "unique_violation" {
				switch pqErr.Constraint {
				case "accounts_external_id_key":
					return a, domain.ErrExternalIDAlreadyExists
				case "accounts_email_key":
					return a, domain.ErrEmailAlreadyExists
				}
			}

			switch pqErr.Constraint {
			case "accounts_cash_check", "accounts_credit_check":
				return a, domain.ErrInvalidAmount
			}
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const getQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE id = $1
`

// Get returns the account with the given id.
func (r *RepoPGS) Get(ctx context.Context, id string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getQuery, id)

	var a domain.Account

	if err := scanAccount(row, &a); err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return a, domain.ErrAccountNotFound
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const getByEmailQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE email = $1
`

// GetByEmail returns the account that holds the given email.
func (r *RepoPGS) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getByEmailQuery, email)

	var a domain.Account

	if err := scanAccount(row, &a); err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return a, domain.ErrEmailNotFound
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const listQuery = `
SELECT ` + accountColumns + `
FROM accounts
ORDER BY created_at, id
`

// List returns all accounts.
func (r *RepoPGS) List(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, listQuery)
	return r.collect(ctx, rows, err)
}

const listByStatusQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE is_active = $1
ORDER BY created_at, id
`

// ListByStatus returns all accounts with the given activation state.
func (r *RepoPGS) ListByStatus(ctx context.Context, active bool) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, listByStatusQuery, active)
	return r.collect(ctx, rows, err)
}

const (
	listByCashQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE is_active = true AND cash BETWEEN $1 AND $2
ORDER BY created_at, id
`

	listByCreditQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE is_active = true AND credit BETWEEN $1 AND $2
ORDER BY created_at, id
`

	listByBalanceQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE is_active = true AND cash + credit BETWEEN $1 AND $2
ORDER BY created_at, id
`
)

// ListByBalanceField returns the active accounts whose chosen balance
// component lies in [min, max]. The balance field is the derived
// cash plus credit sum.
func (r *RepoPGS) ListByBalanceField(ctx context.Context, field domain.BalanceField, min, max decimal.Decimal) ([]domain.Account, error) {
	var query string

	switch field {
	case domain.FieldCash:
		query = listByCashQuery
	case domain.FieldCredit:
		query = listByCreditQuery
	case domain.FieldBalance:
		query = listByBalanceQuery
	default:
		return nil, domain.ErrFilterNotSupported
	}

	rows, err := r.db.QueryContext(ctx, query, min, max)

	return r.collect(ctx, rows, err)
}

func (r *RepoPGS) collect(ctx context.Context, rows *sql.Rows, err error) ([]domain.Account, error) {
	l := zerolog.Ctx(ctx)

	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Account{}

	for rows.Next() {
		var a domain.Account
		if err := scanAccount(rows, &a); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, a)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

const (
	addToCashQuery = `
UPDATE accounts
SET cash = cash + $1
WHERE id = $2 AND is_active = true
RETURNING ` + accountColumns

	addToCreditQuery = `
UPDATE accounts
SET credit = credit + $1
WHERE id = $2 AND is_active = true
RETURNING ` + accountColumns
)

// AddToBalanceField atomically increments the cash or credit of an active
// account. The activity check and the increment are one conditional update,
// so concurrent increments on the same account never lose updates.
func (r *RepoPGS) AddToBalanceField(ctx context.Context, id string, field domain.BalanceField, amount decimal.Decimal) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	var query string

	switch field {
	case domain.FieldCash:
		query = addToCashQuery
	case domain.FieldCredit:
		query = addToCreditQuery
	default:
		return domain.Account{}, domain.ErrFilterNotSupported
	}

	row := r.db.QueryRowContext(ctx, query, amount, id)

	var a domain.Account

	if err := scanAccount(row, &a); err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return a, domain.ErrAccountNotFound
		}

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "accounts_cash_check", "accounts_credit_check":
				return a, domain.ErrInsufficientFunds
			}
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const setActiveQuery = `
UPDATE accounts
SET is_active = $1
WHERE id = $2
RETURNING ` + accountColumns

// SetActive sets the activation flag unconditionally.
func (r *RepoPGS) SetActive(ctx context.Context, id string, active bool) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, setActiveQuery, active, id)

	var a domain.Account

	if err := scanAccount(row, &a); err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return a, domain.ErrAccountNotFound
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const deleteQuery = `
DELETE FROM accounts
WHERE id = $1
`

// Delete permanently removes the account with the given id.
func (r *RepoPGS) Delete(ctx context.Context, id string) error {
	l := zerolog.Ctx(ctx)

	res, err := r.db.ExecContext(ctx, deleteQuery, id)
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	n, err := res.RowsAffected()
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	if n == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

const lockQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE id = $1 AND is_active = true
FOR UPDATE
`

const saveBalancesQuery = `
UPDATE accounts
SET cash = $1, credit = $2
WHERE id = $3
RETURNING ` + accountColumns

// Withdraw debits an active account inside a transaction, locking the row
// for the duration of the read-modify-write so at most one mutation is in
// flight per account.
func (r *RepoPGS) Withdraw(ctx context.Context, id string, amount decimal.Decimal) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	var a domain.Account

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return a, errorspkg.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			l.Error().Err(err).Send()
		}
	}()

	row := tx.QueryRowContext(ctx, lockQuery, id)
	if err := scanAccount(row, &a); err != nil {
		if err == sql.ErrNoRows {
			return domain.Account{}, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Send()

		return domain.Account{}, errorspkg.ErrInternal
	}

	a, err = a.Debit(amount)
	if err != nil {
		return domain.Account{}, err
	}

	row = tx.QueryRowContext(ctx, saveBalancesQuery, a.Cash, a.Credit, a.ID)
	if err := scanAccount(row, &a); err != nil {
		l.Error().Err(err).Send()
		return domain.Account{}, errorspkg.ErrInternal
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}

// Transfer debits the sender with the cash-then-credit policy and credits
// the full requested amount to the receiver's credit, within a single
// transaction so the two writes apply together or not at all.
func (r *RepoPGS) Transfer(ctx context.Context, arg domain.TransferParams) (domain.TransferResult, error) {
	l := zerolog.Ctx(ctx)

	var result domain.TransferResult

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return result, errorspkg.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			l.Error().Err(err).Send()
		}
	}()

	// To avoid deadlocks lock rows in consistent id order
	firstID, secondID := arg.SenderID, arg.ReceiverID
	if arg.ReceiverID < arg.SenderID {
		firstID, secondID = arg.ReceiverID, arg.SenderID
	}

	locked, err := lockPair(ctx, tx, firstID, secondID)
	if err != nil {
		return result, err
	}

	sender, senderOK := locked[arg.SenderID]
	receiver, receiverOK := locked[arg.ReceiverID]

	// The sender check is reported first regardless of lock order.
	if !senderOK {
		return result, domain.ErrSenderNotFound
	}

	if !receiverOK {
		return result, domain.ErrReceiverNotFound
	}

	sender, err = sender.Debit(arg.Amount)
	if err != nil {
		return result, err
	}

	receiver.Credit = receiver.Credit.Add(arg.Amount)

	row := tx.QueryRowContext(ctx, saveBalancesQuery, sender.Cash, sender.Credit, sender.ID)
	if err := scanAccount(row, &result.Sender); err != nil {
		l.Error().Err(err).Send()
		return domain.TransferResult{}, errorspkg.ErrInternal
	}

	row = tx.QueryRowContext(ctx, saveBalancesQuery, receiver.Cash, receiver.Credit, receiver.ID)
	if err := scanAccount(row, &result.Receiver); err != nil {
		l.Error().Err(err).Send()
		return domain.TransferResult{}, errorspkg.ErrInternal
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return domain.TransferResult{}, errorspkg.ErrInternal
	}

	return result, nil
}

// lockPair locks the active account rows with the given ids, keyed by id.
// Missing or inactive accounts are simply absent from the result.
func lockPair(ctx context.Context, tx *sql.Tx, ids ...string) (map[string]domain.Account, error) {
	l := zerolog.Ctx(ctx)

	locked := make(map[string]domain.Account, len(ids))

	for _, id := range ids {
		var a domain.Account

		row := tx.QueryRowContext(ctx, lockQuery, id)
		if err := scanAccount(row, &a); err != nil {
			if err == sql.ErrNoRows {
				continue
			}

			l.Error().Err(err).Send()

			return nil, errorspkg.ErrInternal
		}

		// Key by the requested id: the stored uuid text may differ in case.
		locked[id] = a
	}

	return locked, nil
}
