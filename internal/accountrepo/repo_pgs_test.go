package accountrepo

import (
	"context"
	"database/sql"
	"log"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jameelag1995/banking-backend/internal/domain"
	"github.com/jameelag1995/banking-backend/pkg/dbpkg"
	"github.com/jameelag1995/banking-backend/pkg/passpkg"
	"github.com/jameelag1995/banking-backend/pkg/randompkg"
)

var (
	testDBSource string
	testRepo     *RepoPGS
)

func TestMain(m *testing.M) {
	// Postgres tests need a migrated database. Without one only the
	// in-memory suite runs.
	if testDBSource = os.Getenv("TEST_DB_SOURCE"); testDBSource != "" {
		testDB, err := sql.Open("postgres", testDBSource)
		if err != nil {
			log.Fatal("cannot connect to db:", err)
		}

		testRepo = NewRepoPGS(testDB)
	}

	os.Exit(m.Run())
}

// pgsRepo returns a connection-backed repo for operations that start their
// own transactions (Withdraw, Transfer). Rows it creates stay in the
// database.
func pgsRepo(t *testing.T) *RepoPGS {
	t.Helper()

	if testRepo == nil {
		t.Skip("TEST_DB_SOURCE is not set")
	}

	return testRepo
}

// txRepo returns a repo bound to a transaction that rolls back when the
// test ends, so single-statement operations leave no rows behind.
func txRepo(t *testing.T) *RepoPGS {
	t.Helper()

	if testDBSource == "" {
		t.Skip("TEST_DB_SOURCE is not set")
	}

	tx := dbpkg.SetupTX(t, "postgres", testDBSource)

	return NewTxRepoPGS(tx)
}

func createRandomAccount(t *testing.T, repo *RepoPGS) domain.Account {
	t.Helper()

	hashedPassword, err := passpkg.Hash(randompkg.String(10))
	require.NoError(t, err)

	arg := domain.CreateAccountParams{
		ExternalID:     randompkg.ExternalID(),
		FirstName:      randompkg.Name(),
		LastName:       randompkg.Name(),
		Email:          randompkg.Email(),
		HashedPassword: hashedPassword,
		Cash:           randompkg.MoneyAmountBetween(1_000, 10_000),
		Credit:         randompkg.MoneyAmountBetween(10, 1_000),
	}

	account, err := repo.Create(context.Background(), arg)
	require.NoError(t, err)
	require.NotEmpty(t, account)

	require.Equal(t, arg.ExternalID, account.ExternalID)
	require.Equal(t, arg.Email, account.Email)
	require.True(t, arg.Cash.Equal(account.Cash))
	require.True(t, arg.Credit.Equal(account.Credit))
	require.True(t, account.IsActive)

	require.NotEmpty(t, account.ID)
	require.NotZero(t, account.CreatedAt)

	return account
}

func TestPGSCreate(t *testing.T) {
	repo := txRepo(t)
	createRandomAccount(t, repo)
}

func TestPGSCreateConstraintViolations(t *testing.T) {
	testCases := []struct {
		name          string
		input         func(existing domain.Account) domain.CreateAccountParams
		checkResponse func(response domain.Account, err error)
	}{
		{
			name: "ErrExternalIDAlreadyExists",
			input: func(existing domain.Account) domain.CreateAccountParams {
				return domain.CreateAccountParams{
					ExternalID: existing.ExternalID,
					Email:      randompkg.Email(),
				}
			},
			checkResponse: func(response domain.Account, err error) {
				require.EqualError(t, err, domain.ErrExternalIDAlreadyExists.Error())
				require.Empty(t, response)
			},
		},
		{
			name: "ErrEmailAlreadyExists",
			input: func(existing domain.Account) domain.CreateAccountParams {
				return domain.CreateAccountParams{
					ExternalID: randompkg.ExternalID(),
					Email:      existing.Email,
				}
			},
			checkResponse: func(response domain.Account, err error) {
				require.EqualError(t, err, domain.ErrEmailAlreadyExists.Error())
				require.Empty(t, response)
			},
		},
		{
			name: "ErrInvalidAmount",
			input: func(existing domain.Account) domain.CreateAccountParams {
				return domain.CreateAccountParams{
					ExternalID: randompkg.ExternalID(),
					Email:      randompkg.Email(),
					Cash:       decimal.NewFromInt(-1),
				}
			},
			checkResponse: func(response domain.Account, err error) {
				require.EqualError(t, err, domain.ErrInvalidAmount.Error())
				require.Empty(t, response)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		// Each case gets its own transaction: a constraint violation
		// aborts the transaction it runs in.
		t.Run(tc.name, func(t *testing.T) {
			repo := txRepo(t)
			testAccount := createRandomAccount(t, repo)

			response, err := repo.Create(context.Background(), tc.input(testAccount))

			tc.checkResponse(response, err)
		})
	}
}

func TestPGSGet(t *testing.T) {
	repo := txRepo(t)
	testAccount := createRandomAccount(t, repo)

	account2, err := repo.Get(context.Background(), testAccount.ID)
	require.NoError(t, err)
	require.NotEmpty(t, account2)

	require.Equal(t, testAccount.ID, account2.ID)
	require.Equal(t, testAccount.Email, account2.Email)
	require.True(t, testAccount.Cash.Equal(account2.Cash))
	require.True(t, testAccount.Credit.Equal(account2.Credit))
	require.WithinDuration(t, testAccount.CreatedAt, account2.CreatedAt, time.Second)

	_, err = repo.Get(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.EqualError(t, err, domain.ErrAccountNotFound.Error())
}

func TestPGSGetByEmail(t *testing.T) {
	repo := txRepo(t)
	testAccount := createRandomAccount(t, repo)

	account2, err := repo.GetByEmail(context.Background(), testAccount.Email)
	require.NoError(t, err)
	require.Equal(t, testAccount.ID, account2.ID)

	_, err = repo.GetByEmail(context.Background(), randompkg.Email())
	require.EqualError(t, err, domain.ErrEmailNotFound.Error())
}

func TestPGSAddToBalanceField(t *testing.T) {
	repo := txRepo(t)
	testAccount := createRandomAccount(t, repo)
	testAmount := randompkg.MoneyAmountBetween(100, 1_000)

	account2, err := repo.AddToBalanceField(context.Background(), testAccount.ID, domain.FieldCash, testAmount)
	require.NoError(t, err)
	require.True(t, testAccount.Cash.Add(testAmount).Equal(account2.Cash))
	require.True(t, testAccount.Credit.Equal(account2.Credit))

	account3, err := repo.AddToBalanceField(context.Background(), testAccount.ID, domain.FieldCredit, testAmount)
	require.NoError(t, err)
	require.True(t, testAccount.Credit.Add(testAmount).Equal(account3.Credit))

	t.Run("InactiveReportsNotFound", func(t *testing.T) {
		_, err := repo.SetActive(context.Background(), testAccount.ID, false)
		require.NoError(t, err)

		_, err = repo.AddToBalanceField(context.Background(), testAccount.ID, domain.FieldCash, testAmount)
		require.EqualError(t, err, domain.ErrAccountNotFound.Error())
	})
}

func TestPGSWithdraw(t *testing.T) {
	repo := pgsRepo(t)
	testAccount := createRandomAccount(t, repo)

	// Drains all cash and part of the credit.
	testAmount := testAccount.Cash.Add(decimal.NewFromInt(1))

	account2, err := repo.Withdraw(context.Background(), testAccount.ID, testAmount)
	require.NoError(t, err)
	require.True(t, account2.Cash.IsZero())
	require.True(t, testAccount.Credit.Sub(decimal.NewFromInt(1)).Equal(account2.Credit))

	_, err = repo.Withdraw(context.Background(), testAccount.ID, account2.Balance().Add(decimal.NewFromInt(1)))
	require.EqualError(t, err, domain.ErrInsufficientFunds.Error())

	// The rejected withdrawal rolled back.
	account3, err := repo.Get(context.Background(), testAccount.ID)
	require.NoError(t, err)
	require.True(t, account2.Balance().Equal(account3.Balance()))
}

func TestPGSTransfer(t *testing.T) {
	repo := pgsRepo(t)
	sender := createRandomAccount(t, repo)
	receiver := createRandomAccount(t, repo)

	testAmount := sender.Cash.Add(decimal.NewFromInt(1))

	res, err := repo.Transfer(context.Background(), domain.TransferParams{
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Amount:     testAmount,
	})
	require.NoError(t, err)

	require.True(t, res.Sender.Cash.IsZero())
	require.True(t, sender.Credit.Sub(decimal.NewFromInt(1)).Equal(res.Sender.Credit))
	require.True(t, receiver.Cash.Equal(res.Receiver.Cash))
	require.True(t, receiver.Credit.Add(testAmount).Equal(res.Receiver.Credit))

	// Total funds across both accounts are unchanged.
	before := sender.Balance().Add(receiver.Balance())
	after := res.Sender.Balance().Add(res.Receiver.Balance())
	require.True(t, before.Equal(after))

	t.Run("ErrSenderNotFound", func(t *testing.T) {
		_, err := repo.Transfer(context.Background(), domain.TransferParams{
			SenderID:   "00000000-0000-0000-0000-000000000000",
			ReceiverID: receiver.ID,
			Amount:     decimal.NewFromInt(1),
		})
		require.EqualError(t, err, domain.ErrSenderNotFound.Error())
	})

	t.Run("ErrReceiverNotFound", func(t *testing.T) {
		_, err := repo.Transfer(context.Background(), domain.TransferParams{
			SenderID:   sender.ID,
			ReceiverID: "00000000-0000-0000-0000-000000000000",
			Amount:     decimal.NewFromInt(1),
		})
		require.EqualError(t, err, domain.ErrReceiverNotFound.Error())
	})

	t.Run("ErrInsufficientFunds", func(t *testing.T) {
		_, err := repo.Transfer(context.Background(), domain.TransferParams{
			SenderID:   sender.ID,
			ReceiverID: receiver.ID,
			Amount:     res.Sender.Balance().Add(decimal.NewFromInt(1)),
		})
		require.EqualError(t, err, domain.ErrInsufficientFunds.Error())
	})
}

func TestPGSSetActive(t *testing.T) {
	repo := txRepo(t)
	testAccount := createRandomAccount(t, repo)

	account2, err := repo.SetActive(context.Background(), testAccount.ID, false)
	require.NoError(t, err)
	require.False(t, account2.IsActive)

	account3, err := repo.SetActive(context.Background(), testAccount.ID, true)
	require.NoError(t, err)
	require.True(t, account3.IsActive)

	_, err = repo.SetActive(context.Background(), "00000000-0000-0000-0000-000000000000", true)
	require.EqualError(t, err, domain.ErrAccountNotFound.Error())
}

func TestPGSDelete(t *testing.T) {
	repo := txRepo(t)
	testAccount := createRandomAccount(t, repo)

	err := repo.Delete(context.Background(), testAccount.ID)
	require.NoError(t, err)

	accountDeleted, err := repo.Get(context.Background(), testAccount.ID)
	require.Error(t, err)
	require.EqualError(t, err, domain.ErrAccountNotFound.Error())
	require.Empty(t, accountDeleted)

	err = repo.Delete(context.Background(), testAccount.ID)
	require.EqualError(t, err, domain.ErrAccountNotFound.Error())
}

func TestPGSListByBalanceField(t *testing.T) {
	repo := txRepo(t)
	testAccount := createRandomAccount(t, repo)

	accounts, err := repo.ListByBalanceField(context.Background(), domain.FieldCash, testAccount.Cash, testAccount.Cash)
	require.NoError(t, err)
	require.NotEmpty(t, accounts)

	for _, account := range accounts {
		require.True(t, account.IsActive)
		require.True(t, account.Cash.Equal(testAccount.Cash))
	}
}

func TestPGSListByStatus(t *testing.T) {
	repo := txRepo(t)
	testAccount := createRandomAccount(t, repo)

	_, err := repo.SetActive(context.Background(), testAccount.ID, false)
	require.NoError(t, err)

	accounts, err := repo.ListByStatus(context.Background(), false)
	require.NoError(t, err)
	require.NotEmpty(t, accounts)

	for _, account := range accounts {
		require.False(t, account.IsActive)
	}
}
