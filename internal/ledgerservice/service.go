// Package ledgerservice manages business logic layer of the ledger.
//
// Every mutating operation runs in mutual exclusion with any other operation
// touching the same account(s): the service holds the account's registry
// lock across the load-validate-persist sequence, and groups the persistence
// calls in one storage transaction scope. Operations on disjoint accounts
// proceed in parallel.
package ledgerservice

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/ledger-core/internal/domain"
	"github.com/go-petr/ledger-core/pkg/errorspkg"
	"github.com/go-petr/ledger-core/pkg/lockpkg"
	"github.com/go-petr/ledger-core/pkg/logpkg"
)

// AccountRepo provides data access layer interface needed by ledger service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package ledgerservice
type AccountRepo interface {
	Create(ctx context.Context, holder, balance string) (domain.Account, error)
	Get(ctx context.Context, id int32) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	SetBalance(ctx context.Context, id int32, balance string) (domain.Account, error)
	Delete(ctx context.Context, id int32) error
}

// TransactionRepo provides append-only access to the transaction log.
type TransactionRepo interface {
	Create(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error)
	ListByAccount(ctx context.Context, accountID int32) ([]domain.Transaction, error)
}

// TxManager groups repository calls into one storage transaction.
type TxManager interface {
	Scope(ctx context.Context, iso sql.IsolationLevel, fn func(ctx context.Context) error) error
}

// Service facilitates ledger service layer logic.
//
// The lock registry is owned by the service instance; its lifetime is the
// service's, not the process's.
type Service struct {
	accounts     AccountRepo
	transactions TransactionRepo
	tx           TxManager
	locks        *lockpkg.Registry

	// lockWait bounds lock acquisition; zero blocks indefinitely.
	lockWait time.Duration
}

// New returns a ledger service on the given repositories. lockWait bounds
// the wait for account locks; pass zero for a pure blocking acquire.
func New(ar AccountRepo, tr TransactionRepo, tx TxManager, lockWait time.Duration) *Service {
	return &Service{
		accounts:     ar,
		transactions: tr,
		tx:           tx,
		locks:        lockpkg.New(),
		lockWait:     lockWait,
	}
}

// CreateAccount creates an account with an opening balance.
// The balance must be a non-negative decimal.
func (s *Service) CreateAccount(ctx context.Context, holder, balance string) (domain.Account, error) {
	ctx = logpkg.WithOperation(ctx, "create_account")

	b, err := decimal.NewFromString(balance)
	if err != nil || b.IsNegative() {
		return domain.Account{}, domain.ErrInvalidAmount
	}

	return s.accounts.Create(ctx, holder, b.String())
}

// GetAccount returns the account with the given id.
func (s *Service) GetAccount(ctx context.Context, id int32) (domain.Account, error) {
	return s.accounts.Get(ctx, id)
}

// ListAccounts returns all accounts.
func (s *Service) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return s.accounts.List(ctx)
}

// ListTransactions returns the account's transactions, most recent first.
func (s *Service) ListTransactions(ctx context.Context, accountID int32) ([]domain.Transaction, error) {
	return s.transactions.ListByAccount(ctx, accountID)
}

// Deposit adds amount to the account's balance and appends a DEPOSIT
// transaction. It returns the updated account snapshot.
func (s *Service) Deposit(ctx context.Context, accountID int32, amount string) (domain.Account, error) {
	ctx = logpkg.WithOperation(ctx, "deposit")

	amt, err := positiveAmount(amount)
	if err != nil {
		return domain.Account{}, err
	}

	unlock, err := s.lockAccount(ctx, accountID)
	if err != nil {
		return domain.Account{}, err
	}
	defer unlock()

	var updated domain.Account

	err = s.tx.Scope(ctx, sql.LevelRepeatableRead, func(ctx context.Context) error {
		balance, err := s.balance(ctx, accountID)
		if err != nil {
			return err
		}

		updated, err = s.accounts.SetBalance(ctx, accountID, balance.Add(amt).String())
		if err != nil {
			return err
		}

		_, err = s.transactions.Create(ctx, domain.CreateTransactionParams{
			AccountID: accountID,
			Amount:    amt.String(),
			Kind:      domain.KindDeposit,
		})

		return err
	})
	if err != nil {
		return domain.Account{}, err
	}

	return updated, nil
}

// Withdraw subtracts amount from the account's balance and appends a
// WITHDRAW transaction. The balance must cover the amount.
func (s *Service) Withdraw(ctx context.Context, accountID int32, amount string) (domain.Account, error) {
	ctx = logpkg.WithOperation(ctx, "withdraw")

	amt, err := positiveAmount(amount)
	if err != nil {
		return domain.Account{}, err
	}

	unlock, err := s.lockAccount(ctx, accountID)
	if err != nil {
		return domain.Account{}, err
	}
	defer unlock()

	var updated domain.Account

	err = s.tx.Scope(ctx, sql.LevelRepeatableRead, func(ctx context.Context) error {
		balance, err := s.balance(ctx, accountID)
		if err != nil {
			return err
		}

		if balance.LessThan(amt) {
			return domain.ErrInsufficientBalance
		}

		updated, err = s.accounts.SetBalance(ctx, accountID, balance.Sub(amt).String())
		if err != nil {
			return err
		}

		_, err = s.transactions.Create(ctx, domain.CreateTransactionParams{
			AccountID: accountID,
			Amount:    amt.String(),
			Kind:      domain.KindWithdraw,
		})

		return err
	})
	if err != nil {
		return domain.Account{}, err
	}

	return updated, nil
}

// Transfer debits fromID and credits toID by amount, appending a single
// TRANSFER transaction against the source account.
//
// Both locks are taken in ascending id order so that concurrent transfers
// sharing accounts can never form a cycle of waiters; the deferred unlocks
// run in reverse acquisition order.
func (s *Service) Transfer(ctx context.Context, fromID, toID int32, amount string) (domain.TransferResult, error) {
	ctx = logpkg.WithOperation(ctx, "transfer")

	var result domain.TransferResult

	if fromID == toID {
		return result, domain.ErrSameAccountTransfer
	}

	amt, err := positiveAmount(amount)
	if err != nil {
		return result, err
	}

	firstID, secondID := fromID, toID
	if firstID > secondID {
		firstID, secondID = secondID, firstID
	}

	unlockFirst, err := s.lockAccount(ctx, firstID)
	if err != nil {
		return result, err
	}
	defer unlockFirst()

	unlockSecond, err := s.lockAccount(ctx, secondID)
	if err != nil {
		return result, err
	}
	defer unlockSecond()

	err = s.tx.Scope(ctx, sql.LevelSerializable, func(ctx context.Context) error {
		fromBalance, err := s.balance(ctx, fromID)
		if err != nil {
			return err
		}

		toBalance, err := s.balance(ctx, toID)
		if err != nil {
			return err
		}

		if fromBalance.LessThan(amt) {
			return domain.ErrInsufficientBalance
		}

		result.FromAccount, err = s.accounts.SetBalance(ctx, fromID, fromBalance.Sub(amt).String())
		if err != nil {
			return err
		}

		result.ToAccount, err = s.accounts.SetBalance(ctx, toID, toBalance.Add(amt).String())
		if err != nil {
			return err
		}

		result.Transaction, err = s.transactions.Create(ctx, domain.CreateTransactionParams{
			AccountID: fromID,
			Amount:    amt.String(),
			Kind:      domain.KindTransfer,
		})

		return err
	})
	if err != nil {
		return domain.TransferResult{}, err
	}

	return result, nil
}

// DeleteAccount removes the account and reclaims its registry lock entry.
// The entry is forgotten while the lock is still held, so waiters already
// blocked on it drain before the handle is dropped.
func (s *Service) DeleteAccount(ctx context.Context, accountID int32) error {
	ctx = logpkg.WithOperation(ctx, "delete_account")

	unlock, err := s.lockAccount(ctx, accountID)
	if err != nil {
		return err
	}
	defer unlock()

	err = s.tx.Scope(ctx, sql.LevelRepeatableRead, func(ctx context.Context) error {
		if _, err := s.accounts.Get(ctx, accountID); err != nil {
			return err
		}

		return s.accounts.Delete(ctx, accountID)
	})
	if err != nil {
		return err
	}

	s.locks.Forget(accountID)

	return nil
}

// lockAccount acquires the account's lock, bounded by lockWait when
// configured, and returns the matching unlock.
func (s *Service) lockAccount(ctx context.Context, id int32) (func(), error) {
	if s.lockWait > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.lockWait)
		defer cancel()
	}

	if err := s.locks.Lock(ctx, id); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.ErrLockTimeout
		}

		return nil, err
	}

	return func() { s.locks.Unlock(id) }, nil
}

// balance loads the account and parses its stored balance.
func (s *Service) balance(ctx context.Context, id int32) (decimal.Decimal, error) {
	l := zerolog.Ctx(ctx)

	account, err := s.accounts.Get(ctx, id)
	if err != nil {
		return decimal.Decimal{}, err
	}

	balance, err := decimal.NewFromString(account.Balance)
	if err != nil {
		l.Error().Err(err).Send()
		return decimal.Decimal{}, errorspkg.ErrInternal
	}

	return balance, nil
}

func positiveAmount(amount string) (decimal.Decimal, error) {
	amt, err := decimal.NewFromString(amount)
	if err != nil || amt.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, domain.ErrInvalidAmount
	}

	return amt, nil
}
