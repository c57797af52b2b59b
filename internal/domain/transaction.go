package domain

import (
	"errors"
	"time"
)

var (
	// ErrInvalidAmount indicates a non-positive or unparseable amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInsufficientBalance indicates that the account does not have sufficient balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrSameAccountTransfer indicates a transfer where both sides are the same account.
	ErrSameAccountTransfer = errors.New("transfer to the same account")
	// ErrLockTimeout indicates that an account lock was not acquired within the configured wait.
	ErrLockTimeout = errors.New("account lock timeout")
)

// Kind labels the operation a transaction was produced by.
type Kind string

// All transaction kinds.
const (
	KindDeposit  Kind = "DEPOSIT"
	KindWithdraw Kind = "WITHDRAW"
	KindTransfer Kind = "TRANSFER"
)

// Transaction is one immutable entry of the append-only operation log.
//
// A transfer is recorded as a single TRANSFER entry against the source
// account.
type Transaction struct {
	ID        int64     `json:"id"`
	AccountID int32     `json:"account_id"`
	Amount    string    `json:"amount"` // must be positive
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateTransactionParams is the input data to append a transaction.
type CreateTransactionParams struct {
	AccountID int32  `json:"account_id"`
	Amount    string `json:"amount"`
	Kind      Kind   `json:"kind"`
}

// TransferResult is the result of a completed transfer.
type TransferResult struct {
	FromAccount Account     `json:"from_account"`
	ToAccount   Account     `json:"to_account"`
	Transaction Transaction `json:"transaction"`
}
