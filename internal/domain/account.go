// Package domain provides defenitions of all entities.
package domain

import (
	"errors"
	"time"
)

// ErrAccountNotFound indicates that the account is not found.
var ErrAccountNotFound = errors.New("account not found")

// Account holds a holder's balance.
//
// Balance is a decimal string; all arithmetic goes through
// shopspring/decimal so repeated operations never drift.
type Account struct {
	ID        int32     `json:"id"`
	Holder    string    `json:"holder"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}
