package ledgerservice

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/ledger-core/internal/domain"
	"github.com/go-petr/ledger-core/pkg/errorspkg"
	"github.com/go-petr/ledger-core/pkg/randompkg"
)

func testAccount(id int32, balance string) domain.Account {
	return domain.Account{
		ID:        id,
		Holder:    randompkg.Holder(),
		Balance:   balance,
		CreatedAt: time.Now().Truncate(time.Second).UTC(),
	}
}

// scopePassthrough makes the mocked TxManager run the scoped function
// directly, so repository stubs observe the calls.
func scopePassthrough(txm *MockTxManager, times int) {
	txm.EXPECT().Scope(gomock.Any(), gomock.Any(), gomock.Any()).
		Times(times).
		DoAndReturn(func(ctx context.Context, _ sql.IsolationLevel, fn func(context.Context) error) error {
			return fn(ctx)
		})
}

func TestDeposit(t *testing.T) {
	account := testAccount(1, "1000")

	testCases := []struct {
		name          string
		accountID     int32
		amount        string
		buildStubs    func(ar *MockAccountRepo, tr *MockTransactionRepo, txm *MockTxManager)
		checkResponse func(res domain.Account, err error)
	}{
		{
			name:      "InvalidAmount",
			accountID: account.ID,
			amount:    "!@#$",
			buildStubs: func(ar *MockAccountRepo, tr *MockTransactionRepo, txm *MockTxManager) {
				txm.EXPECT().Scope(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(res domain.Account, err error) {
				require.ErrorIs(t, err, domain.ErrInvalidAmount)
				require.Empty(t, res)
			},
		},
		{
			name:      "NegativeAmount",
			accountID: account.ID,
			amount:    "-100",
			buildStubs: func(ar *MockAccountRepo, tr *MockTransactionRepo, txm *MockTxManager) {
				txm.EXPECT().Scope(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(res domain.Account, err error) {
				require.ErrorIs(t, err, domain.ErrInvalidAmount)
				require.Empty(t, res)
			},
		},
		{
			name:      "AccountNotFound",
			accountID: account.ID,
			amount:    "100",
			buildStubs: func(ar *MockAccountRepo, tr *MockTransactionRepo, txm *MockTxManager) {
				scopePassthrough(txm, 1)
				ar.EXPECT().Get(gomock.Any(), gomock.Eq(account.ID)).
					Times(1).
					Return(domain.Account{}, domain.ErrAccountNotFound)
				ar.EXPECT().SetBalance(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
				tr.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(res domain.Account, err error) {
				require.ErrorIs(t, err, domain.ErrAccountNotFound)
				require.Empty(t, res)
			},
		},
		{
			name:      "CorruptStoredBalance",
			accountID: account.ID,
			amount:    "100",
			buildStubs: func(ar *MockAccountRepo, tr *MockTransactionRepo, txm *MockTxManager) {
				scopePassthrough(txm, 1)
				ar.EXPECT().Get(gomock.Any(), gomock.Eq(account.ID)).
					Times(1).
					Return(testAccount(account.ID, "not-a-number"), nil)
				ar.EXPECT().SetBalance(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
				tr.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(res domain.Account, err error) {
				require.ErrorIs(t, err, errorspkg.ErrInternal)
				require.Empty(t, res)
			},
		},
		{
			name:      "OK",
			accountID: account.ID,
			amount:    "100",
			buildStubs: func(ar *MockAccountRepo, tr *MockTransactionRepo, txm *MockTxManager) {
				scopePassthrough(txm, 1)
				ar.EXPECT().Get(gomock.Any(), gomock.Eq(account.ID)).
					Times(1).
					Return(account, nil)
				ar.EXPECT().SetBalance(gomock.Any(), gomock.Eq(account.ID), gomock.Eq("1100")).
					Times(1).
					Return(testAccount(account.ID, "1100"), nil)
				tr.EXPECT().Create(gomock.Any(), gomock.Eq(domain.CreateTransactionParams{
					AccountID: account.ID,
					Amount:    "100",
					Kind:      domain.KindDeposit,
				})).
					Times(1).
					Return(domain.Transaction{}, nil)
			},
			checkResponse: func(res domain.Account, err error) {
				require.NoError(t, err)
				require.Equal(t, "1100", res.Balance)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			ar := NewMockAccountRepo(ctrl)
			tr := NewMockTransactionRepo(ctrl)
			txm := NewMockTxManager(ctrl)
			tc.buildStubs(ar, tr, txm)

			s := New(ar, tr, txm, 0)

			res, err := s.Deposit(context.Background(), tc.accountID, tc.amount)
			tc.checkResponse(res, err)
		})
	}
}

func TestWithdraw(t *testing.T) {
	account := testAccount(1, "1000")

	testCases := []struct {
		name          string
		accountID     int32
		amount        string
		buildStubs    func(ar *MockAccountRepo, tr *MockTransactionRepo, txm *MockTxManager)
		checkResponse func(res domain.Account, err error)
	}{
		{
			name:      "InsufficientBalance",
			accountID: account.ID,
			amount:    "5000",
			buildStubs: func(ar *MockAccountRepo, tr *MockTransactionRepo, txm *MockTxManager) {
				scopePassthrough(txm, 1)
				ar.EXPECT().Get(gomock.Any(), gomock.Eq(account.ID)).
					Times(1).
					Return(account, nil)
				ar.EXPECT().SetBalance(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
				tr.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(res domain.Account, err error) {
				require.ErrorIs(t, err, domain.ErrInsufficientBalance)
				require.Empty(t, res)
			},
		},
		{
			name:      "ZeroAmount",
			accountID: account.ID,
			amount:    "0",
			buildStubs: func(ar *MockAccountRepo, tr *MockTransactionRepo, txm *MockTxManager) {
				txm.EXPECT().Scope(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(res domain.Account, err error) {
				require.ErrorIs(t, err, domain.ErrInvalidAmount)
				require.Empty(t, res)
			},
		},
		{
			name:      "OK",
			accountID: account.ID,
			amount:    "400",
			buildStubs: func(ar *MockAccountRepo, tr *MockTransactionRepo, txm *MockTxManager) {
				scopePassthrough(txm, 1)
				ar.EXPECT().Get(gomock.Any(), gomock.Eq(account.ID)).
					Times(1).
					Return(account, nil)
				ar.EXPECT().SetBalance(gomock.Any(), gomock.Eq(account.ID), gomock.Eq("600")).
					Times(1).
					Return(testAccount(account.ID, "600"), nil)
				tr.EXPECT().Create(gomock.Any(), gomock.Eq(domain.CreateTransactionParams{
					AccountID: account.ID,
					Amount:    "400",
					Kind:      domain.KindWithdraw,
				})).
					Times(1).
					Return(domain.Transaction{}, nil)
			},
			checkResponse: func(res domain.Account, err error) {
				require.NoError(t, err)
				require.Equal(t, "600", res.Balance)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			ar := NewMockAccountRepo(ctrl)
			tr := NewMockTransactionRepo(ctrl)
			txm := NewMockTxManager(ctrl)
			tc.buildStubs(ar, tr, txm)

			s := New(ar, tr, txm, 0)

			res, err := s.Withdraw(context.Background(), tc.accountID, tc.amount)
			tc.checkResponse(res, err)
		})
	}
}

func TestTransfer(t *testing.T) {
	from := testAccount(1, "1000")
	to := testAccount(2, "1000")

	testCases := []struct {
		name          string
		fromID, toID  int32
		amount        string
		buildStubs    func(ar *MockAccountRepo, tr *MockTransactionRepo, txm *MockTxManager)
		checkResponse func(res domain.TransferResult, err error)
	}{
		{
			name:   "SameAccount",
			fromID: from.ID,
			toID:   from.ID,
			amount: "100",
			buildStubs: func(ar *MockAccountRepo, tr *MockTransactionRepo, txm *MockTxManager) {
				txm.EXPECT().Scope(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(res domain.TransferResult, err error) {
				require.ErrorIs(t, err, domain.ErrSameAccountTransfer)
				require.Empty(t, res)
			},
		},
		{
			name:   "InvalidAmount",
			fromID: from.ID,
			toID:   to.ID,
			amount: "-1",
			buildStubs: func(ar *MockAccountRepo, tr *MockTransactionRepo, txm *MockTxManager) {
				txm.EXPECT().Scope(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(res domain.TransferResult, err error) {
				require.ErrorIs(t, err, domain.ErrInvalidAmount)
				require.Empty(t, res)
			},
		},
		{
			name:   "ToAccountNotFound",
			fromID: from.ID,
			toID:   to.ID,
			amount: "100",
			buildStubs: func(ar *MockAccountRepo, tr *MockTransactionRepo, txm *MockTxManager) {
				scopePassthrough(txm, 1)
				ar.EXPECT().Get(gomock.Any(), gomock.Eq(from.ID)).
					Times(1).
					Return(from, nil)
				ar.EXPECT().Get(gomock.Any(), gomock.Eq(to.ID)).
					Times(1).
					Return(domain.Account{}, domain.ErrAccountNotFound)
				ar.EXPECT().SetBalance(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
				tr.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(res domain.TransferResult, err error) {
				require.ErrorIs(t, err, domain.ErrAccountNotFound)
				require.Empty(t, res)
			},
		},
		{
			name:   "InsufficientBalance",
			fromID: from.ID,
			toID:   to.ID,
			amount: "5000",
			buildStubs: func(ar *MockAccountRepo, tr *MockTransactionRepo, txm *MockTxManager) {
				scopePassthrough(txm, 1)
				ar.EXPECT().Get(gomock.Any(), gomock.Eq(from.ID)).
					Times(1).
					Return(from, nil)
				ar.EXPECT().Get(gomock.Any(), gomock.Eq(to.ID)).
					Times(1).
					Return(to, nil)
				ar.EXPECT().SetBalance(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
				tr.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(res domain.TransferResult, err error) {
				require.ErrorIs(t, err, domain.ErrInsufficientBalance)
				require.Empty(t, res)
			},
		},
		{
			name:   "OK",
			fromID: from.ID,
			toID:   to.ID,
			amount: "100",
			buildStubs: func(ar *MockAccountRepo, tr *MockTransactionRepo, txm *MockTxManager) {
				scopePassthrough(txm, 1)
				ar.EXPECT().Get(gomock.Any(), gomock.Eq(from.ID)).
					Times(1).
					Return(from, nil)
				ar.EXPECT().Get(gomock.Any(), gomock.Eq(to.ID)).
					Times(1).
					Return(to, nil)
				ar.EXPECT().SetBalance(gomock.Any(), gomock.Eq(from.ID), gomock.Eq("900")).
					Times(1).
					Return(testAccount(from.ID, "900"), nil)
				ar.EXPECT().SetBalance(gomock.Any(), gomock.Eq(to.ID), gomock.Eq("1100")).
					Times(1).
					Return(testAccount(to.ID, "1100"), nil)
				tr.EXPECT().Create(gomock.Any(), gomock.Eq(domain.CreateTransactionParams{
					AccountID: from.ID,
					Amount:    "100",
					Kind:      domain.KindTransfer,
				})).
					Times(1).
					Return(domain.Transaction{AccountID: from.ID, Amount: "100", Kind: domain.KindTransfer}, nil)
			},
			checkResponse: func(res domain.TransferResult, err error) {
				require.NoError(t, err)
				require.Equal(t, "900", res.FromAccount.Balance)
				require.Equal(t, "1100", res.ToAccount.Balance)
				require.Equal(t, domain.KindTransfer, res.Transaction.Kind)
				require.Equal(t, from.ID, res.Transaction.AccountID)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			ar := NewMockAccountRepo(ctrl)
			tr := NewMockTransactionRepo(ctrl)
			txm := NewMockTxManager(ctrl)
			tc.buildStubs(ar, tr, txm)

			s := New(ar, tr, txm, 0)

			res, err := s.Transfer(context.Background(), tc.fromID, tc.toID, tc.amount)
			tc.checkResponse(res, err)
		})
	}
}

func TestCreateAccount(t *testing.T) {
	holder := randompkg.Holder()

	testCases := []struct {
		name          string
		balance       string
		buildStubs    func(ar *MockAccountRepo)
		checkResponse func(res domain.Account, err error)
	}{
		{
			name:    "NegativeOpeningBalance",
			balance: "-10",
			buildStubs: func(ar *MockAccountRepo) {
				ar.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(res domain.Account, err error) {
				require.ErrorIs(t, err, domain.ErrInvalidAmount)
				require.Empty(t, res)
			},
		},
		{
			name:    "OK",
			balance: "100.50",
			buildStubs: func(ar *MockAccountRepo) {
				ar.EXPECT().Create(gomock.Any(), gomock.Eq(holder), gomock.Eq("100.5")).
					Times(1).
					Return(testAccount(1, "100.5"), nil)
			},
			checkResponse: func(res domain.Account, err error) {
				require.NoError(t, err)
				require.Equal(t, "100.5", res.Balance)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			ar := NewMockAccountRepo(ctrl)
			tc.buildStubs(ar)

			s := New(ar, NewMockTransactionRepo(ctrl), NewMockTxManager(ctrl), 0)

			res, err := s.CreateAccount(context.Background(), holder, tc.balance)
			tc.checkResponse(res, err)
		})
	}
}

func TestDeleteAccount(t *testing.T) {
	account := testAccount(1, "0")

	testCases := []struct {
		name       string
		buildStubs func(ar *MockAccountRepo, txm *MockTxManager)
		wantErr    error
	}{
		{
			name: "NotFound",
			buildStubs: func(ar *MockAccountRepo, txm *MockTxManager) {
				scopePassthrough(txm, 1)
				ar.EXPECT().Get(gomock.Any(), gomock.Eq(account.ID)).
					Times(1).
					Return(domain.Account{}, domain.ErrAccountNotFound)
				ar.EXPECT().Delete(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name: "OK",
			buildStubs: func(ar *MockAccountRepo, txm *MockTxManager) {
				scopePassthrough(txm, 1)
				ar.EXPECT().Get(gomock.Any(), gomock.Eq(account.ID)).
					Times(1).
					Return(account, nil)
				ar.EXPECT().Delete(gomock.Any(), gomock.Eq(account.ID)).
					Times(1).
					Return(nil)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			ar := NewMockAccountRepo(ctrl)
			txm := NewMockTxManager(ctrl)
			tc.buildStubs(ar, txm)

			s := New(ar, NewMockTransactionRepo(ctrl), txm, 0)

			err := s.DeleteAccount(context.Background(), account.ID)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestListTransactions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	want := []domain.Transaction{
		{ID: 2, AccountID: 1, Amount: "50", Kind: domain.KindWithdraw},
		{ID: 1, AccountID: 1, Amount: "100", Kind: domain.KindDeposit},
	}

	tr := NewMockTransactionRepo(ctrl)
	tr.EXPECT().ListByAccount(gomock.Any(), gomock.Eq(int32(1))).
		Times(1).
		Return(want, nil)

	s := New(NewMockAccountRepo(ctrl), tr, NewMockTxManager(ctrl), 0)

	got, err := s.ListTransactions(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, want, got)
}
