package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/JoeShih716/go-bank-clients/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-bank-clients/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-clients/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-clients/internal/app/core/usecase/mocks"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	store   *memory.Store
	ledger  *usecase.LedgerUseCase
	clients *usecase.ClientUseCase
}

func newFixture(t *testing.T, mode memory.Mode) *fixture {
	t.Helper()
	store, err := memory.NewStore(nil, memory.WithMode(mode))
	require.NoError(t, err)
	t.Cleanup(store.Close)

	logger := zap.NewNop()
	return &fixture{
		store:   store,
		ledger:  usecase.NewLedgerUseCase(store, store, store, logger),
		clients: usecase.NewClientUseCase(store, logger, usecase.WithHashCost(bcrypt.MinCost)),
	}
}

// register 建立客戶並回傳帳戶 ID
func (f *fixture) register(t *testing.T, login, balance string) int64 {
	t.Helper()
	c, err := f.clients.Register(context.Background(), usecase.RegisterCommand{
		FullName:  "Client " + login,
		BirthDate: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		Login:     login,
		Password:  "secret",
		Phone:     "+7" + login,
		Email:     login + "@example.com",
		Balance:   dec(balance),
	})
	require.NoError(t, err)
	return c.Account.ID
}

func (f *fixture) balance(t *testing.T, accountID int64) decimal.Decimal {
	t.Helper()
	acc, err := f.store.FindAccountByID(context.Background(), accountID)
	require.NoError(t, err)
	return acc.Balance
}

func TestTransfer_MovesExactAmount(t *testing.T) {
	f := newFixture(t, memory.ModeMutex)
	a := f.register(t, "alice", "100")
	b := f.register(t, "bob", "100")

	res, err := f.ledger.Transfer(context.Background(), usecase.TransferCommand{
		SenderLogin:        "alice",
		RecipientAccountID: b,
		Amount:             domain.AmountFromFloat(20),
	})
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.NotEqual(t, uuid.Nil, res.Transfer.RefID)
	assert.Equal(t, "80", res.SenderBalance.String())

	assert.Equal(t, "80", f.balance(t, a).String())
	assert.Equal(t, "120", f.balance(t, b).String())
}

func TestTransfer_WholeBalanceRejected(t *testing.T) {
	f := newFixture(t, memory.ModeMutex)
	a := f.register(t, "alice", "100")
	b := f.register(t, "bob", "1")

	_, err := f.ledger.Transfer(context.Background(), usecase.TransferCommand{SenderLogin: "alice", RecipientAccountID: b, Amount: dec("100")})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, "100", f.balance(t, a).String())
	assert.Equal(t, "1", f.balance(t, b).String())

	_, err = f.ledger.Transfer(context.Background(), usecase.TransferCommand{SenderLogin: "alice", RecipientAccountID: b, Amount: dec("99.99")})
	require.NoError(t, err)
	assert.Equal(t, "0.01", f.balance(t, a).String())
}

func TestTransfer_Rejections(t *testing.T) {
	f := newFixture(t, memory.ModeMutex)
	a := f.register(t, "alice", "100")
	b := f.register(t, "bob", "100")

	tests := []struct {
		name string
		cmd  usecase.TransferCommand
		want error
	}{
		{"insufficient funds", usecase.TransferCommand{SenderLogin: "alice", RecipientAccountID: b, Amount: dec("120")}, domain.ErrInsufficientFunds},
		{"unknown recipient", usecase.TransferCommand{SenderLogin: "alice", RecipientAccountID: 999, Amount: dec("10")}, domain.ErrAccountNotFound},
		{"unknown sender", usecase.TransferCommand{SenderLogin: "mallory", RecipientAccountID: b, Amount: dec("10")}, domain.ErrAccountNotFound},
		{"same account", usecase.TransferCommand{SenderLogin: "alice", RecipientAccountID: a, Amount: dec("10")}, domain.ErrSameAccount},
		{"zero amount", usecase.TransferCommand{SenderLogin: "alice", RecipientAccountID: b, Amount: decimal.Zero}, domain.ErrInvalidAmount},
		{"negative amount", usecase.TransferCommand{SenderLogin: "alice", RecipientAccountID: b, Amount: dec("-5")}, domain.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.Transfer(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, "100", f.balance(t, a).String())
			assert.Equal(t, "100", f.balance(t, b).String())
		})
	}
}

func TestTransfer_ReplayedRefIDAppliesOnce(t *testing.T) {
	f := newFixture(t, memory.ModeMutex)
	a := f.register(t, "alice", "100")
	b := f.register(t, "bob", "100")

	cmd := usecase.TransferCommand{SenderLogin: "alice", RecipientAccountID: b, Amount: dec("30"), RefID: uuid.New()}
	first, err := f.ledger.Transfer(context.Background(), cmd)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := f.ledger.Transfer(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, "70", second.SenderBalance.String())

	assert.Equal(t, "70", f.balance(t, a).String())
	assert.Equal(t, "130", f.balance(t, b).String())
}

func TestTransfer_ReusedRefIDWithDifferentPayload(t *testing.T) {
	f := newFixture(t, memory.ModeMutex)
	a := f.register(t, "alice", "100")
	b := f.register(t, "bob", "100")
	c := f.register(t, "carol", "100")

	ref := uuid.New()
	_, err := f.ledger.Transfer(context.Background(), usecase.TransferCommand{
		SenderLogin: "alice", RecipientAccountID: b, Amount: dec("20"), RefID: ref,
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		cmd  usecase.TransferCommand
	}{
		{"other sender", usecase.TransferCommand{SenderLogin: "carol", RecipientAccountID: a, Amount: dec("50"), RefID: ref}},
		{"other recipient", usecase.TransferCommand{SenderLogin: "alice", RecipientAccountID: c, Amount: dec("20"), RefID: ref}},
		{"other amount", usecase.TransferCommand{SenderLogin: "alice", RecipientAccountID: b, Amount: dec("20.01"), RefID: ref}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.ledger.Transfer(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, domain.ErrIdempotencyConflict)
			assert.Nil(t, res)
		})
	}

	assert.Equal(t, "80", f.balance(t, a).String())
	assert.Equal(t, "120", f.balance(t, b).String())
	assert.Equal(t, "100", f.balance(t, c).String())
}

func TestTransfer_ConcurrentTransfersConserveTotal(t *testing.T) {
	for _, mode := range []memory.Mode{memory.ModeMutex, memory.ModeEventLoop} {
		t.Run(string(mode), func(t *testing.T) {
			f := newFixture(t, mode)
			logins := []string{"a", "b", "c", "d"}
			ids := make([]int64, len(logins))
			for i, l := range logins {
				ids[i] = f.register(t, l, "100")
			}

			g, ctx := errgroup.WithContext(context.Background())
			for w := 0; w < 8; w++ {
				rnd := rand.New(rand.NewSource(int64(w)))
				g.Go(func() error {
					for i := 0; i < 200; i++ {
						from := rnd.Intn(len(logins))
						to := (from + 1 + rnd.Intn(len(logins)-1)) % len(logins)
						amount := decimal.NewFromInt(int64(rnd.Intn(30) + 1))
						_, err := f.ledger.Transfer(ctx, usecase.TransferCommand{
							SenderLogin:        logins[from],
							RecipientAccountID: ids[to],
							Amount:             amount,
						})
						if err != nil && !errors.Is(err, domain.ErrInsufficientFunds) {
							return fmt.Errorf("transfer %d: %w", i, err)
						}
					}
					return nil
				})
			}
			require.NoError(t, g.Wait())

			total := decimal.Zero
			for _, id := range ids {
				bal := f.balance(t, id)
				assert.True(t, bal.IsPositive(), "account %d balance %s", id, bal)
				total = total.Add(bal)
			}
			assert.Equal(t, "400", total.String())
		})
	}
}

func TestGetBalance(t *testing.T) {
	f := newFixture(t, memory.ModeMutex)
	f.register(t, "alice", "12.5")

	acc, err := f.ledger.GetBalance(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "12.5", acc.Balance.String())

	_, err = f.ledger.GetBalance(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestTransfer_LocksInAscendingOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	clients := mocks.NewMockClientReader(ctrl)
	accounts := mocks.NewMockAccountRepository(ctrl)
	uow := mocks.NewMockUnitOfWork(ctrl)
	tx := mocks.NewMockLedgerTx(ctrl)

	clients.EXPECT().FindClientByLogin(gomock.Any(), "alice").Return(&domain.Client{ID: 7, Login: "alice"}, nil)
	accounts.EXPECT().FindAccountByClientID(gomock.Any(), int64(7)).Return(domain.NewAccount(9, 7, dec("50")), nil)
	uow.EXPECT().WithinTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context, usecase.LedgerTx) error) error {
			return fn(ctx, tx)
		})

	gomock.InOrder(
		tx.EXPECT().LockAccounts(gomock.Any(), []int64{3, 9}).Return(map[int64]*domain.Account{
			3: domain.NewAccount(3, 1, dec("10")),
			9: domain.NewAccount(9, 7, dec("50")),
		}, nil),
		tx.EXPECT().FindTransfer(gomock.Any(), gomock.Any()).Return(nil, nil),
	)
	tx.EXPECT().SaveBalance(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, acc *domain.Account) error {
		switch acc.ID {
		case 9:
			assert.Equal(t, "45", acc.Balance.String())
		case 3:
			assert.Equal(t, "15", acc.Balance.String())
		default:
			t.Errorf("unexpected account %d", acc.ID)
		}
		return nil
	}).Times(2)
	tx.EXPECT().RecordTransfer(gomock.Any(), gomock.Any()).Return(nil)

	ledger := usecase.NewLedgerUseCase(clients, accounts, uow, zap.NewNop())
	_, err := ledger.Transfer(context.Background(), usecase.TransferCommand{SenderLogin: "alice", RecipientAccountID: 3, Amount: dec("5")})
	require.NoError(t, err)
}

func TestTransfer_PersistenceErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	clients := mocks.NewMockClientReader(ctrl)
	accounts := mocks.NewMockAccountRepository(ctrl)
	uow := mocks.NewMockUnitOfWork(ctrl)

	clients.EXPECT().FindClientByLogin(gomock.Any(), "alice").Return(&domain.Client{ID: 1}, nil)
	accounts.EXPECT().FindAccountByClientID(gomock.Any(), int64(1)).Return(domain.NewAccount(1, 1, dec("50")), nil)
	uow.EXPECT().WithinTx(gomock.Any(), gomock.Any()).Return(fmt.Errorf("%w: deadlock retries exhausted", domain.ErrPersistence))

	ledger := usecase.NewLedgerUseCase(clients, accounts, uow, zap.NewNop())
	_, err := ledger.Transfer(context.Background(), usecase.TransferCommand{SenderLogin: "alice", RecipientAccountID: 2, Amount: dec("5")})
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestTransfer_LookupErrorIsNotMasked(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	clients := mocks.NewMockClientReader(ctrl)
	accounts := mocks.NewMockAccountRepository(ctrl)
	uow := mocks.NewMockUnitOfWork(ctrl)

	clients.EXPECT().FindClientByLogin(gomock.Any(), "alice").Return(nil, domain.ErrPersistence)
	uow.EXPECT().WithinTx(gomock.Any(), gomock.Any()).Times(0)

	ledger := usecase.NewLedgerUseCase(clients, accounts, uow, zap.NewNop())
	_, err := ledger.Transfer(context.Background(), usecase.TransferCommand{SenderLogin: "alice", RecipientAccountID: 2, Amount: dec("5")})
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.NotErrorIs(t, err, domain.ErrAccountNotFound)
}
