package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-clients/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-bank-clients/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-clients/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-clients/internal/app/core/usecase/mocks"
)

func TestAccrual_RaisesUntilCeiling(t *testing.T) {
	f := newFixture(t, memory.ModeMutex)
	id := f.register(t, "alice", "100")
	job := usecase.NewAccrual(f.store, f.store, usecase.DefaultAccrualPolicy(), zap.NewNop())

	want := []string{"105.00", "110.25", "115.76", "121.55", "127.63", "134.01", "140.71", "147.75", "155.13", "162.89", "171.03", "179.59", "188.56", "197.99"}
	for i, w := range want {
		report, err := job.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, usecase.RunReport{Processed: 1, Accrued: 1}, report, "run %d", i)
		assert.Equal(t, w, domain.RoundForDisplay(f.balance(t, id)).StringFixed(2), "run %d", i)
	}

	capped := f.balance(t, id)
	for i := 0; i < 3; i++ {
		report, err := job.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, usecase.RunReport{Processed: 1, Capped: 1}, report)
		assert.True(t, f.balance(t, id).Equal(capped))
	}
}

func TestAccrual_CeilingFixedAtFirstObservation(t *testing.T) {
	f := newFixture(t, memory.ModeMutex)
	a := f.register(t, "alice", "100")
	b := f.register(t, "bob", "100")
	job := usecase.NewAccrual(f.store, f.store, usecase.DefaultAccrualPolicy(), zap.NewNop())

	require.NoError(t, job.Prime(context.Background()))
	ceiling, ok := job.Ceilings().Get(a)
	require.True(t, ok)
	assert.Equal(t, "207", ceiling.String())

	// 之後的入帳不會改變已登記的上限
	_, err := f.ledger.Transfer(context.Background(), usecase.TransferCommand{SenderLogin: "bob", RecipientAccountID: a, Amount: dec("99")})
	require.NoError(t, err)

	report, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	// 199 * 1.05 = 208.95 >= 207
	assert.Equal(t, 1, report.Capped)
	assert.Equal(t, "199", f.balance(t, a).String())
	// 1 * 1.05，上限 207
	assert.Equal(t, "1.05", f.balance(t, b).String())

	ceiling, _ = job.Ceilings().Get(a)
	assert.Equal(t, "207", ceiling.String())
	assert.Equal(t, 2, job.Ceilings().Len())
}

func TestAccrual_NoAccountsIsNoop(t *testing.T) {
	f := newFixture(t, memory.ModeMutex)
	job := usecase.NewAccrual(f.store, f.store, usecase.DefaultAccrualPolicy(), zap.NewNop())

	require.NoError(t, job.Prime(context.Background()))
	report, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, usecase.RunReport{}, report)
}

func TestAccrual_FailureDoesNotStopRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accounts := mocks.NewMockAccountRepository(ctrl)
	uow := mocks.NewMockUnitOfWork(ctrl)
	tx := mocks.NewMockLedgerTx(ctrl)

	accounts.EXPECT().FindAllAccounts(gomock.Any()).Return([]*domain.Account{
		domain.NewAccount(1, 1, dec("100")),
		domain.NewAccount(2, 2, dec("100")),
		domain.NewAccount(3, 3, dec("100")),
	}, nil)

	dbDown := errors.New("connection reset")
	uow.EXPECT().WithinTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context, usecase.LedgerTx) error) error {
			return fn(ctx, tx)
		}).Times(3)
	tx.EXPECT().LockAccounts(gomock.Any(), []int64{1}).Return(map[int64]*domain.Account{1: domain.NewAccount(1, 1, dec("100"))}, nil)
	tx.EXPECT().LockAccounts(gomock.Any(), []int64{2}).Return(nil, dbDown)
	// 帳戶 3 在掃描後消失
	tx.EXPECT().LockAccounts(gomock.Any(), []int64{3}).Return(map[int64]*domain.Account{}, nil)
	tx.EXPECT().SaveBalance(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, acc *domain.Account) error {
		assert.Equal(t, int64(1), acc.ID)
		assert.Equal(t, "105", acc.Balance.String())
		return nil
	})

	job := usecase.NewAccrual(accounts, uow, usecase.DefaultAccrualPolicy(), zap.NewNop())
	report, err := job.Run(context.Background())
	assert.Equal(t, usecase.RunReport{Processed: 3, Accrued: 1, Skipped: 1, Failed: 1}, report)
	require.Error(t, err)
	assert.ErrorIs(t, err, dbDown)
	assert.Contains(t, err.Error(), "account 2")
}

func TestAccrual_LoadFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accounts := mocks.NewMockAccountRepository(ctrl)
	uow := mocks.NewMockUnitOfWork(ctrl)
	accounts.EXPECT().FindAllAccounts(gomock.Any()).Return(nil, domain.ErrPersistence).Times(2)
	uow.EXPECT().WithinTx(gomock.Any(), gomock.Any()).Times(0)

	job := usecase.NewAccrual(accounts, uow, usecase.DefaultAccrualPolicy(), zap.NewNop())
	_, err := job.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.ErrorIs(t, job.Prime(context.Background()), domain.ErrPersistence)
}

func TestAccrualPolicy_Validate(t *testing.T) {
	assert.NoError(t, usecase.DefaultAccrualPolicy().Validate())
	assert.ErrorIs(t, usecase.AccrualPolicy{Factor: dec("1"), CeilingFactor: dec("2")}.Validate(), domain.ErrInvalidInput)
}

func TestCeilingBook_ObserveOnce(t *testing.T) {
	book := usecase.NewCeilingBook()
	c, first := book.Observe(1, dec("207"))
	assert.True(t, first)
	assert.Equal(t, "207", c.String())

	c, first = book.Observe(1, dec("500"))
	assert.False(t, first)
	assert.Equal(t, "207", c.String())

	_, ok := book.Get(2)
	assert.False(t, ok)
}
