package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-clients/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-clients/internal/app/metrics"
)

// TransferCommand 轉帳請求
type TransferCommand struct {
	// SenderLogin: 已驗證的呼叫者登入帳號
	SenderLogin string
	// RecipientAccountID: 收款帳戶 ID
	RecipientAccountID int64
	// Amount: 金額
	Amount decimal.Decimal
	// RefID: 冪等鍵，空值時自動產生
	RefID uuid.UUID
}

// TransferResult 轉帳結果
type TransferResult struct {
	Transfer *domain.Transfer
	// Replayed: RefID 已入帳過，本次未變動任何餘額
	Replayed bool
	// SenderBalance: 交易後轉出帳戶的餘額
	SenderBalance decimal.Decimal
}

// LedgerUseCase 帳戶間轉帳與餘額查詢
type LedgerUseCase struct {
	clients  ClientReader
	accounts AccountRepository
	uow      UnitOfWork
	logger   *zap.Logger
	now      func() time.Time
}

func NewLedgerUseCase(clients ClientReader, accounts AccountRepository, uow UnitOfWork, logger *zap.Logger) *LedgerUseCase {
	return &LedgerUseCase{
		clients:  clients,
		accounts: accounts,
		uow:      uow,
		logger:   logger.Named("ledger"),
		now:      time.Now,
	}
}

// Transfer 從呼叫者的帳戶轉出金額到指定帳戶
//
// 參數:
//
//	ctx: 上下文
//	cmd: 轉帳請求
//
// 回傳:
//
//	*TransferResult: 成功時的轉帳紀錄
//	error: ErrAccountNotFound / ErrInvalidAmount / ErrSameAccount / ErrInsufficientFunds / ErrIdempotencyConflict / ErrPersistence
func (l *LedgerUseCase) Transfer(ctx context.Context, cmd TransferCommand) (*TransferResult, error) {
	res, err := l.transfer(ctx, cmd)
	metrics.ObserveTransfer(transferOutcome(res, err))
	if err != nil {
		l.logger.Debug("transfer rejected",
			zap.String("login", cmd.SenderLogin),
			zap.Int64("recipient_account_id", cmd.RecipientAccountID),
			zap.String("amount", cmd.Amount.String()),
			zap.Error(err),
		)
		return nil, err
	}
	return res, nil
}

func (l *LedgerUseCase) transfer(ctx context.Context, cmd TransferCommand) (*TransferResult, error) {
	if err := domain.ValidateAmount(cmd.Amount); err != nil {
		return nil, err
	}
	sender, err := l.accountOf(ctx, cmd.SenderLogin)
	if err != nil {
		return nil, err
	}

	refID := cmd.RefID
	if refID == uuid.Nil {
		refID = uuid.New()
	}
	tran := &domain.Transfer{
		RefID:     refID,
		From:      sender.ID,
		To:        cmd.RecipientAccountID,
		Amount:    cmd.Amount,
		CreatedAt: l.now().UTC(),
	}
	if err := tran.Validate(); err != nil {
		return nil, err
	}

	res := &TransferResult{Transfer: tran}
	err = l.uow.WithinTx(ctx, func(ctx context.Context, tx LedgerTx) error {
		// 先取得鎖再檢查冪等，同一 RefID 的並發請求會在此序列化
		locked, err := tx.LockAccounts(ctx, tran.GetLockIDs())
		if err != nil {
			return err
		}
		applied, err := tx.FindTransfer(ctx, tran.RefID)
		if err != nil {
			return err
		}
		if applied != nil && !applied.SamePayload(tran) {
			return fmt.Errorf("%w: %s", domain.ErrIdempotencyConflict, tran.RefID)
		}
		from, ok := locked[tran.From]
		if !ok {
			return fmt.Errorf("%w: sender account %d", domain.ErrAccountNotFound, tran.From)
		}
		if applied != nil {
			res.Transfer = applied
			res.Replayed = true
			res.SenderBalance = from.Balance
			return nil
		}
		to, ok := locked[tran.To]
		if !ok {
			return fmt.Errorf("%w: recipient account %d", domain.ErrAccountNotFound, tran.To)
		}

		if err := from.Withdraw(tran.Amount); err != nil {
			return err
		}
		if err := to.Deposit(tran.Amount); err != nil {
			return err
		}
		if err := tx.SaveBalance(ctx, from); err != nil {
			return err
		}
		if err := tx.SaveBalance(ctx, to); err != nil {
			return err
		}
		if err := tx.RecordTransfer(ctx, tran); err != nil {
			return err
		}
		res.SenderBalance = from.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("transfer committed",
		zap.String("ref_id", tran.RefID.String()),
		zap.Int64("from_account_id", tran.From),
		zap.Int64("to_account_id", tran.To),
		zap.String("amount", tran.Amount.String()),
		zap.Bool("replayed", res.Replayed),
	)
	return res, nil
}

// GetBalance 取得呼叫者的帳戶
func (l *LedgerUseCase) GetBalance(ctx context.Context, login string) (*domain.Account, error) {
	return l.accountOf(ctx, login)
}

// accountOf 登入帳號 -> 客戶 -> 帳戶，任一不存在都視為帳戶不存在
func (l *LedgerUseCase) accountOf(ctx context.Context, login string) (*domain.Account, error) {
	client, err := l.clients.FindClientByLogin(ctx, login)
	if errors.Is(err, domain.ErrClientNotFound) {
		return nil, fmt.Errorf("%w: no client with login %q", domain.ErrAccountNotFound, login)
	}
	if err != nil {
		return nil, err
	}
	return l.accounts.FindAccountByClientID(ctx, client.ID)
}

func transferOutcome(res *TransferResult, err error) string {
	switch {
	case err == nil && res.Replayed:
		return "replayed"
	case err == nil:
		return "committed"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, domain.ErrIdempotencyConflict):
		return "conflict"
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrSameAccount):
		return "invalid"
	default:
		return "error"
	}
}
