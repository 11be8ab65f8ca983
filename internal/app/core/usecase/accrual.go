package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-clients/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-clients/internal/app/metrics"
)

// AccrualPolicy 計息倍率與上限倍率
type AccrualPolicy struct {
	Factor        decimal.Decimal
	CeilingFactor decimal.Decimal
}

func DefaultAccrualPolicy() AccrualPolicy {
	return AccrualPolicy{
		Factor:        domain.DefaultInterestFactor,
		CeilingFactor: domain.DefaultCeilingFactor,
	}
}

// Validate 倍率必須大於 1
func (p AccrualPolicy) Validate() error {
	if !p.Factor.GreaterThan(decimal.NewFromInt(1)) || !p.CeilingFactor.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: accrual factors must be greater than 1", domain.ErrInvalidInput)
	}
	return nil
}

// RunReport 單次計息的統計
type RunReport struct {
	// Processed: 本次掃描到的帳戶數
	Processed int
	// Accrued: 有入帳的帳戶數
	Accrued int
	// Capped: 已達上限未變動的帳戶數
	Capped int
	// Skipped: 掃描後被移除的帳戶數
	Skipped int
	// Failed: 儲存失敗的帳戶數
	Failed int
}

type accrualOutcome string

const (
	outcomeAccrued accrualOutcome = "accrued"
	outcomeCapped  accrualOutcome = "capped"
	outcomeSkipped accrualOutcome = "skipped"
	outcomeFailed  accrualOutcome = "failed"
)

// Accrual 定期為所有帳戶計息，直到各自的上限
type Accrual struct {
	accounts AccountRepository
	uow      UnitOfWork
	ceilings *CeilingBook
	policy   AccrualPolicy
	logger   *zap.Logger
}

func NewAccrual(accounts AccountRepository, uow UnitOfWork, policy AccrualPolicy, logger *zap.Logger) *Accrual {
	return &Accrual{
		accounts: accounts,
		uow:      uow,
		ceilings: NewCeilingBook(),
		policy:   policy,
		logger:   logger.Named("accrual"),
	}
}

// Ceilings 回傳目前的上限紀錄
func (a *Accrual) Ceilings() *CeilingBook {
	return a.ceilings
}

// Prime 啟動時掃描一次所有帳戶，以當下餘額登記上限
func (a *Accrual) Prime(ctx context.Context) error {
	accounts, err := a.accounts.FindAllAccounts(ctx)
	if err != nil {
		return fmt.Errorf("prime ceilings: %w", err)
	}
	for _, acc := range accounts {
		ceiling, _ := a.ceilings.Observe(acc.ID, acc.Ceiling(a.policy.CeilingFactor))
		a.logger.Info("ceiling registered",
			zap.Int64("client_id", acc.ClientID),
			zap.Int64("account_id", acc.ID),
			zap.String("balance", domain.RoundForDisplay(acc.Balance).StringFixed(domain.DisplayScale)),
			zap.String("ceiling", domain.RoundForDisplay(ceiling).StringFixed(domain.DisplayScale)),
		)
	}
	return nil
}

// Run 為所有帳戶計息一次
// 單一帳戶失敗不會中斷本次執行，所有錯誤在最後合併回傳
//
// 回傳:
//
//	RunReport: 本次統計
//	error: 載入帳戶失敗或各帳戶錯誤的 errors.Join
func (a *Accrual) Run(ctx context.Context) (RunReport, error) {
	var report RunReport
	accounts, err := a.accounts.FindAllAccounts(ctx)
	if err != nil {
		return report, fmt.Errorf("load accounts: %w", err)
	}

	var errs []error
	for _, acc := range accounts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		report.Processed++
		outcome, balance, err := a.accrueOne(ctx, acc.ID)
		metrics.ObserveAccrualAccount(string(outcome))
		switch outcome {
		case outcomeAccrued:
			report.Accrued++
		case outcomeCapped:
			report.Capped++
		case outcomeSkipped:
			report.Skipped++
			a.logger.Debug("account vanished before accrual", zap.Int64("account_id", acc.ID))
			continue
		case outcomeFailed:
			report.Failed++
			errs = append(errs, fmt.Errorf("account %d: %w", acc.ID, err))
			a.logger.Error("accrual failed", zap.Int64("account_id", acc.ID), zap.Error(err))
			continue
		}
		a.logger.Info("balance after accrual",
			zap.Int64("client_id", balance.ClientID),
			zap.Int64("account_id", balance.ID),
			zap.String("balance", domain.RoundForDisplay(balance.Balance).StringFixed(domain.DisplayScale)),
			zap.Bool("capped", outcome == outcomeCapped),
		)
	}
	return report, errors.Join(errs...)
}

// accrueOne 在獨立的 unit of work 內為單一帳戶計息
func (a *Accrual) accrueOne(ctx context.Context, accountID int64) (accrualOutcome, *domain.Account, error) {
	var (
		outcome accrualOutcome
		after   *domain.Account
	)
	err := a.uow.WithinTx(ctx, func(ctx context.Context, tx LedgerTx) error {
		locked, err := tx.LockAccounts(ctx, []int64{accountID})
		if err != nil {
			return err
		}
		acc, ok := locked[accountID]
		if !ok {
			outcome = outcomeSkipped
			return nil
		}
		ceiling, _ := a.ceilings.Observe(acc.ID, acc.Ceiling(a.policy.CeilingFactor))
		if !acc.Accrue(a.policy.Factor, ceiling) {
			outcome, after = outcomeCapped, acc
			return nil
		}
		if err := tx.SaveBalance(ctx, acc); err != nil {
			return err
		}
		outcome, after = outcomeAccrued, acc
		return nil
	})
	if err != nil {
		return outcomeFailed, nil, err
	}
	return outcome, after, nil
}
