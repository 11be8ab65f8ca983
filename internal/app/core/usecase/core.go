package usecase

import (
	"context"

	"github.com/JoeShih716/go-bank-clients/internal/app/core/domain"
)

// CoreUseCase 聚合 RPC 入口需要的帳務與登入邏輯
type CoreUseCase struct {
	ledger *LedgerUseCase
	auth   *AuthUseCase
}

func NewCoreUseCase(ledger *LedgerUseCase, auth *AuthUseCase) *CoreUseCase {
	return &CoreUseCase{
		ledger: ledger,
		auth:   auth,
	}
}

// Authenticate 取得 token
func (c *CoreUseCase) Authenticate(ctx context.Context, login, password string) (string, error) {
	return c.auth.Authenticate(ctx, login, password)
}

// Transfer 處理轉帳
func (c *CoreUseCase) Transfer(ctx context.Context, cmd TransferCommand) (*TransferResult, error) {
	return c.ledger.Transfer(ctx, cmd)
}

// GetAccountBalance 取得呼叫者的帳戶
func (c *CoreUseCase) GetAccountBalance(ctx context.Context, login string) (*domain.Account, error) {
	return c.ledger.GetBalance(ctx, login)
}
