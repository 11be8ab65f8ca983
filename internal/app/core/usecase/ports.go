package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-bank-clients/internal/app/core/domain"
)

// ClientReader 依登入帳號查詢客戶
type ClientReader interface {
	// FindClientByLogin 找不到時回傳 domain.ErrClientNotFound
	FindClientByLogin(ctx context.Context, login string) (*domain.Client, error)
}

// ClientRepository 客戶資料的儲存介面
type ClientRepository interface {
	ClientReader
	// FindClientByID 找不到時回傳 domain.ErrClientNotFound
	FindClientByID(ctx context.Context, id int64) (*domain.Client, error)
	// ClientExists 登入帳號、電話或 email 任一已被使用
	ClientExists(ctx context.Context, login, phone, email string) (bool, error)
	// CreateClient 在同一個 transaction 內建立客戶與帳戶，並回填 ID
	CreateClient(ctx context.Context, client *domain.Client) error
	// UpdateContacts 鎖定客戶後套用 mutate，mutate 成功才寫回
	// 新的聯絡方式已屬於其他客戶時回傳 domain.ErrContactTaken
	UpdateContacts(ctx context.Context, clientID int64, mutate func(c *domain.Client) error) error
	// SearchClients 分頁搜尋
	SearchClients(ctx context.Context, query domain.ClientQuery) (*domain.ClientPage, error)
}

// AccountRepository 帳戶的唯讀查詢 (不加鎖)
type AccountRepository interface {
	// FindAccountByClientID 找不到時回傳 domain.ErrAccountNotFound
	FindAccountByClientID(ctx context.Context, clientID int64) (*domain.Account, error)
	// FindAccountByID 找不到時回傳 domain.ErrAccountNotFound
	FindAccountByID(ctx context.Context, id int64) (*domain.Account, error)
	// FindAllAccounts 載入所有帳戶，依 ID 排序
	FindAllAccounts(ctx context.Context) ([]*domain.Account, error)
}

// LedgerTx 單一 unit of work 內可用的帳務操作
type LedgerTx interface {
	// LockAccounts 依 ID 由小到大鎖定帳戶直到 transaction 結束
	// 不存在的 ID 不會出現在回傳的 map 中
	LockAccounts(ctx context.Context, ids []int64) (map[int64]*domain.Account, error)
	// SaveBalance 寫回帳戶餘額
	SaveBalance(ctx context.Context, account *domain.Account) error
	// FindTransfer 取得該 RefID 已入帳的轉帳，不存在時回傳 nil, nil
	FindTransfer(ctx context.Context, refID uuid.UUID) (*domain.Transfer, error)
	// RecordTransfer 建立轉帳紀錄
	RecordTransfer(ctx context.Context, tran *domain.Transfer) error
}

// UnitOfWork fn 回傳錯誤時整筆 rollback，不留下任何部分變更
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}

// TokenIssuer 簽發登入後使用的 token
type TokenIssuer interface {
	Issue(clientID int64, login string) (string, error)
}
