package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transfer 一筆帳戶間轉帳
type Transfer struct {
	// RefID: 外部追蹤號 (UUID)，同時作為冪等鍵
	RefID uuid.UUID
	// From, To: 帳戶 ID
	From int64
	To   int64
	// Amount: 金額
	Amount decimal.Decimal
	// CreatedAt: 交易時間
	CreatedAt time.Time
}

// Validate 檢查金額與帳戶
func (t *Transfer) Validate() error {
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if t.From == t.To {
		return ErrSameAccount
	}
	return nil
}

// GetLockIDs 回傳需要鎖定的帳號 ID，並確保順序以避免死鎖
func (t *Transfer) GetLockIDs() (ids []int64) {
	ids = make([]int64, 0, 2)
	if t.From < t.To {
		ids = append(ids, t.From, t.To)
	} else {
		ids = append(ids, t.To, t.From)
	}
	return ids
}

// SamePayload 同一 RefID 的重送是否與原交易內容一致 (帳戶與金額)
func (t *Transfer) SamePayload(other *Transfer) bool {
	return t.From == other.From && t.To == other.To && t.Amount.Equal(other.Amount)
}
