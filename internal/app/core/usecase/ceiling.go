package usecase

import (
	"sync"

	"github.com/shopspring/decimal"
)

// CeilingBook 記錄每個帳戶的計息上限，每個 ID 只設定一次
type CeilingBook struct {
	mu       sync.Mutex
	ceilings map[int64]decimal.Decimal
}

func NewCeilingBook() *CeilingBook {
	return &CeilingBook{
		ceilings: make(map[int64]decimal.Decimal),
	}
}

// Observe 若 accountID 尚未登記則以 ceiling 登記
//
// 回傳:
//
//	decimal.Decimal: 生效中的上限
//	bool: 是否為本次新登記
func (b *CeilingBook) Observe(accountID int64, ceiling decimal.Decimal) (decimal.Decimal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.ceilings[accountID]; ok {
		return c, false
	}
	b.ceilings[accountID] = ceiling
	return ceiling, true
}

// Get 查詢已登記的上限
func (b *CeilingBook) Get(accountID int64) (decimal.Decimal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.ceilings[accountID]
	return c, ok
}

func (b *CeilingBook) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ceilings)
}
