package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-bank-clients/internal/app/core/domain"
)

// ledgerTx 暫存 unit of work 內的變更，提交前不影響 state
type ledgerTx struct {
	state    *state
	staged   map[int64]*domain.Account
	transfer *domain.Transfer
}

func newLedgerTx(st *state) *ledgerTx {
	return &ledgerTx{
		state:  st,
		staged: make(map[int64]*domain.Account),
	}
}

// LockAccounts 整個 unit of work 已在 sequencer 內獨占執行，這裡只回傳拷貝
func (t *ledgerTx) LockAccounts(ctx context.Context, ids []int64) (map[int64]*domain.Account, error) {
	locked := make(map[int64]*domain.Account, len(ids))
	for _, id := range ids {
		if acc, ok := t.staged[id]; ok {
			locked[id] = acc.Clone()
			continue
		}
		if acc, ok := t.state.accounts[id]; ok {
			locked[id] = acc.Clone()
		}
	}
	return locked, nil
}

func (t *ledgerTx) SaveBalance(ctx context.Context, account *domain.Account) error {
	if _, ok := t.state.accounts[account.ID]; !ok {
		return domain.ErrAccountNotFound
	}
	t.staged[account.ID] = account.Clone()
	return nil
}

func (t *ledgerTx) FindTransfer(ctx context.Context, refID uuid.UUID) (*domain.Transfer, error) {
	if tran, ok := t.state.transfers[refID]; ok {
		cp := *tran
		return &cp, nil
	}
	if t.transfer != nil && t.transfer.RefID == refID {
		cp := *t.transfer
		return &cp, nil
	}
	return nil, nil
}

func (t *ledgerTx) RecordTransfer(ctx context.Context, tran *domain.Transfer) error {
	cp := *tran
	t.transfer = &cp
	return nil
}

// entry 沒有任何變更時回傳 nil
func (t *ledgerTx) entry() *journalEntry {
	if len(t.staged) == 0 && t.transfer == nil {
		return nil
	}
	e := &journalEntry{Kind: entryLedger}
	for _, acc := range t.staged {
		e.Balances = append(e.Balances, balanceRecord{AccountID: acc.ID, Balance: acc.Balance})
	}
	slices.SortFunc(e.Balances, func(a, b balanceRecord) int {
		return cmp.Compare(a.AccountID, b.AccountID)
	})
	if t.transfer != nil {
		e.Transfer = newTransferRecord(t.transfer)
	}
	return e
}

// FindAccountByClientID 取得客戶的帳戶
func (s *Store) FindAccountByClientID(ctx context.Context, clientID int64) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.state.accountByClient[clientID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return s.state.accounts[id].Clone(), nil
}

// FindAccountByID 取得帳戶
func (s *Store) FindAccountByID(ctx context.Context, id int64) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.state.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return acc.Clone(), nil
}

// FindAllAccounts 依 ID 排序回傳所有帳戶
func (s *Store) FindAllAccounts(ctx context.Context) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accounts := make([]*domain.Account, 0, len(s.state.accounts))
	for _, acc := range s.state.accounts {
		accounts = append(accounts, acc.Clone())
	}
	slices.SortFunc(accounts, func(a, b *domain.Account) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return accounts, nil
}
