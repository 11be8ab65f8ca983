package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/JoeShih716/go-bank-clients/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-clients/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-clients/pkg/wal"
)

// Store 記憶體內的客戶與帳本，已提交的變更寫入 WAL
//
// 結構:
//
//	seq: 寫入序列化 (mutex 或 event loop)
//	mu: 保護 state，提交時寫鎖，查詢時讀鎖
//	state: 全部資料
//	wal: Write-Ahead Log 實例 (nil 表示不落地)
type Store struct {
	seq   sequencer
	mu    sync.RWMutex
	state *state
	wal   *wal.WAL
}

// Option 定義 Store 的配置選項
type Option func(*storeOptions)

type storeOptions struct {
	mode Mode
}

// WithMode 設定寫入序列化方式，預設 ModeMutex
func WithMode(mode Mode) Option {
	return func(o *storeOptions) {
		o.mode = mode
	}
}

// NewStore 建立 Store，並從 WAL 重播恢復狀態
//
// 參數:
//
//	w: Write-Ahead Log 實例，可為 nil
//	opts: 配置選項
//
// 回傳:
//
//	*Store: Store 實例
//	error: 初始化錯誤 (如 WAL 恢復失敗)
func NewStore(w *wal.WAL, opts ...Option) (*Store, error) {
	o := storeOptions{mode: ModeMutex}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Store{
		state: newState(),
		wal:   w,
	}
	if err := s.recoverFromWAL(); err != nil {
		return nil, err
	}
	seq, err := newSequencer(o.mode)
	if err != nil {
		return nil, err
	}
	s.seq = seq
	return s, nil
}

// recoverFromWAL 依序重播 WAL，只在 NewStore 內呼叫 (單執行緒)
func (s *Store) recoverFromWAL() error {
	if s.wal == nil {
		return nil
	}
	n := 0
	err := s.wal.Replay(func(raw json.RawMessage) error {
		var e journalEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return err
		}
		n++
		if err := s.state.apply(&e); err != nil {
			return fmt.Errorf("replay entry %d: %w", n, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("recover from wal: %w", err)
	}
	return nil
}

// Close 停止接受新的寫入，WAL 由建立者關閉
func (s *Store) Close() {
	s.seq.Close()
}

// exclusive 在 sequencer 內執行 fn 並回傳 fn 的錯誤
func (s *Store) exclusive(ctx context.Context, fn func() error) error {
	var err error
	if seqErr := s.seq.Do(ctx, func() { err = fn() }); seqErr != nil {
		return seqErr
	}
	return err
}

// commit 先寫 WAL 再套用到記憶體，必須在 sequencer 內呼叫
func (s *Store) commit(e *journalEntry) error {
	if s.wal != nil {
		if err := s.wal.Append(e); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.apply(e)
}

// WithinTx 執行一個 unit of work，fn 回傳錯誤時不留下任何變更
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx usecase.LedgerTx) error) error {
	return s.exclusive(ctx, func() error {
		tx := newLedgerTx(s.state)
		if err := fn(ctx, tx); err != nil {
			return err
		}
		e := tx.entry()
		if e == nil {
			return nil
		}
		return s.commit(e)
	})
}

var (
	_ usecase.UnitOfWork        = (*Store)(nil)
	_ usecase.AccountRepository = (*Store)(nil)
	_ usecase.ClientRepository  = (*Store)(nil)
)
