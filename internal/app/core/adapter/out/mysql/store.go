package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/JoeShih716/go-bank-clients/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-clients/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-clients/pkg/mysql"
)

// MySQL 錯誤碼
const (
	errDuplicateEntry  uint16 = 1062
	errLockWaitTimeout uint16 = 1205
	errDeadlock        uint16 = 1213
)

// Store 以 MySQL (GORM) 實作的客戶與帳本儲存
type Store struct {
	client  *mysql.Client
	retries int
	backoff time.Duration
	logger  *zap.Logger
}

// Option 定義 Store 的配置選項
type Option func(*Store)

// WithTxRetries 設定 deadlock / lock wait timeout 的重試次數與退避間隔
func WithTxRetries(retries int, backoff time.Duration) Option {
	return func(s *Store) {
		s.retries = retries
		s.backoff = backoff
	}
}

func NewStore(client *mysql.Client, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		client:  client,
		retries: 3,
		backoff: 20 * time.Millisecond,
		logger:  logger.Named("mysql"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) db(ctx context.Context) *gorm.DB {
	return s.client.DB().WithContext(ctx)
}

// WithinTx 在單一資料庫 transaction 內執行 fn
// 遇到 deadlock 或 lock wait timeout 時整個 fn 重新執行，次數用盡回傳 ErrPersistence
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx usecase.LedgerTx) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = s.db(ctx).Transaction(func(db *gorm.DB) error {
			return fn(ctx, &ledgerTx{db: db})
		})
		if err == nil || !isRetryable(err) || attempt >= s.retries {
			break
		}
		s.logger.Warn("transaction conflict, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", s.retries),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff * time.Duration(attempt+1)):
		}
	}
	if isRetryable(err) {
		return fmt.Errorf("%w: transaction retries exhausted: %w", domain.ErrPersistence, err)
	}
	return err
}

// Migrate 建立或補齊資料表
func (s *Store) Migrate() error {
	return s.client.AutoMigrate(Models()...)
}

func mysqlErrorNumber(err error) uint16 {
	var me *driver.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isRetryable(err error) bool {
	n := mysqlErrorNumber(err)
	return n == errDeadlock || n == errLockWaitTimeout
}

func isDuplicate(err error) bool {
	return mysqlErrorNumber(err) == errDuplicateEntry
}

// wrap 將資料庫錯誤包成 ErrPersistence，保留原始錯誤供重試判斷
func wrap(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
}

var (
	_ usecase.UnitOfWork        = (*Store)(nil)
	_ usecase.AccountRepository = (*Store)(nil)
	_ usecase.ClientRepository  = (*Store)(nil)
)
