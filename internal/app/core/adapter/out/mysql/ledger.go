package mysql

import (
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-bank-clients/internal/app/core/domain"
)

// ledgerTx 綁定在一個 gorm transaction 上的帳務操作
type ledgerTx struct {
	db *gorm.DB
}

// LockAccounts SELECT ... FOR UPDATE，依 ID 由小到大取得悲觀鎖
func (t *ledgerTx) LockAccounts(ctx context.Context, ids []int64) (map[int64]*domain.Account, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)

	var rows []sqlAccount
	if err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", sorted).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, wrap("lock accounts", err)
	}
	locked := make(map[int64]*domain.Account, len(rows))
	for i := range rows {
		locked[rows[i].ID] = rows[i].toDomain()
	}
	return locked, nil
}

func (t *ledgerTx) SaveBalance(ctx context.Context, account *domain.Account) error {
	if err := t.db.WithContext(ctx).
		Model(&sqlAccount{}).
		Where("id = ?", account.ID).
		Update("balance", account.Balance).Error; err != nil {
		return wrap("save balance", err)
	}
	return nil
}

func (t *ledgerTx) FindTransfer(ctx context.Context, refID uuid.UUID) (*domain.Transfer, error) {
	var rows []sqlTransfer
	if err := t.db.WithContext(ctx).
		Where("ref_id = ?", refID[:]).
		Find(&rows).Error; err != nil {
		return nil, wrap("find transfer", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	tran, err := rows[0].toDomain()
	if err != nil {
		return nil, wrap("decode transfer", err)
	}
	return tran, nil
}

func (t *ledgerTx) RecordTransfer(ctx context.Context, tran *domain.Transfer) error {
	row := sqlTransfer{
		RefID:         tran.RefID[:],
		FromAccountID: tran.From,
		ToAccountID:   tran.To,
		Amount:        tran.Amount,
		CreatedAt:     tran.CreatedAt.UnixMilli(),
	}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrap("record transfer", err)
	}
	return nil
}

// FindAccountByClientID 取得客戶的帳戶
func (s *Store) FindAccountByClientID(ctx context.Context, clientID int64) (*domain.Account, error) {
	return s.findAccount(ctx, "client_id = ?", clientID)
}

// FindAccountByID 取得帳戶
func (s *Store) FindAccountByID(ctx context.Context, id int64) (*domain.Account, error) {
	return s.findAccount(ctx, "id = ?", id)
}

func (s *Store) findAccount(ctx context.Context, query string, arg int64) (*domain.Account, error) {
	var row sqlAccount
	err := s.db(ctx).Where(query, arg).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, wrap("find account", err)
	}
	return row.toDomain(), nil
}

// FindAllAccounts 依 ID 排序回傳所有帳戶
func (s *Store) FindAllAccounts(ctx context.Context) ([]*domain.Account, error) {
	var rows []sqlAccount
	if err := s.db(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, wrap("load accounts", err)
	}
	accounts := make([]*domain.Account, 0, len(rows))
	for i := range rows {
		accounts = append(accounts, rows[i].toDomain())
	}
	return accounts, nil
}
