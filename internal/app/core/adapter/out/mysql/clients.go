package mysql

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-bank-clients/internal/app/core/domain"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func contactsInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("kind").Order("position")
}

// withDetails 一併載入聯絡方式與帳戶
func withDetails(db *gorm.DB) *gorm.DB {
	return db.Preload("Contacts", contactsInOrder).Preload("Account")
}

// FindClientByLogin 依登入帳號查詢
func (s *Store) FindClientByLogin(ctx context.Context, login string) (*domain.Client, error) {
	return s.findClient(ctx, "login = ?", login)
}

// FindClientByID 依 ID 查詢
func (s *Store) FindClientByID(ctx context.Context, id int64) (*domain.Client, error) {
	return s.findClient(ctx, "id = ?", id)
}

func (s *Store) findClient(ctx context.Context, query string, arg any) (*domain.Client, error) {
	var row sqlClient
	err := withDetails(s.db(ctx)).Where(query, arg).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrClientNotFound
	}
	if err != nil {
		return nil, wrap("find client", err)
	}
	return row.toDomain(), nil
}

// ClientExists 登入帳號、電話或 email 任一已被使用
func (s *Store) ClientExists(ctx context.Context, login, phone, email string) (bool, error) {
	var n int64
	if err := s.db(ctx).Model(&sqlClient{}).Where("login = ?", login).Count(&n).Error; err != nil {
		return false, wrap("check login", err)
	}
	if n > 0 {
		return true, nil
	}
	if err := s.db(ctx).Model(&sqlContact{}).
		Where("(kind = ? AND value = ?) OR (kind = ? AND value = ?)",
			uint8(domain.ContactPhone), phone, uint8(domain.ContactEmail), email).
		Count(&n).Error; err != nil {
		return false, wrap("check contacts", err)
	}
	return n > 0, nil
}

// CreateClient 在同一個 transaction 內寫入客戶、聯絡方式與帳戶
func (s *Store) CreateClient(ctx context.Context, client *domain.Client) error {
	var clientID, accountID int64
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		row := newSQLClient(client)
		// 關聯分開寫入，避免 GORM 對聯絡方式使用 upsert
		if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
			return err
		}
		contacts := newSQLContacts(row.ID, client)
		if err := tx.Create(&contacts).Error; err != nil {
			return err
		}
		acc := sqlAccount{ClientID: row.ID, Balance: client.Account.Balance}
		if err := tx.Create(&acc).Error; err != nil {
			return err
		}
		clientID, accountID = row.ID, acc.ID
		return nil
	})
	if isDuplicate(err) {
		return domain.ErrClientAlreadyExists
	}
	if err != nil {
		return wrap("create client", err)
	}
	client.ID = clientID
	client.Account.ID = accountID
	client.Account.ClientID = clientID
	return nil
}

// UpdateContacts 鎖定客戶列，套用 mutate 後整批改寫聯絡方式
func (s *Store) UpdateContacts(ctx context.Context, clientID int64, mutate func(c *domain.Client) error) error {
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		var row sqlClient
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", clientID).Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrClientNotFound
		}
		if err != nil {
			return wrap("lock client", err)
		}
		if err := contactsInOrder(tx).Where("client_id = ?", clientID).Find(&row.Contacts).Error; err != nil {
			return wrap("load contacts", err)
		}

		client := row.toDomain()
		if err := mutate(client); err != nil {
			return err
		}

		if err := tx.Where("client_id = ?", clientID).Delete(&sqlContact{}).Error; err != nil {
			return wrap("clear contacts", err)
		}
		contacts := newSQLContacts(clientID, client)
		if err := tx.Create(&contacts).Error; err != nil {
			return wrap("write contacts", err)
		}
		return nil
	})
	if isDuplicate(err) {
		return domain.ErrContactTaken
	}
	return err
}

// SearchClients LIMIT size+1 判斷是否有下一頁
func (s *Store) SearchClients(ctx context.Context, q domain.ClientQuery) (*domain.ClientPage, error) {
	db := withDetails(s.db(ctx)).Model(&sqlClient{})
	switch q.Kind {
	case domain.SearchByName:
		pattern := "%" + likeEscaper.Replace(strings.ToLower(q.Text)) + "%"
		db = db.Where("LOWER(full_name) LIKE ?", pattern).Order("full_name").Order("id")
	case domain.SearchByBirthDateAfter:
		db = db.Where("birth_date > ?", q.BirthDate).Order("birth_date").Order("id")
	case domain.SearchByEmail, domain.SearchByPhone:
		kind := domain.ContactEmail
		if q.Kind == domain.SearchByPhone {
			kind = domain.ContactPhone
		}
		owners := s.db(ctx).Model(&sqlContact{}).Select("client_id").Where("kind = ? AND value = ?", uint8(kind), q.Text)
		db = db.Where("id IN (?)", owners).Order("id")
	default:
		return nil, domain.ErrInvalidInput
	}

	var rows []sqlClient
	if err := db.Offset(q.Offset()).Limit(q.Size + 1).Find(&rows).Error; err != nil {
		return nil, wrap("search clients", err)
	}

	page := &domain.ClientPage{Page: q.Page, Size: q.Size, Clients: []*domain.Client{}}
	if len(rows) > q.Size {
		page.HasNext = true
		rows = rows[:q.Size]
	}
	for i := range rows {
		page.Clients = append(page.Clients, rows[i].toDomain())
	}
	return page, nil
}
