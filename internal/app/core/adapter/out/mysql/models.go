package mysql

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-clients/internal/app/core/domain"
)

// sqlClient 對應資料庫的 clients 表
type sqlClient struct {
	ID           int64        `gorm:"primaryKey;autoIncrement"`
	FullName     string       `gorm:"size:255;not null;index"`
	BirthDate    time.Time    `gorm:"type:date;not null;index"`
	Login        string       `gorm:"size:191;not null;uniqueIndex"`
	PasswordHash string       `gorm:"size:255;not null"`
	Contacts     []sqlContact `gorm:"foreignKey:ClientID"`
	Account      *sqlAccount  `gorm:"foreignKey:ClientID"`
	CreatedAt    int64        `gorm:"autoCreateTime:milli"` // 自動寫入時間
}

func (*sqlClient) TableName() string {
	return "clients"
}

// sqlContact 對應資料庫的 client_contacts 表，(kind, value) 全域唯一
type sqlContact struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	ClientID int64  `gorm:"not null;index"`
	Kind     uint8  `gorm:"not null;uniqueIndex:idx_contact_kind_value,priority:1"`
	Value    string `gorm:"size:191;not null;uniqueIndex:idx_contact_kind_value,priority:2"`
	Position int    `gorm:"not null"`
}

func (*sqlContact) TableName() string {
	return "client_contacts"
}

// sqlAccount 對應資料庫的 accounts 表，每個客戶恰好一筆
type sqlAccount struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	ClientID  int64           `gorm:"not null;uniqueIndex"`
	Balance   decimal.Decimal `gorm:"type:decimal(30,10);not null;check:chk_accounts_balance,balance > 0"`
	UpdatedAt int64           `gorm:"autoUpdateTime:milli"` // 自動更新時間
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

// sqlTransfer 對應資料庫的 transfers 表
type sqlTransfer struct {
	ID            int64           `gorm:"primaryKey;autoIncrement"`
	RefID         []byte          `gorm:"column:ref_id;type:binary(16);uniqueIndex"` // 對應 domain.Transfer.RefID
	FromAccountID int64           `gorm:"not null;index"`
	ToAccountID   int64           `gorm:"not null;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(30,10);not null"`
	CreatedAt     int64           `gorm:"autoCreateTime:milli"`
}

func (*sqlTransfer) TableName() string {
	return "transfers"
}

// Models AutoMigrate 需要的所有資料表
func Models() []any {
	return []any{&sqlClient{}, &sqlContact{}, &sqlAccount{}, &sqlTransfer{}}
}

func newSQLClient(c *domain.Client) *sqlClient {
	return &sqlClient{
		FullName:     c.FullName,
		BirthDate:    c.BirthDate,
		Login:        c.Login,
		PasswordHash: c.PasswordHash,
	}
}

// newSQLContacts 依清單順序產生 position
func newSQLContacts(clientID int64, c *domain.Client) []sqlContact {
	contacts := make([]sqlContact, 0, len(c.Phones)+len(c.Emails))
	for i, p := range c.Phones {
		contacts = append(contacts, sqlContact{ClientID: clientID, Kind: uint8(domain.ContactPhone), Value: p, Position: i})
	}
	for i, e := range c.Emails {
		contacts = append(contacts, sqlContact{ClientID: clientID, Kind: uint8(domain.ContactEmail), Value: e, Position: i})
	}
	return contacts
}

func (a *sqlAccount) toDomain() *domain.Account {
	return domain.NewAccount(a.ID, a.ClientID, a.Balance)
}

func (c *sqlClient) toDomain() *domain.Client {
	client := &domain.Client{
		ID:           c.ID,
		FullName:     c.FullName,
		BirthDate:    c.BirthDate,
		Login:        c.Login,
		PasswordHash: c.PasswordHash,
	}
	contacts := slices.Clone(c.Contacts)
	slices.SortFunc(contacts, func(a, b sqlContact) int {
		return cmp.Or(cmp.Compare(a.Kind, b.Kind), cmp.Compare(a.Position, b.Position))
	})
	for _, ct := range contacts {
		switch domain.ContactKind(ct.Kind) {
		case domain.ContactPhone:
			client.Phones = append(client.Phones, ct.Value)
		case domain.ContactEmail:
			client.Emails = append(client.Emails, ct.Value)
		}
	}
	if c.Account != nil {
		client.Account = c.Account.toDomain()
	}
	return client
}

func (t *sqlTransfer) toDomain() (*domain.Transfer, error) {
	ref, err := uuid.FromBytes(t.RefID)
	if err != nil {
		return nil, err
	}
	return &domain.Transfer{
		RefID:     ref,
		From:      t.FromAccountID,
		To:        t.ToAccountID,
		Amount:    t.Amount,
		CreatedAt: time.UnixMilli(t.CreatedAt).UTC(),
	}, nil
}
