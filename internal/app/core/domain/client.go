package domain

import (
	"math"
	"slices"
	"strings"
	"time"
)

// ContactKind 聯絡方式種類
type ContactKind uint8

const (
	// 電話
	ContactPhone ContactKind = 1
	// Email
	ContactEmail ContactKind = 2
)

func (k ContactKind) String() string {
	switch k {
	case ContactPhone:
		return "phone"
	case ContactEmail:
		return "email"
	default:
		return "unknown"
	}
}

// Client 客戶，電話與 email 皆為有序且不可為空的清單
type Client struct {
	ID           int64
	FullName     string
	BirthDate    time.Time
	Login        string
	PasswordHash string
	Phones       []string
	Emails       []string
	Account      *Account
}

// Validate 檢查建立客戶時的必要欄位
func (c *Client) Validate() error {
	if strings.TrimSpace(c.FullName) == "" || strings.TrimSpace(c.Login) == "" || c.PasswordHash == "" {
		return ErrInvalidInput
	}
	if c.BirthDate.IsZero() {
		return ErrInvalidInput
	}
	if len(c.Phones) == 0 || len(c.Emails) == 0 {
		return ErrInvalidInput
	}
	if c.Account == nil {
		return ErrInvalidInput
	}
	return ValidateAmount(c.Account.Balance)
}

// Contacts 回傳指定種類的聯絡方式
func (c *Client) Contacts(kind ContactKind) []string {
	if kind == ContactPhone {
		return c.Phones
	}
	return c.Emails
}

func (c *Client) setContacts(kind ContactKind, values []string) {
	if kind == ContactPhone {
		c.Phones = values
		return
	}
	c.Emails = values
}

// NormalizeContact 去除前後空白，email 一律轉小寫
func NormalizeContact(kind ContactKind, value string) string {
	value = strings.TrimSpace(value)
	if kind == ContactEmail {
		return strings.ToLower(value)
	}
	return value
}

// HasContact 是否擁有指定聯絡方式
func (c *Client) HasContact(kind ContactKind, value string) bool {
	return slices.Contains(c.Contacts(kind), NormalizeContact(kind, value))
}

// AddContact 新增聯絡方式到清單尾端
func (c *Client) AddContact(kind ContactKind, value string) error {
	value = NormalizeContact(kind, value)
	if value == "" {
		return ErrInvalidInput
	}
	if c.HasContact(kind, value) {
		return ErrContactTaken
	}
	c.setContacts(kind, append(slices.Clone(c.Contacts(kind)), value))
	return nil
}

// ReplaceContact 以新值取代原有的聯絡方式，保留原本的位置
func (c *Client) ReplaceContact(kind ContactKind, old, value string) error {
	old, value = NormalizeContact(kind, old), NormalizeContact(kind, value)
	if value == "" {
		return ErrInvalidInput
	}
	contacts := slices.Clone(c.Contacts(kind))
	idx := slices.Index(contacts, old)
	if idx < 0 {
		return ErrContactNotFound
	}
	if old != value && slices.Contains(contacts, value) {
		return ErrContactTaken
	}
	contacts[idx] = value
	c.setContacts(kind, contacts)
	return nil
}

// RemoveContact 刪除聯絡方式，不允許清單變成空的
func (c *Client) RemoveContact(kind ContactKind, value string) error {
	contacts := c.Contacts(kind)
	idx := slices.Index(contacts, NormalizeContact(kind, value))
	if idx < 0 {
		return ErrContactNotFound
	}
	if len(contacts) == 1 {
		return ErrLastContact
	}
	c.setContacts(kind, slices.Delete(slices.Clone(contacts), idx, idx+1))
	return nil
}

// Clone 深拷貝
func (c *Client) Clone() *Client {
	cp := *c
	cp.Phones = slices.Clone(c.Phones)
	cp.Emails = slices.Clone(c.Emails)
	if c.Account != nil {
		cp.Account = c.Account.Clone()
	}
	return &cp
}

// SearchKind 客戶搜尋條件種類
type SearchKind uint8

const (
	// 姓名包含 (不分大小寫)，依姓名排序
	SearchByName SearchKind = iota + 1
	// 生日晚於指定日期，依生日排序
	SearchByBirthDateAfter
	// 依 email
	SearchByEmail
	// 依電話
	SearchByPhone
)

// MaxPageSize 單頁最多筆數
const MaxPageSize = 1000

// ClientQuery 分頁搜尋條件，Page 從 0 開始
type ClientQuery struct {
	Kind      SearchKind
	Text      string
	BirthDate time.Time
	Page      int
	Size      int
}

// Validate 檢查搜尋條件
func (q ClientQuery) Validate() error {
	if q.Page < 0 || q.Size <= 0 || q.Size > MaxPageSize {
		return ErrInvalidInput
	}
	// (Page+1)*Size 不得溢位
	if q.Page >= math.MaxInt/q.Size {
		return ErrInvalidInput
	}
	switch q.Kind {
	case SearchByName, SearchByEmail, SearchByPhone:
		if strings.TrimSpace(q.Text) == "" {
			return ErrInvalidInput
		}
	case SearchByBirthDateAfter:
		if q.BirthDate.IsZero() {
			return ErrInvalidInput
		}
	default:
		return ErrInvalidInput
	}
	return nil
}

// Offset 換算成略過的筆數
func (q ClientQuery) Offset() int {
	return q.Page * q.Size
}

// ClientPage 一頁搜尋結果
type ClientPage struct {
	Clients []*Client
	Page    int
	Size    int
	HasNext bool
}
