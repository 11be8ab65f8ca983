package memory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-clients/internal/app/core/domain"
)

type entryKind string

const (
	entryClientCreated   entryKind = "client_created"
	entryContactsUpdated entryKind = "contacts_updated"
	entryLedger          entryKind = "ledger"
)

// journalEntry WAL 內的一筆已提交變更，重播與提交共用 state.apply
type journalEntry struct {
	Kind     entryKind       `json:"kind"`
	Client   *clientRecord   `json:"client,omitempty"`
	Contacts *contactsRecord `json:"contacts,omitempty"`
	Balances []balanceRecord `json:"balances,omitempty"`
	Transfer *transferRecord `json:"transfer,omitempty"`
}

type clientRecord struct {
	ID           int64           `json:"id"`
	FullName     string          `json:"full_name"`
	BirthDate    time.Time       `json:"birth_date"`
	Login        string          `json:"login"`
	PasswordHash string          `json:"password_hash"`
	Phones       []string        `json:"phones"`
	Emails       []string        `json:"emails"`
	AccountID    int64           `json:"account_id"`
	Balance      decimal.Decimal `json:"balance"`
}

type contactsRecord struct {
	ClientID int64    `json:"client_id"`
	Phones   []string `json:"phones"`
	Emails   []string `json:"emails"`
}

type balanceRecord struct {
	AccountID int64           `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
}

type transferRecord struct {
	RefID     uuid.UUID       `json:"ref_id"`
	From      int64           `json:"from"`
	To        int64           `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

func newClientRecord(c *domain.Client) *clientRecord {
	return &clientRecord{
		ID:           c.ID,
		FullName:     c.FullName,
		BirthDate:    c.BirthDate,
		Login:        c.Login,
		PasswordHash: c.PasswordHash,
		Phones:       c.Phones,
		Emails:       c.Emails,
		AccountID:    c.Account.ID,
		Balance:      c.Account.Balance,
	}
}

func newTransferRecord(t *domain.Transfer) *transferRecord {
	return &transferRecord{
		RefID:     t.RefID,
		From:      t.From,
		To:        t.To,
		Amount:    t.Amount,
		CreatedAt: t.CreatedAt,
	}
}

type contactKey struct {
	kind  domain.ContactKind
	value string
}

// state Store 的全部資料，只由 sequencer 內的提交修改
type state struct {
	clients         map[int64]*domain.Client
	accounts        map[int64]*domain.Account
	accountByClient map[int64]int64
	logins          map[string]int64
	contacts        map[contactKey]int64
	transfers       map[uuid.UUID]*domain.Transfer
	lastClientID    int64
	lastAccountID   int64
}

func newState() *state {
	return &state{
		clients:         make(map[int64]*domain.Client),
		accounts:        make(map[int64]*domain.Account),
		accountByClient: make(map[int64]int64),
		logins:          make(map[string]int64),
		contacts:        make(map[contactKey]int64),
		transfers:       make(map[uuid.UUID]*domain.Transfer),
	}
}

// apply 套用一筆已提交 (或從 WAL 重播) 的變更
func (s *state) apply(e *journalEntry) error {
	switch e.Kind {
	case entryClientCreated:
		return s.applyClient(e.Client)
	case entryContactsUpdated:
		return s.applyContacts(e.Contacts)
	case entryLedger:
		return s.applyLedger(e.Balances, e.Transfer)
	default:
		return fmt.Errorf("unknown journal entry kind %q", e.Kind)
	}
}

func (s *state) applyClient(r *clientRecord) error {
	if r == nil {
		return fmt.Errorf("client entry without payload")
	}
	if _, ok := s.clients[r.ID]; ok {
		return fmt.Errorf("client %d already exists", r.ID)
	}
	client := &domain.Client{
		ID:           r.ID,
		FullName:     r.FullName,
		BirthDate:    r.BirthDate,
		Login:        r.Login,
		PasswordHash: r.PasswordHash,
	}
	s.clients[r.ID] = client
	s.logins[r.Login] = r.ID
	s.setContacts(client, r.Phones, r.Emails)
	s.accounts[r.AccountID] = domain.NewAccount(r.AccountID, r.ID, r.Balance)
	s.accountByClient[r.ID] = r.AccountID
	s.lastClientID = max(s.lastClientID, r.ID)
	s.lastAccountID = max(s.lastAccountID, r.AccountID)
	return nil
}

func (s *state) applyContacts(r *contactsRecord) error {
	if r == nil {
		return fmt.Errorf("contacts entry without payload")
	}
	client, ok := s.clients[r.ClientID]
	if !ok {
		return fmt.Errorf("contacts for unknown client %d", r.ClientID)
	}
	s.setContacts(client, r.Phones, r.Emails)
	return nil
}

func (s *state) setContacts(c *domain.Client, phones, emails []string) {
	for _, p := range c.Phones {
		delete(s.contacts, contactKey{domain.ContactPhone, p})
	}
	for _, e := range c.Emails {
		delete(s.contacts, contactKey{domain.ContactEmail, e})
	}
	c.Phones = append([]string(nil), phones...)
	c.Emails = append([]string(nil), emails...)
	for _, p := range c.Phones {
		s.contacts[contactKey{domain.ContactPhone, p}] = c.ID
	}
	for _, e := range c.Emails {
		s.contacts[contactKey{domain.ContactEmail, e}] = c.ID
	}
}

func (s *state) applyLedger(balances []balanceRecord, tran *transferRecord) error {
	for _, b := range balances {
		acc, ok := s.accounts[b.AccountID]
		if !ok {
			return fmt.Errorf("balance for unknown account %d", b.AccountID)
		}
		acc.Balance = b.Balance
	}
	if tran != nil {
		s.transfers[tran.RefID] = &domain.Transfer{
			RefID:     tran.RefID,
			From:      tran.From,
			To:        tran.To,
			Amount:    tran.Amount,
			CreatedAt: tran.CreatedAt,
		}
	}
	return nil
}

// snapshot 組出對外回傳的客戶拷貝 (含帳戶)
func (s *state) snapshot(c *domain.Client) *domain.Client {
	cp := c.Clone()
	if accID, ok := s.accountByClient[c.ID]; ok {
		cp.Account = s.accounts[accID].Clone()
	}
	return cp
}

// contactOwner 回傳聯絡方式目前的擁有者
func (s *state) contactOwner(kind domain.ContactKind, value string) (int64, bool) {
	id, ok := s.contacts[contactKey{kind, value}]
	return id, ok
}
