package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/JoeShih716/go-bank-clients/internal/app/core/domain"
)

// FindClientByLogin 依登入帳號查詢
func (s *Store) FindClientByLogin(ctx context.Context, login string) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.state.logins[login]
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	return s.state.snapshot(s.state.clients[id]), nil
}

// FindClientByID 依 ID 查詢
func (s *Store) FindClientByID(ctx context.Context, id int64) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.clients[id]
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	return s.state.snapshot(c), nil
}

// ClientExists 登入帳號、電話或 email 任一已被使用
func (s *Store) ClientExists(ctx context.Context, login, phone, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.taken(login, []string{phone}, []string{email}), nil
}

func (s *Store) taken(login string, phones, emails []string) bool {
	if _, ok := s.state.logins[login]; ok {
		return true
	}
	for _, p := range phones {
		if _, ok := s.state.contactOwner(domain.ContactPhone, p); ok {
			return true
		}
	}
	for _, e := range emails {
		if _, ok := s.state.contactOwner(domain.ContactEmail, e); ok {
			return true
		}
	}
	return false
}

// CreateClient 建立客戶與帳戶並回填 ID
func (s *Store) CreateClient(ctx context.Context, client *domain.Client) error {
	return s.exclusive(ctx, func() error {
		if s.taken(client.Login, client.Phones, client.Emails) {
			return domain.ErrClientAlreadyExists
		}
		created := client.Clone()
		created.ID = s.state.lastClientID + 1
		created.Account.ID = s.state.lastAccountID + 1
		created.Account.ClientID = created.ID

		if err := s.commit(&journalEntry{Kind: entryClientCreated, Client: newClientRecord(created)}); err != nil {
			return err
		}
		client.ID = created.ID
		client.Account.ID = created.Account.ID
		client.Account.ClientID = created.ID
		return nil
	})
}

// UpdateContacts 套用 mutate 後檢查聯絡方式是否被其他客戶使用
func (s *Store) UpdateContacts(ctx context.Context, clientID int64, mutate func(c *domain.Client) error) error {
	return s.exclusive(ctx, func() error {
		current, ok := s.state.clients[clientID]
		if !ok {
			return domain.ErrClientNotFound
		}
		updated := s.state.snapshot(current)
		if err := mutate(updated); err != nil {
			return err
		}
		for _, kind := range []domain.ContactKind{domain.ContactPhone, domain.ContactEmail} {
			for _, v := range updated.Contacts(kind) {
				if owner, ok := s.state.contactOwner(kind, v); ok && owner != clientID {
					return domain.ErrContactTaken
				}
			}
		}
		return s.commit(&journalEntry{
			Kind: entryContactsUpdated,
			Contacts: &contactsRecord{
				ClientID: clientID,
				Phones:   updated.Phones,
				Emails:   updated.Emails,
			},
		})
	})
}

// SearchClients 依條件過濾、排序後分頁
func (s *Store) SearchClients(ctx context.Context, q domain.ClientQuery) (*domain.ClientPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.Client
	needle := strings.ToLower(q.Text)
	for _, c := range s.state.clients {
		var ok bool
		switch q.Kind {
		case domain.SearchByName:
			ok = strings.Contains(strings.ToLower(c.FullName), needle)
		case domain.SearchByBirthDateAfter:
			ok = c.BirthDate.After(q.BirthDate)
		case domain.SearchByEmail:
			ok = c.HasContact(domain.ContactEmail, q.Text)
		case domain.SearchByPhone:
			ok = c.HasContact(domain.ContactPhone, q.Text)
		}
		if ok {
			matched = append(matched, c)
		}
	}

	slices.SortFunc(matched, func(a, b *domain.Client) int {
		var r int
		switch q.Kind {
		case domain.SearchByName:
			r = cmp.Compare(a.FullName, b.FullName)
		case domain.SearchByBirthDateAfter:
			r = a.BirthDate.Compare(b.BirthDate)
		}
		if r != 0 {
			return r
		}
		return cmp.Compare(a.ID, b.ID)
	})

	page := &domain.ClientPage{Page: q.Page, Size: q.Size, Clients: []*domain.Client{}}
	offset := q.Offset()
	if offset >= len(matched) {
		return page, nil
	}
	end := min(offset+q.Size, len(matched))
	for _, c := range matched[offset:end] {
		page.Clients = append(page.Clients, s.state.snapshot(c))
	}
	page.HasNext = end < len(matched)
	return page, nil
}
