package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return &Client{
		FullName:     "Ivanov Ivan",
		BirthDate:    time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC),
		Login:        "ivan",
		PasswordHash: "hash",
		Phones:       []string{"+70000000001"},
		Emails:       []string{"ivan@example.com"},
		Account:      NewAccount(0, 0, dec("100")),
	}
}

func TestClient_Validate(t *testing.T) {
	require.NoError(t, newTestClient().Validate())

	c := newTestClient()
	c.Phones = nil
	assert.ErrorIs(t, c.Validate(), ErrInvalidInput)

	c = newTestClient()
	c.Account.Balance = dec("0")
	assert.ErrorIs(t, c.Validate(), ErrInvalidAmount)
}

func TestClient_AddReplaceRemoveContact(t *testing.T) {
	c := newTestClient()

	require.NoError(t, c.AddContact(ContactEmail, "second@example.com"))
	assert.Equal(t, []string{"ivan@example.com", "second@example.com"}, c.Emails)
	assert.ErrorIs(t, c.AddContact(ContactEmail, "second@example.com"), ErrContactTaken)

	require.NoError(t, c.ReplaceContact(ContactEmail, "ivan@example.com", "first@example.com"))
	assert.Equal(t, []string{"first@example.com", "second@example.com"}, c.Emails)
	assert.ErrorIs(t, c.ReplaceContact(ContactEmail, "nope@example.com", "x@example.com"), ErrContactNotFound)
	assert.ErrorIs(t, c.ReplaceContact(ContactEmail, "first@example.com", "second@example.com"), ErrContactTaken)

	require.NoError(t, c.RemoveContact(ContactEmail, "first@example.com"))
	assert.Equal(t, []string{"second@example.com"}, c.Emails)

	// 最後一筆不可刪除
	assert.ErrorIs(t, c.RemoveContact(ContactEmail, "second@example.com"), ErrLastContact)
	assert.ErrorIs(t, c.RemoveContact(ContactPhone, "+79999999999"), ErrContactNotFound)
	assert.ErrorIs(t, c.RemoveContact(ContactPhone, "+70000000001"), ErrLastContact)
}

func TestClient_EmailsAreCaseInsensitive(t *testing.T) {
	c := newTestClient()

	require.NoError(t, c.AddContact(ContactEmail, " Second@Example.COM "))
	assert.Equal(t, []string{"ivan@example.com", "second@example.com"}, c.Emails)
	assert.True(t, c.HasContact(ContactEmail, "IVAN@example.com"))
	assert.ErrorIs(t, c.AddContact(ContactEmail, "SECOND@example.com"), ErrContactTaken)

	require.NoError(t, c.ReplaceContact(ContactEmail, "Ivan@Example.com", "First@Example.com"))
	assert.Equal(t, []string{"first@example.com", "second@example.com"}, c.Emails)
	require.NoError(t, c.RemoveContact(ContactEmail, "FIRST@EXAMPLE.COM"))

	// 電話只去除空白
	assert.Equal(t, "+7000", NormalizeContact(ContactPhone, " +7000 "))
}

func TestClient_CloneIsDeep(t *testing.T) {
	c := newTestClient()
	cp := c.Clone()
	cp.Phones[0] = "changed"
	cp.Account.Balance = dec("1")

	assert.Equal(t, "+70000000001", c.Phones[0])
	assert.True(t, c.Account.Balance.Equal(dec("100")))
}

func TestClientQuery_Validate(t *testing.T) {
	assert.NoError(t, ClientQuery{Kind: SearchByName, Text: "iv", Size: 10}.Validate())
	assert.ErrorIs(t, ClientQuery{Kind: SearchByName, Text: " ", Size: 10}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, ClientQuery{Kind: SearchByBirthDateAfter, Size: 10}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, ClientQuery{Kind: SearchByEmail, Text: "a@b.c", Size: 0}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, ClientQuery{Kind: SearchByPhone, Text: "1", Page: -1, Size: 1}.Validate(), ErrInvalidInput)

	tests := []struct {
		name    string
		q       ClientQuery
		wantErr bool
	}{
		{"largest page size", ClientQuery{Kind: SearchByName, Text: "iv", Size: MaxPageSize}, false},
		{"page size above max", ClientQuery{Kind: SearchByName, Text: "iv", Size: MaxPageSize + 1}, true},
		{"page size max int", ClientQuery{Kind: SearchByName, Text: "iv", Size: math.MaxInt}, true},
		{"offset overflows", ClientQuery{Kind: SearchByName, Text: "iv", Page: 1 << 62, Size: 3}, true},
		{"last page before overflow", ClientQuery{Kind: SearchByName, Text: "iv", Page: math.MaxInt/3 - 1, Size: 3}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}

	assert.Equal(t, 20, ClientQuery{Page: 2, Size: 10}.Offset())
}
