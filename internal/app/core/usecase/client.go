package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/JoeShih716/go-bank-clients/internal/app/core/domain"
)

// RegisterCommand 註冊新客戶
type RegisterCommand struct {
	FullName  string
	BirthDate time.Time
	Login     string
	Password  string
	Phone     string
	Email     string
	// Balance: 初始餘額，必須 > 0
	Balance decimal.Decimal
}

// ClientUseCase 客戶註冊、聯絡方式維護與搜尋
type ClientUseCase struct {
	clients  ClientRepository
	hashCost int
	logger   *zap.Logger
}

// ClientOption 定義 ClientUseCase 的配置選項
type ClientOption func(*ClientUseCase)

// WithHashCost 設定 bcrypt cost，測試時可降低以加快速度
func WithHashCost(cost int) ClientOption {
	return func(u *ClientUseCase) {
		u.hashCost = cost
	}
}

func NewClientUseCase(clients ClientRepository, logger *zap.Logger, opts ...ClientOption) *ClientUseCase {
	u := &ClientUseCase{
		clients:  clients,
		hashCost: bcrypt.DefaultCost,
		logger:   logger.Named("clients"),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Register 建立客戶與帳戶
//
// 回傳:
//
//	*domain.Client: 建立後的客戶 (含 ID 與帳戶)
//	error: ErrClientAlreadyExists / ErrInvalidInput / ErrInvalidAmount
func (u *ClientUseCase) Register(ctx context.Context, cmd RegisterCommand) (*domain.Client, error) {
	if strings.TrimSpace(cmd.Password) == "" || strings.TrimSpace(cmd.Phone) == "" || strings.TrimSpace(cmd.Email) == "" {
		return nil, domain.ErrInvalidInput
	}
	phone := domain.NormalizeContact(domain.ContactPhone, cmd.Phone)
	email := domain.NormalizeContact(domain.ContactEmail, cmd.Email)
	exists, err := u.clients.ClientExists(ctx, cmd.Login, phone, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrClientAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), u.hashCost)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %v", domain.ErrInvalidInput, err)
	}
	client := &domain.Client{
		FullName:     strings.TrimSpace(cmd.FullName),
		BirthDate:    cmd.BirthDate,
		Login:        cmd.Login,
		PasswordHash: string(hash),
		Phones:       []string{phone},
		Emails:       []string{email},
		Account:      domain.NewAccount(0, 0, cmd.Balance),
	}
	if err := client.Validate(); err != nil {
		return nil, err
	}
	if err := u.clients.CreateClient(ctx, client); err != nil {
		return nil, err
	}

	u.logger.Info("client registered",
		zap.Int64("client_id", client.ID),
		zap.Int64("account_id", client.Account.ID),
		zap.String("login", client.Login),
	)
	return client, nil
}

// AddContact 為自己新增電話或 email
func (u *ClientUseCase) AddContact(ctx context.Context, callerLogin string, clientID int64, kind domain.ContactKind, value string) error {
	return u.editContacts(ctx, callerLogin, clientID, func(c *domain.Client) error {
		return c.AddContact(kind, value)
	})
}

// ChangeContact 以 value 取代既有的 old
func (u *ClientUseCase) ChangeContact(ctx context.Context, callerLogin string, clientID int64, kind domain.ContactKind, old, value string) error {
	return u.editContacts(ctx, callerLogin, clientID, func(c *domain.Client) error {
		return c.ReplaceContact(kind, old, value)
	})
}

// RemoveContact 刪除電話或 email，最後一筆不可刪除
func (u *ClientUseCase) RemoveContact(ctx context.Context, callerLogin string, clientID int64, kind domain.ContactKind, value string) error {
	return u.editContacts(ctx, callerLogin, clientID, func(c *domain.Client) error {
		return c.RemoveContact(kind, value)
	})
}

func (u *ClientUseCase) editContacts(ctx context.Context, callerLogin string, clientID int64, mutate func(c *domain.Client) error) error {
	caller, err := u.clients.FindClientByLogin(ctx, callerLogin)
	if err != nil {
		return err
	}
	if caller.ID != clientID {
		return fmt.Errorf("%w: client %d", domain.ErrForbidden, clientID)
	}
	if err := u.clients.UpdateContacts(ctx, clientID, mutate); err != nil {
		return err
	}
	u.logger.Info("contacts updated", zap.Int64("client_id", clientID))
	return nil
}

// Search 分頁搜尋客戶，沒有任何結果時回傳 ErrClientNotFound
func (u *ClientUseCase) Search(ctx context.Context, query domain.ClientQuery) (*domain.ClientPage, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	switch query.Kind {
	case domain.SearchByEmail:
		query.Text = domain.NormalizeContact(domain.ContactEmail, query.Text)
	case domain.SearchByPhone:
		query.Text = domain.NormalizeContact(domain.ContactPhone, query.Text)
	}
	page, err := u.clients.SearchClients(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(page.Clients) == 0 {
		return nil, domain.ErrClientNotFound
	}
	return page, nil
}

// FindByLogin 查詢客戶
func (u *ClientUseCase) FindByLogin(ctx context.Context, login string) (*domain.Client, error) {
	return u.clients.FindClientByLogin(ctx, login)
}
