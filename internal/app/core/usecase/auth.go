package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/JoeShih716/go-bank-clients/internal/app/core/domain"
)

// AuthUseCase 以登入帳號與密碼換取 token
type AuthUseCase struct {
	clients ClientReader
	issuer  TokenIssuer
	logger  *zap.Logger
}

func NewAuthUseCase(clients ClientReader, issuer TokenIssuer, logger *zap.Logger) *AuthUseCase {
	return &AuthUseCase{
		clients: clients,
		issuer:  issuer,
		logger:  logger.Named("auth"),
	}
}

// Authenticate 帳號不存在與密碼錯誤皆回傳 ErrInvalidCredentials
func (u *AuthUseCase) Authenticate(ctx context.Context, login, password string) (string, error) {
	client, err := u.clients.FindClientByLogin(ctx, login)
	if errors.Is(err, domain.ErrClientNotFound) {
		return "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(client.PasswordHash), []byte(password)); err != nil {
		u.logger.Debug("password mismatch", zap.String("login", login))
		return "", domain.ErrInvalidCredentials
	}
	return u.issuer.Issue(client.ID, client.Login)
}
