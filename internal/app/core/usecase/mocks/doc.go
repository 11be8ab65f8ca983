// Package mocks provides mock implementations of the usecase ports for testing.
package mocks

//go:generate mockgen -destination=mock_ports.go -package=mocks github.com/JoeShih716/go-bank-clients/internal/app/core/usecase ClientReader,AccountRepository,UnitOfWork,LedgerTx,TokenIssuer
