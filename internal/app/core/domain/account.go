package domain

import "github.com/shopspring/decimal"

// Account 客戶的帳戶，每個客戶恰好一個
type Account struct {
	ID       int64
	ClientID int64
	Balance  decimal.Decimal
}

func NewAccount(id int64, clientID int64, balance decimal.Decimal) *Account {
	return &Account{
		ID:       id,
		ClientID: clientID,
		Balance:  balance,
	}
}

// Deposit 存款
func (a *Account) Deposit(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}

	a.Balance = a.Balance.Add(amount)
	return nil
}

// Withdraw 提款，提款後餘額必須仍大於 0
func (a *Account) Withdraw(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}

	if a.Balance.LessThanOrEqual(amount) {
		return ErrInsufficientFunds
	}

	a.Balance = a.Balance.Sub(amount)
	return nil
}

// Ceiling 以目前餘額計算計息上限
func (a *Account) Ceiling(factor decimal.Decimal) decimal.Decimal {
	return a.Balance.Mul(factor).Round(BalanceScale)
}

// Accrue 計息一次：新餘額嚴格小於上限才入帳，否則本次不變 (不做部分計息)
//
// 回傳:
//
//	bool: 是否有入帳
func (a *Account) Accrue(factor, ceiling decimal.Decimal) bool {
	next := a.Balance.Mul(factor).Round(BalanceScale)
	if !next.LessThan(ceiling) {
		return false
	}
	a.Balance = next
	return true
}

// Clone 回傳值拷貝，避免呼叫端改寫儲存層內部狀態
func (a *Account) Clone() *Account {
	cp := *a
	return &cp
}
