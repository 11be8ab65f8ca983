package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BalanceScale 餘額保留的小數位數，對應資料庫 DECIMAL(30,10)
const BalanceScale int32 = 10

// DisplayScale 日誌與回應中顯示的小數位數
const DisplayScale int32 = 2

var (
	// DefaultInterestFactor 每次計息的倍率 (+5%)
	DefaultInterestFactor = decimal.RequireFromString("1.05")

	// DefaultCeilingFactor 計息上限倍率 (首次觀察到餘額的 207%)
	DefaultCeilingFactor = decimal.RequireFromString("2.07")
)

// AmountFromFloat 將外部傳入的浮點金額轉為精確十進位
// 使用最短表示法 (20.1 -> "20.1")，避免二進位浮點的誤差被帶入運算
func AmountFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// ParseAmount 解析字串金額並檢查是否為合法的正數
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount 金額必須 > 0 且小數位數不超過 BalanceScale
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(BalanceScale)) {
		return fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, BalanceScale)
	}
	return nil
}

// RoundForDisplay 四捨五入到小數點後兩位 (half-up，餘額恆為正)
func RoundForDisplay(d decimal.Decimal) decimal.Decimal {
	return d.Round(DisplayScale)
}
