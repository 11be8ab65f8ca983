package domain

import "errors"

var (
	// ErrInvalidAmount 金額必須為正數，且精度不得超過 BalanceScale
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientFunds 餘額不足
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = errors.New("account not found")

	// ErrIdempotencyConflict 同一 RefID 已用於內容不同的轉帳
	ErrIdempotencyConflict = errors.New("idempotency key conflict: different payload for same ref id")

	// ErrSameAccount 轉出與轉入為同一帳戶
	ErrSameAccount = errors.New("sender and recipient accounts are the same")

	// ErrClientNotFound 找不到客戶
	ErrClientNotFound = errors.New("client not found")

	// ErrClientAlreadyExists 登入帳號、電話或 email 已被註冊
	ErrClientAlreadyExists = errors.New("client already exists")

	// ErrContactTaken 聯絡方式已被使用
	ErrContactTaken = errors.New("contact already in use")

	// ErrContactNotFound 客戶沒有這個聯絡方式
	ErrContactNotFound = errors.New("contact not found")

	// ErrLastContact 不可刪除最後一筆電話或 email
	ErrLastContact = errors.New("cannot remove the last contact")

	// ErrInvalidCredentials 帳號或密碼錯誤
	ErrInvalidCredentials = errors.New("invalid login or password")

	// ErrForbidden 無權限操作其他客戶的資料
	ErrForbidden = errors.New("operation not permitted for this client")

	// ErrInvalidInput 輸入資料格式錯誤
	ErrInvalidInput = errors.New("invalid input")

	// ErrPersistence 儲存層無法完成操作 (連線失敗或重試次數用盡)
	ErrPersistence = errors.New("persistence failure")
)
