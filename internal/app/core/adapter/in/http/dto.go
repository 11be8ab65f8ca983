package http

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-clients/internal/app/core/domain"
)

// 日期格式
const (
	// 請求與回應內的 birthDate
	isoDateLayout = "2006-01-02"
	// 搜尋參數 birthDate (dd.MM.yyyy)
	queryDateLayout = "02.01.2006"
)

type registerRequest struct {
	FullName  string          `json:"fio" validate:"required"`
	BirthDate string          `json:"birthDate" validate:"required,datetime=2006-01-02"`
	Login     string          `json:"login" validate:"required"`
	Password  string          `json:"password" validate:"required"`
	Phone     string          `json:"phone" validate:"required"`
	Email     string          `json:"email" validate:"required,email"`
	Balance   decimal.Decimal `json:"balance"`
}

type authRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Type string `json:"type"`
	JWT  string `json:"jwt"`
}

// contactsRequest 將 replacedContact 改為 newContact
type contactsRequest struct {
	ReplacedContact string `json:"replacedContact" validate:"required"`
	NewContact      string `json:"newContact" validate:"required"`
}

// transferRequest amount 以 JSON 數字或字串傳入，直接解析成 decimal 不經過 float
type transferRequest struct {
	RecipientID int64           `json:"recipientId" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
}

type accountResponse struct {
	ID      int64  `json:"id"`
	Balance string `json:"balance"`
}

type clientResponse struct {
	ID        int64            `json:"id"`
	FullName  string           `json:"fio"`
	BirthDate string           `json:"birthDate"`
	Login     string           `json:"login"`
	Phones    []string         `json:"phones"`
	Emails    []string         `json:"emails"`
	Account   *accountResponse `json:"account,omitempty"`
}

type pageResponse struct {
	Content []clientResponse `json:"content"`
	Page    int              `json:"page"`
	Size    int              `json:"size"`
	HasNext bool             `json:"hasNext"`
}

type errorResponse struct {
	Messages []string `json:"messages"`
}

func newAccountResponse(a *domain.Account) *accountResponse {
	return &accountResponse{
		ID:      a.ID,
		Balance: domain.RoundForDisplay(a.Balance).StringFixed(domain.DisplayScale),
	}
}

// newClientResponse 不回傳密碼雜湊
func newClientResponse(c *domain.Client) clientResponse {
	resp := clientResponse{
		ID:        c.ID,
		FullName:  c.FullName,
		BirthDate: c.BirthDate.Format(isoDateLayout),
		Login:     c.Login,
		Phones:    c.Phones,
		Emails:    c.Emails,
	}
	if c.Account != nil {
		resp.Account = newAccountResponse(c.Account)
	}
	return resp
}

func newPageResponse(p *domain.ClientPage) pageResponse {
	resp := pageResponse{
		Content: make([]clientResponse, 0, len(p.Clients)),
		Page:    p.Page,
		Size:    p.Size,
		HasNext: p.HasNext,
	}
	for _, c := range p.Clients {
		resp.Content = append(resp.Content, newClientResponse(c))
	}
	return resp
}

// newValidator 錯誤訊息使用 JSON 欄位名稱
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationMessages 將 validator 錯誤轉成回應訊息
func validationMessages(err error) []string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" must not be empty")
		case "email":
			msgs = append(msgs, fe.Field()+" isn't valid")
		case "datetime":
			msgs = append(msgs, fe.Field()+" must match "+fe.Param())
		default:
			msgs = append(msgs, fe.Field()+" failed on "+fe.Tag())
		}
	}
	return msgs
}

func parseISODate(s string) (time.Time, error) {
	return time.ParseInLocation(isoDateLayout, s, time.UTC)
}
