package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-clients/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-clients/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-clients/internal/app/metrics"
)

// IdempotencyKeyHeader 轉帳的冪等鍵 (UUID)
const IdempotencyKeyHeader = "Idempotency-Key"

// Handler REST 入口
type Handler struct {
	clients  *usecase.ClientUseCase
	ledger   *usecase.LedgerUseCase
	auth     *usecase.AuthUseCase
	tokens   TokenParser
	validate *validator.Validate
	logger   *zap.Logger
}

func NewHandler(clients *usecase.ClientUseCase, ledger *usecase.LedgerUseCase, auth *usecase.AuthUseCase, tokens TokenParser, logger *zap.Logger) *Handler {
	return &Handler{
		clients:  clients,
		ledger:   ledger,
		auth:     auth,
		tokens:   tokens,
		validate: newValidator(),
		logger:   logger.Named("http"),
	}
}

// Routes 建立 chi router
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(metrics.InstrumentHandler)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Post("/api/auth", h.authenticate)
	r.Route("/api/v1/clients", func(r chi.Router) {
		r.Post("/", h.register)

		r.Group(func(r chi.Router) {
			r.Use(h.requireToken)

			r.Patch("/add-email/{id}", h.addContact(domain.ContactEmail))
			r.Patch("/add-phone/{id}", h.addContact(domain.ContactPhone))
			r.Patch("/change-email/{id}", h.changeContact(domain.ContactEmail))
			r.Patch("/change-phone/{id}", h.changeContact(domain.ContactPhone))
			r.Delete("/email/{id}", h.removeContact(domain.ContactEmail))
			r.Delete("/phone/{id}", h.removeContact(domain.ContactPhone))

			r.Get("/fio", h.search(domain.SearchByName, "fio"))
			r.Get("/birthDate", h.search(domain.SearchByBirthDateAfter, "birthDate"))
			r.Get("/email", h.search(domain.SearchByEmail, "email"))
			r.Get("/phone", h.search(domain.SearchByPhone, "phone"))

			r.Patch("/transferring", h.transfer)
			r.Get("/account", h.account)
		})
	})
	return r
}

// decode 解析並驗證 JSON body
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeMessages(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeMessages(w, http.StatusBadRequest, validationMessages(err)...)
		return false
	}
	return true
}

// POST /api/auth
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if !h.decode(w, r, &req) {
		return
	}
	token, err := h.auth.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Type: "Bearer", JWT: token})
}

// POST /api/v1/clients
func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	birth, err := parseISODate(req.BirthDate)
	if err != nil {
		writeMessages(w, http.StatusBadRequest, "birthDate must match "+isoDateLayout)
		return
	}
	if !req.Balance.IsPositive() {
		writeMessages(w, http.StatusBadRequest, "balance must be positive")
		return
	}

	client, err := h.clients.Register(r.Context(), usecase.RegisterCommand{
		FullName:  req.FullName,
		BirthDate: birth,
		Login:     req.Login,
		Password:  req.Password,
		Phone:     req.Phone,
		Email:     req.Email,
		Balance:   req.Balance,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newClientResponse(client))
}

// addContact PATCH /add-{kind}/{id}?{kind}=
func (h *Handler) addContact(kind domain.ContactKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		value, ok := h.contactParam(w, r, kind)
		if !ok {
			return
		}
		if err := h.clients.AddContact(r.Context(), loginFrom(r.Context()), id, kind, value); err != nil {
			h.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// changeContact PATCH /change-{kind}/{id}
func (h *Handler) changeContact(kind domain.ContactKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var req contactsRequest
		if !h.decode(w, r, &req) {
			return
		}
		if kind == domain.ContactEmail && h.validate.Var(req.NewContact, "email") != nil {
			writeMessages(w, http.StatusBadRequest, "newContact isn't valid")
			return
		}
		err := h.clients.ChangeContact(r.Context(), loginFrom(r.Context()), id, kind, req.ReplacedContact, req.NewContact)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// removeContact DELETE /{kind}/{id}?{kind}=
func (h *Handler) removeContact(kind domain.ContactKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		value, ok := h.contactParam(w, r, kind)
		if !ok {
			return
		}
		if err := h.clients.RemoveContact(r.Context(), loginFrom(r.Context()), id, kind, value); err != nil {
			h.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// search GET /{param}?offset=&limit=&{param}=
// offset 為頁碼，limit 為每頁筆數
func (h *Handler) search(kind domain.SearchKind, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		query := domain.ClientQuery{Kind: kind}

		var err error
		if query.Page, err = intParam(q.Get("offset"), 0); err != nil {
			writeMessages(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		if q.Get("limit") == "" {
			writeMessages(w, http.StatusBadRequest, "limit must not be empty")
			return
		}
		if query.Size, err = intParam(q.Get("limit"), 0); err != nil || query.Size == 0 || query.Size > domain.MaxPageSize {
			writeMessages(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", domain.MaxPageSize))
			return
		}

		value := q.Get(param)
		if value == "" {
			writeMessages(w, http.StatusBadRequest, param+" must not be empty")
			return
		}
		switch kind {
		case domain.SearchByBirthDateAfter:
			birth, err := time.ParseInLocation(queryDateLayout, value, time.UTC)
			if err != nil {
				writeMessages(w, http.StatusBadRequest, "birthDate must match dd.MM.yyyy")
				return
			}
			query.BirthDate = birth
		case domain.SearchByEmail:
			if h.validate.Var(value, "email") != nil {
				writeMessages(w, http.StatusBadRequest, "email isn't valid")
				return
			}
			query.Text = value
		default:
			query.Text = value
		}

		page, err := h.clients.Search(r.Context(), query)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newPageResponse(page))
	}
}

// PATCH /api/v1/clients/transferring
func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var refID uuid.UUID
	if key := r.Header.Get(IdempotencyKeyHeader); key != "" {
		u, err := uuid.Parse(key)
		if err != nil {
			writeMessages(w, http.StatusBadRequest, IdempotencyKeyHeader+" must be a UUID")
			return
		}
		refID = u
	}
	var req transferRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.ledger.Transfer(r.Context(), usecase.TransferCommand{
		SenderLogin:        loginFrom(r.Context()),
		RecipientAccountID: req.RecipientID,
		Amount:             req.Amount,
		RefID:              refID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set(IdempotencyKeyHeader, res.Transfer.RefID.String())
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/clients/account
func (h *Handler) account(w http.ResponseWriter, r *http.Request) {
	acc, err := h.ledger.GetBalance(r.Context(), loginFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(acc))
}

func (h *Handler) contactParam(w http.ResponseWriter, r *http.Request, kind domain.ContactKind) (string, bool) {
	name := kind.String()
	value := r.URL.Query().Get(name)
	if value == "" {
		writeMessages(w, http.StatusBadRequest, name+" must not be empty")
		return "", false
	}
	if kind == domain.ContactEmail && h.validate.Var(value, "email") != nil {
		writeMessages(w, http.StatusBadRequest, name+" isn't valid")
		return "", false
	}
	return value, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeMessages(w, http.StatusBadRequest, fmt.Sprintf("invalid client id %q", raw))
		return 0, false
	}
	return id, true
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid integer %q", raw)
	}
	return n, nil
}
