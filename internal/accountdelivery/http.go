// Package accountdelivery manages delivery layer of accounts.
package accountdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jameelag1995/banking-backend/internal/accountservice"
	"github.com/jameelag1995/banking-backend/internal/domain"
	"github.com/jameelag1995/banking-backend/pkg/errorspkg"
	"github.com/jameelag1995/banking-backend/pkg/web"
)

// Service provides service layer interface needed by account delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package accountdelivery
type Service interface {
	Create(ctx context.Context, arg accountservice.CreateParams) (domain.Account, error)
	Get(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	ListByStatus(ctx context.Context, active bool) ([]domain.Account, error)
	Deposit(ctx context.Context, id string, amount decimal.Decimal) (domain.Account, error)
	UpdateCredit(ctx context.Context, id string, amount decimal.Decimal) (domain.Account, error)
	Withdraw(ctx context.Context, id string, amount decimal.Decimal) (domain.Account, error)
	Transfer(ctx context.Context, arg domain.TransferParams) (domain.TransferResult, error)
	Activate(ctx context.Context, id string) (domain.Account, error)
	Deactivate(ctx context.Context, id string) (domain.Account, error)
	Delete(ctx context.Context, id string) error
	Filter(ctx context.Context, filterType, min, max string) ([]domain.Account, error)
}

// Handler facilitates account delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns account handler.
func NewHandler(as Service) *Handler {
	return &Handler{service: as}
}

type accountData struct {
	Account domain.Account `json:"account"`
}

type accountsData struct {
	Accounts []domain.Account `json:"accounts"`
}

// bindError renders a binding failure into a 400 response.
func bindError(gctx *gin.Context, err error) {
	zerolog.Ctx(gctx.Request.Context()).Info().Err(err).Send()

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.GetErrorMsg(ve)})
		return
	}

	gctx.JSON(http.StatusBadRequest, web.Error(err))
}

type idRequest struct {
	ID string `uri:"id" binding:"required,uuid4"`
}

// amountRequest carries the amount as a pointer so the required binding can
// tell a missing field from a literal zero.
type amountRequest struct {
	Amount *decimal.Decimal `json:"amount" binding:"required"`
}

type createRequest struct {
	ExternalID string          `json:"externalId" binding:"required,len=9,numeric"`
	FirstName  string          `json:"firstName" binding:"required,min=1"`
	LastName   string          `json:"lastName" binding:"required,min=1"`
	Email      string          `json:"email" binding:"required,email"`
	Password   string          `json:"password" binding:"required,min=8"`
	IsAdmin    bool            `json:"isAdmin"`
	Cash       decimal.Decimal `json:"cash"`
	Credit     decimal.Decimal `json:"credit"`
}

// Create handles http request to create an account.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		bindError(gctx, err)
		return
	}

	account, err := h.service.Create(ctx, accountservice.CreateParams{
		ExternalID: req.ExternalID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Password:   req.Password,
		IsAdmin:    req.IsAdmin,
		Cash:       req.Cash,
		Credit:     req.Credit,
	})
	if err != nil {
		switch err {
		case domain.ErrExternalIDAlreadyExists, domain.ErrEmailAlreadyExists:
			gctx.JSON(http.StatusConflict, web.Error(err))
			return
		case domain.ErrInvalidAmount:
			gctx.JSON(http.StatusBadRequest, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusCreated, web.Response{Data: accountData{account}})
}

// Get handles http request to get one account by id.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var req idRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		bindError(gctx, err)
		return
	}

	account, err := h.service.Get(ctx, req.ID)
	if err != nil {
		if err == domain.ErrAccountNotFound {
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: accountData{account}})
}

type emailRequest struct {
	Email string `form:"email" binding:"required,email"`
}

// GetByEmail handles http request to get one account by email.
func (h *Handler) GetByEmail(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var req emailRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		bindError(gctx, err)
		return
	}

	account, err := h.service.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == domain.ErrEmailNotFound {
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: accountData{account}})
}

// List handles http request to list all accounts.
func (h *Handler) List(gctx *gin.Context) {
	h.list(gctx, func(ctx context.Context) ([]domain.Account, error) {
		return h.service.List(ctx)
	})
}

// ListActive handles http request to list active accounts.
func (h *Handler) ListActive(gctx *gin.Context) {
	h.list(gctx, func(ctx context.Context) ([]domain.Account, error) {
		return h.service.ListByStatus(ctx, true)
	})
}

// ListInactive handles http request to list inactive accounts.
func (h *Handler) ListInactive(gctx *gin.Context) {
	h.list(gctx, func(ctx context.Context) ([]domain.Account, error) {
		return h.service.ListByStatus(ctx, false)
	})
}

func (h *Handler) list(gctx *gin.Context, fetch func(context.Context) ([]domain.Account, error)) {
	accounts, err := fetch(gctx.Request.Context())
	if err != nil {
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: accountsData{accounts}})
}

// Deposit handles http request to add cash to an active account.
func (h *Handler) Deposit(gctx *gin.Context) {
	h.moveFunds(gctx, h.service.Deposit)
}

// UpdateCredit handles http request to add credit to an active account.
func (h *Handler) UpdateCredit(gctx *gin.Context) {
	h.moveFunds(gctx, h.service.UpdateCredit)
}

// Withdraw handles http request to withdraw from an active account.
func (h *Handler) Withdraw(gctx *gin.Context) {
	h.moveFunds(gctx, h.service.Withdraw)
}

func (h *Handler) moveFunds(gctx *gin.Context, op func(context.Context, string, decimal.Decimal) (domain.Account, error)) {
	ctx := gctx.Request.Context()

	var uri idRequest
	if err := gctx.ShouldBindUri(&uri); err != nil {
		bindError(gctx, err)
		return
	}

	var req amountRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		bindError(gctx, err)
		return
	}

	account, err := op(ctx, uri.ID, *req.Amount)
	if err != nil {
		switch err {
		case domain.ErrInvalidAmount:
			gctx.JSON(http.StatusBadRequest, web.Error(err))
			return
		case domain.ErrAccountNotFound:
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		case domain.ErrInsufficientFunds:
			gctx.JSON(http.StatusConflict, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: accountData{account}})
}

type transferRequest struct {
	SenderID   string           `json:"senderId" binding:"required,uuid4"`
	ReceiverID string           `json:"receiverId" binding:"required,uuid4"`
	Amount     *decimal.Decimal `json:"amount" binding:"required"`
}

type transferData struct {
	Sender   domain.Account `json:"sender"`
	Receiver domain.Account `json:"receiver"`
}

// Transfer handles http request to move funds between two accounts.
func (h *Handler) Transfer(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var req transferRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		bindError(gctx, err)
		return
	}

	result, err := h.service.Transfer(ctx, domain.TransferParams{
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Amount:     *req.Amount,
	})
	if err != nil {
		switch err {
		case domain.ErrInvalidAmount, domain.ErrSameAccount:
			gctx.JSON(http.StatusBadRequest, web.Error(err))
			return
		case domain.ErrSenderNotFound, domain.ErrReceiverNotFound:
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		case domain.ErrInsufficientFunds:
			gctx.JSON(http.StatusConflict, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: transferData{
		Sender:   result.Sender,
		Receiver: result.Receiver,
	}})
}

// Activate handles http request to set an account active.
func (h *Handler) Activate(gctx *gin.Context) {
	h.setActive(gctx, h.service.Activate)
}

// Deactivate handles http request to set an account inactive.
func (h *Handler) Deactivate(gctx *gin.Context) {
	h.setActive(gctx, h.service.Deactivate)
}

func (h *Handler) setActive(gctx *gin.Context, op func(context.Context, string) (domain.Account, error)) {
	ctx := gctx.Request.Context()

	var req idRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		bindError(gctx, err)
		return
	}

	account, err := op(ctx, req.ID)
	if err != nil {
		if err == domain.ErrAccountNotFound {
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: accountData{account}})
}

type deletedData struct {
	Deleted bool `json:"deleted"`
}

// Delete handles http request to permanently remove an account.
func (h *Handler) Delete(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var req idRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		bindError(gctx, err)
		return
	}

	if err := h.service.Delete(ctx, req.ID); err != nil {
		if err == domain.ErrAccountNotFound {
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: deletedData{Deleted: true}})
}

// APIInfo handles http request to describe every route the API exposes.
func (h *Handler) APIInfo(gctx *gin.Context) {
	gctx.JSON(http.StatusOK, web.Response{Data: map[string]string{
		"listAccounts":         "GET /accounts - shows all accounts",
		"listActiveAccounts":   "GET /accounts/active - shows all active accounts",
		"listInactiveAccounts": "GET /accounts/inactive - shows all inactive accounts",
		"getAccountByEmail":    "GET /accounts/by-email?email=Email - returns the account with the given email",
		"getAccountById":       "GET /accounts/:id - shows account info",
		"createAccount":        "POST /accounts - creates a new account",
		"deposit":              "PUT /accounts/deposit/:id - deposits money to the account's cash",
		"updateCredit":         "PUT /accounts/update-credit/:id - updates the account's credit",
		"withdraw":             "PUT /accounts/withdraw/:id - withdraws money from the account",
		"transfer":             "PUT /accounts/transfer - transfers money between accounts",
		"activate":             "PUT /accounts/activate/:id - activates the account",
		"deactivate":           "PUT /accounts/deactivate/:id - deactivates the account",
		"deleteAccount":        "DELETE /accounts/delete/:id - deletes the account",
		"filterByBalance":      "GET /accounts/filter/by?filterType=balance&min=MinAmount&max=MaxAmount - shows active accounts within the balance range",
		"filterByCash":         "GET /accounts/filter/by?filterType=cash&min=MinAmount&max=MaxAmount - shows active accounts within the cash range",
		"filterByCredit":       "GET /accounts/filter/by?filterType=credit&min=MinAmount&max=MaxAmount - shows active accounts within the credit range",
	}})
}

type filterRequest struct {
	FilterType string `form:"filterType" binding:"required"`
	Min        string `form:"min"`
	Max        string `form:"max"`
}

// Filter handles http request to list active accounts by a balance range.
func (h *Handler) Filter(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var req filterRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		bindError(gctx, err)
		return
	}

	accounts, err := h.service.Filter(ctx, req.FilterType, req.Min, req.Max)
	if err != nil {
		if err == domain.ErrFilterNotSupported {
			gctx.JSON(http.StatusBadRequest, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: accountsData{accounts}})
}
