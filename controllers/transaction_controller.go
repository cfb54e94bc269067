package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"wallet/models"
	"wallet/services"
)

// TransactionController обрабатывает запросы, связанные с транзакциями карт
type TransactionController struct {
	db        *gorm.DB
	payments  *services.PaymentService
	validator *validator.Validate
}

// TransactionRequest данные транзакции; time в миллисекундах Unix
type TransactionRequest struct {
	Type string           `json:"type" validate:"required"`
	Data string           `json:"data" validate:"required"`
	Time *int64           `json:"time"`
	Sum  *decimal.Decimal `json:"sum" validate:"required"`
}

// MobilePaymentRequest оплата мобильного телефона
type MobilePaymentRequest struct {
	Phone  string          `json:"phone" validate:"required,min=5,max=20"`
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

// FillRequest пополнение карты
type FillRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Data   string          `json:"data" validate:"omitempty,max=255"`
}

// NewTransactionController создает новый экземпляр TransactionController
func NewTransactionController(db *gorm.DB, payments *services.PaymentService) *TransactionController {
	return &TransactionController{
		db:        db,
		payments:  payments,
		validator: newValidator(),
	}
}

// GetTransactions возвращает транзакции карты от старых к новым
func (c *TransactionController) GetTransactions(w http.ResponseWriter, r *http.Request) {
	contexts, err := userContexts(r, c.db)
	if err != nil {
		writeError(w, err)
		return
	}

	transactions, err := contexts.Transactions.GetByCardID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transactions)
}

// CreateTransaction добавляет транзакцию к карте и меняет ее баланс
func (c *TransactionController) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	contexts, err := userContexts(r, c.db)
	if err != nil {
		writeError(w, err)
		return
	}

	var dto TransactionRequest
	if err := decodeAndValidate(r, c.validator, &dto); err != nil {
		writeError(w, err)
		return
	}

	req := services.PaymentRequest{
		CardID: mux.Vars(r)["id"],
		Type:   models.TransactionType(dto.Type),
		Data:   dto.Data,
		Sum:    *dto.Sum,
	}
	if dto.Time != nil {
		req.Time = time.UnixMilli(*dto.Time)
	}

	if _, err := c.payments.Pay(r.Context(), services.ContextsFor(contexts), req); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "success"})
}

// PayMobile оплачивает мобильный телефон с карты
func (c *TransactionController) PayMobile(w http.ResponseWriter, r *http.Request) {
	contexts, err := userContexts(r, c.db)
	if err != nil {
		writeError(w, err)
		return
	}

	var dto MobilePaymentRequest
	if err := decodeAndValidate(r, c.validator, &dto); err != nil {
		writeError(w, err)
		return
	}

	result, err := c.payments.PayMobile(r.Context(), services.ContextsFor(contexts), mux.Vars(r)["id"], dto.Phone, dto.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// Fill пополняет карту
func (c *TransactionController) Fill(w http.ResponseWriter, r *http.Request) {
	contexts, err := userContexts(r, c.db)
	if err != nil {
		writeError(w, err)
		return
	}

	var dto FillRequest
	if err := decodeAndValidate(r, c.validator, &dto); err != nil {
		writeError(w, err)
		return
	}

	result, err := c.payments.Fill(r.Context(), services.ContextsFor(contexts), mux.Vars(r)["id"], dto.Data, dto.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// ExportTransactions выгружает транзакции карты в CSV или XML потоком
func (c *TransactionController) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	format, err := services.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, err)
		return
	}

	contexts, err := userContexts(r, c.db)
	if err != nil {
		writeError(w, err)
		return
	}

	cardID := mux.Vars(r)["id"]
	stream, err := contexts.Transactions.GetByCardIDStream(r.Context(), cardID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=transactions-%s.%s", cardID, format))
	w.WriteHeader(http.StatusOK)

	// Заголовки уже отправлены, ошибку можно только залогировать
	if err := services.ExportTransactions(w, format, stream); err != nil {
		log.Error().Err(err).Str("card_id", cardID).Msg("transaction export interrupted")
	}
}
