package controllers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"wallet/data"
	"wallet/models"
	"wallet/utils"
)

// CardController обрабатывает запросы, связанные с картами
type CardController struct {
	db        *gorm.DB
	validator *validator.Validate
	metrics   *utils.Metrics
}

// CreateCardRequest данные для создания карты
type CreateCardRequest struct {
	CardNumber string           `json:"cardNumber" validate:"required,luhn"`
	Exp        string           `json:"exp" validate:"required,cardexp"`
	Name       string           `json:"name" validate:"required,cardname"`
	Balance    *decimal.Decimal `json:"balance" validate:"omitempty,gte=0"`
	Currency   string           `json:"currency" validate:"omitempty,oneof=RUB USD EUR"`
}

// UpdateCardRequest изменяемые поля карты
type UpdateCardRequest struct {
	Exp      *string `json:"exp" validate:"omitempty,cardexp"`
	Name     *string `json:"name" validate:"omitempty,cardname"`
	Currency *string `json:"currency" validate:"omitempty,oneof=RUB USD EUR"`
}

// NewCardController создает новый экземпляр CardController
func NewCardController(db *gorm.DB, metrics *utils.Metrics) *CardController {
	return &CardController{
		db:        db,
		validator: newValidator(),
		metrics:   metrics,
	}
}

// GetCards возвращает карты пользователя
func (c *CardController) GetCards(w http.ResponseWriter, r *http.Request) {
	contexts, err := userContexts(r, c.db)
	if err != nil {
		writeError(w, err)
		return
	}

	cards, err := contexts.Cards.GetAll(r.Context(), nil)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cards)
}

// GetCard возвращает карту пользователя по идентификатору
func (c *CardController) GetCard(w http.ResponseWriter, r *http.Request) {
	contexts, err := userContexts(r, c.db)
	if err != nil {
		writeError(w, err)
		return
	}

	card, err := contexts.Cards.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, card)
}

// CreateCard обрабатывает запрос на создание карты
func (c *CardController) CreateCard(w http.ResponseWriter, r *http.Request) {
	contexts, err := userContexts(r, c.db)
	if err != nil {
		writeError(w, err)
		return
	}

	var dto CreateCardRequest
	if err := decodeAndValidate(r, c.validator, &dto); err != nil {
		writeError(w, err)
		return
	}

	card := &models.Card{
		CardNumber: dto.CardNumber,
		Exp:        dto.Exp,
		Name:       dto.Name,
		Currency:   models.Currency(dto.Currency),
	}
	if dto.Balance != nil {
		card.Balance = *dto.Balance
	}

	created, err := contexts.Cards.Add(r.Context(), card)
	c.metrics.RecordCardOperation("create", err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// UpdateCard изменяет срок действия, имя или валюту карты
func (c *CardController) UpdateCard(w http.ResponseWriter, r *http.Request) {
	contexts, err := userContexts(r, c.db)
	if err != nil {
		writeError(w, err)
		return
	}

	var dto UpdateCardRequest
	if err := decodeAndValidate(r, c.validator, &dto); err != nil {
		writeError(w, err)
		return
	}

	fields := data.Fields{}
	if dto.Exp != nil {
		fields["exp"] = *dto.Exp
	}
	if dto.Name != nil {
		fields["name"] = *dto.Name
	}
	if dto.Currency != nil {
		fields["currency"] = *dto.Currency
	}

	card, err := contexts.Cards.Update(r.Context(), mux.Vars(r)["id"], fields)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, card)
}

// DeleteCard удаляет карту пользователя; транзакции карты сохраняются
func (c *CardController) DeleteCard(w http.ResponseWriter, r *http.Request) {
	contexts, err := userContexts(r, c.db)
	if err != nil {
		writeError(w, err)
		return
	}

	err = contexts.Cards.Delete(r.Context(), mux.Vars(r)["id"])
	c.metrics.RecordCardOperation("delete", err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
