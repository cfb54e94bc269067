package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	// Суммы в JSON остаются числами
	decimal.MarshalJSONWithoutQuotes = true
}

// Currency валюта карты
type Currency string

const (
	CurrencyRUB Currency = "RUB"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// Valid проверяет, что валюта входит в перечисление
func (c Currency) Valid() bool {
	switch c {
	case CurrencyRUB, CurrencyUSD, CurrencyEUR:
		return true
	}
	return false
}

// Symbol возвращает знак валюты для сообщений
func (c Currency) Symbol() string {
	switch c {
	case CurrencyUSD:
		return "$"
	case CurrencyEUR:
		return "€"
	default:
		return "р."
	}
}

// Card представляет платежную карту пользователя
type Card struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CardNumber string          `gorm:"column:card_number;uniqueIndex;not null;size:19" json:"cardNumber"`
	Type       string          `gorm:"column:type;not null;size:20" json:"type"`
	Balance    decimal.Decimal `gorm:"column:balance;type:decimal(20,2);not null;default:0" json:"balance"`
	Exp        string          `gorm:"column:exp;not null;size:7" json:"exp"`
	Name       string          `gorm:"column:name;not null;size:100" json:"name"`
	Currency   Currency        `gorm:"column:currency;not null;size:3;default:'RUB'" json:"currency"`
	UserID     uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index" json:"-"`
	CreatedAt  time.Time       `gorm:"column:created_at" json:"-"`
	UpdatedAt  time.Time       `gorm:"column:updated_at" json:"-"`
}

// TableName возвращает имя таблицы для модели Card
func (Card) TableName() string {
	return "cards"
}

// BeforeCreate генерирует идентификатор карты
func (c *Card) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
