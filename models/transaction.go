package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionType представляет тип транзакции
type TransactionType string

const (
	TransactionTypePrepaidCard   TransactionType = "prepaidCard"   // пополнение карты
	TransactionTypePaymentMobile TransactionType = "paymentMobile" // оплата мобильного телефона
	TransactionTypeCard2Card     TransactionType = "card2Card"     // входящий перевод
)

// Valid проверяет, что тип транзакции известен
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypePrepaidCard, TransactionTypePaymentMobile, TransactionTypeCard2Card:
		return true
	}
	return false
}

// InvalidInfo описывает, почему транзакция помечена некорректной
type InvalidInfo struct {
	IsInvalid bool   `gorm:"column:is_invalid;not null;default:false" json:"isInvalid"`
	Error     string `gorm:"column:error;size:255" json:"error,omitempty"`
}

type Transaction struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CardID      uuid.UUID       `gorm:"column:card_id;type:uuid;not null;index" json:"cardId"`
	Type        TransactionType `gorm:"column:type;not null;size:20" json:"type"`
	Data        string          `gorm:"column:data;size:255" json:"data"`
	Sum         decimal.Decimal `gorm:"column:sum;type:decimal(20,2);not null" json:"sum"`
	Time        time.Time       `gorm:"column:time;not null" json:"time"`
	InvalidInfo InvalidInfo     `gorm:"embedded;embeddedPrefix:invalid_" json:"invalidInfo"`
	CreatedAt   time.Time       `gorm:"column:created_at;index" json:"-"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// BeforeCreate генерирует идентификатор и время транзакции
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Time.IsZero() {
		t.Time = time.Now()
	}
	return nil
}
