package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User представляет владельца кошелька
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email       string    `gorm:"column:email;uniqueIndex;not null;size:100" json:"email"`
	Password    string    `gorm:"column:password;not null;size:100" json:"-"`
	ChatID      *int64    `gorm:"column:chat_id;uniqueIndex" json:"-"`
	TelegramKey *string   `gorm:"column:telegram_key;uniqueIndex;size:64" json:"-"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"-"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate хук для валидации и генерации идентификатора перед созданием
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = strings.TrimSpace(u.Email)
	if len(u.Email) < 3 || len(u.Email) > 100 {
		return errors.New("email must be between 3 and 100 characters")
	}
	return nil
}

// HasChat сообщает, привязан ли к пользователю Telegram-чат
func (u *User) HasChat() bool {
	return u.ChatID != nil && *u.ChatID != 0
}
