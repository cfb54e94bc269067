package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"wallet/models"
	"wallet/utils"
)

// UsersContext доступ к пользователям.
// Контекст с владельцем видит только его запись; контекст без владельца
// используется для входа и привязки Telegram-чата.
type UsersContext struct {
	collection[models.User]
	userID uuid.UUID
}

// NewUsersContext создает контекст, ограниченный пользователем userID
func NewUsersContext(db *gorm.DB, userID string) (*UsersContext, error) {
	owner, err := parseOwner(userID)
	if err != nil {
		return nil, err
	}
	return &UsersContext{
		collection: collection[models.User]{
			db:   db,
			name: "user",
			scope: func(q *gorm.DB) *gorm.DB {
				return q.Where("users.id = ?", owner)
			},
		},
		userID: owner,
	}, nil
}

// NewDirectory создает контекст без владельца для поиска по email, чату и ключу привязки
func NewDirectory(db *gorm.DB) *UsersContext {
	return &UsersContext{collection: collection[models.User]{db: db, name: "user"}}
}

// Current возвращает пользователя-владельца контекста
func (c *UsersContext) Current(ctx context.Context) (*models.User, error) {
	if c.userID == uuid.Nil {
		return nil, utils.NewInvariantViolation("users context has no owner")
	}
	return c.GetOne(ctx, Filter{"id": c.userID})
}

// GetByEmail ищет пользователя по email
func (c *UsersContext) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return c.GetOne(ctx, Filter{"email": email})
}

// GetByChatID ищет пользователя по привязанному Telegram-чату
func (c *UsersContext) GetByChatID(ctx context.Context, chatID int64) (*models.User, error) {
	return c.GetOne(ctx, Filter{"chat_id": chatID})
}

// SetTelegramKey сохраняет новый одноразовый ключ привязки
func (c *UsersContext) SetTelegramKey(ctx context.Context, id uuid.UUID, key string) error {
	res := c.query(ctx).Where("id = ?", id).Update("telegram_key", key)
	if res.Error != nil {
		return fmt.Errorf("ошибка при сохранении ключа: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return c.notFound()
	}
	return nil
}

// LinkChat привязывает чат к пользователю по ключу и гасит ключ.
// Чат, уже привязанный к другому пользователю, отвязывается от него.
func (c *UsersContext) LinkChat(ctx context.Context, key string, chatID int64) (*models.User, error) {
	if key == "" {
		return nil, utils.NewValidationError("telegram key is required")
	}

	var user models.User
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.User{})
		if c.scope != nil {
			q = q.Scopes(c.scope)
		}
		if err := q.Where("telegram_key = ?", key).Take(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewNotFoundError("unknown telegram key")
			}
			return err
		}

		if err := tx.Model(&models.User{}).
			Where("chat_id = ? AND id <> ?", chatID, user.ID).
			Update("chat_id", nil).Error; err != nil {
			return err
		}

		return tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"chat_id":      chatID,
			"telegram_key": nil,
		}).Error
	})
	if err != nil {
		var appErr *utils.ApplicationError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, fmt.Errorf("ошибка при привязке чата: %w", err)
	}

	user.ChatID = &chatID
	user.TelegramKey = nil
	return &user, nil
}
