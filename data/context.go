package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"wallet/utils"
)

// Filter условия выборки: имя колонки -> значение
type Filter map[string]interface{}

// Fields изменяемые поля: имя колонки -> новое значение
type Fields map[string]interface{}

// Context общий контракт доступа к коллекции сущностей одного пользователя
type Context[T any] interface {
	GetOne(ctx context.Context, filter Filter) (*T, error)
	GetAll(ctx context.Context, filter Filter) ([]T, error)
	Add(ctx context.Context, item *T) (*T, error)
	Update(ctx context.Context, id string, fields Fields) (*T, error)
	Delete(ctx context.Context, id string) error
}

// collection реализация Context поверх GORM.
// scope ограничивает все запросы записями владельца.
type collection[T any] struct {
	db    *gorm.DB
	name  string
	scope func(*gorm.DB) *gorm.DB
}

// ParseID разбирает идентификатор; неверный формат является ошибкой клиента
func ParseID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil || uid == uuid.Nil {
		return uuid.Nil, utils.NewValidationError(fmt.Sprintf("malformed id %q", id))
	}
	return uid, nil
}

// parseOwner разбирает идентификатор владельца при создании контекста
func parseOwner(userID string) (uuid.UUID, error) {
	if userID == "" {
		return uuid.Nil, utils.NewInvariantViolation("user id is required to build a data context")
	}
	uid, err := uuid.Parse(userID)
	if err != nil || uid == uuid.Nil {
		return uuid.Nil, utils.NewInvariantViolation(fmt.Sprintf("invalid owner id %q", userID))
	}
	return uid, nil
}

func (c *collection[T]) query(ctx context.Context) *gorm.DB {
	q := c.db.WithContext(ctx).Model(new(T))
	if c.scope != nil {
		q = q.Scopes(c.scope)
	}
	return q
}

func (c *collection[T]) notFound() error {
	return utils.NewNotFoundError(c.name + " not found")
}

// GetOne возвращает первую по времени создания запись, подходящую под фильтр
func (c *collection[T]) GetOne(ctx context.Context, filter Filter) (*T, error) {
	var item T
	q := c.query(ctx)
	if len(filter) > 0 {
		q = q.Where(map[string]interface{}(filter))
	}
	if err := q.Order("created_at ASC").Take(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, c.notFound()
		}
		return nil, fmt.Errorf("ошибка при поиске %s: %w", c.name, err)
	}
	return &item, nil
}

// GetAll возвращает записи в порядке создания; пустой срез, если записей нет
func (c *collection[T]) GetAll(ctx context.Context, filter Filter) ([]T, error) {
	items := []T{}
	q := c.query(ctx)
	if len(filter) > 0 {
		q = q.Where(map[string]interface{}(filter))
	}
	if err := q.Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("ошибка при получении списка %s: %w", c.name, err)
	}
	return items, nil
}

// Add сохраняет запись без дополнительных проверок
func (c *collection[T]) Add(ctx context.Context, item *T) (*T, error) {
	if err := c.db.WithContext(ctx).Create(item).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, utils.NewValidationError(c.name + " already exists")
		}
		return nil, fmt.Errorf("не удалось создать %s: %w", c.name, err)
	}
	return item, nil
}

// Update изменяет поля записи владельца и возвращает обновленную запись
func (c *collection[T]) Update(ctx context.Context, id string, fields Fields) (*T, error) {
	uid, err := ParseID(id)
	if err != nil {
		return nil, err
	}

	// Запись должна существовать в области видимости владельца
	if _, err := c.GetOne(ctx, Filter{"id": uid}); err != nil {
		return nil, err
	}

	if len(fields) > 0 {
		if err := c.query(ctx).Where("id = ?", uid).Updates(map[string]interface{}(fields)).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, utils.NewValidationError(c.name + " already exists")
			}
			return nil, fmt.Errorf("ошибка при обновлении %s: %w", c.name, err)
		}
	}

	return c.GetOne(ctx, Filter{"id": uid})
}

// Delete удаляет запись владельца
func (c *collection[T]) Delete(ctx context.Context, id string) error {
	uid, err := ParseID(id)
	if err != nil {
		return err
	}

	res := c.query(ctx).Where("id = ?", uid).Delete(new(T))
	if res.Error != nil {
		return fmt.Errorf("ошибка при удалении %s: %w", c.name, res.Error)
	}
	if res.RowsAffected == 0 {
		return c.notFound()
	}
	return nil
}
