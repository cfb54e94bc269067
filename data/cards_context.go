package data

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"wallet/models"
	"wallet/utils"
)

// ErrInsufficientFunds списание оставило бы отрицательный баланс
var ErrInsufficientFunds = utils.NewValidationError("insufficient funds")

// immutableCardFields поля карты, которые нельзя менять после создания
var immutableCardFields = []string{"id", "card_number", "user_id", "type"}

// CardsContext доступ к картам одного пользователя
type CardsContext struct {
	collection[models.Card]
	userID uuid.UUID
}

var _ Context[models.Card] = (*CardsContext)(nil)

// NewCardsContext создает контекст карт пользователя userID
func NewCardsContext(db *gorm.DB, userID string) (*CardsContext, error) {
	owner, err := parseOwner(userID)
	if err != nil {
		return nil, err
	}
	return &CardsContext{
		collection: collection[models.Card]{
			db:   db,
			name: "card",
			scope: func(q *gorm.DB) *gorm.DB {
				return q.Where("cards.user_id = ?", owner)
			},
		},
		userID: owner,
	}, nil
}

// UserID возвращает владельца контекста
func (c *CardsContext) UserID() uuid.UUID {
	return c.userID
}

func validBalance(balance decimal.Decimal) bool {
	return !balance.IsNegative() && utils.HasMoneyScale(balance)
}

// Add проверяет и сохраняет новую карту владельца
func (c *CardsContext) Add(ctx context.Context, card *models.Card) (*models.Card, error) {
	if card == nil {
		return nil, utils.NewValidationError("card is required")
	}

	card.CardNumber = strings.TrimSpace(card.CardNumber)
	card.Name = strings.TrimSpace(card.Name)

	// Проверяем поля карты
	if !utils.CardNumberValid(card.CardNumber) {
		return nil, utils.NewValidationError("invalid card number")
	}
	if !utils.ExpiryValid(card.Exp) {
		return nil, utils.NewValidationError("invalid card expiry")
	}
	if !utils.NameValid(card.Name) {
		return nil, utils.NewValidationError("invalid card holder name")
	}
	if !validBalance(card.Balance) {
		return nil, utils.NewValidationError("balance must be non-negative with at most 2 decimal places")
	}
	if card.Currency == "" {
		card.Currency = models.CurrencyRUB
	}
	if !card.Currency.Valid() {
		return nil, utils.NewValidationError(fmt.Sprintf("unknown currency %q", card.Currency))
	}

	// Номер карты уникален среди всех пользователей
	var count int64
	if err := c.db.WithContext(ctx).Model(&models.Card{}).Where("card_number = ?", card.CardNumber).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("ошибка при проверке номера карты: %w", err)
	}
	if count > 0 {
		return nil, utils.NewValidationError("card with this number already exists")
	}

	card.ID = uuid.Nil
	card.UserID = c.userID
	card.Name = strings.ToUpper(card.Name)
	card.Type = string(utils.ClassifyType(card.CardNumber))

	return c.collection.Add(ctx, card)
}

// Update изменяет изменяемые поля карты владельца
func (c *CardsContext) Update(ctx context.Context, id string, fields Fields) (*models.Card, error) {
	for _, key := range immutableCardFields {
		if _, ok := fields[key]; ok {
			return nil, utils.NewValidationError(fmt.Sprintf("field %s cannot be changed", key))
		}
	}

	checked := Fields{}
	for key, value := range fields {
		switch key {
		case "name":
			name, ok := value.(string)
			if !ok || !utils.NameValid(strings.TrimSpace(name)) {
				return nil, utils.NewValidationError("invalid card holder name")
			}
			checked[key] = strings.ToUpper(strings.TrimSpace(name))
		case "exp":
			exp, ok := value.(string)
			if !ok || !utils.ExpiryValid(exp) {
				return nil, utils.NewValidationError("invalid card expiry")
			}
			checked[key] = exp
		case "balance":
			balance, ok := value.(decimal.Decimal)
			if f, isFloat := value.(float64); isFloat {
				balance, ok = decimal.NewFromFloat(f), true
			}
			if !ok || !validBalance(balance) {
				return nil, utils.NewValidationError("balance must be non-negative with at most 2 decimal places")
			}
			checked[key] = balance
		case "currency":
			currency := models.Currency(fmt.Sprint(value))
			if !currency.Valid() {
				return nil, utils.NewValidationError(fmt.Sprintf("unknown currency %q", currency))
			}
			checked[key] = currency
		default:
			return nil, utils.NewValidationError(fmt.Sprintf("unknown card field %s", key))
		}
	}

	return c.collection.Update(ctx, id, checked)
}

// GetByID возвращает карту владельца по идентификатору
func (c *CardsContext) GetByID(ctx context.Context, id string) (*models.Card, error) {
	uid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	return c.GetOne(ctx, Filter{"id": uid})
}

// GetByNumberSuffix ищет карту владельца по последним 4 цифрам номера.
// Этот поиск используют и команды бота, и inline-кнопки.
func (c *CardsContext) GetByNumberSuffix(ctx context.Context, last4 string) (*models.Card, error) {
	if len(last4) != 4 || strings.Trim(last4, "0123456789") != "" {
		return nil, utils.NewValidationError("last 4 digits of the card number are expected")
	}

	var card models.Card
	err := c.query(ctx).
		Where("card_number LIKE ?", "%"+last4).
		Order("created_at ASC").
		Take(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, c.notFound()
		}
		return nil, fmt.Errorf("ошибка при поиске карты: %w", err)
	}
	return &card, nil
}

// AdjustBalance атомарно изменяет баланс карты на delta.
// Обновление выполняется только если итоговый баланс не отрицательный.
// ROUND держит баланс в копейках и на sqlite, где decimal хранится как REAL.
func (c *CardsContext) AdjustBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (*models.Card, error) {
	if !utils.HasMoneyScale(delta) {
		return nil, utils.NewValidationError("amount must have at most 2 decimal places")
	}

	res := c.db.WithContext(ctx).Model(&models.Card{}).
		Where("id = ? AND user_id = ? AND ROUND(balance + ?, 2) >= 0", id, c.userID, delta).
		Update("balance", gorm.Expr("ROUND(balance + ?, 2)", delta))
	if res.Error != nil {
		return nil, fmt.Errorf("ошибка при обновлении баланса: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		// Различаем отсутствие карты и нехватку средств
		if _, err := c.GetOne(ctx, Filter{"id": id}); err != nil {
			return nil, err
		}
		return nil, ErrInsufficientFunds
	}

	return c.GetOne(ctx, Filter{"id": id})
}

// CardOwner карта вместе с владельцем
type CardOwner struct {
	Card models.Card
	User models.User
}

// FindExpiringCards возвращает карты всех пользователей, срок действия которых
// заканчивается в текущем месяце. Используется фоновым планировщиком.
func FindExpiringCards(ctx context.Context, db *gorm.DB, now time.Time) ([]CardOwner, error) {
	var cards []models.Card
	if err := db.WithContext(ctx).Order("created_at ASC").Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("ошибка при получении карт: %w", err)
	}

	var expiring []models.Card
	ownerIDs := make([]uuid.UUID, 0)
	seen := make(map[uuid.UUID]bool)
	for _, card := range cards {
		month, year, ok := utils.ParseExpiry(card.Exp)
		if !ok || year != now.Year() || month != int(now.Month()) {
			continue
		}
		expiring = append(expiring, card)
		if !seen[card.UserID] {
			seen[card.UserID] = true
			ownerIDs = append(ownerIDs, card.UserID)
		}
	}
	if len(expiring) == 0 {
		return []CardOwner{}, nil
	}

	var users []models.User
	if err := db.WithContext(ctx).Where("id IN ?", ownerIDs).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("ошибка при получении владельцев карт: %w", err)
	}
	byID := make(map[uuid.UUID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	result := make([]CardOwner, 0, len(expiring))
	for _, card := range expiring {
		user, ok := byID[card.UserID]
		if !ok {
			continue
		}
		result = append(result, CardOwner{Card: card, User: user})
	}
	return result, nil
}
