package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"wallet/models"
	"wallet/utils"
)

// TransactionsContext доступ к транзакциям карт одного пользователя
type TransactionsContext struct {
	collection[models.Transaction]
	userID uuid.UUID
	cards  *CardsContext
}

var _ Context[models.Transaction] = (*TransactionsContext)(nil)

// NewTransactionsContext создает контекст транзакций пользователя userID
func NewTransactionsContext(db *gorm.DB, userID string) (*TransactionsContext, error) {
	cards, err := NewCardsContext(db, userID)
	if err != nil {
		return nil, err
	}
	owner := cards.UserID()
	return &TransactionsContext{
		collection: collection[models.Transaction]{
			db:   db,
			name: "transaction",
			scope: func(q *gorm.DB) *gorm.DB {
				return q.Where("transactions.card_id IN (SELECT id FROM cards WHERE user_id = ?)", owner)
			},
		},
		userID: owner,
		cards:  cards,
	}, nil
}

// Add добавляет транзакцию к карте владельца
func (c *TransactionsContext) Add(ctx context.Context, t *models.Transaction) (*models.Transaction, error) {
	if t == nil || t.CardID == uuid.Nil {
		return nil, utils.NewValidationError("card id is required")
	}
	if t.Type == "" {
		return nil, utils.NewValidationError("transaction type is required")
	}
	if !utils.HasMoneyScale(t.Sum) {
		return nil, utils.NewValidationError("sum must have at most 2 decimal places")
	}

	// Карта должна принадлежать пользователю
	if _, err := c.cards.GetOne(ctx, Filter{"id": t.CardID}); err != nil {
		return nil, err
	}

	if !t.Type.Valid() {
		return nil, utils.NewAuthorizationError(fmt.Sprintf("unknown transaction type %q", t.Type))
	}

	t.ID = uuid.Nil
	t.InvalidInfo = models.InvalidInfo{}
	return c.collection.Add(ctx, t)
}

// Update разрешает менять только отметку о некорректности транзакции
func (c *TransactionsContext) Update(ctx context.Context, id string, fields Fields) (*models.Transaction, error) {
	for key := range fields {
		if !strings.HasPrefix(key, "invalid_") {
			return nil, utils.NewValidationError(fmt.Sprintf("field %s cannot be changed", key))
		}
	}
	return c.collection.Update(ctx, id, fields)
}

// Delete транзакции не удаляются, только помечаются некорректными
func (c *TransactionsContext) Delete(ctx context.Context, id string) error {
	if _, err := ParseID(id); err != nil {
		return err
	}
	return utils.NewAuthorizationError("transactions cannot be deleted")
}

// GetByCardID возвращает транзакции карты владельца от старых к новым
func (c *TransactionsContext) GetByCardID(ctx context.Context, cardID string) ([]models.Transaction, error) {
	card, err := c.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	return c.GetAll(ctx, Filter{"card_id": card.ID})
}

// GetByCardIDStream возвращает курсор по транзакциям карты владельца.
// Вызывающий обязан закрыть поток.
func (c *TransactionsContext) GetByCardIDStream(ctx context.Context, cardID string) (*TransactionStream, error) {
	card, err := c.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}

	q := c.query(ctx).Where("card_id = ?", card.ID).Order("created_at ASC")
	rows, err := q.Rows()
	if err != nil {
		return nil, fmt.Errorf("ошибка при чтении транзакций: %w", err)
	}
	return &TransactionStream{db: c.db, rows: rows}, nil
}

// SetInvalid помечает транзакцию некорректной с указанием причины и сообщает,
// была ли транзакция помечена. Ошибки только логируются.
// Транзакция удаленной карты тоже помечается: карту могли удалить между
// записью транзакции и изменением баланса.
func (c *TransactionsContext) SetInvalid(ctx context.Context, id string, reason string) bool {
	uid, err := uuid.Parse(id)
	if err != nil {
		log.Warn().Str("transaction_id", id).Msg("setInvalid: malformed transaction id")
		return false
	}

	res := c.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ?", uid).
		Where("(card_id IN (SELECT id FROM cards WHERE user_id = ?) OR card_id NOT IN (SELECT id FROM cards))", c.userID).
		Updates(map[string]interface{}{
			"invalid_is_invalid": true,
			"invalid_error":      reason,
		})
	if res.Error != nil {
		log.Error().Err(res.Error).Str("transaction_id", id).Msg("setInvalid failed")
		return false
	}
	if res.RowsAffected == 0 {
		log.Debug().Str("transaction_id", id).Msg("setInvalid: transaction not found")
		return false
	}
	return true
}

// TransactionStream однопроходный курсор по транзакциям
type TransactionStream struct {
	db      *gorm.DB
	rows    *sql.Rows
	current models.Transaction
	err     error
	closed  bool
}

// Next переходит к следующей транзакции; false в конце или при ошибке
func (s *TransactionStream) Next() bool {
	if s.closed || s.err != nil {
		return false
	}
	if !s.rows.Next() {
		s.err = s.rows.Err()
		s.Close()
		return false
	}
	s.current = models.Transaction{}
	if err := s.db.ScanRows(s.rows, &s.current); err != nil {
		s.err = fmt.Errorf("ошибка при чтении транзакции: %w", err)
		s.Close()
		return false
	}
	return true
}

// Transaction возвращает текущую транзакцию
func (s *TransactionStream) Transaction() models.Transaction {
	return s.current
}

// Err возвращает ошибку, остановившую поток
func (s *TransactionStream) Err() error {
	return s.err
}

// Close освобождает курсор; повторный вызов безопасен
func (s *TransactionStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.rows.Close()
}
