package data

import (
	"gorm.io/gorm"
)

// Contexts набор контекстов одного пользователя.
// Его используют и HTTP-контроллеры, и команды бота.
type Contexts struct {
	Cards        *CardsContext
	Transactions *TransactionsContext
	Users        *UsersContext
}

// NewContexts создает набор контекстов пользователя userID
func NewContexts(db *gorm.DB, userID string) (*Contexts, error) {
	cards, err := NewCardsContext(db, userID)
	if err != nil {
		return nil, err
	}
	transactions, err := NewTransactionsContext(db, userID)
	if err != nil {
		return nil, err
	}
	users, err := NewUsersContext(db, userID)
	if err != nil {
		return nil, err
	}
	return &Contexts{
		Cards:        cards,
		Transactions: transactions,
		Users:        users,
	}, nil
}
