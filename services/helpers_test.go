package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"wallet/data"
	"wallet/database"
	"wallet/models"
)

// testContext повторяет t.Context: контекст отменяется при завершении теста
func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// newTestDB открывает изолированную базу SQLite в памяти
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.OpenSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// seedCard создает пользователя и его карту с заданным номером и балансом
func seedCard(t *testing.T, db *gorm.DB, email, number string, balance float64) (*models.User, *data.Contexts, *models.Card) {
	t.Helper()

	user := &models.User{Email: email, Password: "hash"}
	require.NoError(t, db.Create(user).Error)

	contexts, err := data.NewContexts(db, user.ID.String())
	require.NoError(t, err)

	card, err := contexts.Cards.Add(testContext(t), &models.Card{
		CardNumber: number,
		Exp:        "12/99",
		Name:       "IVAN PETROV",
		Balance:    decimal.NewFromFloat(balance),
	})
	require.NoError(t, err)
	return user, contexts, card
}

// money разбирает сумму из строки
func money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}
