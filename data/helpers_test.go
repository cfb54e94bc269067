package data

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"wallet/database"
	"wallet/models"
)

const (
	mastercardNumber = "5106216010173049"
	visaNumber       = "4111111111111111"
	otherNumber      = "5483874041820682"
)

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

// createUser создает пользователя напрямую в базе
func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{Email: email, Password: "hash"}
	require.NoError(t, db.Create(user).Error)
	return user
}

// newCard возвращает заполненную карту, годную для добавления
func newCard(number string, balance float64) *models.Card {
	return &models.Card{
		CardNumber: number,
		Exp:        "12/99",
		Name:       "ivan petrov",
		Balance:    decimal.NewFromFloat(balance),
	}
}

// money разбирает сумму из строки
func money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// mustContexts создает контексты пользователя
func mustContexts(t *testing.T, db *gorm.DB, user *models.User) *Contexts {
	t.Helper()

	contexts, err := NewContexts(db, user.ID.String())
	require.NoError(t, err)
	return contexts
}
