package data

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet/models"
	"wallet/utils"
)

func TestNewContextsRequiresOwner(t *testing.T) {
	db := newTestDB(t)

	_, err := NewContexts(db, "")
	assert.True(t, utils.IsStatus(err, http.StatusInternalServerError))

	_, err = NewCardsContext(db, "not-a-uuid")
	assert.True(t, utils.IsStatus(err, http.StatusInternalServerError))
}

func TestCardsContextAdd(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := createUser(t, db, "alice@example.com")
	cards := mustContexts(t, db, alice).Cards

	card, err := cards.Add(ctx, newCard(mastercardNumber, 0))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, card.ID)
	assert.Equal(t, alice.ID, card.UserID)
	assert.Equal(t, "mastercard", card.Type)
	assert.Equal(t, "IVAN PETROV", card.Name)
	assert.Equal(t, models.CurrencyRUB, card.Currency)
	assert.True(t, card.Balance.IsZero())

	stored, err := cards.GetByID(ctx, card.ID.String())
	require.NoError(t, err)
	assert.Equal(t, card.CardNumber, stored.CardNumber)
	assert.True(t, stored.Balance.IsZero())
}

func TestCardsContextAddValidation(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	cards := mustContexts(t, db, createUser(t, db, "alice@example.com")).Cards

	tests := []struct {
		name   string
		modify func(c *models.Card)
	}{
		{"bad luhn", func(c *models.Card) { c.CardNumber = "4276550012345670" }},
		{"too long", func(c *models.Card) { c.CardNumber = "15133306216010173046" }},
		{"expired", func(c *models.Card) { c.Exp = "01/18" }},
		{"bad expiry format", func(c *models.Card) { c.Exp = "13/30" }},
		{"single word name", func(c *models.Card) { c.Name = "IVAN" }},
		{"negative balance", func(c *models.Card) { c.Balance = money("-1") }},
		{"sub-cent balance", func(c *models.Card) { c.Balance = money("0.001") }},
		{"unknown currency", func(c *models.Card) { c.Currency = "GBP" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := newCard(mastercardNumber, 0)
			tt.modify(card)

			_, err := cards.Add(ctx, card)
			assert.True(t, utils.IsStatus(err, http.StatusBadRequest), "got %v", err)
		})
	}

	all, err := cards.GetAll(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCardsContextDuplicateNumberAcrossUsers(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := mustContexts(t, db, createUser(t, db, "alice@example.com")).Cards
	bob := mustContexts(t, db, createUser(t, db, "bob@example.com")).Cards

	_, err := alice.Add(ctx, newCard(mastercardNumber, 0))
	require.NoError(t, err)

	_, err = bob.Add(ctx, newCard(mastercardNumber, 0))
	assert.True(t, utils.IsStatus(err, http.StatusBadRequest))
	assert.EqualError(t, err, "card with this number already exists")
}

func TestCardsContextOwnership(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := mustContexts(t, db, createUser(t, db, "alice@example.com")).Cards
	bob := mustContexts(t, db, createUser(t, db, "bob@example.com")).Cards

	card, err := alice.Add(ctx, newCard(mastercardNumber, 100))
	require.NoError(t, err)

	// Чужая карта не видна
	_, err = bob.GetByID(ctx, card.ID.String())
	assert.True(t, utils.IsNotFound(err))

	_, err = bob.Update(ctx, card.ID.String(), Fields{"name": "BOB SMITH"})
	assert.True(t, utils.IsNotFound(err))

	err = bob.Delete(ctx, card.ID.String())
	assert.True(t, utils.IsNotFound(err))

	_, err = bob.AdjustBalance(ctx, card.ID, money("-10"))
	assert.True(t, utils.IsNotFound(err))

	all, err := bob.GetAll(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all)

	// Неверный формат идентификатора
	_, err = alice.GetByID(ctx, "42")
	assert.True(t, utils.IsStatus(err, http.StatusBadRequest))
	err = alice.Delete(ctx, "42")
	assert.True(t, utils.IsStatus(err, http.StatusBadRequest))

	// Отсутствующий идентификатор
	_, err = alice.GetByID(ctx, uuid.NewString())
	assert.True(t, utils.IsNotFound(err))

	require.NoError(t, alice.Delete(ctx, card.ID.String()))
	_, err = alice.GetByID(ctx, card.ID.String())
	assert.True(t, utils.IsNotFound(err))
}

func TestCardsContextUpdate(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	cards := mustContexts(t, db, createUser(t, db, "alice@example.com")).Cards

	card, err := cards.Add(ctx, newCard(mastercardNumber, 10))
	require.NoError(t, err)

	updated, err := cards.Update(ctx, card.ID.String(), Fields{
		"name":     "petr ivanov",
		"currency": "USD",
		"balance":  25.5,
	})
	require.NoError(t, err)
	assert.Equal(t, "PETR IVANOV", updated.Name)
	assert.Equal(t, models.CurrencyUSD, updated.Currency)
	assert.Equal(t, "25.50", utils.FormatAmount(updated.Balance))

	for _, field := range []string{"id", "card_number", "user_id", "type"} {
		_, err := cards.Update(ctx, card.ID.String(), Fields{field: "x"})
		assert.True(t, utils.IsStatus(err, http.StatusBadRequest), field)
	}

	_, err = cards.Update(ctx, card.ID.String(), Fields{"balance": -5.0})
	assert.True(t, utils.IsStatus(err, http.StatusBadRequest))
	_, err = cards.Update(ctx, card.ID.String(), Fields{"color": "red"})
	assert.True(t, utils.IsStatus(err, http.StatusBadRequest))

	stored, err := cards.GetByID(ctx, card.ID.String())
	require.NoError(t, err)
	assert.Equal(t, mastercardNumber, stored.CardNumber)
	assert.Equal(t, "25.50", utils.FormatAmount(stored.Balance))
}

func TestCardsContextGetByNumberSuffix(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	cards := mustContexts(t, db, createUser(t, db, "alice@example.com")).Cards

	card, err := cards.Add(ctx, newCard(visaNumber, 0))
	require.NoError(t, err)

	found, err := cards.GetByNumberSuffix(ctx, "1111")
	require.NoError(t, err)
	assert.Equal(t, card.ID, found.ID)

	_, err = cards.GetByNumberSuffix(ctx, "3049")
	assert.True(t, utils.IsNotFound(err))

	for _, bad := range []string{"", "111", "11111", "11a1"} {
		_, err = cards.GetByNumberSuffix(ctx, bad)
		assert.True(t, utils.IsStatus(err, http.StatusBadRequest), bad)
	}
}

func TestCardsContextAdjustBalance(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	cards := mustContexts(t, db, createUser(t, db, "alice@example.com")).Cards

	card, err := cards.Add(ctx, newCard(mastercardNumber, 100))
	require.NoError(t, err)

	updated, err := cards.AdjustBalance(ctx, card.ID, money("-40"))
	require.NoError(t, err)
	assert.Equal(t, "60.00", utils.FormatAmount(updated.Balance))

	updated, err = cards.AdjustBalance(ctx, card.ID, money("15.5"))
	require.NoError(t, err)
	assert.Equal(t, "75.50", utils.FormatAmount(updated.Balance))

	// Списание больше баланса не выполняется
	_, err = cards.AdjustBalance(ctx, card.ID, money("-100"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	stored, err := cards.GetByID(ctx, card.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "75.50", utils.FormatAmount(stored.Balance))

	// Списание до нуля допустимо
	updated, err = cards.AdjustBalance(ctx, card.ID, money("-75.5"))
	require.NoError(t, err)
	assert.True(t, updated.Balance.IsZero())

	_, err = cards.AdjustBalance(ctx, card.ID, money("0.004"))
	assert.True(t, utils.IsStatus(err, http.StatusBadRequest))
}

func TestCardsContextAdjustBalanceKeepsCents(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	cards := mustContexts(t, db, createUser(t, db, "alice@example.com")).Cards

	card, err := cards.Add(ctx, newCard(mastercardNumber, 0))
	require.NoError(t, err)

	_, err = cards.AdjustBalance(ctx, card.ID, money("0.3"))
	require.NoError(t, err)
	updated, err := cards.AdjustBalance(ctx, card.ID, money("-0.1"))
	require.NoError(t, err)
	assert.Equal(t, "0.20", utils.FormatAmount(updated.Balance))
	assert.True(t, updated.Balance.Equal(money("0.2")))

	// Остаток списывается полностью
	updated, err = cards.AdjustBalance(ctx, card.ID, money("-0.2"))
	require.NoError(t, err)
	assert.True(t, updated.Balance.IsZero())
}

func TestFindExpiringCards(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")

	now := time.Now()
	current := now.Format("01/06")

	expiring := newCard(mastercardNumber, 0)
	expiring.Exp = current
	_, err := mustContexts(t, db, alice).Cards.Add(ctx, expiring)
	require.NoError(t, err)

	_, err = mustContexts(t, db, bob).Cards.Add(ctx, newCard(visaNumber, 0))
	require.NoError(t, err)

	found, err := FindExpiringCards(ctx, db, now)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, mastercardNumber, found[0].Card.CardNumber)
	assert.Equal(t, alice.ID, found[0].User.ID)

	found, err = FindExpiringCards(ctx, db, now.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Empty(t, found)
}
