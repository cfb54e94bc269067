package data

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet/models"
	"wallet/utils"
)

func addTransaction(t *testing.T, transactions *TransactionsContext, cardID uuid.UUID, sum float64) *models.Transaction {
	t.Helper()

	tx, err := transactions.Add(context.Background(), &models.Transaction{
		CardID: cardID,
		Type:   models.TransactionTypePrepaidCard,
		Data:   "top-up",
		Sum:    decimal.NewFromFloat(sum),
	})
	require.NoError(t, err)
	return tx
}

func TestTransactionsContextAdd(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := mustContexts(t, db, createUser(t, db, "alice@example.com"))
	bob := mustContexts(t, db, createUser(t, db, "bob@example.com"))

	card, err := alice.Cards.Add(ctx, newCard(mastercardNumber, 0))
	require.NoError(t, err)

	tx := addTransaction(t, alice.Transactions, card.ID, 50)
	assert.NotEqual(t, uuid.Nil, tx.ID)
	assert.False(t, tx.Time.IsZero())
	assert.False(t, tx.InvalidInfo.IsInvalid)

	tests := []struct {
		name   string
		ctx    *TransactionsContext
		tx     *models.Transaction
		status int
	}{
		{"missing card", alice.Transactions, &models.Transaction{Type: models.TransactionTypeCard2Card, Sum: decimal.NewFromInt(1)}, http.StatusBadRequest},
		{"missing type", alice.Transactions, &models.Transaction{CardID: card.ID, Sum: decimal.NewFromInt(1)}, http.StatusBadRequest},
		{"sub-cent sum", alice.Transactions, &models.Transaction{CardID: card.ID, Type: models.TransactionTypeCard2Card, Sum: decimal.RequireFromString("0.004")}, http.StatusBadRequest},
		{"unknown type", alice.Transactions, &models.Transaction{CardID: card.ID, Type: "bitcoin", Sum: decimal.NewFromInt(1)}, http.StatusForbidden},
		{"foreign card", bob.Transactions, &models.Transaction{CardID: card.ID, Type: models.TransactionTypeCard2Card, Sum: decimal.NewFromInt(1)}, http.StatusNotFound},
		{"absent card", alice.Transactions, &models.Transaction{CardID: uuid.New(), Type: models.TransactionTypeCard2Card, Sum: decimal.NewFromInt(1)}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.ctx.Add(ctx, tt.tx)
			assert.True(t, utils.IsStatus(err, tt.status), "got %v", err)
		})
	}

	all, err := alice.Transactions.GetAll(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTransactionsContextGetByCardID(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := mustContexts(t, db, createUser(t, db, "alice@example.com"))
	bob := mustContexts(t, db, createUser(t, db, "bob@example.com"))

	card, err := alice.Cards.Add(ctx, newCard(mastercardNumber, 0))
	require.NoError(t, err)
	other, err := alice.Cards.Add(ctx, newCard(visaNumber, 0))
	require.NoError(t, err)

	first := addTransaction(t, alice.Transactions, card.ID, 1)
	second := addTransaction(t, alice.Transactions, card.ID, 2)
	addTransaction(t, alice.Transactions, other.ID, 3)

	list, err := alice.Transactions.GetByCardID(ctx, card.ID.String())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	// Карта без транзакций дает пустой список
	empty, err := alice.Cards.Add(ctx, newCard(otherNumber, 0))
	require.NoError(t, err)
	list, err = alice.Transactions.GetByCardID(ctx, empty.ID.String())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	_, err = bob.Transactions.GetByCardID(ctx, card.ID.String())
	assert.True(t, utils.IsNotFound(err))

	_, err = alice.Transactions.GetByCardID(ctx, "bad-id")
	assert.True(t, utils.IsStatus(err, http.StatusBadRequest))

	// Чужие транзакции не видны и по идентификатору
	_, err = bob.Transactions.GetOne(ctx, Filter{"id": first.ID})
	assert.True(t, utils.IsNotFound(err))
}

func TestTransactionsContextUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := mustContexts(t, db, createUser(t, db, "alice@example.com"))

	card, err := alice.Cards.Add(ctx, newCard(mastercardNumber, 0))
	require.NoError(t, err)
	tx := addTransaction(t, alice.Transactions, card.ID, 10)

	_, err = alice.Transactions.Update(ctx, tx.ID.String(), Fields{"sum": 1000.0})
	assert.True(t, utils.IsStatus(err, http.StatusBadRequest))

	updated, err := alice.Transactions.Update(ctx, tx.ID.String(), Fields{
		"invalid_is_invalid": true,
		"invalid_error":      "manual",
	})
	require.NoError(t, err)
	assert.True(t, updated.InvalidInfo.IsInvalid)
	assert.Equal(t, "manual", updated.InvalidInfo.Error)
	assert.Equal(t, "10.00", utils.FormatAmount(updated.Sum))

	err = alice.Transactions.Delete(ctx, tx.ID.String())
	assert.True(t, utils.IsStatus(err, http.StatusForbidden))
	err = alice.Transactions.Delete(ctx, "bad-id")
	assert.True(t, utils.IsStatus(err, http.StatusBadRequest))

	_, err = alice.Transactions.GetOne(ctx, Filter{"id": tx.ID})
	assert.NoError(t, err)
}

func TestTransactionsContextSetInvalid(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := mustContexts(t, db, createUser(t, db, "alice@example.com"))
	bob := mustContexts(t, db, createUser(t, db, "bob@example.com"))

	card, err := alice.Cards.Add(ctx, newCard(mastercardNumber, 0))
	require.NoError(t, err)
	tx := addTransaction(t, alice.Transactions, card.ID, 10)

	// Неизвестные и чужие идентификаторы игнорируются
	assert.False(t, alice.Transactions.SetInvalid(ctx, "garbage", "reason"))
	assert.False(t, alice.Transactions.SetInvalid(ctx, uuid.NewString(), "reason"))
	assert.False(t, bob.Transactions.SetInvalid(ctx, tx.ID.String(), "reason"))

	stored, err := alice.Transactions.GetOne(ctx, Filter{"id": tx.ID})
	require.NoError(t, err)
	assert.False(t, stored.InvalidInfo.IsInvalid)

	assert.True(t, alice.Transactions.SetInvalid(ctx, tx.ID.String(), "balance update failed"))
	stored, err = alice.Transactions.GetOne(ctx, Filter{"id": tx.ID})
	require.NoError(t, err)
	assert.True(t, stored.InvalidInfo.IsInvalid)
	assert.Equal(t, "balance update failed", stored.InvalidInfo.Error)
}

func TestTransactionsContextSetInvalidAfterCardDeleted(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := mustContexts(t, db, createUser(t, db, "alice@example.com"))

	card, err := alice.Cards.Add(ctx, newCard(mastercardNumber, 0))
	require.NoError(t, err)
	tx := addTransaction(t, alice.Transactions, card.ID, 10)
	require.NoError(t, alice.Cards.Delete(ctx, card.ID.String()))

	assert.True(t, alice.Transactions.SetInvalid(ctx, tx.ID.String(), "card not found"))

	var stored models.Transaction
	require.NoError(t, db.First(&stored, "id = ?", tx.ID).Error)
	assert.True(t, stored.InvalidInfo.IsInvalid)
	assert.Equal(t, "card not found", stored.InvalidInfo.Error)
}

func TestTransactionsContextStream(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := mustContexts(t, db, createUser(t, db, "alice@example.com"))
	bob := mustContexts(t, db, createUser(t, db, "bob@example.com"))

	card, err := alice.Cards.Add(ctx, newCard(mastercardNumber, 0))
	require.NoError(t, err)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		tx, err := alice.Transactions.Add(ctx, &models.Transaction{
			CardID: card.ID,
			Type:   models.TransactionTypeCard2Card,
			Data:   "transfer",
			Sum:    decimal.NewFromInt(int64(i + 1)),
			Time:   time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		ids = append(ids, tx.ID)
	}

	stream, err := alice.Transactions.GetByCardIDStream(ctx, card.ID.String())
	require.NoError(t, err)

	var got []uuid.UUID
	for stream.Next() {
		tx := stream.Transaction()
		assert.Equal(t, card.ID, tx.CardID)
		got = append(got, tx.ID)
	}
	require.NoError(t, stream.Err())
	assert.Equal(t, ids, got)

	// Повторное закрытие безопасно
	assert.NoError(t, stream.Close())
	assert.False(t, stream.Next())

	_, err = bob.Transactions.GetByCardIDStream(ctx, card.ID.String())
	assert.True(t, utils.IsNotFound(err))

	// После закрытия потока соединение снова доступно
	_, err = alice.Cards.GetAll(ctx, nil)
	assert.NoError(t, err)
}
