package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet/models"
	"wallet/utils"
)

// recordingExpiryNotifier запоминает напоминания
type recordingExpiryNotifier struct {
	cards []string
	err   error
}

func (r *recordingExpiryNotifier) NotifyExpiry(ctx context.Context, user models.User, card models.Card) error {
	if r.err != nil {
		return r.err
	}
	r.cards = append(r.cards, card.CardNumber)
	return nil
}

func TestSchedulerRemindExpiringCards(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2030, time.June, 1, 10, 0, 0, 0, time.UTC)

	_, alice, _ := seedCard(t, db, "alice@example.com", "5106216010173049", 0)
	seedCard(t, db, "bob@example.com", "4111111111111111", 0)

	// Карта, истекающая в июне 2030
	_, err := alice.Cards.Add(context.Background(), &models.Card{
		CardNumber: "5483874041820682",
		Exp:        "06/30",
		Name:       "ALICE SMITH",
	})
	require.NoError(t, err)

	working := &recordingExpiryNotifier{}
	broken := &recordingExpiryNotifier{err: errors.New("smtp down")}
	metrics := utils.NewMetrics()

	scheduler := NewSchedulerService(db, metrics, broken, working)
	scheduler.now = func() time.Time { return now }

	sent, err := scheduler.RemindExpiringCards(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"5483874041820682"}, working.cards)

	snapshot := metrics.GetMetricsSnapshot()
	assert.Equal(t, int64(1), snapshot["expiring_cards"])
	assert.Equal(t, int64(1), snapshot["failed_notifications"])

	// Ни один канал не доставил
	scheduler = NewSchedulerService(db, utils.NewMetrics(), broken)
	scheduler.now = func() time.Time { return now }
	sent, err = scheduler.RemindExpiringCards(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

func TestSchedulerScheduleExpiryReminders(t *testing.T) {
	scheduler := NewSchedulerService(newTestDB(t), utils.NewMetrics())

	_, err := scheduler.ScheduleExpiryReminders("0 0 10 1 * *")
	require.NoError(t, err)

	_, err = scheduler.ScheduleExpiryReminders("every day")
	assert.Error(t, err)

	scheduler.Start()
	scheduler.Stop()
}
