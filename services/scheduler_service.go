package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"wallet/data"
	"wallet/models"
	"wallet/utils"
)

// ExpiryNotifier напоминает владельцу об истекающей карте
type ExpiryNotifier interface {
	NotifyExpiry(ctx context.Context, user models.User, card models.Card) error
}

// SchedulerService выполняет фоновые задачи по расписанию cron
type SchedulerService struct {
	cron      *cron.Cron
	db        *gorm.DB
	notifiers []ExpiryNotifier
	metrics   *utils.Metrics
	now       func() time.Time
}

// NewSchedulerService создает новый экземпляр SchedulerService.
// Расписание задается в формате cron с секундами.
func NewSchedulerService(db *gorm.DB, metrics *utils.Metrics, notifiers ...ExpiryNotifier) *SchedulerService {
	if metrics == nil {
		metrics = utils.GetMetrics()
	}
	return &SchedulerService{
		cron:      cron.New(cron.WithSeconds()),
		db:        db,
		notifiers: notifiers,
		metrics:   metrics,
		now:       time.Now,
	}
}

// ScheduleExpiryReminders регистрирует задачу напоминаний об истекающих картах
func (s *SchedulerService) ScheduleExpiryReminders(spec string) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		start := time.Now()
		sent, err := s.RemindExpiringCards(ctx)
		utils.LogOperation("expiry reminders", start, err)
		if err == nil {
			log.Info().Int("sent", sent).Msg("expiry reminders processed")
		}
	})
	if err != nil {
		return 0, fmt.Errorf("неверное расписание %q: %w", spec, err)
	}
	return id, nil
}

// RemindExpiringCards отправляет напоминания по картам, истекающим в текущем месяце.
// Возвращает число карт, по которым хотя бы один канал доставил напоминание.
func (s *SchedulerService) RemindExpiringCards(ctx context.Context) (int, error) {
	owners, err := data.FindExpiringCards(ctx, s.db, s.now())
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, o := range owners {
		delivered := false
		for _, n := range s.notifiers {
			if err := n.NotifyExpiry(ctx, o.User, o.Card); err != nil {
				s.metrics.RecordNotificationFailure(err)
				log.Warn().Err(err).Str("card_id", o.Card.ID.String()).Msg("expiry reminder failed")
				continue
			}
			delivered = true
		}
		s.metrics.RecordCardOperation("expire", nil)
		if delivered {
			sent++
		}
	}
	return sent, nil
}

// Start запускает планировщик
func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop останавливает планировщик и ждет завершения запущенных задач
func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
