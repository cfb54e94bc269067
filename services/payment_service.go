package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"wallet/data"
	"wallet/models"
	"wallet/utils"
)

// CardStore операции с картами, нужные для платежа
type CardStore interface {
	GetByID(ctx context.Context, id string) (*models.Card, error)
	AdjustBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (*models.Card, error)
}

// UserStore возвращает владельца контекста
type UserStore interface {
	Current(ctx context.Context) (*models.User, error)
}

// TransactionStore операции с транзакциями, нужные для платежа
type TransactionStore interface {
	Add(ctx context.Context, t *models.Transaction) (*models.Transaction, error)
	SetInvalid(ctx context.Context, id string, reason string) bool
}

// PaymentContexts контексты пользователя, в рамках которых проводится платеж
type PaymentContexts struct {
	Cards        CardStore
	Users        UserStore
	Transactions TransactionStore
}

// ContextsFor собирает PaymentContexts из набора контекстов пользователя
func ContextsFor(c *data.Contexts) PaymentContexts {
	return PaymentContexts{
		Cards:        c.Cards,
		Users:        c.Users,
		Transactions: c.Transactions,
	}
}

// PaymentRequest запрос на изменение баланса карты.
// Sum положительна для зачисления и отрицательна для списания.
type PaymentRequest struct {
	CardID string
	Type   models.TransactionType
	Data   string
	Sum    decimal.Decimal
	Time   time.Time
}

// PaymentResult созданная транзакция и карта после изменения баланса
type PaymentResult struct {
	Transaction *models.Transaction `json:"transaction"`
	Card        *models.Card        `json:"card"`
}

// compensationTimeout ограничивает пометку транзакции после сбоя
const compensationTimeout = 5 * time.Second

// PaymentService проводит платежи по картам
type PaymentService struct {
	notifier Notifier
	metrics  *utils.Metrics
}

// NewPaymentService создает новый экземпляр PaymentService
func NewPaymentService(notifier Notifier, metrics *utils.Metrics) *PaymentService {
	if metrics == nil {
		metrics = utils.GetMetrics()
	}
	return &PaymentService{
		notifier: notifier,
		metrics:  metrics,
	}
}

// Pay проводит платеж: записывает транзакцию, затем меняет баланс карты.
// Если баланс изменить не удалось, транзакция помечается некорректной.
func (s *PaymentService) Pay(ctx context.Context, pc PaymentContexts, req PaymentRequest) (*PaymentResult, error) {
	start := time.Now()

	// Ищем карту владельца
	card, err := pc.Cards.GetByID(ctx, req.CardID)
	if err != nil {
		return nil, err
	}

	// Проверяем тип и сумму
	if !req.Type.Valid() {
		return nil, utils.NewAuthorizationError(fmt.Sprintf("unknown transaction type %q", req.Type))
	}
	if req.Sum.IsZero() {
		return nil, utils.NewValidationError("sum must be a non-zero number")
	}
	if !utils.HasMoneyScale(req.Sum) {
		return nil, utils.NewValidationError("sum must have at most 2 decimal places")
	}

	// Списание не должно уводить баланс в минус
	if req.Sum.IsNegative() && card.Balance.Add(req.Sum).IsNegative() {
		s.metrics.RecordPayment(data.ErrInsufficientFunds, false)
		return nil, data.ErrInsufficientFunds
	}

	// Записываем транзакцию
	tx, err := pc.Transactions.Add(ctx, &models.Transaction{
		CardID: card.ID,
		Type:   req.Type,
		Data:   req.Data,
		Sum:    req.Sum,
		Time:   req.Time,
	})
	if err != nil {
		s.metrics.RecordPayment(err, false)
		return nil, err
	}

	// Меняем баланс карты
	updated, err := pc.Cards.AdjustBalance(ctx, card.ID, req.Sum)
	if err != nil {
		s.metrics.RecordPayment(err, true)
		s.compensate(ctx, pc, tx, err)
		return nil, err
	}

	s.metrics.RecordPayment(nil, false)
	utils.LogOperation("payment", start, nil)

	s.notify(ctx, pc, Notification{
		Card:        *updated,
		Transaction: *tx,
		Destination: req.Data,
		Amount:      req.Sum,
		Type:        req.Type,
	})

	return &PaymentResult{Transaction: tx, Card: updated}, nil
}

// compensate помечает транзакцию некорректной после неудачного изменения баланса.
// Запрос к этому моменту может быть отменен, поэтому пометка идет в отдельном контексте.
func (s *PaymentService) compensate(ctx context.Context, pc PaymentContexts, tx *models.Transaction, cause error) {
	compensateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	event := log.Error().Err(cause).
		Str("card_id", tx.CardID.String()).
		Str("transaction_id", tx.ID.String())
	if !pc.Transactions.SetInvalid(compensateCtx, tx.ID.String(), cause.Error()) {
		event.Msg("balance update failed, transaction could not be marked invalid")
		return
	}
	tx.InvalidInfo = models.InvalidInfo{IsInvalid: true, Error: cause.Error()}
	event.Msg("balance update failed, transaction marked invalid")
}

// notify отправляет уведомление; ошибки только логируются
func (s *PaymentService) notify(ctx context.Context, pc PaymentContexts, n Notification) {
	if s.notifier == nil {
		return
	}

	user, err := pc.Users.Current(ctx)
	if err != nil {
		s.metrics.RecordNotificationFailure(err)
		log.Warn().Err(err).Str("card_id", n.Card.ID.String()).Msg("notification skipped: owner not resolved")
		return
	}
	n.User = *user

	if err := s.notifier.Notify(ctx, n); err != nil {
		s.metrics.RecordNotificationFailure(err)
		log.Warn().Err(err).
			Str("card_id", n.Card.ID.String()).
			Str("transaction_id", n.Transaction.ID.String()).
			Msg("notification failed")
	}
}

// PayMobile списывает amount с карты в оплату телефона phone
func (s *PaymentService) PayMobile(ctx context.Context, pc PaymentContexts, cardID, phone string, amount decimal.Decimal) (*PaymentResult, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, utils.NewValidationError("phone is required")
	}
	if !amount.IsPositive() {
		return nil, utils.NewValidationError("amount must be greater than 0")
	}
	return s.Pay(ctx, pc, PaymentRequest{
		CardID: cardID,
		Type:   models.TransactionTypePaymentMobile,
		Data:   phone,
		Sum:    amount.Neg(),
	})
}

// Fill пополняет карту на amount
func (s *PaymentService) Fill(ctx context.Context, pc PaymentContexts, cardID, source string, amount decimal.Decimal) (*PaymentResult, error) {
	if !amount.IsPositive() {
		return nil, utils.NewValidationError("amount must be greater than 0")
	}
	if strings.TrimSpace(source) == "" {
		source = "top-up"
	}
	return s.Pay(ctx, pc, PaymentRequest{
		CardID: cardID,
		Type:   models.TransactionTypePrepaidCard,
		Data:   source,
		Sum:    amount,
	})
}
