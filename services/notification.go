package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"wallet/models"
	"wallet/utils"
)

// Notification данные уведомления об успешном платеже
type Notification struct {
	User        models.User
	Card        models.Card
	Transaction models.Transaction
	Destination string
	Amount      decimal.Decimal
	Type        models.TransactionType
}

// Text возвращает текст уведомления для владельца карты
func (n Notification) Text() string {
	last4 := utils.LastDigits(n.Card.CardNumber, 4)
	amount := utils.FormatAmount(n.Amount.Abs())
	if n.Type == models.TransactionTypePaymentMobile {
		return fmt.Sprintf("С вашей 💳 **** **** **** %s было переведено %s%s на 📱 %s",
			last4, amount, n.Card.Currency.Symbol(), n.Destination)
	}
	return fmt.Sprintf("На вашу 💳 **** **** **** %s поступило %s%s",
		last4, amount, n.Card.Currency.Symbol())
}

// Notifier отправляет уведомления о платежах
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc адаптер функции к Notifier
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// MultiNotifier рассылает уведомление по всем каналам.
// Ошибка одного канала не мешает остальным.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Add подключает еще один канал; вызывается до начала обработки запросов
func (m *MultiNotifier) Add(n Notifier) {
	*m = append(*m, n)
}
