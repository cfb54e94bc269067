package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/gomail.v2"

	"wallet/config"
	"wallet/models"
	"wallet/utils"
)

// MailSender отправляет готовое письмо
type MailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailService предоставляет методы для отправки email
type EmailService struct {
	dialer MailSender
	from   string
}

// NewEmailService создает новый экземпляр EmailService
func NewEmailService(cfg *config.Config) *EmailService {
	dialer := gomail.NewDialer(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Username,
		cfg.SMTP.Password,
	)

	return NewEmailServiceWithSender(dialer, cfg.SMTP.From)
}

// NewEmailServiceWithSender создает EmailService с заданным отправителем
func NewEmailServiceWithSender(sender MailSender, from string) *EmailService {
	return &EmailService{
		dialer: sender,
		from:   from,
	}
}

// SendEmail отправляет email
func (s *EmailService) SendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("ошибка отправки email: %v", err)
	}

	return nil
}

// Notify отправляет письмо о платеже владельцу карты
func (s *EmailService) Notify(ctx context.Context, n Notification) error {
	if n.User.Email == "" {
		return nil
	}
	return s.SendTransactionNotification(n.User.Email, n.Card, n.Transaction.Type, n.Amount)
}

// SendTransactionNotification отправляет уведомление о транзакции
func (s *EmailService) SendTransactionNotification(to string, card models.Card, transactionType models.TransactionType, amount decimal.Decimal) error {
	operation := "Пополнение"
	if transactionType == models.TransactionTypePaymentMobile {
		operation = "Оплата мобильной связи"
	}

	subject := "Уведомление о транзакции"
	body := fmt.Sprintf(`
		<h2>Уведомление о транзакции</h2>
		<p>Карта: %s</p>
		<p>Тип операции: %s</p>
		<p>Сумма: %s %s</p>
		<p>Баланс: %s %s</p>
		<p>Дата: %s</p>
	`, utils.MaskCardNumber(card.CardNumber), operation,
		utils.FormatAmount(amount.Abs()), card.Currency.Symbol(),
		utils.FormatAmount(card.Balance), card.Currency.Symbol(),
		time.Now().Format("02.01.2006 15:04:05"))

	return s.SendEmail(to, subject, body)
}

// NotifyExpiry напоминает владельцу об истечении срока действия карты
func (s *EmailService) NotifyExpiry(ctx context.Context, user models.User, card models.Card) error {
	if user.Email == "" {
		return nil
	}

	subject := "Срок действия карты заканчивается"
	body := fmt.Sprintf(`
		<h2>Срок действия карты заканчивается</h2>
		<p>Карта: %s</p>
		<p>Действительна до: %s</p>
		<p>Не забудьте перевыпустить карту.</p>
	`, utils.MaskCardNumber(card.CardNumber), card.Exp)

	return s.SendEmail(user.Email, subject, body)
}
