package bot

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"wallet/data"
	"wallet/models"
	"wallet/services"
	"wallet/utils"
)

// lastTransactionsLimit сколько последних транзакций показывает /last
const lastTransactionsLimit = 10

const (
	StartText = "Hello, sweetheart!\n" +
		"Let's do some magic with your 💳\n" +
		"To start receiving notifications please type:\n" +
		"/getupdates <Telegram Secret Key>"

	LinkedText = "✅ Cool, you are signed in!\n" +
		"Type:\n" +
		"/commands — to see available UI commands\n" +
		"/cards — to see all available cards\n" +
		"/allcards — to see all available cards in inline mode\n" +
		"/mobile <Last 4 digits of your 💳 number> <Phone Number> <Amount> — pay for mobile phone\n" +
		"/last <Last 4 digits of your 💳 number> — to get list of transactions"

	InvalidKeyText     = "❌ Sorry, this is not valid secret Telegram key.\nMake sure you inserted correct key."
	NotLinkedText      = "🔒 This chat is not linked yet. Type /getupdates <Telegram Secret Key>"
	NoCardsText        = "🙄 There are no such card assigned for you."
	NoTransactionsText = "🙄 There are no transactions with this card."
	InvalidLast4Text   = "🙄 This is invalid number, please enter last 4 digits of your card"
	MobileUsageText    = "🙄 Usage: /mobile <Last 4 digits of your 💳 number> <Phone Number> <Amount>"
	SelectCardText     = "<b>Select card to view transactions</b>"
	FailedText         = "🙄 Something bad happened with request"
)

// currencyLabel подпись валюты с флагом
func currencyLabel(c models.Currency) string {
	switch c {
	case models.CurrencyUSD:
		return "🇺🇸 $"
	case models.CurrencyEUR:
		return "🇪🇺 €"
	default:
		return "🇷🇺 р."
	}
}

// Dispatcher выполняет команды бота над теми же контекстами, что и HTTP API.
// Методы возвращают текст ответа и не зависят от Telegram.
type Dispatcher struct {
	db       *gorm.DB
	payments *services.PaymentService
}

// NewDispatcher создает новый экземпляр Dispatcher
func NewDispatcher(db *gorm.DB, payments *services.PaymentService) *Dispatcher {
	return &Dispatcher{db: db, payments: payments}
}

// ResolveUser ищет пользователя, привязанного к чату
func (d *Dispatcher) ResolveUser(ctx context.Context, chatID int64) (*models.User, error) {
	return data.NewDirectory(d.db).GetByChatID(ctx, chatID)
}

// Link привязывает чат к пользователю по одноразовому ключу
func (d *Dispatcher) Link(ctx context.Context, chatID int64, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return InvalidKeyText, nil
	}

	if _, err := data.NewDirectory(d.db).LinkChat(ctx, key, chatID); err != nil {
		if utils.StatusOf(err) < http.StatusInternalServerError {
			return InvalidKeyText, nil
		}
		return "", err
	}
	return LinkedText, nil
}

// Cards возвращает карты пользователя для inline-кнопок
func (d *Dispatcher) Cards(ctx context.Context, user *models.User) ([]models.Card, error) {
	contexts, err := data.NewContexts(d.db, user.ID.String())
	if err != nil {
		return nil, err
	}
	return contexts.Cards.GetAll(ctx, nil)
}

// CardButtonLabel подпись inline-кнопки карты
func CardButtonLabel(card models.Card) string {
	return fmt.Sprintf("💳 %s — %s", utils.LastDigits(card.CardNumber, 4), currencyLabel(card.Currency))
}

// AllCards возвращает список карт пользователя текстом
func (d *Dispatcher) AllCards(ctx context.Context, user *models.User) (string, error) {
	cards, err := d.Cards(ctx, user)
	if err != nil {
		return "", err
	}
	if len(cards) == 0 {
		return NoCardsText, nil
	}

	var b strings.Builder
	for i, card := range cards {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "💳 %s\nMoney available: %s %s\nCard will expire %s\n__________________________\n",
			utils.MaskCardNumber(card.CardNumber), utils.FormatAmount(card.Balance), currencyLabel(card.Currency), card.Exp)
	}
	return b.String(), nil
}

// Last возвращает последние транзакции карты по последним 4 цифрам номера
func (d *Dispatcher) Last(ctx context.Context, user *models.User, last4 string) (string, error) {
	contexts, err := data.NewContexts(d.db, user.ID.String())
	if err != nil {
		return "", err
	}

	card, err := contexts.Cards.GetByNumberSuffix(ctx, strings.TrimSpace(last4))
	if err != nil {
		return replyFor(err, map[int]string{
			http.StatusBadRequest: InvalidLast4Text,
			http.StatusNotFound:   NoCardsText,
		})
	}

	transactions, err := contexts.Transactions.GetByCardID(ctx, card.ID.String())
	if err != nil {
		return "", err
	}
	if len(transactions) == 0 {
		return NoTransactionsText, nil
	}
	if len(transactions) > lastTransactionsLimit {
		transactions = transactions[len(transactions)-lastTransactionsLimit:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here is some of your latest transactions from\n💳 %s 💳\n\nTransactions:\n", utils.MaskCardNumber(card.CardNumber))
	for _, t := range transactions {
		fmt.Fprintf(&b, "Sum: %s %s | Type: %s | Time: %s", utils.FormatAmount(t.Sum), currencyLabel(card.Currency), t.Type, t.Time.Format("15:04 02/01/06"))
		if t.InvalidInfo.IsInvalid {
			b.WriteString(" | ⚠️ invalid")
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// Mobile оплачивает телефон: аргументы <last4> <phone> <amount>
func (d *Dispatcher) Mobile(ctx context.Context, user *models.User, args []string) (string, error) {
	if len(args) != 3 {
		return MobileUsageText, nil
	}
	amount, err := utils.ParseAmount(args[2])
	if err != nil || !amount.IsPositive() || !utils.HasMoneyScale(amount) {
		return MobileUsageText, nil
	}

	contexts, err := data.NewContexts(d.db, user.ID.String())
	if err != nil {
		return "", err
	}

	card, err := contexts.Cards.GetByNumberSuffix(ctx, args[0])
	if err != nil {
		return replyFor(err, map[int]string{
			http.StatusBadRequest: InvalidLast4Text,
			http.StatusNotFound:   NoCardsText,
		})
	}

	result, err := d.payments.PayMobile(ctx, services.ContextsFor(contexts), card.ID.String(), args[1], amount)
	if err != nil {
		if utils.StatusOf(err) < http.StatusInternalServerError {
			return "🙄 Payment declined: " + err.Error(), nil
		}
		return "", err
	}

	return fmt.Sprintf("С вашей 💳 %s было переведено %s%s на 📱 %s\nОстаток: %s%s",
		utils.MaskCardNumber(result.Card.CardNumber), utils.FormatAmount(amount), result.Card.Currency.Symbol(), args[1],
		utils.FormatAmount(result.Card.Balance), result.Card.Currency.Symbol()), nil
}

// replyFor выбирает текст ответа по статусу прикладной ошибки.
// Внутренние ошибки возвращаются вызывающему.
func replyFor(err error, texts map[int]string) (string, error) {
	if text, ok := texts[utils.StatusOf(err)]; ok {
		return text, nil
	}
	return "", err
}
