package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"wallet/models"
	"wallet/services"
	"wallet/utils"
)

const cardButtonUnique = "card"

var (
	commandsMenu   = &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	btnCardButtons = commandsMenu.Text("💳 Cards by buttons")
	btnCardsList   = commandsMenu.Text("💳 Inline cards list")
)

func init() {
	commandsMenu.Reply(commandsMenu.Row(btnCardButtons, btnCardsList))
}

// Bot Telegram-бот кошелька
type Bot struct {
	bot        *tele.Bot
	dispatcher *Dispatcher
}

// New создает бота и регистрирует команды
func New(token string, dispatcher *Dispatcher) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	teleBot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("bot handler failed")
			if c != nil {
				c.Send(FailedText)
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{bot: teleBot, dispatcher: dispatcher}
	b.bot.Use(LoggingMiddleware())
	b.registerHandlers()
	return b, nil
}

// registerHandlers регистрирует команды и обработчики кнопок
func (b *Bot) registerHandlers() {
	// Доступны без привязки чата
	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle("/getupdates", b.handleLink)

	// Требуют привязанного пользователя
	linked := b.bot.Group()
	linked.Use(RequireUser(b.dispatcher))
	linked.Handle("/commands", b.handleCommands)
	linked.Handle("/allcards", b.handleAllCards)
	linked.Handle("/cards", b.handleCardButtons)
	linked.Handle("/last", b.handleLast)
	linked.Handle("/mobile", b.handleMobile)
	linked.Handle(&btnCardButtons, b.handleCardButtons)
	linked.Handle(&btnCardsList, b.handleAllCards)
	linked.Handle(&tele.Btn{Unique: cardButtonUnique}, b.handleCardCallback)
}

func (b *Bot) handleStart(c tele.Context) error {
	return c.Send(StartText)
}

func (b *Bot) handleLink(c tele.Context) error {
	reply, err := b.dispatcher.Link(context.Background(), c.Chat().ID, c.Message().Payload)
	if err != nil {
		return err
	}
	return c.Send(reply)
}

func (b *Bot) handleCommands(c tele.Context) error {
	return c.Send("Available commands", commandsMenu)
}

func (b *Bot) handleAllCards(c tele.Context) error {
	reply, err := b.dispatcher.AllCards(context.Background(), currentUser(c))
	if err != nil {
		return err
	}
	return c.Send(reply)
}

// handleCardButtons показывает карты inline-кнопками по последним 4 цифрам
func (b *Bot) handleCardButtons(c tele.Context) error {
	cards, err := b.dispatcher.Cards(context.Background(), currentUser(c))
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		return c.Send(NoCardsText)
	}

	markup := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(cards))
	for _, card := range cards {
		rows = append(rows, markup.Row(markup.Data(CardButtonLabel(card), cardButtonUnique, utils.LastDigits(card.CardNumber, 4))))
	}
	markup.Inline(rows...)

	return c.Send(SelectCardText, markup, tele.ModeHTML)
}

// handleCardCallback нажатие inline-кнопки работает как /last
func (b *Bot) handleCardCallback(c tele.Context) error {
	reply, err := b.dispatcher.Last(context.Background(), currentUser(c), c.Callback().Data)
	if err != nil {
		return err
	}
	if err := c.Respond(); err != nil {
		log.Warn().Err(err).Msg("callback answer failed")
	}
	return c.Send(reply)
}

func (b *Bot) handleLast(c tele.Context) error {
	reply, err := b.dispatcher.Last(context.Background(), currentUser(c), c.Message().Payload)
	if err != nil {
		return err
	}
	return c.Send(reply)
}

func (b *Bot) handleMobile(c tele.Context) error {
	reply, err := b.dispatcher.Mobile(context.Background(), currentUser(c), c.Args())
	if err != nil {
		return err
	}
	return c.Send(reply)
}

// Notify отправляет уведомление о платеже в привязанный чат
func (b *Bot) Notify(ctx context.Context, n services.Notification) error {
	if !n.User.HasChat() {
		return nil
	}
	_, err := b.bot.Send(tele.ChatID(*n.User.ChatID), n.Text())
	return err
}

// NotifyExpiry напоминает об истечении срока действия карты
func (b *Bot) NotifyExpiry(ctx context.Context, user models.User, card models.Card) error {
	if !user.HasChat() {
		return nil
	}
	text := fmt.Sprintf("⏳ Срок действия карты %s заканчивается %s", utils.MaskCardNumber(card.CardNumber), card.Exp)
	_, err := b.bot.Send(tele.ChatID(*user.ChatID), text)
	return err
}

// Start запускает long polling; блокирует до Stop
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop останавливает бота
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
