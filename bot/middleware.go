package bot

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"wallet/models"
	"wallet/utils"
)

const userKey = "user"

// LoggingMiddleware логирует обработку каждого обновления
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()
			err := next(c)

			event := log.Debug()
			if err != nil {
				event = log.Error().Err(err)
			}
			if chat := c.Chat(); chat != nil {
				event = event.Int64("chat_id", chat.ID)
			}
			event.Str("text", c.Text()).Dur("duration", time.Since(start)).Msg("bot update")
			return err
		}
	}
}

// RequireUser находит пользователя по чату один раз на обновление.
// Непривязанные чаты получают подсказку про /getupdates.
func RequireUser(d *Dispatcher) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat == nil {
				return nil
			}

			user, err := d.ResolveUser(context.Background(), chat.ID)
			if err != nil {
				if utils.IsNotFound(err) {
					return c.Send(NotLinkedText)
				}
				return err
			}

			c.Set(userKey, user)
			return next(c)
		}
	}
}

// currentUser возвращает пользователя, найденного RequireUser
func currentUser(c tele.Context) *models.User {
	user, _ := c.Get(userKey).(*models.User)
	return user
}
