package controllers

import (
	"net/http"

	"gorm.io/gorm"

	"wallet/services"
)

// UserController обрабатывает запросы профиля пользователя
type UserController struct {
	db          *gorm.DB
	userService *services.UserService
}

// NewUserController создает новый экземпляр UserController
func NewUserController(db *gorm.DB, userService *services.UserService) *UserController {
	return &UserController{db: db, userService: userService}
}

// TelegramKey выдает ключ для команды /getupdates в боте
func (c *UserController) TelegramKey(w http.ResponseWriter, r *http.Request) {
	contexts, err := userContexts(r, c.db)
	if err != nil {
		writeError(w, err)
		return
	}

	key, err := c.userService.IssueTelegramKey(r.Context(), contexts.Users)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"telegramKey": key})
}
