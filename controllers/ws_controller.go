package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"wallet/middleware"
	"wallet/services"
)

// WSController подключает клиентов к рассылке событий о платежах
type WSController struct {
	ws     *services.WebSocketService
	jwtKey []byte
}

// NewWSController создает новый экземпляр WSController
func NewWSController(ws *services.WebSocketService, jwtKey string) *WSController {
	return &WSController{ws: ws, jwtKey: []byte(jwtKey)}
}

// Connect проверяет токен из параметра JWT и открывает WebSocket
func (c *WSController) Connect(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("JWT")
	if token == "" {
		token = r.Header.Get("Authorization")
	}
	if token == "" {
		http.Error(w, "JWT is required", http.StatusUnauthorized)
		return
	}

	claims, err := middleware.ParseToken(c.jwtKey, token)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	if err := c.ws.Serve(w, r, uuid.MustParse(claims.UserID)); err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
	}
}
