package controllers

import (
	"net/http"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"wallet/middleware"
	"wallet/services"
	"wallet/utils"
)

// RouterDeps зависимости HTTP API
type RouterDeps struct {
	DB             *gorm.DB
	JWTSecret      string
	JWTExpiresIn   int
	Payments       *services.PaymentService
	Users          *services.UserService
	WebSocket      *services.WebSocketService
	Metrics        *utils.Metrics
	Limiter        *utils.RateLimiter
	TrustedProxies middleware.TrustedProxies // пустой список не доверяет никому
}

// NewRouter собирает маршруты HTTP API
func NewRouter(deps RouterDeps) http.Handler {
	if deps.Metrics == nil {
		deps.Metrics = utils.GetMetrics()
	}
	if deps.Users == nil {
		deps.Users = services.NewUserService(deps.DB)
	}
	if deps.WebSocket == nil {
		deps.WebSocket = services.NewWebSocketService()
	}
	if deps.Payments == nil {
		deps.Payments = services.NewPaymentService(deps.WebSocket, deps.Metrics)
	}

	router := mux.NewRouter()

	// Инициализируем контроллеры
	authController := NewAuthController(deps.Users, deps.JWTSecret, deps.JWTExpiresIn)
	cardController := NewCardController(deps.DB, deps.Metrics)
	transactionController := NewTransactionController(deps.DB, deps.Payments)
	userController := NewUserController(deps.DB, deps.Users)
	wsController := NewWSController(deps.WebSocket, deps.JWTSecret)

	// Публичные маршруты для аутентификации
	router.HandleFunc("/auth/signUp", authController.SignUp).Methods("POST")
	router.HandleFunc("/auth/signIn", authController.SignIn).Methods("POST")

	// WebSocket проверяет токен из параметра JWT
	router.HandleFunc("/ws", wsController.Connect).Methods("GET")

	// Защищенные маршруты
	auth := middleware.AuthMiddleware([]byte(deps.JWTSecret))
	protected := func(path string, handler http.HandlerFunc, method string) {
		router.Handle(path, auth(handler)).Methods(method)
	}

	// Маршруты для работы с картами
	protected("/cards", cardController.GetCards, "GET")
	protected("/cards", cardController.CreateCard, "POST")
	protected("/cards/{id}", cardController.GetCard, "GET")
	protected("/cards/{id}", cardController.UpdateCard, "PATCH")
	protected("/cards/{id}", cardController.DeleteCard, "DELETE")

	// Маршруты для работы с транзакциями
	protected("/cards/{id}/transactions", transactionController.GetTransactions, "GET")
	protected("/cards/{id}/transactions", transactionController.CreateTransaction, "POST")
	protected("/cards/{id}/pay", transactionController.PayMobile, "POST")
	protected("/cards/{id}/fill", transactionController.Fill, "POST")
	protected("/cards/{id}/file-transactions", transactionController.ExportTransactions, "GET")

	// Профиль пользователя
	protected("/user/telegram-key", userController.TelegramKey, "GET")

	// Общие middleware оборачивают весь роутер, чтобы учитывать и ответы 404/405
	var handler http.Handler = router
	if deps.Limiter != nil {
		handler = middleware.RateLimitMiddleware(deps.Limiter, deps.TrustedProxies)(handler)
	}
	handler = middleware.CORSMiddleware(handler)
	handler = middleware.LoggingMiddleware(deps.Metrics)(handler)
	return middleware.RecoveryMiddleware(handler)
}
