package controllers

import (
	"net/http"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"wallet/middleware"
	"wallet/services"
	"wallet/utils"
)

type AuthController struct {
	userService *services.UserService
	validate    *validator.Validate
	jwtKey      []byte
	expiresIn   time.Duration
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type SignInResponse struct {
	Token string `json:"token"`
}

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,password"`
}

type Token struct {
	Token  string    `json:"token"`
	Email  string    `json:"email"`
	UserID uuid.UUID `json:"userId"`
}

type AuthResponse struct {
	Token Token                 `json:"token"`
	User  services.UserResponse `json:"user"`
}

var (
	hasNumber  = regexp.MustCompile(`[0-9]`)
	hasUpper   = regexp.MustCompile(`[A-Z]`)
	hasLower   = regexp.MustCompile(`[a-z]`)
	hasSpecial = regexp.MustCompile(`[!@#$%^&*]`)
)

// NewAuthController создает контроллер аутентификации.
// expiresIn задает время жизни токена в часах.
func NewAuthController(userService *services.UserService, jwtKey string, expiresIn int) *AuthController {
	validate := newValidator()

	// Регистрация кастомной валидации для пароля
	validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		password := fl.Field().String()
		return hasNumber.MatchString(password) &&
			hasUpper.MatchString(password) &&
			hasLower.MatchString(password) &&
			hasSpecial.MatchString(password)
	})

	if expiresIn <= 0 {
		expiresIn = 24
	}

	return &AuthController{
		userService: userService,
		validate:    validate,
		jwtKey:      []byte(jwtKey),
		expiresIn:   time.Duration(expiresIn) * time.Hour,
	}
}

// SignIn обрабатывает вход пользователя
func (c *AuthController) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := decodeAndValidate(r, c.validate, &req); err != nil {
		writeError(w, err)
		return
	}

	// Проверяем email и пароль
	user, err := c.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if utils.StatusOf(err) < http.StatusInternalServerError {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		writeError(w, err)
		return
	}

	// Создаем JWT токен
	tokenString, err := middleware.GenerateToken(c.jwtKey, user.ID, user.Email, c.expiresIn)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, SignInResponse{Token: tokenString})
}

// SignUp регистрирует пользователя и сразу выдает токен
func (c *AuthController) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := decodeAndValidate(r, c.validate, &req); err != nil {
		writeError(w, err)
		return
	}

	// Создаем пользователя через UserService
	user, err := c.userService.CreateUser(r.Context(), services.CreateUserRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	// Генерация JWT токена
	tokenString, err := middleware.GenerateToken(c.jwtKey, user.ID, user.Email, c.expiresIn)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Token: Token{
			Token:  tokenString,
			Email:  user.Email,
			UserID: user.ID,
		},
		User: services.UserResponse{
			ID:    user.ID,
			Email: user.Email,
		},
	})
}
