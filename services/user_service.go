package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"wallet/data"
	"wallet/models"
	"wallet/utils"
)

type UserService struct {
	db *gorm.DB
}

type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8"`
}

type UserResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// CreateUser создает нового пользователя
func (h *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	email := strings.TrimSpace(req.Email)

	// Проверяем, существует ли пользователь с таким email
	var existingUser models.User
	if err := h.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).Take(&existingUser).Error; err == nil {
		return nil, utils.NewValidationError("user with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Хешируем пароль
	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	// Создаем нового пользователя
	user := &models.User{
		Email:    email,
		Password: hashedPassword,
	}

	if err := h.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, utils.NewValidationError("user with this email already exists")
		}
		return nil, err
	}

	return user, nil
}

// FindByEmail ищет пользователя по email (игнорируя регистр и пробелы)
func (h *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := h.db.WithContext(ctx).Where("LOWER(TRIM(email)) = LOWER(TRIM(?))", email).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("user not found")
		}
		return nil, err
	}
	return &user, nil
}

// Authenticate проверяет email и пароль
func (h *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := h.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !utils.VerifyPassword(password, user.Password) {
		return nil, utils.NewApplicationError("invalid credentials", 401)
	}
	return user, nil
}

// IssueTelegramKey выдает новый одноразовый ключ привязки Telegram-чата.
// Предыдущий ключ пользователя перестает действовать.
func (h *UserService) IssueTelegramKey(ctx context.Context, users *data.UsersContext) (string, error) {
	user, err := users.Current(ctx)
	if err != nil {
		return "", err
	}

	key, err := utils.GenerateTelegramKey()
	if err != nil {
		return "", err
	}

	if err := users.SetTelegramKey(ctx, user.ID, key); err != nil {
		return "", err
	}
	return key, nil
}
