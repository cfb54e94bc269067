package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"wallet/data"
	"wallet/middleware"
	"wallet/utils"
)

// newValidator создает валидатор с правилами для карт
func newValidator() *validator.Validate {
	validate := validator.New()

	// Суммы проверяются как числа: gt, gte и required работают с decimal
	validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
		d, ok := v.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})

	// Номер карты: длина, алгоритм Луна и известная платежная система
	validate.RegisterValidation("luhn", func(fl validator.FieldLevel) bool {
		return utils.CardNumberValid(fl.Field().String())
	})
	// Срок действия не раньше текущего месяца
	validate.RegisterValidation("cardexp", func(fl validator.FieldLevel) bool {
		return utils.ExpiryValid(fl.Field().String())
	})
	// Имя держателя из двух слов
	validate.RegisterValidation("cardname", func(fl validator.FieldLevel) bool {
		return utils.NameValid(strings.TrimSpace(fl.Field().String()))
	})

	return validate
}

// validationMessage переводит ошибки валидатора в читаемый текст
func validationMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	var errorMessages []string
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			errorMessages = append(errorMessages, "поле "+e.Field()+" обязательно")
		case "gt":
			errorMessages = append(errorMessages, "поле "+e.Field()+" должно быть больше "+e.Param())
		case "gte":
			errorMessages = append(errorMessages, "поле "+e.Field()+" должно быть больше или равно "+e.Param())
		case "oneof":
			errorMessages = append(errorMessages, "поле "+e.Field()+" должно быть одним из: "+e.Param())
		case "luhn":
			errorMessages = append(errorMessages, "поле "+e.Field()+" содержит неверный номер карты")
		case "cardexp":
			errorMessages = append(errorMessages, "поле "+e.Field()+" содержит истекший или неверный срок действия")
		case "cardname":
			errorMessages = append(errorMessages, "поле "+e.Field()+" должно содержать имя и фамилию")
		default:
			errorMessages = append(errorMessages, "поле "+e.Field()+" неверно ("+e.Tag()+")")
		}
	}
	return strings.Join(errorMessages, "; ")
}

// decodeAndValidate разбирает тело запроса и проверяет DTO
func decodeAndValidate(r *http.Request, validate *validator.Validate, dto interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dto); err != nil {
		return utils.NewValidationError("Invalid request body")
	}
	if err := validate.Struct(dto); err != nil {
		return utils.NewValidationError(validationMessage(err))
	}
	return nil
}

// writeJSON отправляет ответ в формате JSON
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError отправляет ошибку с ее HTTP-статусом.
// Текст внутренних ошибок клиенту не показывается.
func writeError(w http.ResponseWriter, err error) {
	status := utils.StatusOf(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
		message = "Internal server error"
	}
	http.Error(w, message, status)
}

// userContexts создает контексты пользователя из запроса
func userContexts(r *http.Request, db *gorm.DB) (*data.Contexts, error) {
	userID, _, err := middleware.GetUserFromContext(r)
	if err != nil {
		return nil, utils.NewApplicationError("Unauthorized", http.StatusUnauthorized)
	}
	return data.NewContexts(db, userID)
}
