package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// GenerateTelegramKey генерирует одноразовый ключ привязки Telegram-чата.
// Ключ состоит из hex-символов, чтобы его было удобно набирать в чате.
func GenerateTelegramKey() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate telegram key: %v", err)
	}
	return hex.EncodeToString(b), nil
}

// HashPassword создает bcrypt-хеш пароля
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %v", err)
	}
	return string(hashed), nil
}

// VerifyPassword проверяет пароль
func VerifyPassword(password, hashedPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}
