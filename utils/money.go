package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale число знаков после запятой у сумм и балансов
const MoneyScale = 2

// HasMoneyScale проверяет, что у суммы не больше двух знаков после запятой
func HasMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyScale))
}

// ParseAmount разбирает сумму из текста; допускается запятая вместо точки
func ParseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.Replace(strings.TrimSpace(s), ",", ".", 1))
}

// FormatAmount форматирует сумму с двумя знаками после запятой
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(MoneyScale)
}
