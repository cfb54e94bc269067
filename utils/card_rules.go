package utils

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// CardType платежная система карты
type CardType string

const (
	CardTypeVisa       CardType = "visa"
	CardTypeMastercard CardType = "mastercard"
	CardTypeMaestro    CardType = "maestro"
	CardTypeMir        CardType = "mir"
	CardTypeAmex       CardType = "amex"
	CardTypeUnknown    CardType = "unknown"
)

const (
	minCardNumberLength = 13
	maxCardNumberLength = 19
)

// cardRange диапазон префиксов эмитента и допустимые длины номера
type cardRange struct {
	cardType CardType
	from, to int // префикс включительно, одинаковое число цифр
	lengths  []int
}

// Порядок важен: mir (2200-2204) проверяется раньше mastercard (2221-2720),
// maestro (50, 56-69) после mastercard (51-55).
var cardRanges = []cardRange{
	{CardTypeVisa, 4, 4, []int{13, 16, 19}},
	{CardTypeAmex, 34, 34, []int{15}},
	{CardTypeAmex, 37, 37, []int{15}},
	{CardTypeMir, 2200, 2204, []int{16}},
	{CardTypeMastercard, 51, 55, []int{16}},
	{CardTypeMastercard, 2221, 2720, []int{16}},
	{CardTypeMaestro, 50, 50, []int{12, 13, 14, 15, 16, 17, 18, 19}},
	{CardTypeMaestro, 56, 69, []int{12, 13, 14, 15, 16, 17, 18, 19}},
}

var expPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/?([0-9]{4}|[0-9]{2})$`)

// isDigits проверяет, что строка непустая и состоит только из цифр
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// LuhnValid проверяет номер карты по алгоритму Луна.
// Для пустой строки и строк с нецифровыми символами возвращает false.
func LuhnValid(number string) bool {
	if !isDigits(number) {
		return false
	}

	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		digit := int(number[i] - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	return sum%10 == 0
}

// ClassifyType определяет платежную систему по префиксу и длине номера
func ClassifyType(number string) CardType {
	if !isDigits(number) {
		return CardTypeUnknown
	}

	for _, r := range cardRanges {
		width := len(strconv.Itoa(r.from))
		if len(number) < width {
			continue
		}
		prefix, err := strconv.Atoi(number[:width])
		if err != nil || prefix < r.from || prefix > r.to {
			continue
		}
		for _, l := range r.lengths {
			if len(number) == l {
				return r.cardType
			}
		}
	}
	return CardTypeUnknown
}

// CardNumberValid проверяет длину, контрольную сумму и известность платежной системы
func CardNumberValid(number string) bool {
	if len(number) < minCardNumberLength || len(number) > maxCardNumberLength {
		return false
	}
	return LuhnValid(number) && ClassifyType(number) != CardTypeUnknown
}

// ParseExpiry разбирает срок действия MM/YY или MM/YYYY.
// Двузначный год трактуется как 2000+YY.
func ParseExpiry(exp string) (month, year int, ok bool) {
	m := expPattern.FindStringSubmatch(exp)
	if m == nil {
		return 0, 0, false
	}
	month, _ = strconv.Atoi(m[1])
	year, _ = strconv.Atoi(m[2])
	if len(m[2]) == 2 {
		year += 2000
	}
	return month, year, true
}

// ExpiryValidAt проверяет, что карта не истекла относительно момента now.
// Совпадение месяца допустимо.
func ExpiryValidAt(exp string, now time.Time) bool {
	month, year, ok := ParseExpiry(exp)
	if !ok {
		return false
	}
	currentYear, currentMonth := now.Year(), int(now.Month())
	return year > currentYear || (year == currentYear && month >= currentMonth)
}

// ExpiryValid проверяет срок действия относительно текущей даты
func ExpiryValid(exp string) bool {
	return ExpiryValidAt(exp, time.Now())
}

// NameValid проверяет имя держателя: ровно два слова через пробел, каждое длиннее двух символов
func NameValid(name string) bool {
	parts := strings.Split(name, " ")
	if len(parts) != 2 {
		return false
	}
	for _, p := range parts {
		if utf8.RuneCountInString(p) <= 2 {
			return false
		}
	}
	return true
}

// LastDigits возвращает последние n цифр номера
func LastDigits(number string, n int) string {
	if len(number) <= n {
		return number
	}
	return number[len(number)-n:]
}

// MaskCardNumber маскирует номер карты, оставляя последние 4 цифры
func MaskCardNumber(number string) string {
	return "**** **** **** " + LastDigits(number, 4)
}
