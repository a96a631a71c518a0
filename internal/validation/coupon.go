// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"
	"unicode"
)

const maxCouponCodeLength = 32

// NormalizeCouponCode приводит код купона к виду, в котором его хранит бэкенд.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidCouponCode проверяет синтаксис кода купона: группы латинских букв и цифр,
// разделённые одиночным дефисом, например ECO10-1A2B3C4D.
// Действительность купона определяет только бэкенд.
func IsValidCouponCode(code string) bool {
	code = NormalizeCouponCode(code)
	if code == "" || len(code) > maxCouponCodeLength {
		return false
	}

	prevDash := true
	for _, ch := range code {
		switch {
		case ch == '-':
			if prevDash {
				return false
			}
			prevDash = true
		case ch <= unicode.MaxASCII && (unicode.IsDigit(ch) || unicode.IsUpper(ch)):
			prevDash = false
		default:
			return false
		}
	}

	return !prevDash
}
