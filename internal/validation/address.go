package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/mmeshcher/ecobazaar-estimator/internal/model"
)

// ErrInvalidAddress возвращается, если адрес доставки заполнен не полностью или с ошибками.
var ErrInvalidAddress = errors.New("invalid shipping address")

const defaultCountry = "India"

// ValidateShippingAddress проверяет обязательные поля адреса перед оформлением заказа.
func ValidateShippingAddress(a model.ShippingAddress) error {
	var problems []string

	required := []struct {
		field string
		value string
	}{
		{"fullName", a.FullName},
		{"phone", a.Phone},
		{"addressLine1", a.AddressLine1},
		{"city", a.City},
		{"state", a.State},
		{"postalCode", a.PostalCode},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			problems = append(problems, r.field+" is required")
		}
	}

	if len(problems) == 0 {
		if !isDomestic(a.Country) {
			return nil
		}
		if !IsValidPostalCode(a.PostalCode) {
			problems = append(problems, "postalCode must be a 6-digit PIN code")
		}
		if !IsValidPhone(a.Phone) {
			problems = append(problems, "phone must contain 10 digits")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, strings.Join(problems, "; "))
	}
	return nil
}

// IsValidPostalCode проверяет индийский PIN-код: шесть цифр, первая не ноль.
func IsValidPostalCode(code string) bool {
	code = strings.TrimSpace(code)
	if len(code) != 6 || code[0] == '0' {
		return false
	}
	return allDigits(code)
}

// IsValidPhone проверяет номер из десяти цифр с необязательным префиксом +91.
func IsValidPhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	phone = strings.TrimPrefix(phone, "+91")
	phone = strings.NewReplacer(" ", "", "-", "").Replace(phone)
	return len(phone) == 10 && allDigits(phone)
}

func isDomestic(country string) bool {
	country = strings.TrimSpace(country)
	return country == "" || strings.EqualFold(country, defaultCountry)
}

func allDigits(s string) bool {
	for _, ch := range s {
		if !unicode.IsDigit(ch) || ch > unicode.MaxASCII {
			return false
		}
	}
	return true
}
