// Package estimator реализует клиентский расчёт углеродного эффекта и стоимости заказа.
//
// Все функции пакета чистые: не выполняют ввода-вывода, не хранят состояние
// и не возвращают ошибок. Некорректный ввод даёт определённый числовой результат.
package estimator

import (
	"strings"

	"golang.org/x/text/cases"
)

// LocalityTier классифицирует удалённость покупателя от продавца.
type LocalityTier int

const (
	// TierOtherState означает другой штат либо незаполненный штат у одной из сторон.
	TierOtherState LocalityTier = iota
	// TierSameState означает тот же штат, но другой город.
	TierSameState
	// TierSameCity означает совпадение и города, и штата.
	TierSameCity
)

// String возвращает имя уровня удалённости.
func (t LocalityTier) String() string {
	switch t {
	case TierSameCity:
		return "same_city"
	case TierSameState:
		return "same_state"
	default:
		return "other_state"
	}
}

// ClassifyLocality сравнивает населённые пункты покупателя и продавца без учёта регистра
// и пробелов по краям.
func ClassifyLocality(buyerCity, buyerState, sellerCity, sellerState string) LocalityTier {
	bs, ss := normalizeLocality(buyerState), normalizeLocality(sellerState)
	if bs == "" || ss == "" || bs != ss {
		return TierOtherState
	}

	bc, sc := normalizeLocality(buyerCity), normalizeLocality(sellerCity)
	if bc != "" && bc == sc {
		return TierSameCity
	}

	return TierSameState
}

// normalizeLocality создаёт Caser на каждый вызов: Caser хранит состояние и не потокобезопасен.
func normalizeLocality(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
