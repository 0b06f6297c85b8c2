package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/shopspring/decimal"
)

// Принимаемые форматы дат. Всё приводится к YYYY-MM-DD в UTC.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// NormalizeDate converts any accepted date representation to YYYY-MM-DD.
func NormalizeDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", raw)
}

// currencyAliases — таблица человекочитаемых названий и символов валют.
// Применяется до усечения к трём буквам.
var currencyAliases = map[string]string{
	"$":       "USD",
	"US$":     "USD",
	"€":       "EUR",
	"£":       "GBP",
	"₽":       "RUB",
	"₸":       "KZT",
	"ТГ":      "KZT",
	"ТЕНГЕ":   "KZT",
	"TENGE":   "KZT",
	"РУБ":     "RUB",
	"РУБЛЬ":   "RUB",
	"РУБЛЕЙ":  "RUB",
	"ДОЛЛАР":  "USD",
	"ДОЛЛАРОВ": "USD",
	"ЕВРО":    "EUR",
	"ЮАНЬ":    "CNY",
}

// NormalizeCurrency returns the 3-letter ISO code; KZT when absent.
func NormalizeCurrency(raw string) string {
	c := strings.ToUpper(strings.TrimSpace(raw))
	if c == "" {
		return "KZT"
	}
	if alias, ok := currencyAliases[c]; ok {
		return alias
	}
	runes := []rune(c)
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return string(runes)
}

// ParseAmount — терпимый разбор суммы: пробелы (включая неразрывные)
// удаляются, запятая принимается как десятичный разделитель.
func ParseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', ' ', ' ':
			return -1
		case ',':
			return '.'
		}
		return r
	}, strings.TrimSpace(raw))
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	return decimal.NewFromString(cleaned)
}

// amountFromValue разбирает сумму из произвольного JSON-значения.
func amountFromValue(raw interface{}) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		return ParseAmount(v)
	case nil:
		return decimal.Zero, fmt.Errorf("missing amount")
	}
	return decimal.Zero, fmt.Errorf("amount has unsupported type %T", raw)
}

// legacyEventTypeAliases — соответствие устаревших кодов INCOME_*
// действующему словарю событий. Коды вне таблицы отвергаются.
var legacyEventTypeAliases = map[string]string{
	"INCOME_PROPERTY_SALE":     model.EVPropertySaleKZ,
	"INCOME_PROPERTY_ABROAD":   model.EVPropertySaleAbroad,
	"INCOME_VEHICLE_SALE":      model.EVPropertySaleVehicle,
	"INCOME_RENT":              model.EVRentIncome,
	"INCOME_ASSIGNMENT":        model.EVAssignmentIncome,
	"INCOME_IP_ASSETS":         model.EVIPAssetsIncome,
	"INCOME_DIVIDENDS":         model.EVDividends,
	"INCOME_INTEREST":          model.EVInterest,
	"INCOME_WINNINGS":          model.EVWinnings,
	"INCOME_ROYALTY":           model.EVRoyalty,
	"INCOME_PRIZES":            model.EVPrizes,
	"INCOME_OTHER":             model.EVOtherIncome,
	"INCOME_FOREIGN_DIVIDENDS": model.EVForeignDividends,
	"INCOME_FOREIGN_INTEREST":  model.EVForeignInterest,
	"INCOME_FOREIGN_ROYALTY":   model.EVForeignRoyalty,
	"INCOME_FOREIGN_WORK":      model.EVForeignEmployment,
	"INCOME_FOREIGN_BUSINESS":  model.EVForeignBusiness,
	"INCOME_FOREIGN_CAPITAL":   model.EVForeignCapitalGains,
	"INCOME_FOREIGN_PENSION":   model.EVForeignPension,
	"INCOME_FOREIGN_INSURANCE": model.EVForeignInsurance,
	"INCOME_FOREIGN_OTHER":     model.EVForeignOther,
	"INCOME_CFC":               model.EVCFCProfit,
	"DEDUCTION_STANDARD":       model.EVDeductionStandard,
	"DEDUCTION_OTHER":          model.EVDeductionOther,
	"FOREIGN_TAX_PAID":         model.EVForeignTaxPaidGeneral,
	"FOREIGN_TAX_PAID_CFC":     model.EVForeignTaxPaidCFC,
}

// NormalizeEventType maps explicit EV_* codes through as-is and legacy
// INCOME_* codes through the alias table.
func NormalizeEventType(raw string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return "", false
	}
	if strings.HasPrefix(code, "EV_") {
		return code, true
	}
	mapped, ok := legacyEventTypeAliases[code]
	return mapped, ok
}

// record — запись с доступом к полям без учёта регистра.
type record map[string]interface{}

// field возвращает первое присутствующее значение по списку алиасов.
func (r record) field(aliases ...string) (interface{}, bool) {
	for _, alias := range aliases {
		for key, value := range r {
			if strings.EqualFold(key, alias) {
				return value, true
			}
		}
	}
	return nil, false
}

func (r record) stringField(aliases ...string) (string, bool) {
	v, ok := r.field(aliases...)
	if !ok || v == nil {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s), s != ""
	case float64:
		return decimal.NewFromFloat(s).String(), true
	}
	return "", false
}
