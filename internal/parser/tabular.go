package parser

import (
	"strings"
)

// Общий разбор табличных источников (CSV и Excel): строки — записи,
// обязательна колонка даты, тип события берётся из явной колонки либо
// выводится из описания подстрочными правилами.

var (
	dateColumns        = []string{"event_date", "date", "дата"}
	eventTypeColumns   = []string{"event_type", "income_type", "type", "тип"}
	descriptionColumns = []string{"description", "purpose", "note", "описание", "назначение"}
	amountColumns      = []string{"amount", "sum", "value", "сумма"}
	currencyColumns    = []string{"currency", "валюта"}
)

// descriptionRules — подстрочные правила вывода типа события из
// текстового описания. Порядок имеет значение: первое совпадение
// останавливает поиск.
var descriptionRules = []struct {
	substrings []string
	eventType  string
}{
	{[]string{"дивиденд иностр", "foreign dividend"}, "EV_FOREIGN_DIVIDENDS"},
	{[]string{"дивиденд", "dividend"}, "EV_DIVIDENDS"},
	{[]string{"аренд", "rent", "найм"}, "EV_RENT_INCOME"},
	{[]string{"недвиж", "квартир", "property", "дом"}, "EV_PROPERTY_SALE_KZ"},
	{[]string{"автомобил", "транспорт", "vehicle", "машин"}, "EV_PROPERTY_SALE_VEHICLE"},
	{[]string{"выигрыш", "лотере", "winning"}, "EV_WINNINGS"},
	{[]string{"роялти", "royalty"}, "EV_ROYALTY"},
	{[]string{"вознаграждени", "депозит", "interest"}, "EV_INTEREST"},
	{[]string{"вычет", "deduction"}, "EV_DEDUCTION_STANDARD"},
	{[]string{"зарубеж", "иностран", "foreign", "swift"}, "EV_FOREIGN_OTHER"},
}

// inferEventType выводит код события из описания; пустой результат
// означает, что правило не найдено.
func inferEventType(description string) string {
	text := strings.ToLower(description)
	for _, rule := range descriptionRules {
		for _, sub := range rule.substrings {
			if strings.Contains(text, sub) {
				return rule.eventType
			}
		}
	}
	return ""
}

// parseTabularRow разбирает одну запись табличного источника.
func parseTabularRow(index int, rec record) (TaxEventInput, error) {
	rawDate, ok := rec.stringField(dateColumns...)
	if !ok {
		return TaxEventInput{}, parseErrorf(index, "missing date column")
	}
	date, err := NormalizeDate(rawDate)
	if err != nil {
		return TaxEventInput{}, parseErrorf(index, "%v", err)
	}

	input := TaxEventInput{
		EventDate: date,
		Currency:  "KZT",
		Metadata:  map[string]interface{}{},
	}

	if rawType, ok := rec.stringField(eventTypeColumns...); ok {
		eventType, known := NormalizeEventType(rawType)
		if !known {
			return TaxEventInput{}, parseErrorf(index, "unknown event type %q", rawType)
		}
		input.EventType = eventType
	} else if description, ok := rec.stringField(descriptionColumns...); ok {
		input.EventType = inferEventType(description)
		input.Metadata["description"] = description
	}
	if input.EventType == "" {
		return TaxEventInput{}, parseErrorf(index, "cannot determine event type")
	}

	if rawAmount, ok := rec.field(amountColumns...); ok && rawAmount != nil {
		amount, err := amountFromValue(rawAmount)
		if err != nil {
			return TaxEventInput{}, parseErrorf(index, "%v", err)
		}
		input.Amount = &amount
	}
	if currency, ok := rec.stringField(currencyColumns...); ok {
		input.Currency = NormalizeCurrency(currency)
	}
	if description, ok := rec.stringField(descriptionColumns...); ok {
		input.Metadata["description"] = description
	}

	return input, nil
}

// rowsToRecords сопоставляет строки заголовкам.
func rowsToRecords(rows [][]string) []record {
	if len(rows) < 2 {
		return nil
	}
	headers := rows[0]
	records := make([]record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if emptyRow(row) {
			continue
		}
		rec := record{}
		for i, header := range headers {
			header = strings.TrimSpace(header)
			if header == "" || i >= len(row) {
				continue
			}
			rec[header] = row[i]
		}
		records = append(records, rec)
	}
	return records
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
