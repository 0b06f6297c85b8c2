package parser

import (
	"encoding/json"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/shopspring/decimal"
)

// BankParser разбирает банковскую выписку. Каждая транзакция даёт не
// более одного события: направление выводится из колонок credit/debit
// либо из знака суммы, хранимая сумма всегда неотрицательна,
// направление уходит в metadata. Тип события выводится из назначения
// платежа, по умолчанию — прочий доход не от налогового агента.
type BankParser struct{}

func (p *BankParser) Kind() model.SourceKind {
	return model.SourceBank
}

func (p *BankParser) Parse(payload []byte) ([]TaxEventInput, error) {
	var root map[string]interface{}
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil, parseErrorf(-1, "payload is not a JSON object: %v", err)
	}

	raw, ok := record(root).field("transactions", "operations", "statement")
	if !ok {
		return nil, parseErrorf(-1, "missing transactions")
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, parseErrorf(-1, "transactions must be a list")
	}

	inputs := make([]TaxEventInput, 0, len(list))
	for i, item := range list {
		rec, ok := item.(map[string]interface{})
		if !ok {
			return nil, parseErrorf(i, "transaction is not an object")
		}
		input, err := p.parseTransaction(i, rec)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, input)
	}
	return inputs, nil
}

func (p *BankParser) parseTransaction(index int, rec record) (TaxEventInput, error) {
	rawDate, ok := rec.stringField("date", "operation_date", "value_date", "дата")
	if !ok {
		return TaxEventInput{}, parseErrorf(index, "missing transaction date")
	}
	date, err := NormalizeDate(rawDate)
	if err != nil {
		return TaxEventInput{}, parseErrorf(index, "%v", err)
	}

	amount, direction, err := p.resolveAmount(index, rec)
	if err != nil {
		return TaxEventInput{}, err
	}

	purpose, _ := rec.stringField("purpose", "description", "details", "назначение")

	eventType := inferEventType(purpose)
	if eventType == "" {
		eventType = model.EVOtherIncome
	}

	input := TaxEventInput{
		EventType: eventType,
		EventDate: date,
		Amount:    &amount,
		Currency:  "KZT",
		Metadata: map[string]interface{}{
			"direction": direction,
		},
	}
	if purpose != "" {
		input.Metadata["description"] = purpose
	}
	if currency, ok := rec.stringField("currency", "валюта"); ok {
		input.Currency = NormalizeCurrency(currency)
	}
	if ref, ok := rec.stringField("reference", "doc_number"); ok {
		input.Metadata["reference"] = ref
	}

	return input, nil
}

// resolveAmount выводит неотрицательную сумму и направление операции.
func (p *BankParser) resolveAmount(index int, rec record) (decimal.Decimal, string, error) {
	if raw, ok := rec.field("credit"); ok && raw != nil {
		amount, err := amountFromValue(raw)
		if err != nil {
			return decimal.Zero, "", parseErrorf(index, "credit: %v", err)
		}
		if !amount.IsZero() {
			return amount.Abs(), "credit", nil
		}
	}
	if raw, ok := rec.field("debit"); ok && raw != nil {
		amount, err := amountFromValue(raw)
		if err != nil {
			return decimal.Zero, "", parseErrorf(index, "debit: %v", err)
		}
		if !amount.IsZero() {
			return amount.Abs(), "debit", nil
		}
	}

	raw, ok := rec.field("amount", "sum", "сумма")
	if !ok || raw == nil {
		return decimal.Zero, "", parseErrorf(index, "missing amount")
	}
	amount, err := amountFromValue(raw)
	if err != nil {
		return decimal.Zero, "", parseErrorf(index, "%v", err)
	}
	direction := "credit"
	if amount.IsNegative() {
		direction = "debit"
	}
	return amount.Abs(), direction, nil
}
