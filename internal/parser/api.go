package parser

import (
	"encoding/json"

	"github.com/salyqtech/salyq-backend/internal/app/model"
)

// APIParser разбирает ответы внешних API. Принимаемые формы верхнего
// уровня: {"incomes":[...]}, {"items"|"records"|"events":[...]},
// {"assets":[...]}, {"debts":[...]} и одиночная запись. У каждой ветви
// свой помаппер записи.
type APIParser struct{}

func (p *APIParser) Kind() model.SourceKind {
	return model.SourceAPI
}

func (p *APIParser) Parse(payload []byte) ([]TaxEventInput, error) {
	var root map[string]interface{}
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil, parseErrorf(-1, "payload is not a JSON object: %v", err)
	}
	rec := record(root)

	if raw, ok := rec.field("incomes"); ok {
		return p.mapList(raw, p.mapIncome)
	}
	if raw, ok := rec.field("items", "records", "events"); ok {
		return p.mapList(raw, p.mapGeneric)
	}
	if raw, ok := rec.field("assets"); ok {
		return p.mapList(raw, p.mapAsset)
	}
	if raw, ok := rec.field("debts"); ok {
		return p.mapList(raw, p.mapDebt)
	}

	// одиночная запись
	input, err := p.mapGeneric(0, rec)
	if err != nil {
		return nil, err
	}
	return []TaxEventInput{input}, nil
}

func (p *APIParser) mapList(raw interface{}, mapper func(int, record) (TaxEventInput, error)) ([]TaxEventInput, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, parseErrorf(-1, "expected a list")
	}
	inputs := make([]TaxEventInput, 0, len(list))
	for i, item := range list {
		rec, ok := item.(map[string]interface{})
		if !ok {
			return nil, parseErrorf(i, "record is not an object")
		}
		input, err := mapper(i, rec)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, input)
	}
	return inputs, nil
}

func (p *APIParser) mapIncome(index int, rec record) (TaxEventInput, error) {
	input, err := p.mapGeneric(index, rec)
	if err != nil {
		return TaxEventInput{}, err
	}
	if source, ok := rec.stringField("source", "payer"); ok {
		input.Metadata["source"] = source
	}
	return input, nil
}

func (p *APIParser) mapGeneric(index int, rec record) (TaxEventInput, error) {
	rawType, ok := rec.stringField("event_type", "income_type", "type", "category")
	if !ok {
		return TaxEventInput{}, parseErrorf(index, "missing event type")
	}
	eventType, known := NormalizeEventType(rawType)
	if !known {
		return TaxEventInput{}, parseErrorf(index, "unknown event type %q", rawType)
	}

	rawDate, ok := rec.stringField("event_date", "date", "received_at")
	if !ok {
		return TaxEventInput{}, parseErrorf(index, "missing event date")
	}
	date, err := NormalizeDate(rawDate)
	if err != nil {
		return TaxEventInput{}, parseErrorf(index, "%v", err)
	}

	input := TaxEventInput{
		EventType: eventType,
		EventDate: date,
		Currency:  "KZT",
		Metadata:  map[string]interface{}{},
	}
	if raw, ok := rec.field("amount", "sum", "value"); ok && raw != nil {
		amount, err := amountFromValue(raw)
		if err != nil {
			return TaxEventInput{}, parseErrorf(index, "%v", err)
		}
		input.Amount = &amount
	}
	if currency, ok := rec.stringField("currency"); ok {
		input.Currency = NormalizeCurrency(currency)
	}
	if id, ok := rec.stringField("id", "external_id"); ok {
		input.Metadata["external_id"] = id
	}
	return input, nil
}

// mapAsset — активы попадают в приложения декларации и не участвуют
// в расчёте сумм; суммы необязательны.
func (p *APIParser) mapAsset(index int, rec record) (TaxEventInput, error) {
	rawDate, ok := rec.stringField("acquired_at", "date", "event_date")
	if !ok {
		return TaxEventInput{}, parseErrorf(index, "missing asset date")
	}
	date, err := NormalizeDate(rawDate)
	if err != nil {
		return TaxEventInput{}, parseErrorf(index, "%v", err)
	}

	input := TaxEventInput{
		EventType: model.EVAssetDeclared,
		EventDate: date,
		Currency:  "KZT",
		Metadata:  map[string]interface{}{},
	}
	if kind, ok := rec.stringField("asset_type", "kind", "type"); ok {
		input.Metadata["asset_type"] = kind
	}
	if name, ok := rec.stringField("name", "description"); ok {
		input.Metadata["name"] = name
	}
	if raw, ok := rec.field("value", "amount", "cost"); ok && raw != nil {
		amount, err := amountFromValue(raw)
		if err != nil {
			return TaxEventInput{}, parseErrorf(index, "%v", err)
		}
		input.Amount = &amount
	}
	if currency, ok := rec.stringField("currency"); ok {
		input.Currency = NormalizeCurrency(currency)
	}
	return input, nil
}

func (p *APIParser) mapDebt(index int, rec record) (TaxEventInput, error) {
	rawDate, ok := rec.stringField("date", "event_date", "as_of")
	if !ok {
		return TaxEventInput{}, parseErrorf(index, "missing debt date")
	}
	date, err := NormalizeDate(rawDate)
	if err != nil {
		return TaxEventInput{}, parseErrorf(index, "%v", err)
	}

	input := TaxEventInput{
		EventType: model.EVDebtDeclared,
		EventDate: date,
		Currency:  "KZT",
		Metadata:  map[string]interface{}{},
	}
	if creditor, ok := rec.stringField("creditor", "counterparty", "name"); ok {
		input.Metadata["creditor"] = creditor
	}
	if raw, ok := rec.field("amount", "balance", "value"); ok && raw != nil {
		amount, err := amountFromValue(raw)
		if err != nil {
			return TaxEventInput{}, parseErrorf(index, "%v", err)
		}
		input.Amount = &amount
	}
	if currency, ok := rec.stringField("currency"); ok {
		input.Currency = NormalizeCurrency(currency)
	}
	return input, nil
}
