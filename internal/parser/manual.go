package parser

import (
	"encoding/json"

	"github.com/salyqtech/salyq-backend/internal/app/model"
)

// ManualParser разбирает ручной ввод: одиночное событие (объект с
// event_type) или список {"events":[...]}. Устаревшая форма использует
// income_type и проходит через таблицу алиасов.
type ManualParser struct{}

func (p *ManualParser) Kind() model.SourceKind {
	return model.SourceManual
}

func (p *ManualParser) Parse(payload []byte) ([]TaxEventInput, error) {
	var root map[string]interface{}
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil, parseErrorf(-1, "payload is not a JSON object: %v", err)
	}

	if rawEvents, ok := record(root).field("events"); ok {
		list, ok := rawEvents.([]interface{})
		if !ok {
			return nil, parseErrorf(-1, "events must be a list")
		}
		inputs := make([]TaxEventInput, 0, len(list))
		for i, item := range list {
			rec, ok := item.(map[string]interface{})
			if !ok {
				return nil, parseErrorf(i, "event is not an object")
			}
			input, err := p.parseOne(i, rec)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, input)
		}
		return inputs, nil
	}

	input, err := p.parseOne(0, root)
	if err != nil {
		return nil, err
	}
	return []TaxEventInput{input}, nil
}

func (p *ManualParser) parseOne(index int, rec record) (TaxEventInput, error) {
	rawType, ok := rec.stringField("event_type", "income_type", "type")
	if !ok {
		return TaxEventInput{}, parseErrorf(index, "missing event_type")
	}
	eventType, ok := NormalizeEventType(rawType)
	if !ok {
		return TaxEventInput{}, parseErrorf(index, "unknown event type %q", rawType)
	}

	rawDate, ok := rec.stringField("event_date", "date")
	if !ok {
		return TaxEventInput{}, parseErrorf(index, "missing event_date")
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

	if rawAmount, ok := rec.field("amount", "sum", "value"); ok && rawAmount != nil {
		amount, err := amountFromValue(rawAmount)
		if err != nil {
			return TaxEventInput{}, parseErrorf(index, "%v", err)
		}
		input.Amount = &amount
	}
	if currency, ok := rec.stringField("currency"); ok {
		input.Currency = NormalizeCurrency(currency)
	}
	if note, ok := rec.stringField("description", "note", "comment"); ok {
		input.Metadata["description"] = note
	}

	return input, nil
}
