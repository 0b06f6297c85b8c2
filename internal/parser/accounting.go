package parser

import (
	"encoding/json"
	"strings"

	"github.com/salyqtech/salyq-backend/internal/app/model"
)

// AccountingParser разбирает выгрузку учётной системы: формы
// {"documents":[...]} и {"operations":[...]}. Документы могут нести
// табличные строки (lines/items); расходные документы пропускаются
// без событий. Продажи и поступления сопоставляются по ключевым
// словам описания.
type AccountingParser struct{}

func (p *AccountingParser) Kind() model.SourceKind {
	return model.SourceAccounting
}

func (p *AccountingParser) Parse(payload []byte) ([]TaxEventInput, error) {
	var root map[string]interface{}
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil, parseErrorf(-1, "payload is not a JSON object: %v", err)
	}

	if raw, ok := record(root).field("documents"); ok {
		return p.parseDocuments(raw)
	}
	if raw, ok := record(root).field("operations"); ok {
		return p.parseOperations(raw)
	}
	return nil, parseErrorf(-1, "payload has neither documents nor operations")
}

func (p *AccountingParser) parseDocuments(raw interface{}) ([]TaxEventInput, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, parseErrorf(-1, "documents must be a list")
	}

	var inputs []TaxEventInput
	for i, item := range list {
		rec, ok := item.(map[string]interface{})
		if !ok {
			return nil, parseErrorf(i, "document is not an object")
		}

		docType, _ := record(rec).stringField("doc_type", "type", "вид")
		if isExpenseDocument(docType) {
			continue // расходные документы событий не порождают
		}

		docInputs, err := p.parseDocument(i, record(rec), docType)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, docInputs...)
	}
	return inputs, nil
}

func isExpenseDocument(docType string) bool {
	t := strings.ToLower(docType)
	return strings.Contains(t, "expense") || strings.Contains(t, "расход") ||
		strings.Contains(t, "purchase") || strings.Contains(t, "закуп")
}

func (p *AccountingParser) parseDocument(index int, rec record, docType string) ([]TaxEventInput, error) {
	rawDate, ok := rec.stringField("date", "doc_date", "дата")
	if !ok {
		return nil, parseErrorf(index, "missing document date")
	}
	date, err := NormalizeDate(rawDate)
	if err != nil {
		return nil, parseErrorf(index, "%v", err)
	}

	currency := "KZT"
	if c, ok := rec.stringField("currency", "валюта"); ok {
		currency = NormalizeCurrency(c)
	}

	description, _ := rec.stringField("description", "назначение", "note")
	eventType := inferEventType(description)
	if eventType == "" {
		eventType = model.EVOtherIncome
	}

	// документ с табличной частью: событие на каждую строку
	if rawLines, ok := rec.field("lines", "items"); ok {
		lines, ok := rawLines.([]interface{})
		if !ok {
			return nil, parseErrorf(index, "lines must be a list")
		}
		inputs := make([]TaxEventInput, 0, len(lines))
		for j, lineItem := range lines {
			lineRec, ok := lineItem.(map[string]interface{})
			if !ok {
				return nil, parseErrorf(index, "line %d is not an object", j)
			}
			rawAmount, ok := record(lineRec).field("amount", "sum", "total", "сумма")
			if !ok {
				return nil, parseErrorf(index, "line %d has no amount", j)
			}
			amount, err := amountFromValue(rawAmount)
			if err != nil {
				return nil, parseErrorf(index, "line %d: %v", j, err)
			}
			lineType := eventType
			if lineDescription, ok := record(lineRec).stringField("description", "назначение"); ok {
				if inferred := inferEventType(lineDescription); inferred != "" {
					lineType = inferred
				}
			}
			inputs = append(inputs, TaxEventInput{
				EventType: lineType,
				EventDate: date,
				Amount:    &amount,
				Currency:  currency,
				Metadata: map[string]interface{}{
					"doc_type": docType,
					"line":     j,
				},
			})
		}
		return inputs, nil
	}

	rawAmount, ok := rec.field("amount", "sum", "total", "сумма")
	if !ok {
		return nil, parseErrorf(index, "missing document amount")
	}
	amount, err := amountFromValue(rawAmount)
	if err != nil {
		return nil, parseErrorf(index, "%v", err)
	}

	metadata := map[string]interface{}{"doc_type": docType}
	if description != "" {
		metadata["description"] = description
	}
	return []TaxEventInput{{
		EventType: eventType,
		EventDate: date,
		Amount:    &amount,
		Currency:  currency,
		Metadata:  metadata,
	}}, nil
}

func (p *AccountingParser) parseOperations(raw interface{}) ([]TaxEventInput, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, parseErrorf(-1, "operations must be a list")
	}

	inputs := make([]TaxEventInput, 0, len(list))
	for i, item := range list {
		rec, ok := item.(map[string]interface{})
		if !ok {
			return nil, parseErrorf(i, "operation is not an object")
		}
		input, err := parseTabularRow(i, record(rec))
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, input)
	}
	return inputs, nil
}
