package parser

import (
	"fmt"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/shopspring/decimal"
)

// TaxEventInput — нормализованное событие на выходе парсера.
// Идентификаторы налогоплательщика и источника проставляются из
// SourceRecord, а не из полезной нагрузки.
type TaxEventInput struct {
	TaxpayerID     uint
	SourceRecordID uint
	EventType      string
	EventDate      string // YYYY-MM-DD
	Amount         *decimal.Decimal
	Currency       string
	Metadata       map[string]interface{}
}

// ParseError — структурная ошибка разбора. Частичный результат не
// возвращается: первый дефект прерывает разбор.
type ParseError struct {
	RecordIndex int
	Message     string
}

func (e *ParseError) Error() string {
	if e.RecordIndex >= 0 {
		return fmt.Sprintf("record %d: %s", e.RecordIndex, e.Message)
	}
	return e.Message
}

func parseErrorf(index int, format string, args ...interface{}) *ParseError {
	return &ParseError{RecordIndex: index, Message: fmt.Sprintf(format, args...)}
}

// Parser разбирает полезную нагрузку одного типа источника.
type Parser interface {
	Kind() model.SourceKind
	Parse(payload []byte) ([]TaxEventInput, error)
}

// Registry — реестр парсеров по типу источника.
type Registry struct {
	parsers map[model.SourceKind]Parser
}

// NewRegistry регистрирует все встроенные парсеры.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[model.SourceKind]Parser)}
	for _, p := range []Parser{
		&ManualParser{},
		&CSVParser{},
		&ExcelParser{},
		&BankParser{},
		&AccountingParser{},
		&APIParser{},
	} {
		r.parsers[p.Kind()] = p
	}
	return r
}

// Get returns the parser for a source kind.
func (r *Registry) Get(kind model.SourceKind) (Parser, bool) {
	p, ok := r.parsers[kind]
	return p, ok
}

// Parse выбирает парсер по типу источника, разбирает полезную нагрузку
// и проставляет идентификаторы записи-источника.
func (r *Registry) Parse(record *model.SourceRecord) ([]TaxEventInput, error) {
	p, ok := r.Get(record.SourceKind)
	if !ok {
		return nil, parseErrorf(-1, "no parser registered for source kind %q", record.SourceKind)
	}

	inputs, err := p.Parse([]byte(record.RawPayload))
	if err != nil {
		return nil, err
	}

	for i := range inputs {
		inputs[i].TaxpayerID = record.TaxpayerID
		inputs[i].SourceRecordID = record.ID
		if err := validateInput(i, &inputs[i]); err != nil {
			return nil, err
		}
	}
	return inputs, nil
}

// validateInput — общие обязательные поля вне зависимости от источника.
func validateInput(index int, input *TaxEventInput) error {
	if input.TaxpayerID == 0 {
		return parseErrorf(index, "missing taxpayer identity")
	}
	if input.SourceRecordID == 0 {
		return parseErrorf(index, "missing source record reference")
	}
	if input.EventType == "" {
		return parseErrorf(index, "missing event type")
	}
	if input.EventDate == "" {
		return parseErrorf(index, "missing event date")
	}
	return nil
}
