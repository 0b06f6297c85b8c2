package engine

import (
	"encoding/json"
	"strings"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/shopspring/decimal"
)

// EventView даёт движку правил доступ к атрибутам события по имени
// (event.event_type, event.amount, event.metadata.<путь> и т.д.).
type EventView struct {
	event    *model.TaxEvent
	metadata map[string]interface{}
}

// NewEventView wraps a tax event for attribute lookup. Metadata is
// decoded once per event.
func NewEventView(event *model.TaxEvent) *EventView {
	v := &EventView{event: event}
	if len(event.Metadata) > 0 {
		// ошибки декодирования не фатальны: metadata просто недоступна
		_ = json.Unmarshal(event.Metadata, &v.metadata)
	}
	return v
}

func (v *EventView) Event() *model.TaxEvent {
	return v.event
}

// Attr resolves an attribute path. The leading "event." prefix is
// already stripped by the caller. Missing attributes yield (nil, false);
// missing metadata paths yield (nil, true) per the condition contract.
func (v *EventView) Attr(name string) (interface{}, bool) {
	switch name {
	case "event_type":
		return v.event.EventType, true
	case "amount":
		if v.event.Amount == nil {
			return nil, true
		}
		return *v.event.Amount, true
	case "currency":
		return v.event.Currency, true
	case "event_date":
		return v.event.EventDate.Format("2006-01-02"), true
	case "tax_year":
		return v.event.TaxYear, true
	case "id":
		return v.event.ID, true
	case "source_record_id":
		if v.event.SourceRecordID == nil {
			return nil, true
		}
		return *v.event.SourceRecordID, true
	}

	if path, ok := strings.CutPrefix(name, "metadata."); ok {
		return v.metadataPath(path), true
	}

	return nil, false
}

// metadataPath walks a dotted path inside metadata; missing segments
// resolve to nil.
func (v *EventView) metadataPath(path string) interface{} {
	var current interface{} = v.metadata
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			return nil
		}
	}
	return current
}

// MetadataAmount returns a metadata value coerced to decimal, for
// map-actions with amount_source = metadata.<key>.
func (v *EventView) MetadataAmount(key string) (decimal.Decimal, bool) {
	raw := v.metadataPath(key)
	if raw == nil {
		return decimal.Zero, false
	}
	return coerceDecimal(raw)
}

// coerceDecimal converts JSON scalars and decimals to decimal.Decimal.
func coerceDecimal(raw interface{}) (decimal.Decimal, bool) {
	switch val := raw.(type) {
	case decimal.Decimal:
		return val, true
	case float64:
		return decimal.NewFromFloat(val), true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int64:
		return decimal.NewFromInt(val), true
	case uint:
		return decimal.NewFromInt(int64(val)), true
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		return d, err == nil
	}
	return decimal.Zero, false
}
