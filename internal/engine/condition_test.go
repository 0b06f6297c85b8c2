package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func testEvent(t *testing.T, eventType string, amount string, metadata string) *EventView {
	var amt *decimal.Decimal
	if amount != "" {
		d, err := decimal.NewFromString(amount)
		require.NoError(t, err)
		amt = &d
	}
	event := &model.TaxEvent{
		ID:        42,
		EventType: eventType,
		EventDate: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		Amount:    amt,
		Currency:  "KZT",
		TaxYear:   2024,
	}
	if metadata != "" {
		event.Metadata = datatypes.JSON([]byte(metadata))
	}
	return NewEventView(event)
}

func mustMatch(t *testing.T, conditions string, view *EventView) bool {
	ok, err := Match(json.RawMessage(conditions), view)
	require.NoError(t, err)
	return ok
}

func TestMatch_Always(t *testing.T) {
	view := testEvent(t, "EV_DIVIDENDS", "100", "")
	assert.True(t, mustMatch(t, `{"always": true}`, view))
	assert.False(t, mustMatch(t, `{"always": false}`, view))
}

func TestMatch_FieldOperators(t *testing.T) {
	view := testEvent(t, "EV_FOREIGN_DIVIDENDS", "500000", "")

	tests := []struct {
		name       string
		conditions string
		want       bool
	}{
		{"eq match", `{"event.event_type": {"eq": "EV_FOREIGN_DIVIDENDS"}}`, true},
		{"eq mismatch", `{"event.event_type": {"eq": "EV_DIVIDENDS"}}`, false},
		{"symbol eq", `{"event.event_type": {"=": "EV_FOREIGN_DIVIDENDS"}}`, true},
		{"neq", `{"event.event_type": {"neq": "EV_DIVIDENDS"}}`, true},
		{"compact name is auto-prefixed", `{"event_type": {"eq": "EV_FOREIGN_DIVIDENDS"}}`, true},
		{"scalar is implicit eq", `{"event_type": "EV_FOREIGN_DIVIDENDS"}`, true},
		{"gt", `{"event.amount": {"gt": 100000}}`, true},
		{"gte boundary", `{"event.amount": {"gte": 500000}}`, true},
		{"lt", `{"event.amount": {"lt": 100}}`, false},
		{"numeric coercion from string", `{"event.amount": {"gt": "499999.99"}}`, true},
		{"in", `{"event.currency": {"in": ["KZT", "USD"]}}`, true},
		{"not_in", `{"event.currency": {"not_in": ["USD", "EUR"]}}`, true},
		{"tax_year", `{"event.tax_year": {"eq": 2024}}`, true},
		{"event_date compare", `{"event.event_date": {"gte": "2024-01-01"}}`, false},
		{"contains", `{"event.event_type": {"contains": "FOREIGN"}}`, true},
		{"starts_with", `{"event.event_type": {"starts_with": "EV_"}}`, true},
		{"ends_with", `{"event.event_type": {"ends_with": "_DIVIDENDS"}}`, true},
		{"unknown operator is false", `{"event.amount": {"around": 500000}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustMatch(t, tt.conditions, view))
		})
	}
}

func TestMatch_Metadata(t *testing.T) {
	view := testEvent(t, "EV_OTHER_INCOME", "1000", `{"direction": "credit", "bank": {"code": "KASPI"}}`)

	assert.True(t, mustMatch(t, `{"event.metadata.direction": {"eq": "credit"}}`, view))
	assert.True(t, mustMatch(t, `{"event.metadata.bank.code": {"eq": "KASPI"}}`, view))
	// отсутствующий путь — null, а не ошибка
	assert.True(t, mustMatch(t, `{"event.metadata.missing": {"not_exists": true}}`, view))
	assert.False(t, mustMatch(t, `{"event.metadata.missing": {"exists": true}}`, view))
}

func TestMatch_AllAny(t *testing.T) {
	view := testEvent(t, "EV_RENT_INCOME", "200000", "")

	all := `{"all": [
		{"event.event_type": {"eq": "EV_RENT_INCOME"}},
		{"event.amount": {"gt": 100000}}
	]}`
	assert.True(t, mustMatch(t, all, view))

	allFail := `{"all": [
		{"event.event_type": {"eq": "EV_RENT_INCOME"}},
		{"event.amount": {"gt": 1000000}}
	]}`
	assert.False(t, mustMatch(t, allFail, view))

	any := `{"any": [
		{"event.event_type": {"eq": "EV_DIVIDENDS"}},
		{"event.amount": {"gte": 200000}}
	]}`
	assert.True(t, mustMatch(t, any, view))
}

func TestMatch_NilAmount(t *testing.T) {
	view := testEvent(t, "EV_ASSET_DECLARED", "", "")
	assert.False(t, mustMatch(t, `{"event.amount": {"gt": 0}}`, view))
	assert.True(t, mustMatch(t, `{"event.amount": {"not_exists": true}}`, view))
}

func TestMatch_MalformedConditions(t *testing.T) {
	view := testEvent(t, "EV_DIVIDENDS", "100", "")
	_, err := Match(json.RawMessage(`"not an object"`), view)
	assert.Error(t, err)
	_, err = Match(nil, view)
	assert.Error(t, err)
}

func TestMatchFields(t *testing.T) {
	fields := Fields{
		"LF_INCOME_TOTAL": decimal.NewFromInt(500000),
	}

	ok, err := MatchFields(json.RawMessage(`{"LF_INCOME_TOTAL": {"gt": 0}}`), fields)
	require.NoError(t, err)
	assert.True(t, ok)

	// отсутствующее поле читается как 0
	ok, err = MatchFields(json.RawMessage(`{"LF_IPN_PAYABLE": {"eq": 0}}`), fields)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = MatchFields(json.RawMessage(`{"always": true}`), fields)
	require.NoError(t, err)
	assert.True(t, ok)
}
