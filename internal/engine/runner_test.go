package engine

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// defaultMappingRules собирает mapping-правила событие → поле,
// как их сеет справочник по умолчанию.
func defaultMappingRules(t *testing.T) []CompiledRule {
	var rules []model.TaxRule
	id := uint(1)
	for eventType, target := range model.EventFieldTargets {
		rules = append(rules, model.TaxRule{
			ID:         id,
			RuleCode:   "MAP_" + eventType,
			RuleType:   model.RuleMapping,
			Conditions: datatypes.JSON([]byte(fmt.Sprintf(`{"event.event_type": {"eq": %q}}`, eventType))),
			Actions:    datatypes.JSON([]byte(fmt.Sprintf(`{"type": "map", "target": %q}`, target))),
			Priority:   100,
			Active:     true,
		})
		id++
	}
	compiled, err := CompileRules(rules)
	require.NoError(t, err)
	return compiled
}

func makeEvent(id uint, eventType, date, amount string) model.TaxEvent {
	day, _ := time.Parse("2006-01-02", date)
	event := model.TaxEvent{
		ID:        id,
		EventType: eventType,
		EventDate: day,
		Currency:  "KZT",
		TaxYear:   day.Year(),
		Active:    true,
	}
	if amount != "" {
		d := decimal.RequireFromString(amount)
		event.Amount = &d
	}
	return event
}

func fieldEquals(t *testing.T, result *Result, code string, want int64) {
	t.Helper()
	got := result.FieldValues.Get(code)
	assert.True(t, got.Equal(decimal.NewFromInt(want)), "%s: got %s, want %d", code, got, want)
}

// Сценарий: только зарубежные дивиденды.
func TestRun_ForeignDividendsOnly(t *testing.T) {
	events := []model.TaxEvent{
		makeEvent(1, model.EVForeignDividends, "2024-06-15", "500000"),
	}

	result, err := Run(events, defaultMappingRules(t), Options{TaxYear: 2024})
	require.NoError(t, err)

	fieldEquals(t, result, model.LFIncomeForeignDividends, 500000)
	fieldEquals(t, result, model.LFIncomeForeignTotal, 500000)
	fieldEquals(t, result, model.LFIncomeTotal, 500000)
	fieldEquals(t, result, model.LFTaxableIncome, 500000)
	fieldEquals(t, result, model.LFIPNCalculated, 50000)
	fieldEquals(t, result, model.LFIPNPayable, 50000)

	assert.True(t, result.Flags["has_income"])
	assert.True(t, result.Flags["has_foreign_income"])
	assert.True(t, result.Flags["pril_2"])
	assert.False(t, result.Flags["pril_1"])
	assert.Empty(t, result.Errors)
}

// Сценарий: зачёт иностранного налога обнуляет ИПН.
func TestRun_ForeignCreditWipesIPN(t *testing.T) {
	events := []model.TaxEvent{
		makeEvent(1, model.EVForeignDividends, "2024-06-15", "500000"),
		makeEvent(2, model.EVForeignTaxPaidGeneral, "2024-06-15", "50000"),
	}

	result, err := Run(events, defaultMappingRules(t), Options{TaxYear: 2024})
	require.NoError(t, err)

	fieldEquals(t, result, model.LFForeignTaxCreditGeneral, 50000)
	fieldEquals(t, result, model.LFIPNCalculated, 50000)
	fieldEquals(t, result, model.LFIPNPayable, 0)
}

// Сценарий: продажа имущества и вычет.
func TestRun_PropertySaleWithDeduction(t *testing.T) {
	events := []model.TaxEvent{
		makeEvent(1, model.EVPropertySaleKZ, "2024-08-20", "1000000"),
		makeEvent(2, model.EVDeductionStandard, "2024-03-01", "200000"),
	}

	result, err := Run(events, defaultMappingRules(t), Options{TaxYear: 2024})
	require.NoError(t, err)

	fieldEquals(t, result, model.LFIncomePropertyKZ, 1000000)
	fieldEquals(t, result, model.LFIncomePropertyTotal, 1000000)
	fieldEquals(t, result, model.LFDeductionStandard, 200000)
	fieldEquals(t, result, model.LFDeductionTotal, 200000)
	fieldEquals(t, result, model.LFTaxableIncome, 800000)
	fieldEquals(t, result, model.LFIPNCalculated, 80000)
	assert.True(t, result.Flags["pril_1"])
	assert.True(t, result.Flags["has_deductions"])
}

// Инвариант: сумма LF_INCOME_TOTAL равна сумме первичных категорий.
func TestRun_SumConsistency(t *testing.T) {
	events := []model.TaxEvent{
		makeEvent(1, model.EVPropertySaleKZ, "2024-01-10", "100000"),
		makeEvent(2, model.EVRentIncome, "2024-02-10", "200000"),
		makeEvent(3, model.EVDividends, "2024-03-10", "300000"),
		makeEvent(4, model.EVForeignInterest, "2024-04-10", "400000"),
		makeEvent(5, model.EVCFCProfit, "2024-05-10", "500000"),
	}

	result, err := Run(events, defaultMappingRules(t), Options{TaxYear: 2024})
	require.NoError(t, err)

	sum := decimal.Zero
	for _, code := range model.PrimaryIncomeFields {
		sum = sum.Add(result.FieldValues.Get(code))
	}
	assert.True(t, result.FieldValues.Get(model.LFIncomeTotal).Equal(sum))
	fieldEquals(t, result, model.LFIncomeTotal, 1500000)
	assert.True(t, result.Flags["has_cfc"])
	assert.True(t, result.Flags["pril_3"])
}

// Инвариант: облагаемый доход не бывает отрицательным.
func TestRun_TaxableIncomeNonNegative(t *testing.T) {
	events := []model.TaxEvent{
		makeEvent(1, model.EVDividends, "2024-01-10", "100000"),
		makeEvent(2, model.EVDeductionStandard, "2024-02-10", "900000"),
	}

	result, err := Run(events, defaultMappingRules(t), Options{TaxYear: 2024})
	require.NoError(t, err)

	fieldEquals(t, result, model.LFTaxableIncome, 0)
	fieldEquals(t, result, model.LFIPNCalculated, 0)
	fieldEquals(t, result, model.LFIPNPayable, 0)
}

// Исключённое событие не попадает в поля; первое совпавшее
// exclusion-правило останавливает дальнейшие проверки.
func TestRun_ExclusionPrecedence(t *testing.T) {
	exclusion, err := CompileRules([]model.TaxRule{{
		ID:         900,
		RuleCode:   "EXCLUDE_SMALL",
		RuleType:   model.RuleExclusion,
		Conditions: datatypes.JSON([]byte(`{"event.amount": {"lt": 1000}}`)),
		Actions:    datatypes.JSON([]byte(`{}`)),
		Priority:   10,
		Active:     true,
	}})
	require.NoError(t, err)

	rules := append(exclusion, defaultMappingRules(t)...)
	events := []model.TaxEvent{
		makeEvent(1, model.EVDividends, "2024-01-10", "500"),
		makeEvent(2, model.EVDividends, "2024-02-10", "100000"),
	}

	result, err := Run(events, rules, Options{TaxYear: 2024})
	require.NoError(t, err)

	assert.Equal(t, []uint{1}, result.ExcludedEventIDs)
	assert.Equal(t, 1, result.Stats.EventsExcluded)
	fieldEquals(t, result, model.LFIncomeDividends, 100000)

	for _, m := range result.Mappings {
		assert.NotEqual(t, uint(1), m.TaxEventID, "excluded event contributed a mapping")
	}
}

// Детерминизм: повторный прогон даёт побайтно тот же результат.
func TestRun_Determinism(t *testing.T) {
	events := []model.TaxEvent{
		makeEvent(1, model.EVForeignDividends, "2024-06-15", "500000"),
		makeEvent(2, model.EVPropertySaleKZ, "2024-08-20", "1000000"),
		makeEvent(3, model.EVDeductionStandard, "2024-03-01", "200000"),
	}
	rules := defaultMappingRules(t)

	first, err := Run(events, rules, Options{TaxYear: 2024})
	require.NoError(t, err)
	second, err := Run(events, rules, Options{TaxYear: 2024})
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))
}

func TestRun_EmptyEventSet(t *testing.T) {
	_, err := Run(nil, defaultMappingRules(t), Options{TaxYear: 2024})
	assert.ErrorIs(t, err, ErrEmptyEventSet)

	result, err := Run(nil, defaultMappingRules(t), Options{TaxYear: 2024, AllowEmpty: true})
	require.NoError(t, err)
	assert.Empty(t, result.Mappings)
}

func TestRun_UnknownEventTypeIsStructural(t *testing.T) {
	events := []model.TaxEvent{
		makeEvent(1, "EV_BOGUS", "2024-01-01", "100"),
	}
	known := map[string]bool{model.EVDividends: true}

	_, err := Run(events, defaultMappingRules(t), Options{TaxYear: 2024, KnownEventTypes: known})
	var unknownErr *UnknownEventTypeError
	assert.ErrorAs(t, err, &unknownErr)
}

// Ошибка одного правила не роняет прогон.
func TestRun_RuleErrorIsNonFatal(t *testing.T) {
	broken, err := CompileRules([]model.TaxRule{{
		ID:         901,
		RuleCode:   "MAP_NO_AMOUNT",
		RuleType:   model.RuleMapping,
		Conditions: datatypes.JSON([]byte(`{"event.event_type": {"eq": "EV_ASSET_DECLARED"}}`)),
		Actions:    datatypes.JSON([]byte(`{"type": "map", "target": "LF_INCOME_OTHER"}`)),
		Priority:   50,
		Active:     true,
	}})
	require.NoError(t, err)

	rules := append(broken, defaultMappingRules(t)...)
	events := []model.TaxEvent{
		makeEvent(1, model.EVAssetDeclared, "2024-01-01", ""), // суммы нет
		makeEvent(2, model.EVDividends, "2024-02-01", "100000"),
	}

	result, err := Run(events, rules, Options{TaxYear: 2024})
	require.NoError(t, err)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, uint(901), result.Errors[0].RuleID)
	fieldEquals(t, result, model.LFIncomeDividends, 100000)
}

// map-действие с multiplier и округлением.
func TestRun_MapActionMultiplier(t *testing.T) {
	rules, err := CompileRules([]model.TaxRule{{
		ID:         902,
		RuleCode:   "MAP_HALF",
		RuleType:   model.RuleMapping,
		Conditions: datatypes.JSON([]byte(`{"event.event_type": {"eq": "EV_DIVIDENDS"}}`)),
		Actions:    datatypes.JSON([]byte(`{"type": "map", "target": "LF_INCOME_DIVIDENDS", "multiplier": "0.5", "round": 0}`)),
		Priority:   100,
		Active:     true,
	}})
	require.NoError(t, err)

	events := []model.TaxEvent{
		makeEvent(1, model.EVDividends, "2024-01-01", "333333"),
	}
	result, err := Run(events, rules, Options{TaxYear: 2024})
	require.NoError(t, err)

	// 333333 * 0.5 = 166666.5 → 166667 (половина вверх)
	fieldEquals(t, result, model.LFIncomeDividends, 166667)
}

// flag-правило над итогами.
func TestRun_FlagRule(t *testing.T) {
	flagRule, err := CompileRules([]model.TaxRule{{
		ID:         903,
		RuleCode:   "FLAG_TAX_DUE",
		RuleType:   model.RuleFlag,
		Conditions: datatypes.JSON([]byte(`{"LF_IPN_PAYABLE": {"gt": 0}}`)),
		Actions:    datatypes.JSON([]byte(`{"type": "flag", "set": {"has_tax_due": true}}`)),
		Priority:   400,
		Active:     true,
	}})
	require.NoError(t, err)

	rules := append(defaultMappingRules(t), flagRule...)
	events := []model.TaxEvent{
		makeEvent(1, model.EVDividends, "2024-01-01", "100000"),
	}
	result, err := Run(events, rules, Options{TaxYear: 2024})
	require.NoError(t, err)
	assert.True(t, result.Flags["has_tax_due"])
}
