package engine

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/salyqtech/salyq-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// Options управляют одним прогоном движка.
type Options struct {
	TaxYear    int
	AllowEmpty bool
	// KnownEventTypes — коды справочника; событие с кодом вне
	// справочника — структурный дефект.
	KnownEventTypes map[string]bool
	// KnownFields — коды логических полей справочника.
	KnownFields map[string]bool
}

// Mapping — след одного map-действия.
type Mapping struct {
	TaxEventID   uint            `json:"tax_event_id"`
	TaxYear      int             `json:"tax_year"`
	LogicalField string          `json:"logical_field"`
	Amount       decimal.Decimal `json:"amount"`
	RuleID       uint            `json:"rule_id"`
}

// Calculation — след одного calc-действия.
type Calculation struct {
	LogicalField string          `json:"logical_field"`
	Value        decimal.Decimal `json:"value"`
	RuleID       uint            `json:"rule_id"`
}

// RuleError — нефатальная ошибка применения правила.
type RuleError struct {
	RuleID  uint   `json:"rule_id"`
	EventID *uint  `json:"event_id,omitempty"`
	Message string `json:"message"`
}

// Stats — счётчики прогона.
type Stats struct {
	EventsProcessed int `json:"events_processed"`
	EventsExcluded  int `json:"events_excluded"`
	RulesMatched    int `json:"rules_matched"`
	MappingsCreated int `json:"mappings_created"`
}

// Result — результат прогона движка.
type Result struct {
	FieldValues      Fields          `json:"field_values"`
	Mappings         []Mapping       `json:"mappings"`
	Calculations     []Calculation   `json:"calculations"`
	Flags            map[string]bool `json:"flags"`
	ExcludedEventIDs []uint          `json:"excluded_event_ids"`
	Errors           []RuleError     `json:"errors"`
	Stats            Stats           `json:"stats"`
}

// ErrEmptyEventSet возвращается, если событий нет и AllowEmpty не задан.
var ErrEmptyEventSet = fmt.Errorf("no tax events for the requested period")

// UnknownEventTypeError — структурный дефект: событие ссылается на код
// вне справочника.
type UnknownEventTypeError struct {
	EventID   uint
	EventType string
}

func (e *UnknownEventTypeError) Error() string {
	return fmt.Sprintf("event %d references unknown event type %q", e.EventID, e.EventType)
}

// Run выполняет семь фаз движка над снимком событий и правил.
// Прогон детерминирован: события идут в порядке (event_date, id),
// правила — в порядке (priority, created_at), заданном каталогом.
func Run(events []model.TaxEvent, rules []CompiledRule, opts Options) (*Result, error) {
	if len(events) == 0 && !opts.AllowEmpty {
		return nil, ErrEmptyEventSet
	}

	// структурная проверка кодов до начала расчёта
	if opts.KnownEventTypes != nil {
		for _, event := range events {
			if !opts.KnownEventTypes[event.EventType] {
				return nil, &UnknownEventTypeError{EventID: event.ID, EventType: event.EventType}
			}
		}
	}

	var exclusionRules, mappingRules, calcRules, flagRules []CompiledRule
	for _, rule := range rules {
		switch rule.Type {
		case model.RuleExclusion:
			exclusionRules = append(exclusionRules, rule)
		case model.RuleMapping:
			mappingRules = append(mappingRules, rule)
		case model.RuleCalculation:
			calcRules = append(calcRules, rule)
		case model.RuleFlag:
			flagRules = append(flagRules, rule)
		}
	}

	ctx := &Result{
		FieldValues: Fields{},
		Flags:       map[string]bool{},
	}
	ctx.Stats.EventsProcessed = len(events)

	views := make([]*EventView, len(events))
	for i := range events {
		views[i] = NewEventView(&events[i])
	}

	excluded := runExclusionPhase(ctx, views, exclusionRules)
	runMappingPhase(ctx, views, mappingRules, excluded, opts)
	runBaseTotalsPhase(ctx)
	runCalculationPhase(ctx, calcRules)
	runDerivedTotalsPhase(ctx)
	runFlagRulesPhase(ctx, flagRules)
	runAutoFlagsPhase(ctx)

	logger.Debug("Rule engine run completed", map[string]interface{}{
		"tax_year":         opts.TaxYear,
		"events_processed": ctx.Stats.EventsProcessed,
		"events_excluded":  ctx.Stats.EventsExcluded,
		"rules_matched":    ctx.Stats.RulesMatched,
		"mappings_created": ctx.Stats.MappingsCreated,
		"fields":           len(ctx.FieldValues),
		"errors":           len(ctx.Errors),
	})

	return ctx, nil
}

// Фаза 1 — исключение. Первое совпавшее exclusion-правило помечает
// событие и снимает его с дальнейших проверок.
func runExclusionPhase(ctx *Result, views []*EventView, rules []CompiledRule) map[uint]bool {
	excluded := make(map[uint]bool)
	for _, view := range views {
		event := view.Event()
		for _, rule := range rules {
			ok, err := Match(rule.Conds, view)
			if err != nil {
				ctx.addRuleError(rule.ID, &event.ID, err)
				continue
			}
			if ok {
				excluded[event.ID] = true
				ctx.ExcludedEventIDs = append(ctx.ExcludedEventIDs, event.ID)
				ctx.Stats.EventsExcluded++
				ctx.Stats.RulesMatched++
				break
			}
		}
	}
	sort.Slice(ctx.ExcludedEventIDs, func(i, j int) bool {
		return ctx.ExcludedEventIDs[i] < ctx.ExcludedEventIDs[j]
	})
	return excluded
}

// Фаза 2 — маппинг. Каждое совпавшее mapping-правило исполняет все
// свои действия; map-действия прибавляют сумму к полю.
func runMappingPhase(ctx *Result, views []*EventView, rules []CompiledRule, excluded map[uint]bool, opts Options) {
	for _, view := range views {
		event := view.Event()
		if excluded[event.ID] {
			continue
		}
		for _, rule := range rules {
			ok, err := Match(rule.Conds, view)
			if err != nil {
				ctx.addRuleError(rule.ID, &event.ID, err)
				continue
			}
			if !ok {
				continue
			}
			ctx.Stats.RulesMatched++

			for _, action := range rule.Actions {
				switch action.Type {
				case ActionMap:
					if err := applyMapAction(ctx, view, rule, action, opts); err != nil {
						ctx.addRuleError(rule.ID, &event.ID, err)
					}
				case ActionFlag:
					for name, value := range action.Set {
						ctx.Flags[name] = value
					}
				default:
					ctx.addRuleError(rule.ID, &event.ID,
						fmt.Errorf("action %q is not valid in a mapping rule", action.Type))
				}
			}
		}
	}
}

func applyMapAction(ctx *Result, view *EventView, rule CompiledRule, action Action, opts Options) error {
	if opts.KnownFields != nil && !opts.KnownFields[action.Target] {
		return fmt.Errorf("map action targets unknown logical field %q", action.Target)
	}
	event := view.Event()

	amount, err := resolveAmount(view, action)
	if err != nil {
		return err
	}
	if action.Multiplier != nil {
		amount = amount.Mul(*action.Multiplier)
	}
	if action.Round != nil {
		amount = amount.Round(*action.Round)
	}

	ctx.FieldValues[action.Target] = ctx.FieldValues.Get(action.Target).Add(amount)
	ctx.Mappings = append(ctx.Mappings, Mapping{
		TaxEventID:   event.ID,
		TaxYear:      event.TaxYear,
		LogicalField: action.Target,
		Amount:       amount,
		RuleID:       rule.ID,
	})
	ctx.Stats.MappingsCreated++
	return nil
}

// resolveAmount — источник суммы map-действия: event.amount по
// умолчанию, metadata.<ключ> или фиксированное число из действия.
func resolveAmount(view *EventView, action Action) (decimal.Decimal, error) {
	source := action.AmountSource
	if source == "" || source == "event.amount" {
		if amount := view.Event().Amount; amount != nil {
			return *amount, nil
		}
		if action.FixedAmount != nil {
			return *action.FixedAmount, nil
		}
		return decimal.Zero, fmt.Errorf("event %d has no amount", view.Event().ID)
	}
	if key, ok := cutMetadataPrefix(source); ok {
		if amount, found := view.MetadataAmount(key); found {
			return amount, nil
		}
		if action.FixedAmount != nil {
			return *action.FixedAmount, nil
		}
		return decimal.Zero, fmt.Errorf("metadata key %q is absent or not numeric", key)
	}
	if action.FixedAmount != nil {
		return *action.FixedAmount, nil
	}
	return decimal.Zero, fmt.Errorf("unknown amount source %q", source)
}

func cutMetadataPrefix(source string) (string, bool) {
	const prefix = "metadata."
	if len(source) > len(prefix) && source[:len(prefix)] == prefix {
		return source[len(prefix):], true
	}
	const eventPrefix = "event.metadata."
	if len(source) > len(eventPrefix) && source[:len(eventPrefix)] == eventPrefix {
		return source[len(eventPrefix):], true
	}
	return "", false
}

// Фаза 3 — базовые итоги. Подытог записывается, только если поле ещё
// не задано правилами и вычисленное значение положительно. Это делает
// движок работоспособным без явных calculation-правил года.
func runBaseTotalsPhase(ctx *Result) {
	setSubtotal := func(target string, parts []string) {
		if _, exists := ctx.FieldValues[target]; exists {
			return
		}
		total := decimal.Zero
		for _, code := range parts {
			total = total.Add(ctx.FieldValues.Get(code))
		}
		if total.GreaterThan(decimal.Zero) {
			ctx.FieldValues[target] = total
		}
	}

	setSubtotal(model.LFIncomePropertyTotal, model.PropertyIncomeFields)
	setSubtotal(model.LFIncomeForeignTotal, model.ForeignIncomeFields)
	setSubtotal(model.LFDeductionTotal, model.DeductionFields)
	setSubtotal(model.LFAdjustmentTotal, model.AdjustmentFields)
	setSubtotal(model.LFIncomeTotal, model.PrimaryIncomeFields)
}

// Фаза 4 — calculation-правила в порядке каталога; calc-действие
// перезаписывает целевое поле.
func runCalculationPhase(ctx *Result, rules []CompiledRule) {
	for _, rule := range rules {
		ok, err := MatchFields(rule.Conds, ctx.FieldValues)
		if err != nil {
			ctx.addRuleError(rule.ID, nil, err)
			continue
		}
		if !ok {
			continue
		}
		ctx.Stats.RulesMatched++

		for _, action := range rule.Actions {
			if action.Type != ActionCalc {
				ctx.addRuleError(rule.ID, nil,
					fmt.Errorf("action %q is not valid in a calculation rule", action.Type))
				continue
			}
			value := action.Formula.Eval(ctx.FieldValues)
			if action.Round != nil {
				value = value.Round(*action.Round)
			}
			if action.Min != nil && value.LessThan(*action.Min) {
				value = *action.Min
			}
			if action.Max != nil && value.GreaterThan(*action.Max) {
				value = *action.Max
			}
			ctx.FieldValues[action.Target] = value
			ctx.Calculations = append(ctx.Calculations, Calculation{
				LogicalField: action.Target,
				Value:        value,
				RuleID:       rule.ID,
			})
		}
	}
}

var ipnRate = decimal.NewFromFloat(0.10)

// Фаза 5 — производные итоги, если не заданы или нулевые.
func runDerivedTotalsPhase(ctx *Result) {
	missingOrZero := func(code string) bool {
		v, ok := ctx.FieldValues[code]
		return !ok || v.IsZero()
	}

	if missingOrZero(model.LFTaxableIncome) {
		taxable := ctx.FieldValues.Get(model.LFIncomeTotal).
			Sub(ctx.FieldValues.Get(model.LFAdjustmentTotal)).
			Sub(ctx.FieldValues.Get(model.LFDeductionTotal))
		if taxable.IsNegative() {
			taxable = decimal.Zero
		}
		ctx.FieldValues[model.LFTaxableIncome] = taxable
	}

	if missingOrZero(model.LFIPNCalculated) {
		// округление до целых тенге, половина — вверх
		ipn := ctx.FieldValues.Get(model.LFTaxableIncome).Mul(ipnRate).Round(0)
		ctx.FieldValues[model.LFIPNCalculated] = ipn
	}

	if missingOrZero(model.LFIPNPayable) {
		payable := ctx.FieldValues.Get(model.LFIPNCalculated).
			Sub(ctx.FieldValues.Get(model.LFForeignTaxCreditGeneral)).
			Sub(ctx.FieldValues.Get(model.LFForeignTaxCreditCFC))
		if payable.IsNegative() {
			payable = decimal.Zero
		}
		ctx.FieldValues[model.LFIPNPayable] = payable
	}
}

// Фаза 6 — flag-правила: условия вычисляются над полями, совпавшие
// правила вливают свой set в флаги.
func runFlagRulesPhase(ctx *Result, rules []CompiledRule) {
	for _, rule := range rules {
		ok, err := MatchFields(rule.Conds, ctx.FieldValues)
		if err != nil {
			ctx.addRuleError(rule.ID, nil, err)
			continue
		}
		if !ok {
			continue
		}
		ctx.Stats.RulesMatched++
		for _, action := range rule.Actions {
			if action.Type != ActionFlag {
				ctx.addRuleError(rule.ID, nil,
					fmt.Errorf("action %q is not valid in a flag rule", action.Type))
				continue
			}
			for name, value := range action.Set {
				ctx.Flags[name] = value
			}
		}
	}
}

// Фаза 7 — автофлаги из итогов. Устанавливаются только истинные флаги.
func runAutoFlagsPhase(ctx *Result) {
	positive := func(code string) bool {
		return ctx.FieldValues.Get(code).GreaterThan(decimal.Zero)
	}

	if positive(model.LFIncomeTotal) {
		ctx.Flags["has_income"] = true
	}
	if positive(model.LFIncomeForeignTotal) {
		ctx.Flags["has_foreign_income"] = true
		ctx.Flags["pril_2"] = true
	}
	if positive(model.LFIncomeCFCProfit) {
		ctx.Flags["has_cfc"] = true
		ctx.Flags["pril_3"] = true
	}
	if positive(model.LFDeductionTotal) {
		ctx.Flags["has_deductions"] = true
	}

	pril1Fields := []string{
		model.LFIncomePropertyTotal,
		model.LFIncomeRent,
		model.LFIncomeAssignment,
		model.LFIncomeIPAssets,
		model.LFIncomeDividends,
		model.LFIncomeInterest,
		model.LFIncomeWinnings,
		model.LFIncomeRoyalty,
		model.LFIncomePrizes,
		model.LFIncomeOther,
	}
	for _, code := range pril1Fields {
		if positive(code) {
			ctx.Flags["pril_1"] = true
			break
		}
	}
}

func (r *Result) addRuleError(ruleID uint, eventID *uint, err error) {
	r.Errors = append(r.Errors, RuleError{
		RuleID:  ruleID,
		EventID: eventID,
		Message: err.Error(),
	})
}

// MatchFields вычисляет условие flag/calculation-правила над картой
// полей: имена предикатов — коды LF_*, отсутствующее поле читается как 0.
func MatchFields(conditions json.RawMessage, fields Fields) (bool, error) {
	if len(conditions) == 0 {
		return false, fmt.Errorf("empty conditions")
	}
	var node map[string]json.RawMessage
	if err := json.Unmarshal(conditions, &node); err != nil {
		return false, fmt.Errorf("conditions are not an object: %w", err)
	}
	return matchFieldsNode(node, fields)
}

func matchFieldsNode(node map[string]json.RawMessage, fields Fields) (bool, error) {
	if raw, ok := node["always"]; ok {
		var always bool
		if err := json.Unmarshal(raw, &always); err != nil {
			return false, err
		}
		return always, nil
	}
	if raw, ok := node["all"]; ok {
		children, err := decodeList(raw)
		if err != nil {
			return false, err
		}
		for _, child := range children {
			ok, err := matchFieldsNode(child, fields)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
	if raw, ok := node["any"]; ok {
		children, err := decodeList(raw)
		if err != nil {
			return false, err
		}
		for _, child := range children {
			ok, err := matchFieldsNode(child, fields)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}

	for code, raw := range node {
		actual := fields.Get(code)

		var ops map[string]json.RawMessage
		if err := json.Unmarshal(raw, &ops); err != nil {
			var scalar interface{}
			if err := json.Unmarshal(raw, &scalar); err != nil {
				return false, fmt.Errorf("%s: %w", code, err)
			}
			if !applyOperator("eq", actual, scalar) {
				return false, nil
			}
			continue
		}
		for op, operandRaw := range ops {
			var operand interface{}
			if err := json.Unmarshal(operandRaw, &operand); err != nil {
				return false, fmt.Errorf("%s.%s: %w", code, op, err)
			}
			if !applyOperator(op, actual, operand) {
				return false, nil
			}
		}
	}
	return true, nil
}
