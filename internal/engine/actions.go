package engine

import (
	"encoding/json"
	"fmt"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/shopspring/decimal"
)

// Виды действий правила. Действия хранятся в JSON и разбираются
// в типизированные варианты при компиляции каталога.
const (
	ActionMap  = "map"
	ActionCalc = "calc"
	ActionFlag = "flag"
)

// Action — один типизированный вариант действия.
type Action struct {
	Type string

	// map
	Target       string
	AmountSource string // "" | "event.amount" | "metadata.<ключ>"
	FixedAmount  *decimal.Decimal
	Multiplier   *decimal.Decimal
	Round        *int32

	// calc
	Formula *Formula
	Min     *decimal.Decimal
	Max     *decimal.Decimal

	// flag
	Set map[string]bool
}

type rawAction struct {
	Type         string          `json:"type"`
	Target       string          `json:"target"`
	AmountSource string          `json:"amount_source"`
	Amount       json.RawMessage `json:"amount"`
	Multiplier   json.RawMessage `json:"multiplier"`
	Round        *int32          `json:"round"`
	Formula      json.RawMessage `json:"formula"`
	Min          json.RawMessage `json:"min"`
	Max          json.RawMessage `json:"max"`
	Set          map[string]bool `json:"set"`
}

// ParseActions разбирает JSON действий правила (объект или список).
// Exclusion-правила действий не несут: исключение выражается самим
// совпадением условий.
func ParseActions(ruleType model.RuleType, raw json.RawMessage) ([]Action, error) {
	if ruleType == model.RuleExclusion {
		return nil, nil
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("rule has no actions")
	}

	var items []json.RawMessage
	trimmed := string(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
	} else {
		items = []json.RawMessage{raw}
	}

	actions := make([]Action, 0, len(items))
	for i, item := range items {
		action, err := parseAction(ruleType, item)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		actions = append(actions, action)
	}
	return actions, nil
}

func parseAction(ruleType model.RuleType, raw json.RawMessage) (Action, error) {
	var ra rawAction
	if err := json.Unmarshal(raw, &ra); err != nil {
		return Action{}, err
	}

	// тип действия по умолчанию следует из типа правила
	if ra.Type == "" {
		switch ruleType {
		case model.RuleMapping:
			ra.Type = ActionMap
		case model.RuleCalculation:
			ra.Type = ActionCalc
		case model.RuleFlag:
			ra.Type = ActionFlag
		}
	}

	switch ra.Type {
	case ActionMap:
		return parseMapAction(ra)
	case ActionCalc:
		return parseCalcAction(ra)
	case ActionFlag:
		if len(ra.Set) == 0 {
			return Action{}, fmt.Errorf("flag action has empty set")
		}
		return Action{Type: ActionFlag, Set: ra.Set}, nil
	}
	return Action{}, fmt.Errorf("unknown action type %q", ra.Type)
}

func parseMapAction(ra rawAction) (Action, error) {
	if ra.Target == "" {
		return Action{}, fmt.Errorf("map action has no target")
	}
	action := Action{
		Type:         ActionMap,
		Target:       ra.Target,
		AmountSource: ra.AmountSource,
		Round:        ra.Round,
	}
	if len(ra.Amount) > 0 {
		d, err := decodeDecimal(ra.Amount)
		if err != nil {
			return Action{}, fmt.Errorf("amount: %w", err)
		}
		action.FixedAmount = &d
	}
	if len(ra.Multiplier) > 0 {
		d, err := decodeDecimal(ra.Multiplier)
		if err != nil {
			return Action{}, fmt.Errorf("multiplier: %w", err)
		}
		action.Multiplier = &d
	}
	return action, nil
}

func parseCalcAction(ra rawAction) (Action, error) {
	if ra.Target == "" {
		return Action{}, fmt.Errorf("calc action has no target")
	}
	if len(ra.Formula) == 0 {
		return Action{}, fmt.Errorf("calc action has no formula")
	}
	formula, err := ParseFormula(ra.Formula)
	if err != nil {
		return Action{}, fmt.Errorf("formula: %w", err)
	}
	action := Action{
		Type:    ActionCalc,
		Target:  ra.Target,
		Formula: formula,
		Round:   ra.Round,
	}
	if len(ra.Min) > 0 {
		d, err := decodeDecimal(ra.Min)
		if err != nil {
			return Action{}, fmt.Errorf("min: %w", err)
		}
		action.Min = &d
	}
	if len(ra.Max) > 0 {
		d, err := decodeDecimal(ra.Max)
		if err != nil {
			return Action{}, fmt.Errorf("max: %w", err)
		}
		action.Max = &d
	}
	return action, nil
}

func decodeDecimal(raw json.RawMessage) (decimal.Decimal, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return decimal.NewFromString(s)
	}
	return decimal.NewFromString(string(raw))
}

// CompiledRule — правило с разобранными условиями и действиями.
type CompiledRule struct {
	ID       uint
	RuleCode string
	Type     model.RuleType
	Priority int
	Conds    json.RawMessage
	Actions  []Action
}

// CompileRules переводит записи справочника в типизированную форму.
// Некорректная запись каталога — структурный дефект, а не ошибка
// выполнения: компиляция прерывается.
func CompileRules(rules []model.TaxRule) ([]CompiledRule, error) {
	compiled := make([]CompiledRule, 0, len(rules))
	for _, rule := range rules {
		actions, err := ParseActions(rule.RuleType, json.RawMessage(rule.Actions))
		if err != nil {
			return nil, fmt.Errorf("rule %s (id=%d): %w", rule.RuleCode, rule.ID, err)
		}
		if len(rule.Conditions) == 0 {
			return nil, fmt.Errorf("rule %s (id=%d): empty conditions", rule.RuleCode, rule.ID)
		}
		compiled = append(compiled, CompiledRule{
			ID:       rule.ID,
			RuleCode: rule.RuleCode,
			Type:     rule.RuleType,
			Priority: rule.Priority,
			Conds:    json.RawMessage(rule.Conditions),
			Actions:  actions,
		})
	}
	return compiled, nil
}
