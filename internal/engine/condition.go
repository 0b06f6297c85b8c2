package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Match вычисляет JSON-условие правила над одним событием.
// Поддерживаются формы {"always":true}, {"all":[...]}, {"any":[...]}
// и предикаты вида {"event.amount":{"gt":100000}}. Имена без префикса
// "event." дополняются автоматически.
func Match(conditions json.RawMessage, view *EventView) (bool, error) {
	if len(conditions) == 0 {
		return false, fmt.Errorf("empty conditions")
	}

	var node map[string]json.RawMessage
	if err := json.Unmarshal(conditions, &node); err != nil {
		return false, fmt.Errorf("conditions are not an object: %w", err)
	}
	return matchNode(node, view)
}

func matchNode(node map[string]json.RawMessage, view *EventView) (bool, error) {
	if raw, ok := node["always"]; ok {
		var always bool
		if err := json.Unmarshal(raw, &always); err != nil {
			return false, fmt.Errorf("always: %w", err)
		}
		return always, nil
	}

	if raw, ok := node["all"]; ok {
		children, err := decodeList(raw)
		if err != nil {
			return false, fmt.Errorf("all: %w", err)
		}
		for _, child := range children {
			ok, err := matchNode(child, view)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}

	if raw, ok := node["any"]; ok {
		children, err := decodeList(raw)
		if err != nil {
			return false, fmt.Errorf("any: %w", err)
		}
		for _, child := range children {
			ok, err := matchNode(child, view)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}

	// предикаты по атрибутам: все ключи должны выполниться
	for field, raw := range node {
		ok, err := matchField(field, raw, view)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func decodeList(raw json.RawMessage) ([]map[string]json.RawMessage, error) {
	var children []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &children); err != nil {
		return nil, err
	}
	return children, nil
}

func matchField(field string, raw json.RawMessage, view *EventView) (bool, error) {
	name := strings.TrimPrefix(field, "event.")

	actual, known := view.Attr(name)
	if !known {
		return false, fmt.Errorf("unknown event attribute %q", field)
	}

	// скалярное значение — неявный eq
	var ops map[string]json.RawMessage
	if err := json.Unmarshal(raw, &ops); err != nil {
		var scalar interface{}
		if err := json.Unmarshal(raw, &scalar); err != nil {
			return false, fmt.Errorf("%s: %w", field, err)
		}
		return applyOperator("eq", actual, scalar), nil
	}

	for op, operandRaw := range ops {
		var operand interface{}
		if err := json.Unmarshal(operandRaw, &operand); err != nil {
			return false, fmt.Errorf("%s.%s: %w", field, op, err)
		}
		if !applyOperator(op, actual, operand) {
			return false, nil
		}
	}
	return true, nil
}

// applyOperator применяет оператор; неизвестный оператор — false.
func applyOperator(op string, actual, operand interface{}) bool {
	switch op {
	case "=", "eq":
		return looseEqual(actual, operand)
	case "!=", "neq":
		return !looseEqual(actual, operand)
	case "in":
		return inList(actual, operand, true)
	case "not_in":
		return inList(actual, operand, false)
	case ">", "gt":
		return compareNumeric(actual, operand, func(c int) bool { return c > 0 })
	case ">=", "gte":
		return compareNumeric(actual, operand, func(c int) bool { return c >= 0 })
	case "<", "lt":
		return compareNumeric(actual, operand, func(c int) bool { return c < 0 })
	case "<=", "lte":
		return compareNumeric(actual, operand, func(c int) bool { return c <= 0 })
	case "exists":
		return actual != nil
	case "not_exists":
		return actual == nil
	case "contains":
		return stringPredicate(actual, operand, strings.Contains)
	case "starts_with":
		return stringPredicate(actual, operand, strings.HasPrefix)
	case "ends_with":
		return stringPredicate(actual, operand, strings.HasSuffix)
	}
	return false
}

// looseEqual сравнивает числа как числа, остальное — как строки.
func looseEqual(actual, operand interface{}) bool {
	if actual == nil || operand == nil {
		return actual == nil && operand == nil
	}
	a, aok := coerceDecimal(actual)
	b, bok := coerceDecimal(operand)
	if aok && bok {
		return a.Equal(b)
	}
	return stringify(actual) == stringify(operand)
}

func inList(actual, operand interface{}, want bool) bool {
	list, ok := operand.([]interface{})
	if !ok {
		return false
	}
	for _, item := range list {
		if looseEqual(actual, item) {
			return want
		}
	}
	return !want
}

func compareNumeric(actual, operand interface{}, pred func(int) bool) bool {
	a, aok := coerceDecimal(actual)
	b, bok := coerceDecimal(operand)
	if !aok || !bok {
		return false
	}
	return pred(a.Cmp(b))
}

func stringPredicate(actual, operand interface{}, pred func(string, string) bool) bool {
	if actual == nil || operand == nil {
		return false
	}
	return pred(stringify(actual), stringify(operand))
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case decimal.Decimal:
		return val.String()
	}
	return fmt.Sprintf("%v", v)
}
