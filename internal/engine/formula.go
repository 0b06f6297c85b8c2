package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Fields — текущая карта значений логических полей.
// Отсутствующее поле читается как 0.
type Fields map[string]decimal.Decimal

// Get returns the field value, zero when absent.
func (f Fields) Get(code string) decimal.Decimal {
	if v, ok := f[code]; ok {
		return v
	}
	return decimal.Zero
}

type formulaKind int

const (
	formulaLiteral formulaKind = iota
	formulaRef
	formulaOp
)

// Formula — разобранное дерево формулы calculation-правила.
type Formula struct {
	kind    formulaKind
	literal decimal.Decimal
	ref     string
	op      string
	args    []*Formula
}

var hundred = decimal.NewFromInt(100)

// ParseFormula разбирает JSON-формулу: число, {"ref":"LF_*"} или
// операция {"op":...}. Текстовая строка трактуется как legacy-формула.
func ParseFormula(raw json.RawMessage) (*Formula, error) {
	raw = json.RawMessage(strings.TrimSpace(string(raw)))
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty formula")
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		// строка-ссылка на поле либо legacy SUM()/SUB()/MUL()
		if strings.Contains(s, "(") {
			return ParseLegacyFormula(s)
		}
		return &Formula{kind: formulaRef, ref: s}, nil
	case '{':
		return parseFormulaObject(raw)
	default:
		d, err := decimal.NewFromString(string(raw))
		if err != nil {
			return nil, fmt.Errorf("bad literal %q: %w", string(raw), err)
		}
		return &Formula{kind: formulaLiteral, literal: d}, nil
	}
}

type formulaObject struct {
	Ref       string            `json:"ref"`
	Op        string            `json:"op"`
	Refs      []string          `json:"refs"`
	Args      []json.RawMessage `json:"args"`
	A         json.RawMessage   `json:"a"`
	B         json.RawMessage   `json:"b"`
	Cond      json.RawMessage   `json:"cond"`
	Then      json.RawMessage   `json:"then"`
	Else      json.RawMessage   `json:"else"`
	Precision json.RawMessage   `json:"precision"`
}

func parseFormulaObject(raw json.RawMessage) (*Formula, error) {
	var obj formulaObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}

	if obj.Ref != "" {
		return &Formula{kind: formulaRef, ref: obj.Ref}, nil
	}
	if obj.Op == "" {
		return nil, fmt.Errorf("formula object has neither ref nor op")
	}

	node := &Formula{kind: formulaOp, op: obj.Op}

	appendRaw := func(raws ...json.RawMessage) error {
		for _, r := range raws {
			if len(r) == 0 {
				continue
			}
			child, err := ParseFormula(r)
			if err != nil {
				return err
			}
			node.args = append(node.args, child)
		}
		return nil
	}

	switch {
	case obj.Op == "if":
		if len(obj.Cond) == 0 || len(obj.Then) == 0 {
			return nil, fmt.Errorf("if requires cond and then")
		}
		if err := appendRaw(obj.Cond, obj.Then, obj.Else); err != nil {
			return nil, err
		}
	case len(obj.Refs) > 0:
		for _, ref := range obj.Refs {
			node.args = append(node.args, &Formula{kind: formulaRef, ref: ref})
		}
	case len(obj.Args) > 0:
		if err := appendRaw(obj.Args...); err != nil {
			return nil, err
		}
	default:
		if err := appendRaw(obj.A, obj.B, obj.Precision); err != nil {
			return nil, err
		}
	}

	if err := checkArity(node); err != nil {
		return nil, err
	}
	return node, nil
}

func checkArity(node *Formula) error {
	n := len(node.args)
	switch node.op {
	case "sum", "max", "min":
		if n < 1 {
			return fmt.Errorf("%s requires operands", node.op)
		}
	case "sub", "mul", "div", "percent", "gt", "gte", "lt", "lte", "eq":
		if n != 2 {
			return fmt.Errorf("%s requires exactly 2 operands, got %d", node.op, n)
		}
	case "round":
		if n != 1 && n != 2 {
			return fmt.Errorf("round requires 1 or 2 operands, got %d", n)
		}
	case "floor", "ceil", "abs":
		if n != 1 {
			return fmt.Errorf("%s requires exactly 1 operand, got %d", node.op, n)
		}
	case "if":
		if n != 2 && n != 3 {
			return fmt.Errorf("if requires 2 or 3 operands, got %d", n)
		}
	default:
		return fmt.Errorf("unknown operation %q", node.op)
	}
	return nil
}

// ParseLegacyFormula разбирает текстовую форму SUM(LF_A, LF_B),
// SUB(LF_A, LF_B, ...) (лево-ассоциативно), MUL(LF_A, 0.10) и т.п.
func ParseLegacyFormula(text string) (*Formula, error) {
	text = strings.TrimSpace(text)
	open := strings.Index(text, "(")
	if open < 0 || !strings.HasSuffix(text, ")") {
		return nil, fmt.Errorf("malformed legacy formula %q", text)
	}

	name := strings.ToLower(strings.TrimSpace(text[:open]))
	var op string
	switch name {
	case "sum":
		op = "sum"
	case "sub":
		op = "sub"
	case "mul":
		op = "mul"
	case "div":
		op = "div"
	case "max":
		op = "max"
	case "min":
		op = "min"
	default:
		return nil, fmt.Errorf("unknown legacy function %q", name)
	}

	var args []*Formula
	for _, part := range strings.Split(text[open+1:len(text)-1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "LF_") {
			args = append(args, &Formula{kind: formulaRef, ref: part})
			continue
		}
		d, err := decimal.NewFromString(part)
		if err != nil {
			return nil, fmt.Errorf("bad legacy operand %q: %w", part, err)
		}
		args = append(args, &Formula{kind: formulaLiteral, literal: d})
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("legacy formula %q has no operands", text)
	}

	// SUB/DIV сворачиваются слева направо парами
	if op == "sub" || op == "div" {
		node := args[0]
		for _, next := range args[1:] {
			node = &Formula{kind: formulaOp, op: op, args: []*Formula{node, next}}
		}
		return node, nil
	}
	if (op == "mul") && len(args) > 2 {
		node := args[0]
		for _, next := range args[1:] {
			node = &Formula{kind: formulaOp, op: op, args: []*Formula{node, next}}
		}
		return node, nil
	}
	return &Formula{kind: formulaOp, op: op, args: args}, nil
}

// Eval вычисляет формулу над текущей картой полей.
func (f *Formula) Eval(fields Fields) decimal.Decimal {
	switch f.kind {
	case formulaLiteral:
		return f.literal
	case formulaRef:
		return fields.Get(f.ref)
	}

	switch f.op {
	case "sum":
		total := decimal.Zero
		for _, arg := range f.args {
			total = total.Add(arg.Eval(fields))
		}
		return total
	case "sub":
		return f.args[0].Eval(fields).Sub(f.args[1].Eval(fields))
	case "mul":
		return f.args[0].Eval(fields).Mul(f.args[1].Eval(fields))
	case "div":
		b := f.args[1].Eval(fields)
		if b.IsZero() {
			return decimal.Zero
		}
		return f.args[0].Eval(fields).Div(b)
	case "max":
		// неявный нижний предел 0
		result := decimal.Zero
		for _, arg := range f.args {
			if v := arg.Eval(fields); v.GreaterThan(result) {
				result = v
			}
		}
		return result
	case "min":
		result := f.args[0].Eval(fields)
		for _, arg := range f.args[1:] {
			if v := arg.Eval(fields); v.LessThan(result) {
				result = v
			}
		}
		return result
	case "round":
		precision := int32(0)
		if len(f.args) == 2 {
			precision = int32(f.args[1].Eval(fields).IntPart())
		}
		return f.args[0].Eval(fields).Round(precision)
	case "floor":
		return f.args[0].Eval(fields).Floor()
	case "ceil":
		return f.args[0].Eval(fields).Ceil()
	case "abs":
		return f.args[0].Eval(fields).Abs()
	case "percent":
		return f.args[0].Eval(fields).Mul(f.args[1].Eval(fields)).Div(hundred)
	case "if":
		if f.args[0].Eval(fields).GreaterThan(decimal.Zero) {
			return f.args[1].Eval(fields)
		}
		if len(f.args) == 3 {
			return f.args[2].Eval(fields)
		}
		return decimal.Zero
	case "gt":
		return boolDecimal(f.args[0].Eval(fields).GreaterThan(f.args[1].Eval(fields)))
	case "gte":
		return boolDecimal(f.args[0].Eval(fields).GreaterThanOrEqual(f.args[1].Eval(fields)))
	case "lt":
		return boolDecimal(f.args[0].Eval(fields).LessThan(f.args[1].Eval(fields)))
	case "lte":
		return boolDecimal(f.args[0].Eval(fields).LessThanOrEqual(f.args[1].Eval(fields)))
	case "eq":
		return boolDecimal(f.args[0].Eval(fields).Equal(f.args[1].Eval(fields)))
	}
	return decimal.Zero
}

func boolDecimal(b bool) decimal.Decimal {
	if b {
		return decimal.NewFromInt(1)
	}
	return decimal.Zero
}
