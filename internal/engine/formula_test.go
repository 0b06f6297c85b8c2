package engine

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalFormula(t *testing.T, raw string, fields Fields) decimal.Decimal {
	f, err := ParseFormula(json.RawMessage(raw))
	require.NoError(t, err)
	return f.Eval(fields)
}

func TestFormula_LiteralAndRef(t *testing.T) {
	fields := Fields{"LF_INCOME_TOTAL": decimal.NewFromInt(1000)}

	assert.True(t, evalFormula(t, `42`, fields).Equal(decimal.NewFromInt(42)))
	assert.True(t, evalFormula(t, `{"ref": "LF_INCOME_TOTAL"}`, fields).Equal(decimal.NewFromInt(1000)))
	// отсутствующее поле читается как 0
	assert.True(t, evalFormula(t, `{"ref": "LF_MISSING"}`, fields).IsZero())
}

func TestFormula_Operations(t *testing.T) {
	fields := Fields{
		"LF_A": decimal.NewFromInt(100),
		"LF_B": decimal.NewFromInt(30),
	}

	tests := []struct {
		name    string
		formula string
		want    string
	}{
		{"sum refs", `{"op": "sum", "refs": ["LF_A", "LF_B"]}`, "130"},
		{"sum args", `{"op": "sum", "args": [{"ref": "LF_A"}, 5, 10]}`, "115"},
		{"sub", `{"op": "sub", "a": {"ref": "LF_A"}, "b": {"ref": "LF_B"}}`, "70"},
		{"mul", `{"op": "mul", "a": {"ref": "LF_B"}, "b": 2}`, "60"},
		{"div", `{"op": "div", "a": {"ref": "LF_A"}, "b": 4}`, "25"},
		{"div by zero yields 0", `{"op": "div", "a": {"ref": "LF_A"}, "b": 0}`, "0"},
		{"max has implicit zero floor", `{"op": "max", "args": [{"op": "sub", "a": {"ref": "LF_B"}, "b": {"ref": "LF_A"}}]}`, "0"},
		{"min", `{"op": "min", "refs": ["LF_A", "LF_B"]}`, "30"},
		{"round default 0", `{"op": "round", "args": [{"op": "div", "a": {"ref": "LF_A"}, "b": 3}]}`, "33"},
		{"round precision", `{"op": "round", "args": [{"op": "div", "a": {"ref": "LF_A"}, "b": 3}, 2]}`, "33.33"},
		{"floor", `{"op": "floor", "args": [{"op": "div", "a": {"ref": "LF_A"}, "b": 3}]}`, "33"},
		{"ceil", `{"op": "ceil", "args": [{"op": "div", "a": {"ref": "LF_A"}, "b": 3}]}`, "34"},
		{"abs", `{"op": "abs", "args": [{"op": "sub", "a": {"ref": "LF_B"}, "b": {"ref": "LF_A"}}]}`, "70"},
		{"percent", `{"op": "percent", "a": {"ref": "LF_A"}, "b": 10}`, "10"},
		{"if true", `{"op": "if", "cond": {"ref": "LF_A"}, "then": 1, "else": 2}`, "1"},
		{"if false default 0", `{"op": "if", "cond": {"ref": "LF_MISSING"}, "then": 1}`, "0"},
		{"gt", `{"op": "gt", "a": {"ref": "LF_A"}, "b": {"ref": "LF_B"}}`, "1"},
		{"lte", `{"op": "lte", "a": {"ref": "LF_A"}, "b": {"ref": "LF_B"}}`, "0"},
		{"eq", `{"op": "eq", "a": {"ref": "LF_A"}, "b": 100}`, "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, err := decimal.NewFromString(tt.want)
			require.NoError(t, err)
			got := evalFormula(t, tt.formula, fields)
			assert.True(t, got.Equal(want), "got %s, want %s", got, want)
		})
	}
}

func TestFormula_RoundHalfUp(t *testing.T) {
	fields := Fields{"LF_X": decimal.RequireFromString("2.5")}
	got := evalFormula(t, `{"op": "round", "args": [{"ref": "LF_X"}]}`, fields)
	assert.True(t, got.Equal(decimal.NewFromInt(3)), "expected half-up rounding, got %s", got)
}

func TestFormula_Legacy(t *testing.T) {
	fields := Fields{
		"LF_A": decimal.NewFromInt(100),
		"LF_B": decimal.NewFromInt(30),
		"LF_C": decimal.NewFromInt(20),
	}

	tests := []struct {
		formula string
		want    int64
	}{
		{"SUM(LF_A, LF_B, LF_C)", 150},
		{"SUB(LF_A, LF_B, LF_C)", 50}, // лево-ассоциативно: (100-30)-20
		{"MUL(LF_A, 0.10)", 10},
		{"MAX(LF_B, LF_C)", 30},
		{"MIN(LF_B, LF_C)", 20},
	}
	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			f, err := ParseLegacyFormula(tt.formula)
			require.NoError(t, err)
			got := f.Eval(fields)
			assert.True(t, got.Equal(decimal.NewFromInt(tt.want)), "got %s", got)
		})
	}
}

func TestFormula_LegacyViaParseFormula(t *testing.T) {
	fields := Fields{"LF_A": decimal.NewFromInt(7)}
	got := evalFormula(t, `"SUM(LF_A, 3)"`, fields)
	assert.True(t, got.Equal(decimal.NewFromInt(10)))
}

func TestFormula_Errors(t *testing.T) {
	cases := []string{
		`{"op": "sub", "a": 1}`,            // не хватает операнда
		`{"op": "unknown", "a": 1, "b": 2}`, // неизвестная операция
		`{}`,                               // ни ref, ни op
		`"BOGUS(LF_A)"`,                    // неизвестная legacy-функция
	}
	for _, raw := range cases {
		_, err := ParseFormula(json.RawMessage(raw))
		assert.Error(t, err, raw)
	}
}
