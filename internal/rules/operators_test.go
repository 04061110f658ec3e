package rules

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/solatis/ordergate/internal/types"
)

func num(s string) FieldValue { return NumberValue(decimal.RequireFromString(s)) }

func date(s string) FieldValue {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return DateValue(t)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name    string
		op      types.Operator
		value   FieldValue
		targets []FieldValue
		want    bool
	}{
		{name: "number equals by value", op: types.OpEquals, value: num("25"), targets: []FieldValue{num("25.00")}, want: true},
		{name: "number not equals", op: types.OpNotEquals, value: num("25"), targets: []FieldValue{num("20")}, want: true},
		{name: "number greater", op: types.OpGreaterThan, value: num("25"), targets: []FieldValue{num("20")}, want: true},
		{name: "number greater equal is false", op: types.OpGreaterThan, value: num("20"), targets: []FieldValue{num("20")}, want: false},
		{name: "number less", op: types.OpLessThan, value: num("0.5"), targets: []FieldValue{num("1")}, want: true},
		{name: "number in", op: types.OpIn, value: num("3"), targets: []FieldValue{num("1"), num("3.0")}, want: true},

		{name: "date after", op: types.OpGreaterThan, value: date("2024-03-02T00:00:00Z"), targets: []FieldValue{date("2024-03-01T23:59:59Z")}, want: true},
		{name: "date before", op: types.OpLessThan, value: date("2024-03-01T00:00:00Z"), targets: []FieldValue{date("2024-03-02T00:00:00Z")}, want: true},
		{name: "date equal across zones", op: types.OpEquals, value: date("2024-03-01T12:00:00+02:00"), targets: []FieldValue{date("2024-03-01T10:00:00Z")}, want: true},

		{name: "text equals ignores case", op: types.OpEquals, value: TextValue("France"), targets: []FieldValue{TextValue("FRANCE")}, want: true},
		{name: "text equals trims", op: types.OpEquals, value: TextValue(" FR "), targets: []FieldValue{TextValue("fr")}, want: true},
		{name: "text contains ignores case", op: types.OpContains, value: TextValue("Colis FRAGILE"), targets: []FieldValue{TextValue("fragile")}, want: true},
		{name: "text contains miss", op: types.OpContains, value: TextValue("standard"), targets: []FieldValue{TextValue("express")}, want: false},
		{name: "text in", op: types.OpIn, value: TextValue("de"), targets: []FieldValue{TextValue("FR"), TextValue("DE"), TextValue("ES")}, want: true},
		{name: "text greater is not orderable", op: types.OpGreaterThan, value: TextValue("b"), targets: []FieldValue{TextValue("a")}, want: false},

		{name: "enumerated equals exact", op: types.OpEquals, value: EnumeratedValue("express"), targets: []FieldValue{EnumeratedValue("express")}, want: true},
		{name: "enumerated equals is case sensitive", op: types.OpEquals, value: EnumeratedValue("Express"), targets: []FieldValue{EnumeratedValue("express")}, want: false},

		{name: "mixed kinds never equal", op: types.OpEquals, value: TextValue("25"), targets: []FieldValue{num("25")}, want: false},
		{name: "mixed kinds not orderable", op: types.OpLessThan, value: num("1"), targets: []FieldValue{date("2024-01-01T00:00:00Z")}, want: false},
		{name: "no targets", op: types.OpEquals, value: num("1"), targets: nil, want: false},
		{name: "unknown operator", op: types.Operator("regex"), value: TextValue("a"), targets: []FieldValue{TextValue("a")}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.op, tt.value, tt.targets...); got != tt.want {
				t.Errorf("Compare() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompatibilityTable(t *testing.T) {
	want := map[types.ValueType][]types.Operator{
		types.ValueText:       {types.OpEquals, types.OpNotEquals, types.OpContains, types.OpIn},
		types.ValueNumber:     {types.OpEquals, types.OpNotEquals, types.OpGreaterThan, types.OpLessThan, types.OpIn},
		types.ValueDate:       {types.OpEquals, types.OpNotEquals, types.OpGreaterThan, types.OpLessThan},
		types.ValueEnumerated: {types.OpEquals, types.OpNotEquals, types.OpIn},
	}

	for vt, ops := range want {
		got := AllowedOperators(vt)
		if len(got) != len(ops) {
			t.Errorf("AllowedOperators(%s) = %v, want %v", vt, got, ops)
			continue
		}
		for i := range ops {
			if got[i] != ops[i] {
				t.Errorf("AllowedOperators(%s)[%d] = %s, want %s", vt, i, got[i], ops[i])
			}
		}
	}

	if OperatorAllowed(types.ValueDate, types.OpIn) {
		t.Error("in must not be allowed on date fields")
	}
	if OperatorAllowed("blob", types.OpEquals) {
		t.Error("unknown value types allow nothing")
	}
}
