package elementql

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/surrealdb/surrealrecord/pkg/constants"
	"github.com/surrealdb/surrealrecord/pkg/models"
)

// Operator is a filter comparison.
type Operator string

const (
	OpEq       Operator = "="
	OpNe       Operator = "!"
	OpGt       Operator = ">"
	OpGte      Operator = ">="
	OpLt       Operator = "<"
	OpLte      Operator = "<="
	OpContains Operator = "%"
)

// prefixes are tried in order, so two character operators come first.
var prefixes = []Operator{OpGte, OpLte, OpGt, OpLt, OpNe, OpContains, OpEq}

// Condition is one parsed filter entry.
//
// Property is set when the key addressed a property value (PROPERTY_<CODE>);
// Field then holds the original key without the operator.
type Condition struct {
	Field    string
	Property string
	Op       Operator
	Value    any
}

// SplitOperator splits the operator prefix off a filter key. Keys without a
// prefix compare for equality.
func SplitOperator(key string) (Operator, string) {
	for _, op := range prefixes {
		if rest, ok := strings.CutPrefix(key, string(op)); ok {
			return op, rest
		}
	}
	return OpEq, key
}

// ParseCondition splits an operator prefix off key. Keys without a prefix
// compare for equality. A slice value turns = and ! into set membership.
func ParseCondition(key string, value any) Condition {
	c := Condition{Value: value}
	c.Op, key = SplitOperator(key)

	c.Field = strings.TrimSpace(key)
	if code, ok := strings.CutPrefix(c.Field, constants.PropertyFilterPrefix); ok && code != "" {
		c.Property = code
	}
	return c
}

// IsProperty reports whether the condition addresses a property value.
func (c Condition) IsProperty() bool {
	return c.Property != ""
}

// String renders the condition back into filter key form.
func (c Condition) String() string {
	if c.Op == OpEq {
		return fmt.Sprintf("%s=%v", c.Field, c.Value)
	}
	return fmt.Sprintf("%s%s=%v", c.Op, c.Field, c.Value)
}

// Lookup resolves the value the condition compares against.
func (c Condition) Lookup(fields models.Fields) (any, bool) {
	if c.IsProperty() {
		prop, ok := fields.Properties()[c.Property]
		if !ok {
			return nil, false
		}
		return prop.Value(), true
	}
	v, ok := fields[c.Field]
	return v, ok
}

// Matches evaluates the condition against one row.
func (c Condition) Matches(fields models.Fields) bool {
	actual, _ := c.Lookup(fields)

	if set, ok := asSet(c.Value); ok {
		in := false
		for _, candidate := range set {
			if Equal(actual, candidate) {
				in = true
				break
			}
		}
		if c.Op == OpNe {
			return !in
		}
		return in
	}

	switch c.Op {
	case OpEq:
		return Equal(actual, c.Value)
	case OpNe:
		return !Equal(actual, c.Value)
	case OpContains:
		if actual == nil || c.Value == nil {
			return false
		}
		return strings.Contains(
			strings.ToLower(fmt.Sprint(actual)),
			strings.ToLower(fmt.Sprint(c.Value)),
		)
	}

	cmp, ok := Compare(actual, c.Value)
	if !ok {
		return false
	}
	switch c.Op {
	case OpGt:
		return cmp > 0
	case OpGte:
		return cmp >= 0
	case OpLt:
		return cmp < 0
	case OpLte:
		return cmp <= 0
	}
	return false
}

// MatchesAll reports whether every condition holds for the row.
func MatchesAll(conds []Condition, fields models.Fields) bool {
	for _, c := range conds {
		if !c.Matches(fields) {
			return false
		}
	}
	return true
}

// Equal compares two field values. Numbers compare by value regardless of
// their Go type, so 42 equals int64(42). Strings are never read as numbers:
// "42" does not equal 42 and "007" does not equal "7".
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if cmp, ok := Compare(a, b); ok {
		return cmp == 0
	}
	return reflect.DeepEqual(a, b)
}

// Compare orders two field values. ok is false when the values have no
// common ordering.
func Compare(a, b any) (cmp int, ok bool) {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return compareOrdered(af, bf), true
		}
	}

	if at, aok := a.(time.Time); aok {
		if bt, bok := b.(time.Time); bok {
			return at.Compare(bt), true
		}
	}

	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func compareOrdered(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func asSet(v any) ([]any, bool) {
	switch set := v.(type) {
	case nil, string, []byte:
		return nil, false
	case []any:
		return set, true
	case []string:
		out := make([]any, len(set))
		for i, s := range set {
			out[i] = s
		}
		return out, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
