package elementql

import (
	"fmt"
	"strings"

	"github.com/surrealdb/surrealrecord/pkg/constants"
)

// TableParam is the variable holding the container name in built queries.
const TableParam = "table"

// buildContext collects the variables of a query under unique names.
type buildContext struct {
	vars map[string]any
}

func newBuildContext() *buildContext {
	return &buildContext{vars: make(map[string]any)}
}

// addParam stores value under a fresh name derived from prefix and returns
// the name.
func (c *buildContext) addParam(prefix string, value any) string {
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s_%d", prefix, i)
		if _, exists := c.vars[name]; !exists {
			c.vars[name] = value
			return name
		}
	}
}

// Build compiles the query into SurrealQL and its variables.
//
// Base fields are top-level document fields, ID is the record id and
// property values live at PROPERTIES.<CODE>.VALUE.
func (q *ElementQuery) Build() (string, map[string]any) {
	c := newBuildContext()
	c.vars[TableParam] = string(q.container)

	parts := []string{
		q.buildSelectClause(),
		"FROM type::table($" + TableParam + ")",
	}

	if len(q.filter) > 0 {
		conds := make([]string, len(q.filter))
		for i, cond := range q.filter {
			conds[i] = buildCondition(c, cond)
		}
		parts = append(parts, "WHERE "+strings.Join(conds, " AND "))
	}

	if groupClause := q.buildGroupClause(); groupClause != "" {
		parts = append(parts, groupClause)
	}
	if orderClause := q.buildOrderClause(); orderClause != "" {
		parts = append(parts, orderClause)
	}

	if q.limit != nil {
		parts = append(parts, fmt.Sprintf("LIMIT %d", *q.limit))
	}
	if q.offset > 0 {
		parts = append(parts, fmt.Sprintf("START %d", q.offset))
	}

	return strings.Join(parts, " "), c.vars
}

// String returns the SurrealQL without its variables.
func (q *ElementQuery) String() string {
	sql, _ := q.Build()
	return sql
}

func (q *ElementQuery) buildSelectClause() string {
	if len(q.groupBy) > 0 {
		fields := make([]string, 0, len(q.groupBy)+1)
		for _, field := range q.groupBy {
			fields = append(fields, fieldPath(field))
		}
		fields = append(fields, "count() AS "+constants.CountField)
		return "SELECT " + strings.Join(fields, ", ")
	}

	if len(q.fields) == 0 {
		if q.withProps {
			return "SELECT *"
		}
		return "SELECT * OMIT " + constants.FieldProperties
	}

	fields := []string{"id"}
	for _, field := range q.fields {
		if field == constants.FieldID || field == constants.FieldProperties {
			continue
		}
		fields = append(fields, fieldPath(field))
	}
	if q.withProps {
		fields = append(fields, constants.FieldProperties)
	}
	return "SELECT " + strings.Join(fields, ", ")
}

func (q *ElementQuery) buildGroupClause() string {
	if len(q.groupBy) == 0 {
		return ""
	}

	groupFields := make([]string, len(q.groupBy))
	for i, field := range q.groupBy {
		groupFields[i] = fieldPath(field)
	}
	return "GROUP BY " + strings.Join(groupFields, ", ")
}

func (q *ElementQuery) buildOrderClause() string {
	if len(q.sort) == 0 {
		return ""
	}

	orderClauses := make([]string, len(q.sort))
	for i, order := range q.sort {
		clause := fieldPath(order.Field)
		if order.Desc {
			clause += " DESC"
		}
		orderClauses[i] = clause
	}
	return "ORDER BY " + strings.Join(orderClauses, ", ")
}

func buildCondition(c *buildContext, cond Condition) string {
	var target string
	switch {
	case cond.IsProperty():
		target = constants.FieldProperties + "." + escapeIdent(cond.Property) + "." + constants.PropertyValue
	case cond.Field == constants.FieldID:
		target = "record::id(id)"
	default:
		target = escapeIdent(cond.Field)
	}

	param := "$" + c.addParam("filter", cond.Value)

	if _, isSet := asSet(cond.Value); isSet {
		if cond.Op == OpNe {
			return target + " NOT IN " + param
		}
		return target + " IN " + param
	}

	switch cond.Op {
	case OpNe:
		return target + " != " + param
	case OpContains:
		return fmt.Sprintf("string::contains(string::lowercase(<string> %s), string::lowercase(<string> %s))", target, param)
	case OpEq:
		return target + " = " + param
	}
	return target + " " + string(cond.Op) + " " + param
}

// fieldPath maps an element field name onto its document path.
func fieldPath(field string) string {
	if field == constants.FieldID {
		return "id"
	}
	if code, ok := strings.CutPrefix(field, constants.PropertyFilterPrefix); ok && code != "" {
		return constants.FieldProperties + "." + escapeIdent(code) + "." + constants.PropertyValue
	}
	return escapeIdent(field)
}

// escapeIdent leaves plain names (letters, digits and underscores, not
// starting with a digit) bare unless they are reserved words. Anything else
// is wrapped in backticks.
func escapeIdent(ident string) string {
	if isPlainIdent(ident) && !isReservedWord(ident) {
		return ident
	}
	escaped := strings.ReplaceAll(ident, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "`", "\\`")
	return "`" + escaped + "`"
}

func isPlainIdent(ident string) bool {
	if ident == "" {
		return false
	}
	for i, r := range ident {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

var reservedWords = map[string]struct{}{
	"SELECT": {}, "FROM": {}, "WHERE": {}, "ORDER": {}, "BY": {}, "LIMIT": {},
	"START": {}, "FETCH": {}, "GROUP": {}, "SPLIT": {}, "RETURN": {},
	"PARALLEL": {}, "EXPLAIN": {}, "CREATE": {}, "UPDATE": {}, "DELETE": {},
	"RELATE": {}, "INSERT": {}, "DEFINE": {}, "REMOVE": {}, "INFO": {},
	"USE": {}, "BEGIN": {}, "CANCEL": {}, "COMMIT": {}, "IF": {}, "ELSE": {},
	"THEN": {}, "END": {}, "TYPE": {}, "DEFAULT": {}, "VALUE": {}, "OMIT": {},
	"ONLY": {}, "IN": {}, "NOT": {}, "AND": {}, "OR": {},
}

func isReservedWord(word string) bool {
	_, ok := reservedWords[strings.ToUpper(word)]
	return ok
}
