package elementql

import (
	"fmt"
	"sort"
	"strings"

	"github.com/surrealdb/surrealrecord/pkg/constants"
	"github.com/surrealdb/surrealrecord/pkg/models"
)

// Apply evaluates the query over rows held in memory. Rows are expected to
// carry their PROPERTIES so that property filters can see them; Apply strips
// them afterwards unless WithProps was requested. The input rows are not
// modified.
func (q *ElementQuery) Apply(rows []models.Fields) []models.Fields {
	matched := make([]models.Fields, 0, len(rows))
	for _, row := range rows {
		if MatchesAll(q.filter, row) {
			matched = append(matched, row)
		}
	}

	if len(q.groupBy) > 0 {
		matched = group(matched, q.groupBy)
	}

	q.sortRows(matched)

	matched = paginate(matched, q.limit, q.offset)

	out := make([]models.Fields, len(matched))
	for i, row := range matched {
		if len(q.groupBy) > 0 {
			out[i] = row
			continue
		}
		out[i] = q.project(row)
	}
	return out
}

func (q *ElementQuery) sortRows(rows []models.Fields) {
	if len(q.sort) == 0 {
		return
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, order := range q.sort {
			a := valueOf(rows[i], order.Field)
			b := valueOf(rows[j], order.Field)

			cmp := compareForSort(a, b)
			if cmp == 0 {
				continue
			}
			if order.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// compareForSort orders nil before anything else and falls back to the
// printed form for values without a natural order.
func compareForSort(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if cmp, ok := Compare(a, b); ok {
		return cmp
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func (q *ElementQuery) project(row models.Fields) models.Fields {
	out := make(models.Fields, len(row))

	if len(q.fields) == 0 {
		for name, value := range row {
			out[name] = value
		}
	} else {
		for _, name := range append([]string{constants.FieldID, constants.FieldContainerID}, q.fields...) {
			if value, ok := row[name]; ok {
				out[name] = value
			}
		}
	}

	if q.withProps {
		props := row.Properties()
		if props == nil {
			props = models.Properties{}
		}
		out[constants.FieldProperties] = props
		models.SetPropertyValues(out)
	} else {
		delete(out, constants.FieldProperties)
		delete(out, constants.FieldPropertyValues)
	}
	return out
}

// group collapses rows sharing the same group field values into one row
// holding those values and a CNT count. Groups keep first-seen order.
func group(rows []models.Fields, fields []string) []models.Fields {
	var order []string
	groups := make(map[string]models.Fields)

	for _, row := range rows {
		values := make([]string, len(fields))
		for i, field := range fields {
			values[i] = fmt.Sprint(valueOf(row, field))
		}
		key := strings.Join(values, "\x00")

		g, ok := groups[key]
		if !ok {
			g = models.Fields{constants.CountField: 0}
			for _, field := range fields {
				g[field] = valueOf(row, field)
			}
			groups[key] = g
			order = append(order, key)
		}
		g[constants.CountField] = g[constants.CountField].(int) + 1
	}

	out := make([]models.Fields, len(order))
	for i, key := range order {
		out[i] = groups[key]
	}
	return out
}

func paginate(rows []models.Fields, limit *int, offset int) []models.Fields {
	if offset >= len(rows) {
		return rows[:0]
	}
	rows = rows[offset:]
	if limit != nil && *limit < len(rows) {
		rows = rows[:*limit]
	}
	return rows
}

// valueOf reads a field, resolving PROPERTY_<CODE> to a property value.
func valueOf(row models.Fields, field string) any {
	v, _ := ParseCondition(field, nil).Lookup(row)
	return v
}
