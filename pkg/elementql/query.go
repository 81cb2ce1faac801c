// Package elementql provides ElementQuery, a query over the elements of one
// container.
//
// A query is configured with modifiers (Sort, Filter, GroupBy, Navigation,
// Select, WithProps, ListBy) and then either run through the Runner it was
// created with, compiled into SurrealQL with Build, or evaluated in memory
// with Apply.
package elementql

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/surrealdb/surrealrecord/pkg/constants"
	"github.com/surrealdb/surrealrecord/pkg/models"
)

// Runner executes an ElementQuery against a store.
type Runner interface {
	Find(ctx context.Context, q *ElementQuery) ([]models.Fields, error)
}

// ElementQuery is a filtered, sorted view over one container.
// It is not safe for concurrent modification.
type ElementQuery struct {
	runner    Runner
	container models.ContainerID

	sort      []Order
	filter    []Condition
	groupBy   []string
	limit     *int
	offset    int
	fields    []string
	withProps bool
	listBy    string
}

// Order is one ORDER BY term.
type Order struct {
	Field string
	Desc  bool
}

// New binds a runner and a container into an empty query.
func New(runner Runner, container models.ContainerID) *ElementQuery {
	return &ElementQuery{
		runner:    runner,
		container: container,
		listBy:    constants.FieldID,
	}
}

func (q *ElementQuery) Container() models.ContainerID {
	return q.container
}

// Sort appends an ORDER BY term. Direction is "asc" or "desc", case
// insensitive; anything else sorts ascending.
func (q *ElementQuery) Sort(field, direction string) *ElementQuery {
	q.sort = append(q.sort, Order{
		Field: field,
		Desc:  strings.EqualFold(strings.TrimSpace(direction), "desc"),
	})
	return q
}

// Filter adds conditions. Keys may carry an operator prefix, see ParseCondition.
// Keys are applied in sorted order so that built queries are stable.
func (q *ElementQuery) Filter(filter map[string]any) *ElementQuery {
	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		q.filter = append(q.filter, ParseCondition(key, filter[key]))
	}
	return q
}

// Where adds a single condition.
func (q *ElementQuery) Where(key string, value any) *ElementQuery {
	q.filter = append(q.filter, ParseCondition(key, value))
	return q
}

// GroupBy groups the result by the given fields. Grouped rows carry the
// group fields and a CNT count.
func (q *ElementQuery) GroupBy(fields ...string) *ElementQuery {
	q.groupBy = append(q.groupBy, fields...)
	return q
}

// Navigation selects page (1-based) of the given size.
func (q *ElementQuery) Navigation(pageSize, page int) *ElementQuery {
	if pageSize <= 0 {
		q.limit = nil
		q.offset = 0
		return q
	}
	if page < 1 {
		page = 1
	}
	q.limit = &pageSize
	q.offset = (page - 1) * pageSize
	return q
}

// Limit keeps at most n rows.
func (q *ElementQuery) Limit(n int) *ElementQuery {
	if n <= 0 {
		q.limit = nil
		return q
	}
	q.limit = &n
	return q
}

// Offset skips the first n rows.
func (q *ElementQuery) Offset(n int) *ElementQuery {
	if n < 0 {
		n = 0
	}
	q.offset = n
	return q
}

// Select restricts the returned base fields. ID and IBLOCK_ID are always
// returned.
func (q *ElementQuery) Select(fields ...string) *ElementQuery {
	q.fields = append(q.fields, fields...)
	return q
}

// WithProps makes rows carry their PROPERTIES and PROPERTY_VALUES.
func (q *ElementQuery) WithProps() *ElementQuery {
	q.withProps = true
	return q
}

// ListBy sets the field used as the key by Keyed. Defaults to ID.
func (q *ElementQuery) ListBy(field string) *ElementQuery {
	if field != "" {
		q.listBy = field
	}
	return q
}

func (q *ElementQuery) Orders() []Order {
	return q.sort
}

func (q *ElementQuery) Conditions() []Condition {
	return q.filter
}

func (q *ElementQuery) GroupFields() []string {
	return q.groupBy
}

func (q *ElementQuery) Fields() []string {
	return q.fields
}

func (q *ElementQuery) IncludesProperties() bool {
	return q.withProps
}

func (q *ElementQuery) KeyField() string {
	return q.listBy
}

// Page returns the row limit (nil for none) and the number of rows to skip.
func (q *ElementQuery) Page() (limit *int, offset int) {
	return q.limit, q.offset
}

// All runs the query and returns the rows in order.
func (q *ElementQuery) All(ctx context.Context) ([]models.Fields, error) {
	if q.runner == nil {
		return nil, fmt.Errorf("query on %q has no store", q.container)
	}
	if q.container.IsZero() {
		return nil, constants.ErrConfiguration
	}
	return q.runner.Find(ctx, q)
}

// First runs the query limited to one row. It returns
// constants.ErrEntityNotFound when nothing matches.
func (q *ElementQuery) First(ctx context.Context) (models.Fields, error) {
	one := *q
	one.Limit(1)

	rows, err := one.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, constants.ErrEntityNotFound
	}
	return rows[0], nil
}

// Keyed runs the query and indexes the rows by the ListBy field.
// Rows missing the field are dropped; later rows win on duplicate keys.
func (q *ElementQuery) Keyed(ctx context.Context) (map[string]models.Fields, error) {
	rows, err := q.All(ctx)
	if err != nil {
		return nil, err
	}

	keyed := make(map[string]models.Fields, len(rows))
	for _, row := range rows {
		v, ok := row[q.listBy]
		if !ok || v == nil {
			continue
		}
		keyed[fmt.Sprint(v)] = row
	}
	return keyed, nil
}
