// Package postgres keeps elements in PostgreSQL through pgx.
//
// Base fields live in one jsonb document per element, properties in one row
// per element and code:
//
//	elements(container_id, id, fields jsonb)
//	element_properties(container_id, element_id, code, entry jsonb)
//
// Identifiers are stored as text; digit-only identifiers come back as int64.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/surrealdb/surrealrecord/pkg/constants"
	"github.com/surrealdb/surrealrecord/pkg/elementql"
	"github.com/surrealdb/surrealrecord/pkg/logger"
	"github.com/surrealdb/surrealrecord/pkg/models"
	"github.com/surrealdb/surrealrecord/pkg/store"
)

var _ store.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS elements (
	container_id TEXT NOT NULL,
	id TEXT NOT NULL,
	fields JSONB NOT NULL DEFAULT '{}'::jsonb,
	PRIMARY KEY (container_id, id)
);
CREATE TABLE IF NOT EXISTS element_properties (
	container_id TEXT NOT NULL,
	element_id TEXT NOT NULL,
	code TEXT NOT NULL,
	entry JSONB NOT NULL DEFAULT '{}'::jsonb,
	PRIMARY KEY (container_id, element_id, code),
	FOREIGN KEY (container_id, element_id) REFERENCES elements (container_id, id) ON DELETE CASCADE
);`

const (
	selectElementSQL    = `SELECT fields FROM elements WHERE container_id = $1 AND id = $2`
	selectPropertiesSQL = `SELECT code, entry FROM element_properties WHERE container_id = $1 AND element_id = $2 ORDER BY code`
	updateElementSQL    = `UPDATE elements SET fields = fields || $3::jsonb WHERE container_id = $1 AND id = $2`
	upsertPropertySQL   = `INSERT INTO element_properties (container_id, element_id, code, entry) VALUES ($1, $2, $3, $4::jsonb) ` +
		`ON CONFLICT (container_id, element_id, code) DO UPDATE SET entry = element_properties.entry || EXCLUDED.entry`
	upsertElementSQL = `INSERT INTO elements (container_id, id, fields) VALUES ($1, $2, $3::jsonb) ` +
		`ON CONFLICT (container_id, id) DO UPDATE SET fields = EXCLUDED.fields`
	selectContainerPropertiesSQL = `SELECT element_id, code, entry FROM element_properties WHERE container_id = $1 ORDER BY element_id, code`
)

type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	logger logger.Logger
}

// Open connects with the pgx driver and checks the connection.
func Open(ctx context.Context, dsn string, log logger.Logger) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return New(db, log), nil
}

// New wraps an open database handle.
func New(db *sql.DB, log logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{db: db, logger: log}
}

// Migrate creates the element tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.conn()
	if db == nil {
		return constants.ErrStoreClosed
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create element tables: %w", err)
	}
	return nil
}

// Insert writes an element and its properties, replacing an existing one.
func (s *Store) Insert(ctx context.Context, rid models.RecordID, fields models.Fields, props models.Properties) error {
	db := s.conn()
	if db == nil {
		return constants.ErrStoreClosed
	}

	base := make(models.Fields, len(fields))
	for name, value := range fields {
		switch name {
		case constants.FieldID, constants.FieldContainerID, constants.FieldProperties, constants.FieldPropertyValues:
			continue
		}
		base[name] = value
	}
	doc, err := json.Marshal(base)
	if err != nil {
		return fmt.Errorf("failed to encode fields of %s: %w", rid, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, upsertElementSQL, string(rid.Container), rid.Key(), string(doc)); err != nil {
		return fmt.Errorf("failed to insert %s: %w", rid, err)
	}
	for _, code := range props.Codes() {
		if err := upsertProperty(ctx, tx, rid, code, props[code]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) GetByID(ctx context.Context, rid models.RecordID) (store.Handle, error) {
	db := s.conn()
	if db == nil {
		return nil, constants.ErrStoreClosed
	}

	var doc []byte
	err := db.QueryRowContext(ctx, selectElementSQL, string(rid.Container), rid.Key()).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, rid)
		}
		return nil, fmt.Errorf("failed to get %s: %w", rid, err)
	}

	fields := models.Fields{}
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode fields of %s: %w", rid, err)
	}
	fields[constants.FieldID] = rid.ID
	fields[constants.FieldContainerID] = string(rid.Container)

	props, err := properties(ctx, db, rid)
	if err != nil {
		return nil, err
	}
	return store.Snapshot{Base: fields, Props: props}, nil
}

func properties(ctx context.Context, db *sql.DB, rid models.RecordID) (models.Properties, error) {
	rows, err := db.QueryContext(ctx, selectPropertiesSQL, string(rid.Container), rid.Key())
	if err != nil {
		return nil, fmt.Errorf("failed to get properties of %s: %w", rid, err)
	}
	defer rows.Close()

	props := models.Properties{}
	for rows.Next() {
		var code string
		var entry []byte
		if err := rows.Scan(&code, &entry); err != nil {
			return nil, fmt.Errorf("failed to scan property of %s: %w", rid, err)
		}
		prop := models.Property{}
		if err := json.Unmarshal(entry, &prop); err != nil {
			return nil, fmt.Errorf("failed to decode property %s of %s: %w", code, rid, err)
		}
		props[code] = prop
	}
	return props, rows.Err()
}

// Update merges the base fields into the element document and upserts the
// VALUE of each property in PROPERTY_VALUES. It reports false when the
// element does not exist.
func (s *Store) Update(ctx context.Context, rid models.RecordID, fields models.Fields) (bool, error) {
	db := s.conn()
	if db == nil {
		return false, constants.ErrStoreClosed
	}

	base, values := store.PropertyUpdates(fields)
	doc, err := json.Marshal(base)
	if err != nil {
		return false, fmt.Errorf("failed to encode fields of %s: %w", rid, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, updateElementSQL, string(rid.Container), rid.Key(), string(doc))
	if err != nil {
		return false, fmt.Errorf("failed to update %s: %w", rid, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update %s: %w", rid, err)
	}
	if affected == 0 {
		s.logger.Warn("update matched no element", "rid", rid.String())
		return false, nil
	}

	codes := make([]string, 0, len(values))
	for code := range values {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		prop := models.Property{constants.PropertyValue: values[code]}
		if err := upsertProperty(ctx, tx, rid, code, prop); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit update of %s: %w", rid, err)
	}
	return true, nil
}

func upsertProperty(ctx context.Context, tx *sql.Tx, rid models.RecordID, code string, prop models.Property) error {
	entry, err := json.Marshal(prop)
	if err != nil {
		return fmt.Errorf("failed to encode property %s of %s: %w", code, rid, err)
	}
	if _, err := tx.ExecContext(ctx, upsertPropertySQL, string(rid.Container), rid.Key(), code, string(entry)); err != nil {
		return fmt.Errorf("failed to write property %s of %s: %w", code, rid, err)
	}
	return nil
}

// Find loads the container's elements and evaluates q over them. Equality
// conditions on base fields are pushed down as jsonb containment, so they
// match by JSON type; everything else is evaluated in memory.
func (s *Store) Find(ctx context.Context, q *elementql.ElementQuery) ([]models.Fields, error) {
	db := s.conn()
	if db == nil {
		return nil, constants.ErrStoreClosed
	}

	query, args, err := selectSQL(q)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("running element query", "sql", query)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Container(), err)
	}
	defer rows.Close()

	var elements []models.Fields
	byID := make(map[string]models.Fields)
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan element of %s: %w", q.Container(), err)
		}
		fields := models.Fields{}
		if err := json.Unmarshal(doc, &fields); err != nil {
			return nil, fmt.Errorf("failed to decode element %s:%s: %w", q.Container(), id, err)
		}
		fields[constants.FieldID] = models.ParseIDString(id)
		fields[constants.FieldContainerID] = string(q.Container())
		elements = append(elements, fields)
		byID[id] = fields
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if needsProperties(q) {
		if err := attachProperties(ctx, db, q.Container(), byID); err != nil {
			return nil, err
		}
	}
	return q.Apply(elements), nil
}

func attachProperties(ctx context.Context, db *sql.DB, cid models.ContainerID, byID map[string]models.Fields) error {
	rows, err := db.QueryContext(ctx, selectContainerPropertiesSQL, string(cid))
	if err != nil {
		return fmt.Errorf("failed to get properties of %s: %w", cid, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, code string
		var entry []byte
		if err := rows.Scan(&id, &code, &entry); err != nil {
			return fmt.Errorf("failed to scan property of %s: %w", cid, err)
		}
		fields, ok := byID[id]
		if !ok {
			continue
		}
		prop := models.Property{}
		if err := json.Unmarshal(entry, &prop); err != nil {
			return fmt.Errorf("failed to decode property %s of %s:%s: %w", code, cid, id, err)
		}
		props, _ := fields[constants.FieldProperties].(models.Properties)
		if props == nil {
			props = models.Properties{}
			fields[constants.FieldProperties] = props
		}
		props[code] = prop
	}
	return rows.Err()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// conn returns the database handle, nil once the store is closed.
func (s *Store) conn() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// selectSQL builds the element scan for q: the container plus any base
// field equality that can be pushed down.
func selectSQL(q *elementql.ElementQuery) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString("SELECT id, fields FROM elements WHERE container_id = $1")
	args := []any{string(q.Container())}

	for _, cond := range q.Conditions() {
		if !pushable(cond) {
			continue
		}
		if cond.Field == constants.FieldID {
			args = append(args, fmt.Sprint(cond.Value))
			fmt.Fprintf(&sb, " AND id = $%d", len(args))
			continue
		}
		doc, err := json.Marshal(map[string]any{cond.Field: cond.Value})
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode filter %s: %w", cond, err)
		}
		args = append(args, string(doc))
		fmt.Fprintf(&sb, " AND fields @> $%d::jsonb", len(args))
	}

	sb.WriteString(" ORDER BY id")
	return sb.String(), args, nil
}

func pushable(cond elementql.Condition) bool {
	if cond.Op != elementql.OpEq || cond.IsProperty() || cond.Value == nil {
		return false
	}
	switch cond.Field {
	case constants.FieldContainerID, constants.FieldProperties, constants.FieldPropertyValues:
		return false
	}
	if cond.Field == constants.FieldID {
		present, err := models.ValidateID(cond.Value)
		return present && err == nil
	}
	switch cond.Value.(type) {
	case string, bool:
		return true
	}
	return false
}

func needsProperties(q *elementql.ElementQuery) bool {
	if q.IncludesProperties() {
		return true
	}
	for _, cond := range q.Conditions() {
		if cond.IsProperty() {
			return true
		}
	}
	for _, order := range q.Orders() {
		if strings.HasPrefix(order.Field, constants.PropertyFilterPrefix) {
			return true
		}
	}
	for _, field := range q.GroupFields() {
		if strings.HasPrefix(field, constants.PropertyFilterPrefix) {
			return true
		}
	}
	return false
}
