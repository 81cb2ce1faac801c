// Package surrealstore keeps elements in SurrealDB.
//
// Each container is a table and each element one record in it. Properties
// are embedded in the record under PROPERTIES, keyed by code:
//
//	catalog:42 {
//		NAME: "Widget",
//		PROPERTIES: { COLOR: { VALUE: "red", NAME: "Color" } }
//	}
//
// Queries are compiled with [elementql.ElementQuery.Build] and executed as
// parameterised SurrealQL.
package surrealstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	surrealdb "github.com/surrealdb/surrealdb.go"
	sdkmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/surrealdb/surrealrecord/pkg/constants"
	"github.com/surrealdb/surrealrecord/pkg/elementql"
	"github.com/surrealdb/surrealrecord/pkg/logger"
	"github.com/surrealdb/surrealrecord/pkg/models"
	"github.com/surrealdb/surrealrecord/pkg/store"
)

var _ store.Store = (*Store)(nil)

// Config holds the connection settings.
type Config struct {
	Endpoint  string
	Namespace string
	Database  string
	Username  string
	Password  string
}

// Validate checks that the endpoint is a SurrealDB URL and that a namespace
// and database are selected.
func (c Config) Validate() error {
	u, err := url.ParseRequestURI(c.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", c.Endpoint, err)
	}
	switch u.Scheme {
	case constants.WebsocketScheme, constants.WebsocketSecureScheme,
		constants.HTTPScheme, constants.HTTPSecureScheme:
	default:
		return fmt.Errorf("invalid endpoint scheme %q", u.Scheme)
	}
	if c.Namespace == "" || c.Database == "" {
		return fmt.Errorf("namespace and database must be specified")
	}
	return nil
}

type Store struct {
	mu     sync.RWMutex
	db     *surrealdb.DB
	logger logger.Logger
}

// Open connects, signs in when credentials are set and selects the
// namespace and database.
func Open(ctx context.Context, cfg Config, log logger.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := surrealdb.FromEndpointURLString(ctx, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if cfg.Username != "" && cfg.Password != "" {
		if _, err := db.SignIn(ctx, &surrealdb.Auth{
			Username: cfg.Username,
			Password: cfg.Password,
		}); err != nil {
			_ = db.Close(ctx)
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}

	return New(db, log), nil
}

// New wraps an already configured connection.
func New(db *surrealdb.DB, log logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{db: db, logger: log}
}

// DB exposes the underlying connection, nil once the store is closed.
func (s *Store) DB() *surrealdb.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

func (s *Store) GetByID(ctx context.Context, rid models.RecordID) (store.Handle, error) {
	db := s.DB()
	if db == nil {
		return nil, constants.ErrStoreClosed
	}

	doc, err := surrealdb.Select[map[string]any](ctx, db, recordID(rid))
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, rid)
		}
		return nil, fmt.Errorf("failed to select %s: %w", rid, err)
	}
	if doc == nil || len(*doc) == 0 {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, rid)
	}

	fields := toFields(rid.Container, *doc)
	props := fields.Properties()
	delete(fields, constants.FieldProperties)
	fields[constants.FieldID] = rid.ID

	return store.Snapshot{Base: fields, Props: props}, nil
}

// Update merges the base fields into the record. Property values are merged
// into PROPERTIES.<CODE>.VALUE, leaving the other entries of a property as
// they are. It reports false when the record does not exist.
func (s *Store) Update(ctx context.Context, rid models.RecordID, fields models.Fields) (bool, error) {
	db := s.DB()
	if db == nil {
		return false, constants.ErrStoreClosed
	}

	base, values := store.PropertyUpdates(fields)
	data := make(map[string]any, len(base)+1)
	for name, value := range base {
		data[name] = value
	}
	if len(values) > 0 {
		props := make(map[string]any, len(values))
		for code, value := range values {
			props[code] = map[string]any{constants.PropertyValue: value}
		}
		data[constants.FieldProperties] = props
	}

	res, err := surrealdb.Merge[map[string]any](ctx, db, recordID(rid), data)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to merge %s: %w", rid, err)
	}
	if res == nil || len(*res) == 0 {
		s.logger.Warn("update matched no record", "rid", rid.String())
		return false, nil
	}
	return true, nil
}

func (s *Store) Find(ctx context.Context, q *elementql.ElementQuery) ([]models.Fields, error) {
	db := s.DB()
	if db == nil {
		return nil, constants.ErrStoreClosed
	}

	sql, vars := q.Build()
	s.logger.Debug("running element query", "sql", sql)

	results, err := surrealdb.Query[[]map[string]any](ctx, db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Container(), err)
	}
	if results == nil || len(*results) == 0 {
		return nil, fmt.Errorf("%w: no result for %s", constants.ErrInvalidResponse, q.Container())
	}

	docs := (*results)[0].Result
	rows := make([]models.Fields, 0, len(docs))
	for _, doc := range docs {
		row := toFields(q.Container(), doc)
		if q.IncludesProperties() {
			if row.Properties() == nil {
				row[constants.FieldProperties] = models.Properties{}
			} else {
				row[constants.FieldProperties] = row.Properties()
			}
			models.SetPropertyValues(row)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close(context.Background())
	s.db = nil
	return err
}

func recordID(rid models.RecordID) sdkmodels.RecordID {
	return sdkmodels.NewRecordID(string(rid.Container), rid.ID)
}

// toFields maps a SurrealDB document onto element fields. The record id
// becomes ID; grouped rows have none.
func toFields(cid models.ContainerID, doc map[string]any) models.Fields {
	fields := make(models.Fields, len(doc)+1)
	for name, value := range doc {
		if name == "id" {
			switch id := value.(type) {
			case sdkmodels.RecordID:
				fields[constants.FieldID] = id.ID
			case *sdkmodels.RecordID:
				fields[constants.FieldID] = id.ID
			default:
				fields[constants.FieldID] = value
			}
			continue
		}
		fields[name] = value
	}
	if _, grouped := fields[constants.CountField]; !grouped {
		fields[constants.FieldContainerID] = string(cid)
	}
	return fields
}

func isNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Expected a single or multiple results but got 0") ||
		strings.Contains(msg, "not found")
}
