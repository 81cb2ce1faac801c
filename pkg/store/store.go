// Package store defines the element store contract used by surrealrecord.
//
// A Store resolves an element by its record id, applies partial updates and
// runs element queries. Three backends ship with the module:
//
//   - [github.com/surrealdb/surrealrecord/pkg/store/memstore.Store]: in-process, used by tests and the CLI's memory driver
//   - [github.com/surrealdb/surrealrecord/pkg/store/surrealstore.Store]: SurrealDB through the surrealdb.go SDK
//   - [github.com/surrealdb/surrealrecord/pkg/store/postgres.Store]: Postgres through pgx
//
// Stores are safe for concurrent use. The elements built on top of them are
// not.
package store

import (
	"context"

	"github.com/surrealdb/surrealrecord/pkg/constants"
	"github.com/surrealdb/surrealrecord/pkg/elementql"
	"github.com/surrealdb/surrealrecord/pkg/models"
)

// ErrNotFound is returned by GetByID when the record does not exist.
var ErrNotFound = constants.ErrEntityNotFound

// Store is the element persistence contract.
type Store interface {
	// GetByID resolves one element. It returns ErrNotFound when no such
	// record exists.
	GetByID(ctx context.Context, rid models.RecordID) (Handle, error)

	// Update writes a partial field set. A PROPERTY_VALUES entry, when
	// present, carries code -> value updates for the element's properties.
	// The boolean is the store's own success flag and is returned verbatim
	// by Element.Save.
	Update(ctx context.Context, rid models.RecordID, fields models.Fields) (bool, error)

	// Find runs q against the container q is bound to.
	Find(ctx context.Context, q *elementql.ElementQuery) ([]models.Fields, error)

	Close() error
}

// Handle is a resolved element. Fields returns the base fields, Properties
// the property entries keyed by code.
type Handle interface {
	Fields() models.Fields
	Properties() models.Properties
}

// Snapshot is a Handle over values already in memory.
type Snapshot struct {
	Base  models.Fields
	Props models.Properties
}

func (s Snapshot) Fields() models.Fields {
	return s.Base
}

func (s Snapshot) Properties() models.Properties {
	return s.Props
}

// PropertyUpdates extracts the PROPERTY_VALUES entry of an update payload.
// Base holds everything else.
func PropertyUpdates(fields models.Fields) (base models.Fields, props map[string]any) {
	base = make(models.Fields, len(fields))
	for name, value := range fields {
		if name == constants.FieldPropertyValues {
			props = asValueMap(value)
			continue
		}
		base[name] = value
	}
	return base, props
}

func asValueMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out
	case models.Fields:
		return m
	}
	return nil
}
