package surrealrecord

import (
	"context"
	"errors"
	"fmt"

	"github.com/surrealdb/surrealrecord/pkg/constants"
	"github.com/surrealdb/surrealrecord/pkg/models"
	"github.com/surrealdb/surrealrecord/pkg/store"
)

// Element is one record of a content type, bound to the model that created
// it. An Element is not safe for concurrent use.
type Element struct {
	Record

	model *Model
}

// RecordID returns the store address of the element.
func (e *Element) RecordID() models.RecordID {
	return models.NewRecordID(e.model.container, e.id)
}

// Get returns the element's fields, fetching them on the first call only.
// The returned map is the element's own; changes to it are picked up by
// Save.
func (e *Element) Get(ctx context.Context) (models.Fields, error) {
	if e.loaded {
		return e.fields, nil
	}
	return e.Fetch(ctx)
}

// Fetch loads the element from the store, replacing its fields with the
// base fields plus PROPERTIES and the PROPERTY_VALUES projection.
func (e *Element) Fetch(ctx context.Context) (models.Fields, error) {
	if !e.HasID() {
		return nil, constants.ErrIdentityMissing
	}
	if e.model.store == nil {
		return nil, constants.ErrStoreMissing
	}

	rid := e.RecordID()
	e.model.logger.Debug("fetching element", "rid", rid.String())

	h, err := e.model.store.GetByID(ctx, rid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", constants.ErrEntityNotFound, rid)
		}
		e.model.logger.Error("failed to fetch element", "rid", rid.String(), "error", err)
		return nil, err
	}
	if h == nil || len(h.Fields()) == 0 {
		return nil, fmt.Errorf("%w: %s", constants.ErrEntityNotFound, rid)
	}

	fields := make(models.Fields, len(h.Fields())+2)
	for name, value := range h.Fields() {
		fields[name] = value
	}
	props := h.Properties()
	if props == nil {
		props = models.Properties{}
	}
	fields[constants.FieldProperties] = props
	models.SetPropertyValues(fields)

	e.fields = fields
	e.loaded = true
	return e.fields, nil
}

// FieldsForSave returns the fields Save would write for the given
// allowlist.
func (e *Element) FieldsForSave(selected ...string) models.Fields {
	fields, _ := fieldsForSave(e.fields, selected)
	return fields
}

// Save writes the element's fields back to the store. When selected is not
// empty only those fields are considered. ID, IBLOCK_ID and PROPERTIES are
// never written, nor are empty strings and fields prefixed with "~".
//
// The store is called even when nothing is left to write, and its result is
// returned as is. Save does not reload the element.
func (e *Element) Save(ctx context.Context, selected ...string) (bool, error) {
	if !e.HasID() {
		return false, constants.ErrIdentityMissing
	}
	if e.model.store == nil {
		return false, constants.ErrStoreMissing
	}

	rid := e.RecordID()
	fields, skipped := fieldsForSave(e.fields, selected)
	e.model.logger.Debug("saving element", "rid", rid.String(), "fields", fields.Names(), "skipped", len(skipped))

	ok, err := e.model.store.Update(ctx, rid, fields)
	if err != nil {
		e.model.logger.Error("failed to save element", "rid", rid.String(), "error", err)
		return false, err
	}
	if !ok {
		e.model.logger.Warn("store rejected element update", "rid", rid.String())
	}
	return ok, nil
}
