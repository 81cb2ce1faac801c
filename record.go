package surrealrecord

import (
	"github.com/surrealdb/surrealrecord/pkg/constants"
	"github.com/surrealdb/surrealrecord/pkg/models"
)

// Record is the identity and field cache of one element.
//
// The id never changes after construction. Fields may be seeded at
// construction and are replaced by the first fetch; until then Loaded
// reports false.
type Record struct {
	id     any
	fields models.Fields
	loaded bool
}

func newRecord(id any, fields models.Fields) Record {
	r := Record{id: id, fields: fields}
	models.SetPropertyValues(r.fields)
	return r
}

func (r *Record) ID() any {
	return r.id
}

func (r *Record) HasID() bool {
	return r.id != nil
}

// Fields returns the live field map. Changes made to it are what Save
// writes back.
func (r *Record) Fields() models.Fields {
	return r.fields
}

func (r *Record) Loaded() bool {
	return r.loaded
}

// Set assigns one field. Setting PROPERTIES rebuilds PROPERTY_VALUES.
func (r *Record) Set(name string, value any) {
	if r.fields == nil {
		r.fields = models.Fields{}
	}
	r.fields[name] = value
	if name == constants.FieldProperties {
		models.SetPropertyValues(r.fields)
	}
}

// SetPropertyValue sets the VALUE of one property, creating the entry if
// needed, and rebuilds PROPERTY_VALUES.
func (r *Record) SetPropertyValue(code string, value any) {
	props := r.fields.Properties()
	if props == nil {
		props = models.Properties{}
	}
	prop := props[code]
	if prop == nil {
		prop = models.Property{}
		props[code] = prop
	}
	prop[constants.PropertyValue] = value
	r.Set(constants.FieldProperties, props)
}

// PropertyValue reads a value from the PROPERTY_VALUES projection.
func (r *Record) PropertyValue(code string) any {
	return r.fields.PropertyValues()[code]
}
