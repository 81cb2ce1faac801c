// Package memstore is an in-process element store.
//
// Elements are held as CBOR encoded snapshots, so neither callers nor the
// elements built from the store ever share maps with it. The store counts
// its calls and records every update, which makes it the store of choice for
// tests.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/gofrs/uuid"

	"github.com/surrealdb/surrealrecord/pkg/constants"
	"github.com/surrealdb/surrealrecord/pkg/elementql"
	"github.com/surrealdb/surrealrecord/pkg/models"
	"github.com/surrealdb/surrealrecord/pkg/store"
)

var _ store.Store = (*Store)(nil)

// Calls counts the store operations served so far.
type Calls struct {
	GetByID int
	Update  int
	Find    int
}

// UpdateCall is one recorded Update.
type UpdateCall struct {
	RID    models.RecordID
	Fields models.Fields
}

type entry struct {
	id     any
	fields []byte
	props  []byte
}

type container struct {
	entries map[string]*entry
	order   []string
}

type Store struct {
	mu         sync.RWMutex
	containers map[models.ContainerID]*container
	closed     bool

	calls   Calls
	updates []UpdateCall

	enc models.CborMarshaler
	dec models.CborUnmarshaler
}

func New() *Store {
	return &Store{
		containers: make(map[models.ContainerID]*container),
	}
}

// Insert adds or replaces an element. A nil id is replaced by a generated
// UUID. PROPERTIES found in fields are used when props is nil.
func (s *Store) Insert(cid models.ContainerID, id any, fields models.Fields, props models.Properties) (models.RecordID, error) {
	if cid.IsZero() {
		return models.RecordID{}, constants.ErrConfiguration
	}
	if id == nil {
		generated, err := uuid.NewV4()
		if err != nil {
			return models.RecordID{}, fmt.Errorf("failed to generate element id: %w", err)
		}
		id = generated.String()
	}
	if _, err := models.ValidateID(id); err != nil {
		return models.RecordID{}, err
	}
	if props == nil {
		props = fields.Properties()
	}

	base := make(models.Fields, len(fields))
	for name, value := range fields {
		switch name {
		case constants.FieldID, constants.FieldContainerID, constants.FieldProperties, constants.FieldPropertyValues:
			continue
		}
		base[name] = value
	}

	e := &entry{id: id}
	if err := s.encode(e, base, props); err != nil {
		return models.RecordID{}, err
	}

	rid := models.NewRecordID(cid, id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return models.RecordID{}, constants.ErrStoreClosed
	}

	c, ok := s.containers[cid]
	if !ok {
		c = &container{entries: make(map[string]*entry)}
		s.containers[cid] = c
	}
	if _, exists := c.entries[rid.Key()]; !exists {
		c.order = append(c.order, rid.Key())
	}
	c.entries[rid.Key()] = e

	return rid, nil
}

// GetByID implements store.Store.
func (s *Store) GetByID(_ context.Context, rid models.RecordID) (store.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, constants.ErrStoreClosed
	}
	s.calls.GetByID++

	e := s.lookup(rid)
	if e == nil {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, rid)
	}

	fields, props, err := s.decode(rid.Container, e)
	if err != nil {
		return nil, err
	}
	return store.Snapshot{Base: fields, Props: props}, nil
}

// Update implements store.Store. It reports false, without an error, when
// the element does not exist.
func (s *Store) Update(_ context.Context, rid models.RecordID, fields models.Fields) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, constants.ErrStoreClosed
	}
	s.calls.Update++
	s.updates = append(s.updates, UpdateCall{RID: rid, Fields: cloneFields(fields)})

	e := s.lookup(rid)
	if e == nil {
		return false, nil
	}

	current, props, err := s.decode(rid.Container, e)
	if err != nil {
		return false, err
	}

	base, values := store.PropertyUpdates(fields)
	for name, value := range base {
		current[name] = value
	}
	if len(values) > 0 && props == nil {
		props = models.Properties{}
	}
	for code, value := range values {
		prop := props[code]
		if prop == nil {
			prop = models.Property{}
		}
		prop[constants.PropertyValue] = value
		props[code] = prop
	}

	delete(current, constants.FieldID)
	delete(current, constants.FieldContainerID)
	if err := s.encode(e, current, props); err != nil {
		return false, err
	}
	return true, nil
}

// Find implements store.Store by evaluating q over the container in
// insertion order.
func (s *Store) Find(_ context.Context, q *elementql.ElementQuery) ([]models.Fields, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, constants.ErrStoreClosed
	}
	s.calls.Find++

	rows, err := s.rows(q.Container())
	if err != nil {
		return nil, err
	}
	return q.Apply(rows), nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Calls returns the operation counters.
func (s *Store) Calls() Calls {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls
}

// Updates returns the recorded Update calls, oldest first.
func (s *Store) Updates() []UpdateCall {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]UpdateCall(nil), s.updates...)
}

// Export returns every element with its PROPERTIES, grouped by container.
func (s *Store) Export() (map[models.ContainerID][]models.Fields, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[models.ContainerID][]models.Fields, len(s.containers))
	for cid := range s.containers {
		rows, err := s.rows(cid)
		if err != nil {
			return nil, err
		}
		out[cid] = rows
	}
	return out, nil
}

func (s *Store) lookup(rid models.RecordID) *entry {
	c, ok := s.containers[rid.Container]
	if !ok {
		return nil
	}
	return c.entries[rid.Key()]
}

func (s *Store) rows(cid models.ContainerID) ([]models.Fields, error) {
	c, ok := s.containers[cid]
	if !ok {
		return nil, nil
	}

	rows := make([]models.Fields, 0, len(c.order))
	for _, key := range c.order {
		fields, props, err := s.decode(cid, c.entries[key])
		if err != nil {
			return nil, err
		}
		if props == nil {
			props = models.Properties{}
		}
		fields[constants.FieldProperties] = props
		rows = append(rows, fields)
	}
	return rows, nil
}

func (s *Store) encode(e *entry, fields models.Fields, props models.Properties) error {
	fb, err := s.enc.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode element fields: %w", err)
	}
	pb, err := s.enc.Marshal(props)
	if err != nil {
		return fmt.Errorf("failed to encode element properties: %w", err)
	}
	e.fields, e.props = fb, pb
	return nil
}

func (s *Store) decode(cid models.ContainerID, e *entry) (models.Fields, models.Properties, error) {
	var fields models.Fields
	if err := s.dec.Unmarshal(e.fields, &fields); err != nil {
		return nil, nil, fmt.Errorf("failed to decode element fields: %w", err)
	}
	var props models.Properties
	if err := s.dec.Unmarshal(e.props, &props); err != nil {
		return nil, nil, fmt.Errorf("failed to decode element properties: %w", err)
	}
	if fields == nil {
		fields = models.Fields{}
	}

	fields[constants.FieldID] = e.id
	fields[constants.FieldContainerID] = string(cid)
	return fields, props, nil
}

func cloneFields(fields models.Fields) models.Fields {
	if fields == nil {
		return nil
	}
	out := make(models.Fields, len(fields))
	for name, value := range fields {
		out[name] = value
	}
	return out
}
