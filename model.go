package surrealrecord

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealrecord/pkg/constants"
	"github.com/surrealdb/surrealrecord/pkg/elementql"
	"github.com/surrealdb/surrealrecord/pkg/logger"
	"github.com/surrealdb/surrealrecord/pkg/models"
	"github.com/surrealdb/surrealrecord/pkg/store"
)

// ContentType is implemented by every concrete element type. ContainerID
// names the store container holding its elements.
type ContentType interface {
	ContainerID() models.ContainerID
}

// Model creates and queries the elements of one content type.
type Model struct {
	store       store.Store
	contentType ContentType
	container   models.ContainerID
	logger      logger.Logger
}

type Option func(*Model)

func WithLogger(l logger.Logger) Option {
	return func(m *Model) {
		m.logger = l
	}
}

// NewModel binds a store and a content type.
func NewModel(st store.Store, ct ContentType, opts ...Option) *Model {
	m := &Model{
		store:       st,
		contentType: ct,
		logger:      logger.Nop(),
	}
	if ct != nil {
		m.container = ct.ContainerID()
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logger.Nop()
	}
	return m
}

// ContainerID returns the container of the model's content type, or
// ErrConfiguration when the content type does not provide one.
func (m *Model) ContainerID() (models.ContainerID, error) {
	if m.contentType == nil || m.container.IsZero() {
		return "", constants.ErrConfiguration
	}
	return m.container, nil
}

func (m *Model) ContentType() ContentType {
	return m.contentType
}

// New creates an element without touching the store. Seeded fields are
// normalized right away. A nil id is accepted, but such an element can
// neither be fetched nor saved.
func (m *Model) New(id any, fields models.Fields) (*Element, error) {
	if _, err := m.ContainerID(); err != nil {
		return nil, err
	}
	if _, err := models.ValidateID(id); err != nil {
		return nil, err
	}
	return &Element{Record: newRecord(id, fields), model: m}, nil
}

// Find creates the element for id and fetches it.
func (m *Model) Find(ctx context.Context, id any) (*Element, error) {
	e, err := m.New(id, nil)
	if err != nil {
		return nil, err
	}
	if _, err := e.Fetch(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Query returns an empty query over the model's container.
func (m *Model) Query() (*elementql.ElementQuery, error) {
	cid, err := m.ContainerID()
	if err != nil {
		return nil, err
	}
	return elementql.New(m.store, cid), nil
}

// List runs q, or the empty query when q is nil, and wraps every row in an
// element seeded with the row's fields. The elements are not marked loaded,
// so Get still fetches the full record.
func (m *Model) List(ctx context.Context, q *elementql.ElementQuery) ([]*Element, error) {
	if q == nil {
		var err error
		if q, err = m.Query(); err != nil {
			return nil, err
		}
	}

	rows, err := q.All(ctx)
	if err != nil {
		return nil, err
	}

	elements := make([]*Element, 0, len(rows))
	for i, row := range rows {
		id, ok := row[constants.FieldID]
		if !ok || id == nil {
			return nil, fmt.Errorf("%w: row %d of %s has no %s", constants.ErrInvalidResponse, i, q.Container(), constants.FieldID)
		}
		e, err := m.New(id, row)
		if err != nil {
			return nil, err
		}
		elements = append(elements, e)
	}
	m.logger.Debug("listed elements", "container", string(q.Container()), "count", len(elements))
	return elements, nil
}
