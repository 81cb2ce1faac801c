package surrealrecord

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surrealrecord/pkg/constants"
	"github.com/surrealdb/surrealrecord/pkg/models"
	"github.com/surrealdb/surrealrecord/pkg/store/memstore"
)

func TestQueryRequiresContainer(t *testing.T) {
	testcases := []struct {
		name string
		ct   ContentType
	}{
		{name: "empty container", ct: untyped{}},
		{name: "no content type", ct: nil},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			st := widgetStore()
			m := NewModel(st, tc.ct)

			_, err := m.Query()
			require.ErrorIs(t, err, constants.ErrConfiguration)

			_, err = m.New(1, nil)
			require.ErrorIs(t, err, constants.ErrConfiguration)

			_, err = m.List(context.Background(), nil)
			require.ErrorIs(t, err, constants.ErrConfiguration)

			assert.Empty(t, st.gets)
			assert.Zero(t, st.finds)
		})
	}
}

func TestQueryBindsContainer(t *testing.T) {
	q, err := NewModel(widgetStore(), widget{}).Query()
	require.NoError(t, err)
	assert.Equal(t, models.ContainerID("catalog"), q.Container())

	q, err = NewModel(widgetStore(), models.ContainerID("news")).Query()
	require.NoError(t, err)
	assert.Equal(t, models.ContainerID("news"), q.Container())
}

func memCatalog(t *testing.T) *memstore.Store {
	t.Helper()

	st := memstore.New()
	for id, name := range map[int]string{1: "Bolt", 2: "Widget", 3: "Nut"} {
		_, err := st.Insert("catalog", id, models.Fields{"NAME": name, "SORT": id * 100},
			models.Properties{"COLOR": {"VALUE": "grey", "NAME": "Color"}})
		require.NoError(t, err)
	}
	return st
}

func TestFindAndSave(t *testing.T) {
	st := memCatalog(t)
	m := NewModel(st, widget{})
	ctx := context.Background()

	e, err := m.Find(ctx, 2)
	require.NoError(t, err)
	assert.True(t, e.Loaded())
	assert.Equal(t, "Widget", e.Fields()["NAME"])

	e.Set("NAME", "Gadget")
	e.Set("~SEARCH", "gadget")
	e.SetPropertyValue("COLOR", "blue")

	ok, err := e.Save(ctx, "NAME", "PROPERTY_VALUES", "~SEARCH")
	require.NoError(t, err)
	assert.True(t, ok)

	reloaded, err := m.Find(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Gadget", reloaded.Fields()["NAME"])
	assert.Equal(t, "blue", reloaded.PropertyValue("COLOR"))
	assert.Equal(t, "Color", reloaded.Fields().Properties()["COLOR"]["NAME"])
	assert.NotContains(t, reloaded.Fields(), "~SEARCH")

	_, err = m.Find(ctx, 99)
	require.ErrorIs(t, err, constants.ErrEntityNotFound)
}

func TestList(t *testing.T) {
	st := memCatalog(t)
	m := NewModel(st, widget{})

	q, err := m.Query()
	require.NoError(t, err)

	elements, err := m.List(context.Background(), q.Sort("SORT", "desc").Select("NAME").Navigation(2, 1))
	require.NoError(t, err)
	require.Len(t, elements, 2)
	assert.Equal(t, 3, elements[0].ID())
	assert.Equal(t, "Nut", elements[0].Fields()["NAME"])
	assert.False(t, elements[0].Loaded())

	fields, err := elements[0].Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "grey", fields.PropertyValues()["COLOR"])
	assert.Equal(t, 1, st.Calls().GetByID)
}

func TestListRejectsGroupedRows(t *testing.T) {
	m := NewModel(memCatalog(t), widget{})

	q, err := m.Query()
	require.NoError(t, err)

	_, err = m.List(context.Background(), q.GroupBy("NAME"))
	require.ErrorIs(t, err, constants.ErrInvalidResponse)
}
