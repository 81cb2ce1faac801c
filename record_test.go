package surrealrecord

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surrealrecord/pkg/models"
)

func TestRecordSet(t *testing.T) {
	e, err := NewModel(widgetStore(), widget{}).New(1, nil)
	require.NoError(t, err)

	e.Set("NAME", "Bolt")
	e.SetPropertyValue("COLOR", "blue")

	assert.Equal(t, "Bolt", e.Fields()["NAME"])
	assert.Equal(t, "blue", e.PropertyValue("COLOR"))
	assert.Equal(t, models.NewRecordID("catalog", 1), e.RecordID())
	assert.Equal(t, 1, e.ID())
	assert.False(t, e.Loaded())
}

func TestRecordSetPropertiesRebuildsValues(t *testing.T) {
	r := newRecord("abc", models.Fields{
		"PROPERTIES": models.Properties{"COLOR": {"VALUE": "red"}},
	})
	assert.Equal(t, "red", r.PropertyValue("COLOR"))

	r.Set("PROPERTIES", models.Properties{
		"COLOR": {"VALUE": "green"},
		"SIZE":  {"VALUE": "L"},
	})
	assert.Equal(t, map[string]any{"COLOR": "green", "SIZE": "L"}, r.Fields().PropertyValues())
}

func TestRecordSetPropertyValueKeepsEntry(t *testing.T) {
	r := newRecord(7, models.Fields{
		"PROPERTIES": models.Properties{"COLOR": {"VALUE": "red", "NAME": "Color"}},
	})

	r.SetPropertyValue("COLOR", "blue")

	props := r.Fields().Properties()
	assert.Equal(t, "blue", props["COLOR"].Value())
	assert.Equal(t, "Color", props["COLOR"]["NAME"])
}

func TestRecordHasID(t *testing.T) {
	tests := []struct {
		name string
		id   any
		want bool
	}{
		{name: "nil", id: nil, want: false},
		{name: "int", id: 42, want: true},
		{name: "string", id: "abc", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRecord(tt.id, nil)
			assert.Equal(t, tt.want, r.HasID())
			assert.Nil(t, r.PropertyValue("COLOR"))
		})
	}
}
