package models

import (
	"sort"

	"github.com/surrealdb/surrealrecord/pkg/constants"
)

// Fields maps element field names to values. Base fields hold scalars;
// PROPERTIES holds a Properties value and PROPERTY_VALUES the flattened
// code -> value projection derived from it.
type Fields map[string]any

// Property is one store-defined attribute of an element. It carries at
// least a VALUE entry; stores may add NAME, CODE, TYPE and so on.
type Property map[string]any

// Value returns the VALUE entry of the property.
func (p Property) Value() any {
	return p[constants.PropertyValue]
}

// Properties maps property codes to property entries.
type Properties map[string]Property

// Values flattens the properties into a code -> value map.
func (p Properties) Values() map[string]any {
	values := make(map[string]any, len(p))
	for code, prop := range p {
		values[code] = prop.Value()
	}
	return values
}

// Codes returns the property codes in sorted order.
func (p Properties) Codes() []string {
	codes := make([]string, 0, len(p))
	for code := range p {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Names returns the field names in sorted order.
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Properties returns the PROPERTIES entry as Properties, accepting the
// untyped map shapes produced by decoders.
func (f Fields) Properties() Properties {
	return AsProperties(f[constants.FieldProperties])
}

// PropertyValues returns the PROPERTY_VALUES projection, or nil when the
// fields were never normalized.
func (f Fields) PropertyValues() map[string]any {
	values, _ := f[constants.FieldPropertyValues].(map[string]any)
	return values
}

// SetPropertyValues rebuilds fields[PROPERTY_VALUES] from fields[PROPERTIES].
// It leaves the fields untouched when they are empty or carry no properties.
func SetPropertyValues(fields Fields) {
	if len(fields) == 0 {
		return
	}

	props := fields.Properties()
	if len(props) == 0 {
		return
	}

	fields[constants.FieldPropertyValues] = props.Values()
}

// AsProperties converts v into Properties. Unknown shapes yield nil.
func AsProperties(v any) Properties {
	switch props := v.(type) {
	case Properties:
		return props
	case map[string]Property:
		return Properties(props)
	case map[string]any:
		out := make(Properties, len(props))
		for code, entry := range props {
			out[code] = AsProperty(entry)
		}
		return out
	case map[string]map[string]any:
		out := make(Properties, len(props))
		for code, entry := range props {
			out[code] = Property(entry)
		}
		return out
	}
	return nil
}

// AsProperty converts a single property entry. Anything that is not a map
// is treated as a bare value.
func AsProperty(v any) Property {
	switch entry := v.(type) {
	case Property:
		return entry
	case map[string]any:
		return Property(entry)
	}
	return Property{constants.PropertyValue: v}
}
