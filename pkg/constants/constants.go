package constants

// Reserved element field names.
const (
	FieldID             = "ID"
	FieldContainerID    = "IBLOCK_ID"
	FieldProperties     = "PROPERTIES"
	FieldPropertyValues = "PROPERTY_VALUES"

	// PropertyValue is the key holding the value inside a property entry.
	PropertyValue = "VALUE"

	// PropertyFilterPrefix marks a filter key that targets a property code,
	// e.g. PROPERTY_COLOR.
	PropertyFilterPrefix = "PROPERTY_"

	// InternalPrefix marks store-derived fields that are never written back.
	InternalPrefix = "~"

	// CountField holds the number of grouped rows in a GROUP BY result.
	CountField = "CNT"
)

var (
	WebsocketScheme       = "ws"
	WebsocketSecureScheme = "wss"
	HTTPScheme            = "http"
	HTTPSecureScheme      = "https"
)
