// Package surrealrecord is an active-record layer over an element store.
//
// An element is one record of a content type. Its fields are loaded lazily
// on the first [Element.Get], cached for the lifetime of the element, and
// written back selectively with [Element.Save].
//
// # Content Types and Models
//
// A content type only has to name its container:
//
//	type Widget struct{}
//
//	func (Widget) ContainerID() models.ContainerID { return "catalog" }
//
// [NewModel] binds a content type to a [store.Store]. The model creates
// elements ([Model.New], [Model.Find]) and queries ([Model.Query],
// [Model.List]).
//
// # Fields and Properties
//
// Element fields are a flat map of base fields plus PROPERTIES, the
// store-defined properties keyed by code. PROPERTY_VALUES is derived from
// PROPERTIES whenever they are loaded or set and maps each code to its
// VALUE. See [models.SetPropertyValues].
//
// # Stores
//
// Three stores ship with the module: [github.com/surrealdb/surrealrecord/pkg/store/memstore],
// [github.com/surrealdb/surrealrecord/pkg/store/surrealstore] and
// [github.com/surrealdb/surrealrecord/pkg/store/postgres].
//
// # Errors
//
// Fetching or saving an element without an id fails with
// [constants.ErrIdentityMissing] before the store is called. A missing
// record is reported as [constants.ErrEntityNotFound], and a content type
// without a container as [constants.ErrConfiguration]. Store errors are
// returned wrapped.
package surrealrecord
