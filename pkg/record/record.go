// Package record provides the attribute bag that represents one remote entity
// of the commerce API, together with its validation error container.
package record

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// IDField is the attribute name carrying the server-assigned identifier.
const IDField = "id"

// Record is a mutable attribute bag for one remote entity.
//
// A Record is either transient (built locally, no id) or persisted (loaded from
// or confirmed by an API response). Records are shared by pointer: the identity
// map hands out the same instance to every holder, so attribute changes are
// visible everywhere.
type Record struct {
	resource   string
	id         string
	attributes map[string]any
	persisted  bool
	errors     Errors
}

// New creates a transient record of the given resource type.
func New(resource string, attrs map[string]any) *Record {
	r := &Record{
		resource:   resource,
		attributes: make(map[string]any, len(attrs)),
		errors:     Errors{},
	}
	for k, v := range attrs {
		if k == IDField {
			continue
		}
		r.attributes[k] = v
	}
	return r
}

// Load creates a persisted record from attributes returned by the API.
// The id attribute is required.
func Load(resource string, attrs map[string]any) (*Record, error) {
	id, ok := idFrom(attrs)
	if !ok {
		return nil, fmt.Errorf("load %s record: missing %q attribute", resource, IDField)
	}

	r := New(resource, attrs)
	r.id = id
	r.persisted = true
	return r, nil
}

// Resource returns the collection key of the resource type owning the record.
func (r *Record) Resource() string {
	return r.resource
}

// ID returns the server-assigned id, or "" for transient records.
func (r *Record) ID() string {
	return r.id
}

// Persisted reports whether the record has a server-assigned id.
func (r *Record) Persisted() bool {
	return r.persisted
}

// Get returns the value of an attribute.
func (r *Record) Get(field string) (any, bool) {
	if field == IDField && r.id != "" {
		return r.id, true
	}
	v, ok := r.attributes[field]
	return v, ok
}

// String returns an attribute as text. Non-string values are formatted with %v.
func (r *Record) String(field string) string {
	v, ok := r.Get(field)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Set assigns an attribute. The id cannot be assigned locally.
func (r *Record) Set(field string, value any) {
	if field == IDField {
		return
	}
	r.attributes[field] = value
}

// Attributes returns a copy of the record's attributes, excluding the id.
func (r *Record) Attributes() map[string]any {
	out := make(map[string]any, len(r.attributes))
	for k, v := range r.attributes {
		out[k] = v
	}
	return out
}

// Merge overlays attributes returned by the server. A present id marks the
// record as persisted.
func (r *Record) Merge(attrs map[string]any) {
	for k, v := range attrs {
		if k == IDField {
			continue
		}
		r.attributes[k] = v
	}
	if id, ok := idFrom(attrs); ok {
		r.id = id
		r.persisted = true
	}
}

// Errors returns the record's validation errors.
func (r *Record) Errors() Errors {
	return r.errors
}

// Valid reports whether the record carries no validation errors.
func (r *Record) Valid() bool {
	return r.errors.Empty()
}

// MarshalJSON encodes the attributes with the id, if any.
func (r *Record) MarshalJSON() ([]byte, error) {
	out := r.Attributes()
	if r.id != "" {
		out[IDField] = r.id
	}
	return json.Marshal(out)
}

// idFrom extracts an id attribute in its textual form.
func idFrom(attrs map[string]any) (string, bool) {
	raw, ok := attrs[IDField]
	if !ok || raw == nil {
		return "", false
	}

	switch v := raw.(type) {
	case string:
		return v, v != ""
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	default:
		s := fmt.Sprintf("%v", v)
		return s, s != ""
	}
}
