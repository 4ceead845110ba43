// Package identity implements the per-resource identity map that guarantees a
// single in-memory record instance per id.
//
// A Map is owned by exactly one adapter and is not safe for concurrent use.
package identity

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/commerce-client/pkg/record"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrRecordNotInIdentityMap is returned by Find when no record is cached for an id.
var ErrRecordNotInIdentityMap = errors.New("record not in identity map")

var lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "commerce_identity_map_lookups_total",
	Help: "Identity map lookups by resource and result",
}, []string{"resource", "result"})

// Map caches records of one resource type by id.
type Map struct {
	resource string
	records  map[string]*record.Record
	order    []string
}

// New creates an empty identity map for a resource type.
func New(resource string) *Map {
	return &Map{
		resource: resource,
		records:  make(map[string]*record.Record),
	}
}

// Find returns the cached record for id.
func (m *Map) Find(id string) (*record.Record, error) {
	rec, ok := m.records[id]
	if !ok {
		lookupsTotal.WithLabelValues(m.resource, "miss").Inc()
		return nil, fmt.Errorf("%w: %s %q", ErrRecordNotInIdentityMap, m.resource, id)
	}
	lookupsTotal.WithLabelValues(m.resource, "hit").Inc()
	return rec, nil
}

// Has reports whether a record is cached for id.
func (m *Map) Has(id string) bool {
	_, ok := m.records[id]
	return ok
}

// Register stores rec under its id, overwriting any previous entry.
// Records without an id are ignored.
func (m *Map) Register(rec *record.Record) {
	if rec == nil || rec.ID() == "" {
		return
	}
	if _, ok := m.records[rec.ID()]; !ok {
		m.order = append(m.order, rec.ID())
	}
	m.records[rec.ID()] = rec
}

// Unregister removes the entry for rec's id, if any.
func (m *Map) Unregister(rec *record.Record) {
	if rec == nil {
		return
	}
	id := rec.ID()
	if _, ok := m.records[id]; !ok {
		return
	}
	delete(m.records, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// All returns the cached records in insertion order.
func (m *Map) All() []*record.Record {
	out := make([]*record.Record, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.records[id])
	}
	return out
}

// Len returns the number of cached records.
func (m *Map) Len() int {
	return len(m.records)
}

// Clear drops every cached record.
func (m *Map) Clear() {
	m.records = make(map[string]*record.Record)
	m.order = nil
}
