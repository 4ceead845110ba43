package adapter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sideloadedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "commerce_sideloaded_records_total",
	Help: "Records registered from sideloaded response keys by resource",
}, []string{"resource"})

// sideload registers the related records embedded in body with the adapters of
// their own resource types. Keys naming no registered resource are ignored.
func (a *Adapter) sideload(body map[string]any) {
	for key, raw := range body {
		if key == a.resource.RootKey || key == a.resource.CollectionKey || key == a.session.config.MetaKey {
			continue
		}

		target, ok := a.session.adapterForKey(key)
		if !ok {
			continue
		}

		var items []any
		switch v := raw.(type) {
		case []any:
			items = v
		case map[string]any:
			items = []any{v}
		default:
			continue
		}

		loaded := 0
		for _, item := range items {
			attrs, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if _, err := target.instantiate(attrs); err != nil {
				a.logger.Debug().Err(err).Str("key", key).Msg("Skipping sideloaded element")
				continue
			}
			loaded++
		}

		if loaded > 0 {
			sideloadedTotal.WithLabelValues(target.resource.CollectionKey).Add(float64(loaded))
			a.logger.Debug().
				Str("key", key).
				Int("records", loaded).
				Msg("Sideloaded related records")
		}
	}
}
