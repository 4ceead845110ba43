package adapter

import (
	"net/url"
	"strconv"
	"time"
)

// Query holds the filter, sort and pagination parameters of a listing.
// Zero fields are not sent, so the API applies its defaults (page 1, limit 100).
type Query struct {
	Q            string
	Page         int
	Limit        int
	IDs          []string
	UpdatedAtMin time.Time
	UpdatedAtMax time.Time
	Order        string
	Status       string
	// Extra carries parameters specific to one resource type.
	Extra url.Values
}

// Values encodes the query parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	for k, vals := range q.Extra {
		for _, val := range vals {
			v.Add(k, val)
		}
	}

	if q.Q != "" {
		v.Set("q", q.Q)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	for _, id := range q.IDs {
		v.Add("ids[]", id)
	}
	if !q.UpdatedAtMin.IsZero() {
		v.Set("updated_at_min", q.UpdatedAtMin.UTC().Format(time.RFC3339))
	}
	if !q.UpdatedAtMax.IsZero() {
		v.Set("updated_at_max", q.UpdatedAtMax.UTC().Format(time.RFC3339))
	}
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	return v
}
