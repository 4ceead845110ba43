package pagination

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// DefaultHeader is the response header carrying pagination metadata.
const DefaultHeader = "X-Pagination"

// Defaults applied by the API when a listing does not specify them.
const (
	DefaultPage  = 1
	DefaultLimit = 100
)

// State is a snapshot of the pagination metadata of one listing response.
type State struct {
	Page         int `json:"page"`
	TotalPages   int `json:"total_pages"`
	TotalRecords int `json:"total_records"`
	Limit        int `json:"limit"`
}

// HasNext reports whether a page follows the current one.
func (s State) HasNext() bool {
	return s.Page < s.TotalPages
}

// Next returns the state advanced by one page.
func (s State) Next() State {
	s.Page++
	return s
}

// Done reports whether traversal has run past the last page.
func (s State) Done() bool {
	return s.Page > s.TotalPages
}

// ParseHeader reads pagination metadata from the named response header.
// ok is false when the header is absent.
func ParseHeader(h http.Header, name string) (state State, ok bool, err error) {
	if name == "" {
		name = DefaultHeader
	}
	raw := h.Get(name)
	if raw == "" {
		return State{}, false, nil
	}

	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return State{}, false, fmt.Errorf("parse %s header: %w", name, err)
	}
	if state.Page == 0 {
		state.Page = DefaultPage
	}
	return state, true, nil
}
