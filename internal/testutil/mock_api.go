// Package testutil provides an in-memory commerce API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
)

// MockResponse is a canned answer for one method and path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

type mockCollection struct {
	rootKey  string
	records  map[string]map[string]any
	required []string
	sideload map[string][]map[string]any
}

// MockAPI is a chi-routed commerce API backed by in-memory collections.
//
// Listings honour page, limit and ids[] and report an X-Pagination header;
// writes validate required fields with 422 answers.
type MockAPI struct {
	server *httptest.Server

	mu          sync.Mutex
	collections map[string]*mockCollection
	canned      map[string][]MockResponse
	nextID      int

	// Tracking
	RequestCount int
	Requests     []string
	LastHeader   http.Header
}

// NewMockAPI starts a mock API server.
func NewMockAPI() *MockAPI {
	m := &MockAPI{
		collections: make(map[string]*mockCollection),
		canned:      make(map[string][]MockResponse),
		nextID:      1000,
	}

	r := chi.NewRouter()
	r.Use(m.track)
	r.Use(m.cannedResponses)
	r.Get("/{collection}", m.list)
	r.Post("/{collection}", m.create)
	r.Get("/{collection}/{id}", m.get)
	r.Put("/{collection}/{id}", m.update)
	r.Delete("/{collection}/{id}", m.remove)

	m.server = httptest.NewServer(r)
	return m
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Resource declares a collection with its singular root key.
func (m *MockAPI) Resource(collection, rootKey string, required ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = &mockCollection{
		rootKey:  rootKey,
		records:  make(map[string]map[string]any),
		required: required,
		sideload: make(map[string][]map[string]any),
	}
}

// Seed stores records in a declared collection. Every record needs an "id".
func (m *MockAPI) Seed(collection string, records ...map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.collections[collection]
	for _, rec := range records {
		c.records[fmt.Sprint(rec["id"])] = rec
	}
}

// Sideload embeds related records under key in every response of collection.
func (m *MockAPI) Sideload(collection, key string, records ...map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.collections[collection]
	c.sideload[key] = append(c.sideload[key], records...)
}

// Stored returns the stored attributes of a record.
func (m *MockAPI) Stored(collection, id string) (map[string]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[collection]
	if !ok {
		return nil, false
	}
	rec, ok := c.records[id]
	return rec, ok
}

// Enqueue queues canned answers for method and path (e.g. "GET", "/orders").
// Queued answers are served in order before the collection handlers.
func (m *MockAPI) Enqueue(method, path string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := method + " " + path
	m.canned[key] = append(m.canned[key], responses...)
}

// GetRequestCount returns the number of requests received.
func (m *MockAPI) GetRequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RequestCount
}

// GetRequests returns "METHOD /path?query" for every request received.
func (m *MockAPI) GetRequests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Requests...)
}

// GetLastHeader returns the headers of the most recent request.
func (m *MockAPI) GetLastHeader() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LastHeader
}

// Reset clears the tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.Requests = nil
	m.LastHeader = nil
}

func (m *MockAPI) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.RequestCount++
		m.Requests = append(m.Requests, r.Method+" "+r.URL.RequestURI())
		m.LastHeader = r.Header.Clone()
		m.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (m *MockAPI) cannedResponses(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		m.mu.Lock()
		queue := m.canned[key]
		var resp *MockResponse
		if len(queue) > 0 {
			resp = &queue[0]
			m.canned[key] = queue[1:]
		}
		m.mu.Unlock()

		if resp == nil {
			next.ServeHTTP(w, r)
			return
		}
		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			_, _ = w.Write([]byte(resp.Body))
		}
	})
}

func (m *MockAPI) collection(w http.ResponseWriter, r *http.Request) (*mockCollection, bool) {
	c, ok := m.collections[chi.URLParam(r, "collection")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "unknown collection"})
	}
	return c, ok
}

func (m *MockAPI) list(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collection(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	ids := q["ids[]"]
	var matched []map[string]any
	for _, id := range sortedKeys(c.records) {
		if len(ids) > 0 && !containsString(ids, id) {
			continue
		}
		matched = append(matched, c.records[id])
	}

	page := queryInt(q.Get("page"), 1)
	limit := queryInt(q.Get("limit"), 100)
	totalPages := 0
	items := []map[string]any{}
	if limit > 0 {
		totalPages = (len(matched) + limit - 1) / limit
		start := (page - 1) * limit
		if start < len(matched) {
			end := start + limit
			if end > len(matched) {
				end = len(matched)
			}
			items = matched[start:end]
		}
	}

	meta, _ := json.Marshal(map[string]int{
		"page":          page,
		"total_pages":   totalPages,
		"total_records": len(matched),
		"limit":         limit,
	})
	w.Header().Set("X-Pagination", string(meta))

	body := map[string]any{chi.URLParam(r, "collection"): items}
	for key, recs := range c.sideload {
		body[key] = recs
	}
	writeJSON(w, http.StatusOK, body)
}

func (m *MockAPI) get(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collection(w, r)
	if !ok {
		return
	}
	rec, ok := c.records[chi.URLParam(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
		return
	}

	body := map[string]any{c.rootKey: rec}
	for key, recs := range c.sideload {
		body[key] = recs
	}
	writeJSON(w, http.StatusOK, body)
}

func (m *MockAPI) create(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collection(w, r)
	if !ok {
		return
	}
	attrs, ok := decodeRoot(w, r, c.rootKey)
	if !ok {
		return
	}
	if errs := c.validate(attrs); len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": errs})
		return
	}

	m.nextID++
	id := strconv.Itoa(m.nextID)
	attrs["id"] = id
	c.records[id] = attrs
	writeJSON(w, http.StatusCreated, map[string]any{c.rootKey: attrs})
}

func (m *MockAPI) update(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collection(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	stored, ok := c.records[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
		return
	}
	attrs, ok := decodeRoot(w, r, c.rootKey)
	if !ok {
		return
	}
	if errs := c.validate(attrs); len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": errs})
		return
	}

	for k, v := range attrs {
		stored[k] = v
	}
	stored["id"] = id
	writeJSON(w, http.StatusOK, map[string]any{c.rootKey: stored})
}

func (m *MockAPI) remove(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collection(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if _, ok := c.records[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
		return
	}
	delete(c.records, id)
	w.WriteHeader(http.StatusNoContent)
}

func (c *mockCollection) validate(attrs map[string]any) map[string][]string {
	errs := map[string][]string{}
	for _, field := range c.required {
		if v, ok := attrs[field]; !ok || v == "" || v == nil {
			errs[field] = append(errs[field], "is required")
		}
	}
	return errs
}

func decodeRoot(w http.ResponseWriter, r *http.Request, rootKey string) (map[string]any, bool) {
	var body map[string]map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return nil, false
	}
	attrs, ok := body[rootKey]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "missing " + rootKey})
		return nil, false
	}
	return attrs, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func queryInt(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || raw == "" {
		return def
	}
	return n
}

func sortedKeys(m map[string]map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// NewRateLimitResponse creates a 429 answer whose reset lies resetIn seconds ahead
// of the epoch second now.
func NewRateLimitResponse(now int64, resetIn int64) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"X-RateLimit-Reset": strconv.FormatInt(now+resetIn, 10),
			"Content-Type":      "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 answer.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewValidationResponse creates a 422 answer carrying field errors.
func NewValidationResponse(errs map[string][]string) MockResponse {
	body, _ := json.Marshal(map[string]any{"errors": errs})
	return MockResponse{
		StatusCode: http.StatusUnprocessableEntity,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
