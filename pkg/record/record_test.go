package record

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNew_Transient(t *testing.T) {
	r := New("orders", map[string]any{"id": "ignored", "number": "1001"})

	if r.Persisted() {
		t.Error("New record should not be persisted")
	}
	if r.ID() != "" {
		t.Errorf("ID() = %q, want empty", r.ID())
	}
	if got := r.String("number"); got != "1001" {
		t.Errorf("String(number) = %q, want 1001", got)
	}
	if r.Resource() != "orders" {
		t.Errorf("Resource() = %q, want orders", r.Resource())
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		attrs     map[string]any
		wantID    string
		expectErr bool
	}{
		{name: "string id", attrs: map[string]any{"id": "abc"}, wantID: "abc"},
		{name: "json number id", attrs: map[string]any{"id": json.Number("42")}, wantID: "42"},
		{name: "float id", attrs: map[string]any{"id": float64(7)}, wantID: "7"},
		{name: "missing id", attrs: map[string]any{"name": "x"}, expectErr: true},
		{name: "empty id", attrs: map[string]any{"id": ""}, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Load("orders", tt.attrs)
			if tt.expectErr {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if r.ID() != tt.wantID {
				t.Errorf("ID() = %q, want %q", r.ID(), tt.wantID)
			}
			if !r.Persisted() {
				t.Error("Loaded record should be persisted")
			}
		})
	}
}

func TestMerge_AssignsID(t *testing.T) {
	r := New("orders", map[string]any{"number": "1001"})
	r.Merge(map[string]any{"id": json.Number("9"), "status": "open"})

	if !r.Persisted() || r.ID() != "9" {
		t.Errorf("after merge: persisted=%v id=%q, want true/9", r.Persisted(), r.ID())
	}
	if r.String("status") != "open" || r.String("number") != "1001" {
		t.Errorf("Attributes() = %v", r.Attributes())
	}
}

func TestSet_IgnoresID(t *testing.T) {
	r, _ := Load("orders", map[string]any{"id": "1"})
	r.Set("id", "2")
	if r.ID() != "1" {
		t.Errorf("ID() = %q, want 1", r.ID())
	}
}

func TestMarshalJSON(t *testing.T) {
	r, _ := Load("orders", map[string]any{"id": "1", "total": "9.95"})

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	want := map[string]any{"id": "1", "total": "9.95"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("json = %v, want %v", got, want)
	}
}

func TestErrors(t *testing.T) {
	e := Errors{}
	e.Add("name", "is required")
	e.Merge(map[string][]string{
		"name":  {"is required", "is too short"},
		"email": {"is invalid"},
	})

	if got := e.On("name"); !reflect.DeepEqual(got, []string{"is required", "is too short"}) {
		t.Errorf("On(name) = %v", got)
	}

	want := []string{"email is invalid", "name is required", "name is too short"}
	if got := e.Full(); !reflect.DeepEqual(got, want) {
		t.Errorf("Full() = %v, want %v", got, want)
	}

	e.Clear()
	if !e.Empty() {
		t.Error("Errors should be empty after Clear")
	}
}
