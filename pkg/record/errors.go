package record

import "sort"

// Errors maps a field name to its ordered validation messages.
type Errors map[string][]string

// Add appends a message for a field.
func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// On returns the messages for a field.
func (e Errors) On(field string) []string {
	return e[field]
}

// Merge appends every message of other, skipping messages already present.
func (e Errors) Merge(other map[string][]string) {
	for field, messages := range other {
		for _, m := range messages {
			if !contains(e[field], m) {
				e.Add(field, m)
			}
		}
	}
}

// Clear removes all messages.
func (e Errors) Clear() {
	for k := range e {
		delete(e, k)
	}
}

// Empty reports whether there are no messages.
func (e Errors) Empty() bool {
	return len(e) == 0
}

// Full returns "field message" strings, sorted by field.
func (e Errors) Full() []string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var out []string
	for _, f := range fields {
		for _, m := range e[f] {
			out = append(out, f+" "+m)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
