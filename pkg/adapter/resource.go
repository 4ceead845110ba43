package adapter

import (
	"strings"
	"unicode"
)

// Resource names one resource type of the API and its REST conventions.
type Resource struct {
	// Path is the collection path, e.g. "price_lists".
	Path string
	// RootKey wraps single-record bodies, e.g. "price_list".
	RootKey string
	// CollectionKey holds the records of a listing body and tags the resource
	// in the Registry, e.g. "price_lists".
	CollectionKey string
}

// NewResource derives the conventions from a resource name such as "PriceList"
// or "price_list".
func NewResource(name string) Resource {
	singular := underscore(name)
	plural := pluralize(singular)
	return Resource{
		Path:          plural,
		RootKey:       singular,
		CollectionKey: plural,
	}
}

// underscore converts CamelCase to snake_case.
func underscore(name string) string {
	var b strings.Builder
	runes := []rune(strings.TrimSpace(name))
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
			nextLower := i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1])
			if prevLower || nextLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if r == '-' || r == ' ' {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// pluralize applies the English rules that cover API resource names.
func pluralize(word string) string {
	last := word
	prefix := ""
	if i := strings.LastIndexByte(word, '_'); i >= 0 {
		prefix, last = word[:i+1], word[i+1:]
	}

	switch {
	case last == "":
		return word
	case strings.HasSuffix(last, "y") && len(last) > 1 && !isVowel(last[len(last)-2]):
		return prefix + last[:len(last)-1] + "ies"
	case strings.HasSuffix(last, "s"), strings.HasSuffix(last, "x"), strings.HasSuffix(last, "z"),
		strings.HasSuffix(last, "ch"), strings.HasSuffix(last, "sh"):
		return prefix + last + "es"
	default:
		return prefix + last + "s"
	}
}

func isVowel(c byte) bool {
	return strings.IndexByte("aeiou", c) >= 0
}
