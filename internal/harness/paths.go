package harness

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// SearchPaths is an ordered, duplicate-free list of directories. It decodes
// from JSON null, a single string, or an array of scalars.
type SearchPaths []string

// UnmarshalJSON accepts null, a string, or an array
func (p *SearchPaths) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("extraSearchPaths: %w", err)
	}
	*p = CoercePaths(raw)
	return nil
}

// arrayer is implemented by host collections that convert to a plain array
type arrayer interface {
	ToArray() []interface{}
}

// CoercePaths turns a loosely typed host value into SearchPaths: nil gives an
// empty list, slices and ToArray() collections are converted element by
// element, anything else becomes a single entry. Entries are trimmed; empty
// entries and duplicates are dropped.
func CoercePaths(v interface{}) SearchPaths {
	var items []string
	switch t := v.(type) {
	case nil:
		return SearchPaths{}
	case SearchPaths:
		items = t
	case []string:
		items = t
	case []interface{}:
		items = stringify(t)
	case arrayer:
		items = stringify(t.ToArray())
	default:
		items = []string{fmt.Sprint(t)}
	}
	return dedupe(items)
}

// Merge returns p followed by extra, deduplicated
func (p SearchPaths) Merge(extra []string) SearchPaths {
	return dedupe(append(append([]string{}, p...), extra...))
}

func stringify(items []interface{}) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, fmt.Sprint(item))
	}
	return out
}

func dedupe(items []string) SearchPaths {
	out := make(SearchPaths, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
