// Package flattening turns a nested entity document (as decoded from JSON)
// into selector/value pairs so conditions can address any leaf with a
// selector such as ".groups[]" or ".address.country".
package flattening

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

type Item struct {
	Key   string
	Value any
}

type Flattened struct {
	Items []Item
}

// Flatten walks m depth first in sorted key order. Every array element is
// reachable both by index (".a[0]") and by the wildcard form (".a[]").
func Flatten(m map[string]any) (Flattened, error) {
	items, err := flattenValue(m, "")
	if err != nil {
		return Flattened{}, err
	}
	return Flattened{Items: items}, nil
}

func flattenValue(v any, prefix string) ([]Item, error) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		var out []Item
		for _, k := range keys {
			sub, err := flattenValue(t[k], prefix+"."+k)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	case []any:
		var out []Item
		for i, elem := range t {
			byIndex, err := flattenValue(elem, prefix+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return nil, err
			}
			wildcard, err := flattenValue(elem, prefix+"[]")
			if err != nil {
				return nil, err
			}
			out = append(out, byIndex...)
			out = append(out, wildcard...)
		}
		return out, nil
	case []string:
		generic := make([]any, len(t))
		for i, s := range t {
			generic[i] = s
		}
		return flattenValue(generic, prefix)
	case map[string]string:
		generic := make(map[string]any, len(t))
		for k, s := range t {
			generic[k] = s
		}
		return flattenValue(generic, prefix)
	case nil, string, bool, float64, float32, int, int32, int64, uint, uint32, uint64, json.Number:
		return []Item{{Key: prefix, Value: t}}, nil
	default:
		return nil, fmt.Errorf("flatten %s: unsupported type %T", prefix, v)
	}
}

// GetFromFlattened returns every value stored under selector. A selector
// without a leading "." is treated as if it had one.
func GetFromFlattened(f Flattened, selector string) []any {
	selector = NormalizeSelector(selector)
	var out []any
	for _, it := range f.Items {
		if it.Key == selector {
			out = append(out, it.Value)
		}
	}
	return out
}

func NormalizeSelector(selector string) string {
	selector = strings.TrimSpace(selector)
	if !strings.HasPrefix(selector, ".") {
		selector = "." + selector
	}
	return selector
}
