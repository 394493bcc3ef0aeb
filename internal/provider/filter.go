package provider

import (
	"fmt"
	"sort"
	"strings"
)

// Condition is a single equality constraint of an instance filter.
type Condition struct {
	Key   string
	Value string
}

func (c Condition) String() string {
	return c.Key + " eq " + c.Value
}

// FlattenFilter turns a nested filter map into equality conditions keyed by
// dotted paths, sorted by key. An empty filter, an empty key, an empty nested
// map and non-scalar values are rejected with *InvalidFilter.
func FlattenFilter(filter map[string]any) ([]Condition, error) {
	if len(filter) == 0 {
		return nil, &InvalidFilter{Reason: "filter is empty"}
	}

	var conds []Condition
	if err := flatten("", filter, &conds); err != nil {
		return nil, err
	}

	sort.Slice(conds, func(i, j int) bool { return conds[i].Key < conds[j].Key })
	return conds, nil
}

// NormalizeFilter renders a filter as "k eq v" conditions joined by " AND ".
func NormalizeFilter(filter map[string]any) (string, error) {
	conds, err := FlattenFilter(filter)
	if err != nil {
		return "", err
	}

	return JoinConditions(conds), nil
}

// JoinConditions renders conditions joined by " AND ".
func JoinConditions(conds []Condition) string {
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, " AND ")
}

func flatten(prefix string, m map[string]any, out *[]Condition) error {
	if len(m) == 0 {
		return &InvalidFilter{Reason: fmt.Sprintf("%q has no conditions", prefix)}
	}

	for k, v := range m {
		if k == "" {
			return &InvalidFilter{Reason: "empty key"}
		}
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch val := v.(type) {
		case map[string]any:
			if err := flatten(key, val, out); err != nil {
				return err
			}
		case map[string]string:
			nested := make(map[string]any, len(val))
			for nk, nv := range val {
				nested[nk] = nv
			}
			if err := flatten(key, nested, out); err != nil {
				return err
			}
		case string:
			if val == "" {
				return &InvalidFilter{Reason: fmt.Sprintf("%q has an empty value", key)}
			}
			*out = append(*out, Condition{Key: key, Value: val})
		case bool, int, int32, int64, uint, uint32, uint64, float32, float64:
			*out = append(*out, Condition{Key: key, Value: fmt.Sprint(val)})
		default:
			return &InvalidFilter{Reason: fmt.Sprintf("%q has unsupported value type %T", key, v)}
		}
	}
	return nil
}
