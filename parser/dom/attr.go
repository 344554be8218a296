package dom

import "strings"

// Attribute is a single name/value pair as declared on a start tag.
type Attribute struct {
	Name  string
	Value string
}

// normalizeAttributes lowercases names and collapses duplicates. The value of
// the last declaration wins, the position of the first one is kept.
func normalizeAttributes(in []Attribute) []Attribute {
	if len(in) == 0 {
		return nil
	}
	out := make([]Attribute, 0, len(in))
	seen := make(map[string]int, len(in))
	for _, a := range in {
		name := strings.ToLower(a.Name)
		if name == "" {
			continue
		}
		if i, ok := seen[name]; ok {
			out[i].Value = a.Value
			continue
		}
		seen[name] = len(out)
		out = append(out, Attribute{Name: name, Value: a.Value})
	}
	return out
}

func isASCIIWhitespace(r rune) bool {
	switch r {
	case '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

// splitClasses tokenizes a class attribute value into distinct, non-empty
// tokens in first-occurrence order.
func splitClasses(value string) []string {
	fields := strings.FieldsFunc(value, isASCIIWhitespace)
	if len(fields) == 0 {
		return nil
	}
	out := fields[:0]
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
