package gtf

import "strings"

// AttributeMap holds the parsed key/value pairs of one attribute column.
type AttributeMap map[string]string

// MatchPolicy selects which clause wins when a key occurs more than once
// in an attribute column.
type MatchPolicy int

const (
	// LastMatch returns the value of the last clause with the key.
	LastMatch MatchPolicy = iota
	// FirstMatch returns the value of the first clause with the key.
	FirstMatch
)

// ParseMatchPolicy converts "last" or "first" to a MatchPolicy.
// Anything else yields LastMatch.
func ParseMatchPolicy(s string) MatchPolicy {
	if strings.EqualFold(strings.TrimSpace(s), "first") {
		return FirstMatch
	}
	return LastMatch
}

// String returns the policy name.
func (p MatchPolicy) String() string {
	if p == FirstMatch {
		return "first"
	}
	return "last"
}

// ParseAttributes parses a GTF attribute column.
// Format: key "value"; key "value"; ...
// Duplicate keys resolve to the last value.
func ParseAttributes(raw string) AttributeMap {
	attrs := make(AttributeMap)
	forEachClause(raw, func(key, value string) bool {
		attrs[key] = value
		return true
	})
	return attrs
}

// RetrieveField returns the value of key in raw, or Null if no clause
// carries the key. Repeated keys resolve to the last occurrence.
func RetrieveField(key, raw string) Value {
	return LastMatch.Retrieve(key, raw)
}

// Retrieve returns the value of key in raw according to the policy.
func (p MatchPolicy) Retrieve(key, raw string) Value {
	result := Null
	forEachClause(raw, func(k, v string) bool {
		if k != key {
			return true
		}
		result = Some(v)
		return p != FirstMatch
	})
	return result
}

// forEachClause splits raw into clauses and calls fn with each clause's
// key and unquoted value. Iteration stops when fn returns false.
func forEachClause(raw string, fn func(key, value string) bool) {
	for _, clause := range strings.Split(raw, ";") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}

		key, rest := clause, ""
		if idx := strings.IndexAny(clause, " \t"); idx != -1 {
			key = clause[:idx]
			rest = strings.TrimSpace(clause[idx+1:])
		}

		// A lone token is both key and value.
		value := rest
		if value == "" {
			value = key
		}

		if !fn(key, unquote(value)) {
			return
		}
	}
}

// unquote strips exactly one pair of surrounding double quotes.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// ListAttributeKeys returns the union of attribute keys used across all
// records, in first-seen order. Records may carry different key sets.
func ListAttributeKeys(t *Table) []string {
	seen := make(map[string]bool)
	var keys []string
	for i := range t.Records {
		for _, segment := range strings.Split(t.Records[i].Attributes, ";") {
			head, _, _ := strings.Cut(segment, ` "`)
			tokens := strings.Fields(head)
			if len(tokens) == 0 {
				continue
			}
			key := tokens[0]
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	return keys
}
