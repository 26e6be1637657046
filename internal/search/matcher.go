// Package search resolves free text or recognized image text against catalog
// and ledger records.
//
// A candidate matches when the normalized query is contained in its name, when
// the raw query is contained in one of its identifiers, or when one of its
// longer name tokens appears inside a query token. The last rule recovers real
// SKUs from scans that picked up stray characters around them.
package search

import "strings"

const (
	// Query tokens this short are scan noise and are dropped.
	minQueryTokenLen = 3
	// Only candidate tokens longer than this take part in reverse matching.
	minReverseTokenLen = 4
)

// MatchKind tells which rule accepted a candidate.
type MatchKind int

const (
	NoMatch MatchKind = iota
	DirectMatch
	ReverseMatch
)

// Candidate is the searchable view of a record.
type Candidate struct {
	// Key identifies the record for deduplication.
	Key         string
	Name        string
	Identifiers []string
}

// Query is a parsed search string.
type Query struct {
	raw        string
	normalized string
	tokens     []string
}

// ParseQuery normalizes raw once so it can be matched against many candidates.
func ParseQuery(raw string) Query {
	return Query{
		raw:        strings.TrimSpace(raw),
		normalized: Normalize(raw),
		tokens:     Tokenize(raw),
	}
}

// IsEmpty reports whether the query has no content. An empty query matches everything.
func (q Query) IsEmpty() bool {
	return q.raw == ""
}

// String returns the trimmed query text.
func (q Query) String() string {
	return q.raw
}

// Tokens returns the noise-filtered query tokens.
func (q Query) Tokens() []string {
	return q.tokens
}

// Normalize uppercases s, removes parentheses and collapses whitespace.
func Normalize(s string) string {
	s = strings.ToUpper(s)
	s = strings.NewReplacer("(", "", ")", "").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Tokenize splits the normalized text and drops tokens of two characters or fewer.
func Tokenize(s string) []string {
	fields := strings.Fields(Normalize(s))
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) >= minQueryTokenLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Match reports which rule, if any, accepts c.
func (q Query) Match(c Candidate) MatchKind {
	if q.IsEmpty() {
		return DirectMatch
	}

	if q.normalized != "" && strings.Contains(Normalize(c.Name), q.normalized) {
		return DirectMatch
	}
	for _, id := range c.Identifiers {
		if id != "" && strings.Contains(id, q.raw) {
			return DirectMatch
		}
	}

	for _, ct := range Tokenize(c.Name) {
		if len(ct) < minReverseTokenLen {
			continue
		}
		for _, qt := range q.tokens {
			if strings.Contains(qt, ct) {
				return ReverseMatch
			}
		}
	}
	return NoMatch
}

// Matches reports whether any rule accepts c.
func (q Query) Matches(c Candidate) bool {
	return q.Match(c) != NoMatch
}

// Filter returns the records accepted by q, each at most once, in input order.
func Filter[T any](q Query, records []T, candidate func(T) Candidate) []T {
	seen := make(map[string]struct{}, len(records))
	out := make([]T, 0)
	for _, r := range records {
		c := candidate(r)
		if _, dup := seen[c.Key]; dup {
			continue
		}
		if q.Matches(c) {
			seen[c.Key] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}
