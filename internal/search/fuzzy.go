// Package search ranks index entries against free-form queries. Matching
// is tiered: exact beats prefix beats case-insensitive prefix beats
// subsequence, with compact subsequence spans ranking above scattered
// ones.
package search

import (
	"sort"
	"strings"

	"rbls/internal/entry"
)

// Store is the read surface search needs.
type Store interface {
	EntriesFor(name string) []*entry.Entry
	Names() []string
}

// Options controls a search call.
type Options struct {
	// Limit caps the number of results. Zero means DefaultLimit.
	Limit int
	// FromNesting is the caller's lexical context, used to filter
	// private constants. Nil means top level.
	FromNesting []string
	// Kinds restricts results to the given entry kinds. Empty means all.
	Kinds []entry.Kind
}

// DefaultLimit is the result cap when Options.Limit is zero.
const DefaultLimit = 50

// Score tiers. Subsequence matches land below TierSubsequence and are
// penalized by span width, so every subsequence hit still outranks
// nothing and underranks any prefix hit.
const (
	TierExact       = 400
	TierPrefix      = 300
	TierFoldPrefix  = 200
	TierSubsequence = 100
)

// Result is one ranked hit.
type Result struct {
	Name  string
	Entry *entry.Entry
	Score int
}

// Searcher ranks entries against queries.
type Searcher struct {
	store Store
}

// New creates a searcher over the given store.
func New(store Store) *Searcher {
	return &Searcher{store: store}
}

// Search returns ranked matches for query. A query containing "::" is
// matched against fully qualified names; otherwise matching runs against
// the final name segment. Ties break lexicographically so results are
// stable across runs.
func (s *Searcher) Search(query string, opts Options) []Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	qualified := strings.Contains(query, entry.Separator)

	var out []Result
	for _, name := range s.store.Names() {
		target := name
		if !qualified {
			target = entry.LastSegment(name)
		}
		score := Match(query, target)
		if score == 0 {
			continue
		}
		for _, e := range s.store.EntriesFor(name) {
			if e.IsConstantLike() && !e.VisibleFrom(opts.FromNesting) {
				continue
			}
			if !kindAllowed(e.Kind, opts.Kinds) {
				continue
			}
			out = append(out, Result{Name: name, Entry: e, Score: score})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Entry.FileID < out[j].Entry.FileID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func kindAllowed(k entry.Kind, kinds []entry.Kind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

// Match scores query against target. Zero means no match.
func Match(query, target string) int {
	if query == target {
		return TierExact
	}
	if strings.HasPrefix(target, query) {
		return TierPrefix
	}
	if len(query) <= len(target) && strings.EqualFold(target[:len(query)], query) {
		return TierFoldPrefix
	}
	return subsequenceScore(query, target)
}

// subsequenceScore matches query as a case-insensitive subsequence of
// target and scores by span compactness: the tighter the window holding
// all query runes, the higher the score. Matching and spans are
// rune-wise so multi-byte identifiers never split. Zero means no match.
func subsequenceScore(query, target string) int {
	q := []rune(strings.ToLower(query))
	t := []rune(strings.ToLower(target))
	if len(q) == 0 || len(q) > len(t) {
		return 0
	}
	first, last, ti := -1, -1, 0
	for _, qr := range q {
		for ti < len(t) && t[ti] != qr {
			ti++
		}
		if ti == len(t) {
			return 0
		}
		if first < 0 {
			first = ti
		}
		last = ti
		ti++
	}
	span := last - first + 1
	// span == len(q) is a contiguous (infix) match.
	score := TierSubsequence - (span - len(q))
	if score < 1 {
		score = 1
	}
	return score
}
