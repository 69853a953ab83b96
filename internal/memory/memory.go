// Package memory is the semantic memory store used to resolve setting links.
package memory

import (
	"context"
	"sort"
	"strings"
	"unicode"
)

// Record is one stored memory entry.
type Record struct {
	Collection         string `json:"collection"`
	ID                 string `json:"id"`
	Text               string `json:"text"`
	AdditionalMetadata string `json:"metadata"`
}

// QueryResult is a record matched by Search with its relevance in [0,1].
type QueryResult struct {
	Record    Record
	Relevance float64
}

// Store saves records and runs similarity searches over a collection.
type Store interface {
	SaveInformation(ctx context.Context, collection, text, externalID, additionalMetadata string) error
	Search(ctx context.Context, collection, query string, limit int, minRelevance float64) ([]QueryResult, error)
}

// Similarity returns the trigram similarity of a and b, computed the way
// pg_trgm does: lower-cased alphanumeric words padded with two leading and
// one trailing blank, compared as sets.
func Similarity(a, b string) float64 {
	ta, tb := trigrams(a), trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared := 0
	for g := range ta {
		if _, ok := tb[g]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(ta)+len(tb)-shared)
}

func trigrams(s string) map[string]struct{} {
	set := make(map[string]struct{})
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		padded := []rune("  " + w + " ")
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = struct{}{}
		}
	}
	return set
}

// rank scores records against query and keeps the best limit results at or
// above minRelevance.
func rank(records []Record, query string, limit int, minRelevance float64) []QueryResult {
	if limit <= 0 {
		return nil
	}

	results := make([]QueryResult, 0, len(records))
	for _, rec := range records {
		score := Similarity(rec.Text, query)
		if score >= minRelevance {
			results = append(results, QueryResult{Record: rec, Relevance: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Relevance != results[j].Relevance {
			return results[i].Relevance > results[j].Relevance
		}
		return results[i].Record.ID < results[j].Record.ID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
