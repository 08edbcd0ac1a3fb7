package catalog

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

const maxSuggestions = 3

// suggest ranks titles that either contain the letters of query in order or
// sit within a small edit distance of it.
func suggest(query string, titles []string) []string {
	query = strings.TrimSpace(query)
	if query == "" || len(titles) == 0 {
		return nil
	}

	type candidate struct {
		title    string
		distance int
		order    int
	}

	lowerQuery := strings.ToLower(query)
	maxEdits := len(lowerQuery) / 3
	if maxEdits < 2 {
		maxEdits = 2
	}

	seen := make(map[string]bool)
	var candidates []candidate
	for _, rank := range fuzzy.RankFindFold(query, titles) {
		seen[rank.Target] = true
		candidates = append(candidates, candidate{title: rank.Target, distance: rank.Distance, order: rank.OriginalIndex})
	}
	for i, title := range titles {
		if seen[title] {
			continue
		}
		if d := fuzzy.LevenshteinDistance(lowerQuery, strings.ToLower(title)); d <= maxEdits {
			candidates = append(candidates, candidate{title: title, distance: d, order: i})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].order < candidates[j].order
	})

	var out []string
	for _, c := range candidates {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, c.title)
	}
	return out
}
