package query

import (
	"regexp"
	"strings"

	"github.com/kailas-cloud/ragsearch/internal/domain/search/match"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/result"
)

const (
	// ExcerptWords is the word budget of a result excerpt.
	ExcerptWords = 30
	excerptMore  = "…"
	unknownTitle = "Unknown"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Format turns sorted matches into client results, one per post.
// Matches without a positive post id cannot be attributed and are skipped.
func Format(matches []match.Match) []result.Result {
	return format(matches, nil)
}

func format(matches []match.Match, hooks *Hooks) []result.Result {
	results := make([]result.Result, 0, len(matches))
	seen := make(map[int64]struct{}, len(matches))

	for i := range matches {
		m := &matches[i]
		id := m.Metadata.PostID
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		title := m.Metadata.Title
		if title == "" {
			title = unknownTitle
		}
		r := result.Result{
			PostID:  id,
			Title:   title,
			URL:     m.Metadata.URL,
			Excerpt: TrimWords(m.Metadata.Chunk, ExcerptWords),
			Score:   m.Score,
		}
		results = append(results, hooks.resultFormat(r, *m))
	}

	return results
}

// TrimWords strips markup and keeps the first n words, appending an ellipsis when text was cut.
func TrimWords(text string, n int) string {
	words := strings.Fields(tagPattern.ReplaceAllString(text, " "))
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + excerptMore
}
