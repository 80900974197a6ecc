package query

import (
	"strings"

	"github.com/kailas-cloud/ragsearch/internal/domain/search/match"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/result"
)

const (
	linksHeader = "\n\n---\nAVAILABLE PAGES TO LINK:\n"
	linksFooter = "\nUse these URLs when creating inline links in your response."

	chatSeparator = "\n\n---\n\n"
	// NoContext is the chat context when nothing relevant was retrieved.
	NoContext = "No relevant information found."
)

// BuildContext renders the first maxChunks matches that carry text as grounding blocks.
// Only pages with both a title and a URL are listed as citable, and the model is told
// to link from that list alone.
func BuildContext(matches []match.Match, maxChunks int) (string, []result.LinkRef) {
	if maxChunks <= 0 {
		maxChunks = DefaultSummaryMaxChunks
	}

	var (
		b      strings.Builder
		links  []result.LinkRef
		blocks int
	)
	for i := range matches {
		if blocks >= maxChunks {
			break
		}
		md := matches[i].Metadata
		if md.Chunk == "" {
			continue
		}

		if blocks > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(`From "`)
		b.WriteString(md.Title)
		b.WriteString(`" (`)
		b.WriteString(md.URL)
		b.WriteString("):\n")
		b.WriteString(md.Chunk)
		blocks++

		if md.Title != "" && md.URL != "" {
			links = append(links, result.LinkRef{Title: md.Title, URL: md.URL})
		}
	}

	if blocks == 0 {
		return "", nil
	}

	if len(links) > 0 {
		b.WriteString(linksHeader)
		for _, l := range links {
			b.WriteString(`- "`)
			b.WriteString(l.Title)
			b.WriteString(`": `)
			b.WriteString(l.URL)
			b.WriteString("\n")
		}
		b.WriteString(linksFooter)
	}

	return b.String(), links
}

// BuildChatContext renders every match that carries text as a `From: <title>` block.
func BuildChatContext(matches []match.Match) string {
	parts := make([]string, 0, len(matches))
	for i := range matches {
		md := matches[i].Metadata
		if md.Chunk == "" {
			continue
		}
		title := md.Title
		if title == "" {
			title = unknownTitle
		}
		parts = append(parts, "From: "+title+"\n"+md.Chunk)
	}
	if len(parts) == 0 {
		return NoContext
	}
	return strings.Join(parts, chatSeparator)
}

// Sources lists the pages an answer was grounded on, one per URL, in match order.
func Sources(matches []match.Match) []result.Source {
	sources := make([]result.Source, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for i := range matches {
		md := matches[i].Metadata
		if md.URL == "" {
			continue
		}
		if _, dup := seen[md.URL]; dup {
			continue
		}
		seen[md.URL] = struct{}{}

		title := md.Title
		if title == "" {
			title = unknownTitle
		}
		sources = append(sources, result.Source{Title: title, URL: md.URL, Score: matches[i].Score})
	}
	return sources
}
