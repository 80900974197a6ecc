package query

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/ragsearch/internal/domain/search/match"
)

func TestBuildContext_BlocksAndLinks(t *testing.T) {
	matches := []match.Match{
		newMatch("a", 0.9, 1, "Intro", "https://example.com/intro/", "Intro text"),
		newMatch("b", 0.8, 2, "", "https://example.com/untitled/", "Untitled text"),
	}

	got, links := BuildContext(matches, 5)

	want := "From \"Intro\" (https://example.com/intro/):\nIntro text\n\n" +
		"From \"\" (https://example.com/untitled/):\nUntitled text" +
		"\n\n---\nAVAILABLE PAGES TO LINK:\n" +
		"- \"Intro\": https://example.com/intro/\n" +
		"\nUse these URLs when creating inline links in your response."
	if got != want {
		t.Errorf("context mismatch:\n got: %q\nwant: %q", got, want)
	}
	if len(links) != 1 || links[0].URL != "https://example.com/intro/" {
		t.Errorf("links = %+v", links)
	}
}

func TestBuildContext_SkipsEmptyChunksAndCaps(t *testing.T) {
	var matches []match.Match
	matches = append(matches, newMatch("empty", 0.99, 1, "Empty", "/e/", ""))
	for i := range 8 {
		matches = append(matches, newMatch("m", 0.5, int64(i+2), "T", "/t/", "chunk"))
	}

	got, links := BuildContext(matches, 3)
	if n := strings.Count(got, "From \""); n != 3 {
		t.Errorf("expected 3 blocks, got %d", n)
	}
	if strings.Contains(got, "Empty") {
		t.Error("match without chunk must not appear")
	}
	if len(links) != 3 {
		t.Errorf("expected 3 links, got %d", len(links))
	}
}

func TestBuildContext_NoChunks(t *testing.T) {
	got, links := BuildContext([]match.Match{newMatch("a", 0.9, 1, "T", "/u/", "")}, 5)
	if got != "" || links != nil {
		t.Errorf("expected empty context, got %q %v", got, links)
	}
}

func TestBuildContext_NoLinkSectionWithoutURLs(t *testing.T) {
	got, _ := BuildContext([]match.Match{newMatch("a", 0.9, 1, "T", "", "text")}, 5)
	if strings.Contains(got, "AVAILABLE PAGES") {
		t.Errorf("unexpected link section in %q", got)
	}
}

func TestBuildChatContext(t *testing.T) {
	if got := BuildChatContext(nil); got != NoContext {
		t.Errorf("empty context = %q", got)
	}

	got := BuildChatContext([]match.Match{
		newMatch("a", 0.9, 1, "One", "/1/", "first"),
		newMatch("b", 0.8, 2, "", "/2/", "second"),
		newMatch("c", 0.7, 3, "Three", "/3/", ""),
	})
	want := "From: One\nfirst\n\n---\n\nFrom: Unknown\nsecond"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSources_DedupByURL(t *testing.T) {
	got := Sources([]match.Match{
		newMatch("a", 0.9, 1, "One", "/1/", "x"),
		newMatch("b", 0.8, 1, "One again", "/1/", "y"),
		newMatch("c", 0.7, 2, "", "/2/", "z"),
		newMatch("d", 0.6, 3, "No URL", "", "w"),
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 sources, got %+v", got)
	}
	if got[0].Title != "One" || got[0].Score != 0.9 {
		t.Errorf("first source = %+v", got[0])
	}
	if got[1].Title != "Unknown" {
		t.Errorf("second source = %+v", got[1])
	}
}
