// Package research provides the web-search collaborator used by the
// correction loop: a Perplexica client, a DuckDuckGo HTML scraper, and
// caching and fallback wrappers over both.
package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrEmptyQuery is returned when a search is requested with no text.
	ErrEmptyQuery = errors.New("research: empty query")

	// ErrUnavailable wraps transport and HTTP failures of a search backend.
	ErrUnavailable = errors.New("research: search backend unavailable")
)

// DefaultFocusMode is the Perplexica focus mode used when none is given.
const DefaultFocusMode = "webSearch"

// Query is one search request.
type Query struct {
	Text string

	// FocusMode selects a Perplexica focus (webSearch, academicSearch, ...).
	// Backends without focus modes ignore it.
	FocusMode string

	// MaxResults caps the number of sources; zero means the backend default.
	MaxResults int
}

// Source is one cited web page.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Results is the answer to a Query.
type Results struct {
	// Message is a synthesized answer when the backend produces one.
	Message string   `json:"message,omitempty"`
	Sources []Source `json:"sources"`

	// Backend names the searcher that produced the results.
	Backend string `json:"backend,omitempty"`
}

// Empty reports whether the results carry nothing useful.
func (r Results) Empty() bool {
	return strings.TrimSpace(r.Message) == "" && len(r.Sources) == 0
}

// Searcher is implemented by every search backend.
type Searcher interface {
	Search(ctx context.Context, q Query) (Results, error)
}

// SearcherFunc adapts a function to the Searcher interface.
type SearcherFunc func(ctx context.Context, q Query) (Results, error)

// Search calls f.
func (f SearcherFunc) Search(ctx context.Context, q Query) (Results, error) { return f(ctx, q) }

// FormatResults renders results for inclusion in a prompt.
func FormatResults(r Results) string {
	if r.Empty() {
		return ""
	}

	var sb strings.Builder
	if msg := strings.TrimSpace(r.Message); msg != "" {
		sb.WriteString(msg)
		sb.WriteString("\n")
	}
	if len(r.Sources) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("Sources:\n")
		for i, s := range r.Sources {
			title := s.Title
			if title == "" {
				title = "No title"
			}
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, title))
			if s.URL != "" {
				sb.WriteString(fmt.Sprintf("   %s\n", s.URL))
			}
			if snippet := strings.TrimSpace(s.Snippet); snippet != "" {
				sb.WriteString(fmt.Sprintf("   %s\n", truncate(snippet, 500)))
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func limitSources(sources []Source, max int) []Source {
	if max > 0 && len(sources) > max {
		return sources[:max]
	}
	return sources
}
