package research

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"jarvis/internal/logging"
)

// DuckDuckGo searches the DuckDuckGo HTML endpoint. It needs no API key and
// never produces a synthesized message.
type DuckDuckGo struct {
	// Endpoint defaults to https://html.duckduckgo.com/html/.
	Endpoint   string
	MaxResults int
	HTTPClient *http.Client
}

// NewDuckDuckGo creates a scraper with the given default result cap.
func NewDuckDuckGo(maxResults int, timeout time.Duration) *DuckDuckGo {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DuckDuckGo{
		Endpoint:   "https://html.duckduckgo.com/html/",
		MaxResults: maxResults,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Search implements Searcher.
func (d *DuckDuckGo) Search(ctx context.Context, q Query) (Results, error) {
	query := strings.TrimSpace(q.Text)
	if query == "" {
		return Results{}, ErrEmptyQuery
	}
	max := q.MaxResults
	if max <= 0 {
		max = d.MaxResults
	}
	if max <= 0 || max > 30 {
		max = 30
	}

	logging.ResearchDebug("DuckDuckGo search: query=%q, max_results=%d", query, max)

	endpoint := d.Endpoint
	if endpoint == "" {
		endpoint = "https://html.duckduckgo.com/html/"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return Results{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	client := d.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Results{}, fmt.Errorf("%w: duckduckgo: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Results{}, fmt.Errorf("%w: duckduckgo: HTTP %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Results{}, fmt.Errorf("%w: duckduckgo: failed to read response: %v", ErrUnavailable, err)
	}

	sources, err := parseDuckDuckGoResults(string(body), max)
	if err != nil {
		return Results{}, err
	}

	logging.Research("DuckDuckGo search completed: %d results for %q", len(sources), query)
	return Results{Sources: sources, Backend: "duckduckgo"}, nil
}

// parseDuckDuckGoResults extracts result blocks (div.result.results_links).
func parseDuckDuckGoResults(htmlContent string, maxResults int) ([]Source, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var results []Source
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= maxResults {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" {
			class := attr(n, "class")
			if strings.Contains(class, "result") && strings.Contains(class, "results_links") {
				if r := extractResult(n); r.URL != "" && r.Title != "" {
					results = append(results, r)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

func extractResult(n *html.Node) Source {
	var result Source

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			class := attr(n, "class")
			switch {
			case strings.Contains(class, "result__a"):
				result.URL = attr(n, "href")
				result.Title = textContent(n)
			case strings.Contains(class, "result__snippet"):
				result.Snippet = textContent(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	result.URL = unwrapRedirect(result.URL)
	return result
}

// unwrapRedirect turns //duckduckgo.com/l/?uddg=<target>&rut=... into <target>.
func unwrapRedirect(raw string) string {
	const prefix = "//duckduckgo.com/l/?"
	if !strings.HasPrefix(raw, prefix) {
		return raw
	}
	values, err := url.ParseQuery(strings.TrimPrefix(raw, prefix))
	if err != nil {
		return raw
	}
	if target := values.Get("uddg"); target != "" {
		return target
	}
	return raw
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			parts = append(parts, strings.Fields(n.Data)...)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}
