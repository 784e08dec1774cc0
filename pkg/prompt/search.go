package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/conduitlabs/relay/pkg/chat"
)

// SearchResult is one ranked snippet from the web-search enricher.
type SearchResult struct {
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// Searcher is the web-search enricher consumed by the assembler.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// SearchClient queries a DDG-style search API that returns a JSON array of
// {snippet, link} results.
type SearchClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewSearchClient creates a search client for the given endpoint.
func NewSearchClient(endpoint string, httpClient *http.Client) *SearchClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SearchClient{endpoint: endpoint, httpClient: httpClient}
}

// Search fetches up to limit ranked results for query.
func (c *SearchClient) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, &chat.DependencyError{Dep: "search", Err: err}
	}
	q := u.Query()
	q.Set("query", query)
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &chat.DependencyError{Dep: "search", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &chat.DependencyError{Dep: "search", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &chat.DependencyError{
			Dep: "search",
			Err: fmt.Errorf("search endpoint returned %d", resp.StatusCode),
		}
	}

	var results []SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, &chat.DependencyError{Dep: "search", Err: err}
	}

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
