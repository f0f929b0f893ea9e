package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/smolbet/oracle/internal/model"
	"github.com/smolbet/oracle/internal/util"
)

// Fetch failure taxonomy. The client never retries on its own; retry
// policy belongs to the caller.
var (
	ErrUnauthorized = errors.New("search unauthorized")
	ErrTransport    = errors.New("search transport failure")
	ErrUpstream     = errors.New("search upstream error")
)

const (
	defaultBaseURL = "https://serpapi.com/search"

	// maxTimeout caps the provider call; a search that takes longer
	// than this is treated as failed rather than hanging a worker.
	maxTimeout = 20 * time.Second

	// maxDiagnosticBody bounds how much of an upstream error body is
	// carried in the returned error.
	maxDiagnosticBody = 200

	maxResponseBytes = 4 << 20
)

// Options carry per-fetch locale and result-count hints.
type Options struct {
	Locale  string // hl
	Country string // gl
	Num     int    // result count
}

// Client wraps the SerpAPI Google search endpoint and turns a query
// string into a structured evidence document.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a search client. The timeout is clamped to 20s.
func NewClient(apiKey, baseURL, userAgent string, timeout time.Duration, httpProxy, httpsProxy, noProxy string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 || timeout > maxTimeout {
		timeout = maxTimeout
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpProxy, httpsProxy, noProxy),
			},
		},
		userAgent: userAgent,
	}
}

// serpResponse mirrors the provider fields the oracle reads. Everything
// else stays in Evidence.Raw.
type serpResponse struct {
	SearchMetadata struct {
		ID string `json:"id"`
	} `json:"search_metadata"`
	SearchParameters struct {
		Query string `json:"q"`
	} `json:"search_parameters"`
	OrganicResults []struct {
		Position int    `json:"position"`
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
		Source   string `json:"source"`
	} `json:"organic_results"`
	AnswerBox struct {
		Answer  string `json:"answer"`
		Snippet string `json:"snippet"`
		Result  string `json:"result"`
	} `json:"answer_box"`
	KnowledgeGraph struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"knowledge_graph"`
	Error string `json:"error"`
}

// Fetch runs one search and returns the evidence document.
func (c *Client) Fetch(ctx context.Context, query string, opts Options) (*model.Evidence, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: api key not configured", ErrUnauthorized)
	}

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", c.apiKey)
	if opts.Locale != "" {
		params.Set("hl", opts.Locale)
	}
	if opts.Country != "" {
		params.Set("gl", opts.Country)
	}
	if opts.Num > 0 {
		params.Set("num", strconv.Itoa(opts.Num))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, truncate(body, maxDiagnosticBody))
	}

	var parsed serpResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %v", ErrUpstream, err)
	}

	// SerpAPI reports some failures as a 200 with an error field.
	if parsed.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, truncate([]byte(parsed.Error), maxDiagnosticBody))
	}

	return evidenceFromResponse(query, body, &parsed), nil
}

func evidenceFromResponse(query string, raw []byte, parsed *serpResponse) *model.Evidence {
	ev := &model.Evidence{
		Query:    query,
		SearchID: parsed.SearchMetadata.ID,
		Raw:      json.RawMessage(raw),
	}

	for _, r := range parsed.OrganicResults {
		ev.Organic = append(ev.Organic, model.OrganicResult{
			Position: r.Position,
			Title:    r.Title,
			Link:     r.Link,
			Snippet:  r.Snippet,
			Source:   r.Source,
		})
	}

	switch {
	case parsed.AnswerBox.Answer != "":
		ev.AnswerBox = parsed.AnswerBox.Answer
	case parsed.AnswerBox.Result != "":
		ev.AnswerBox = parsed.AnswerBox.Result
	case parsed.AnswerBox.Snippet != "":
		ev.AnswerBox = parsed.AnswerBox.Snippet
	}

	switch {
	case parsed.KnowledgeGraph.Title != "" && parsed.KnowledgeGraph.Description != "":
		ev.KnowledgeGraph = parsed.KnowledgeGraph.Title + ": " + parsed.KnowledgeGraph.Description
	case parsed.KnowledgeGraph.Title != "":
		ev.KnowledgeGraph = parsed.KnowledgeGraph.Title
	case parsed.KnowledgeGraph.Description != "":
		ev.KnowledgeGraph = parsed.KnowledgeGraph.Description
	}

	return ev
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
