package verify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/smolbet/oracle/internal/model"
	"github.com/smolbet/oracle/internal/util"
)

const checkMaxRetries = 2

// checkSleepFunc is the sleep function used between retries (injectable for tests)
var checkSleepFunc = time.Sleep

// Checker verifies that search-result links are reachable before the
// judge sees them. Verification is best-effort: a failed check is
// recorded on the evidence, never escalated to a pipeline failure.
type Checker struct {
	httpClient *http.Client
	maxWorkers int
	robots     *util.RobotsChecker
	userAgent  string
	maxBytes   int64
}

// NewChecker creates a link checker
func NewChecker(timeout time.Duration, maxWorkers int, userAgent string, maxBytes int64, httpProxy, httpsProxy, noProxy string) *Checker {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}

	return &Checker{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpProxy, httpsProxy, noProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		maxWorkers: maxWorkers,
		robots:     util.NewRobotsChecker(userAgent, timeout),
		userAgent:  userAgent,
		maxBytes:   maxBytes,
	}
}

// Check verifies all result links concurrently.
func (c *Checker) Check(ctx context.Context, results []model.OrganicResult) []model.LinkCheck {
	if len(results) == 0 {
		return nil
	}

	checks := make([]model.LinkCheck, len(results))
	var wg sync.WaitGroup

	// Semaphore bounds concurrent requests
	semaphore := make(chan struct{}, c.maxWorkers)

	for i, r := range results {
		wg.Add(1)
		go func(idx int, link string) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				checks[idx] = model.LinkCheck{URL: link, Error: "context cancelled"}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			checks[idx] = c.checkSingleWithRetry(ctx, link)
		}(i, r.Link)
	}

	wg.Wait()
	return checks
}

// checkSingle verifies one link.
func (c *Checker) checkSingle(ctx context.Context, link string) model.LinkCheck {
	check := model.LinkCheck{URL: link}

	allowed, _, err := c.robots.CanFetch(ctx, link)
	if err == nil && !allowed {
		check.Error = "disallowed by robots.txt"
		return check
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		check.Error = fmt.Sprintf("create request: %v", err)
		return check
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		check.Error = fmt.Sprintf("request failed: %v", err)
		return check
	}
	defer func() { _ = resp.Body.Close() }()

	check.StatusCode = resp.StatusCode
	check.Live = resp.StatusCode >= 200 && resp.StatusCode < 400

	if check.Live && strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		check.Title = extractTitle(io.LimitReader(resp.Body, c.maxBytes))
	}

	return check
}

// checkSingleWithRetry retries transient failures with backoff.
func (c *Checker) checkSingleWithRetry(ctx context.Context, link string) model.LinkCheck {
	var check model.LinkCheck
	for attempt := 0; attempt < checkMaxRetries; attempt++ {
		check = c.checkSingle(ctx, link)
		if !isRetryableCheck(check) {
			return check
		}
		if attempt < checkMaxRetries-1 {
			checkSleepFunc(time.Duration(1<<uint(attempt)) * time.Second)
		}
	}
	return check
}

// isRetryableCheck returns true for transient failures
func isRetryableCheck(check model.LinkCheck) bool {
	if check.StatusCode >= 500 && check.StatusCode < 600 {
		return true
	}
	if check.StatusCode == 429 {
		return true
	}
	if check.Error != "" {
		s := strings.ToLower(check.Error)
		return strings.Contains(s, "timeout") ||
			strings.Contains(s, "connection refused") ||
			strings.Contains(s, "connection reset")
	}
	return false
}

// extractTitle pulls the <title> text out of an HTML document.
func extractTitle(r io.Reader) string {
	tokenizer := html.NewTokenizer(r)
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == "title" {
				if tokenizer.Next() == html.TextToken {
					return strings.TrimSpace(string(tokenizer.Text()))
				}
				return ""
			}
		}
	}
}
