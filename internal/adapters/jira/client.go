// Package jira is the HTTP client for Tracker B's JQL search endpoint.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/example/orphanscan/internal/ports/secondary"
)

const (
	defaultSearchPath = "rest/api/2/search"
	maxResponseSize   = 64 << 20
	maxErrorBody      = 512
)

// Config holds configuration for creating a Tracker B Client.
type Config struct {
	// HomeURL is the tracker root taken from the plugin configuration.
	HomeURL string

	Username string
	Password string

	// SearchPath defaults to "rest/api/2/search".
	SearchPath string

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client runs JQL searches with HTTP basic auth.
type Client struct {
	searchURL  string
	username   string
	password   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Tracker B client.
func NewClient(cfg Config) (*Client, error) {
	home := strings.TrimRight(strings.TrimSpace(cfg.HomeURL), "/")
	if home == "" {
		return nil, fmt.Errorf("jira: home URL is required")
	}
	if strings.TrimSpace(cfg.Username) == "" || strings.TrimSpace(cfg.Password) == "" {
		return nil, fmt.Errorf("jira: username and password are required")
	}

	searchPath := strings.TrimLeft(cfg.SearchPath, "/")
	if searchPath == "" {
		searchPath = defaultSearchPath
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		searchURL:  home + "/" + searchPath,
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

type searchResponse struct {
	StartAt    int `json:"startAt"`
	MaxResults int `json:"maxResults"`
	Total      int `json:"total"`
	Issues     []struct {
		Key    string `json:"key"`
		Fields struct {
			Status struct {
				Name string `json:"name"`
			} `json:"status"`
		} `json:"fields"`
	} `json:"issues"`
}

// Search runs one JQL search request.
func (c *Client) Search(ctx context.Context, r secondary.SearchRequest) (*secondary.SearchPage, error) {
	query := url.Values{}
	query.Set("jql", r.JQL)
	query.Set("maxResults", strconv.Itoa(r.MaxResults))
	query.Set("startAt", strconv.Itoa(r.StartAt))
	if r.Fields != "" {
		query.Set("fields", r.Fields)
	}
	target := c.searchURL + "?" + query.Encode()

	label := r.Label
	if label == "" {
		label = "search"
	}
	readable, err := url.QueryUnescape(target)
	if err != nil {
		readable = target
	}
	c.logger.Info("tracker B search", "label", label, "url", target, "readable_url", readable)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("jira: creating request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jira: %s search: %w", label, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("jira: reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(body, apiErr) != nil || len(apiErr.ErrorMessages) == 0 {
			apiErr.Body = truncate(string(body), maxErrorBody)
		}
		apiErr.StatusCode = resp.StatusCode
		if IsBadQuery(apiErr) {
			c.logger.Error("tracker B rejected query", "label", label, "jql", r.JQL, "error", apiErr)
		}
		return nil, apiErr
	}

	var decoded searchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("jira: decoding search response: %w", err)
	}

	page := &secondary.SearchPage{
		StartAt:    decoded.StartAt,
		MaxResults: decoded.MaxResults,
		Total:      decoded.Total,
		Issues:     make([]secondary.RawIssue, 0, len(decoded.Issues)),
	}
	for _, issue := range decoded.Issues {
		page.Issues = append(page.Issues, secondary.RawIssue{
			Key:    issue.Key,
			Status: issue.Fields.Status.Name,
		})
	}
	return page, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ secondary.IssueSearcher = (*Client)(nil)
