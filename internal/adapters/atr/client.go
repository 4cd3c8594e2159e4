// Package atr is the HTTP client for Tracker A, the internal ticket
// management platform. It logs in with the admin credential, reads the
// Tracker B plugin configuration and lists tickets page by page.
package atr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/example/orphanscan/internal/config"
	"github.com/example/orphanscan/internal/ports/secondary"
)

// maxResponseSize bounds every response body read. Listing pages of ten
// thousand tickets run to tens of megabytes.
const maxResponseSize = 256 << 20

// Config holds configuration for creating a Tracker A Client.
type Config struct {
	// BaseURL is the platform root, e.g. "https://atr.example.com".
	BaseURL string

	Username string
	Password string

	// Endpoint paths relative to BaseURL. Empty values use the defaults
	// from the config package.
	LoginPath   string
	PluginPath  string
	TicketsPath string

	// HTTPClient is used for all requests. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client talks to Tracker A with a session token obtained at Login.
type Client struct {
	baseURL     string
	username    string
	password    string
	loginPath   string
	pluginPath  string
	ticketsPath string
	httpClient  *http.Client
	logger      *slog.Logger
	token       string
}

// NewClient creates a Tracker A client. It does not contact the server.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("atr: base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("atr: invalid base URL %q: %w", baseURL, err)
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
		baseURL:     baseURL,
		username:    cfg.Username,
		password:    cfg.Password,
		loginPath:   pathOr(cfg.LoginPath, config.DefaultLoginPath),
		pluginPath:  pathOr(cfg.PluginPath, config.DefaultPluginPath),
		ticketsPath: pathOr(cfg.TicketsPath, config.DefaultTicketsPath),
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse covers the token field names the gateway has used.
type loginResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"accessToken"`
	APIToken    string `json:"apiToken"`
	Data        struct {
		Token string `json:"token"`
	} `json:"data"`
}

// Login exchanges the admin credential for a session token.
func (c *Client) Login(ctx context.Context) error {
	payload, err := json.Marshal(loginRequest{Username: c.username, Password: c.password})
	if err != nil {
		return fmt.Errorf("atr: encoding login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.loginPath), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("atr: creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, header, err := c.send(req, c.loginPath)
	if IsUnauthorized(err) {
		return fmt.Errorf("atr: admin credential for %q rejected: %w", c.username, err)
	}
	if err != nil {
		return fmt.Errorf("failed to log in to tracker A: %w", err)
	}

	var resp loginResponse
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("atr: decoding login response: %w", err)
		}
	}

	token := firstNonEmpty(resp.Token, resp.AccessToken, resp.APIToken, resp.Data.Token, header.Get("apiToken"))
	if token == "" {
		return fmt.Errorf("atr: login response carried no token")
	}
	c.token = token
	return nil
}

// PluginConfig retrieves the Tracker B plugin configuration document.
func (c *Client) PluginConfig(ctx context.Context) (*config.PluginDocument, error) {
	body, err := c.get(ctx, c.pluginPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch plugin configuration: %w", err)
	}

	var doc config.PluginDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("atr: decoding plugin configuration: %w", err)
	}
	return &doc, nil
}

// ListTickets retrieves one listing page. A payload that is not a JSON
// array comes back with IsList false and no tickets.
func (c *Client) ListTickets(ctx context.Context, r secondary.TicketPageRequest) (*secondary.TicketPage, error) {
	query := url.Values{}
	query.Set("ticketType", r.TicketType)
	query.Set("sortDirection", "DESC")
	query.Set("page", strconv.Itoa(r.Page))
	query.Set("perPage", strconv.Itoa(r.PerPage))
	query.Set("preset", "default")
	query.Set("isFuzzy", "true")
	query.Set("isScoreRequired", "false")

	body, err := c.get(ctx, c.ticketsPath, query)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return &secondary.TicketPage{}, nil
	}

	var items []ticketItem
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("atr: decoding ticket page %d: %w", r.Page, err)
	}

	page := &secondary.TicketPage{IsList: true, Tickets: make([]secondary.RawTicket, 0, len(items))}
	for _, item := range items {
		page.Tickets = append(page.Tickets, item.raw())
	}
	return page, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := c.endpoint(path)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("atr: creating request: %w", err)
	}
	req.Header.Set("apiToken", c.token)
	req.Header.Set("Accept", "*/*")

	body, _, err := c.send(req, path)
	return body, err
}

func (c *Client) send(req *http.Request, path string) ([]byte, http.Header, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("atr: %s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, nil, fmt.Errorf("atr: reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("tracker A request failed", "path", path, "status", resp.StatusCode)
		return nil, nil, &APIError{StatusCode: resp.StatusCode, Path: path, Body: truncate(string(body), 512)}
	}
	return body, resp.Header, nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// ticketItem is one element of a listing page.
type ticketItem struct {
	ID       flexString `json:"id"`
	CoreData struct {
		ID             flexString `json:"id"`
		Number         flexString `json:"number"`
		State          string     `json:"state"`
		LastUpdateDate string     `json:"lastUpdateDate"`
	} `json:"coreData"`
}

func (t ticketItem) raw() secondary.RawTicket {
	id := string(t.ID)
	if id == "" {
		id = string(t.CoreData.ID)
	}
	return secondary.RawTicket{
		ID:         id,
		Number:     string(t.CoreData.Number),
		State:      t.CoreData.State,
		LastUpdate: t.CoreData.LastUpdateDate,
	}
}

// flexString accepts a JSON string or number. null leaves it empty.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("atr: expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

func pathOr(path, fallback string) string {
	if strings.TrimSpace(path) == "" {
		return fallback
	}
	return path
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ secondary.TicketPlatform = (*Client)(nil)
