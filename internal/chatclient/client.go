// Package chatclient is the HTTP client for the Nova-Bot API.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const DefaultBaseURL = "http://127.0.0.1:5000"

// ErrMalformedResponse is returned when a 2xx query response carries no answer.
var ErrMalformedResponse = errors.New("chatclient: response has no answer")

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	UserID *string `json:"user_id"`
	Email  *string `json:"email"`
	Query  string  `json:"query"`
	ChatID string  `json:"chat_id,omitempty"`
}

// QueryResponse is the decoded body of a successful POST /query.
type QueryResponse struct {
	Answer    string   `json:"answer"`
	Followups []string `json:"followups,omitempty"`
	ChatID    string   `json:"chat_id,omitempty"`
}

// NewQueryRequest builds a query body. Empty identity values are sent as JSON null.
func NewQueryRequest(userID, email, query, chatID string) QueryRequest {
	return QueryRequest{
		UserID: nullable(userID),
		Email:  nullable(email),
		Query:  query,
		ChatID: chatID,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type queryPayload struct {
	Answer    *string  `json:"answer"`
	Followups []string `json:"followups"`
	ChatID    string   `json:"chat_id"`
}

type signinRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Welcome is the body of GET /.
type Welcome struct {
	Message string `json:"message"`
}

// HTTPStatusError captures non-2xx responses.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("chatclient: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client talks to the Nova-Bot API. It holds no session state; callers pass identity per call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

// WithHTTPClient sets the HTTP client. Request timeouts are applied per call through the
// context, so the client itself usually has none.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client for DefaultBaseURL unless WithBaseURL says otherwise.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// BaseURL returns the API base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return strings.TrimRight(c.baseURL, "/")
}

func (c *Client) endpoint(path string) string {
	return c.BaseURL() + path
}

// Query sends one user query.
func (c *Client) Query(ctx context.Context, in QueryRequest) (QueryResponse, error) {
	url := c.endpoint("/query")
	raw, err := c.postJSON(ctx, url, in)
	if err != nil {
		return QueryResponse{}, fmt.Errorf("chatclient: query: %w", err)
	}

	var payload queryPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return QueryResponse{}, fmt.Errorf("chatclient: decode query response: %w", err)
	}
	if payload.Answer == nil {
		return QueryResponse{}, ErrMalformedResponse
	}
	return QueryResponse{
		Answer:    *payload.Answer,
		Followups: payload.Followups,
		ChatID:    payload.ChatID,
	}, nil
}

// Signin performs the sign-in handshake. Only the status matters; the body is logged and dropped.
func (c *Client) Signin(ctx context.Context, userID, email string) error {
	url := c.endpoint("/signin")
	raw, err := c.postJSON(ctx, url, signinRequest{UserID: userID, Email: email})
	if err != nil {
		return fmt.Errorf("chatclient: signin: %w", err)
	}
	c.logger.Debug("signin handshake accepted", "user_id", userID, "body", string(raw))
	return nil
}

// Welcome fetches the API greeting from GET /.
func (c *Client) Welcome(ctx context.Context) (Welcome, error) {
	url := c.endpoint("/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Welcome{}, fmt.Errorf("chatclient: create welcome request: %w", err)
	}
	raw, err := c.doJSONRequest(req, url)
	if err != nil {
		return Welcome{}, fmt.Errorf("chatclient: welcome: %w", err)
	}
	var w Welcome
	if err := json.Unmarshal(raw, &w); err != nil {
		return Welcome{}, fmt.Errorf("chatclient: decode welcome: %w", err)
	}
	return w, nil
}

func (c *Client) postJSON(ctx context.Context, url string, body any) ([]byte, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSONRequest(req, url)
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

// StatusCode extracts the HTTP status from an error chain, if any.
func StatusCode(err error) (int, bool) {
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.StatusCode, true
}
