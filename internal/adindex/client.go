package adindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/five82/adindex/internal/apperr"
)

// API is the consumed server surface. It is implemented by *Client and can
// be replaced in tests.
type API interface {
	NewSession(ctx context.Context) (Session, error)
	SessionExists(ctx context.Context, sessionID string) (bool, error)
	UpdatePushSub(ctx context.Context, sessionID string, sub json.RawMessage) (bool, error)

	AdQueries(ctx context.Context, sessionID string) ([]AdQuery, error)
	AdQuery(ctx context.Context, sessionID, id string) (AdQuery, error)
	InsertAdQuery(ctx context.Context, sessionID string, q AdQueryBase, subscribed bool) (string, error)
	UpdateAdQuery(ctx context.Context, sessionID string, q AdQuery) (UpdateResult, error)
	DeleteAdQuery(ctx context.Context, id string) (bool, error)
	ClearAdQuery(ctx context.Context, id string) (bool, error)
	ToggleAdQuerySub(ctx context.Context, sessionID, id string, subscribed bool) (bool, error)

	AdContent(ctx context.Context, id string) ([]AdContent, error)
	AdQueryStatus(ctx context.Context, ids []string) ([]QueryStatus, error)
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

// Client talks to the adindex HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	reads     singleflight.Group
}

const (
	defaultAPIURL         = "127.0.0.1:8080"
	defaultUserAgent      = "adindex/0.1"
	defaultRequestTimeout = 10 * time.Second

	requestIDHeader = "X-Request-ID"
)

// NewClient builds a Client for the API at baseURL. A zero timeout uses the
// default.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: timeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	if c == nil || c.baseURL == nil {
		return ""
	}
	return c.baseURL.String()
}

// NewSession asks the server to issue a fresh session.
func (c *Client) NewSession(ctx context.Context) (Session, error) {
	if c == nil {
		return Session{}, fmt.Errorf("client is nil")
	}
	var payload Session
	if err := c.call(ctx, "new_session", struct{}{}, &payload); err != nil {
		return Session{}, err
	}
	if !payload.Valid() {
		return Session{}, apperr.NetworkMessage("new_session", "server returned an incomplete session")
	}
	return payload, nil
}

// SessionExists reports whether the server still knows sessionID.
func (c *Client) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("client is nil")
	}
	var ok bool
	err := c.read(ctx, "session_exists", SessionRequest{SessionID: sessionID}, &ok)
	return ok, err
}

// UpdatePushSub replaces the server's subscription record for the session.
// A nil sub clears it. The result reports whether the session was found.
func (c *Client) UpdatePushSub(ctx context.Context, sessionID string, sub json.RawMessage) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("client is nil")
	}
	var ok bool
	err := c.call(ctx, "update_push_sub", PushSubRequest{SessionID: sessionID, PushSub: sub}, &ok)
	return ok, err
}

// AdQueries lists every saved query with the session's subscription flag.
func (c *Client) AdQueries(ctx context.Context, sessionID string) ([]AdQuery, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload []AdQuery
	if err := c.read(ctx, "ad_queries", SessionRequest{SessionID: sessionID}, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// AdQuery fetches a single saved query.
func (c *Client) AdQuery(ctx context.Context, sessionID, id string) (AdQuery, error) {
	if c == nil {
		return AdQuery{}, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(id) == "" {
		return AdQuery{}, apperr.Validation("query id required")
	}
	var payload *AdQuery
	if err := c.read(ctx, "ad_query", AdQueryRequest{SessionID: sessionID, AdQueryID: id}, &payload); err != nil {
		return AdQuery{}, err
	}
	if payload == nil {
		return AdQuery{}, apperr.NetworkMessage("ad_query", fmt.Sprintf("query %s not found", id))
	}
	return *payload, nil
}

// InsertAdQuery creates a query and returns its id.
func (c *Client) InsertAdQuery(ctx context.Context, sessionID string, q AdQueryBase, subscribed bool) (string, error) {
	if c == nil {
		return "", fmt.Errorf("client is nil")
	}
	if err := ValidateQuery(q); err != nil {
		return "", err
	}
	var id string
	if err := c.call(ctx, "insert_ad_query", InsertRequest{SessionID: sessionID, Query: q, Subscribed: subscribed}, &id); err != nil {
		return "", err
	}
	if id == "" {
		return "", apperr.NetworkMessage("insert_ad_query", "session not found")
	}
	return id, nil
}

// UpdateAdQuery replaces a query's fields and the session's subscription flag.
func (c *Client) UpdateAdQuery(ctx context.Context, sessionID string, q AdQuery) (UpdateResult, error) {
	if c == nil {
		return UpdateResult{}, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(q.ID) == "" {
		return UpdateResult{}, apperr.Validation("query id required")
	}
	if err := ValidateQuery(q.AdQueryBase); err != nil {
		return UpdateResult{}, err
	}
	var payload UpdateResult
	err := c.call(ctx, "update_ad_query", UpdateRequest{SessionID: sessionID, Query: q}, &payload)
	return payload, err
}

// DeleteAdQuery removes a query and its cached content.
func (c *Client) DeleteAdQuery(ctx context.Context, id string) (bool, error) {
	return c.idCall(ctx, "delete_ad_query", id)
}

// ClearAdQuery drops the cached results of a query.
func (c *Client) ClearAdQuery(ctx context.Context, id string) (bool, error) {
	return c.idCall(ctx, "clear_ad_query", id)
}

// ToggleAdQuerySub sets whether the session is notified about a query.
func (c *Client) ToggleAdQuerySub(ctx context.Context, sessionID, id string, subscribed bool) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("client is nil")
	}
	var ok bool
	err := c.call(ctx, "toggle_ad_query_sub", ToggleSubRequest{SessionID: sessionID, AdQueryID: id, Subscribed: subscribed}, &ok)
	return ok, err
}

// AdContent lists the matched content of a query.
func (c *Client) AdContent(ctx context.Context, id string) ([]AdContent, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(id) == "" {
		return nil, apperr.Validation("query id required")
	}
	var payload []AdContent
	if err := c.read(ctx, "ad_content", AdQueryRequest{AdQueryID: id}, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// AdQueryStatus fetches pull/notify status for the given queries.
func (c *Client) AdQueryStatus(ctx context.Context, ids []string) ([]QueryStatus, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var payload []QueryStatus
	if err := c.read(ctx, "ad_query_status", StatusRequest{AdQueryIDs: ids}, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// ValidateQuery checks the fields a user must supply.
func ValidateQuery(q AdQueryBase) error {
	if strings.TrimSpace(q.Nickname) == "" {
		return apperr.Validation("nickname is required")
	}
	if strings.TrimSpace(q.Query) == "" {
		return apperr.Validation("query is required")
	}
	return nil
}

func (c *Client) idCall(ctx context.Context, op, id string) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(id) == "" {
		return false, apperr.Validation("query id required")
	}
	var ok bool
	err := c.call(ctx, op, AdQueryRequest{AdQueryID: id}, &ok)
	return ok, err
}

// read collapses identical concurrent requests into one round trip. The shared
// request is detached from any single caller's cancellation and bounded by the
// client timeout; each caller still stops waiting when its own ctx ends.
func (c *Client) read(ctx context.Context, op string, body any, dest any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	key := op + "\x00" + string(encoded)
	shared := context.WithoutCancel(ctx)
	ch := c.reads.DoChan(key, func() (any, error) {
		return c.post(shared, op, encoded)
	})
	select {
	case <-ctx.Done():
		return apperr.Network(op, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return decodeData(op, res.Val.(json.RawMessage), dest)
	}
}

func (c *Client) call(ctx context.Context, op string, body any, dest any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	raw, err := c.post(ctx, op, encoded)
	if err != nil {
		return err
	}
	return decodeData(op, raw, dest)
}

func (c *Client) post(ctx context.Context, op string, body []byte) (json.RawMessage, error) {
	rel := &url.URL{Path: "/api/" + op}
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Network(op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(requestIDHeader, uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Network(op, fmt.Errorf("execute request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	var env Envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)
	if resp.StatusCode >= 400 {
		if decodeErr == nil && strings.TrimSpace(env.Error) != "" {
			return nil, apperr.NetworkMessage(op, env.Error)
		}
		return nil, apperr.Network(op, fmt.Errorf("api %s returned status %d", rel.String(), resp.StatusCode))
	}
	if decodeErr != nil {
		return nil, apperr.Network(op, fmt.Errorf("decode response: %w", decodeErr))
	}
	if strings.TrimSpace(env.Error) != "" {
		return nil, apperr.NetworkMessage(op, env.Error)
	}
	return env.Data, nil
}

func decodeData(op string, raw json.RawMessage, dest any) error {
	if dest == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return apperr.Network(op, fmt.Errorf("decode data: %w", err))
	}
	return nil
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", apiURL, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
