package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const userAgent = "studyplan/1.0"

// TokenStore persists the session token issued by the backend.
type TokenStore interface {
	Token() (*oauth2.Token, error)
	SaveToken(token *oauth2.Token) error
	Clear() error
}

// authTransport attaches the stored session token and identifying headers to each request.
type authTransport struct {
	tokens    TokenStore
	transport http.RoundTripper
}

// RoundTrip adds the bearer token, when one is stored, plus a request ID.
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.tokens != nil {
		if tok, err := t.tokens.Token(); err == nil && tok.Valid() {
			tok.SetAuthHeader(req)
		}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	return t.transport.RoundTrip(req)
}

// Client is a typed client for the study planner REST API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenStore
	logger  *slog.Logger
}

// NewClient creates a client for the API rooted at baseURL. Requests carry
// the token held by tokens; a nil store sends anonymous requests.
func NewClient(logger *slog.Logger, baseURL string, tokens TokenStore) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q: scheme and host are required", baseURL)
	}

	return &Client{
		baseURL: u,
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: &authTransport{tokens: tokens, transport: http.DefaultTransport},
		},
		tokens: tokens,
		logger: logger,
	}, nil
}

// errorBody covers the error shapes the backend produces: {"detail": "..."},
// {"detail": [{"loc": [...], "msg": "..."}]}, {"message": "..."} and {"error": "..."}.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Errors  []fieldDetail   `json:"errors"`
}

type fieldDetail struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

func isAuthEndpoint(path string) bool {
	return strings.HasPrefix(path, "/auth/login") || strings.HasPrefix(path, "/auth/register")
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.send(ctx, method, path, query, body, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// download streams a non-JSON response body into w.
func (c *Client) download(ctx context.Context, path, accept string, w io.Writer) (int64, error) {
	resp, err := c.send(ctx, http.MethodGet, path, nil, nil, accept)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to read %s response: %w", path, err)
	}
	return n, nil
}

// send performs the request and turns error statuses into *Error. The caller
// closes the body of a successful response.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any, accept string) (*http.Response, error) {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", accept)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("API request", "method", method, "path", path)
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &Error{Kind: KindNetwork, Err: err}
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		apiErr := decodeError(resp)
		if resp.StatusCode == http.StatusUnauthorized && !isAuthEndpoint(path) && c.tokens != nil {
			c.logger.Warn("Session rejected by server, clearing stored token.", "path", path)
			if err := c.tokens.Clear(); err != nil {
				c.logger.Error("Failed to clear session token", "error", err)
			}
		}
		c.logger.Debug("API request failed", "method", method, "path", path, "status", resp.StatusCode, "kind", apiErr.Kind)
		return nil, apiErr
	}
	return resp, nil
}

func decodeError(resp *http.Response) *Error {
	apiErr := &Error{Kind: KindForStatus(resp.StatusCode), Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || len(data) == 0 {
		return apiErr
	}

	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		// Plain-text error bodies are passed through as the detail.
		var text string
		if json.Unmarshal(data, &text) == nil {
			apiErr.Detail = text
		} else if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("<")) {
			apiErr.Detail = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	var detailText string
	var detailList []fieldDetail
	switch {
	case len(body.Detail) == 0:
	case json.Unmarshal(body.Detail, &detailText) == nil:
		apiErr.Detail = detailText
	case json.Unmarshal(body.Detail, &detailList) == nil:
		apiErr.Fields = toFieldErrors(detailList)
	}
	if len(body.Errors) > 0 {
		apiErr.Fields = append(apiErr.Fields, toFieldErrors(body.Errors)...)
	}
	if apiErr.Detail == "" {
		apiErr.Detail = firstNonEmpty(body.Message, body.Error)
	}
	return apiErr
}

// toFieldErrors keys each message by the second element of its location
// (["query", "short_break_minutes"] -> "short_break_minutes").
func toFieldErrors(details []fieldDetail) []FieldError {
	out := make([]FieldError, 0, len(details))
	for _, d := range details {
		if d.Msg == "" {
			continue
		}
		field := "general"
		if len(d.Loc) > 1 {
			field = fmt.Sprint(d.Loc[1])
		}
		out = append(out, FieldError{Field: field, Message: d.Msg})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ErrNotLoggedIn is returned by operations that need a stored session token.
var ErrNotLoggedIn = errors.New("not logged in, run the 'login' command first")
