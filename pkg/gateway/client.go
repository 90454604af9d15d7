// Package gateway is the typed client for the trip planner API: one
// method per server operation plus a live chat channel per room. Every
// failure is classified into the neterr taxonomy; callers never see
// status codes or response text.
package gateway

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"tripsync/pkg/logger"
	"tripsync/pkg/neterr"
)

// TokenProvider supplies the opaque credential attached to every call
// and to the websocket URL. The second return is false when no
// credential is available.
type TokenProvider interface {
	AccessToken() (string, bool)
}

// StaticToken is a fixed-credential TokenProvider.
type StaticToken string

func (t StaticToken) AccessToken() (string, bool) { return string(t), t != "" }

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. "https://api.example.com".
	BaseURL string
	// WSURL is the websocket root, e.g. "wss://api.example.com".
	// Derived from BaseURL when empty.
	WSURL string
	// Timeout bounds every call; zero means 10s.
	Timeout time.Duration
	Token   TokenProvider
}

// Client issues typed requests against the backend.
type Client struct {
	http    *fasthttp.Client
	baseURL string
	wsURL   string
	timeout time.Duration
	token   TokenProvider
}

// New builds a Client. Token may be nil for unauthenticated use.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	base := strings.TrimSuffix(opts.BaseURL, "/")
	ws := strings.TrimSuffix(opts.WSURL, "/")
	if ws == "" {
		ws = strings.Replace(strings.Replace(base, "https://", "wss://", 1), "http://", "ws://", 1)
	}
	return &Client{
		http: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		baseURL: base,
		wsURL:   ws,
		timeout: timeout,
		token:   opts.Token,
	}
}

// doJSON performs one call: marshal body, attach credential, classify
// the outcome. A nil out discards the response body.
func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out any) error {
	if err := ctx.Err(); err != nil {
		return neterr.Wrap(neterr.ConnectionFailure, op, err)
	}
	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < timeout {
			timeout = rem
		}
	}
	if timeout <= 0 {
		return neterr.New(neterr.ConnectionFailure, op, "deadline exceeded")
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	if c.token != nil {
		if tok, ok := c.token.AccessToken(); ok {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return neterr.Wrap(neterr.DecodeFailure, op, err)
		}
		req.SetBody(b)
	}

	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		logger.Debug("gateway_transport_error", "op", op, "error", err)
		return neterr.Wrap(neterr.ConnectionFailure, op, err)
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		logger.Debug("gateway_status_error", "op", op, "status", status)
		return neterr.FromStatus(op, status)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return neterr.Wrap(neterr.DecodeFailure, op, err)
	}
	return nil
}
