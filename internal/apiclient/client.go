// Package apiclient is the single point of contact with the blog API.
// Every method is a plain request/response mapping: no retries, no caching.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/blog-client/internal/tokenstore"
	"github.com/rs/zerolog/log"
)

// Client translates method calls into HTTP requests against baseURL.
type Client struct {
	baseURL string
	http    *http.Client
	store   tokenstore.Store
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a Client for baseURL (e.g. http://localhost:8080/api/v1).
// No timeout is configured; callers bound requests with their context.
func New(baseURL string, store tokenstore.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		store:   store,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// call describes one API request.
type call struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	textBody    bool // the endpoint answers (and fails) in plain text
}

func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// send executes c and returns the response when its status is 2xx. The
// caller must close the body.
func (c *Client) send(ctx context.Context, cl call) (*http.Response, error) {
	target := c.baseURL + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target, cl.body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Op: cl.op, Message: "could not build request", Err: err}
	}
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}
	if cl.textBody {
		req.Header.Set("Accept", "text/plain, application/json")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	requestID := uuid.New().String()
	req.Header.Set("X-Request-ID", requestID)

	token, ok, err := c.store.Read(ctx)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Op: cl.op, Message: "could not read session", Err: err}
	}
	if ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("request_id", requestID).Str("method", cl.method).Str("path", cl.path).Msg("API request failed")
		msg := "could not reach the server"
		if errors.Is(err, context.Canceled) {
			msg = "request cancelled"
		}
		return nil, &Error{Kind: KindNetwork, Op: cl.op, Message: msg, Err: err}
	}
	log.Debug().
		Str("request_id", requestID).
		Str("method", cl.method).
		Str("path", cl.path).
		Int("status", resp.StatusCode).
		Bool("authenticated", ok).
		Dur("elapsed", time.Since(start)).
		Msg("API request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, errorFromResponse(cl.op, resp, cl.textBody)
	}
	return resp, nil
}

// doJSON executes cl and decodes a JSON body into out. A nil out discards the body.
func (c *Client) doJSON(ctx context.Context, cl call, out any) error {
	resp, err := c.send(ctx, cl)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindDecode, Status: resp.StatusCode, Op: cl.op, Message: "unexpected response from server", Err: err}
	}
	return nil
}

// doText executes cl and returns the trimmed text body.
func (c *Client) doText(ctx context.Context, cl call) (string, error) {
	cl.textBody = true
	resp, err := c.send(ctx, cl)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Kind: KindNetwork, Status: resp.StatusCode, Op: cl.op, Message: "could not read response", Err: err}
	}
	return strings.TrimSpace(string(raw)), nil
}
