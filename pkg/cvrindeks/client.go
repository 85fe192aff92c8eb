// Package cvrindeks is a thin HTTP client for the CVR index
// (Elasticsearch-style company search) and the public datacvr announcement
// endpoints. It handles auth, timeouts and client-side rate limiting;
// normalization into domain models happens in the provider layer.
package cvrindeks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "http://distribution.virk.dk/cvr-permanent"

// Client performs raw calls against the CVR index.
type Client interface {
	// SearchVirksomhed runs an Elasticsearch-style query against the
	// virksomhed index.
	SearchVirksomhed(ctx context.Context, body SearchBody) (*SearchResponse, error)
	// GetJSON fetches an absolute URL and decodes the JSON response into out.
	GetJSON(ctx context.Context, url string, out any) error
	// Ping reports upstream reachability (never an error).
	Ping(ctx context.Context) bool
}

// StatusError is returned for non-2xx upstream responses. RetryAfter is the
// parsed Retry-After hint in seconds, when the upstream sent one.
type StatusError struct {
	StatusCode int
	RetryAfter int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cvrindeks: upstream status %d", e.StatusCode)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default index base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) { c.baseURL = url }
}

// WithToken sets a bearer token.
func WithToken(token string) Option {
	return func(c *httpClient) { c.token = token }
}

// WithBasicAuth sets basic-auth credentials (Virk distribution accounts).
func WithBasicAuth(user, password string) Option {
	return func(c *httpClient) {
		c.user = user
		c.password = password
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit overrides the default client-side request rate.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

type httpClient struct {
	baseURL  string
	token    string
	user     string
	password string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a CVR index client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(5, 5),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SearchVirksomhed(ctx context.Context, body SearchBody) (*SearchResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, eris.Wrap(err, "cvrindeks: marshal search body")
	}

	url := c.baseURL + "/virksomhed/_search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "cvrindeks: create search request")
	}
	req.Header.Set("Content-Type", "application/json")

	var result SearchResponse
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return eris.Wrap(err, "cvrindeks: create request")
	}
	return c.do(req, out)
}

func (c *httpClient) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return false
	}
	c.auth(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}

func (c *httpClient) auth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else if c.user != "" {
		req.SetBasicAuth(c.user, c.password)
	}
}

func (c *httpClient) do(req *http.Request, out any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return eris.Wrap(err, "cvrindeks: rate limiter wait")
	}
	c.auth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "cvrindeks: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return eris.Wrap(err, "cvrindeks: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, perr := strconv.Atoi(ra); perr == nil {
				se.RetryAfter = secs
			}
		}
		return se
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "cvrindeks: unmarshal response")
	}
	return nil
}
