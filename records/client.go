// Package records is a CRUD client for a collection based JSON record store
// (/{collection} and /{collection}/{id}), such as json-server.
package records

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout  = 10 * time.Second
	contentTypeJSON = "application/json"
	maxErrorBody    = 4 << 10
)

// Record is an untyped record as the store returns it
type Record map[string]any

// Filters are exact-match query filters, ?field=value
type Filters map[string]string

func (f Filters) values() url.Values {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	v := url.Values{}
	for _, k := range keys {
		v.Set(k, f[k])
	}
	return v
}

// Client issues exactly one HTTP request per operation. There are no retries.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     zerolog.Logger
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithTimeout overrides the fixed request timeout (primarily for testing)
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithBaseTransport sets the transport requests are sent through after the bearer header is added
func WithBaseTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		if bt, ok := c.httpClient.Transport.(*bearerTransport); ok {
			bt.base = rt
		}
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client for the store at baseURL. tokens may be nil, in which case
// every request is sent unauthenticated.
func New(baseURL string, tokens TokenSource, options ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("[records.New] base URL must be absolute")
	}

	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: &bearerTransport{tokens: tokens, base: http.DefaultTransport},
		},
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Read fetches /{collection}/{id} into out when id is set, otherwise /{collection}
// filtered by filters.
func (c *Client) Read(ctx context.Context, collection, id string, filters Filters, out any) error {
	if id != "" {
		return c.do(ctx, http.MethodGet, endpoint(collection, id), nil, nil, out)
	}
	return c.do(ctx, http.MethodGet, endpoint(collection, ""), filters.values(), nil, out)
}

func (c *Client) Get(ctx context.Context, collection, id string, out any) error {
	return c.Read(ctx, collection, id, nil, out)
}

func (c *Client) List(ctx context.Context, collection string, filters Filters, out any) error {
	return c.Read(ctx, collection, "", filters, out)
}

// Create posts payload to /{collection}; out receives the record with its server assigned id
func (c *Client) Create(ctx context.Context, collection string, payload, out any) error {
	return c.do(ctx, http.MethodPost, endpoint(collection, ""), nil, payload, out)
}

// Update replaces /{collection}/{id} with payload
func (c *Client) Update(ctx context.Context, collection, id string, payload, out any) error {
	return c.do(ctx, http.MethodPut, endpoint(collection, id), nil, payload, out)
}

// Remove deletes /{collection}/{id}; out receives the deleted record when the store echoes it
func (c *Client) Remove(ctx context.Context, collection, id string, out any) error {
	return c.do(ctx, http.MethodDelete, endpoint(collection, id), nil, nil, out)
}

func endpoint(collection, id string) string {
	ep := "/" + url.PathEscape(strings.Trim(collection, "/"))
	if id != "" {
		ep += "/" + url.PathEscape(id)
	}
	return ep
}

func (c *Client) do(ctx context.Context, method, ep string, query url.Values, payload, out any) error {
	reqErr := func(kind ErrorKind, err error) *RequestError {
		return &RequestError{Kind: kind, Method: method, Endpoint: ep, Err: err}
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return reqErr(KindEncode, err)
		}
		body = bytes.NewReader(data)
	}

	u := c.baseURL.JoinPath(strings.TrimPrefix(ep, "/"))
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return reqErr(KindNetwork, err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := KindNetwork
		if isTimeout(err) {
			kind = KindTimeout
		}
		c.logger.Debug().Err(err).Str("method", method).Str("endpoint", ep).Msg("record store request failed")
		return reqErr(kind, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("endpoint", ep).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("record store request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &RequestError{
			Kind:       KindStatus,
			Method:     method,
			Endpoint:   ep,
			StatusCode: resp.StatusCode,
			Body:       string(snippet),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(err) {
			return reqErr(KindTimeout, err)
		}
		return reqErr(KindDecode, err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
