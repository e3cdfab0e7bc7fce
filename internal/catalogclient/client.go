// Package catalogclient talks to the catalog REST API
package catalogclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/guonaihong/gout"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/talkincode/plantcatalog/internal/domain"
	"github.com/talkincode/plantcatalog/internal/query"
	"github.com/talkincode/plantcatalog/internal/schema"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// APIError is a non-2xx answer from the server
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsNotFound reports whether err is a 404 from the server
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type Option func(*Client)

// WithHTTPClient replaces the transport, e.g. with an httptest server client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// Client is safe for concurrent use
type Client struct {
	base string
	http *http.Client
	log  *zap.Logger
}

// New creates a client for the server at base, e.g. http://127.0.0.1:1816
func New(base string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
		log:  zap.L(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// do sends one request. Network and decoding failures come back as plain
// errors, server rejections as *APIError.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var (
		raw  []byte
		code int
	)
	df := gout.New(c.http).
		SetMethod(method).
		SetURL(c.base + "/api" + path).
		WithContext(ctx).
		BindBody(&raw).
		Code(&code)
	if in != nil {
		df = df.SetJSON(in)
	}
	if err := df.Do(); err != nil {
		c.log.Error("catalog request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return errors.Wrapf(err, "%s %s", method, path)
	}

	if code < 200 || code > 299 {
		apiErr := &APIError{Status: code, Message: http.StatusText(code)}
		var body errorBody
		if json.Unmarshal(raw, &body) == nil && body.Error != "" {
			apiErr.Message = body.Error
			apiErr.Fields = body.Fields
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "decode %s %s response", method, path)
	}
	return nil
}

func withQuery(path string, v url.Values) string {
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}

func (c *Client) List(ctx context.Context, p query.Params) ([]domain.Plant, error) {
	plants := make([]domain.Plant, 0)
	err := c.do(ctx, http.MethodGet, withQuery("/plants", p.Values()), nil, &plants)
	return plants, err
}

func (c *Client) Get(ctx context.Context, id string) (domain.Plant, error) {
	var p domain.Plant
	err := c.do(ctx, http.MethodGet, "/plants/"+url.PathEscape(id), nil, &p)
	return p, err
}

func (c *Client) Create(ctx context.Context, patch schema.Patch) (domain.Plant, error) {
	var p domain.Plant
	err := c.do(ctx, http.MethodPost, "/plants", patch, &p)
	return p, err
}

func (c *Client) Update(ctx context.Context, id string, patch schema.Patch) (domain.Plant, error) {
	var p domain.Plant
	err := c.do(ctx, http.MethodPut, "/plants/"+url.PathEscape(id), patch, &p)
	return p, err
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/plants/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Categories(ctx context.Context) ([]string, error) {
	cats := make([]string, 0)
	err := c.do(ctx, http.MethodGet, "/categories", nil, &cats)
	return cats, err
}

func (c *Client) Stats(ctx context.Context, p query.Params) (domain.Stats, error) {
	var st domain.Stats
	err := c.do(ctx, http.MethodGet, withQuery("/plants/stats", p.Values()), nil, &st)
	return st, err
}

// Health checks that the server answers
func (c *Client) Health(ctx context.Context) error {
	var body map[string]string
	if err := c.do(ctx, http.MethodGet, "/health", nil, &body); err != nil {
		return err
	}
	if body["status"] != "ok" {
		return fmt.Errorf("unexpected health status %q", body["status"])
	}
	return nil
}
