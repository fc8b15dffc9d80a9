// Package lark talks to the Lark open platform: tenant tokens, contact lookup
// and the attendance statistics used to import pre-aggregated days.
package lark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

const DefaultBaseURL = "https://open.larksuite.com/open-apis"

type Config struct {
	BaseURL   string
	AppID     string
	AppSecret string
	Timeout   time.Duration
}

// Client is safe for concurrent use. Tokens are cached per tenant.
type Client struct {
	baseURL   string
	appID     string
	appSecret string
	timeout   time.Duration
	base      *http.Client

	mu      sync.Mutex
	tenants map[string]*http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		appID:     cfg.AppID,
		appSecret: cfg.AppSecret,
		timeout:   cfg.Timeout,
		base:      &http.Client{Timeout: cfg.Timeout},
		tenants:   make(map[string]*http.Client),
	}
}

// envelope is the response wrapper of every open platform endpoint.
type envelope[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data T      `json:"data"`
}

// httpClient returns the authorized client for tenantKey. An empty key is the
// app's own tenant.
func (c *Client) httpClient(tenantKey string) *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if hc, ok := c.tenants[tenantKey]; ok {
		return hc
	}

	src := oauth2.ReuseTokenSource(nil, &tenantTokenSource{client: c, tenantKey: tenantKey})
	hc := &http.Client{
		Timeout: c.timeout,
		Transport: &oauth2.Transport{
			Source: src,
			Base:   http.DefaultTransport,
		},
	}
	c.tenants[tenantKey] = hc
	return hc
}

// send issues a JSON request and returns the status code and raw body.
func send(ctx context.Context, hc *http.Client, method, url string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("lark %s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("lark %s %s: read body: %w", method, req.URL.Path, err)
	}
	return resp.StatusCode, raw, nil
}

// call sends body and decodes the envelope's data.
func call[T any](ctx context.Context, hc *http.Client, method, url string, body any) (T, error) {
	var zero T

	status, raw, err := send(ctx, hc, method, url, body)
	if err != nil {
		return zero, err
	}

	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		if status >= 300 {
			return zero, &APIError{StatusCode: status, Msg: strings.TrimSpace(string(raw))}
		}
		return zero, fmt.Errorf("lark %s: decode: %w", url, err)
	}
	if status >= 300 || env.Code != 0 {
		return zero, &APIError{StatusCode: status, Code: env.Code, Msg: env.Msg}
	}

	return env.Data, nil
}

// postJSON is call for endpoints that answer without the data envelope.
func postJSON[T any](ctx context.Context, hc *http.Client, url string, body any) (T, error) {
	var out T

	status, raw, err := send(ctx, hc, http.MethodPost, url, body)
	if err != nil {
		return out, err
	}
	if status >= 300 {
		return out, &APIError{StatusCode: status, Msg: strings.TrimSpace(string(raw))}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("lark %s: decode: %w", url, err)
	}
	return out, nil
}

func (c *Client) url(path string) string {
	return c.baseURL + path
}
