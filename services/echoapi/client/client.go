// Package client calls the echoapi service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
	"github.com/xinkaiwang/helloecho/libs/xklib/klogging"
	"github.com/xinkaiwang/helloecho/libs/xklib/kmetrics"
	"github.com/xinkaiwang/helloecho/services/echoapi/api"
)

const (
	ErrNetworkResponseNotOk = "NetworkResponseNotOk"
	ErrNetworkError         = "NetworkError"
	ErrInvalidResponse      = "InvalidResponse"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New example: New("http://localhost:3001")
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Hello returns the greeting message.
func (c *Client) Hello(ctx context.Context) (string, error) {
	var resp api.HelloResponse
	err := kmetrics.InstrumentSummaryRunError(ctx, "client.hello", func(ctx context.Context) error {
		return c.do(ctx, http.MethodGet, "/api/hello", nil, &resp)
	}, "")
	return resp.Message, err
}

// Echo sends text as is; validation is left to the server.
func (c *Client) Echo(ctx context.Context, text string) (string, error) {
	var resp api.EchoResponse
	err := kmetrics.InstrumentSummaryRunError(ctx, "client.echo", func(ctx context.Context) error {
		return c.do(ctx, http.MethodPost, "/api/echo", &api.EchoRequest{Text: text}, &resp)
	}, "")
	return resp.Message, err
}

// do returns a NetworkError kerror (EC_NETWORK_ERR) when no response was received, and a
// NetworkResponseNotOk kerror carrying the status and the server's error string on non-2xx.
func (c *Client) do(ctx context.Context, method, path string, reqBody interface{}, respBody interface{}) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return kerror.Wrap(err, "MarshalFailed", "failed to encode request", false)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return kerror.Wrap(err, ErrNetworkError, "invalid request", false).WithErrorCode(kerror.EC_NETWORK_ERR)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if traceId := klogging.GetTraceId(ctx); traceId != "" {
		req.Header.Set(api.RequestIdHeader, traceId)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return kerror.Wrap(err, ErrNetworkError, "Failed to fetch", false).
			WithErrorCode(kerror.EC_NETWORK_ERR).
			With("method", method).
			With("path", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ke := kerror.Create(ErrNetworkResponseNotOk, "Network response was not ok").
			WithErrorCode(kerror.ErrorCodeFromHttpStatus(resp.StatusCode)).
			With("status", resp.StatusCode).
			With("path", path).
			WithoutStack()
		var errResp api.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Error != "" {
			ke.With("serverError", errResp.Error)
		}
		return ke
	}
	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return kerror.Wrap(err, ErrInvalidResponse, "failed to decode response", false).With("path", path)
	}
	return nil
}

// StatusCode returns the HTTP status carried by a NetworkResponseNotOk error, 0 otherwise.
func StatusCode(err error) int {
	ke, ok := err.(*kerror.Kerror)
	if !ok || ke.Type != ErrNetworkResponseNotOk {
		return 0
	}
	status, _ := ke.GetDetail("status").(int)
	return status
}

// ServerError returns the server's error string carried by a NetworkResponseNotOk error, "" otherwise.
func ServerError(err error) string {
	ke, ok := err.(*kerror.Kerror)
	if !ok {
		return ""
	}
	msg, _ := ke.GetDetail("serverError").(string)
	return msg
}
