// Package forwarder delivers attendance records to the cloud attendance API.
package forwarder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
	"github.com/valyala/fastjson"

	"github.com/ferux/attendancebridge/internal/config"
	"github.com/ferux/attendancebridge/internal/fcontext"
	"github.com/ferux/attendancebridge/internal/model"
)

const maxResponseBody = 64 << 10 // 64 KiB

// Forwarder sends a single record upstream.
type Forwarder interface {
	Forward(ctx context.Context, rec model.AttendanceRecord) model.ForwardResult
}

// HTTPClient posts records as JSON. It is safe for concurrent use.
type HTTPClient struct {
	client    *http.Client
	url       string
	token     string
	userAgent string
	signer    Signer
}

type Option func(c *HTTPClient)

// WithSigner sets validationToken producer.
func WithSigner(s Signer) Option {
	return func(c *HTTPClient) { c.signer = s }
}

// WithHTTPClient replaces underlying client. Its Timeout is set from config
// when empty.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.client = hc }
}

// WithUserAgent sets User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *HTTPClient) { c.userAgent = ua }
}

// New creates upstream client.
func New(cfg config.Upstream, opts ...Option) (*HTTPClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("upstream url is empty: %w", model.ErrMissingParameter)
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing upstream url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("upstream url scheme %q: %w", u.Scheme, model.ErrInvalidParameter)
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("upstream timeout must be positive: %w", model.ErrInvalidParameter)
	}

	c := &HTTPClient{
		url:       cfg.URL,
		token:     cfg.Token,
		userAgent: "attendancebridge",
		signer:    NopSigner{},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil {
		c.client = &http.Client{}
	}

	if c.client.Timeout == 0 {
		c.client.Timeout = cfg.Timeout.Std()
	}

	return c, nil
}

type attendanceRequest struct {
	DeviceSerialNumber string           `json:"deviceSerialNumber"`
	EmployeeCode       string           `json:"employeeCode"`
	VerifyMode         model.VerifyMode `json:"verifyMode"`
	Timestamp          string           `json:"timestamp"`
	ValidationToken    string           `json:"validationToken,omitempty"`
}

// Forward makes exactly one attempt to deliver rec.
func (c *HTTPClient) Forward(ctx context.Context, rec model.AttendanceRecord) (result model.ForwardResult) {
	logger := zerolog.Ctx(ctx).With().Str("pkg", "forwarder").Logger()

	body, err := c.marshal(ctx, rec)
	if err != nil {
		result.Err = err
		return result
	}

	logger.Debug().Str("url", c.url).RawJSON("body", body).Msg("sending attendance")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		result.Err = fmt.Errorf("making new request: %v: %w", err, model.ErrMarshal)
		return result
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	if sid := fcontext.SessionID(ctx); sid != "" {
		req.Header.Set("X-Request-ID", sid)
	}

	if host := deviceHost(fcontext.RemoteAddr(ctx)); host != "" {
		req.Header.Set("X-Forwarded-For", host)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		result.Err = fmt.Errorf("sending request: %v: %w", err, model.ErrTransport)
		return result
	}
	defer func() {
		errclose := resp.Body.Close()
		if errclose != nil {
			logger.Warn().Err(errclose).Msg("closing response body")
		}
	}()

	result.StatusCode = resp.StatusCode

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		logger.Warn().Err(err).Int("status", resp.StatusCode).Msg("reading response body")
	}

	message := responseMessage(respBody)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if message != "" {
			result.Err = fmt.Errorf("expected 2xx got %d (%s): %w", resp.StatusCode, message, model.ErrWrongStatusCode)
		} else {
			result.Err = fmt.Errorf("expected 2xx got %d: %w", resp.StatusCode, model.ErrWrongStatusCode)
		}

		return result
	}

	logger.Debug().Int("status", resp.StatusCode).Str("message", message).Msg("data sent to cloud")

	return result
}

func (c *HTTPClient) marshal(ctx context.Context, rec model.AttendanceRecord) ([]byte, error) {
	token, err := c.signer.Sign(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("signing record: %v: %w", err, model.ErrMarshal)
	}

	data, err := json.Marshal(attendanceRequest{
		DeviceSerialNumber: rec.DeviceSerialNumber,
		EmployeeCode:       rec.EmployeeCode,
		VerifyMode:         rec.VerifyMode,
		Timestamp:          rec.Timestamp,
		ValidationToken:    token,
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling request data: %v: %w", err, model.ErrMarshal)
	}

	return data, nil
}

// deviceHost strips port from the device address.
func deviceHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return host
}

// responseMessage picks "message" out of a JSON response. Anything else
// gives empty string.
func responseMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	v, err := fastjson.ParseBytes(body)
	if err != nil {
		return ""
	}

	return string(v.GetStringBytes("message"))
}
