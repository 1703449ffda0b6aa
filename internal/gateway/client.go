// Package gateway is the typed client for the Mendaur backend REST API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const maxBodyBytes = 10 << 20

// Outcomes recorded per call.
const (
	OutcomeOK        = "ok"
	OutcomeFailure   = "failure"
	OutcomeTransport = "transport"
	OutcomeFallback  = "fallback"
)

// MetricsRecorder receives one observation per backend call.
type MetricsRecorder interface {
	ObserveGateway(op, outcome string, elapsed time.Duration)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Fallback   bool
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    MetricsRecorder
}

// Client issues authenticated calls to the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	fallback   bool
	logger     *slog.Logger
	metrics    MetricsRecorder
}

// NewClient constructs a Client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		fallback:   opts.Fallback,
		logger:     logger,
		metrics:    opts.Metrics,
	}
}

// FallbackEnabled reports whether reads substitute fixtures on transport errors.
func (c *Client) FallbackEnabled() bool {
	return c.fallback
}

// TransportError means the request never produced an HTTP response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gateway: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is a transport-level failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// send performs exactly one HTTP exchange.
func (c *Client) send(ctx context.Context, op, method, path, token string, query url.Values, payload Payload) ([]byte, error) {
	start := time.Now()
	body, contentType, method, err := encodePayload(method, payload)
	if err != nil {
		return nil, fmt.Errorf("gateway: %s: encode: %w", op, err)
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("gateway: %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(op, OutcomeTransport, start)
		return nil, &TransportError{Op: op, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.observe(op, OutcomeTransport, start)
		return nil, &TransportError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.observe(op, OutcomeFailure, start)
		return nil, newFailure(resp.StatusCode, raw)
	}
	c.observe(op, OutcomeOK, start)
	return raw, nil
}

// fetch is a GET retried once on transport errors.
func (c *Client) fetch(ctx context.Context, op, path, token string, query url.Values) ([]byte, error) {
	body, err := c.send(ctx, op, http.MethodGet, path, token, query, nil)
	if err == nil || !IsTransport(err) || ctx.Err() != nil {
		return body, err
	}
	c.logger.Debug("gateway retry", slog.String("op", op), slog.Any("error", err))
	return c.send(ctx, op, http.MethodGet, path, token, query, nil)
}

// canFallback gates fixture substitution: only transport failures while the
// caller is still waiting.
func (c *Client) canFallback(ctx context.Context, err error) bool {
	return c.fallback && IsTransport(err) && ctx.Err() == nil
}

func (c *Client) degraded(op string, err error) {
	c.observe(op, OutcomeFallback, time.Now())
	c.logger.Warn("gateway degraded, serving fixtures", slog.String("op", op), slog.Any("error", err))
}

func (c *Client) observe(op, outcome string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.ObserveGateway(op, outcome, time.Since(start))
}

func encodePayload(method string, payload Payload) (io.Reader, string, string, error) {
	if payload == nil {
		if method == http.MethodGet || method == http.MethodDelete {
			return nil, "application/json", method, nil
		}
		return bytes.NewReader([]byte("{}")), "application/json", method, nil
	}
	if !payload.hasFile() {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, "", method, err
		}
		return bytes.NewReader(data), "application/json", method, nil
	}

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	// PHP only parses multipart bodies on POST; other verbs are spoofed.
	if method != http.MethodPost {
		if err := writer.WriteField("_method", method); err != nil {
			return nil, "", method, err
		}
		method = http.MethodPost
	}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := writePart(writer, key, payload[key]); err != nil {
			return nil, "", method, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", method, err
	}
	return buf, writer.FormDataContentType(), method, nil
}

func writePart(writer *multipart.Writer, key string, value any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case *File:
		if v == nil {
			return nil
		}
		return writeFile(writer, key, *v)
	case File:
		return writeFile(writer, key, v)
	case string:
		return writer.WriteField(key, v)
	case bool:
		if v {
			return writer.WriteField(key, "1")
		}
		return writer.WriteField(key, "0")
	case int:
		return writer.WriteField(key, strconv.Itoa(v))
	case int64:
		return writer.WriteField(key, strconv.FormatInt(v, 10))
	case float64:
		return writer.WriteField(key, strconv.FormatFloat(v, 'f', -1, 64))
	case Number:
		return writer.WriteField(key, strconv.FormatFloat(float64(v), 'f', -1, 64))
	case fmt.Stringer:
		return writer.WriteField(key, v.String())
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return writer.WriteField(key, string(data))
	}
}

func writeFile(writer *multipart.Writer, key string, file File) error {
	name := file.Name
	if name == "" {
		name = key
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(file.Data)
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(key), escapeQuotes(name)))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write(file.Data)
	return err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
