// Package textin implements the extraction backend on top of the TextIn XParse
// HTTP API: schema-driven entity extraction for the application form and
// document-to-Markdown rendering for attachments.
package textin

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/textaudit/internal/extract"
	"github.com/ppiankov/textaudit/internal/model"
	"github.com/ppiankov/textaudit/internal/util"
	"go.uber.org/zap"
)

const (
	extractPath = "/ai/service/v3/entity_extraction"
	renderPath  = "/ai/service/v1/pdf_to_markdown"

	maxResponseBytes = 64 << 20
)

// ErrMissingCredentials is returned when the app id or secret code is empty
var ErrMissingCredentials = errors.New("textin: app id and secret code are required")

// retrySleepFunc is swapped out by tests
var retrySleepFunc = time.Sleep

// Waiter throttles outgoing requests; *worker.Limiter satisfies it
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// APIError is a failure reported in the TextIn response envelope
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("textin API error %d: %s", e.Code, e.Message)
}

// StatusError is a non-2xx HTTP response
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.StatusCode, e.Body)
}

// Client talks to the TextIn API. It implements extract.Backend.
type Client struct {
	cfg        model.TextInConfig
	baseURL    string
	httpClient *http.Client
	limiter    Waiter
	logger     *zap.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithLimiter throttles every request through w
func WithLimiter(w Waiter) Option {
	return func(c *Client) { c.limiter = w }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a TextIn client from explicit configuration
func NewClient(cfg model.TextInConfig, opts ...Option) (*Client, error) {
	if cfg.AppID == "" || cfg.SecretCode == "" {
		return nil, ErrMissingCredentials
	}

	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.textin.com"
	}
	if cfg.PageCount <= 0 {
		cfg.PageCount = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	c := &Client{
		cfg:     cfg,
		baseURL: base,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type extractRequest struct {
	File           fileBody       `json:"file"`
	Schema         schema         `json:"schema"`
	ParseOptions   parseOptions   `json:"parse_options"`
	ExtractOptions extractOptions `json:"extract_options"`
}

type fileBody struct {
	FileBase64 string `json:"file_base64"`
	FileName   string `json:"file_name"`
}

type schema struct {
	Type       string              `json:"type"`
	Properties map[string]property `json:"properties"`
}

type property struct {
	Type        []string `json:"type"`
	Description string   `json:"description"`
}

type parseOptions struct {
	CropDewarp int    `json:"crop_dewarp"`
	GetImage   string `json:"get_image"`
}

type extractOptions struct {
	GenerateCitations bool `json:"generate_citations"`
	Stamp             bool `json:"stamp"`
}

type envelope struct {
	Code      int             `json:"code"`
	ErrorCode *int            `json:"error_code"`
	Message   string          `json:"message"`
	Result    json.RawMessage `json:"result"`
}

// ExtractFields implements extract.FieldExtractor
func (c *Client) ExtractFields(ctx context.Context, doc extract.Document, fields []model.Field) (extract.Fields, error) {
	if len(fields) == 0 {
		return extract.Fields{}, nil
	}

	props := make(map[string]property, len(fields))
	for _, f := range fields {
		desc := f.Description
		if desc == "" {
			desc = string(f.Name)
		}
		props[string(f.Name)] = property{Type: []string{"string", "null"}, Description: desc}
	}

	body, err := json.Marshal(extractRequest{
		File: fileBody{
			FileBase64: base64.StdEncoding.EncodeToString(doc.Content),
			FileName:   doc.Name,
		},
		Schema:         schema{Type: "object", Properties: props},
		ParseOptions:   parseOptions{CropDewarp: 1, GetImage: "none"},
		ExtractOptions: extractOptions{GenerateCitations: false, Stamp: false},
	})
	if err != nil {
		return nil, extract.Wrap(extract.OpExtract, doc.Name, fmt.Errorf("marshal request: %w", err))
	}

	env, err := c.post(ctx, c.baseURL+extractPath, "application/json", body)
	if err != nil {
		return nil, extract.Wrap(extract.OpExtract, doc.Name, err)
	}
	if env.Code != http.StatusOK {
		return nil, extract.Wrap(extract.OpExtract, doc.Name, &APIError{Code: env.apiCode(), Message: env.Message})
	}

	raw, err := decodeExtraction(env.Result)
	if err != nil {
		return nil, extract.Wrap(extract.OpExtract, doc.Name, err)
	}

	out := extract.Sanitize(raw, fields)
	c.logger.Debug("textin extraction complete",
		zap.String("file", doc.Name),
		zap.Int("requested", len(fields)),
		zap.Int("found", len(out)))
	return out, nil
}

// RenderText implements extract.TextRenderer
func (c *Client) RenderText(ctx context.Context, doc extract.Document) (string, error) {
	params := url.Values{}
	params.Set("markdown_details", "1")
	params.Set("page_count", strconv.Itoa(c.cfg.PageCount))
	params.Set("parse_mode", "auto")
	params.Set("table_flavor", "markdown")

	env, err := c.post(ctx, c.baseURL+renderPath+"?"+params.Encode(), "application/octet-stream", doc.Content)
	if err != nil {
		return "", extract.Wrap(extract.OpRender, doc.Name, err)
	}

	var result struct {
		Markdown *string `json:"markdown"`
	}
	if len(env.Result) > 0 {
		_ = json.Unmarshal(env.Result, &result)
	}

	ok := env.Code == http.StatusOK || (env.ErrorCode != nil && *env.ErrorCode == 0) || result.Markdown != nil
	if !ok {
		return "", extract.Wrap(extract.OpRender, doc.Name, &APIError{Code: env.apiCode(), Message: env.Message})
	}

	markdown := ""
	if result.Markdown != nil {
		markdown = *result.Markdown
	}
	c.logger.Debug("textin render complete",
		zap.String("file", doc.Name),
		zap.Int("chars", len([]rune(markdown))))

	return extract.FlattenTables(markdown), nil
}

func (e envelope) apiCode() int {
	if e.ErrorCode != nil && *e.ErrorCode != 0 {
		return *e.ErrorCode
	}
	return e.Code
}

// post sends one request with retries on transient failures
func (c *Client) post(ctx context.Context, rawURL, contentType string, body []byte) (*envelope, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			c.logger.Warn("retrying textin request",
				zap.String("endpoint", endpointOf(rawURL)),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			retrySleepFunc(backoff)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx, rawURL); err != nil {
				return nil, fmt.Errorf("rate limit: %w", err)
			}
		}

		env, err := c.do(ctx, rawURL, contentType, body)
		if err == nil {
			return env, nil
		}
		lastErr = err
		if !isRetryable(ctx, err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, rawURL, contentType string, body []byte) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-ti-app-id", c.cfg.AppID)
	req.Header.Set("x-ti-secret-code", c.cfg.SecretCode)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(data), 200)}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &env, nil
}

// isRetryable reports whether a failed attempt is worth repeating
func isRetryable(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	// http.Client reports connection failures and timeouts as *url.Error
	var ue *url.Error
	return errors.As(err, &ue)
}

// decodeExtraction flattens the result object into field → string.
// Values may be nested under extracted_schema or wrapped as {"value": ...}.
func decodeExtraction(result json.RawMessage) (map[string]string, error) {
	if len(result) == 0 || string(result) == "null" {
		return map[string]string{}, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(result, &obj); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if nested, ok := obj["extracted_schema"]; ok {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(nested, &inner); err == nil {
			obj = inner
		}
	}

	out := make(map[string]string, len(obj))
	for k, v := range obj {
		if s, ok := scalar(v); ok {
			out[k] = s
		}
	}
	return out, nil
}

func scalar(raw json.RawMessage) (string, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	return stringify(v)
}

func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case []any:
		var parts []string
		for _, item := range t {
			if s, ok := stringify(item); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "、"), len(parts) > 0
	case map[string]any:
		if inner, ok := t["value"]; ok {
			return stringify(inner)
		}
	}
	return "", false
}

func endpointOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return u.Path
	}
	return rawURL
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
