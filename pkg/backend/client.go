package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/net/publicsuffix"
)

const maxResponseBytes = 4 << 20

const (
	pathUserInfo  = "/get_user_info"
	pathRefresh   = "/api/refresh-token"
	pathProcess   = "/process"
	pathSave      = "/save-to-sheets"
	pathProcessed = "/processed/"
)

// Client is a typed client for the extraction backend. Every call is bounded
// by a timeout and classifies failures as auth, application, or transport errors.
type Client struct {
	base          *url.URL
	http          *http.Client
	timeout       time.Duration
	uploadTimeout time.Duration
	loginPath     string
	userAgent     string
	schema        *jsonschema.Schema
	logger        *slog.Logger
}

// New creates a Client from a finalized Config. Redirects are never followed;
// a redirect from a protected endpoint indicates an expired session.
func New(cfg *Config, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if cfg.SessionCookie != "" {
		jar.SetCookies(base, []*http.Cookie{{
			Name:  cfg.CookieName,
			Value: cfg.SessionCookie,
			Path:  "/",
		}})
	}

	schema, err := compileResultSchema()
	if err != nil {
		return nil, fmt.Errorf("compile result schema: %w", err)
	}

	return &Client{
		base: base,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		timeout:       cfg.TimeoutDuration(),
		uploadTimeout: cfg.UploadTimeoutDuration(),
		loginPath:     cfg.LoginPath,
		userAgent:     cfg.UserAgent,
		schema:        schema,
		logger:        logger.With("system", "backend"),
	}, nil
}

// LoginURL returns the absolute URL a user visits to re-authenticate.
func (c *Client) LoginURL() string {
	return c.resolve(c.loginPath).String()
}

// UserInfo fetches the signed-in user's identity and links.
func (c *Client) UserInfo(ctx context.Context) (*UserInfo, error) {
	resp, err := c.send(ctx, http.MethodGet, pathUserInfo, nil, "", c.timeout)
	if err != nil {
		return nil, err
	}
	if _, err := classify(pathUserInfo, resp); err != nil {
		return nil, err
	}

	var info UserInfo
	if err := json.Unmarshal(resp.body, &info); err != nil {
		return nil, malformedError(pathUserInfo, err)
	}
	return &info, nil
}

// Refresh asks the backend to renew the session's upstream credentials.
// A well-formed failure is returned as a RefreshResult, not an error, so the
// caller can inspect its redirect signal. A redirect to the login page is an
// AuthError.
func (c *Client) Refresh(ctx context.Context) (*RefreshResult, error) {
	resp, err := c.send(ctx, http.MethodPost, pathRefresh, nil, "", c.timeout)
	if err != nil {
		return nil, err
	}
	if isRedirect(resp.status) {
		return nil, &AuthError{Message: DefaultAuthMessage}
	}

	var result RefreshResult
	if err := json.Unmarshal(resp.body, &result); err != nil {
		if isAuthStatus(resp.status) {
			return nil, &AuthError{Message: DefaultAuthMessage}
		}
		return nil, malformedError(pathRefresh, err)
	}
	return &result, nil
}

// Process submits an image for extraction. An auth_error flag wins over any
// result fields present in the same response.
func (c *Client) Process(ctx context.Context, upload Upload) (*ExtractionResult, error) {
	body, contentType, err := multipartBody(upload)
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}

	resp, err := c.send(ctx, http.MethodPost, pathProcess, body, contentType, c.uploadTimeout)
	if err != nil {
		return nil, err
	}
	if _, err := classify(pathProcess, resp); err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(resp.body, &doc); err != nil {
		return nil, malformedError(pathProcess, err)
	}
	if err := c.schema.Validate(doc); err != nil {
		return nil, malformedError(pathProcess, err)
	}

	var result ExtractionResult
	if err := json.Unmarshal(resp.body, &result); err != nil {
		return nil, malformedError(pathProcess, err)
	}
	return &result, nil
}

// Save persists a reviewed reading.
func (c *Client) Save(ctx context.Context, req SaveRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode save request: %w", err)
	}

	resp, err := c.send(ctx, http.MethodPost, pathSave, bytes.NewReader(payload), "application/json", c.timeout)
	if err != nil {
		return "", err
	}

	env, err := classify(pathSave, resp)
	if err != nil {
		return "", err
	}
	if env.Success != nil && !*env.Success {
		msg := env.message()
		if msg == "" {
			msg = "Save failed"
		}
		return "", &ApplicationError{Message: msg, Status: resp.status}
	}
	return env.Message, nil
}

// ProcessedImage streams a processed image served by the backend.
// The caller must close the returned reader.
func (c *Client) ProcessedImage(ctx context.Context, name string) (io.ReadCloser, string, error) {
	if name == "" || name != path.Base(name) || strings.ContainsAny(name, `/\`) || name == ".." {
		return nil, "", ErrInvalidName
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	target := pathProcessed + url.PathEscape(name)

	req, err := c.request(ctx, http.MethodGet, target, nil, "")
	if err != nil {
		cancel()
		return nil, "", err
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, "", transportError(target, err)
	}

	switch {
	case isRedirect(httpResp.StatusCode), isAuthStatus(httpResp.StatusCode):
		httpResp.Body.Close()
		cancel()
		return nil, "", &AuthError{Message: DefaultAuthMessage}
	case httpResp.StatusCode == http.StatusNotFound:
		httpResp.Body.Close()
		cancel()
		return nil, "", ErrImageNotFound
	case httpResp.StatusCode/100 != 2:
		httpResp.Body.Close()
		cancel()
		return nil, "", transportError(target, fmt.Errorf("unexpected status %d", httpResp.StatusCode))
	}

	return &cancelBody{ReadCloser: httpResp.Body, cancel: cancel}, httpResp.Header.Get("Content-Type"), nil
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (c *Client) send(ctx context.Context, method, target string, body io.Reader, contentType string, timeout time.Duration) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := c.request(ctx, method, target, body, contentType)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	httpResp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			"req_id", req.Header.Get("X-Request-ID"),
			"method", method,
			"path", target,
			"error", err,
		)
		return nil, transportError(target, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(target, err)
	}

	c.logger.Info("backend request",
		"req_id", req.Header.Get("X-Request-ID"),
		"method", method,
		"path", target,
		"status", httpResp.StatusCode,
		"duration", time.Since(start),
	)

	return &response{
		status: httpResp.StatusCode,
		header: httpResp.Header,
		body:   raw,
	}, nil
}

func (c *Client) request(ctx context.Context, method, target string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(target).String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func (c *Client) resolve(target string) *url.URL {
	ref, err := url.Parse(target)
	if err != nil {
		return c.base
	}
	return c.base.ResolveReference(ref)
}

// classify maps a buffered response onto the error taxonomy and returns the
// decoded envelope when the response is a success.
func classify(op string, resp *response) (envelope, error) {
	var env envelope

	if isRedirect(resp.status) {
		return env, &AuthError{Message: DefaultAuthMessage}
	}

	if err := json.Unmarshal(resp.body, &env); err != nil {
		if isAuthStatus(resp.status) {
			return env, &AuthError{Message: DefaultAuthMessage}
		}
		return env, malformedError(op, fmt.Errorf("status %d: %w", resp.status, err))
	}

	if env.AuthError || isAuthStatus(resp.status) {
		msg := env.message()
		if msg == "" {
			msg = DefaultAuthMessage
		}
		return env, &AuthError{Message: msg}
	}

	if env.Error != "" {
		return env, &ApplicationError{Message: env.Error, Status: resp.status}
	}

	if resp.status/100 != 2 {
		return env, transportError(op, fmt.Errorf("unexpected status %d", resp.status))
	}

	return env, nil
}

func isRedirect(status int) bool {
	return status >= 300 && status < 400 && status != http.StatusNotModified
}

func isAuthStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func multipartBody(upload Upload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(upload.Name)))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, upload.Body); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	defer b.cancel()
	return b.ReadCloser.Close()
}
