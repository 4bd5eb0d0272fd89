// Package client is a thin Go client for the sigcompile HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/yungbote/sigcompile/internal/platform/ctxutil"
)

const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultTimeout = 30 * time.Second
)

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int

	HTTPClient *http.Client
}

type Client struct {
	baseURL    string
	timeout    time.Duration
	maxRetries int
	httpClient *http.Client
}

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		baseURL:    baseURL,
		timeout:    timeout,
		maxRetries: maxRetries,
		httpClient: hc,
	}, nil
}

func NewFromEnv() (*Client, error) {
	return New(Options{
		BaseURL:    getEnv("SIGCOMPILE_BASE_URL", DefaultBaseURL),
		Timeout:    time.Duration(intFromEnv("SIGCOMPILE_TIMEOUT_SECONDS", int(DefaultTimeout/time.Second))) * time.Second,
		MaxRetries: intFromEnv("SIGCOMPILE_MAX_RETRIES", 0),
	})
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Compile(ctx context.Context, req CompileRequest) (*CompileResponse, error) {
	if req.Inputs == nil {
		req.Inputs = []Field{}
	}
	if req.Outputs == nil {
		req.Outputs = []Field{}
	}

	var out CompileResponse
	hdr, err := c.doJSON(ctx, http.MethodPost, "/compile", req, &out)
	if err != nil {
		return nil, err
	}
	out.ArtifactID = hdr.Get("X-Artifact-Id")
	return &out, nil
}

// Health returns nil when the service reports itself healthy.
func (c *Client) Health(ctx context.Context) error {
	var out healthResponse
	if _, err := c.doJSON(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return err
	}
	if out.Status != "healthy" {
		return errors.New("unexpected health status: " + out.Status)
	}
	return nil
}

func (c *Client) GetArtifact(ctx context.Context, id string) (*Artifact, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("artifact id required")
	}
	var out Artifact
	if _, err := c.doJSON(ctx, http.MethodGet, "/artifacts/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListArtifacts(ctx context.Context, limit int) ([]Artifact, error) {
	path := "/artifacts"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Artifacts []Artifact `json:"artifacts"`
	}
	if _, err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Artifacts, nil
}

// ---------------- HTTP helpers ----------------

func (c *Client) doJSON(ctx context.Context, method string, path string, body any, out any) (http.Header, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var hdr http.Header
	b := retry.WithMaxRetries(uint64(c.maxRetries), retry.NewExponential(250*time.Millisecond))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(buf.Bytes())
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
		if err != nil {
			return err
		}
		c.setHeaders(ctx, req, body != nil)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return retry.RetryableError(err)
		}
		raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		_ = resp.Body.Close()
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			herr := parseHTTPError(resp.StatusCode, raw)
			if retryable(resp.StatusCode) {
				return retry.RetryableError(herr)
			}
			return herr
		}
		if out != nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return err
			}
		}
		hdr = resp.Header
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hdr, nil
}

func (c *Client) setHeaders(ctx context.Context, req *http.Request, hasBody bool) {
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if id := ctxutil.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-Id", id)
	}
}

// Compiles are deterministic, so only gateway-style failures are worth retrying.
func retryable(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
