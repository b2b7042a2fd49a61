package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/anjiri1684/skill_exchange/logger"
)

const defaultTimeout = 15 * time.Second

type Config struct {
	BaseURL string
	Timeout time.Duration
	// WithCredentials replays cookies set by the API on later calls.
	WithCredentials bool
	// Dial overrides how connections are opened. Tests point it at an
	// in-memory listener.
	Dial   fasthttp.DialFunc
	Logger *zap.Logger
}

// Request describes one API call. Path is relative to the base URL.
type Request struct {
	Method    string
	Path      string
	Query     url.Values
	Body      any
	Multipart *Multipart
	// Auth marks calls that need the bearer credential. They fail with
	// KindUnauthorized before any I/O when no token is set.
	Auth bool
}

type Multipart struct {
	Fields map[string]string
	File   *FilePart
}

type FilePart struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// Client is the process-wide HTTP wrapper. It performs no retries.
type Client struct {
	baseURL     string
	timeout     time.Duration
	credentials bool
	http        *fasthttp.Client
	log         *zap.Logger

	mu      sync.RWMutex
	token   string
	cookies map[string]string
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		timeout:     timeout,
		credentials: cfg.WithCredentials,
		http: &fasthttp.Client{
			Name:                "skillswap-client",
			Dial:                cfg.Dial,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: time.Minute,
		},
		log:     logger.OrNop(cfg.Logger),
		cookies: make(map[string]string),
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// SetToken registers token as the default bearer credential for every later
// call.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) ClearToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Do performs r and decodes the JSON response into out when out is non-nil.
// Failures are returned as *Error.
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	token := c.Token()
	if r.Auth && token == "" {
		return &Error{Kind: KindUnauthorized, Message: "Not authenticated"}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()

	if err := c.build(req, r, token); err != nil {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
		return &Error{Kind: KindUnknown, Message: "Could not encode request", Err: err}
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	errc := make(chan error, 1)
	go func() { errc <- c.http.DoDeadline(req, resp, deadline) }()

	var err error
	select {
	case <-ctx.Done():
		// req and resp are still owned by the in-flight call and are left
		// to the garbage collector.
		return &Error{Kind: KindNetwork, Message: "Request cancelled", Err: ctx.Err()}
	case err = <-errc:
	}
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	if err != nil {
		c.log.Debug("request failed",
			zap.String(logger.FieldMethod, r.Method),
			zap.String(logger.FieldPath, r.Path),
			zap.Error(err))
		msg := "Network error: server unreachable"
		if errors.Is(err, fasthttp.ErrTimeout) {
			msg = "Network error: request timed out"
		}
		return &Error{Kind: KindNetwork, Message: msg, Err: err}
	}

	if c.credentials {
		c.storeCookies(resp)
	}

	status := resp.StatusCode()
	body := resp.Body()
	if status < 200 || status >= 300 {
		apiErr := classify(status, body)
		c.log.Debug("request rejected",
			zap.String(logger.FieldMethod, r.Method),
			zap.String(logger.FieldPath, r.Path),
			zap.Int(logger.FieldStatusCode, status),
			zap.String("kind", string(apiErr.Kind)))
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: KindUnknown, Status: status, Message: "Unexpected response from server", Err: err}
	}
	return nil
}

func (c *Client) build(req *fasthttp.Request, r Request, token string) error {
	method := r.Method
	if method == "" {
		method = fasthttp.MethodGet
	}
	req.Header.SetMethod(method)

	uri := c.baseURL + "/" + strings.TrimLeft(r.Path, "/")
	if len(r.Query) > 0 {
		uri += "?" + r.Query.Encode()
	}
	req.SetRequestURI(uri)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")

	if token != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+token)
	}
	if c.credentials {
		c.mu.RLock()
		for k, v := range c.cookies {
			req.Header.SetCookie(k, v)
		}
		c.mu.RUnlock()
	}

	switch {
	case r.Multipart != nil:
		body, contentType, err := encodeMultipart(r.Multipart)
		if err != nil {
			return err
		}
		req.Header.SetContentType(contentType)
		req.SetBody(body)
	case r.Body != nil:
		body, err := json.Marshal(r.Body)
		if err != nil {
			return err
		}
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}
	return nil
}

func (c *Client) storeCookies(resp *fasthttp.Response) {
	resp.Header.VisitAllCookie(func(_, value []byte) {
		ck := fasthttp.AcquireCookie()
		defer fasthttp.ReleaseCookie(ck)
		if err := ck.ParseBytes(value); err != nil {
			return
		}
		c.mu.Lock()
		if len(ck.Value()) == 0 {
			delete(c.cookies, string(ck.Key()))
		} else {
			c.cookies[string(ck.Key())] = string(ck.Value())
		}
		c.mu.Unlock()
	})
}

func encodeMultipart(m *Multipart) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range m.Fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if f := m.File; f != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
