package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultUserAgent = "fieldcrm/1.0"
	requestTimeout   = 30 * time.Second
	maxResponseBytes = 8 << 20
)

// Ensure HTTPClient implements Client at compile time.
var _ Client = (*HTTPClient)(nil)

// HTTPClient talks to the CRM REST API. Auth lives in cookies kept in a jar;
// an optional refresh token returned in bodies is echoed back on refresh.
type HTTPClient struct {
	baseURL   *url.URL
	http      *http.Client
	jar       *sessionJar
	userAgent string

	mu           sync.Mutex
	refreshToken string
	reauth       func(ctx context.Context) error
}

type Option func(*HTTPClient)

// WithTransport replaces the HTTP transport, keeping the cookie jar.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *HTTPClient) { c.http.Transport = rt }
}

func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.http.Timeout = d }
}

// NewHTTPClient builds a client for the API rooted at baseURL,
// e.g. http://127.0.0.1:8080/api.
func NewHTTPClient(baseURL string, opts ...Option) (*HTTPClient, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid api url %q: scheme must be http or https", baseURL)
	}
	jar := newSessionJar()
	c := &HTTPClient{
		baseURL:   base,
		jar:       jar,
		http:      &http.Client{Jar: jar, Timeout: requestTimeout},
		userAgent: defaultUserAgent,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// SetReauth installs the hook called once when a data request comes back
// 401. The request is retried once if the hook succeeds. Without a hook the
// client calls Refresh itself.
func (c *HTTPClient) SetReauth(fn func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reauth = fn
}

func (c *HTTPClient) endpoint(path string) string {
	return c.baseURL.JoinPath(path).String()
}

type request struct {
	method      string
	path        string
	body        []byte
	contentType string
	// auth endpoints never trigger reauth
	noReauth bool
}

func jsonRequest(method, path string, in any) (request, error) {
	r := request{method: method, path: path}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return r, fmt.Errorf("encode request: %w", err)
		}
		r.body = b
		r.contentType = "application/json"
	}
	return r, nil
}

func (c *HTTPClient) do(ctx context.Context, r request, out any) error {
	err := c.send(ctx, r, out)
	if r.noReauth || !errors.Is(err, ErrUnauthorized) {
		return err
	}

	c.mu.Lock()
	reauth := c.reauth
	c.mu.Unlock()
	if reauth == nil {
		reauth = c.Refresh
	}
	if rerr := reauth(ctx); rerr != nil {
		return err
	}
	return c.send(ctx, r, out)
}

func (c *HTTPClient) send(ctx context.Context, r request, out any) error {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r.path), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if key := idempotencyKeyFrom(ctx); key != "" {
		req.Header.Set(common.IdempotencyKeyHeader, key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return mapTransportError(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return mapTransportError(ctx, err)
	}
	return decodeResponse(resp.StatusCode, raw, out)
}

func mapTransportError(ctx context.Context, err error) error {
	// cancellation by the caller is not a connectivity problem
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func decodeResponse(status int, raw []byte, out any) error {
	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if status >= 200 && status < 300 {
		if len(raw) == 0 {
			return nil
		}
		if decodeErr != nil {
			return fmt.Errorf("%w: malformed response: %v", ErrServer, decodeErr)
		}
		if !env.Success {
			return &APIError{StatusCode: status, Message: env.Error, Fields: env.Fields, kind: ErrValidation}
		}
		if out != nil && len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, out); err != nil {
				return fmt.Errorf("%w: malformed data: %v", ErrServer, err)
			}
		}
		return nil
	}

	msg := env.Error
	if decodeErr != nil || msg == "" {
		msg = http.StatusText(status)
	}
	apiErr := &APIError{StatusCode: status, Message: msg, Fields: env.Fields}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		apiErr.kind = ErrUnauthorized
	case status == http.StatusNotFound:
		apiErr.kind = common.ErrorNotFound
	case status == http.StatusBadRequest || status == http.StatusConflict ||
		status == http.StatusUnprocessableEntity || status == http.StatusRequestEntityTooLarge:
		apiErr.kind = ErrValidation
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable ||
		status == http.StatusGatewayTimeout || status == http.StatusTooManyRequests:
		apiErr.kind = ErrUnavailable
	default:
		apiErr.kind = ErrServer
	}
	return apiErr
}

func (c *HTTPClient) Login(ctx context.Context, login, password string) (models.MasterProfile, error) {
	r, err := jsonRequest(http.MethodPost, "/auth/login", loginRequest{Login: login, Password: password})
	if err != nil {
		return models.MasterProfile{}, err
	}
	r.noReauth = true

	var resp loginResponse
	if err := c.do(ctx, r, &resp); err != nil {
		return models.MasterProfile{}, err
	}
	c.mu.Lock()
	c.refreshToken = resp.RefreshToken
	c.mu.Unlock()
	return resp.User.profile(), nil
}

// Refresh renews the session. ErrUnauthorized means the session is gone.
func (c *HTTPClient) Refresh(ctx context.Context) error {
	c.mu.Lock()
	rt := c.refreshToken
	c.mu.Unlock()

	r, err := jsonRequest(http.MethodPost, "/auth/refresh", refreshRequest{RefreshToken: rt})
	if err != nil {
		return err
	}
	r.noReauth = true

	var resp refreshResponse
	if err := c.do(ctx, r, &resp); err != nil {
		return err
	}
	if resp.RefreshToken != "" {
		c.mu.Lock()
		c.refreshToken = resp.RefreshToken
		c.mu.Unlock()
	}
	return nil
}

// Logout ends the session remotely and forgets it locally either way.
func (c *HTTPClient) Logout(ctx context.Context) error {
	r := request{method: http.MethodPost, path: "/auth/logout", noReauth: true}
	err := c.do(ctx, r, nil)
	c.ClearSession()
	return err
}

func (c *HTTPClient) Profile(ctx context.Context) (models.MasterProfile, error) {
	r := request{method: http.MethodGet, path: "/auth/profile", noReauth: true}
	var u userDTO
	if err := c.do(ctx, r, &u); err != nil {
		return models.MasterProfile{}, err
	}
	return u.profile(), nil
}

func (c *HTTPClient) ListOrders(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	if err := c.do(ctx, request{method: http.MethodGet, path: "/orders"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetOrder(ctx context.Context, id string) (models.Order, error) {
	var out models.Order
	if err := c.do(ctx, request{method: http.MethodGet, path: "/orders/" + url.PathEscape(id)}, &out); err != nil {
		return models.Order{}, err
	}
	return out, nil
}

func (c *HTTPClient) UpdateOrder(ctx context.Context, id string, fields map[string]any) (models.Order, error) {
	r, err := jsonRequest(http.MethodPatch, "/orders/"+url.PathEscape(id), updateRequest{Fields: fields})
	if err != nil {
		return models.Order{}, err
	}
	var out models.Order
	if err := c.do(ctx, r, &out); err != nil {
		return models.Order{}, err
	}
	return out, nil
}

func (c *HTTPClient) ChangeStatus(ctx context.Context, id string, status models.OrderStatus) error {
	r, err := jsonRequest(http.MethodPost, "/orders/"+url.PathEscape(id)+"/status", statusRequest{Status: status})
	if err != nil {
		return err
	}
	return c.do(ctx, r, nil)
}

func (c *HTTPClient) AddComment(ctx context.Context, id string, text string) (models.Comment, error) {
	r, err := jsonRequest(http.MethodPost, "/orders/"+url.PathEscape(id)+"/comments", commentRequest{Text: text})
	if err != nil {
		return models.Comment{}, err
	}
	var out models.Comment
	if err := c.do(ctx, r, &out); err != nil {
		return models.Comment{}, err
	}
	return out, nil
}

// UploadPhoto posts the blob as multipart/form-data with fields
// "photo_id" and "photo".
func (c *HTTPClient) UploadPhoto(ctx context.Context, id string, photo models.CachedPhoto) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("photo_id", photo.ID); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("photo", photo.Filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(photo.Blob); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	r := request{
		method:      http.MethodPost,
		path:        "/orders/" + url.PathEscape(id) + "/photos",
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
	}
	return c.do(ctx, r, nil)
}

func (c *HTTPClient) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	var out []models.Notification
	if err := c.do(ctx, request{method: http.MethodGet, path: "/notifications"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/notifications/" + url.PathEscape(id) + "/read"}, nil)
}

func (c *HTTPClient) DeleteNotification(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/notifications/" + url.PathEscape(id)}, nil)
}

// Session exports the cookies and refresh token so they can be persisted.
func (c *HTTPClient) Session() models.Session {
	c.mu.Lock()
	rt := c.refreshToken
	c.mu.Unlock()

	s := models.Session{RefreshToken: rt}
	for _, ck := range c.jar.Cookies(c.baseURL) {
		sc := models.SessionCookie{Name: ck.Name, Value: ck.Value}
		if exp, ok := tokenExpiry(ck.Value); ok {
			sc.Expires = exp
		}
		s.Cookies = append(s.Cookies, sc)
	}
	s.ExpiresAt = c.SessionExpiry()
	return s
}

// RestoreSession loads persisted session material into the jar.
func (c *HTTPClient) RestoreSession(s models.Session) {
	c.mu.Lock()
	c.refreshToken = s.RefreshToken
	c.mu.Unlock()

	cookies := make([]*http.Cookie, 0, len(s.Cookies))
	for _, sc := range s.Cookies {
		path := sc.Path
		if path == "" {
			path = "/"
		}
		cookies = append(cookies, &http.Cookie{Name: sc.Name, Value: sc.Value, Path: path, Expires: sc.Expires})
	}
	c.jar.SetCookies(c.baseURL, cookies)
}

// ClearSession drops all session material.
func (c *HTTPClient) ClearSession() {
	c.mu.Lock()
	c.refreshToken = ""
	c.mu.Unlock()
	c.jar.Reset()
}

// SessionExpiry reads the exp claim of the access token cookie. The token is
// not verified; the server does that. Zero means unknown.
func (c *HTTPClient) SessionExpiry() time.Time {
	for _, ck := range c.jar.Cookies(c.baseURL) {
		if ck.Name != common.AccessTokenCookieName {
			continue
		}
		if exp, ok := tokenExpiry(ck.Value); ok {
			return exp
		}
	}
	return time.Time{}
}

func tokenExpiry(raw string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
