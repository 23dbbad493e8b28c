package authors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// Client is the capability the dispatcher uses against the external author
// registry. Every operation is idempotent on the remote side, and none of
// them surfaces transport errors: anything that goes wrong comes back as a
// not-ok Response, so callers never distinguish network failures from
// business rejections.
type Client interface {
	FindAuthorByEmail(ctx context.Context, email string) Response
	CreateAuthor(ctx context.Context, name, surname, email string) Response
	GetLink(ctx context.Context, userID int64) Response
	CreateLink(ctx context.Context, userID int64, authorID int) Response
	DeleteLink(ctx context.Context, userID int64, authorID int) Response
}

// Response is the registry's uniform envelope.
type Response struct {
	Ok      bool        `json:"ok"`
	Data    *AuthorData `json:"data"`
	Message string      `json:"message"`
	Errors  any         `json:"errors"`
}

// AuthorData carries the author identifier the handlers care about.
type AuthorData struct {
	ID      int    `json:"id"`
	Name    string `json:"nombre"`
	Surname string `json:"apellido"`
	Email   string `json:"email"`
}

// HTTPClient talks JSON to the registry over one long-lived http.Client so
// connections are reused across dispatcher iterations.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	lg         zerolog.Logger
}

func NewHTTPClient(baseURL string, lg zerolog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		lg: lg.With().Str("component", "authors_client").Logger(),
	}
}

type createAuthorRequest struct {
	Name    string `json:"nombre"`
	Surname string `json:"apellido"`
	Email   string `json:"email"`
}

type createLinkRequest struct {
	UserID   int64 `json:"usuarioId"`
	AuthorID int   `json:"autorId"`
}

func (c *HTTPClient) FindAuthorByEmail(ctx context.Context, email string) Response {
	return c.do(ctx, http.MethodGet, "/autores/email/"+url.PathEscape(email), nil)
}

func (c *HTTPClient) CreateAuthor(ctx context.Context, name, surname, email string) Response {
	return c.do(ctx, http.MethodPost, "/autores", createAuthorRequest{
		Name:    name,
		Surname: surname,
		Email:   email,
	})
}

func (c *HTTPClient) GetLink(ctx context.Context, userID int64) Response {
	return c.do(ctx, http.MethodGet, fmt.Sprintf("/relaciones/%d", userID), nil)
}

func (c *HTTPClient) CreateLink(ctx context.Context, userID int64, authorID int) Response {
	return c.do(ctx, http.MethodPost, "/relaciones", createLinkRequest{
		UserID:   userID,
		AuthorID: authorID,
	})
}

func (c *HTTPClient) DeleteLink(ctx context.Context, userID int64, authorID int) Response {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/relaciones/%d/%d", userID, authorID), nil)
}

// do performs one request and folds every failure mode into the envelope.
func (c *HTTPClient) do(ctx context.Context, method, path string, payload any) Response {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return c.notOK(method, path, fmt.Errorf("marshal request: %w", err))
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return c.notOK(method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.notOK(method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return c.notOK(method, path, fmt.Errorf("read response: %w", err))
	}

	var envelope Response
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return c.notOK(method, path, fmt.Errorf("decode response: %w", err))
		}
	}
	return envelope
}

func (c *HTTPClient) notOK(method, path string, err error) Response {
	c.lg.Warn().Err(err).
		Str("method", method).
		Str("path", path).
		Msg("authors registry request failed")
	return Response{Ok: false, Message: err.Error()}
}
