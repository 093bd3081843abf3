// Package client is an HTTP client for the meme API.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/memegen/internal/domain"
)

// Client calls the meme API
type Client struct {
	client *resty.Client
}

// Config holds configuration for the API client
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	// Code is the machine-readable error code, empty when the server sent none.
	Code       string
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("API error %d: %s (%s)", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// Is maps API errors back onto the domain taxonomy, by error code when the
// server sent one and by status code otherwise.
func (e *APIError) Is(target error) bool {
	if e.Code != "" {
		return target == domain.ErrorForCode(e.Code)
	}
	switch e.StatusCode {
	case http.StatusNotFound:
		return target == domain.ErrNotFound
	case http.StatusServiceUnavailable:
		return target == domain.ErrPersistenceUnavailable
	case http.StatusUnprocessableEntity:
		return target == domain.ErrNormalization
	}
	return false
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type memeResponse struct {
	Success bool            `json:"success"`
	Meme    domain.MemeView `json:"meme"`
}

// Pagination is the paging block of a list response.
type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
	Limit int   `json:"limit"`
}

// ListResponse is one page of memes.
type ListResponse struct {
	Success    bool              `json:"success"`
	Memes      []domain.MemeView `json:"memes"`
	Pagination Pagination        `json:"pagination"`
}

type deleteResponse struct {
	Success     bool        `json:"success"`
	Message     string      `json:"message"`
	DeletedMeme domain.Meme `json:"deletedMeme"`
}

// Health is the liveness payload.
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime"`
}

// New creates a new API client
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetError(&errorResponse{})

	return &Client{client: client}
}

// Upload sends an image and returns the created meme.
// contentType may be empty, in which case it is derived from the file name.
func (c *Client) Upload(ctx context.Context, filename, contentType string, r io.Reader) (*domain.MemeView, error) {
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(filename))
	}

	var result memeResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetMultipartField("image", filepath.Base(filename), contentType, r).
		SetResult(&result).
		Post("/api/memes/upload")
	if err := checkResponse(resp, err, http.StatusCreated); err != nil {
		return nil, err
	}
	return &result.Meme, nil
}

// List fetches one page of memes; zero values use the server defaults.
func (c *Client) List(ctx context.Context, page, limit int) (*ListResponse, error) {
	req := c.client.R().SetContext(ctx)
	if page > 0 {
		req.SetQueryParam("page", strconv.Itoa(page))
	}
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}

	var result ListResponse
	resp, err := req.SetResult(&result).Get("/api/memes")
	if err := checkResponse(resp, err, http.StatusOK); err != nil {
		return nil, err
	}
	return &result, nil
}

// Get fetches a single meme.
func (c *Client) Get(ctx context.Context, id string) (*domain.MemeView, error) {
	var result memeResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&result).
		Get("/api/memes/{id}")
	if err := checkResponse(resp, err, http.StatusOK); err != nil {
		return nil, err
	}
	return &result.Meme, nil
}

// Delete removes a meme and returns the deleted record.
func (c *Client) Delete(ctx context.Context, id string) (*domain.Meme, error) {
	var result deleteResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&result).
		Delete("/api/memes/{id}")
	if err := checkResponse(resp, err, http.StatusOK); err != nil {
		return nil, err
	}
	return &result.DeletedMeme, nil
}

// Health calls the liveness endpoint.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var result Health
	resp, err := c.client.R().SetContext(ctx).SetResult(&result).Get("/api/health")
	if err := checkResponse(resp, err, http.StatusOK); err != nil {
		return nil, err
	}
	return &result, nil
}

func checkResponse(resp *resty.Response, err error, want int) error {
	if err != nil {
		return fmt.Errorf("failed to call meme API: %w", err)
	}
	if resp.StatusCode() == want {
		return nil
	}
	apiErr := &APIError{StatusCode: resp.StatusCode(), Message: resp.Status()}
	if e, ok := resp.Error().(*errorResponse); ok && e.Error != "" {
		apiErr.Message = e.Error
		apiErr.Details = e.Details
		apiErr.Code = e.Code
	}
	return apiErr
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
