// Package emailjs delivers contact form submissions through the EmailJS REST
// API.
package emailjs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"portfolio-site/internal/domain"
)

const DefaultBaseURL = "https://api.emailjs.com"

type sendRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

// HTTPStatusError captures non-2xx responses from EmailJS. The body is
// EmailJS's plain-text reason.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("emailjs: unexpected status %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client sends templated emails through one EmailJS service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialsProvider
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(creds CredentialsProvider, opts ...Option) (*Client, error) {
	if creds == nil {
		return nil, errors.New("emailjs: credentials provider must not be nil")
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		creds:      creds,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func sendURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return base + "/api/v1.0/email/send"
}

// SendForm delivers a contact submission. Template parameters carry the
// form's input names so the same template serves browser and server sends.
func (c *Client) SendForm(ctx context.Context, sub domain.ContactSubmission) error {
	return c.Send(ctx, map[string]string{
		"user_name":  sub.Name,
		"user_email": sub.Email,
		"subject":    sub.Subject,
		"message":    sub.Message,
	})
}

// Send delivers one email rendered from the configured template.
func (c *Client) Send(ctx context.Context, params map[string]string) error {
	creds, err := c.creds.Credentials(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(sendRequest{
		ServiceID:      creds.ServiceID,
		TemplateID:     creds.TemplateID,
		UserID:         creds.PublicKey,
		AccessToken:    creds.PrivateKey,
		TemplateParams: params,
	})
	if err != nil {
		return fmt.Errorf("emailjs: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL(c.baseURL), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("emailjs: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.httpClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	res, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("emailjs: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return &HTTPStatusError{StatusCode: res.StatusCode, Body: strings.TrimSpace(string(buf))}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
	return nil
}
