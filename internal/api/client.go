// Package api is the HTTP client for the card backend. It attaches bearer
// tokens and encodes request bodies as JSON or multipart forms.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// APIPrefix is prepended to every request path.
const APIPrefix = "/api"

// Error is a non-2xx response from the backend.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool { return hasStatus(err, http.StatusUnauthorized) }

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

func hasStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client talks to the backend rooted at BaseURL (e.g. "http://localhost:5001").
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a Client with a bounded request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// MakeRequest sends method to APIPrefix+path. body may be nil, a *Form (sent as
// multipart/form-data) or any value sent as JSON. A non-empty token is attached
// as a bearer credential. When out is non-nil the response JSON is decoded into it.
func (c *Client) MakeRequest(ctx context.Context, path, method string, body interface{}, token string, out interface{}) error {
	var (
		reader      io.Reader
		contentType string
	)
	switch b := body.(type) {
	case nil:
	case *Form:
		buf, ct, err := b.encode()
		if err != nil {
			return fmt.Errorf("failed to encode form: %w", err)
		}
		reader, contentType = buf, ct
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("failed to encode body: %w", err)
		}
		reader, contentType = bytes.NewReader(data), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), c.BaseURL+APIPrefix+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	log.WithFields(log.Fields{"method": req.Method, "path": path, "status": resp.StatusCode}).Debug("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &payload)
		return &Error{Status: resp.StatusCode, Message: payload.Message}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// AssetURL resolves a server-relative file path (avatar, vCard) to an absolute URL.
func (c *Client) AssetURL(p string) string {
	if p == "" || strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return c.BaseURL + p
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// Form is a multipart/form-data body.
type Form struct {
	fields []field
	files  []file
}

type field struct{ name, value string }

type file struct {
	name, filename string
	content        []byte
}

// NewForm creates an empty Form.
func NewForm() *Form { return &Form{} }

// Set appends a text field.
func (f *Form) Set(name, value string) *Form {
	f.fields = append(f.fields, field{name, value})
	return f
}

// AddFile appends a file part.
func (f *Form) AddFile(name, filename string, content []byte) *Form {
	f.files = append(f.files, file{name, filename, content})
	return f
}

// Value returns the first text field called name.
func (f *Form) Value(name string) string {
	for _, fl := range f.fields {
		if fl.name == name {
			return fl.value
		}
	}
	return ""
}

// HasFile reports whether a file part called name was added.
func (f *Form) HasFile(name string) bool {
	for _, fl := range f.files {
		if fl.name == name {
			return true
		}
	}
	return false
}

func (f *Form) encode() (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, fl := range f.fields {
		if err := w.WriteField(fl.name, fl.value); err != nil {
			return nil, "", err
		}
	}
	for _, fl := range f.files {
		part, err := w.CreateFormFile(fl.name, fl.filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(fl.content); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
