// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package client talks to a running docconvert server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/docconvert/internal/httputil"
	"github.com/pdiddy/docconvert/pkg/types"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4 << 10

// StatusError is returned when the server answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned HTTP %d: %s", e.StatusCode, e.Message)
}

// Client uploads documents to a docconvert server.
type Client struct {
	// BaseURL is the server root, e.g. http://localhost:5000.
	BaseURL string

	// HTTP is the underlying client. Nil means http.DefaultClient.
	HTTP *http.Client

	// APIKey is sent as X-Api-Key when set.
	APIKey string

	// MaxRetries bounds retries on 429. Zero means the httputil default.
	MaxRetries int
}

// New returns a client for baseURL.
func New(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/")}
}

// Health is the /healthz payload.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Convert uploads the file at path for conversion and writes the converted
// document to w. It returns the file name the server assigned.
func (c *Client) Convert(ctx context.Context, path string, kind types.Conversion, w io.Writer) (string, error) {
	return c.upload(ctx, "/convert", path, map[string]string{"conversion": string(kind)}, w)
}

// Lock uploads the PDF at path with password and writes the locked PDF to w.
// It returns the file name the server assigned.
func (c *Client) Lock(ctx context.Context, path, password string, w io.Writer) (string, error) {
	return c.upload(ctx, "/lock", path, map[string]string{"password": password}, w)
}

// Health queries /healthz.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/healthz", nil)
	if err != nil {
		return h, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.do(ctx, req)
	if err != nil {
		return h, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return h, fmt.Errorf("parsing health response: %w", err)
	}
	return h, nil
}

func (c *Client) upload(ctx context.Context, endpoint, path string, fields map[string]string, w io.Writer) (string, error) {
	body, contentType, err := buildForm(path, fields)
	if err != nil {
		return "", err
	}

	// A bytes.Buffer body lets the retry helper replay the upload after a 429.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+endpoint, body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.do(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	return attachmentName(resp.Header.Get("Content-Disposition")), nil
}

// do sends req with retry and turns non-200 answers into a StatusError.
func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.APIKey != "" {
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, hc, req, c.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(resp)}
	}
	return resp, nil
}

func buildForm(path string, fields map[string]string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("creating form: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return &body, mw.FormDataContentType(), nil
}

// errorMessage extracts the server's message: a JSON {"message"} body or
// plain text.
func errorMessage(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var m struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &m) == nil && m.Message != "" {
			return m.Message
		}
	}
	return strings.TrimSpace(string(data))
}

func attachmentName(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil || params["filename"] == "" {
		return ""
	}
	return filepath.Base(params["filename"])
}
