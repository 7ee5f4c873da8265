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
	"os"
	"path/filepath"
	"strings"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}

type ModelStatus struct {
	IsLoaded  bool   `json:"isLoaded"`
	Handshake string `json:"handshake"`
}

type UploadResult struct {
	Success      bool   `json:"success"`
	SuccessCount int    `json:"successCount"`
	FailCount    int    `json:"failCount"`
	Error        string `json:"error,omitempty"`
}

type SearchResult struct {
	Content   string  `json:"content"`
	Filename  string  `json:"filename"`
	Score     float64 `json:"score"`
	Anchor    string  `json:"anchor,omitempty"`
	ImageData string  `json:"image_data,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Client talks to the document service over HTTP. Deadlines come from the
// context passed to each call.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

func (c *Client) Status(ctx context.Context) (*ModelStatus, error) {
	var status ModelStatus
	if err := c.do(ctx, http.MethodGet, "/api/model/status", nil, "", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) LoadModel(ctx context.Context) (string, error) {
	var response messageResponse
	if err := c.do(ctx, http.MethodPost, "/api/model/load", nil, "", &response); err != nil {
		return "", err
	}
	return response.Message, nil
}

func (c *Client) UnloadModel(ctx context.Context) (string, error) {
	var response messageResponse
	if err := c.do(ctx, http.MethodPost, "/api/model/unload", nil, "", &response); err != nil {
		return "", err
	}
	return response.Message, nil
}

// Upload sends every path as a repeated "files" part of one multipart request.
func (c *Client) Upload(ctx context.Context, paths []string) (*UploadResult, error) {
	if len(paths) == 0 {
		return nil, errors.New("no files to upload")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, path := range paths {
		if err := addFilePart(writer, path); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("could not finish upload body: %w", err)
	}

	var result UploadResult
	if err := c.do(ctx, http.MethodPost, "/api/docs/upload", &body, writer.FormDataContentType(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func addFilePart(writer *multipart.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", path, err)
	}
	defer file.Close()

	part, err := writer.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("could not add %s to upload: %w", path, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("could not read %s: %w", path, err)
	}
	return nil
}

func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	results := make([]SearchResult, 0)
	endpoint := "/api/docs/search?q=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, "", &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Clear succeeds on any 2xx status.
func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/docs/clear", nil, "", nil)
}

func (c *Client) do(ctx context.Context, method string, endpoint string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("could not build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(message))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}
	return nil
}
