package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"time"
)

// Folder is a folder as returned by the server.
type Folder struct {
	FolderID     string `json:"folderId"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	MaxFileLimit int    `json:"maxFileLimit"`
}

// File is a file as returned by the server.
type File struct {
	FileID     string    `json:"fileId"`
	FolderID   string    `json:"folderId"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Size       int64     `json:"size"`
	URL        string    `json:"url,omitempty"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
	Kind    string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("server returned %d: %s (%s)", e.Status, e.Message, e.Kind)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client talks to a docshelf server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the server at baseURL. A nil httpClient uses a
// client with a one minute timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Minute}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// ListFolders returns every folder on the server.
func (c *Client) ListFolders(ctx context.Context) ([]Folder, error) {
	var folders []Folder
	if err := c.getJSON(ctx, "/folders", &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// GetFolder returns one folder.
func (c *Client) GetFolder(ctx context.Context, folderID string) (*Folder, error) {
	var resp struct {
		Folder *Folder `json:"folder"`
	}
	if err := c.getJSON(ctx, "/folders/"+url.PathEscape(folderID), &resp); err != nil {
		return nil, err
	}
	return resp.Folder, nil
}

// UploadFile sends a local file into a folder as mimeType.
func (c *Client) UploadFile(ctx context.Context, folderID string, file LocalFile, mimeType, description string) (*File, error) {
	src, err := os.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file.Path, err)
	}
	defer src.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file.Path, err)
	}
	if description != "" {
		if err := w.WriteField("description", description); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/folders/"+url.PathEscape(folderID)+"/files", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var resp struct {
		File *File `json:"file"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.File, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &APIError{Status: res.StatusCode, Message: http.StatusText(res.StatusCode)}
		var body struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.NewDecoder(res.Body).Decode(&body) == nil && body.Message != "" {
			apiErr.Message = body.Message
			apiErr.Kind = body.Error
		}
		return apiErr
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
