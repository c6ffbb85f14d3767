// Package client talks to a running `s3drop serve` over HTTP.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/s3drop/internal/api"
	"github.com/abdul-hamid-achik/s3drop/internal/apperror"
	"github.com/abdul-hamid-achik/s3drop/internal/logger"
	"github.com/abdul-hamid-achik/s3drop/internal/storage"
	"github.com/abdul-hamid-achik/s3drop/internal/upload"
	"github.com/abdul-hamid-achik/s3drop/internal/version"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// BaseURL is the server address with any trailing slash removed.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if id := logger.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	req.Header.Set("User-Agent", "s3drop/"+version.Short())

	return c.httpClient.Do(req)
}

func (c *Client) getJSON(ctx context.Context, path string, respBody any) error {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return parseError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(respBody)
}

// parseError turns a server error body back into an *apperror.Error so
// callers can branch on the code the same way they would locally.
func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp apperror.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		code := errResp.Code
		if code == "" {
			code = errResp.Error
		}
		return apperror.New(code, errResp.Message, resp.StatusCode)
	}
	return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

// Upload streams file as a multipart form. The part carries file.MIMEType as
// its Content-Type, which is what the server validates.
func (c *Client) Upload(ctx context.Context, file upload.File, opts upload.Options) (*upload.Result, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	errCh := make(chan error, 1)

	go func() {
		err := writeForm(writer, f, file, opts)
		if err == nil {
			err = writer.Close()
		}
		_ = pw.CloseWithError(err)
		errCh <- err
	}()

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/upload", pr, writer.FormDataContentType())
	if err != nil {
		_ = pr.CloseWithError(err)
		<-errCh
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// The server may answer before reading the whole body (413), so the
	// response status is checked before any write error.
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		_ = pr.CloseWithError(io.ErrClosedPipe)
		<-errCh
		return nil, parseError(resp)
	}

	if writeErr := <-errCh; writeErr != nil {
		return nil, fmt.Errorf("failed to write multipart form: %w", writeErr)
	}

	var result upload.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}

func writeForm(writer *multipart.Writer, r io.Reader, file upload.File, opts upload.Options) error {
	if opts.Key != "" {
		if err := writer.WriteField("key", opts.Key); err != nil {
			return err
		}
	}
	if opts.FileType != "" {
		if err := writer.WriteField("fileType", string(opts.FileType)); err != nil {
			return err
		}
	}
	if opts.FetchSignedURL {
		if err := writer.WriteField("fetchSignedUrl", "true"); err != nil {
			return err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(file.Path)))
	if file.MIMEType != "" {
		h.Set("Content-Type", file.MIMEType)
	}
	part, err := writer.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, r)
	return err
}

func (c *Client) SignedURL(ctx context.Context, key string, opts storage.SignOptions) (string, error) {
	params := url.Values{}
	params.Set("key", key)
	if opts.ExpiresInSeconds > 0 {
		params.Set("expiresIn", strconv.Itoa(opts.ExpiresInSeconds))
	}

	var result api.SignedURLResponse
	if err := c.getJSON(ctx, "/v1/signed-url?"+params.Encode(), &result); err != nil {
		return "", err
	}
	return result.SignedURL, nil
}

func (c *Client) URL(ctx context.Context, key string) (string, error) {
	var result api.URLResponse
	if err := c.getJSON(ctx, "/v1/url?key="+url.QueryEscape(key), &result); err != nil {
		return "", err
	}
	return result.URL, nil
}

// Ready returns nil when the server reports that it can reach its bucket.
func (c *Client) Ready(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/health/ready", nil, "")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return apperror.Wrap(fmt.Errorf("readiness returned %d", resp.StatusCode), apperror.ErrServiceUnavailable)
	}
	return nil
}
