package studio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"memory-transition-server/modules/common/model"
)

// HTTPClient is a thin client for the upload and generate endpoints.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient - 생성 요청이 길어 타임아웃은 넉넉하게
func NewHTTPClient(baseURL string, client *http.Client) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Upload - multipart "file" 업로드 후 URL 반환
func (c *HTTPClient) Upload(ctx context.Context, file File) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(file.Name)))
	header.Set("Content-Type", file.ContentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(file.Data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out model.UploadResponse
	if err := c.do(req, "Upload failed", &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// Generate - 영상 생성 (완료까지 블로킹)
func (c *HTTPClient) Generate(ctx context.Context, genReq model.GenerationRequest) (string, error) {
	payload, err := json.Marshal(genReq)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out model.GenerationResult
	if err := c.do(req, "Generation failed", &out); err != nil {
		return "", err
	}
	return out.VideoURL, nil
}

// do sends req and decodes a 2xx body into out. Non-2xx bodies surface their "error" field.
func (c *HTTPClient) do(req *http.Request, fallback string, out interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e model.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			return errors.New(e.Error)
		}
		return errors.New(fallback)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
