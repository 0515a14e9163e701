package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/rs/zerolog/log"
)

// FalStore uploads through the fal storage API: initiate, then PUT to the signed URL.
type FalStore struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewFalStore(baseURL, apiKey string, httpClient *http.Client) *FalStore {
	return &FalStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

type falInitiateRequest struct {
	ContentType string `json:"content_type"`
	FileName    string `json:"file_name"`
}

type falInitiateResponse struct {
	UploadURL string `json:"upload_url"`
	FileURL   string `json:"file_url"`
}

// Put - fal storage 업로드
func (s *FalStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	log.Info().Str("key", key).Int("bytes", len(data)).Msg("📤 [Storage] uploading to fal storage")

	// 1. 업로드 URL 발급
	reqBody, err := json.Marshal(falInitiateRequest{ContentType: contentType, FileName: path.Base(key)})
	if err != nil {
		return "", fmt.Errorf("marshal initiate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/storage/upload/initiate", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create initiate request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("initiate upload: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read initiate response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("initiate upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	var initiated falInitiateResponse
	if err := json.Unmarshal(body, &initiated); err != nil {
		return "", fmt.Errorf("parse initiate response: %w", err)
	}
	if initiated.UploadURL == "" || initiated.FileURL == "" {
		return "", fmt.Errorf("initiate upload: missing upload_url or file_url")
	}

	// 2. 파일 업로드
	putReq, err := http.NewRequestWithContext(ctx, http.MethodPut, initiated.UploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create put request: %w", err)
	}
	putReq.Header.Set("Content-Type", contentType)

	putResp, err := s.httpClient.Do(putReq)
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	defer putResp.Body.Close()

	if putResp.StatusCode < 200 || putResp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(putResp.Body)
		return "", fmt.Errorf("put object failed with status %d: %s", putResp.StatusCode, string(errBody))
	}

	log.Info().Str("url", initiated.FileURL).Msg("✅ [Storage] fal upload complete")
	return initiated.FileURL, nil
}
