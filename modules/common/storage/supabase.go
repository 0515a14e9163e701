package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// SupabaseStore writes objects with the Supabase Storage object API.
type SupabaseStore struct {
	baseURL    string
	serviceKey string
	bucket     string
	httpClient *http.Client
}

func NewSupabaseStore(baseURL, serviceKey, bucket string, httpClient *http.Client) *SupabaseStore {
	return &SupabaseStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		bucket:     bucket,
		httpClient: httpClient,
	}
}

// Put - Supabase Storage 업로드 (public bucket)
func (s *SupabaseStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	log.Info().Str("bucket", s.bucket).Str("key", key).Msg("📤 [Storage] uploading to supabase")

	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	publicURL := fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, key)
	log.Info().Str("url", publicURL).Int("bytes", len(data)).Msg("✅ [Storage] supabase upload complete")
	return publicURL, nil
}
