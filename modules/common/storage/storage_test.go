package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"memory-transition-server/modules/common/config"
)

func TestObjectKey(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	key := ObjectKey(now, "image/png")
	require.True(t, strings.HasPrefix(key, "uploads/2026/03/"), key)
	require.True(t, strings.HasSuffix(key, ".png"), key)
	require.NotEqual(t, key, ObjectKey(now, "image/png"))

	require.Equal(t, ".jpg", ExtensionFor("image/jpeg"))
	require.Equal(t, ".webp", ExtensionFor("IMAGE/WEBP"))
	require.Equal(t, "", ExtensionFor("application/pdf"))
}

func TestFalStorePut(t *testing.T) {
	var put []byte
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/storage/upload/initiate":
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "Key fal-key", r.Header.Get("Authorization"))
			var body falInitiateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "image/jpeg", body.ContentType)
			require.Equal(t, "a.jpg", body.FileName)
			_ = json.NewEncoder(w).Encode(falInitiateResponse{
				UploadURL: srv.URL + "/signed/a.jpg",
				FileURL:   "https://v3.fal.media/files/a.jpg",
			})
		case "/signed/a.jpg":
			require.Equal(t, http.MethodPut, r.Method)
			require.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))
			put, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	store := NewFalStore(srv.URL+"/", "fal-key", srv.Client())
	url, err := store.Put(context.Background(), "uploads/2026/03/a.jpg", "image/jpeg", []byte("jpeg-bytes"))
	require.NoError(t, err)
	require.Equal(t, "https://v3.fal.media/files/a.jpg", url)
	require.Equal(t, []byte("jpeg-bytes"), put)
}

func TestFalStoreInitiateFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewFalStore(srv.URL, "k", srv.Client()).Put(context.Background(), "a.png", "image/png", []byte("x"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
}

func TestSupabaseStorePut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/storage/v1/object/uploads/uploads/2026/03/a.webp", r.URL.Path)
		require.Equal(t, "Bearer service", r.Header.Get("Authorization"))
		require.Equal(t, "image/webp", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"Key":"uploads/uploads/2026/03/a.webp"}`))
	}))
	defer srv.Close()

	store := NewSupabaseStore(srv.URL, "service", "uploads", srv.Client())
	url, err := store.Put(context.Background(), "uploads/2026/03/a.webp", "image/webp", []byte("webp"))
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/storage/v1/object/public/uploads/uploads/2026/03/a.webp", url)
}

func TestSupabaseStoreRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Bucket not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewSupabaseStore(srv.URL, "s", "missing", srv.Client()).Put(context.Background(), "a.png", "image/png", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")
}

type fakePutObject struct {
	in  *s3.PutObjectInput
	err error
}

func (f *fakePutObject) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3StorePut(t *testing.T) {
	fake := &fakePutObject{}
	store := NewS3StoreWithClient(fake, "media", "https://cdn.example.com/")

	url, err := store.Put(context.Background(), "uploads/a.png", "image/png", []byte("png"))
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/uploads/a.png", url)
	require.Equal(t, "media", aws.ToString(fake.in.Bucket))
	require.Equal(t, "uploads/a.png", aws.ToString(fake.in.Key))
	require.Equal(t, "image/png", aws.ToString(fake.in.ContentType))
	require.Equal(t, int64(3), aws.ToInt64(fake.in.ContentLength))
}

func TestS3StorePutError(t *testing.T) {
	fake := &fakePutObject{err: errors.New("AccessDenied")}
	_, err := NewS3StoreWithClient(fake, "media", "https://cdn").Put(context.Background(), "k", "image/png", nil)
	require.ErrorContains(t, err, "AccessDenied")
}

func TestNewSelectsBackend(t *testing.T) {
	store, err := New(context.Background(), &config.Config{StorageBackend: BackendFal, FalStorageURL: "https://rest.alpha.fal.ai"}, nil)
	require.NoError(t, err)
	require.IsType(t, &FalStore{}, store)

	store, err = New(context.Background(), &config.Config{StorageBackend: BackendSupabase, SupabaseURL: "https://x.supabase.co"}, nil)
	require.NoError(t, err)
	require.IsType(t, &SupabaseStore{}, store)

	_, err = New(context.Background(), &config.Config{StorageBackend: "ftp"}, nil)
	require.Error(t, err)
}
