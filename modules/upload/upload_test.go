package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"memory-transition-server/modules/common/utils"
)

type fakeStore struct {
	calls       int
	key         string
	contentType string
	data        []byte
	err         error
}

func (f *fakeStore) Put(_ context.Context, key, contentType string, data []byte) (string, error) {
	f.calls++
	f.key, f.contentType, f.data = key, contentType, data
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.example.com/" + key, nil
}

type fakeProcessor struct {
	width, height int
	dimErr        error
	webpErr       error
}

func (p *fakeProcessor) Dimensions([]byte, string) (int, int, error) {
	return p.width, p.height, p.dimErr
}

func (p *fakeProcessor) ToWebP([]byte) ([]byte, error) {
	if p.webpErr != nil {
		return nil, p.webpErr
	}
	return []byte("webp-bytes"), nil
}

func multipartBody(t *testing.T, field, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if field != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="photo"`, field))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, w.WriteField("other", "value"))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func serve(t *testing.T, svc *Service, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	r := mux.NewRouter()
	NewHandler(svc).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHandleUploadSuccess(t *testing.T) {
	store := &fakeStore{}
	body, ct := multipartBody(t, "file", "image/jpeg", []byte("jpeg-data"))

	rec := serve(t, NewService(store, nil, Options{}), body, ct)

	require.Equal(t, http.StatusOK, rec.Code)
	url := decode(t, rec)["url"]
	require.True(t, strings.HasPrefix(url, "https://cdn.example.com/uploads/"), url)
	require.True(t, strings.HasSuffix(url, ".jpg"), url)
	require.Equal(t, 1, store.calls)
	require.Equal(t, "image/jpeg", store.contentType)
	require.Equal(t, []byte("jpeg-data"), store.data)
}

func TestHandleUploadRejections(t *testing.T) {
	tests := []struct {
		name        string
		field       string
		contentType string
		size        int
		want        string
	}{
		{"missing file", "", "", 0, "No file provided"},
		{"wrong field", "image", "image/png", 10, "No file provided"},
		{"gif", "file", "image/gif", 10, "Please use a JPG, PNG, or WebP image"},
		{"pdf", "file", "application/pdf", 10, "Please use a JPG, PNG, or WebP image"},
		{"over 10MB", "file", "image/png", int(utils.MaxImageBytes) + 1, "Image must be under 10MB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			body, ct := multipartBody(t, tt.field, tt.contentType, bytes.Repeat([]byte{'x'}, tt.size))

			rec := serve(t, NewService(store, nil, Options{}), body, ct)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, tt.want, decode(t, rec)["error"])
			require.Zero(t, store.calls)
		})
	}
}

func TestHandleUploadExactlyTenMegabytes(t *testing.T) {
	store := &fakeStore{}
	body, ct := multipartBody(t, "file", "image/webp", bytes.Repeat([]byte{'x'}, int(utils.MaxImageBytes)))

	rec := serve(t, NewService(store, nil, Options{}), body, ct)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, store.calls)
}

func TestHandleUploadStorageFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("s3: AccessDenied for bucket media")}
	body, ct := multipartBody(t, "file", "image/png", []byte("png"))

	rec := serve(t, NewService(store, nil, Options{}), body, ct)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Failed to upload image. Please try again.", decode(t, rec)["error"])
	require.NotContains(t, rec.Body.String(), "AccessDenied")
}

func TestUploadMinDimension(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, &fakeProcessor{width: 299, height: 800}, Options{MinDimension: utils.MinImageDimension})

	_, err := svc.Upload(context.Background(), "image/png", []byte("png"))
	require.ErrorIs(t, err, utils.ErrTooSmall)
	require.Zero(t, store.calls)

	svc = NewService(store, &fakeProcessor{dimErr: errors.New("bad header")}, Options{MinDimension: 300})
	_, err = svc.Upload(context.Background(), "image/png", []byte("png"))
	require.ErrorIs(t, err, utils.ErrInvalidType)

	svc = NewService(store, &fakeProcessor{width: 300, height: 300}, Options{MinDimension: 300})
	_, err = svc.Upload(context.Background(), "image/png", []byte("png"))
	require.NoError(t, err)
	require.Equal(t, 1, store.calls)
}

func TestUploadConvertsToWebP(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, &fakeProcessor{}, Options{ConvertWebP: true})

	url, err := svc.Upload(context.Background(), "image/jpeg", []byte("jpeg"))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(url, ".webp"), url)
	require.Equal(t, "image/webp", store.contentType)
	require.Equal(t, []byte("webp-bytes"), store.data)
}

func TestUploadKeepsOriginalWhenConversionFails(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, &fakeProcessor{webpErr: errors.New("encoder")}, Options{ConvertWebP: true})

	_, err := svc.Upload(context.Background(), "image/png", []byte("png"))
	require.NoError(t, err)
	require.Equal(t, "image/png", store.contentType)
	require.Equal(t, []byte("png"), store.data)
}
