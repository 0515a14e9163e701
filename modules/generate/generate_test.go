package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"memory-transition-server/modules/fal"
)

type fakeSubscriber struct {
	calls    int
	input    fal.TransitionInput
	videoURL string
	err      error
}

func (f *fakeSubscriber) Subscribe(_ context.Context, input fal.TransitionInput) (string, error) {
	f.calls++
	f.input = input
	return f.videoURL, f.err
}

func post(t *testing.T, provider Subscriber, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := mux.NewRouter()
	NewHandler(NewService(provider)).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/generate", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out["error"]
}

func TestGenerateSuccess(t *testing.T) {
	provider := &fakeSubscriber{videoURL: "https://v3.fal.media/out.mp4"}

	rec := post(t, provider, `{"startImageUrl":"https://a","endImageUrl":"https://b","prompt":"  keep my spacing "}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"videoUrl":"https://v3.fal.media/out.mp4"}`, rec.Body.String())
	require.Equal(t, "  keep my spacing ", provider.input.Prompt)
	require.Equal(t, "https://a", provider.input.StartImageURL)
	require.Equal(t, "https://b", provider.input.EndImageURL)
	require.Equal(t, "5", provider.input.Duration)
	require.Equal(t, fal.TransitionNegativePrompt, provider.input.NegativePrompt)
}

func TestGenerateDefaultPrompt(t *testing.T) {
	for _, body := range []string{
		`{"startImageUrl":"https://a","endImageUrl":"https://b"}`,
		`{"startImageUrl":"https://a","endImageUrl":"https://b","prompt":"   \n\t"}`,
	} {
		provider := &fakeSubscriber{videoURL: "https://v"}
		rec := post(t, provider, body)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, DefaultPrompt, provider.input.Prompt)
	}
}

func TestGenerateMissingInput(t *testing.T) {
	for _, body := range []string{
		`{"startImageUrl":"https://a"}`,
		`{"endImageUrl":"https://b"}`,
		`{"startImageUrl":"","endImageUrl":"https://b"}`,
		`{}`,
		`not json`,
	} {
		provider := &fakeSubscriber{}
		rec := post(t, provider, body)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
		require.Equal(t, "Both location images are required", errorOf(t, rec))
		require.Zero(t, provider.calls, body)
	}
}

func TestGenerateProviderFailure(t *testing.T) {
	cases := []*fakeSubscriber{
		{err: errors.New("fal submit returned status 401: invalid key")},
		{err: fal.ErrTimeout},
		{videoURL: ""},
	}

	for _, provider := range cases {
		rec := post(t, provider, `{"startImageUrl":"https://a","endImageUrl":"https://b"}`)
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Equal(t, "Failed to create your memory. Please try again.", errorOf(t, rec))
		require.NotContains(t, rec.Body.String(), "invalid key")
	}
}

func TestResolvePrompt(t *testing.T) {
	require.Equal(t, DefaultPrompt, ResolvePrompt(""))
	require.Equal(t, DefaultPrompt, ResolvePrompt(" "))
	require.Equal(t, "x", ResolvePrompt("x"))
}
