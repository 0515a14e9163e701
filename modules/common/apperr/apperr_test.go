package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

var errSentinel = Validation("Image must be under 10MB")

func TestErrorIsMatchesKindAndMessage(t *testing.T) {
	wrapped := fmt.Errorf("upload: %w", Validation("Image must be under 10MB"))
	require.ErrorIs(t, wrapped, errSentinel)
	require.NotErrorIs(t, wrapped, Validation("other"))
	require.NotErrorIs(t, wrapped, New(KindUpstream, "Image must be under 10MB"))
}

func TestKindOfAndStatus(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("generate: %w", Upstream("Failed to create your memory. Please try again.", cause))

	require.Equal(t, KindUpstream, KindOf(err))
	require.Equal(t, http.StatusInternalServerError, KindOf(err).Status())
	require.ErrorIs(t, err, cause)
	require.Equal(t, KindInternal, KindOf(cause))

	require.Equal(t, http.StatusBadRequest, KindValidation.Status())
	require.Equal(t, http.StatusBadRequest, KindSignature.Status())
	require.Equal(t, http.StatusUnauthorized, KindUnauthenticated.Status())
	require.Equal(t, http.StatusConflict, KindConflict.Status())
	require.Equal(t, "ledger", KindLedger.String())
}

func TestWriteErrorHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, Upstream("Failed to upload image. Please try again.", errors.New("secret upstream detail")))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Failed to upload image. Please try again.", body["error"])
	require.NotContains(t, rec.Body.String(), "secret upstream detail")
}

func TestWriteErrorUnknownErrorIsGeneric(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorStatus(rec, http.StatusBadRequest, errors.New("stripe: invalid api key sk_live_xxx"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotContains(t, rec.Body.String(), "sk_live")
	require.Contains(t, rec.Body.String(), genericMessage)
}
