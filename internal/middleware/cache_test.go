package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayyhq/rayy-backend/internal/config"
)

func TestCacheEntryRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	body := []byte(`{"listings":[]}`)

	entry, err := encodeEntry(http.StatusOK, hdr, body)
	require.NoError(t, err)
	status, gotHdr, gotBody, ok := decodeEntry(entry)

	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, body, gotBody)
}

func TestDecodeEntry_RejectsTruncated(t *testing.T) {
	_, _, _, ok := decodeEntry([]byte{0, 0, 0})
	assert.False(t, ok)
}

// A body past the limit must disqualify the response from caching
// entirely; serving a truncated catalog page from cache would be worse
// than no cache.
func TestRecordingWriter_OversizedBodyNotCacheable(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &recordingWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}

	_, err := w.Write([]byte("12345678"))

	require.NoError(t, err)
	assert.False(t, w.cacheable())
	assert.Equal(t, "12345678", rec.Body.String())
}

func TestRateKey_UserStrategyReadsAuthenticatedID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/listings", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set("user_id", uint64(42))

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}

	assert.Equal(t, "rl:user:42", rateKey(cfg, c))
}
