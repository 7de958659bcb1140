package catalog

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domerrors "github.com/targetzero/coursebot/internal/errors"
)

const sampleFeed = `[
	{"name":"<b>SMSTS</b> | Chelmsford","price":"400","start_date":"1 July 2025","end_date":"5 July 2025","available_spaces":"6","link":"https://example.com/smsts-1"},
	{"name":"SMSTS | Chelmsford","price":350,"start_date":"8 July 2025","end_date":"12 July 2025","available_spaces":2,"link":"https://example.com/smsts-2"}
]`

func newTestClient(url string) *Client {
	c := NewClient(url, 2*time.Second, 2, nil)
	c.initialDelay = time.Millisecond
	c.maxDelay = 5 * time.Millisecond
	return c
}

func compress(t *testing.T, encoding string, body []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	switch encoding {
	case "gzip":
		w := gzip.NewWriter(&buf)
		_, err := w.Write(body)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	case "br":
		w := brotli.NewWriter(&buf)
		_, err := w.Write(body)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	case "zstd":
		w, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		_, err = w.Write(body)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	default:
		return body
	}
	return buf.Bytes()
}

func TestClient_Courses(t *testing.T) {
	for _, encoding := range []string{"", "gzip", "br", "zstd"} {
		t.Run("encoding="+encoding, func(t *testing.T) {
			payload := compress(t, encoding, []byte(sampleFeed))
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.NotEmpty(t, r.Header.Get("User-Agent"))
				assert.Contains(t, r.Header.Get("Accept-Encoding"), "gzip")
				if encoding != "" {
					w.Header().Set("Content-Encoding", encoding)
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write(payload)
			}))
			defer srv.Close()

			records, err := newTestClient(srv.URL).Courses(context.Background())
			require.NoError(t, err)
			require.Len(t, records, 2)
			assert.Equal(t, "SMSTS | Chelmsford", records[0].Name, "markup is stripped")
			assert.Equal(t, "350", records[1].Price.String())
			assert.Equal(t, "2", records[1].AvailableSpaces.String())
		})
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	records, err := newTestClient(srv.URL).Courses(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Courses(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")

	var ce *domerrors.CatalogError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, http.StatusNotFound, ce.StatusCode)
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Courses(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "one try plus two retries")
}

func TestClient_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Courses(context.Background())
	assert.Error(t, err)
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retryWithBackoff(ctx, 5, time.Hour, time.Hour, func() error {
		calls++
		cancel()
		return errors.New("boom")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
