package r2client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/targetzero/coursebot/internal/data"
	domerrors "github.com/targetzero/coursebot/internal/errors"
)

// fakeR2 serves path-style GET and PUT for one bucket. ETags count the
// writes to each key.
type fakeR2 struct {
	mu      sync.Mutex
	objects map[string][]byte
	writes  map[string]int
}

func (f *fakeR2) etag(key string) string {
	return fmt.Sprintf(`"etag-%d"`, f.writes[key])
}

func (f *fakeR2) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/codes/")
	switch r.Method {
	case http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		w.Header().Set("ETag", f.etag(key))
		_, _ = w.Write(body)
	case http.MethodPut:
		if want := r.Header.Get("If-Match"); want != "" && want != f.etag(key) {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusPreconditionFailed)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>PreconditionFailed</Code><Message>stale</Message></Error>`)
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		f.writes[key]++
		w.Header().Set("ETag", f.etag(key))
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeR2) object(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[key]
	return b, ok
}

func newTestStore(t *testing.T, objects map[string][]byte) (*Store, *fakeR2) {
	t.Helper()
	fake := &fakeR2{objects: objects, writes: map[string]int{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{
		Endpoint:    srv.URL,
		AccessKeyID: "id",
		SecretKey:   "secret",
		BucketName:  "codes",
		Key:         "courses.yaml",
	})
	require.NoError(t, err)
	return c, fake
}

func TestNew_RequiresAllFields(t *testing.T) {
	t.Parallel()
	_, err := New(context.Background(), Config{Endpoint: "https://example.com", BucketName: "codes"})
	require.Error(t, err)
}

func TestFetch(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t, map[string][]byte{"courses.yaml": data.DefaultBytes()})

	cat, etag, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "etag-0", etag)
	assert.Equal(t, "courses.yaml", s.Key())

	want, err := data.Default()
	require.NoError(t, err)
	assert.Len(t, cat.Courses(), len(want.Courses()))
}

func TestFetch_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		objects  map[string][]byte
		notFound bool
	}{
		{"missing", map[string][]byte{}, true},
		{"invalid", map[string][]byte{"courses.yaml": []byte("categories: [")}, false},
		{"too large", map[string][]byte{"courses.yaml": bytes.Repeat([]byte("#"), maxCatalogSize+1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, _ := newTestStore(t, tt.objects)
			_, _, err := s.Fetch(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.notFound, errors.Is(err, domerrors.ErrNotFound))
		})
	}
}

func TestPublish(t *testing.T) {
	t.Parallel()
	s, fake := newTestStore(t, map[string][]byte{})
	ctx := context.Background()

	etag, err := s.Publish(ctx, data.DefaultBytes(), "")
	require.NoError(t, err)
	assert.Equal(t, "etag-1", etag)
	stored, _ := fake.object("courses.yaml")
	assert.Equal(t, data.DefaultBytes(), stored)

	_, err = s.Publish(ctx, []byte("categories: ["), "")
	require.Error(t, err)
	stored, _ = fake.object("courses.yaml")
	assert.Equal(t, data.DefaultBytes(), stored, "invalid catalogs are never uploaded")
}

func TestPublish_IfMatch(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t, map[string][]byte{})
	ctx := context.Background()

	first, err := s.Publish(ctx, data.DefaultBytes(), "")
	require.NoError(t, err)

	second, err := s.Publish(ctx, data.DefaultBytes(), first)
	require.NoError(t, err)
	assert.Equal(t, "etag-2", second)

	_, err = s.Publish(ctx, data.DefaultBytes(), first)
	assert.ErrorIs(t, err, ErrStale)
}

type apiErr struct{ code string }

func (e apiErr) Error() string                 { return e.code }
func (e apiErr) ErrorCode() string             { return e.code }
func (e apiErr) ErrorMessage() string          { return e.code }
func (e apiErr) ErrorFault() smithy.ErrorFault { return smithy.FaultServer }

func TestIsNotFound(t *testing.T) {
	t.Parallel()
	assert.True(t, isNotFound(apiErr{"NoSuchKey"}))
	assert.True(t, isNotFound(apiErr{"NotFound"}))
	assert.False(t, isNotFound(apiErr{"AccessDenied"}))
	assert.False(t, isNotFound(errors.New("boom")))
	assert.Zero(t, statusCode(errors.New("boom")))
}
