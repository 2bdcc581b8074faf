package s3

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dongdio/s3mock/internal/s3store"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	store, err := s3store.New(s3store.Config{Root: t.TempDir()})
	require.NoError(t, err)
	return &Handler{Store: store, Region: "us-east-1", OwnerID: "owner-1", OwnerName: "test", ServiceHost: "s3.amazonaws.com"}
}

func TestCreateAndHeadBucket(t *testing.T) {
	r := NewRouter(newTestHandler(t))

	req := httptest.NewRequest(http.MethodPut, "/my-bucket", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodHead, "/my-bucket", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHeadMissingBucketReturns404(t *testing.T) {
	r := NewRouter(newTestHandler(t))

	req := httptest.NewRequest(http.MethodHead, "/nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPutAndGetObject(t *testing.T) {
	r := NewRouter(newTestHandler(t))

	req := httptest.NewRequest(http.MethodPut, "/bkt", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPut, "/bkt/key.txt", strings.NewReader("hello world"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req = httptest.NewRequest(http.MethodGet, "/bkt/key.txt", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello world", w.Body.String())
	assert.Equal(t, etag, w.Header().Get("ETag"))
}

func TestGetObjectRangeRequest(t *testing.T) {
	r := NewRouter(newTestHandler(t))

	req := httptest.NewRequest(http.MethodPut, "/bkt", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPut, "/bkt/key.txt", strings.NewReader("0123456789"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/bkt/key.txt", nil)
	req.Header.Set("Range", "bytes=2-4")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "234", w.Body.String())
}

func TestGetObjectMissingReturnsNoSuchKeyEnvelope(t *testing.T) {
	r := NewRouter(newTestHandler(t))

	req := httptest.NewRequest(http.MethodPut, "/bkt", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/bkt/nope.txt", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NoSuchKey")
}

func TestDeleteBucketRequiresEmptyOverHTTP(t *testing.T) {
	r := NewRouter(newTestHandler(t))

	req := httptest.NewRequest(http.MethodPut, "/bkt", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPut, "/bkt/key.txt", strings.NewReader("x"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodDelete, "/bkt", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "BucketNotEmpty")
}

func TestListObjectsV2Query(t *testing.T) {
	r := NewRouter(newTestHandler(t))

	req := httptest.NewRequest(http.MethodPut, "/bkt", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPut, "/bkt/key.txt", strings.NewReader("x"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/bkt?list-type=2", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<Key>key.txt</Key>")
}
