package s3

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketPolicyRoundTrip(t *testing.T) {
	r := NewRouter(newTestHandler(t))

	req := httptest.NewRequest(http.MethodPut, "/bkt", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/bkt?policy", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NoSuchBucketPolicy")

	policy := `{"Version":"2012-10-17","Statement":[]}`
	req = httptest.NewRequest(http.MethodPut, "/bkt?policy", strings.NewReader(policy))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/bkt?policy", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, policy, w.Body.String())

	req = httptest.NewRequest(http.MethodDelete, "/bkt?policy", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestBucketCorsRoundTrip(t *testing.T) {
	r := NewRouter(newTestHandler(t))

	req := httptest.NewRequest(http.MethodPut, "/bkt", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	cors := `<CORSConfiguration><CORSRule><AllowedMethod>GET</AllowedMethod></CORSRule></CORSConfiguration>`
	req = httptest.NewRequest(http.MethodPut, "/bkt?cors", strings.NewReader(cors))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/bkt?cors", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, cors, w.Body.String())

	req = httptest.NewRequest(http.MethodDelete, "/bkt?cors", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/bkt?cors", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBucketOwnershipControlsRoundTrip(t *testing.T) {
	r := NewRouter(newTestHandler(t))

	req := httptest.NewRequest(http.MethodPut, "/bkt", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/bkt?ownershipControls", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "BucketOwnerEnforced")

	body := `<OwnershipControls><Rule><ObjectOwnership>BucketOwnerPreferred</ObjectOwnership></Rule></OwnershipControls>`
	req = httptest.NewRequest(http.MethodPut, "/bkt?ownershipControls", strings.NewReader(body))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/bkt?ownershipControls", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "BucketOwnerPreferred")
}

func TestBucketLocation(t *testing.T) {
	r := NewRouter(newTestHandler(t))

	req := httptest.NewRequest(http.MethodPut, "/bkt", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/bkt?location", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "LocationConstraint")
}

func TestPutObjectWithInlineTagging(t *testing.T) {
	r := NewRouter(newTestHandler(t))

	req := httptest.NewRequest(http.MethodPut, "/bkt", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPut, "/bkt/key.txt", strings.NewReader("hello"))
	req.Header.Set("x-amz-tagging", "project=blue&env=prod")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/bkt/key.txt?tagging", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "project")
	assert.Contains(t, w.Body.String(), "blue")
}

func TestPutObjectRejectsOversizedTagging(t *testing.T) {
	r := NewRouter(newTestHandler(t))

	req := httptest.NewRequest(http.MethodPut, "/bkt", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var pairs []string
	for i := 0; i < 11; i++ {
		pairs = append(pairs, "k"+string(rune('a'+i))+"=v")
	}
	req = httptest.NewRequest(http.MethodPut, "/bkt/key.txt", strings.NewReader("hello"))
	req.Header.Set("x-amz-tagging", strings.Join(pairs, "&"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "InvalidRequest")
}
