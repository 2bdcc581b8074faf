package s3store

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dongdio/s3mock/utility/errs"
)

func mustCreateBucket(t *testing.T, s *Store, name string) {
	t.Helper()
	require.NoError(t, s.CreateBucket(name, "us-east-1", "", nil))
}

func TestPutGetObjectRoundTrip(t *testing.T) {
	s := newTestStore(t)
	mustCreateBucket(t, s, "bkt")

	meta, err := s.PutObject("bkt", "key.txt", strReader("hello world"), PutOptions{})
	require.NoError(t, err)
	assert.Equal(t, nullVersionID, meta.VersionID)
	assert.EqualValues(t, 11, meta.Size)

	got, body, rng, err := s.GetObject("bkt", "key.txt", "", nil, Preconditions{})
	require.NoError(t, err)
	assert.Nil(t, rng)
	assert.Equal(t, meta.ETag, got.ETag)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	_ = body.Close()
	assert.Equal(t, "hello world", string(data))
}

func TestPutObjectMissingBucket(t *testing.T) {
	s := newTestStore(t)
	_, err := s.PutObject("nope", "key.txt", strReader("x"), PutOptions{})
	assert.ErrorIs(t, err, errs.NoSuchBucket)
}

func TestGetObjectRange(t *testing.T) {
	s := newTestStore(t)
	mustCreateBucket(t, s, "bkt")
	_, err := s.PutObject("bkt", "key.txt", strReader("0123456789"), PutOptions{})
	require.NoError(t, err)

	_, body, rng, err := s.GetObject("bkt", "key.txt", "", &RawRange{HasStart: true, Start: 2, HasEnd: true, End: 4}, Preconditions{})
	require.NoError(t, err)
	require.NotNil(t, rng)
	assert.Equal(t, ByteRange{Start: 2, End: 4}, *rng)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	_ = body.Close()
	assert.Equal(t, "234", string(data))
}

func TestGetObjectPreconditionFailed(t *testing.T) {
	s := newTestStore(t)
	mustCreateBucket(t, s, "bkt")
	_, err := s.PutObject("bkt", "key.txt", strReader("hi"), PutOptions{})
	require.NoError(t, err)

	_, _, _, err = s.GetObject("bkt", "key.txt", "", nil, Preconditions{IfMatch: []string{"bogus"}})
	assert.ErrorIs(t, err, errs.PreconditionFailed)
}

func TestVersioningLifecycle(t *testing.T) {
	s := newTestStore(t)
	mustCreateBucket(t, s, "bkt")
	require.NoError(t, s.UpdateBucket("bkt", func(m *BucketMetadata) error {
		m.Versioning = VersioningEnabled
		return nil
	}))

	v1, err := s.PutObject("bkt", "key.txt", strReader("v1"), PutOptions{})
	require.NoError(t, err)
	v2, err := s.PutObject("bkt", "key.txt", strReader("v2"), PutOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, v1.VersionID, v2.VersionID)

	cur, _, _, err := s.GetObject("bkt", "key.txt", "", nil, Preconditions{})
	require.NoError(t, err)
	assert.Equal(t, v2.VersionID, cur.VersionID)

	old, _, _, err := s.GetObject("bkt", "key.txt", v1.VersionID, nil, Preconditions{})
	require.NoError(t, err)
	assert.Equal(t, v1.VersionID, old.VersionID)

	deletedID, isMarker, err := s.DeleteObject("bkt", "key.txt", "")
	require.NoError(t, err)
	assert.True(t, isMarker)
	assert.NotEmpty(t, deletedID)

	_, _, _, err = s.GetObject("bkt", "key.txt", "", nil, Preconditions{})
	assert.ErrorIs(t, err, errs.NoSuchKey)

	// The prior version is still retrievable explicitly.
	_, _, _, err = s.GetObject("bkt", "key.txt", v1.VersionID, nil, Preconditions{})
	assert.NoError(t, err)
}

func TestDeleteObjectUnversionedErasesPermanently(t *testing.T) {
	s := newTestStore(t)
	mustCreateBucket(t, s, "bkt")
	_, err := s.PutObject("bkt", "key.txt", strReader("hi"), PutOptions{})
	require.NoError(t, err)

	deletedID, isMarker, err := s.DeleteObject("bkt", "key.txt", "")
	require.NoError(t, err)
	assert.False(t, isMarker)
	assert.Equal(t, nullVersionID, deletedID)

	_, _, _, err = s.GetObject("bkt", "key.txt", "", nil, Preconditions{})
	assert.ErrorIs(t, err, errs.NoSuchKey)
}

func TestCopyObjectMetadataDirectiveCopy(t *testing.T) {
	s := newTestStore(t)
	mustCreateBucket(t, s, "src")
	mustCreateBucket(t, s, "dst")
	_, err := s.PutObject("src", "key.txt", strReader("payload"), PutOptions{
		UserMetadata: map[string]string{"x": "1"},
	})
	require.NoError(t, err)

	meta, err := s.CopyObject("src", "key.txt", "", "dst", "key2.txt", CopyOptions{
		MetadataDirective: "COPY",
	})
	require.NoError(t, err)
	assert.Equal(t, "1", meta.UserMetadata["x"])

	got, body, _, err := s.GetObject("dst", "key2.txt", "", nil, Preconditions{})
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	_ = body.Close()
	assert.Equal(t, "payload", string(data))
	assert.Equal(t, meta.ETag, got.ETag)
}

func TestCopyObjectMetadataDirectiveReplace(t *testing.T) {
	s := newTestStore(t)
	mustCreateBucket(t, s, "src")
	mustCreateBucket(t, s, "dst")
	_, err := s.PutObject("src", "key.txt", strReader("payload"), PutOptions{
		UserMetadata: map[string]string{"x": "1"},
	})
	require.NoError(t, err)

	meta, err := s.CopyObject("src", "key.txt", "", "dst", "key2.txt", CopyOptions{
		MetadataDirective: "REPLACE",
		PutOptions:        PutOptions{UserMetadata: map[string]string{"y": "2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "2", meta.UserMetadata["y"])
	assert.NotContains(t, meta.UserMetadata, "x")
}

func TestUpdateObjectMetadataRejectsComplianceRetention(t *testing.T) {
	s := newTestStore(t)
	mustCreateBucket(t, s, "bkt")
	_, err := s.PutObject("bkt", "key.txt", strReader("hi"), PutOptions{
		Retention: &Retention{Mode: RetentionCompliance, RetainUntilDate: time.Now().Add(time.Hour)},
	})
	require.NoError(t, err)

	_, err = s.UpdateObjectMetadata("bkt", "key.txt", "", func(m *ObjectMetadata) error {
		m.Tags = map[string]string{"a": "b"}
		return nil
	})
	assert.ErrorIs(t, err, errs.AccessDenied)
}
