package s3store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedKeys(t *testing.T, s *Store, bucket string, keys ...string) {
	t.Helper()
	for _, k := range keys {
		_, err := s.PutObject(bucket, k, strReader(k), PutOptions{})
		require.NoError(t, err)
	}
}

func TestListObjectsV1PrefixDelimiter(t *testing.T) {
	s := newTestStore(t)
	mustCreateBucket(t, s, "bkt")
	seedKeys(t, s, "bkt", "photos/2021/a.jpg", "photos/2022/b.jpg", "readme.txt")

	result, err := s.ListObjectsV1("bkt", ListV1Options{ListOptions: ListOptions{Delimiter: "/"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"photos/"}, result.CommonPrefixes)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "readme.txt", result.Entries[0].Key)
}

func TestListObjectsV1Pagination(t *testing.T) {
	s := newTestStore(t)
	mustCreateBucket(t, s, "bkt")
	for i := 0; i < 5; i++ {
		seedKeys(t, s, "bkt", fmt.Sprintf("key-%d", i))
	}

	first, err := s.ListObjectsV1("bkt", ListV1Options{ListOptions: ListOptions{MaxKeys: 2}})
	require.NoError(t, err)
	assert.True(t, first.IsTruncated)
	assert.Len(t, first.Entries, 2)
	assert.NotEmpty(t, first.NextMarker)

	second, err := s.ListObjectsV1("bkt", ListV1Options{ListOptions: ListOptions{MaxKeys: 2}, Marker: first.NextMarker})
	require.NoError(t, err)
	assert.NotEqual(t, first.Entries[0].Key, second.Entries[0].Key)
}

func TestListObjectsV2ContinuationToken(t *testing.T) {
	s := newTestStore(t)
	mustCreateBucket(t, s, "bkt")
	seedKeys(t, s, "bkt", "a", "b", "c")

	first, err := s.ListObjectsV2("bkt", ListV2Options{ListOptions: ListOptions{MaxKeys: 1}})
	require.NoError(t, err)
	require.True(t, first.IsTruncated)

	second, err := s.ListObjectsV2("bkt", ListV2Options{ListOptions: ListOptions{MaxKeys: 1}, ContinuationToken: first.NextMarker})
	require.NoError(t, err)
	require.Len(t, second.Entries, 1)
	assert.NotEqual(t, first.Entries[0].Key, second.Entries[0].Key)
}

func TestListObjectsV1ExcludesDeleteMarkers(t *testing.T) {
	s := newTestStore(t)
	mustCreateBucket(t, s, "bkt")
	require.NoError(t, s.UpdateBucket("bkt", func(m *BucketMetadata) error {
		m.Versioning = VersioningEnabled
		return nil
	}))
	seedKeys(t, s, "bkt", "key.txt")
	_, _, err := s.DeleteObject("bkt", "key.txt", "")
	require.NoError(t, err)

	result, err := s.ListObjectsV1("bkt", ListV1Options{})
	require.NoError(t, err)
	assert.Empty(t, result.Entries)
}

func TestListObjectVersionsOrdersNewestFirst(t *testing.T) {
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

	result, err := s.ListObjectVersions("bkt", ListVersionsOptions{})
	require.NoError(t, err)
	require.Len(t, result.Versions, 2)
	assert.Equal(t, v2.VersionID, result.Versions[0].Meta.VersionID)
	assert.True(t, result.Versions[0].IsLatest)
	assert.Equal(t, v1.VersionID, result.Versions[1].Meta.VersionID)
	assert.False(t, result.Versions[1].IsLatest)
}

func TestListObjectVersionsSeparatesDeleteMarkers(t *testing.T) {
	s := newTestStore(t)
	mustCreateBucket(t, s, "bkt")
	require.NoError(t, s.UpdateBucket("bkt", func(m *BucketMetadata) error {
		m.Versioning = VersioningEnabled
		return nil
	}))
	seedKeys(t, s, "bkt", "key.txt")
	_, _, err := s.DeleteObject("bkt", "key.txt", "")
	require.NoError(t, err)

	result, err := s.ListObjectVersions("bkt", ListVersionsOptions{})
	require.NoError(t, err)
	assert.Len(t, result.Versions, 1)
	assert.Len(t, result.DeleteMarkers, 1)
}
