package s3store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateLifecycleExpiresOldVersions(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateBucket("my-bucket", "us-east-1", "", nil))
	_, err := s.PutObject("my-bucket", "old.txt", strReader("hello"), PutOptions{})
	require.NoError(t, err)

	rules := []LifecycleRule{{Enabled: true, ExpirationDays: 30}}
	expired, err := s.EvaluateLifecycle("my-bucket", rules, time.Now().AddDate(0, 0, 31))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "old.txt", expired[0].Key)

	stillLive, err := s.EvaluateLifecycle("my-bucket", rules, time.Now())
	require.NoError(t, err)
	assert.Empty(t, stillLive)
}

func TestEvaluateLifecycleHonorsPrefix(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateBucket("my-bucket", "us-east-1", "", nil))
	_, err := s.PutObject("my-bucket", "logs/a.txt", strReader("hello"), PutOptions{})
	require.NoError(t, err)
	_, err = s.PutObject("my-bucket", "keep/b.txt", strReader("hello"), PutOptions{})
	require.NoError(t, err)

	rules := []LifecycleRule{{Enabled: true, Prefix: "logs/", ExpirationDays: 1}}
	expired, err := s.EvaluateLifecycle("my-bucket", rules, time.Now().AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "logs/a.txt", expired[0].Key)
}

func TestEvaluateIncompleteMultipartExpiry(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateBucket("my-bucket", "us-east-1", "", nil))
	uploadID, err := s.CreateMultipartUpload("my-bucket", "big.bin", PutOptions{})
	require.NoError(t, err)

	rules := []LifecycleRule{{Enabled: true, AbortIncompleteMultipartAfterDays: 7}}
	abortable, err := s.EvaluateIncompleteMultipartExpiry("my-bucket", rules, time.Now().AddDate(0, 0, 8))
	require.NoError(t, err)
	require.Len(t, abortable, 1)
	assert.Equal(t, uploadID, abortable[0].UploadID)

	notYet, err := s.EvaluateIncompleteMultipartExpiry("my-bucket", rules, time.Now())
	require.NoError(t, err)
	assert.Empty(t, notYet)
}

func TestSweepLifecycleExpiresAndAborts(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateBucket("my-bucket", "us-east-1", "", nil))
	_, err := s.PutObject("my-bucket", "old.txt", strReader("hello"), PutOptions{})
	require.NoError(t, err)
	_, err = s.CreateMultipartUpload("my-bucket", "big.bin", PutOptions{})
	require.NoError(t, err)

	err = s.UpdateBucket("my-bucket", func(m *BucketMetadata) error {
		m.Lifecycle = []LifecycleRule{{
			Enabled:                           true,
			ExpirationDays:                    1,
			AbortIncompleteMultipartAfterDays: 1,
		}}
		return nil
	})
	require.NoError(t, err)

	expired, aborted, err := s.SweepLifecycle(time.Now().AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, expired)
	assert.Equal(t, 1, aborted)

	_, err = s.HeadObject("my-bucket", "old.txt", "", Preconditions{})
	assert.Error(t, err)
}

func TestSweepLifecycleSkipsBucketsWithoutRules(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateBucket("my-bucket", "us-east-1", "", nil))
	_, err := s.PutObject("my-bucket", "keep.txt", strReader("hello"), PutOptions{})
	require.NoError(t, err)

	expired, aborted, err := s.SweepLifecycle(time.Now().AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, expired)
	assert.Equal(t, 0, aborted)
}
