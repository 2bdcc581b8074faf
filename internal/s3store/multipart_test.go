package s3store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dongdio/s3mock/utility/errs"
)

func TestMultipartUploadSinglePartRoundTrip(t *testing.T) {
	s := newTestStore(t)
	mustCreateBucket(t, s, "bkt")

	uploadID, err := s.CreateMultipartUpload("bkt", "key.txt", PutOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, uploadID)

	part, err := s.UploadPart("bkt", "key.txt", uploadID, 1, strReader("only part"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, part.PartNumber)

	meta, err := s.CompleteMultipartUpload("bkt", "key.txt", uploadID, []CompletedPart{
		{PartNumber: 1, ETag: part.ETag},
	})
	require.NoError(t, err)
	assert.Contains(t, meta.ETag, "-1")

	_, err = s.ListParts("bkt", "key.txt", uploadID, 0, 1000)
	assert.ErrorIs(t, err, errs.NoSuchUpload)
}

func TestAbortMultipartUploadDiscardsParts(t *testing.T) {
	s := newTestStore(t)
	mustCreateBucket(t, s, "bkt")

	uploadID, err := s.CreateMultipartUpload("bkt", "key.txt", PutOptions{})
	require.NoError(t, err)
	_, err = s.UploadPart("bkt", "key.txt", uploadID, 1, strReader("data"))
	require.NoError(t, err)

	require.NoError(t, s.AbortMultipartUpload("bkt", "key.txt", uploadID))

	_, err = s.ListParts("bkt", "key.txt", uploadID, 0, 1000)
	assert.ErrorIs(t, err, errs.NoSuchUpload)
}

func TestUploadPartCopyFromExistingObject(t *testing.T) {
	s := newTestStore(t)
	mustCreateBucket(t, s, "src")
	mustCreateBucket(t, s, "dst")
	_, err := s.PutObject("src", "source.txt", strReader("0123456789"), PutOptions{})
	require.NoError(t, err)

	uploadID, err := s.CreateMultipartUpload("dst", "key.txt", PutOptions{})
	require.NoError(t, err)

	part, err := s.UploadPartCopy("dst", "key.txt", uploadID, 1, "src", "source.txt", "", &RawRange{HasStart: true, Start: 2, HasEnd: true, End: 5})
	require.NoError(t, err)
	assert.EqualValues(t, 4, part.Size)
}

func TestSelectCompletedPartsRejectsOutOfOrder(t *testing.T) {
	uploaded := []PartInfo{{PartNumber: 1, ETag: "a", Size: minPartSize}, {PartNumber: 2, ETag: "b", Size: 1}}
	_, err := selectCompletedParts([]CompletedPart{{PartNumber: 2, ETag: "b"}, {PartNumber: 1, ETag: "a"}}, uploaded)
	assert.ErrorIs(t, err, errs.InvalidPartOrder)
}

func TestSelectCompletedPartsRejectsMismatchedETag(t *testing.T) {
	uploaded := []PartInfo{{PartNumber: 1, ETag: "a", Size: 1}}
	_, err := selectCompletedParts([]CompletedPart{{PartNumber: 1, ETag: "wrong"}}, uploaded)
	assert.ErrorIs(t, err, errs.InvalidPart)
}

func TestSelectCompletedPartsRejectsSmallNonFinalPart(t *testing.T) {
	uploaded := []PartInfo{
		{PartNumber: 1, ETag: "a", Size: 1024},
		{PartNumber: 2, ETag: "b", Size: minPartSize},
	}
	_, err := selectCompletedParts([]CompletedPart{{PartNumber: 1, ETag: "a"}, {PartNumber: 2, ETag: "b"}}, uploaded)
	assert.ErrorIs(t, err, errs.EntityTooSmall)
}

func TestSelectCompletedPartsAllowsSmallFinalPart(t *testing.T) {
	uploaded := []PartInfo{
		{PartNumber: 1, ETag: "a", Size: minPartSize},
		{PartNumber: 2, ETag: "b", Size: 1},
	}
	selected, err := selectCompletedParts([]CompletedPart{{PartNumber: 1, ETag: "a"}, {PartNumber: 2, ETag: "b"}}, uploaded)
	require.NoError(t, err)
	assert.Len(t, selected, 2)
}

func TestListMultipartUploadsGroupsByDelimiter(t *testing.T) {
	s := newTestStore(t)
	mustCreateBucket(t, s, "bkt")
	_, err := s.CreateMultipartUpload("bkt", "photos/a.jpg", PutOptions{})
	require.NoError(t, err)
	_, err = s.CreateMultipartUpload("bkt", "photos/b.jpg", PutOptions{})
	require.NoError(t, err)
	_, err = s.CreateMultipartUpload("bkt", "readme.txt", PutOptions{})
	require.NoError(t, err)

	result, err := s.ListMultipartUploads("bkt", ListOptions{Delimiter: "/"}, "", "", 0)
	require.NoError(t, err)
	assert.Contains(t, result.CommonPrefixes, "photos/")
	assert.Len(t, result.Uploads, 1)
	assert.Equal(t, "readme.txt", result.Uploads[0].Key)
}
