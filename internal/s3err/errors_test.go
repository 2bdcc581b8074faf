package s3err

import (
	"bytes"
	"encoding/xml"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dongdio/s3mock/utility/errs"
)

func TestMapKnownSentinels(t *testing.T) {
	assert.Equal(t, NoSuchBucket, Map(errs.NoSuchBucket))
	assert.Equal(t, NoSuchKey, Map(errs.NoSuchKey))
	assert.Equal(t, PreconditionFailed, Map(errs.PreconditionFailed))
	assert.Equal(t, EntityTooSmall, Map(errs.EntityTooSmall))
}

func TestMapWrappedSentinel(t *testing.T) {
	wrapped := errs.Wrap(errs.NoSuchKey, "get object %s", "foo")
	assert.Equal(t, NoSuchKey, Map(wrapped))
}

func TestMapUnknownFallsBackToInternalError(t *testing.T) {
	assert.Equal(t, InternalError, Map(errors.New("boom")))
	assert.Equal(t, InternalError, Map(nil))
}

func TestWriteProducesErrorEnvelope(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "req-1", "/bucket/key", NoSuchKey))

	var body struct {
		XMLName   xml.Name `xml:"Error"`
		Code      string   `xml:"Code"`
		Message   string   `xml:"Message"`
		Resource  string   `xml:"Resource"`
		RequestId string   `xml:"RequestId"`
	}
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &body))
	assert.Equal(t, "NoSuchKey", body.Code)
	assert.Equal(t, "/bucket/key", body.Resource)
	assert.Equal(t, "req-1", body.RequestId)
}
