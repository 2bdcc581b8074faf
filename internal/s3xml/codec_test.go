package s3xml

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeIncludesHeaderAndXmlns(t *testing.T) {
	var buf bytes.Buffer
	doc := NewListAllMyBucketsResult(Owner{ID: "owner-1"}, []Bucket{{Name: "b", CreationDate: "2024-01-01T00:00:00.000Z"}})
	require.NoError(t, Encode(&buf, doc))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, out, `xmlns="http://s3.amazonaws.com/doc/2006-03-01/"`)
	assert.Contains(t, out, "<Name>b</Name>")
}

func TestDecodeCompleteMultipartUpload(t *testing.T) {
	body := `<CompleteMultipartUpload><Part><PartNumber>1</PartNumber><ETag>"abc"</ETag></Part></CompleteMultipartUpload>`
	var v CompleteMultipartUpload
	require.NoError(t, Decode(strings.NewReader(body), &v))
	require.Len(t, v.Part, 1)
	assert.Equal(t, 1, v.Part[0].PartNumber)
	assert.Equal(t, `"abc"`, v.Part[0].ETag)
}

func TestFormatTimeUsesS3Layout(t *testing.T) {
	got := FormatTime(mustParseRFC3339(t, "2024-06-15T10:30:00Z"))
	assert.Equal(t, "2024-06-15T10:30:00.000Z", got)
}
