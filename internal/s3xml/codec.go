package s3xml

import (
	"encoding/xml"
	"io"
	"time"

	"github.com/pkg/errors"
)

// TimeFormat is the ISO-8601 form S3 uses for LastModified/CreationDate
// elements.
const TimeFormat = "2006-01-02T15:04:05.000Z"

// FormatTime renders t the way S3 renders LastModified/CreationDate.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// Encode writes v to w as an XML document with a declaration and
// double-quoted attributes, matching S3's response convention.
func Encode(w io.Writer, v any) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		return errors.WithMessage(err, "encode xml response")
	}
	return enc.Flush()
}

// Decode reads an XML request body into v.
func Decode(r io.Reader, v any) error {
	if err := xml.NewDecoder(r).Decode(v); err != nil {
		return errors.WithMessage(err, "decode xml request")
	}
	return nil
}
