package s3store

import (
	"crypto/md5" //nolint:gosec // S3 ETags are MD5 by protocol definition, not for security.
	"crypto/sha1" //nolint:gosec // SHA1 is one of the checksum algorithms S3 clients may request.
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"hash"
	"io"

	"github.com/klauspost/crc32"
	"github.com/pkg/errors"

	"github.com/dongdio/s3mock/utility/errs"
)

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// hashingWriter tees a stream through MD5 and, optionally, one
// additional checksum algorithm, so PutObject/UploadPart compute both
// in a single pass over the body.
type hashingWriter struct {
	md5    hash.Hash
	extra  hash.Hash32
	extra64 hash.Hash
	algo   ChecksumAlgorithm
	n      int64
}

func newHashingWriter(algo ChecksumAlgorithm) *hashingWriter {
	hw := &hashingWriter{md5: md5.New(), algo: algo}
	switch algo {
	case ChecksumCRC32:
		hw.extra = crc32.NewIEEE()
	case ChecksumCRC32C:
		hw.extra = crc32.New(castagnoliTable)
	case ChecksumSHA1:
		hw.extra64 = sha1.New()
	case ChecksumSHA256:
		hw.extra64 = sha256.New()
	}
	return hw
}

func (h *hashingWriter) Write(p []byte) (int, error) {
	h.md5.Write(p)
	if h.extra != nil {
		h.extra.Write(p)
	}
	if h.extra64 != nil {
		h.extra64.Write(p)
	}
	h.n += int64(len(p))
	return len(p), nil
}

func (h *hashingWriter) md5Hex() string {
	return hex.EncodeToString(h.md5.Sum(nil))
}

func (h *hashingWriter) checksumBase64() string {
	switch {
	case h.extra != nil:
		var sum [4]byte
		v := h.extra.Sum32()
		sum[0], sum[1], sum[2], sum[3] = byte(v>>24), byte(v>>16), byte(v>>8), byte(v)
		return base64.StdEncoding.EncodeToString(sum[:])
	case h.extra64 != nil:
		return base64.StdEncoding.EncodeToString(h.extra64.Sum(nil))
	default:
		return ""
	}
}

// copyWithChecksum streams src into dst through a hashingWriter,
// returning the total bytes written, the hex MD5 ETag, and the
// requested extra checksum's base64 value.
func copyWithChecksum(dst io.Writer, src io.Reader, algo ChecksumAlgorithm) (n int64, etag, checksum string, err error) {
	hw := newHashingWriter(algo)
	if _, err = io.Copy(io.MultiWriter(dst, hw), src); err != nil {
		return 0, "", "", errors.WithMessage(err, "stream object body")
	}
	return hw.n, hw.md5Hex(), hw.checksumBase64(), nil
}

// verifyDigests checks the client-supplied Content-MD5 and checksum
// trailer, if any, against the computed values.
func verifyDigests(opts PutOptions, etagHex, checksumB64 string) error {
	if opts.ContentMD5 != "" {
		decoded, err := base64.StdEncoding.DecodeString(opts.ContentMD5)
		if err != nil || hex.EncodeToString(decoded) != etagHex {
			return errs.BadDigest
		}
	}
	if opts.ChecksumAlgo != ChecksumNone && opts.ChecksumValue != "" && opts.ChecksumValue != checksumB64 {
		return errs.BadDigest
	}
	return nil
}
