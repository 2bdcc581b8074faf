package s3store

import (
	"net"
	"regexp"
	"strings"
)

var bucketNamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9.-]*[a-z0-9])?$`)

// IsValidBucketName reports whether name satisfies the S3 bucket
// naming rules: 3-63 chars, lowercase/digits/hyphens/dots, no adjacent
// dots, not IP-shaped.
func IsValidBucketName(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if !bucketNamePattern.MatchString(name) {
		return false
	}
	if strings.Contains(name, "..") {
		return false
	}
	if net.ParseIP(name) != nil {
		return false
	}
	return true
}

// IsValidObjectKey reports whether key satisfies the S3 key length
// bound of 1..1024 UTF-8 bytes. S3 keys tolerate any byte value,
// including reserved URI characters, so no charset check is performed.
func IsValidObjectKey(key string) bool {
	n := len(key)
	return n >= 1 && n <= 1024
}

// encodedKeySegment maps a key to the single filesystem path segment
// that stores it, escaping "/" and other path-hostile bytes so that a
// key such as "a/b/c.txt" does not create nested directories.
func encodedKeySegment(key string) string {
	var b strings.Builder
	b.Grow(len(key) * 2)
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteString(hexByte(c))
		}
	}
	return b.String()
}

const hexDigits = "0123456789ABCDEF"

func hexByte(c byte) string {
	return string([]byte{hexDigits[c>>4], hexDigits[c&0x0f]})
}
