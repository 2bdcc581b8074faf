package s3

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dongdio/s3mock/internal/s3store"
	"github.com/dongdio/s3mock/utility/errs"
)

// ParseRange parses a Range header value of the form "bytes=a-b",
// "bytes=a-" or "bytes=-n". An empty header or any other unit yields
// (nil, nil): the request is unconditional, not malformed.
func ParseRange(header string) (*s3store.RawRange, error) {
	if header == "" {
		return nil, nil
	}
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return nil, nil
	}
	spec := strings.TrimPrefix(header, prefix)
	if idx := strings.Index(spec, ","); idx >= 0 {
		spec = spec[:idx]
	}
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return nil, nil
	}
	if parts[0] == "" {
		n, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, nil
		}
		return &s3store.RawRange{IsSuffix: true, SuffixLen: n}, nil
	}
	start, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, nil
	}
	rr := &s3store.RawRange{HasStart: true, Start: start}
	if parts[1] != "" {
		end, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, nil
		}
		rr.HasEnd = true
		rr.End = end
	}
	return rr, nil
}

// ParsePreconditions extracts a request's conditional-request headers.
func ParsePreconditions(h http.Header) s3store.Preconditions {
	var pre s3store.Preconditions
	if v := h.Get("If-Match"); v != "" {
		pre.IfMatch = splitETags(v)
	}
	if v := h.Get("If-None-Match"); v != "" {
		pre.IfNoneMatch = splitETags(v)
	}
	if v := h.Get("If-Modified-Since"); v != "" {
		if t, err := http.ParseTime(v); err == nil {
			pre.IfModifiedSince = &t
		}
	}
	if v := h.Get("If-Unmodified-Since"); v != "" {
		if t, err := http.ParseTime(v); err == nil {
			pre.IfUnmodifiedSince = &t
		}
	}
	return pre
}

func splitETags(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, tag := range raw {
		tag = strings.TrimSpace(tag)
		tag = strings.Trim(tag, `"`)
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// ParseCopySource splits an x-amz-copy-source header, which is
// "/bucket/key" or "bucket/key", optionally followed by
// "?versionId=...", into its parts.
func ParseCopySource(header string) (bucket, key, versionID string) {
	header = strings.TrimPrefix(header, "/")
	if idx := strings.Index(header, "?"); idx >= 0 {
		if q, err := url.ParseQuery(header[idx+1:]); err == nil {
			versionID = q.Get("versionId")
		}
		header = header[:idx]
	}
	parts := strings.SplitN(header, "/", 2)
	bucket = parts[0]
	if len(parts) == 2 {
		key = parts[1]
	}
	if decoded, err := url.QueryUnescape(key); err == nil {
		key = decoded
	}
	return bucket, key, versionID
}

// canned ACL grantee URIs, per AWS's fixed group identifiers.
const (
	allUsersURI           = "http://acs.amazonaws.com/groups/global/AllUsers"
	authenticatedUsersURI = "http://acs.amazonaws.com/groups/global/AuthenticatedUsers"
)

// CannedACL expands an x-amz-acl header value into a concrete ACL for
// ownerID, mirroring the small set of canned policies S3 defines.
func CannedACL(value, ownerID string) *s3store.ACL {
	acl := &s3store.ACL{OwnerID: ownerID, Grants: []s3store.Grant{{GranteeID: ownerID, Permission: "FULL_CONTROL"}}}
	switch value {
	case "", "private":
	case "public-read":
		acl.Grants = append(acl.Grants, s3store.Grant{GranteeURI: allUsersURI, Permission: "READ"})
	case "public-read-write":
		acl.Grants = append(acl.Grants,
			s3store.Grant{GranteeURI: allUsersURI, Permission: "READ"},
			s3store.Grant{GranteeURI: allUsersURI, Permission: "WRITE"})
	case "authenticated-read":
		acl.Grants = append(acl.Grants, s3store.Grant{GranteeURI: authenticatedUsersURI, Permission: "READ"})
	}
	return acl
}

// ParseUserMetadata collects x-amz-meta-* headers into a plain map,
// keyed by the suffix after the prefix.
func ParseUserMetadata(h http.Header) map[string]string {
	const prefix = "X-Amz-Meta-"
	meta := map[string]string{}
	for k, v := range h {
		if len(v) == 0 {
			continue
		}
		if strings.HasPrefix(strings.ToLower(k), strings.ToLower(prefix)) && len(k) > len(prefix) {
			meta[k[len(prefix):]] = v[0]
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

const (
	maxTagPairs    = 10
	maxTagKeyLen   = 128
	maxTagValueLen = 256
)

// ParseTagging decodes an x-amz-tagging header value, a URL-encoded
// "key1=val1&key2=val2" query string, into a plain map. It enforces
// the same limits S3 documents for a tag set: at most 10 pairs, keys
// up to 128 characters, values up to 256.
func ParseTagging(header string) (map[string]string, error) {
	if header == "" {
		return nil, nil
	}
	values, err := url.ParseQuery(header)
	if err != nil {
		return nil, errs.InvalidRequest
	}
	if len(values) > maxTagPairs {
		return nil, errs.InvalidRequest
	}
	tags := make(map[string]string, len(values))
	for k, v := range values {
		if len(k) > maxTagKeyLen {
			return nil, errs.InvalidRequest
		}
		val := ""
		if len(v) > 0 {
			val = v[0]
		}
		if len(val) > maxTagValueLen {
			return nil, errs.InvalidRequest
		}
		tags[k] = val
	}
	return tags, nil
}

// FormatHTTPTime formats t for the Last-Modified / Date headers.
func FormatHTTPTime(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}
