package s3store

import (
	"time"

	"github.com/dongdio/s3mock/utility/errs"
)

// Preconditions carries the conditional-request headers a GetObject,
// HeadObject or PutObject/CopyObject destination check may supply.
// Evaluation order is fixed: If-Match and
// If-None-Match are checked before If-Unmodified-Since and
// If-Modified-Since.
type Preconditions struct {
	IfMatch           []string
	IfNoneMatch       []string
	IfModifiedSince   *time.Time
	IfUnmodifiedSince *time.Time
}

func (p Preconditions) empty() bool {
	return len(p.IfMatch) == 0 && len(p.IfNoneMatch) == 0 && p.IfModifiedSince == nil && p.IfUnmodifiedSince == nil
}

func matchesAny(etag string, list []string) bool {
	for _, tag := range list {
		if tag == "*" || tag == etag {
			return true
		}
	}
	return false
}

// Evaluate checks the receiver's conditions against a version's ETag
// and last-modified time, returning errs.PreconditionFailed or
// errs.NotModified when the request should be rejected.
func (p Preconditions) Evaluate(etag string, lastModified time.Time) error {
	if p.empty() {
		return nil
	}
	if len(p.IfMatch) > 0 && !matchesAny(etag, p.IfMatch) {
		return errs.PreconditionFailed
	}
	if len(p.IfNoneMatch) > 0 && matchesAny(etag, p.IfNoneMatch) {
		return errs.NotModified
	}
	if p.IfUnmodifiedSince != nil && lastModified.After(*p.IfUnmodifiedSince) {
		return errs.PreconditionFailed
	}
	if p.IfModifiedSince != nil && !lastModified.After(*p.IfModifiedSince) {
		return errs.NotModified
	}
	return nil
}
