package s3store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dongdio/s3mock/utility/errs"
)

func TestPreconditionsEmpty(t *testing.T) {
	err := Preconditions{}.Evaluate("etag", time.Now())
	assert.NoError(t, err)
}

func TestPreconditionsIfMatchFails(t *testing.T) {
	err := Preconditions{IfMatch: []string{"other-etag"}}.Evaluate("etag", time.Now())
	assert.ErrorIs(t, err, errs.PreconditionFailed)
}

func TestPreconditionsIfMatchWildcard(t *testing.T) {
	err := Preconditions{IfMatch: []string{"*"}}.Evaluate("etag", time.Now())
	assert.NoError(t, err)
}

func TestPreconditionsIfNoneMatchHit(t *testing.T) {
	err := Preconditions{IfNoneMatch: []string{"etag"}}.Evaluate("etag", time.Now())
	assert.ErrorIs(t, err, errs.NotModified)
}

func TestPreconditionsIfUnmodifiedSinceFails(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	err := Preconditions{IfUnmodifiedSince: &past}.Evaluate("etag", time.Now())
	assert.ErrorIs(t, err, errs.PreconditionFailed)
}

func TestPreconditionsIfModifiedSinceNotModified(t *testing.T) {
	future := time.Now().Add(time.Hour)
	err := Preconditions{IfModifiedSince: &future}.Evaluate("etag", time.Now())
	assert.ErrorIs(t, err, errs.NotModified)
}

// If-Match is checked before If-None-Match, so a request that fails
// both should surface PreconditionFailed rather than NotModified.
func TestPreconditionsIfMatchTakesPrecedenceOverIfNoneMatch(t *testing.T) {
	err := Preconditions{
		IfMatch:     []string{"other-etag"},
		IfNoneMatch: []string{"etag"},
	}.Evaluate("etag", time.Now())
	assert.ErrorIs(t, err, errs.PreconditionFailed)
}
