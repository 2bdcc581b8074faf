// Package errs defines sentinel errors shared by internal/s3store, so
// that internal/s3err can translate them into S3 API errors without the
// store package knowing about HTTP status codes.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	NotImplement    = errors.New("not implement")
	NotSupport      = errors.New("not supported")
	InvalidRequest  = errors.New("the request is malformed or invalid for this operation")
	InternalError   = errors.New("internal error")
	InvalidVersion  = errors.New("the specified version id is invalid")
	VersioningError = errors.New("versioning state transition is not allowed")
)

var (
	NoSuchBucket            = errors.New("the specified bucket does not exist")
	BucketAlreadyExists     = errors.New("the requested bucket name is not available")
	BucketAlreadyOwnedByYou = errors.New("your previous request to create the named bucket succeeded and you already own it")
	BucketNotEmpty          = errors.New("the bucket you tried to delete is not empty")
	InvalidBucketName       = errors.New("the specified bucket is not valid")
	NoSuchBucketPolicy      = errors.New("the bucket policy does not exist")
	NoSuchCORSConfiguration = errors.New("the CORS configuration does not exist")
)

var (
	NoSuchKey         = errors.New("the specified key does not exist")
	NoSuchVersion     = errors.New("the specified version does not exist")
	InvalidRange      = errors.New("the requested range is not satisfiable")
	PreconditionFailed = errors.New("at least one of the preconditions you specified did not hold")
	NotModified       = errors.New("resource not modified")
	BadDigest         = errors.New("the content-md5 or checksum you specified did not match what we received")
	InvalidTag        = errors.New("the tag provided was not a valid tag")
	AccessDenied      = errors.New("access denied")
	InvalidObjectState = errors.New("the operation is not valid for the object's current state")
)

var (
	NoSuchUpload      = errors.New("the specified multipart upload does not exist")
	InvalidPart       = errors.New("one or more of the specified parts could not be found")
	InvalidPartOrder  = errors.New("the list of parts was not in ascending order")
	EntityTooSmall    = errors.New("your proposed upload is smaller than the minimum allowed size")
	EntityTooLarge    = errors.New("your proposed upload exceeds the maximum allowed size")
)

var KMSKeyNotFound = errors.New("the specified kms key does not exist")

// Wrap adds context to a sentinel error while keeping it matchable with
// errors.Is.
func Wrap(err error, format string, a ...any) error {
	return errors.WithMessage(err, fmt.Sprintf(format, a...))
}
