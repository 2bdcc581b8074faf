// Package s3err maps internal/s3store failures to the S3 XML error
// envelope and the HTTP status AWS documents for each error code,
// grounded on jsco2t-storas/internal/s3err's APIError/MapError shape.
package s3err

import (
	"io"
	"net/http"

	pkgerrors "github.com/pkg/errors"

	"github.com/dongdio/s3mock/internal/s3xml"
	"github.com/dongdio/s3mock/utility/errs"
)

// APIError is an S3 error code paired with the HTTP status it maps to.
type APIError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e APIError) Error() string { return e.Code + ": " + e.Message }

var (
	NoSuchBucket            = APIError{"NoSuchBucket", "The specified bucket does not exist.", http.StatusNotFound}
	BucketAlreadyExists     = APIError{"BucketAlreadyExists", "The requested bucket name is not available.", http.StatusConflict}
	BucketAlreadyOwnedByYou = APIError{"BucketAlreadyOwnedByYou", "Your previous request to create the named bucket succeeded and you already own it.", http.StatusConflict}
	BucketNotEmpty          = APIError{"BucketNotEmpty", "The bucket you tried to delete is not empty.", http.StatusConflict}
	InvalidBucketName       = APIError{"InvalidBucketName", "The specified bucket is not valid.", http.StatusBadRequest}
	NoSuchBucketPolicy      = APIError{"NoSuchBucketPolicy", "The bucket policy does not exist.", http.StatusNotFound}
	NoSuchCORSConfiguration = APIError{"NoSuchCORSConfiguration", "The CORS configuration does not exist.", http.StatusNotFound}

	NoSuchKey          = APIError{"NoSuchKey", "The specified key does not exist.", http.StatusNotFound}
	NoSuchVersion      = APIError{"NoSuchVersion", "The specified version does not exist.", http.StatusNotFound}
	InvalidRange       = APIError{"InvalidRange", "The requested range is not satisfiable.", http.StatusRequestedRangeNotSatisfiable}
	PreconditionFailed = APIError{"PreconditionFailed", "At least one of the preconditions you specified did not hold.", http.StatusPreconditionFailed}
	BadDigest          = APIError{"BadDigest", "The Content-MD5 or checksum you specified did not match what we received.", http.StatusBadRequest}
	InvalidTag         = APIError{"InvalidTag", "The tag provided was not a valid tag.", http.StatusBadRequest}
	AccessDenied       = APIError{"AccessDenied", "Access Denied.", http.StatusForbidden}

	NoSuchUpload     = APIError{"NoSuchUpload", "The specified multipart upload does not exist.", http.StatusNotFound}
	InvalidPart      = APIError{"InvalidPart", "One or more of the specified parts could not be found.", http.StatusBadRequest}
	InvalidPartOrder = APIError{"InvalidPartOrder", "The list of parts was not in ascending order.", http.StatusBadRequest}
	EntityTooSmall   = APIError{"EntityTooSmall", "Your proposed upload is smaller than the minimum allowed size.", http.StatusBadRequest}
	EntityTooLarge   = APIError{"EntityTooLarge", "Your proposed upload exceeds the maximum allowed size.", http.StatusRequestEntityTooLarge}

	KMSKeyNotFound = APIError{"KMS.NotFoundException", "The specified KMS key does not exist.", http.StatusBadRequest}

	InvalidRequest = APIError{"InvalidRequest", "The request is malformed or invalid for this operation.", http.StatusBadRequest}
	MalformedXML   = APIError{"MalformedXML", "The XML you provided was not well-formed.", http.StatusBadRequest}
	InternalError  = APIError{"InternalError", "We encountered an internal error. Please try again.", http.StatusInternalServerError}
)

// Map translates an internal/s3store failure into an APIError, falling
// through to InternalError for anything unrecognized.
func Map(err error) APIError {
	if err == nil {
		return InternalError
	}
	switch {
	case pkgerrors.Is(err, errs.NoSuchBucket):
		return NoSuchBucket
	case pkgerrors.Is(err, errs.BucketAlreadyOwnedByYou):
		return BucketAlreadyOwnedByYou
	case pkgerrors.Is(err, errs.BucketAlreadyExists):
		return BucketAlreadyExists
	case pkgerrors.Is(err, errs.BucketNotEmpty):
		return BucketNotEmpty
	case pkgerrors.Is(err, errs.InvalidBucketName):
		return InvalidBucketName
	case pkgerrors.Is(err, errs.NoSuchBucketPolicy):
		return NoSuchBucketPolicy
	case pkgerrors.Is(err, errs.NoSuchCORSConfiguration):
		return NoSuchCORSConfiguration
	case pkgerrors.Is(err, errs.NoSuchKey):
		return NoSuchKey
	case pkgerrors.Is(err, errs.NoSuchVersion):
		return NoSuchVersion
	case pkgerrors.Is(err, errs.InvalidRange):
		return InvalidRange
	case pkgerrors.Is(err, errs.PreconditionFailed):
		return PreconditionFailed
	case pkgerrors.Is(err, errs.BadDigest):
		return BadDigest
	case pkgerrors.Is(err, errs.InvalidTag):
		return InvalidTag
	case pkgerrors.Is(err, errs.AccessDenied):
		return AccessDenied
	case pkgerrors.Is(err, errs.NoSuchUpload):
		return NoSuchUpload
	case pkgerrors.Is(err, errs.InvalidPart):
		return InvalidPart
	case pkgerrors.Is(err, errs.InvalidPartOrder):
		return InvalidPartOrder
	case pkgerrors.Is(err, errs.EntityTooSmall):
		return EntityTooSmall
	case pkgerrors.Is(err, errs.EntityTooLarge):
		return EntityTooLarge
	case pkgerrors.Is(err, errs.KMSKeyNotFound):
		return KMSKeyNotFound
	case pkgerrors.Is(err, errs.InvalidRequest), pkgerrors.Is(err, errs.InvalidVersion):
		return InvalidRequest
	default:
		return InternalError
	}
}

// Write serializes apiErr as the S3 error envelope to w.
func Write(w io.Writer, requestID, resource string, apiErr APIError) error {
	return s3xml.Encode(w, s3xml.ErrorResponse{
		Code:      apiErr.Code,
		Message:   apiErr.Message,
		Resource:  resource,
		RequestId: requestID,
	})
}
