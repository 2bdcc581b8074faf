package s3

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dongdio/s3mock/internal/s3err"
	"github.com/dongdio/s3mock/server/middlewares"
)

var notImplementedError = s3err.APIError{
	Code:       "NotImplemented",
	Message:    "A header or query you provided requested a feature not implemented by this server.",
	StatusCode: http.StatusNotImplemented,
}

// NewRouter builds the gin engine implementing the S3 REST surface.
// Every path, at service, bucket and object level alike, is routed
// through one NoRoute catch-all that resolves the concrete operation from the
// method, subresource query parameters and a few headers, the way
// S3's own API gateway does — gin's router alone can't distinguish
// "PUT bucket" from "PUT bucket?versioning" by path.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.ErrorLogging())

	r.NoRoute(func(c *gin.Context) {
		target := ParseRequestTarget(c.Request, h.ServiceHost)
		q := ParseDispatchQuery(c.Request)
		op := ResolveOperation(c.Request.Method, target, q, c.Request.Header)
		h.dispatch(c, op, target)
	})
	return r
}

func (h *Handler) dispatch(c *gin.Context, op Operation, target RequestTarget) {
	switch op {
	case OpListBuckets:
		h.handleListBuckets(c)
	case OpCreateBucket:
		h.handleCreateBucket(c, target.Bucket)
	case OpDeleteBucket:
		h.handleDeleteBucket(c, target.Bucket)
	case OpHeadBucket:
		h.handleHeadBucket(c, target.Bucket)
	case OpListObjectsV1:
		h.handleListObjectsV1(c, target.Bucket)
	case OpListObjectsV2:
		h.handleListObjectsV2(c, target.Bucket)
	case OpListObjectVersions:
		h.handleListObjectVersions(c, target.Bucket)
	case OpListMultipartUploads:
		h.handleListMultipartUploads(c, target.Bucket)
	case OpDeleteObjects:
		h.handleDeleteObjects(c, target.Bucket)
	case OpGetBucketVersioning:
		h.handleGetBucketVersioning(c, target.Bucket)
	case OpPutBucketVersioning:
		h.handlePutBucketVersioning(c, target.Bucket)
	case OpGetBucketLifecycle:
		h.handleGetBucketLifecycle(c, target.Bucket)
	case OpPutBucketLifecycle:
		h.handlePutBucketLifecycle(c, target.Bucket)
	case OpDeleteBucketLifecycle:
		h.handleDeleteBucketLifecycle(c, target.Bucket)
	case OpGetBucketAcl:
		h.handleGetBucketAcl(c, target.Bucket)
	case OpPutBucketAcl:
		h.handlePutBucketAcl(c, target.Bucket)
	case OpGetBucketTagging:
		h.handleGetBucketTagging(c, target.Bucket)
	case OpPutBucketTagging:
		h.handlePutBucketTagging(c, target.Bucket)
	case OpDeleteBucketTagging:
		h.handleDeleteBucketTagging(c, target.Bucket)
	case OpGetBucketEncryption:
		h.handleGetBucketEncryption(c, target.Bucket)
	case OpPutBucketEncryption:
		h.handlePutBucketEncryption(c, target.Bucket)
	case OpDeleteBucketEncryption:
		h.handleDeleteBucketEncryption(c, target.Bucket)
	case OpGetObjectLockConfig:
		h.handleGetObjectLockConfig(c, target.Bucket)
	case OpPutObjectLockConfig:
		h.handlePutObjectLockConfig(c, target.Bucket)
	case OpGetBucketPolicy:
		h.handleGetBucketPolicy(c, target.Bucket)
	case OpPutBucketPolicy:
		h.handlePutBucketPolicy(c, target.Bucket)
	case OpDeleteBucketPolicy:
		h.handleDeleteBucketPolicy(c, target.Bucket)
	case OpGetBucketCors:
		h.handleGetBucketCors(c, target.Bucket)
	case OpPutBucketCors:
		h.handlePutBucketCors(c, target.Bucket)
	case OpDeleteBucketCors:
		h.handleDeleteBucketCors(c, target.Bucket)
	case OpGetBucketOwnershipControls:
		h.handleGetBucketOwnershipControls(c, target.Bucket)
	case OpPutBucketOwnershipControls:
		h.handlePutBucketOwnershipControls(c, target.Bucket)
	case OpDeleteBucketOwnershipControls:
		h.handleDeleteBucketOwnershipControls(c, target.Bucket)
	case OpGetBucketLocation:
		h.handleGetBucketLocation(c, target.Bucket)

	case OpPutObject:
		h.handlePutObject(c, target.Bucket, target.Key)
	case OpCopyObject:
		h.handleCopyObject(c, target.Bucket, target.Key)
	case OpGetObject:
		h.handleGetObject(c, target.Bucket, target.Key)
	case OpHeadObject:
		h.handleHeadObject(c, target.Bucket, target.Key)
	case OpDeleteObject:
		h.handleDeleteObject(c, target.Bucket, target.Key)
	case OpCreateMultipartUpload:
		h.handleCreateMultipartUpload(c, target.Bucket, target.Key)
	case OpUploadPart:
		h.handleUploadPart(c, target.Bucket, target.Key)
	case OpUploadPartCopy:
		h.handleUploadPartCopy(c, target.Bucket, target.Key)
	case OpCompleteMultipartUpload:
		h.handleCompleteMultipartUpload(c, target.Bucket, target.Key)
	case OpAbortMultipartUpload:
		h.handleAbortMultipartUpload(c, target.Bucket, target.Key)
	case OpListParts:
		h.handleListParts(c, target.Bucket, target.Key)
	case OpGetObjectTagging:
		h.handleGetObjectTagging(c, target.Bucket, target.Key)
	case OpPutObjectTagging:
		h.handlePutObjectTagging(c, target.Bucket, target.Key)
	case OpDeleteObjectTagging:
		h.handleDeleteObjectTagging(c, target.Bucket, target.Key)
	case OpGetObjectAcl:
		h.handleGetObjectAcl(c, target.Bucket, target.Key)
	case OpPutObjectAcl:
		h.handlePutObjectAcl(c, target.Bucket, target.Key)
	case OpGetObjectRetention:
		h.handleGetObjectRetention(c, target.Bucket, target.Key)
	case OpPutObjectRetention:
		h.handlePutObjectRetention(c, target.Bucket, target.Key)
	case OpGetObjectLegalHold:
		h.handleGetObjectLegalHold(c, target.Bucket, target.Key)
	case OpPutObjectLegalHold:
		h.handlePutObjectLegalHold(c, target.Bucket, target.Key)
	default:
		writeAPIError(c, notImplementedError)
	}
}
