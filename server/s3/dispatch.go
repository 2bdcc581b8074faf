package s3

import "net/http"

// Operation names one REST endpoint of the emulated S3 API.
type Operation string

const (
	OpUnknown Operation = ""

	// Service.
	OpListBuckets Operation = "ListBuckets"

	// Bucket.
	OpCreateBucket                  Operation = "CreateBucket"
	OpDeleteBucket                  Operation = "DeleteBucket"
	OpHeadBucket                    Operation = "HeadBucket"
	OpListObjectsV1                 Operation = "ListObjectsV1"
	OpListObjectsV2                 Operation = "ListObjectsV2"
	OpListObjectVersions            Operation = "ListObjectVersions"
	OpListMultipartUploads          Operation = "ListMultipartUploads"
	OpDeleteObjects                 Operation = "DeleteObjects"
	OpGetBucketVersioning           Operation = "GetBucketVersioning"
	OpPutBucketVersioning           Operation = "PutBucketVersioning"
	OpGetBucketLifecycle            Operation = "GetBucketLifecycle"
	OpPutBucketLifecycle            Operation = "PutBucketLifecycle"
	OpDeleteBucketLifecycle         Operation = "DeleteBucketLifecycle"
	OpGetBucketAcl                  Operation = "GetBucketAcl"
	OpPutBucketAcl                  Operation = "PutBucketAcl"
	OpGetBucketTagging              Operation = "GetBucketTagging"
	OpPutBucketTagging              Operation = "PutBucketTagging"
	OpDeleteBucketTagging           Operation = "DeleteBucketTagging"
	OpGetBucketEncryption           Operation = "GetBucketEncryption"
	OpPutBucketEncryption           Operation = "PutBucketEncryption"
	OpDeleteBucketEncryption        Operation = "DeleteBucketEncryption"
	OpGetObjectLockConfig           Operation = "GetObjectLockConfiguration"
	OpPutObjectLockConfig           Operation = "PutObjectLockConfiguration"
	OpGetBucketPolicy               Operation = "GetBucketPolicy"
	OpPutBucketPolicy               Operation = "PutBucketPolicy"
	OpDeleteBucketPolicy            Operation = "DeleteBucketPolicy"
	OpGetBucketCors                 Operation = "GetBucketCors"
	OpPutBucketCors                 Operation = "PutBucketCors"
	OpDeleteBucketCors              Operation = "DeleteBucketCors"
	OpGetBucketOwnershipControls    Operation = "GetBucketOwnershipControls"
	OpPutBucketOwnershipControls    Operation = "PutBucketOwnershipControls"
	OpDeleteBucketOwnershipControls Operation = "DeleteBucketOwnershipControls"
	OpGetBucketLocation             Operation = "GetBucketLocation"

	// Object.
	OpPutObject               Operation = "PutObject"
	OpCopyObject              Operation = "CopyObject"
	OpGetObject               Operation = "GetObject"
	OpHeadObject              Operation = "HeadObject"
	OpDeleteObject            Operation = "DeleteObject"
	OpCreateMultipartUpload   Operation = "CreateMultipartUpload"
	OpUploadPart              Operation = "UploadPart"
	OpUploadPartCopy          Operation = "UploadPartCopy"
	OpCompleteMultipartUpload Operation = "CompleteMultipartUpload"
	OpAbortMultipartUpload    Operation = "AbortMultipartUpload"
	OpListParts               Operation = "ListParts"
	OpGetObjectTagging        Operation = "GetObjectTagging"
	OpPutObjectTagging        Operation = "PutObjectTagging"
	OpDeleteObjectTagging     Operation = "DeleteObjectTagging"
	OpGetObjectAcl            Operation = "GetObjectAcl"
	OpPutObjectAcl            Operation = "PutObjectAcl"
	OpGetObjectRetention      Operation = "GetObjectRetention"
	OpPutObjectRetention      Operation = "PutObjectRetention"
	OpGetObjectLegalHold      Operation = "GetObjectLegalHold"
	OpPutObjectLegalHold      Operation = "PutObjectLegalHold"
)

// ResolveOperation maps a request's method, target and query string to
// the operation that handles it, in the fixed priority order S3's own
// routing uses: subresource query parameters take precedence over the
// bare verb, and a handful of headers (copy-source) redirect an
// otherwise ordinary verb to a different operation.
func ResolveOperation(method string, target RequestTarget, q DispatchQuery, headers http.Header) Operation {
	if target.Bucket == "" {
		if method == http.MethodGet {
			return OpListBuckets
		}
		return OpUnknown
	}
	if target.Key == "" {
		return resolveBucketOperation(method, q)
	}
	return resolveObjectOperation(method, q, headers)
}

func resolveBucketOperation(method string, q DispatchQuery) Operation {
	switch {
	case q.has("versioning"):
		return pick(method, OpGetBucketVersioning, OpPutBucketVersioning, "")
	case q.has("lifecycle"):
		return pick(method, OpGetBucketLifecycle, OpPutBucketLifecycle, OpDeleteBucketLifecycle)
	case q.has("acl"):
		return pick(method, OpGetBucketAcl, OpPutBucketAcl, "")
	case q.has("tagging"):
		return pick(method, OpGetBucketTagging, OpPutBucketTagging, OpDeleteBucketTagging)
	case q.has("encryption"):
		return pick(method, OpGetBucketEncryption, OpPutBucketEncryption, OpDeleteBucketEncryption)
	case q.has("object-lock"):
		return pick(method, OpGetObjectLockConfig, OpPutObjectLockConfig, "")
	case q.has("policy"):
		return pick(method, OpGetBucketPolicy, OpPutBucketPolicy, OpDeleteBucketPolicy)
	case q.has("cors"):
		return pick(method, OpGetBucketCors, OpPutBucketCors, OpDeleteBucketCors)
	case q.has("ownershipControls"):
		return pick(method, OpGetBucketOwnershipControls, OpPutBucketOwnershipControls, OpDeleteBucketOwnershipControls)
	case q.has("location"):
		if method == http.MethodGet {
			return OpGetBucketLocation
		}
	case q.has("uploads"):
		if method == http.MethodGet {
			return OpListMultipartUploads
		}
	case q.has("versions"):
		if method == http.MethodGet {
			return OpListObjectVersions
		}
	case q.has("delete"):
		if method == http.MethodPost {
			return OpDeleteObjects
		}
	}
	switch method {
	case http.MethodPut:
		return OpCreateBucket
	case http.MethodDelete:
		return OpDeleteBucket
	case http.MethodHead:
		return OpHeadBucket
	case http.MethodGet:
		if q.first("list-type") == "2" {
			return OpListObjectsV2
		}
		return OpListObjectsV1
	}
	return OpUnknown
}

func resolveObjectOperation(method string, q DispatchQuery, headers http.Header) Operation {
	isCopy := headers.Get("x-amz-copy-source") != ""
	switch {
	case q.has("tagging"):
		return pick(method, OpGetObjectTagging, OpPutObjectTagging, OpDeleteObjectTagging)
	case q.has("acl"):
		return pick(method, OpGetObjectAcl, OpPutObjectAcl, "")
	case q.has("retention"):
		return pick(method, OpGetObjectRetention, OpPutObjectRetention, "")
	case q.has("legal-hold"):
		return pick(method, OpGetObjectLegalHold, OpPutObjectLegalHold, "")
	case q.has("uploads"):
		if method == http.MethodPost {
			return OpCreateMultipartUpload
		}
	case q.has("uploadId"):
		switch method {
		case http.MethodPut:
			if isCopy {
				return OpUploadPartCopy
			}
			return OpUploadPart
		case http.MethodPost:
			return OpCompleteMultipartUpload
		case http.MethodDelete:
			return OpAbortMultipartUpload
		case http.MethodGet:
			return OpListParts
		}
	}
	switch method {
	case http.MethodPut:
		if isCopy {
			return OpCopyObject
		}
		return OpPutObject
	case http.MethodGet:
		return OpGetObject
	case http.MethodHead:
		return OpHeadObject
	case http.MethodDelete:
		return OpDeleteObject
	}
	return OpUnknown
}

func pick(method string, get, put, del Operation) Operation {
	switch method {
	case http.MethodGet:
		return get
	case http.MethodPut:
		return put
	case http.MethodDelete:
		return del
	}
	return OpUnknown
}
