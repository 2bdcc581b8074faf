package s3

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dongdio/s3mock/internal/s3store"
	"github.com/dongdio/s3mock/internal/s3xml"
)

func (h *Handler) handleCreateMultipartUpload(c *gin.Context, bucket, key string) {
	opts, err := putOptionsFromHeaders(c, h.OwnerID)
	if err != nil {
		writeError(c, err)
		return
	}
	uploadID, err := h.Store.CreateMultipartUpload(bucket, key, opts)
	if err != nil {
		writeError(c, err)
		return
	}
	writeXML(c, http.StatusOK, s3xml.InitiateMultipartUploadResult{
		Xmlns: s3xml.WithXmlns(), Bucket: bucket, Key: key, UploadId: uploadID,
	})
}

func (h *Handler) handleUploadPart(c *gin.Context, bucket, key string) {
	partNumber := intQuery(c, "partNumber", 0)
	uploadID := c.Query("uploadId")
	info, err := h.Store.UploadPart(bucket, key, uploadID, partNumber, c.Request.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("ETag", `"`+info.ETag+`"`)
	c.Status(http.StatusOK)
}

func (h *Handler) handleUploadPartCopy(c *gin.Context, bucket, key string) {
	partNumber := intQuery(c, "partNumber", 0)
	uploadID := c.Query("uploadId")
	srcBucket, srcKey, srcVersionID := ParseCopySource(c.GetHeader("x-amz-copy-source"))
	var rng *s3store.RawRange
	if v := c.GetHeader("x-amz-copy-source-range"); v != "" {
		rng, _ = ParseRange(v)
	}
	info, err := h.Store.UploadPartCopy(bucket, key, uploadID, partNumber, srcBucket, srcKey, srcVersionID, rng)
	if err != nil {
		writeError(c, err)
		return
	}
	writeXML(c, http.StatusOK, s3xml.CopyPartResult{
		Xmlns: s3xml.WithXmlns(), ETag: `"` + info.ETag + `"`, LastModified: s3xml.FormatTime(info.LastModified),
	})
}

func (h *Handler) handleCompleteMultipartUpload(c *gin.Context, bucket, key string) {
	uploadID := c.Query("uploadId")
	var body s3xml.CompleteMultipartUpload
	if err := readXML(c, &body); err != nil {
		writeError(c, err)
		return
	}
	requested := make([]s3store.CompletedPart, len(body.Part))
	for i, p := range body.Part {
		requested[i] = s3store.CompletedPart{PartNumber: p.PartNumber, ETag: trimETagQuotes(p.ETag)}
	}
	meta, err := h.Store.CompleteMultipartUpload(bucket, key, uploadID, requested)
	if err != nil {
		writeError(c, err)
		return
	}
	if meta.VersionID != "" && meta.VersionID != "null" {
		c.Header("x-amz-version-id", meta.VersionID)
	}
	writeXML(c, http.StatusOK, s3xml.CompleteMultipartUploadResult{
		Xmlns: s3xml.WithXmlns(), Bucket: bucket, Key: key, ETag: `"` + meta.ETag + `"`,
	})
}

func trimETagQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func (h *Handler) handleAbortMultipartUpload(c *gin.Context, bucket, key string) {
	uploadID := c.Query("uploadId")
	if err := h.Store.AbortMultipartUpload(bucket, key, uploadID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleListParts(c *gin.Context, bucket, key string) {
	uploadID := c.Query("uploadId")
	marker := intQuery(c, "part-number-marker", 0)
	maxParts := intQuery(c, "max-parts", 1000)
	result, err := h.Store.ListParts(bucket, key, uploadID, marker, maxParts)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := s3xml.ListPartsResult{
		Xmlns: s3xml.WithXmlns(), Bucket: bucket, Key: key, UploadId: uploadID,
		Owner: h.owner(), Initiator: h.owner(),
		StorageClass: "STANDARD", PartNumberMarker: marker,
		NextPartNumberMarker: result.NextPartNumberMarker, MaxParts: maxParts, IsTruncated: result.IsTruncated,
	}
	for _, p := range result.Parts {
		resp.Part = append(resp.Part, s3xml.Part{
			PartNumber: p.PartNumber, LastModified: s3xml.FormatTime(p.LastModified), ETag: `"` + p.ETag + `"`, Size: p.Size,
		})
	}
	writeXML(c, http.StatusOK, resp)
}

func (h *Handler) handleListMultipartUploads(c *gin.Context, bucket string) {
	opts := s3store.ListOptions{Prefix: c.Query("prefix"), Delimiter: c.Query("delimiter")}
	keyMarker := c.Query("key-marker")
	uploadIDMarker := c.Query("upload-id-marker")
	maxUploads := intQuery(c, "max-uploads", 1000)
	result, err := h.Store.ListMultipartUploads(bucket, opts, keyMarker, uploadIDMarker, maxUploads)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := s3xml.ListMultipartUploadsResult{
		Xmlns: s3xml.WithXmlns(), Bucket: bucket, KeyMarker: keyMarker, UploadIdMarker: uploadIDMarker,
		NextKeyMarker: result.NextKeyMarker, NextUploadIdMarker: result.NextUploadIDMarker,
		MaxUploads: maxUploads, IsTruncated: result.IsTruncated,
	}
	for _, u := range result.Uploads {
		resp.Upload = append(resp.Upload, s3xml.MultipartUploadEntry{
			Key: u.Key, UploadId: u.UploadID, Initiator: h.owner(), Owner: h.owner(),
			StorageClass: "STANDARD", Initiated: s3xml.FormatTime(u.Initiated),
		})
	}
	writeXML(c, http.StatusOK, resp)
}
