package s3

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dongdio/s3mock/internal/s3err"
	"github.com/dongdio/s3mock/internal/s3store"
	"github.com/dongdio/s3mock/internal/s3xml"
)

var errNoRetentionSet = s3err.APIError{
	Code:       "NoSuchObjectLockConfiguration",
	Message:    "The specified object does not have a ObjectLock configuration.",
	StatusCode: http.StatusNotFound,
}

func parseISO8601(v string) (time.Time, error) {
	return time.Parse(s3xml.TimeFormat, v)
}

func putOptionsFromHeaders(c *gin.Context, ownerID string) (s3store.PutOptions, error) {
	opts := s3store.PutOptions{
		UserMetadata: ParseUserMetadata(c.Request.Header),
		System: s3store.SystemMetadata{
			ContentType:        c.GetHeader("Content-Type"),
			ContentEncoding:    c.GetHeader("Content-Encoding"),
			ContentLanguage:    c.GetHeader("Content-Language"),
			ContentDisposition: c.GetHeader("Content-Disposition"),
			CacheControl:       c.GetHeader("Cache-Control"),
			Expires:            c.GetHeader("Expires"),
		},
		ContentMD5: c.GetHeader("Content-MD5"),
	}
	if acl := c.GetHeader("x-amz-acl"); acl != "" {
		opts.ACL = CannedACL(acl, ownerID)
	}
	if algo := c.GetHeader("x-amz-sdk-checksum-algorithm"); algo != "" {
		opts.ChecksumAlgo = s3store.ChecksumAlgorithm(algo)
		opts.ChecksumValue = c.GetHeader("x-amz-checksum-" + toLowerAlgo(algo))
	}
	if hold := c.GetHeader("x-amz-object-lock-legal-hold"); hold == "ON" {
		opts.LegalHold = true
	}
	if mode := c.GetHeader("x-amz-object-lock-mode"); mode != "" {
		var ret s3store.Retention
		ret.Mode = s3store.RetentionMode(mode)
		if until := c.GetHeader("x-amz-object-lock-retain-until-date"); until != "" {
			if t, err := parseISO8601(until); err == nil {
				ret.RetainUntilDate = t
			}
		}
		opts.Retention = &ret
	}
	if sse := c.GetHeader("x-amz-server-side-encryption"); sse != "" {
		opts.SSE = &s3store.SSE{Algorithm: sse, KMSKeyID: c.GetHeader("x-amz-server-side-encryption-aws-kms-key-id")}
	}
	if tagging := c.GetHeader("x-amz-tagging"); tagging != "" {
		tags, err := ParseTagging(tagging)
		if err != nil {
			return opts, err
		}
		opts.Tags = tags
	}
	return opts, nil
}

func toLowerAlgo(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

func (h *Handler) handlePutObject(c *gin.Context, bucket, key string) {
	opts, err := putOptionsFromHeaders(c, h.OwnerID)
	if err != nil {
		writeError(c, err)
		return
	}
	meta, err := h.Store.PutObject(bucket, key, c.Request.Body, opts)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("ETag", `"`+meta.ETag+`"`)
	if meta.SSE != nil {
		c.Header("x-amz-server-side-encryption", meta.SSE.Algorithm)
	}
	if meta.VersionID != "" && meta.VersionID != "null" {
		c.Header("x-amz-version-id", meta.VersionID)
	}
	c.Status(http.StatusOK)
}

func (h *Handler) handleGetObject(c *gin.Context, bucket, key string) {
	rng, _ := ParseRange(c.GetHeader("Range"))
	pre := ParsePreconditions(c.Request.Header)
	meta, body, resolved, err := h.Store.GetObject(bucket, key, c.Query("versionId"), rng, pre)
	if err != nil {
		writeError(c, err)
		return
	}
	defer body.Close()
	writeObjectHeaders(c, meta)
	if resolved != nil {
		c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", resolved.Start, resolved.End, meta.Size))
		c.Header("Content-Length", strconv.FormatInt(resolved.Length(), 10))
		c.Status(http.StatusPartialContent)
	} else {
		c.Header("Content-Length", strconv.FormatInt(meta.Size, 10))
		c.Status(http.StatusOK)
	}
	_, _ = io.Copy(c.Writer, body)
}

func writeObjectHeaders(c *gin.Context, meta s3store.ObjectMetadata) {
	c.Header("ETag", `"`+meta.ETag+`"`)
	c.Header("Last-Modified", FormatHTTPTime(meta.LastModified))
	c.Header("Accept-Ranges", "bytes")
	if meta.System.ContentType != "" {
		c.Header("Content-Type", meta.System.ContentType)
	}
	if meta.System.ContentEncoding != "" {
		c.Header("Content-Encoding", meta.System.ContentEncoding)
	}
	if meta.System.ContentLanguage != "" {
		c.Header("Content-Language", meta.System.ContentLanguage)
	}
	if meta.System.ContentDisposition != "" {
		c.Header("Content-Disposition", meta.System.ContentDisposition)
	}
	if meta.System.CacheControl != "" {
		c.Header("Cache-Control", meta.System.CacheControl)
	}
	for k, v := range meta.UserMetadata {
		c.Header("x-amz-meta-"+k, v)
	}
	if meta.VersionID != "" && meta.VersionID != "null" {
		c.Header("x-amz-version-id", meta.VersionID)
	}
	if meta.SSE != nil {
		c.Header("x-amz-server-side-encryption", meta.SSE.Algorithm)
		if meta.SSE.KMSKeyID != "" {
			c.Header("x-amz-server-side-encryption-aws-kms-key-id", meta.SSE.KMSKeyID)
		}
	}
	if meta.Checksum != nil {
		c.Header("x-amz-checksum-"+toLowerAlgo(string(meta.Checksum.Algorithm)), meta.Checksum.Value)
	}
}

func (h *Handler) handleHeadObject(c *gin.Context, bucket, key string) {
	pre := ParsePreconditions(c.Request.Header)
	meta, err := h.Store.HeadObject(bucket, key, c.Query("versionId"), pre)
	if err != nil {
		writeError(c, err)
		return
	}
	writeObjectHeaders(c, meta)
	c.Header("Content-Length", strconv.FormatInt(meta.Size, 10))
	c.Status(http.StatusOK)
}

func (h *Handler) handleDeleteObject(c *gin.Context, bucket, key string) {
	vid, isMarker, err := h.Store.DeleteObject(bucket, key, c.Query("versionId"))
	if err != nil {
		writeError(c, err)
		return
	}
	if vid != "" && vid != "null" {
		c.Header("x-amz-version-id", vid)
	}
	if isMarker {
		c.Header("x-amz-delete-marker", "true")
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleCopyObject(c *gin.Context, dstBucket, dstKey string) {
	srcBucket, srcKey, srcVersionID := ParseCopySource(c.GetHeader("x-amz-copy-source"))
	putOpts, err := putOptionsFromHeaders(c, h.OwnerID)
	if err != nil {
		writeError(c, err)
		return
	}
	opts := s3store.CopyOptions{
		MetadataDirective: c.GetHeader("x-amz-metadata-directive"),
		TaggingDirective:  c.GetHeader("x-amz-tagging-directive"),
		PutOptions:        putOpts,
	}
	if v := c.GetHeader("x-amz-copy-source-if-match"); v != "" {
		opts.SourcePreconditions.IfMatch = splitETags(v)
	}
	if v := c.GetHeader("x-amz-copy-source-if-none-match"); v != "" {
		opts.SourcePreconditions.IfNoneMatch = splitETags(v)
	}
	meta, err := h.Store.CopyObject(srcBucket, srcKey, srcVersionID, dstBucket, dstKey, opts)
	if err != nil {
		writeError(c, err)
		return
	}
	if meta.VersionID != "" && meta.VersionID != "null" {
		c.Header("x-amz-version-id", meta.VersionID)
	}
	writeXML(c, http.StatusOK, s3xml.CopyObjectResult{
		Xmlns:        s3xml.WithXmlns(),
		ETag:         `"` + meta.ETag + `"`,
		LastModified: s3xml.FormatTime(meta.LastModified),
	})
}

func (h *Handler) handleGetObjectTagging(c *gin.Context, bucket, key string) {
	meta, err := h.Store.HeadObject(bucket, key, c.Query("versionId"), s3store.Preconditions{})
	if err != nil {
		writeError(c, err)
		return
	}
	resp := s3xml.Tagging{Xmlns: s3xml.WithXmlns()}
	for k, v := range meta.Tags {
		resp.TagSet.Tag = append(resp.TagSet.Tag, s3xml.Tag{Key: k, Value: v})
	}
	writeXML(c, http.StatusOK, resp)
}

func (h *Handler) handlePutObjectTagging(c *gin.Context, bucket, key string) {
	var body s3xml.Tagging
	if err := readXML(c, &body); err != nil {
		writeError(c, err)
		return
	}
	tags := make(map[string]string, len(body.TagSet.Tag))
	for _, t := range body.TagSet.Tag {
		tags[t.Key] = t.Value
	}
	_, err := h.Store.UpdateObjectMetadata(bucket, key, c.Query("versionId"), func(m *s3store.ObjectMetadata) error {
		m.Tags = tags
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) handleDeleteObjectTagging(c *gin.Context, bucket, key string) {
	_, err := h.Store.UpdateObjectMetadata(bucket, key, c.Query("versionId"), func(m *s3store.ObjectMetadata) error {
		m.Tags = nil
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleGetObjectAcl(c *gin.Context, bucket, key string) {
	meta, err := h.Store.HeadObject(bucket, key, c.Query("versionId"), s3store.Preconditions{})
	if err != nil {
		writeError(c, err)
		return
	}
	writeXML(c, http.StatusOK, aclDocument(h.owner(), meta.ACL))
}

func (h *Handler) handlePutObjectAcl(c *gin.Context, bucket, key string) {
	acl := CannedACL(c.GetHeader("x-amz-acl"), h.OwnerID)
	if len(acl.Grants) == 1 {
		var body s3xml.AccessControlPolicy
		if err := readXML(c, &body); err == nil && len(body.AccessControlList.Grant) > 0 {
			acl = aclFromDocument(body)
		}
	}
	_, err := h.Store.UpdateObjectMetadata(bucket, key, c.Query("versionId"), func(m *s3store.ObjectMetadata) error {
		m.ACL = acl
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) handleGetObjectRetention(c *gin.Context, bucket, key string) {
	meta, err := h.Store.HeadObject(bucket, key, c.Query("versionId"), s3store.Preconditions{})
	if err != nil {
		writeError(c, err)
		return
	}
	if meta.Retention == nil {
		writeAPIError(c, errNoRetentionSet)
		return
	}
	resp := struct {
		XMLName         string `xml:"Retention"`
		Mode            string `xml:"Mode"`
		RetainUntilDate string `xml:"RetainUntilDate"`
	}{Mode: string(meta.Retention.Mode), RetainUntilDate: s3xml.FormatTime(meta.Retention.RetainUntilDate)}
	writeXML(c, http.StatusOK, resp)
}

func (h *Handler) handlePutObjectRetention(c *gin.Context, bucket, key string) {
	var body struct {
		Mode            string `xml:"Mode"`
		RetainUntilDate string `xml:"RetainUntilDate"`
	}
	if err := readXML(c, &body); err != nil {
		writeError(c, err)
		return
	}
	ret := &s3store.Retention{Mode: s3store.RetentionMode(body.Mode)}
	if t, err := parseISO8601(body.RetainUntilDate); err == nil {
		ret.RetainUntilDate = t
	}
	_, err := h.Store.UpdateObjectMetadata(bucket, key, c.Query("versionId"), func(m *s3store.ObjectMetadata) error {
		m.Retention = ret
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) handleGetObjectLegalHold(c *gin.Context, bucket, key string) {
	meta, err := h.Store.HeadObject(bucket, key, c.Query("versionId"), s3store.Preconditions{})
	if err != nil {
		writeError(c, err)
		return
	}
	status := "OFF"
	if meta.LegalHold {
		status = "ON"
	}
	resp := struct {
		XMLName string `xml:"LegalHold"`
		Status  string `xml:"Status"`
	}{Status: status}
	writeXML(c, http.StatusOK, resp)
}

func (h *Handler) handlePutObjectLegalHold(c *gin.Context, bucket, key string) {
	var body struct {
		Status string `xml:"Status"`
	}
	if err := readXML(c, &body); err != nil {
		writeError(c, err)
		return
	}
	_, err := h.Store.UpdateObjectMetadata(bucket, key, c.Query("versionId"), func(m *s3store.ObjectMetadata) error {
		m.LegalHold = body.Status == "ON"
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
