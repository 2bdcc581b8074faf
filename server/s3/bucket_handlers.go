package s3

import (
	"encoding/xml"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dongdio/s3mock/internal/s3err"
	"github.com/dongdio/s3mock/internal/s3store"
	"github.com/dongdio/s3mock/internal/s3xml"
	"github.com/dongdio/s3mock/utility/errs"
)

var errServerSideEncryptionConfigurationNotFound = s3err.APIError{
	Code:       "ServerSideEncryptionConfigurationNotFoundError",
	Message:    "The server side encryption configuration was not found.",
	StatusCode: http.StatusNotFound,
}

func (h *Handler) handleListBuckets(c *gin.Context) {
	buckets, err := h.Store.ListBuckets()
	if err != nil {
		writeError(c, err)
		return
	}
	rows := make([]s3xml.Bucket, len(buckets))
	for i, b := range buckets {
		rows[i] = s3xml.Bucket{Name: b.Name, CreationDate: s3xml.FormatTime(b.CreationDate)}
	}
	writeXML(c, http.StatusOK, s3xml.NewListAllMyBucketsResult(h.owner(), rows))
}

func (h *Handler) handleCreateBucket(c *gin.Context, bucket string) {
	ownership := s3store.OwnershipBucketOwnerEnforced
	if v := c.GetHeader("x-amz-object-ownership"); v != "" {
		ownership = s3store.Ownership(v)
	}
	var lockConfig *s3store.ObjectLockConfig
	if c.GetHeader("x-amz-bucket-object-lock-enabled") == "true" {
		lockConfig = &s3store.ObjectLockConfig{Enabled: true}
	}
	region := h.Region
	err := h.Store.CreateBucket(bucket, region, ownership, lockConfig)
	if err != nil {
		writeError(c, err)
		return
	}
	if acl := c.GetHeader("x-amz-acl"); acl != "" {
		_ = h.Store.UpdateBucket(bucket, func(m *s3store.BucketMetadata) error {
			m.ACL = CannedACL(acl, h.OwnerID)
			return nil
		})
	}
	c.Header("Location", "/"+bucket)
	c.Status(http.StatusOK)
}

func (h *Handler) handleDeleteBucket(c *gin.Context, bucket string) {
	if err := h.Store.DeleteBucket(bucket); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleHeadBucket(c *gin.Context, bucket string) {
	if _, err := h.Store.GetBucket(bucket); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func intQuery(c *gin.Context, name string, def int) int {
	v := c.Query(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func (h *Handler) handleListObjectsV1(c *gin.Context, bucket string) {
	opts := s3store.ListV1Options{
		ListOptions: s3store.ListOptions{
			Prefix:    c.Query("prefix"),
			Delimiter: c.Query("delimiter"),
			MaxKeys:   intQuery(c, "max-keys", 1000),
		},
		Marker: c.Query("marker"),
	}
	result, err := h.Store.ListObjectsV1(bucket, opts)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := s3xml.ListBucketResult{
		Xmlns:       s3xml.WithXmlns(),
		Name:        bucket,
		Prefix:      opts.Prefix,
		Marker:      opts.Marker,
		NextMarker:  result.NextMarker,
		MaxKeys:     opts.MaxKeys,
		Delimiter:   opts.Delimiter,
		IsTruncated: result.IsTruncated,
	}
	for _, e := range result.Entries {
		resp.Contents = append(resp.Contents, contentOf(e.Meta))
	}
	for _, cp := range result.CommonPrefixes {
		resp.CommonPrefixes = append(resp.CommonPrefixes, s3xml.CommonPrefix{Prefix: cp})
	}
	writeXML(c, http.StatusOK, resp)
}

func (h *Handler) handleListObjectsV2(c *gin.Context, bucket string) {
	opts := s3store.ListV2Options{
		ListOptions: s3store.ListOptions{
			Prefix:    c.Query("prefix"),
			Delimiter: c.Query("delimiter"),
			MaxKeys:   intQuery(c, "max-keys", 1000),
		},
		ContinuationToken: c.Query("continuation-token"),
		StartAfter:        c.Query("start-after"),
	}
	result, err := h.Store.ListObjectsV2(bucket, opts)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := s3xml.ListBucketResultV2{
		Xmlns:                 s3xml.WithXmlns(),
		Name:                  bucket,
		Prefix:                opts.Prefix,
		StartAfter:            opts.StartAfter,
		ContinuationToken:     opts.ContinuationToken,
		NextContinuationToken: result.NextMarker,
		KeyCount:              len(result.Entries) + len(result.CommonPrefixes),
		MaxKeys:               opts.MaxKeys,
		Delimiter:             opts.Delimiter,
		IsTruncated:           result.IsTruncated,
	}
	for _, e := range result.Entries {
		resp.Contents = append(resp.Contents, contentOf(e.Meta))
	}
	for _, cp := range result.CommonPrefixes {
		resp.CommonPrefixes = append(resp.CommonPrefixes, s3xml.CommonPrefix{Prefix: cp})
	}
	writeXML(c, http.StatusOK, resp)
}

func (h *Handler) handleListObjectVersions(c *gin.Context, bucket string) {
	opts := s3store.ListVersionsOptions{
		ListOptions: s3store.ListOptions{
			Prefix:    c.Query("prefix"),
			Delimiter: c.Query("delimiter"),
			MaxKeys:   intQuery(c, "max-keys", 1000),
		},
		KeyMarker:       c.Query("key-marker"),
		VersionIDMarker: c.Query("version-id-marker"),
	}
	result, err := h.Store.ListObjectVersions(bucket, opts)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := s3xml.ListVersionsResult{
		Xmlns:               s3xml.WithXmlns(),
		Name:                bucket,
		Prefix:              opts.Prefix,
		KeyMarker:           opts.KeyMarker,
		VersionIdMarker:     opts.VersionIDMarker,
		NextKeyMarker:       result.NextKeyMarker,
		NextVersionIdMarker: result.NextVersionIDMarker,
		MaxKeys:             opts.MaxKeys,
		Delimiter:           opts.Delimiter,
		IsTruncated:         result.IsTruncated,
	}
	for _, v := range result.Versions {
		resp.Version = append(resp.Version, s3xml.VersionEntry{
			Key: v.Key, VersionId: v.Meta.VersionID, IsLatest: v.IsLatest,
			LastModified: s3xml.FormatTime(v.Meta.LastModified), ETag: v.Meta.ETag, Size: v.Meta.Size,
		})
	}
	for _, v := range result.DeleteMarkers {
		resp.DeleteMarker = append(resp.DeleteMarker, s3xml.DeleteMarkerEntry{
			Key: v.Key, VersionId: v.Meta.VersionID, IsLatest: v.IsLatest,
			LastModified: s3xml.FormatTime(v.Meta.LastModified),
		})
	}
	for _, cp := range result.CommonPrefixes {
		resp.CommonPrefixes = append(resp.CommonPrefixes, s3xml.CommonPrefix{Prefix: cp})
	}
	writeXML(c, http.StatusOK, resp)
}

func contentOf(meta s3store.ObjectMetadata) s3xml.Content {
	return s3xml.Content{
		Key:          meta.Key,
		LastModified: s3xml.FormatTime(meta.LastModified),
		ETag:         `"` + meta.ETag + `"`,
		Size:         meta.Size,
		StorageClass: "STANDARD",
	}
}

func (h *Handler) handleGetBucketVersioning(c *gin.Context, bucket string) {
	meta, err := h.Store.GetBucket(bucket)
	if err != nil {
		writeError(c, err)
		return
	}
	writeXML(c, http.StatusOK, s3xml.VersioningConfiguration{Xmlns: s3xml.WithXmlns(), Status: string(meta.Versioning)})
}

func (h *Handler) handlePutBucketVersioning(c *gin.Context, bucket string) {
	var body s3xml.VersioningConfiguration
	if err := readXML(c, &body); err != nil {
		writeError(c, err)
		return
	}
	err := h.Store.UpdateBucket(bucket, func(m *s3store.BucketMetadata) error {
		m.Versioning = s3store.VersioningState(body.Status)
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) handleGetBucketAcl(c *gin.Context, bucket string) {
	meta, err := h.Store.GetBucket(bucket)
	if err != nil {
		writeError(c, err)
		return
	}
	writeXML(c, http.StatusOK, aclDocument(h.owner(), meta.ACL))
}

func (h *Handler) handlePutBucketAcl(c *gin.Context, bucket string) {
	acl := CannedACL(c.GetHeader("x-amz-acl"), h.OwnerID)
	if acl.Grants == nil {
		var body s3xml.AccessControlPolicy
		if err := readXML(c, &body); err == nil {
			acl = aclFromDocument(body)
		}
	}
	err := h.Store.UpdateBucket(bucket, func(m *s3store.BucketMetadata) error {
		m.ACL = acl
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func aclDocument(owner s3xml.Owner, acl *s3store.ACL) s3xml.AccessControlPolicy {
	doc := s3xml.AccessControlPolicy{Xmlns: s3xml.WithXmlns(), Owner: owner}
	if acl == nil {
		return doc
	}
	for _, g := range acl.Grants {
		grantee := s3xml.Grantee{Type: "CanonicalUser", ID: g.GranteeID}
		if g.GranteeURI != "" {
			grantee = s3xml.Grantee{Type: "Group", URI: g.GranteeURI}
		}
		doc.AccessControlList.Grant = append(doc.AccessControlList.Grant, s3xml.Grant{Grantee: grantee, Permission: g.Permission})
	}
	return doc
}

func aclFromDocument(doc s3xml.AccessControlPolicy) *s3store.ACL {
	acl := &s3store.ACL{OwnerID: doc.Owner.ID, OwnerName: doc.Owner.DisplayName}
	for _, g := range doc.AccessControlList.Grant {
		acl.Grants = append(acl.Grants, s3store.Grant{GranteeID: g.Grantee.ID, GranteeURI: g.Grantee.URI, Permission: g.Permission})
	}
	return acl
}

func (h *Handler) handleGetBucketTagging(c *gin.Context, bucket string) {
	_, err := h.Store.GetBucket(bucket)
	if err != nil {
		writeError(c, err)
		return
	}
	// Bucket-level tags are not modeled separately from object tags in
	// this emulator; an empty TagSet is a valid response.
	writeXML(c, http.StatusOK, s3xml.Tagging{Xmlns: s3xml.WithXmlns()})
}

func (h *Handler) handlePutBucketLifecycle(c *gin.Context, bucket string) {
	var body struct {
		Rules []struct {
			ID         string `xml:"ID"`
			Prefix     string `xml:"Prefix"`
			Status     string `xml:"Status"`
			Expiration struct {
				Days int `xml:"Days"`
			} `xml:"Expiration"`
			AbortIncompleteMultipartUpload struct {
				DaysAfterInitiation int `xml:"DaysAfterInitiation"`
			} `xml:"AbortIncompleteMultipartUpload"`
		} `xml:"Rule"`
	}
	if err := readXML(c, &body); err != nil {
		writeError(c, err)
		return
	}
	rules := make([]s3store.LifecycleRule, len(body.Rules))
	for i, r := range body.Rules {
		rules[i] = s3store.LifecycleRule{
			ID:                                r.ID,
			Prefix:                            r.Prefix,
			Enabled:                           r.Status == "Enabled",
			ExpirationDays:                    r.Expiration.Days,
			AbortIncompleteMultipartAfterDays: r.AbortIncompleteMultipartUpload.DaysAfterInitiation,
		}
	}
	err := h.Store.UpdateBucket(bucket, func(m *s3store.BucketMetadata) error {
		m.Lifecycle = rules
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) handleGetBucketLifecycle(c *gin.Context, bucket string) {
	meta, err := h.Store.GetBucket(bucket)
	if err != nil {
		writeError(c, err)
		return
	}
	type rule struct {
		ID         string `xml:"ID"`
		Prefix     string `xml:"Prefix"`
		Status     string `xml:"Status"`
		Expiration struct {
			Days int `xml:"Days"`
		} `xml:"Expiration"`
	}
	resp := struct {
		XMLName xml.Name `xml:"LifecycleConfiguration"`
		Xmlns   string   `xml:"xmlns,attr"`
		Rule    []rule   `xml:"Rule"`
	}{Xmlns: s3xml.WithXmlns()}
	for _, r := range meta.Lifecycle {
		status := "Disabled"
		if r.Enabled {
			status = "Enabled"
		}
		rr := rule{ID: r.ID, Prefix: r.Prefix, Status: status}
		rr.Expiration.Days = r.ExpirationDays
		resp.Rule = append(resp.Rule, rr)
	}
	writeXML(c, http.StatusOK, resp)
}

func (h *Handler) handlePutBucketTagging(c *gin.Context, bucket string) {
	if _, err := h.Store.GetBucket(bucket); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) handleDeleteBucketTagging(c *gin.Context, bucket string) {
	if _, err := h.Store.GetBucket(bucket); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleGetBucketEncryption(c *gin.Context, bucket string) {
	meta, err := h.Store.GetBucket(bucket)
	if err != nil {
		writeError(c, err)
		return
	}
	if meta.Encryption == nil {
		writeAPIError(c, errServerSideEncryptionConfigurationNotFound)
		return
	}
	type rule struct {
		ApplyServerSideEncryptionByDefault struct {
			SSEAlgorithm   string `xml:"SSEAlgorithm"`
			KMSMasterKeyID string `xml:"KMSMasterKeyID,omitempty"`
		} `xml:"ApplyServerSideEncryptionByDefault"`
	}
	resp := struct {
		XMLName xml.Name `xml:"ServerSideEncryptionConfiguration"`
		Xmlns   string   `xml:"xmlns,attr"`
		Rule    []rule   `xml:"Rule"`
	}{Xmlns: s3xml.WithXmlns()}
	var r rule
	r.ApplyServerSideEncryptionByDefault.SSEAlgorithm = meta.Encryption.Algorithm
	r.ApplyServerSideEncryptionByDefault.KMSMasterKeyID = meta.Encryption.KMSKeyID
	resp.Rule = append(resp.Rule, r)
	writeXML(c, http.StatusOK, resp)
}

func (h *Handler) handlePutBucketEncryption(c *gin.Context, bucket string) {
	var body struct {
		Rule []struct {
			ApplyServerSideEncryptionByDefault struct {
				SSEAlgorithm   string `xml:"SSEAlgorithm"`
				KMSMasterKeyID string `xml:"KMSMasterKeyID"`
			} `xml:"ApplyServerSideEncryptionByDefault"`
		} `xml:"Rule"`
	}
	if err := readXML(c, &body); err != nil {
		writeError(c, err)
		return
	}
	var enc *s3store.EncryptionConfig
	if len(body.Rule) > 0 {
		enc = &s3store.EncryptionConfig{
			Algorithm: body.Rule[0].ApplyServerSideEncryptionByDefault.SSEAlgorithm,
			KMSKeyID:  body.Rule[0].ApplyServerSideEncryptionByDefault.KMSMasterKeyID,
		}
	}
	err := h.Store.UpdateBucket(bucket, func(m *s3store.BucketMetadata) error {
		m.Encryption = enc
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) handleDeleteBucketEncryption(c *gin.Context, bucket string) {
	err := h.Store.UpdateBucket(bucket, func(m *s3store.BucketMetadata) error {
		m.Encryption = nil
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleGetObjectLockConfig(c *gin.Context, bucket string) {
	meta, err := h.Store.GetBucket(bucket)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := struct {
		XMLName            xml.Name `xml:"ObjectLockConfiguration"`
		Xmlns              string   `xml:"xmlns,attr"`
		ObjectLockEnabled  string   `xml:"ObjectLockEnabled,omitempty"`
	}{Xmlns: s3xml.WithXmlns()}
	if meta.ObjectLock != nil && meta.ObjectLock.Enabled {
		resp.ObjectLockEnabled = "Enabled"
	}
	writeXML(c, http.StatusOK, resp)
}

func (h *Handler) handlePutObjectLockConfig(c *gin.Context, bucket string) {
	var body struct {
		ObjectLockEnabled string `xml:"ObjectLockEnabled"`
		Rule              struct {
			DefaultRetention struct {
				Mode string `xml:"Mode"`
				Days int    `xml:"Days"`
			} `xml:"DefaultRetention"`
		} `xml:"Rule"`
	}
	if err := readXML(c, &body); err != nil {
		writeError(c, err)
		return
	}
	cfg := &s3store.ObjectLockConfig{
		Enabled:     body.ObjectLockEnabled == "Enabled",
		DefaultMode: body.Rule.DefaultRetention.Mode,
		DefaultDays: body.Rule.DefaultRetention.Days,
	}
	err := h.Store.UpdateBucket(bucket, func(m *s3store.BucketMetadata) error {
		m.ObjectLock = cfg
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) handleDeleteObjects(c *gin.Context, bucket string) {
	var body s3xml.Delete
	if err := readXML(c, &body); err != nil {
		writeError(c, err)
		return
	}
	resp := s3xml.DeleteResult{Xmlns: s3xml.WithXmlns()}
	for _, o := range body.Object {
		vid, _, err := h.Store.DeleteObject(bucket, o.Key, o.VersionId)
		if err != nil {
			apiErr := s3err.Map(err)
			resp.Error = append(resp.Error, s3xml.DeleteError{Key: o.Key, Code: apiErr.Code, Message: apiErr.Message})
			continue
		}
		if !body.Quiet {
			resp.Deleted = append(resp.Deleted, s3xml.DeletedObject{Key: o.Key, VersionId: vid})
		}
	}
	writeXML(c, http.StatusOK, resp)
}

func (h *Handler) handleDeleteBucketLifecycle(c *gin.Context, bucket string) {
	err := h.Store.UpdateBucket(bucket, func(m *s3store.BucketMetadata) error {
		m.Lifecycle = nil
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleGetBucketPolicy(c *gin.Context, bucket string) {
	meta, err := h.Store.GetBucket(bucket)
	if err != nil {
		writeError(c, err)
		return
	}
	if meta.Policy == "" {
		writeError(c, errs.NoSuchBucketPolicy)
		return
	}
	c.Header("Content-Type", "application/json")
	c.String(http.StatusOK, meta.Policy)
}

func (h *Handler) handlePutBucketPolicy(c *gin.Context, bucket string) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, errs.InvalidRequest)
		return
	}
	err = h.Store.UpdateBucket(bucket, func(m *s3store.BucketMetadata) error {
		m.Policy = string(body)
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleDeleteBucketPolicy(c *gin.Context, bucket string) {
	err := h.Store.UpdateBucket(bucket, func(m *s3store.BucketMetadata) error {
		m.Policy = ""
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleGetBucketCors(c *gin.Context, bucket string) {
	meta, err := h.Store.GetBucket(bucket)
	if err != nil {
		writeError(c, err)
		return
	}
	if meta.CORS == "" {
		writeError(c, errs.NoSuchCORSConfiguration)
		return
	}
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, meta.CORS)
}

func (h *Handler) handlePutBucketCors(c *gin.Context, bucket string) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, errs.InvalidRequest)
		return
	}
	err = h.Store.UpdateBucket(bucket, func(m *s3store.BucketMetadata) error {
		m.CORS = string(body)
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) handleDeleteBucketCors(c *gin.Context, bucket string) {
	err := h.Store.UpdateBucket(bucket, func(m *s3store.BucketMetadata) error {
		m.CORS = ""
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleGetBucketOwnershipControls(c *gin.Context, bucket string) {
	meta, err := h.Store.GetBucket(bucket)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := struct {
		XMLName xml.Name `xml:"OwnershipControls"`
		Xmlns   string   `xml:"xmlns,attr"`
		Rule    struct {
			ObjectOwnership string `xml:"ObjectOwnership"`
		} `xml:"Rule"`
	}{Xmlns: s3xml.WithXmlns()}
	resp.Rule.ObjectOwnership = string(meta.Ownership)
	writeXML(c, http.StatusOK, resp)
}

func (h *Handler) handlePutBucketOwnershipControls(c *gin.Context, bucket string) {
	var body struct {
		Rule struct {
			ObjectOwnership string `xml:"ObjectOwnership"`
		} `xml:"Rule"`
	}
	if err := readXML(c, &body); err != nil {
		writeError(c, err)
		return
	}
	err := h.Store.UpdateBucket(bucket, func(m *s3store.BucketMetadata) error {
		m.Ownership = s3store.Ownership(body.Rule.ObjectOwnership)
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) handleDeleteBucketOwnershipControls(c *gin.Context, bucket string) {
	err := h.Store.UpdateBucket(bucket, func(m *s3store.BucketMetadata) error {
		m.Ownership = s3store.OwnershipBucketOwnerEnforced
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleGetBucketLocation(c *gin.Context, bucket string) {
	meta, err := h.Store.GetBucket(bucket)
	if err != nil {
		writeError(c, err)
		return
	}
	region := meta.Region
	if region == "us-east-1" {
		region = ""
	}
	writeXML(c, http.StatusOK, s3xml.LocationConstraint{Xmlns: s3xml.WithXmlns(), Value: region})
}
