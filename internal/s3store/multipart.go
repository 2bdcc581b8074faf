package s3store

import (
	"crypto/md5" //nolint:gosec // multipart ETags are MD5-of-MD5s by protocol definition.
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/dongdio/s3mock/utility/errs"
	"github.com/dongdio/s3mock/utility/utils"
)

// minPartSize is the smallest a non-final part may be: every part but
// the last must be at least 5 MiB.
const minPartSize = 5 * 1024 * 1024

// uploadMetadata is the sidecar persisted at
// <root>/<bucket>/<key>/uploads/<uploadID>/upload.json.
type uploadMetadata struct {
	Bucket    string    `json:"bucket"`
	Key       string    `json:"key"`
	UploadID  string    `json:"upload_id"`
	Initiated time.Time `json:"initiated"`
	Options   PutOptions
}

// PartInfo describes one uploaded part.
type PartInfo struct {
	PartNumber   int       `json:"part_number"`
	ETag         string    `json:"etag"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// CompletedPart is one entry of a CompleteMultipartUpload request body.
type CompletedPart struct {
	PartNumber int
	ETag       string
}

func (s *Store) uploadLockKey(bucket, key, uploadID string) string {
	return "upload\x00" + bucket + "\x00" + key + "\x00" + uploadID
}

func (s *Store) uploadMetaPath(bucket, key, uploadID string) string {
	return filepath.Join(s.uploadDir(bucket, key, uploadID), "upload.json")
}

func (s *Store) partDir(bucket, key, uploadID string, partNumber int) string {
	return filepath.Join(s.uploadDir(bucket, key, uploadID), "parts", fmt.Sprintf("%05d", partNumber))
}

func (s *Store) partDataPath(bucket, key, uploadID string, partNumber int) string {
	return filepath.Join(s.partDir(bucket, key, uploadID, partNumber), "data")
}

func (s *Store) partMetaPath(bucket, key, uploadID string, partNumber int) string {
	return filepath.Join(s.partDir(bucket, key, uploadID, partNumber), "meta.json")
}

// CreateMultipartUpload begins a new upload and returns its id.
func (s *Store) CreateMultipartUpload(bucket, key string, opts PutOptions) (string, error) {
	if !IsValidObjectKey(key) {
		return "", errs.InvalidRequest
	}
	if _, err := s.GetBucket(bucket); err != nil {
		return "", err
	}
	if opts.SSE != nil && opts.SSE.Algorithm == "aws:kms" && !s.kms.Valid(opts.SSE.KMSKeyID) {
		return "", errs.KMSKeyNotFound
	}
	uploadID, err := newUploadID()
	if err != nil {
		return "", err
	}
	meta := uploadMetadata{
		Bucket:    bucket,
		Key:       key,
		UploadID:  uploadID,
		Initiated: time.Now().UTC(),
		Options:   opts,
	}
	if !utils.WriteJsonToFile(s.uploadMetaPath(bucket, key, uploadID), meta) {
		return "", errors.New("write upload metadata")
	}
	return uploadID, nil
}

func (s *Store) readUploadMetadata(bucket, key, uploadID string) (uploadMetadata, error) {
	data, err := os.ReadFile(s.uploadMetaPath(bucket, key, uploadID))
	if err != nil {
		if os.IsNotExist(err) {
			return uploadMetadata{}, errs.NoSuchUpload
		}
		return uploadMetadata{}, errors.WithMessage(err, "read upload metadata")
	}
	var meta uploadMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return uploadMetadata{}, errors.WithMessage(err, "decode upload metadata")
	}
	return meta, nil
}

// UploadPart stores partNumber's bytes for an in-progress upload.
func (s *Store) UploadPart(bucket, key, uploadID string, partNumber int, body io.Reader) (PartInfo, error) {
	if partNumber < 1 || partNumber > 10000 {
		return PartInfo{}, errs.InvalidPart
	}
	var info PartInfo
	err := s.locks.Lock(s.uploadLockKey(bucket, key, uploadID), func() error {
		if _, err := s.readUploadMetadata(bucket, key, uploadID); err != nil {
			return err
		}
		dst := s.partDataPath(bucket, key, uploadID, partNumber)
		var size int64
		var etagHex string
		if err := atomicWriter(dst, func(w io.Writer) error {
			var werr error
			size, etagHex, _, werr = copyWithChecksum(w, body, ChecksumNone)
			return werr
		}); err != nil {
			return err
		}
		info = PartInfo{PartNumber: partNumber, ETag: etagHex, Size: size, LastModified: time.Now().UTC()}
		if !utils.WriteJsonToFile(s.partMetaPath(bucket, key, uploadID, partNumber), info) {
			return errors.New("write part metadata")
		}
		return nil
	})
	return info, err
}

// UploadPartCopy stores partNumber's bytes copied from an existing
// object version, optionally restricted to a byte range
// (UploadPartCopy's x-amz-copy-source-range header).
func (s *Store) UploadPartCopy(bucket, key, uploadID string, partNumber int, srcBucket, srcKey, srcVersionID string, rng *RawRange) (PartInfo, error) {
	if partNumber < 1 || partNumber > 10000 {
		return PartInfo{}, errs.InvalidPart
	}
	// Lock order matches CompleteMultipartUpload's: the upload lock is
	// always acquired before any object lock, so the two can never wait
	// on each other regardless of whether src and dst keys coincide.
	var info PartInfo
	err := s.locks.Lock(s.uploadLockKey(bucket, key, uploadID), func() error {
		if _, err := s.readUploadMetadata(bucket, key, uploadID); err != nil {
			return err
		}
		return s.locks.RLock(objectLockKey(srcBucket, srcKey), func() error {
			vid, err := s.resolveVersion(srcBucket, srcKey, srcVersionID)
			if err != nil {
				return err
			}
			srcMeta, err := s.readObjectMetadata(srcBucket, srcKey, vid)
			if err != nil {
				return err
			}
			if srcMeta.DeleteMarker {
				return errs.NoSuchKey
			}
			f, err := os.Open(s.dataPath(srcBucket, srcKey, vid))
			if err != nil {
				return errors.WithMessage(err, "open source object data")
			}
			defer f.Close()
			var body io.Reader = f
			if rng != nil {
				br, err := rng.Resolve(srcMeta.Size)
				if err != nil {
					return err
				}
				if _, err := f.Seek(br.Start, io.SeekStart); err != nil {
					return errors.WithMessage(err, "seek to range start")
				}
				body = io.LimitReader(f, br.Length())
			}
			dst := s.partDataPath(bucket, key, uploadID, partNumber)
			var size int64
			var etagHex string
			if err := atomicWriter(dst, func(w io.Writer) error {
				var werr error
				size, etagHex, _, werr = copyWithChecksum(w, body, ChecksumNone)
				return werr
			}); err != nil {
				return err
			}
			info = PartInfo{PartNumber: partNumber, ETag: etagHex, Size: size, LastModified: time.Now().UTC()}
			if !utils.WriteJsonToFile(s.partMetaPath(bucket, key, uploadID, partNumber), info) {
				return errors.New("write part metadata")
			}
			return nil
		})
	})
	return info, err
}

func (s *Store) listUploadedParts(bucket, key, uploadID string) ([]PartInfo, error) {
	dir := filepath.Join(s.uploadDir(bucket, key, uploadID), "parts")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WithMessage(err, "read parts directory")
	}
	parts := make([]PartInfo, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name(), "meta.json"))
		if err != nil {
			continue
		}
		var p PartInfo
		if err := json.Unmarshal(data, &p); err != nil {
			continue
		}
		parts = append(parts, p)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })
	return parts, nil
}

// selectCompletedParts validates that requested against the uploaded
// parts: part numbers must be given in strictly increasing order, each
// must exist and have a matching ETag, and every part but the last
// must meet the minimum part size.
func selectCompletedParts(requested []CompletedPart, uploaded []PartInfo) ([]PartInfo, error) {
	if len(requested) == 0 {
		return nil, errs.InvalidPart
	}
	byNumber := make(map[int]PartInfo, len(uploaded))
	for _, p := range uploaded {
		byNumber[p.PartNumber] = p
	}
	selected := make([]PartInfo, 0, len(requested))
	last := -1
	for _, r := range requested {
		if r.PartNumber <= last {
			return nil, errs.InvalidPartOrder
		}
		last = r.PartNumber
		p, ok := byNumber[r.PartNumber]
		if !ok || p.ETag != r.ETag {
			return nil, errs.InvalidPart
		}
		selected = append(selected, p)
	}
	for i, p := range selected {
		if i < len(selected)-1 && p.Size < minPartSize {
			return nil, errs.EntityTooSmall
		}
	}
	return selected, nil
}

// CompleteMultipartUpload assembles the selected parts into a single
// object version, computing the composite ETag
// hex(md5(concat(md5_i)))-partCount that S3 clients expect for
// multipart objects.
func (s *Store) CompleteMultipartUpload(bucket, key, uploadID string, requested []CompletedPart) (ObjectMetadata, error) {
	var result ObjectMetadata
	err := s.locks.Lock(s.uploadLockKey(bucket, key, uploadID), func() error {
		upload, err := s.readUploadMetadata(bucket, key, uploadID)
		if err != nil {
			return err
		}
		uploaded, err := s.listUploadedParts(bucket, key, uploadID)
		if err != nil {
			return err
		}
		selected, err := selectCompletedParts(requested, uploaded)
		if err != nil {
			return err
		}

		bmeta, err := s.GetBucket(bucket)
		if err != nil {
			return err
		}

		return s.locks.Lock(objectLockKey(bucket, key), func() error {
			versionID := nullVersionID
			if bmeta.Versioning == VersioningEnabled {
				versionID, err = newVersionID()
				if err != nil {
					return err
				}
			}

			dst := s.dataPath(bucket, key, versionID)
			digest := md5.New()
			var total int64
			if err := atomicWriter(dst, func(w io.Writer) error {
				for _, p := range selected {
					f, err := os.Open(s.partDataPath(bucket, key, uploadID, p.PartNumber))
					if err != nil {
						return errors.WithMessage(err, "open part data")
					}
					n, err := io.Copy(w, f)
					f.Close()
					if err != nil {
						return errors.WithMessage(err, "copy part data")
					}
					total += n
					raw, err := hex.DecodeString(p.ETag)
					if err != nil {
						return errs.InvalidPart
					}
					digest.Write(raw)
				}
				return nil
			}); err != nil {
				return err
			}

			etag := fmt.Sprintf("%s-%d", hex.EncodeToString(digest.Sum(nil)), len(selected))
			meta := ObjectMetadata{
				Bucket:       bucket,
				Key:          key,
				VersionID:    versionID,
				Size:         total,
				LastModified: time.Now().UTC(),
				ETag:         etag,
				UserMetadata: upload.Options.UserMetadata,
				System:       upload.Options.System,
				Tags:         upload.Options.Tags,
				ACL:          upload.Options.ACL,
				Retention:    upload.Options.Retention,
				LegalHold:    upload.Options.LegalHold,
				SSE:          upload.Options.SSE,
			}
			if err := s.writeObjectMetadata(meta); err != nil {
				return err
			}
			if err := s.writeCurrentVersion(bucket, key, versionID); err != nil {
				return err
			}
			result = meta
			return os.RemoveAll(s.uploadDir(bucket, key, uploadID))
		})
	})
	return result, err
}

// AbortMultipartUpload discards an in-progress upload and its parts.
func (s *Store) AbortMultipartUpload(bucket, key, uploadID string) error {
	return s.locks.Lock(s.uploadLockKey(bucket, key, uploadID), func() error {
		if _, err := s.readUploadMetadata(bucket, key, uploadID); err != nil {
			return err
		}
		return os.RemoveAll(s.uploadDir(bucket, key, uploadID))
	})
}

// ListPartsResult is the outcome of ListParts.
type ListPartsResult struct {
	Parts                []PartInfo
	IsTruncated          bool
	NextPartNumberMarker int
}

// ListParts returns the parts uploaded so far for an in-progress
// upload, paginated by part number.
func (s *Store) ListParts(bucket, key, uploadID string, partNumberMarker, maxParts int) (ListPartsResult, error) {
	if _, err := s.readUploadMetadata(bucket, key, uploadID); err != nil {
		return ListPartsResult{}, err
	}
	parts, err := s.listUploadedParts(bucket, key, uploadID)
	if err != nil {
		return ListPartsResult{}, err
	}
	start := sort.Search(len(parts), func(i int) bool { return parts[i].PartNumber > partNumberMarker })
	if maxParts <= 0 {
		maxParts = 1000
	}
	page := parts[start:]
	truncated := len(page) > maxParts
	if truncated {
		page = page[:maxParts]
	}
	result := ListPartsResult{Parts: page, IsTruncated: truncated}
	if truncated {
		result.NextPartNumberMarker = page[len(page)-1].PartNumber
	}
	return result, nil
}

// MultipartUploadEntry is one row of a ListMultipartUploads result.
type MultipartUploadEntry struct {
	Key       string
	UploadID  string
	Initiated time.Time
}

// ListMultipartUploadsResult is the outcome of ListMultipartUploads.
type ListMultipartUploadsResult struct {
	Uploads             []MultipartUploadEntry
	CommonPrefixes       []string
	IsTruncated          bool
	NextKeyMarker        string
	NextUploadIDMarker   string
}

// ListMultipartUploads returns every in-progress upload in the bucket,
// grouped by key/delimiter the same way ListObjects is.
func (s *Store) ListMultipartUploads(bucket string, opts ListOptions, keyMarker, uploadIDMarker string, maxUploads int) (ListMultipartUploadsResult, error) {
	bucketDir := s.bucketDir(bucket)
	entries, err := os.ReadDir(bucketDir)
	if err != nil {
		if os.IsNotExist(err) {
			return ListMultipartUploadsResult{}, errs.NoSuchBucket
		}
		return ListMultipartUploadsResult{}, errors.WithMessage(err, "read bucket directory")
	}

	var all []MultipartUploadEntry
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		uploadsDir := filepath.Join(bucketDir, e.Name(), "uploads")
		uploadEntries, err := os.ReadDir(uploadsDir)
		if err != nil {
			continue
		}
		for _, ue := range uploadEntries {
			data, err := os.ReadFile(filepath.Join(uploadsDir, ue.Name(), "upload.json"))
			if err != nil {
				continue
			}
			var meta uploadMetadata
			if err := json.Unmarshal(data, &meta); err != nil {
				continue
			}
			all = append(all, MultipartUploadEntry{Key: meta.Key, UploadID: meta.UploadID, Initiated: meta.Initiated})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Key != all[j].Key {
			return all[i].Key < all[j].Key
		}
		return all[i].UploadID < all[j].UploadID
	})

	keys := make([]string, len(all))
	for i, u := range all {
		keys[i] = u.Key
	}
	_, commonPrefixes := applyPrefixDelimiter(keys, opts.Prefix, opts.Delimiter)
	prefixSet := make(map[string]bool)
	for _, cp := range commonPrefixes {
		prefixSet[cp] = true
	}

	started := keyMarker == "" && uploadIDMarker == ""
	if maxUploads <= 0 {
		maxUploads = 1000
	}
	result := ListMultipartUploadsResult{CommonPrefixes: commonPrefixes}
	for _, u := range all {
		if !started {
			if u.Key == keyMarker && u.UploadID > uploadIDMarker {
				started = true
			} else if u.Key > keyMarker {
				started = true
			} else {
				continue
			}
		}
		grouped := false
		for cp := range prefixSet {
			if len(u.Key) >= len(cp) && u.Key[:len(cp)] == cp {
				grouped = true
				break
			}
		}
		if grouped {
			continue
		}
		if len(result.Uploads) == maxUploads {
			result.IsTruncated = true
			result.NextKeyMarker = u.Key
			result.NextUploadIDMarker = u.UploadID
			break
		}
		result.Uploads = append(result.Uploads, u)
	}
	return result, nil
}
