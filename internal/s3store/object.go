package s3store

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/dongdio/s3mock/utility/errs"
	"github.com/dongdio/s3mock/utility/utils"
)

// nullVersionID is the version id used for objects in a bucket that has
// never had versioning enabled, matching real S3's "null" version.
const nullVersionID = "null"

func (s *Store) dataPath(bucket, key, versionID string) string {
	return filepath.Join(s.objectVersionDir(bucket, key, versionID), "data")
}

func (s *Store) metaPath(bucket, key, versionID string) string {
	return filepath.Join(s.objectVersionDir(bucket, key, versionID), "objectMetadata.json")
}

// The ForEncoded helpers below address a key's on-disk directory by its
// already-encoded segment name, for listing code that walks bucket
// directory entries before it knows any key's original string form.

func (s *Store) currentVersionPathForEncoded(bucket, encoded string) string {
	return filepath.Join(s.bucketDir(bucket), encoded, "currentVersion")
}

func (s *Store) metaPathForEncoded(bucket, encoded, versionID string) string {
	return filepath.Join(s.bucketDir(bucket), encoded, versionID, "objectMetadata.json")
}

func (s *Store) listVersionIDsForEncoded(bucket, encoded string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.bucketDir(bucket), encoded))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WithMessage(err, "read object directory")
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "uploads" {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) readMetaForEncoded(bucket, encoded, versionID string) (ObjectMetadata, error) {
	data, err := os.ReadFile(s.metaPathForEncoded(bucket, encoded, versionID))
	if err != nil {
		if os.IsNotExist(err) {
			return ObjectMetadata{}, errs.NoSuchVersion
		}
		return ObjectMetadata{}, errors.WithMessage(err, "read object metadata")
	}
	var meta ObjectMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return ObjectMetadata{}, errors.WithMessage(err, "decode object metadata")
	}
	return meta, nil
}

// atomicWriter streams src into a temp file beside dst, fsyncs it, and
// renames it into place so a crash or concurrent reader never observes
// a partially written file (grounded on storas's write-then-rename
// upload pattern).
func atomicWriter(dst string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.WithMessage(err, "create parent directory")
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return errors.WithMessage(err, "create temp file")
	}
	tmpPath := tmp.Name()
	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.WithMessage(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.WithMessage(err, "close temp file")
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return errors.WithMessage(err, "rename temp file into place")
	}
	return nil
}

func (s *Store) readCurrentVersion(bucket, key string) (string, error) {
	data, err := os.ReadFile(s.objectCurrentVersionPath(bucket, key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", errs.NoSuchKey
		}
		return "", errors.WithMessage(err, "read current version pointer")
	}
	return string(data), nil
}

func (s *Store) writeCurrentVersion(bucket, key, versionID string) error {
	path := s.objectCurrentVersionPath(bucket, key)
	return atomicWriter(path, func(w io.Writer) error {
		_, err := io.WriteString(w, versionID)
		return err
	})
}

// listVersionIDs returns every version directory under an object,
// newest first.
func (s *Store) listVersionIDs(bucket, key string) ([]string, error) {
	entries, err := os.ReadDir(s.objectDir(bucket, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WithMessage(err, "read object directory")
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "uploads" {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) readObjectMetadata(bucket, key, versionID string) (ObjectMetadata, error) {
	data, err := os.ReadFile(s.metaPath(bucket, key, versionID))
	if err != nil {
		if os.IsNotExist(err) {
			return ObjectMetadata{}, errs.NoSuchVersion
		}
		return ObjectMetadata{}, errors.WithMessage(err, "read object metadata")
	}
	var meta ObjectMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return ObjectMetadata{}, errors.WithMessage(err, "decode object metadata")
	}
	return meta, nil
}

func (s *Store) writeObjectMetadata(meta ObjectMetadata) error {
	if !utils.WriteJsonToFile(s.metaPath(meta.Bucket, meta.Key, meta.VersionID), meta) {
		return errors.New("write object metadata")
	}
	return nil
}

// PutObject stores body as a new version of bucket/key, computing its
// ETag (and optional checksum) streaming.
func (s *Store) PutObject(bucket, key string, body io.Reader, opts PutOptions) (ObjectMetadata, error) {
	if !IsValidObjectKey(key) {
		return ObjectMetadata{}, errs.InvalidRequest
	}
	bmeta, err := s.GetBucket(bucket)
	if err != nil {
		return ObjectMetadata{}, err
	}
	if opts.SSE != nil && opts.SSE.Algorithm == "aws:kms" && !s.kms.Valid(opts.SSE.KMSKeyID) {
		return ObjectMetadata{}, errs.KMSKeyNotFound
	}

	var result ObjectMetadata
	lockKey := objectLockKey(bucket, key)
	err = s.locks.Lock(lockKey, func() error {
		versionID := nullVersionID
		if bmeta.Versioning == VersioningEnabled {
			vid, err := newVersionID()
			if err != nil {
				return err
			}
			versionID = vid
		}

		dataDst := s.dataPath(bucket, key, versionID)
		var size int64
		var etagHex, checksumB64 string
		if err := atomicWriter(dataDst, func(w io.Writer) error {
			var werr error
			size, etagHex, checksumB64, werr = copyWithChecksum(w, body, opts.ChecksumAlgo)
			return werr
		}); err != nil {
			return err
		}
		if err := verifyDigests(opts, etagHex, checksumB64); err != nil {
			os.Remove(dataDst)
			return err
		}

		meta := ObjectMetadata{
			Bucket:       bucket,
			Key:          key,
			VersionID:    versionID,
			Size:         size,
			LastModified: time.Now().UTC(),
			ETag:         etagHex,
			UserMetadata: opts.UserMetadata,
			System:       opts.System,
			Tags:         opts.Tags,
			ACL:          opts.ACL,
			Retention:    opts.Retention,
			LegalHold:    opts.LegalHold,
			SSE:          opts.SSE,
		}
		if opts.ChecksumAlgo != ChecksumNone {
			meta.Checksum = &Checksum{Algorithm: opts.ChecksumAlgo, Value: checksumB64}
		}
		if err := s.writeObjectMetadata(meta); err != nil {
			return err
		}
		if err := s.writeCurrentVersion(bucket, key, versionID); err != nil {
			return err
		}
		result = meta
		return nil
	})
	return result, err
}

// resolveVersion returns the version id to operate on: versionID if
// given explicitly, else the object's current version.
func (s *Store) resolveVersion(bucket, key, versionID string) (string, error) {
	if versionID != "" {
		return versionID, nil
	}
	return s.readCurrentVersion(bucket, key)
}

// GetObject returns a version's metadata and a reader over its bytes
// (or the requested byte range), evaluating preconditions first.
func (s *Store) GetObject(bucket, key, versionID string, rng *RawRange, pre Preconditions) (ObjectMetadata, io.ReadCloser, *ByteRange, error) {
	var meta ObjectMetadata
	var f *os.File
	var resolved *ByteRange
	err := s.locks.RLock(objectLockKey(bucket, key), func() error {
		vid, err := s.resolveVersion(bucket, key, versionID)
		if err != nil {
			return err
		}
		meta, err = s.readObjectMetadata(bucket, key, vid)
		if err != nil {
			return err
		}
		if meta.DeleteMarker {
			return errs.NoSuchKey
		}
		if err := pre.Evaluate(meta.ETag, meta.LastModified); err != nil {
			return err
		}
		f, err = os.Open(s.dataPath(bucket, key, vid))
		if err != nil {
			return errors.WithMessage(err, "open object data")
		}
		if rng != nil {
			br, err := rng.Resolve(meta.Size)
			if err != nil {
				f.Close()
				f = nil
				return err
			}
			if _, err := f.Seek(br.Start, io.SeekStart); err != nil {
				f.Close()
				f = nil
				return errors.WithMessage(err, "seek to range start")
			}
			resolved = &br
		}
		return nil
	})
	if err != nil {
		return ObjectMetadata{}, nil, nil, err
	}
	if resolved != nil {
		return meta, struct {
			io.Reader
			io.Closer
		}{io.LimitReader(f, resolved.Length()), f}, resolved, nil
	}
	return meta, f, nil, nil
}

// HeadObject returns a version's metadata without its body.
func (s *Store) HeadObject(bucket, key, versionID string, pre Preconditions) (ObjectMetadata, error) {
	var meta ObjectMetadata
	err := s.locks.RLock(objectLockKey(bucket, key), func() error {
		vid, err := s.resolveVersion(bucket, key, versionID)
		if err != nil {
			return err
		}
		meta, err = s.readObjectMetadata(bucket, key, vid)
		if err != nil {
			return err
		}
		if meta.DeleteMarker {
			return errs.NoSuchKey
		}
		return pre.Evaluate(meta.ETag, meta.LastModified)
	})
	return meta, err
}

// DeleteObject removes an object. In a versioned bucket with no
// explicit versionID it appends a delete marker version instead of
// erasing history; deleting a specific versionID (or any object in an
// unversioned bucket) erases that version's bytes and metadata
// permanently.
func (s *Store) DeleteObject(bucket, key, versionID string) (deletedVersionID string, isDeleteMarker bool, err error) {
	bmeta, err := s.GetBucket(bucket)
	if err != nil {
		return "", false, err
	}
	err = s.locks.Lock(objectLockKey(bucket, key), func() error {
		if versionID == "" && bmeta.Versioning == VersioningEnabled {
			vid, err := newVersionID()
			if err != nil {
				return err
			}
			meta := ObjectMetadata{
				Bucket:       bucket,
				Key:          key,
				VersionID:    vid,
				LastModified: time.Now().UTC(),
				DeleteMarker: true,
			}
			if err := s.writeObjectMetadata(meta); err != nil {
				return err
			}
			if err := s.writeCurrentVersion(bucket, key, vid); err != nil {
				return err
			}
			deletedVersionID = vid
			isDeleteMarker = true
			return nil
		}

		vid := versionID
		if vid == "" {
			vid = nullVersionID
		}
		meta, err := s.readObjectMetadata(bucket, key, vid)
		if err != nil {
			if errors.Is(err, errs.NoSuchVersion) {
				return nil
			}
			return err
		}
		if err := os.RemoveAll(s.objectVersionDir(bucket, key, vid)); err != nil {
			return errors.WithMessage(err, "remove object version directory")
		}
		deletedVersionID = vid
		isDeleteMarker = meta.DeleteMarker

		remaining, err := s.listVersionIDs(bucket, key)
		if err != nil {
			return err
		}
		if len(remaining) == 0 {
			return os.RemoveAll(s.objectDir(bucket, key))
		}
		cur, _ := s.readCurrentVersion(bucket, key)
		if cur == vid {
			return s.writeCurrentVersion(bucket, key, remaining[0])
		}
		return nil
	})
	return deletedVersionID, isDeleteMarker, err
}

// CopyOptions controls whether CopyObject reuses the source's user
// metadata/tags or replaces them with the caller's own.
type CopyOptions struct {
	MetadataDirective string // "COPY" or "REPLACE"
	TaggingDirective   string // "COPY" or "REPLACE"
	PutOptions
	SourcePreconditions Preconditions
}

// CopyObject copies srcBucket/srcKey (optionally a specific version)
// into dstBucket/dstKey as a new version, honoring the copy's
// metadata/tagging directives. Locks are acquired in a fixed order
// across the two (bucket,key) pairs so concurrent copies in opposite
// directions cannot deadlock.
func (s *Store) CopyObject(srcBucket, srcKey, srcVersionID, dstBucket, dstKey string, opts CopyOptions) (ObjectMetadata, error) {
	srcLockKey := objectLockKey(srcBucket, srcKey)
	dstLockKey := objectLockKey(dstBucket, dstKey)
	first, second := srcLockKey, dstLockKey
	sameKey := srcLockKey == dstLockKey
	if !sameKey && second < first {
		first, second = second, first
	}

	var result ObjectMetadata
	run := func() error {
		srcMeta, err := s.readCurrentOrVersion(srcBucket, srcKey, srcVersionID)
		if err != nil {
			return err
		}
		if srcMeta.DeleteMarker {
			return errs.NoSuchKey
		}
		if err := opts.SourcePreconditions.Evaluate(srcMeta.ETag, srcMeta.LastModified); err != nil {
			return err
		}
		srcData, err := os.Open(s.dataPath(srcBucket, srcKey, srcMeta.VersionID))
		if err != nil {
			return errors.WithMessage(err, "open source object data")
		}
		defer srcData.Close()

		dstBmeta, err := s.GetBucket(dstBucket)
		if err != nil {
			return err
		}
		versionID := nullVersionID
		if dstBmeta.Versioning == VersioningEnabled {
			versionID, err = newVersionID()
			if err != nil {
				return err
			}
		}

		dataDst := s.dataPath(dstBucket, dstKey, versionID)
		var size int64
		var etagHex string
		if err := atomicWriter(dataDst, func(w io.Writer) error {
			var werr error
			size, etagHex, _, werr = copyWithChecksum(w, srcData, ChecksumNone)
			return werr
		}); err != nil {
			return err
		}

		meta := ObjectMetadata{
			Bucket:       dstBucket,
			Key:          dstKey,
			VersionID:    versionID,
			Size:         size,
			LastModified: time.Now().UTC(),
			ETag:         etagHex,
			UserMetadata: srcMeta.UserMetadata,
			System:       srcMeta.System,
			Tags:         srcMeta.Tags,
			ACL:          opts.ACL,
			SSE:          opts.SSE,
		}
		if opts.MetadataDirective == "REPLACE" {
			meta.UserMetadata = opts.UserMetadata
			meta.System = opts.System
		}
		if opts.TaggingDirective == "REPLACE" {
			meta.Tags = opts.Tags
		}
		if meta.SSE != nil && meta.SSE.Algorithm == "aws:kms" && !s.kms.Valid(meta.SSE.KMSKeyID) {
			os.Remove(dataDst)
			return errs.KMSKeyNotFound
		}
		if err := s.writeObjectMetadata(meta); err != nil {
			return err
		}
		if err := s.writeCurrentVersion(dstBucket, dstKey, versionID); err != nil {
			return err
		}
		result = meta
		return nil
	}

	var err error
	if sameKey {
		err = s.locks.Lock(first, run)
	} else {
		err = s.locks.Lock(first, func() error {
			return s.locks.Lock(second, run)
		})
	}
	return result, err
}

func (s *Store) readCurrentOrVersion(bucket, key, versionID string) (ObjectMetadata, error) {
	vid, err := s.resolveVersion(bucket, key, versionID)
	if err != nil {
		return ObjectMetadata{}, err
	}
	return s.readObjectMetadata(bucket, key, vid)
}

// UpdateObjectMetadata applies fn to a version's metadata (used for
// Tagging/ACL/Retention/LegalHold mutation endpoints) and persists it
// without touching the object's data or current-version pointer.
func (s *Store) UpdateObjectMetadata(bucket, key, versionID string, fn func(*ObjectMetadata) error) (ObjectMetadata, error) {
	var result ObjectMetadata
	err := s.locks.Lock(objectLockKey(bucket, key), func() error {
		vid, err := s.resolveVersion(bucket, key, versionID)
		if err != nil {
			return err
		}
		meta, err := s.readObjectMetadata(bucket, key, vid)
		if err != nil {
			return err
		}
		if meta.DeleteMarker {
			return errs.NoSuchKey
		}
		if meta.Retention != nil && meta.Retention.Mode == RetentionCompliance && time.Now().Before(meta.Retention.RetainUntilDate) {
			return errs.AccessDenied
		}
		if err := fn(&meta); err != nil {
			return err
		}
		result = meta
		return s.writeObjectMetadata(meta)
	})
	return result, err
}
