package s3store

import (
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/dongdio/s3mock/utility/errs"
	"github.com/dongdio/s3mock/utility/utils"
)

// VersioningState is a bucket's versioning configuration state.
type VersioningState string

const (
	VersioningUnversioned VersioningState = ""
	VersioningEnabled     VersioningState = "Enabled"
	VersioningSuspended   VersioningState = "Suspended"
)

// Ownership controls how ACL grants from other accounts are honored;
// this emulator does no real IAM enforcement but persists the setting.
type Ownership string

const (
	OwnershipBucketOwnerEnforced Ownership = "BucketOwnerEnforced"
	OwnershipBucketOwnerPreferred Ownership = "BucketOwnerPreferred"
	OwnershipObjectWriter         Ownership = "ObjectWriter"
)

// LifecycleRule is one rule of a bucket's lifecycle configuration.
type LifecycleRule struct {
	ID                             string `json:"id"`
	Prefix                         string `json:"prefix"`
	Enabled                        bool   `json:"enabled"`
	ExpirationDays                 int    `json:"expiration_days,omitempty"`
	AbortIncompleteMultipartAfterDays int `json:"abort_incomplete_multipart_after_days,omitempty"`
}

// ObjectLockConfig is a bucket's object-lock configuration.
type ObjectLockConfig struct {
	Enabled          bool   `json:"enabled"`
	DefaultMode      string `json:"default_mode,omitempty"`
	DefaultDays      int    `json:"default_days,omitempty"`
}

// EncryptionConfig is a bucket's default server-side encryption setting.
type EncryptionConfig struct {
	Algorithm string `json:"algorithm,omitempty"` // "AES256" or "aws:kms"
	KMSKeyID  string `json:"kms_key_id,omitempty"`
}

// BucketMetadata is the sidecar persisted at
// <root>/<bucket>/bucketMetadata.json.
type BucketMetadata struct {
	Name         string            `json:"name"`
	Region       string            `json:"region"`
	CreationDate time.Time         `json:"creation_date"`
	Versioning   VersioningState   `json:"versioning"`
	Ownership    Ownership         `json:"ownership"`
	ObjectLock   *ObjectLockConfig `json:"object_lock,omitempty"`
	Lifecycle    []LifecycleRule   `json:"lifecycle,omitempty"`
	Policy       string            `json:"policy,omitempty"`
	CORS         string            `json:"cors,omitempty"`
	Encryption   *EncryptionConfig `json:"encryption,omitempty"`
	ACL          *ACL              `json:"acl,omitempty"`
}

// CreateBucket creates a new bucket directory and metadata sidecar.
// Rejected if a bucket with this name already exists.
func (s *Store) CreateBucket(name, region string, ownership Ownership, objectLock *ObjectLockConfig) error {
	if !IsValidBucketName(name) {
		return errs.InvalidBucketName
	}
	var outerErr error
	err := s.bucketLock.Lock(name, func() error {
		dir := s.bucketDir(name)
		if _, statErr := os.Stat(dir); statErr == nil {
			outerErr = errs.BucketAlreadyExists
			return nil
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WithMessage(err, "create bucket directory")
		}
		if ownership == "" {
			ownership = OwnershipBucketOwnerEnforced
		}
		meta := BucketMetadata{
			Name:         name,
			Region:       region,
			CreationDate: time.Now().UTC(),
			Versioning:   VersioningUnversioned,
			Ownership:    ownership,
			ObjectLock:   objectLock,
		}
		return s.writeBucketMetadata(name, meta)
	})
	if err != nil {
		return err
	}
	return outerErr
}

// DeleteBucket removes a bucket. Rejected unless the bucket contains no
// current objects and no in-progress multipart uploads.
func (s *Store) DeleteBucket(name string) error {
	var outerErr error
	err := s.bucketLock.Lock(name, func() error {
		dir := s.bucketDir(name)
		if _, statErr := os.Stat(dir); os.IsNotExist(statErr) {
			outerErr = errs.NoSuchBucket
			return nil
		}
		entries, readErr := os.ReadDir(dir)
		if readErr != nil {
			return errors.WithMessage(readErr, "read bucket directory")
		}
		for _, e := range entries {
			if e.Name() == "bucketMetadata.json" {
				continue
			}
			outerErr = errs.BucketNotEmpty
			return nil
		}
		return os.RemoveAll(dir)
	})
	if err != nil {
		return err
	}
	return outerErr
}

// ListBuckets returns every bucket's metadata; the set of bucket
// directories under root IS the bucket listing.
func (s *Store) ListBuckets() ([]BucketMetadata, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, errors.WithMessage(err, "read store root")
	}
	buckets := make([]BucketMetadata, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, readErr := s.readBucketMetadata(e.Name())
		if readErr != nil {
			continue
		}
		buckets = append(buckets, meta)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Name < buckets[j].Name })
	return buckets, nil
}

// GetBucket returns a single bucket's metadata.
func (s *Store) GetBucket(name string) (BucketMetadata, error) {
	if !IsValidBucketName(name) {
		return BucketMetadata{}, errs.InvalidBucketName
	}
	return s.readBucketMetadata(name)
}

// UpdateBucket applies fn to the bucket's metadata under the bucket's
// write lock and persists the result.
func (s *Store) UpdateBucket(name string, fn func(*BucketMetadata) error) error {
	return s.bucketLock.Lock(name, func() error {
		meta, err := s.readBucketMetadata(name)
		if err != nil {
			return err
		}
		if err := fn(&meta); err != nil {
			return err
		}
		return s.writeBucketMetadata(name, meta)
	})
}

func (s *Store) readBucketMetadata(name string) (BucketMetadata, error) {
	data, err := os.ReadFile(s.bucketMetaPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return BucketMetadata{}, errs.NoSuchBucket
		}
		return BucketMetadata{}, errors.WithMessage(err, "read bucket metadata")
	}
	var meta BucketMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return BucketMetadata{}, errors.WithMessage(err, "decode bucket metadata")
	}
	return meta, nil
}

func (s *Store) writeBucketMetadata(name string, meta BucketMetadata) error {
	if !utils.WriteJsonToFile(s.bucketMetaPath(name), meta) {
		return errors.New("write bucket metadata")
	}
	return nil
}
