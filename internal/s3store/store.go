package s3store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dongdio/s3mock/utility/errs"
)

// Store owns the on-disk root directory and the process-wide keyed
// lock registry. Every Bucket/Object/Multipart operation goes through
// the Store's lock registry so that reads can overlap freely while
// writes stay linearizable per (bucket,key).
type Store struct {
	root       string
	locks      *keyedLocks
	bucketLock *keyedLocks
	kms        *KMSRegistry
}

// Config configures a new Store.
type Config struct {
	Root              string
	RetainFilesOnExit bool
	InitialBuckets    []string
	ValidKmsKeys      []string
}

// New creates a Store rooted at cfg.Root (deriving a temp directory
// when empty) and seeds any configured buckets and KMS keys.
func New(cfg Config) (*Store, error) {
	root := cfg.Root
	if root == "" {
		root = filepath.Join(os.TempDir(), fmt.Sprintf("s3mockFileStore%d", time.Now().UnixMilli()))
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.WithMessage(err, "create store root directory")
	}
	s := &Store{
		root:       root,
		locks:      newKeyedLocks(),
		bucketLock: newKeyedLocks(),
		kms:        NewKMSRegistry(cfg.ValidKmsKeys),
	}
	for _, name := range cfg.InitialBuckets {
		if err := s.CreateBucket(name, "", OwnershipBucketOwnerEnforced, nil); err != nil && !errors.Is(err, errs.BucketAlreadyExists) {
			return nil, errors.WithMessagef(err, "create initial bucket %q", name)
		}
	}
	log.Infof("s3store: root=%s buckets=%d kms-keys=%d", root, len(cfg.InitialBuckets), len(cfg.ValidKmsKeys))
	return s, nil
}

// Root returns the store's filesystem root.
func (s *Store) Root() string { return s.root }

// KMS returns the store's KMS key registry.
func (s *Store) KMS() *KMSRegistry { return s.kms }

// Close removes the root directory tree unless retainFilesOnExit was
// requested.
func (s *Store) Close(retainFilesOnExit bool) error {
	if retainFilesOnExit {
		return nil
	}
	return os.RemoveAll(s.root)
}

func (s *Store) bucketDir(bucket string) string {
	return filepath.Join(s.root, bucket)
}

func (s *Store) bucketMetaPath(bucket string) string {
	return filepath.Join(s.bucketDir(bucket), "bucketMetadata.json")
}

func (s *Store) objectDir(bucket, key string) string {
	return filepath.Join(s.bucketDir(bucket), encodedKeySegment(key))
}

func (s *Store) objectCurrentVersionPath(bucket, key string) string {
	return filepath.Join(s.objectDir(bucket, key), "currentVersion")
}

func (s *Store) objectVersionDir(bucket, key, versionID string) string {
	return filepath.Join(s.objectDir(bucket, key), versionID)
}

func (s *Store) uploadsDir(bucket, key string) string {
	return filepath.Join(s.objectDir(bucket, key), "uploads")
}

func (s *Store) uploadDir(bucket, key, uploadID string) string {
	return filepath.Join(s.uploadsDir(bucket, key), uploadID)
}

// newVersionID returns a token that sorts lexicographically
// newest-first, built from an inverted timestamp plus random entropy.
func newVersionID() (string, error) {
	inverted := math.MaxInt64 - time.Now().UnixNano()
	var entropy [4]byte
	if _, err := rand.Read(entropy[:]); err != nil {
		return "", errors.WithMessage(err, "generate version id entropy")
	}
	return fmt.Sprintf("%020d%s", inverted, hex.EncodeToString(entropy[:])), nil
}

// newUploadID returns an opaque unique multipart upload id.
func newUploadID() (string, error) {
	return uuid.NewString(), nil
}

// NewRequestID returns an opaque request id suitable for the S3 error
// envelope's RequestId element and the x-amz-request-id header.
func NewRequestID() (string, error) {
	return uuid.NewString(), nil
}
