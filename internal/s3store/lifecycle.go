package s3store

import (
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// ExpiredVersion names a version an expiry sweep would remove.
type ExpiredVersion struct {
	Key       string
	VersionID string
}

// EvaluateLifecycle walks every current object version in bucket and
// returns those a lifecycle rule's ExpirationDays would expire as of
// now, without deleting anything. Callers act on the result rather
// than a background reaper doing the deletion itself.
func (s *Store) EvaluateLifecycle(bucket string, rules []LifecycleRule, now time.Time) ([]ExpiredVersion, error) {
	active := make([]LifecycleRule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled && r.ExpirationDays > 0 {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return nil, nil
	}
	metas, err := s.liveKeyMetas(bucket)
	if err != nil {
		return nil, err
	}
	var expired []ExpiredVersion
	for _, meta := range metas {
		for _, rule := range active {
			if rule.Prefix != "" && !strings.HasPrefix(meta.Key, rule.Prefix) {
				continue
			}
			cutoff := meta.LastModified.AddDate(0, 0, rule.ExpirationDays)
			if now.After(cutoff) {
				expired = append(expired, ExpiredVersion{Key: meta.Key, VersionID: meta.VersionID})
				break
			}
		}
	}
	return expired, nil
}

// AbortableUpload names an in-progress multipart upload a lifecycle
// rule's AbortIncompleteMultipartAfterDays would abort.
type AbortableUpload struct {
	Key      string
	UploadID string
}

// EvaluateIncompleteMultipartExpiry returns uploads older than any
// active rule's abort-after window.
func (s *Store) EvaluateIncompleteMultipartExpiry(bucket string, rules []LifecycleRule, now time.Time) ([]AbortableUpload, error) {
	active := make([]LifecycleRule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled && r.AbortIncompleteMultipartAfterDays > 0 {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return nil, nil
	}
	result, err := s.ListMultipartUploads(bucket, ListOptions{}, "", "", 0)
	if err != nil {
		return nil, err
	}
	var out []AbortableUpload
	for _, u := range result.Uploads {
		for _, rule := range active {
			if rule.Prefix != "" && !strings.HasPrefix(u.Key, rule.Prefix) {
				continue
			}
			cutoff := u.Initiated.AddDate(0, 0, rule.AbortIncompleteMultipartAfterDays)
			if now.After(cutoff) {
				out = append(out, AbortableUpload{Key: u.Key, UploadID: u.UploadID})
				break
			}
		}
	}
	return out, nil
}

// SweepLifecycle evaluates every bucket's lifecycle rules against now
// and acts on the result: expired versions are deleted and incomplete
// multipart uploads past their abort window are aborted. It's driven
// by a periodic background goroutine started at server boot, and
// returns the count of each action taken for the caller to log.
func (s *Store) SweepLifecycle(now time.Time) (expiredCount, abortedCount int, err error) {
	buckets, err := s.ListBuckets()
	if err != nil {
		return 0, 0, err
	}
	for _, b := range buckets {
		if len(b.Lifecycle) == 0 {
			continue
		}
		expired, err := s.EvaluateLifecycle(b.Name, b.Lifecycle, now)
		if err != nil {
			log.Warnf("lifecycle sweep: evaluate expiry for bucket %q: %v", b.Name, err)
		}
		for _, v := range expired {
			if _, _, err := s.DeleteObject(b.Name, v.Key, v.VersionID); err != nil {
				log.Warnf("lifecycle sweep: expire %s/%s (version %s): %v", b.Name, v.Key, v.VersionID, err)
				continue
			}
			expiredCount++
		}
		aborts, err := s.EvaluateIncompleteMultipartExpiry(b.Name, b.Lifecycle, now)
		if err != nil {
			log.Warnf("lifecycle sweep: evaluate incomplete uploads for bucket %q: %v", b.Name, err)
		}
		for _, u := range aborts {
			if err := s.AbortMultipartUpload(b.Name, u.Key, u.UploadID); err != nil {
				log.Warnf("lifecycle sweep: abort upload %s/%s (%s): %v", b.Name, u.Key, u.UploadID, err)
				continue
			}
			abortedCount++
		}
	}
	return expiredCount, abortedCount, nil
}
