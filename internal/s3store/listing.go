package s3store

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/dongdio/s3mock/utility/errs"
)

// keyMetas returns every non-uploads key's current-version metadata in
// the bucket, sorted by key. Delete markers are included; callers that
// only want live objects filter them out.
func (s *Store) keyMetas(bucket string) ([]ObjectMetadata, error) {
	entries, err := os.ReadDir(s.bucketDir(bucket))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.NoSuchBucket
		}
		return nil, errors.WithMessage(err, "read bucket directory")
	}
	metas := make([]ObjectMetadata, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		cur, err := os.ReadFile(s.currentVersionPathForEncoded(bucket, e.Name()))
		if err != nil {
			continue
		}
		data, err := os.ReadFile(s.metaPathForEncoded(bucket, e.Name(), string(cur)))
		if err != nil {
			continue
		}
		var meta ObjectMetadata
		if unmarshalErr := json.Unmarshal(data, &meta); unmarshalErr != nil {
			continue
		}
		metas = append(metas, meta)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Key < metas[j].Key })
	return metas, nil
}

// applyPrefixDelimiter groups keys into direct entries and common
// prefixes per the standard S3 listing algorithm.
func applyPrefixDelimiter(keys []string, prefix, delimiter string) (direct []string, commonPrefixes []string) {
	seen := make(map[string]struct{})
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := k[len(prefix):]
		if delimiter != "" {
			if idx := strings.Index(rest, delimiter); idx >= 0 {
				cp := prefix + rest[:idx+len(delimiter)]
				if _, ok := seen[cp]; !ok {
					seen[cp] = struct{}{}
					commonPrefixes = append(commonPrefixes, cp)
				}
				continue
			}
		}
		direct = append(direct, k)
	}
	sort.Strings(commonPrefixes)
	return direct, commonPrefixes
}

// ListV1Options is ListObjects (v1)'s parameter set: pagination
// resumes from Marker, an opaque last-seen key.
type ListV1Options struct {
	ListOptions
	Marker string
}

// ListObjectsV1 implements the GET Bucket (List Objects) v1 API.
func (s *Store) ListObjectsV1(bucket string, opts ListV1Options) (ListResult, error) {
	metas, err := s.liveKeyMetas(bucket)
	if err != nil {
		return ListResult{}, err
	}
	keys := make([]string, len(metas))
	byKey := make(map[string]ObjectMetadata, len(metas))
	for i, m := range metas {
		keys[i] = m.Key
		byKey[m.Key] = m
	}
	direct, commonPrefixes := applyPrefixDelimiter(keys, opts.Prefix, opts.Delimiter)

	merged := mergeSorted(direct, commonPrefixes)
	start := 0
	if opts.Marker != "" {
		start = sort.SearchStrings(merged, opts.Marker)
		if start < len(merged) && merged[start] == opts.Marker {
			start++
		}
	}
	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = 1000
	}
	result := ListResult{}
	page := merged[start:]
	truncated := len(page) > maxKeys
	if truncated {
		page = page[:maxKeys]
	}
	for _, k := range page {
		if meta, ok := byKey[k]; ok {
			result.Entries = append(result.Entries, ListEntry{Key: k, Meta: meta})
		} else {
			result.CommonPrefixes = append(result.CommonPrefixes, k)
		}
	}
	result.IsTruncated = truncated
	if truncated {
		result.NextMarker = page[len(page)-1]
	}
	return result, nil
}

// ListV2Options is ListObjectsV2's parameter set: pagination resumes
// from an opaque ContinuationToken, and StartAfter seeds the first
// page only.
type ListV2Options struct {
	ListOptions
	ContinuationToken string
	StartAfter        string
}

// ListObjectsV2 implements the GET Bucket (List Objects) v2 API.
func (s *Store) ListObjectsV2(bucket string, opts ListV2Options) (ListResult, error) {
	v1 := s.ListObjectsV1
	marker := opts.ContinuationToken
	if marker == "" {
		marker = opts.StartAfter
	}
	res, err := v1(bucket, ListV1Options{ListOptions: opts.ListOptions, Marker: marker})
	return res, err
}

// VersionEntry is one row of a ListObjectVersions result.
type VersionEntry struct {
	Key       string
	Meta      ObjectMetadata
	IsLatest  bool
}

// ListVersionsOptions is ListObjectVersions's parameter set.
type ListVersionsOptions struct {
	ListOptions
	KeyMarker       string
	VersionIDMarker string
}

// ListVersionsResult is the outcome of ListObjectVersions.
type ListVersionsResult struct {
	Versions            []VersionEntry
	DeleteMarkers       []VersionEntry
	CommonPrefixes      []string
	IsTruncated         bool
	NextKeyMarker       string
	NextVersionIDMarker string
}

// ListObjectVersions implements the GET Bucket versions API, walking
// every version of every key in newest-first order per key.
func (s *Store) ListObjectVersions(bucket string, opts ListVersionsOptions) (ListVersionsResult, error) {
	entries, err := os.ReadDir(s.bucketDir(bucket))
	if err != nil {
		if os.IsNotExist(err) {
			return ListVersionsResult{}, errs.NoSuchBucket
		}
		return ListVersionsResult{}, errors.WithMessage(err, "read bucket directory")
	}

	type keyVersions struct {
		key      string
		versions []string
	}
	var all []keyVersions
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		vids, err := s.listVersionIDsForEncoded(bucket, e.Name())
		if err != nil || len(vids) == 0 {
			continue
		}
		meta, err := s.readMetaForEncoded(bucket, e.Name(), vids[0])
		if err != nil {
			continue
		}
		all = append(all, keyVersions{key: meta.Key, versions: vids})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].key < all[j].key })

	keys := make([]string, len(all))
	for i, kv := range all {
		keys[i] = kv.key
	}
	direct, commonPrefixes := applyPrefixDelimiter(keys, opts.Prefix, opts.Delimiter)
	directSet := make(map[string]struct{}, len(direct))
	for _, k := range direct {
		directSet[k] = struct{}{}
	}

	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = 1000
	}

	started := opts.KeyMarker == ""
	result := ListVersionsResult{CommonPrefixes: commonPrefixes}
	count := 0
outer:
	for _, kv := range all {
		if _, ok := directSet[kv.key]; !ok {
			continue
		}
		vids := kv.versions
		if !started {
			if kv.key != opts.KeyMarker {
				continue
			}
			idx := sort.SearchStrings(vids, opts.VersionIDMarker)
			if idx < len(vids) && vids[idx] == opts.VersionIDMarker {
				idx++
			}
			vids = vids[idx:]
			started = true
		}
		for _, vid := range vids {
			meta, err := s.readObjectMetadata(bucket, kv.key, vid)
			if err != nil {
				continue
			}
			if count == maxKeys {
				result.IsTruncated = true
				result.NextKeyMarker = kv.key
				result.NextVersionIDMarker = vid
				break outer
			}
			entry := VersionEntry{Key: kv.key, Meta: meta, IsLatest: vid == kv.versions[0]}
			if meta.DeleteMarker {
				result.DeleteMarkers = append(result.DeleteMarkers, entry)
			} else {
				result.Versions = append(result.Versions, entry)
			}
			count++
		}
	}
	return result, nil
}

// liveKeyMetas is keyMetas filtered to exclude delete markers, the
// live view ListObjects v1/v2 present.
func (s *Store) liveKeyMetas(bucket string) ([]ObjectMetadata, error) {
	metas, err := s.keyMetas(bucket)
	if err != nil {
		return nil, err
	}
	live := metas[:0]
	for _, m := range metas {
		if !m.DeleteMarker {
			live = append(live, m)
		}
	}
	return live, nil
}

func mergeSorted(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	sort.Strings(out)
	return out
}
