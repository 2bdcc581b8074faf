package s3store

// KMSRegistry is the allow-list of symbolic KMS key ids an SSE-KMS
// request may reference. No cryptography is performed;
// the registry only decides whether a key id is known.
type KMSRegistry struct {
	keys map[string]struct{}
}

// NewKMSRegistry builds a registry from a fixed set of valid key ids.
func NewKMSRegistry(keys []string) *KMSRegistry {
	r := &KMSRegistry{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		r.keys[k] = struct{}{}
	}
	return r
}

// Valid reports whether keyID is a known key. An empty keyID is valid
// and means "use the default managed key" (aws/s3).
func (r *KMSRegistry) Valid(keyID string) bool {
	if keyID == "" {
		return true
	}
	_, ok := r.keys[keyID]
	return ok
}

// Keys returns the registered key ids.
func (r *KMSRegistry) Keys() []string {
	keys := make([]string, 0, len(r.keys))
	for k := range r.keys {
		keys = append(keys, k)
	}
	return keys
}
