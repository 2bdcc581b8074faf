package s3store

import "testing"

func TestIsValidBucketName(t *testing.T) {
	cases := map[string]bool{
		"my-bucket":     true,
		"my.bucket.com": true,
		"ab":            false, // too short
		"MyBucket":      false, // uppercase
		"my..bucket":    false, // adjacent dots
		"-my-bucket":    false, // leading hyphen
		"192.168.1.1":   false, // IP-shaped
		"":              false,
	}
	for name, want := range cases {
		if got := IsValidBucketName(name); got != want {
			t.Errorf("IsValidBucketName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestIsValidObjectKey(t *testing.T) {
	if !IsValidObjectKey("a") {
		t.Error("expected single-char key to be valid")
	}
	if IsValidObjectKey("") {
		t.Error("expected empty key to be invalid")
	}
	long := make([]byte, 1025)
	if IsValidObjectKey(string(long)) {
		t.Error("expected 1025-byte key to be invalid")
	}
}

func TestEncodedKeySegmentRoundTripsDistinctly(t *testing.T) {
	a := encodedKeySegment("a/b/c.txt")
	b := encodedKeySegment("a-b-c.txt")
	if a == b {
		t.Fatalf("expected distinct encodings, got %q for both", a)
	}
	if encodedKeySegment("a/b") == encodedKeySegment("a%2Fb") {
		t.Fatal("expected a literal percent sign to encode differently than a slash")
	}
}
