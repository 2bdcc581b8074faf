package s3xml

import (
	"testing"
	"time"
)

func mustParseRFC3339(t *testing.T, v string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, v)
	if err != nil {
		t.Fatalf("parse time %q: %v", v, err)
	}
	return tm
}
