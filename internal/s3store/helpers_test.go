package s3store

import "strings"

func strReader(s string) *strings.Reader {
	return strings.NewReader(s)
}
