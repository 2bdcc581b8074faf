// Package s3 implements the S3 REST API surface on top of
// internal/s3store, using gin the way the rest of this module's HTTP
// servers do.
package s3

import (
	"net/http"
	"net/url"
	"strings"
)

// AddressingStyle identifies whether a request names its bucket in the
// host or in the path.
type AddressingStyle int

const (
	StylePath AddressingStyle = iota
	StyleVirtualHosted
)

// RequestTarget is a request's resolved bucket/key, independent of
// which addressing style the client used.
type RequestTarget struct {
	Style  AddressingStyle
	Bucket string
	Key    string
}

// ParseRequestTarget resolves r's bucket and key. Virtual-hosted-style
// requests carry the bucket as a subdomain of serviceHost; every other
// request is path-style, with the bucket as the URL's first segment.
func ParseRequestTarget(r *http.Request, serviceHost string) RequestTarget {
	host := normalizeHost(r.Host)
	base := normalizeHost(serviceHost)
	if base != "" && strings.HasSuffix(host, "."+base) {
		bucket := strings.TrimSuffix(host, "."+base)
		key := strings.TrimPrefix(r.URL.Path, "/")
		return RequestTarget{Style: StyleVirtualHosted, Bucket: bucket, Key: key}
	}

	path := strings.TrimPrefix(r.URL.Path, "/")
	if path == "" {
		return RequestTarget{Style: StylePath}
	}
	parts := strings.SplitN(path, "/", 2)
	target := RequestTarget{Style: StylePath, Bucket: parts[0]}
	if len(parts) == 2 {
		target.Key = parts[1]
	}
	return target
}

func normalizeHost(host string) string {
	if h, _, err := splitHostPort(host); err == nil {
		return h
	}
	return host
}

func splitHostPort(hostport string) (string, string, error) {
	idx := strings.LastIndex(hostport, ":")
	if idx < 0 {
		return hostport, "", nil
	}
	return hostport[:idx], hostport[idx+1:], nil
}

// DispatchQuery is the subset of a request's query parameters that
// distinguish which S3 operation a URL maps to.
type DispatchQuery struct {
	Values url.Values
}

func (q DispatchQuery) has(name string) bool {
	_, ok := q.Values[name]
	return ok
}

func (q DispatchQuery) first(name string) string {
	return q.Values.Get(name)
}

// ParseDispatchQuery wraps r's parsed query string for dispatch.
func ParseDispatchQuery(r *http.Request) DispatchQuery {
	return DispatchQuery{Values: r.URL.Query()}
}
