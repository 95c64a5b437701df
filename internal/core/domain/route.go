package domain

import (
	"net/url"
	"strings"
)

// ProxyRoute forwards requests whose path starts with Prefix to Root.
// The forwarded path is the full request path, so the target of Prefix is Root+Prefix.
type ProxyRoute struct {
	Prefix string
	Root   *url.URL
}

func newProxyRoute(root *url.URL, prefix string) ProxyRoute {
	r := *root
	return ProxyRoute{Prefix: prefix, Root: &r}
}

// Matches reports whether the request path falls under the route.
// Matching is a plain string prefix test.
func (r ProxyRoute) Matches(path string) bool {
	return strings.HasPrefix(path, r.Prefix)
}

// Target returns the upstream URL for the route prefix itself.
func (r ProxyRoute) Target() string {
	return r.TargetFor(r.Prefix)
}

// TargetFor returns the upstream URL that a request for path is forwarded to.
func (r ProxyRoute) TargetFor(path string) string {
	return strings.TrimSuffix(r.Root.String(), "/") + path
}
