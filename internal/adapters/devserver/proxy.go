package devserver

import (
	"fmt"
	"net/http"
	"net/http/httputil"

	"go.trai.ch/brisk/internal/adapters/metrics"
	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/brisk/internal/core/ports"
)

type routeProxy struct {
	route domain.ProxyRoute
	proxy *httputil.ReverseProxy
}

// Proxy forwards requests to the first route whose prefix matches the path.
// The method, path, query, headers and body are forwarded as-is and the
// upstream response is streamed back verbatim.
type Proxy struct {
	routes []routeProxy
}

// NewProxy builds one reverse proxy per route, in route order.
// logger and m may be nil.
func NewProxy(routes []domain.ProxyRoute, logger ports.Logger, m *metrics.Metrics) *Proxy {
	p := &Proxy{routes: make([]routeProxy, 0, len(routes))}
	for _, route := range routes {
		p.routes = append(p.routes, routeProxy{
			route: route,
			proxy: &httputil.ReverseProxy{
				Rewrite: func(pr *httputil.ProxyRequest) {
					pr.SetURL(route.Root)
					pr.SetXForwarded()
				},
				ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
					if logger != nil {
						logger.Warn(fmt.Sprintf("proxy error for %s", r.URL.Path))
						logger.Debug(fmt.Sprintf("%s %s: %v", route.TargetFor(r.URL.Path), r.Method, err))
					}
					if m != nil {
						m.ObserveProxyError(route.Prefix)
					}
					w.WriteHeader(http.StatusBadGateway)
				},
			},
		})
	}
	return p
}

// Name implements Stage.
func (p *Proxy) Name() string { return "proxy" }

// Serve forwards the request if a route matches.
func (p *Proxy) Serve(w http.ResponseWriter, r *http.Request) Result {
	for _, rp := range p.routes {
		if rp.route.Matches(r.URL.Path) {
			rp.proxy.ServeHTTP(w, r)
			return Handled()
		}
	}
	return Pass()
}
