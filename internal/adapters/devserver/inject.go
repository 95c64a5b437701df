package devserver

import (
	"bytes"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Injector adds the live-reload client script to HTML responses.
// It never handles a request itself.
type Injector struct {
	port int
}

// NewInjector returns an Injector pointing clients at the live-reload port.
func NewInjector(livereloadPort int) *Injector {
	return &Injector{port: livereloadPort}
}

// Name implements Stage.
func (i *Injector) Name() string { return "inject" }

// Serve wraps w so later stages' HTML output gets the snippet.
func (i *Injector) Serve(w http.ResponseWriter, r *http.Request) Result {
	if r.Method != http.MethodGet {
		return Pass()
	}
	return PassWith(&injectWriter{ResponseWriter: w, snippet: i.Snippet(r.Host)})
}

// Snippet returns the script tag for a page served from host.
func (i *Injector) Snippet(host string) []byte {
	hostname := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		hostname = h
	}
	if hostname == "" {
		hostname = "localhost"
	}
	return fmt.Appendf(nil, `<script src="//%s:%d/livereload.js?snipver=1"></script>`, hostname, i.port)
}

// InjectSnippet inserts snippet before the last </body> tag, or appends it
// when the document has none.
func InjectSnippet(body, snippet []byte) []byte {
	at := -1
	offset := 0
	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		size := len(z.Raw())
		if tt == html.EndTagToken {
			if name, _ := z.TagName(); string(name) == "body" {
				at = offset
			}
		}
		offset += size
	}

	if at < 0 {
		return append(bytes.Clone(body), snippet...)
	}

	out := make([]byte, 0, len(body)+len(snippet))
	out = append(out, body[:at]...)
	out = append(out, snippet...)
	out = append(out, body[at:]...)
	return out
}

// injectWriter buffers text/html bodies so the snippet can be inserted once the
// whole document is known. Other responses stream straight through.
type injectWriter struct {
	http.ResponseWriter
	snippet []byte

	decided bool
	inject  bool
	status  int
	buf     bytes.Buffer
}

func (w *injectWriter) WriteHeader(code int) {
	if w.decided {
		return
	}
	// Informational responses precede the final status.
	if code >= 100 && code < http.StatusOK && code != http.StatusSwitchingProtocols {
		w.ResponseWriter.WriteHeader(code)
		return
	}
	w.decided = true
	w.status = code

	h := w.Header()
	w.inject = strings.HasPrefix(h.Get("Content-Type"), "text/html") &&
		h.Get("Content-Encoding") == "" &&
		h.Get("Content-Range") == "" &&
		code != http.StatusNoContent && code != http.StatusNotModified &&
		code != http.StatusPartialContent &&
		code >= http.StatusOK
	if !w.inject {
		w.ResponseWriter.WriteHeader(code)
		return
	}
	h.Del("Content-Length")
}

func (w *injectWriter) Write(p []byte) (int, error) {
	if !w.decided {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", http.DetectContentType(p))
		}
		w.WriteHeader(http.StatusOK)
	}
	if !w.inject {
		return w.ResponseWriter.Write(p)
	}
	return w.buf.Write(p)
}

// Unwrap lets http.ResponseController reach the connection for upgrades.
func (w *injectWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Flush forwards flushes only for responses that are not being rewritten.
func (w *injectWriter) Flush() {
	if w.decided && !w.inject {
		if f, ok := w.ResponseWriter.(http.Flusher); ok {
			f.Flush()
		}
	}
}

// Finish writes the rewritten HTML document.
func (w *injectWriter) Finish() error {
	if !w.inject {
		return nil
	}
	body := InjectSnippet(w.buf.Bytes(), w.snippet)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.ResponseWriter.WriteHeader(w.status)
	_, err := w.ResponseWriter.Write(body)
	return err
}
