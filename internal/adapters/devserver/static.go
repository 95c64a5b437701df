package devserver

import (
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

const indexFile = "index.html"

// resolve maps a request path onto root. It refuses paths with dot-prefixed
// segments so that dotfiles in the source tree are not served.
func resolve(root, urlPath string) (string, bool) {
	clean := path.Clean("/" + urlPath)
	for _, seg := range strings.Split(clean, "/") {
		if strings.HasPrefix(seg, ".") {
			return "", false
		}
	}
	return filepath.Join(root, filepath.FromSlash(clean)), true
}

// Static serves files that exist under a root directory. Directories are
// served through their index.html when one exists.
type Static struct {
	name string
	root string
}

// NewStatic returns a Static stage over root, reported under name.
func NewStatic(name, root string) *Static {
	return &Static{name: name, root: root}
}

// Name implements Stage.
func (s *Static) Name() string { return s.name }

// Serve answers GET and HEAD requests for files present under the root.
func (s *Static) Serve(w http.ResponseWriter, r *http.Request) Result {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return Pass()
	}

	target, ok := resolve(s.root, r.URL.Path)
	if !ok {
		return Pass()
	}

	info, err := os.Stat(target)
	if err != nil {
		return Pass()
	}

	if info.IsDir() {
		index := filepath.Join(target, indexFile)
		indexInfo, err := os.Stat(index)
		if err != nil || indexInfo.IsDir() {
			return Pass()
		}
		if !strings.HasSuffix(r.URL.Path, "/") {
			redirectToDir(w, r)
			return Handled()
		}
		target, info = index, indexInfo
	}

	f, err := os.Open(target)
	if err != nil {
		return Pass()
	}
	defer func() { _ = f.Close() }()

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return Handled()
}

func redirectToDir(w http.ResponseWriter, r *http.Request) {
	u := *r.URL
	u.Path += "/"
	http.Redirect(w, r, u.String(), http.StatusMovedPermanently)
}

var listingTemplate = template.Must(template.New("listing").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>listing directory {{.Path}}</title></head>
<body>
<h1>{{.Path}}</h1>
<ul>
{{- if ne .Path "/"}}
<li><a href="../">..</a></li>
{{- end}}
{{- range .Entries}}
<li><a href="{{.Href}}">{{.Name}}</a></li>
{{- end}}
</ul>
</body>
</html>
`))

type listingEntry struct {
	Name string
	Href string
}

// Listing renders an HTML index for directories under root.
type Listing struct {
	root string
}

// NewListing returns a Listing stage over root.
func NewListing(root string) *Listing {
	return &Listing{root: root}
}

// Name implements Stage.
func (l *Listing) Name() string { return "listing" }

// Serve renders the directory the request path maps to, if it is one.
func (l *Listing) Serve(w http.ResponseWriter, r *http.Request) Result {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return Pass()
	}

	target, ok := resolve(l.root, r.URL.Path)
	if !ok {
		return Pass()
	}
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		return Pass()
	}
	if !strings.HasSuffix(r.URL.Path, "/") {
		redirectToDir(w, r)
		return Handled()
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return Handled()
		}
		return Pass()
	}

	list := make([]listingEntry, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		href := e.Name()
		if e.IsDir() {
			href += "/"
		}
		list = append(list, listingEntry{Name: href, Href: href})
	}
	slices.SortFunc(list, func(a, b listingEntry) int { return strings.Compare(a.Name, b.Name) })

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = listingTemplate.Execute(w, struct {
		Path    string
		Entries []listingEntry
	}{Path: path.Clean("/" + r.URL.Path), Entries: list})
	return Handled()
}
