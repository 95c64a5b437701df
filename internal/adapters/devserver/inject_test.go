package devserver_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/brisk/internal/adapters/devserver"
)

func TestInjectSnippet(t *testing.T) {
	snippet := []byte("<script></script>")

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "before body close",
			body: "<html><body><p>x</p></body></html>",
			want: "<html><body><p>x</p><script></script></body></html>",
		},
		{
			name: "uppercase tag",
			body: "<HTML><BODY>x</BODY></HTML>",
			want: "<HTML><BODY>x<script></script></BODY></HTML>",
		},
		{
			name: "last body close wins",
			body: "<body><pre>&lt;/body&gt;</pre><!-- </body> --></body>",
			want: "<body><pre>&lt;/body&gt;</pre><!-- </body> --><script></script></body>",
		},
		{
			name: "no body tag",
			body: "<p>fragment</p>",
			want: "<p>fragment</p><script></script>",
		},
		{
			name: "empty",
			body: "",
			want: "<script></script>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := devserver.InjectSnippet([]byte(tt.body), snippet)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestInjector_Snippet(t *testing.T) {
	i := devserver.NewInjector(35729)

	assert.Equal(t, `<script src="//example.test:35729/livereload.js?snipver=1"></script>`, string(i.Snippet("example.test:9000")))
	assert.Equal(t, `<script src="//localhost:35729/livereload.js?snipver=1"></script>`, string(i.Snippet("")))
}

type stageFunc struct {
	name string
	fn   func(w http.ResponseWriter, r *http.Request) devserver.Result
}

func (s stageFunc) Name() string { return s.name }

func (s stageFunc) Serve(w http.ResponseWriter, r *http.Request) devserver.Result {
	return s.fn(w, r)
}

func TestChain_StopsAtFirstHandled(t *testing.T) {
	var calls []string
	record := func(name string, res devserver.Result) devserver.Stage {
		return stageFunc{name: name, fn: func(w http.ResponseWriter, _ *http.Request) devserver.Result {
			calls = append(calls, name)
			if res.IsHandled() {
				_, _ = io.WriteString(w, name)
			}
			return res
		}}
	}

	chain := devserver.NewChain(nil, nil,
		record("first", devserver.Pass()),
		record("second", devserver.Handled()),
		record("third", devserver.Handled()),
	)

	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"first", "second"}, calls)
	assert.Equal(t, "second", rec.Body.String())
}

func TestChain_PassWithSubstitutesWriter(t *testing.T) {
	chain := devserver.NewChain(nil, nil,
		stageFunc{name: "wrap", fn: func(w http.ResponseWriter, _ *http.Request) devserver.Result {
			return devserver.PassWith(upperWriter{w})
		}},
		stageFunc{name: "write", fn: func(w http.ResponseWriter, _ *http.Request) devserver.Result {
			_, _ = io.WriteString(w, "hello")
			return devserver.Handled()
		}},
	)

	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "HELLO", rec.Body.String())
}

func TestChain_NotFound(t *testing.T) {
	chain := devserver.NewChain(nil, nil)

	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nothing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type upperWriter struct {
	http.ResponseWriter
}

func (u upperWriter) Write(p []byte) (int, error) {
	return u.ResponseWriter.Write([]byte(strings.ToUpper(string(p))))
}
