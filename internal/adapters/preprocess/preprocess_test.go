package preprocess_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/brisk/internal/adapters/preprocess"
	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/zerr"
)

func TestStage_Process(t *testing.T) {
	stage := preprocess.New(map[string]string{"NODE_ENV": domain.ProductionEnv, "VERSION": "1.2.0"})

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "if true",
			in:   "a<!-- @if NODE_ENV='production' -->prod<!-- @endif -->b",
			want: "aprodb",
		},
		{
			name: "if false",
			in:   "a<!-- @if NODE_ENV='development' -->dev<!-- @endif -->b",
			want: "ab",
		},
		{
			name: "double quotes and ==",
			in:   `<!-- @if NODE_ENV=="production" -->x<!-- @endif -->`,
			want: "x",
		},
		{
			name: "not equal",
			in:   "<!-- @if NODE_ENV!='production' -->livereload<!-- @endif -->",
			want: "",
		},
		{
			name: "bare key",
			in:   "<!-- @if VERSION -->v<!-- @endif --><!-- @if MISSING -->m<!-- @endif -->",
			want: "v",
		},
		{
			name: "ifdef and ifndef",
			in:   "<!-- @ifdef VERSION -->d<!-- @endif --><!-- @ifndef VERSION -->n<!-- @endif -->",
			want: "d",
		},
		{
			name: "nested inactive parent",
			in:   "<!-- @if NODE_ENV='test' --><!-- @if VERSION -->inner<!-- @endif --><!-- @endif -->out",
			want: "out",
		},
		{
			name: "exclude",
			in:   "keep<!-- @exclude -->drop<!-- @endexclude -->",
			want: "keep",
		},
		{
			name: "echo",
			in:   "<p>v<!-- @echo VERSION --></p>",
			want: "<p>v1.2.0</p>",
		},
		{
			name: "echo in inactive block",
			in:   "<!-- @if MISSING --><!-- @echo VERSION --><!-- @endif -->",
			want: "",
		},
		{
			name: "ordinary comments survive",
			in:   "<!-- build:js scripts/app.js --><!-- @unknown x -->",
			want: "<!-- build:js scripts/app.js --><!-- @unknown x -->",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := stage.Process([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestStage_Process_Unbalanced(t *testing.T) {
	stage := preprocess.New(nil)

	_, err := stage.Process([]byte("line1\n<!-- @if X='1' -->\nbody\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnterminatedBlock)
	zErr, ok := err.(*zerr.Error)
	require.True(t, ok)
	assert.Equal(t, 2, zErr.Metadata()["line"])

	_, err = stage.Process([]byte("<!-- @endif -->"))
	assert.ErrorIs(t, err, domain.ErrUnterminatedBlock)

	_, err = stage.Process([]byte("<!-- @exclude --><!-- @endif -->"))
	assert.ErrorIs(t, err, domain.ErrUnterminatedBlock)
}

func TestStage_Apply(t *testing.T) {
	stage := preprocess.New(map[string]string{"NODE_ENV": domain.ProductionEnv})
	assert.Equal(t, "preprocess", stage.Name())

	out, err := stage.Apply(t.Context(), []domain.File{
		{Path: "index.html", Contents: []byte("<!-- @if NODE_ENV='production' -->min<!-- @endif -->")},
	})
	require.NoError(t, err)
	assert.Equal(t, "min", string(out[0].Contents))

	_, err = stage.Apply(t.Context(), []domain.File{{Path: "broken.html", Contents: []byte("<!-- @ifdef A -->")}})
	require.Error(t, err)
	zErr, ok := err.(*zerr.Error)
	require.True(t, ok)
	assert.Equal(t, "broken.html", zErr.Metadata()["file"])
}
