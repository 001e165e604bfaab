package diff

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPRendererPostsResponseWithBearerToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/diff" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body struct {
			Response string `json:"response"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"diff": "+" + body.Response})
	}))
	defer srv.Close()

	h := NewHTTPRenderer(srv.URL+"/", func() (string, error) { return "tok-1", nil })
	out, err := h.RenderDiff(context.Background(), "commit-7")
	require.NoError(t, err)
	assert.Equal(t, "+commit-7", out)
}

func TestHTTPRendererTruncatesErrorBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer srv.Close()

	h := NewHTTPRenderer(srv.URL, nil)
	_, err := h.RenderDiff(context.Background(), "commit-7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.Less(t, len(err.Error()), 700)
}

func TestHTTPRendererTokenError(t *testing.T) {
	t.Parallel()

	h := NewHTTPRenderer("http://127.0.0.1:1", func() (string, error) {
		return "", errors.New("locked")
	})
	_, err := h.RenderDiff(context.Background(), "commit-7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")
}

func TestHTTPRendererNilReceiver(t *testing.T) {
	t.Parallel()

	var h *HTTPRenderer
	_, err := h.RenderDiff(context.Background(), "x")
	assert.ErrorIs(t, err, ErrRendererNotReady)
}

func TestNewSelectsRenderer(t *testing.T) {
	t.Parallel()

	r, err := New(Options{Kind: "git", RepoDir: "/repo"})
	require.NoError(t, err)
	assert.IsType(t, &GitRenderer{}, r)

	r, err = New(Options{Kind: "HTTP", BaseURL: "http://example.test"})
	require.NoError(t, err)
	assert.IsType(t, &HTTPRenderer{}, r)

	_, err = New(Options{Kind: "svn"})
	assert.Error(t, err)
}
