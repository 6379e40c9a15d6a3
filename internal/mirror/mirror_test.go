package mirror

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type host struct {
	srv  *httptest.Server
	hits atomic.Int32
}

func newHost(t *testing.T, status int) *host {
	t.Helper()

	h := &host{}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.hits.Add(1)
		if r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(h.srv.Close)

	return h
}

func deadHost(t *testing.T) string {
	t.Helper()

	srv := httptest.NewServer(http.NotFoundHandler())
	u := srv.URL
	srv.Close()
	return u
}

func TestProber_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the first host that answers", func(t *testing.T) {
		a := newHost(t, http.StatusNotFound)
		b := newHost(t, http.StatusOK)
		c := newHost(t, http.StatusOK)

		p := NewProber(nil, nil, nil)
		got := p.Resolve(ctx, "/img/001.jpg", []string{a.srv.URL, b.srv.URL, c.srv.URL})

		assert.Equal(t, b.srv.URL+"/img/001.jpg", got)
		assert.EqualValues(t, 1, a.hits.Load())
		assert.EqualValues(t, 1, b.hits.Load())
		assert.EqualValues(t, 0, c.hits.Load())
	})

	t.Run("falls back to the first candidate", func(t *testing.T) {
		dead := deadHost(t)
		b := newHost(t, http.StatusInternalServerError)
		c := newHost(t, http.StatusForbidden)

		p := NewProber(nil, nil, nil)
		got := p.Resolve(ctx, "img/001.jpg", []string{dead + "/", b.srv.URL, c.srv.URL})

		assert.Equal(t, dead+"/img/001.jpg", got)
		assert.EqualValues(t, 1, b.hits.Load())
		assert.EqualValues(t, 1, c.hits.Load())
	})

	t.Run("no candidates", func(t *testing.T) {
		p := NewProber(nil, nil, nil)
		assert.Equal(t, "img/001.jpg", p.Resolve(ctx, "img/001.jpg", nil))
	})

	t.Run("cancelled context stops probing", func(t *testing.T) {
		a := newHost(t, http.StatusOK)

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		p := NewProber(nil, nil, nil)
		got := p.ResolveSet(cctx, Set{Hosts: []string{a.srv.URL}, Path: "x"})

		assert.Equal(t, a.srv.URL+"/x", got)
		assert.EqualValues(t, 0, a.hits.Load())
	})

	t.Run("sends caller headers", func(t *testing.T) {
		var referer atomic.Value
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			referer.Store(r.Header.Get("Referer"))
		}))
		t.Cleanup(srv.Close)

		p := NewProber(srv.Client(), http.Header{"Referer": {"https://reader.example/"}}, nil)
		got := p.Resolve(ctx, "a.png", []string{srv.URL})

		require.Equal(t, srv.URL+"/a.png", got)
		assert.Equal(t, "https://reader.example/", referer.Load())
	})

	t.Run("per-call headers", func(t *testing.T) {
		seen := make(chan http.Header, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen <- r.Header.Clone()
		}))
		t.Cleanup(srv.Close)

		base := NewProber(srv.Client(), http.Header{"Cookie": {"a=1"}, "Referer": {"https://old.example/"}}, nil)
		p := base.WithHeader(http.Header{"referer": {"https://site.example/"}})
		p.Resolve(ctx, "a.png", []string{srv.URL})

		got := <-seen
		assert.Equal(t, "https://site.example/", got.Get("Referer"))
		assert.Equal(t, "a=1", got.Get("Cookie"))
		assert.Equal(t, "https://old.example/", base.header.Get("Referer"), "base prober is unchanged")
	})
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "https://h/a/b", Join("https://h/", "/a/b"))
	assert.Equal(t, "https://h/a/b", Join("https://h", "a/b"))
	assert.Equal(t, "a/b", Join("", "a/b"))
	assert.Equal(t, "https://h", Join("https://h", ""))
}
