package pages

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/brogergvhs/mangakit/internal/codec"
	"github.com/brogergvhs/mangakit/internal/mirror"
	"github.com/brogergvhs/mangakit/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageURLs(list []model.Page) []string {
	out := make([]string, len(list))
	for i, p := range list {
		out[i] = p.URL
	}
	return out
}

func TestResolver_ReadyURLs(t *testing.T) {
	r := &Resolver{}
	got, err := r.Resolve(context.Background(), Input{
		ChapterURL: "https://site.example/c/1",
		URLs:       []string{"https://cdn.example/1.jpg", "https://cdn.example/2.jpg"},
		Previews:   []string{"https://cdn.example/t1.jpg"},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "https://cdn.example/1.jpg", got[0].URL)
	assert.Equal(t, model.StableID("https://cdn.example/1.jpg"), got[0].ID)
	assert.Equal(t, "https://cdn.example/t1.jpg", got[0].Preview)
	assert.Equal(t, "https://site.example/c/1", got[0].Referer)
	assert.Empty(t, got[1].Preview)
}

func TestResolver_AESTokens(t *testing.T) {
	blob, err := codec.SealAESPayload([]byte(`["t=1","t=2"]`), "pw", nil)
	require.NoError(t, err)

	r := &Resolver{}
	got, err := r.Resolve(context.Background(), Input{
		URLs: []string{"https://cdn.example/1.jpg", "https://cdn.example/2.jpg?w=800"},
		AES:  &AESPayload{Blob: blob, Password: "pw"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://cdn.example/1.jpg?t=1",
		"https://cdn.example/2.jpg?w=800&t=2",
	}, pageURLs(got))
}

func TestResolver_AESPageList(t *testing.T) {
	blob, err := codec.SealAESPayload([]byte(`["https://cdn.example/a.webp","https://cdn.example/b.webp"]`), "pw", nil)
	require.NoError(t, err)

	r := &Resolver{}
	got, err := r.Resolve(context.Background(), Input{AES: &AESPayload{Blob: blob, Password: "pw"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example/a.webp", "https://cdn.example/b.webp"}, pageURLs(got))
}

func TestResolver_DecodeFailures(t *testing.T) {
	blob, err := codec.SealAESPayload([]byte(`["t=1"]`), "pw", nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		in   Input
	}{
		{"token count mismatch", Input{URLs: []string{"a", "b"}, AES: &AESPayload{Blob: blob, Password: "pw"}}},
		{"corrupt blob", Input{AES: &AESPayload{Blob: blob[:20], Password: "pw"}}},
		{"bad scramble", Input{Scrambled: &ScrambledPayload{Blob: "zzzz", TableA: codec.Alphabet, TableB: codec.Alphabet}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Resolver{}
			got, err := r.Resolve(context.Background(), tt.in)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, ErrPagesUnavailable)
			assert.ErrorIs(t, err, codec.ErrDecode)
		})
	}
}

func TestResolver_ScrambledWithMirrors(t *testing.T) {
	var deadHits, liveHits atomic.Int32
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadHits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer dead.Close()
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		liveHits.Add(1)
	}))
	defer live.Close()

	tableA := codec.Alphabet
	tableB := codec.Alphabet[10:] + codec.Alphabet[:10]
	payload := base64.StdEncoding.EncodeToString([]byte(`["/data/ch1/001.png","/data/ch1/002.png","https://other.example/ad.png"]`))

	r := &Resolver{Prober: mirror.NewProber(nil, nil, nil)}
	got, err := r.Resolve(context.Background(), Input{
		ChapterURL: "https://site.example/c/1",
		Scrambled: &ScrambledPayload{
			Blob:   codec.Translate(payload, tableA, tableB),
			TableA: tableA,
			TableB: tableB,
		},
		Mirrors: []string{dead.URL, live.URL},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		live.URL + "/data/ch1/001.png",
		live.URL + "/data/ch1/002.png",
		"https://other.example/ad.png",
	}, pageURLs(got))
	assert.EqualValues(t, 1, deadHits.Load())
	assert.EqualValues(t, 1, liveHits.Load(), "mirror is probed once per chapter")
}

func TestResolver_ScrambledCustomExtract(t *testing.T) {
	tableA := codec.Alphabet
	tableB := codec.Alphabet[1:] + codec.Alphabet[:1]
	payload := base64.StdEncoding.EncodeToString([]byte(`{"images":["https://cdn.example/1.jpg"]}`))

	r := &Resolver{}
	got, err := r.Resolve(context.Background(), Input{
		Scrambled: &ScrambledPayload{
			Blob:   codec.Translate(payload, tableB, tableA),
			TableA: tableA,
			TableB: tableB,
			Extract: func(raw []byte) ([]string, error) {
				s := string(raw)
				start := strings.Index(s, "[")
				return StringArray([]byte(s[start : len(s)-1]))
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example/1.jpg"}, pageURLs(got))
}

func TestResolver_Viewers(t *testing.T) {
	viewers := make([]string, 10)
	for i := range viewers {
		viewers[i] = fmt.Sprintf("https://site.example/c/1/%d", i+1)
	}

	t.Run("keeps order", func(t *testing.T) {
		r := &Resolver{
			ViewerWorkers: 3,
			Viewer: func(_ context.Context, v string) (string, error) {
				return strings.Replace(v, "site.example/c/1/", "cdn.example/", 1) + ".jpg", nil
			},
		}

		got, err := r.Resolve(context.Background(), Input{Viewers: viewers})
		require.NoError(t, err)
		require.Len(t, got, 10)
		for i, p := range got {
			assert.Equal(t, fmt.Sprintf("https://cdn.example/%d.jpg", i+1), p.URL)
		}
	})

	t.Run("one failure fails the chapter", func(t *testing.T) {
		boom := errors.New("boom")
		r := &Resolver{
			Viewer: func(_ context.Context, v string) (string, error) {
				if strings.HasSuffix(v, "/7") {
					return "", boom
				}
				return v + ".jpg", nil
			},
		}

		got, err := r.Resolve(context.Background(), Input{Viewers: viewers})
		assert.Nil(t, got)
		assert.ErrorIs(t, err, ErrPagesUnavailable)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("no fetcher", func(t *testing.T) {
		r := &Resolver{}
		_, err := r.Resolve(context.Background(), Input{Viewers: viewers})
		assert.ErrorIs(t, err, ErrPagesUnavailable)
	})
}

func TestResolver_Empty(t *testing.T) {
	r := &Resolver{}
	_, err := r.Resolve(context.Background(), Input{ChapterURL: "https://site.example/c/1"})
	assert.ErrorIs(t, err, ErrPagesUnavailable)
}

func TestAppendQuery(t *testing.T) {
	assert.Equal(t, "a.jpg?x=1", AppendQuery("a.jpg", "x=1"))
	assert.Equal(t, "a.jpg?x=1", AppendQuery("a.jpg", "?x=1"))
	assert.Equal(t, "a.jpg?w=1&x=1", AppendQuery("a.jpg?w=1", "x=1"))
	assert.Equal(t, "a.jpg", AppendQuery("a.jpg", ""))
}

func TestResolver_CryptoJS(t *testing.T) {
	for name, plain := range map[string]string{
		"plain array":  `["https://cdn.example/1.jpg","https://cdn.example/2.jpg"]`,
		"quoted array": `"[\"https:\\/\\/cdn.example\\/1.jpg\",\"https:\\/\\/cdn.example\\/2.jpg\"]"`,
	} {
		t.Run(name, func(t *testing.T) {
			env, err := codec.SealCryptoJSON([]byte(plain), "nonce")
			require.NoError(t, err)

			r := &Resolver{}
			got, err := r.Resolve(context.Background(), Input{CryptoJS: &CryptoJSPayload{Envelope: env, Password: "nonce"}})
			require.NoError(t, err)
			assert.Equal(t, []string{"https://cdn.example/1.jpg", "https://cdn.example/2.jpg"}, pageURLs(got))
		})
	}

	env, err := codec.SealCryptoJSON([]byte(`{"not":"a list"}`), "nonce")
	require.NoError(t, err)
	_, err = (&Resolver{}).Resolve(context.Background(), Input{CryptoJS: &CryptoJSPayload{Envelope: env, Password: "nonce"}})
	assert.ErrorIs(t, err, codec.ErrDecode)
}

func TestResolver_MirrorRequestsCarryReferer(t *testing.T) {
	forbidden := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer forbidden.Close()
	hotlinkGuard := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Referer") == "" {
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer hotlinkGuard.Close()

	tests := []struct {
		name string
		in   Input
	}{
		{"adapter referer", Input{ChapterURL: "https://site.example/c/1", Referer: "https://site.example/"}},
		{"chapter url fallback", Input{ChapterURL: "https://site.example/c/1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			in.URLs = []string{"img/1.jpg", "img/2.jpg"}
			in.Mirrors = []string{forbidden.URL, hotlinkGuard.URL}

			r := &Resolver{Prober: mirror.NewProber(nil, nil, nil)}
			got, err := r.Resolve(context.Background(), in)
			require.NoError(t, err)
			assert.Equal(t, []string{
				hotlinkGuard.URL + "/img/1.jpg",
				hotlinkGuard.URL + "/img/2.jpg",
			}, pageURLs(got))
		})
	}
}

func TestResolver_ProtocolRelativeURLs(t *testing.T) {
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer live.Close()

	r := &Resolver{}
	got, err := r.Resolve(context.Background(), Input{
		ChapterURL: "http://site.example/c/1",
		URLs:       []string{"//cdn.example/1.jpg", "p/2.jpg"},
		Mirrors:    []string{live.URL},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://cdn.example/1.jpg", live.URL + "/p/2.jpg"}, pageURLs(got))

	got, err = r.Resolve(context.Background(), Input{URLs: []string{"//cdn.example/1.jpg"}})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/1.jpg", got[0].URL)
}
