package apireader

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brogergvhs/mangakit/internal/codec"
	"github.com/brogergvhs/mangakit/internal/model"
	"github.com/brogergvhs/mangakit/internal/pages"
	"github.com/brogergvhs/mangakit/internal/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feed = `{"data":[
 {"id":"c4","chapter":"2","lang":"en","group":"Team B","published_at":"2024-02-01T10:00:00Z"},
 {"id":"c3","chapter":"2","lang":"en","group":"Team A","published_at":"2024-01-20"},
 {"id":"c2","chapter":"1","lang":"es","group":"Equipo C"},
 {"id":"","chapter":"0","lang":"en"},
 {"id":"c1","chapter":"1","title":"Dawn","lang":"en","group":"Team A"}
]}`

type fixture struct {
	srv, dead, live *httptest.Server
	src             *Source
	genreHits       atomic.Int32
	liveHits        atomic.Int32
}

func readerPage(f *fixture, thumbs string) string {
	tableA := codec.Alphabet
	tableB := codec.Alphabet[5:] + codec.Alphabet[:5]
	payload := base64.StdEncoding.EncodeToString([]byte(`["/data/c1/001.png","/data/c1/002.png"]`))

	return fmt.Sprintf(`<html><body>
<script>
var pageKeyA = "%s";
let pageKeyB = '%s';
const pageData = "%s";
var pageHosts = ["%s", "%s"];
</script>
<div class="page-thumbs">%s</div>
</body></html>`, tableA, tableB, codec.Translate(payload, tableA, tableB), f.dead.URL, f.live.URL, thumbs)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{}

	f.dead = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(f.dead.Close)
	f.live = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.liveHits.Add(1)
	}))
	t.Cleanup(f.live.Close)

	page := readerPage(f, `<img src="/thumbs/1.jpg"><img src="/thumbs/2.jpg">`)
	sparse := readerPage(f, `<img src=""><img data-src="/thumbs/2.jpg" src="">`)
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/manga":
			assert.Equal(t, "3", r.URL.Query().Get("page"))
			assert.Equal(t, "night", r.URL.Query().Get("q"))
			_, _ = fmt.Fprint(w, `{"data":[{"slug":"night","title":" Night Walker ","cover":"https://cdn.example/n.jpg"},{"title":"no slug"}]}`)
		case "/api/manga/night":
			_, _ = fmt.Fprint(w, `{"slug":"night","title":"Night Walker","alt_titles":["Yoru"],"authors":["A"],"description":" Walks. ","status":"ongoing","genres":["action","slice"]}`)
		case "/api/manga/night/chapters":
			_, _ = fmt.Fprint(w, feed)
		case "/api/genres":
			f.genreHits.Add(1)
			_, _ = fmt.Fprint(w, `[{"key":"action","title":"Action"},{"key":"drama","title":"Drama"}]`)
		case "/read/night/c1":
			_, _ = fmt.Fprint(w, page)
		case "/read/night/c3":
			_, _ = fmt.Fprint(w, sparse)
		case "/read/night/c2":
			_, _ = fmt.Fprint(w, `<html><script>var pageKeyA = "x";</script></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.srv.Close)

	src, err := New(sources.Deps{Client: f.srv.Client()}, Site{ID: "reader", Name: "Reader", BaseURL: f.srv.URL})
	require.NoError(t, err)
	f.src = src
	return f
}

func TestGetChapters_BranchesByLanguage(t *testing.T) {
	f := newFixture(t)

	res, err := f.src.GetChapters(context.Background(), f.srv.URL+"/manga/night")
	require.NoError(t, err)
	assert.Equal(t, []string{"English", "Español", "English (1)"}, res.Labels)
	assert.Equal(t, 4, res.Len())

	en := res.Branch("English")
	require.Len(t, en, 2)
	assert.Equal(t, "Dawn", en[0].Name)
	assert.Equal(t, "Team A", en[0].Scanlator)
	assert.Equal(t, f.srv.URL+"/read/night/c1", en[0].URL)
	assert.Equal(t, 2, en[1].Number)
	assert.Equal(t, time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC), en[1].UploadedAt)

	dup := res.Branch("English (1)")
	require.Len(t, dup, 1)
	assert.Equal(t, "Team B", dup[0].Scanlator)
	assert.Equal(t, "2", dup[0].Token)
	assert.Equal(t, 1, dup[0].Number)

	es := res.Branch("Español")
	require.Len(t, es, 1)
	assert.Equal(t, "Chapter 1", es[0].Name)
}

func TestListPage(t *testing.T) {
	f := newFixture(t)

	list, err := f.src.ListPage(context.Background(), 3, " night ")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.Manga{
		ID:     model.StableID(f.srv.URL + "/manga/night"),
		Title:  "Night Walker",
		URL:    f.srv.URL + "/manga/night",
		Cover:  "https://cdn.example/n.jpg",
		Source: "reader",
	}, list[0])
}

func TestGetDetails_UsesCachedGenres(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := f.src.GetDetails(ctx, f.srv.URL+"/manga/night/")
		require.NoError(t, err)
		assert.Equal(t, "Night Walker", d.Title)
		assert.Equal(t, "Walks.", d.Description)
		assert.Equal(t, []model.Tag{
			{Key: "action", Title: "Action", Source: "reader"},
			{Key: "slice", Title: "slice", Source: "reader"},
		}, d.Tags)
	}

	tags, err := f.src.GetTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 2)
	assert.EqualValues(t, 1, f.genreHits.Load())
}

func TestGetPages(t *testing.T) {
	f := newFixture(t)

	got, err := f.src.GetPages(context.Background(), model.Chapter{URL: f.srv.URL + "/read/night/c1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, f.live.URL+"/data/c1/001.png", got[0].URL)
	assert.Equal(t, f.live.URL+"/data/c1/002.png", got[1].URL)
	assert.Equal(t, f.srv.URL+"/thumbs/1.jpg", got[0].Preview)
	assert.Equal(t, f.srv.URL+"/", got[0].Referer)
	assert.EqualValues(t, 1, f.liveHits.Load())

	_, err = f.src.GetPages(context.Background(), model.Chapter{URL: f.srv.URL + "/read/night/c2"})
	assert.ErrorIs(t, err, pages.ErrPagesUnavailable)
}

func TestGetPages_ThumbnailsStayAligned(t *testing.T) {
	f := newFixture(t)

	got, err := f.src.GetPages(context.Background(), model.Chapter{URL: f.srv.URL + "/read/night/c3"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Empty(t, got[0].Preview)
	assert.Equal(t, f.srv.URL+"/thumbs/2.jpg", got[1].Preview)
}

func TestSlugOf(t *testing.T) {
	for in, want := range map[string]string{
		"https://r.example/manga/night":       "night",
		"https://r.example/manga/night/":      "night",
		"https://r.example/en/manga/night/ch": "night",
		"night":                               "night",
	} {
		got, err := slugOf(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := slugOf("https://r.example/other")
	assert.Error(t, err)
}

func TestJSString(t *testing.T) {
	s, err := jsString(`'it"s'`)
	require.NoError(t, err)
	assert.Equal(t, `it"s`, s)

	s, err = jsString(`"a\/b"`)
	require.NoError(t, err)
	assert.Equal(t, "a/b", s)

	for lit, want := range map[string]string{
		`'it\'s'`:            "it's",
		`'say \"hi\" \'x\''`: `say "hi" 'x'`,
		`'a\\b'`:             `a\b`,
		`'tab\there'`:        "tab\there",
	} {
		s, err := jsString(lit)
		require.NoError(t, err, lit)
		assert.Equal(t, want, s, lit)
	}
}
