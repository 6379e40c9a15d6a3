package madara

import (
	"context"
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

const chapterList = `<ul>
<li class="wp-manga-chapter"><a href="/manga/night/chapter-3/">Chapter 3</a>
  <span class="chapter-release-date"><a href="#" title="2 days ago"><img src="new.png"></a></span></li>
<li class="wp-manga-chapter"><a href="/manga/night/chapter-2/">Vol. 1 Chapter 2 - Fight</a>
  <span class="chapter-release-date"><i>January 5, 2024</i></span></li>
<li class="wp-manga-chapter"><a>Chapter 1.5 (removed)</a></li>
<li class="wp-manga-chapter"><a href="/manga/night/chapter-1-fixed/">Chapter 1</a></li>
<li class="wp-manga-chapter"><a href="/manga/night/chapter-1/">Chapter 1</a></li>
</ul>`

const seriesPage = `<html><body>
<div class="post-title"><h1><span class="manga-title-badges hot">HOT</span> Night Walker </h1></div>
<div class="summary_image"><img data-src="https://cdn.example/night.jpg"></div>
<div class="post-content_item"><div class="summary-heading"><h5>Alternative</h5></div>
  <div class="summary-content">Yoru; Night Walk, 夜</div></div>
<div class="post-content_item"><div class="summary-heading"><h5>Status</h5></div>
  <div class="summary-content"> OnGoing </div></div>
<div class="author-content"><a href="/author/a/">Author A</a><a href="/author/b/">Author B</a></div>
<div class="genres-content"><a href="/manga-genre/action/">Action</a><a href="/manga-genre/drama/">Drama</a></div>
<div class="description-summary"><div class="summary__content"><p>Walks at night.</p></div></div>
</body></html>`

const searchPage = `<html><body>
<div class="c-tabs-item__content"><div class="post-title"><h3><a href="/manga/night/">Night Walker</a></h3></div><img data-src="https://cdn.example/night.jpg"></div>
<div class="c-tabs-item__content"><div class="post-title"><h3><a href="/manga/day/">Day Runner</a></h3></div><img src="https://cdn.example/day.jpg"></div>
<div class="c-tabs-item__content"><div class="post-title"><h3><a href="/manga/day/">Day Runner</a></h3></div></div>
<div class="checkbox-group">
  <div class="checkbox"><input type="checkbox" id="genre-action" name="genre[]" value="action"><label for="genre-action">Action</label></div>
  <div class="checkbox"><input type="checkbox" id="genre-drama" name="genre[]" value="drama"><label for="genre-drama">Drama</label></div>
</div>
</body></html>`

type fixture struct {
	srv       *httptest.Server
	src       *Source
	ajaxHits  atomic.Int32
	tagHits   atomic.Int32
	chapters  map[string]string
	noAjax    bool
	lastQuery atomic.Value
}

func newFixture(t *testing.T, noAjax bool, chapterPages map[string]string) *fixture {
	t.Helper()
	f := &fixture{chapters: chapterPages, noAjax: noAjax}

	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/manga/night/ajax/chapters/" && r.Method == http.MethodPost:
			f.ajaxHits.Add(1)
			if f.noAjax {
				http.NotFound(w, r)
				return
			}
			_, _ = fmt.Fprint(w, chapterList)
		case r.URL.Path == "/manga/night/":
			page := seriesPage
			if f.noAjax {
				page += chapterList
			}
			_, _ = fmt.Fprint(w, page)
		case r.URL.Path == "/" || r.URL.Path == "/page/2/":
			f.lastQuery.Store(r.URL.Path + "?" + r.URL.RawQuery)
			if r.URL.Query().Get("s") == "" {
				f.tagHits.Add(1)
			}
			_, _ = fmt.Fprint(w, searchPage)
		default:
			body, ok := f.chapters[r.URL.Path]
			if !ok {
				http.NotFound(w, r)
				return
			}
			assert.Equal(t, "list", r.URL.Query().Get("style"))
			_, _ = fmt.Fprint(w, body)
		}
	}))
	t.Cleanup(f.srv.Close)

	src, err := New(sources.Deps{Client: f.srv.Client()}, Site{ID: "toon", BaseURL: f.srv.URL})
	require.NoError(t, err)
	src.now = func() time.Time { return time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC) }
	f.src = src
	return f
}

func TestNew(t *testing.T) {
	_, err := New(sources.Deps{}, Site{ID: "x", BaseURL: "not a url"})
	assert.Error(t, err)

	s, err := New(sources.Deps{}, Site{ID: "toon", BaseURL: "https://toon.example"})
	require.NoError(t, err)
	assert.Equal(t, "toon", s.Name())
	assert.Equal(t, []string{"toon.example"}, s.Hosts())
}

func TestGetChapters(t *testing.T) {
	f := newFixture(t, false, nil)

	res, err := f.src.GetChapters(context.Background(), f.srv.URL+"/manga/night/")
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.ajaxHits.Load())
	assert.Equal(t, []string{"", "(1)"}, res.Labels)

	main := res.Branch("")
	require.Len(t, main, 3)
	assert.Equal(t, f.srv.URL+"/manga/night/chapter-1/", main[0].URL)
	assert.Equal(t, "2", main[1].Token)
	assert.Equal(t, "1", main[1].Volume)
	assert.Equal(t, 2, main[1].Number)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), main[1].UploadedAt)
	assert.Equal(t, "3", main[2].Token)
	assert.Equal(t, time.Date(2026, 1, 8, 12, 0, 0, 0, time.UTC), main[2].UploadedAt)
	assert.Equal(t, "toon", main[2].Source)

	dup := res.Branch("(1)")
	require.Len(t, dup, 1)
	assert.Equal(t, f.srv.URL+"/manga/night/chapter-1-fixed/", dup[0].URL)
	assert.Equal(t, 1, dup[0].Number)
}

func TestGetChapters_FallsBackToSeriesPage(t *testing.T) {
	f := newFixture(t, true, nil)

	res, err := f.src.GetChapters(context.Background(), f.srv.URL+"/manga/night/")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Len())
}

func TestGetDetails(t *testing.T) {
	f := newFixture(t, false, nil)

	d, err := f.src.GetDetails(context.Background(), f.srv.URL+"/manga/night/")
	require.NoError(t, err)
	assert.Equal(t, "Night Walker", d.Title)
	assert.Equal(t, "https://cdn.example/night.jpg", d.Cover)
	assert.Equal(t, []string{"Yoru", "Night Walk", "夜"}, d.AltTitles)
	assert.Equal(t, "OnGoing", d.Status)
	assert.Equal(t, []string{"Author A", "Author B"}, d.Authors)
	assert.Equal(t, "Walks at night.", d.Description)
	require.Len(t, d.Tags, 2)
	assert.Equal(t, model.Tag{Key: "action", Title: "Action", Source: "toon"}, d.Tags[0])
}

func TestListPage(t *testing.T) {
	f := newFixture(t, false, nil)

	list, err := f.src.ListPage(context.Background(), 2, "night")
	require.NoError(t, err)
	assert.Equal(t, "/page/2/?post_type=wp-manga&s=night", f.lastQuery.Load())

	require.Len(t, list, 2)
	assert.Equal(t, "Night Walker", list[0].Title)
	assert.Equal(t, f.srv.URL+"/manga/night/", list[0].URL)
	assert.Equal(t, "https://cdn.example/night.jpg", list[0].Cover)
	assert.Equal(t, "https://cdn.example/day.jpg", list[1].Cover)
}

func TestGetTags_FetchedOnce(t *testing.T) {
	f := newFixture(t, false, nil)

	for i := 0; i < 3; i++ {
		tags, err := f.src.GetTags(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []model.Tag{
			{Key: "action", Title: "Action", Source: "toon"},
			{Key: "drama", Title: "Drama", Source: "toon"},
		}, tags)
	}
	assert.EqualValues(t, 1, f.tagHits.Load())
}

func TestGetPages(t *testing.T) {
	env, err := codec.SealCryptoJSON([]byte(`"[\"https:\\/\\/cdn.example\\/p1.jpg\",\"https:\\/\\/cdn.example\\/p2.jpg\"]"`), "n0nce")
	require.NoError(t, err)

	f := newFixture(t, false, map[string]string{
		"/manga/night/chapter-1/": `<div class="reading-content">
<img data-src=" https://cdn.example/1.jpg "><img src="/uploads/2.jpg"></div>`,
		"/manga/night/chapter-2/": `<script>var chapter_data = '` + env + `'; var wpmangaprotectornonce = 'n0nce';</script>`,
		"/manga/night/chapter-3/": `<script>var chapter_data = '` + env + `';</script>`,
	})

	ctx := context.Background()

	got, err := f.src.GetPages(ctx, model.Chapter{URL: f.srv.URL + "/manga/night/chapter-1/"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://cdn.example/1.jpg", got[0].URL)
	assert.Equal(t, f.srv.URL+"/uploads/2.jpg", got[1].URL)
	assert.Equal(t, f.srv.URL+"/", got[0].Referer)

	got, err = f.src.GetPages(ctx, model.Chapter{URL: f.srv.URL + "/manga/night/chapter-2/"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://cdn.example/p2.jpg", got[1].URL)

	_, err = f.src.GetPages(ctx, model.Chapter{URL: f.srv.URL + "/manga/night/chapter-3/"})
	assert.ErrorIs(t, err, pages.ErrPagesUnavailable)
}

func TestParseDate(t *testing.T) {
	s := &Source{now: func() time.Time { return time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC) }}

	assert.Equal(t, time.Date(2026, 1, 9, 23, 0, 0, 0, time.UTC), s.parseDate("an hour ago"))
	assert.Equal(t, time.Date(2026, 1, 9, 23, 55, 0, 0, time.UTC), s.parseDate("5 mins ago"))
	assert.Equal(t, time.Date(2025, 12, 27, 0, 0, 0, 0, time.UTC), s.parseDate("2 weeks ago"))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), s.parseDate("March 1, 2024"))
	assert.True(t, s.parseDate("someday").IsZero())
}
