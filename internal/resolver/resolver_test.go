package resolver

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	kgzip "github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgifai/newscast/internal/catalog"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Hourly News</title>
<item>
<title>GPB Evening Headlines</title>
<link>%s</link>
<enclosure url="https://cdn.example.com/news/latest.mp3?utm=feed" length="1234" type="audio/mpeg"/>
</item>
<item>
<title>Older</title>
<enclosure url="https://cdn.example.com/news/older.mp3" length="1234" type="audio/mpeg"/>
</item>
</channel>
</rss>`

type fakeExtractor struct {
	uri   string
	err   error
	calls atomic.Int32
}

func (f *fakeExtractor) LiveURL(_ context.Context, _ string) (string, error) {
	f.calls.Add(1)
	return f.uri, f.err
}

func newTestResolver(t *testing.T, opts Options) *Resolver {
	t.Helper()
	if opts.Registerer == nil {
		opts.Registerer = prometheus.NewRegistry()
	}
	if opts.Extractor == nil {
		opts.Extractor = &fakeExtractor{err: ErrNoURI}
	}
	return New(opts)
}

func feedServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, feedXML, "https://example.com/post")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolve_StaticIsIdentity(t *testing.T) {
	var calls atomic.Int32
	r := newTestResolver(t, Options{CacheTTL: time.Minute})
	r.Register(catalog.SourceStatic, FetcherFunc(func(context.Context, catalog.Source) (string, error) {
		calls.Add(1)
		return "other", nil
	}))

	uri, ok := r.Resolve(context.Background(), catalog.Static("https://x/a.m3u8"))
	assert.True(t, ok)
	assert.Equal(t, "https://x/a.m3u8", uri)
	assert.Zero(t, calls.Load())
	assert.Zero(t, r.CacheLen())
}

func TestResolve_RSS(t *testing.T) {
	var hits atomic.Int32
	srv := feedServer(t, &hits)
	r := newTestResolver(t, Options{CacheTTL: time.Minute})

	uri, ok := r.Resolve(context.Background(), catalog.RSS(srv.URL))
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/news/latest.mp3?utm=feed", uri)

	uri, ok = r.Resolve(context.Background(), catalog.RSS(srv.URL))
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/news/latest.mp3?utm=feed", uri)
	assert.EqualValues(t, 1, hits.Load(), "second resolve must come from cache")

	assert.Equal(t, 1, r.Invalidate())
	_, _ = r.Resolve(context.Background(), catalog.RSS(srv.URL))
	assert.EqualValues(t, 2, hits.Load())
}

func TestResolve_CacheDisabledAndExpiry(t *testing.T) {
	var hits atomic.Int32
	srv := feedServer(t, &hits)

	r := newTestResolver(t, Options{CacheTTL: 0})
	_, _ = r.Resolve(context.Background(), catalog.RSS(srv.URL))
	_, _ = r.Resolve(context.Background(), catalog.RSS(srv.URL))
	assert.EqualValues(t, 2, hits.Load())

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r = newTestResolver(t, Options{CacheTTL: time.Minute, Now: func() time.Time { return now }})
	_, _ = r.Resolve(context.Background(), catalog.RSS(srv.URL))
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, r.Expire())
	_, _ = r.Resolve(context.Background(), catalog.RSS(srv.URL))
	assert.EqualValues(t, 4, hits.Load())
}

func TestResolve_FailuresAreAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/broken":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "/garbage":
			_, _ = w.Write([]byte("not a feed"))
		default:
			_, _ = w.Write([]byte(`<rss version="2.0"><channel><title>x</title></channel></rss>`))
		}
	}))
	defer srv.Close()

	r := newTestResolver(t, Options{CacheTTL: time.Minute})
	for _, src := range []catalog.Source{
		catalog.RSS(srv.URL + "/broken"),
		catalog.RSS(srv.URL + "/garbage"),
		catalog.RSS(srv.URL + "/empty"),
		catalog.RSS("http://127.0.0.1:1/unreachable"),
		catalog.Custom("nope"),
		catalog.YouTubeLive("https://www.youtube.com/user/Euronews"),
	} {
		uri, ok := r.Resolve(context.Background(), src)
		assert.False(t, ok, src.Key())
		assert.Empty(t, uri, src.Key())
	}
	assert.Zero(t, r.CacheLen())
}

func TestResolve_PanicIsAbsent(t *testing.T) {
	r := newTestResolver(t, Options{})
	r.RegisterCustom("bad", FetcherFunc(func(context.Context, catalog.Source) (string, error) {
		panic("fetcher bug")
	}))
	uri, ok := r.Resolve(context.Background(), catalog.Custom("bad"))
	assert.False(t, ok)
	assert.Empty(t, uri)
}

func TestResolve_OneFetchPerMiss(t *testing.T) {
	var calls atomic.Int32
	r := newTestResolver(t, Options{CacheTTL: time.Minute})
	r.RegisterCustom("count", FetcherFunc(func(context.Context, catalog.Source) (string, error) {
		calls.Add(1)
		return "https://x/count.mp3", nil
	}))

	uri, ok := r.Resolve(context.Background(), catalog.Custom("count"))
	require.True(t, ok)
	assert.Equal(t, "https://x/count.mp3", uri)
	assert.EqualValues(t, 1, calls.Load())
	assert.Contains(t, r.CustomIDs(), "count")
}

func TestResolve_YouTubeLive(t *testing.T) {
	ext := &fakeExtractor{uri: "https://manifest.example.com/live.m3u8"}
	r := newTestResolver(t, Options{Extractor: ext})

	src := catalog.YouTubeLive("https://www.youtube.com/user/euronewspt")
	assert.True(t, r.Slow(src))
	assert.False(t, r.Slow(catalog.RSS("x")))

	uri, ok := r.Resolve(context.Background(), src)
	require.True(t, ok)
	assert.Equal(t, ext.uri, uri)
	assert.EqualValues(t, 1, ext.calls.Load())
}

func TestFirstLive(t *testing.T) {
	out := strings.Join([]string{
		"WARNING: something",
		`{"is_live": false, "url": "https://a/vod"}`,
		`{"is_live": true, "url": "https://a/live.m3u8", "webpage_url": "https://yt/watch?v=1"}`,
	}, "\n")
	uri, err := firstLive(out)
	require.NoError(t, err)
	assert.Equal(t, "https://a/live.m3u8", uri)

	uri, err = firstLive(`{"live_status": "is_live", "webpage_url": "https://yt/watch?v=2"}`)
	require.NoError(t, err)
	assert.Equal(t, "https://yt/watch?v=2", uri)

	_, err = firstLive(`{"is_live": false}`)
	assert.ErrorIs(t, err, ErrNoURI)

	assert.Equal(t, "https://www.youtube.com/user/x/live", liveTab("https://www.youtube.com/user/x/"))
	assert.Equal(t, "https://www.youtube.com/user/x/live", liveTab("https://www.youtube.com/user/x/live"))
}

// hourServer answers 200 only for the paths in ok and counts every request.
func hourServer(t *testing.T, ok map[string]bool, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if ok[r.URL.Path] {
			_, _ = w.Write([]byte("ID3"))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchTSF_RollsBack(t *testing.T) {
	lisbon, err := time.LoadLocation(tsfZone)
	require.NoError(t, err)
	now := time.Date(2024, 3, 1, 1, 20, 0, 0, lisbon)

	var hits atomic.Int32
	srv := hourServer(t, map[string]bool{"/2024/02/29/not22.mp3": true}, &hits)
	r := newTestResolver(t, Options{
		Now:       func() time.Time { return now },
		Endpoints: Endpoints{TSF: srv.URL + "/{year}/{month}/{day}/not{hour}.mp3"},
	})

	uri, ok := r.Resolve(context.Background(), catalog.Custom("tsf"))
	require.True(t, ok)
	assert.Equal(t, srv.URL+"/2024/02/29/not22.mp3", uri)
	assert.EqualValues(t, 4, hits.Load())
}

func TestFetchTSF_GivesUpAfterSix(t *testing.T) {
	var hits atomic.Int32
	srv := hourServer(t, nil, &hits)
	r := newTestResolver(t, Options{Endpoints: Endpoints{TSF: srv.URL + "/{hour}.mp3"}})

	_, ok := r.Resolve(context.Background(), catalog.Custom("tsf"))
	assert.False(t, ok)
	assert.EqualValues(t, tsfAttempts, hits.Load())
}

func TestFetchABC(t *testing.T) {
	sydney, err := time.LoadLocation(abcZone)
	require.NoError(t, err)
	now := time.Date(2024, 7, 9, 10, 5, 0, 0, sydney)
	tmpl := "/{year}{month}/NAUs_{hour}00flash_{day}{month}_nola.mp3"

	var hits atomic.Int32
	srv := hourServer(t, map[string]bool{"/202407/NAUs_0900flash_0907_nola.mp3": true}, &hits)
	r := newTestResolver(t, Options{Now: func() time.Time { return now }, Endpoints: Endpoints{ABC: srv.URL + tmpl}})
	uri, ok := r.Resolve(context.Background(), catalog.Custom("abc"))
	require.True(t, ok)
	assert.Equal(t, srv.URL+"/202407/NAUs_0900flash_0907_nola.mp3", uri)

	// neither this hour nor the previous one is published
	hits.Store(0)
	srv2 := hourServer(t, nil, &hits)
	r = newTestResolver(t, Options{Now: func() time.Time { return now }, Endpoints: Endpoints{ABC: srv2.URL + tmpl}})
	_, ok = r.Resolve(context.Background(), catalog.Custom("abc"))
	assert.False(t, ok)
	assert.EqualValues(t, abcAttempts, hits.Load())
}

func TestFetchGPB(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, feedXML, srv.URL+"/post")
	})
	mux.HandleFunc("/post", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><a href="/about">x</a><a href="https://gpb.example/h/0600.mp3">listen</a></html>`))
	})

	r := newTestResolver(t, Options{Endpoints: Endpoints{GPBFeed: srv.URL + "/feed"}})
	uri, ok := r.Resolve(context.Background(), catalog.Custom("gpb"))
	require.True(t, ok)
	assert.Equal(t, "https://gpb.example/h/0600.mp3", uri)
}

func TestFetchNPR_StripsQuery(t *testing.T) {
	srv := feedServer(t, nil)
	r := newTestResolver(t, Options{Endpoints: Endpoints{NPRFeed: srv.URL}})
	uri, ok := r.Resolve(context.Background(), catalog.Custom("npr"))
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/news/latest.mp3", uri)
}

func TestTransport_GzipFeed(t *testing.T) {
	var gotUA, gotAE string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA, gotAE = r.Header.Get("User-Agent"), r.Header.Get("Accept-Encoding")
		var buf bytes.Buffer
		zw := kgzip.NewWriter(&buf)
		fmt.Fprintf(zw, feedXML, "https://example.com/post")
		_ = zw.Close()
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	r := newTestResolver(t, Options{UserAgent: "newscast-test"})
	uri, ok := r.Resolve(context.Background(), catalog.RSS(srv.URL))
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/news/latest.mp3?utm=feed", uri)
	assert.Equal(t, "newscast-test", gotUA)
	assert.Equal(t, acceptEncoding, gotAE)
}

func TestHourlyURL(t *testing.T) {
	at := time.Date(2024, 1, 5, 7, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024/01/05/not07.mp3", hourlyURL("{year}/{month}/{day}/not{hour}.mp3", at))
}
