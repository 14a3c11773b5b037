package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher() *Fetcher {
	return NewFetcher(FetcherOptions{
		UserAgent:      "test-bot",
		RequestsPerSec: 1000,
		Timeout:        2 * time.Second,
		MaxElapsed:     3 * time.Second,
	})
}

func TestFetcher_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "test-bot", r.UserAgent())
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	resp, err := newTestFetcher().Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetcher_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDiscoverFavicon_LinkTag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head>
			<link rel="icon" href="/static/favicon-16.png" sizes="16x16">
			<link rel="apple-touch-icon" href="/static/touch.png">
		</head></html>`))
	}))
	defer srv.Close()

	icon, err := newTestFetcher().DiscoverFavicon(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/static/touch.png", icon)
}

func TestDiscoverFavicon_FallsBackToFaviconICO(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/favicon.ico" {
			w.Header().Set("Content-Type", "image/x-icon")
			_, _ = w.Write([]byte{0, 0, 1, 0})
			return
		}
		_, _ = w.Write([]byte(`<html><head><title>no icon</title></head></html>`))
	}))
	defer srv.Close()

	icon, err := newTestFetcher().DiscoverFavicon(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/favicon.ico", icon)
}

func TestDiscoverFavicon_GoogleFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	icon, err := newTestFetcher().DiscoverFavicon(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, googleFaviconService+url.QueryEscape(u.Hostname()), icon)
}

const forumHTML = `<ul>
<li class="topic-item">
  <a class="topic-title" href="/t/1001#reply">【中金公司】2025暑期实习内推</a>
  <span class="topic-author">学长A</span>
  <span class="topic-time">2025-03-01 09:30</span>
</li>
<li class="topic-item">
  <a class="topic-title" href="https://bbs.example.com/t/1002">招商银行2025届内推码</a>
  <span class="topic-author"> 学姐B </span>
  <span class="topic-time">2025-02-28</span>
</li>
<li class="topic-item">
  <a class="topic-title" href="/t/1001">【中金公司】重复链接</a>
</li>
<li class="topic-item"><span class="topic-title"></span></li>
</ul>`

func TestParseReferralList(t *testing.T) {
	page, _ := url.Parse("https://bbs.example.com/forum/referral?page=1")
	sel := Selectors{Item: "li.topic-item", Title: "a.topic-title", Author: ".topic-author", Time: ".topic-time"}

	refs, err := ParseReferralList([]byte(forumHTML), page, "bbs", sel)
	require.NoError(t, err)
	require.Len(t, refs, 2)

	assert.Equal(t, "https://bbs.example.com/t/1001", refs[0].SourceURL)
	assert.Equal(t, "中金公司", refs[0].CompanyName)
	assert.Equal(t, "学长A", refs[0].AuthorName)
	require.NotNil(t, refs[0].PostedAt)
	assert.Equal(t, time.Date(2025, 3, 1, 1, 30, 0, 0, time.UTC), refs[0].PostedAt.UTC())

	assert.Equal(t, "招商银行", refs[1].CompanyName)
	assert.Equal(t, "学姐B", refs[1].AuthorName)
	assert.Equal(t, "bbs", refs[1].Source)
}

func TestInferCompany(t *testing.T) {
	cases := map[string]string{
		"【中金公司】2025暑期实习内推": "中金公司",
		"招商银行2025届内推码":     "招商银行",
		"中信证券 内推 投行部实习":    "中信证券",
		"内推：某银行总行管培生":      "",
		"没有关键字的帖子":         "",
		"[华泰证券] 研究所实习生":    "华泰证券",
	}
	for title, want := range cases {
		assert.Equal(t, want, InferCompany(title), title)
	}
}

func TestParsePostTime(t *testing.T) {
	_, ok := ParsePostTime("昨天")
	assert.False(t, ok)

	ts, ok := ParsePostTime(" 2025-01-02 ")
	require.True(t, ok)
	assert.Equal(t, 2025, ts.Year())
	assert.Equal(t, time.Month(1), ts.Month())
}
