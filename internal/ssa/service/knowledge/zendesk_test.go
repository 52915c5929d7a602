package knowledge

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_FollowsPagesAndFilters(t *testing.T) {
	var hits atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		switch {
		case n == 2:
			// first try of page 2 is rate limited
			w.WriteHeader(http.StatusTooManyRequests)
		case r.URL.Query().Get("page") == "":
			fmt.Fprintf(w, `{"articles":[
				{"id":1,"html_url":"https://ajuda/1","title":"A","body":"<b>a</b>","locale":"pt-br","updated_at":"1"},
				{"id":2,"html_url":"https://ajuda/2","title":"Rascunho","draft":true,"locale":"pt-br"},
				{"id":3,"html_url":"https://ajuda/3","title":"English","locale":"en-us"}
			],"next_page":"%s/articles.json?page=2"}`, srv.URL)
		default:
			fmt.Fprint(w, `{"articles":[{"id":4,"html_url":"https://ajuda/4","title":"B","locale":"pt-br"}],"next_page":null}`)
		}
	}))
	defer srv.Close()

	f := &Fetcher{URL: srv.URL + "/articles.json", RateLimitWait: time.Millisecond}
	articles, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, int64(1), articles[0].ID)
	assert.Equal(t, "https://ajuda/1", articles[0].URL)
	assert.Equal(t, int64(4), articles[1].ID)
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetcher_ErrorKeepsCollected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := (&Fetcher{URL: srv.URL}).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestLoadExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"articles":[
		{"id":7,"html_url":"u","title":"T","locale":"pt-br"},
		{"id":8,"html_url":"u","title":"T","locale":"es"}]}`), 0o644))

	articles, err := LoadExport(path, "")
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, int64(7), articles[0].ID)

	articles, err = LoadExport(path, "es")
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, int64(8), articles[0].ID)
}
