package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticSessionLoadAndSnapshot(t *testing.T) {
	t.Parallel()

	const profile = `<html><body><p>Age: 34</p></body></html>`
	var (
		mu    sync.Mutex
		gotUA string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotUA = r.UserAgent()
		mu.Unlock()
		switch r.URL.Path {
		case "/athlete/101":
			w.Write([]byte(profile)) //nolint:errcheck
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	factory := NewStaticFactory(StaticConfig{UserAgent: "agescraper-test"})
	sess, err := factory.NewSession(context.Background())
	require.NoError(t, err)
	defer sess.Close(context.Background()) //nolint:errcheck

	ctx := context.Background()
	require.NoError(t, sess.Load(ctx, ts.URL+"/athlete/101"))
	mu.Lock()
	assert.Equal(t, "agescraper-test", gotUA)
	mu.Unlock()

	page, err := sess.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, ts.URL+"/athlete/101", page.URL)
	assert.Equal(t, profile, string(page.HTML))

	// Snapshot replays the stored page without refetching.
	again, err := sess.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, page, again)
}

func TestStaticSessionLoadErrors(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	factory := NewStaticFactory(StaticConfig{})
	sess, err := factory.NewSession(context.Background())
	require.NoError(t, err)

	require.Error(t, sess.Load(context.Background(), ts.URL+"/athlete/1"))
}

func TestStaticSessionSnapshotBeforeLoad(t *testing.T) {
	t.Parallel()

	factory := NewStaticFactory(StaticConfig{})
	sess, err := factory.NewSession(context.Background())
	require.NoError(t, err)

	_, err = sess.Snapshot(context.Background())
	require.Error(t, err)
}

func TestStaticSessionRevisit(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("<html><body>Age: 20</body></html>")) //nolint:errcheck
	}))
	defer ts.Close()

	factory := NewStaticFactory(StaticConfig{})
	sess, err := factory.NewSession(context.Background())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sess.Load(ctx, ts.URL+"/athlete/1"))
	require.NoError(t, sess.Load(ctx, ts.URL+"/athlete/1"))
	assert.Equal(t, int32(2), hits.Load())
}
