package cmd

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tank-sim/tank-sim/sim"
	"github.com/tank-sim/tank-sim/sim/export"
	"github.com/tank-sim/tank-sim/sim/jobs"
)

// newServedJob runs a one-day job with 500-row chunks and returns a server
// over its output directory and job store.
func newServedJob(t *testing.T) (*cacheServer, *jobs.SQLiteStore) {
	t.Helper()
	store := openStore(t)
	opts := testOptions(t)
	opts.Days = 1
	opts.JobID = "served"
	opts.ChunkSize = 500
	opts.Store = store
	_, err := runJob(context.Background(), opts)
	require.NoError(t, err)

	srv := newCacheServer(opts.OutDir, store)
	srv.poll = 10 * time.Millisecond
	return srv, store
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServe_Health(t *testing.T) {
	rec := get(t, newCacheServer(t.TempDir(), nil).routes(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServe_CacheRoutes(t *testing.T) {
	srv, _ := newServedJob(t)
	h := srv.routes()

	t.Run("metadata is the chunk index", func(t *testing.T) {
		rec := get(t, h, "/cache/served/metadata")
		require.Equal(t, http.StatusOK, rec.Code)
		var idx export.ChunkIndex
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &idx))
		assert.Equal(t, sim.MinutesPerDay, idx.TotalRows)
		assert.Equal(t, 3, idx.Chunks)
		assert.Equal(t, export.Columns, idx.Columns)
	})

	t.Run("chunks hold their slice of rows", func(t *testing.T) {
		rec := get(t, h, "/cache/served/chunk/0")
		require.Equal(t, http.StatusOK, rec.Code)
		var rows []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
		assert.Len(t, rows, 500)

		rec = get(t, h, "/cache/served/chunk/2")
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
		assert.Len(t, rows, sim.MinutesPerDay-1000)
	})

	t.Run("missing job or chunk is 404", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, get(t, h, "/cache/served/chunk/3").Code)
		assert.Equal(t, http.StatusNotFound, get(t, h, "/cache/other/metadata").Code)
		assert.Equal(t, http.StatusNotFound, get(t, h, "/cache/other/chunk/0").Code)
	})

	t.Run("chunk number must be numeric", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, get(t, h, "/cache/served/chunk/abc").Code)
		assert.Equal(t, http.StatusBadRequest, get(t, h, "/cache/served/chunk/-1").Code)
	})

	t.Run("metrics count served and missing documents", func(t *testing.T) {
		body := get(t, h, "/metrics").Body.String()
		assert.Contains(t, body, "tanksim_cache_chunks_served_total 3")
		assert.Contains(t, body, "tanksim_cache_not_found_total 3")
		assert.Contains(t, body, "tanksim_job_websocket_clients 0")
	})
}

func TestServe_JobStatus(t *testing.T) {
	srv, _ := newServedJob(t)
	h := srv.routes()

	rec := get(t, h, "/jobs/served")
	require.Equal(t, http.StatusOK, rec.Code)
	var job jobs.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, jobs.StatusCompleted, job.Status)
	assert.Equal(t, 100.0, job.Progress)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/jobs/unknown").Code)
}

func TestServe_JobStatusWithoutStore(t *testing.T) {
	rec := get(t, newCacheServer(t.TempDir(), nil).routes(), "/jobs/any")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func dialJob(t *testing.T, ts *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/jobs/" + id + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func TestServe_JobStream_TerminalJobClosesAfterOneMessage(t *testing.T) {
	srv, _ := newServedJob(t)
	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	conn := dialJob(t, ts, "served")

	var job jobs.Job
	require.NoError(t, conn.ReadJSON(&job))
	assert.Equal(t, jobs.StatusCompleted, job.Status)

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestServe_JobStream_PushesChanges(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	require.NoError(t, store.Register(ctx, jobs.Job{ID: "live", TankID: 1, Status: jobs.StatusRunning}))
	srv := newCacheServer(t.TempDir(), store)
	srv.poll = 10 * time.Millisecond
	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	// GIVEN a client watching a running job
	conn := dialJob(t, ts, "live")
	var job jobs.Job
	require.NoError(t, conn.ReadJSON(&job))
	assert.Equal(t, jobs.StatusRunning, job.Status)

	// WHEN the job advances and then completes
	require.NoError(t, store.Update(ctx, jobs.Job{ID: "live", TankID: 1, Status: jobs.StatusGeneratingFiles, Progress: 70}))
	require.NoError(t, conn.ReadJSON(&job))
	assert.Equal(t, jobs.StatusGeneratingFiles, job.Status)
	assert.Equal(t, 70.0, job.Progress)

	require.NoError(t, store.Update(ctx, jobs.Job{ID: "live", TankID: 1, Status: jobs.StatusCompleted, Progress: 100}))
	require.NoError(t, conn.ReadJSON(&job))

	// THEN the final record arrives and the stream closes normally
	assert.Equal(t, jobs.StatusCompleted, job.Status)
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestServe_JobStream_UnknownJobIs404(t *testing.T) {
	srv := newCacheServer(t.TempDir(), openStore(t))
	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/jobs/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
