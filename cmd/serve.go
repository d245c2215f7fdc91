package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tank-sim/tank-sim/sim/export"
	"github.com/tank-sim/tank-sim/sim/jobs"
)

var (
	serveAddr   string // Listen address
	serveOutDir string // Directory the run command exported to
	serveJobDB  string // SQLite job status database
	serveLog    string // Log verbosity level
)

// defaultPollInterval is how often a websocket re-reads its job record.
const defaultPollInterval = 500 * time.Millisecond

// cacheServer serves exported chunk caches and job status.
type cacheServer struct {
	outDir   string
	store    jobs.Store // nil disables the /jobs routes
	poll     time.Duration
	upgrader websocket.Upgrader

	registry     *prometheus.Registry
	chunksServed prometheus.Counter
	notFound     prometheus.Counter
	wsClients    prometheus.Gauge
}

func newCacheServer(outDir string, store jobs.Store) *cacheServer {
	s := &cacheServer{
		outDir: outDir,
		store:  store,
		poll:   defaultPollInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		registry: prometheus.NewRegistry(),
		chunksServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tanksim_cache_chunks_served_total",
			Help: "Cache chunks and metadata documents served.",
		}),
		notFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tanksim_cache_not_found_total",
			Help: "Requests for a missing job folder, chunk or job record.",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tanksim_job_websocket_clients",
			Help: "Open job progress websocket connections.",
		}),
	}
	s.registry.MustRegister(s.chunksServed, s.notFound, s.wsClients)
	return s
}

func (s *cacheServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /cache/{job_id}/metadata", s.handleMetadata)
	mux.HandleFunc("GET /cache/{job_id}/chunk/{n}", s.handleChunk)
	mux.HandleFunc("GET /jobs/{job_id}", s.handleJob)
	mux.HandleFunc("GET /jobs/{job_id}/ws", s.handleJobStream)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

func (s *cacheServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *cacheServer) handleMetadata(w http.ResponseWriter, r *http.Request) {
	dir, ok := export.FindCacheDir(s.outDir, r.PathValue("job_id"))
	if !ok {
		s.missing(w, "job folder not found")
		return
	}
	s.serveCacheFile(w, filepath.Join(dir, "index.json"), "metadata not found")
}

func (s *cacheServer) handleChunk(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "chunk number must be a non-negative integer")
		return
	}
	dir, ok := export.FindCacheDir(s.outDir, r.PathValue("job_id"))
	if !ok {
		s.missing(w, "job folder not found")
		return
	}
	s.serveCacheFile(w, filepath.Join(dir, export.ChunkFile(n)), "chunk not found")
}

func (s *cacheServer) serveCacheFile(w http.ResponseWriter, path, notFoundMsg string) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		s.missing(w, notFoundMsg)
		return
	}
	if err != nil {
		logrus.Errorf("read %s: %v", path, err)
		writeError(w, http.StatusInternalServerError, "read failed")
		return
	}
	s.chunksServed.Inc()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *cacheServer) handleJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleJobStream pushes the job record each time it changes and closes the
// connection once the job reaches a terminal status.
func (s *cacheServer) handleJobStream(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.lookupJob(w, r); !ok {
		return
	}
	id := r.PathValue("job_id")
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warnf("websocket upgrade for job %s: %v", id, err)
		return
	}
	defer conn.Close()
	s.wsClients.Inc()
	defer s.wsClients.Dec()

	// The client sends nothing; reading only detects that it went away.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	var last jobs.Job
	sent := false
	for {
		job, err := s.store.Get(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logrus.Warnf("websocket job %s: %v", id, err)
			closeStream(conn, websocket.CloseInternalServerErr, "job lookup failed")
			return
		}
		if !sent || job != last {
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(job); err != nil {
				return
			}
			last, sent = job, true
		}
		if job.Status.IsTerminal() {
			closeStream(conn, websocket.CloseNormalClosure, string(job.Status))
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func closeStream(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

func (s *cacheServer) lookupJob(w http.ResponseWriter, r *http.Request) (jobs.Job, bool) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "job store not configured")
		return jobs.Job{}, false
	}
	job, err := s.store.Get(r.Context(), r.PathValue("job_id"))
	if errors.Is(err, jobs.ErrNotFound) {
		s.missing(w, "job not found")
		return jobs.Job{}, false
	}
	if err != nil {
		logrus.Errorf("get job: %v", err)
		writeError(w, http.StatusInternalServerError, "job lookup failed")
		return jobs.Job{}, false
	}
	return job, true
}

func (s *cacheServer) missing(w http.ResponseWriter, msg string) {
	s.notFound.Inc()
	writeError(w, http.StatusNotFound, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// serveCmd runs the cache chunk and job status server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve exported cache chunks and job status",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel(serveLog)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var store jobs.Store
		if serveJobDB != "" {
			st, err := jobs.OpenSQLite(ctx, serveJobDB)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			defer st.Close()
			store = st
		}

		srv := &http.Server{
			Addr:              serveAddr,
			Handler:           newCacheServer(serveOutDir, store).routes(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		logrus.Infof("Serving %s on %s", serveOutDir, serveAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("%v", err)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&serveOutDir, "out-dir", "output", "Directory written by the run command")
	serveCmd.Flags().StringVar(&serveJobDB, "job-db", "", "SQLite database for job status (empty disables /jobs)")
	serveCmd.Flags().StringVar(&serveLog, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.AddCommand(serveCmd)
}
