package mcp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pmaojo/xcodeproj-mcp/internal/xcodeproj/metrics"
)

// Handler serves the streamable MCP endpoint at /mcp together with /metrics
// and /healthz.
func (xs *XcodeprojServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(xs.requestLogger)

	streamable := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return xs.Server }, nil)
	r.Handle("/mcp", streamable)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok\n"))
	})
	return r
}

func (xs *XcodeprojServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		xs.logger.Debug("http request", "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "elapsed", time.Since(start).Round(time.Millisecond))
	})
}
