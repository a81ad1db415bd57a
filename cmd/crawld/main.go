// Entry point for the crawld HTTP service — chi router, crawl sessions,
// optional MCP over stdio.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/crawld/crawl"
	"github.com/hazyhaar/crawld/dbopen"
	"github.com/hazyhaar/crawld/safeurl"
	"github.com/hazyhaar/crawld/shield"
)

func main() {
	port := env("PORT", "8090")
	dbPath := env("CRAWL_DB", "db/crawl.db")
	mcpTransport := env("MCP_TRANSPORT", "")
	logLevel := env("LOG_LEVEL", "info")

	// Logging.
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Config: optional YAML file, env overrides on top.
	cfg := &crawl.Config{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		loaded, err := crawl.LoadConfigFile(path)
		if err != nil {
			slog.Error("load config", "path", path, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxDepth = n
		}
	}
	if v := os.Getenv("CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Concurrency = n
		}
	}
	if v := os.Getenv("USE_BROWSER"); v == "1" || v == "true" {
		cfg.UseBrowser = true
	}
	if v := os.Getenv("BROWSER_URL"); v != "" {
		cfg.BrowserURL = v
	}

	// Link store DB.
	db, err := dbopen.Open(dbPath, dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("crawl db", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := crawl.ApplySchema(db); err != nil {
		slog.Error("apply schema", "error", err)
		os.Exit(1)
	}

	// Crawl service.
	svc, err := crawl.New(db, cfg, crawl.WithLogger(logger), crawl.WithBaseContext(ctx))
	if err != nil {
		slog.Error("crawl service", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	// MCP over stdio: serve tools instead of HTTP and exit when the
	// client disconnects.
	if mcpTransport == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "crawld",
			Version: "1.0.0",
		}, nil)
		svc.RegisterMCP(mcpSrv)
		if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			slog.Error("MCP stdio", "error", err)
			os.Exit(1)
		}
		return
	}

	// Router.
	r := chi.NewRouter()
	for _, mw := range shield.DefaultAPIStack(logger) {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Sessions.
	r.Post("/api/crawl", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL      string   `json:"url"`
			Keywords []string `json:"keywords"`
			MaxDepth *int     `json:"max_depth"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		depth := -1
		if req.MaxDepth != nil {
			depth = *req.MaxDepth
		}
		info, err := svc.StartCrawl(r.Context(), req.URL, req.Keywords, depth)
		if err != nil {
			writeCrawlError(w, err)
			return
		}
		writeJSON(w, 202, info)
	})

	r.Delete("/api/crawl", func(w http.ResponseWriter, _ *http.Request) {
		info, err := svc.CancelCrawl()
		if err != nil {
			writeCrawlError(w, err)
			return
		}
		writeJSON(w, 200, info)
	})

	r.Get("/api/crawl", func(w http.ResponseWriter, _ *http.Request) {
		info := svc.Status()
		if info == nil {
			writeJSON(w, 200, map[string]any{"running": false})
			return
		}
		writeJSON(w, 200, info)
	})

	r.Post("/api/crawl/resume", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Keywords []string `json:"keywords"`
			MaxDepth *int     `json:"max_depth"`
		}
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&req) // empty body means defaults
		}
		depth := -1
		if req.MaxDepth != nil {
			depth = *req.MaxDepth
		}
		info, err := svc.Resume(r.Context(), req.Keywords, depth)
		if err != nil {
			writeCrawlError(w, err)
			return
		}
		writeJSON(w, 202, info)
	})

	// Links.
	r.Get("/api/links", func(w http.ResponseWriter, r *http.Request) {
		links, err := svc.ListLinks(r.Context(), crawl.ListFilter{
			Status: r.URL.Query().Get("status"),
			Search: r.URL.Query().Get("q"),
			Limit:  queryInt(r, "limit", 100),
		})
		if err != nil {
			writeCrawlError(w, err)
			return
		}
		writeJSON(w, 200, links)
	})

	r.Get("/api/links/get", func(w http.ResponseWriter, r *http.Request) {
		rec, err := svc.GetLink(r.Context(), r.URL.Query().Get("url"))
		if err != nil {
			writeCrawlError(w, err)
			return
		}
		writeJSON(w, 200, rec)
	})

	r.Post("/api/links/retry", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL string `json:"url"`
			All bool   `json:"all"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		if req.All {
			urls, err := svc.RetryAllFailed(r.Context())
			if err != nil {
				writeCrawlError(w, err)
				return
			}
			writeJSON(w, 200, map[string]any{"reset": len(urls), "urls": urls})
			return
		}
		if err := svc.RetryLink(r.Context(), req.URL); err != nil {
			writeCrawlError(w, err)
			return
		}
		writeJSON(w, 200, map[string]string{"status": crawl.StatusPending})
	})

	r.Delete("/api/links", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.ClearAll(r.Context()); err != nil {
			writeCrawlError(w, err)
			return
		}
		writeJSON(w, 200, map[string]string{"status": "cleared"})
	})

	r.Get("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			writeCrawlError(w, err)
			return
		}
		writeJSON(w, 200, stats)
	})

	// HTTP server.
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// --- Helpers ---

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// writeCrawlError maps service sentinels onto HTTP status codes.
func writeCrawlError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, crawl.ErrNotFound):
		writeError(w, 404, err)
	case errors.Is(err, crawl.ErrSessionActive),
		errors.Is(err, crawl.ErrInvalidTransition):
		writeError(w, 409, err)
	case errors.Is(err, crawl.ErrNoSession):
		writeError(w, 404, err)
	case errors.Is(err, crawl.ErrInvalidInput),
		errors.Is(err, safeurl.ErrSSRF),
		errors.Is(err, safeurl.ErrPathTraversal),
		errors.Is(err, safeurl.ErrUnsafeScheme):
		writeError(w, 400, err)
	case errors.Is(err, crawl.ErrStoreUnavailable):
		writeError(w, 503, err)
	default:
		writeError(w, 500, err)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
