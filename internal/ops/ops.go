// Package ops serves the auxiliary HTTP endpoints: a landing page, a health
// probe, and a helper to (re)register the Telegram webhook.
package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"

	"github.com/caldarelli/barbot/internal/config"
	"github.com/caldarelli/barbot/internal/logger"
)

// Server is the auxiliary HTTP server running next to the bot.
type Server struct {
	cfg  *config.Config
	db   *sqlx.DB
	http *http.Server

	// telegramAPI is swapped in tests.
	telegramAPI string
}

// NewServer builds the ops server. db may be nil; the health probe then
// reports only process liveness.
func NewServer(cfg *config.Config, db *sqlx.DB) *Server {
	s := &Server{
		cfg:         cfg,
		db:          db,
		telegramAPI: "https://api.telegram.org",
	}
	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Ops.Listen, cfg.Ops.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Routes builds the router. Exposed separately so tests can drive it with
// httptest without opening a port.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Get("/setwebhook", s.handleSetWebhook)
	return r
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Ops.Info("ops server listening",
			slog.String("event", "ops.listen"),
			slog.String("addr", s.http.Addr),
		)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="it">
<head><meta charset="utf-8"><title>%s</title></head>
<body>
<h1>🍹 %s</h1>
<p>Il bot Telegram è attivo.</p>
<p>%s · %s · %s</p>
<p><a href="/healthz">healthz</a> · <a href="/setwebhook">setwebhook</a></p>
</body>
</html>
`, s.cfg.Bar.Name, s.cfg.Bar.Name, s.cfg.Bar.Address, s.cfg.Bar.Phone, s.cfg.Bar.Hours)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	code := http.StatusOK

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status["database"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

// handleSetWebhook registers the configured public URL with Telegram. Useful
// after deploys when the webhook got dropped or the URL changed.
func (s *Server) handleSetWebhook(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimSpace(s.cfg.Webhook.URL)
	if target == "" {
		http.Error(w, "webhook.url is not configured", http.StatusBadRequest)
		return
	}

	api := fmt.Sprintf("%s/bot%s/setWebhook", s.telegramAPI, s.cfg.Telegram.Token)
	body := url.Values{"url": {target}}.Encode()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, api, strings.NewReader(body))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.Ops.Error("setWebhook failed",
			slog.String("event", "ops.set_webhook"),
			slog.String("err", err.Error()),
		)
		http.Error(w, "telegram unreachable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	logger.Ops.Info("webhook registered",
		slog.String("event", "ops.set_webhook"),
		slog.String("url", target),
		slog.Int("upstream_status", resp.StatusCode),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(payload)
}

// requestLogger writes one line per request in the bot's log format.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Ops.Info("request",
			slog.String("event", "ops.request"),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("code", ww.Status()),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
	})
}
