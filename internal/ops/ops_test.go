package ops

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/caldarelli/barbot/internal/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Telegram.Token = "123:test"
	cfg.Telegram.RunMode = config.RunModeLongpoll
	if err := config.Normalize(cfg); err != nil {
		panic(err)
	}
	return cfg
}

func TestIndexShowsBarIdentity(t *testing.T) {
	s := NewServer(testConfig(), nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Bar Caldarelli") || !strings.Contains(body, "Via Roma 123") {
		t.Fatalf("index body = %q", body)
	}
}

func TestHealthWithoutDatabase(t *testing.T) {
	s := NewServer(testConfig(), nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["status"] != "ok" {
		t.Fatalf("health = %v", got)
	}
}

func TestSetWebhookRequiresURL(t *testing.T) {
	s := NewServer(testConfig(), nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/setwebhook", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSetWebhookForwardsToTelegram(t *testing.T) {
	var gotPath, gotBody string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	defer upstream.Close()

	cfg := testConfig()
	cfg.Webhook.URL = "https://bot.example.com/webhook"
	s := NewServer(cfg, nil)
	s.telegramAPI = upstream.URL

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/setwebhook", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if gotPath != "/bot123:test/setWebhook" {
		t.Fatalf("upstream path = %q", gotPath)
	}
	if !strings.Contains(gotBody, "bot.example.com") {
		t.Fatalf("upstream body = %q", gotBody)
	}
	if !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("response body = %q", rec.Body.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	s := NewServer(testConfig(), nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
