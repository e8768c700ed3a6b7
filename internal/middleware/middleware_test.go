package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/screening-seat-engine/internal/config"
	"github.com/iliyamo/screening-seat-engine/internal/utils"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func do(e *echo.Echo, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestTokenBucket_LimitsPerClient(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		KeyStrategy:    "client_route",
		Prefix:         "rl",
	}
	e := echo.New()
	e.Use(ClientToken())
	e.POST("/hold", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb))

	alice := map[string]string{ClientTokenHeader: "alice"}
	for i := 0; i < 2; i++ {
		if rec := do(e, http.MethodPost, "/hold", alice); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
	rec := do(e, http.MethodPost, "/hold", alice)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("Retry-After missing")
	}
	if rec := do(e, http.MethodPost, "/hold", map[string]string{ClientTokenHeader: "bob"}); rec.Code != http.StatusNoContent {
		t.Fatalf("another client must have its own bucket, got %d", rec.Code)
	}
}

func TestTokenBucket_FailsOpenWhenRedisDown(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute}
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb))
	for i := 0; i < 3; i++ {
		if rec := do(e, http.MethodGet, "/x", nil); rec.Code != http.StatusNoContent {
			t.Fatalf("expected pass-through, got %d", rec.Code)
		}
	}
}

func TestRedisCache_MissThenHit(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 1024}
	calls := 0
	e := echo.New()
	e.GET("/v1/screenings/:id", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id")})
	}, NewRedisCache(cfg, rdb))

	first := do(e, http.MethodGet, "/v1/screenings/7", nil)
	second := do(e, http.MethodGet, "/v1/screenings/7", nil)
	other := do(e, http.MethodGet, "/v1/screenings/8", nil)

	if first.Header().Get("X-Cache") != "MISS" || second.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("cache headers: %q then %q", first.Header().Get("X-Cache"), second.Header().Get("X-Cache"))
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("cached body differs: %q vs %q", first.Body.String(), second.Body.String())
	}
	if other.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("different ids must not share a cache entry")
	}
	if calls != 2 {
		t.Fatalf("handler called %d times, want 2", calls)
	}
}

func TestRedisCache_SkipsErrors(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache"}
	calls := 0
	e := echo.New()
	e.GET("/missing", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}, NewRedisCache(cfg, rdb))

	do(e, http.MethodGet, "/missing", nil)
	do(e, http.MethodGet, "/missing", nil)
	if calls != 2 {
		t.Fatalf("404 responses must not be cached, handler called %d times", calls)
	}
}

func TestJWTAuthAndRole(t *testing.T) {
	e := echo.New()
	e.GET("/admin", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get("user_id").(string))
	}, JWTAuth("secret"), RequireRole(utils.RoleAdmin))

	if rec := do(e, http.MethodGet, "/admin", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/admin", map[string]string{"Authorization": "Bearer junk"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", rec.Code)
	}

	other, _ := utils.NewAccessToken("secret", "bob", "VIEWER", time.Minute)
	if rec := do(e, http.MethodGet, "/admin", map[string]string{"Authorization": "Bearer " + other.Token}); rec.Code != http.StatusForbidden {
		t.Fatalf("wrong role: %d", rec.Code)
	}

	tok, _ := utils.NewAccessToken("secret", "root", utils.RoleAdmin, time.Minute)
	rec := do(e, http.MethodGet, "/admin", map[string]string{"Authorization": "Bearer " + tok.Token})
	if rec.Code != http.StatusOK || rec.Body.String() != "root" {
		t.Fatalf("admin: %d %q", rec.Code, rec.Body.String())
	}
}

func TestClientToken(t *testing.T) {
	e := echo.New()
	e.Use(ClientToken())
	e.GET("/who", func(c echo.Context) error { return c.String(http.StatusOK, ClientID(c)) })

	if rec := do(e, http.MethodGet, "/who", map[string]string{ClientTokenHeader: "  tab-1 "}); rec.Body.String() != "tab-1" {
		t.Fatalf("got %q", rec.Body.String())
	}
	if rec := do(e, http.MethodGet, "/who", nil); rec.Body.String() != "" {
		t.Fatalf("expected empty token, got %q", rec.Body.String())
	}
}

func postJSON(e *echo.Echo, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestClientToken_BodyWinsAndIsRestored(t *testing.T) {
	e := echo.New()
	e.Use(ClientToken())
	e.POST("/who", func(c echo.Context) error {
		raw, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return err
		}
		return c.String(http.StatusOK, ClientID(c)+"|"+string(raw))
	})

	body := `{"client_id":" tab-2 ","seat_ids":[1]}`
	rec := postJSON(e, "/who", body, map[string]string{ClientTokenHeader: "tab-1"})
	if want := "tab-2|" + body; rec.Body.String() != want {
		t.Fatalf("got %q, want %q", rec.Body.String(), want)
	}
	rec = postJSON(e, "/who", `{"seat_ids":[1]}`, map[string]string{ClientTokenHeader: "tab-1"})
	if !strings.HasPrefix(rec.Body.String(), "tab-1|") {
		t.Fatalf("header must be used when the body has no client_id, got %q", rec.Body.String())
	}
	rec = postJSON(e, "/who", `not json`, nil)
	if rec.Body.String() != "|not json" {
		t.Fatalf("malformed body must pass through untouched, got %q", rec.Body.String())
	}
}

func TestTokenBucket_UsesBodyClientID(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       1,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		KeyStrategy:    "client_route",
		Prefix:         "rl",
	}
	e := echo.New()
	e.Use(ClientToken())
	e.POST("/hold", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb))

	if rec := postJSON(e, "/hold", `{"client_id":"alice"}`, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("alice first request: status %d", rec.Code)
	}
	if rec := postJSON(e, "/hold", `{"client_id":"alice"}`, nil); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("alice second request: expected 429, got %d", rec.Code)
	}
	// same address, different body token: separate bucket
	if rec := postJSON(e, "/hold", `{"client_id":"bob"}`, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("bob must not share alice's bucket, got %d", rec.Code)
	}
}
