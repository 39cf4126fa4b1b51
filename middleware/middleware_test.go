package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/tokengate"
	"github.com/MrEthical07/tokengate/middleware"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(t *testing.T, sink tokengate.AuditSink) *tokengate.Engine {
	t.Helper()

	cfg := tokengate.DefaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	engine, err := tokengate.New().WithConfig(cfg).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func loginToken(t *testing.T, engine *tokengate.Engine) string {
	t.Helper()

	ctx := context.Background()
	if err := engine.SeedUser(ctx, "mw_user", "mw_pass"); err != nil {
		t.Fatalf("SeedUser failed: %v", err)
	}
	res, err := engine.Login(ctx, "mw_user", "mw_pass")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return res.Token
}

func serve(r *gin.Engine, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

// ---------------------------------------------------------------------------
// Pipeline
// ---------------------------------------------------------------------------

func TestPipelineRunsChecksInOrder(t *testing.T) {
	var order []string
	step := func(name string, out middleware.Outcome) middleware.Check {
		return func(*gin.Context) middleware.Outcome {
			order = append(order, name)
			return out
		}
	}

	r := gin.New()
	r.GET("/x",
		middleware.Pipeline(
			step("first", middleware.Continue()),
			step("second", middleware.Halt(http.StatusTeapot, gin.H{"message": "stop"}).WithHeader("X-Why", "second")),
			step("third", middleware.Continue()),
		),
		func(c *gin.Context) {
			order = append(order, "handler")
			c.Status(http.StatusOK)
		},
	)

	rr := serve(r, http.MethodGet, "/x", "", nil)
	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rr.Code)
	}
	if rr.Header().Get("X-Why") != "second" {
		t.Fatal("expected halt header")
	}
	if strings.Join(order, ",") != "first,second" {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestPipelineHaltWithoutBody(t *testing.T) {
	r := gin.New()
	r.GET("/x", middleware.Pipeline(func(*gin.Context) middleware.Outcome {
		return middleware.Halt(http.StatusUnauthorized, nil)
	}))

	rr := serve(r, http.MethodGet, "/x", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rr.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Guard
// ---------------------------------------------------------------------------

func TestGuard(t *testing.T) {
	engine := newEngine(t, nil)
	token := loginToken(t, engine)

	r := gin.New()
	r.GET("/protected", middleware.Guard(engine), func(c *gin.Context) {
		id, ok := middleware.IdentityFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, id.Username)
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Token " + token, http.StatusUnauthorized},
		{"garbage", "Bearer garbage", http.StatusForbidden},
		{"tampered", "Bearer " + token + "A", http.StatusForbidden},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Authorization", tt.header)
			}
			rr := serve(r, http.MethodGet, "/protected", "", h)
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rr.Code)
			}
			if tt.status != http.StatusOK && rr.Body.Len() != 0 {
				t.Fatalf("expected empty body, got %q", rr.Body.String())
			}
			if tt.status == http.StatusOK && rr.Body.String() != "mw_user" {
				t.Fatalf("expected identity mw_user, got %q", rr.Body.String())
			}
		})
	}
}

// ---------------------------------------------------------------------------
// RateLimit
// ---------------------------------------------------------------------------

func TestRateLimitLoginPolicy(t *testing.T) {
	engine := newEngine(t, nil)

	r := gin.New()
	r.POST("/auth/login", middleware.Pipeline(middleware.RateLimit(engine, tokengate.RatePolicyLogin)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 1; i <= 5; i++ {
		rr := serve(r, http.MethodPost, "/auth/login", "", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i, rr.Code)
		}
		if got := rr.Header().Get("RateLimit-Remaining"); got != strconv.Itoa(5-i) {
			t.Fatalf("attempt %d: expected remaining %d, got %q", i, 5-i, got)
		}
	}

	rr := serve(r, http.MethodPost, "/auth/login", "", nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}

	var body struct {
		Message    string `json:"message"`
		RetryAfter int    `json:"retryAfter"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Message != "Too many login attempts from this IP, please try again after 15 minutes" {
		t.Fatalf("unexpected message %q", body.Message)
	}
	if body.RetryAfter < 14 || body.RetryAfter > 15 {
		t.Fatalf("expected retryAfter about 15 minutes, got %d", body.RetryAfter)
	}
	if rr.Header().Get("Retry-After") == "" || rr.Header().Get("RateLimit-Limit") != "5" {
		t.Fatalf("expected rate limit headers, got %v", rr.Header())
	}
}

func TestRateLimitResetUsesEngineClock(t *testing.T) {
	cfg := tokengate.DefaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	frozen := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	engine, err := tokengate.New().WithConfig(cfg).WithClock(func() time.Time { return frozen }).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	r := gin.New()
	r.GET("/protected", middleware.Pipeline(middleware.RateLimit(engine, tokengate.RatePolicySensitive)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rr := serve(r, http.MethodGet, "/protected", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := rr.Header().Get("RateLimit-Reset"); got != "3600" {
		t.Fatalf("expected RateLimit-Reset 3600 on the engine clock, got %q", got)
	}
}

func TestRateLimitByCustomKey(t *testing.T) {
	engine := newEngine(t, nil)

	byUser := func(c *gin.Context) string { return c.GetHeader("X-User") }
	r := gin.New()
	r.POST("/auth/register", middleware.Pipeline(middleware.RateLimitBy(engine, tokengate.RatePolicyRegister, byUser)), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	for i := 0; i < 3; i++ {
		if rr := serve(r, http.MethodPost, "/auth/register", "", http.Header{"X-User": {"a"}}); rr.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201, got %d", i+1, rr.Code)
		}
	}
	if rr := serve(r, http.MethodPost, "/auth/register", "", http.Header{"X-User": {"a"}}); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr := serve(r, http.MethodPost, "/auth/register", "", http.Header{"X-User": {"b"}}); rr.Code != http.StatusCreated {
		t.Fatalf("expected other key allowed, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// BindCredentials
// ---------------------------------------------------------------------------

func TestBindCredentials(t *testing.T) {
	r := gin.New()
	r.POST("/auth/login", middleware.Pipeline(middleware.BindCredentials()), func(c *gin.Context) {
		creds := middleware.CredentialsFromContext(c)
		c.JSON(http.StatusOK, gin.H{"username": creds.Username, "password": creds.Password})
	})

	rr := serve(r, http.MethodPost, "/auth/login", `{"username":"amy","password":"pw"}`, nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"username":"amy"`) {
		t.Fatalf("expected bound credentials, got %d %s", rr.Code, rr.Body.String())
	}

	rr = serve(r, http.MethodPost, "/auth/login", `{"username":`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for broken JSON, got %d", rr.Code)
	}

	rr = serve(r, http.MethodPost, "/auth/login", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected empty body to pass through, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// RequestID, RequestContext, Recovery, SecurityHeaders
// ---------------------------------------------------------------------------

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, middleware.RequestIDFromContext(c))
	})

	rr := serve(r, http.MethodGet, "/", "", nil)
	generated := rr.Header().Get(middleware.RequestIDHeader)
	if generated == "" || rr.Body.String() != generated {
		t.Fatalf("expected generated id echoed, header %q body %q", generated, rr.Body.String())
	}

	rr = serve(r, http.MethodGet, "/", "", http.Header{middleware.RequestIDHeader: {"abc-123"}})
	if rr.Header().Get(middleware.RequestIDHeader) != "abc-123" {
		t.Fatal("expected incoming id preserved")
	}
}

func TestRequestContextReachesAudit(t *testing.T) {
	sink := tokengate.NewChannelSink(8)
	engine := newEngine(t, sink)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.RequestContext())
	r.GET("/protected", middleware.Guard(engine))

	h := http.Header{
		middleware.RequestIDHeader: {"req-42"},
		"User-Agent":               {"probe/1.0"},
	}
	_ = serve(r, http.MethodGet, "/protected", "", h)

	select {
	case ev := <-sink.Events():
		if ev.Endpoint != "GET /protected" || ev.RequestID != "req-42" || ev.UserAgent != "probe/1.0" {
			t.Fatalf("request context missing from audit event: %+v", ev)
		}
		if ev.IP == "" {
			t.Fatal("expected client IP")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected audit event")
	}
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(middleware.Recovery(zerolog.Nop()))
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	rr := serve(r, http.MethodGet, "/boom", "", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["message"] != "Internal server error" || body["error"] != "Something went wrong" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(middleware.SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rr := serve(r, http.MethodGet, "/", "", nil)
	for _, h := range []string{"Content-Security-Policy", "X-Content-Type-Options", "X-Frame-Options", "Referrer-Policy"} {
		if rr.Header().Get(h) == "" {
			t.Fatalf("expected %s header", h)
		}
	}
}

func TestRequestLoggerWritesLine(t *testing.T) {
	var buf strings.Builder
	log := zerolog.New(&buf)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.RequestLogger(log))
	r.GET("/thing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	_ = serve(r, http.MethodGet, "/health", "", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected health probe to be skipped, got %q", buf.String())
	}

	_ = serve(r, http.MethodGet, "/thing", "", nil)
	var line map[string]any
	if err := json.Unmarshal([]byte(buf.String()), &line); err != nil {
		t.Fatalf("expected one JSON log line, got %q", buf.String())
	}
	if line["level"] != "warn" || line["path"] != "/thing" || line["status"] != float64(404) {
		t.Fatalf("unexpected log line %v", line)
	}
}
