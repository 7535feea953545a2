package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"golang.org/x/crypto/bcrypt"

	"onebid/internal/config"
	"onebid/internal/http/handlers"
	"onebid/internal/metrics"
	"onebid/internal/realtime"
	"onebid/internal/repos"
)

type logEntry struct {
	Level  string                 `json:"level"`
	Action string                 `json:"action"`
	Status int                    `json:"status"`
	Fields map[string]interface{} `json:"fields"`
}

// capture logs by temporarily replacing the standard logger output
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(&lockedWriter{w: &buf, mu: &mu})
	log.SetFlags(0) // remove timestamps to make JSON parseable
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

func findLog(entries []logEntry, action string) *logEntry {
	for i := range entries {
		if entries[i].Action == action {
			return &entries[i]
		}
	}
	return nil
}

type testApp struct {
	*fiber.App
	deps *handlers.Deps
	cfg  config.Config
}

// newApp wires the full API against an in-memory database.
func newApp(t *testing.T, lim handlers.Limits) *testApp {
	t.Helper()
	cfg := config.Defaults()
	cfg.DBDSN = ":memory:"
	cfg.MediaDir = t.TempDir()
	cfg.JWTSecret = "test-secret"
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := metrics.New()
	deps := handlers.NewDeps(db, cfg, m, realtime.NewHub(), nil)
	deps.Auth.Cost = bcrypt.MinCost

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler, BodyLimit: cfg.MaxUploadBytes + 1<<20})
	app.Use(requestid.New())
	app.Use(handlers.RequestMetrics(m))
	handlers.Register(app, deps, lim)
	return &testApp{App: app, deps: deps, cfg: cfg}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
	Code  string          `json:"code"`
}

func (a *testApp) do(t *testing.T, req *http.Request, token string) (*http.Response, envelope) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	body, _ := io.ReadAll(resp.Body)
	var env envelope
	_ = json.Unmarshal(body, &env)
	return resp, env
}

func (a *testApp) call(t *testing.T, method, path, token string, body any) (*http.Response, envelope) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return a.do(t, req, token)
}

type sessionData struct {
	Token   string `json:"token"`
	Profile struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"profile"`
}

const testPassword = "Passw0rd!"

func (a *testApp) signup(t *testing.T, email string) sessionData {
	t.Helper()
	resp, env := a.call(t, "POST", "/auth/signup", "", fiber.Map{
		"email": email, "password": testPassword, "firstName": "Test", "lastName": "User",
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("signup %s: status %d (%s)", email, resp.StatusCode, env.Error)
	}
	var s sessionData
	if err := json.Unmarshal(env.Data, &s); err != nil || s.Token == "" {
		t.Fatalf("signup %s: bad session %s", email, env.Data)
	}
	return s
}

func (a *testApp) deposit(t *testing.T, token, amount string) {
	t.Helper()
	resp, env := a.call(t, "POST", "/wallet/transaction", token, fiber.Map{"type": "deposit", "amount": amount})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("deposit: status %d (%s)", resp.StatusCode, env.Error)
	}
}

func (a *testApp) balance(t *testing.T, token string) float64 {
	t.Helper()
	resp, env := a.call(t, "GET", "/me", token, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("me: status %d", resp.StatusCode)
	}
	var me struct {
		Balance float64 `json:"balance"`
	}
	if err := json.Unmarshal(env.Data, &me); err != nil {
		t.Fatalf("me: %v", err)
	}
	return me.Balance
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

// listingForm builds a multipart body with fields and one image per entry
// in images.
func listingForm(t *testing.T, fields map[string]string, images ...[]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for i, img := range images {
		fw, err := w.CreateFormFile("images", "img"+string(rune('a'+i))+".png")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write(img)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

type listingData struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

func (a *testApp) createListing(t *testing.T, token string, fields map[string]string) listingData {
	t.Helper()
	body, ct := listingForm(t, fields, pngHeader)
	req := httptest.NewRequest("POST", "/listings", body)
	req.Header.Set("Content-Type", ct)
	resp, env := a.do(t, req, token)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("create listing: status %d (%s)", resp.StatusCode, env.Error)
	}
	var l listingData
	if err := json.Unmarshal(env.Data, &l); err != nil || l.ID == "" {
		t.Fatalf("create listing: bad body %s", env.Data)
	}
	return l
}

func mustDecode(t *testing.T, raw json.RawMessage, v any) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}
