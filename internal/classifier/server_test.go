package classifier

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"scontrini/internal/log"
)

func newTestServer(llm *fakeModel) *Server {
	return NewServer(":0", newService(llm), log.New(slog.LevelError, "test"))
}

func TestClassifyEndpoint(t *testing.T) {
	t.Run("labels valid input", func(t *testing.T) {
		srv := newTestServer(&fakeModel{content: `{"label": "benign", "reason": "fine"}`})
		req := httptest.NewRequest(http.MethodPost, "/classify", strings.NewReader(`{"text": "hello"}`))
		rec := httptest.NewRecorder()
		srv.Server.Handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
		}
		var res Result
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if res.Label != "benign" || res.Reason != "fine" {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("empty text is a client error", func(t *testing.T) {
		srv := newTestServer(&fakeModel{})
		req := httptest.NewRequest(http.MethodPost, "/classify", strings.NewReader(`{"text": ""}`))
		rec := httptest.NewRecorder()
		srv.Server.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("malformed body is a client error", func(t *testing.T) {
		srv := newTestServer(&fakeModel{})
		req := httptest.NewRequest(http.MethodPost, "/classify", strings.NewReader(`{`))
		rec := httptest.NewRecorder()
		srv.Server.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("model failure is a gateway error", func(t *testing.T) {
		srv := newTestServer(&fakeModel{err: errors.New("upstream down")})
		req := httptest.NewRequest(http.MethodPost, "/classify", strings.NewReader(`{"text": "hello"}`))
		rec := httptest.NewRecorder()
		srv.Server.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadGateway {
			t.Errorf("status = %d, want 502", rec.Code)
		}
	})

	t.Run("GET is not allowed", func(t *testing.T) {
		srv := newTestServer(&fakeModel{})
		req := httptest.NewRequest(http.MethodGet, "/classify", nil)
		rec := httptest.NewRecorder()
		srv.Server.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})
}

func TestLandingAndHealth(t *testing.T) {
	srv := newTestServer(&fakeModel{})

	for _, path := range []string{"/", "/index.html"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Server.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Classification API") {
			t.Errorf("%s: status = %d", path, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("/health: status = %d body = %s", rec.Code, rec.Body)
	}
}
