package vision

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func geminiServer(t *testing.T, status int, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("expected api key header")
		}
		if r.URL.RawQuery != "" {
			t.Errorf("expected no query string, got %q", r.URL.RawQuery)
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gen, _ := req["generationConfig"].(map[string]any)
		if gen["responseMimeType"] != "application/json" {
			t.Errorf("expected JSON response mime type, got %v", gen["responseMimeType"])
		}

		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"quota exceeded","code":429}}`))
			return
		}
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestGemini_Available(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{"no key", Config{}, ErrNoAPIKey},
		{"insecure endpoint", Config{APIKey: "k", BaseURL: "http://example.com", RequireSecure: true}, ErrInsecureTransport},
		{"insecure allowed", Config{APIKey: "k", BaseURL: "http://example.com"}, nil},
		{"default endpoint", Config{APIKey: "k", RequireSecure: true}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewGemini(tt.config, zap.NewNop()).Available()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) || !errors.Is(err, ErrUnavailable) {
				t.Errorf("expected %v wrapped in ErrUnavailable, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGemini_Analyze(t *testing.T) {
	t.Run("reference object", func(t *testing.T) {
		srv := geminiServer(t, http.StatusOK, `{"isMeasurementPossible":true,"referenceObject":{"type":"Credit Card","knownWidthMM":85.6,"measuredWidthPX":214},"finger":{"measuredWidthPX":46},"analysisNotes":"ok"}`)
		defer srv.Close()

		g := NewGemini(Config{APIKey: "test-key", BaseURL: srv.URL}, zap.NewNop())
		a, err := g.Analyze(context.Background(), Request{Image: []byte{0xff, 0xd8}, MIMEType: "image/jpeg"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Reference == nil || a.Finger.MeasuredWidthPX != 46 {
			t.Errorf("unexpected analysis %+v", a)
		}
	})

	t.Run("not possible", func(t *testing.T) {
		srv := geminiServer(t, http.StatusOK, `{"isMeasurementPossible":false,"finger":{"measuredWidthPX":0},"analysisNotes":"blurry"}`)
		defer srv.Close()

		g := NewGemini(Config{APIKey: "test-key", BaseURL: srv.URL}, zap.NewNop())
		_, err := g.Analyze(context.Background(), Request{Image: []byte{1}})
		if !errors.Is(err, ErrNotPossible) {
			t.Errorf("expected ErrNotPossible, got %v", err)
		}
	})

	t.Run("api error", func(t *testing.T) {
		srv := geminiServer(t, http.StatusTooManyRequests, "")
		defer srv.Close()

		g := NewGemini(Config{APIKey: "test-key", BaseURL: srv.URL}, zap.NewNop())
		_, err := g.Analyze(context.Background(), Request{Image: []byte{1}})

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %v", err)
		}
		if apiErr.Message != "quota exceeded" || !apiErr.IsRetryable() {
			t.Errorf("unexpected api error %+v", apiErr)
		}
	})

	t.Run("empty candidates", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"candidates":[]}`))
		}))
		defer srv.Close()

		g := NewGemini(Config{APIKey: "test-key", BaseURL: srv.URL}, zap.NewNop())
		_, err := g.Analyze(context.Background(), Request{Image: []byte{1}})
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("expected ErrMalformed, got %v", err)
		}
	})

	t.Run("transport error hides key", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		addr := srv.URL
		srv.Close()

		g := NewGemini(Config{APIKey: "SECRET-KEY-123", BaseURL: addr}, zap.NewNop())
		_, err := g.Analyze(context.Background(), Request{Image: []byte{1}})
		if err == nil {
			t.Fatal("expected an error from a closed server")
		}
		if strings.Contains(err.Error(), "SECRET-KEY-123") {
			t.Errorf("error text leaks the api key: %v", err)
		}
	})

	t.Run("context cancelled", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		g := NewGemini(Config{APIKey: "test-key", BaseURL: srv.URL}, zap.NewNop())
		if _, err := g.Analyze(ctx, Request{Image: []byte{1}}); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("unavailable", func(t *testing.T) {
		g := NewGemini(Config{}, nil)
		if _, err := g.Analyze(context.Background(), Request{Image: []byte{1}}); !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})
}
