package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/ringfit/internal/measure"
	"github.com/ayusman/ringfit/internal/vision"
)

func TestMeasureHandler_RawBody(t *testing.T) {
	m := newFakeMeasurer()
	handler := NewMeasureHandler(m, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/measure", bytes.NewReader(pngBytes(t)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var res measure.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if res.RingSize.US != 8 {
		t.Errorf("expected US 8, got %v", res.RingSize.US)
	}
	if len(m.captures) != 1 || m.captures[0].MIMEType != "image/png" {
		t.Errorf("captures = %+v", m.captures)
	}
}

func TestMeasureHandler_Multipart(t *testing.T) {
	m := newFakeMeasurer()
	handler := NewMeasureHandler(m, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "hand.png")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(pngBytes(t))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/measure", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if len(m.captures) != 1 {
		t.Fatalf("expected one capture, got %d", len(m.captures))
	}
}

func TestMeasureHandler_BadInput(t *testing.T) {
	tests := []struct {
		name        string
		body        []byte
		contentType string
		want        int
	}{
		{name: "empty body", body: nil, want: http.StatusBadRequest},
		{name: "not an image", body: []byte("definitely not an image"), want: http.StatusUnsupportedMediaType},
		{name: "multipart without image", body: []byte("--x--\r\n"), contentType: "multipart/form-data; boundary=x", want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newFakeMeasurer()
			handler := NewMeasureHandler(m, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/measure", bytes.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
			if len(m.captures) != 0 {
				t.Error("measurer should not be called")
			}
		})
	}
}

func TestMeasureHandler_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "exhausted",
			err:  &measure.ExhaustedError{Message: measure.ExhaustedMessage, Notes: []string{"cloud: unavailable"}},
			want: http.StatusUnprocessableEntity,
		},
		{name: "busy", err: fmt.Errorf("%w: %w", measure.ErrBusy, context.Canceled), want: http.StatusServiceUnavailable},
		{name: "cancelled", err: context.Canceled, want: http.StatusServiceUnavailable},
		{name: "unexpected", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newFakeMeasurer()
			m.err = tt.err
			handler := NewMeasureHandler(m, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/measure", bytes.NewReader(pngBytes(t)))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestMeasureHandler_ExhaustedMessage(t *testing.T) {
	m := newFakeMeasurer()
	m.err = &measure.ExhaustedError{Message: measure.ExhaustedMessage, Notes: []string{"a", "b"}}
	handler := NewMeasureHandler(m, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/measure", bytes.NewReader(pngBytes(t)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var body struct {
		Error string   `json:"error"`
		Notes []string `json:"notes"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Error != measure.ExhaustedMessage {
		t.Errorf("expected user message, got %q", body.Error)
	}
	if len(body.Notes) != 2 {
		t.Errorf("expected 2 notes, got %v", body.Notes)
	}
}

func TestMeasureHandler_ConcurrentRequestsWait(t *testing.T) {
	analyzer := vision.NewMockAnalyzer()
	analyzer.SetAnalysis(vision.Analysis{
		Reference: &vision.Reference{Type: "credit_card", KnownWidthMM: 85.6, MeasuredWidthPX: 214},
		Finger:    vision.Finger{MeasuredWidthPX: 46},
	})
	analyzer.SetDelay(100 * time.Millisecond)
	handler := NewMeasureHandler(measure.New(measure.Options{Vision: analyzer}), nil)

	body := pngBytes(t)
	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/measure", bytes.NewReader(body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	for i, code := range codes {
		if code != http.StatusOK {
			t.Errorf("request %d: expected status %d, got %d", i, http.StatusOK, code)
		}
	}
	if analyzer.Calls() != 2 {
		t.Errorf("expected both requests to be measured, got %d calls", analyzer.Calls())
	}
}

func TestMeasureHandler_WaitCancelled(t *testing.T) {
	analyzer := vision.NewMockAnalyzer()
	analyzer.SetDelay(time.Second)
	orch := measure.New(measure.Options{Vision: analyzer})
	handler := NewMeasureHandler(orch, nil)

	body := pngBytes(t)
	first := make(chan struct{})
	go func() {
		defer close(first)
		orch.Measure(context.Background(), measure.Capture{Image: body, MIMEType: "image/png"})
	}()
	deadline := time.Now().Add(time.Second)
	for orch.State() == measure.StateIdle && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/measure", bytes.NewReader(body)).WithContext(ctx)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
	<-first
}

func TestMeasureHandler_Diameter(t *testing.T) {
	t.Run("valid diameter", func(t *testing.T) {
		m := newFakeMeasurer()
		handler := NewMeasureHandler(m, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/measure/diameter", strings.NewReader(`{"diameter_mm": 17.3}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if m.diameter != 17.3 {
			t.Errorf("expected diameter 17.3, got %v", m.diameter)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		handler := NewMeasureHandler(newFakeMeasurer(), nil)
		req := httptest.NewRequest(http.MethodPost, "/api/measure/diameter", strings.NewReader(`{`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("non-positive diameter", func(t *testing.T) {
		handler := NewMeasureHandler(newFakeMeasurer(), nil)
		req := httptest.NewRequest(http.MethodPost, "/api/measure/diameter", strings.NewReader(`{"diameter_mm": 0}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("outside chart", func(t *testing.T) {
		m := newFakeMeasurer()
		m.err = fmt.Errorf("40.00 mm: %w", measure.ErrInvalidDiameter)
		handler := NewMeasureHandler(m, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/measure/diameter", strings.NewReader(`{"diameter_mm": 40}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, rec.Code)
		}
	})
}

func TestMeasureHandler_Routing(t *testing.T) {
	handler := NewMeasureHandler(newFakeMeasurer(), nil)

	t.Run("only allows POST", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/measure", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})

	t.Run("unknown subpath", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/measure/other", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}
