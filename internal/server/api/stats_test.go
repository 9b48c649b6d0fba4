package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestStatsHandler(t *testing.T) {
	s := newTestStore(t)
	handler := NewStatsHandler(s)

	if err := s.Stats().Increment("measure.cloud_success", 200*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := s.Stats().Increment("measure.cloud_success", 400*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var response listStatsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Stats) != 1 {
		t.Fatalf("expected 1 stat, got %d", len(response.Stats))
	}
	st := response.Stats[0]
	if st.Count != 2 || st.AverageMS != 300 {
		t.Errorf("unexpected stat %+v", st)
	}

	t.Run("reset", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/stats", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
		}

		stats, err := s.Stats().List()
		if err != nil {
			t.Fatal(err)
		}
		if len(stats) != 0 {
			t.Errorf("expected no stats after reset, got %d", len(stats))
		}
	})
}
