package vision

import (
	"context"
	"sync"
	"time"
)

// MockAnalyzer is a test implementation of the Analyzer interface.
type MockAnalyzer struct {
	mu          sync.Mutex
	analysis    Analysis
	err         error
	unavailable error
	delay       time.Duration
	calls       int
}

// NewMockAnalyzer creates an available analyzer returning an empty Analysis.
func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{}
}

// SetAnalysis sets the analysis returned by Analyze.
func (m *MockAnalyzer) SetAnalysis(a Analysis) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analysis = a
}

// SetError sets the error returned by Analyze.
func (m *MockAnalyzer) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetUnavailable sets the error returned by Available.
func (m *MockAnalyzer) SetUnavailable(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = err
}

// SetDelay makes Analyze wait before answering, honoring ctx.
func (m *MockAnalyzer) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Calls returns the number of Analyze calls.
func (m *MockAnalyzer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Available returns the configured availability error.
func (m *MockAnalyzer) Available() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unavailable
}

// Analyze returns the configured analysis or error.
func (m *MockAnalyzer) Analyze(ctx context.Context, req Request) (Analysis, error) {
	m.mu.Lock()
	m.calls++
	a, err, delay := m.analysis, m.err, m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Analysis{}, ctx.Err()
		}
	}
	if err != nil {
		return Analysis{}, err
	}
	return a, nil
}
