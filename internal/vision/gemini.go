package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash"
)

// Config configures the Gemini analyzer.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	// RequireSecure refuses to send images to a non-HTTPS endpoint.
	RequireSecure bool
}

// Gemini implements Analyzer with the Gemini generateContent API.
type Gemini struct {
	config Config
	http   *http.Client
	logger *zap.Logger
}

// NewGemini creates an analyzer. It never fails; a missing key is reported
// by Available.
func NewGemini(config Config, logger *zap.Logger) *Gemini {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gemini{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
		logger: logger.With(zap.String("component", "vision.gemini")),
	}
}

// Available checks the preconditions for calling the API.
func (g *Gemini) Available() error {
	if g.config.APIKey == "" {
		return fmt.Errorf("%w: %w", ErrUnavailable, ErrNoAPIKey)
	}
	if g.config.RequireSecure && !strings.HasPrefix(g.config.BaseURL, "https://") {
		return fmt.Errorf("%w: %w", ErrUnavailable, ErrInsecureTransport)
	}
	return nil
}

// Analyze sends the image and validates the structured response.
func (g *Gemini) Analyze(ctx context.Context, req Request) (Analysis, error) {
	if err := g.Available(); err != nil {
		return Analysis{}, err
	}
	if len(req.Image) == 0 {
		return Analysis{}, fmt.Errorf("vision: empty image")
	}
	start := time.Now()

	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	payload := map[string]any{
		"contents": []map[string]any{
			{
				"parts": []map[string]any{
					{
						"inline_data": map[string]string{
							"mime_type": mimeType,
							"data":      base64.StdEncoding.EncodeToString(req.Image),
						},
					},
					{"text": analysisPrompt},
				},
			},
		},
		"generationConfig": map[string]any{
			"temperature":      0,
			"responseMimeType": "application/json",
			"responseSchema":   responseSchema,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Analysis{}, fmt.Errorf("vision: encode request: %w", err)
	}

	// Transport errors quote the URL; the key stays in a header.
	url := fmt.Sprintf("%s/models/%s:generateContent", g.config.BaseURL, g.config.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Analysis{}, fmt.Errorf("vision: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.config.APIKey)

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return Analysis{}, fmt.Errorf("vision: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Analysis{}, parseError(resp)
	}

	var result geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Analysis{}, malformed("decode envelope: %v", err)
	}
	if result.Error.Message != "" {
		return Analysis{}, &APIError{StatusCode: resp.StatusCode, Message: result.Error.Message}
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return Analysis{}, malformed("no response content")
	}

	var text strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	analysis, err := ParseAnalysis([]byte(text.String()))
	g.logger.Debug("analysis finished",
		zap.String("model", g.config.Model),
		zap.Duration("latency", time.Since(start)),
		zap.Bool("reference", analysis.Reference != nil),
		zap.Error(err),
	)
	return analysis, err
}

// parseError reads and parses an error response.
func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	message := string(body)
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}
