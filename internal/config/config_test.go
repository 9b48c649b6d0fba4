package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("RINGFIT_DATA_DIR", "/tmp/ringfit-test")

	c := LoadConfig()

	if c.Server.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", c.Server.Addr)
	}
	if c.Measure.FallbackDiameterMM != 18.1 {
		t.Errorf("FallbackDiameterMM = %v, want 18.1", c.Measure.FallbackDiameterMM)
	}
	if c.Measure.DetectTimeout != 2500*time.Millisecond {
		t.Errorf("DetectTimeout = %v, want 2.5s", c.Measure.DetectTimeout)
	}
	if !c.Vision.RequireSecure {
		t.Error("RequireSecure should default to true")
	}
	if c.Storage.DBPath != filepath.Join("/tmp/ringfit-test", "ringfit.db") {
		t.Errorf("DBPath = %q", c.Storage.DBPath)
	}
	if c.Storage.PluginDir != filepath.Join("/tmp/ringfit-test", "plugins") {
		t.Errorf("PluginDir = %q", c.Storage.PluginDir)
	}
	if c.Tray {
		t.Error("Tray should default to false")
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("RINGFIT_ADDR", "127.0.0.1:9000")
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("GEMINI_TIMEOUT", "5s")
	t.Setenv("FALLBACK_DIAMETER_MM", "17.3")
	t.Setenv("DETECT_TIMEOUT", "1s")
	t.Setenv("CAMERA_ID", "2")
	t.Setenv("TRAY", "1")
	t.Setenv("LOG_FORMAT", "console")

	c := LoadConfig()

	if c.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %q", c.Server.Addr)
	}
	if c.Vision.APIKey != "secret" || c.Vision.Timeout != 5*time.Second {
		t.Errorf("Vision = %+v", c.Vision)
	}
	if c.Measure.FallbackDiameterMM != 17.3 || c.Measure.DetectTimeout != time.Second {
		t.Errorf("Measure = %+v", c.Measure)
	}
	if c.Camera.DeviceID != 2 {
		t.Errorf("DeviceID = %d, want 2", c.Camera.DeviceID)
	}
	if !c.Tray {
		t.Error("Tray = false, want true")
	}
	if c.Logging.Format != "console" {
		t.Errorf("Format = %q", c.Logging.Format)
	}
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("CAMERA_ID", "front")
	t.Setenv("DETECT_TIMEOUT", "soon")
	t.Setenv("FALLBACK_DIAMETER_MM", "wide")
	t.Setenv("TRAY", "maybe")

	c := LoadConfig()

	if c.Camera.DeviceID != 0 {
		t.Errorf("DeviceID = %d, want 0", c.Camera.DeviceID)
	}
	if c.Measure.DetectTimeout != 2500*time.Millisecond {
		t.Errorf("DetectTimeout = %v", c.Measure.DetectTimeout)
	}
	if c.Measure.FallbackDiameterMM != 18.1 {
		t.Errorf("FallbackDiameterMM = %v", c.Measure.FallbackDiameterMM)
	}
	if c.Tray {
		t.Error("Tray = true, want false")
	}
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		c := LoadConfig()
		c.Vision.APIKey = "key"
		c.Vision.BaseURL = "https://example.com"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty addr", mutate: func(c *Config) { c.Server.Addr = "" }, wantErr: "server address"},
		{name: "insecure vision", mutate: func(c *Config) { c.Vision.BaseURL = "http://example.com" }, wantErr: "https"},
		{name: "insecure allowed", mutate: func(c *Config) {
			c.Vision.BaseURL = "http://localhost:8081"
			c.Vision.RequireSecure = false
		}},
		{name: "fallback too small", mutate: func(c *Config) { c.Measure.FallbackDiameterMM = 3 }, wantErr: "fallback diameter"},
		{name: "zero detect timeout", mutate: func(c *Config) { c.Measure.DetectTimeout = 0 }, wantErr: "detect timeout"},
		{name: "negative camera", mutate: func(c *Config) { c.Camera.DeviceID = -1 }, wantErr: "camera id"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "log level"},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)

			err := c.ValidateConfig(zap.NewNop())
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateConfig() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateConfig() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateConfig_WarnsWithoutAPIKey(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := LoadConfig()
	c.Vision.APIKey = ""

	if err := c.ValidateConfig(zap.New(core)); err != nil {
		t.Fatalf("ValidateConfig() error = %v", err)
	}
	if logs.FilterMessageSnippet("GEMINI_API_KEY").Len() != 1 {
		t.Errorf("expected a warning about the missing key, got %v", logs.All())
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		t.Run(format, func(t *testing.T) {
			logger, err := NewLogger(LoggingConfig{Level: "debug", Format: format})
			if err != nil {
				t.Fatalf("NewLogger() error = %v", err)
			}
			if !logger.Core().Enabled(zapcore.DebugLevel) {
				t.Error("debug level not enabled")
			}
		})
	}

	if _, err := NewLogger(LoggingConfig{Level: "loud"}); err == nil {
		t.Error("NewLogger() with bad level should fail")
	}
}
