// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Server  ServerConfig  `json:"server"`
	Vision  VisionConfig  `json:"vision"`
	Measure MeasureConfig `json:"measure"`
	Camera  CameraConfig  `json:"camera"`
	Storage StorageConfig `json:"storage"`
	Logging LoggingConfig `json:"logging"`
	Tray    bool          `json:"tray"`
}

type ServerConfig struct {
	Addr      string `json:"addr"`
	StaticDir string `json:"static_dir"`
}

type VisionConfig struct {
	APIKey        string        `json:"-"`
	Model         string        `json:"model"`
	BaseURL       string        `json:"base_url"`
	Timeout       time.Duration `json:"timeout"`
	RequireSecure bool          `json:"require_secure"`
}

type MeasureConfig struct {
	FallbackDiameterMM float64       `json:"fallback_diameter_mm"`
	DetectTimeout      time.Duration `json:"detect_timeout"`
	MockDetector       bool          `json:"mock_detector"`
}

type CameraConfig struct {
	DeviceID int  `json:"device_id"`
	Width    int  `json:"width"`
	Height   int  `json:"height"`
	Live     bool `json:"live"`
}

type StorageConfig struct {
	DataDir       string        `json:"data_dir"`
	DBPath        string        `json:"db_path"`
	PluginDir     string        `json:"plugin_dir"`
	ExportTimeout time.Duration `json:"export_timeout"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// LoadConfig reads the environment. Unset or unparsable values fall back
// to their defaults.
func LoadConfig() *Config {
	dataDir := getEnv("RINGFIT_DATA_DIR", defaultDataDir())

	return &Config{
		Server: ServerConfig{
			Addr:      getEnv("RINGFIT_ADDR", ":8080"),
			StaticDir: getEnv("RINGFIT_STATIC_DIR", ""),
		},
		Vision: VisionConfig{
			APIKey:        getEnv("GEMINI_API_KEY", ""),
			Model:         getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			BaseURL:       getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Timeout:       getEnvAsDuration("GEMINI_TIMEOUT", 30*time.Second),
			RequireSecure: getEnvAsBool("REQUIRE_SECURE", true),
		},
		Measure: MeasureConfig{
			FallbackDiameterMM: getEnvAsFloat("FALLBACK_DIAMETER_MM", 18.1),
			DetectTimeout:      getEnvAsDuration("DETECT_TIMEOUT", 2500*time.Millisecond),
			MockDetector:       getEnvAsBool("MOCK_DETECTOR", false),
		},
		Camera: CameraConfig{
			DeviceID: getEnvAsInt("CAMERA_ID", 0),
			Width:    getEnvAsInt("CAMERA_WIDTH", 640),
			Height:   getEnvAsInt("CAMERA_HEIGHT", 480),
			Live:     getEnvAsBool("LIVE", true),
		},
		Storage: StorageConfig{
			DataDir:       dataDir,
			DBPath:        getEnv("RINGFIT_DB", filepath.Join(dataDir, "ringfit.db")),
			PluginDir:     getEnv("PLUGIN_DIR", filepath.Join(dataDir, "plugins")),
			ExportTimeout: getEnvAsDuration("EXPORT_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Tray: getEnvAsBool("TRAY", false),
	}
}

// ValidateConfig reports every invalid setting at once. Settings that only
// disable a feature are logged as warnings.
func (c *Config) ValidateConfig(logger *zap.Logger) error {
	var errors []string

	if c.Server.Addr == "" {
		errors = append(errors, "server address is required")
	}

	if c.Vision.APIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, cloud measurement disabled")
	}

	if c.Vision.RequireSecure && !strings.HasPrefix(c.Vision.BaseURL, "https://") {
		errors = append(errors, "vision base URL must use https when REQUIRE_SECURE is set")
	}

	if c.Vision.Timeout <= 0 {
		errors = append(errors, "vision timeout must be positive")
	}

	if c.Measure.FallbackDiameterMM < 14 || c.Measure.FallbackDiameterMM > 23 {
		errors = append(errors, "fallback diameter must be between 14 and 23 mm")
	}

	if c.Measure.DetectTimeout <= 0 {
		errors = append(errors, "detect timeout must be positive")
	}

	if c.Camera.DeviceID < 0 {
		errors = append(errors, "camera id must not be negative")
	}

	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		errors = append(errors, "camera resolution must be positive")
	}

	if c.Storage.DBPath == "" {
		errors = append(errors, "database path is required")
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level %q", c.Logging.Level))
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errors = append(errors, "log format must be json or console")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, ", "))
	}

	return nil
}

// NewLogger builds a production JSON logger or a development console
// logger at the configured level.
func NewLogger(c LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	if c.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ringfit"
	}
	return filepath.Join(home, ".ringfit")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
