package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/ringfit/internal/app"
	"github.com/ayusman/ringfit/internal/capture"
	"github.com/ayusman/ringfit/internal/config"
	"github.com/ayusman/ringfit/internal/detector"
	"github.com/ayusman/ringfit/internal/export"
	"github.com/ayusman/ringfit/internal/measure"
	"github.com/ayusman/ringfit/internal/server"
	"github.com/ayusman/ringfit/internal/store"
	"github.com/ayusman/ringfit/internal/telemetry"
	"github.com/ayusman/ringfit/internal/tray"
	"github.com/ayusman/ringfit/internal/vision"
)

const (
	telemetryQueue  = 256
	shutdownTimeout = 5 * time.Second
)

func main() {
	cfg := config.LoadConfig()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	if err := cfg.ValidateConfig(logger); err != nil {
		logger.Fatal("Configuration validation failed", zap.Error(err))
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0755); err != nil {
		logger.Fatal("Failed to create data directory", zap.Error(err))
	}
	st, err := store.New(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize store", zap.Error(err))
	}
	defer st.Close()

	events := telemetry.NewAsync(st.Stats(), telemetryQueue, logger)
	defer events.Close(time.Second)

	// Measurements retune model complexity; the live loop keeps its own.
	measureDet := newDetector(cfg, logger)
	defer measureDet.Close()
	liveDet := newDetector(cfg, logger)
	defer liveDet.Close()

	analyzer := vision.NewGemini(vision.Config{
		APIKey:        cfg.Vision.APIKey,
		Model:         cfg.Vision.Model,
		BaseURL:       cfg.Vision.BaseURL,
		Timeout:       cfg.Vision.Timeout,
		RequireSecure: cfg.Vision.RequireSecure,
	}, logger)

	var trayUI *tray.Tray
	if cfg.Tray {
		trayUI = tray.New(cfg.Camera.Live)
	}

	var history measure.History = measure.NewStoreHistory(st.Measurements())
	if trayUI != nil {
		history = trayHistory{History: history, tray: trayUI}
	}

	orch := measure.New(measure.Options{
		Vision:             analyzer,
		Detector:           measureDet,
		History:            history,
		Telemetry:          events,
		Logger:             logger,
		FallbackDiameterMM: cfg.Measure.FallbackDiameterMM,
		DetectTimeout:      cfg.Measure.DetectTimeout,
	})

	live := app.New(app.Config{
		Camera: capture.NewCameraWithConfig(capture.CameraConfig{
			DeviceID: cfg.Camera.DeviceID,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
			FPS:      app.IdleFPS,
		}),
		Detector: liveDet,
		Logger:   logger,
	})
	live.SetEnabled(cfg.Camera.Live)

	srvCfg := server.Config{
		StaticDir: cfg.Server.StaticDir,
		Store:     st,
		Measurer:  orch,
		Exporter:  newExporter(cfg, st, logger),
		Logger:    logger,
	}
	if srvCfg.StaticDir == "" {
		srvCfg.StaticDir = findWebDir(cfg.Storage.DataDir)
	}
	if err := live.Start(); err != nil {
		logger.Warn("Camera unavailable, live guidance disabled", zap.Int("camera", cfg.Camera.DeviceID), zap.Error(err))
	} else {
		srvCfg.Live = live
		defer live.Stop()
	}

	srv := server.New(srvCfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe(cfg.Server.Addr)
	}()

	if trayUI != nil {
		trayUI.OnToggle(live.SetEnabled)
		trayUI.OnOpen(func() { openBrowser(localURL(cfg.Server.Addr), logger) })
		trayUI.OnQuit(stop)
		go func() {
			<-ctx.Done()
			trayUI.Quit()
		}()
		// The tray owns the main thread until it exits.
		trayUI.Run()
		stop()
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("Server shutdown incomplete", zap.Error(err))
	}
}

// newDetector starts the MediaPipe detector, falling back to a mock that
// never finds a hand when the service script is missing.
func newDetector(cfg *config.Config, logger *zap.Logger) detector.Detector {
	if !cfg.Measure.MockDetector {
		det, err := detector.NewMediaPipeDetector(detector.DefaultConfig())
		if err == nil {
			return det
		}
		logger.Warn("MediaPipe unavailable, landmark measurement disabled", zap.Error(err))
	}
	return detector.NewMockDetector()
}

func newExporter(cfg *config.Config, st *store.Store, logger *zap.Logger) *export.Service {
	manager := export.NewManager(cfg.Storage.PluginDir, logger)
	if err := manager.Discover(); err != nil {
		logger.Warn("Failed to discover export plugins", zap.String("dir", cfg.Storage.PluginDir), zap.Error(err))
	}
	return export.NewService(manager, export.NewExecutor(cfg.Storage.ExportTimeout), st.Exports(), logger)
}

// trayHistory saves results and shows the latest one in the tray.
type trayHistory struct {
	measure.History
	tray *tray.Tray
}

func (h trayHistory) Save(res measure.Result) error {
	h.tray.SetLastSize(res.RingSize.Label(), res.Confidence)
	return h.History.Save(res)
}

// findWebDir searches for the web directory in common locations.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	candidates := []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func localURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string, logger *zap.Logger) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		logger.Warn("Failed to open browser", zap.String("url", url), zap.Error(err))
	}
}
