package export

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ayusman/ringfit/internal/sizing"
	"github.com/ayusman/ringfit/internal/store"
)

var (
	// ErrUnsupportedFormat is returned when a plugin does not list a format.
	ErrUnsupportedFormat = errors.New("format not supported by plugin")
	// ErrPluginFailed is returned when a plugin reports failure.
	ErrPluginFailed = errors.New("export plugin failed")
)

// Service renders stored measurements and records each export.
type Service struct {
	manager  *Manager
	executor *Executor
	records  *store.ExportRepository
	logger   *zap.Logger
}

// NewService creates a Service. records may be nil to skip bookkeeping.
func NewService(manager *Manager, executor *Executor, records *store.ExportRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		manager:  manager,
		executor: executor,
		records:  records,
		logger:   logger.With(zap.String("component", "export")),
	}
}

// Plugins lists the available exporters.
func (s *Service) Plugins() []*Plugin {
	return s.manager.List()
}

// Export renders m with the named plugin. An empty format uses the plugin's
// first listed format.
func (s *Service) Export(ctx context.Context, pluginName, format string, m *store.Measurement) (*Response, error) {
	p, err := s.manager.Get(pluginName)
	if err != nil {
		return nil, err
	}
	if format == "" && len(p.Manifest.Formats) > 0 {
		format = p.Manifest.Formats[0]
	}
	if !p.Manifest.Supports(format) {
		return nil, fmt.Errorf("%s/%s: %w", pluginName, format, ErrUnsupportedFormat)
	}

	resp, err := s.executor.Execute(ctx, p, &Request{
		Format:      format,
		Measurement: m.Payload,
		Table:       sizing.Table(),
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", ErrPluginFailed, resp.Error)
	}

	if s.records != nil {
		rec := &store.ExportRecord{
			MeasurementID: m.ID,
			Plugin:        pluginName,
			Format:        format,
			SizeBytes:     len(resp.Body),
		}
		if err := s.records.Create(rec); err != nil {
			s.logger.Warn("failed to record export", zap.String("measurement", m.ID), zap.Error(err))
		}
	}

	s.logger.Info("exported measurement",
		zap.String("measurement", m.ID),
		zap.String("plugin", pluginName),
		zap.String("format", format),
		zap.Int("bytes", len(resp.Body)),
	)
	return resp, nil
}
