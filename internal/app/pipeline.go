package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/ringfit/internal/capture"
)

// run reads frames at the camera rate until stopCh closes. Every frame is
// kept as JPEG for the preview stream; detection only runs while enabled.
func (a *App) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stopCh
		cancel()
	}()

	fps := a.config.Camera.FPS()
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}

		if cur := a.config.Camera.FPS(); cur != fps && cur > 0 {
			fps = cur
			ticker.Reset(time.Second / time.Duration(fps))
		}

		frame, err := a.config.Camera.ReadFrame()
		if err != nil {
			a.logger.Debug("failed to read frame", zap.Error(err))
			continue
		}

		if data, err := capture.EncodeJPEG(*frame); err == nil {
			a.mu.Lock()
			a.jpeg = data
			a.jpegSeq++
			a.mu.Unlock()
		}

		if a.IsEnabled() {
			a.ProcessFrame(ctx, frame)
		}
		frame.Close()
	}
}
