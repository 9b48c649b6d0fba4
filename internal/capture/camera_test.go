package capture

import (
	"errors"
	"testing"
)

func TestNewCameraWithConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     CameraConfig
		wantFPS int
	}{
		{name: "defaults", cfg: CameraConfig{}, wantFPS: DefaultFPS},
		{name: "explicit fps", cfg: CameraConfig{DeviceID: 1, FPS: 30}, wantFPS: 30},
		{name: "negative fps", cfg: CameraConfig{FPS: -1}, wantFPS: DefaultFPS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCameraWithConfig(tt.cfg)
			if got := cam.FPS(); got != tt.wantFPS {
				t.Errorf("FPS() = %d, want %d", got, tt.wantFPS)
			}
			if cam.IsOpen() {
				t.Error("camera should not be open initially")
			}
		})
	}
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(0)

	tests := []struct {
		fps  int
		want int
	}{
		{fps: 10, want: 10},
		{fps: 1, want: 1},
		{fps: 0, want: 1},
		{fps: -5, want: 1},
	}

	for _, tt := range tests {
		cam.SetFPS(tt.fps)
		if got := cam.FPS(); got != tt.want {
			t.Errorf("SetFPS(%d): FPS() = %d, want %d", tt.fps, got, tt.want)
		}
	}
}

func TestCamera_ReadFrame_NotOpened(t *testing.T) {
	cam := NewCamera(0)

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}
	if err := cam.Close(); err != nil {
		t.Errorf("Close() on unopened camera = %v, want nil", err)
	}
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(0)
	if err := cam.Open(); err != nil {
		t.Skipf("camera not available: %v", err)
	}

	mat, err := cam.ReadFrame()
	if err != nil {
		t.Errorf("ReadFrame() error = %v", err)
	} else {
		if mat.Cols() != DefaultWidth || mat.Rows() != DefaultHeight {
			t.Logf("frame is %dx%d; device ignored the requested size", mat.Cols(), mat.Rows())
		}
		mat.Close()
	}

	if err := cam.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if cam.IsOpen() {
		t.Error("IsOpen() should be false after Close()")
	}
}
