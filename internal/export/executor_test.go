package export

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func scriptPlugin(t *testing.T, name, script string, formats ...string) *Plugin {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping shell plugin test on Windows")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, name+".sh")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return &Plugin{
		Manifest:   Manifest{Name: name, Executable: name + ".sh", Formats: formats},
		Path:       dir,
		Executable: path,
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	p := scriptPlugin(t, "echo", `#!/bin/sh
INPUT=$(cat)
printf '{"success":true,"content_type":"application/json","body":%s}' "$(printf '%s' "$INPUT" | sed 's/"/\\"/g; s/^/"/; s/$/"/')"
`)

	req := &Request{
		Format:      "txt",
		Measurement: json.RawMessage(`{"id":"abc"}`),
	}
	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), p, req)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !resp.Success || resp.ContentType != "application/json" {
		t.Fatalf("Execute() = %+v", resp)
	}

	var got Request
	if err := json.Unmarshal([]byte(resp.Body), &got); err != nil {
		t.Fatalf("body is not the request: %v (%q)", err, resp.Body)
	}
	if got.Format != "txt" || string(got.Measurement) != `{"id":"abc"}` {
		t.Errorf("plugin received %+v", got)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	p := scriptPlugin(t, "slow", `#!/bin/sh
sleep 10
echo '{"success":true}'
`)

	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), p, &Request{})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Execute() error = %v, want ErrTimeout", err)
	}
}

func TestExecutor_Failures(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		wantErr string
	}{
		{
			name:    "non-zero exit",
			script:  "#!/bin/sh\necho 'boom' >&2\nexit 3\n",
			wantErr: "stderr: boom",
		},
		{
			name:    "invalid json",
			script:  "#!/bin/sh\necho 'not json'\n",
			wantErr: "parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := scriptPlugin(t, "bad", tt.script)
			_, err := NewExecutor(5*time.Second).Execute(context.Background(), p, &Request{})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Execute() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestExecutor_ErrorResponse(t *testing.T) {
	p := scriptPlugin(t, "refuse", `#!/bin/sh
cat >/dev/null
echo '{"success":false,"error":"unsupported"}'
`)

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), p, &Request{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Success || resp.Error != "unsupported" {
		t.Errorf("Execute() = %+v", resp)
	}
}
