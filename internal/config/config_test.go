package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyConfig()

	if cfg.GetOffsetMeters() != -2.0 {
		t.Errorf("GetOffsetMeters() = %f, want -2.0", cfg.GetOffsetMeters())
	}
	if cfg.GetFallbackAlliance() != "blue" {
		t.Errorf("GetFallbackAlliance() = %q, want \"blue\"", cfg.GetFallbackAlliance())
	}
	if cfg.GetTablesPath() != "" {
		t.Errorf("GetTablesPath() = %q, want empty", cfg.GetTablesPath())
	}
	if cfg.GetLoopHz() != 20.0 {
		t.Errorf("GetLoopHz() = %f, want 20", cfg.GetLoopHz())
	}
	if cfg.GetLoopInterval() != 50*time.Millisecond {
		t.Errorf("GetLoopInterval() = %v, want 50ms", cfg.GetLoopInterval())
	}
	if cfg.GetPoseMaxAge() != 500*time.Millisecond {
		t.Errorf("GetPoseMaxAge() = %v, want 500ms", cfg.GetPoseMaxAge())
	}
	if cfg.GetListenAddr() != ":5800" {
		t.Errorf("GetListenAddr() = %q, want \":5800\"", cfg.GetListenAddr())
	}
	if cfg.GetPublishAddr() != "" {
		t.Errorf("GetPublishAddr() = %q, want empty (disabled)", cfg.GetPublishAddr())
	}
	if cfg.GetSerialPort() != "" {
		t.Errorf("GetSerialPort() = %q, want empty (disabled)", cfg.GetSerialPort())
	}
	if cfg.GetSerialBaud() != 115200 {
		t.Errorf("GetSerialBaud() = %d, want 115200", cfg.GetSerialBaud())
	}
	if cfg.GetMonitorAddr() != ":5808" {
		t.Errorf("GetMonitorAddr() = %q, want \":5808\"", cfg.GetMonitorAddr())
	}
	if cfg.GetDBPath() != "fieldpose.db" {
		t.Errorf("GetDBPath() = %q, want \"fieldpose.db\"", cfg.GetDBPath())
	}
}

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "offset_meters": -0.7,
  "fallback_alliance": "red",
  "loop_hz": 50,
  "pose_max_age": "250ms",
  "listen_addr": ":6800",
  "publish_addr": "127.0.0.1:5801",
  "serial_port": "/dev/ttyUSB0",
  "serial_baud": 230400,
  "monitor_addr": ":8090",
  "db_path": "/tmp/poses.db"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetOffsetMeters() != -0.7 {
		t.Errorf("GetOffsetMeters() = %f, want -0.7", cfg.GetOffsetMeters())
	}
	if cfg.GetFallbackAlliance() != "red" {
		t.Errorf("GetFallbackAlliance() = %q, want \"red\"", cfg.GetFallbackAlliance())
	}
	if cfg.GetLoopHz() != 50 {
		t.Errorf("GetLoopHz() = %f, want 50", cfg.GetLoopHz())
	}
	if cfg.GetLoopInterval() != 20*time.Millisecond {
		t.Errorf("GetLoopInterval() = %v, want 20ms", cfg.GetLoopInterval())
	}
	if cfg.GetPoseMaxAge() != 250*time.Millisecond {
		t.Errorf("GetPoseMaxAge() = %v, want 250ms", cfg.GetPoseMaxAge())
	}
	if cfg.GetListenAddr() != ":6800" {
		t.Errorf("GetListenAddr() = %q, want \":6800\"", cfg.GetListenAddr())
	}
	if cfg.GetPublishAddr() != "127.0.0.1:5801" {
		t.Errorf("GetPublishAddr() = %q", cfg.GetPublishAddr())
	}
	if cfg.GetSerialPort() != "/dev/ttyUSB0" {
		t.Errorf("GetSerialPort() = %q", cfg.GetSerialPort())
	}
	if cfg.GetSerialBaud() != 230400 {
		t.Errorf("GetSerialBaud() = %d, want 230400", cfg.GetSerialBaud())
	}
	if cfg.GetMonitorAddr() != ":8090" {
		t.Errorf("GetMonitorAddr() = %q", cfg.GetMonitorAddr())
	}
	if cfg.GetDBPath() != "/tmp/poses.db" {
		t.Errorf("GetDBPath() = %q", cfg.GetDBPath())
	}
}

func TestLoadConfigPartial(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.json")

	if err := os.WriteFile(configPath, []byte(`{"offset_meters": -0.7}`), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetOffsetMeters() != -0.7 {
		t.Errorf("GetOffsetMeters() = %f, want -0.7", cfg.GetOffsetMeters())
	}
	// Everything else keeps its default.
	if cfg.GetFallbackAlliance() != "blue" {
		t.Errorf("GetFallbackAlliance() = %q, want \"blue\"", cfg.GetFallbackAlliance())
	}
	if cfg.GetLoopHz() != 20.0 {
		t.Errorf("GetLoopHz() = %f, want 20", cfg.GetLoopHz())
	}
}

func TestLoadConfigRejectsNonJSONExtension(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(`{}`), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := LoadConfig(configPath); err == nil {
		t.Error("Expected error for non-.json extension")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.json")
	if err := os.WriteFile(configPath, []byte(`{"offset_meters": `), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := LoadConfig(configPath); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr string
	}{
		{"empty is valid", EmptyConfig(), ""},
		{"positive offset is valid", &Config{OffsetMeters: ptrFloat64(1.5)}, ""},
		{"bad fallback", &Config{FallbackAlliance: ptrString("green")}, "fallback_alliance"},
		{"mixed-case fallback is valid", &Config{FallbackAlliance: ptrString("Red")}, ""},
		{"zero loop hz", &Config{LoopHz: ptrFloat64(0)}, "loop_hz"},
		{"negative loop hz", &Config{LoopHz: ptrFloat64(-5)}, "loop_hz"},
		{"excessive loop hz", &Config{LoopHz: ptrFloat64(2000)}, "loop_hz"},
		{"bad pose max age", &Config{PoseMaxAge: ptrString("fast")}, "pose_max_age"},
		{"negative pose max age", &Config{PoseMaxAge: ptrString("-1s")}, "pose_max_age"},
		{"zero baud", &Config{SerialBaud: ptrInt(0)}, "serial_baud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
