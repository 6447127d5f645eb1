package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config represents the root configuration for the pose matching service.
// All fields are optional pointers: anything omitted from the JSON file
// falls back to the defaults baked into the Get* accessors, so partial
// configs are safe.
type Config struct {
	// Matching params
	OffsetMeters     *float64 `json:"offset_meters,omitempty"`
	FallbackAlliance *string  `json:"fallback_alliance,omitempty"`
	TablesPath       *string  `json:"tables_path,omitempty"`

	// Loop params
	LoopHz     *float64 `json:"loop_hz,omitempty"`
	PoseMaxAge *string  `json:"pose_max_age,omitempty"` // duration string like "500ms"

	// Feed params
	ListenAddr  *string `json:"listen_addr,omitempty"`
	PublishAddr *string `json:"publish_addr,omitempty"`
	SerialPort  *string `json:"serial_port,omitempty"`
	SerialBaud  *int    `json:"serial_baud,omitempty"`

	// Monitor and telemetry params
	MonitorAddr *string `json:"monitor_addr,omitempty"`
	DBPath      *string `json:"db_path,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyConfig returns a Config with all fields set to nil, meaning every
// accessor serves its default.
func EmptyConfig() *Config {
	return &Config{}
}

// LoadConfig loads a Config from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadConfig(path string) (*Config, error) {
	data, err := readJSONFile(path)
	if err != nil {
		return nil, err
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// readJSONFile reads a .json file after checking its extension and size.
func readJSONFile(path string) ([]byte, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return data, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	// Validate OffsetMeters if set
	if c.OffsetMeters != nil {
		if math.IsNaN(*c.OffsetMeters) || math.IsInf(*c.OffsetMeters, 0) {
			return fmt.Errorf("offset_meters must be finite, got %f", *c.OffsetMeters)
		}
	}

	// Validate FallbackAlliance if set
	if c.FallbackAlliance != nil {
		switch strings.ToLower(*c.FallbackAlliance) {
		case "blue", "red":
		default:
			return fmt.Errorf("fallback_alliance must be \"blue\" or \"red\", got %q", *c.FallbackAlliance)
		}
	}

	// Validate LoopHz if set
	if c.LoopHz != nil {
		if *c.LoopHz <= 0 || *c.LoopHz > 1000 || math.IsNaN(*c.LoopHz) {
			return fmt.Errorf("loop_hz must be in (0, 1000], got %f", *c.LoopHz)
		}
	}

	// Validate PoseMaxAge can be parsed if set
	if c.PoseMaxAge != nil && *c.PoseMaxAge != "" {
		d, err := time.ParseDuration(*c.PoseMaxAge)
		if err != nil {
			return fmt.Errorf("invalid pose_max_age '%s': %w", *c.PoseMaxAge, err)
		}
		if d < 0 {
			return fmt.Errorf("pose_max_age must be non-negative, got %s", d)
		}
	}

	// Validate SerialBaud if set
	if c.SerialBaud != nil {
		if *c.SerialBaud <= 0 {
			return fmt.Errorf("serial_baud must be positive, got %d", *c.SerialBaud)
		}
	}

	return nil
}

// GetOffsetMeters returns the offset_meters value or the default. The
// default backs the approach target 2m off the scoring face; -0.7 is the
// common close-approach variant.
func (c *Config) GetOffsetMeters() float64 {
	if c.OffsetMeters == nil {
		return -2.0 // default
	}
	return *c.OffsetMeters
}

// GetFallbackAlliance returns the fallback_alliance value or the default.
func (c *Config) GetFallbackAlliance() string {
	if c.FallbackAlliance == nil {
		return "blue" // default
	}
	return strings.ToLower(*c.FallbackAlliance)
}

// GetTablesPath returns the tables_path value or the default. Empty means
// the embedded default tables.
func (c *Config) GetTablesPath() string {
	if c.TablesPath == nil {
		return ""
	}
	return *c.TablesPath
}

// GetLoopHz returns the loop_hz value or the default.
func (c *Config) GetLoopHz() float64 {
	if c.LoopHz == nil {
		return 20.0 // default
	}
	return *c.LoopHz
}

// GetLoopInterval returns the matching loop period derived from loop_hz.
func (c *Config) GetLoopInterval() time.Duration {
	hz := c.GetLoopHz()
	if hz <= 0 {
		return 50 * time.Millisecond // default
	}
	return time.Duration(float64(time.Second) / hz)
}

// GetPoseMaxAge parses and returns the PoseMaxAge as a time.Duration.
// Poses older than this are considered stale and skipped by the loop.
func (c *Config) GetPoseMaxAge() time.Duration {
	if c.PoseMaxAge == nil || *c.PoseMaxAge == "" {
		return 500 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.PoseMaxAge)
	if err != nil {
		return 500 * time.Millisecond // default on parse error
	}
	return d
}

// GetListenAddr returns the listen_addr value or the default.
func (c *Config) GetListenAddr() string {
	if c.ListenAddr == nil {
		return ":5800" // default
	}
	return *c.ListenAddr
}

// GetPublishAddr returns the publish_addr value or the default.
// Empty means publishing is disabled.
func (c *Config) GetPublishAddr() string {
	if c.PublishAddr == nil {
		return ""
	}
	return *c.PublishAddr
}

// GetSerialPort returns the serial_port value or the default.
// Empty means the serial feed is disabled.
func (c *Config) GetSerialPort() string {
	if c.SerialPort == nil {
		return ""
	}
	return *c.SerialPort
}

// GetSerialBaud returns the serial_baud value or the default.
func (c *Config) GetSerialBaud() int {
	if c.SerialBaud == nil {
		return 115200 // default
	}
	return *c.SerialBaud
}

// GetMonitorAddr returns the monitor_addr value or the default.
func (c *Config) GetMonitorAddr() string {
	if c.MonitorAddr == nil {
		return ":5808" // default
	}
	return *c.MonitorAddr
}

// GetDBPath returns the db_path value or the default. Empty disables
// telemetry recording.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil {
		return "fieldpose.db" // default
	}
	return *c.DBPath
}
