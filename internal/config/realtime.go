package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/docker/go-units"
)

const (
	EnvRealtimePath         = "REALTIME_PATH"
	EnvRealtimeOrigins      = "REALTIME_ORIGINS"
	EnvRealtimeWriteTimeout = "REALTIME_WRITE_TIMEOUT"
	EnvRealtimeReadLimit    = "REALTIME_READ_LIMIT"
)

// RealtimeConfig configures the WebSocket endpoint of the realtime hub.
// Origins are host patterns as accepted by the websocket handshake.
type RealtimeConfig struct {
	Path         string   `toml:"path"`
	Origins      []string `toml:"origins"`
	WriteTimeout string   `toml:"write_timeout"`
	ReadLimit    string   `toml:"read_limit"`
}

func (c *RealtimeConfig) WriteTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.WriteTimeout)
	return d
}

// ReadLimitBytes returns the maximum inbound message size.
func (c *RealtimeConfig) ReadLimitBytes() int64 {
	n, _ := units.FromHumanSize(c.ReadLimit)
	return n
}

func (c *RealtimeConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

func (c *RealtimeConfig) Merge(overlay *RealtimeConfig) {
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
	if overlay.Origins != nil {
		c.Origins = overlay.Origins
	}
	if overlay.WriteTimeout != "" {
		c.WriteTimeout = overlay.WriteTimeout
	}
	if overlay.ReadLimit != "" {
		c.ReadLimit = overlay.ReadLimit
	}
}

func (c *RealtimeConfig) loadDefaults() {
	if c.Path == "" {
		c.Path = "/ws"
	}
	if c.Origins == nil {
		c.Origins = []string{"localhost:3000", "localhost:3001"}
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "10s"
	}
	if c.ReadLimit == "" {
		c.ReadLimit = "64KB"
	}
}

func (c *RealtimeConfig) loadEnv() {
	if v := os.Getenv(EnvRealtimePath); v != "" {
		c.Path = v
	}
	if v := os.Getenv(EnvRealtimeOrigins); v != "" {
		origins := strings.Split(v, ",")
		c.Origins = make([]string, 0, len(origins))
		for _, o := range origins {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				c.Origins = append(c.Origins, trimmed)
			}
		}
	}
	if v := os.Getenv(EnvRealtimeWriteTimeout); v != "" {
		c.WriteTimeout = v
	}
	if v := os.Getenv(EnvRealtimeReadLimit); v != "" {
		c.ReadLimit = v
	}
}

func (c *RealtimeConfig) validate() error {
	if !strings.HasPrefix(c.Path, "/") || strings.Count(c.Path, "/") != 1 {
		return fmt.Errorf("path must be a single segment such as /ws: %s", c.Path)
	}
	if _, err := time.ParseDuration(c.WriteTimeout); err != nil {
		return fmt.Errorf("invalid write_timeout: %w", err)
	}
	if _, err := units.FromHumanSize(c.ReadLimit); err != nil {
		return fmt.Errorf("invalid read_limit: %w", err)
	}
	return nil
}
