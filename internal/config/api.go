package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/docker/go-units"

	"github.com/TAPUZE/project-chimera/pkg/middleware"
	"github.com/TAPUZE/project-chimera/pkg/openapi"
	"github.com/TAPUZE/project-chimera/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "API_CORS_ENABLED",
	Origins:          "API_CORS_ORIGINS",
	AllowedMethods:   "API_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "API_CORS_ALLOWED_HEADERS",
	AllowCredentials: "API_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "API_CORS_MAX_AGE",
}

var openAPIEnv = &openapi.ConfigEnv{
	Title:       "API_OPENAPI_TITLE",
	Description: "API_OPENAPI_DESCRIPTION",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "API_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "API_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig configures the HTTP API module.
type APIConfig struct {
	BasePath           string                `toml:"base_path"`
	MaxBodySize        string                `toml:"max_body_size"`
	CompressMinSize    string                `toml:"compress_min_size"`
	DisableCompression bool                  `toml:"disable_compression"`
	CORS               middleware.CORSConfig `toml:"cors"`
	Pagination         pagination.Config     `toml:"pagination"`
	OpenAPI            openapi.Config        `toml:"openapi"`
}

// CompressMinSizeBytes is the smallest response body that is gzipped.
func (c *APIConfig) CompressMinSizeBytes() int64 {
	n, _ := units.FromHumanSize(c.CompressMinSize)
	return n
}

func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if _, err := units.FromHumanSize(c.MaxBodySize); err != nil {
		return fmt.Errorf("invalid max_body_size: %w", err)
	}
	if _, err := units.FromHumanSize(c.CompressMinSize); err != nil {
		return fmt.Errorf("invalid compress_min_size: %w", err)
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.OpenAPI.Finalize(openAPIEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxBodySize != "" {
		c.MaxBodySize = overlay.MaxBodySize
	}
	if overlay.CompressMinSize != "" {
		c.CompressMinSize = overlay.CompressMinSize
	}
	c.DisableCompression = c.DisableCompression || overlay.DisableCompression
	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
	c.OpenAPI.Merge(&overlay.OpenAPI)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "1MB"
	}
	if c.CompressMinSize == "" {
		c.CompressMinSize = "1KB"
	}
	if c.CORS.Origins == nil {
		c.CORS.Enabled = true
		c.CORS.AllowCredentials = true
		c.CORS.Origins = []string{"http://localhost:3000", "http://localhost:3001"}
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("API_MAX_BODY_SIZE"); v != "" {
		c.MaxBodySize = v
	}
	if v := os.Getenv("API_COMPRESS_MIN_SIZE"); v != "" {
		c.CompressMinSize = v
	}
	if v := os.Getenv("API_DISABLE_COMPRESSION"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.DisableCompression = b
		}
	}
}
