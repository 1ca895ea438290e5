package capture

import (
	"strings"

	"github.com/pokevisor/pokevisor/internal/pkg/env"
)

// Config holds the S3 settings for the capture archive. The feature is off
// unless a bucket and credentials are configured.
type Config struct {
	Enabled         bool
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	EndpointURL     string
}

// LoadConfigFromEnv reads CAPTURE_S3_* env vars.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Region:          strings.TrimSpace(env.GetEnv("CAPTURE_S3_REGION", "us-east-1")),
		Bucket:          strings.TrimSpace(env.GetEnv("CAPTURE_S3_BUCKET", "")),
		AccessKeyID:     strings.TrimSpace(env.GetEnv("CAPTURE_S3_ACCESS_KEY_ID", "")),
		SecretAccessKey: strings.TrimSpace(env.GetEnv("CAPTURE_S3_SECRET_ACCESS_KEY", "")),
		EndpointURL:     strings.TrimSpace(env.GetEnv("CAPTURE_S3_ENDPOINT_URL", "")),
	}
	cfg.Enabled = env.GetEnv("CAPTURE_S3_ENABLED", "false") == "true" &&
		cfg.Bucket != "" && cfg.AccessKeyID != "" && cfg.SecretAccessKey != ""
	return cfg
}

// IsEnabled reports whether the capture archive should be used.
func (c *Config) IsEnabled() bool {
	return c != nil && c.Enabled
}
