// Package config handles configuration for the uploader CLI, including
// defaults, .env and environment variables, an optional JSON overlay, and
// command-line flags. Later stages override earlier ones.
package config

import "time"

// Config holds runtime settings for one uploader run.
//
// Fields:
//   - LocalPath: the file to upload (first positional argument).
//   - Folder / Filename: destination folder and optional name override.
//   - Token: Dropbox access token. Ignored when the refresh triple is set.
//   - AppKey / AppSecret / RefreshToken: Dropbox OAuth refresh credentials.
//   - NoOverwrite: refuse to replace an existing remote file.
//   - Verbose / Quiet: log verbosity switches.
//   - Backend: "dropbox" or "s3".
//   - MaxAttempts / RetryDelay: retry policy for a failed transfer.
//   - S3Bucket / S3Region / S3BaseEndpoint / S3AccessKey / S3SecretKey:
//     object storage settings for the s3 backend.
type Config struct {
	LocalPath string
	Folder    string
	Filename  string

	Token        string
	AppKey       string
	AppSecret    string
	RefreshToken string

	NoOverwrite bool
	Verbose     bool
	Quiet       bool

	Backend     string
	MaxAttempts int
	RetryDelay  time.Duration

	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string
}

// LoadDefaults populates Config with the built-in defaults.
func (c *Config) LoadDefaults() {
	c.Folder = "/"
	c.Backend = "dropbox"
	c.MaxAttempts = 3
	c.RetryDelay = 5 * time.Second
	c.S3Region = "us-east-1"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from the environment (including an optional .env file), from an optional
// JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
