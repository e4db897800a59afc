package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/dropship/internal/flagx"
	"github.com/dmitrijs2005/dropship/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for the retry delay, which allows
// parsing both string values such as "5s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its fields are copied into the
// runtime Config struct which uses time.Duration.
type JsonConfig struct {
	Folder         string         `json:"folder"`
	Filename       string         `json:"filename"`
	Token          string         `json:"token"`
	AppKey         string         `json:"app_key"`
	AppSecret      string         `json:"app_secret"`
	RefreshToken   string         `json:"refresh_token"`
	NoOverwrite    bool           `json:"no_overwrite"`
	Backend        string         `json:"backend"`
	MaxAttempts    int            `json:"max_attempts"`
	RetryDelay     timex.Duration `json:"retry_delay"`
	S3Bucket       string         `json:"s3_bucket"`
	S3Region       string         `json:"s3_region"`
	S3BaseEndpoint string         `json:"s3_base_endpoint"`
	S3AccessKey    string         `json:"s3_access_key"`
	S3SecretKey    string         `json:"s3_secret_key"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags; if neither
// is set, no JSON file is loaded. The DTO is seeded from the current Config
// before unmarshalling, so fields omitted from the file keep their values.
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{
		Folder:         config.Folder,
		Filename:       config.Filename,
		Token:          config.Token,
		AppKey:         config.AppKey,
		AppSecret:      config.AppSecret,
		RefreshToken:   config.RefreshToken,
		NoOverwrite:    config.NoOverwrite,
		Backend:        config.Backend,
		MaxAttempts:    config.MaxAttempts,
		RetryDelay:     timex.Duration{Duration: config.RetryDelay},
		S3Bucket:       config.S3Bucket,
		S3Region:       config.S3Region,
		S3BaseEndpoint: config.S3BaseEndpoint,
		S3AccessKey:    config.S3AccessKey,
		S3SecretKey:    config.S3SecretKey,
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.Folder = c.Folder
	config.Filename = c.Filename
	config.Token = c.Token
	config.AppKey = c.AppKey
	config.AppSecret = c.AppSecret
	config.RefreshToken = c.RefreshToken
	config.NoOverwrite = c.NoOverwrite
	config.Backend = c.Backend
	config.MaxAttempts = c.MaxAttempts
	config.RetryDelay = time.Duration(c.RetryDelay.Duration)
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.S3AccessKey = c.S3AccessKey
	config.S3SecretKey = c.S3SecretKey
}
