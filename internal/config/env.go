package config

import (
	"os"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables. A .env file in
// the working directory is loaded first; godotenv never overrides variables
// already present in the environment, so the real environment wins.
func parseEnv(config *Config) {
	_ = godotenv.Load() // a missing .env file is not an error

	overlay := map[string]*string{
		"DROPBOX_TOKEN":         &config.Token,
		"DROPBOX_APP_KEY":       &config.AppKey,
		"DROPBOX_APP_SECRET":    &config.AppSecret,
		"DROPBOX_REFRESH_TOKEN": &config.RefreshToken,
		"S3_BUCKET":             &config.S3Bucket,
		"S3_REGION":             &config.S3Region,
		"S3_BASE_ENDPOINT":      &config.S3BaseEndpoint,
		"S3_ACCESS_KEY":         &config.S3AccessKey,
		"S3_SECRET_KEY":         &config.S3SecretKey,
	}

	for name, target := range overlay {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*target = v
		}
	}
}
