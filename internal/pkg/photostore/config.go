package photostore

import (
	"errors"

	"github.com/ManuelReschke/UrbanFix/internal/pkg/env"
)

const DefaultMaxSize = 10 << 20

// Config holds photo storage configuration
type Config struct {
	UploadDir     string
	PublicBaseURL string
	MaxSize       int64

	S3Enabled       bool
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
}

// LoadConfig loads photo storage configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		UploadDir:       env.GetEnv("PHOTO_UPLOAD_DIR", "./uploads"),
		PublicBaseURL:   env.GetEnv("PHOTO_PUBLIC_BASE_URL", "/uploads"),
		MaxSize:         int64(env.GetEnvInt("PHOTO_MAX_SIZE_MB", 10)) << 20,
		S3Enabled:       env.GetEnvBool("S3_ENABLED", false),
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}

	if cfg.S3Enabled {
		if cfg.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when S3 photo storage is enabled")
		}
		if cfg.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when S3 photo storage is enabled")
		}
		if cfg.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when S3 photo storage is enabled")
		}
	}
	return cfg, nil
}
