package configloader

import (
	"errors"
	"fmt"
	"time"
)

const (
	// defaultConfPath is the fallback configuration directory when no overrides are provided.
	defaultConfPath = "configs"
	// defaultServiceName is used when SERVICE_NAME is missing.
	defaultServiceName = "media"
	// defaultServiceVersion is used when SERVICE_VERSION is missing.
	defaultServiceVersion = "dev"
	// defaultEnvironment is used when APP_ENV is missing.
	defaultEnvironment = "development"

	defaultSchema             = "media"
	defaultSignedURLTTL       = 15 * time.Minute
	defaultMaxFileSize        = int64(10 << 30) // 10 GiB
	defaultMonthlyUploadLimit = int64(100)
	defaultResizeCreditCost   = int64(1)
	defaultSourceService      = "media"
	defaultInboxConcurrency   = 4
	defaultFFmpegPath         = "ffmpeg"
	defaultFFprobePath        = "ffprobe"
	defaultThumbnailCount     = 3
	defaultRequestTimeout     = 30 * time.Second
)

// applyDefaults 为未配置的字段填充内置默认值。
func applyDefaults(rc *RuntimeConfig) {
	if rc == nil {
		return
	}
	if rc.Database.Schema == "" {
		rc.Database.Schema = defaultSchema
	}
	if rc.Storage.SignedURLTTL <= 0 {
		rc.Storage.SignedURLTTL = defaultSignedURLTTL
	}
	if rc.Pipeline.MaxFileSize <= 0 {
		rc.Pipeline.MaxFileSize = defaultMaxFileSize
	}
	if rc.Pipeline.MonthlyUploadLimit <= 0 {
		rc.Pipeline.MonthlyUploadLimit = defaultMonthlyUploadLimit
	}
	if rc.Pipeline.ResizeCreditCost <= 0 {
		rc.Pipeline.ResizeCreditCost = defaultResizeCreditCost
	}
	if rc.Tools.FFmpegPath == "" {
		rc.Tools.FFmpegPath = defaultFFmpegPath
	}
	if rc.Tools.FFprobePath == "" {
		rc.Tools.FFprobePath = defaultFFprobePath
	}
	if rc.Tools.ThumbnailCount <= 0 {
		rc.Tools.ThumbnailCount = defaultThumbnailCount
	}
	if rc.Integrations.RequestTimeout <= 0 {
		rc.Integrations.RequestTimeout = defaultRequestTimeout
	}
	if rc.Outbox.Schema == "" {
		rc.Outbox.Schema = rc.Database.Schema
	}
	if rc.Outbox.SourceService == "" {
		rc.Outbox.SourceService = defaultSourceService
	}
	if rc.Outbox.MaxConcurrency <= 0 {
		rc.Outbox.MaxConcurrency = defaultInboxConcurrency
	}
}

// validate 校验归一化后的配置完整性。
func validate(rc *RuntimeConfig) error {
	if rc == nil {
		return errors.New("runtime config is nil")
	}
	if rc.Database.DSN == "" {
		return errors.New("data.postgres.dsn is required (set DATABASE_URL)")
	}
	for name, binding := range rc.Messaging.Bindings {
		if binding.Topic == "" {
			return fmt.Errorf("messaging.bindings[%q].topic is required", name)
		}
	}
	return nil
}
