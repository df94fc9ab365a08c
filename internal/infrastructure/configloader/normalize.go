package configloader

import (
	"time"
)

// fileConfig 是配置文件的原始结构，时长字段使用字符串表示（如 "3s"）。
type fileConfig struct {
	Data struct {
		Postgres struct {
			DSN               string `json:"dsn"`
			MaxOpenConns      int32  `json:"max_open_conns"`
			MinOpenConns      int32  `json:"min_open_conns"`
			MaxConnLifetime   string `json:"max_conn_lifetime"`
			MaxConnIdleTime   string `json:"max_conn_idle_time"`
			HealthCheckPeriod string `json:"health_check_period"`
			Schema            string `json:"schema"`
			PreparedStmts     bool   `json:"prepared_statements_enabled"`
			Transaction       struct {
				DefaultIsolation string `json:"default_isolation"`
				DefaultTimeout   string `json:"default_timeout"`
				LockTimeout      string `json:"lock_timeout"`
				MaxRetries       int    `json:"max_retries"`
			} `json:"transaction"`
		} `json:"postgres"`
	} `json:"data"`
	Storage struct {
		Bucket               string `json:"bucket"`
		SignerServiceAccount string `json:"signer_service_account"`
		SignedURLTTL         string `json:"signed_url_ttl"`
	} `json:"storage"`
	Messaging struct {
		ProjectID        string `json:"project_id"`
		EmulatorEndpoint string `json:"emulator_endpoint"`
		EnableLogging    *bool  `json:"enable_logging"`
		EnableMetrics    *bool  `json:"enable_metrics"`
		Bindings         map[string]struct {
			Topic        string `json:"topic"`
			Subscription string `json:"subscription"`
		} `json:"bindings"`
	} `json:"messaging"`
	Pipeline struct {
		MaxFileSize        int64 `json:"max_file_size"`
		MonthlyUploadLimit int64 `json:"monthly_upload_limit"`
		ResizeCreditCost   int64 `json:"resize_credit_cost"`
	} `json:"pipeline"`
	Tools struct {
		FFmpegPath     string `json:"ffmpeg_path"`
		FFprobePath    string `json:"ffprobe_path"`
		ThumbnailCount int    `json:"thumbnail_count"`
	} `json:"tools"`
	Integrations struct {
		CreditService     string            `json:"credit_service"`
		ProfileService    string            `json:"profile_service"`
		RequestTimeout    string            `json:"request_timeout"`
		PlatformEndpoints map[string]string `json:"platform_endpoints"`
	} `json:"integrations"`
	Outbox struct {
		Schema         string `json:"schema"`
		SourceService  string `json:"source_service"`
		MaxConcurrency int    `json:"max_concurrency"`
		BatchSize      int    `json:"batch_size"`
		TickInterval   string `json:"tick_interval"`
		InitialBackoff string `json:"initial_backoff"`
		MaxBackoff     string `json:"max_backoff"`
		MaxAttempts    int    `json:"max_attempts"`
		PublishTimeout string `json:"publish_timeout"`
		Workers        int    `json:"workers"`
		LockTTL        string `json:"lock_ttl"`
	} `json:"outbox"`
}

// normalize 将原始文件配置转换为强类型 RuntimeConfig。
// 非法时长字符串按零值处理，由后续默认值补齐。
func normalize(fc *fileConfig) RuntimeConfig {
	if fc == nil {
		return RuntimeConfig{}
	}

	pg := fc.Data.Postgres
	rc := RuntimeConfig{
		Database: DatabaseConfig{
			DSN:               pg.DSN,
			MaxOpenConns:      pg.MaxOpenConns,
			MinOpenConns:      pg.MinOpenConns,
			MaxConnLifetime:   durationOrZero(pg.MaxConnLifetime),
			MaxConnIdleTime:   durationOrZero(pg.MaxConnIdleTime),
			HealthCheckPeriod: durationOrZero(pg.HealthCheckPeriod),
			Schema:            pg.Schema,
			PreparedStmts:     pg.PreparedStmts,
			Transaction: TransactionConfig{
				DefaultIsolation: pg.Transaction.DefaultIsolation,
				DefaultTimeout:   durationOrZero(pg.Transaction.DefaultTimeout),
				LockTimeout:      durationOrZero(pg.Transaction.LockTimeout),
				MaxRetries:       pg.Transaction.MaxRetries,
			},
		},
		Storage: StorageConfig{
			Bucket:               fc.Storage.Bucket,
			SignerServiceAccount: fc.Storage.SignerServiceAccount,
			SignedURLTTL:         durationOrZero(fc.Storage.SignedURLTTL),
		},
		Messaging: MessagingConfig{
			ProjectID:        fc.Messaging.ProjectID,
			EmulatorEndpoint: fc.Messaging.EmulatorEndpoint,
			EnableLogging:    fc.Messaging.EnableLogging,
			EnableMetrics:    fc.Messaging.EnableMetrics,
		},
		Pipeline: PipelineConfig{
			MaxFileSize:        fc.Pipeline.MaxFileSize,
			MonthlyUploadLimit: fc.Pipeline.MonthlyUploadLimit,
			ResizeCreditCost:   fc.Pipeline.ResizeCreditCost,
		},
		Tools: ToolsConfig{
			FFmpegPath:     fc.Tools.FFmpegPath,
			FFprobePath:    fc.Tools.FFprobePath,
			ThumbnailCount: fc.Tools.ThumbnailCount,
		},
		Integrations: IntegrationsConfig{
			CreditService:  fc.Integrations.CreditService,
			ProfileService: fc.Integrations.ProfileService,
			RequestTimeout: durationOrZero(fc.Integrations.RequestTimeout),
		},
		Outbox: OutboxConfig{
			Schema:         fc.Outbox.Schema,
			SourceService:  fc.Outbox.SourceService,
			MaxConcurrency: fc.Outbox.MaxConcurrency,
			BatchSize:      fc.Outbox.BatchSize,
			TickInterval:   durationOrZero(fc.Outbox.TickInterval),
			InitialBackoff: durationOrZero(fc.Outbox.InitialBackoff),
			MaxBackoff:     durationOrZero(fc.Outbox.MaxBackoff),
			MaxAttempts:    fc.Outbox.MaxAttempts,
			PublishTimeout: durationOrZero(fc.Outbox.PublishTimeout),
			Workers:        fc.Outbox.Workers,
			LockTTL:        durationOrZero(fc.Outbox.LockTTL),
		},
	}

	if len(fc.Integrations.PlatformEndpoints) > 0 {
		rc.Integrations.PlatformEndpoints = make(map[string]string, len(fc.Integrations.PlatformEndpoints))
		for platform, endpoint := range fc.Integrations.PlatformEndpoints {
			rc.Integrations.PlatformEndpoints[platform] = endpoint
		}
	}
	if len(fc.Messaging.Bindings) > 0 {
		rc.Messaging.Bindings = make(map[string]TopicBinding, len(fc.Messaging.Bindings))
		for name, b := range fc.Messaging.Bindings {
			rc.Messaging.Bindings[name] = TopicBinding{
				Topic:        b.Topic,
				Subscription: b.Subscription,
			}
		}
	}
	return rc
}

func durationOrZero(value string) time.Duration {
	if value == "" {
		return 0
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}
