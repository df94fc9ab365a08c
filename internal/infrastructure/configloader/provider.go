package configloader

import (
	"github.com/bionicotaku/lingo-services-media/internal/infrastructure/logger"
	"github.com/bionicotaku/lingo-services-media/internal/services"

	outboxcfg "github.com/bionicotaku/lingo-utils/outbox/config"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/google/wire"
)

// ProviderSet exposes configuration-derived dependencies for Wire graphs.
var ProviderSet = wire.NewSet(
	Build,
	ProvideServiceMetadata,
	ProvideRuntimeConfig,
	ProvideDatabaseConfig,
	ProvideStorageConfig,
	ProvideMessagingConfig,
	ProvideToolsConfig,
	ProvideIntegrationsConfig,
	ProvideLoggerConfig,
	ProvideTxConfig,
	ProvideOutboxConfig,
	ProvideUploadConfig,
	ProvideResizeConfig,
)

// ProvideServiceMetadata returns the resolved ServiceMetadata from the bundle.
func ProvideServiceMetadata(b *Bundle) ServiceMetadata {
	if b == nil {
		return ServiceMetadata{}
	}
	return b.Service
}

// ProvideRuntimeConfig exposes the normalized runtime configuration.
func ProvideRuntimeConfig(b *Bundle) *RuntimeConfig {
	if b == nil {
		return nil
	}
	return b.Runtime
}

// ProvideDatabaseConfig returns the database section of the runtime configuration.
func ProvideDatabaseConfig(rc *RuntimeConfig) DatabaseConfig {
	if rc == nil {
		return DatabaseConfig{}
	}
	return rc.Database
}

// ProvideStorageConfig returns the storage section of the runtime configuration.
func ProvideStorageConfig(rc *RuntimeConfig) StorageConfig {
	if rc == nil {
		return StorageConfig{}
	}
	return rc.Storage
}

// ProvideMessagingConfig returns the messaging section of the runtime configuration.
func ProvideMessagingConfig(rc *RuntimeConfig) MessagingConfig {
	if rc == nil {
		return MessagingConfig{}
	}
	return rc.Messaging
}

// ProvideToolsConfig returns the local media toolchain configuration.
func ProvideToolsConfig(rc *RuntimeConfig) ToolsConfig {
	if rc == nil {
		return ToolsConfig{}
	}
	return rc.Tools
}

// ProvideIntegrationsConfig returns the external integrations configuration.
func ProvideIntegrationsConfig(rc *RuntimeConfig) IntegrationsConfig {
	if rc == nil {
		return IntegrationsConfig{}
	}
	return rc.Integrations
}

// ProvideLoggerConfig 将服务元信息转换为 logger.Config。
func ProvideLoggerConfig(meta ServiceMetadata) logger.Config {
	return logger.Config{
		Service: meta.Name,
		Version: meta.Version,
		HostID:  meta.InstanceID,
		Env:     meta.Environment,
	}
}

// ProvideTxConfig 将事务配置转换为 txmanager.Config。
func ProvideTxConfig(rc *RuntimeConfig) txmanager.Config {
	if rc == nil {
		return txmanager.Config{}
	}
	tx := rc.Database.Transaction
	return txmanager.Config{
		DefaultIsolation: tx.DefaultIsolation,
		DefaultTimeout:   tx.DefaultTimeout,
		LockTimeout:      tx.LockTimeout,
		MaxRetries:       tx.MaxRetries,
	}
}

// ProvideOutboxConfig 将 Outbox 配置转换为共享库的 outboxcfg.Config。
func ProvideOutboxConfig(rc *RuntimeConfig) outboxcfg.Config {
	if rc == nil {
		return outboxcfg.Config{}
	}
	ob := rc.Outbox
	return outboxcfg.Config{
		Schema: ob.Schema,
		Inbox: outboxcfg.InboxConfig{
			SourceService:  ob.SourceService,
			MaxConcurrency: ob.MaxConcurrency,
		},
		Publisher: outboxcfg.PublisherConfig{
			BatchSize:      ob.BatchSize,
			TickInterval:   ob.TickInterval,
			InitialBackoff: ob.InitialBackoff,
			MaxBackoff:     ob.MaxBackoff,
			MaxAttempts:    ob.MaxAttempts,
			PublishTimeout: ob.PublishTimeout,
			Workers:        ob.Workers,
			LockTTL:        ob.LockTTL,
		},
	}
}

// ProvideUploadConfig 组装上传用例的运行参数。
func ProvideUploadConfig(rc *RuntimeConfig) services.UploadConfig {
	if rc == nil {
		return services.UploadConfig{}
	}
	return services.UploadConfig{
		Bucket:       rc.Storage.Bucket,
		SignedURLTTL: rc.Storage.SignedURLTTL,
		MaxFileSize:  rc.Pipeline.MaxFileSize,
		MonthlyLimit: rc.Pipeline.MonthlyUploadLimit,
	}
}

// ProvideResizeConfig 组装画幅重制用例的运行参数。
func ProvideResizeConfig(rc *RuntimeConfig) services.ResizeConfig {
	if rc == nil {
		return services.ResizeConfig{}
	}
	return services.ResizeConfig{CreditCost: rc.Pipeline.ResizeCreditCost}
}
