// Package configloader 负责加载并归一化服务的运行时配置。
// 配置来源优先级：环境变量 > 配置文件 > 内置默认值。
package configloader

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/joho/godotenv"
)

const (
	envConfPath       = "CONF_PATH"
	envServiceName    = "SERVICE_NAME"
	envServiceVersion = "SERVICE_VERSION"
	envAppEnv         = "APP_ENV"
	envDatabaseURL    = "DATABASE_URL"
	envStorageBucket  = "STORAGE_BUCKET"
	envPubSubProject  = "PUBSUB_PROJECT_ID"
	envPubSubEmulator = "PUBSUB_EMULATOR_HOST"
)

var envFileNames = []string{".env.local", ".env"}

// Params 包含构造配置 Bundle 所需的运行时输入参数。
type Params struct {
	ConfPath string // 配置文件路径（可为空，使用默认值）
}

// ServiceMetadata 保存服务标识信息，供日志组件使用。
type ServiceMetadata struct {
	Name        string
	Version     string
	Environment string
	InstanceID  string
}

// TransactionConfig 描述事务管理器参数。
type TransactionConfig struct {
	DefaultIsolation string
	DefaultTimeout   time.Duration
	LockTimeout      time.Duration
	MaxRetries       int
}

// DatabaseConfig 描述 PostgreSQL 连接池参数。
type DatabaseConfig struct {
	DSN               string
	MaxOpenConns      int32
	MinOpenConns      int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	Schema            string
	PreparedStmts     bool
	Transaction       TransactionConfig
}

// StorageConfig 描述对象存储参数。
type StorageConfig struct {
	Bucket               string
	SignerServiceAccount string
	SignedURLTTL         time.Duration
}

// TopicBinding 描述单个消息绑定：发布主题与（可选的）消费订阅。
type TopicBinding struct {
	Topic        string
	Subscription string
}

// MessagingConfig 描述 Pub/Sub 连接参数与具名消息绑定。
type MessagingConfig struct {
	ProjectID        string
	EmulatorEndpoint string
	EnableLogging    *bool
	EnableMetrics    *bool
	Bindings         map[string]TopicBinding
}

// Binding 返回具名消息绑定，未配置时返回 false。
func (m MessagingConfig) Binding(name string) (TopicBinding, bool) {
	binding, ok := m.Bindings[name]
	return binding, ok
}

// PipelineConfig 描述媒体流水线的业务参数。
type PipelineConfig struct {
	MaxFileSize        int64 // 单文件大小上限（字节）
	MonthlyUploadLimit int64 // 每用户每月上传数量上限
	ResizeCreditCost   int64 // 每个画幅重制消耗的点数
}

// ToolsConfig 描述本地媒体工具链参数。
type ToolsConfig struct {
	FFmpegPath     string
	FFprobePath    string
	ThumbnailCount int
}

// IntegrationsConfig 描述对外部服务的访问参数。
// PlatformEndpoints 按平台名索引发布适配器的基础地址。
type IntegrationsConfig struct {
	CreditService     string
	ProfileService    string
	RequestTimeout    time.Duration
	PlatformEndpoints map[string]string
}

// OutboxConfig 描述 Outbox/Inbox 运行参数。
type OutboxConfig struct {
	Schema         string
	SourceService  string
	MaxConcurrency int
	BatchSize      int
	TickInterval   time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxAttempts    int
	PublishTimeout time.Duration
	Workers        int
	LockTTL        time.Duration
}

// RuntimeConfig 聚合归一化后的全部运行时配置。
type RuntimeConfig struct {
	Database     DatabaseConfig
	Storage      StorageConfig
	Messaging    MessagingConfig
	Pipeline     PipelineConfig
	Tools        ToolsConfig
	Integrations IntegrationsConfig
	Outbox       OutboxConfig
}

// Bundle 聚合强类型的配置片段，供下游 Wire 注入使用。
type Bundle struct {
	Runtime *RuntimeConfig
	Service ServiceMetadata
}

// BuildError 捕获配置构建过程中的上下文错误信息。
type BuildError struct {
	Stage string
	Path  string
	Err   error
}

// Error 实现 error 接口，提供包含上下文的错误信息。
func (e BuildError) Error() string {
	if e.Stage == "" {
		return e.Err.Error()
	}
	if e.Path != "" {
		return fmt.Sprintf("config %s at %q: %v", e.Stage, e.Path, e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Stage, e.Err)
}

// Unwrap 暴露底层错误，支持 errors.Is/As 链式查询。
func (e BuildError) Unwrap() error {
	return e.Err
}

// Build 从配置文件构建 Bundle。
//
// 流程：
// 1. 解析配置路径（应用回退规则）并加载 .env 文件
// 2. 加载配置文件并归一化为 RuntimeConfig
// 3. 应用环境变量覆盖与默认值
// 4. 校验必填项
func Build(params Params) (*Bundle, error) {
	confPath := ResolveConfPath(params.ConfPath)
	loadEnvFiles(confPath)

	raw, err := loadFileConfig(confPath)
	if err != nil {
		return nil, err
	}

	runtime := normalize(raw)
	applyEnvOverrides(&runtime)
	applyDefaults(&runtime)
	if err := validate(&runtime); err != nil {
		return nil, BuildError{Stage: "validate", Path: confPath, Err: err}
	}

	return &Bundle{
		Runtime: &runtime,
		Service: buildServiceMetadata(),
	}, nil
}

// ResolveConfPath 应用回退规则确定要加载的配置目录/文件路径。
// 优先级：显式传入路径 > CONF_PATH 环境变量 > 默认路径。
func ResolveConfPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(envConfPath); env != "" {
		return env
	}
	return defaultConfPath
}

// loadFileConfig 使用 Kratos config 加载 YAML/JSON 配置文件。
func loadFileConfig(confPath string) (*fileConfig, error) {
	if _, err := os.Stat(confPath); err != nil {
		// 配置文件可选，缺失时全部走环境变量与默认值。
		if os.IsNotExist(err) {
			return &fileConfig{}, nil
		}
		return nil, BuildError{Stage: "stat", Path: confPath, Err: err}
	}

	c := config.New(config.WithSource(file.NewSource(confPath)))
	if err := c.Load(); err != nil {
		return nil, BuildError{Stage: "load", Path: confPath, Err: err}
	}
	defer func() { _ = c.Close() }()

	var fc fileConfig
	if err := c.Scan(&fc); err != nil {
		return nil, BuildError{Stage: "scan", Path: confPath, Err: err}
	}
	return &fc, nil
}

// applyEnvOverrides 应用环境变量覆盖配置文件中的特定字段。
// 环境变量为空时不覆盖，保留配置文件原值。
func applyEnvOverrides(rc *RuntimeConfig) {
	if rc == nil {
		return
	}
	if dsn := os.Getenv(envDatabaseURL); dsn != "" {
		rc.Database.DSN = dsn
	}
	if bucket := os.Getenv(envStorageBucket); bucket != "" {
		rc.Storage.Bucket = bucket
	}
	if project := os.Getenv(envPubSubProject); project != "" {
		rc.Messaging.ProjectID = project
	}
	if emulator := os.Getenv(envPubSubEmulator); emulator != "" {
		rc.Messaging.EmulatorEndpoint = emulator
	}
}

// buildServiceMetadata 构建服务元信息，用于日志标签。
// 优先级：环境变量 > 默认值。
func buildServiceMetadata() ServiceMetadata {
	name := os.Getenv(envServiceName)
	if name == "" {
		name = defaultServiceName
	}
	version := os.Getenv(envServiceVersion)
	if version == "" {
		version = defaultServiceVersion
	}
	env := os.Getenv(envAppEnv)
	if env == "" {
		env = defaultEnvironment
	}
	host, _ := os.Hostname()

	return ServiceMetadata{
		Name:        name,
		Version:     version,
		Environment: env,
		InstanceID:  host,
	}
}

// loadEnvFiles best-effort 加载配置相关的 .env 文件，失败时忽略以保持幂等。
func loadEnvFiles(confPath string) {
	files := envFileCandidates(confPath)
	if len(files) == 0 {
		return
	}
	_ = godotenv.Load(files...)
}

// envFileCandidates 在配置目录与当前工作目录中查找 .env.local、.env。
// 同名文件仅保留第一次出现的位置。
func envFileCandidates(confPath string) []string {
	dirs := make([]string, 0, 2)
	if confPath != "" {
		info, err := os.Stat(confPath)
		switch {
		case err == nil && info.IsDir():
			dirs = append(dirs, confPath)
		case err == nil:
			dirs = append(dirs, filepath.Dir(confPath))
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}

	seen := make(map[string]bool)
	files := make([]string, 0, len(dirs)*len(envFileNames))
	for _, dir := range dirs {
		for _, name := range envFileNames {
			path := filepath.Join(dir, name)
			if seen[path] {
				continue
			}
			seen[path] = true
			if _, err := os.Stat(path); err == nil {
				files = append(files, path)
			}
		}
	}
	return files
}
