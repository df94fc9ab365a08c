package logger

import "github.com/google/wire"

// ProviderSet 暴露日志构造器供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(NewLogger)
