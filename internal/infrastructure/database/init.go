package database

import "github.com/google/wire"

// ProviderSet 暴露连接池构造器，task 二进制通过 Wire 注入共享 *pgxpool.Pool。
var ProviderSet = wire.NewSet(NewPgxPool)
