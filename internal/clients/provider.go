package clients

import (
	"github.com/bionicotaku/lingo-services-media/internal/services"

	"github.com/google/wire"
)

// ProviderSet 暴露客户端门面的依赖注入配置。
var ProviderSet = wire.NewSet(
	NewMediaToolchain,
	NewCreditLedger,
	NewPlatformLinks,
	NewPlatformPublishers,
	wire.Bind(new(services.MediaProbe), new(*MediaToolchain)),
	wire.Bind(new(services.Thumbnailer), new(*MediaToolchain)),
	wire.Bind(new(services.Transcoder), new(*MediaToolchain)),
)
