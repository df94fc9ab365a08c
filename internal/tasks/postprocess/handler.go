package postprocess

import (
	"context"
	"fmt"
	"strings"

	"github.com/bionicotaku/lingo-services-media/internal/models/events"
	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/services"

	"github.com/bionicotaku/lingo-utils/outbox/store"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
)

// Handler 处理上传完成事件，触发后处理流水线。
type Handler struct {
	pipeline *services.PostProcessService
	log      *log.Helper
}

// NewHandler 构造后处理事件处理器。
func NewHandler(pipeline *services.PostProcessService, logger log.Logger) *Handler {
	if logger == nil {
		logger = log.NewStdLogger(nil)
	}
	return &Handler{
		pipeline: pipeline,
		log:      log.NewHelper(logger),
	}
}

// Handle 执行上传完成事件的业务处理。非目标类型的事件直接确认。
// 领域写入走自动提交,入站事务只承载 inbox 簿记。
func (h *Handler) Handle(ctx context.Context, _ txmanager.Session, evt *Event, inboxEvt *store.InboxEvent) error {
	if evt == nil {
		return fmt.Errorf("postprocess: nil event payload")
	}
	if inboxEvt == nil {
		return fmt.Errorf("postprocess: missing inbox event metadata")
	}
	if !strings.EqualFold(inboxEvt.EventType, events.TypeUploadCompleted) {
		return nil
	}
	if h.pipeline == nil {
		return fmt.Errorf("postprocess: handler not initialized")
	}

	platforms := make([]po.Platform, 0, len(evt.Platforms))
	for _, raw := range evt.Platforms {
		platform := po.Platform(raw)
		if !platform.IsValid() {
			h.log.WithContext(ctx).Warnf("postprocess: skip unknown platform: video_id=%s platform=%s", evt.VideoID, raw)
			continue
		}
		platforms = append(platforms, platform)
	}

	return h.pipeline.Process(ctx, services.PostProcessInput{
		VideoID:   evt.VideoID,
		UserID:    evt.UserID,
		FileURL:   evt.FileURL,
		Platforms: platforms,
	})
}
