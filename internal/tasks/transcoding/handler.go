package transcoding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/models/events"
	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/services"

	"github.com/bionicotaku/lingo-utils/outbox/store"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
)

// Handler 处理转码请求事件，触发按平台扇出。
type Handler struct {
	transcode *services.TranscodeService
	metrics   *transcodeMetrics
	clock     func() time.Time
	log       *log.Helper
}

// NewHandler 构造转码事件处理器。
func NewHandler(transcode *services.TranscodeService, metrics *transcodeMetrics, logger log.Logger) *Handler {
	if logger == nil {
		logger = log.NewStdLogger(nil)
	}
	return &Handler{
		transcode: transcode,
		metrics:   metrics,
		clock:     time.Now,
		log:       log.NewHelper(logger),
	}
}

// Handle 执行转码请求事件的业务处理。非目标类型的事件直接确认。
// 扇出内的单平台失败由服务层吸收,这里只在整批失败时返回错误触发重投递。
func (h *Handler) Handle(ctx context.Context, _ txmanager.Session, evt *Event, inboxEvt *store.InboxEvent) error {
	if evt == nil {
		return fmt.Errorf("transcoding: nil event payload")
	}
	if inboxEvt == nil {
		return fmt.Errorf("transcoding: missing inbox event metadata")
	}
	if !strings.EqualFold(inboxEvt.EventType, events.TypeTranscodeRequested) {
		return nil
	}
	if h.transcode == nil {
		return fmt.Errorf("transcoding: handler not initialized")
	}

	platforms := make([]po.Platform, 0, len(evt.Platforms))
	for _, raw := range evt.Platforms {
		platform := po.Platform(raw)
		if !platform.IsValid() {
			h.log.WithContext(ctx).Warnf("transcoding: skip unknown platform: video_id=%s platform=%s", evt.VideoID, raw)
			continue
		}
		platforms = append(platforms, platform)
	}

	err := h.transcode.Run(ctx, services.TranscodeInput{
		VideoID:   evt.VideoID,
		UserID:    evt.UserID,
		FileURL:   evt.FileURL,
		Platforms: platforms,
	})
	if err != nil {
		h.metrics.recordFailure(ctx, inboxEvt.EventType, err)
		return err
	}
	h.metrics.recordSuccess(ctx, inboxEvt.EventType, evt.OccurredAt, h.clock())
	return nil
}
