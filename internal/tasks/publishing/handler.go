package publishing

import (
	"context"
	"fmt"
	"strings"

	"github.com/bionicotaku/lingo-services-media/internal/models/events"
	"github.com/bionicotaku/lingo-services-media/internal/services"

	"github.com/bionicotaku/lingo-utils/outbox/store"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
)

// Handler 处理发布请求事件，触发按平台扇出提交。
type Handler struct {
	publish *services.PublishService
	metrics *publishMetrics
	log     *log.Helper
}

// NewHandler 构造发布事件处理器。
func NewHandler(publish *services.PublishService, metrics *publishMetrics, logger log.Logger) *Handler {
	if logger == nil {
		logger = log.NewStdLogger(nil)
	}
	return &Handler{
		publish: publish,
		metrics: metrics,
		log:     log.NewHelper(logger),
	}
}

// Handle 执行发布请求事件的业务处理。非目标类型的事件直接确认。
// 已离开 uploading 状态的发布记录由服务层跳过,保证重投递幂等。
func (h *Handler) Handle(ctx context.Context, _ txmanager.Session, evt *Event, inboxEvt *store.InboxEvent) error {
	if evt == nil {
		return fmt.Errorf("publishing: nil event payload")
	}
	if inboxEvt == nil {
		return fmt.Errorf("publishing: missing inbox event metadata")
	}
	if !strings.EqualFold(inboxEvt.EventType, events.TypePublishRequested) {
		return nil
	}
	if h.publish == nil {
		return fmt.Errorf("publishing: handler not initialized")
	}

	err := h.publish.HandlePublishRequested(ctx, evt.VideoID, evt.FileURL, evt.UploadIDs)
	if err != nil {
		h.metrics.recordFailure(ctx, inboxEvt.EventType, err)
		return err
	}
	h.metrics.recordSuccess(ctx, inboxEvt.EventType)
	return nil
}
