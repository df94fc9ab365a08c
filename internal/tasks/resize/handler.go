package resize

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

// Handler 处理画幅重制请求事件。
type Handler struct {
	resize *services.ResizeService
	log    *log.Helper
}

// NewHandler 构造重制事件处理器。
func NewHandler(resize *services.ResizeService, logger log.Logger) *Handler {
	if logger == nil {
		logger = log.NewStdLogger(nil)
	}
	return &Handler{
		resize: resize,
		log:    log.NewHelper(logger),
	}
}

// Handle 执行重制请求事件的业务处理。非目标类型的事件直接确认。
// 已完成的记录由服务层跳过,保证重投递幂等。
func (h *Handler) Handle(ctx context.Context, _ txmanager.Session, evt *Event, inboxEvt *store.InboxEvent) error {
	if evt == nil {
		return fmt.Errorf("resize: nil event payload")
	}
	if inboxEvt == nil {
		return fmt.Errorf("resize: missing inbox event metadata")
	}
	if !strings.EqualFold(inboxEvt.EventType, events.TypeResizeRequested) {
		return nil
	}
	if h.resize == nil {
		return fmt.Errorf("resize: handler not initialized")
	}

	return h.resize.HandleResize(ctx, evt.ResizeID)
}
