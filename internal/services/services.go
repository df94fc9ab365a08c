// Package services 承载业务用例实现，协调 Repository、外部协作方与事务边界。
package services

import (
	"context"

	"github.com/bionicotaku/lingo-services-media/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/google/wire"
)

// 对外错误码（kratos errors reason），供客户端区分失败类别。
const (
	ReasonUploadInvalid      = "UPLOAD_INVALID"
	ReasonUploadQuotaReached = "UPLOAD_QUOTA_REACHED"
	ReasonDuplicateContent   = "DUPLICATE_CONTENT"
	ReasonVideoNotFound      = "VIDEO_NOT_FOUND"
	ReasonUploadNotFound     = "UPLOAD_NOT_FOUND"
	ReasonVariantNotFound    = "VARIANT_NOT_FOUND"
	ReasonResizeNotFound     = "RESIZE_NOT_FOUND"
	ReasonPublishInvalid     = "PUBLISH_INVALID"
	ReasonResizeInvalid      = "RESIZE_INVALID"
	ReasonRetryConflict      = "RETRY_STATE_CONFLICT"
	ReasonInsufficientCredit = "INSUFFICIENT_CREDIT"
	ReasonPersistenceFailed  = "PERSISTENCE_FAILED"
)

// 异步任务写入行内的错误信息上限，超出部分截断。
const maxErrorMessageLen = 500

func truncateMessage(msg string) string {
	if len(msg) <= maxErrorMessageLen {
		return msg
	}
	return msg[:maxErrorMessageLen]
}

// OutboxWriter 定义 Outbox 写入行为。
type OutboxWriter interface {
	Enqueue(ctx context.Context, sess txmanager.Session, msg repositories.OutboxMessage) error
}

// ProviderSet 暴露 Service 层构造函数供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(
	NewUploadService,
	NewPostProcessService,
	NewTranscodeService,
	NewPublishService,
	NewResizeService,
	NewProgressService,
	NewStatusService,
	NewPublisherRegistry,
)
