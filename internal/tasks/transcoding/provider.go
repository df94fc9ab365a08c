package transcoding

import (
	"github.com/bionicotaku/lingo-services-media/internal/repositories"
	"github.com/bionicotaku/lingo-services-media/internal/services"

	"github.com/bionicotaku/lingo-utils/gcpubsub"
	outboxcfg "github.com/bionicotaku/lingo-utils/outbox/config"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
)

// ProvideRunner 装配转码 Runner。
func ProvideRunner(
	inboxRepo *repositories.InboxRepository,
	transcode *services.TranscodeService,
	tx txmanager.Manager,
	sub gcpubsub.Subscriber,
	outboxCfg outboxcfg.Config,
	logger log.Logger,
) *Runner {
	if inboxRepo == nil || transcode == nil || sub == nil || logger == nil {
		return nil
	}

	runner, err := NewRunner(RunnerParams{
		Subscriber: sub,
		InboxRepo:  inboxRepo,
		Transcode:  transcode,
		TxManager:  tx,
		Logger:     logger,
		Config:     outboxCfg.Inbox,
	})
	if err != nil {
		log.NewHelper(logger).Errorw("msg", "init transcoding runner failed", "error", err)
		return nil
	}
	return runner
}
