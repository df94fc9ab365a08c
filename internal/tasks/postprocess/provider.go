package postprocess

import (
	"github.com/bionicotaku/lingo-services-media/internal/repositories"
	"github.com/bionicotaku/lingo-services-media/internal/services"

	"github.com/bionicotaku/lingo-utils/gcpubsub"
	outboxcfg "github.com/bionicotaku/lingo-utils/outbox/config"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
)

// ProvideRunner 装配后处理 Runner。
func ProvideRunner(
	inboxRepo *repositories.InboxRepository,
	pipeline *services.PostProcessService,
	tx txmanager.Manager,
	sub gcpubsub.Subscriber,
	outboxCfg outboxcfg.Config,
	logger log.Logger,
) *Runner {
	if inboxRepo == nil || pipeline == nil || sub == nil || logger == nil {
		return nil
	}

	runner, err := NewRunner(RunnerParams{
		Subscriber: sub,
		InboxRepo:  inboxRepo,
		Pipeline:   pipeline,
		TxManager:  tx,
		Logger:     logger,
		Config:     outboxCfg.Inbox,
	})
	if err != nil {
		log.NewHelper(logger).Errorw("msg", "init postprocess runner failed", "error", err)
		return nil
	}
	return runner
}
