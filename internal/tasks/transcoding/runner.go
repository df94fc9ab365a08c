package transcoding

import (
	"context"
	"fmt"

	"github.com/bionicotaku/lingo-services-media/internal/repositories"
	"github.com/bionicotaku/lingo-services-media/internal/services"

	"github.com/bionicotaku/lingo-utils/gcpubsub"
	"github.com/bionicotaku/lingo-utils/outbox/config"
	"github.com/bionicotaku/lingo-utils/outbox/inbox"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel"
)

// Runner 负责消费转码请求事件。
type Runner struct {
	delegate *inbox.Runner[Event]
}

// RunnerParams 注入构建 Runner 所需的依赖。
type RunnerParams struct {
	Subscriber gcpubsub.Subscriber
	InboxRepo  *repositories.InboxRepository
	Transcode  *services.TranscodeService
	TxManager  txmanager.Manager
	Logger     log.Logger
	Config     config.InboxConfig
}

// NewRunner 构造转码事件 Runner。
func NewRunner(params RunnerParams) (*Runner, error) {
	if params.Subscriber == nil {
		return nil, fmt.Errorf("transcoding: subscriber is required")
	}
	if params.InboxRepo == nil {
		return nil, fmt.Errorf("transcoding: inbox repository is required")
	}
	if params.Transcode == nil {
		return nil, fmt.Errorf("transcoding: transcode service is required")
	}
	if params.TxManager == nil {
		return nil, fmt.Errorf("transcoding: transaction manager is required")
	}

	helper := log.NewHelper(params.Logger)
	meter := otel.GetMeterProvider().Meter("lingo-services-media.transcoding")
	metrics := newTranscodeMetrics(meter, helper)

	handler := NewHandler(params.Transcode, metrics, params.Logger)
	decoder := newDecoder()

	delegate, err := inbox.NewRunner[Event](inbox.RunnerParams[Event]{
		Store:      params.InboxRepo.Shared(),
		Subscriber: params.Subscriber,
		TxManager:  params.TxManager,
		Decoder:    decoder,
		Handler:    handler,
		Config:     params.Config,
		Logger:     params.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Runner{delegate: delegate}, nil
}

// Run 启动消费循环。
func (r *Runner) Run(ctx context.Context) error {
	if r == nil || r.delegate == nil {
		return nil
	}
	return r.delegate.Run(ctx)
}
