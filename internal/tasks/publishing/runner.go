package publishing

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

// Runner 负责消费发布请求事件。
type Runner struct {
	delegate *inbox.Runner[Event]
}

// RunnerParams 注入构建 Runner 所需的依赖。
type RunnerParams struct {
	Subscriber gcpubsub.Subscriber
	InboxRepo  *repositories.InboxRepository
	Publish    *services.PublishService
	TxManager  txmanager.Manager
	Logger     log.Logger
	Config     config.InboxConfig
}

// NewRunner 构造发布事件 Runner。
func NewRunner(params RunnerParams) (*Runner, error) {
	if params.Subscriber == nil {
		return nil, fmt.Errorf("publishing: subscriber is required")
	}
	if params.InboxRepo == nil {
		return nil, fmt.Errorf("publishing: inbox repository is required")
	}
	if params.Publish == nil {
		return nil, fmt.Errorf("publishing: publish service is required")
	}
	if params.TxManager == nil {
		return nil, fmt.Errorf("publishing: transaction manager is required")
	}

	helper := log.NewHelper(params.Logger)
	meter := otel.GetMeterProvider().Meter("lingo-services-media.publishing")
	metrics := newPublishMetrics(meter, helper)

	handler := NewHandler(params.Publish, metrics, params.Logger)
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
