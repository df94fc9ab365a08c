//go:build wireinject
// +build wireinject

// Package main 为 publishing 任务 CLI 提供 Wire 依赖注入定义。
package main

import (
	"context"
	"fmt"

	"github.com/bionicotaku/lingo-services-media/internal/clients"
	configloader "github.com/bionicotaku/lingo-services-media/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-media/internal/infrastructure/database"
	"github.com/bionicotaku/lingo-services-media/internal/infrastructure/logger"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"
	"github.com/bionicotaku/lingo-services-media/internal/services"
	publishingtasks "github.com/bionicotaku/lingo-services-media/internal/tasks/publishing"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

//go:generate go run github.com/google/wire/cmd/wire

func wirePublishingTask(context.Context, configloader.Params) (*publishingTaskApp, func(), error) {
	panic(wire.Build(
		configloader.ProviderSet,
		logger.ProviderSet,
		database.ProviderSet,
		txmanager.ProviderSet,
		repositories.ProviderSet,
		clients.NewPlatformPublishers,
		services.NewPublisherRegistry,
		services.NewStatusService,
		services.NewProgressService,
		services.NewPublishService,
		wire.Bind(new(services.PublishUploadRepo), new(*repositories.UploadRepository)),
		wire.Bind(new(services.PublishVideoRepo), new(*repositories.VideoRepository)),
		wire.Bind(new(services.StatusVideoRepo), new(*repositories.VideoRepository)),
		wire.Bind(new(services.StatusUploadRepo), new(*repositories.UploadRepository)),
		wire.Bind(new(services.ProgressRepo), new(*repositories.ProgressRepository)),
		wire.Bind(new(services.OutboxWriter), new(*repositories.OutboxRepository)),
		provideSubscriber,
		publishingtasks.ProvideRunner,
		newPublishingTaskApp,
	))
}

func newPublishingTaskApp(logger log.Logger, runner *publishingtasks.Runner) (*publishingTaskApp, error) {
	if runner == nil {
		return &publishingTaskApp{Logger: logger}, nil
	}
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	return &publishingTaskApp{
		Runner: runner,
		Logger: logger,
	}, nil
}
