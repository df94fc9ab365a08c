//go:build wireinject
// +build wireinject

// Package main 为 postprocess 任务 CLI 提供 Wire 依赖注入定义。
package main

import (
	"context"
	"fmt"

	"github.com/bionicotaku/lingo-services-media/internal/clients"
	configloader "github.com/bionicotaku/lingo-services-media/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-media/internal/infrastructure/database"
	"github.com/bionicotaku/lingo-services-media/internal/infrastructure/gcs"
	"github.com/bionicotaku/lingo-services-media/internal/infrastructure/logger"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"
	"github.com/bionicotaku/lingo-services-media/internal/services"
	postprocesstasks "github.com/bionicotaku/lingo-services-media/internal/tasks/postprocess"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

//go:generate go run github.com/google/wire/cmd/wire

func wirePostprocessTask(context.Context, configloader.Params) (*postprocessTaskApp, func(), error) {
	panic(wire.Build(
		configloader.ProviderSet,
		logger.ProviderSet,
		database.ProviderSet,
		txmanager.ProviderSet,
		repositories.ProviderSet,
		gcs.ProvideObjectStorage,
		clients.ProviderSet,
		services.NewProgressService,
		services.NewPostProcessService,
		wire.Bind(new(services.Storage), new(*gcs.ObjectStorage)),
		wire.Bind(new(services.PostProcessVideoRepo), new(*repositories.VideoRepository)),
		wire.Bind(new(services.ProgressRepo), new(*repositories.ProgressRepository)),
		wire.Bind(new(services.OutboxWriter), new(*repositories.OutboxRepository)),
		provideSubscriber,
		postprocesstasks.ProvideRunner,
		newPostprocessTaskApp,
	))
}

func newPostprocessTaskApp(logger log.Logger, runner *postprocesstasks.Runner) (*postprocessTaskApp, error) {
	if runner == nil {
		return &postprocessTaskApp{Logger: logger}, nil
	}
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	return &postprocessTaskApp{
		Runner: runner,
		Logger: logger,
	}, nil
}
