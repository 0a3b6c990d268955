//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"notistream/internal/app"
	"notistream/internal/config"
	"notistream/internal/http"
	"notistream/internal/http/controller"
	"notistream/internal/http/middleware"
	"notistream/internal/logging"
	"notistream/internal/queue/rabbitmq"
	"notistream/internal/service/notify"
	"notistream/internal/sse"
	"notistream/internal/store"
)

func InitializeApp() (*app.App, error) {
	wire.Build(
		config.New,
		logging.New,
		store.NewStore,
		sse.NewHub,
		rabbitmq.NewPublisher,
		notify.NewService,
		middleware.NewMetrics,
		controller.NewHandler,
		http.NewRouter,
		rabbitmq.NewConsumer,
		app.NewApp,
	)
	return &app.App{}, nil
}
