//go:build wireinject
// +build wireinject

package di

import (
	"ScreenerView/pkg/config"
	"ScreenerView/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideCache,
		ProvideSource,
		ProvideEventProducer,

		// Shell
		ProvideHub,
		ProvideNotifier,

		// Core
		ProvideScreener,
		ProvideLimiter,

		// HTTP
		ProvideAPIHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return nil, nil, nil
}
